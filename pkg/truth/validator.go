package truth

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"zoi/sentinel/pkg/compliance"
)

const (
	// StatusBanned is the residue status assigned to authority matches.
	StatusBanned = "banned"

	// ScoreCeiling caps the risk score of records with a banned substance.
	ScoreCeiling = 40
)

// Report summarizes what a validation pass changed.
type Report struct {
	// Banned lists residue names matched to the authority table, sorted.
	Banned []string

	// Corrected counts banned entries whose prior status differed.
	Corrected int

	// NonConforming lists residue names outside the authority table whose
	// own status reports a violation, sorted.
	NonConforming []string

	// Demoted is set when the overall status was forced off APPROVED.
	Demoted bool
}

// nonConforming holds folded residue statuses that report a violation.
var nonConforming = map[string]bool{
	"nao_conforme":    true,
	"non_conforme":    true,
	"nonconforme":     true,
	"non_conforming":  true,
	"nonconforming":   true,
	"non_compliant":   true,
	"noncompliant":    true,
	"not_compliant":   true,
	"non_conformita":  true,
	"exceeds":         true,
	"exceeded":        true,
	"exceeds_limit":   true,
	"above_limit":     true,
	"acima_do_limite": true,
	"fora_do_limite":  true,
	"banned":          true,
	"proibido":        true,
	"prohibited":      true,
	"vietato":         true,
	"not_authorized":  true,
	"nao_autorizado":  true,
}

// NonConformingStatus reports whether a residue status names a violation.
// Case, diacritics and separators are ignored.
func NonConformingStatus(status string) bool {
	s := compliance.Fold(strings.ToLower(strings.TrimSpace(status)))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return nonConforming[s]
}

// Validator applies the authority table. It is safe for concurrent use.
type Validator struct {
	table  atomic.Pointer[Table]
	logger *slog.Logger
}

// NewValidator creates a validator over t. A nil table uses DefaultTable.
func NewValidator(t *Table) *Validator {
	if t == nil {
		t = DefaultTable()
	}
	v := &Validator{logger: slog.Default().With("component", "truth")}
	v.table.Store(t)
	return v
}

// Table returns the active authority table.
func (v *Validator) Table() *Table {
	return v.table.Load()
}

// Swap installs t as the active table.
func (v *Validator) Swap(t *Table) {
	old := v.table.Swap(t)
	v.logger.Info("authority table replaced",
		"source", t.Source(),
		"version", t.Version(),
		"substances", t.Len(),
		"previous_version", old.Version(),
	)
}

// Reload replaces the active table with the one at path. On error the
// current table stays in place.
func (v *Validator) Reload(path string) error {
	t, err := LoadTable(path)
	if err != nil {
		return err
	}
	v.Swap(t)
	return nil
}

// Validate returns a corrected deep copy of r. It never fails; a nil record
// yields nil.
func (v *Validator) Validate(r *compliance.Record) *compliance.Record {
	out, _ := v.Apply(r)
	return out
}

// Apply is Validate with a report of the corrections made.
func (v *Validator) Apply(r *compliance.Record) (*compliance.Record, Report) {
	var rep Report
	if r == nil {
		return nil, rep
	}
	out := r.Clone()
	if len(out.MaxResidueLimits) == 0 {
		out.ConformityPercent = nil
		return out, rep
	}

	table := v.table.Load()
	for name, limit := range out.MaxResidueLimits {
		entry, ok := table.Match(name)
		if !ok {
			if NonConformingStatus(limit.Status) {
				rep.NonConforming = append(rep.NonConforming, name)
			}
			continue
		}
		corrected := limit.Status != StatusBanned
		out.MaxResidueLimits[name] = compliance.ResidueLimit{
			Limit:      entry.Limit,
			Regulation: entry.Regulation,
			Status:     StatusBanned,
			Note:       entry.Note,
			Corrected:  corrected || limit.Corrected,
		}
		rep.Banned = append(rep.Banned, name)
		if corrected {
			rep.Corrected++
		}
	}
	slices.Sort(rep.Banned)
	slices.Sort(rep.NonConforming)

	total := len(out.MaxResidueLimits)
	violations := len(rep.Banned) + len(rep.NonConforming)
	pct := float64(total-violations) / float64(total) * 100
	out.ConformityPercent = &pct

	if violations == 0 {
		return out, rep
	}

	for _, name := range rep.NonConforming {
		if alert := NonConformingAlert(name); !out.HasAlert(alert) {
			out.Alerts = append(out.Alerts, alert)
		}
	}
	if len(rep.Banned) == 0 {
		if out.Status == compliance.StatusApproved {
			out.Status = compliance.StatusRequiresAttention
			rep.Demoted = true
			v.logger.Warn("approved record demoted for non-conforming residues",
				"slug", out.Slug,
				"non_conforming", rep.NonConforming,
			)
		}
		return out, rep
	}

	if out.Status == compliance.StatusApproved {
		out.Status = compliance.StatusRequiresAttention
		rep.Demoted = true
	}
	if out.RiskScore > ScoreCeiling {
		out.RiskScore = ScoreCeiling
	}
	out.RiskLevel = compliance.LevelForScore(out.RiskScore)
	for _, name := range rep.Banned {
		if alert := BannedAlert(name); !out.HasAlert(alert) {
			out.Alerts = append(out.Alerts, alert)
		}
	}

	if rep.Corrected > 0 || rep.Demoted {
		v.logger.Warn("record corrected by authority table",
			"slug", out.Slug,
			"banned", rep.Banned,
			"corrected", rep.Corrected,
			"non_conforming", rep.NonConforming,
			"demoted", rep.Demoted,
		)
	}
	return out, rep
}

// BannedAlert is the alert text attached for a banned substance.
func BannedAlert(substance string) string {
	return fmt.Sprintf("Substância proibida na UE detectada: %s", substance)
}

// NonConformingAlert is the alert text attached for a residue reported
// outside its limit.
func NonConformingAlert(substance string) string {
	return fmt.Sprintf("Resíduo não conforme com o limite da UE: %s", substance)
}
