package truth

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/quick"

	"zoi/sentinel/pkg/compliance"
)

func approvedRecord(residues map[string]compliance.ResidueLimit) *compliance.Record {
	return &compliance.Record{
		Slug:             "soja_grao",
		RiskScore:        92,
		RiskLevel:        compliance.RiskLow,
		Status:           compliance.StatusApproved,
		MaxResidueLimits: residues,
		Alerts:           []string{},
	}
}

func TestValidate_OverridesBannedSubstance(t *testing.T) {
	in := approvedRecord(map[string]compliance.ResidueLimit{
		"Carbendazim": {Limit: "0.5 mg/kg", Status: "conforme"},
		"glifosato":   {Limit: "20 mg/kg", Regulation: "Reg. 396/2005", Status: "conforme"},
	})

	v := NewValidator(nil)
	out, rep := v.Apply(in)

	got := out.MaxResidueLimits["Carbendazim"]
	if got.Status != StatusBanned {
		t.Errorf("Status = %q, want %q", got.Status, StatusBanned)
	}
	if got.Limit != "0.01 mg/kg" {
		t.Errorf("Limit = %q, want canonical 0.01 mg/kg", got.Limit)
	}
	if got.Regulation == "" || got.Note == "" {
		t.Errorf("canonical regulation/note not applied: %+v", got)
	}
	if !got.Corrected {
		t.Error("Corrected = false, want true")
	}
	if out.MaxResidueLimits["glifosato"].Status != "conforme" {
		t.Error("non-banned entry was modified")
	}
	if out.Status != compliance.StatusRequiresAttention {
		t.Errorf("record Status = %q, want REQUIRES_ATTENTION", out.Status)
	}
	if out.RiskScore != ScoreCeiling {
		t.Errorf("RiskScore = %d, want %d", out.RiskScore, ScoreCeiling)
	}
	if out.RiskLevel != compliance.RiskHigh {
		t.Errorf("RiskLevel = %q, want HIGH", out.RiskLevel)
	}
	if out.ConformityPercent == nil || *out.ConformityPercent != 50 {
		t.Errorf("ConformityPercent = %v, want 50", out.ConformityPercent)
	}
	if !out.HasAlert(BannedAlert("Carbendazim")) {
		t.Errorf("Alerts = %q, want banned alert", out.Alerts)
	}
	if rep.Corrected != 1 || !rep.Demoted || len(rep.Banned) != 1 {
		t.Errorf("Report = %+v", rep)
	}

	// Input untouched.
	if in.Status != compliance.StatusApproved || in.MaxResidueLimits["Carbendazim"].Status != "conforme" {
		t.Error("Validate mutated its input")
	}
}

func TestValidate_DemotesNonConformingResidue(t *testing.T) {
	v := NewValidator(nil)
	in := approvedRecord(map[string]compliance.ResidueLimit{
		"glifosato":     {Limit: "20 mg/kg", Status: "nao_conforme"},
		"azoxistrobina": {Limit: "0.1 mg/kg", Status: "conforme"},
	})

	out, rep := v.Apply(in)

	if out.Status != compliance.StatusRequiresAttention {
		t.Errorf("Status = %q, want REQUIRES_ATTENTION", out.Status)
	}
	if !rep.Demoted {
		t.Error("Demoted = false, want true")
	}
	if len(rep.NonConforming) != 1 || rep.NonConforming[0] != "glifosato" {
		t.Errorf("NonConforming = %q, want [glifosato]", rep.NonConforming)
	}
	if len(rep.Banned) != 0 {
		t.Errorf("Banned = %q, want none", rep.Banned)
	}
	if out.MaxResidueLimits["glifosato"].Status != "nao_conforme" {
		t.Error("non-conforming entry status was rewritten")
	}
	if out.ConformityPercent == nil || *out.ConformityPercent != 50 {
		t.Errorf("ConformityPercent = %v, want 50", out.ConformityPercent)
	}
	if out.RiskScore != 92 {
		t.Errorf("RiskScore = %d, want 92 untouched", out.RiskScore)
	}
	if !out.HasAlert(NonConformingAlert("glifosato")) {
		t.Errorf("Alerts = %q, want non-conforming alert", out.Alerts)
	}

	again, _ := v.Apply(out)
	if len(again.Alerts) != len(out.Alerts) {
		t.Errorf("second pass added alerts: %q", again.Alerts)
	}
}

func TestNonConformingStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"nao_conforme", true},
		{"Não conforme", true},
		{"NON-COMPLIANT", true},
		{"exceeds", true},
		{" banned ", true},
		{"Acima do limite", true},
		{"conforme", false},
		{"compliant", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := NonConformingStatus(tt.status); got != tt.want {
			t.Errorf("NonConformingStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestValidate_Idempotent(t *testing.T) {
	v := NewValidator(nil)
	once := v.Validate(approvedRecord(map[string]compliance.ResidueLimit{
		"clorpirifós": {Status: "conforme"},
	}))
	twice, rep := v.Apply(once)

	if len(twice.Alerts) != len(once.Alerts) {
		t.Errorf("alerts duplicated: %q", twice.Alerts)
	}
	if rep.Corrected != 0 {
		t.Errorf("second pass Corrected = %d, want 0", rep.Corrected)
	}
	if !twice.MaxResidueLimits["clorpirifós"].Corrected {
		t.Error("Corrected flag lost on second pass")
	}
}

func TestValidate_NoResidues(t *testing.T) {
	v := NewValidator(nil)
	out := v.Validate(approvedRecord(nil))
	if out.Status != compliance.StatusApproved || out.RiskScore != 92 {
		t.Errorf("clean record changed: %+v", out)
	}
	if out.ConformityPercent != nil {
		t.Errorf("ConformityPercent = %v, want nil", *out.ConformityPercent)
	}
	if v.Validate(nil) != nil {
		t.Error("Validate(nil) != nil")
	}
}

func TestValidate_KeepsBlocked(t *testing.T) {
	r := approvedRecord(map[string]compliance.ResidueLimit{"paraquat": {}})
	r.Status = compliance.StatusBlocked
	r.RiskScore = 10

	out := NewValidator(nil).Validate(r)
	if out.Status != compliance.StatusBlocked {
		t.Errorf("Status = %q, want BLOCKED", out.Status)
	}
	if out.RiskScore != 10 {
		t.Errorf("RiskScore = %d, want 10", out.RiskScore)
	}
}

func TestTable_Match(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		name      string
		want      string
		wantMatch bool
	}{
		{"carbendazim", "carbendazim", true},
		{"CARBENDAZIM (fungicida)", "carbendazim", true},
		{"Atrazina", "atrazine", true},
		{"chlorpyrifos-methyl", "chlorpyrifos-methyl", true},
		{"Chlorpyrifos methyl", "chlorpyrifos-methyl", true},
		{"clorpirifós", "chlorpyrifos", true},
		{"paraquat dichloride", "paraquat", true},
		{"glifosato", "", false},
		{"atr", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := table.Match(tt.name)
		if ok != tt.wantMatch {
			t.Errorf("Match(%q) ok = %v, want %v", tt.name, ok, tt.wantMatch)
			continue
		}
		if ok && got.Substance != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.name, got.Substance, tt.want)
		}
	}
}

// Safety invariant: whatever a record claims, a banned name in its residue
// map leaves it non-approved with that entry marked banned.
func TestValidate_SafetyProperty(t *testing.T) {
	v := NewValidator(nil)
	entries := v.Table().Entries()
	statuses := []compliance.ApprovalStatus{
		compliance.StatusApproved, compliance.StatusRequiresAttention,
		compliance.StatusBlocked, compliance.StatusResearching,
	}

	f := func(pick uint8, status uint8, score uint8, claimed string, extra string) bool {
		name := entries[int(pick)%len(entries)].Substance
		r := &compliance.Record{
			Status:    statuses[int(status)%len(statuses)],
			RiskScore: int(score) % 101,
			MaxResidueLimits: map[string]compliance.ResidueLimit{
				name:        {Status: claimed},
				"x" + extra: {Status: "conforme"},
			},
		}
		out := v.Validate(r)
		return out.MaxResidueLimits[name].Status == StatusBanned &&
			out.Status != compliance.StatusApproved &&
			out.RiskScore <= ScoreCeiling &&
			out.ConformityPercent != nil
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

// An APPROVED record never survives with a residue outside its limit, banned
// or not.
func TestValidate_SafetyProperty_NonConforming(t *testing.T) {
	v := NewValidator(nil)
	violations := []string{"nao_conforme", "non_compliant", "exceeds", "Não Conforme", "banned"}

	f := func(pick uint8, score uint8, extra string) bool {
		r := approvedRecord(map[string]compliance.ResidueLimit{
			"residuo_" + extra: {Status: violations[int(pick)%len(violations)]},
			"glifosato":        {Status: "conforme"},
		})
		r.RiskScore = int(score) % 101
		out := v.Validate(r)
		return out.Status != compliance.StatusApproved &&
			out.ConformityPercent != nil &&
			*out.ConformityPercent < 100
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

func TestParseTable_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "substances: [:"},
		{"empty", "version: x\n"},
		{"short name", "substances:\n  - substance: abc\n"},
		{"duplicate alias", "substances:\n  - substance: atrazine\n  - substance: simazine\n    aliases: [atrazine]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTable([]byte(tt.yaml), "test"); err == nil {
				t.Fatal("ParseTable() error = nil")
			}
		})
	}
}

func TestValidator_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authority.yaml")
	content := "version: test\nsubstances:\n  - substance: glyphosate\n    aliases: [glifosato]\n    limit: \"0.1 mg/kg\"\n    regulation: test\n    note: test\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := NewValidator(nil)
	r := approvedRecord(map[string]compliance.ResidueLimit{"glifosato": {Status: "conforme"}})
	if v.Validate(r).Status != compliance.StatusApproved {
		t.Fatal("glifosato should pass the default table")
	}

	if err := v.Reload(path); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if v.Table().Version() != "test" {
		t.Errorf("Version = %q, want test", v.Table().Version())
	}
	if v.Validate(r).Status == compliance.StatusApproved {
		t.Error("record still approved after table reload")
	}

	if err := v.Reload(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Reload(missing) error = nil")
	}
	if v.Table().Version() != "test" {
		t.Error("failed reload replaced the table")
	}
}

func TestValidator_ConcurrentSwap(t *testing.T) {
	v := NewValidator(nil)
	r := approvedRecord(map[string]compliance.ResidueLimit{"acefato": {}})

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				if v.Validate(r).Status == compliance.StatusApproved {
					t.Error("approved record with banned substance")
					return
				}
			}
		})
	}
	for range 10 {
		v.Swap(DefaultTable())
	}
	wg.Wait()
}
