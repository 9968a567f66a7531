package compliance

import "strings"

// RiskLevel is the enumerated risk level of a record.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskPending RiskLevel = "PENDING"
)

// ApprovalStatus is the overall approval status of a record.
type ApprovalStatus string

const (
	StatusApproved          ApprovalStatus = "APPROVED"
	StatusRequiresAttention ApprovalStatus = "REQUIRES_ATTENTION"
	StatusBlocked           ApprovalStatus = "BLOCKED"
	StatusResearching       ApprovalStatus = "RESEARCHING"
)

const (
	// ApprovalThreshold is the minimum risk score an approved record carries.
	ApprovalThreshold = 70

	// MinRiskScore and MaxRiskScore bound RiskScore.
	MinRiskScore = 0
	MaxRiskScore = 100
)

// statusSynonyms maps upper-cased, underscore-joined spellings observed in
// backend output to the enumerated status.
var statusSynonyms = map[string]ApprovalStatus{
	"APPROVED":           StatusApproved,
	"ZOI_APPROVED":       StatusApproved,
	"COMPLIANT":          StatusApproved,
	"APROVADO":           StatusApproved,
	"REQUIRES_ATTENTION": StatusRequiresAttention,
	"ATTENTION":          StatusRequiresAttention,
	"RESTRICTED":         StatusRequiresAttention,
	"CONDITIONAL":        StatusRequiresAttention,
	"RESTRITO":           StatusRequiresAttention,
	"BLOCKED":            StatusBlocked,
	"BANNED":             StatusBlocked,
	"PROHIBITED":         StatusBlocked,
	"REJECTED":           StatusBlocked,
	"BLOQUEADO":          StatusBlocked,
	"RESEARCHING":        StatusResearching,
	"PENDING":            StatusResearching,
}

// ParseApprovalStatus maps a free-form status to the enumerated set.
// The boolean is false when the value is outside the known spellings.
func ParseApprovalStatus(s string) (ApprovalStatus, bool) {
	st, ok := statusSynonyms[enumKey(s)]
	return st, ok
}

// CoerceApprovalStatus maps a free-form status, falling back to
// StatusRequiresAttention for unknown values. Unknown values are never
// promoted to StatusApproved.
func CoerceApprovalStatus(s string) ApprovalStatus {
	if st, ok := ParseApprovalStatus(s); ok {
		return st
	}
	return StatusRequiresAttention
}

// IsApproved reports whether the status belongs to the approved class.
func (s ApprovalStatus) IsApproved() bool {
	return s == StatusApproved
}

// ParseRiskLevel maps a free-form level to the enumerated set.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch enumKey(s) {
	case "LOW", "BAIXO":
		return RiskLow, true
	case "MEDIUM", "MODERATE", "MEDIO":
		return RiskMedium, true
	case "HIGH", "ALTO":
		return RiskHigh, true
	case "PENDING":
		return RiskPending, true
	}
	return RiskPending, false
}

// LevelForScore derives a risk level from a compliance score.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 50:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ClampScore bounds a score to [MinRiskScore, MaxRiskScore].
func ClampScore(score int) int {
	return max(MinRiskScore, min(MaxRiskScore, score))
}

func enumKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(Fold(s)))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '/'
	}), "_")
}
