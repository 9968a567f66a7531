package compliance

import "testing"

func TestCoerceApprovalStatus(t *testing.T) {
	tests := []struct {
		input string
		want  ApprovalStatus
	}{
		{"APPROVED", StatusApproved},
		{"ZOI APPROVED", StatusApproved},
		{"approved", StatusApproved},
		{"Restricted", StatusRequiresAttention},
		{"requires attention", StatusRequiresAttention},
		{"BLOCKED", StatusBlocked},
		{"banned", StatusBlocked},
		{"RESEARCHING", StatusResearching},
		{"APPROVED/RESTRICTED/BLOCKED", StatusRequiresAttention},
		{"looks fine to me", StatusRequiresAttention},
		{"", StatusRequiresAttention},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CoerceApprovalStatus(tt.input); got != tt.want {
				t.Errorf("CoerceApprovalStatus(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRiskLevel(t *testing.T) {
	if lvl, ok := ParseRiskLevel("medium"); !ok || lvl != RiskMedium {
		t.Errorf("expected MEDIUM, got %s (%v)", lvl, ok)
	}
	if lvl, ok := ParseRiskLevel("catastrophic"); ok || lvl != RiskPending {
		t.Errorf("expected unknown level to map to PENDING with ok=false, got %s (%v)", lvl, ok)
	}
}

func TestLevelForScoreAndClamp(t *testing.T) {
	if LevelForScore(95) != RiskLow || LevelForScore(60) != RiskMedium || LevelForScore(10) != RiskHigh {
		t.Error("unexpected level mapping")
	}
	if ClampScore(-5) != 0 || ClampScore(250) != 100 || ClampScore(42) != 42 {
		t.Error("unexpected clamp result")
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	pct := 50.0
	orig := &Record{
		Slug:              "acai",
		Alerts:            []string{"cold chain"},
		MaxResidueLimits:  map[string]ResidueLimit{"carbendazim": {Limit: "0.1 mg/kg"}},
		ConformityPercent: &pct,
	}

	c := orig.Clone()
	c.Alerts[0] = "changed"
	c.MaxResidueLimits["carbendazim"] = ResidueLimit{Limit: "changed"}
	*c.ConformityPercent = 10

	if orig.Alerts[0] != "cold chain" {
		t.Error("alerts slice shared between clone and original")
	}
	if orig.MaxResidueLimits["carbendazim"].Limit != "0.1 mg/kg" {
		t.Error("residue map shared between clone and original")
	}
	if *orig.ConformityPercent != 50 {
		t.Error("conformity pointer shared between clone and original")
	}

	var nilRec *Record
	if nilRec.Clone() != nil {
		t.Error("expected nil clone of nil record")
	}
}
