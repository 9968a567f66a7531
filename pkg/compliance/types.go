package compliance

import (
	"maps"
	"slices"
	"time"
)

// DataSource tags where the content of a record originated.
type DataSource string

const (
	// DataSourceResearch marks records extracted from a research backend.
	DataSourceResearch DataSource = "ai_research"

	// DataSourceReference marks records copied from the reference knowledge base.
	DataSourceReference DataSource = "reference_knowledge"

	// DataSourcePlaceholder marks non-committal records for unknown products.
	DataSourcePlaceholder DataSource = "template_pending_research"
)

// Record is the canonical compliance output unit.
type Record struct {
	// Slug is the normalized product key.
	Slug string `json:"slug"`

	// NCMCode is the product classification code.
	NCMCode string `json:"ncm_code"`

	// ProductName is the display name in the origin language.
	ProductName string `json:"product_name"`

	// ProductNameIT is the display name in the destination language.
	ProductNameIT string `json:"product_name_it,omitempty"`

	// ProductNameEN is the English display name.
	ProductNameEN string `json:"product_name_en,omitempty"`

	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`

	// RiskScore is a 0-100 compliance score; higher is safer.
	RiskScore int            `json:"risk_score"`
	RiskLevel RiskLevel      `json:"risk_level"`
	Status    ApprovalStatus `json:"status"`

	TradeRoute TradeRoute `json:"trade_route"`

	CertificatesRequired  []Certificate `json:"certificates_required"`
	EURegulations         []Regulation  `json:"eu_regulations"`
	BrazilianRequirements []string      `json:"brazilian_requirements"`

	// MaxResidueLimits maps a substance name to its limit and conformity.
	MaxResidueLimits map[string]ResidueLimit `json:"max_residue_limits"`

	TariffInfo       TariffInfo            `json:"tariff_info"`
	Alerts           []string              `json:"alerts"`
	SourcesConsulted []string              `json:"sources_consulted,omitempty"`
	RiskFactors      map[string]RiskFactor `json:"risk_factors,omitempty"`

	// ConformityPercent is attached by the truth validator when the record
	// carries residue limits.
	ConformityPercent *float64 `json:"conformity_percent,omitempty"`

	// Warnings lists defaults and coercions applied while decoding.
	Warnings []string `json:"validation_warnings,omitempty"`

	// Provenance
	DataSource     DataSource `json:"data_source"`
	LastUpdated    time.Time  `json:"last_updated"`
	ResearchTaskID string     `json:"research_task_id,omitempty"`
	NeedsAIUpdate  bool       `json:"needs_ai_update"`
	ResearchStatus string     `json:"research_status,omitempty"`
	SourceNote     string     `json:"data_source_note,omitempty"`
}

// TradeRoute names the origin and destination of the trade.
type TradeRoute struct {
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	OriginName      string `json:"origin_name"`
	DestinationName string `json:"destination_name"`
}

// Certificate is a document required to clear the route.
type Certificate struct {
	Name      string `json:"name"`
	Issuer    string `json:"issuer"`
	Mandatory bool   `json:"mandatory"`
}

// Regulation is an applicable regulation at the destination.
type Regulation struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ResidueLimit is the limit and conformity of one substance.
type ResidueLimit struct {
	Limit      string `json:"limit"`
	Regulation string `json:"regulation,omitempty"`

	// Status is the conformity status ("conforme", "banned", ...).
	Status string `json:"status,omitempty"`

	Note string `json:"note,omitempty"`

	// Corrected is set when the truth validator overrode the status.
	Corrected bool `json:"corrected,omitempty"`
}

// TariffInfo carries destination tariff metadata.
type TariffInfo struct {
	EUTariff string `json:"eu_tariff"`
	Notes    string `json:"notes,omitempty"`
}

// RiskFactor is a scored risk dimension (documentation, logistics, ...).
type RiskFactor struct {
	Score int       `json:"score"`
	Level RiskLevel `json:"level"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Tags = slices.Clone(r.Tags)
	c.CertificatesRequired = slices.Clone(r.CertificatesRequired)
	c.EURegulations = slices.Clone(r.EURegulations)
	c.BrazilianRequirements = slices.Clone(r.BrazilianRequirements)
	c.Alerts = slices.Clone(r.Alerts)
	c.SourcesConsulted = slices.Clone(r.SourcesConsulted)
	c.Warnings = slices.Clone(r.Warnings)
	c.MaxResidueLimits = maps.Clone(r.MaxResidueLimits)
	c.RiskFactors = maps.Clone(r.RiskFactors)
	if r.ConformityPercent != nil {
		p := *r.ConformityPercent
		c.ConformityPercent = &p
	}
	return &c
}

// HasAlert reports whether the record already carries the alert text.
func (r *Record) HasAlert(alert string) bool {
	return slices.Contains(r.Alerts, alert)
}
