package reference

import (
	"fmt"
	"time"

	"zoi/sentinel/pkg/compliance"
)

const (
	// PlaceholderNCM marks a record whose classification is not yet known.
	PlaceholderNCM = "PESQUISA_EM_ANDAMENTO"

	// PlaceholderScore is the neutral score of a placeholder.
	PlaceholderScore = 50

	// NotConfiguredAlert is appended when no research backend can run.
	NotConfiguredAlert = "⚠️ Pesquisa IA não configurada. Configure a chave de API do backend de pesquisa."
)

// riskDimensions are the scored dimensions of a record.
var riskDimensions = []string{"documentation", "regulatory", "logistics", "market_access"}

// Placeholder builds the non-committal record served for a product nobody
// has researched yet. When configured is false the record also says that
// research cannot run.
func Placeholder(key, productName string, route compliance.TradeRoute, configured bool) *compliance.Record {
	if productName == "" {
		productName = compliance.DisplayName(key)
	}

	factors := make(map[string]compliance.RiskFactor, len(riskDimensions))
	for _, d := range riskDimensions {
		factors[d] = compliance.RiskFactor{Score: PlaceholderScore, Level: compliance.RiskPending}
	}

	first := fmt.Sprintf("🔍 Pesquisa IA em andamento para '%s'...", productName)
	if configured {
		first = fmt.Sprintf("🔍 Pesquisa IA iniciada para '%s'...", productName)
	}
	alerts := []string{
		first,
		"Os dados serão atualizados automaticamente quando a pesquisa completar.",
		"Você também pode solicitar uma atualização para verificar.",
	}
	if !configured {
		alerts = append(alerts, NotConfiguredAlert)
	}

	return &compliance.Record{
		Slug:          key,
		NCMCode:       PlaceholderNCM,
		ProductName:   productName,
		ProductNameIT: productName,
		ProductNameEN: productName,
		Category:      "Classificação via IA em andamento",
		RiskScore:     PlaceholderScore,
		RiskLevel:     compliance.RiskPending,
		Status:        compliance.StatusResearching,
		TradeRoute:    route,
		CertificatesRequired: []compliance.Certificate{
			{Name: "Certificado Fitossanitário", Issuer: "MAPA", Mandatory: true},
			{Name: "Certificado de Origem", Issuer: "Câmara de Comércio", Mandatory: true},
		},
		EURegulations: []compliance.Regulation{
			{Code: "Reg. (CE) 178/2002", Title: "Segurança alimentar geral", Status: "active"},
		},
		BrazilianRequirements: []string{"Verificar requisitos específicos no MAPA"},
		MaxResidueLimits:      map[string]compliance.ResidueLimit{},
		TariffInfo:            compliance.TariffInfo{EUTariff: "Verificar", Notes: "Consultar TARIC"},
		Alerts:                alerts,
		RiskFactors:           factors,
		DataSource:            compliance.DataSourcePlaceholder,
		LastUpdated:           time.Now().UTC(),
		NeedsAIUpdate:         true,
	}
}
