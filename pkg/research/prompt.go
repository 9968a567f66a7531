package research

import (
	"fmt"

	"zoi/sentinel/pkg/compliance"
)

// DefaultTradeRoute is Brazil to Italy.
var DefaultTradeRoute = compliance.TradeRoute{
	Origin:          "BR",
	Destination:     "IT",
	OriginName:      "Brasil",
	DestinationName: "Itália",
}

const promptTemplate = `Pesquise compliance para exportação de "%[1]s" do %[2]s para %[3]s/UE.

Consulte: %[4]s.

Retorne APENAS um JSON válido (sem texto extra) com esta estrutura:
{
    "ncm_code": "código NCM",
    "product_name": "%[1]s",
    "product_name_it": "nome em italiano",
    "product_name_en": "nome em inglês",
    "category": "categoria",
    "risk_score": 0-100,
    "risk_level": "LOW/MEDIUM/HIGH",
    "status": "APPROVED/RESTRICTED/BLOCKED",
    "certificates_required": [{"name": "...", "issuer": "...", "mandatory": true}],
    "eu_regulations": [{"code": "Reg. ...", "title": "...", "status": "active"}],
    "brazilian_requirements": ["requisito 1", "requisito 2"],
    "max_residue_limits": {"substancia": {"limit": "valor", "regulation": "reg."}},
    "tariff_info": {"eu_tariff": "X%%", "notes": "..."},
    "alerts": ["alerta 1"],
    "sources_consulted": ["url1", "url2"]
}`

// DefaultSources are the regulatory portals the prompt asks the backend to
// consult.
const DefaultSources = "MAPA (mapa.gov.br), ANVISA, Receita Federal (NCM), EUR-Lex, RASFF"

// PromptBuilder renders research prompts for a trade route.
type PromptBuilder struct {
	Route   compliance.TradeRoute
	Sources string
}

// NewPromptBuilder creates a builder. Empty route names fall back to
// DefaultTradeRoute.
func NewPromptBuilder(route compliance.TradeRoute) *PromptBuilder {
	if route.OriginName == "" {
		route.Origin, route.OriginName = DefaultTradeRoute.Origin, DefaultTradeRoute.OriginName
	}
	if route.DestinationName == "" {
		route.Destination, route.DestinationName = DefaultTradeRoute.Destination, DefaultTradeRoute.DestinationName
	}
	return &PromptBuilder{Route: route, Sources: DefaultSources}
}

// Build renders the prompt for productName.
func (b *PromptBuilder) Build(productName string) string {
	return fmt.Sprintf(promptTemplate, productName, b.Route.OriginName, b.Route.DestinationName, b.Sources)
}
