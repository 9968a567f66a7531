package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"zoi/sentinel/pkg/compliance"
)

// DefaultRiskScore is assigned when a candidate carries no usable score.
const DefaultRiskScore = 50

// Decode is the validation gate: it converts a loosely typed mapping into a
// Record, defaulting what is missing and recording every coercion in
// Record.Warnings. key, when non-empty, supplies the slug and default name.
func Decode(key string, m map[string]any) *compliance.Record {
	d := &decoder{m: m}
	r := &compliance.Record{
		Slug:          key,
		NCMCode:       d.str("ncm_code"),
		ProductName:   d.str("product_name"),
		ProductNameIT: d.str("product_name_it"),
		ProductNameEN: d.str("product_name_en"),
		Category:      d.str("category"),
		Tags:          d.list("tags"),
	}

	if r.ProductName == "" {
		if key != "" {
			r.ProductName = compliance.DisplayName(key)
		}
		d.warn("product_name missing")
	}
	if r.NCMCode == "" {
		d.warn("ncm_code missing")
	}
	if cats := d.list("category"); r.Category == "" && len(cats) > 0 {
		r.Category = cats[0]
	}

	score, ok := d.num("risk_score")
	switch {
	case !ok:
		r.RiskScore = DefaultRiskScore
		d.warn("risk_score missing, defaulted to %d", DefaultRiskScore)
	case score < compliance.MinRiskScore || score > compliance.MaxRiskScore:
		r.RiskScore = compliance.ClampScore(score)
		d.warn("risk_score %d out of range, clamped to %d", score, r.RiskScore)
	default:
		r.RiskScore = score
	}

	if level, ok := compliance.ParseRiskLevel(d.str("risk_level")); ok {
		r.RiskLevel = level
	} else {
		r.RiskLevel = compliance.RiskPending
		if _, present := m["risk_level"]; present {
			d.warn("risk_level %q not recognized", d.str("risk_level"))
		}
	}

	raw := d.str("status")
	if status, ok := compliance.ParseApprovalStatus(raw); ok {
		r.Status = status
	} else {
		r.Status = compliance.StatusRequiresAttention
		if raw == "" {
			d.warn("status missing, set to %s", r.Status)
		} else {
			d.warn("status %q not recognized, set to %s", raw, r.Status)
		}
	}

	r.TradeRoute = d.tradeRoute()
	r.CertificatesRequired = d.certificates()
	r.EURegulations = d.regulations()
	r.BrazilianRequirements = nonNil(d.list("brazilian_requirements"))
	r.Alerts = nonNil(d.list("alerts"))
	r.SourcesConsulted = d.list("sources_consulted")
	r.MaxResidueLimits = d.residues()
	r.TariffInfo = d.tariff()
	r.RiskFactors = d.riskFactors()

	r.Warnings = d.warnings
	return r
}

type decoder struct {
	m        map[string]any
	warnings []string
}

func (d *decoder) warn(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

func (d *decoder) str(field string) string {
	return asString(d.m[field])
}

func (d *decoder) num(field string) (int, bool) {
	v, present := d.m[field]
	if !present || v == nil {
		return 0, false
	}
	n, ok := asInt(v)
	if !ok {
		d.warn("%s %q is not a number", field, asString(v))
	}
	return n, ok
}

func (d *decoder) list(field string) []string {
	return asList(d.m[field])
}

func (d *decoder) tradeRoute() compliance.TradeRoute {
	t, _ := d.m["trade_route"].(map[string]any)
	return compliance.TradeRoute{
		Origin:          asString(t["origin"]),
		Destination:     asString(t["destination"]),
		OriginName:      asString(t["origin_name"]),
		DestinationName: asString(t["destination_name"]),
	}
}

func (d *decoder) certificates() []compliance.Certificate {
	out := []compliance.Certificate{}
	for _, item := range items(d.m["certificates_required"]) {
		switch v := item.(type) {
		case map[string]any:
			name := asString(v["name"])
			if name == "" {
				d.warn("certificate without name skipped")
				continue
			}
			mandatory := true
			if raw, ok := v["mandatory"]; ok {
				mandatory = asBool(raw)
			}
			out = append(out, compliance.Certificate{Name: name, Issuer: asString(v["issuer"]), Mandatory: mandatory})
		default:
			if name := asString(v); name != "" {
				out = append(out, compliance.Certificate{Name: name, Mandatory: true})
			}
		}
	}
	return out
}

func (d *decoder) regulations() []compliance.Regulation {
	out := []compliance.Regulation{}
	for _, item := range items(d.m["eu_regulations"]) {
		switch v := item.(type) {
		case map[string]any:
			code := asString(v["code"])
			title := asString(v["title"])
			if code == "" && title == "" {
				d.warn("regulation without code skipped")
				continue
			}
			out = append(out, compliance.Regulation{Code: code, Title: title, Status: asString(v["status"])})
		default:
			if code := asString(v); code != "" {
				out = append(out, compliance.Regulation{Code: code})
			}
		}
	}
	return out
}

func (d *decoder) residues() map[string]compliance.ResidueLimit {
	out := map[string]compliance.ResidueLimit{}
	switch v := d.m["max_residue_limits"].(type) {
	case map[string]any:
		for _, name := range sortedKeys(v) {
			out[name] = residue(v[name])
		}
	case []any:
		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := asString(entry["substance"])
			if name == "" {
				name = asString(entry["name"])
			}
			if name == "" {
				d.warn("residue limit without substance skipped")
				continue
			}
			out[name] = residue(entry)
		}
	case nil:
	default:
		d.warn("max_residue_limits has unexpected type %T", v)
	}
	return out
}

func residue(v any) compliance.ResidueLimit {
	entry, ok := v.(map[string]any)
	if !ok {
		return compliance.ResidueLimit{Limit: asString(v)}
	}
	return compliance.ResidueLimit{
		Limit:      asString(entry["limit"]),
		Regulation: asString(entry["regulation"]),
		Status:     asString(entry["status"]),
		Note:       asString(entry["note"]),
		Corrected:  asBool(entry["corrected"]),
	}
}

func (d *decoder) tariff() compliance.TariffInfo {
	switch v := d.m["tariff_info"].(type) {
	case map[string]any:
		return compliance.TariffInfo{EUTariff: asString(v["eu_tariff"]), Notes: asString(v["notes"])}
	case nil:
		return compliance.TariffInfo{}
	default:
		return compliance.TariffInfo{EUTariff: asString(v)}
	}
}

func (d *decoder) riskFactors() map[string]compliance.RiskFactor {
	v, ok := d.m["risk_factors"].(map[string]any)
	if !ok || len(v) == 0 {
		return nil
	}
	out := make(map[string]compliance.RiskFactor, len(v))
	for _, name := range sortedKeys(v) {
		f := compliance.RiskFactor{Level: compliance.RiskPending}
		switch raw := v[name].(type) {
		case map[string]any:
			if n, ok := asInt(raw["score"]); ok {
				f.Score = compliance.ClampScore(n)
				f.Level = compliance.LevelForScore(f.Score)
			}
			if level, ok := compliance.ParseRiskLevel(asString(raw["level"])); ok {
				f.Level = level
			}
		default:
			if n, ok := asInt(raw); ok {
				f.Score = compliance.ClampScore(n)
				f.Level = compliance.LevelForScore(f.Score)
			}
		}
		out[name] = f
	}
	return out
}

func items(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case string:
		parts := splitList(t)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	case nil:
		return nil
	default:
		return []any{t}
	}
}

func asList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return splitList(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		if s := asString(t); s != "" {
			return []string{s}
		}
		return nil
	}
}

// splitList splits a delimited string on the first delimiter class present:
// semicolon, pipe, newline, then comma.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	sep := ""
	for _, candidate := range []string{";", "|", "\n", ","} {
		if strings.Contains(s, candidate) {
			sep = candidate
			break
		}
	}
	if sep == "" {
		return []string{s}
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// scoreBound keeps float conversions far inside the int range while still
// reporting values beyond the score range as out of range.
const scoreBound = 1e6

// asInt accepts numbers and numeric strings such as "85", "85%" or "85/100".
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(math.Round(max(min(t, scoreBound), -scoreBound))), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return asInt(f)
	case string:
		s := strings.TrimSpace(t)
		if i := strings.IndexAny(s, "/%"); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
		s = strings.ReplaceAll(s, ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return asInt(f)
	default:
		return 0, false
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(compliance.Fold(strings.TrimSpace(t))) {
		case "true", "yes", "sim", "si", "1", "obrigatorio", "mandatory":
			return true
		}
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
