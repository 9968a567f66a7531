// Package compliance defines the canonical compliance record served by
// Sentinel and the product key normalization every other package relies on.
//
// # Records
//
// A Record describes the export/import requirements for one product on one
// trade route: classification code, display names, risk score and level,
// overall approval status, certificate/regulation/requirement lists, residue
// limits per substance, tariff metadata, and provenance.
//
// Records are plain values. Packages that hand records across goroutine
// boundaries (the cache, the coordinator) use Clone to keep ownership clear.
//
// # Keys
//
// Product keys are normalized slugs:
//
//	n := compliance.NewNormalizer(map[string]string{"soybeans": "soja_grao"})
//	n.Normalize("  Soy-Beans ")  // "soy_beans"
//	n.Normalize("Soybeans")      // "soja_grao"
//	n.Normalize("Açaí")          // "acai"
//
// Normalize is total and idempotent: every input maps to exactly one key and
// normalizing a key again returns it unchanged.
package compliance
