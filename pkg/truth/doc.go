// Package truth applies the regulatory authority table to compliance
// records.
//
// Research backends occasionally report a banned substance as conforming.
// The Validator re-derives the safety-critical fields of every record from a
// fixed table of banned substances, overriding whatever the record claims:
//
//	v := truth.NewValidator(truth.DefaultTable())
//	corrected := v.Validate(record)
//
// After Validate, a record whose residue map names a banned substance is never
// APPROVED, its risk score is at most ScoreCeiling, and each banned entry's
// status is exactly StatusBanned.
//
// The table is embedded at build time and may be replaced from a YAML file
// with Reload. Replacement is atomic; in-flight validations finish against the
// table they started with.
package truth
