// Package reference holds the curated knowledge base of known products and
// the alias table used to normalize product keys.
//
// A default base is embedded in the binary. An operator may point the
// service at a YAML file of the same shape; the Catalog swaps bases
// atomically so readers never see a partial table.
package reference
