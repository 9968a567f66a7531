// Package server exposes the coordinator over HTTP.
//
// Routes:
//
//	GET /health                        service summary and check report
//	GET /ready                         503 while a required check fails
//	GET /metrics                       Prometheus exposition, when enabled
//	GET /api/products                  reference knowledge base listing
//	GET /api/products/{slug}           compliance record for a product
//	GET /api/products/{slug}/refresh   forced research, waits for the result
//	GET /api/research-status/{slug}    research and cache state of a product
//
// Product lookups never fail: the coordinator always answers with a record
// and its provenance, so the product routes only return errors for malformed
// slugs.
package server
