// Sentinel answers whether a product can be exported along a trade route.
//
// It combines a reference knowledge base with research delegated to an
// external AI agent, caches the results, and corrects known-wrong answers
// against a regulatory authority table.
//
// Usage:
//
//	# Serve the HTTP API
//	sentinel serve --config sentinel.yaml
//
//	# Look up one product, waiting for fresh research
//	sentinel lookup "açaí" --refresh
//
//	# List the reference knowledge base
//	sentinel products
//
//	# Show recent research tasks from the audit store
//	sentinel tasks --key acai
//
//	# Check a configuration file
//	sentinel validate --config sentinel.yaml
package main

func main() {
	Execute()
}
