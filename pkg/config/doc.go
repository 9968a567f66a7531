// Package config loads Sentinel's configuration.
//
// Configuration comes from an optional YAML file. Missing fields take the
// defaults in defaults.go, environment variables override the result, and
// Validate reports every invalid field at once as a ValidationError.
//
//	cfg, err := config.LoadConfigWithEnvOverrides("sentinel.yaml")
//
// # Environment Variable Overrides
//
// Namespaced variables follow SENTINEL_SECTION_FIELD:
//
//   - SENTINEL_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - SENTINEL_PROVIDERS_MANUS_API_KEY overrides providers.manus.api_key
//   - SENTINEL_CACHE_TTL overrides cache.ttl
//
// The unprefixed MANUS_API_KEY, MANUS_AGENT_PROFILE, MANUS_TASK_MODE,
// ANTHROPIC_API_KEY and CACHE_TTL_HOURS are read as well. A namespaced
// variable wins over its unprefixed counterpart.
//
// # Configuration Precedence
//
//  1. Default values
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton
//
// Commands call Initialize once at startup and Get afterwards. Library
// packages take the sections they need as explicit arguments.
package config
