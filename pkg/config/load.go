package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every namespaced environment override.
const EnvPrefix = "SENTINEL_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// An empty path or a missing file yields the defaults.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SENTINEL_SECTION_FIELD (e.g., SENTINEL_SERVER_LISTEN_ADDRESS).
// The unprefixed variables MANUS_API_KEY, MANUS_AGENT_PROFILE,
// MANUS_TASK_MODE, ANTHROPIC_API_KEY and CACHE_TTL_HOURS are honoured too,
// with lower precedence than their SENTINEL_ counterparts.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if errs := applyEnvOverrides(cfg, os.Getenv); len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment override: %w", ValidationError{Errors: errs})
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// decode reads path into a Config. Booleans whose default is true are seeded
// before decoding so that an explicit false in the file survives.
func decode(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// envReader collects overrides from a lookup function and remembers values
// that did not parse.
type envReader struct {
	getenv func(string) string
	errs   []FieldError
}

func (r *envReader) string(name string, dst *string) {
	if val := r.getenv(name); val != "" {
		*dst = val
	}
}

func (r *envReader) bool(name string, dst *bool) {
	val := r.getenv(name)
	if val == "" {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(name, val, "a boolean")
		return
	}
	*dst = b
}

func (r *envReader) int(name string, dst *int) {
	val := r.getenv(name)
	if val == "" {
		return
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		r.fail(name, val, "an integer")
		return
	}
	*dst = i
}

func (r *envReader) int64(name string, dst *int64) {
	val := r.getenv(name)
	if val == "" {
		return
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		r.fail(name, val, "an integer")
		return
	}
	*dst = i
}

func (r *envReader) float(name string, dst *float64) {
	val := r.getenv(name)
	if val == "" {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(name, val, "a number")
		return
	}
	*dst = f
}

func (r *envReader) duration(name string, dst *time.Duration) {
	val := r.getenv(name)
	if val == "" {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.fail(name, val, "a duration")
		return
	}
	*dst = d
}

func (r *envReader) hours(name string, dst *time.Duration) {
	val := r.getenv(name)
	if val == "" {
		return
	}
	h, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(name, val, "a number of hours")
		return
	}
	*dst = time.Duration(h * float64(time.Hour))
}

func (r *envReader) list(name string, dst *[]string) {
	val := r.getenv(name)
	if val == "" {
		return
	}
	var out []string
	for item := range strings.SplitSeq(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func (r *envReader) fail(name, val, want string) {
	r.errs = append(r.errs, FieldError{
		Field:   name,
		Message: fmt.Sprintf("%q is not %s", val, want),
	})
}

// applyEnvOverrides applies environment variable overrides to the
// configuration and returns the variables whose values did not parse.
func applyEnvOverrides(cfg *Config, getenv func(string) string) []FieldError {
	r := &envReader{getenv: getenv}
	p := func(name string) string { return EnvPrefix + name }

	// Unprefixed variables first; the namespaced ones below win.
	r.string("MANUS_API_KEY", &cfg.Providers.Manus.APIKey)
	r.string("MANUS_AGENT_PROFILE", &cfg.Providers.Manus.AgentProfile)
	r.string("MANUS_TASK_MODE", &cfg.Providers.Manus.TaskMode)
	r.string("ANTHROPIC_API_KEY", &cfg.Providers.Anthropic.APIKey)
	r.hours("CACHE_TTL_HOURS", &cfg.Cache.TTL)

	// Server overrides
	r.string(p("SERVER_LISTEN_ADDRESS"), &cfg.Server.ListenAddress)
	r.duration(p("SERVER_READ_TIMEOUT"), &cfg.Server.ReadTimeout)
	r.duration(p("SERVER_WRITE_TIMEOUT"), &cfg.Server.WriteTimeout)
	r.duration(p("SERVER_IDLE_TIMEOUT"), &cfg.Server.IdleTimeout)
	r.duration(p("SERVER_SHUTDOWN_TIMEOUT"), &cfg.Server.ShutdownTimeout)

	// Cache overrides
	r.duration(p("CACHE_TTL"), &cfg.Cache.TTL)
	r.string(p("CACHE_BACKEND"), &cfg.Cache.Backend)
	r.string(p("CACHE_SQLITE_PATH"), &cfg.Cache.SQLite.Path)
	r.duration(p("CACHE_SQLITE_BUSY_TIMEOUT"), &cfg.Cache.SQLite.BusyTimeout)
	r.string(p("CACHE_SWEEP_SCHEDULE"), &cfg.Cache.SweepSchedule)
	r.duration(p("CACHE_STALE_RETENTION"), &cfg.Cache.StaleRetention)

	// Research overrides
	r.string(p("RESEARCH_BACKEND"), &cfg.Research.Backend)
	r.duration(p("RESEARCH_POLL_INTERVAL"), &cfg.Research.PollInterval)
	r.duration(p("RESEARCH_DEADLINE"), &cfg.Research.Deadline)
	r.int(p("RESEARCH_MAX_CONCURRENT"), &cfg.Research.MaxConcurrent)
	r.int(p("RESEARCH_PREVIEW_LENGTH"), &cfg.Research.PreviewLength)
	r.string(p("RESEARCH_TRADE_ROUTE_ORIGIN"), &cfg.Research.TradeRoute.Origin)
	r.string(p("RESEARCH_TRADE_ROUTE_DESTINATION"), &cfg.Research.TradeRoute.Destination)
	r.string(p("RESEARCH_TRADE_ROUTE_ORIGIN_NAME"), &cfg.Research.TradeRoute.OriginName)
	r.string(p("RESEARCH_TRADE_ROUTE_DESTINATION_NAME"), &cfg.Research.TradeRoute.DestinationName)

	// Provider overrides
	applyHTTPEnvOverrides(r, p("PROVIDERS_MANUS_"), &cfg.Providers.Manus.HTTPConfig)
	r.string(p("PROVIDERS_MANUS_AGENT_PROFILE"), &cfg.Providers.Manus.AgentProfile)
	r.string(p("PROVIDERS_MANUS_TASK_MODE"), &cfg.Providers.Manus.TaskMode)

	applyHTTPEnvOverrides(r, p("PROVIDERS_ANTHROPIC_"), &cfg.Providers.Anthropic.HTTPConfig)
	r.string(p("PROVIDERS_ANTHROPIC_MODEL"), &cfg.Providers.Anthropic.Model)
	r.int(p("PROVIDERS_ANTHROPIC_MAX_TOKENS"), &cfg.Providers.Anthropic.MaxTokens)
	r.int(p("PROVIDERS_ANTHROPIC_MAX_ROUNDS"), &cfg.Providers.Anthropic.MaxRounds)
	r.int(p("PROVIDERS_ANTHROPIC_WEB_SEARCH_MAX_USES"), &cfg.Providers.Anthropic.WebSearchMaxUses)

	// Reference and authority overrides
	r.string(p("REFERENCE_PATH"), &cfg.Reference.Path)
	r.bool(p("REFERENCE_WATCH"), &cfg.Reference.Watch)
	r.string(p("AUTHORITY_PATH"), &cfg.Authority.Path)
	r.bool(p("AUTHORITY_WATCH"), &cfg.Authority.Watch)

	// Task audit overrides
	r.string(p("TASKS_BACKEND"), &cfg.Tasks.Backend)
	r.string(p("TASKS_SQLITE_PATH"), &cfg.Tasks.SQLite.Path)
	r.duration(p("TASKS_SQLITE_BUSY_TIMEOUT"), &cfg.Tasks.SQLite.BusyTimeout)
	r.int(p("TASKS_RETENTION_DAYS"), &cfg.Tasks.Retention.Days)
	r.int64(p("TASKS_RETENTION_MAX_RECORDS"), &cfg.Tasks.Retention.MaxRecords)
	r.string(p("TASKS_RETENTION_SCHEDULE"), &cfg.Tasks.Retention.Schedule)

	// Telemetry overrides
	r.string(p("TELEMETRY_LOGGING_LEVEL"), &cfg.Telemetry.Logging.Level)
	r.string(p("TELEMETRY_LOGGING_FORMAT"), &cfg.Telemetry.Logging.Format)
	r.bool(p("TELEMETRY_LOGGING_ADD_SOURCE"), &cfg.Telemetry.Logging.AddSource)
	r.list(p("TELEMETRY_LOGGING_REDACT_KEYS"), &cfg.Telemetry.Logging.RedactKeys)
	r.bool(p("TELEMETRY_METRICS_ENABLED"), &cfg.Telemetry.Metrics.Enabled)
	r.string(p("TELEMETRY_METRICS_PATH"), &cfg.Telemetry.Metrics.Path)
	r.bool(p("TELEMETRY_TRACING_ENABLED"), &cfg.Telemetry.Tracing.Enabled)
	r.string(p("TELEMETRY_TRACING_ENDPOINT"), &cfg.Telemetry.Tracing.Endpoint)
	r.bool(p("TELEMETRY_TRACING_INSECURE"), &cfg.Telemetry.Tracing.Insecure)
	r.float(p("TELEMETRY_TRACING_SAMPLE_RATIO"), &cfg.Telemetry.Tracing.SampleRatio)
	r.string(p("TELEMETRY_TRACING_SERVICE_NAME"), &cfg.Telemetry.Tracing.ServiceName)

	return r.errs
}

// applyHTTPEnvOverrides applies the transport overrides shared by every
// backend. Variables follow the format SENTINEL_PROVIDERS_<NAME>_<FIELD>.
func applyHTTPEnvOverrides(r *envReader, prefix string, cfg *HTTPConfig) {
	r.string(prefix+"BASE_URL", &cfg.BaseURL)
	r.string(prefix+"API_KEY", &cfg.APIKey)
	r.duration(prefix+"TIMEOUT", &cfg.Timeout)
	r.int(prefix+"MAX_RETRIES", &cfg.MaxRetries)
}
