package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "cache.ttl").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Backend names accepted by research.backend.
const (
	BackendManus     = "manus"
	BackendAnthropic = "anthropic"
)

// Store backends accepted by cache.backend and tasks.backend.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateResearch(&cfg.Research)...)
	errs = append(errs, validateHTTP("providers.manus", &cfg.Providers.Manus.HTTPConfig)...)
	errs = append(errs, validateHTTP("providers.anthropic", &cfg.Providers.Anthropic.HTTPConfig)...)
	errs = append(errs, validateProviders(&cfg.Providers)...)
	errs = append(errs, validateTasks(&cfg.Tasks)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address %q: %v", cfg.ListenAddress, err),
		})
	}

	errs = appendPositive(errs, "server.read_timeout", cfg.ReadTimeout)
	errs = appendPositive(errs, "server.write_timeout", cfg.WriteTimeout)
	errs = appendPositive(errs, "server.idle_timeout", cfg.IdleTimeout)
	errs = appendPositive(errs, "server.shutdown_timeout", cfg.ShutdownTimeout)
	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	errs = appendPositive(errs, "cache.ttl", cfg.TTL)
	errs = appendStore(errs, "cache", cfg.Backend, &cfg.SQLite)
	errs = appendSchedule(errs, "cache.sweep_schedule", cfg.SweepSchedule)

	if cfg.StaleRetention < cfg.TTL {
		errs = append(errs, FieldError{
			Field:   "cache.stale_retention",
			Message: fmt.Sprintf("stale retention %s is shorter than the ttl %s", cfg.StaleRetention, cfg.TTL),
		})
	}
	return errs
}

func validateResearch(cfg *ResearchConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case BackendManus, BackendAnthropic:
	default:
		errs = append(errs, FieldError{
			Field:   "research.backend",
			Message: fmt.Sprintf("unknown backend %q (must be %q or %q)", cfg.Backend, BackendManus, BackendAnthropic),
		})
	}

	errs = appendPositive(errs, "research.poll_interval", cfg.PollInterval)
	errs = appendPositive(errs, "research.deadline", cfg.Deadline)
	if cfg.PollInterval > 0 && cfg.Deadline > 0 && cfg.PollInterval >= cfg.Deadline {
		errs = append(errs, FieldError{
			Field:   "research.poll_interval",
			Message: "poll interval must be shorter than the deadline",
		})
	}
	if cfg.MaxConcurrent < 1 {
		errs = append(errs, FieldError{Field: "research.max_concurrent", Message: "must be at least 1"})
	}
	if cfg.PreviewLength < 1 {
		errs = append(errs, FieldError{Field: "research.preview_length", Message: "must be at least 1"})
	}

	errs = appendCountry(errs, "research.trade_route.origin", cfg.TradeRoute.Origin)
	errs = appendCountry(errs, "research.trade_route.destination", cfg.TradeRoute.Destination)
	return errs
}

func validateHTTP(section string, cfg *HTTPConfig) []FieldError {
	var errs []FieldError

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   section + ".base_url",
			Message: fmt.Sprintf("invalid URL %q", cfg.BaseURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{
			Field:   section + ".base_url",
			Message: fmt.Sprintf("unsupported scheme %q", u.Scheme),
		})
	}

	errs = appendPositive(errs, section+".timeout", cfg.Timeout)
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{Field: section + ".max_retries", Message: "must be non-negative"})
	}
	return errs
}

func validateProviders(cfg *ProvidersConfig) []FieldError {
	var errs []FieldError

	switch cfg.Manus.TaskMode {
	case "chat", "agent":
	default:
		errs = append(errs, FieldError{
			Field:   "providers.manus.task_mode",
			Message: fmt.Sprintf("unknown task mode %q (must be \"chat\" or \"agent\")", cfg.Manus.TaskMode),
		})
	}

	if cfg.Anthropic.MaxTokens < 1 {
		errs = append(errs, FieldError{Field: "providers.anthropic.max_tokens", Message: "must be at least 1"})
	}
	if cfg.Anthropic.MaxRounds < 1 {
		errs = append(errs, FieldError{Field: "providers.anthropic.max_rounds", Message: "must be at least 1"})
	}
	return errs
}

func validateTasks(cfg *TasksConfig) []FieldError {
	var errs []FieldError

	errs = appendStore(errs, "tasks", cfg.Backend, &cfg.SQLite)
	errs = appendSchedule(errs, "tasks.retention.schedule", cfg.Retention.Schedule)
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "tasks.retention.max_records", Message: "must be non-negative"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("sample ratio %v must be between 0 and 1", cfg.Tracing.SampleRatio),
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: fmt.Sprintf("metrics path %q must start with /", cfg.Metrics.Path),
		})
	}
	return errs
}

func appendPositive(errs []FieldError, field string, d time.Duration) []FieldError {
	if d <= 0 {
		errs = append(errs, FieldError{Field: field, Message: "must be positive"})
	}
	return errs
}

func appendCountry(errs []FieldError, field, code string) []FieldError {
	if len(code) != 2 || strings.ToUpper(code) != code {
		errs = append(errs, FieldError{
			Field:   field,
			Message: fmt.Sprintf("%q is not a two-letter country code", code),
		})
	}
	return errs
}

func appendStore(errs []FieldError, section, backend string, sqlite *SQLiteConfig) []FieldError {
	switch backend {
	case StoreMemory:
	case StoreSQLite:
		if sqlite.Path == "" {
			errs = append(errs, FieldError{Field: section + ".sqlite.path", Message: "path is required for the sqlite backend"})
		}
		errs = appendPositive(errs, section+".sqlite.busy_timeout", sqlite.BusyTimeout)
	default:
		errs = append(errs, FieldError{
			Field:   section + ".backend",
			Message: fmt.Sprintf("unknown backend %q (must be %q or %q)", backend, StoreMemory, StoreSQLite),
		})
	}
	return errs
}

func appendSchedule(errs []FieldError, field, schedule string) []FieldError {
	if schedule == ScheduleDisabled {
		return errs
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   field,
			Message: fmt.Sprintf("invalid cron expression %q: %v", schedule, err),
		})
	}
	return errs
}
