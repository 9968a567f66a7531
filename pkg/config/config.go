package config

import "time"

// Config is the root configuration structure for Sentinel.
// It contains all configuration sections for the service.
type Config struct {
	// Server contains HTTP adapter configuration
	Server ServerConfig `yaml:"server"`

	// Cache contains compliance cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Research contains task orchestration configuration
	Research ResearchConfig `yaml:"research"`

	// Providers contains research backend configurations
	Providers ProvidersConfig `yaml:"providers"`

	// Reference points at an override for the embedded knowledge base
	Reference SourceConfig `yaml:"reference"`

	// Authority points at an override for the embedded regulatory table
	Authority SourceConfig `yaml:"authority"`

	// Tasks contains research audit store configuration
	Tasks TasksConfig `yaml:"tasks"`

	// Telemetry contains logging and metrics configuration
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	// ListenAddress is the address the server listens on (e.g., "0.0.0.0:8000").
	// Default: "127.0.0.1:8000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds the whole response. It must exceed the research
	// deadline, or forced refreshes are cut off mid-poll.
	// Default: 330s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown, background research included.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig configures the compliance cache.
type CacheConfig struct {
	// TTL is the freshness window of a cached record.
	// Default: 24h
	TTL time.Duration `yaml:"ttl"`

	// Backend is "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend
	SQLite SQLiteConfig `yaml:"sqlite"`

	// SweepSchedule is a standard cron expression for eviction of old entries.
	// ScheduleDisabled turns the sweeper off.
	// Default: "*/30 * * * *"
	SweepSchedule string `yaml:"sweep_schedule"`

	// StaleRetention is how long an expired entry remains available as a
	// stale fallback before the sweeper removes it.
	// Default: 168h
	StaleRetention time.Duration `yaml:"stale_retention"`
}

// SQLiteConfig is shared by the stores that can persist to SQLite.
type SQLiteConfig struct {
	// Path is the database file.
	Path string `yaml:"path"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ResearchConfig configures the task orchestrator and background supervisor.
type ResearchConfig struct {
	// Backend selects the research backend: "manus" or "anthropic".
	// Default: "manus"
	Backend string `yaml:"backend"`

	// PollInterval is the wait between status polls.
	// Default: 5s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Deadline bounds one research task, submission included.
	// Default: 300s
	Deadline time.Duration `yaml:"deadline"`

	// MaxConcurrent bounds background research runs.
	// Default: 4
	MaxConcurrent int `yaml:"max_concurrent"`

	// PreviewLength is the length of raw answer previews in logs and task
	// records.
	// Default: 300
	PreviewLength int `yaml:"preview_length"`

	// TradeRoute is the export route researched.
	TradeRoute TradeRouteConfig `yaml:"trade_route"`
}

// TradeRouteConfig names the countries of the export route.
type TradeRouteConfig struct {
	// Origin is an ISO country code. Default: "BR"
	Origin string `yaml:"origin"`

	// Destination is an ISO country code. Default: "IT"
	Destination string `yaml:"destination"`

	// OriginName is used in prompts. Default: "Brasil"
	OriginName string `yaml:"origin_name"`

	// DestinationName is used in prompts. Default: "Itália"
	DestinationName string `yaml:"destination_name"`
}

// ProvidersConfig holds one section per research backend.
type ProvidersConfig struct {
	Manus     ManusConfig     `yaml:"manus"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
}

// HTTPConfig holds the transport settings shared by backend adapters.
type HTTPConfig struct {
	// BaseURL is the API root.
	BaseURL string `yaml:"base_url"`

	// APIKey is the credential. An empty key disables research.
	// Should be set via environment variable, never committed.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries after the first attempt.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`
}

// ManusConfig configures the poll-style Manus backend.
type ManusConfig struct {
	HTTPConfig `yaml:",inline"`

	// AgentProfile selects the Manus agent. Default: "manus-1.6"
	AgentProfile string `yaml:"agent_profile"`

	// TaskMode is "chat" or "agent". Default: "chat"
	TaskMode string `yaml:"task_mode"`
}

// AnthropicConfig configures the turn-loop Anthropic backend.
type AnthropicConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the Messages API model. Default: "claude-sonnet-4-5"
	Model string `yaml:"model"`

	// MaxTokens caps each response. Default: 8192
	MaxTokens int `yaml:"max_tokens"`

	// MaxRounds bounds Messages API calls per research task. Default: 6
	MaxRounds int `yaml:"max_rounds"`

	// WebSearchMaxUses caps server-side searches. A negative value disables
	// the tool.
	// Default: 5
	WebSearchMaxUses int `yaml:"web_search_max_uses"`
}

// SourceConfig points at an optional YAML file replacing embedded data.
type SourceConfig struct {
	// Path is the override file. Empty uses the embedded default.
	Path string `yaml:"path"`

	// Watch reloads the file when it changes.
	Watch bool `yaml:"watch"`
}

// TasksConfig configures the research audit store.
type TasksConfig struct {
	// Backend is "memory" or "sqlite". Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention configures pruning of old task records
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig configures task record pruning.
type RetentionConfig struct {
	// Days is how long records are kept. A negative value keeps them forever.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords caps the number of records kept. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is a standard cron expression. ScheduleDisabled turns
	// pruning off.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource adds the source file and line to each record.
	AddSource bool `yaml:"add_source"`

	// RedactKeys is appended to the built-in list of credential attribute
	// names whose values are masked.
	RedactKeys []string `yaml:"redact_keys"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled registers collectors and serves Path.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint. Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	// Enabled exports spans over OTLP gRPC.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the collector address. Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of root spans sampled, 0 to 1.
	// Default: 1
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as service.name. Default: "sentinel"
	ServiceName string `yaml:"service_name"`
}
