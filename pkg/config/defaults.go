package config

import "time"

// ScheduleDisabled is the schedule value that turns a cron job off.
const ScheduleDisabled = "off"

// Default configuration values.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 330 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Cache defaults
	DefaultCacheTTL            = 24 * time.Hour
	DefaultCacheBackend        = "memory"
	DefaultCacheSQLitePath     = "data/compliance_cache.db"
	DefaultCacheSweepSchedule  = "*/30 * * * *"
	DefaultCacheStaleRetention = 168 * time.Hour

	// SQLite defaults
	DefaultSQLiteBusyTimeout = 5 * time.Second

	// Research defaults
	DefaultResearchBackend = "manus"
	DefaultPollInterval    = 5 * time.Second
	DefaultDeadline        = 300 * time.Second
	DefaultMaxConcurrent   = 4
	DefaultPreviewLength   = 300

	// Trade route defaults
	DefaultOrigin          = "BR"
	DefaultDestination     = "IT"
	DefaultOriginName      = "Brasil"
	DefaultDestinationName = "Itália"

	// Provider defaults
	DefaultProviderMaxRetries = 2

	DefaultManusBaseURL      = "https://api.manus.ai/v1"
	DefaultManusTimeout      = 30 * time.Second
	DefaultManusAgentProfile = "manus-1.6"
	DefaultManusTaskMode     = "chat"

	DefaultAnthropicBaseURL          = "https://api.anthropic.com"
	DefaultAnthropicTimeout          = 120 * time.Second
	DefaultAnthropicModel            = "claude-sonnet-4-5"
	DefaultAnthropicMaxTokens        = 8192
	DefaultAnthropicMaxRounds        = 6
	DefaultAnthropicWebSearchMaxUses = 5

	// Task audit defaults
	DefaultTasksBackend      = "memory"
	DefaultTasksSQLitePath   = "data/research_tasks.db"
	DefaultRetentionDays     = 30
	DefaultRetentionSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"

	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "sentinel"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Fields already
// set are left alone. Boolean fields are not touched.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyCacheDefaults(&cfg.Cache)
	applyResearchDefaults(&cfg.Research)
	applyManusDefaults(&cfg.Providers.Manus)
	applyAnthropicDefaults(&cfg.Providers.Anthropic)
	applyTasksDefaults(&cfg.Tasks)

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}

	tracing := &cfg.Telemetry.Tracing
	if tracing.Endpoint == "" {
		tracing.Endpoint = DefaultTracingEndpoint
	}
	if tracing.SampleRatio == 0 {
		tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if tracing.ServiceName == "" {
		tracing.ServiceName = DefaultTracingServiceName
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Backend == "" {
		cfg.Backend = DefaultCacheBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultCacheSQLitePath
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = DefaultCacheSweepSchedule
	}
	if cfg.StaleRetention == 0 {
		cfg.StaleRetention = DefaultCacheStaleRetention
	}
}

func applyResearchDefaults(cfg *ResearchConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultResearchBackend
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Deadline == 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.PreviewLength == 0 {
		cfg.PreviewLength = DefaultPreviewLength
	}

	route := &cfg.TradeRoute
	if route.Origin == "" {
		route.Origin = DefaultOrigin
	}
	if route.Destination == "" {
		route.Destination = DefaultDestination
	}
	if route.OriginName == "" {
		route.OriginName = DefaultOriginName
	}
	if route.DestinationName == "" {
		route.DestinationName = DefaultDestinationName
	}
}

func applyHTTPDefaults(cfg *HTTPConfig, baseURL string, timeout time.Duration) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultProviderMaxRetries
	}
}

func applyManusDefaults(cfg *ManusConfig) {
	applyHTTPDefaults(&cfg.HTTPConfig, DefaultManusBaseURL, DefaultManusTimeout)
	if cfg.AgentProfile == "" {
		cfg.AgentProfile = DefaultManusAgentProfile
	}
	if cfg.TaskMode == "" {
		cfg.TaskMode = DefaultManusTaskMode
	}
}

func applyAnthropicDefaults(cfg *AnthropicConfig) {
	applyHTTPDefaults(&cfg.HTTPConfig, DefaultAnthropicBaseURL, DefaultAnthropicTimeout)
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultAnthropicMaxTokens
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = DefaultAnthropicMaxRounds
	}
	if cfg.WebSearchMaxUses == 0 {
		cfg.WebSearchMaxUses = DefaultAnthropicWebSearchMaxUses
	}
}

func applyTasksDefaults(cfg *TasksConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultTasksBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultTasksSQLitePath
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultRetentionDays
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}
}
