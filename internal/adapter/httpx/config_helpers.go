package httpx

import (
	"time"

	"github.com/reviewloop/autorev/internal/config"
)

// ParseTimeout resolves a timeout with fallback chain: per-client override,
// then global HTTP config, then the supplied default.
func ParseTimeout(override *string, globalTimeout string, defaultVal time.Duration) time.Duration {
	if override != nil && *override != "" {
		if d, err := time.ParseDuration(*override); err == nil && d >= 0 {
			return d
		}
	}
	if globalTimeout != "" {
		if d, err := time.ParseDuration(globalTimeout); err == nil && d >= 0 {
			return d
		}
	}
	if defaultVal < 0 {
		return 30 * time.Second
	}
	return defaultVal
}

// BuildRetryConfig creates a RetryConfig from the global HTTP config.
func BuildRetryConfig(httpCfg config.HTTPConfig) RetryConfig {
	conf := DefaultRetryConfig()
	if httpCfg.MaxRetries > 0 {
		conf.MaxRetries = httpCfg.MaxRetries
	}
	if d, err := time.ParseDuration(httpCfg.InitialBackoff); err == nil && d >= 0 {
		conf.InitialBackoff = d
	}
	if d, err := time.ParseDuration(httpCfg.MaxBackoff); err == nil && d >= 0 {
		conf.MaxBackoff = d
	}
	if httpCfg.BackoffMultiplier > 1 {
		conf.Multiplier = httpCfg.BackoffMultiplier
	}
	return conf
}

// BuildLogger creates the shared logger from the logging config.
func BuildLogger(cfg config.LoggingConfig) *DefaultLogger {
	level := LogLevelInfo
	switch cfg.Level {
	case "debug":
		level = LogLevelDebug
	case "error":
		level = LogLevelError
	}
	format := LogFormatHuman
	if cfg.Format == "json" {
		format = LogFormatJSON
	}
	return NewDefaultLogger(level, format, cfg.RedactAPIKeys)
}
