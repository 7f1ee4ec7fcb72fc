// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with UIFORGE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Well-known environment variables:
//   - MYSQL_DSN or UIFORGE_DATA_DATABASE_SOURCE: MySQL connection string
//   - OPENAI_API_KEY or UIFORGE_LLM_API_KEY: generation dependency credentials
//   - UIFORGE_DATA_REDIS_ADDR: Redis address
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	// Enable environment variable support with UIFORGE_ prefix
	v.SetEnvPrefix("UIFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without UIFORGE_ prefix) for compatibility
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "UIFORGE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "UIFORGE_DATA_REDIS_ADDR")
	_ = v.BindEnv("llm.api_key", "OPENAI_API_KEY", "UIFORGE_LLM_API_KEY")
	_ = v.BindEnv("llm.base_url", "OPENAI_BASE_URL", "UIFORGE_LLM_BASE_URL")

	// Load configuration file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &ServerHTTP{
				Network:     v.GetString("server.http.network"),
				Addr:        v.GetString("server.http.addr"),
				Timeout:     v.GetDuration("server.http.timeout"),
				CorsOrigins: v.GetStringSlice("server.http.cors_origins"),
			},
		},
		Data: &Data{
			Database: &Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
		},
		LLM: &LLM{
			BaseURL:  v.GetString("llm.base_url"),
			APIKey:   v.GetString("llm.api_key"),
			Model:    v.GetString("llm.model"),
			ProxyURL: v.GetString("llm.proxy_url"),
			Timeout:  v.GetDuration("llm.timeout"),
		},
		Resilience: &Resilience{
			FailureThreshold:    v.GetInt("resilience.breaker.failure_threshold"),
			OpenTimeout:         v.GetDuration("resilience.breaker.open_timeout"),
			InboundMaxRequests:  v.GetInt("resilience.ratelimit.inbound_max_requests"),
			InboundWindow:       v.GetDuration("resilience.ratelimit.inbound_window"),
			OutboundMaxRequests: v.GetInt("resilience.ratelimit.outbound_max_requests"),
			OutboundWindow:      v.GetDuration("resilience.ratelimit.outbound_window"),
			MaxAttempts:         v.GetInt("resilience.retry.max_attempts"),
			BackoffMin:          v.GetDuration("resilience.retry.backoff_min"),
			BackoffMax:          v.GetDuration("resilience.retry.backoff_max"),
			MaxConcurrentJobs:   v.GetInt("resilience.jobs.max_concurrent"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8001")
	v.SetDefault("server.http.timeout", 2*time.Minute)
	v.SetDefault("server.http.cors_origins", []string{"*"})

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is required from environment

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// LLM defaults
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", 60*time.Second)
	// Note: llm.api_key (OPENAI_API_KEY) is expected from environment;
	// the service starts without it and reports unconfigured in health.

	// Resilience defaults
	v.SetDefault("resilience.breaker.failure_threshold", 5)
	v.SetDefault("resilience.breaker.open_timeout", 60*time.Second)
	v.SetDefault("resilience.ratelimit.inbound_max_requests", 10)
	v.SetDefault("resilience.ratelimit.inbound_window", 60*time.Second)
	v.SetDefault("resilience.ratelimit.outbound_max_requests", 5)
	v.SetDefault("resilience.ratelimit.outbound_window", time.Second)
	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.backoff_min", time.Second)
	v.SetDefault("resilience.retry.backoff_max", 10*time.Second)
	v.SetDefault("resilience.jobs.max_concurrent", 8)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing or invalid required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (MYSQL_DSN)")
	}

	if bc.Resilience != nil {
		if bc.Resilience.FailureThreshold <= 0 {
			missingFields = append(missingFields, "resilience.breaker.failure_threshold (must be > 0)")
		}
		if bc.Resilience.MaxAttempts <= 0 {
			missingFields = append(missingFields, "resilience.retry.max_attempts (must be > 0)")
		}
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
