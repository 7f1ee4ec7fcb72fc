package conf

import "time"

// Bootstrap is the root configuration for the UIForge service.
type Bootstrap struct {
	Server     *Server
	Data       *Data
	LLM        *LLM
	Resilience *Resilience
	Log        *Log
}

// Server holds transport configuration.
type Server struct {
	Http *ServerHTTP
}

// ServerHTTP holds HTTP server configuration.
type ServerHTTP struct {
	Network     string
	Addr        string
	Timeout     time.Duration
	CorsOrigins []string
}

// Data holds data layer configuration.
type Data struct {
	Database *Database
	Redis    *Redis
}

// Database holds the MySQL connection configuration.
type Database struct {
	Driver string
	Source string
}

// Redis holds the Redis connection configuration.
type Redis struct {
	Network      string
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LLM holds the generation dependency configuration.
type LLM struct {
	BaseURL  string
	APIKey   string
	Model    string
	ProxyURL string
	Timeout  time.Duration
}

// Resilience holds circuit breaker, rate limiter and retry configuration.
type Resilience struct {
	// Circuit breaker
	FailureThreshold int
	OpenTimeout      time.Duration

	// Inbound rate limit (per caller identifier)
	InboundMaxRequests int
	InboundWindow      time.Duration

	// Outbound rate limit (per dependency)
	OutboundMaxRequests int
	OutboundWindow      time.Duration

	// Retry policy
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration

	// Background job pool
	MaxConcurrentJobs int
}

// Log holds logging configuration.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
