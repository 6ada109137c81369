package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port               int      `env:"PORT" envDefault:"8080"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" envDefault:"100ms"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"50"`

	// Observability
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`

	// Supabase
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	UseSupabase        bool   `env:"USE_SUPABASE" envDefault:"true"`

	// JWT / Auth
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"easybiz-default-dev-secret-change-me"`
	JWTAccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	JWTRefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`

	// OTP
	OTPTTL          time.Duration `env:"OTP_TTL" envDefault:"5m"`
	OTPRatePerMin   float64       `env:"OTP_RATE_PER_MINUTE" envDefault:"3"`
	OTPBurst        int           `env:"OTP_BURST" envDefault:"3"`
	DevOTPCode      string        `env:"DEV_OTP_CODE"`
	DefaultDialCode string        `env:"DEFAULT_DIAL_CODE" envDefault:"+91"`

	// Session
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"5s"`
	AwaitTimeout   time.Duration `env:"SESSION_AWAIT_TIMEOUT" envDefault:"3s"`

	// Routing
	HomePathAgent string `env:"HOME_PATH_AGENT" envDefault:"/app/bolkar"`

	// Dev mode
	DevTools bool `env:"DEV_TOOLS" envDefault:"false"`
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.MaxConcurrency <= 0 {
		return nil, fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", cfg.MaxConcurrency)
	}
	return &cfg, nil
}

// SupabaseEnabled reports whether the hosted backend should be used.
func (c *Config) SupabaseEnabled() bool {
	return c.UseSupabase && c.SupabaseURL != ""
}
