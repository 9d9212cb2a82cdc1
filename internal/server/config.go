package server

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultAddr is where the server listens when nothing else is configured.
const DefaultAddr = "127.0.0.1:8000"

// Config is read from the environment.
type Config struct {
	Addr            string        `env:"ALOUD_ADDR"`
	AllowedOrigins  []string      `env:"ALOUD_CORS_ORIGINS" envDefault:"*" envSeparator:","`
	ReadTimeout     time.Duration `env:"ALOUD_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"ALOUD_WRITE_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"ALOUD_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	MaxBodySize     int64         `env:"ALOUD_MAX_BODY_SIZE" envDefault:"1048576"`
	Metrics         bool          `env:"ALOUD_METRICS" envDefault:"true"`
}

// LoadConfig parses the server environment. Addr is left empty when
// ALOUD_ADDR is unset so callers can fall back to their own setting.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}

// DefaultConfig returns the configuration used when the environment is empty.
func DefaultConfig() Config {
	return Config{
		Addr:            DefaultAddr,
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 5 * time.Second,
		MaxBodySize:     1 << 20,
		Metrics:         true,
	}
}
