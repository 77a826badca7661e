package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	CredentialBackendFile   = "file"
	CredentialBackendRedis  = "redis"
	CredentialBackendMemory = "memory"
)

var (
	ErrUnknownCredentialBackend = errors.New("unknown credential backend")
	ErrRedisAddrRequired        = errors.New("REDIS_ADDR is required for the redis credential backend")
)

// Config centraliza la configuración del cliente.
type Config struct {
	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://localhost:3000"`
	APIPrefix      string        `env:"API_PREFIX" envDefault:"/api/"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	CredentialBackend string `env:"CREDENTIAL_BACKEND" envDefault:"file"`
	CredentialPath    string `env:"CREDENTIAL_PATH,expand" envDefault:"${HOME}/.tavern"`
	CredentialKey     string `env:"CREDENTIAL_KEY" envDefault:"access_token"`
	CredentialWatch   bool   `env:"CREDENTIAL_WATCH" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ToastTimeoutMs int `env:"TOAST_TIMEOUT_MS" envDefault:"3000"`

	BreakerEnabled   bool          `env:"BREAKER_ENABLED" envDefault:"false"`
	BreakerThreshold int           `env:"BREAKER_THRESHOLD" envDefault:"5"`
	BreakerTimeout   time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"1"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// APIBaseURL une el origen del backend con el prefijo de la API.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.BackendURL, "/") + "/" + strings.Trim(c.APIPrefix, "/") + "/"
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.CredentialBackend = strings.ToLower(strings.TrimSpace(c.CredentialBackend))
	switch c.CredentialBackend {
	case CredentialBackendFile, CredentialBackendMemory:
	case CredentialBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return ErrRedisAddrRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCredentialBackend, c.CredentialBackend)
	}
	if strings.TrimSpace(c.CredentialKey) == "" {
		return errors.New("CREDENTIAL_KEY must not be empty")
	}
	if c.ToastTimeoutMs < 0 {
		return errors.New("TOAST_TIMEOUT_MS must not be negative")
	}
	return nil
}
