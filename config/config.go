// Package config loads the EduConnect server configuration from the
// environment. Every variable carries the EDUCONNECT_ prefix.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Prefix is prepended to every environment variable name.
const Prefix = "EDUCONNECT_"

// Config is the server configuration. It implements educonnect.Config.
type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	HTTP     HTTP     `envPrefix:"HTTP_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Instance Instance `envPrefix:"INSTANCE_"`
	Database Database `envPrefix:"DATABASE_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Kratos   Kratos   `envPrefix:"KRATOS_"`
	Metrics  Metrics  `envPrefix:"METRICS_"`
}

type HTTP struct {
	Addr            string        `env:"ADDR" envDefault:":8978"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Auth struct {
	SignInPath   string `env:"SIGN_IN_PATH" envDefault:"/auth/sign-in"`
	HomePath     string `env:"HOME_PATH" envDefault:"/"`
	SigningKey   string `env:"SIGNING_KEY"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`
}

type Instance struct {
	CookieName       string        `env:"COOKIE_NAME" envDefault:"educonnect_instance"`
	BootstrapTimeout time.Duration `env:"BOOTSTRAP_TIMEOUT" envDefault:"5s"`
	BootstrapWait    time.Duration `env:"BOOTSTRAP_WAIT" envDefault:"750ms"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT" envDefault:"30m"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

type Database struct {
	DSN string `env:"DSN" envDefault:"file:educonnect.db?cache=shared"`
}

// Redis is optional. Without an address session tokens stay in memory.
type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type Kratos struct {
	PublicURL string        `env:"PUBLIC_URL" envDefault:"http://127.0.0.1:4433"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type Metrics struct {
	Addr string `env:"ADDR" envDefault:":9478"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validation.Errors{
		"http": validation.ValidateStruct(&c.HTTP,
			validation.Field(&c.HTTP.Addr, validation.Required),
		),
		"auth": validation.ValidateStruct(&c.Auth,
			validation.Field(&c.Auth.SignInPath, validation.Required),
			validation.Field(&c.Auth.HomePath, validation.Required),
			validation.Field(&c.Auth.SigningKey, validation.Required, validation.Length(32, 0)),
		),
		"instance": validation.ValidateStruct(&c.Instance,
			validation.Field(&c.Instance.CookieName, validation.Required),
			validation.Field(&c.Instance.BootstrapTimeout, validation.Required),
			validation.Field(&c.Instance.IdleTimeout, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.Instance.SweepInterval, validation.Required, validation.Min(time.Second)),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.DSN, validation.Required),
		),
		"kratos": validation.ValidateStruct(&c.Kratos,
			validation.Field(&c.Kratos.PublicURL, validation.Required, is.URL),
		),
	}.Filter()
}

func (c *Config) GetSignInPath() string {
	return c.Auth.SignInPath
}

func (c *Config) GetHomePath() string {
	return c.Auth.HomePath
}

func (c *Config) GetInstanceCookieName() string {
	return c.Instance.CookieName
}

func (c *Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c *Config) GetCookieSecure() bool {
	return c.Auth.CookieSecure
}

func (c *Config) GetBootstrapTimeout() time.Duration {
	return c.Instance.BootstrapTimeout
}

func (c *Config) GetBootstrapWait() time.Duration {
	return c.Instance.BootstrapWait
}

func (c *Config) GetInstanceIdleTimeout() time.Duration {
	return c.Instance.IdleTimeout
}
