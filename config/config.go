package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development" validate:"oneof=development staging production test"`
	Port        string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Outbound submission endpoint.
	APIURL string `env:"API_URL" validate:"required,url"`

	RecaptchaSiteKey   string `env:"RECAPTCHA_SITE_KEY" envDefault:"6LeIxAcTAAAAAJcZVRqyHh71UMIEGNQ_MXjiZKhI" validate:"required"`
	RecaptchaScriptURL string `env:"RECAPTCHA_SCRIPT_URL" envDefault:"https://www.google.com/recaptcha/api.js" validate:"required,url"`
	RecaptchaOnload    string `env:"RECAPTCHA_ONLOAD" envDefault:"onRecaptchaLoad" validate:"required,alphanum"`

	SessionSecret  string        `env:"SESSION_SECRET" validate:"required,min=32"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m" validate:"gt=0"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`

	RedisURL         string        `env:"REDIS_URL"`
	SubmitRateLimit  int           `env:"SUBMIT_RATE_LIMIT" envDefault:"5" validate:"gte=0"`
	SubmitRateWindow time.Duration `env:"SUBMIT_RATE_WINDOW" envDefault:"1m" validate:"gt=0"`

	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"67108864" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
}

func (c *Config) Production() bool { return c.Environment == "production" }

var validate = validator.New()

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
