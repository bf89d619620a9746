// Package config loads process configuration from .env, the environment and
// command-line flags, in that order of precedence (flags win).
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

type Config struct {
	Env      string `env:"APP_ENV"              envDefault:"development"`
	HTTPAddr string `env:"READYCHECK_HTTP_ADDR" envDefault:":8080"`
	Prefix   string `env:"READYCHECK_PREFIX"    envDefault:"!rc"`
	BotID    string `env:"READYCHECK_BOT_ID"    envDefault:"ready-check"`

	LogDir      string `env:"READYCHECK_LOG_DIR" envDefault:"logs"`
	LogTimezone string `env:"READYCHECK_LOG_TZ"  envDefault:"America/Chicago"`

	CountdownFrom int           `env:"READYCHECK_COUNTDOWN_FROM" envDefault:"5"`
	CountdownTick time.Duration `env:"READYCHECK_COUNTDOWN_TICK" envDefault:"1s"`
	SettleDelay   time.Duration `env:"READYCHECK_SETTLE_DELAY"   envDefault:"100ms"`
	GoDelay       time.Duration `env:"READYCHECK_GO_DELAY"       envDefault:"2100ms"`

	NATSURL     string `env:"NATS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
}

// Load reads envFile (if present) into the environment, parses it into a
// Config and applies flag overrides from args.
func Load(envFile string, fset *flag.FlagSet, args []string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fset.StringVar(&cfg.Env, "env", cfg.Env, "runtime environment (production, development, test)")
	fset.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fset.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "command prefix")
	fset.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL for lifecycle events")
	fset.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres DSN for the outcome history")
	if err := fset.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	if cfg.Prefix == "" {
		return Config{}, errors.New("command prefix must not be empty")
	}
	return cfg, nil
}
