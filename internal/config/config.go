// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds every tunable of the server and the batch simulator.
type Config struct {
	Addr             string        `env:"VOLLEY_ADDR" envDefault:":8080"`
	DBPath           string        `env:"VOLLEY_DB_PATH" envDefault:"volleysim.db"`
	RosterPath       string        `env:"VOLLEY_ROSTER_PATH"`
	LogLevel         string        `env:"VOLLEY_LOG_LEVEL" envDefault:"info"`
	SearchDepth      int           `env:"VOLLEY_SEARCH_DEPTH" envDefault:"3"`
	Rollouts         int           `env:"VOLLEY_ROLLOUTS" envDefault:"16"`
	ManagerInterval  int           `env:"VOLLEY_MANAGER_INTERVAL" envDefault:"20"`
	MaxSubstitutions int           `env:"VOLLEY_MAX_SUBSTITUTIONS" envDefault:"6"`
	CleanupInterval  time.Duration `env:"VOLLEY_CLEANUP_INTERVAL" envDefault:"1m"`
	SessionMaxAge    time.Duration `env:"VOLLEY_SESSION_MAX_AGE" envDefault:"1h"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the simulator cannot run with.
func (c Config) Validate() error {
	switch {
	case c.SearchDepth < 1:
		return fmt.Errorf("search depth must be positive, got %d", c.SearchDepth)
	case c.Rollouts < 1:
		return fmt.Errorf("rollouts must be positive, got %d", c.Rollouts)
	case c.ManagerInterval < 0:
		return fmt.Errorf("manager interval must not be negative, got %d", c.ManagerInterval)
	case c.MaxSubstitutions < 0:
		return fmt.Errorf("max substitutions must not be negative, got %d", c.MaxSubstitutions)
	case c.CleanupInterval <= 0:
		return fmt.Errorf("cleanup interval must be positive, got %s", c.CleanupInterval)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// SetupLogging sets the global level and, when console is set, switches the
// global logger to human-readable output on stderr.
func SetupLogging(level string, console bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	if console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return nil
}
