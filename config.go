package agrifun

import (
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// worldConfig holds the configuration for an AgriFun world instance.
// Configuration can be set via environment variables with the specified
// defaults.
type worldConfig struct {
	// Namespace isolates this world's persisted state and telemetry.
	Namespace string `env:"AGRIFUN_NAMESPACE" envDefault:"agrifun"`

	// Global log level (zerolog level names).
	LogLevel string `env:"AGRIFUN_LOG_LEVEL" envDefault:"info"`

	// Optional redis address for the snapshot store. Empty disables
	// save/load.
	RedisAddress string `env:"REDIS_ADDRESS"`

	RedisPassword string `env:"REDIS_PASSWORD"`

	// Optional statsd address for telemetry. Empty leaves the no-op
	// client in place.
	StatsdAddress string `env:"STATSD_ADDRESS"`
}

// loadWorldConfig loads the world configuration from environment variables.
func loadWorldConfig() (worldConfig, error) {
	cfg := worldConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse world config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *worldConfig) validate() error {
	if cfg.Namespace == "" {
		return eris.New("namespace cannot be empty")
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return eris.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	return nil
}
