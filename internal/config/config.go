package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Matching MatchingConfig
	Auto     AutoConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path       string
	Migrations string
}

// MatchingConfig holds scoring weights and tolerances.
type MatchingConfig struct {
	AmountWeight  float64 `mapstructure:"amount_weight"`
	DateWeight    float64 `mapstructure:"date_weight"`
	TextWeight    float64 `mapstructure:"text_weight"`
	PaymentWeight float64 `mapstructure:"payment_weight"`

	// AmountToleranceCents is the absolute difference (minor units) still
	// treated as an exact amount match.
	AmountToleranceCents int64 `mapstructure:"amount_tolerance_cents"`
	// AmountDecayRatio is the relative difference at which the amount
	// sub-score reaches zero.
	AmountDecayRatio float64 `mapstructure:"amount_decay_ratio"`
}

// AutoConfig holds auto-reconciliation batch settings.
type AutoConfig struct {
	Threshold     float64       `mapstructure:"threshold"`
	Limit         int           `mapstructure:"limit"`
	Workers       int           `mapstructure:"workers"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// Load reads configuration from file and env. Env var overrides use prefix CONCILIA_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "concilia", "concilia.db"))
	v.SetDefault("database.migrations", "internal/database/migrations")
	v.SetDefault("matching.amount_weight", 0.40)
	v.SetDefault("matching.date_weight", 0.30)
	v.SetDefault("matching.text_weight", 0.20)
	v.SetDefault("matching.payment_weight", 0.10)
	v.SetDefault("matching.amount_tolerance_cents", 1)
	v.SetDefault("matching.amount_decay_ratio", 0.10)
	v.SetDefault("auto.threshold", 0.85)
	v.SetDefault("auto.limit", 200)
	v.SetDefault("auto.workers", 4)
	v.SetDefault("auto.retry_attempts", 3)
	v.SetDefault("auto.retry_backoff", 100*time.Millisecond)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("CONCILIA_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "concilia"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CONCILIA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Default returns the built-in configuration without touching disk or env.
// Tests use it for stable scoring parameters.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Migrations: "internal/database/migrations"},
		Matching: MatchingConfig{
			AmountWeight:         0.40,
			DateWeight:           0.30,
			TextWeight:           0.20,
			PaymentWeight:        0.10,
			AmountToleranceCents: 1,
			AmountDecayRatio:     0.10,
		},
		Auto: AutoConfig{
			Threshold:     0.85,
			Limit:         200,
			Workers:       4,
			RetryAttempts: 3,
			RetryBackoff:  100 * time.Millisecond,
		},
	}
}
