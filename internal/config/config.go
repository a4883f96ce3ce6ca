// Package config loads nihongo-srs settings from an optional YAML file and
// NIHONGO_SRS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rcliao/nihongo-srs/internal/predictor"
	"github.com/rcliao/nihongo-srs/internal/selector"
)

// EnvPrefix is prepended to every environment variable, e.g.
// NIHONGO_SRS_DB_PATH or NIHONGO_SRS_LOG_LEVEL.
const EnvPrefix = "NIHONGO_SRS"

// Config holds all configuration for the application.
type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
	Session   SessionConfig   `mapstructure:"session"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Selector  SelectorConfig  `mapstructure:"selector"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

type SessionConfig struct {
	DefaultItems    int     `mapstructure:"default_items"`
	TargetRetention float64 `mapstructure:"target_retention"`
	MaxNewItems     int     `mapstructure:"max_new_items"`
}

type PredictorConfig struct {
	Weights predictor.Weights `mapstructure:"weights"`
}

type SelectorConfig struct {
	Weights selector.Weights `mapstructure:"weights"`
}

type ReminderConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	UserID   string        `mapstructure:"user_id"` // empty reports every user
}

// Load reads configuration. path may name a config file; when empty,
// nihongo-srs.yaml is looked up in the working directory and
// ~/.nihongo-srs. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nihongo-srs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(homeDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", filepath.Join(homeDir(), "srs.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("session.default_items", 20)
	v.SetDefault("session.target_retention", predictor.DefaultTargetRetention)
	v.SetDefault("session.max_new_items", 10)

	pw := predictor.DefaultWeights()
	v.SetDefault("predictor.weights.time_since_last_review", pw.TimeSinceLastReview)
	v.SetDefault("predictor.weights.ease_factor", pw.EaseFactor)
	v.SetDefault("predictor.weights.user_historical_accuracy", pw.UserHistoricalAccuracy)
	v.SetDefault("predictor.weights.content_difficulty", pw.ContentDifficulty)
	v.SetDefault("predictor.weights.daily_load_factor", pw.DailyLoadFactor)
	v.SetDefault("predictor.weights.intercept", pw.Intercept)

	sw := selector.DefaultWeights()
	v.SetDefault("selector.weights.due", sw.Due)
	v.SetDefault("selector.weights.weakness", sw.Weakness)
	v.SetDefault("selector.weights.curriculum", sw.Curriculum)
	v.SetDefault("selector.weights.variety", sw.Variety)
	v.SetDefault("selector.weights.novelty", sw.Novelty)

	v.SetDefault("reminder.interval", time.Hour)
	v.SetDefault("reminder.user_id", "")
}

// Validate checks values that would otherwise fail deep inside the engine.
func (c *Config) Validate() error {
	if c.Session.DefaultItems <= 0 {
		return fmt.Errorf("session.default_items must be positive, got %d", c.Session.DefaultItems)
	}
	if r := c.Session.TargetRetention; r <= 0 || r >= 1 {
		return fmt.Errorf("session.target_retention must be in (0, 1), got %v", r)
	}
	if c.Reminder.Interval <= 0 {
		return fmt.Errorf("reminder.interval must be positive, got %v", c.Reminder.Interval)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nihongo-srs")
}
