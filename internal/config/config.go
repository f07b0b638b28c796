package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Timeline  TimelineConfig  `yaml:"timeline" mapstructure:"timeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the extraction oracle.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig configures reconciliation behavior.
type PipelineConfig struct {
	UserID int64 `yaml:"user_id" mapstructure:"user_id"`
	// OraclePauseMS is the politeness delay between oracle calls, in
	// milliseconds. Backpressure for the shared rate limit, not correctness.
	OraclePauseMS int `yaml:"oracle_pause_ms" mapstructure:"oracle_pause_ms"`
	// BatchLimit caps how many unprocessed observations one reconcile run
	// picks up. Zero means no cap.
	BatchLimit int `yaml:"batch_limit" mapstructure:"batch_limit"`
}

// OraclePause returns the configured pause as a duration.
func (c PipelineConfig) OraclePause() time.Duration {
	return time.Duration(c.OraclePauseMS) * time.Millisecond
}

// TimelineConfig shapes synthetic timestamps generated when seeding.
type TimelineConfig struct {
	BusinessHourStart int `yaml:"business_hour_start" mapstructure:"business_hour_start"`
	BusinessHourEnd   int `yaml:"business_hour_end" mapstructure:"business_hour_end"`
	MinEventGapDays   int `yaml:"min_event_gap_days" mapstructure:"min_event_gap_days"`
	NoteOffsetMinutes int `yaml:"note_offset_minutes" mapstructure:"note_offset_minutes"`
	GiftLeadDays      int `yaml:"gift_lead_days" mapstructure:"gift_lead_days"`
}

// ServerConfig configures the HTTP trigger surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KINDRED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "kindred.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("pipeline.user_id", 1)
	v.SetDefault("pipeline.oracle_pause_ms", 500)
	v.SetDefault("pipeline.batch_limit", 0)
	v.SetDefault("timeline.business_hour_start", 9)
	v.SetDefault("timeline.business_hour_end", 18)
	v.SetDefault("timeline.min_event_gap_days", 2)
	v.SetDefault("timeline.note_offset_minutes", 90)
	v.SetDefault("timeline.gift_lead_days", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; env and defaults carry the load.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
