package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Telnyx    TelnyxConfig    `yaml:"telnyx" mapstructure:"telnyx"`
	Qualify   QualifyConfig   `yaml:"qualify" mapstructure:"qualify"`
	FollowUp  FollowUpConfig  `yaml:"follow_up" mapstructure:"follow_up"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	ExtractModel   string `yaml:"extract_model" mapstructure:"extract_model"`
	GenerateModel  string `yaml:"generate_model" mapstructure:"generate_model"`
	MaxReplyTokens int64  `yaml:"max_reply_tokens" mapstructure:"max_reply_tokens"`
}

// TelnyxConfig holds Telnyx messaging settings.
type TelnyxConfig struct {
	Key                string `yaml:"key" mapstructure:"key"`
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	FromNumber         string `yaml:"from_number" mapstructure:"from_number"`
	MessagingProfileID string `yaml:"messaging_profile_id" mapstructure:"messaging_profile_id"`
	AgentPhone         string `yaml:"agent_phone" mapstructure:"agent_phone"`
}

// QualifyConfig configures the qualification conversation.
type QualifyConfig struct {
	RequiredFields   []string `yaml:"required_fields" mapstructure:"required_fields"`
	OptionalFields   []string `yaml:"optional_fields" mapstructure:"optional_fields"`
	OptionalAttempts int      `yaml:"optional_attempts" mapstructure:"optional_attempts"`
	DefaultPauseDays int      `yaml:"default_pause_days" mapstructure:"default_pause_days"`
	SaveRetries      int      `yaml:"save_retries" mapstructure:"save_retries"`
}

// FollowUpConfig configures the follow-up cadence.
type FollowUpConfig struct {
	// CadenceDays maps a follow-up stage name to its offset in days.
	CadenceDays    map[string]int `yaml:"cadence_days" mapstructure:"cadence_days"`
	MaxFollowUps   int            `yaml:"max_follow_ups" mapstructure:"max_follow_ups"`
	BatchSize      int            `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConcurrent  int            `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	SendsPerSecond float64        `yaml:"sends_per_second" mapstructure:"sends_per_second"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("LEADSMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "leads.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.extract_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.generate_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_reply_tokens", 300)
	v.SetDefault("telnyx.base_url", "https://api.telnyx.com/v2")
	v.SetDefault("qualify.required_fields", []string{
		"move_in_date", "price", "beds", "baths", "location", "amenities",
	})
	v.SetDefault("qualify.optional_fields", []string{"boston_rental_experience"})
	v.SetDefault("qualify.optional_attempts", 2)
	v.SetDefault("qualify.default_pause_days", 3)
	v.SetDefault("qualify.save_retries", 3)
	v.SetDefault("follow_up.cadence_days", map[string]int{
		"scheduled": 1,
		"first":     3,
		"second":    5,
		"third":     7,
		"fourth":    10,
	})
	v.SetDefault("follow_up.max_follow_ups", 5)
	v.SetDefault("follow_up.batch_size", 100)
	v.SetDefault("follow_up.max_concurrent", 5)
	v.SetDefault("follow_up.sends_per_second", 2.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that settings required for live operation are present.
func (c *Config) Validate() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required (LEADSMS_ANTHROPIC_KEY)")
	}
	if c.Telnyx.Key == "" {
		return eris.New("config: telnyx.key is required (LEADSMS_TELNYX_KEY)")
	}
	if c.Telnyx.FromNumber == "" {
		return eris.New("config: telnyx.from_number is required (LEADSMS_TELNYX_FROM_NUMBER)")
	}
	if len(c.Qualify.RequiredFields) == 0 {
		return eris.New("config: qualify.required_fields must not be empty")
	}
	return nil
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
