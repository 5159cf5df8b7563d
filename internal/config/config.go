package config

import (
	"errors"
	"time"
)

// Config is the application configuration root.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	AI     AIConfig     `mapstructure:"ai"`
	Log    LogConfig    `mapstructure:"log"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Chat   ChatConfig   `mapstructure:"chat"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig configures the upstream text-generation provider.
// The API key is NOT part of the config: it arrives with every chat
// request and is scoped to that single call.
type AIConfig struct {
	Provider     string          `mapstructure:"provider"`      // gemini, openai, azure, ark
	DefaultModel string          `mapstructure:"default_model"` // used when the request omits a model
	BaseURL      string          `mapstructure:"base_url"`
	Options      AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig holds model sampling parameters.
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig configures the conversation store.
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig configures the optional stream-session store backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ChatConfig holds chat-turn tunables.
type ChatConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"` // lifetime of an initiated-but-unstreamed session
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	validProviders := map[string]bool{"gemini": true, "openai": true, "azure": true, "ark": true}
	if !validProviders[c.AI.Provider] {
		return errors.New("invalid ai provider, must be gemini/openai/azure/ark")
	}

	if c.Chat.SessionTTL <= 0 {
		return errors.New("chat session_ttl must be positive")
	}

	return nil
}
