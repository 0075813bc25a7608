package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name, e.g. FISZKI_DATABASE_URL.
const EnvPrefix = "FISZKI"

var keys = []string{
	"server.port",
	"server.log_level",
	"server.cors_allowed_origins",
	"database.url",
	"auth.jwt_secret",
	"auth.token_lifetime_minutes",
	"llm.provider",
	"llm.api_key",
	"llm.base_url",
	"llm.model",
	"llm.timeout_seconds",
	"llm.temperature",
	"llm.max_tokens",
	"llm.http_referer",
	"llm.app_title",
	"generation.min_input_length",
	"generation.max_input_length",
	"generation.rate_limit_per_minute",
	"generation.rate_limit_burst",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_allowed_origins", []string{})
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "qwen/qwen3-1.7b:free")
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.app_title", "Fiszki")
	v.SetDefault("generation.min_input_length", 1000)
	v.SetDefault("generation.max_input_length", 10000)
	v.SetDefault("generation.rate_limit_per_minute", 5)
	v.SetDefault("generation.rate_limit_burst", 2)
}

// Load reads configuration from environment variables (FISZKI_ prefix), an
// optional .env file and an optional config.yaml in the working directory.
// Environment variables take precedence over the config file.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
