package config

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

// GatewayConfig configures the OpenAI-compatible image generation gateway.
type GatewayConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model" validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=1"`
}

// StorageConfig configures the public image bucket.
type StorageConfig struct {
	BaseURL    string `mapstructure:"base_url" validate:"omitempty,url"`
	ServiceKey string `mapstructure:"service_key"`
	Bucket     string `mapstructure:"bucket" validate:"required"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vocabimage")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "vocabimage")
	v.SetDefault("database.username", "user")
	v.SetDefault("gateway.base_url", "https://ai.gateway.lovable.dev/v1")
	v.SetDefault("gateway.model", "google/gemini-2.5-flash-image-preview")
	v.SetDefault("gateway.timeout_seconds", 30)
	v.SetDefault("storage.bucket", "vocabulary-images")

	// Secrets are bound to environment variables only, never read from the
	// config file.
	if err := v.BindEnv("gateway.api_key", "AI_GATEWAY_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind AI_GATEWAY_API_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("storage.service_key", "STORAGE_SERVICE_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind STORAGE_SERVICE_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	if err := v.BindEnv("sentry.dsn", "SENTRY_DSN"); err != nil {
		return nil, fmt.Errorf("failed to bind SENTRY_DSN environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
