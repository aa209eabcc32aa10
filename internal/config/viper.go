// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"fjacquet/spendlog/internal/models"
)

// Store drivers understood by the container.
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// Backend names as registered in the backend registry.
const (
	BackendGemini   = "gemini"
	BackendVertex   = "vertex"
	BackendGigaChat = "gigachat"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Backends struct {
		Active            string `mapstructure:"active" yaml:"active"`
		TimeoutSeconds    int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`

		Gemini struct {
			Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
			APIKey  string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
			Model   string `mapstructure:"model" yaml:"model"`
		} `mapstructure:"gemini" yaml:"gemini"`

		Vertex struct {
			Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
			Project  string `mapstructure:"project" yaml:"project"`
			Location string `mapstructure:"location" yaml:"location"`
			Model    string `mapstructure:"model" yaml:"model"`
		} `mapstructure:"vertex" yaml:"vertex"`

		GigaChat struct {
			Enabled            bool   `mapstructure:"enabled" yaml:"enabled"`
			APIKey             string `mapstructure:"api_key" yaml:"-"`
			Scope              string `mapstructure:"scope" yaml:"scope"`
			Model              string `mapstructure:"model" yaml:"model"`
			InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
		} `mapstructure:"gigachat" yaml:"gigachat"`
	} `mapstructure:"backends" yaml:"backends"`

	Store struct {
		Driver         string `mapstructure:"driver" yaml:"driver"`
		DSN            string `mapstructure:"dsn" yaml:"-"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		Migrate        bool   `mapstructure:"migrate" yaml:"migrate"`
	} `mapstructure:"store" yaml:"store"`

	Categories struct {
		TemplatesFile string `mapstructure:"templates_file" yaml:"templates_file"`
		SynonymsFile  string `mapstructure:"synonyms_file" yaml:"synonyms_file"`
		FallbackName  string `mapstructure:"fallback_name" yaml:"fallback_name"`
		AutoCreate    bool   `mapstructure:"auto_create" yaml:"auto_create"`
	} `mapstructure:"categories" yaml:"categories"`

	Pipeline struct {
		DefaultCurrency string `mapstructure:"default_currency" yaml:"default_currency"`
		Workers         int    `mapstructure:"workers" yaml:"workers"`
	} `mapstructure:"pipeline" yaml:"pipeline"`

	Validation struct {
		MaxDescriptionLength int `mapstructure:"max_description_length" yaml:"max_description_length"`
		MaxVendorLength      int `mapstructure:"max_vendor_length" yaml:"max_vendor_length"`
		MaxAmountScale       int `mapstructure:"max_amount_scale" yaml:"max_amount_scale"`
	} `mapstructure:"validation" yaml:"validation"`
}

// EnabledBackends returns the names of enabled backends in registration order.
func (c *Config) EnabledBackends() []string {
	var names []string
	if c.Backends.Gemini.Enabled {
		names = append(names, BackendGemini)
	}
	if c.Backends.Vertex.Enabled {
		names = append(names, BackendVertex)
	}
	if c.Backends.GigaChat.Enabled {
		names = append(names, BackendGigaChat)
	}
	return names
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	return InitializeConfigFrom("")
}

// InitializeConfigFrom is InitializeConfig with an explicit config file. An empty
// path searches the default locations.
func InitializeConfigFrom(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.spendlog")
		v.AddConfigPath(".spendlog")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("SPENDLOG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless explicitly given)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if configFile != "" {
				return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
			}
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// 5. Well-known unprefixed secrets
	bindings := map[string]string{
		"backends.gemini.api_key":   "GEMINI_API_KEY",
		"backends.gigachat.api_key": "GIGACHAT_API_KEY",
		"store.dsn":                 "DATABASE_URL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "SPENDLOG_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			fmt.Printf("Warning: failed to bind %s environment variable: %v\n", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("backends.active", "")
	v.SetDefault("backends.timeout_seconds", 60)
	v.SetDefault("backends.requests_per_minute", 30)

	v.SetDefault("backends.gemini.enabled", true)
	v.SetDefault("backends.gemini.model", "gemini-2.0-flash")

	v.SetDefault("backends.vertex.enabled", false)
	v.SetDefault("backends.vertex.location", "us-central1")
	v.SetDefault("backends.vertex.model", "gemini-2.0-flash")

	v.SetDefault("backends.gigachat.enabled", false)
	v.SetDefault("backends.gigachat.scope", "GIGACHAT_API_PERS")
	v.SetDefault("backends.gigachat.model", "GigaChat")
	v.SetDefault("backends.gigachat.insecure_skip_verify", false)

	v.SetDefault("store.driver", StoreDriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.timeout_seconds", 10)
	v.SetDefault("store.migrate", true)

	v.SetDefault("categories.templates_file", "")
	v.SetDefault("categories.synonyms_file", "")
	v.SetDefault("categories.fallback_name", models.DefaultFallbackCategory)
	v.SetDefault("categories.auto_create", false)

	v.SetDefault("pipeline.default_currency", models.DefaultCurrency)
	v.SetDefault("pipeline.workers", 4)

	v.SetDefault("validation.max_description_length", 500)
	v.SetDefault("validation.max_vendor_length", 100)
	v.SetDefault("validation.max_amount_scale", 2)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Backends.TimeoutSeconds < 1 || config.Backends.TimeoutSeconds > 300 {
		return fmt.Errorf("backends.timeout_seconds must be between 1 and 300, got: %d", config.Backends.TimeoutSeconds)
	}

	if config.Backends.RequestsPerMinute < 1 || config.Backends.RequestsPerMinute > 1000 {
		return fmt.Errorf("backends.requests_per_minute must be between 1 and 1000, got: %d", config.Backends.RequestsPerMinute)
	}

	enabled := config.EnabledBackends()
	if len(enabled) == 0 {
		return fmt.Errorf("at least one backend must be enabled")
	}
	if config.Backends.Active != "" {
		found := false
		for _, name := range enabled {
			if name == config.Backends.Active {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("backends.active %q is not an enabled backend", config.Backends.Active)
		}
	}

	if config.Backends.Vertex.Enabled && config.Backends.Vertex.Project == "" {
		return fmt.Errorf("backends.vertex.project required when vertex is enabled")
	}

	switch config.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if config.Store.DSN == "" {
			return fmt.Errorf("DATABASE_URL required when store.driver is postgres")
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be 'memory' or 'postgres')", config.Store.Driver)
	}

	if config.Store.TimeoutSeconds < 1 || config.Store.TimeoutSeconds > 300 {
		return fmt.Errorf("store.timeout_seconds must be between 1 and 300, got: %d", config.Store.TimeoutSeconds)
	}

	if strings.TrimSpace(config.Categories.FallbackName) == "" {
		return fmt.Errorf("categories.fallback_name must not be empty")
	}

	if len(config.Pipeline.DefaultCurrency) != 3 {
		return fmt.Errorf("pipeline.default_currency must be a 3-letter ISO code, got: %s", config.Pipeline.DefaultCurrency)
	}

	if config.Pipeline.Workers < 1 || config.Pipeline.Workers > 64 {
		return fmt.Errorf("pipeline.workers must be between 1 and 64, got: %d", config.Pipeline.Workers)
	}

	if config.Validation.MaxDescriptionLength < 1 || config.Validation.MaxVendorLength < 1 {
		return fmt.Errorf("validation length limits must be positive")
	}

	if config.Validation.MaxAmountScale < 0 || config.Validation.MaxAmountScale > 4 {
		return fmt.Errorf("validation.max_amount_scale must be between 0 and 4, got: %d", config.Validation.MaxAmountScale)
	}

	return nil
}
