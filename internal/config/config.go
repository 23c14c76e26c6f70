package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Plans    PlansConfig    `mapstructure:"plans"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// UpstreamConfig points at the training service this gateway fronts.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// JWTConfig defines JWT specific configuration. The gateway verifies tokens
// issued by the dashboard's auth service; it never mints its own.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// CacheConfig controls the in-memory season cache.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// PlansConfig tunes plan generation polling and draft retention.
type PlansConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	DraftTTL          time.Duration `mapstructure:"draft_ttl"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	// Set the path to look for the config file in
	viper.AddConfigPath(path)
	// Set the name of the config file (without extension)
	viper.SetConfigName("config")
	// Set the type of the config file
	viper.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	viper.AutomaticEnv()
	// Use replacer for nested keys e.g., upstream.base_url -> UPSTREAM_BASE_URL
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// --- Set default values ---
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "tridash_gateway")
	viper.SetDefault("upstream.base_url", "http://localhost:8000")
	viper.SetDefault("upstream.timeout", "15s")
	viper.SetDefault("cache.ttl", "5m")
	viper.SetDefault("cache.sweep_interval", "1m")
	viper.SetDefault("plans.poll_interval", "2s")
	viper.SetDefault("plans.generation_timeout", "3m")
	viper.SetDefault("plans.draft_ttl", "24h")

	// --- Read Config File ---
	err = viper.ReadInConfig()
	// If config file not found, continue on defaults and env vars.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	// --- Unmarshal Config ---
	// Duration strings ("15s", "5m", "24h") parse directly into the
	// time.Duration fields.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
