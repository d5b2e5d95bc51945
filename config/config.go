package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
		Redis struct {
			Host            string `mapstructure:"host"`
			Port            string `mapstructure:"port"`
			DB              int    `mapstructure:"db"`
			CacheTTLSeconds int    `mapstructure:"cacheTTL"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	Vector struct {
		URL        string `mapstructure:"url"`
		APIKey     string `mapstructure:"apiKey"`
		Collection string `mapstructure:"collection"`
		Dimension  int    `mapstructure:"dimension"`
		Model      string `mapstructure:"model"`
	} `mapstructure:"vector"`
	Spatial struct {
		H3Resolution int `mapstructure:"h3Resolution"`
	} `mapstructure:"spatial"`
	Planner struct {
		CircularRouting bool `mapstructure:"circularRouting"`
		PoolSize        int  `mapstructure:"poolSize"`
	} `mapstructure:"planner"`
}

// CacheTTL converts the configured Redis TTL to a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Repositories.Redis.CacheTTLSeconds) * time.Second
}

// envBindings maps config keys to the environment variables that override
// them. Deployment environments set these instead of shipping a config.yml.
var envBindings = map[string]string{
	"mode":                           "APP_ENV",
	"server.HTTPPort":                "HTTP_PORT",
	"repositories.postgres.host":     "DB_HOST",
	"repositories.postgres.port":     "DB_PORT",
	"repositories.postgres.db":       "DB_NAME",
	"repositories.postgres.username": "DB_USER",
	"repositories.postgres.password": "DB_PASSWORD",
	"repositories.redis.host":        "REDIS_HOST",
	"repositories.redis.port":        "REDIS_PORT",
	"repositories.redis.db":          "REDIS_DB",
	"repositories.redis.cacheTTL":    "REDIS_CACHE_TTL",
	"vector.url":                     "QDRANT_URL",
	"vector.apiKey":                  "QDRANT_API_KEY",
	"vector.collection":              "QDRANT_COLLECTION_NAME",
	"vector.dimension":               "VECTOR_DIMENSION",
	"vector.model":                   "EMBEDDING_MODEL",
	"spatial.h3Resolution":           "H3_RESOLUTION",
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	v.AutomaticEnv()

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
