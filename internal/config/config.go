package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port        string   `yaml:"port" env:"SERVER_PORT"`
		Mode        string   `yaml:"mode" env:"SERVER_MODE"`
		BaseURL     string   `yaml:"base_url" env:"SERVER_BASE_URL"`
		CorsOrigins []string `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Addr          string `yaml:"addr" env:"REDIS_ADDR"`
		Password      string `yaml:"password" env:"REDIS_PASSWORD"`
		DB            int    `yaml:"db" env:"REDIS_DB"`
		AdminCacheTTL string `yaml:"admin_cache_ttl" env:"REDIS_ADMIN_CACHE_TTL"`
	} `yaml:"redis"`

	Push struct {
		CredentialsFile string `yaml:"credentials_file" env:"PUSH_CREDENTIALS_FILE"`
		ProjectID       string `yaml:"project_id" env:"PUSH_PROJECT_ID"`
		BatchSize       int    `yaml:"batch_size" env:"PUSH_BATCH_SIZE"`
	} `yaml:"push"`

	Sweep struct {
		Schedule   string `yaml:"schedule" env:"SWEEP_SCHEDULE"`
		SecretHash string `yaml:"secret_hash" env:"SWEEP_SECRET_HASH"`
		Retention  string `yaml:"retention" env:"SWEEP_RETENTION"`
	} `yaml:"sweep"`

	Rooms struct {
		DefaultDuration string `yaml:"default_duration" env:"ROOMS_DEFAULT_DURATION"`
		VoteWindow      string `yaml:"vote_window" env:"ROOMS_VOTE_WINDOW"`
		JoinLock        string `yaml:"join_lock" env:"ROOMS_JOIN_LOCK"`
		RevealLead      string `yaml:"reveal_lead" env:"ROOMS_REVEAL_LEAD"`
	} `yaml:"rooms"`

	Admin struct {
		UIDs []string `yaml:"uids" env:"ADMIN_UIDS"`
	} `yaml:"admin"`
}

// LoadConfig loads configuration from a file, a local .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; real environment variables always win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:3000"
	config.Server.CorsOrigins = []string{"http://localhost:3000"}

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "moim"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.AccessTokenExpiration = "24h"
	config.JWT.Issuer = "moim.app"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.AdminCacheTTL = "5m"

	config.Push.BatchSize = 500

	config.Sweep.Retention = "720h"

	config.Rooms.DefaultDuration = "2h"
	config.Rooms.VoteWindow = "24h"
	config.Rooms.JoinLock = "10m"
	config.Rooms.RevealLead = "1h"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"jwt.access_token_expiration": config.JWT.AccessTokenExpiration,
		"sweep.retention":             config.Sweep.Retention,
		"rooms.default_duration":      config.Rooms.DefaultDuration,
		"rooms.vote_window":           config.Rooms.VoteWindow,
		"rooms.join_lock":             config.Rooms.JoinLock,
		"rooms.reveal_lead":           config.Rooms.RevealLead,
		"redis.admin_cache_ttl":       config.Redis.AdminCacheTTL,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}

	if config.Push.BatchSize <= 0 || config.Push.BatchSize > 500 {
		return fmt.Errorf("push batch size must be between 1 and 500")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// RedisEnabled reports whether a redis address was configured
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
