package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string   `yaml:"port" env:"SERVER_PORT"`
		Host            string   `yaml:"host" env:"SERVER_HOST"`
		Mode            string   `yaml:"mode" env:"SERVER_MODE"`
		BaseURL         string   `yaml:"base_url" env:"SERVER_BASE_URL"`
		StoragePath     string   `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		MaxUploadSizeMB int      `yaml:"max_upload_size_mb" env:"SERVER_MAX_UPLOAD_SIZE_MB"`
		ReadTimeout     string   `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    string   `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		CORSOrigins     []string `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
	} `yaml:"server"`

	Database struct {
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
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	// Redis backs the list query cache. An empty address keeps the cache in process.
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		CacheTTL string `yaml:"cache_ttl" env:"REDIS_CACHE_TTL"`
		Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
	} `yaml:"redis"`

	SMTP struct {
		Host      string `yaml:"host" env:"SMTP_HOST"`
		Port      int    `yaml:"port" env:"SMTP_PORT"`
		Username  string `yaml:"username" env:"SMTP_USERNAME"`
		Password  string `yaml:"password" env:"SMTP_PASSWORD"`
		FromEmail string `yaml:"from_email" env:"SMTP_FROM_EMAIL"`
		FromName  string `yaml:"from_name" env:"SMTP_FROM_NAME"`
	} `yaml:"smtp"`

	Reports struct {
		SchoolName     string  `yaml:"school_name" env:"REPORTS_SCHOOL_NAME"`
		TestWeight     float64 `yaml:"test_weight" env:"REPORTS_TEST_WEIGHT"`
		TaskWeight     float64 `yaml:"task_weight" env:"REPORTS_TASK_WEIGHT"`
		HomeworkWeight float64 `yaml:"homework_weight" env:"REPORTS_HOMEWORK_WEIGHT"`
	} `yaml:"reports"`

	Jobs struct {
		ReaperSchedule      string `yaml:"reaper_schedule" env:"JOBS_REAPER_SCHEDULE"`
		AttachmentRetention string `yaml:"attachment_retention" env:"JOBS_ATTACHMENT_RETENTION"`
		TokenCleanup        string `yaml:"token_cleanup_schedule" env:"JOBS_TOKEN_CLEANUP_SCHEDULE"`
	} `yaml:"jobs"`

	// Seed creates the first admin account. Both values come from the environment only.
	Seed struct {
		AdminEmail    string `yaml:"-" env:"SEED_ADMIN_EMAIL"`
		AdminPassword string `yaml:"-" env:"SEED_ADMIN_PASSWORD"`
	} `yaml:"-"`
}

// LoadConfig loads configuration from a .env file, a yaml file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// A missing .env is the normal case outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
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
	config.Server.BaseURL = "http://localhost:8080"
	config.Server.StoragePath = "./uploads"
	config.Server.MaxUploadSizeMB = 10
	config.Server.ReadTimeout = "15s"
	config.Server.WriteTimeout = "30s"
	config.Server.CORSOrigins = []string{"http://localhost:5173"}

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.DBName = "madrasa"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "./migrations"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "madrasa.app"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.CacheTTL = "5m"
	config.Redis.Prefix = "madrasa"

	config.SMTP.Port = 587
	config.SMTP.FromName = "Madrasa Administratie"

	config.Reports.SchoolName = "Madrasa"
	config.Reports.TestWeight = 0.5
	config.Reports.TaskWeight = 0.3
	config.Reports.HomeworkWeight = 0.2

	config.Jobs.ReaperSchedule = "@every 1h"
	config.Jobs.AttachmentRetention = "24h"
	config.Jobs.TokenCleanup = "@daily"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"JWT access token expiration":  config.JWT.AccessTokenExpiration,
		"JWT refresh token expiration": config.JWT.RefreshTokenExpiration,
		"redis cache TTL":              config.Redis.CacheTTL,
		"attachment retention":         config.Jobs.AttachmentRetention,
		"server read timeout":          config.Server.ReadTimeout,
		"server write timeout":         config.Server.WriteTimeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	weights := []float64{config.Reports.TestWeight, config.Reports.TaskWeight, config.Reports.HomeworkWeight}
	var total float64
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("report grade weights must not be negative")
		}
		total += w
	}
	if total == 0 {
		return fmt.Errorf("at least one report grade weight must be positive")
	}

	if config.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("max upload size must be positive")
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

// IsProduction reports whether the server runs in release mode
func (c *Config) IsProduction() bool {
	mode := strings.ToLower(c.Server.Mode)
	return mode == "production" || mode == "release"
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt gets an environment variable as an integer or returns a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
