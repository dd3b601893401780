package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// loaded from environment variables, no magic defaults for required fields.
type Config struct {
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Reporting ReportingConfig
	Worker    WorkerConfig
	Log       LogConfig
	HTTP      HTTPConfig
}

// DatabaseConfig contains database connection parameters.
// URL wins over the individual fields when set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Schema   string
	MaxConns int32
}

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	// JWTSecret signs pastoral panel session tokens
	JWTSecret string

	// TokenTTL is how long a panel session lasts
	TokenTTL time.Duration

	// AdminToken guards the congregation admin endpoints. empty disables them.
	AdminToken string
}

// RedisConfig contains the optional leaderboard cache connection.
type RedisConfig struct {
	URL string
}

// ReportingConfig controls aggregation defaults.
type ReportingConfig struct {
	IncludeUndated     bool
	RankingLimit       int
	RefreshInterval    time.Duration
	RefreshConcurrency int
	Timezone           *time.Location
}

// WorkerConfig sizes the async report ingestion buffer.
type WorkerConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// LogConfig selects log level, format and the optional rotating file.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// HTTPConfig contains listener settings.
type HTTPConfig struct {
	Port        string
	CORSOrigins []string
}

// ConnectionString returns the postgres connection string.
func (c DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
		c.Schema,
	)
}

// Load reads configuration from environment variables.
// loads .env file if present, but doesn't fail if it's missing.
func Load() (*Config, error) {
	// try to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	authConfig, err := loadAuthConfig()
	if err != nil {
		return nil, fmt.Errorf("auth config: %w", err)
	}

	reportingConfig, err := loadReportingConfig()
	if err != nil {
		return nil, fmt.Errorf("reporting config: %w", err)
	}

	workerConfig, err := loadWorkerConfig()
	if err != nil {
		return nil, fmt.Errorf("worker config: %w", err)
	}

	return &Config{
		Database:  dbConfig,
		Auth:      authConfig,
		Redis:     RedisConfig{URL: os.Getenv("REDIS_URL")},
		Reporting: reportingConfig,
		Worker:    workerConfig,
		Log:       loadLogConfig(),
		HTTP:      loadHTTPConfig(),
	}, nil
}

// LoadDatabase reads only the database section, for commands that never serve http.
func LoadDatabase() (DatabaseConfig, error) {
	_ = godotenv.Load()
	return loadDatabaseConfig()
}

// LoadLog reads only the log section.
func LoadLog() LogConfig {
	_ = godotenv.Load()
	return loadLogConfig()
}

func loadAuthConfig() (AuthConfig, error) {
	ttl, err := getDuration("TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}

	config := AuthConfig{
		JWTSecret:  os.Getenv("JWT_SECRET"),
		TokenTTL:   ttl,
		AdminToken: os.Getenv("ADMIN_TOKEN"),
	}

	if config.JWTSecret == "" {
		return config, errors.New("JWT_SECRET is required")
	}
	if len(config.JWTSecret) < 32 {
		return config, errors.New("JWT_SECRET must be at least 32 characters")
	}

	return config, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	config := DatabaseConfig{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		SSLMode:  getEnvOrDefault("DB_SSL_MODE", "require"),
		Schema:   getEnvOrDefault("DB_SCHEMA", "yujo"),
	}

	maxConns, err := getInt("DB_MAX_CONNS", 10)
	if err != nil {
		return config, err
	}
	if maxConns < 1 {
		return config, errors.New("DB_MAX_CONNS must be positive")
	}
	config.MaxConns = int32(maxConns)

	if config.URL != "" {
		return config, nil
	}

	// required fields must be set
	if config.User == "" {
		return config, errors.New("DATABASE_URL or DB_USER is required")
	}
	if config.Password == "" {
		return config, errors.New("DB_PASSWORD is required")
	}
	if config.Name == "" {
		return config, errors.New("DB_NAME is required")
	}

	return config, nil
}

func loadReportingConfig() (ReportingConfig, error) {
	includeUndated, err := getBool("REPORTING_INCLUDE_UNDATED", false)
	if err != nil {
		return ReportingConfig{}, err
	}
	limit, err := getInt("REPORTING_RANKING_LIMIT", 3)
	if err != nil {
		return ReportingConfig{}, err
	}
	if limit < 1 {
		return ReportingConfig{}, errors.New("REPORTING_RANKING_LIMIT must be positive")
	}
	interval, err := getDuration("LEADERBOARD_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return ReportingConfig{}, err
	}
	concurrency, err := getInt("LEADERBOARD_REFRESH_CONCURRENCY", 4)
	if err != nil {
		return ReportingConfig{}, err
	}

	// dates are naive calendar dates read in one zone
	loc := time.Local
	if tz := os.Getenv("REPORTING_TIMEZONE"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return ReportingConfig{}, fmt.Errorf("REPORTING_TIMEZONE: %w", err)
		}
	}

	return ReportingConfig{
		IncludeUndated:     includeUndated,
		RankingLimit:       limit,
		RefreshInterval:    interval,
		RefreshConcurrency: concurrency,
		Timezone:           loc,
	}, nil
}

func loadWorkerConfig() (WorkerConfig, error) {
	buffer, err := getInt("INGEST_BUFFER_SIZE", 1000)
	if err != nil {
		return WorkerConfig{}, err
	}
	batch, err := getInt("INGEST_BATCH_SIZE", 100)
	if err != nil {
		return WorkerConfig{}, err
	}
	flush, err := getDuration("INGEST_FLUSH_INTERVAL", 2*time.Second)
	if err != nil {
		return WorkerConfig{}, err
	}
	if batch > buffer {
		return WorkerConfig{}, errors.New("INGEST_BATCH_SIZE cannot exceed INGEST_BUFFER_SIZE")
	}
	return WorkerConfig{BufferSize: buffer, BatchSize: batch, FlushInterval: flush}, nil
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "auto"),
		File:   os.Getenv("LOG_FILE"),
	}
}

func loadHTTPConfig() HTTPConfig {
	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return HTTPConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		CORSOrigins: origins,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
