package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Grading     GradingConfig
	Reports     ReportsConfig
	Consistency ConsistencyConfig
	Jobs        JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	// StatementTimeout caps a single query; consistency scans run in chunks well below it.
	StatementTimeout time.Duration
	ConnectTimeout   time.Duration
	ConnMaxLifetime  time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GradingConfig controls how grading table changes propagate between instances.
type GradingConfig struct {
	ReloadChannel    string
	RederiveOnReload bool
}

// ReportsConfig selects the ranking conventions of the two report types.
type ReportsConfig struct {
	StudentRankDense    bool
	ClassRankDense      bool
	MissingResultPolicy string
}

// ConsistencyConfig bounds consistency scans and repair runs.
type ConsistencyConfig struct {
	ChunkSize int
	LockTTL   time.Duration
	CacheTTL  time.Duration
}

// JobsConfig sizes the background worker queue.
type JobsConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),

		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 30*time.Second),
		ConnectTimeout:   parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 5*time.Second),
		ConnMaxLifetime:  parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Grading = GradingConfig{
		ReloadChannel:    v.GetString("GRADING_RELOAD_CHANNEL"),
		RederiveOnReload: v.GetBool("GRADING_REDERIVE_ON_RELOAD"),
	}

	cfg.Reports = ReportsConfig{
		StudentRankDense:    v.GetBool("REPORTS_STUDENT_RANK_DENSE"),
		ClassRankDense:      v.GetBool("REPORTS_CLASS_RANK_DENSE"),
		MissingResultPolicy: v.GetString("REPORTS_MISSING_RESULT_POLICY"),
	}

	chunkSize := v.GetInt("CONSISTENCY_CHUNK_SIZE")
	if chunkSize <= 0 {
		chunkSize = 500
	}
	cfg.Consistency = ConsistencyConfig{
		ChunkSize: chunkSize,
		LockTTL:   parseDuration(v.GetString("CONSISTENCY_LOCK_TTL"), 10*time.Minute),
		CacheTTL:  parseDuration(v.GetString("CONSISTENCY_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		Retries:    v.GetInt("JOBS_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), 2*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_results")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GRADING_RELOAD_CHANNEL", "grading:tables:reload")
	v.SetDefault("GRADING_REDERIVE_ON_RELOAD", false)

	v.SetDefault("REPORTS_STUDENT_RANK_DENSE", false)
	v.SetDefault("REPORTS_CLASS_RANK_DENSE", true)
	v.SetDefault("REPORTS_MISSING_RESULT_POLICY", "exclude")

	v.SetDefault("CONSISTENCY_CHUNK_SIZE", 500)
	v.SetDefault("CONSISTENCY_LOCK_TTL", "10m")
	v.SetDefault("CONSISTENCY_CACHE_TTL", "15m")

	v.SetDefault("JOBS_WORKERS", 1)
	v.SetDefault("JOBS_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "2s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
