package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/sma-results-api/pkg/config"
)

const applicationName = "sma-results-api"

// DSN renders the lib/pq connection string. Durations are sent to the server in
// milliseconds; zero values leave the server defaults in place.
func DSN(cfg config.DatabaseConfig) string {
	parts := []string{
		fmt.Sprintf("host=%s", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("user=%s", cfg.User),
		fmt.Sprintf("password=%s", cfg.Password),
		fmt.Sprintf("dbname=%s", cfg.Name),
		fmt.Sprintf("sslmode=%s", cfg.SSLMode),
		fmt.Sprintf("application_name=%s", applicationName),
	}
	if cfg.ConnectTimeout > 0 {
		seconds := int(cfg.ConnectTimeout.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", seconds))
	}
	if cfg.StatementTimeout > 0 {
		parts = append(parts, fmt.Sprintf("options='-c statement_timeout=%d'", cfg.StatementTimeout.Milliseconds()))
	}
	return strings.Join(parts, " ")
}

// NewPostgres opens the pool and verifies it answers before returning.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	db.SetConnMaxIdleTime(30 * time.Minute)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return db, nil
}
