package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/config"
	"github.com/nsedesk/signalengine/internal/logger"
)

// DB wraps a pooled *sql.DB with the transaction helper every store shares.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// NewConnection opens a pooled Postgres connection and verifies it with a
// bounded ping before returning.
func NewConnection(cfg config.DatabaseConfig) (*DB, error) {
	logger := logger.NewContextLogger("database")

	connStr := buildConnectionString(cfg)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxConnections)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("max_connections", cfg.MaxConnections).
		Msg("Database connection established")

	return &DB{
		conn:   conn,
		logger: logger,
	}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Ping checks if the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// ExecuteInTransaction runs fn inside a transaction, committing on success
// and rolling back on error or panic.
func (db *DB) ExecuteInTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				db.logger.Error().Err(commitErr).Msg("Failed to commit transaction")
				err = commitErr
			}
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck reports pool connectivity and statistics for the status
// surface.
func (db *DB) HealthCheck(ctx context.Context) map[string]interface{} {
	result := make(map[string]interface{})

	if err := db.Ping(ctx); err != nil {
		result["status"] = "unhealthy"
		result["error"] = err.Error()
		return result
	}

	stats := db.conn.Stats()
	result["status"] = "healthy"
	result["open_connections"] = stats.OpenConnections
	result["in_use"] = stats.InUse
	result["idle"] = stats.Idle
	result["wait_count"] = stats.WaitCount
	result["wait_duration"] = stats.WaitDuration.String()
	result["max_idle_closed"] = stats.MaxIdleClosed
	result["max_idle_time_closed"] = stats.MaxIdleTimeClosed
	result["max_lifetime_closed"] = stats.MaxLifetimeClosed

	return result
}

func buildConnectionString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}
