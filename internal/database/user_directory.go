package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/logger"
)

// Subscriber is a broadcast recipient: an opaque delivery address (e.g. a
// chat ID or webhook URL) and whether it currently receives signals.
type Subscriber struct {
	ID       string `db:"id"`
	Address  string `db:"address"`
	IsActive bool   `db:"is_active"`
}

// UserDirectory is the capability interface BroadcastSink's broadcast mode
// depends on for its subscriber snapshot. Registration, rate limiting, and
// admin approval live outside the signal pipeline; this interface is the
// only surface the pipeline needs from that system.
type UserDirectory interface {
	ActiveSubscribers(ctx context.Context) ([]Subscriber, error)
}

// PostgresUserDirectory is the default UserDirectory backed by Postgres.
type PostgresUserDirectory struct {
	db     *DB
	logger zerolog.Logger

	listActiveStmt *sql.Stmt
}

// NewPostgresUserDirectory prepares the statement PostgresUserDirectory
// needs.
func NewPostgresUserDirectory(db *DB) (*PostgresUserDirectory, error) {
	log := logger.NewContextLogger("user_directory")

	d := &PostgresUserDirectory{db: db, logger: log}

	stmt, err := db.conn.Prepare(`SELECT id, address, is_active FROM users WHERE is_active = true ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare list active users statement: %w", err)
	}
	d.listActiveStmt = stmt

	return d, nil
}

// Close closes the prepared statement.
func (d *PostgresUserDirectory) Close() error {
	if d.listActiveStmt != nil {
		return d.listActiveStmt.Close()
	}
	return nil
}

// ActiveSubscribers returns a snapshot of every user with is_active=true
// at the time of the call.
func (d *PostgresUserDirectory) ActiveSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := d.listActiveStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscribers: %w", err)
	}
	defer rows.Close()

	var out []Subscriber
	for rows.Next() {
		var sub Subscriber
		if err := rows.Scan(&sub.ID, &sub.Address, &sub.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriber rows: %w", err)
	}
	return out, nil
}
