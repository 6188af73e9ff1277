package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/logger"
	"github.com/nsedesk/signalengine/internal/models"
)

// InstrumentStore is the symbol registry: which instruments exist, their
// sector/index membership, and whether they are active. Deletions are
// always soft (Active=false) so historical candles/signals keep a valid
// foreign key.
type InstrumentStore struct {
	db     *DB
	logger zerolog.Logger

	upsertStmt      *sql.Stmt
	getStmt         *sql.Stmt
	deactivateStmt  *sql.Stmt
	listActiveStmt  *sql.Stmt
}

// NewInstrumentStore prepares the statements InstrumentStore needs.
func NewInstrumentStore(db *DB) (*InstrumentStore, error) {
	log := logger.NewContextLogger("instrument_store")

	s := &InstrumentStore{db: db, logger: log}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

// Close closes all prepared statements.
func (s *InstrumentStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.upsertStmt, s.getStmt, s.deactivateStmt, s.listActiveStmt} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				s.logger.Error().Err(err).Msg("Failed to close prepared statement")
			}
		}
	}
	return nil
}

// Upsert inserts or updates an instrument's reference data.
func (s *InstrumentStore) Upsert(ctx context.Context, inst models.Instrument) error {
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("invalid instrument %s: %w", inst.Symbol, err)
	}

	_, err := s.upsertStmt.ExecContext(ctx,
		inst.Symbol, inst.DisplayName, inst.Sector, inst.Industry,
		inst.IsIndex50, inst.IsIndex100, inst.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert instrument: %w", err)
	}
	return nil
}

// Get returns an instrument by symbol, or false if it does not exist.
func (s *InstrumentStore) Get(ctx context.Context, symbol string) (models.Instrument, bool, error) {
	var inst models.Instrument
	err := s.getStmt.QueryRowContext(ctx, symbol).Scan(
		&inst.Symbol, &inst.DisplayName, &inst.Sector, &inst.Industry,
		&inst.IsIndex50, &inst.IsIndex100, &inst.Active, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Instrument{}, false, nil
		}
		return models.Instrument{}, false, fmt.Errorf("failed to get instrument: %w", err)
	}
	return inst, true, nil
}

// Deactivate soft-deletes an instrument.
func (s *InstrumentStore) Deactivate(ctx context.Context, symbol string) error {
	_, err := s.deactivateStmt.ExecContext(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to deactivate instrument: %w", err)
	}
	return nil
}

// ListActive returns every instrument with Active=true, the universe
// SyncScheduler iterates over.
func (s *InstrumentStore) ListActive(ctx context.Context) ([]models.Instrument, error) {
	rows, err := s.listActiveStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active instruments: %w", err)
	}
	defer rows.Close()

	var out []models.Instrument
	for rows.Next() {
		var inst models.Instrument
		if err := rows.Scan(
			&inst.Symbol, &inst.DisplayName, &inst.Sector, &inst.Industry,
			&inst.IsIndex50, &inst.IsIndex100, &inst.Active, &inst.CreatedAt, &inst.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan instrument row: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instrument rows: %w", err)
	}
	return out, nil
}

func (s *InstrumentStore) prepareStatements() error {
	var err error

	upsertSQL := `
		INSERT INTO instruments (symbol, display_name, sector, industry, is_index_50, is_index_100, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (symbol) DO UPDATE SET
			display_name = EXCLUDED.display_name, sector = EXCLUDED.sector, industry = EXCLUDED.industry,
			is_index_50 = EXCLUDED.is_index_50, is_index_100 = EXCLUDED.is_index_100,
			active = EXCLUDED.active, updated_at = now()`
	if s.upsertStmt, err = s.db.conn.Prepare(upsertSQL); err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	getSQL := `
		SELECT symbol, display_name, sector, industry, is_index_50, is_index_100, active, created_at, updated_at
		FROM instruments WHERE symbol = $1`
	if s.getStmt, err = s.db.conn.Prepare(getSQL); err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	deactivateSQL := `UPDATE instruments SET active = false, updated_at = now() WHERE symbol = $1`
	if s.deactivateStmt, err = s.db.conn.Prepare(deactivateSQL); err != nil {
		return fmt.Errorf("failed to prepare deactivate statement: %w", err)
	}

	listActiveSQL := `
		SELECT symbol, display_name, sector, industry, is_index_50, is_index_100, active, created_at, updated_at
		FROM instruments WHERE active = true ORDER BY symbol ASC`
	if s.listActiveStmt, err = s.db.conn.Prepare(listActiveSQL); err != nil {
		return fmt.Errorf("failed to prepare list active statement: %w", err)
	}

	s.logger.Info().Msg("All prepared statements created successfully")
	return nil
}
