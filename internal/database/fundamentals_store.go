package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/logger"
	"github.com/nsedesk/signalengine/internal/models"
)

// FundamentalsStore upserts and queries per-symbol fundamentals snapshots,
// one row per symbol replaced wholesale on each refresh.
type FundamentalsStore struct {
	db     *DB
	logger zerolog.Logger

	upsertStmt *sql.Stmt
	getStmt    *sql.Stmt
}

// NewFundamentalsStore prepares the statements FundamentalsStore needs.
func NewFundamentalsStore(db *DB) (*FundamentalsStore, error) {
	log := logger.NewContextLogger("fundamentals_store")

	s := &FundamentalsStore{db: db, logger: log}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

// Close closes all prepared statements.
func (s *FundamentalsStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.upsertStmt, s.getStmt} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				s.logger.Error().Err(err).Msg("Failed to close prepared statement")
			}
		}
	}
	return nil
}

// Upsert replaces the stored fundamentals snapshot for f.Symbol.
func (s *FundamentalsStore) Upsert(ctx context.Context, f models.Fundamentals) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid fundamentals for %s: %w", f.Symbol, err)
	}

	start := time.Now()
	var err error
	defer func() {
		logger.LogPerformance(s.logger, "upsert_fundamentals", start, err == nil)
	}()

	raw := f.Raw
	if raw == nil {
		raw = json.RawMessage("{}")
	}

	_, err = s.upsertStmt.ExecContext(ctx,
		f.Symbol, nullFloat(f.PE), nullFloat(f.PB), nullFloat(f.ROE), nullFloat(f.DebtToEquity),
		nullFloat(f.MarketCap), nullFloat(f.DividendYield), f.Sector, f.Industry, raw, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fundamentals: %w", err)
	}
	return nil
}

// Get returns the stored fundamentals snapshot for symbol, or false if none
// exists.
func (s *FundamentalsStore) Get(ctx context.Context, symbol string) (models.Fundamentals, bool, error) {
	var f models.Fundamentals
	var pe, pb, roe, de, mc, dy sql.NullFloat64
	var raw []byte

	err := s.getStmt.QueryRowContext(ctx, symbol).Scan(
		&f.Symbol, &pe, &pb, &roe, &de, &mc, &dy, &f.Sector, &f.Industry, &raw, &f.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Fundamentals{}, false, nil
		}
		return models.Fundamentals{}, false, fmt.Errorf("failed to get fundamentals: %w", err)
	}

	f.PE = fromNullFloat(pe)
	f.PB = fromNullFloat(pb)
	f.ROE = fromNullFloat(roe)
	f.DebtToEquity = fromNullFloat(de)
	f.MarketCap = fromNullFloat(mc)
	f.DividendYield = fromNullFloat(dy)
	f.Raw = raw

	return f, true, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromNullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func (s *FundamentalsStore) prepareStatements() error {
	var err error

	upsertSQL := `
		INSERT INTO fundamentals (symbol, pe, pb, roe, debt_to_equity, market_cap, dividend_yield, sector, industry, raw, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (symbol) DO UPDATE SET
			pe = EXCLUDED.pe, pb = EXCLUDED.pb, roe = EXCLUDED.roe,
			debt_to_equity = EXCLUDED.debt_to_equity, market_cap = EXCLUDED.market_cap,
			dividend_yield = EXCLUDED.dividend_yield, sector = EXCLUDED.sector,
			industry = EXCLUDED.industry, raw = EXCLUDED.raw, updated_at = EXCLUDED.updated_at`
	if s.upsertStmt, err = s.db.conn.Prepare(upsertSQL); err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	getSQL := `
		SELECT symbol, pe, pb, roe, debt_to_equity, market_cap, dividend_yield, sector, industry, raw, updated_at
		FROM fundamentals WHERE symbol = $1`
	if s.getStmt, err = s.db.conn.Prepare(getSQL); err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.logger.Info().Msg("All prepared statements created successfully")
	return nil
}
