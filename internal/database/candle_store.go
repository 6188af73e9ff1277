package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/logger"
	"github.com/nsedesk/signalengine/internal/models"
)

// CandleStore persists and queries candles, keyed by (symbol, timeframe,
// time). InsertBatch is idempotent: re-inserting an already-stored candle is
// a no-op rather than an error or a duplicate row.
type CandleStore struct {
	db     *DB
	logger zerolog.Logger
	locks  *keyedMutex

	insertStmt  *sql.Stmt
	latestStmt  *sql.Stmt
	rangeStmt   *sql.Stmt
	tailStmt    *sql.Stmt
}

// NewCandleStore prepares the statements CandleStore needs against db.
func NewCandleStore(db *DB) (*CandleStore, error) {
	log := logger.NewContextLogger("candle_store")

	s := &CandleStore{
		db:     db,
		logger: log,
		locks:  newKeyedMutex(),
	}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

// Close closes all prepared statements.
func (s *CandleStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.latestStmt, s.rangeStmt, s.tailStmt} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				s.logger.Error().Err(err).Msg("Failed to close prepared statement")
			}
		}
	}
	return nil
}

func candleLockKey(symbol string, tf models.Timeframe) string {
	return symbol + ":" + tf.String()
}

// InsertBatch idempotently stores candles inside a single transaction via
// ON CONFLICT DO NOTHING, keyed on (symbol, timeframe, time). Candles for
// different symbols never block each other; same-key batches serialize on a
// per-(symbol,timeframe) mutex so overlapping syncs of the same instrument
// can't race each other's transactions.
func (s *CandleStore) InsertBatch(ctx context.Context, candles []models.Candle) (inserted int, err error) {
	if len(candles) == 0 {
		return 0, nil
	}

	for _, c := range candles {
		if verr := c.Validate(); verr != nil {
			return 0, fmt.Errorf("invalid candle %s %s %s: %w", c.Symbol, c.Timeframe, c.Time, verr)
		}
	}

	key := candleLockKey(candles[0].Symbol, candles[0].Timeframe)
	mu := s.locks.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	defer func() {
		logger.LogPerformance(s.logger, "insert_batch_candles", start, err == nil)
	}()

	txErr := s.db.ExecuteInTransaction(ctx, func(tx *sql.Tx) error {
		stmt := tx.Stmt(s.insertStmt)
		defer stmt.Close()

		for _, c := range candles {
			res, execErr := stmt.ExecContext(ctx,
				c.Symbol, c.Timeframe, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume,
			)
			if execErr != nil {
				return fmt.Errorf("failed to insert candle: %w", execErr)
			}
			if n, raErr := res.RowsAffected(); raErr == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}

	s.logger.Debug().
		Str("symbol", candles[0].Symbol).
		Str("timeframe", candles[0].Timeframe.String()).
		Int("submitted", len(candles)).
		Int("inserted", inserted).
		Msg("candle batch inserted")

	return inserted, nil
}

// LatestTime returns the time of the most recent candle for (symbol,
// timeframe), or the zero time and false if none exist.
func (s *CandleStore) LatestTime(ctx context.Context, symbol string, tf models.Timeframe) (time.Time, bool, error) {
	var t time.Time
	err := s.latestStmt.QueryRowContext(ctx, symbol, tf).Scan(&t)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get latest candle time: %w", err)
	}
	return t, true, nil
}

// Range returns candles for (symbol, timeframe) within [from, to], ascending
// by time.
func (s *CandleStore) Range(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) (models.Window, error) {
	rows, err := s.rangeStmt.QueryContext(ctx, symbol, tf, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candle range: %w", err)
	}
	defer rows.Close()
	return scanCandles(rows)
}

// Tail returns the most recent n candles for (symbol, timeframe), ascending
// by time (oldest first), the shape IndicatorEngine/SRDetector/ScoringStrategy
// all expect.
func (s *CandleStore) Tail(ctx context.Context, symbol string, tf models.Timeframe, n int) (models.Window, error) {
	rows, err := s.tailStmt.QueryContext(ctx, symbol, tf, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query candle tail: %w", err)
	}
	defer rows.Close()

	w, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}
	// tailStmt orders DESC to apply LIMIT against the most recent rows;
	// reverse back to ascending for callers.
	for i, j := 0, len(w)-1; i < j; i, j = i+1, j-1 {
		w[i], w[j] = w[j], w[i]
	}
	return w, nil
}

func scanCandles(rows *sql.Rows) (models.Window, error) {
	var out models.Window
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candle rows: %w", err)
	}
	return out, nil
}

func (s *CandleStore) prepareStatements() error {
	var err error

	insertSQL := `
		INSERT INTO candles (symbol, timeframe, time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe, time) DO NOTHING`
	if s.insertStmt, err = s.db.conn.Prepare(insertSQL); err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	latestSQL := `
		SELECT time FROM candles
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY time DESC LIMIT 1`
	if s.latestStmt, err = s.db.conn.Prepare(latestSQL); err != nil {
		return fmt.Errorf("failed to prepare latest statement: %w", err)
	}

	rangeSQL := `
		SELECT symbol, timeframe, time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND time BETWEEN $3 AND $4
		ORDER BY time ASC`
	if s.rangeStmt, err = s.db.conn.Prepare(rangeSQL); err != nil {
		return fmt.Errorf("failed to prepare range statement: %w", err)
	}

	tailSQL := `
		SELECT symbol, timeframe, time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY time DESC LIMIT $3`
	if s.tailStmt, err = s.db.conn.Prepare(tailSQL); err != nil {
		return fmt.Errorf("failed to prepare tail statement: %w", err)
	}

	s.logger.Info().Msg("All prepared statements created successfully")
	return nil
}
