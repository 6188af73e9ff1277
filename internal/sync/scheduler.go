// Package syncscheduler reconciles local candle state with the external
// market-data vendor under a bounded worker pool.
package syncscheduler

import (
	"context"
	"fmt"
	"math"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/apperr"
	"github.com/nsedesk/signalengine/internal/database"
	"github.com/nsedesk/signalengine/internal/marketdata"
	"github.com/nsedesk/signalengine/internal/models"
)

// Mode selects how Scheduler treats a task's existing candle state.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
	ModeForce       Mode = "force"
)

const (
	defaultWorkerCap  = 5
	maxIncrementalDay = 30
)

// Task identifies one (symbol, timeframe) pair to reconcile.
type Task struct {
	Symbol    string
	Timeframe models.Timeframe
}

// Status is a task's terminal outcome.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusUpToDate  Status = "up_to_date"
)

// Result is one task's outcome, emitted in completion order.
type Result struct {
	Symbol        string
	Timeframe     models.Timeframe
	Status        Status
	RowsInserted  int
	Duration      time.Duration
	ErrorKind     apperr.Kind
	Err           error
}

// Scheduler reconciles a set of (symbol, timeframe) tasks against the
// vendor under a bounded worker pool.
type Scheduler struct {
	client     marketdata.Client
	candles    *database.CandleStore
	workerCap  int
	logger     zerolog.Logger
	cronRunner *cron.Cron
}

// NewScheduler creates a Scheduler with the given worker cap (spec default
// 5; values <=0 fall back to the default).
func NewScheduler(client marketdata.Client, candles *database.CandleStore, workerCap int, logger zerolog.Logger) *Scheduler {
	if workerCap <= 0 {
		workerCap = defaultWorkerCap
	}
	return &Scheduler{
		client:    client,
		candles:   candles,
		workerCap: workerCap,
		logger:    logger.With().Str("component", "sync_scheduler").Logger(),
	}
}

// Run reconciles every task under mode, streaming results on the returned
// channel in completion order. The channel is closed once every task has
// finished or ctx is cancelled. Cancellation stops new tasks from starting;
// in-flight fetches are not forcibly aborted.
func (s *Scheduler) Run(ctx context.Context, tasks []Task, mode Mode, now time.Time) <-chan Result {
	out := make(chan Result, len(tasks))
	sem := make(chan struct{}, s.workerCap)

	go func() {
		var wg stdsync.WaitGroup
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				// No new task starts once the batch is cancelled.
			default:
				sem <- struct{}{}
				if ctx.Err() != nil {
					// Cancelled while waiting for a free worker slot.
					<-sem
					continue
				}
				wg.Add(1)
				go func(t Task) {
					defer wg.Done()
					defer func() { <-sem }()
					out <- s.runTask(ctx, t, mode, now)
				}(task)
			}
		}
		wg.Wait()
		close(out)
	}()

	return out
}

// ScheduleDaily registers fn to run once per day at the given cron
// expression (IST-local, per the market's operating timezone) and starts
// the cron runner. Callers must call Stop when done.
func (s *Scheduler) ScheduleDaily(cronExpr string, fn func()) error {
	s.cronRunner = cron.New(cron.WithLocation(istLocation))
	_, err := s.cronRunner.AddFunc(cronExpr, fn)
	if err != nil {
		return fmt.Errorf("schedule daily sync: %w", err)
	}
	s.cronRunner.Start()
	return nil
}

// Stop halts the cron runner, if one was started via ScheduleDaily.
func (s *Scheduler) Stop() {
	if s.cronRunner != nil {
		ctx := s.cronRunner.Stop()
		<-ctx.Done()
	}
}

func (s *Scheduler) runTask(ctx context.Context, t Task, mode Mode, now time.Time) Result {
	start := time.Now()
	result := Result{Symbol: t.Symbol, Timeframe: t.Timeframe}

	rows, status, err := s.reconcile(ctx, t, mode, now)
	result.Duration = time.Since(start)
	result.RowsInserted = rows
	result.Status = status

	if err != nil {
		result.Status = StatusError
		result.Err = err
		if kind, ok := apperr.Of(err); ok {
			result.ErrorKind = kind
		}
		s.logger.Error().Err(err).Str("symbol", t.Symbol).Str("timeframe", string(t.Timeframe)).Msg("sync task failed")
	}
	return result
}

func (s *Scheduler) reconcile(ctx context.Context, t Task, mode Mode, now time.Time) (int, Status, error) {
	latest, hasLatest, err := s.candles.LatestTime(ctx, t.Symbol, t.Timeframe)
	if err != nil {
		return 0, StatusError, err
	}

	switch mode {
	case ModeFull:
		return s.fetchAndInsert(ctx, t, t.Timeframe.MaxPeriod(), time.Time{})

	case ModeIncremental, ModeForce:
		if !hasLatest {
			return s.fetchAndInsert(ctx, t, t.Timeframe.MaxPeriod(), time.Time{})
		}
		if mode == ModeIncremental && !IsStale(t.Timeframe, latest, now) {
			return 0, StatusUpToDate, nil
		}
		period := incrementalPeriod(latest, now)
		return s.fetchAndInsert(ctx, t, period, latest)

	default:
		return 0, StatusError, apperr.New(apperr.InvariantViolation, "sync_scheduler", fmt.Sprintf("unknown mode %q", mode), nil)
	}
}

func (s *Scheduler) fetchAndInsert(ctx context.Context, t Task, period models.Period, after time.Time) (int, Status, error) {
	window, err := s.client.FetchCandles(ctx, t.Symbol, t.Timeframe, period)
	if err != nil {
		return 0, StatusError, err
	}

	if !after.IsZero() {
		filtered := window[:0]
		for _, c := range window {
			if c.Time.After(after) {
				filtered = append(filtered, c)
			}
		}
		window = filtered
	}

	if len(window) == 0 {
		return 0, StatusSuccess, nil
	}

	inserted, err := s.candles.InsertBatch(ctx, window)
	if err != nil {
		return 0, StatusError, err
	}
	return inserted, StatusSuccess, nil
}

// incrementalPeriod picks the smallest named Period covering
// min(days_since_latest+1, 30) days.
func incrementalPeriod(latest, now time.Time) models.Period {
	days := int(math.Ceil(now.Sub(latest).Hours()/24)) + 1
	if days > maxIncrementalDay {
		days = maxIncrementalDay
	}
	switch {
	case days <= 7:
		return models.Period7d
	case days <= 60:
		return models.Period60d
	default:
		return models.Period2y
	}
}
