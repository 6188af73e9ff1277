package pipeline

import (
	"context"
	stdsync "sync"

	"github.com/nsedesk/signalengine/internal/apperr"
)

const defaultBatchWorkerCap = 5

// Summary totals a batch's outcomes after it drains, matching spec.md §7's
// user-visible failure record: {symbols_analyzed, signals_generated,
// signals_sent, error_counts_by_kind}.
type Summary struct {
	Total             int
	Signals           int
	SignalsSent       int
	NoSignal          int
	InsufficientData  int
	Errors            int
	ErrorCountsByKind map[apperr.Kind]int
}

// RunBatch builds every symbol in symbols under a bounded worker pool,
// streaming each BuildResult on the returned channel in completion order.
// The channel is closed once every symbol has been built. workerCap<=0
// falls back to the package default.
func (p *Pipeline) RunBatch(ctx context.Context, symbols []string, cfg Config, workerCap int) <-chan BuildResult {
	if workerCap <= 0 {
		workerCap = defaultBatchWorkerCap
	}
	out := make(chan BuildResult, len(symbols))
	sem := make(chan struct{}, workerCap)

	go func() {
		var wg stdsync.WaitGroup
		for _, symbol := range symbols {
			select {
			case <-ctx.Done():
				// No new build starts once the batch is cancelled; builds
				// already admitted into the semaphore still run to
				// completion.
			default:
				sem <- struct{}{}
				if ctx.Err() != nil {
					// Cancelled while waiting for a free worker slot.
					<-sem
					continue
				}
				wg.Add(1)
				go func(sym string) {
					defer wg.Done()
					defer func() { <-sem }()
					out <- p.BuildAwait(ctx, sym, cfg)
				}(symbol)
			}
		}
		wg.Wait()
		close(out)
	}()

	return out
}

// Summarize drains results (typically the channel returned by RunBatch)
// and totals outcomes, matching the "final summary emitted after the
// batch drains" contract.
func Summarize(results <-chan BuildResult) Summary {
	s := Summary{ErrorCountsByKind: make(map[apperr.Kind]int)}
	for r := range results {
		s.Total++
		switch r.Outcome {
		case OutcomeSignal:
			s.Signals++
			if r.Sent {
				s.SignalsSent++
			}
		case OutcomeNoSignal:
			s.NoSignal++
		case OutcomeInsufficientData:
			s.InsufficientData++
		case OutcomeError:
			s.Errors++
			if kind, ok := apperr.Of(r.Err); ok {
				s.ErrorCountsByKind[kind]++
			}
		}
	}
	return s
}
