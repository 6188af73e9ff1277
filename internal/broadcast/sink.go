// Package broadcast formats a finished Signal and fans it out to
// subscribers, implementing SignalPipeline's BroadcastSink capability
// (spec.md §4.11).
package broadcast

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/apperr"
	"github.com/nsedesk/signalengine/internal/database"
	"github.com/nsedesk/signalengine/internal/logger"
	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/pipeline"
)

// Mode selects between BroadcastSink's two delivery modes.
type Mode string

const (
	// ModeSingle sends every signal to one fixed recipient.
	ModeSingle Mode = "single"
	// ModeAllActive enumerates active subscribers from UserDirectory. The
	// list is re-read on every Broadcast/SendSummary call; it is not held
	// fixed for the length of a batch.
	ModeAllActive Mode = "all_active"
)

// Deliverer sends a pre-formatted message to one address. Implementations
// must not panic on a dead/invalid address; Sink isolates per-subscriber
// failures by design (spec.md §4.11).
type Deliverer interface {
	Send(ctx context.Context, address, message string, priority bool) error
}

// LiveFanout is an optional secondary channel (e.g. a WebSocket hub) that
// receives every signal regardless of delivery mode, for the out-of-scope
// query-interface collaborator to subscribe to. A nil LiveFanout is a
// no-op.
type LiveFanout interface {
	PublishSignal(signal models.Signal)
	PublishSummary(text string)
}

// Sink is the default BroadcastSink: it formats a Signal, tags it priority
// above the confidence threshold, and delivers it through Deliverer to
// either a single fixed address or every active UserDirectory subscriber.
type Sink struct {
	mode          Mode
	deliverer     Deliverer
	singleAddress string
	directory     database.UserDirectory
	live          LiveFanout
	logger        zerolog.Logger
}

// NewSingleSink builds a Sink that always delivers to one fixed address.
func NewSingleSink(deliverer Deliverer, address string, live LiveFanout) *Sink {
	return &Sink{
		mode:          ModeSingle,
		deliverer:     deliverer,
		singleAddress: address,
		live:          live,
		logger:        logger.NewContextLogger("broadcast_sink"),
	}
}

// NewBroadcastSink builds a Sink that fans out to every active subscriber
// in directory, snapshotted once per Broadcast call.
func NewBroadcastSink(deliverer Deliverer, directory database.UserDirectory, live LiveFanout) *Sink {
	return &Sink{
		mode:      ModeAllActive,
		deliverer: deliverer,
		directory: directory,
		live:      live,
		logger:    logger.NewContextLogger("broadcast_sink"),
	}
}

// DeliveryResult is one subscriber's outcome, returned by BroadcastDetailed
// for callers that need per-recipient accounting beyond the aggregate
// error BroadcastSink's narrow interface returns.
type DeliveryResult struct {
	Address string
	Err     error
}

// Broadcast implements pipeline.BroadcastSink: it delivers signal to every
// recipient this mode names and returns a single DeliveryFailed error if
// every delivery failed (a mix of success/failure is not itself an error,
// per spec.md §4.11's "per-subscriber failures MUST NOT abort the batch").
func (s *Sink) Broadcast(ctx context.Context, signal models.Signal) error {
	results := s.BroadcastDetailed(ctx, signal)
	if s.live != nil {
		s.live.PublishSignal(signal)
	}
	if len(results) == 0 {
		return apperr.New(apperr.DeliveryFailed, "broadcast", "no recipients", nil)
	}
	for _, r := range results {
		if r.Err == nil {
			return nil
		}
	}
	return apperr.New(apperr.DeliveryFailed, "broadcast", "all deliveries failed", results[0].Err)
}

// BroadcastDetailed delivers signal and returns every recipient's outcome,
// isolating individual failures (spec.md §4.11).
func (s *Sink) BroadcastDetailed(ctx context.Context, signal models.Signal) []DeliveryResult {
	message := FormatSignal(signal)
	priority := IsPriority(signal)

	addresses, err := s.recipients(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to resolve broadcast recipients")
		return nil
	}

	out := make([]DeliveryResult, 0, len(addresses))
	for _, addr := range addresses {
		derr := s.deliverer.Send(ctx, addr, message, priority)
		if derr != nil {
			s.logger.Warn().Err(derr).Str("symbol", signal.Symbol).Str("address", addr).Msg("delivery failed")
		}
		out = append(out, DeliveryResult{Address: addr, Err: derr})
	}
	return out
}

// SendSummary delivers the batch summary to every recipient this mode
// names, matching spec.md §7's "the broadcast sink sends a final summary
// message mirroring this record".
func (s *Sink) SendSummary(ctx context.Context, summary pipeline.Summary, symbols []string) {
	text := FormatSummary(summary, symbols)
	addresses, err := s.recipients(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to resolve summary recipients")
		return
	}
	for _, addr := range addresses {
		if err := s.deliverer.Send(ctx, addr, text, false); err != nil {
			s.logger.Warn().Err(err).Str("address", addr).Msg("summary delivery failed")
		}
	}
	if s.live != nil {
		s.live.PublishSummary(text)
	}
}

func (s *Sink) recipients(ctx context.Context) ([]string, error) {
	if s.mode == ModeSingle {
		if s.singleAddress == "" {
			return nil, nil
		}
		return []string{s.singleAddress}, nil
	}

	subs, err := s.directory.ActiveSubscribers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(subs))
	for _, sub := range subs {
		if sub.IsActive {
			out = append(out, sub.Address)
		}
	}
	return out, nil
}
