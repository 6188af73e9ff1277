package models

import "time"

// SentimentRecord is SentimentEnricher's optional output attached to a
// Signal. A nil *SentimentRecord on Signal means enrichment was disabled or
// skipped, not that it ran and found nothing.
type SentimentRecord struct {
	// News sentiment pass.
	Label      string  `json:"label"` // bullish | bearish | neutral
	Confidence float64 `json:"confidence"`
	Impact     float64 `json:"impact"` // [-20, +20], applied to Signal.Confidence
	Summary    string  `json:"summary"`

	// Technical-analysis sub-enrichment pass (independent of the news read).
	Strength       string   `json:"strength,omitempty"` // weak | moderate | strong
	Prediction     string   `json:"prediction,omitempty"`
	Timeframe      string   `json:"timeframe,omitempty"`
	KeyFactors     []string `json:"key_factors,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"` // buy | hold | avoid
	AIEntry        *float64 `json:"ai_entry,omitempty"`
	AIStop         *float64 `json:"ai_stop,omitempty"`
	AITarget1      *float64 `json:"ai_target1,omitempty"`
	AITarget2      *float64 `json:"ai_target2,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty"`

	Provider    string    `json:"provider"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PlannedLevels is LevelPlanner's stop-loss/target output attached to a
// Signal.
type PlannedLevels struct {
	Entry         float64   `json:"entry"`
	StopLoss      float64   `json:"stop_loss"`
	Targets       []float64 `json:"targets"`
	RiskRewardMin float64   `json:"risk_reward_min"`
}

// Consensus labels the agreement between the technical composite and the
// sentiment model, computed by BroadcastSink from a Signal's fields.
type Consensus string

const (
	ConsensusStrong   Consensus = "STRONG_CONSENSUS"
	ConsensusModerate Consensus = "MODERATE"
	ConsensusConflict Consensus = "CONFLICT"
	ConsensusNone     Consensus = ""
)

// Signal is the terminal output of SignalPipeline for one symbol: a closed,
// statically-typed record rather than a dynamic field bag, per the
// REDESIGN FLAGS note on the original's ad-hoc dict-of-dicts signal shape.
type Signal struct {
	Symbol             string           `json:"symbol"`
	Timeframe          Timeframe        `json:"timeframe"`
	GeneratedAt        time.Time        `json:"generated_at"`
	Analysis           Analysis         `json:"analysis"`
	Levels             *PlannedLevels   `json:"levels,omitempty"`
	Sentiment          *SentimentRecord `json:"sentiment,omitempty"`
	SRLevels           []SRLevel        `json:"sr_levels,omitempty"`
	Confidence         float64          `json:"confidence"`
	OriginalConfidence float64          `json:"original_confidence,omitempty"`
}

// IsActionable reports whether this signal cleared the caller-provided
// minimum confidence threshold.
func (s Signal) IsActionable(minConfidence float64) bool {
	return s.Confidence >= minConfidence
}
