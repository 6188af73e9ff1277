package models

// LevelKind classifies an SRLevel as support, resistance, or a pivot-formula
// anchor (which is neither touched nor counted, just a reference line).
type LevelKind string

const (
	LevelSupport    LevelKind = "support"
	LevelResistance LevelKind = "resistance"
	LevelPivot      LevelKind = "pivot"
)

// SRLevel is a single support/resistance price level produced by SRDetector.
type SRLevel struct {
	Price    float64   `json:"price"`
	Kind     LevelKind `json:"kind"`
	Touches  int       `json:"touches"`
	Strength float64   `json:"strength"`
}
