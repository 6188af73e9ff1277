package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNewsSentimentHappyPath(t *testing.T) {
	resp := "SENTIMENT: bullish\nCONFIDENCE: 80\nIMPACT: 12\nSUMMARY: Strong earnings beat expectations.\n"
	result := parseNewsSentiment(resp)
	assert.Equal(t, "bullish", result.Label)
	assert.Equal(t, 80.0, result.Confidence)
	assert.Equal(t, 12.0, result.Impact)
	assert.Equal(t, "Strong earnings beat expectations.", result.Summary)
}

func TestParseNewsSentimentClampsOutOfRangeValues(t *testing.T) {
	resp := "SENTIMENT: bearish\nCONFIDENCE: 250\nIMPACT: -999\nSUMMARY: Bad news.\n"
	result := parseNewsSentiment(resp)
	assert.Equal(t, 100.0, result.Confidence)
	assert.Equal(t, -20.0, result.Impact)
}

func TestParseNewsSentimentDefaultsOnGarbage(t *testing.T) {
	result := parseNewsSentiment("not a structured response at all")
	assert.Equal(t, defaultNewsSentiment(), result)
}

func TestParseTechnicalAnalysisReasoningAfterFields(t *testing.T) {
	resp := `STRENGTH: strong
PREDICTION: bullish
TIMEFRAME: 1 week
CONFIDENCE: 75
KEY_FACTORS: breakout, volume surge
RECOMMENDATION: buy
AI_ENTRY: 102.50
AI_STOP: 97.00
AI_TARGET1: 112.00
AI_TARGET2: None
REASONING: Breakout above resistance on 2026-07-28 with above-average volume.
Momentum indicators confirm the move.`

	result := parseTechnicalAnalysis(resp)
	assert.Equal(t, "strong", result.Strength)
	assert.Equal(t, "bullish", result.Prediction)
	assert.Equal(t, []string{"breakout", "volume surge"}, result.KeyFactors)
	assert.Equal(t, "buy", result.Recommendation)
	require.NotNil(t, result.AIEntry)
	assert.Equal(t, 102.50, *result.AIEntry)
	require.NotNil(t, result.AIStop)
	assert.Nil(t, result.AITarget2)
	assert.Contains(t, result.Reasoning, "Breakout above resistance")
	assert.Contains(t, result.Reasoning, "Momentum indicators confirm")
}

func TestParseTechnicalAnalysisReasoningBeforeFields(t *testing.T) {
	resp := `REASONING: Near-term pullback expected given overbought RSI on 2026-07-25.
STRENGTH: weak
PREDICTION: bearish
RECOMMENDATION: avoid
AI_ENTRY: N/A
AI_TARGET2: N/A`

	result := parseTechnicalAnalysis(resp)
	assert.Equal(t, "weak", result.Strength)
	assert.Equal(t, "bearish", result.Prediction)
	assert.Equal(t, "avoid", result.Recommendation)
	assert.Nil(t, result.AIEntry)
	assert.Nil(t, result.AITarget2)
	assert.Contains(t, result.Reasoning, "Near-term pullback")
}

func TestParseTechnicalAnalysisDefaultsOnGarbage(t *testing.T) {
	result := parseTechnicalAnalysis("nothing recognizable here")
	assert.Equal(t, defaultTechnicalAnalysis(), result)
}

func TestCanonicalNameUsesMappingTable(t *testing.T) {
	assert.Equal(t, "Reliance Industries", canonicalName("RELIANCE"))
	assert.Equal(t, "Reliance Industries", canonicalName("RELIANCE.NS"))
}

func TestCanonicalNameFallsBackToRawSymbol(t *testing.T) {
	assert.Equal(t, "UNLISTEDCO", canonicalName("UNLISTEDCO.NS"))
}
