package sentiment

import (
	"strconv"
	"strings"
)

// newsSentiment is the parsed result of the news-headline prompt.
type newsSentiment struct {
	Label      string
	Confidence float64
	Impact     float64
	Summary    string
}

func defaultNewsSentiment() newsSentiment {
	return newsSentiment{Label: "neutral", Confidence: 0, Impact: 0, Summary: ""}
}

// parseNewsSentiment tolerantly extracts SENTIMENT/CONFIDENCE/IMPACT/SUMMARY
// fields from response, defaulting any field it can't find or parse.
func parseNewsSentiment(response string) newsSentiment {
	result := defaultNewsSentiment()

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := splitField(line)
		if !ok {
			continue
		}
		switch strings.ToUpper(key) {
		case "SENTIMENT":
			result.Label = strings.ToLower(value)
		case "CONFIDENCE":
			if v, err := strconv.Atoi(value); err == nil {
				result.Confidence = clampFloat(float64(v), 0, 100)
			}
		case "IMPACT":
			if v, err := strconv.Atoi(value); err == nil {
				result.Impact = clampFloat(float64(v), -20, 20)
			}
		case "SUMMARY":
			result.Summary = value
		}
	}
	return result
}

// technicalAnalysis is the parsed result of the technical-indicator prompt.
type technicalAnalysis struct {
	Strength       string
	Prediction     string
	Timeframe      string
	Confidence     float64
	KeyFactors     []string
	Recommendation string
	Reasoning      string
	AIEntry        *float64
	AIStop         *float64
	AITarget1      *float64
	AITarget2      *float64
}

func defaultTechnicalAnalysis() technicalAnalysis {
	return technicalAnalysis{
		Strength:       "moderate",
		Prediction:     "neutral",
		Timeframe:      "1 week",
		Confidence:     50,
		Recommendation: "hold",
	}
}

var technicalFieldKeys = []string{
	"STRENGTH", "PREDICTION", "TIMEFRAME", "CONFIDENCE", "KEY_FACTORS",
	"RECOMMENDATION", "AI_ENTRY", "AI_STOP", "AI_TARGET1", "AI_TARGET2",
}

// parseTechnicalAnalysis tolerantly extracts the STRENGTH/PREDICTION/...
// schema. REASONING may appear before or after the other fields; every
// line following a REASONING: field (up to the next recognized field)
// is appended to Reasoning, mirroring the multi-line capture the prompt
// itself asks for.
func parseTechnicalAnalysis(response string) technicalAnalysis {
	result := defaultTechnicalAnalysis()

	var reasoningLines []string
	inReasoning := false

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			if inReasoning {
				reasoningLines = append(reasoningLines, "")
			}
			continue
		}

		key, value, ok := splitField(line)
		upperKey := strings.ToUpper(key)

		if ok && isTechnicalField(upperKey) {
			inReasoning = false
		}

		switch {
		case ok && upperKey == "STRENGTH":
			result.Strength = strings.ToLower(value)
		case ok && upperKey == "PREDICTION":
			result.Prediction = strings.ToLower(value)
		case ok && upperKey == "TIMEFRAME":
			result.Timeframe = value
		case ok && upperKey == "CONFIDENCE":
			if v, err := strconv.Atoi(value); err == nil {
				result.Confidence = clampFloat(float64(v), 0, 100)
			}
		case ok && upperKey == "KEY_FACTORS":
			result.KeyFactors = splitFactors(value)
		case ok && upperKey == "RECOMMENDATION":
			result.Recommendation = strings.ToLower(value)
		case ok && upperKey == "REASONING":
			inReasoning = true
			if value != "" {
				reasoningLines = append(reasoningLines, value)
			}
		case ok && upperKey == "AI_ENTRY":
			result.AIEntry = parsePrice(value)
		case ok && upperKey == "AI_STOP":
			result.AIStop = parsePrice(value)
		case ok && upperKey == "AI_TARGET1":
			result.AITarget1 = parsePrice(value)
		case ok && upperKey == "AI_TARGET2":
			result.AITarget2 = parsePrice(value)
		case inReasoning:
			reasoningLines = append(reasoningLines, line)
		}
	}

	if len(reasoningLines) > 0 {
		result.Reasoning = strings.TrimSpace(strings.Join(reasoningLines, "\n"))
	}
	return result
}

func isTechnicalField(upperKey string) bool {
	for _, k := range technicalFieldKeys {
		if k == upperKey {
			return true
		}
	}
	return false
}

// splitField splits "KEY: value" into (key, value, true); returns
// ok=false for lines with no recognizable "KEY:" prefix.
func splitField(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	return line[:idx], strings.TrimSpace(line[idx+1:]), true
}

func splitFactors(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePrice(value string) *float64 {
	cleaned := strings.NewReplacer("₹", "", ",", "").Replace(strings.TrimSpace(value))
	if strings.EqualFold(cleaned, "none") || strings.EqualFold(cleaned, "n/a") || cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
