package broadcast

import (
	"fmt"
	"strings"
	"time"

	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/pipeline"
)

// priorityConfidence is the threshold above which a signal is tagged
// priority for downstream prioritization, per spec.md §4.11.
const priorityConfidence = 90

// Consensus labels the agreement between the (BUY-only) strategy signal and
// the optional AI technical-analysis recommendation, as a pure function of
// the three inputs spec.md §9's Open Question pins down. A signal with no
// sentiment technical-analysis block has no consensus to report.
func Consensus(signal models.Signal) models.Consensus {
	if signal.Sentiment == nil || signal.Sentiment.Prediction == "" || signal.Sentiment.Recommendation == "" {
		return models.ConsensusNone
	}
	aiBullish := signal.Sentiment.Prediction == "bullish"
	aiRecommendsBuy := signal.Sentiment.Recommendation == "buy"

	switch {
	case aiBullish && aiRecommendsBuy:
		return models.ConsensusStrong
	case aiBullish:
		return models.ConsensusModerate
	default:
		return models.ConsensusConflict
	}
}

// IsPriority reports whether signal's confidence clears the priority tag
// threshold. BroadcastSink tags but never reorders on this.
func IsPriority(signal models.Signal) bool {
	return signal.Confidence > priorityConfidence
}

func confidenceEmoji(confidence float64) string {
	switch {
	case confidence > 90:
		return "🟢"
	case confidence >= 75:
		return "🟡"
	default:
		return "⚪"
	}
}

// escapeMarkdown neutralizes Telegram Markdown metacharacters in free-text
// fields (AI reasoning, summaries) that were not authored by us, matching
// the teacher corpus's escape_markdown.
func escapeMarkdown(text string) string {
	r := strings.NewReplacer("*", "\\*", "_", "\\_", "[", "\\[", "`", "\\`")
	return r.Replace(text)
}

// FormatSignal renders signal as the Telegram-flavored markdown message
// BroadcastSink delivers to subscribers, grounded on the teacher corpus's
// format_telegram_message: header, sentiment block if present, the
// strategy levels, the AI technical-analysis block if present, and a
// consensus line.
func FormatSignal(signal models.Signal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s *%s - BUY SIGNAL*\n\n", confidenceEmoji(signal.Confidence), signal.Symbol)

	if signal.Sentiment != nil {
		sentEmoji := "⚪"
		switch signal.Sentiment.Label {
		case "bullish":
			sentEmoji = "🟢"
		case "bearish":
			sentEmoji = "🔴"
		}
		fmt.Fprintf(&b, "%s *News Sentiment:* %s (%.0f%%)\n", sentEmoji, strings.ToUpper(signal.Sentiment.Label), signal.Sentiment.Confidence)
		fmt.Fprintf(&b, "*Strategy Confidence:* %.1f%%\n", signal.OriginalConfidence)
		fmt.Fprintf(&b, "*Final Confidence:* %.1f%% (%+.0f from news)\n", signal.Confidence, signal.Sentiment.Impact)
	} else {
		fmt.Fprintf(&b, "*Confidence:* %.1f%%\n", signal.Confidence)
	}

	b.WriteString("\n*📊 STRATEGY SIGNAL:*\n")
	if signal.Levels != nil {
		entry, stop := signal.Levels.Entry, signal.Levels.StopLoss
		risk := entry - stop
		fmt.Fprintf(&b, "💰 Entry: ₹%.2f\n", entry)
		fmt.Fprintf(&b, "🛑 Stop Loss: ₹%.2f (Risk: ₹%.2f)\n", stop, risk)
		if len(signal.Levels.Targets) > 0 {
			target1 := signal.Levels.Targets[0]
			reward := target1 - entry
			rr := 0.0
			if risk > 0 {
				rr = reward / risk
			}
			fmt.Fprintf(&b, "🎯 Target 1: ₹%.2f (Reward: ₹%.2f)\n", target1, reward)
			fmt.Fprintf(&b, "📊 Risk:Reward: 1:%.1f\n", rr)
		}
	}

	if signal.Sentiment != nil && signal.Sentiment.Prediction != "" {
		tech := signal.Sentiment
		predEmoji := "➡️"
		switch tech.Prediction {
		case "bullish":
			predEmoji = "📈"
		case "bearish":
			predEmoji = "📉"
		}
		recEmoji := "⏸️"
		switch tech.Recommendation {
		case "buy":
			recEmoji = "✅"
		case "avoid":
			recEmoji = "❌"
		}

		b.WriteString("\n*🤖 AI ANALYSIS:*\n")
		fmt.Fprintf(&b, "%s Prediction: %s (%.0f%%)\n", predEmoji, strings.ToUpper(tech.Prediction), tech.Confidence)
		fmt.Fprintf(&b, "%s Recommendation: %s\n", recEmoji, strings.ToUpper(tech.Recommendation))
		if tech.Timeframe != "" {
			fmt.Fprintf(&b, "⏰ Timeframe: %s\n", tech.Timeframe)
		}
		if tech.Strength != "" {
			fmt.Fprintf(&b, "💪 Strength: %s\n", strings.ToUpper(tech.Strength))
		}
		if len(tech.KeyFactors) > 0 {
			fmt.Fprintf(&b, "🔑 Key Factors: %s\n", strings.Join(tech.KeyFactors, ", "))
		}
		if tech.AIEntry != nil && tech.AIStop != nil && tech.AITarget1 != nil {
			b.WriteString("\n*🎯 AI SUGGESTED LEVELS:*\n")
			fmt.Fprintf(&b, "Entry: ₹%.2f\n", *tech.AIEntry)
			fmt.Fprintf(&b, "Stop: ₹%.2f\n", *tech.AIStop)
			fmt.Fprintf(&b, "Target 1: ₹%.2f\n", *tech.AITarget1)
			if tech.AITarget2 != nil {
				fmt.Fprintf(&b, "Target 2: ₹%.2f\n", *tech.AITarget2)
			}
			aiRisk := *tech.AIEntry - *tech.AIStop
			if aiRisk > 0 {
				fmt.Fprintf(&b, "R:R: 1:%.1f\n", (*tech.AITarget1-*tech.AIEntry)/aiRisk)
			}
		}
		if tech.Reasoning != "" {
			b.WriteString("\n*📝 AI REASONING:*\n")
			b.WriteString(escapeMarkdown(tech.Reasoning))
			b.WriteString("\n")
		}

		switch Consensus(signal) {
		case models.ConsensusStrong:
			b.WriteString("\n✅ *STRONG CONSENSUS:* Both Strategy & AI agree - BUY\n")
		case models.ConsensusModerate:
			fmt.Fprintf(&b, "\n⚠️ *MODERATE:* Both bullish, AI suggests %s\n", strings.ToUpper(tech.Recommendation))
		case models.ConsensusConflict:
			fmt.Fprintf(&b, "\n⚠️ *CONFLICT:* Strategy BUY, AI %s\n", strings.ToUpper(tech.Prediction))
		}
	}

	fmt.Fprintf(&b, "\n🕐 %s", signal.GeneratedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}

// FormatSummary renders a batch Summary the same way the teacher corpus's
// format_summary_message does: analyzed/signal/sent totals, a symbol list
// capped at five with a "+N more" suffix, and error counts by kind.
func FormatSummary(s pipeline.Summary, symbols []string) string {
	date := time.Now().Format("2006-01-02")
	if s.Signals == 0 {
		return fmt.Sprintf("📊 *Daily Signal Summary*\nDate: %s\n\nNo signals generated today.", date)
	}

	shown := symbols
	more := 0
	if len(shown) > 5 {
		more = len(shown) - 5
		shown = shown[:5]
	}
	symbolsLine := strings.Join(shown, ", ")
	if more > 0 {
		symbolsLine += fmt.Sprintf(" +%d more", more)
	}

	var errLines strings.Builder
	for kind, count := range s.ErrorCountsByKind {
		fmt.Fprintf(&errLines, "\n%s: %d", kind, count)
	}

	return fmt.Sprintf(
		"📊 *Daily Signal Summary*\nDate: %s\n\nAnalyzed: *%d*\nSignals: *%d*\nSent: *%d*\n\nSymbols: %s%s",
		date, s.Total, s.Signals, s.SignalsSent, symbolsLine, errLines.String(),
	)
}
