package advisor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"signal-gateway/internal/domain"
	"signal-gateway/internal/profile"

	"github.com/shopspring/decimal"
)

const analystBrief = `You are a disciplined technical analyst. Classify the market snapshot below into exactly one trading signal: buy, sell or hold.
Use only the data provided. When the evidence conflicts or a rule below is violated, answer hold.`

// BuildPrompt renders the model instruction for one snapshot. The output is
// deterministic for identical inputs.
func BuildPrompt(s domain.MarketSnapshot, d domain.DerivedMetrics, p profile.Profile) string {
	th := p.ThresholdsFor(d.Session)
	in := s.Indicators

	var sb strings.Builder
	sb.WriteString(analystBrief)

	sb.WriteString("\n\n--- MARKET DATA ---\n")
	fmt.Fprintf(&sb, "Symbol: %s\n", SanitizeField(s.Symbol))
	fmt.Fprintf(&sb, "Timeframe: %s\n", SanitizeField(s.Timeframe))
	if s.Session != "" {
		fmt.Fprintf(&sb, "Session hint: %s\n", SanitizeField(s.Session))
	}
	fmt.Fprintf(&sb, "OHLC: open %s, high %s, low %s, close %s\n",
		fixed(s.OHLC.Open, 4), fixed(s.OHLC.High, 4), fixed(s.OHLC.Low, 4), fixed(s.OHLC.Close, 4))
	fmt.Fprintf(&sb, "RSI: %s | ADX: %s | ATR: %s\n", fixed(in.RSI, 2), fixed(in.ADX, 2), fixed(in.ATR, 4))
	fmt.Fprintf(&sb, "EMA9: %s | EMA21: %s\n", fixed(in.EMA9, 4), fixed(in.EMA21, 4))
	fmt.Fprintf(&sb, "MACD: %s | Signal: %s | Previous histogram: %s\n",
		fixed(in.MACD, 5), fixed(in.MACDSignal, 5), fixed(in.MACDHistPrev, 5))
	fmt.Fprintf(&sb, "Volume ratio: %s\n", fixed(s.VolumeRatio, 2))
	fmt.Fprintf(&sb, "Support: %s | Resistance: %s\n", fixed(s.Support, 4), fixed(s.Resistance, 4))
	fmt.Fprintf(&sb, "Pattern: %s\n", SanitizeField(s.Pattern))

	sb.WriteString("\n--- DERIVED ---\n")
	fmt.Fprintf(&sb, "Session: %s\n", d.Session)
	fmt.Fprintf(&sb, "Trend (EMA9 vs EMA21): %s\n", d.Trend)
	fmt.Fprintf(&sb, "Momentum (RSI): %s\n", d.Momentum)
	fmt.Fprintf(&sb, "MACD trend: %s | Histogram: %s (%s)\n", d.MACDTrend, fixed(d.MACDHist, 5), histDirection(d))
	fmt.Fprintf(&sb, "Distance to support: %s ATR (near: %t)\n", fixed(d.SupportDistATR, 2), d.NearSupport)
	fmt.Fprintf(&sb, "Distance to resistance: %s ATR (near: %t)\n", fixed(d.ResistDistATR, 2), d.NearResistance)
	if d.PatternValid {
		fmt.Fprintf(&sb, "Pattern recognized: yes (%s)\n", d.PatternCanonical)
	} else {
		sb.WriteString("Pattern recognized: no. Lean towards hold.\n")
	}

	sb.WriteString("\n--- RULES ---\n")
	for i, rule := range ruleLines(p, th) {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rule)
	}
	if lines := overrideLines(p); len(lines) > 0 {
		sb.WriteString("Session threshold overrides:\n")
		for _, l := range lines {
			sb.WriteString("- " + l + "\n")
		}
	}

	sb.WriteString("\n--- OUTPUT ---\n")
	if p.IncludeConfidence {
		sb.WriteString(`Reply with JSON only: {"signal": "buy|sell|hold", "confidence": "high|medium|low", "explanation": "<max 500 characters>"}`)
	} else {
		sb.WriteString(`Reply with JSON only: {"signal": "buy|sell|hold", "explanation": "<max 500 characters>"}`)
	}
	return sb.String()
}

func ruleLines(p profile.Profile, th profile.Thresholds) []string {
	adx := fixed(th.StrongTrendADX, 0)
	vol := fixed(th.VolumeConfirmRatio, 2)
	lines := []string{
		fmt.Sprintf("Trend strength: ADX >= %s is a strong trend. Never trade against a strong trend.", adx),
		fmt.Sprintf("Momentum caution: RSI > %s is overbought, RSI < %s is oversold.",
			fixed(th.OverboughtRSI, 0), fixed(th.OversoldRSI, 0)),
		fmt.Sprintf("Volume confirmation: a volume ratio below %s does not confirm a move.", vol),
	}
	if p.HasRule(profile.RuleTrendContradiction) {
		lines = append(lines, fmt.Sprintf("Do not buy in a bearish trend, or sell in a bullish trend, when ADX >= %s.", adx))
	}
	if p.HasRule(profile.RuleMomentumVolume) {
		lines = append(lines, fmt.Sprintf("Do not buy with RSI > %s, or sell with RSI < %s, unless volume ratio >= %s.",
			fixed(th.OverboughtRSI, 0), fixed(th.OversoldRSI, 0), vol))
	}
	if p.HasRule(profile.RuleMACDDivergence) {
		lines = append(lines, "Buy only while the MACD histogram is rising; sell only while it is falling.")
	}
	if p.HasRule(profile.RuleUnrecognizedPattern) {
		lines = append(lines, fmt.Sprintf("With an unrecognized pattern, buy only within %s ATR of support and sell only within %s ATR of resistance.",
			fixed(th.SRProximityATR, 1), fixed(th.SRProximityATR, 1)))
	} else {
		lines = append(lines, fmt.Sprintf("Prefer entries within %s ATR of support (buy) or resistance (sell) backed by a recognized pattern.",
			fixed(th.SRProximityATR, 1)))
	}
	return lines
}

func overrideLines(p profile.Profile) []string {
	sessions := make([]string, 0, len(p.SessionOverrides))
	for s := range p.SessionOverrides {
		sessions = append(sessions, string(s))
	}
	sort.Strings(sessions)

	var lines []string
	for _, s := range sessions {
		o := p.SessionOverrides[domain.Session(s)]
		var parts []string
		if o.StrongTrendADX != nil {
			parts = append(parts, "strong trend ADX "+fixed(*o.StrongTrendADX, 0))
		}
		if o.VolumeConfirmRatio != nil {
			parts = append(parts, "volume confirmation "+fixed(*o.VolumeConfirmRatio, 2))
		}
		if len(parts) > 0 {
			lines = append(lines, s+": "+strings.Join(parts, ", "))
		}
	}
	return lines
}

func histDirection(d domain.DerivedMetrics) string {
	switch {
	case d.MACDHistRising:
		return "rising"
	case d.MACDHistFalling:
		return "falling"
	default:
		return "flat"
	}
}

// fixed formats v with exactly places decimals. Non-finite values render as n/a.
func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
