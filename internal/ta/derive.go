package ta

import (
	"math"
	"strings"

	"signal-gateway/internal/domain"
	"signal-gateway/internal/profile"
)

// canonicalPatterns is the whitelist of chart patterns the rules understand.
var canonicalPatterns = map[string]bool{
	"bullish engulfing":          true,
	"bearish engulfing":          true,
	"hammer":                     true,
	"inverted hammer":            true,
	"shooting star":              true,
	"hanging man":                true,
	"doji":                       true,
	"morning star":               true,
	"evening star":               true,
	"piercing line":              true,
	"dark cloud cover":           true,
	"double top":                 true,
	"double bottom":              true,
	"head and shoulders":         true,
	"inverse head and shoulders": true,
	"ascending triangle":         true,
	"descending triangle":        true,
	"bull flag":                  true,
	"bear flag":                  true,
	"pin bar":                    true,
	"inside bar":                 true,
}

// Derive computes the derived metrics for s at the given UTC hour.
func Derive(s domain.MarketSnapshot, hourUTC int, th profile.Thresholds) domain.DerivedMetrics {
	in := s.Indicators
	hist := in.MACD - in.MACDSignal
	canonical, valid := NormalizePattern(s.Pattern)

	m := domain.DerivedMetrics{
		Session:          ClassifySession(hourUTC),
		Trend:            ClassifyTrend(in.EMA9, in.EMA21),
		Momentum:         ClassifyMomentum(in.RSI, th.OverboughtRSI, th.OversoldRSI),
		MACDTrend:        ClassifyTrend(in.MACD, in.MACDSignal),
		MACDHist:         hist,
		MACDHistRising:   hist > in.MACDHistPrev+th.MACDMinChange,
		MACDHistFalling:  hist < in.MACDHistPrev-th.MACDMinChange,
		PatternValid:     valid,
		PatternCanonical: canonical,
	}
	m.SupportDistATR = atrDistance(s.OHLC.Close-s.Support, in.ATR, s.Support)
	m.ResistDistATR = atrDistance(s.Resistance-s.OHLC.Close, in.ATR, s.Resistance)
	m.NearSupport = m.SupportDistATR <= th.SRProximityATR
	m.NearResistance = m.ResistDistATR <= th.SRProximityATR
	return m
}

// ClassifySession maps a UTC hour onto a trading session. Intervals are
// half-open: [2,5) ASIA, [8,12) and [14,17) OVERLAP, everything else REGULAR.
func ClassifySession(hourUTC int) domain.Session {
	switch {
	case hourUTC >= 2 && hourUTC < 5:
		return domain.SessionAsia
	case hourUTC >= 8 && hourUTC < 12, hourUTC >= 14 && hourUTC < 17:
		return domain.SessionOverlap
	default:
		return domain.SessionRegular
	}
}

func ClassifyTrend(fast, slow float64) domain.Trend {
	switch {
	case fast > slow:
		return domain.TrendBullish
	case fast < slow:
		return domain.TrendBearish
	default:
		return domain.TrendNeutral
	}
}

func ClassifyMomentum(rsi, overbought, oversold float64) domain.Momentum {
	switch {
	case rsi > overbought:
		return domain.MomentumOverbought
	case rsi < oversold:
		return domain.MomentumOversold
	default:
		return domain.MomentumNeutral
	}
}

// atrDistance expresses delta in ATR units. A missing level or a zero ATR
// yields +Inf so the level never counts as near.
func atrDistance(delta, atr, level float64) float64 {
	if level <= 0 || atr <= 0 {
		return math.Inf(1)
	}
	return delta / atr
}

// NormalizePattern lowercases and collapses separators, then reports
// whether the result is a canonical pattern name.
func NormalizePattern(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return s, canonicalPatterns[s]
}
