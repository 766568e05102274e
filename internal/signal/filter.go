package signal

import (
	"fmt"
	"unicode/utf8"

	"signal-gateway/internal/domain"
	"signal-gateway/internal/profile"
)

type rule func(sig domain.Signal, d domain.DerivedMetrics, s domain.MarketSnapshot, th profile.Thresholds) (string, bool)

var rules = map[string]rule{
	profile.RuleTrendContradiction:  trendContradiction,
	profile.RuleMomentumVolume:      momentumVolume,
	profile.RuleMACDDivergence:      macdDivergence,
	profile.RuleUnrecognizedPattern: unrecognizedPattern,
}

// Filter applies the profile's guard rails to sig. A violating directional
// signal becomes a low-confidence hold with the rejection appended to its
// explanation. Hold signals pass through unchanged.
func Filter(sig domain.Signal, d domain.DerivedMetrics, s domain.MarketSnapshot, p profile.Profile) domain.Signal {
	if !sig.Action.IsDirectional() {
		return sig
	}
	th := p.ThresholdsFor(d.Session)
	for _, name := range p.Rules {
		check, ok := rules[name]
		if !ok {
			continue
		}
		if reason, violated := check(sig, d, s, th); violated {
			return domain.Signal{
				Action:      domain.ActionHold,
				Confidence:  domain.ConfidenceLow,
				Explanation: appendNote(sig.Explanation, fmt.Sprintf("filter: %s: %s", name, reason)),
				Rule:        name,
			}
		}
	}
	return sig
}

func trendContradiction(sig domain.Signal, d domain.DerivedMetrics, s domain.MarketSnapshot, th profile.Thresholds) (string, bool) {
	adx := s.Indicators.ADX
	if adx < th.StrongTrendADX {
		return "", false
	}
	switch {
	case sig.Action == domain.ActionBuy && d.Trend == domain.TrendBearish:
		return fmt.Sprintf("buy against bearish trend (ADX %.1f >= %.1f)", adx, th.StrongTrendADX), true
	case sig.Action == domain.ActionSell && d.Trend == domain.TrendBullish:
		return fmt.Sprintf("sell against bullish trend (ADX %.1f >= %.1f)", adx, th.StrongTrendADX), true
	}
	return "", false
}

func momentumVolume(sig domain.Signal, _ domain.DerivedMetrics, s domain.MarketSnapshot, th profile.Thresholds) (string, bool) {
	rsi, vol := s.Indicators.RSI, s.VolumeRatio
	if vol >= th.VolumeConfirmRatio {
		return "", false
	}
	switch {
	case sig.Action == domain.ActionBuy && rsi > th.OverboughtRSI:
		return fmt.Sprintf("buy with RSI %.1f > %.0f without volume confirmation (%.2f < %.2f)", rsi, th.OverboughtRSI, vol, th.VolumeConfirmRatio), true
	case sig.Action == domain.ActionSell && rsi < th.OversoldRSI:
		return fmt.Sprintf("sell with RSI %.1f < %.0f without volume confirmation (%.2f < %.2f)", rsi, th.OversoldRSI, vol, th.VolumeConfirmRatio), true
	}
	return "", false
}

func macdDivergence(sig domain.Signal, d domain.DerivedMetrics, _ domain.MarketSnapshot, _ profile.Thresholds) (string, bool) {
	switch {
	case sig.Action == domain.ActionBuy && d.MACDHistFalling:
		return "buy while MACD histogram is falling", true
	case sig.Action == domain.ActionSell && d.MACDHistRising:
		return "sell while MACD histogram is rising", true
	}
	return "", false
}

func unrecognizedPattern(sig domain.Signal, d domain.DerivedMetrics, _ domain.MarketSnapshot, _ profile.Thresholds) (string, bool) {
	if d.PatternValid {
		return "", false
	}
	switch {
	case sig.Action == domain.ActionBuy && !d.NearSupport:
		return "unrecognized pattern and price not near support", true
	case sig.Action == domain.ActionSell && !d.NearResistance:
		return "unrecognized pattern and price not near resistance", true
	}
	return "", false
}

// appendNote joins note onto explanation, shortening the explanation so the
// note always survives the length cap.
func appendNote(explanation, note string) string {
	const sep = " | "
	if explanation == "" {
		return domain.TruncateExplanation(note)
	}
	room := domain.MaxExplanationLen - utf8.RuneCountInString(note) - len(sep)
	if room <= 0 {
		return domain.TruncateExplanation(note)
	}
	if r := []rune(explanation); len(r) > room {
		explanation = string(r[:room])
	}
	return explanation + sep + note
}
