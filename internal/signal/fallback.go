package signal

import (
	"fmt"

	"signal-gateway/internal/domain"
)

const (
	fallbackOverbought = 70
	fallbackOversold   = 30
)

// Fallback derives a signal from the EMA crossover and RSI alone. It is used
// whenever the model cannot produce a usable answer.
func Fallback(in domain.Indicators) domain.Signal {
	sig := domain.Signal{Confidence: domain.ConfidenceLow}
	switch {
	case in.EMA9 > in.EMA21 && in.RSI < fallbackOverbought:
		sig.Action = domain.ActionBuy
		sig.Explanation = fmt.Sprintf("fallback: EMA9 above EMA21 with RSI %.1f below %d", in.RSI, fallbackOverbought)
	case in.EMA9 < in.EMA21 && in.RSI > fallbackOversold:
		sig.Action = domain.ActionSell
		sig.Explanation = fmt.Sprintf("fallback: EMA9 below EMA21 with RSI %.1f above %d", in.RSI, fallbackOversold)
	default:
		sig.Action = domain.ActionHold
		sig.Explanation = "fallback: no clear EMA/RSI setup"
	}
	return sig
}
