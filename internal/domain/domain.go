package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// ParseAction normalizes a model- or user-provided action. ok is false for
// anything outside buy/sell/hold.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionBuy:
		return ActionBuy, true
	case ActionSell:
		return ActionSell, true
	case ActionHold:
		return ActionHold, true
	}
	return "", false
}

func (a Action) IsDirectional() bool {
	return a == ActionBuy || a == ActionSell
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func ParseConfidence(raw string) (Confidence, bool) {
	switch Confidence(strings.ToLower(strings.TrimSpace(raw))) {
	case ConfidenceHigh:
		return ConfidenceHigh, true
	case ConfidenceMedium:
		return ConfidenceMedium, true
	case ConfidenceLow:
		return ConfidenceLow, true
	}
	return "", false
}

// MaxExplanationLen bounds Signal.Explanation in characters.
const MaxExplanationLen = 500

// Source records which stage produced a signal.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

type Signal struct {
	Action      Action     `json:"signal"`
	Confidence  Confidence `json:"confidence,omitempty"`
	Explanation string     `json:"explanation"`

	// Rule is the filter rule that downgraded the signal, if any.
	Rule string `json:"-"`
}

// TruncateExplanation cuts s to MaxExplanationLen characters without
// splitting a multi-byte rune.
func TruncateExplanation(s string) string {
	if utf8.RuneCountInString(s) <= MaxExplanationLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxExplanationLen])
}

// Decision is a completed pipeline result as written to the audit log.
type Decision struct {
	Symbol      string     `json:"symbol"`
	Timeframe   string     `json:"tf"`
	Action      Action     `json:"signal"`
	Confidence  Confidence `json:"confidence,omitempty"`
	Explanation string     `json:"explanation"`
	Source      Source     `json:"source"`
	Rule        string     `json:"rule,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type DecisionFilter struct {
	Symbol string
	Limit  int
}
