package signal

import (
	"regexp"
	"strings"

	"signal-gateway/internal/domain"

	"github.com/tidwall/gjson"
)

var fenced = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*\\s*(.*?)\\s*```$")

// Interpret coerces a raw model reply into a Signal. On any failure it returns
// fb together with a *domain.ParseError describing why; callers use the
// returned signal either way.
func Interpret(raw string, fb domain.Signal) (domain.Signal, error) {
	body := stripFences(raw)
	if !gjson.Valid(body) {
		return fb, &domain.ParseError{Reason: "reply is not valid JSON"}
	}
	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return fb, &domain.ParseError{Reason: "reply is not a JSON object"}
	}

	field := doc.Get("signal")
	if field.Type != gjson.String {
		return fb, &domain.ParseError{Reason: "signal field missing or not a string"}
	}
	action, ok := domain.ParseAction(field.Str)
	if !ok {
		return fb, &domain.ParseError{Reason: "signal must be buy, sell or hold, got " + quote(field.Str)}
	}

	sig := domain.Signal{Action: action, Confidence: domain.ConfidenceMedium}

	if expl := doc.Get("explanation"); expl.Exists() {
		if expl.Type != gjson.String {
			return fb, &domain.ParseError{Reason: "explanation must be a string"}
		}
		sig.Explanation = domain.TruncateExplanation(strings.TrimSpace(expl.Str))
	}
	if conf := doc.Get("confidence"); conf.Type == gjson.String {
		if c, ok := domain.ParseConfidence(conf.Str); ok {
			sig.Confidence = c
		}
	}
	return sig, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fenced.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func quote(s string) string {
	if r := []rune(s); len(r) > 20 {
		s = string(r[:20]) + "..."
	}
	return `"` + s + `"`
}
