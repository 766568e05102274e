package validate

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"signal-gateway/internal/domain"
)

var presence = map[string]func(*domain.SignalRequest) bool{
	"symbol":  func(r *domain.SignalRequest) bool { return nonEmpty(r.Symbol) },
	"tf":      func(r *domain.SignalRequest) bool { return nonEmpty(r.Timeframe) },
	"pattern": func(r *domain.SignalRequest) bool { return nonEmpty(r.Pattern) },
	"session": func(r *domain.SignalRequest) bool { return nonEmpty(r.Session) },

	"ohlc.open":  func(r *domain.SignalRequest) bool { return r.OHLC != nil && r.OHLC.Open != nil },
	"ohlc.high":  func(r *domain.SignalRequest) bool { return r.OHLC != nil && r.OHLC.High != nil },
	"ohlc.low":   func(r *domain.SignalRequest) bool { return r.OHLC != nil && r.OHLC.Low != nil },
	"ohlc.close": func(r *domain.SignalRequest) bool { return r.OHLC != nil && r.OHLC.Close != nil },

	"indicators.rsi":         func(r *domain.SignalRequest) bool { return r.Indicators != nil && r.Indicators.RSI != nil },
	"indicators.ema9":        func(r *domain.SignalRequest) bool { return r.Indicators != nil && r.Indicators.EMA9 != nil },
	"indicators.ema21":       func(r *domain.SignalRequest) bool { return r.Indicators != nil && r.Indicators.EMA21 != nil },
	"indicators.macd":        func(r *domain.SignalRequest) bool { return r.Indicators != nil && r.Indicators.MACD != nil },
	"indicators.macd_signal": func(r *domain.SignalRequest) bool { return r.Indicators != nil && r.Indicators.MACDSignal != nil },

	"adx": func(r *domain.SignalRequest) bool {
		return r.ADX != nil || (r.Indicators != nil && r.Indicators.ADX != nil)
	},
	"atr": func(r *domain.SignalRequest) bool {
		return r.ATR != nil || (r.Indicators != nil && r.Indicators.ATR != nil)
	},
	"volume_ratio": func(r *domain.SignalRequest) bool { return r.VolumeRatio != nil },
	"support":      func(r *domain.SignalRequest) bool { return r.Support != nil },
	"resistance":   func(r *domain.SignalRequest) bool { return r.Resistance != nil },
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// Decode reads one JSON request body. Anything after the object is rejected. Decoding failures come back as
// *domain.ValidationError naming the offending field where known.
func Decode(r io.Reader) (*domain.SignalRequest, error) {
	var req domain.SignalRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return nil, decodeError(err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, decodeError(err)
		}
		return nil, &domain.ValidationError{Reason: "malformed JSON: trailing data after request object"}
	}
	return &req, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return &domain.ValidationError{Reason: "request body must be a JSON object"}
		}
		return &domain.ValidationError{Field: typeErr.Field, Reason: "must be " + kindName(typeErr.Type)}
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &domain.ValidationError{Reason: "request body too large"}
	}
	if errors.Is(err, io.EOF) {
		return &domain.ValidationError{Reason: "request body is empty"}
	}
	return &domain.ValidationError{Reason: "malformed JSON: " + err.Error()}
}

func kindName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "numeric"
	case reflect.String:
		return "a string"
	case reflect.Struct:
		return "an object"
	default:
		return "a valid value"
	}
}

// ToSnapshot copies the request into a MarketSnapshot. Missing optional
// values become zero; a top-level adx/atr wins over the indicators block.
func ToSnapshot(r *domain.SignalRequest) domain.MarketSnapshot {
	s := domain.MarketSnapshot{
		Symbol:      str(r.Symbol),
		Timeframe:   str(r.Timeframe),
		VolumeRatio: num(r.VolumeRatio),
		Pattern:     str(r.Pattern),
		Session:     str(r.Session),
		Support:     num(r.Support),
		Resistance:  num(r.Resistance),
	}
	if r.OHLC != nil {
		s.OHLC = domain.OHLC{
			Open:  num(r.OHLC.Open),
			High:  num(r.OHLC.High),
			Low:   num(r.OHLC.Low),
			Close: num(r.OHLC.Close),
		}
	}
	if in := r.Indicators; in != nil {
		s.Indicators = domain.Indicators{
			RSI:          num(in.RSI),
			ADX:          num(in.ADX),
			ATR:          num(in.ATR),
			EMA9:         num(in.EMA9),
			EMA21:        num(in.EMA21),
			MACD:         num(in.MACD),
			MACDSignal:   num(in.MACDSignal),
			MACDHistPrev: num(in.MACDHistPrev),
		}
	}
	if r.ADX != nil {
		s.Indicators.ADX = *r.ADX
	}
	if r.ATR != nil {
		s.Indicators.ATR = *r.ATR
	}
	return s
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func num(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
