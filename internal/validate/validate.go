package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"signal-gateway/internal/domain"
	"signal-gateway/internal/profile"

	"github.com/go-playground/validator/v10"
)

// fieldAliases maps snapshot paths to the request paths a caller sent.
var fieldAliases = map[string]string{
	"indicators.adx": "adx",
	"indicators.atr": "atr",
}

// Validator checks inbound snapshots against one profile's required fields
// and price policy.
type Validator struct {
	v        *validator.Validate
	required []string
	policy   profile.PricePolicy
}

func New(p profile.Profile) (*Validator, error) {
	for _, f := range p.RequiredFields {
		if _, ok := presence[f]; !ok {
			return nil, fmt.Errorf("profile %s: unknown required field %q", p.Name, f)
		}
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}); err != nil {
		return nil, err
	}

	val := &Validator{v: v, required: p.RequiredFields, policy: p.PricePolicy}
	v.RegisterStructValidation(val.validateOHLC, domain.OHLC{})
	return val, nil
}

func (val *Validator) validateOHLC(sl validator.StructLevel) {
	o := sl.Current().Interface().(domain.OHLC)
	prices := []struct {
		json, name string
		value      float64
	}{
		{"open", "Open", o.Open},
		{"high", "High", o.High},
		{"low", "Low", o.Low},
		{"close", "Close", o.Close},
	}
	for _, p := range prices {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			sl.ReportError(p.value, p.json, p.name, "finite", "")
			continue
		}
		if val.policy == profile.PriceLenient {
			if p.value < 0 {
				sl.ReportError(p.value, p.json, p.name, "nonnegative", "")
			}
			continue
		}
		if p.value <= 0 {
			sl.ReportError(p.value, p.json, p.name, "positive", "")
		}
	}
	if o.High < o.Low {
		sl.ReportError(o.High, "high", "High", "gtelow", "")
	}
}

// Snapshot checks required fields, converts the request and validates the
// resulting snapshot.
func (val *Validator) Snapshot(req *domain.SignalRequest) (domain.MarketSnapshot, error) {
	if req == nil {
		return domain.MarketSnapshot{}, &domain.ValidationError{Reason: "request body is empty"}
	}
	for _, f := range val.required {
		if !presence[f](req) {
			return domain.MarketSnapshot{}, &domain.ValidationError{Field: f, Reason: "missing required field"}
		}
	}
	snap := ToSnapshot(req)
	if err := val.Validate(snap); err != nil {
		return domain.MarketSnapshot{}, err
	}
	return snap, nil
}

// Validate returns a *domain.ValidationError for the first rule s violates.
func (val *Validator) Validate(s domain.MarketSnapshot) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	return &domain.ValidationError{Field: fieldPath(fe), Reason: reason(fe)}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	if alias, ok := fieldAliases[ns]; ok {
		return alias
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "finite":
		return "must be a finite number"
	case "positive":
		return "must be > 0"
	case "nonnegative":
		return "must be >= 0"
	case "gtelow":
		return "must be >= ohlc.low"
	default:
		return "failed validation: " + fe.Tag()
	}
}
