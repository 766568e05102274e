package profile

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"signal-gateway/internal/domain"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// PricePolicy decides whether a zero OHLC price is acceptable.
type PricePolicy string

const (
	// PriceStrict rejects prices <= 0.
	PriceStrict PricePolicy = "strict"
	// PriceLenient rejects only prices < 0.
	PriceLenient PricePolicy = "lenient"
)

const (
	RuleTrendContradiction  = "trend_contradiction"
	RuleMomentumVolume      = "momentum_volume"
	RuleMACDDivergence      = "macd_divergence"
	RuleUnrecognizedPattern = "unrecognized_pattern"
)

var knownRules = map[string]bool{
	RuleTrendContradiction:  true,
	RuleMomentumVolume:      true,
	RuleMACDDivergence:      true,
	RuleUnrecognizedPattern: true,
}

type Thresholds struct {
	OverboughtRSI      float64 `yaml:"overbought_rsi" default:"70"`
	OversoldRSI        float64 `yaml:"oversold_rsi" default:"30"`
	StrongTrendADX     float64 `yaml:"strong_trend_adx" default:"25"`
	VolumeConfirmRatio float64 `yaml:"volume_confirm_ratio" default:"1.2"`
	SRProximityATR     float64 `yaml:"sr_proximity_atr" default:"1.5"`
	MACDMinChange      float64 `yaml:"macd_min_change" default:"0.0001"`
}

// Overrides replaces individual thresholds during one trading session.
type Overrides struct {
	StrongTrendADX     *float64 `yaml:"strong_trend_adx,omitempty"`
	VolumeConfirmRatio *float64 `yaml:"volume_confirm_ratio,omitempty"`
}

type Profile struct {
	Name              string                       `yaml:"name"`
	RequiredFields    []string                     `yaml:"required_fields"`
	PricePolicy       PricePolicy                  `yaml:"price_policy" default:"strict"`
	CacheTTL          time.Duration                `yaml:"cache_ttl"`
	Rules             []string                     `yaml:"rules"`
	IncludeConfidence bool                         `yaml:"include_confidence"`
	Thresholds        Thresholds                   `yaml:"thresholds"`
	SessionOverrides  map[domain.Session]Overrides `yaml:"session_overrides,omitempty"`
}

// ThresholdsFor returns the profile thresholds with the session's overrides
// applied.
func (p Profile) ThresholdsFor(session domain.Session) Thresholds {
	t := p.Thresholds
	o, ok := p.SessionOverrides[session]
	if !ok {
		return t
	}
	if o.StrongTrendADX != nil {
		t.StrongTrendADX = *o.StrongTrendADX
	}
	if o.VolumeConfirmRatio != nil {
		t.VolumeConfirmRatio = *o.VolumeConfirmRatio
	}
	return t
}

func (p Profile) HasRule(rule string) bool {
	for _, r := range p.Rules {
		if r == rule {
			return true
		}
	}
	return false
}

func (p Profile) CacheEnabled() bool {
	return p.CacheTTL > 0
}

func float(v float64) *float64 { return &v }

func defaultOverrides() map[domain.Session]Overrides {
	return map[domain.Session]Overrides{
		domain.SessionAsia: {
			StrongTrendADX:     float(30),
			VolumeConfirmRatio: float(1.5),
		},
		domain.SessionOverlap: {
			VolumeConfirmRatio: float(1.1),
		},
	}
}

// Standard is the full-field profile with a 30s result cache.
func Standard() Profile {
	p := Profile{
		Name: "standard",
		RequiredFields: []string{
			"symbol", "tf",
			"ohlc.open", "ohlc.high", "ohlc.low", "ohlc.close",
			"indicators.rsi", "indicators.ema9", "indicators.ema21",
			"indicators.macd", "indicators.macd_signal",
			"adx", "atr", "volume_ratio", "pattern", "session", "support", "resistance",
		},
		PricePolicy:      PriceStrict,
		CacheTTL:         30 * time.Second,
		Rules:            []string{RuleTrendContradiction, RuleMomentumVolume},
		SessionOverrides: defaultOverrides(),
	}
	mustDefaults(&p)
	return p
}

// Confidence is the reduced-field profile that reports confidence and runs
// without a cache.
func Confidence() Profile {
	p := Profile{
		Name: "confidence",
		RequiredFields: []string{
			"symbol", "tf",
			"ohlc.open", "ohlc.high", "ohlc.low", "ohlc.close",
			"indicators.rsi", "indicators.ema9", "indicators.ema21",
			"indicators.macd", "indicators.macd_signal",
			"atr", "volume_ratio",
		},
		PricePolicy:       PriceLenient,
		Rules:             []string{RuleTrendContradiction, RuleMomentumVolume, RuleMACDDivergence, RuleUnrecognizedPattern},
		IncludeConfidence: true,
		SessionOverrides:  defaultOverrides(),
	}
	mustDefaults(&p)
	return p
}

func mustDefaults(p *Profile) {
	if err := defaults.Set(p); err != nil {
		panic(fmt.Sprintf("profile defaults: %v", err))
	}
}

// Builtin returns the named built-in profiles.
func Builtin() map[string]Profile {
	return map[string]Profile{
		"standard":   Standard(),
		"confidence": Confidence(),
	}
}

// Names lists built-in profile names in sorted order.
func Names() []string {
	names := make([]string, 0, 2)
	for name := range Builtin() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves a profile by name, or from a YAML file when path is set.
func Load(name, path string) (Profile, error) {
	if path != "" {
		return LoadFile(path)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "standard"
	}
	p, ok := Builtin()[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown signal profile %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

func LoadFile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML profile, fills unset thresholds with defaults and
// checks rule names.
func Parse(raw []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if err := defaults.Set(&p); err != nil {
		return Profile{}, fmt.Errorf("profile defaults: %w", err)
	}
	if p.Name == "" {
		return Profile{}, fmt.Errorf("profile name is required")
	}
	if p.PricePolicy != PriceStrict && p.PricePolicy != PriceLenient {
		return Profile{}, fmt.Errorf("unknown price_policy %q", p.PricePolicy)
	}
	if p.CacheTTL < 0 {
		return Profile{}, fmt.Errorf("cache_ttl must not be negative")
	}
	for _, r := range p.Rules {
		if !knownRules[r] {
			return Profile{}, fmt.Errorf("unknown filter rule %q", r)
		}
	}
	return p, nil
}

// Marshal renders p as YAML.
func Marshal(p Profile) ([]byte, error) {
	return yaml.Marshal(p)
}
