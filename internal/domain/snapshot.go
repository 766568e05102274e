package domain

// OHLC is a single price candle.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type Indicators struct {
	RSI          float64 `json:"rsi" validate:"finite,gte=0,lte=100"`
	ADX          float64 `json:"adx" validate:"finite,gte=0,lte=100"`
	ATR          float64 `json:"atr" validate:"finite,gte=0"`
	EMA9         float64 `json:"ema9" validate:"finite"`
	EMA21        float64 `json:"ema21" validate:"finite"`
	MACD         float64 `json:"macd" validate:"finite"`
	MACDSignal   float64 `json:"macd_signal" validate:"finite"`
	MACDHistPrev float64 `json:"macd_hist_prev" validate:"finite"`
}

// MarketSnapshot is one validated-shape inbound request. It is never mutated
// after decoding.
type MarketSnapshot struct {
	Symbol      string     `json:"symbol"`
	Timeframe   string     `json:"tf"`
	OHLC        OHLC       `json:"ohlc"`
	Indicators  Indicators `json:"indicators"`
	VolumeRatio float64    `json:"volume_ratio" validate:"finite,gte=0"`
	Pattern     string     `json:"pattern"`
	Session     string     `json:"session"`
	Support     float64    `json:"support" validate:"finite"`
	Resistance  float64    `json:"resistance" validate:"finite"`
}

type Session string

const (
	SessionAsia    Session = "ASIA"
	SessionOverlap Session = "OVERLAP"
	SessionRegular Session = "REGULAR"
)

type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

type Momentum string

const (
	MomentumOverbought Momentum = "overbought"
	MomentumOversold   Momentum = "oversold"
	MomentumNeutral    Momentum = "neutral"
)

// DerivedMetrics is computed from a MarketSnapshot and the current UTC hour.
type DerivedMetrics struct {
	Session          Session
	Trend            Trend
	Momentum         Momentum
	MACDTrend        Trend
	MACDHist         float64
	MACDHistRising   bool
	MACDHistFalling  bool
	SupportDistATR   float64
	ResistDistATR    float64
	NearSupport      bool
	NearResistance   bool
	PatternValid     bool
	PatternCanonical string
}

// SignalRequest is the inbound webhook body. Pointer fields distinguish a
// missing value from a zero one.
type SignalRequest struct {
	Symbol      *string            `json:"symbol"`
	Timeframe   *string            `json:"tf"`
	OHLC        *OHLCRequest       `json:"ohlc"`
	Indicators  *IndicatorsRequest `json:"indicators"`
	ADX         *float64           `json:"adx"`
	ATR         *float64           `json:"atr"`
	VolumeRatio *float64           `json:"volume_ratio"`
	Pattern     *string            `json:"pattern"`
	Session     *string            `json:"session"`
	Support     *float64           `json:"support"`
	Resistance  *float64           `json:"resistance"`
}

type OHLCRequest struct {
	Open  *float64 `json:"open"`
	High  *float64 `json:"high"`
	Low   *float64 `json:"low"`
	Close *float64 `json:"close"`
}

type IndicatorsRequest struct {
	RSI          *float64 `json:"rsi"`
	ADX          *float64 `json:"adx"`
	ATR          *float64 `json:"atr"`
	EMA9         *float64 `json:"ema9"`
	EMA21        *float64 `json:"ema21"`
	MACD         *float64 `json:"macd"`
	MACDSignal   *float64 `json:"macd_signal"`
	MACDHistPrev *float64 `json:"macd_hist_prev"`
}
