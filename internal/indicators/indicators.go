// Package indicators derives the technical-indicator attributes of a feature
// record from raw OHLCV candles. It is a convenience for callers that do not
// run their own extraction pipeline.
package indicators

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/aristath/precedent/internal/domain"
)

// Indicator periods. These match the defaults of the extraction layer the
// engine was built against.
const (
	rsiPeriod        = 14
	macdFast         = 12
	macdSlow         = 26
	macdSignal       = 9
	momentumPeriod   = 10
	volatilityPeriod = 20
	volumePeriod     = 20
	trendPeriod      = 14
)

// MinCandles is the smallest candle history that yields a full indicator set.
// MACD is the binding constraint: slow EMA plus signal EMA warm-up.
const MinCandles = macdSlow + macdSignal

// Candle is a single OHLCV bar. Candles must be ordered oldest first.
type Candle struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// FromCandles builds a feature record with the technical-indicator numeric
// attributes populated. Indicators that cannot be computed from the given
// history (NaN warm-up values, zero denominators) are simply omitted so the
// similarity engine treats them as missing rather than as bad data.
func FromCandles(id string, candles []Candle) (*domain.FeatureRecord, error) {
	if len(candles) < MinCandles {
		return nil, fmt.Errorf("need at least %d candles, got %d", MinCandles, len(candles))
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	record := &domain.FeatureRecord{
		ID:      id,
		Numeric: make(map[string]float64, 6),
	}

	if v, ok := last(talib.Rsi(closes, rsiPeriod)); ok {
		record.Numeric[domain.AttrRSI] = v
	}
	_, _, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	if v, ok := last(hist); ok {
		record.Numeric[domain.AttrMACD] = v
	}
	if v, ok := momentum(closes); ok {
		record.Numeric[domain.AttrMomentum] = v
	}
	if v, ok := volatility(closes); ok {
		record.Numeric[domain.AttrVolatility] = v
	}
	if v, ok := volumeRatio(volumes); ok {
		record.Numeric[domain.AttrVolumeRatio] = v
	}
	if v, ok := trendStrength(highs, lows, closes); ok {
		record.Numeric[domain.AttrTrendStrength] = v
	}

	return record, nil
}

// momentum is the fractional rate of change over the momentum period.
func momentum(closes []float64) (float64, bool) {
	v, ok := last(talib.Roc(closes, momentumPeriod))
	if !ok {
		return 0, false
	}
	// talib.Roc reports percent
	return v / 100, true
}

// volatility is the standard deviation of closes over the volatility window,
// relative to the latest close.
func volatility(closes []float64) (float64, bool) {
	v, ok := last(talib.StdDev(closes, volatilityPeriod, 1))
	if !ok {
		return 0, false
	}
	latest := closes[len(closes)-1]
	if latest == 0 {
		return 0, false
	}
	return v / latest, true
}

// volumeRatio compares the latest volume against its moving average.
func volumeRatio(volumes []float64) (float64, bool) {
	avg, ok := last(talib.Sma(volumes, volumePeriod))
	if !ok || avg == 0 {
		return 0, false
	}
	return volumes[len(volumes)-1] / avg, true
}

// trendStrength maps ADX from its 0-100 scale onto [0,1].
func trendStrength(highs, lows, closes []float64) (float64, bool) {
	v, ok := last(talib.Adx(highs, lows, closes, trendPeriod))
	if !ok {
		return 0, false
	}
	return v / 100, true
}

func last(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
