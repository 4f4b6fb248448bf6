package pricing

import "math"

// Analytics helpers over price histories. Like the rest of the package
// these are pure; callers supply the series.

// tradingDaysPerYear annualizes daily log-return volatility. Prediction
// markets trade continuously, so calendar days are used.
const tradingDaysPerYear = 365

// Volatility returns the annualized standard deviation of log returns over
// the price series. Fewer than two prices yields 0.
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance * tradingDaysPerYear)
}

// SharpeRatio returns the excess mean return over the risk-free rate
// divided by the return standard deviation. A flat or empty series
// yields 0.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return (mean - riskFreeRate) / stddev
}

// MovingAverage returns the simple moving average series for the given
// period. A series shorter than the period yields nil.
func MovingAverage(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}

	out := make([]float64, 0, len(prices)-period+1)
	var window float64
	for i, p := range prices {
		window += p
		if i >= period {
			window -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, window/float64(period))
		}
	}
	return out
}

// EMA returns the exponential moving average series seeded from the first
// price, with multiplier 2/(period+1).
func EMA(prices []float64, period int) []float64 {
	if len(prices) == 0 || period <= 0 {
		return nil
	}

	multiplier := 2 / float64(period+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]*multiplier + out[i-1]*(1-multiplier)
	}
	return out
}

// CAGR returns the compound annual growth rate between two portfolio
// values over the given number of years. Non-positive inputs yield 0.
func CAGR(initialValue, finalValue, years float64) float64 {
	if initialValue <= 0 || finalValue <= 0 || years <= 0 {
		return 0
	}
	return math.Pow(finalValue/initialValue, 1/years) - 1
}

// PriceBounds is a symmetric confidence band around a price.
type PriceBounds struct {
	UpperBound float64
	LowerBound float64
	Range      float64
}

// Bounds returns the confidence band for limit orders around currentPrice
// given an annualized volatility. confidenceLevel 0.95 maps to z=1.96;
// anything else uses z=2.58 (99%). The lower bound is floored at 0.
func Bounds(currentPrice, volatility, confidenceLevel float64) PriceBounds {
	z := 2.58
	if confidenceLevel == 0.95 {
		z = 1.96
	}
	r := currentPrice * volatility * z

	return PriceBounds{
		UpperBound: currentPrice + r,
		LowerBound: math.Max(0, currentPrice-r),
		Range:      r * 2,
	}
}

// Change describes a price move in absolute and percentage terms.
type Change struct {
	Absolute   float64
	Percentage float64
}

// PriceChange returns the move from previous to current. A zero previous
// price yields a zero percentage.
func PriceChange(current, previous float64) Change {
	abs := current - previous
	var pct float64
	if previous != 0 {
		pct = abs / previous * 100
	}
	return Change{Absolute: abs, Percentage: pct}
}
