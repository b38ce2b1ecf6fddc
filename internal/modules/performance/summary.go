package performance

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// SummaryStats describes a daily return series in annualized terms.
// MaxDrawdown is the deepest peak-to-trough loss of the compounded series,
// reported as a negative fraction.
type SummaryStats struct {
	AnnualizedReturn     float64 `json:"annualized_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	Sharpe               float64 `json:"sharpe"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	Days                 int     `json:"days"`
}

// Summarize computes annualized summary statistics for a daily return
// series in decimal terms.
func Summarize(returns []float64) *SummaryStats {
	if len(returns) == 0 {
		return &SummaryStats{}
	}

	stats := &SummaryStats{
		AnnualizedReturn: stat.Mean(returns, nil) * TradingDaysPerYear,
		MaxDrawdown:      maxDrawdown(returns),
		Days:             len(returns),
	}
	if len(returns) > 1 {
		stats.AnnualizedVolatility = stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear)
	}
	if stats.AnnualizedVolatility > 0 {
		stats.Sharpe = stats.AnnualizedReturn / stats.AnnualizedVolatility
	}
	return stats
}

// RollingVolatility computes the annualized rolling standard deviation of a
// daily return series. The first window-1 entries are warm-up and reported
// as NaN.
func RollingVolatility(returns []float64, window int) []float64 {
	out := talib.StdDev(returns, window, 1.0)
	scale := math.Sqrt(TradingDaysPerYear)
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] *= scale
	}
	return out
}

func maxDrawdown(returns []float64) float64 {
	wealth := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		if dd := wealth/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}
