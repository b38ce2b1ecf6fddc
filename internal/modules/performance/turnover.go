package performance

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

// TurnoverWindow is the default rolling window for smoothed turnover.
const TurnoverWindow = 252

// TurnoverPoint is the two-sided turnover realized on one date: the sum of
// absolute weight changes against the previous date, across all assets.
type TurnoverPoint struct {
	Date     string  `json:"date"`
	Turnover float64 `json:"turnover"`
}

// TurnoverStats summarizes the rolling-mean turnover series.
type TurnoverStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Turnover computes the two-sided turnover series from daily weights. An
// asset that enters or leaves the portfolio contributes its full weight on
// the transition date. The first date has no predecessor and reports zero.
func Turnover(weights []WeightRecord) []TurnoverPoint {
	byDate := groupWeights(weights)
	dates := sortedKeys(byDate)

	out := make([]TurnoverPoint, 0, len(dates))
	for i, date := range dates {
		point := TurnoverPoint{Date: date}
		if i > 0 {
			prev := byDate[dates[i-1]]
			curr := byDate[date]
			assets := make(map[string]struct{}, len(prev)+len(curr))
			for a := range prev {
				assets[a] = struct{}{}
			}
			for a := range curr {
				assets[a] = struct{}{}
			}
			for a := range assets {
				point.Turnover += math.Abs(curr[a] - prev[a])
			}
		}
		out = append(out, point)
	}
	return out
}

// RollingMeanTurnover smooths a turnover series with a simple moving
// average. The first window-1 entries are warm-up and reported as NaN.
func RollingMeanTurnover(points []TurnoverPoint, window int) []float64 {
	series := make([]float64, len(points))
	for i, p := range points {
		series[i] = p.Turnover
	}

	smoothed := talib.Sma(series, window)
	for i := 0; i < window-1 && i < len(smoothed); i++ {
		smoothed[i] = math.NaN()
	}
	return smoothed
}

// SummarizeTurnover reports mean, min, and max of the rolling-mean turnover
// series, excluding the warm-up period. It fails when the series is shorter
// than the window.
func SummarizeTurnover(weights []WeightRecord, window int) (*TurnoverStats, error) {
	if window < 1 {
		return nil, fmt.Errorf("rolling window must be positive, got %d", window)
	}

	points := Turnover(weights)
	if len(points) < window {
		return nil, fmt.Errorf("turnover series has %d dates, need at least %d for the rolling window", len(points), window)
	}

	rolling := RollingMeanTurnover(points, window)[window-1:]

	stats := &TurnoverStats{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, v := range rolling {
		sum += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Mean = sum / float64(len(rolling))
	return stats, nil
}
