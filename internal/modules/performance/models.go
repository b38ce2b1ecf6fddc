// Package performance computes portfolio performance analytics from the
// same weight and return panels the risk model consumes: weighted return
// series, turnover, information coefficients, and summary statistics.
package performance

// TradingDaysPerYear is the annualization base for daily series.
const TradingDaysPerYear = 252

// WeightRecord is one portfolio weight observation.
type WeightRecord struct {
	Date   string  `json:"date"`
	Asset  string  `json:"asset"`
	Weight float64 `json:"weight"`
}

// ReturnRecord is one realized asset return observation in decimal terms
// (0.01 means one percent).
type ReturnRecord struct {
	Date   string  `json:"date"`
	Asset  string  `json:"asset"`
	Return float64 `json:"return"`
}

// SignalRecord is one alpha signal observation for an asset.
type SignalRecord struct {
	Date   string  `json:"date"`
	Asset  string  `json:"asset"`
	Signal float64 `json:"signal"`
}
