package performance

import (
	"math"
	"sort"
)

// PortfolioReturn is the weighted portfolio return for one date. FwdReturn
// is the weighted next-day return, aligned to the date the weights were held.
type PortfolioReturn struct {
	Date      string  `json:"date"`
	Return    float64 `json:"return"`
	FwdReturn float64 `json:"fwd_return"`
}

// MultiReturn carries the total, benchmark, and active return rows for one
// date. Active is computed from active weights (total minus benchmark), not
// as a difference of the two aggregated returns, so the identity
// active = total - benchmark holds only when both portfolios span the same
// assets.
type MultiReturn struct {
	Date         string  `json:"date"`
	Total        float64 `json:"total"`
	Benchmark    float64 `json:"benchmark"`
	Active       float64 `json:"active"`
	FwdTotal     float64 `json:"fwd_total"`
	FwdBenchmark float64 `json:"fwd_benchmark"`
	FwdActive    float64 `json:"fwd_active"`
}

type returnKey struct {
	date  string
	asset string
}

// indexReturns builds same-day and forward lookups. The forward return for
// an asset on date t is its realized return on the next date it appears.
func indexReturns(returns []ReturnRecord) (same, fwd map[returnKey]float64) {
	same = make(map[returnKey]float64, len(returns))
	perAsset := make(map[string][]ReturnRecord)
	for _, r := range returns {
		same[returnKey{r.Date, r.Asset}] = r.Return
		perAsset[r.Asset] = append(perAsset[r.Asset], r)
	}

	fwd = make(map[returnKey]float64, len(returns))
	for asset, series := range perAsset {
		sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
		for i := 0; i+1 < len(series); i++ {
			fwd[returnKey{series[i].Date, asset}] = series[i+1].Return
		}
	}
	return same, fwd
}

func groupWeights(weights []WeightRecord) map[string]map[string]float64 {
	byDate := make(map[string]map[string]float64)
	for _, w := range weights {
		if byDate[w.Date] == nil {
			byDate[w.Date] = make(map[string]float64)
		}
		byDate[w.Date][w.Asset] += w.Weight
	}
	return byDate
}

func sortedKeys(m map[string]map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReturnsFromWeights computes the weighted portfolio return series. Assets
// with no return observation on a date contribute nothing, matching a left
// join that drops nulls from the sum.
func ReturnsFromWeights(weights []WeightRecord, returns []ReturnRecord) []PortfolioReturn {
	same, fwd := indexReturns(returns)
	byDate := groupWeights(weights)

	out := make([]PortfolioReturn, 0, len(byDate))
	for _, date := range sortedKeys(byDate) {
		row := PortfolioReturn{Date: date}
		for asset, w := range byDate[date] {
			if r, ok := same[returnKey{date, asset}]; ok && !math.IsNaN(r) {
				row.Return += w * r
			}
			if r, ok := fwd[returnKey{date, asset}]; ok && !math.IsNaN(r) {
				row.FwdReturn += w * r
			}
		}
		out = append(out, row)
	}
	return out
}

// MultiReturnsFromWeights computes total, benchmark, and active return
// series from portfolio and benchmark weights over the union of their dates.
func MultiReturnsFromWeights(weights, benchmark []WeightRecord, returns []ReturnRecord) []MultiReturn {
	same, fwd := indexReturns(returns)
	total := groupWeights(weights)
	bench := groupWeights(benchmark)

	dates := make(map[string]map[string]float64, len(total)+len(bench))
	for d := range total {
		dates[d] = nil
	}
	for d := range bench {
		dates[d] = nil
	}

	out := make([]MultiReturn, 0, len(dates))
	for _, date := range sortedKeys(dates) {
		row := MultiReturn{Date: date}

		assets := make(map[string]struct{})
		for a := range total[date] {
			assets[a] = struct{}{}
		}
		for a := range bench[date] {
			assets[a] = struct{}{}
		}

		for asset := range assets {
			wt := total[date][asset]
			wb := bench[date][asset]
			wa := wt - wb
			if r, ok := same[returnKey{date, asset}]; ok && !math.IsNaN(r) {
				row.Total += wt * r
				row.Benchmark += wb * r
				row.Active += wa * r
			}
			if r, ok := fwd[returnKey{date, asset}]; ok && !math.IsNaN(r) {
				row.FwdTotal += wt * r
				row.FwdBenchmark += wb * r
				row.FwdActive += wa * r
			}
		}
		out = append(out, row)
	}
	return out
}
