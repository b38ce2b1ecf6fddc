package performance

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ICMethod selects the correlation used for information coefficients.
type ICMethod string

const (
	// ICPearson correlates raw signal values with realized returns.
	ICPearson ICMethod = "pearson"
	// ICRank correlates average ranks, the Spearman coefficient.
	ICRank ICMethod = "rank"
)

// ICPoint is the information coefficient for one date and the number of
// observations behind it.
type ICPoint struct {
	Date string  `json:"date"`
	IC   float64 `json:"ic"`
	N    int     `json:"n"`
}

// ICSummary aggregates a daily IC series. IR is the annualized information
// ratio, mean over standard deviation scaled by the square root of the
// trading year.
type ICSummary struct {
	Mean float64 `json:"mean_ic"`
	Std  float64 `json:"ic_std"`
	IR   float64 `json:"ir"`
	Days int     `json:"days"`
}

// InformationCoefficients correlates the previous date's signal with the
// realized return per date. Signals are lagged one observation per asset so
// that a signal formed on date t is scored against the return on the next
// date the asset trades. Dates with fewer than two aligned observations are
// skipped.
func InformationCoefficients(signals []SignalRecord, returns []ReturnRecord, method ICMethod) ([]ICPoint, error) {
	if method != ICPearson && method != ICRank {
		return nil, fmt.Errorf("unknown ic method %q", method)
	}

	lagged := lagSignals(signals)

	same, _ := indexReturns(returns)

	type pair struct{ signal, ret float64 }
	byDate := make(map[string][]pair)
	for key, sig := range lagged {
		ret, ok := same[key]
		if !ok {
			continue
		}
		if math.IsNaN(sig) || math.IsInf(sig, 0) || math.IsNaN(ret) || math.IsInf(ret, 0) {
			continue
		}
		byDate[key.date] = append(byDate[key.date], pair{sig, ret})
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]ICPoint, 0, len(dates))
	for _, date := range dates {
		pairs := byDate[date]
		if len(pairs) < 2 {
			continue
		}

		xs := make([]float64, len(pairs))
		ys := make([]float64, len(pairs))
		for i, p := range pairs {
			xs[i] = p.signal
			ys[i] = p.ret
		}
		if method == ICRank {
			xs = averageRanks(xs)
			ys = averageRanks(ys)
		}

		ic := stat.Correlation(xs, ys, nil)
		if math.IsNaN(ic) {
			continue
		}
		out = append(out, ICPoint{Date: date, IC: ic, N: len(pairs)})
	}
	return out, nil
}

// SummarizeICs reports the mean, standard deviation, and annualized
// information ratio of a daily IC series.
func SummarizeICs(points []ICPoint) *ICSummary {
	if len(points) == 0 {
		return &ICSummary{}
	}

	ics := make([]float64, len(points))
	for i, p := range points {
		ics[i] = p.IC
	}

	summary := &ICSummary{
		Mean: stat.Mean(ics, nil),
		Days: len(points),
	}
	if len(ics) > 1 {
		summary.Std = stat.StdDev(ics, nil)
	}
	if summary.Std > 0 {
		summary.IR = summary.Mean / summary.Std * math.Sqrt(TradingDaysPerYear)
	}
	return summary
}

// lagSignals shifts each asset's signal series forward by one observation:
// the signal keyed by date t is the one formed on the asset's previous date.
func lagSignals(signals []SignalRecord) map[returnKey]float64 {
	perAsset := make(map[string][]SignalRecord)
	for _, s := range signals {
		perAsset[s.Asset] = append(perAsset[s.Asset], s)
	}

	lagged := make(map[returnKey]float64, len(signals))
	for asset, series := range perAsset {
		sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
		for i := 1; i < len(series); i++ {
			lagged[returnKey{series[i].Date, asset}] = series[i-1].Signal
		}
	}
	return lagged
}

// averageRanks assigns 1-based ranks, averaging over ties.
func averageRanks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ranks := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		// Tied values share the average of the ranks they span.
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}
