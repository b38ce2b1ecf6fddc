// Package panels provides read access to the three input panels of the risk
// engine: factor exposures, factor covariances, and specific risk. Panels are
// keyed by date and identifier; missing cells stay missing - they are never
// coerced to zero.
package panels

import "sort"

// PanelKind discriminates the three input panels.
type PanelKind string

const (
	KindExposures        PanelKind = "exposures"
	KindFactorCovariance PanelKind = "factor_covariance"
	KindSpecificRisk     PanelKind = "specific_risk"
)

// ExposureTable holds per-asset factor exposures for a single date.
// A missing cell means the asset is not eligible for that factor on that
// date, not that the exposure is zero.
type ExposureTable struct {
	Date    string
	cells   map[string]map[string]float64 // asset -> factor -> exposure
	factors map[string]struct{}
}

// NewExposureTable creates an empty exposure table for a date.
func NewExposureTable(date string) *ExposureTable {
	return &ExposureTable{
		Date:    date,
		cells:   make(map[string]map[string]float64),
		factors: make(map[string]struct{}),
	}
}

// Set records an exposure cell.
func (t *ExposureTable) Set(asset, factor string, value float64) {
	row, ok := t.cells[asset]
	if !ok {
		row = make(map[string]float64)
		t.cells[asset] = row
	}
	row[factor] = value
	t.factors[factor] = struct{}{}
}

// Value returns the exposure for (asset, factor) and whether the cell exists.
func (t *ExposureTable) Value(asset, factor string) (float64, bool) {
	row, ok := t.cells[asset]
	if !ok {
		return 0, false
	}
	v, ok := row[factor]
	return v, ok
}

// Assets returns the asset identifiers present in the table, sorted.
func (t *ExposureTable) Assets() []string {
	assets := make([]string, 0, len(t.cells))
	for a := range t.cells {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}

// Factors returns the factor identifiers present in the table, sorted.
func (t *ExposureTable) Factors() []string {
	factors := make([]string, 0, len(t.factors))
	for f := range t.factors {
		factors = append(factors, f)
	}
	sort.Strings(factors)
	return factors
}

// HasFullRow reports whether the asset has a value for every given factor.
func (t *ExposureTable) HasFullRow(asset string, factors []string) bool {
	row, ok := t.cells[asset]
	if !ok {
		return false
	}
	for _, f := range factors {
		if _, ok := row[f]; !ok {
			return false
		}
	}
	return true
}

// Len returns the number of assets with at least one exposure cell.
func (t *ExposureTable) Len() int { return len(t.cells) }

// FactorCovTable holds the factor-factor covariances for a single date.
// Storage may be upper-triangular in the source; the table mirrors a cell to
// its transpose position when only one side is present, and keeps both values
// when both are present so asymmetric inputs stay detectable downstream.
type FactorCovTable struct {
	Date   string
	values map[string]map[string]float64
}

// NewFactorCovTable creates an empty factor covariance table for a date.
func NewFactorCovTable(date string) *FactorCovTable {
	return &FactorCovTable{
		Date:   date,
		values: make(map[string]map[string]float64),
	}
}

// Set records a covariance cell for (fi, fj). The transpose cell is filled in
// only if it has not been set explicitly.
func (t *FactorCovTable) Set(fi, fj string, value float64) {
	t.set(fi, fj, value)
	if _, ok := t.lookup(fj, fi); !ok {
		t.set(fj, fi, value)
	}
}

func (t *FactorCovTable) set(fi, fj string, value float64) {
	row, ok := t.values[fi]
	if !ok {
		row = make(map[string]float64)
		t.values[fi] = row
	}
	row[fj] = value
}

func (t *FactorCovTable) lookup(fi, fj string) (float64, bool) {
	row, ok := t.values[fi]
	if !ok {
		return 0, false
	}
	v, ok := row[fj]
	return v, ok
}

// Value returns the covariance for (fi, fj) and whether the cell exists.
func (t *FactorCovTable) Value(fi, fj string) (float64, bool) {
	return t.lookup(fi, fj)
}

// Factors returns the factor identifiers present in the table, sorted.
func (t *FactorCovTable) Factors() []string {
	factors := make([]string, 0, len(t.values))
	for f := range t.values {
		factors = append(factors, f)
	}
	sort.Strings(factors)
	return factors
}

// SpecificRiskTable holds per-asset idiosyncratic variances for a single
// date. Assets with unknown specific risk are absent from the table entirely;
// defaulting them to zero would understate risk.
type SpecificRiskTable struct {
	Date      string
	variances map[string]float64
}

// NewSpecificRiskTable creates an empty specific risk table for a date.
func NewSpecificRiskTable(date string) *SpecificRiskTable {
	return &SpecificRiskTable{
		Date:      date,
		variances: make(map[string]float64),
	}
}

// Set records an asset's specific variance.
func (t *SpecificRiskTable) Set(asset string, variance float64) {
	t.variances[asset] = variance
}

// Variance returns the specific variance for an asset and whether it exists.
func (t *SpecificRiskTable) Variance(asset string) (float64, bool) {
	v, ok := t.variances[asset]
	return v, ok
}

// Assets returns the asset identifiers present in the table, sorted.
func (t *SpecificRiskTable) Assets() []string {
	assets := make([]string, 0, len(t.variances))
	for a := range t.variances {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}

// Len returns the number of assets with a known specific variance.
func (t *SpecificRiskTable) Len() int { return len(t.variances) }
