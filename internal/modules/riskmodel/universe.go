// Package riskmodel builds factor-model asset covariance matrices.
//
// The pipeline per date is: reconcile the three input panels into an ordered
// universe, assemble sigma = B*F*B^T + D, then validate (and when necessary
// repair) the result. Construction is stateless between calls; multi-date
// batches run per-date isolated.
package riskmodel

import (
	"github.com/silverfund/sfquant/internal/modules/panels"
)

// Universe is the reconciled, order-stable set of assets and factors usable
// across all three input panels for a date. Both sequences are sorted by
// identifier so matrix row/column order is reproducible across calls.
type Universe struct {
	Date    string
	Assets  []string
	Factors []string
}

// Reconcile computes the common asset and factor sets for a date.
//
// Factors are the intersection of the exposure panel's columns and the factor
// covariance panel's labels. Assets are those present in both the exposure
// and specific risk panels whose exposure row is complete for every retained
// factor - partial rows are excluded, not patched, because imputation would
// introduce bias the caller did not request.
func Reconcile(
	date string,
	exposures *panels.ExposureTable,
	factorCov *panels.FactorCovTable,
	specificRisk *panels.SpecificRiskTable,
) (*Universe, error) {
	// Factor intersection. Both inputs return sorted identifiers, so walking
	// the exposure factors preserves lexicographic order.
	covFactors := make(map[string]struct{})
	for _, f := range factorCov.Factors() {
		covFactors[f] = struct{}{}
	}

	var factors []string
	for _, f := range exposures.Factors() {
		if _, ok := covFactors[f]; ok {
			factors = append(factors, f)
		}
	}

	if len(factors) == 0 {
		return nil, &EmptyUniverseError{Date: date, Assets: 0, Factors: 0}
	}

	// Asset intersection: exposure panel AND specific risk panel, full
	// exposure row required for every retained factor.
	var assets []string
	for _, a := range exposures.Assets() {
		if _, ok := specificRisk.Variance(a); !ok {
			continue
		}
		if !exposures.HasFullRow(a, factors) {
			continue
		}
		assets = append(assets, a)
	}

	if len(assets) == 0 {
		return nil, &EmptyUniverseError{Date: date, Assets: 0, Factors: len(factors)}
	}

	return &Universe{
		Date:    date,
		Assets:  assets,
		Factors: factors,
	}, nil
}

// N returns the number of reconciled assets.
func (u *Universe) N() int { return len(u.Assets) }

// K returns the number of reconciled factors.
func (u *Universe) K() int { return len(u.Factors) }
