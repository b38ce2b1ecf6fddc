package riskmodel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/silverfund/sfquant/internal/modules/panels"
)

// RiskDecomposition splits portfolio variance into the part explained by
// common factors and the idiosyncratic remainder.
type RiskDecomposition struct {
	Total    float64 `json:"total"`
	Factor   float64 `json:"factor"`
	Specific float64 `json:"specific"`
}

// PortfolioVariance computes w^T * sigma * w for weights keyed by asset
// identifier. Every weighted asset must be present in the matrix; assets in
// the matrix without a weight are treated as zero.
func PortfolioVariance(m *AssetCovarianceMatrix, weights map[string]float64) (float64, error) {
	w, err := weightVector(m.Assets(), m.Date(), weights)
	if err != nil {
		return 0, err
	}

	n := m.Dim()
	variance := 0.0
	for i := 0; i < n; i++ {
		if w[i] == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			variance += w[i] * m.At(i, j) * w[j]
		}
	}
	return variance, nil
}

// DecomposeRisk splits portfolio variance into factor and specific parts
// from the same panels the matrix was assembled from:
// factor = w^T*B*F*B^T*w, specific = sum(w_i^2 * d_i).
func DecomposeRisk(
	u *Universe,
	exposures *panels.ExposureTable,
	factorCov *panels.FactorCovTable,
	specificRisk *panels.SpecificRiskTable,
	weights map[string]float64,
) (*RiskDecomposition, error) {
	w, err := weightVector(u.Assets, u.Date, weights)
	if err != nil {
		return nil, err
	}

	k := u.K()

	// x = B^T * w (K-vector): the portfolio's factor exposures.
	x := make([]float64, k)
	for j, factor := range u.Factors {
		sum := 0.0
		for i, asset := range u.Assets {
			if w[i] == 0 {
				continue
			}
			v, ok := exposures.Value(asset, factor)
			if !ok {
				return nil, &ContractViolationError{
					Date:   u.Date,
					Asset:  asset,
					Detail: "exposure missing for reconciled factor " + factor,
				}
			}
			sum += w[i] * v
		}
		x[j] = sum
	}

	// factor variance = x^T * F * x.
	f := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			if v, ok := factorCov.Value(u.Factors[i], u.Factors[j]); ok {
				f.SetSym(i, j, v)
			}
		}
	}

	factorVar := 0.0
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			factorVar += x[i] * f.At(i, j) * x[j]
		}
	}

	specificVar := 0.0
	for i, asset := range u.Assets {
		if w[i] == 0 {
			continue
		}
		d, ok := specificRisk.Variance(asset)
		if !ok {
			return nil, &ContractViolationError{
				Date:   u.Date,
				Asset:  asset,
				Detail: "specific variance missing for reconciled asset",
			}
		}
		specificVar += w[i] * w[i] * d
	}

	return &RiskDecomposition{
		Total:    factorVar + specificVar,
		Factor:   factorVar,
		Specific: specificVar,
	}, nil
}

// weightVector aligns an id-keyed weight map to the given asset order.
func weightVector(assets []string, date string, weights map[string]float64) ([]float64, error) {
	index := make(map[string]int, len(assets))
	for i, a := range assets {
		index[a] = i
	}

	w := make([]float64, len(assets))
	for asset, weight := range weights {
		i, ok := index[asset]
		if !ok {
			return nil, fmt.Errorf("weighted asset %s not in universe for %s", asset, date)
		}
		w[i] = weight
	}
	return w, nil
}
