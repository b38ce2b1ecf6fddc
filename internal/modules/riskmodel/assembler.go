package riskmodel

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/silverfund/sfquant/internal/modules/panels"
)

// DefaultSymmetryTolerance is the relative tolerance for the factor
// covariance symmetry gate.
const DefaultSymmetryTolerance = 1e-8

// Assembler combines exposures (N x K), factor covariance (K x K), and
// specific variance (N) into the N x N asset covariance matrix.
type Assembler struct {
	symTol float64
	log    zerolog.Logger
}

// NewAssembler creates an assembler. symTol <= 0 selects the default.
func NewAssembler(symTol float64, log zerolog.Logger) *Assembler {
	if symTol <= 0 {
		symTol = DefaultSymmetryTolerance
	}
	return &Assembler{
		symTol: symTol,
		log:    log.With().Str("component", "assembler").Logger(),
	}
}

// Assemble computes sigma = B*F*B^T + D in the universe's deterministic
// order.
//
// The product is evaluated (B*F) first (N x K), then multiplied by B^T,
// which is O(N*K^2 + N^2*K) and never forms an N x N intermediate more than
// once. D is applied as a diagonal update. The result is explicitly
// symmetrized as (sigma + sigma^T)/2 before returning: floating-point
// multiply order can introduce asymmetry below tolerance, and downstream
// consumers assume exact symmetry.
func (a *Assembler) Assemble(
	u *Universe,
	exposures *panels.ExposureTable,
	factorCov *panels.FactorCovTable,
	specificRisk *panels.SpecificRiskTable,
) (*AssetCovarianceMatrix, error) {
	n, k := u.N(), u.K()

	f, err := a.buildFactorCovariance(u, factorCov)
	if err != nil {
		return nil, err
	}

	b, err := a.buildExposureMatrix(u, exposures)
	if err != nil {
		return nil, err
	}

	d, err := a.buildSpecificVariances(u, specificRisk)
	if err != nil {
		return nil, err
	}

	// (B*F) first: N x K. Then times B^T: N x N.
	var bf mat.Dense
	bf.Mul(b, f)

	var sigma mat.Dense
	sigma.Mul(&bf, b.T())

	// Diagonal update with the specific variances, then the explicit
	// symmetrization pass into a fresh buffer the output owns exclusively.
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = (sigma.At(i, j) + sigma.At(j, i)) / 2
		}
		data[i*n+i] += d[i]
	}

	a.log.Debug().
		Str("date", u.Date).
		Int("assets", n).
		Int("factors", k).
		Msg("Assembled covariance matrix")

	return newAssetCovarianceMatrix(u.Date, u.Assets, data), nil
}

// buildFactorCovariance materializes F in universe factor order, enforcing
// the symmetry gate. A cell whose transpose disagrees beyond the relative
// tolerance aborts assembly: asymmetry at that level is a data bug, and
// silently symmetrizing it would hide the bug. Cells absent on both sides
// are treated as zero covariance, matching the vendor convention for
// factor pairs with no estimated relationship.
func (a *Assembler) buildFactorCovariance(u *Universe, factorCov *panels.FactorCovTable) (*mat.SymDense, error) {
	k := u.K()
	f := mat.NewSymDense(k, nil)

	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			upper, upOK := factorCov.Value(u.Factors[i], u.Factors[j])
			lower, loOK := factorCov.Value(u.Factors[j], u.Factors[i])

			switch {
			case upOK && loOK:
				scale := math.Max(1, math.Max(math.Abs(upper), math.Abs(lower)))
				if math.Abs(upper-lower) > a.symTol*scale {
					return nil, &AsymmetricFactorCovarianceError{
						Date:    u.Date,
						FactorI: u.Factors[i],
						FactorJ: u.Factors[j],
						Delta:   upper - lower,
					}
				}
				f.SetSym(i, j, (upper+lower)/2)
			case upOK:
				f.SetSym(i, j, upper)
			case loOK:
				f.SetSym(i, j, lower)
			default:
				f.SetSym(i, j, 0)
			}
		}
	}

	return f, nil
}

// buildExposureMatrix materializes B (N x K) in universe order. The
// reconciler guarantees full rows, so a missing cell here means an upstream
// invariant broke.
func (a *Assembler) buildExposureMatrix(u *Universe, exposures *panels.ExposureTable) (*mat.Dense, error) {
	n, k := u.N(), u.K()
	b := mat.NewDense(n, k, nil)

	for i, asset := range u.Assets {
		for j, factor := range u.Factors {
			v, ok := exposures.Value(asset, factor)
			if !ok {
				return nil, &ContractViolationError{
					Date:   u.Date,
					Asset:  asset,
					Detail: "exposure missing for reconciled factor " + factor,
				}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &ContractViolationError{
					Date:   u.Date,
					Asset:  asset,
					Detail: "non-finite exposure for factor " + factor,
				}
			}
			b.Set(i, j, v)
		}
	}

	return b, nil
}

// buildSpecificVariances materializes the diagonal D in universe order. The
// reconciler already excluded assets without a usable specific variance, so
// any violation reaching this stage is an upstream invariant break.
func (a *Assembler) buildSpecificVariances(u *Universe, specificRisk *panels.SpecificRiskTable) ([]float64, error) {
	d := make([]float64, u.N())

	for i, asset := range u.Assets {
		v, ok := specificRisk.Variance(asset)
		if !ok {
			return nil, &ContractViolationError{
				Date:   u.Date,
				Asset:  asset,
				Detail: "specific variance missing for reconciled asset",
			}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, &ContractViolationError{
				Date:   u.Date,
				Asset:  asset,
				Detail: "specific variance must be finite and non-negative",
			}
		}
		d[i] = v
	}

	return d, nil
}
