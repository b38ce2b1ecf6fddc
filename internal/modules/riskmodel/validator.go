package riskmodel

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// ValidatorConfig holds the post-construction check tolerances.
type ValidatorConfig struct {
	SymmetryTolerance float64 // absolute tolerance, scaled by entry magnitude
	EigenvalueFloor   float64 // minimum acceptable eigenvalue (0 = PSD)
	EigenvalueTol     float64 // numerical slack below the floor before repair triggers
	RepairEpsilon     float64 // clipped eigenvalues are raised to this value
	RepairMassBudget  float64 // max fraction of absolute eigenvalue mass a repair may move
}

// DefaultValidatorConfig returns conservative defaults: PSD floor, 1% repair
// mass budget.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		SymmetryTolerance: 1e-8,
		EigenvalueFloor:   0,
		EigenvalueTol:     1e-12,
		RepairEpsilon:     1e-10,
		RepairMassBudget:  0.01,
	}
}

// ValidationReport records the outcome of validating one matrix, including
// any eigenvalue repair. Repairs are absorbed, never silently discarded: the
// report is the auditable signal that one occurred.
type ValidationReport struct {
	ID                  string  `json:"id"`
	Date                string  `json:"date"`
	Dim                 int     `json:"dim"`
	MinEigenvalue       float64 `json:"min_eigenvalue"`
	Repaired            bool    `json:"repaired"`
	ClippedCount        int     `json:"clipped_count"`
	ClippedMassFraction float64 `json:"clipped_mass_fraction"`
}

// Validator runs post-construction checks and the deterministic repair
// policy on assembled matrices.
type Validator struct {
	cfg ValidatorConfig
	log zerolog.Logger
}

// NewValidator creates a validator. Zero-valued tolerances in cfg fall back
// to the defaults.
func NewValidator(cfg ValidatorConfig, log zerolog.Logger) *Validator {
	def := DefaultValidatorConfig()
	if cfg.SymmetryTolerance <= 0 {
		cfg.SymmetryTolerance = def.SymmetryTolerance
	}
	if cfg.EigenvalueTol <= 0 {
		cfg.EigenvalueTol = def.EigenvalueTol
	}
	if cfg.RepairEpsilon <= 0 {
		cfg.RepairEpsilon = def.RepairEpsilon
	}
	if cfg.RepairMassBudget <= 0 {
		cfg.RepairMassBudget = def.RepairMassBudget
	}
	return &Validator{
		cfg: cfg,
		log: log.With().Str("component", "validator").Logger(),
	}
}

// Validate checks a matrix in order: finiteness, symmetry, then the
// eigenvalue floor. A violation of the floor within the repair mass budget is
// repaired deterministically (negative eigenvalues clipped to a small
// positive epsilon, matrix reconstructed) and recorded; beyond the budget it
// fails with UnrepairablePSDViolation. The returned matrix is the validated
// (possibly repaired) one.
func (v *Validator) Validate(m *AssetCovarianceMatrix) (*AssetCovarianceMatrix, *ValidationReport, error) {
	n := m.Dim()
	assets := m.Assets()
	data := m.raw()

	// 1. No NaN/Inf entries.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			val := data[i*n+j]
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return nil, nil, &NonFiniteEntryError{
					Date:     m.Date(),
					Row:      i,
					Col:      j,
					AssetRow: assets[i],
					AssetCol: assets[j],
				}
			}
		}
	}

	// 2. Symmetry within tolerance.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			upper, lower := data[i*n+j], data[j*n+i]
			scale := math.Max(1, math.Max(math.Abs(upper), math.Abs(lower)))
			if math.Abs(upper-lower) > v.cfg.SymmetryTolerance*scale {
				return nil, nil, &AsymmetryExceededError{
					Date:  m.Date(),
					Row:   i,
					Col:   j,
					Delta: upper - lower,
				}
			}
		}
	}

	// 3. Eigenvalue floor via symmetric eigendecomposition.
	var es mat.EigenSym
	if ok := es.Factorize(m.Sym(), true); !ok {
		return nil, nil, fmt.Errorf("eigendecomposition failed for %s", m.Date())
	}
	eigenvalues := es.Values(nil)

	minEig := math.Inf(1)
	for _, ev := range eigenvalues {
		minEig = math.Min(minEig, ev)
	}

	report := &ValidationReport{
		ID:            uuid.New().String(),
		Date:          m.Date(),
		Dim:           n,
		MinEigenvalue: minEig,
	}

	if minEig >= v.cfg.EigenvalueFloor-v.cfg.EigenvalueTol {
		return m, report, nil
	}

	// Repair policy: clip eigenvalues below the floor and reconstruct.
	// The clipped mass fraction measures how much of the spectrum the repair
	// moves; a large fraction means the input cannot be trusted.
	var totalMass, clippedMass float64
	clipped := 0
	repaired := make([]float64, len(eigenvalues))
	for i, ev := range eigenvalues {
		totalMass += math.Abs(ev)
		if ev < v.cfg.EigenvalueFloor {
			clippedMass += math.Abs(ev - v.cfg.EigenvalueFloor)
			repaired[i] = v.cfg.EigenvalueFloor + v.cfg.RepairEpsilon
			clipped++
		} else {
			repaired[i] = ev
		}
	}

	fraction := 0.0
	if totalMass > 0 {
		fraction = clippedMass / totalMass
	}

	if fraction > v.cfg.RepairMassBudget {
		return nil, nil, &UnrepairablePSDViolationError{
			Date:                m.Date(),
			MinEigenvalue:       minEig,
			ClippedMassFraction: fraction,
			Budget:              v.cfg.RepairMassBudget,
		}
	}

	repairedMatrix := reconstruct(m.Date(), assets, &es, repaired)

	report.Repaired = true
	report.ClippedCount = clipped
	report.ClippedMassFraction = fraction

	v.log.Warn().
		Str("date", m.Date()).
		Float64("min_eigenvalue", minEig).
		Int("clipped", clipped).
		Float64("clipped_mass_fraction", fraction).
		Msg("Repaired PSD violation by eigenvalue clipping")

	return repairedMatrix, report, nil
}

// reconstruct rebuilds Q * diag(values) * Q^T from an eigendecomposition and
// re-symmetrizes the result into a fresh buffer.
func reconstruct(date string, assets []string, es *mat.EigenSym, values []float64) *AssetCovarianceMatrix {
	n := len(values)

	var q mat.Dense
	es.VectorsTo(&q)

	scaled := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			scaled.Set(i, j, q.At(i, j)*values[j])
		}
	}

	var out mat.Dense
	out.Mul(scaled, q.T())

	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = (out.At(i, j) + out.At(j, i)) / 2
		}
	}

	return newAssetCovarianceMatrix(date, assets, data)
}
