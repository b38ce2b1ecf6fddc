package riskmodel

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/silverfund/sfquant/pkg/logger"
)

func newTestValidator(cfg ValidatorConfig) *Validator {
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	return NewValidator(cfg, log)
}

// diagMatrix builds a diagonal AssetCovarianceMatrix; the diagonal entries
// are exactly its eigenvalues.
func diagMatrix(date string, entries []float64) *AssetCovarianceMatrix {
	n := len(entries)
	assets := make([]string, n)
	data := make([]float64, n*n)
	for i, v := range entries {
		assets[i] = string(rune('A' + i))
		data[i*n+i] = v
	}
	return newAssetCovarianceMatrix(date, assets, data)
}

func TestValidate_CleanMatrixPasses(t *testing.T) {
	m := diagMatrix("2024-01-02", []float64{2, 3, 5})

	validated, report, err := newTestValidator(DefaultValidatorConfig()).Validate(m)
	require.NoError(t, err)

	assert.Same(t, m, validated)
	assert.False(t, report.Repaired)
	assert.Equal(t, 0, report.ClippedCount)
	assert.InDelta(t, 2.0, report.MinEigenvalue, 1e-12)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "2024-01-02", report.Date)
}

func TestValidate_NonFiniteEntry(t *testing.T) {
	m := diagMatrix("2024-01-02", []float64{2, 3, 5})
	m.data[1*3+2] = math.NaN()
	m.data[2*3+1] = math.NaN()

	_, _, err := newTestValidator(DefaultValidatorConfig()).Validate(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonFiniteEntry))

	var nf *NonFiniteEntryError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 1, nf.Row)
	assert.Equal(t, 2, nf.Col)
	assert.Equal(t, "B", nf.AssetRow)
	assert.Equal(t, "C", nf.AssetCol)
}

func TestValidate_AsymmetryExceeded(t *testing.T) {
	m := diagMatrix("2024-01-02", []float64{2, 3, 5})
	m.data[0*3+1] = 1.0
	m.data[1*3+0] = 1.5

	_, _, err := newTestValidator(DefaultValidatorConfig()).Validate(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAsymmetryExceeded))
}

func TestValidate_NumericalNoiseRepaired(t *testing.T) {
	// One eigenvalue at -1e-6 is numerical noise: it must be clipped and
	// reported, not rejected.
	m := diagMatrix("2024-01-02", []float64{5, 5, -1e-6})

	validated, report, err := newTestValidator(DefaultValidatorConfig()).Validate(m)
	require.NoError(t, err)

	assert.True(t, report.Repaired)
	assert.Equal(t, 1, report.ClippedCount)
	assert.InDelta(t, -1e-6, report.MinEigenvalue, 1e-9)
	assert.Less(t, report.ClippedMassFraction, 0.01)

	// The repaired matrix is PSD: every eigenvalue at or above zero.
	var es mat.EigenSym
	require.True(t, es.Factorize(validated.Sym(), false))
	for _, ev := range es.Values(nil) {
		assert.GreaterOrEqual(t, ev, 0.0)
	}

	// Untouched part of the spectrum survives the round trip.
	assert.InDelta(t, 5.0, validated.At(0, 0), 1e-9)
	assert.InDelta(t, 5.0, validated.At(1, 1), 1e-9)
}

func TestValidate_RepairedMatrixIsSymmetric(t *testing.T) {
	m := diagMatrix("2024-01-02", []float64{5, 5, -1e-6})

	validated, _, err := newTestValidator(DefaultValidatorConfig()).Validate(m)
	require.NoError(t, err)

	for i := 0; i < validated.Dim(); i++ {
		for j := 0; j < validated.Dim(); j++ {
			assert.Equal(t, validated.At(i, j), validated.At(j, i))
		}
	}
}

func TestValidate_UnrepairableViolation(t *testing.T) {
	// An eigenvalue at -1.0 on a matrix whose trace is 10 moves far more
	// than 1% of eigenvalue mass: too corrupted to trust.
	m := diagMatrix("2024-01-02", []float64{6, 5, -1})

	_, _, err := newTestValidator(DefaultValidatorConfig()).Validate(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnrepairablePSD))

	var unrep *UnrepairablePSDViolationError
	require.ErrorAs(t, err, &unrep)
	assert.InDelta(t, -1.0, unrep.MinEigenvalue, 1e-9)
	assert.Greater(t, unrep.ClippedMassFraction, 0.01)
}

func TestValidate_RepairBudgetConfigurable(t *testing.T) {
	m := diagMatrix("2024-01-02", []float64{6, 5, -1})

	cfg := DefaultValidatorConfig()
	cfg.RepairMassBudget = 0.2 // 1/12 of mass clipped fits in a 20% budget

	validated, report, err := newTestValidator(cfg).Validate(m)
	require.NoError(t, err)
	assert.True(t, report.Repaired)
	assert.NotNil(t, validated)
}

func TestValidate_EigenvalueFloorConfigurable(t *testing.T) {
	// With a floor above zero, a small positive eigenvalue triggers repair.
	m := diagMatrix("2024-01-02", []float64{5, 5, 1e-9})

	cfg := DefaultValidatorConfig()
	cfg.EigenvalueFloor = 1e-6
	cfg.RepairMassBudget = 0.5

	_, report, err := newTestValidator(cfg).Validate(m)
	require.NoError(t, err)
	assert.True(t, report.Repaired)
	assert.Equal(t, 1, report.ClippedCount)
}

func TestValidate_DeterministicRepair(t *testing.T) {
	cfg := DefaultValidatorConfig()
	validator := newTestValidator(cfg)

	first, _, err := validator.Validate(diagMatrix("2024-01-02", []float64{5, 5, -1e-6}))
	require.NoError(t, err)
	second, _, err := validator.Validate(diagMatrix("2024-01-02", []float64{5, 5, -1e-6}))
	require.NoError(t, err)

	for i := 0; i < first.Dim(); i++ {
		for j := 0; j < first.Dim(); j++ {
			assert.Equal(t,
				math.Float64bits(first.At(i, j)),
				math.Float64bits(second.At(i, j)))
		}
	}
}
