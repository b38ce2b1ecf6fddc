package riskmodel

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverfund/sfquant/internal/modules/panels"
	"github.com/silverfund/sfquant/pkg/logger"
)

// threeAssetPanels builds the hand-computed reference scenario:
// B = [[1,0],[0,1],[1,1]], F = [[4,1],[1,9]], D = diag(2,3,5).
func threeAssetPanels(date string) (*Universe, *testPanels) {
	p := &testPanels{
		exposures: buildExposures(date, map[string]map[string]float64{
			"A1": {"BETA": 1, "VALUE": 0},
			"A2": {"BETA": 0, "VALUE": 1},
			"A3": {"BETA": 1, "VALUE": 1},
		}),
		factorCov: buildFactorCov(date, map[[2]string]float64{
			{"BETA", "BETA"}:   4,
			{"BETA", "VALUE"}:  1,
			{"VALUE", "VALUE"}: 9,
		}),
		specificRisk: buildSpecificRisk(date, map[string]float64{
			"A1": 2, "A2": 3, "A3": 5,
		}),
	}
	u := &Universe{
		Date:    date,
		Assets:  []string{"A1", "A2", "A3"},
		Factors: []string{"BETA", "VALUE"},
	}
	return u, p
}

type testPanels struct {
	exposures    *panels.ExposureTable
	factorCov    *panels.FactorCovTable
	specificRisk *panels.SpecificRiskTable
}

func newTestAssembler() *Assembler {
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	return NewAssembler(0, log)
}

func TestAssemble_HandComputedReference(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")

	m, err := newTestAssembler().Assemble(u, p.exposures, p.factorCov, p.specificRisk)
	require.NoError(t, err)

	// Sigma = B*F*B^T + D, computed by hand.
	expected := [][]float64{
		{6, 1, 5},
		{1, 12, 10},
		{5, 10, 20},
	}

	require.Equal(t, 3, m.Dim())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, expected[i][j], m.At(i, j), 1e-12, "entry (%d,%d)", i, j)
		}
	}
}

func TestAssemble_ExactSymmetry(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")

	m, err := newTestAssembler().Assemble(u, p.exposures, p.factorCov, p.specificRisk)
	require.NoError(t, err)

	// Bitwise equality after the explicit symmetrization step, not InDelta.
	for i := 0; i < m.Dim(); i++ {
		for j := 0; j < m.Dim(); j++ {
			assert.Equal(t, m.At(i, j), m.At(j, i))
		}
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")
	assembler := newTestAssembler()

	first, err := assembler.Assemble(u, p.exposures, p.factorCov, p.specificRisk)
	require.NoError(t, err)
	second, err := assembler.Assemble(u, p.exposures, p.factorCov, p.specificRisk)
	require.NoError(t, err)

	// Bit-identical output for identical panel snapshots.
	for i := 0; i < first.Dim(); i++ {
		for j := 0; j < first.Dim(); j++ {
			assert.Equal(t, math.Float64bits(first.At(i, j)), math.Float64bits(second.At(i, j)))
		}
	}
}

func TestAssemble_OutputDoesNotAliasInputs(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")

	m, err := newTestAssembler().Assemble(u, p.exposures, p.factorCov, p.specificRisk)
	require.NoError(t, err)

	before := m.At(0, 0)

	// Mutating the input panel after construction must not change the matrix.
	p.exposures.Set("A1", "BETA", 99)
	p.specificRisk.Set("A1", 99)

	assert.Equal(t, before, m.At(0, 0))
}

func TestAssemble_AsymmetricFactorCovarianceRejected(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")

	// Deliver both sides with a disagreement far beyond rounding noise.
	asymmetric := buildFactorCov("2024-01-02", nil)
	asymmetric.Set("BETA", "BETA", 4)
	asymmetric.Set("VALUE", "VALUE", 9)
	asymmetric.Set("BETA", "VALUE", 1)
	asymmetric.Set("VALUE", "BETA", 2)

	_, err := newTestAssembler().Assemble(u, p.exposures, asymmetric, p.specificRisk)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAsymmetricFactorCovariance))

	var asym *AsymmetricFactorCovarianceError
	require.ErrorAs(t, err, &asym)
	assert.Equal(t, "2024-01-02", asym.Date)
}

func TestAssemble_MirroredUpperTriangleAccepted(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")

	// Upper-triangular delivery: the table mirrors it, so both sides agree
	// exactly and the symmetry gate passes.
	m, err := newTestAssembler().Assemble(u, p.exposures, p.factorCov, p.specificRisk)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Dim())
}

func TestAssemble_ContractViolations(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")

	t.Run("negative specific variance", func(t *testing.T) {
		bad := buildSpecificRisk("2024-01-02", map[string]float64{
			"A1": 2, "A2": -3, "A3": 5,
		})
		_, err := newTestAssembler().Assemble(u, p.exposures, p.factorCov, bad)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrContractViolation))

		var cv *ContractViolationError
		require.ErrorAs(t, err, &cv)
		assert.Equal(t, "A2", cv.Asset)
	})

	t.Run("missing specific variance", func(t *testing.T) {
		bad := buildSpecificRisk("2024-01-02", map[string]float64{
			"A1": 2, "A3": 5,
		})
		_, err := newTestAssembler().Assemble(u, p.exposures, p.factorCov, bad)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrContractViolation))
	})

	t.Run("missing exposure for reconciled factor", func(t *testing.T) {
		bad := buildExposures("2024-01-02", map[string]map[string]float64{
			"A1": {"BETA": 1, "VALUE": 0},
			"A2": {"BETA": 0},
			"A3": {"BETA": 1, "VALUE": 1},
		})
		_, err := newTestAssembler().Assemble(u, bad, p.factorCov, p.specificRisk)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrContractViolation))
	})

	t.Run("non-finite exposure", func(t *testing.T) {
		bad := buildExposures("2024-01-02", map[string]map[string]float64{
			"A1": {"BETA": 1, "VALUE": 0},
			"A2": {"BETA": math.NaN(), "VALUE": 1},
			"A3": {"BETA": 1, "VALUE": 1},
		})
		_, err := newTestAssembler().Assemble(u, bad, p.factorCov, p.specificRisk)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrContractViolation))
	})
}

func TestMatrix_IndexingAndCopies(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")

	m, err := newTestAssembler().Assemble(u, p.exposures, p.factorCov, p.specificRisk)
	require.NoError(t, err)

	i, ok := m.IndexOf("A3")
	require.True(t, ok)
	assert.Equal(t, 2, i)

	v, err := m.Covariance("A1", "A3")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	_, err = m.Covariance("A1", "MISSING")
	assert.Error(t, err)

	// Rows() hands out copies: mutating them must not touch the matrix.
	rows := m.Rows()
	rows[0][0] = 999
	assert.Equal(t, 6.0, m.At(0, 0))

	assets := m.Assets()
	assets[0] = "MUTATED"
	_, ok = m.IndexOf("A1")
	assert.True(t, ok)
}
