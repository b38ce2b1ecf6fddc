package riskmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioVariance(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")
	m, err := newTestAssembler().Assemble(u, p.exposures, p.factorCov, p.specificRisk)
	require.NoError(t, err)

	t.Run("single asset", func(t *testing.T) {
		v, err := PortfolioVariance(m, map[string]float64{"A1": 1})
		require.NoError(t, err)
		assert.InDelta(t, 6.0, v, 1e-12)
	})

	t.Run("equal weight pair", func(t *testing.T) {
		// w = (0.5, 0.5, 0): 0.25*(6 + 1 + 1 + 12) = 5.
		v, err := PortfolioVariance(m, map[string]float64{"A1": 0.5, "A2": 0.5})
		require.NoError(t, err)
		assert.InDelta(t, 5.0, v, 1e-12)
	})

	t.Run("unknown asset rejected", func(t *testing.T) {
		_, err := PortfolioVariance(m, map[string]float64{"GHOST": 1})
		assert.Error(t, err)
	})
}

func TestDecomposeRisk_MatchesFullMatrix(t *testing.T) {
	u, p := threeAssetPanels("2024-01-02")
	m, err := newTestAssembler().Assemble(u, p.exposures, p.factorCov, p.specificRisk)
	require.NoError(t, err)

	weights := map[string]float64{"A1": 0.2, "A2": 0.3, "A3": 0.5}

	full, err := PortfolioVariance(m, weights)
	require.NoError(t, err)

	decomp, err := DecomposeRisk(u, p.exposures, p.factorCov, p.specificRisk, weights)
	require.NoError(t, err)

	// The decomposition never materializes the N x N matrix, but its total
	// must agree with the full quadratic form.
	assert.InDelta(t, full, decomp.Total, 1e-12)
	assert.InDelta(t, decomp.Total, decomp.Factor+decomp.Specific, 1e-12)
	assert.Greater(t, decomp.Factor, 0.0)
	assert.Greater(t, decomp.Specific, 0.0)
}
