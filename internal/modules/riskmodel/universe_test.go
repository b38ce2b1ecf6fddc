package riskmodel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverfund/sfquant/internal/modules/panels"
)

func buildExposures(date string, cells map[string]map[string]float64) *panels.ExposureTable {
	t := panels.NewExposureTable(date)
	for asset, row := range cells {
		for factor, v := range row {
			t.Set(asset, factor, v)
		}
	}
	return t
}

func buildFactorCov(date string, cells map[[2]string]float64) *panels.FactorCovTable {
	t := panels.NewFactorCovTable(date)
	for key, v := range cells {
		t.Set(key[0], key[1], v)
	}
	return t
}

func buildSpecificRisk(date string, variances map[string]float64) *panels.SpecificRiskTable {
	t := panels.NewSpecificRiskTable(date)
	for asset, v := range variances {
		t.Set(asset, v)
	}
	return t
}

func TestReconcile_AssetIntersection(t *testing.T) {
	// Exposures for {A, B, C}, specific risk for {A, B}: universe is {A, B}.
	exposures := buildExposures("2024-01-02", map[string]map[string]float64{
		"A": {"BETA": 1.0},
		"B": {"BETA": 0.5},
		"C": {"BETA": 1.2},
	})
	factorCov := buildFactorCov("2024-01-02", map[[2]string]float64{
		{"BETA", "BETA"}: 4.0,
	})
	specificRisk := buildSpecificRisk("2024-01-02", map[string]float64{
		"A": 0.1,
		"B": 0.2,
	})

	u, err := Reconcile("2024-01-02", exposures, factorCov, specificRisk)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, u.Assets)
	assert.Equal(t, []string{"BETA"}, u.Factors)
}

func TestReconcile_PartialExposureRowExcluded(t *testing.T) {
	// B is missing its VALUE exposure: the whole row is dropped, not patched.
	exposures := buildExposures("2024-01-02", map[string]map[string]float64{
		"A": {"BETA": 1.0, "VALUE": 0.3},
		"B": {"BETA": 0.5},
	})
	factorCov := buildFactorCov("2024-01-02", map[[2]string]float64{
		{"BETA", "BETA"}:   4.0,
		{"BETA", "VALUE"}:  1.0,
		{"VALUE", "VALUE"}: 9.0,
	})
	specificRisk := buildSpecificRisk("2024-01-02", map[string]float64{
		"A": 0.1,
		"B": 0.2,
	})

	u, err := Reconcile("2024-01-02", exposures, factorCov, specificRisk)
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, u.Assets)
}

func TestReconcile_FactorIntersection(t *testing.T) {
	// MOMENTUM has exposures but no covariance row: it is dropped, and the
	// asset rows only need to be complete for the retained factors.
	exposures := buildExposures("2024-01-02", map[string]map[string]float64{
		"A": {"BETA": 1.0, "MOMENTUM": 0.7},
		"B": {"BETA": 0.5},
	})
	factorCov := buildFactorCov("2024-01-02", map[[2]string]float64{
		{"BETA", "BETA"}: 4.0,
	})
	specificRisk := buildSpecificRisk("2024-01-02", map[string]float64{
		"A": 0.1,
		"B": 0.2,
	})

	u, err := Reconcile("2024-01-02", exposures, factorCov, specificRisk)
	require.NoError(t, err)

	assert.Equal(t, []string{"BETA"}, u.Factors)
	assert.Equal(t, []string{"A", "B"}, u.Assets)
}

func TestReconcile_EmptyUniverse_NoCommonAssets(t *testing.T) {
	exposures := buildExposures("2024-01-02", map[string]map[string]float64{
		"A": {"BETA": 1.0},
	})
	factorCov := buildFactorCov("2024-01-02", map[[2]string]float64{
		{"BETA", "BETA"}: 4.0,
	})
	specificRisk := buildSpecificRisk("2024-01-02", map[string]float64{
		"Z": 0.1,
	})

	_, err := Reconcile("2024-01-02", exposures, factorCov, specificRisk)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyUniverse))
}

func TestReconcile_EmptyUniverse_NoCommonFactors(t *testing.T) {
	// Zero common factors is rejected as EmptyUniverse rather than producing
	// a pure-diagonal matrix. K=0 never reaches the assembler.
	exposures := buildExposures("2024-01-02", map[string]map[string]float64{
		"A": {"BETA": 1.0},
	})
	factorCov := buildFactorCov("2024-01-02", map[[2]string]float64{
		{"VALUE", "VALUE"}: 9.0,
	})
	specificRisk := buildSpecificRisk("2024-01-02", map[string]float64{
		"A": 0.1,
	})

	_, err := Reconcile("2024-01-02", exposures, factorCov, specificRisk)
	require.Error(t, err)

	var empty *EmptyUniverseError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "2024-01-02", empty.Date)
	assert.Equal(t, 0, empty.Factors)
}

func TestReconcile_DeterministicOrdering(t *testing.T) {
	exposures := buildExposures("2024-01-02", map[string]map[string]float64{
		"ZED":   {"VALUE": 0.1, "BETA": 1.0},
		"ALPHA": {"VALUE": 0.2, "BETA": 0.8},
		"MID":   {"VALUE": 0.3, "BETA": 0.9},
	})
	factorCov := buildFactorCov("2024-01-02", map[[2]string]float64{
		{"BETA", "BETA"}:   4.0,
		{"BETA", "VALUE"}:  1.0,
		{"VALUE", "VALUE"}: 9.0,
	})
	specificRisk := buildSpecificRisk("2024-01-02", map[string]float64{
		"ZED": 0.1, "ALPHA": 0.2, "MID": 0.3,
	})

	for i := 0; i < 20; i++ {
		u, err := Reconcile("2024-01-02", exposures, factorCov, specificRisk)
		require.NoError(t, err)
		assert.Equal(t, []string{"ALPHA", "MID", "ZED"}, u.Assets)
		assert.Equal(t, []string{"BETA", "VALUE"}, u.Factors)
	}
}
