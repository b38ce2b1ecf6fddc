package performance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoDayFixture() ([]WeightRecord, []ReturnRecord) {
	weights := []WeightRecord{
		{Date: "2024-01-02", Asset: "A", Weight: 0.5},
		{Date: "2024-01-02", Asset: "B", Weight: 0.5},
		{Date: "2024-01-03", Asset: "A", Weight: 0.3},
		{Date: "2024-01-03", Asset: "B", Weight: 0.7},
	}
	returns := []ReturnRecord{
		{Date: "2024-01-02", Asset: "A", Return: 0.02},
		{Date: "2024-01-02", Asset: "B", Return: 0.01},
		{Date: "2024-01-03", Asset: "A", Return: -0.01},
		{Date: "2024-01-03", Asset: "B", Return: 0.03},
	}
	return weights, returns
}

func TestReturnsFromWeights(t *testing.T) {
	weights, returns := twoDayFixture()

	series := ReturnsFromWeights(weights, returns)
	require.Len(t, series, 2)

	assert.Equal(t, "2024-01-02", series[0].Date)
	assert.InDelta(t, 0.5*0.02+0.5*0.01, series[0].Return, 1e-12)
	// Forward return holds the first day's weights through the second day.
	assert.InDelta(t, 0.5*-0.01+0.5*0.03, series[0].FwdReturn, 1e-12)

	assert.Equal(t, "2024-01-03", series[1].Date)
	assert.InDelta(t, 0.3*-0.01+0.7*0.03, series[1].Return, 1e-12)
	// The last date has no next-day return.
	assert.Equal(t, 0.0, series[1].FwdReturn)
}

func TestReturnsFromWeights_MissingReturnSkipped(t *testing.T) {
	weights := []WeightRecord{
		{Date: "2024-01-02", Asset: "A", Weight: 0.5},
		{Date: "2024-01-02", Asset: "GHOST", Weight: 0.5},
	}
	returns := []ReturnRecord{
		{Date: "2024-01-02", Asset: "A", Return: 0.02},
	}

	series := ReturnsFromWeights(weights, returns)
	require.Len(t, series, 1)
	assert.InDelta(t, 0.5*0.02, series[0].Return, 1e-12)
}

func TestMultiReturnsFromWeights(t *testing.T) {
	weights, returns := twoDayFixture()
	benchmark := []WeightRecord{
		{Date: "2024-01-02", Asset: "A", Weight: 1.0},
		{Date: "2024-01-03", Asset: "A", Weight: 1.0},
	}

	series := MultiReturnsFromWeights(weights, benchmark, returns)
	require.Len(t, series, 2)

	first := series[0]
	assert.InDelta(t, 0.015, first.Total, 1e-12)
	assert.InDelta(t, 0.02, first.Benchmark, 1e-12)
	// Active weights: A 0.5-1.0 = -0.5, B 0.5-0 = 0.5.
	assert.InDelta(t, -0.5*0.02+0.5*0.01, first.Active, 1e-12)

	// Both portfolios span the same return universe here, so the identity
	// active = total - benchmark holds exactly.
	assert.InDelta(t, first.Total-first.Benchmark, first.Active, 1e-12)
}
