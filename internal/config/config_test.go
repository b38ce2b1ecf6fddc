package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SFQUANT_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultSymmetryTolerance, cfg.SymmetryTolerance)
	assert.Equal(t, DefaultRepairMassBudget, cfg.RepairMassBudget)
	assert.Equal(t, DefaultBatchWorkers, cfg.BatchWorkers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SFQUANT_DATA_DIR", t.TempDir())
	t.Setenv("SFQUANT_PORT", "9020")
	t.Setenv("RISK_REPAIR_MASS_BUDGET", "0.05")
	t.Setenv("RISK_BATCH_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9020, cfg.Port)
	assert.Equal(t, 0.05, cfg.RepairMassBudget)
	assert.Equal(t, 8, cfg.BatchWorkers)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero symmetry tolerance", func(c *Config) { c.SymmetryTolerance = 0 }},
		{"negative repair epsilon", func(c *Config) { c.RepairEpsilon = -1e-10 }},
		{"repair budget above one", func(c *Config) { c.RepairMassBudget = 1.5 }},
		{"zero workers", func(c *Config) { c.BatchWorkers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				SymmetryTolerance: DefaultSymmetryTolerance,
				RepairEpsilon:     DefaultRepairEpsilon,
				RepairMassBudget:  DefaultRepairMassBudget,
				BatchWorkers:      DefaultBatchWorkers,
			}
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
