// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for panel and cache databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Risk engine tuning. All tolerances are relative unless noted.
	SymmetryTolerance  float64 // factor covariance / output symmetry gate
	EigenvalueFloor    float64 // minimum acceptable eigenvalue before repair kicks in
	RepairEpsilon      float64 // clipped eigenvalues are raised to this value
	RepairMassBudget   float64 // max fraction of absolute eigenvalue mass a repair may move
	BatchWorkers       int     // worker pool size for multi-date construction
	MatrixCacheEntries int     // in-memory LRU capacity (assembled matrices)
}

// Defaults for the risk engine knobs. The repair mass budget is conservative:
// a repair that moves more than 1% of eigenvalue mass means the input model
// is not trustworthy.
const (
	DefaultSymmetryTolerance  = 1e-8
	DefaultEigenvalueFloor    = 0.0
	DefaultRepairEpsilon      = 1e-10
	DefaultRepairMassBudget   = 0.01
	DefaultBatchWorkers       = 4
	DefaultMatrixCacheEntries = 64
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("SFQUANT_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("SFQUANT_PORT", 8010),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		SymmetryTolerance:  getEnvAsFloat("RISK_SYMMETRY_TOLERANCE", DefaultSymmetryTolerance),
		EigenvalueFloor:    getEnvAsFloat("RISK_EIGENVALUE_FLOOR", DefaultEigenvalueFloor),
		RepairEpsilon:      getEnvAsFloat("RISK_REPAIR_EPSILON", DefaultRepairEpsilon),
		RepairMassBudget:   getEnvAsFloat("RISK_REPAIR_MASS_BUDGET", DefaultRepairMassBudget),
		BatchWorkers:       getEnvAsInt("RISK_BATCH_WORKERS", DefaultBatchWorkers),
		MatrixCacheEntries: getEnvAsInt("RISK_MATRIX_CACHE_ENTRIES", DefaultMatrixCacheEntries),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configured values are usable
func (c *Config) Validate() error {
	if c.SymmetryTolerance <= 0 {
		return fmt.Errorf("symmetry tolerance must be positive, got %v", c.SymmetryTolerance)
	}
	if c.RepairEpsilon <= 0 {
		return fmt.Errorf("repair epsilon must be positive, got %v", c.RepairEpsilon)
	}
	if c.RepairMassBudget < 0 || c.RepairMassBudget > 1 {
		return fmt.Errorf("repair mass budget must be in [0,1], got %v", c.RepairMassBudget)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("batch workers must be at least 1, got %d", c.BatchWorkers)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
