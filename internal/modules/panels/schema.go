package panels

import (
	"fmt"

	"github.com/silverfund/sfquant/internal/database"
)

// Schema is the panel database schema. Factor covariances are stored
// upper-triangular (factor_1 <= factor_2) as delivered by the risk model
// vendor; the store mirrors them on load. NULL values mark missing cells.
const Schema = `
CREATE TABLE IF NOT EXISTS exposures (
    date   TEXT NOT NULL,
    barrid TEXT NOT NULL,
    factor TEXT NOT NULL,
    value  REAL,
    PRIMARY KEY (date, barrid, factor)
);
CREATE INDEX IF NOT EXISTS idx_exposures_date ON exposures(date);

CREATE TABLE IF NOT EXISTS factor_covariances (
    date     TEXT NOT NULL,
    factor_1 TEXT NOT NULL,
    factor_2 TEXT NOT NULL,
    value    REAL,
    PRIMARY KEY (date, factor_1, factor_2)
);
CREATE INDEX IF NOT EXISTS idx_factor_covariances_date ON factor_covariances(date);

CREATE TABLE IF NOT EXISTS specific_risk (
    date     TEXT NOT NULL,
    barrid   TEXT NOT NULL,
    variance REAL,
    PRIMARY KEY (date, barrid)
);
CREATE INDEX IF NOT EXISTS idx_specific_risk_date ON specific_risk(date);
`

// InitSchema applies the panel schema to the given database.
func InitSchema(db *database.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to apply panels schema: %w", err)
	}
	return nil
}
