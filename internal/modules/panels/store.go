package panels

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/silverfund/sfquant/internal/database"
)

// Store provides read-only access to the panel database. All loads are pure
// reads: identifier normalization is the only transformation applied, and it
// is deterministic.
type Store struct {
	db   *database.DB
	norm Normalizer
	log  zerolog.Logger
}

// NewStore creates a panel store.
func NewStore(db *database.DB, norm Normalizer, log zerolog.Logger) *Store {
	return &Store{
		db:   db,
		norm: norm,
		log:  log.With().Str("component", "panel_store").Logger(),
	}
}

// Exposures loads the exposure panel for a date. assetFilter, when non-nil,
// restricts the result to the given assets (matched after normalization).
// Rows with NULL values are kept as missing cells, never zero-filled.
func (s *Store) Exposures(date string, assetFilter []string) (*ExposureTable, error) {
	rows, err := s.db.Query(
		`SELECT barrid, factor, value FROM exposures WHERE date = ?`, date)
	if err != nil {
		return nil, s.classifyQueryError(KindExposures, date, err)
	}
	defer rows.Close()

	allow := s.assetAllowSet(assetFilter)
	table := NewExposureTable(date)
	seen := 0

	for rows.Next() {
		var barrid, factor string
		var value sql.NullFloat64
		if err := rows.Scan(&barrid, &factor, &value); err != nil {
			return nil, &SchemaMismatchError{Kind: KindExposures, Date: date, Detail: err.Error()}
		}
		seen++

		asset := s.norm.Asset(barrid)
		if allow != nil {
			if _, ok := allow[asset]; !ok {
				continue
			}
		}
		if !value.Valid {
			// Missing cell: the asset is not eligible for this factor today.
			continue
		}
		table.Set(asset, s.norm.Factor(factor), value.Float64)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exposures for %s: %w", date, err)
	}

	if seen == 0 {
		return nil, &DataUnavailableError{Kind: KindExposures, Date: date}
	}

	s.log.Debug().
		Str("date", date).
		Int("assets", table.Len()).
		Int("factors", len(table.Factors())).
		Msg("Loaded exposure panel")

	return table, nil
}

// FactorCovariance loads the factor covariance panel for a date. The source
// stores the upper triangle; cells are mirrored to the transpose position
// unless the transpose was delivered explicitly.
func (s *Store) FactorCovariance(date string) (*FactorCovTable, error) {
	rows, err := s.db.Query(
		`SELECT factor_1, factor_2, value FROM factor_covariances WHERE date = ?`, date)
	if err != nil {
		return nil, s.classifyQueryError(KindFactorCovariance, date, err)
	}
	defer rows.Close()

	table := NewFactorCovTable(date)
	seen := 0

	for rows.Next() {
		var f1, f2 string
		var value sql.NullFloat64
		if err := rows.Scan(&f1, &f2, &value); err != nil {
			return nil, &SchemaMismatchError{Kind: KindFactorCovariance, Date: date, Detail: err.Error()}
		}
		seen++

		if !value.Valid {
			continue
		}
		table.Set(s.norm.Factor(f1), s.norm.Factor(f2), value.Float64)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating factor covariances for %s: %w", date, err)
	}

	if seen == 0 {
		return nil, &DataUnavailableError{Kind: KindFactorCovariance, Date: date}
	}

	s.log.Debug().
		Str("date", date).
		Int("factors", len(table.Factors())).
		Msg("Loaded factor covariance panel")

	return table, nil
}

// SpecificRisk loads the specific risk panel for a date. Assets with NULL
// variance are dropped from the table - an unknown specific risk excludes the
// asset from the universe rather than silently zeroing its risk.
func (s *Store) SpecificRisk(date string, assetFilter []string) (*SpecificRiskTable, error) {
	rows, err := s.db.Query(
		`SELECT barrid, variance FROM specific_risk WHERE date = ?`, date)
	if err != nil {
		return nil, s.classifyQueryError(KindSpecificRisk, date, err)
	}
	defer rows.Close()

	allow := s.assetAllowSet(assetFilter)
	table := NewSpecificRiskTable(date)
	seen := 0

	for rows.Next() {
		var barrid string
		var variance sql.NullFloat64
		if err := rows.Scan(&barrid, &variance); err != nil {
			return nil, &SchemaMismatchError{Kind: KindSpecificRisk, Date: date, Detail: err.Error()}
		}
		seen++

		asset := s.norm.Asset(barrid)
		if allow != nil {
			if _, ok := allow[asset]; !ok {
				continue
			}
		}
		if !variance.Valid {
			continue
		}
		table.Set(asset, variance.Float64)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating specific risk for %s: %w", date, err)
	}

	if seen == 0 {
		return nil, &DataUnavailableError{Kind: KindSpecificRisk, Date: date}
	}

	s.log.Debug().
		Str("date", date).
		Int("assets", table.Len()).
		Msg("Loaded specific risk panel")

	return table, nil
}

// Dates returns the distinct dates with data for a panel kind within the
// inclusive [start, end] range, ascending. Range loads are expressed as a
// date listing followed by per-date loads so batch construction stays
// per-date isolated.
func (s *Store) Dates(kind PanelKind, start, end string) ([]string, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	// Empty bounds leave that side of the range open.
	query := fmt.Sprintf(
		`SELECT DISTINCT date FROM %s WHERE (? = '' OR date >= ?) AND (? = '' OR date <= ?) ORDER BY date`, table)
	rows, err := s.db.Query(query, start, start, end, end)
	if err != nil {
		return nil, s.classifyQueryError(kind, start+".."+end, err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan panel date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating panel dates: %w", err)
	}

	return dates, nil
}

func tableFor(kind PanelKind) (string, error) {
	switch kind {
	case KindExposures:
		return "exposures", nil
	case KindFactorCovariance:
		return "factor_covariances", nil
	case KindSpecificRisk:
		return "specific_risk", nil
	default:
		return "", fmt.Errorf("unknown panel kind %q", kind)
	}
}

// assetAllowSet builds a normalized allow-set from an optional asset filter.
// Returns nil when no filter applies.
func (s *Store) assetAllowSet(assetFilter []string) map[string]struct{} {
	if assetFilter == nil {
		return nil
	}
	allow := make(map[string]struct{}, len(assetFilter))
	for _, a := range assetFilter {
		allow[s.norm.Asset(a)] = struct{}{}
	}
	return allow
}

// classifyQueryError maps driver errors onto the panel error taxonomy.
// A missing table or column is a schema problem, not an empty panel.
func (s *Store) classifyQueryError(kind PanelKind, date string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column") {
		return &SchemaMismatchError{Kind: kind, Date: date, Detail: msg}
	}
	return fmt.Errorf("failed to query %s panel for %s: %w", kind, date, err)
}
