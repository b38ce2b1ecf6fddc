package panels

import (
	"errors"
	"fmt"
)

// Sentinel values so callers can classify failures with errors.Is without
// caring which panel produced them.
var (
	ErrDataUnavailable = errors.New("panel data unavailable")
	ErrSchemaMismatch  = errors.New("panel schema mismatch")
)

// DataUnavailableError reports that a panel has no rows for the requested date.
// Recoverable by caller retry or backfill.
type DataUnavailableError struct {
	Kind PanelKind
	Date string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("no %s data available for %s", e.Kind, e.Date)
}

func (e *DataUnavailableError) Unwrap() error { return ErrDataUnavailable }

// SchemaMismatchError reports that the source panel lacks an expected
// key column or table.
type SchemaMismatchError struct {
	Kind   PanelKind
	Date   string
	Detail string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s panel schema mismatch for %s: %s", e.Kind, e.Date, e.Detail)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }
