package riskmodel

import (
	"errors"
	"fmt"
)

// Sentinel values for errors.Is classification. Every failure carries the
// offending date (and identifiers where applicable) so callers can log or
// re-run diagnostics without re-deriving context.
var (
	ErrEmptyUniverse              = errors.New("empty reconciled universe")
	ErrAsymmetricFactorCovariance = errors.New("asymmetric factor covariance")
	ErrContractViolation          = errors.New("contract violation")
	ErrNonFiniteEntry             = errors.New("non-finite matrix entry")
	ErrAsymmetryExceeded          = errors.New("matrix asymmetry exceeds tolerance")
	ErrUnrepairablePSD            = errors.New("unrepairable PSD violation")
)

// EmptyUniverseError reports that reconciliation produced zero usable assets
// or zero usable factors. Reportable, not retryable without new data: an
// empty matrix returned silently is a dangerous downstream corruption mode.
type EmptyUniverseError struct {
	Date    string
	Assets  int
	Factors int
}

func (e *EmptyUniverseError) Error() string {
	return fmt.Sprintf("empty universe for %s: %d assets, %d factors after reconciliation",
		e.Date, e.Assets, e.Factors)
}

func (e *EmptyUniverseError) Unwrap() error { return ErrEmptyUniverse }

// AsymmetricFactorCovarianceError reports a factor covariance cell whose
// transpose disagrees beyond tolerance. Asymmetry at this magnitude signals a
// data bug, so the assembler refuses to symmetrize it away.
type AsymmetricFactorCovarianceError struct {
	Date    string
	FactorI string
	FactorJ string
	Delta   float64
}

func (e *AsymmetricFactorCovarianceError) Error() string {
	return fmt.Sprintf("factor covariance for %s is asymmetric at (%s, %s): delta %g",
		e.Date, e.FactorI, e.FactorJ, e.Delta)
}

func (e *AsymmetricFactorCovarianceError) Unwrap() error { return ErrAsymmetricFactorCovariance }

// ContractViolationError reports that an upstream invariant was already
// broken when a value reached a stage that assumed it held. Always surfaced,
// never swallowed.
type ContractViolationError struct {
	Date   string
	Asset  string
	Detail string
}

func (e *ContractViolationError) Error() string {
	if e.Asset != "" {
		return fmt.Sprintf("contract violation for %s (asset %s): %s", e.Date, e.Asset, e.Detail)
	}
	return fmt.Sprintf("contract violation for %s: %s", e.Date, e.Detail)
}

func (e *ContractViolationError) Unwrap() error { return ErrContractViolation }

// NonFiniteEntryError identifies a NaN or Inf cell in a constructed matrix.
type NonFiniteEntryError struct {
	Date     string
	Row      int
	Col      int
	AssetRow string
	AssetCol string
}

func (e *NonFiniteEntryError) Error() string {
	return fmt.Sprintf("non-finite entry for %s at (%d, %d) [%s, %s]",
		e.Date, e.Row, e.Col, e.AssetRow, e.AssetCol)
}

func (e *NonFiniteEntryError) Unwrap() error { return ErrNonFiniteEntry }

// AsymmetryExceededError reports output asymmetry beyond the validator's
// tolerance.
type AsymmetryExceededError struct {
	Date  string
	Row   int
	Col   int
	Delta float64
}

func (e *AsymmetryExceededError) Error() string {
	return fmt.Sprintf("asymmetry for %s at (%d, %d) exceeds tolerance: delta %g",
		e.Date, e.Row, e.Col, e.Delta)
}

func (e *AsymmetryExceededError) Unwrap() error { return ErrAsymmetryExceeded }

// UnrepairablePSDViolationError reports that clipping negative eigenvalues
// would move more eigenvalue mass than the configured budget allows. At that
// point the input model is too corrupted to trust silently.
type UnrepairablePSDViolationError struct {
	Date                string
	MinEigenvalue       float64
	ClippedMassFraction float64
	Budget              float64
}

func (e *UnrepairablePSDViolationError) Error() string {
	return fmt.Sprintf("unrepairable PSD violation for %s: min eigenvalue %g, clipped mass %.4f exceeds budget %.4f",
		e.Date, e.MinEigenvalue, e.ClippedMassFraction, e.Budget)
}

func (e *UnrepairablePSDViolationError) Unwrap() error { return ErrUnrepairablePSD }
