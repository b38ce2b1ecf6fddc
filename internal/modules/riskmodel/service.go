package riskmodel

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverfund/sfquant/internal/modules/panels"
)

// Result is the output of one construction call: the validated matrix, its
// validation report, and the reconciled universe it was built from.
type Result struct {
	Date     string
	Universe *Universe
	Matrix   *AssetCovarianceMatrix
	Report   *ValidationReport
}

// Service orchestrates the per-date pipeline: panel loads, reconciliation,
// assembly, validation. It holds no mutable state between calls; the only
// shared structure is the immutable-entry matrix cache.
type Service struct {
	store     *panels.Store
	assembler *Assembler
	validator *Validator
	cache     *MatrixCache // optional
	log       zerolog.Logger
}

// NewService creates a risk model service. cache may be nil to disable
// memoization.
func NewService(
	store *panels.Store,
	assembler *Assembler,
	validator *Validator,
	cache *MatrixCache,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:     store,
		assembler: assembler,
		validator: validator,
		cache:     cache,
		log:       log.With().Str("component", "riskmodel").Logger(),
	}
}

// Construct builds and validates the asset covariance matrix for a date.
// Accessor and reconciler errors abort construction immediately - no partial
// matrix is ever returned. assetFilter optionally restricts the universe.
func (s *Service) Construct(ctx context.Context, date string, assetFilter []string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	exposures, err := s.store.Exposures(date, assetFilter)
	if err != nil {
		return nil, err
	}
	factorCov, err := s.store.FactorCovariance(date)
	if err != nil {
		return nil, err
	}
	specificRisk, err := s.store.SpecificRisk(date, assetFilter)
	if err != nil {
		return nil, err
	}

	var key string
	if s.cache != nil {
		key = PanelChecksum(date, exposures, factorCov, specificRisk)
		if entry, ok := s.cache.Get(key); ok {
			s.log.Debug().Str("date", date).Msg("Using cached covariance matrix")
			universe, err := Reconcile(date, exposures, factorCov, specificRisk)
			if err != nil {
				return nil, err
			}
			return &Result{
				Date:     date,
				Universe: universe,
				Matrix:   entry.Matrix,
				Report:   entry.Report,
			}, nil
		}
	}

	universe, err := Reconcile(date, exposures, factorCov, specificRisk)
	if err != nil {
		return nil, err
	}

	assembled, err := s.assembler.Assemble(universe, exposures, factorCov, specificRisk)
	if err != nil {
		return nil, err
	}

	matrix, report, err := s.validator.Validate(assembled)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Put(key, &CacheEntry{Matrix: matrix, Report: report})
	}

	s.log.Info().
		Str("date", date).
		Int("assets", universe.N()).
		Int("factors", universe.K()).
		Bool("repaired", report.Repaired).
		Dur("elapsed", time.Since(start)).
		Msg("Constructed covariance matrix")

	return &Result{
		Date:     date,
		Universe: universe,
		Matrix:   matrix,
		Report:   report,
	}, nil
}

// PortfolioRisk reconciles the panels for a date and decomposes the variance
// of the given weights into factor and specific parts. It never materializes
// the full N x N matrix, so it stays cheap for wide universes.
func (s *Service) PortfolioRisk(ctx context.Context, date string, weights map[string]float64) (*RiskDecomposition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exposures, err := s.store.Exposures(date, nil)
	if err != nil {
		return nil, err
	}
	factorCov, err := s.store.FactorCovariance(date)
	if err != nil {
		return nil, err
	}
	specificRisk, err := s.store.SpecificRisk(date, nil)
	if err != nil {
		return nil, err
	}

	universe, err := Reconcile(date, exposures, factorCov, specificRisk)
	if err != nil {
		return nil, err
	}

	return DecomposeRisk(universe, exposures, factorCov, specificRisk, weights)
}

// BatchItem is the per-date outcome of a batch construction. Exactly one of
// Result and Err is set.
type BatchItem struct {
	Date   string
	Result *Result
	Err    error
}

// ConstructBatch builds matrices for multiple dates on a bounded worker
// pool. Dates are independent and side-effect-free with respect to each
// other, so one date's failure never affects another's construction. Results
// come back in input order.
func (s *Service) ConstructBatch(ctx context.Context, dates []string, workers int) []BatchItem {
	if workers < 1 {
		workers = 1
	}
	if workers > len(dates) {
		workers = len(dates)
	}

	items := make([]BatchItem, len(dates))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				date := dates[idx]
				result, err := s.Construct(ctx, date, nil)
				items[idx] = BatchItem{Date: date, Result: result, Err: err}
			}
		}()
	}

	for idx := range dates {
		select {
		case <-ctx.Done():
			// Mark the dates that never ran; workers drain the closed channel.
			for i := idx; i < len(dates); i++ {
				items[i] = BatchItem{Date: dates[i], Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return items
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	return items
}
