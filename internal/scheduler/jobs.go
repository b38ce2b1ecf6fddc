package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverfund/sfquant/internal/modules/panels"
	"github.com/silverfund/sfquant/internal/modules/riskmodel"
)

// CacheWarmJob pre-constructs the covariance matrix for the most recent
// panel date so the first morning request hits a warm cache.
type CacheWarmJob struct {
	store   *panels.Store
	service *riskmodel.Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewCacheWarmJob creates the cache-warm job. A non-positive timeout
// defaults to ten minutes.
func NewCacheWarmJob(store *panels.Store, service *riskmodel.Service, timeout time.Duration, log zerolog.Logger) *CacheWarmJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &CacheWarmJob{
		store:   store,
		service: service,
		timeout: timeout,
		log:     log.With().Str("job", "cache_warm").Logger(),
	}
}

// Name implements Job.
func (j *CacheWarmJob) Name() string { return "cache_warm" }

// Run implements Job. An empty panel store is not an error: there is simply
// nothing to warm yet.
func (j *CacheWarmJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	dates, err := j.store.Dates(panels.KindExposures, "", "")
	if err != nil {
		return fmt.Errorf("listing panel dates: %w", err)
	}
	if len(dates) == 0 {
		j.log.Info().Msg("No panel dates available, nothing to warm")
		return nil
	}

	latest := dates[len(dates)-1]

	start := time.Now()
	result, err := j.service.Construct(ctx, latest, nil)
	if err != nil {
		return fmt.Errorf("warming matrix for %s: %w", latest, err)
	}

	j.log.Info().
		Str("date", latest).
		Int("dim", result.Matrix.Dim()).
		Dur("duration_ms", time.Since(start)).
		Msg("Cache warmed")
	return nil
}
