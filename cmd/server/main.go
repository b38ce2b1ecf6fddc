// Package main is the entry point for the sfquant risk engine service. It
// wires the panel store, covariance assembler, validator, and matrix cache
// behind an HTTP API, and schedules a nightly cache-warm job.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/silverfund/sfquant/internal/config"
	"github.com/silverfund/sfquant/internal/database"
	"github.com/silverfund/sfquant/internal/modules/panels"
	performancehandlers "github.com/silverfund/sfquant/internal/modules/performance/handlers"
	"github.com/silverfund/sfquant/internal/modules/riskmodel"
	riskhandlers "github.com/silverfund/sfquant/internal/modules/riskmodel/handlers"
	"github.com/silverfund/sfquant/internal/scheduler"
	"github.com/silverfund/sfquant/internal/server"
	"github.com/silverfund/sfquant/pkg/logger"
)

// warmSchedule runs the cache-warm job at 02:30 every morning, after the
// overnight panel loads have landed.
const warmSchedule = "0 30 2 * * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting sfquant risk engine")

	panelsDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/panels.db",
		Profile: database.ProfilePanels,
		Name:    "panels",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open panels database")
	}
	defer panelsDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/cache.db",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := panels.InitSchema(panelsDB); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize panel schema")
	}
	if err := riskmodel.InitCacheSchema(cacheDB); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache schema")
	}

	store := panels.NewStore(panelsDB, panels.NewNormalizer(nil, nil), log)

	matrixCache, err := riskmodel.NewMatrixCache(cfg.MatrixCacheEntries, cacheDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create matrix cache")
	}

	validatorCfg := riskmodel.DefaultValidatorConfig()
	validatorCfg.SymmetryTolerance = cfg.SymmetryTolerance
	validatorCfg.EigenvalueFloor = cfg.EigenvalueFloor
	validatorCfg.RepairEpsilon = cfg.RepairEpsilon
	validatorCfg.RepairMassBudget = cfg.RepairMassBudget

	riskService := riskmodel.NewService(
		store,
		riskmodel.NewAssembler(cfg.SymmetryTolerance, log),
		riskmodel.NewValidator(validatorCfg, log),
		matrixCache,
		log,
	)

	sched := scheduler.New(log)
	warmJob := scheduler.NewCacheWarmJob(store, riskService, 0, log)
	if err := sched.AddJob(warmSchedule, warmJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache-warm job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:                cfg.Port,
		DevMode:             cfg.DevMode,
		Log:                 log,
		PanelsDB:            panelsDB,
		CacheDB:             cacheDB,
		RiskHandlers:        riskhandlers.NewHandler(riskService, cfg.BatchWorkers, log),
		PerformanceHandlers: performancehandlers.NewHandler(log),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("sfquant risk engine stopped")
}
