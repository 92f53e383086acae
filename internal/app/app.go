// Package app holds the wiring shared by the server and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/config"
	"github.com/RMahshie/tinfoil/internal/hackrf"
	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/internal/repository/postgres"
	"github.com/RMahshie/tinfoil/internal/repository/sqlite"
	"github.com/RMahshie/tinfoil/internal/sampler"
	"github.com/RMahshie/tinfoil/internal/session"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// OpenDB connects to PostgreSQL and waits until it answers
func OpenDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// BuildPlan generates the frequency plan from the configured catalog
func BuildPlan(cfg config.PlanConfig) (models.FrequencyPlan, error) {
	var catalog []session.CatalogEntry
	if cfg.Catalog != "" {
		var err error
		catalog, err = session.LoadCatalogFile(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Catalog).Int("entries", len(catalog)).Msg("Loaded frequency catalog")
	}
	return session.NewPlanner(catalog).PlanFrequencies(cfg.Count, cfg.MinMHz, cfg.MaxMHz)
}

// NewCapturer returns the HackRF device or, in simulator mode, the
// in-process simulator
func NewCapturer(cfg config.DeviceConfig) (sampler.Capturer, *hackrf.Simulator) {
	if cfg.Kind == config.DeviceSimulator {
		sim := hackrf.NewSimulator(hackrf.WithLatency(50 * time.Millisecond))
		return sim, sim
	}
	return hackrf.New(hackrf.Config{
		TransferCmd: cfg.TransferCmd,
		InfoCmd:     cfg.InfoCmd,
		Serial:      cfg.Serial,
	}), nil
}

// NewSampler builds the sampler from config
func NewSampler(dev sampler.Capturer, cfg config.SamplingConfig) *sampler.Sampler {
	return sampler.New(dev, sampler.Config{
		SampleCount:    cfg.Samples,
		CaptureTimeout: cfg.Timeout,
		Pacing:         cfg.Pacing,
	})
}

// NewCache picks the measurement cache backend. The returned close func
// releases a SQLite file; it is a no-op for PostgreSQL.
func NewCache(cfg config.CacheConfig, db *sql.DB) (repository.MeasurementCache, func() error, error) {
	if cfg.Driver == config.CacheSQLite {
		c, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite cache: %w", err)
		}
		return c, c.Close, nil
	}
	return postgres.NewPostgresMeasurementCache(db), func() error { return nil }, nil
}
