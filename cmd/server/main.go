package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/api"
	"github.com/RMahshie/tinfoil/internal/app"
	"github.com/RMahshie/tinfoil/internal/config"
	"github.com/RMahshie/tinfoil/internal/notify"
	"github.com/RMahshie/tinfoil/internal/processing"
	"github.com/RMahshie/tinfoil/internal/repository/postgres"
	"github.com/RMahshie/tinfoil/internal/session"
	"github.com/RMahshie/tinfoil/internal/storage"
)

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.Server.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := app.OpenDB(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database unavailable")
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	cache, closeCache, err := app.NewCache(cfg.Cache, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open measurement cache")
	}
	defer closeCache()

	contestants := postgres.NewPostgresContestantRepository(db)
	results := postgres.NewPostgresResultRepository(db)
	leaderboard := postgres.NewPostgresLeaderboardRepository(db)

	plan, err := app.BuildPlan(cfg.Plan)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build frequency plan")
	}
	log.Info().Int("frequencies", plan.Len()).Msg("Frequency plan ready")

	hub := notify.NewHub()
	defer hub.Close()

	engine, err := session.NewEngine(plan, cache, results, session.WithNotifier(hub))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session engine")
	}
	if state, err := engine.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("Could not restore cached measurements")
	} else if state != session.StateIdle {
		log.Info().Str("state", string(state)).Msg("Restored interrupted session")
	}

	dev, sim := app.NewCapturer(cfg.Device)
	if sim != nil {
		events, cancel := hub.Subscribe(notify.DefaultBuffer)
		defer cancel()
		go sim.Follow(ctx, events)
		log.Warn().Msg("Running with the simulated receiver")
	}
	receiver := app.NewSampler(dev, cfg.Sampling)
	if av := receiver.EnsureReady(ctx); !av.Available {
		log.Warn().Err(av.Err).Msg("Receiver not ready; sessions will be refused until it is connected")
	}

	sweeper := processing.NewSweepService(engine, receiver, cfg.Sampling.SamplesPerFrequency)

	var reports storage.ReportStore
	reports, err = storage.NewReportStore(ctx, storage.S3Config{
		Bucket:    cfg.AWS.S3Bucket,
		Endpoint:  cfg.AWS.S3Endpoint,
		Region:    cfg.AWS.Region,
		AccessKey: cfg.AWS.AccessKeyID,
		SecretKey: cfg.AWS.SecretAccessKey,
	})
	switch {
	case errors.Is(err, storage.ErrArchiveDisabled):
		reports = nil
		log.Info().Msg("Report archive disabled")
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to configure report archive")
	}

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create Huma API
	humaConfig := huma.DefaultConfig("Tinfoil API", api.Version)
	humaConfig.DocsPath = "/api/docs"
	humaAPI := humachi.New(router, humaConfig)

	api.RegisterRoutes(router, humaAPI, api.Deps{
		Engine:              engine,
		Receiver:            receiver,
		Sweeper:             sweeper,
		Events:              hub,
		Contestants:         contestants,
		Results:             results,
		Leaderboard:         leaderboard,
		Reports:             reports,
		SamplesPerFrequency: cfg.Sampling.SamplesPerFrequency,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
	})

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Str("device", cfg.Device.Kind).Msg("Starting Tinfoil API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	sweeper.Cancel()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_ip", r.RemoteAddr).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
