package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/healthmate/internal/application"
	appanalysis "github.com/bryanwahyu/healthmate/internal/application/analysis"
	appreports "github.com/bryanwahyu/healthmate/internal/application/reports"
	appvitals "github.com/bryanwahyu/healthmate/internal/application/vitals"
	"github.com/bryanwahyu/healthmate/internal/config"
	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/infra/ai/gemini"
	"github.com/bryanwahyu/healthmate/internal/infra/ai/openai"
	"github.com/bryanwahyu/healthmate/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/healthmate/internal/infra/db/mysql"
	"github.com/bryanwahyu/healthmate/internal/infra/db/postgres"
	"github.com/bryanwahyu/healthmate/internal/infra/db/sqlite"
	"github.com/bryanwahyu/healthmate/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/healthmate/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/healthmate/internal/infra/storage"
	"github.com/bryanwahyu/healthmate/internal/middleware"
)

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:           "healthmate",
		Short:         "Health record analysis API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config.yaml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(reconcileCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configPath)
		},
	}
}

func reconcileCmd(configPath *string) *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-run stuck or never-started analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			if grace <= 0 {
				grace = cfg.Analysis.GracePeriod
			}
			if grace <= cfg.AI.Timeout {
				return fmt.Errorf("--grace %s must be longer than ai timeout %s", grace, cfg.AI.Timeout)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.pipeline.Reconcile(ctx, grace)
			logger.Info().Int("records", n).Dur("grace", grace).Msg("reconcile finished")
			return err
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 0, "only records stale for longer than this (default analysis.gracePeriod)")
	return cmd
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			db, _, migrate, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrate(cmd.Context(), db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Str("driver", cfg.Database.Driver).Msg("schema up to date")
			return nil
		},
	}
}

func setup(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config load error: %w", err)
	}
	return cfg, newLogger(cfg), nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Log.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(level)
}

type migrateFunc func(context.Context, *sql.DB) error

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, sqlstore.Dialect, migrateFunc, error) {
	d := cfg.Database
	dialect, err := sqlstore.DialectFor(d.Driver)
	if err != nil {
		return nil, sqlstore.Dialect{}, nil, err
	}

	var db *sql.DB
	var migrate migrateFunc
	switch dialect {
	case sqlstore.MySQL:
		db, err = mysqlp.Connect(ctx, mysqlp.DSN(d.Host, d.Port, d.User, d.Password, d.Name))
		migrate = mysqlp.Migrate
	case sqlstore.Postgres:
		db, err = postgres.Connect(ctx, postgres.DSN(d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode))
		migrate = postgres.Migrate
	case sqlstore.SQLite:
		db, err = sqlite.Open(ctx, d.Path)
		migrate = sqlite.Migrate
	}
	if err != nil {
		return nil, sqlstore.Dialect{}, nil, fmt.Errorf("%s connect error: %w", d.Driver, err)
	}
	return db, dialect, migrate, nil
}

// app is everything serve and reconcile share.
type app struct {
	db       *sql.DB
	pipeline *appanalysis.Pipeline
	reports  *appreports.Service
	vitals   *appvitals.Service
}

func (a *app) close() {
	a.pipeline.Close()
	a.pipeline.Wait()
	a.db.Close()
}

func build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	db, dialect, _, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := minioStore.New(ctx, minioStore.Options{
		Endpoint:  cfg.Minio.Endpoint,
		Region:    cfg.Minio.Region,
		Bucket:    cfg.Minio.BucketName,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		UseSSL:    cfg.Minio.UseSSL,
		PublicURL: cfg.Minio.PublicURL,
		URLExpiry: cfg.Minio.URLExpiry,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("minio init error: %w", err)
	}

	var backend analysis.Backend
	switch cfg.AI.Provider {
	case "gemini":
		backend = gemini.NewClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, store, nil)
	default:
		backend = openai.NewClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, store, nil)
	}

	clock := application.SystemClock{}
	records := sqlstore.NewRecordStore(db, dialect)
	invoker := appanalysis.NewInvoker(backend, prompt.NewBuilder(), cfg.Texts, cfg.AI.Timeout, logger)
	orch := appanalysis.NewOrchestrator(records, invoker, clock, logger)
	orch.Recorder = middleware.AnalysisRecorder{}
	pipeline := appanalysis.NewPipeline(orch, records, store, cfg.Analysis.MaxConcurrent, logger)

	return &app{
		db:       db,
		pipeline: pipeline,
		reports: appreports.NewService(sqlstore.NewReportRepository(db, dialect), store, pipeline,
			clock, cfg.MaxUploadBytes(), logger),
		vitals: appvitals.NewService(sqlstore.NewVitalsRepository(db, dialect), pipeline, clock, logger),
	}, nil
}

func runServer(configPath string) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	logger.Info().Str("driver", cfg.Database.Driver).Str("ai_provider", cfg.AI.Provider).Msg("connected")

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSecond)
	defer limiter.Stop()

	handler := httpserver.NewRouter(httpserver.Options{
		Reports:     a.reports,
		Vitals:      a.vitals,
		Checkers:    map[string]middleware.HealthChecker{"database": &middleware.DatabaseHealthChecker{DB: a.db}},
		APIKeys:     cfg.Auth.APIKeys,
		RateLimiter: limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
		MaxUpload:   cfg.MaxUploadBytes(),
		Logger:      logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// synchronous analyses wait on the backend
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// a.close waits for the reconciler, so ctx must be cancelled first
	if err := a.pipeline.StartReconciler(ctx, cfg.Analysis.ReconcileInterval, cfg.Analysis.GracePeriod); err != nil {
		a.close()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		cancel()
		a.close()
		return err
	}
	logger.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	// tunggu background analysis selesai sebelum tutup DB
	a.close()
	logger.Info().Msg("stopped")
	return nil
}
