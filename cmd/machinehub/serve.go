package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/alerting"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/handlers"
	"github.com/machinehub/machinehub/internal/jobs"
	"github.com/machinehub/machinehub/internal/lock"
	"github.com/machinehub/machinehub/internal/reconcile"
	"github.com/machinehub/machinehub/internal/services"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the alert generation scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(commandContext(cmd))
		},
	}
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.WithField("version", handlers.Version).Info("Starting machinehub")

	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer a.closeDatabase()

	if err := database.InitializeDefaults(a.cfg.AlertRulesFile); err != nil {
		return fmt.Errorf("failed to initialize database defaults: %w", err)
	}

	locker, closeLocker, err := a.newLocker(ctx)
	if err != nil {
		return err
	}
	defer closeLocker()

	job := a.newAlertJob(db, locker)
	engine := reconcile.NewEngine(db,
		reconcile.WithSource(a.cfg.SyncSource),
		reconcile.WithLogger(a.logger),
		reconcile.WithMetrics(a.metrics),
	)

	router := handlers.Router{
		HTTP:           handlers.NewHTTPHandler(a.metrics),
		Integration:    handlers.NewIntegrationHandler(engine),
		Jobs:           handlers.NewJobHandler(job),
		API:            handlers.NewAPIHandler(services.NewEntityService(db), services.NewAlertRuleService(db), services.NewAlertService(db)),
		Logger:         a.logger,
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.WithField("port", a.cfg.HTTPPort).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if a.cfg.AlertJobEnabled {
		g.Go(func() error {
			a.logger.WithField("interval", a.cfg.AlertJobInterval.String()).Info("Alert generation scheduler started")
			job.Start(a.cfg.AlertJobInterval, gctx.Done())
			return nil
		})
	} else {
		a.logger.Info("Alert generation scheduler disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Received shutdown signal, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		return nil
	})

	err = g.Wait()
	a.logger.Info("Shutdown complete")
	return err
}

// newLocker returns a Redis backed locker when REDIS_ADDRESS is set, so only
// one replica runs each sweep.
func (a *app) newLocker(ctx context.Context) (lock.Locker, func(), error) {
	if a.cfg.RedisAddress == "" {
		return lock.NoopLocker{}, func() {}, nil
	}
	rdb, err := lock.Connect(ctx, a.cfg.RedisAddress, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	a.logger.WithField("address", a.cfg.RedisAddress).Info("Using Redis job lock")
	return lock.NewRedisLocker(rdb), func() {
		if err := rdb.Close(); err != nil {
			a.logger.WithError(err).Warn("Error closing Redis client")
		}
	}, nil
}

func (a *app) newAlertJob(db *gorm.DB, locker lock.Locker) *jobs.AlertGenerationJob {
	evaluator := alerting.NewEvaluator(db, a.logger, a.metrics)
	return jobs.NewAlertGenerationJob(evaluator, locker, a.cfg.Location(), a.logger, a.metrics)
}
