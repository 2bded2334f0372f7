package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/config"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/logging"
	"github.com/machinehub/machinehub/internal/metrics"
)

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "machinehub",
		Short:         "Machine registry with external sync and warranty alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.Int("port", 3000, "HTTP port to listen on")
	flags.String("database-url", "", "database DSN (postgres://, mysql://, sqlite://)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json or text)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine when the environment is set directly
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error loading .env: %w", err)
		}

		v := config.New()
		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}
		cfg, err := config.FromViper(v)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		a.cfg = cfg

		logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		a.logger = logger

		m, err := metrics.New()
		if err != nil {
			return err
		}
		a.metrics = m
		return nil
	}

	rootCmd.AddCommand(
		serveCommand(a),
		migrateCommand(a),
		generateAlertsCommand(a),
		syncCommand(a),
	)
	return rootCmd
}

// openDatabase connects and migrates. Callers close it with database.Close.
func (a *app) openDatabase() (*gorm.DB, error) {
	if err := database.Connect(a.cfg.DatabaseURL, a.cfg.GormLogLevel()); err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database.GetDB(), nil
}

func (a *app) closeDatabase() {
	if err := database.Close(); err != nil {
		a.logger.WithError(err).Warn("Error closing database")
	}
}

func migrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed default alert rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.openDatabase(); err != nil {
				return err
			}
			defer a.closeDatabase()

			if err := database.InitializeDefaults(a.cfg.AlertRulesFile); err != nil {
				return fmt.Errorf("failed to initialize database defaults: %w", err)
			}
			a.logger.Info("Migrations complete")
			return nil
		},
	}
}
