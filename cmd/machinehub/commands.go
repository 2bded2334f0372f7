package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/lock"
	"github.com/machinehub/machinehub/internal/reconcile"
)

func generateAlertsCommand(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "generate-alerts",
		Short: "Run one alert generation sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer a.closeDatabase()

			ctx := commandContext(cmd)
			locker, closeLocker, err := a.newLocker(ctx)
			if err != nil {
				return err
			}
			defer closeLocker()
			job := a.newAlertJob(db, locker)

			asOf := job.Today()
			if date != "" {
				if asOf, err = database.ParseDate(date); err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			}

			summary, err := job.RunFor(ctx, asOf)
			if err != nil {
				if errors.Is(err, lock.ErrNotObtained) {
					return fmt.Errorf("another alert generation run is in progress")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: created=%d skipped=%d evaluated=%d\n",
				asOf, summary.Created, summary.Skipped, summary.Evaluated)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "sweep date as YYYY-MM-DD (default: today in APP_TIMEZONE)")
	return cmd
}

func syncCommand(a *app) *cobra.Command {
	var file string

	names := make([]string, 0, len(reconcile.Kinds()))
	for _, k := range reconcile.Kinds() {
		names = append(names, k.Name)
	}

	cmd := &cobra.Command{
		Use:       "sync <kind>",
		Short:     "Reconcile records from a JSON file, as the integration endpoint would",
		Long:      "Reads one JSON object or an array of objects and reconciles each record.\nKinds: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := reconcile.KindByName(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q (expected one of %s)", args[0], strings.Join(names, ", "))
			}

			data, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			payloads, err := reconcile.DecodePayloads(data)
			if err != nil {
				return err
			}

			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer a.closeDatabase()

			engine := reconcile.NewEngine(db,
				reconcile.WithSource(a.cfg.SyncSource),
				reconcile.WithLogger(a.logger),
				reconcile.WithMetrics(a.metrics),
			)
			report := syncRecords(commandContext(cmd), engine, kind, payloads, a.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", kind.Name, report)
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d records failed", report.Failed, len(payloads))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file to read, - for stdin")
	return cmd
}

// syncReport counts record outcomes of a sync run.
type syncReport struct {
	Created int
	Updated int
	Skipped int
	Failed  int
}

func (r syncReport) String() string {
	return fmt.Sprintf("created=%d updated=%d skipped=%d failed=%d", r.Created, r.Updated, r.Skipped, r.Failed)
}

// syncRecords reconciles payloads one at a time. A failing record is logged
// and counted; the rest still run.
func syncRecords(ctx context.Context, engine *reconcile.Engine, kind reconcile.Kind, payloads []reconcile.Payload, logger logrus.FieldLogger) syncReport {
	var report syncReport
	for i, p := range payloads {
		result, err := engine.Reconcile(ctx, kind, p)
		if err != nil {
			report.Failed++
			logger.WithError(err).WithFields(logrus.Fields{"index": i, "external_id": p.ExternalID()}).Warn("Record failed")
			continue
		}
		switch {
		case result.Skipped:
			report.Skipped++
		case result.Created:
			report.Created++
		default:
			report.Updated++
		}
	}
	return report
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", file, err)
	}
	return data, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
