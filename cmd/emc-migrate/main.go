package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/emastercard-migration/internal/config"
	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/domain/reference"
	"github.com/ehr/emastercard-migration/internal/migrate"
	"github.com/ehr/emastercard-migration/internal/platform/db"
	"github.com/ehr/emastercard-migration/internal/platform/reporting"
	"github.com/ehr/emastercard-migration/internal/platform/status"
	"github.com/ehr/emastercard-migration/internal/transform/encounters"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "emc-migrate",
		Short: "Migrate eMastercard ART records into NART",
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(regimenErrorsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(out io.Writer, dev bool, level string) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if dev {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

func agePolicy(cfg *config.Config) encounters.AgePolicy {
	return encounters.AgePolicy{
		Unit:      encounters.AgeUnit(cfg.AgeUnit),
		Adult:     cfg.AdultAge,
		Pediatric: cfg.PediatricAge,
	}
}

func migrateCmd() *cobra.Command {
	var workers, batchSize, limit int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the patients not migrated by a previous run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.BatchSize = batchSize
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runMigration(cfg, limit)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent patients (overrides WORKERS)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "patients read per page (overrides BATCH_SIZE)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many patients (0 = all)")
	return cmd
}

func runMigration(cfg *config.Config, limit int) error {
	logger := newLogger(os.Stdout, cfg.IsDev(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := db.NewPool(ctx, cfg.SourceDatabaseURL, cfg.SourceSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to eMastercard: %w", err)
	}
	defer source.Close()

	target, err := db.NewPool(ctx, cfg.TargetDatabaseURL, cfg.TargetSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to NART: %w", err)
	}
	defer target.Close()
	logger.Info().Msg("connected to databases")

	tables, err := reference.Load(ctx, target)
	if err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}

	runner := migrate.NewRunner(
		emastercard.NewReader(source),
		nart.NewLoader(target, nart.Actor{UserID: cfg.EMRUserID, LocationID: cfg.EMRLocationID}, logger),
		tables,
		migrate.Options{
			SiteCode:  cfg.SitePrefix,
			Workers:   cfg.Workers,
			BatchSize: cfg.BatchSize,
			Limit:     limit,
			ReportDir: cfg.ReportDir,
			Ages:      agePolicy(cfg),
		},
		logger,
	)

	if cfg.StatusAddr == "" {
		return runner.Run(ctx)
	}

	srv := status.New(cfg.StatusAddr, logger,
		db.HealthHandler(map[string]*pgxpool.Pool{"emastercard": source, "nart": target}),
		func() interface{} { return runner.Snapshot() },
	)
	srvCtx, stopServer := context.WithCancel(ctx)
	g := new(errgroup.Group)
	g.Go(func() error { return srv.Run(srvCtx) })
	g.Go(func() error {
		defer stopServer()
		return runner.Run(ctx)
	})
	return g.Wait()
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the totals of the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadReport()
			if err != nil {
				return err
			}
			report, err := reporting.ReadErrors(reporting.ErrorsPath(cfg.ReportDir, cfg.SitePrefix))
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printSummary(w io.Writer, report reporting.Report) {
	fmt.Fprintf(w, "Total patients processed: %d\n", report.TotalProcessed)
	fmt.Fprintf(w, "Total patients with errors: %d\n", len(report.Errors))
	if n := len(report.CompletedAhead); n > 0 {
		fmt.Fprintf(w, "Patients migrated ahead of the resume point: %d\n", n)
	}
}

func regimenErrorsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "regimen-errors",
		Short: "List regimen errors recorded on each patient's last visit in a date window",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			cfg, err := config.LoadReport()
			if err != nil {
				return err
			}
			report, err := reporting.ReadErrors(reporting.ErrorsPath(cfg.ReportDir, cfg.SitePrefix))
			if err != nil {
				return err
			}
			printRegimenErrors(cmd.OutOrStdout(), reporting.RegimenErrors(report.Errors, start, end))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first visit date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last visit date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func parseWindow(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return start, end, nil
}

func printRegimenErrors(w io.Writer, errs []reporting.RegimenError) {
	fmt.Fprintf(w, "Total patients with regimen errors: %d\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(w, "%s - %s\n", e.Tag, e.Error)
	}
}
