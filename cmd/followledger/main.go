package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"

	"github.com/followledger/followledger/internal/config"
	"github.com/followledger/followledger/internal/engine"
	"github.com/followledger/followledger/internal/extractors"
	"github.com/followledger/followledger/internal/report"
	"github.com/followledger/followledger/internal/repo"
	"github.com/followledger/followledger/internal/services"
	"github.com/followledger/followledger/internal/utils"
)

func main() {
	app := &cli.App{
		Name:  "followledger",
		Usage: "reconcile follower and following exports into reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to configuration file",
				EnvVars: []string{"FOLLOWLEDGER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "emit JSON logs",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "report",
				Usage:  "load the export once and write report files",
				Action: runReport,
				Flags:  reportFlags(),
			},
			{
				Name:   "serve",
				Usage:  "build a report and serve it over gRPC",
				Action: runServe,
				Flags: append(reportFlags(),
					&cli.StringFlag{Name: "address", Usage: "gRPC listen address"},
					&cli.StringFlag{Name: "metrics-address", Usage: "Prometheus listen address, empty disables"},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("followledger failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "subject", Usage: "account the exports belong to"},
		&cli.StringFlag{Name: "export-dir", Usage: "directory holding the unpacked export"},
		&cli.StringFlag{Name: "output-dir", Usage: "directory for report files"},
		&cli.StringFlag{Name: "start-month", Usage: "first month of the monthly series, e.g. 2024-08"},
	}
}

// loadConfig reads the config file and lets command-line flags win over it.
func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	overrides := map[string]*string{
		"log-level":       &cfg.Logging.Level,
		"subject":         &cfg.Subject,
		"export-dir":      &cfg.Export.Dir,
		"output-dir":      &cfg.Report.OutputDir,
		"start-month":     &cfg.Report.StartMonth,
		"address":         &cfg.Server.Address,
		"metrics-address": &cfg.Server.MetricsAddress,
	}
	for name, target := range overrides {
		if c.IsSet(name) {
			*target = c.String(name)
		}
	}
	if c.IsSet("log-json") {
		cfg.Logging.JSON = c.Bool("log-json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// buildService wires the export reader, ledger, writer and engine. The
// returned closer releases the ledger.
func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger, renderer services.ReportRenderer) (*services.ReportService, func(), error) {
	startMonth, err := utils.ParseMonth(cfg.Report.StartMonth)
	if err != nil {
		return nil, nil, fmt.Errorf("start month: %w", err)
	}

	clock := utils.SystemClock{}
	reader := repo.NewExportReader(repo.ExportReaderConfig{
		Dir:           cfg.Export.Dir,
		FollowersGlob: cfg.Export.FollowersGlob,
		FollowingFile: cfg.Export.FollowingFile,
		FollowingKey:  cfg.Export.FollowingKey,
		Clock:         clock,
	}, extractors.NewExportExtractor(logger, cfg.Export.SkipInvalid), logger)

	ledger, err := repo.OpenSQLiteLedger(ctx, cfg.Ledger.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := ledger.Close(); err != nil {
			logger.Warn("ledger close", slog.Any("error", err))
		}
	}

	service := services.NewReportService(logger, reader, ledger, renderer, engine.NewDiffEngine(logger), services.ReportServiceConfig{
		Subject:    cfg.Subject,
		StartMonth: startMonth,
		Clock:      clock,
	})
	return service, closer, nil
}

func runReport(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	service, closeLedger, err := buildService(c.Context, cfg, logger, report.NewWriter(cfg.Report.OutputDir, logger))
	if err != nil {
		return err
	}
	defer closeLedger()

	result, err := service.Run(c.Context)
	if err != nil {
		return err
	}
	logger.Info("reports written",
		slog.String("output_dir", cfg.Report.OutputDir),
		slog.String("run_id", result.RunID),
	)
	return nil
}
