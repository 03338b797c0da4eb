package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os/signal"
	"slices"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"price-monitor/analysis"
	"price-monitor/config"
	"price-monitor/models"
	"price-monitor/scraper"
	"price-monitor/scraper/bilka"
	"price-monitor/scraper/mock"
	"price-monitor/services"
	"price-monitor/storage"
	"price-monitor/utils"
)

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

func setup(c *cli.Context) (*app, error) {
	cfg := config.Load()
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("mock") {
		cfg.UseMock = c.Bool("mock")
	}
	if err := cfg.Analysis.Validate(); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: utils.NewLogger(cfg.LogLevel)}, nil
}

func (a *app) scraper() scraper.Scraper {
	if a.cfg.UseMock {
		return mock.New(a.cfg.MockSeed, a.cfg.MaxProducts, a.logger)
	}
	return bilka.New(a.cfg, a.logger)
}

func (a *app) insights() (*services.InsightService, error) {
	engine, err := analysis.NewEngine(a.cfg.Analysis)
	if err != nil {
		return nil, err
	}
	return services.NewInsightService(engine, a.logger), nil
}

var analyzeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write the report as JSON to this path",
		EnvVars: []string{"REPORT_OUTPUT_PATH"},
	},
	&cli.BoolFlag{
		Name:  "per-category",
		Usage: "Also analyze each category on its own",
	},
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Connect to PostgreSQL and apply migrations",
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			store, err := storage.NewPostgresStore(c.Context, a.cfg.DSN(), a.logger)
			if err != nil {
				a.logger.Error("Make sure PostgreSQL is running: docker compose up -d")
				return err
			}
			defer store.Close()
			a.logger.Info("Database ready")
			return nil
		},
	}
}

func scrapeCommand() *cli.Command {
	return &cli.Command{
		Name:  "scrape",
		Usage: "Scrape products, write the raw CSV and store a cleaned snapshot",
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			records, src, err := a.collect(c.Context)
			if err != nil {
				return err
			}
			store, err := storage.NewPostgresStore(c.Context, a.cfg.DSN(), a.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			_, err = store.SaveSnapshot(c.Context, src, records)
			return err
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze the latest stored snapshot",
		Flags: analyzeFlags,
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			store, err := storage.NewPostgresStore(c.Context, a.cfg.DSN(), a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.FetchLatest(c.Context)
			if err != nil {
				return err
			}
			previous, err := store.FetchPrevious(c.Context)
			if err != nil {
				a.logger.Warn("Price history unavailable: %v", err)
				previous = nil
			}
			return a.analyze(c.Context, records, previous, c.String("output"), c.Bool("per-category"))
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Scrape, store and analyze in one pass",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "no-db",
				Usage: "Skip PostgreSQL and analyze the cleaned batch directly",
			},
		}, analyzeFlags...),
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			return a.runOnce(c.Context, c.Bool("no-db"), c.String("output"), c.Bool("per-category"))
		},
	}
}

func monitorCommand() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Run the full pipeline on a schedule until interrupted",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "schedule",
				Value:   "@every 6h",
				Usage:   "Cron expression or @every interval",
				EnvVars: []string{"MONITOR_SCHEDULE"},
			},
			&cli.BoolFlag{
				Name:  "no-db",
				Usage: "Skip PostgreSQL and analyze each batch directly",
			},
		}, analyzeFlags...),
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := cronLogger{a.logger}
			sched := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
			if _, err := sched.AddFunc(c.String("schedule"), func() {
				if err := a.runOnce(ctx, c.Bool("no-db"), c.String("output"), c.Bool("per-category")); err != nil {
					a.logger.Error("[monitor] Run failed: %v", err)
				}
			}); err != nil {
				return fmt.Errorf("monitor: schedule %q: %w", c.String("schedule"), err)
			}

			a.logger.Info("[monitor] Scheduled %q, press Ctrl+C to stop", c.String("schedule"))
			sched.Start()
			<-ctx.Done()
			<-sched.Stop().Done()
			a.logger.Info("[monitor] Stopped")
			return nil
		},
	}
}

// collect scrapes, writes the raw CSV and cleans the result.
func (a *app) collect(ctx context.Context) ([]*models.PriceRecord, string, error) {
	src := a.scraper()
	raw, err := src.Scrape(ctx)
	if err != nil {
		a.logger.Error("Scrape failed: %v", err)
	}
	if len(raw) == 0 {
		return nil, "", errors.New("no products were scraped")
	}
	a.logger.Info("Scraped %d raw products, writing to CSV...", len(raw))

	var csvWriter storage.RawProductWriter
	csvWriter, err = storage.NewCSVWriter(a.cfg.CSVOutputPath)
	if err != nil {
		return nil, "", err
	}
	if err := csvWriter.WriteRaw(raw); err != nil {
		a.logger.Error("CSV write failed: %v", err)
	} else {
		a.logger.Info("Raw products saved to %s", a.cfg.CSVOutputPath)
	}
	if err := csvWriter.Close(); err != nil {
		a.logger.Warn("CSV close failed: %v", err)
	}

	records := services.NewCleaner(a.logger).Clean(raw)
	if len(records) == 0 {
		return nil, "", errors.New("all products were dropped during cleaning")
	}
	return records, src.Name(), nil
}

func (a *app) runOnce(ctx context.Context, noDB bool, output string, perCategory bool) error {
	records, src, err := a.collect(ctx)
	if err != nil {
		return err
	}
	if noDB {
		return a.analyze(ctx, records, nil, output, perCategory)
	}

	var store storage.SnapshotStore
	store, err = storage.NewPostgresStore(ctx, a.cfg.DSN(), a.logger)
	if err != nil {
		a.logger.Error("PostgreSQL unavailable, analyzing the scraped batch directly: %v", err)
		return a.analyze(ctx, records, nil, output, perCategory)
	}
	defer store.Close()

	if _, err := store.SaveSnapshot(ctx, src, records); err != nil {
		a.logger.Error("Snapshot write failed: %v", err)
		return a.analyze(ctx, records, nil, output, perCategory)
	}

	stored, err := store.FetchLatest(ctx)
	if err != nil {
		a.logger.Error("Failed to fetch snapshot from DB: %v", err)
		stored = records
	}
	previous, err := store.FetchPrevious(ctx)
	if err != nil {
		a.logger.Warn("Price history unavailable: %v", err)
		previous = nil
	}
	return a.analyze(ctx, stored, previous, output, perCategory)
}

func (a *app) analyze(ctx context.Context, records []*models.PriceRecord, previous map[string]*models.PriceRecord, output string, perCategory bool) error {
	svc, err := a.insights()
	if err != nil {
		return err
	}

	report := svc.Generate(records, previous)
	svc.Print(report)

	if output != "" {
		var w storage.ReportWriter = storage.NewJSONReportWriter(output)
		if err := w.WriteReport(report); err != nil {
			return err
		}
		a.logger.Info("Report written to %s", output)
	}

	if perCategory {
		reports, err := svc.GeneratePerCategory(ctx, records, a.cfg.MaxConcurrency)
		if err != nil {
			return err
		}
		for _, name := range slices.Sorted(maps.Keys(reports)) {
			r := reports[name]
			a.logger.Info("[%s] %d records, %d flagged, top: %s",
				name, r.Summary.TotalRecords, r.Summary.FlaggedRecords, topFinding(r))
		}
	}
	return nil
}

func topFinding(r *models.Report) string {
	if len(r.Findings) == 0 {
		return "none"
	}
	f := r.Findings[0]
	return fmt.Sprintf("%s (%s, %.2f)", f.Name, f.Detector, f.Confidence)
}

// cronLogger routes scheduler messages through the application logger.
type cronLogger struct {
	logger *utils.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("[cron] %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("[cron] %s: %v %v", msg, err, keysAndValues)
}
