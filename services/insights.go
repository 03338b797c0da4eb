package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"price-monitor/analysis"
	"price-monitor/models"
	"price-monitor/utils"
)

// InsightService runs the analysis engine over cleaned records and renders
// the resulting report.
type InsightService struct {
	engine *analysis.Engine
	logger *utils.Logger
	now    func() time.Time
}

func NewInsightService(engine *analysis.Engine, logger *utils.Logger) *InsightService {
	return &InsightService{engine: engine, logger: logger, now: time.Now}
}

// Generate analyzes records, comparing against previous when it is non-nil,
// and stamps the report with a run id and timestamp.
func (s *InsightService) Generate(records []*models.PriceRecord, previous map[string]*models.PriceRecord) *models.Report {
	runID := uuid.NewString()
	start := s.now()
	s.logger.Info("[insights] Run %s: analyzing %d records (history: %d)", runID, len(records), len(previous))

	res := s.engine.AnalyzeWithHistory(records, previous)

	for _, rej := range res.Batch.Rejected {
		s.logger.Warn("[insights] Rejected record #%d (%q): %v", rej.Index, rej.ID, rej.Err)
	}
	s.logger.Info("[insights] Run %s: %d raw findings, %d flagged products, took %v",
		runID, len(res.Raw), len(res.Ranked), s.now().Sub(start))

	report := res.Report
	report.RunID = runID
	report.GeneratedAt = start.UTC()
	return report
}

// GeneratePerCategory runs one independent analysis per category through a
// worker pool and returns the reports keyed by category. Records without a
// category are grouped under "uncategorized".
func (s *InsightService) GeneratePerCategory(ctx context.Context, records []*models.PriceRecord, workers int) (map[string]*models.Report, error) {
	groups := make(map[string][]*models.PriceRecord)
	for _, r := range records {
		key := "uncategorized"
		if r != nil {
			if c := strings.TrimSpace(r.Category); c != "" {
				key = c
			}
		}
		groups[key] = append(groups[key], r)
	}

	var (
		mu      sync.Mutex
		reports = make(map[string]*models.Report, len(groups))
		pool    = utils.NewWorkerPool(workers, 0)
	)
	for category, group := range groups {
		pool.Submit(ctx, func() {
			report := s.Generate(group, nil)
			mu.Lock()
			reports[category] = report
			mu.Unlock()
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return reports, fmt.Errorf("insights: per-category analysis: %w", err)
	}
	return reports, nil
}

// Print renders the report to stdout.
func (s *InsightService) Print(r *models.Report) {
	Fprint(os.Stdout, r)
}

// Fprint renders the report as a terminal summary.
func Fprint(w io.Writer, r *models.Report) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 PRICE ANOMALY REPORT\033[0m\n")
	if r.RunID != "" {
		fmt.Fprintf(w, "  Run %s at %s\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	s := r.Summary
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Records analyzed     : \033[1m%d\033[0m\n", s.TotalRecords)
	fmt.Fprintf(w, "  With discount        : \033[1m%d\033[0m\n", s.RecordsWithDiscount)
	fmt.Fprintf(w, "  Rejected at ingest   : \033[1m%d\033[0m\n", s.RejectedRecords)
	fmt.Fprintf(w, "  Flagged products     : \033[1;31m%d\033[0m\n", s.FlaggedRecords)
	if s.RecordsWithDiscount > 0 {
		fmt.Fprintf(w, "  Discount mean/median : %.2f%% / %.2f%% (max %.2f%%)\n",
			s.MeanDiscount, s.MedianDiscount, s.MaxDiscount)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Discount Distribution\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, b := range r.Distribution {
		fmt.Fprintf(w, "  %-8s %s (%d)\n", b.Label, strings.Repeat("█", min(b.Count, 40)), b.Count)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top Findings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Findings) == 0 {
		fmt.Fprintf(w, "  No anomalies found\n")
	}
	for i, f := range r.Findings {
		fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-38s %s %.2f  [%s]\n",
			i+1, truncate(f.Name, 36), colourSeverity(f.Severity), f.Confidence, f.Detector)
		fmt.Fprintf(w, "      %s\n", f.Description)
	}
	fmt.Fprintln(w)

	if len(r.HighDiscountProducts) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Highest Discounts\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, p := range r.HighDiscountProducts {
			fmt.Fprintf(w, "  %-40s \033[1;32m%.1f%%\033[0m  %.2f %s\n",
				truncate(p.Name, 38), p.Discount(), p.CurrentPrice, p.Currency)
		}
		fmt.Fprintln(w)
	}

	if len(r.DetectorCounts) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Findings by Detector\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		names := make([]string, 0, len(r.DetectorCounts))
		for d := range r.DetectorCounts {
			names = append(names, string(d))
		}
		sort.Strings(names)
		for _, d := range names {
			fmt.Fprintf(w, "  %-24s %d\n", d, r.DetectorCounts[models.DetectorName(d)])
		}
		fmt.Fprintln(w)
	}

	if len(r.Categories) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Categories\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, c := range r.Categories {
			fmt.Fprintf(w, "  %-24s %4d records  mean discount %6.2f%%  flagged %d\n",
				truncate(c.Baseline.Category, 22), c.Baseline.RecordCount, c.Baseline.MeanDiscount, c.Findings)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Recommendations\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "  • %s\n", rec)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func colourSeverity(s models.Severity) string {
	code := "32"
	switch s {
	case models.SeverityCritical:
		code = "1;31"
	case models.SeverityHigh:
		code = "31"
	case models.SeverityMedium:
		code = "33"
	}
	return fmt.Sprintf("\033[%sm%-8s\033[0m", code, strings.ToUpper(string(s)))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
