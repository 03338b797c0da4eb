package analysis

import (
	"fmt"
	"sort"

	"price-monitor/models"
)

// bucketEdges are the fixed discount histogram edges. Anything from 90
// upwards lands in the last bucket.
var bucketEdges = []float64{0, 10, 25, 50, 75, 90, 100}

// BuildReport turns a batch and its findings into a structured summary.
// raw holds every finding before deduplication, ranked the aggregated list.
// It performs no I/O and is deterministic for the same inputs.
func BuildReport(batch *Batch, baselines Baselines, raw, ranked []models.Finding, cfg ReportConfig) *models.Report {
	records := batch.Records

	var discounts []float64
	for _, r := range records {
		if r.IsDiscounted() {
			discounts = append(discounts, r.Discount())
		}
	}

	buckets := distribution(discounts)
	counts := make(map[string]int, len(buckets))
	for _, b := range buckets {
		counts[b.Label] = b.Count
	}

	report := &models.Report{
		Summary: models.Summary{
			TotalRecords:        len(records),
			RecordsWithDiscount: len(discounts),
			RejectedRecords:     len(batch.Rejected),
			FlaggedRecords:      len(ranked),
			MeanDiscount:        round2(mean(discounts)),
			MedianDiscount:      round2(median(discounts)),
			MaxDiscount:         round2(maxOf(discounts)),
		},
		DistributionCounts:   counts,
		Distribution:         buckets,
		Findings:             topN(ranked, cfg.TopN),
		DetectorCounts:       CountByDetector(raw),
		HighDiscountProducts: highDiscount(records, cfg),
		Categories:           categorySummaries(records, baselines, ranked),
		Rejected:             batch.RejectedRecords(),
	}
	report.Recommendations = recommendations(records, discounts, raw, ranked, batch, cfg)
	return report
}

func distribution(discounts []float64) []models.DistributionBucket {
	buckets := make([]models.DistributionBucket, len(bucketEdges)-1)
	for i := range buckets {
		lo, hi := bucketEdges[i], bucketEdges[i+1]
		buckets[i] = models.DistributionBucket{
			Label: fmt.Sprintf("%.0f-%.0f%%", lo, hi),
			Lower: lo,
			Upper: hi,
		}
	}
	last := len(buckets) - 1
	for _, d := range discounts {
		for i := range buckets {
			if d < buckets[i].Upper || i == last {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

func topN(ranked []models.Finding, n int) []models.Finding {
	if n <= 0 || len(ranked) <= n {
		out := make([]models.Finding, len(ranked))
		copy(out, ranked)
		return out
	}
	out := make([]models.Finding, n)
	copy(out, ranked[:n])
	return out
}

func highDiscount(records []*models.PriceRecord, cfg ReportConfig) []*models.PriceRecord {
	var out []*models.PriceRecord
	for _, r := range records {
		if r.HasDiscount() && r.Discount() >= cfg.HighDiscountThreshold {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Discount() != out[j].Discount() {
			return out[i].Discount() > out[j].Discount()
		}
		return out[i].ID < out[j].ID
	})
	if cfg.TopN > 0 && len(out) > cfg.TopN {
		out = out[:cfg.TopN]
	}
	return out
}

func categorySummaries(records []*models.PriceRecord, baselines Baselines, ranked []models.Finding) []models.CategorySummary {
	categoryOf := make(map[string]string, len(records))
	for _, r := range records {
		categoryOf[r.ID] = categoryKey(r)
	}
	flagged := make(map[string]int)
	for _, f := range ranked {
		if cat := categoryOf[f.ProductID]; cat != "" {
			flagged[cat]++
		}
	}

	sorted := baselines.Sorted()
	out := make([]models.CategorySummary, len(sorted))
	for i, base := range sorted {
		out[i] = models.CategorySummary{Baseline: base, Findings: flagged[base.Category]}
	}
	return out
}

func recommendations(records []*models.PriceRecord, discounts []float64, raw, ranked []models.Finding, batch *Batch, cfg ReportConfig) []string {
	var recs []string
	total := len(records)

	invalid := make(map[string]struct{})
	rules := make(map[string]map[string]struct{})
	for _, f := range raw {
		if !IsValidityFinding(f) {
			continue
		}
		invalid[f.ProductID] = struct{}{}
		if rules[f.Rule] == nil {
			rules[f.Rule] = make(map[string]struct{})
		}
		rules[f.Rule][f.ProductID] = struct{}{}
	}

	if total > 0 {
		errorRate := float64(len(invalid)) / float64(total)
		switch {
		case errorRate > cfg.SevereErrorRate:
			recs = append(recs, fmt.Sprintf("%.1f%% of records failed validity checks: the scraping or data pipeline is likely broken", errorRate*100))
		case errorRate > cfg.ErrorRate:
			recs = append(recs, fmt.Sprintf("%.1f%% of records failed validity checks: review the data pipeline", errorRate*100))
		}

		var extreme, round int
		for _, d := range discounts {
			if d >= cfg.ExtremeDiscount {
				extreme++
			}
			if nearMultiple(d, 5, 1e-6) {
				round++
			}
		}
		if share := float64(extreme) / float64(total); share > cfg.ExtremeShare {
			recs = append(recs, fmt.Sprintf("%.1f%% of records have a discount of %.0f%% or more: review the pricing feed", share*100, cfg.ExtremeDiscount))
		}
		if share := float64(round) / float64(total); share > cfg.RoundDiscountShare {
			recs = append(recs, fmt.Sprintf("%d products have round-number discounts: may indicate manual data entry patterns", round))
		}
	}

	if n := len(rules[models.RuleNegativePrice]); n > 0 {
		recs = append(recs, fmt.Sprintf("Fix %d products with negative prices", n))
	}
	if n := len(rules[models.RulePriceInversion]); n > 0 {
		recs = append(recs, fmt.Sprintf("Fix %d products with incorrect price relationships", n))
	}
	if n := len(rules[models.RuleDiscountMismatch]); n > 0 {
		recs = append(recs, fmt.Sprintf("Recompute %d advertised discounts that do not match the listed prices", n))
	}
	if n := len(rules[models.RuleExtremeDiscount]); n > 0 {
		recs = append(recs, fmt.Sprintf("Review %d products with unusually high discounts", n))
	}
	if n := len(batch.Rejected); n > 0 {
		recs = append(recs, fmt.Sprintf("%d records were rejected at ingestion (missing id/name or malformed values)", n))
	}

	suspicious := 0
	for _, f := range ranked {
		if !IsValidityFinding(f) {
			suspicious++
		}
	}
	if suspicious > 0 {
		recs = append(recs, fmt.Sprintf("Manually verify %d suspicious deals, starting with %s", suspicious, firstSuspicious(ranked)))
	}

	if len(recs) == 0 {
		recs = append(recs, "No pricing anomalies detected")
	}
	return recs
}

func firstSuspicious(ranked []models.Finding) string {
	for _, f := range ranked {
		if !IsValidityFinding(f) {
			return fmt.Sprintf("%q (%s)", f.Name, f.ProductID)
		}
	}
	return ""
}
