package analysis

import (
	"sort"
	"strings"

	"price-monitor/models"
)

// Baselines holds the per-category reference statistics for one run,
// plus a global baseline over the whole batch.
type Baselines struct {
	Global     models.CategoryBaseline
	ByCategory map[string]models.CategoryBaseline
}

// ComputeBaselines groups records by category and computes reference
// statistics for each group. Records without a category only contribute
// to the global baseline.
func ComputeBaselines(records []*models.PriceRecord, minSamples int) Baselines {
	groups := make(map[string][]*models.PriceRecord)
	for _, r := range records {
		cat := categoryKey(r)
		if cat == "" {
			continue
		}
		groups[cat] = append(groups[cat], r)
	}

	out := Baselines{
		Global:     computeBaseline("", records, minSamples),
		ByCategory: make(map[string]models.CategoryBaseline, len(groups)),
	}
	for cat, group := range groups {
		out.ByCategory[cat] = computeBaseline(cat, group, minSamples)
	}
	return out
}

// For returns the category baseline of r, falling back to the global one.
func (b Baselines) For(r *models.PriceRecord) models.CategoryBaseline {
	if base, ok := b.Category(r); ok {
		return base
	}
	return b.Global
}

// Category returns the baseline of r's own category, if it has one.
func (b Baselines) Category(r *models.PriceRecord) (models.CategoryBaseline, bool) {
	cat := categoryKey(r)
	if cat == "" {
		return models.CategoryBaseline{}, false
	}
	base, ok := b.ByCategory[cat]
	return base, ok
}

// Sorted returns the category baselines ordered by category name.
func (b Baselines) Sorted() []models.CategoryBaseline {
	out := make([]models.CategoryBaseline, 0, len(b.ByCategory))
	for _, base := range b.ByCategory {
		out = append(out, base)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func computeBaseline(category string, records []*models.PriceRecord, minSamples int) models.CategoryBaseline {
	var discounts, prices []float64
	for _, r := range records {
		if r.IsDiscounted() {
			discounts = append(discounts, r.Discount())
		}
		if r.CurrentPrice > 0 {
			prices = append(prices, r.CurrentPrice)
		}
	}

	base := models.CategoryBaseline{
		Category:      category,
		RecordCount:   len(records),
		DiscountCount: len(discounts),
		PriceCount:    len(prices),
	}

	if len(discounts) > 0 {
		sorted := sortedCopy(discounts)
		base.MeanDiscount = mean(discounts)
		base.DiscountQ1 = percentile(sorted, 0.25)
		base.DiscountQ3 = percentile(sorted, 0.75)
		// Below the sample floor the spread is noise; std 0 makes
		// the Z-score detector abstain.
		if len(discounts) >= minSamples {
			base.StdDiscount = sampleStd(discounts)
		}
	}

	if len(prices) > 0 {
		sorted := sortedCopy(prices)
		base.MeanPrice = mean(prices)
		base.MedianPrice = percentile(sorted, 0.5)
		base.Percentile90Price = percentile(sorted, 0.9)
	}
	return base
}

func categoryKey(r *models.PriceRecord) string {
	return strings.TrimSpace(r.Category)
}
