package analysis

import (
	"sort"

	"price-monitor/models"
)

// Aggregate keeps the single highest-confidence finding per product and ranks
// the survivors by confidence descending, then product id ascending. On equal
// confidence within a product the first finding encountered wins, so the
// result is deterministic for a stable detector order.
func Aggregate(findings []models.Finding) []models.Finding {
	best := make(map[string]int, len(findings))
	out := make([]models.Finding, 0, len(findings))

	for _, f := range findings {
		idx, seen := best[f.ProductID]
		if !seen {
			best[f.ProductID] = len(out)
			out = append(out, f)
			continue
		}
		if f.Confidence > out[idx].Confidence {
			out[idx] = f
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// CountByDetector tallies raw findings per detector before deduplication.
func CountByDetector(findings []models.Finding) map[models.DetectorName]int {
	counts := make(map[models.DetectorName]int)
	for _, f := range findings {
		counts[f.Detector]++
	}
	return counts
}
