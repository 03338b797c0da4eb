package analysis

import (
	"fmt"
	"math"

	"price-monitor/models"
)

// HistoryDetector compares a record with its previous snapshot. It abstains
// when the batch context carries no history for the product.
type HistoryDetector struct {
	cfg HistoryConfig
}

func NewHistoryDetector(cfg HistoryConfig) *HistoryDetector {
	return &HistoryDetector{cfg: cfg}
}

func (d *HistoryDetector) Name() models.DetectorName { return models.DetectorHistory }

func (d *HistoryDetector) Detect(r *models.PriceRecord, bc *BatchContext) []models.Finding {
	if bc == nil || bc.Previous == nil {
		return nil
	}
	prev, ok := bc.Previous[r.ID]
	if !ok || prev == nil || prev.CurrentPrice <= 0 || r.CurrentPrice < 0 {
		return nil
	}

	var out []models.Finding

	change := (r.CurrentPrice - prev.CurrentPrice) / prev.CurrentPrice
	if math.Abs(change) > d.cfg.MaxPriceChange {
		out = append(out, newFinding(r, d.Name(), 0.5+math.Abs(change)*0.25,
			fmt.Sprintf("Current price changed by %.1f%% since the previous snapshot", change*100),
			[]string{
				fmt.Sprintf("Previous price: %.2f", prev.CurrentPrice),
				fmt.Sprintf("Current price: %.2f", r.CurrentPrice),
				fmt.Sprintf("Change: %.1f%%", change*100),
			},
			"Check whether the price change is a data error",
		))
	}

	// A "was" price that climbs while the item is on sale props up the discount.
	if r.IsDiscounted() && r.HasOriginal() && prev.HasOriginal() && prev.Original() > 0 {
		rise := (r.Original() - prev.Original()) / prev.Original()
		if rise > d.cfg.MaxPriceChange {
			out = append(out, newFinding(r, d.Name(), 0.5+rise*0.25,
				fmt.Sprintf("Original price rose by %.1f%% while on discount", rise*100),
				[]string{
					fmt.Sprintf("Previous original price: %.2f", prev.Original()),
					fmt.Sprintf("Current original price: %.2f", r.Original()),
					fmt.Sprintf("Discount: %.1f%%", r.Discount()),
				},
				"Verify the original price was actually charged before the discount",
			))
		}
	}
	return out
}
