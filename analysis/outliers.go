package analysis

import (
	"fmt"

	"price-monitor/models"
)

// ZScoreDetector flags discounts far above their category mean.
type ZScoreDetector struct {
	cfg ZScoreConfig
}

func NewZScoreDetector(cfg ZScoreConfig) *ZScoreDetector {
	return &ZScoreDetector{cfg: cfg}
}

func (d *ZScoreDetector) Name() models.DetectorName { return models.DetectorZScore }

func (d *ZScoreDetector) Detect(r *models.PriceRecord, bc *BatchContext) []models.Finding {
	if !r.IsDiscounted() {
		return nil
	}
	base := bc.Baselines.For(r)
	if base.StdDiscount <= 0 {
		return nil
	}

	discount := r.Discount()
	z := (discount - base.MeanDiscount) / base.StdDiscount
	if z <= d.cfg.Threshold {
		return nil
	}

	scope := "batch"
	if base.Category != "" {
		scope = "category " + base.Category
	}
	return []models.Finding{newFinding(r, d.Name(), z/d.cfg.Scale,
		fmt.Sprintf("Discount %.1f%% is %.2f standard deviations above the %s mean", discount, z, scope),
		[]string{
			fmt.Sprintf("Z-score: %.2f", z),
			fmt.Sprintf("Mean discount: %.1f%%", base.MeanDiscount),
			fmt.Sprintf("Std discount: %.1f", base.StdDiscount),
			fmt.Sprintf("Product discount: %.1f%%", discount),
		},
		"Compare against other listings in the same category",
	)}
}

// IQRDetector flags discounts beyond Q3 + k*IQR of their grouping.
type IQRDetector struct {
	cfg IQRConfig
}

func NewIQRDetector(cfg IQRConfig) *IQRDetector {
	return &IQRDetector{cfg: cfg}
}

func (d *IQRDetector) Name() models.DetectorName { return models.DetectorIQR }

func (d *IQRDetector) Detect(r *models.PriceRecord, bc *BatchContext) []models.Finding {
	if !r.IsDiscounted() {
		return nil
	}
	base := bc.Baselines.For(r)
	if base.DiscountCount < d.cfg.MinSamples {
		return nil
	}
	iqr := base.DiscountQ3 - base.DiscountQ1
	if iqr <= 0 {
		return nil
	}

	discount := r.Discount()
	upper := base.DiscountQ3 + d.cfg.Multiplier*iqr
	if discount <= upper {
		return nil
	}

	confidence := 0.5 + ((discount-upper)/iqr)*0.2
	return []models.Finding{newFinding(r, d.Name(), confidence,
		fmt.Sprintf("Discount %.1f%% is beyond the IQR upper bound %.1f%%", discount, upper),
		[]string{
			fmt.Sprintf("Upper bound: %.1f%%", upper),
			fmt.Sprintf("Product discount: %.1f%%", discount),
			fmt.Sprintf("IQR: %.1f", iqr),
		},
		"Compare against other listings in the same category",
	)}
}
