package analysis

import (
	"fmt"
	"math"
	"strings"

	"price-monitor/models"
)

// FakeDiscountDetector accumulates signs of an inflated "was" price.
type FakeDiscountDetector struct {
	cfg  FakeDiscountConfig
	gate float64
}

func NewFakeDiscountDetector(cfg FakeDiscountConfig, minConfidence float64) *FakeDiscountDetector {
	return &FakeDiscountDetector{cfg: cfg, gate: minConfidence}
}

func (d *FakeDiscountDetector) Name() models.DetectorName { return models.DetectorFakeDiscount }

func (d *FakeDiscountDetector) Detect(r *models.PriceRecord, bc *BatchContext) []models.Finding {
	if r.CurrentPrice <= 0 || !r.HasOriginal() || r.Original() <= 0 || !r.IsDiscounted() {
		return nil
	}
	original := r.Original()
	discount := r.Discount()

	var score float64
	var evidence []string

	oc := cents(original)
	for _, st := range d.cfg.RoundPriceSteps {
		if step := cents(st.Step); step > 0 && original >= st.Step && oc%step == 0 {
			score += st.Weight
			evidence = append(evidence, fmt.Sprintf("Original price %.2f is %s", original, st.Label))
			break
		}
	}

	if d.cfg.RoundDiscountStep > 0 && discount >= d.cfg.RoundDiscountMinimum && nearMultiple(discount, d.cfg.RoundDiscountStep, 1e-6) {
		score += d.cfg.RoundDiscountWeight
		evidence = append(evidence, fmt.Sprintf("Discount %.0f%% is a round percentage", discount))
	}

	if base, ok := bc.Baselines.Category(r); ok && base.MedianPrice > 0 {
		if base.PriceCount >= d.cfg.InflatedMinSamples && original > base.MedianPrice*d.cfg.MedianMultiplier {
			score += d.cfg.InflatedWeight
			evidence = append(evidence, fmt.Sprintf("Original price %.2f is over %.1fx category median %.2f",
				original, d.cfg.MedianMultiplier, base.MedianPrice))
		}
		if base.PriceCount >= d.cfg.AverageMinSamples && discount >= d.cfg.HighDiscount &&
			math.Abs(r.CurrentPrice-base.MedianPrice)/base.MedianPrice < d.cfg.AverageBand {
			score += d.cfg.AverageWeight
			evidence = append(evidence, fmt.Sprintf("Discount %.1f%% but price %.2f is average for category (median %.2f)",
				discount, r.CurrentPrice, base.MedianPrice))
		}
	}

	if !meetsGate(score, d.gate) {
		return nil
	}
	return []models.Finding{newFinding(r, d.Name(), score,
		fmt.Sprintf("Possible fake discount: original price %.2f may be inflated", original),
		evidence,
		"Verify the original price was actually charged before the discount",
	)}
}

// TooGoodDetector scores deals whose depth and savings exceed plausibility.
type TooGoodDetector struct {
	cfg    TooGoodConfig
	gate   float64
	brands []string
}

func NewTooGoodDetector(cfg TooGoodConfig, minConfidence float64) *TooGoodDetector {
	brands := make([]string, 0, len(cfg.PremiumBrands))
	for _, b := range cfg.PremiumBrands {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			brands = append(brands, b)
		}
	}
	return &TooGoodDetector{cfg: cfg, gate: minConfidence, brands: brands}
}

func (d *TooGoodDetector) Name() models.DetectorName { return models.DetectorTooGood }

func (d *TooGoodDetector) Detect(r *models.PriceRecord, _ *BatchContext) []models.Finding {
	if r.CurrentPrice <= 0 || !r.IsDiscounted() {
		return nil
	}
	current := r.CurrentPrice
	discount := r.Discount()

	var score float64
	var evidence []string

	for _, t := range d.cfg.DiscountTiers {
		if discount >= t.Min {
			score += t.Weight
			evidence = append(evidence, fmt.Sprintf("%s discount of %.1f%%", t.Label, discount))
			break
		}
	}

	if r.HasOriginal() {
		savings := r.Original() - current
		for _, t := range d.cfg.SavingsTiers {
			if savings > t.Min {
				score += t.Weight
				evidence = append(evidence, fmt.Sprintf("%s savings of %.2f", t.Label, savings))
				break
			}
		}
	}

	if brand := d.premiumBrand(r); brand != "" && current < d.cfg.BrandMaxPrice && discount > d.cfg.BrandMinDiscount {
		score += d.cfg.BrandWeight
		evidence = append(evidence, fmt.Sprintf("Premium brand %s at suspiciously low price %.2f", brand, current))
	}

	if current < d.cfg.NearZeroPrice && r.Original() > d.cfg.NearZeroOriginal {
		score += d.cfg.NearZeroWeight
		evidence = append(evidence, fmt.Sprintf("Price dropped from %.2f to %.2f", r.Original(), current))
	}

	if !meetsGate(score, d.gate) {
		return nil
	}
	return []models.Finding{newFinding(r, d.Name(), score,
		fmt.Sprintf("Deal appears too good to be true: %.1f%% off, now %.2f", discount, current),
		evidence,
		"Check seller, product condition and reviews before purchasing",
	)}
}

func (d *TooGoodDetector) premiumBrand(r *models.PriceRecord) string {
	haystack := strings.ToLower(r.Brand + " " + r.Name)
	for _, b := range d.brands {
		if strings.Contains(haystack, b) {
			return b
		}
	}
	return ""
}

// ManipulationDetector looks for price patterns typical of staged discounts.
type ManipulationDetector struct {
	cfg ManipulationConfig
}

func NewManipulationDetector(cfg ManipulationConfig) *ManipulationDetector {
	return &ManipulationDetector{cfg: cfg}
}

func (d *ManipulationDetector) Name() models.DetectorName { return models.DetectorManipulation }

func (d *ManipulationDetector) Detect(r *models.PriceRecord, _ *BatchContext) []models.Finding {
	if r.CurrentPrice <= 0 || !r.HasOriginal() || r.Original() <= 0 || !r.IsDiscounted() {
		return nil
	}
	current := r.CurrentPrice
	original := r.Original()
	discount := r.Discount()

	var score float64
	var evidence []string

	if oc, cc := cents(original)%100, cents(current)%100; oc >= d.cfg.CharmCentsMin && cc <= d.cfg.RoundCentsMax {
		score += d.cfg.CentPatternWeight
		evidence = append(evidence, fmt.Sprintf("Original ends in .%02d while sale price ends in .%02d", oc, cc))
	}

	for _, c := range d.cfg.CanonicalDiscounts {
		if math.Abs(discount-c) <= d.cfg.DiscountTolerance {
			score += d.cfg.CanonicalWeight
			evidence = append(evidence, fmt.Sprintf("Common manipulation discount: %.1f%%", discount))
			break
		}
	}

	if math.Abs(current*2-original) < d.cfg.DoubleTolerance {
		score += d.cfg.DoubleWeight
		evidence = append(evidence, fmt.Sprintf("Original price %.2f is double the current price %.2f", original, current))
	}

	if !meetsGate(score, d.cfg.RawThreshold) {
		return nil
	}
	return []models.Finding{newFinding(r, d.Name(), score+d.cfg.Base,
		"Possible price manipulation detected",
		evidence,
		"Cross-check prices with other retailers",
	)}
}
