package analysis

import (
	"fmt"
	"math"
	"strings"

	"price-monitor/models"
)

// Fixed confidences for the deterministic validity rules.
const (
	confidenceCritical = 1.0
	confidenceHigh     = 0.8
	confidenceMedium   = 0.5
)

// ValidityDetector applies deterministic price rules. Every rule that holds
// produces its own finding.
type ValidityDetector struct {
	cfg ValidityConfig
}

func NewValidityDetector(cfg ValidityConfig) *ValidityDetector {
	return &ValidityDetector{cfg: cfg}
}

func (d *ValidityDetector) Name() models.DetectorName { return models.DetectorValidity }

func (d *ValidityDetector) Detect(r *models.PriceRecord, _ *BatchContext) []models.Finding {
	var out []models.Finding

	if r.CurrentPrice < 0 {
		out = append(out, d.finding(r, models.RuleNegativePrice, models.SeverityCritical,
			fmt.Sprintf("Negative current price: %.2f", r.CurrentPrice),
			"Fix the price feed before publishing this listing"))
	}
	if r.HasOriginal() && r.Original() < 0 {
		out = append(out, d.finding(r, models.RuleNegativePrice, models.SeverityCritical,
			fmt.Sprintf("Negative original price: %.2f", r.Original()),
			"Fix the price feed before publishing this listing"))
	}

	if r.HasOriginal() && r.CurrentPrice > r.Original() {
		out = append(out, d.finding(r, models.RulePriceInversion, models.SeverityHigh,
			fmt.Sprintf("Current price (%.2f) > original price (%.2f)", r.CurrentPrice, r.Original()),
			"Check whether the sale and regular prices were swapped"))
	}

	if r.HasDiscount() && r.Discount() > d.cfg.MaxDiscount {
		out = append(out, d.finding(r, models.RuleExtremeDiscount, models.SeverityHigh,
			fmt.Sprintf("Suspiciously high discount: %.1f%%", r.Discount()),
			"Confirm the discount with the retailer"))
	}

	if r.HasDiscount() && r.HasOriginal() && r.Original() > 0 {
		computed := (r.Original() - r.CurrentPrice) / r.Original() * 100
		if math.Abs(computed-r.Discount()) > d.cfg.MismatchTolerance {
			out = append(out, d.finding(r, models.RuleDiscountMismatch, models.SeverityMedium,
				fmt.Sprintf("Claimed discount (%.1f%%) != calculated (%.1f%%)", r.Discount(), computed),
				"Recompute the advertised discount from the listed prices"))
		}
	}
	return out
}

func (d *ValidityDetector) finding(r *models.PriceRecord, rule string, sev models.Severity, description, hint string) models.Finding {
	var confidence float64
	switch sev {
	case models.SeverityCritical:
		confidence = confidenceCritical
	case models.SeverityHigh:
		confidence = confidenceHigh
	default:
		confidence = confidenceMedium
	}

	evidence := []string{fmt.Sprintf("Current price: %.2f", r.CurrentPrice)}
	if r.HasOriginal() {
		evidence = append(evidence, fmt.Sprintf("Original price: %.2f", r.Original()))
	}
	if r.HasDiscount() {
		evidence = append(evidence, fmt.Sprintf("Discount: %.1f%%", r.Discount()))
	}

	return models.Finding{
		ProductID:      r.ID,
		Name:           r.Name,
		Detector:       d.Name(),
		Severity:       sev,
		Rule:           rule,
		Confidence:     confidence,
		Description:    description,
		Evidence:       evidence,
		Recommendation: strings.ToUpper(string(sev)) + ": pricing error. " + hint,
	}
}

// IsValidityFinding reports whether f came from the rule-based checker.
func IsValidityFinding(f models.Finding) bool {
	return f.Detector == models.DetectorValidity
}
