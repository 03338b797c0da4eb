package analysis

import (
	"math"

	"price-monitor/models"
)

// BatchContext is the read-only state every detector may consult.
// Detectors never see each other's output.
type BatchContext struct {
	Baselines Baselines
	// Previous maps product id to its prior snapshot. Nil when no history
	// is available.
	Previous map[string]*models.PriceRecord
}

// Detector scans one record against the batch context.
type Detector interface {
	Name() models.DetectorName
	Detect(r *models.PriceRecord, bc *BatchContext) []models.Finding
}

// DefaultDetectors returns the detector set in its stable execution order.
// The order only matters for breaking confidence ties during deduplication.
func DefaultDetectors(cfg Config) []Detector {
	return []Detector{
		NewValidityDetector(cfg.Validity),
		NewZScoreDetector(cfg.ZScore),
		NewIQRDetector(cfg.IQR),
		NewFakeDiscountDetector(cfg.FakeDiscount, cfg.MinConfidence),
		NewTooGoodDetector(cfg.TooGood, cfg.MinConfidence),
		NewManipulationDetector(cfg.Manipulation),
		NewHistoryDetector(cfg.History),
	}
}

func newFinding(r *models.PriceRecord, d models.DetectorName, confidence float64, description string, evidence []string, hint string) models.Finding {
	confidence = clamp01(confidence)
	return models.Finding{
		ProductID:      r.ID,
		Name:           r.Name,
		Detector:       d,
		Severity:       severityFor(confidence),
		Confidence:     confidence,
		Description:    description,
		Evidence:       evidence,
		Recommendation: recommend(confidence, hint),
	}
}

func severityFor(confidence float64) models.Severity {
	switch {
	case confidence >= 0.9:
		return models.SeverityCritical
	case confidence >= 0.8:
		return models.SeverityHigh
	case confidence >= 0.6:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func recommend(confidence float64, hint string) string {
	var band string
	switch {
	case confidence >= 0.9:
		band = "CRITICAL: almost certainly an error or scam, do not purchase"
	case confidence >= 0.8:
		band = "HIGH RISK: very suspicious, investigate thoroughly"
	case confidence >= 0.7:
		band = "SUSPICIOUS: likely too good to be true, verify carefully"
	case confidence >= 0.6:
		band = "CAUTION: unusually good deal, check details before buying"
	default:
		band = "NOTICE: potential bargain, verify authenticity"
	}
	if hint == "" {
		return band
	}
	return band + ". " + hint
}

// cents rounds a price to whole cents so divisibility checks are exact.
func cents(price float64) int64 {
	return int64(math.Round(price * 100))
}

func nearMultiple(v, step, tol float64) bool {
	return math.Abs(v-math.Round(v/step)*step) <= tol
}
