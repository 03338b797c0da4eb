package models

import "time"

// DetectorName identifies the detector that produced a Finding.
type DetectorName string

const (
	DetectorZScore       DetectorName = "statistical_outlier"
	DetectorIQR          DetectorName = "iqr_outlier"
	DetectorFakeDiscount DetectorName = "fake_discount"
	DetectorTooGood      DetectorName = "too_good_to_be_true"
	DetectorManipulation DetectorName = "price_manipulation"
	DetectorValidity     DetectorName = "price_validity"
	DetectorHistory      DetectorName = "price_history"
)

// Severity grades a Finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// CategoryBaseline holds per-category reference statistics for one analysis run.
// Discount figures cover records with a positive discount, price figures
// cover records with a positive current price.
type CategoryBaseline struct {
	Category          string  `json:"category"`
	RecordCount       int     `json:"record_count"`
	DiscountCount     int     `json:"discount_count"`
	PriceCount        int     `json:"price_count"`
	MeanDiscount      float64 `json:"mean_discount"`
	StdDiscount       float64 `json:"std_discount"`
	DiscountQ1        float64 `json:"discount_q1"`
	DiscountQ3        float64 `json:"discount_q3"`
	MeanPrice         float64 `json:"mean_price"`
	MedianPrice       float64 `json:"median_price"`
	Percentile90Price float64 `json:"percentile_90_price"`
}

// Rules reported by the price validity detector.
const (
	RuleNegativePrice    = "negative_price"
	RulePriceInversion   = "price_inversion"
	RuleExtremeDiscount  = "extreme_discount"
	RuleDiscountMismatch = "discount_mismatch"
)

// Finding is one detector's verdict on one record.
type Finding struct {
	ProductID      string       `json:"product_id"`
	Name           string       `json:"name"`
	Detector       DetectorName `json:"detector_name"`
	Severity       Severity     `json:"severity"`
	Rule           string       `json:"rule,omitempty"`
	Confidence     float64      `json:"confidence"`
	Description    string       `json:"description"`
	Evidence       []string     `json:"evidence"`
	Recommendation string       `json:"recommendation"`
}

// RejectedRecord is an input record excluded from analysis at ingestion.
type RejectedRecord struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Summary holds the batch-level discount statistics.
type Summary struct {
	TotalRecords        int     `json:"total_records"`
	RecordsWithDiscount int     `json:"records_with_discount"`
	RejectedRecords     int     `json:"rejected_records"`
	FlaggedRecords      int     `json:"flagged_records"`
	MeanDiscount        float64 `json:"mean_discount"`
	MedianDiscount      float64 `json:"median_discount"`
	MaxDiscount         float64 `json:"max_discount"`
}

// DistributionBucket counts discounted records in [Lower, Upper).
// The last bucket is closed at 100.
type DistributionBucket struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// CategorySummary is the per-category slice of a report.
type CategorySummary struct {
	Baseline CategoryBaseline `json:"baseline"`
	Findings int              `json:"findings"`
}

// Report is the structured result of one analysis run.
// DistributionCounts maps bucket label to count. Distribution keeps the
// same buckets in order for rendering.
type Report struct {
	RunID                string               `json:"run_id,omitempty"`
	GeneratedAt          time.Time            `json:"generated_at,omitempty"`
	Summary              Summary              `json:"summary"`
	DistributionCounts   map[string]int       `json:"distribution"`
	Distribution         []DistributionBucket `json:"distribution_buckets"`
	Findings             []Finding            `json:"findings"`
	DetectorCounts       map[DetectorName]int `json:"detector_counts"`
	HighDiscountProducts []*PriceRecord       `json:"high_discount_products"`
	Categories           []CategorySummary    `json:"categories"`
	Rejected             []RejectedRecord     `json:"rejected,omitempty"`
	Recommendations      []string             `json:"recommendations"`
}
