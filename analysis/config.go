package analysis

import (
	"errors"
	"fmt"
)

// Config holds every threshold used by the detectors and the report builder.
// Build one with DefaultConfig and override fields as needed.
type Config struct {
	// MinCategorySamples is the minimum number of discounted records a
	// grouping needs before its discount standard deviation is meaningful.
	MinCategorySamples int

	// MinConfidence gates the additive-score detectors.
	MinConfidence float64

	ZScore       ZScoreConfig
	IQR          IQRConfig
	FakeDiscount FakeDiscountConfig
	TooGood      TooGoodConfig
	Manipulation ManipulationConfig
	Validity     ValidityConfig
	History      HistoryConfig
	Report       ReportConfig
}

type ZScoreConfig struct {
	Threshold float64
	// Scale maps a Z-score onto confidence: min(Z/Scale, 1).
	Scale float64
}

type IQRConfig struct {
	Multiplier float64
	MinSamples int
}

// Tier awards Weight when a value reaches Min. Tier lists are ordered by
// descending Min and only the first match scores.
type Tier struct {
	Min    float64
	Weight float64
	Label  string
}

// RoundStep awards Weight when a price is a whole multiple of Step.
type RoundStep struct {
	Step   float64
	Weight float64
	Label  string
}

type FakeDiscountConfig struct {
	// RoundPriceSteps are checked in order; the first matching step scores.
	RoundPriceSteps      []RoundStep
	RoundDiscountMinimum float64
	RoundDiscountStep    float64
	RoundDiscountWeight  float64
	MedianMultiplier     float64
	InflatedMinSamples   int
	InflatedWeight       float64
	HighDiscount         float64
	AverageBand          float64
	AverageMinSamples    int
	AverageWeight        float64
}

type TooGoodConfig struct {
	DiscountTiers []Tier

	// SavingsTiers score when savings strictly exceed Min.
	SavingsTiers     []Tier
	PremiumBrands    []string
	BrandMaxPrice    float64
	BrandMinDiscount float64
	BrandWeight      float64
	NearZeroPrice    float64
	NearZeroOriginal float64
	NearZeroWeight   float64
}

type ManipulationConfig struct {
	// RawThreshold is the pattern score needed before Base is added.
	RawThreshold float64
	Base         float64

	// CharmCentsMin and RoundCentsMax bound the "original ends in .98/.99,
	// sale ends in .00-.04" pattern.
	CharmCentsMin      int64
	RoundCentsMax      int64
	CentPatternWeight  float64
	CanonicalDiscounts []float64
	DiscountTolerance  float64
	CanonicalWeight    float64
	DoubleTolerance    float64
	DoubleWeight       float64
}

type ValidityConfig struct {
	MaxDiscount       float64
	MismatchTolerance float64
}

type HistoryConfig struct {
	MaxPriceChange float64
}

type ReportConfig struct {
	TopN                  int
	HighDiscountThreshold float64
	ExtremeDiscount       float64
	ExtremeShare          float64
	ErrorRate             float64
	SevereErrorRate       float64
	RoundDiscountShare    float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinCategorySamples: 4,
		MinConfidence:      0.6,
		ZScore: ZScoreConfig{
			Threshold: 2.5,
			Scale:     5.0,
		},
		IQR: IQRConfig{
			Multiplier: 1.5,
			MinSamples: 4,
		},
		FakeDiscount: FakeDiscountConfig{
			RoundPriceSteps: []RoundStep{
				{Step: 100, Weight: 0.15, Label: "suspiciously round"},
				{Step: 50, Weight: 0.10, Label: "a round number"},
			},
			RoundDiscountMinimum: 50,
			RoundDiscountStep:    10,
			RoundDiscountWeight:  0.10,
			MedianMultiplier:     2.5,
			InflatedMinSamples:   5,
			InflatedWeight:       0.30,
			HighDiscount:         60,
			AverageBand:          0.2,
			AverageMinSamples:    3,
			AverageWeight:        0.25,
		},
		TooGood: TooGoodConfig{
			DiscountTiers: []Tier{
				{Min: 95, Weight: 0.40, Label: "Extreme"},
				{Min: 90, Weight: 0.30, Label: "Very high"},
				{Min: 80, Weight: 0.20, Label: "High"},
			},
			SavingsTiers: []Tier{
				{Min: 5000, Weight: 0.25, Label: "Massive"},
				{Min: 2000, Weight: 0.15, Label: "Large"},
			},
			PremiumBrands:    []string{"samsung", "apple", "sony"},
			BrandMaxPrice:    500,
			BrandMinDiscount: 70,
			BrandWeight:      0.20,
			NearZeroPrice:    50,
			NearZeroOriginal: 500,
			NearZeroWeight:   0.15,
		},
		Manipulation: ManipulationConfig{
			RawThreshold:       0.25,
			Base:               0.4,
			CharmCentsMin:      98,
			RoundCentsMax:      4,
			CentPatternWeight:  0.15,
			CanonicalDiscounts: []float64{50, 75, 66.7, 33.3},
			DiscountTolerance:  0.05,
			CanonicalWeight:    0.10,
			DoubleTolerance:    1.0,
			DoubleWeight:       0.20,
		},
		Validity: ValidityConfig{
			MaxDiscount:       95,
			MismatchTolerance: 5,
		},
		History: HistoryConfig{
			MaxPriceChange: 0.5,
		},
		Report: ReportConfig{
			TopN:                  20,
			HighDiscountThreshold: 75,
			ExtremeDiscount:       90,
			ExtremeShare:          0.10,
			ErrorRate:             0.20,
			SevereErrorRate:       0.50,
			RoundDiscountShare:    0.30,
		},
	}
}

// Validate rejects configurations no detector can run with.
func (c Config) Validate() error {
	var errs []error
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("min confidence %.2f outside [0,1]", c.MinConfidence))
	}
	if c.MinCategorySamples < 2 {
		errs = append(errs, fmt.Errorf("min category samples %d below 2", c.MinCategorySamples))
	}
	if c.ZScore.Threshold <= 0 || c.ZScore.Scale <= 0 {
		errs = append(errs, errors.New("z-score threshold and scale must be positive"))
	}
	if c.IQR.Multiplier <= 0 {
		errs = append(errs, fmt.Errorf("iqr multiplier %.2f must be positive", c.IQR.Multiplier))
	}
	if !descending(c.TooGood.DiscountTiers) || !descending(c.TooGood.SavingsTiers) {
		errs = append(errs, errors.New("too-good tiers must be ordered by descending minimum"))
	}
	for _, st := range c.FakeDiscount.RoundPriceSteps {
		if st.Step <= 0 {
			errs = append(errs, fmt.Errorf("round price step %.2f must be positive", st.Step))
		}
	}
	if c.Manipulation.CharmCentsMin > 99 || c.Manipulation.RoundCentsMax < 0 {
		errs = append(errs, errors.New("manipulation cent bounds outside 0..99"))
	}
	if c.Validity.MaxDiscount <= 0 || c.Validity.MaxDiscount > 100 {
		errs = append(errs, fmt.Errorf("max discount %.1f outside (0,100]", c.Validity.MaxDiscount))
	}
	if c.Validity.MismatchTolerance < 0 {
		errs = append(errs, errors.New("discount mismatch tolerance must not be negative"))
	}
	if c.History.MaxPriceChange <= 0 {
		errs = append(errs, errors.New("history max price change must be positive"))
	}
	if c.Report.TopN < 1 {
		errs = append(errs, fmt.Errorf("report top-n %d below 1", c.Report.TopN))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("analysis: invalid config: %w", err)
	}
	return nil
}

func descending(tiers []Tier) bool {
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Min >= tiers[i-1].Min {
			return false
		}
	}
	return true
}
