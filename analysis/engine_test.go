package analysis

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-monitor/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	return e
}

// normalElectronics returns n ordinary listings with discounts between 5 and 30.
func normalElectronics(n int) []*models.PriceRecord {
	pattern := []float64{5, 10, 15, 20, 25, 30}
	out := make([]*models.PriceRecord, 0, n)
	for i := 0; i < n; i++ {
		d := pattern[i%len(pattern)]
		original := 800 + float64(i)*37
		current := round2(original * (1 - d/100))
		out = append(out, rec(fmt.Sprintf("N%02d", i), "electronics", current, models.Float(original), models.Float(d)))
	}
	return out
}

func detectorsFor(findings []models.Finding, id string) (map[models.DetectorName]bool, float64) {
	detectors := make(map[models.DetectorName]bool)
	best := 0.0
	for _, f := range findings {
		if f.ProductID == id {
			detectors[f.Detector] = true
			best = math.Max(best, f.Confidence)
		}
	}
	return detectors, best
}

func TestEngineOutlierAmongNormalListings(t *testing.T) {
	records := append(normalElectronics(20), rec("A", "electronics", 50, models.Float(1000), models.Float(95)))

	res := newTestEngine(t).Analyze(records)

	detectors, best := detectorsFor(res.Raw, "A")
	assert.True(t, detectors[models.DetectorZScore], "Z-score should fire")
	assert.True(t, detectors[models.DetectorIQR], "IQR should fire")
	// 95% off scores 0.40 and nothing else applies: savings of 950 hit no
	// tier, 50 is not below the near-zero price and there is no brand.
	assert.False(t, detectors[models.DetectorTooGood], "too-good-to-be-true should stay under the gate")

	cfg := DefaultConfig()
	assert.Empty(t, NewTooGoodDetector(cfg.TooGood, cfg.MinConfidence).Detect(records[20], nil))

	require.Len(t, res.Ranked, 1)
	assert.Equal(t, "A", res.Ranked[0].ProductID)
	assert.Equal(t, models.DetectorIQR, res.Ranked[0].Detector)
	assert.Equal(t, best, res.Ranked[0].Confidence)

	assert.Equal(t, 21, res.Report.Summary.TotalRecords)
	assert.Equal(t, 21, res.Report.Summary.RecordsWithDiscount)
	assert.Equal(t, 1, res.Report.Summary.FlaggedRecords)
}

func TestEnginePremiumBrandOutlierIsTooGoodToBeTrue(t *testing.T) {
	a := rec("A", "electronics", 50, models.Float(1000), models.Float(95))
	a.Name = "Samsung Galaxy S24 Ultra"
	records := append(normalElectronics(20), a)

	res := newTestEngine(t).Analyze(records)

	detectors, best := detectorsFor(res.Raw, "A")
	assert.True(t, detectors[models.DetectorZScore], "Z-score should fire")
	assert.True(t, detectors[models.DetectorTooGood], "brand signal lifts too-good-to-be-true to 0.60")

	require.Len(t, res.Ranked, 1)
	assert.Equal(t, "A", res.Ranked[0].ProductID)
	assert.Equal(t, best, res.Ranked[0].Confidence)
}

func TestEnginePriceInversionWithoutCategoryData(t *testing.T) {
	res := newTestEngine(t).Analyze([]*models.PriceRecord{
		rec("B", "", 120, models.Float(100), nil),
	})

	require.Len(t, res.Ranked, 1)
	f := res.Ranked[0]
	assert.Equal(t, models.DetectorValidity, f.Detector)
	assert.Equal(t, models.RulePriceInversion, f.Rule)
	assert.Equal(t, models.SeverityHigh, f.Severity)
	assert.Equal(t, 0.8, f.Confidence)
}

func TestEngineCleanRecord(t *testing.T) {
	res := newTestEngine(t).Analyze([]*models.PriceRecord{
		rec("C", "home", 300, models.Float(300), models.Float(0)),
	})

	assert.Empty(t, res.Raw)
	assert.Empty(t, res.Ranked)
	assert.Equal(t, 1, res.Report.Summary.TotalRecords)
	assert.Zero(t, res.Report.Summary.RecordsWithDiscount)
	assert.Equal(t, []string{"No pricing anomalies detected"}, res.Report.Recommendations)
}

func TestEngineEmptyBatch(t *testing.T) {
	res := newTestEngine(t).Analyze(nil)

	assert.Empty(t, res.Ranked)
	assert.Zero(t, res.Report.Summary.TotalRecords)
	assert.Len(t, res.Report.Distribution, 6)
}

func TestEngineDoesNotMutateInput(t *testing.T) {
	records := normalElectronics(10)
	records = append(records,
		rec("X", "electronics", 10, models.Float(1000), models.Float(99)),
		rec("Y", "electronics", 500, models.Float(100), nil),
	)
	before := make([]models.PriceRecord, len(records))
	for i, r := range records {
		before[i] = *r
	}

	newTestEngine(t).Analyze(records)

	for i, r := range records {
		assert.Equal(t, before[i], *r)
	}
}

func TestEngineRejectsMalformedRecords(t *testing.T) {
	noName := rec("n", "home", 10, nil, nil)
	noName.Name = " "
	records := []*models.PriceRecord{
		rec("ok", "home", 10, nil, nil),
		nil,
		rec("", "home", 10, nil, nil),
		noName,
		rec("ok", "home", 20, nil, nil),
		rec("nan", "home", math.NaN(), nil, nil),
		rec("inf", "home", 10, models.Float(math.Inf(1)), nil),
	}

	res := newTestEngine(t).Analyze(records)

	require.Len(t, res.Batch.Records, 1)
	assert.Equal(t, 10.0, res.Batch.Records[0].CurrentPrice)

	want := []error{ErrNilRecord, ErrMissingID, ErrMissingName, ErrDuplicateID, ErrNonFinitePrice, ErrNonFinitePrice}
	require.Len(t, res.Batch.Rejected, len(want))
	for i, r := range res.Batch.Rejected {
		assert.ErrorIs(t, r.Err, want[i])
		assert.Equal(t, i+1, r.Index)
	}
	assert.Equal(t, 6, res.Report.Summary.RejectedRecords)
	assert.Contains(t, res.Report.Recommendations, "6 records were rejected at ingestion (missing id/name or malformed values)")
}

func TestEngineHistory(t *testing.T) {
	records := []*models.PriceRecord{rec("H", "home", 30, nil, nil)}
	previous := map[string]*models.PriceRecord{"H": rec("H", "home", 100, nil, nil)}

	e := newTestEngine(t)
	assert.Empty(t, e.Analyze(records).Ranked)

	res := e.AnalyzeWithHistory(records, previous)
	require.Len(t, res.Ranked, 1)
	assert.Equal(t, models.DetectorHistory, res.Ranked[0].Detector)
}

type stubDetector struct{ conf float64 }

func (stubDetector) Name() models.DetectorName { return "stub" }

func (s stubDetector) Detect(r *models.PriceRecord, _ *BatchContext) []models.Finding {
	return []models.Finding{newFinding(r, "stub", s.conf, "stub", nil, "")}
}

func TestEngineWithCustomDetectors(t *testing.T) {
	e, err := NewEngineWithDetectors(DefaultConfig(), stubDetector{conf: 0.3})
	require.NoError(t, err)

	res := e.Analyze([]*models.PriceRecord{rec("1", "", 1, nil, nil), rec("2", "", 1, nil, nil)})
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, "1", res.Ranked[0].ProductID)
	assert.Equal(t, 2, res.Report.DetectorCounts["stub"])
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MinCategorySamples = 1
	cfg.ZScore.Scale = 0
	cfg.MinConfidence = 2

	err := cfg.Validate()
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.TooGood.DiscountTiers = []Tier{{Min: 80, Weight: 0.2}, {Min: 95, Weight: 0.4}}
	assert.Error(t, cfg.Validate())

	_, err = NewEngine(cfg)
	assert.Error(t, err)
}
