package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-monitor/models"
)

func buildReport(records []*models.PriceRecord, raw []models.Finding) *models.Report {
	cfg := DefaultConfig()
	batch := NewBatch(records)
	baselines := ComputeBaselines(batch.Records, cfg.MinCategorySamples)
	return BuildReport(batch, baselines, raw, Aggregate(raw), cfg.Report)
}

func TestReportAllBucketsPresentWithoutDiscounts(t *testing.T) {
	report := buildReport([]*models.PriceRecord{
		rec("1", "home", 100, nil, nil),
		rec("2", "home", 100, models.Float(100), models.Float(0)),
	}, nil)

	require.Len(t, report.Distribution, 6)
	labels := make([]string, len(report.Distribution))
	for i, b := range report.Distribution {
		labels[i] = b.Label
		assert.Zero(t, b.Count, b.Label)
	}
	assert.Equal(t, []string{"0-10%", "10-25%", "25-50%", "50-75%", "75-90%", "90-100%"}, labels)

	assert.Equal(t, 2, report.Summary.TotalRecords)
	assert.Zero(t, report.Summary.RecordsWithDiscount)
	assert.Zero(t, report.Summary.MeanDiscount)
	assert.Zero(t, report.Summary.MaxDiscount)
	assert.Equal(t, []string{"No pricing anomalies detected"}, report.Recommendations)
}

func TestReportBucketEdges(t *testing.T) {
	var records []*models.PriceRecord
	for i, d := range []float64{0.5, 9.99, 10, 24.99, 25, 50, 74.99, 75, 89.99, 90, 100, 150} {
		records = append(records, rec(fmt.Sprint(i), "", 10, nil, models.Float(d)))
	}
	report := buildReport(records, nil)

	counts := report.DistributionCounts
	assert.Equal(t, 2, counts["0-10%"])
	assert.Equal(t, 2, counts["10-25%"])
	assert.Equal(t, 1, counts["25-50%"])
	assert.Equal(t, 2, counts["50-75%"])
	assert.Equal(t, 2, counts["75-90%"])
	assert.Equal(t, 3, counts["90-100%"])
}

func TestReportDistributionSerialisesAsLabelCounts(t *testing.T) {
	report := buildReport([]*models.PriceRecord{
		rec("1", "", 10, nil, models.Float(5)),
		rec("2", "", 10, nil, models.Float(95)),
	}, nil)

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded struct {
		Distribution map[string]int `json:"distribution"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, map[string]int{
		"0-10%": 1, "10-25%": 0, "25-50%": 0, "50-75%": 0, "75-90%": 0, "90-100%": 1,
	}, decoded.Distribution)
}

func TestReportSummary(t *testing.T) {
	report := buildReport([]*models.PriceRecord{
		rec("1", "home", 90, models.Float(100), models.Float(10)),
		rec("2", "home", 80, models.Float(100), models.Float(20)),
		rec("3", "home", 40, models.Float(100), models.Float(60)),
		rec("4", "home", 100, nil, nil),
		nil,
	}, nil)

	s := report.Summary
	assert.Equal(t, 4, s.TotalRecords)
	assert.Equal(t, 3, s.RecordsWithDiscount)
	assert.Equal(t, 1, s.RejectedRecords)
	assert.InDelta(t, 30.0, s.MeanDiscount, 1e-9)
	assert.InDelta(t, 20.0, s.MedianDiscount, 1e-9)
	assert.InDelta(t, 60.0, s.MaxDiscount, 1e-9)

	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 4, report.Rejected[0].Index)
	assert.Equal(t, ErrNilRecord.Error(), report.Rejected[0].Reason)

	require.Len(t, report.Categories, 1)
	assert.Equal(t, "home", report.Categories[0].Baseline.Category)
}

func TestReportTopN(t *testing.T) {
	var records []*models.PriceRecord
	var raw []models.Finding
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("P%02d", i)
		records = append(records, rec(id, "", 10, nil, nil))
		raw = append(raw, finding(id, models.DetectorZScore, float64(i)/30))
	}

	report := buildReport(records, raw)
	require.Len(t, report.Findings, 20)
	assert.Equal(t, "P29", report.Findings[0].ProductID)
	assert.Equal(t, 30, report.Summary.FlaggedRecords)
	assert.Equal(t, 30, report.DetectorCounts[models.DetectorZScore])
}

func TestReportHighDiscountProducts(t *testing.T) {
	report := buildReport([]*models.PriceRecord{
		rec("a", "", 20, nil, models.Float(80)),
		rec("b", "", 25, nil, models.Float(75)),
		rec("c", "", 26, nil, models.Float(74)),
		rec("d", "", 10, nil, models.Float(90)),
		rec("e", "", 20, nil, models.Float(80)),
	}, nil)

	ids := make([]string, len(report.HighDiscountProducts))
	for i, r := range report.HighDiscountProducts {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"d", "a", "e", "b"}, ids)
}

func TestReportRecommendations(t *testing.T) {
	d := NewValidityDetector(DefaultConfig().Validity)
	records := []*models.PriceRecord{
		rec("neg", "", -5, models.Float(100), nil),
		rec("inv", "", 120, models.Float(100), nil),
		rec("ok1", "", 90, models.Float(100), models.Float(10)),
		rec("ok2", "", 80, models.Float(100), models.Float(20)),
	}
	var raw []models.Finding
	for _, r := range records {
		raw = append(raw, d.Detect(r, nil)...)
	}
	raw = append(raw, finding("ok1", models.DetectorTooGood, 0.7))

	recs := strings.Join(buildReport(records, raw).Recommendations, "\n")
	assert.Contains(t, recs, "50.0% of records failed validity checks: review the data pipeline")
	assert.Contains(t, recs, "Fix 1 products with negative prices")
	assert.Contains(t, recs, "Fix 1 products with incorrect price relationships")
	assert.Contains(t, recs, "2 products have round-number discounts")
	assert.Contains(t, recs, `Manually verify 1 suspicious deals, starting with "Product ok1" (ok1)`)
	assert.NotContains(t, recs, "No pricing anomalies detected")
}

func TestReportRecommendsPipelineFixOnSevereErrorRate(t *testing.T) {
	d := NewValidityDetector(DefaultConfig().Validity)
	records := []*models.PriceRecord{
		rec("1", "", -1, nil, nil),
		rec("2", "", -2, nil, nil),
		rec("3", "", 10, nil, nil),
	}
	var raw []models.Finding
	for _, r := range records {
		raw = append(raw, d.Detect(r, nil)...)
	}

	recs := buildReport(records, raw).Recommendations
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0], "pipeline is likely broken")
}

func TestBuildReportDeterministic(t *testing.T) {
	records := []*models.PriceRecord{
		rec("1", "home", 90, models.Float(100), models.Float(10)),
		rec("2", "toys", 20, models.Float(100), models.Float(80)),
	}
	raw := []models.Finding{finding("2", models.DetectorTooGood, 0.7)}

	assert.Equal(t, buildReport(records, raw), buildReport(records, raw))
}
