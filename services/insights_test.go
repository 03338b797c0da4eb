package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-monitor/analysis"
	"price-monitor/models"
)

func newTestInsights(t *testing.T) *InsightService {
	t.Helper()
	engine, err := analysis.NewEngine(analysis.DefaultConfig())
	require.NoError(t, err)
	s := NewInsightService(engine, newTestLogger())
	s.now = func() time.Time { return time.Date(2024, 11, 29, 8, 0, 0, 0, time.UTC) }
	return s
}

func product(id, category string, current, original float64) *models.PriceRecord {
	discount := (original - current) / original * 100
	return &models.PriceRecord{
		ID:                 id,
		Name:               "Product " + id,
		Category:           category,
		Currency:           "DKK",
		CurrentPrice:       current,
		OriginalPrice:      models.Float(original),
		DiscountPercentage: models.Float(discount),
	}
}

func TestGenerateStampsRun(t *testing.T) {
	s := newTestInsights(t)

	report := s.Generate([]*models.PriceRecord{
		product("1", "home", 90, 100),
		{ID: "2", Name: "Lamp", CurrentPrice: 120, OriginalPrice: models.Float(100)},
	}, nil)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, time.Date(2024, 11, 29, 8, 0, 0, 0, time.UTC), report.GeneratedAt)
	assert.Equal(t, 2, report.Summary.TotalRecords)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "2", report.Findings[0].ProductID)

	other := s.Generate(nil, nil)
	assert.NotEqual(t, report.RunID, other.RunID)
}

func TestGeneratePerCategory(t *testing.T) {
	s := newTestInsights(t)

	var records []*models.PriceRecord
	for i := 0; i < 6; i++ {
		records = append(records,
			product(fmt.Sprintf("h%d", i), "home", 90, 100),
			product(fmt.Sprintf("s%d", i), "sports", 80, 100),
		)
	}
	records = append(records, &models.PriceRecord{ID: "x", Name: "Loose", CurrentPrice: 10})

	reports, err := s.GeneratePerCategory(context.Background(), records, 3)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, 6, reports["home"].Summary.TotalRecords)
	assert.Equal(t, 6, reports["sports"].Summary.TotalRecords)
	assert.Equal(t, 1, reports["uncategorized"].Summary.TotalRecords)
}

func TestGeneratePerCategoryCancelled(t *testing.T) {
	s := newTestInsights(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GeneratePerCategory(ctx, []*models.PriceRecord{product("1", "home", 90, 100)}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFprintReport(t *testing.T) {
	s := newTestInsights(t)
	report := s.Generate([]*models.PriceRecord{
		{ID: "B", Name: "Inverted kettle", CurrentPrice: 120, OriginalPrice: models.Float(100)},
		product("C", "home", 300, 300),
	}, nil)

	var buf bytes.Buffer
	Fprint(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "PRICE ANOMALY REPORT")
	assert.Contains(t, out, report.RunID)
	assert.Contains(t, out, "Inverted kettle")
	assert.Contains(t, out, "90-100%")
	assert.Contains(t, out, "Fix 1 products with incorrect price relationships")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "Rødgrød", truncate("Rødgrød", 10))
	assert.Equal(t, "Æbleskive...", truncate("Æbleskiver med flødeskum", 12))
}
