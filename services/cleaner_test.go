package services

import (
	"testing"
	"time"

	"price-monitor/models"
	"price-monitor/utils"
)

func newTestLogger() *utils.Logger { return utils.Discard() }

func TestCleanerParsePrice(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"1.299,95 kr.", 1299.95, true},
		{"299,-", 299, true},
		{"1.299", 1299, true},
		{"Før 2.499,-", 2499, true},
		{"49,5 DKK", 49.5, true},
		{"12.50", 12.50, true},
		{"-5,00 kr", -5, true},
		{"1.234.567,891", 1234567.89, true},
		{"", 0, false},
		{"Udsolgt", 0, false},
	}

	for _, tt := range tests {
		got, ok := c.parsePrice(tt.raw)
		if ok != tt.wantOK {
			t.Errorf("parsePrice(%q) ok = %v; want %v", tt.raw, ok, tt.wantOK)
			continue
		}
		if got.InexactFloat64() != tt.want {
			t.Errorf("parsePrice(%q) = %s; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestParseDiscount(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"-25%", 25, true},
		{"Spar 40 %", 40, true},
		{"33,3%", 33.3, true},
		{"", 0, false},
		{"Tilbud", 0, false},
		{"Spar 300 kr.", 0, false},
		{"Spar 1.200,-", 0, false},
		{"Spar 12.500 kr", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseDiscount(tt.raw)
		if ok != tt.wantOK || got.InexactFloat64() != tt.want {
			t.Errorf("parseDiscount(%q) = %s, %v; want %.1f, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCleanerDerivesDiscount(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawProduct{
		{ExternalID: "1", Name: "Kettle", RawPrice: "75,00", RawOriginalPrice: "100,00"},
		{ExternalID: "2", Name: "Lamp", RawPrice: "120", RawOriginalPrice: "100"},
		{ExternalID: "3", Name: "Mixer", RawPrice: "80", RawOriginalPrice: "100", RawDiscount: "-40%"},
		{ExternalID: "4", Name: "Toaster", RawPrice: "300", RawOriginalPrice: "300"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 4 {
		t.Fatalf("got %d records, want 4", len(cleaned))
	}
	if d := cleaned[0].Discount(); d != 25 {
		t.Errorf("derived discount: got %v, want 25", d)
	}
	if cleaned[1].HasDiscount() {
		t.Errorf("inverted prices should not get a derived discount, got %v", cleaned[1].Discount())
	}
	if d := cleaned[2].Discount(); d != 40 {
		t.Errorf("printed discount should win: got %v, want 40", d)
	}
	if !cleaned[3].HasDiscount() || cleaned[3].Discount() != 0 {
		t.Errorf("equal prices: want explicit 0 discount, got %v", cleaned[3].DiscountPercentage)
	}
}

func TestCleanerIgnoresKroneSavingsBadge(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawProduct{
		{ExternalID: "1", Name: "Sofa", RawPrice: "900,00", RawOriginalPrice: "1.200,00", RawDiscount: "Spar 300 kr."},
		{ExternalID: "2", Name: "Bed", RawPrice: "3.800,-", RawOriginalPrice: "5.000,-", RawDiscount: "Spar 1.200,-"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 2 {
		t.Fatalf("got %d records, want 2", len(cleaned))
	}
	if d := cleaned[0].Discount(); d != 25 {
		t.Errorf("Spar 300 kr.: got discount %v, want derived 25", d)
	}
	if d := cleaned[1].Discount(); d != 24 {
		t.Errorf("Spar 1.200,-: got discount %v, want derived 24", d)
	}
}

func TestCleanerKeepsInvalidPricesForAnalysis(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawProduct{
		{ExternalID: "neg", Name: "Broken", RawPrice: "-5,00 kr"},
		{ExternalID: "", Name: "No id", RawPrice: "10"},
		{ExternalID: "gone", Name: "Sold out", RawPrice: "Udsolgt"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 2 {
		t.Fatalf("got %d records, want 2", len(cleaned))
	}
	if cleaned[0].CurrentPrice != -5 {
		t.Errorf("negative price: got %v, want -5", cleaned[0].CurrentPrice)
	}
	if cleaned[1].ID != "" {
		t.Errorf("missing id should pass through for the batch to reject, got %q", cleaned[1].ID)
	}
}

func TestCleanerDeduplicatesExternalID(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawProduct{
		{ExternalID: "1", Name: "A", RawPrice: "10", ScrapedAt: time.Now()},
		{ExternalID: " 1 ", Name: "B", RawPrice: "20", ScrapedAt: time.Now()},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Errorf("expected 1 record after deduplication, got %d", len(cleaned))
	}
}

func TestCleanerNormalisesText(t *testing.T) {
	c := NewCleaner(newTestLogger())
	cleaned := c.Clean([]*models.RawProduct{
		{ExternalID: "1", Name: "  Samsung \n Galaxy   S24 ", Category: " Elektronik ", Brand: " Samsung", RawPrice: "4.999,-"},
	})

	if len(cleaned) != 1 {
		t.Fatalf("got %d records, want 1", len(cleaned))
	}
	r := cleaned[0]
	if r.Name != "Samsung Galaxy S24" {
		t.Errorf("name: got %q", r.Name)
	}
	if r.Category != "elektronik" {
		t.Errorf("category: got %q", r.Category)
	}
	if r.Brand != "Samsung" {
		t.Errorf("brand: got %q", r.Brand)
	}
	if r.CurrentPrice != 4999 || r.Currency != "DKK" {
		t.Errorf("price: got %v %s", r.CurrentPrice, r.Currency)
	}
}
