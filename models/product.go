package models

import "time"

// RawProduct holds unprocessed scraped data directly from the browser.
// This is written to CSV before any cleaning or transformation.
type RawProduct struct {
	ExternalID       string
	Name             string
	Category         string
	Brand            string
	RawPrice         string
	RawOriginalPrice string
	RawDiscount      string
	URL              string
	ScrapedAt        time.Time
	Source           string
}

// PriceRecord is one observed product price snapshot, the unit of analysis.
// Optional numeric fields are nil when the value was not observed.
type PriceRecord struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Category           string    `json:"category,omitempty"`
	Brand              string    `json:"brand,omitempty"`
	URL                string    `json:"url,omitempty"`
	Currency           string    `json:"currency,omitempty"`
	CurrentPrice       float64   `json:"current_price"`
	OriginalPrice      *float64  `json:"original_price,omitempty"`
	DiscountPercentage *float64  `json:"discount_percentage,omitempty"`
	ScrapedAt          time.Time `json:"scraped_at"`
}

// HasOriginal reports whether an original (pre-discount) price was observed.
func (r *PriceRecord) HasOriginal() bool {
	return r.OriginalPrice != nil
}

// Original returns the original price, or 0 when absent.
func (r *PriceRecord) Original() float64 {
	if r.OriginalPrice == nil {
		return 0
	}
	return *r.OriginalPrice
}

// HasDiscount reports whether a discount percentage is present.
func (r *PriceRecord) HasDiscount() bool {
	return r.DiscountPercentage != nil
}

// Discount returns the discount percentage, or 0 when absent.
func (r *PriceRecord) Discount() float64 {
	if r.DiscountPercentage == nil {
		return 0
	}
	return *r.DiscountPercentage
}

// IsDiscounted reports whether the record carries a positive discount.
func (r *PriceRecord) IsDiscounted() bool {
	return r.DiscountPercentage != nil && *r.DiscountPercentage > 0
}

// Float returns a pointer to v. Handy for building records with optional fields.
func Float(v float64) *float64 {
	return &v
}
