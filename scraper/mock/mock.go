// Package mock generates a synthetic product catalogue for running the
// pipeline without a browser.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"price-monitor/models"
	"price-monitor/utils"
)

const source = "mock"

var (
	catalogue = map[string][]string{
		"electronics": {"Smartphone", "Laptop", "Tablet", "Headphones", "Smart Watch"},
		"home":        {"Coffee Machine", "Blender", "Vacuum Cleaner", "Air Fryer", "Washing Machine"},
		"fashion":     {"T-Shirt", "Jeans", "Sneakers", "Jacket", "Watch"},
		"sports":      {"Running Shoes", "Yoga Mat", "Dumbbells", "Treadmill", "Bicycle"},
	}
	// categoryOrder keeps generation deterministic for a given seed.
	categoryOrder = []string{"electronics", "home", "fashion", "sports"}

	priceRanges = map[string][2]float64{
		"electronics": {500, 15000},
		"home":        {200, 5000},
		"fashion":     {50, 2000},
		"sports":      {100, 3000},
	}

	brands     = []string{"Samsung", "Apple", "Sony", "Nike", "Adidas", "Bosch", "Philips", "LG", "Huawei", "Dell"}
	variations = []string{"", " Pro", " Plus", " Max", " Mini", " XL"}
)

// Scraper produces a reproducible catalogue with a sprinkling of pricing
// anomalies: extreme discounts, inverted prices and negative prices.
type Scraper struct {
	seed        int64
	perCategory int
	now         func() time.Time
	logger      *utils.Logger
}

func New(seed int64, perCategory int, logger *utils.Logger) *Scraper {
	if perCategory < 1 {
		perCategory = 20
	}
	return &Scraper{seed: seed, perCategory: perCategory, now: time.Now, logger: logger}
}

func (s *Scraper) Name() string { return source }

func (s *Scraper) Scrape(ctx context.Context) ([]*models.RawProduct, error) {
	rng := rand.New(rand.NewSource(s.seed))
	scraped := s.now().UTC()

	var out []*models.RawProduct
	for _, category := range categoryOrder {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("mock: %w", err)
		}
		for i := 0; i < s.perCategory; i++ {
			out = append(out, s.product(rng, category, i, scraped))
		}
	}
	out = append(out, anomalies(scraped)...)

	s.logger.Info("[mock] Generated %d products across %d categories (seed %d)",
		len(out), len(categoryOrder), s.seed)
	return out, nil
}

func (s *Scraper) product(rng *rand.Rand, category string, i int, scraped time.Time) *models.RawProduct {
	names := catalogue[category]
	brand := brands[rng.Intn(len(brands))]
	name := fmt.Sprintf("%s %s%s", brand, names[rng.Intn(len(names))], variations[rng.Intn(len(variations))])
	if rng.Float64() < 0.5 {
		name += fmt.Sprintf(" %d", 100+rng.Intn(9900))
	}

	bounds := priceRanges[category]
	base := bounds[0] + rng.Float64()*(bounds[1]-bounds[0])
	regular := decimal.NewFromFloat(base * (0.8 + rng.Float64()*0.7)).Round(2)

	id := fmt.Sprintf("%s_%s_%04d", strings.ToUpper(category), strings.ToUpper(brand), i)
	p := &models.RawProduct{
		ExternalID: id,
		Name:       name,
		Category:   category,
		Brand:      brand,
		URL:        "https://www.bilka.dk/produkt/" + strings.ToLower(id) + "/",
		ScrapedAt:  scraped,
		Source:     source,
	}

	// Roughly a third of the catalogue is on sale, mostly 5-40% off.
	if rng.Float64() < 0.35 {
		discount := int64(5 + rng.Intn(36))
		sale := regular.Mul(decimal.NewFromInt(100 - discount)).Div(decimal.NewFromInt(100)).Round(2)
		p.RawPrice = FormatDKK(sale)
		p.RawOriginalPrice = FormatDKK(regular)
		p.RawDiscount = fmt.Sprintf("-%d%%", discount)
	} else {
		p.RawPrice = FormatDKK(regular)
	}
	return p
}

// anomalies are fixed listings that each exercise a detector.
func anomalies(scraped time.Time) []*models.RawProduct {
	mk := func(id, name, category, brand, price, original, discount string) *models.RawProduct {
		return &models.RawProduct{
			ExternalID: id, Name: name, Category: category, Brand: brand,
			RawPrice: price, RawOriginalPrice: original, RawDiscount: discount,
			URL:       "https://www.bilka.dk/produkt/" + strings.ToLower(id) + "/",
			ScrapedAt: scraped, Source: source,
		}
	}
	return []*models.RawProduct{
		mk("ANOMALY_EXTREME", "Samsung Galaxy S24 Ultra", "electronics", "Samsung", "499,-", "9.999,-", "-95%"),
		mk("ANOMALY_INVERTED", "Bosch Coffee Machine Pro", "home", "Bosch", "2.499,-", "1.999,-", ""),
		mk("ANOMALY_NEGATIVE", "Nike Running Shoes", "sports", "Nike", "-5,00 kr.", "899,-", ""),
		mk("ANOMALY_DOUBLE", "Philips Air Fryer XL", "home", "Philips", "1.000,-", "2.000,-", "-50%"),
		mk("ANOMALY_MISMATCH", "Adidas Jacket", "fashion", "Adidas", "800,-", "1.000,-", "-60%"),
	}
}

// FormatDKK renders an amount the way Danish shops print it: "1.299,95 kr.".
func FormatDKK(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	b.WriteString(" kr.")
	return b.String()
}
