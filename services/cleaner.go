package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"price-monitor/models"
	"price-monitor/utils"
)

var (
	// amountRegexp captures a signed number with Danish or English separators.
	amountRegexp = regexp.MustCompile(`-?\s*\d[\d.,]*`)
	// discountRegexp captures the number in labels like "-25%" or "Spar 25 %".
	// Krone savings badges ("Spar 300 kr.") carry no percent sign and do not match.
	discountRegexp = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)

	hundred = decimal.NewFromInt(100)
)

const currencyDKK = "DKK"

// Cleaner transforms RawProducts into PriceRecords ready for analysis.
// Structurally invalid prices (negative, inverted) are kept: flagging them
// is the analysis engine's job.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean processes raw products and returns cleaned records.
func (c *Cleaner) Clean(raw []*models.RawProduct) []*models.PriceRecord {
	seen := utils.NewIDSet()
	result := make([]*models.PriceRecord, 0, len(raw))

	for _, r := range raw {
		if r == nil {
			continue
		}
		id := strings.TrimSpace(r.ExternalID)
		if id != "" && !seen.Add(id) {
			c.logger.Debug("[cleaner] Duplicate product skipped: %s", id)
			continue
		}

		current, ok := c.parsePrice(r.RawPrice)
		if !ok {
			c.logger.Warn("[cleaner] Dropping %q: unparseable price %q", r.Name, r.RawPrice)
			continue
		}

		rec := &models.PriceRecord{
			ID:           id,
			Name:         normaliseText(r.Name),
			Category:     normaliseCategory(r.Category),
			Brand:        normaliseText(r.Brand),
			URL:          strings.TrimSpace(r.URL),
			Currency:     currencyDKK,
			CurrentPrice: current.InexactFloat64(),
			ScrapedAt:    r.ScrapedAt,
		}

		original, hasOriginal := c.parsePrice(r.RawOriginalPrice)
		if hasOriginal {
			rec.OriginalPrice = models.Float(original.InexactFloat64())
		}

		if discount, ok := parseDiscount(r.RawDiscount); ok {
			rec.DiscountPercentage = models.Float(discount.InexactFloat64())
		} else if hasOriginal {
			if derived, ok := deriveDiscount(current, original); ok {
				rec.DiscountPercentage = models.Float(derived.InexactFloat64())
			}
		}

		result = append(result, rec)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d products (dropped %d, %d unique ids)",
		len(raw), len(result), len(raw)-len(result), seen.Size())
	return result
}

// parsePrice reads a shelf price such as "1.299,95 kr.", "299,-" or "1.299".
// The result is rounded to whole øre.
func (c *Cleaner) parsePrice(raw string) (decimal.Decimal, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.TrimSuffix(s, ",-")

	match := amountRegexp.FindString(s)
	if match == "" {
		return decimal.Zero, false
	}
	match = strings.TrimRight(strings.ReplaceAll(match, " ", ""), ".,")

	d, err := decimal.NewFromString(normaliseSeparators(match))
	if err != nil {
		c.logger.Debug("[cleaner] Could not parse price %q: %v", raw, err)
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// normaliseSeparators rewrites "1.299,95" and "1.299" to "1299.95" and
// "1299". A lone dot followed by anything but three digits is a decimal point.
func normaliseSeparators(s string) string {
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	}
	parts := strings.Split(s, ".")
	if len(parts) == 1 {
		return s
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return s
		}
	}
	return strings.Join(parts, "")
}

// parseDiscount reads a discount badge. Shops print it as "-25%", so the
// sign is dropped.
func parseDiscount(raw string) (decimal.Decimal, bool) {
	m := discountRegexp.FindStringSubmatch(strings.TrimSpace(raw))
	if len(m) < 2 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// deriveDiscount computes the percentage off when the shop did not print one.
// Only well-formed pairs qualify; the rest stay without a discount.
func deriveDiscount(current, original decimal.Decimal) (decimal.Decimal, bool) {
	if !original.IsPositive() || !current.IsPositive() || current.GreaterThan(original) {
		return decimal.Zero, false
	}
	return original.Sub(current).Div(original).Mul(hundred).Round(2), true
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func normaliseCategory(s string) string {
	return strings.ToLower(normaliseText(s))
}
