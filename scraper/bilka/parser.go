package bilka

import (
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"price-monitor/models"
)

// Selectors locate the fields of a product tile. Each field accepts a CSS
// selector group; the first non-empty match wins.
type Selectors struct {
	Container     string
	Name          string
	Brand         string
	Price         string
	OriginalPrice string
	Discount      string
	Link          string
}

// DefaultSelectors matches the category listing markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:     ".product-card, .product-grid-item",
		Name:          ".product-card__name, .product-title",
		Brand:         ".product-card__brand, .product-brand",
		Price:         ".product-card__price, .price-sale",
		OriginalPrice: ".product-card__before-price, .price-regular",
		Discount:      ".product-card__discount, .discount-percentage",
		Link:          "a[href]",
	}
}

var idAttributes = []string{"data-product-id", "data-id", "data-sku"}

// ParseProducts extracts raw product tiles from a rendered category page.
// Prices are kept as printed; the cleaner parses them.
func ParseProducts(r io.Reader, sel Selectors, category, baseURL string, scrapedAt time.Time) ([]*models.RawProduct, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(baseURL)

	var products []*models.RawProduct
	doc.Find(sel.Container).Each(func(_ int, tile *goquery.Selection) {
		name := text(tile, sel.Name)
		if name == "" {
			return
		}

		price := text(tile, sel.Price)
		original := text(tile, sel.OriginalPrice)
		if price == "" {
			// A tile without a sale price shows only the regular price.
			price, original = original, ""
		}

		link := absolute(base, attr(tile.Find(sel.Link).First(), "href"))

		products = append(products, &models.RawProduct{
			ExternalID:       externalID(tile, link, name),
			Name:             name,
			Category:         category,
			Brand:            text(tile, sel.Brand),
			RawPrice:         price,
			RawOriginalPrice: original,
			RawDiscount:      text(tile, sel.Discount),
			URL:              link,
			ScrapedAt:        scrapedAt,
			Source:           source,
		})
	})
	return products, nil
}

func text(s *goquery.Selection, selector string) string {
	return strings.Join(strings.Fields(s.Find(selector).First().Text()), " ")
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

// externalID prefers an explicit data attribute, then the last URL path
// segment, then a stable hash of the name.
func externalID(tile *goquery.Selection, link, name string) string {
	for _, a := range idAttributes {
		if id := attr(tile, a); id != "" {
			return id
		}
	}
	if u, err := url.Parse(link); err == nil && u.Path != "" && u.Path != "/" {
		if seg := path.Base(strings.TrimSuffix(u.Path, "/")); seg != "." && seg != "/" {
			return seg
		}
	}
	return "generated_" + uuid.NewMD5(uuid.NameSpaceURL, []byte(name)).String()[:8]
}

func absolute(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
