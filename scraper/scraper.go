// Package scraper defines the product sources the pipeline can pull from.
package scraper

import (
	"context"

	"price-monitor/models"
)

// Scraper collects raw product tiles from one source.
type Scraper interface {
	// Name identifies the source in logs and scrape sessions.
	Name() string
	Scrape(ctx context.Context) ([]*models.RawProduct, error)
}
