package storage

import (
	"context"

	"price-monitor/models"
)

// SnapshotStore persists cleaned price snapshots and serves them back for
// analysis.
type SnapshotStore interface {
	// SaveSnapshot stores records as one scrape session and returns its id.
	SaveSnapshot(ctx context.Context, source string, records []*models.PriceRecord) (string, error)
	// FetchLatest returns every product observed in the most recent session.
	FetchLatest(ctx context.Context) ([]*models.PriceRecord, error)
	// FetchPrevious returns, per product id, the observation preceding the
	// most recent session.
	FetchPrevious(ctx context.Context) (map[string]*models.PriceRecord, error)
	Close() error
}

// RawProductWriter is the interface for persisting unprocessed scraped data.
type RawProductWriter interface {
	WriteRaw(products []*models.RawProduct) error
	Close() error
}

// ReportWriter persists a finished analysis report.
type ReportWriter interface {
	WriteReport(report *models.Report) error
}
