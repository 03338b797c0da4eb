package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"price-monitor/models"
)

var rawHeader = []string{
	"external_id", "name", "category", "brand", "raw_price", "raw_original_price",
	"raw_discount", "url", "source", "scraped_at",
}

// CSVWriter writes raw (uncleaned) products to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(rawHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends raw products to the CSV file.
func (c *CSVWriter) WriteRaw(products []*models.RawProduct) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range products {
		if p == nil {
			continue
		}
		row := []string{
			p.ExternalID,
			p.Name,
			p.Category,
			p.Brand,
			p.RawPrice,
			p.RawOriginalPrice,
			p.RawDiscount,
			p.URL,
			p.Source,
			p.ScrapedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
