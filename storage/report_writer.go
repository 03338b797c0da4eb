package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"price-monitor/models"
)

// JSONReportWriter writes analysis reports as indented JSON.
type JSONReportWriter struct {
	path string
}

func NewJSONReportWriter(path string) *JSONReportWriter {
	return &JSONReportWriter{path: path}
}

// WriteReport replaces the file at the writer's path with report.
func (w *JSONReportWriter) WriteReport(report *models.Report) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("report: create output dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("report: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("report: rename %q: %w", tmp, err)
	}
	return nil
}
