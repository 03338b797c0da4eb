package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-monitor/analysis"
	"price-monitor/config"
	"price-monitor/models"
	"price-monitor/utils"
)

func TestRunOnceWithoutDatabase(t *testing.T) {
	dir := t.TempDir()
	a := &app{
		cfg: &config.Config{
			UseMock:        true,
			MockSeed:       3,
			MaxProducts:    10,
			MaxConcurrency: 2,
			CSVOutputPath:  filepath.Join(dir, "raw.csv"),
			Analysis:       analysis.DefaultConfig(),
		},
		logger: utils.Discard(),
	}
	output := filepath.Join(dir, "report.json")

	require.NoError(t, a.runOnce(context.Background(), true, output, true))

	_, err := os.Stat(a.cfg.CSVOutputPath)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var report models.Report
	require.NoError(t, json.Unmarshal(data, &report))

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4*10+5, report.Summary.TotalRecords)

	var ids []string
	for _, f := range report.Findings {
		ids = append(ids, f.ProductID)
	}
	assert.Contains(t, ids, "ANOMALY_NEGATIVE")
}
