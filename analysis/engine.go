// Package analysis turns a batch of price snapshots into a ranked list of
// suspicious or erroneous listings.
//
// A run is a pure function of its inputs: records are validated into a Batch,
// category baselines are computed fresh, every detector scans every record
// independently, findings are deduplicated per product and ranked, and a
// Report is built. Nothing is cached between runs, so separate batches may be
// analyzed concurrently with separate or shared Engines.
package analysis

import "price-monitor/models"

// Engine runs the detector set over a batch.
type Engine struct {
	cfg       Config
	detectors []Detector
}

// NewEngine builds an Engine with the default detector set.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, detectors: DefaultDetectors(cfg)}, nil
}

// NewEngineWithDetectors builds an Engine with a caller-chosen detector set.
func NewEngineWithDetectors(cfg Config, detectors ...Detector) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, detectors: detectors}, nil
}

// Result carries everything a run produced.
type Result struct {
	Batch     *Batch
	Baselines Baselines
	Raw       []models.Finding
	Ranked    []models.Finding
	Report    *models.Report
}

// Analyze runs a full pass over records without price history.
func (e *Engine) Analyze(records []*models.PriceRecord) *Result {
	return e.AnalyzeWithHistory(records, nil)
}

// AnalyzeWithHistory runs a full pass, letting history-aware detectors compare
// each record with previous, keyed by product id.
func (e *Engine) AnalyzeWithHistory(records []*models.PriceRecord, previous map[string]*models.PriceRecord) *Result {
	batch := NewBatch(records)
	baselines := ComputeBaselines(batch.Records, e.cfg.MinCategorySamples)
	bc := &BatchContext{Baselines: baselines, Previous: previous}

	raw := e.Detect(batch, bc)
	ranked := Aggregate(raw)

	return &Result{
		Batch:     batch,
		Baselines: baselines,
		Raw:       raw,
		Ranked:    ranked,
		Report:    BuildReport(batch, baselines, raw, ranked, e.cfg.Report),
	}
}

// Detect runs every detector over every record in batch order. Findings are
// emitted record by record, detectors in their configured order.
func (e *Engine) Detect(batch *Batch, bc *BatchContext) []models.Finding {
	var out []models.Finding
	for _, r := range batch.Records {
		for _, d := range e.detectors {
			out = append(out, d.Detect(r, bc)...)
		}
	}
	return out
}
