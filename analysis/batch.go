package analysis

import (
	"errors"
	"math"
	"strings"

	"price-monitor/models"
)

var (
	ErrNilRecord      = errors.New("nil record")
	ErrMissingID      = errors.New("missing id")
	ErrMissingName    = errors.New("missing name")
	ErrDuplicateID    = errors.New("duplicate id")
	ErrNonFinitePrice = errors.New("non-finite price or discount")
)

// Rejection records why an input record was excluded from analysis.
type Rejection struct {
	Index int
	ID    string
	Err   error
}

// Batch is a validated, read-only view over the caller's records.
// Records are shared with the caller and are never modified.
type Batch struct {
	Records  []*models.PriceRecord
	Rejected []Rejection
}

// NewBatch validates records once so detectors can assume well-formed input.
// Records that cannot be reported on are rejected, not dropped silently.
func NewBatch(records []*models.PriceRecord) *Batch {
	b := &Batch{Records: make([]*models.PriceRecord, 0, len(records))}
	seen := make(map[string]struct{}, len(records))

	for i, r := range records {
		if err := checkRecord(r); err != nil {
			id := ""
			if r != nil {
				id = r.ID
			}
			b.Rejected = append(b.Rejected, Rejection{Index: i, ID: id, Err: err})
			continue
		}
		if _, dup := seen[r.ID]; dup {
			b.Rejected = append(b.Rejected, Rejection{Index: i, ID: r.ID, Err: ErrDuplicateID})
			continue
		}
		seen[r.ID] = struct{}{}
		b.Records = append(b.Records, r)
	}
	return b
}

func checkRecord(r *models.PriceRecord) error {
	switch {
	case r == nil:
		return ErrNilRecord
	case strings.TrimSpace(r.ID) == "":
		return ErrMissingID
	case strings.TrimSpace(r.Name) == "":
		return ErrMissingName
	case !finite(r.CurrentPrice):
		return ErrNonFinitePrice
	case r.OriginalPrice != nil && !finite(*r.OriginalPrice):
		return ErrNonFinitePrice
	case r.DiscountPercentage != nil && !finite(*r.DiscountPercentage):
		return ErrNonFinitePrice
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// RejectedRecords converts rejections into their report form.
func (b *Batch) RejectedRecords() []models.RejectedRecord {
	if len(b.Rejected) == 0 {
		return nil
	}
	out := make([]models.RejectedRecord, len(b.Rejected))
	for i, r := range b.Rejected {
		out[i] = models.RejectedRecord{Index: r.Index, ID: r.ID, Reason: r.Err.Error()}
	}
	return out
}
