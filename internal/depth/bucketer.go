// Package depth aggregates order book levels into fixed notional value bands.
package depth

import (
	"fmt"
	"math"

	"binanceTracker/internal/domain"
	"binanceTracker/internal/ports"
)

// Bucketer classifies order book levels into a fixed, validated bucket table.
// It holds no state besides its table and is safe to reuse across poll cycles.
type Bucketer struct {
	buckets []domain.Bucket
}

// ValidateTable checks that the buckets are usable for classification: a
// non-empty table of finite, non-empty, uniquely labelled ranges, sorted
// ascending by Low and not overlapping. Gaps between buckets are allowed.
func ValidateTable(buckets []domain.Bucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("%w: table is empty", ports.ErrInvalidBucketTable)
	}

	seen := make(map[string]struct{}, len(buckets))
	for i, b := range buckets {
		if math.IsNaN(b.Low) || math.IsNaN(b.High) || math.IsInf(b.Low, 0) || math.IsInf(b.High, 0) {
			return fmt.Errorf("%w: bucket %d (%q) has non-finite bounds", ports.ErrInvalidBucketTable, i, b.Label)
		}
		if b.Low >= b.High {
			return fmt.Errorf("%w: bucket %d (%q) low %v must be below high %v", ports.ErrInvalidBucketTable, i, b.Label, b.Low, b.High)
		}
		if b.Label == "" {
			return fmt.Errorf("%w: bucket %d has an empty label", ports.ErrInvalidBucketTable, i)
		}
		if _, dup := seen[b.Label]; dup {
			return fmt.Errorf("%w: duplicate label %q", ports.ErrInvalidBucketTable, b.Label)
		}
		seen[b.Label] = struct{}{}

		if i == 0 {
			continue
		}
		prev := buckets[i-1]
		if b.Low < prev.Low {
			return fmt.Errorf("%w: bucket %d (%q) is not sorted by low bound", ports.ErrInvalidBucketTable, i, b.Label)
		}
		if b.Low < prev.High {
			return fmt.Errorf("%w: bucket %d (%q) overlaps bucket %d (%q)", ports.ErrInvalidBucketTable, i, b.Label, i-1, prev.Label)
		}
	}
	return nil
}

// NewBucketer validates the table and returns a Bucketer using a private copy of it.
func NewBucketer(buckets []domain.Bucket) (*Bucketer, error) {
	if err := ValidateTable(buckets); err != nil {
		return nil, err
	}
	table := make([]domain.Bucket, len(buckets))
	copy(table, buckets)
	return &Bucketer{buckets: table}, nil
}

// Buckets returns a copy of the bucket table.
func (b *Bucketer) Buckets() []domain.Bucket {
	out := make([]domain.Bucket, len(b.buckets))
	copy(out, b.buckets)
	return out
}

// Classify returns the index of the first bucket containing the notional value.
// The table is small, so a linear scan is used.
func (b *Bucketer) Classify(notional float64) (int, bool) {
	for i, bucket := range b.buckets {
		if bucket.Contains(notional) {
			return i, true
		}
	}
	return -1, false
}

// Profile aggregates both sides of the book into a DepthProfile.
// A nil book yields a profile with every bucket at zero.
func (b *Bucketer) Profile(book *domain.OrderBook) domain.DepthProfile {
	var bids, asks []domain.OrderBookLevel
	if book != nil {
		bids, asks = book.Bids, book.Asks
	}
	return domain.DepthProfile{
		Buckets: b.Buckets(),
		Bids:    b.Aggregate(bids),
		Asks:    b.Aggregate(asks),
	}
}

// Aggregate sums the notional value of one side's levels per bucket.
// Each level lands whole in at most one bucket. Levels with a non-finite or
// non-positive price or quantity are counted as rejected and skipped; valid
// levels outside every bucket add to Excluded.
func (b *Bucketer) Aggregate(levels []domain.OrderBookLevel) domain.SideDepth {
	side := domain.SideDepth{Totals: make(map[string]float64, len(b.buckets))}
	for _, bucket := range b.buckets {
		side.Totals[bucket.Label] = 0
	}

	for _, level := range levels {
		if !ValidLevel(level) {
			side.Rejected++
			continue
		}
		notional := level.Notional()
		idx, ok := b.Classify(notional)
		if !ok {
			side.Excluded += notional
			continue
		}
		side.Totals[b.buckets[idx].Label] += notional
	}
	return side
}

// ValidLevel reports whether a level has a finite, strictly positive price
// and quantity with a finite notional value.
func ValidLevel(level domain.OrderBookLevel) bool {
	if !finitePositive(level.Price) || !finitePositive(level.Quantity) {
		return false
	}
	return !math.IsInf(level.Notional(), 0)
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
