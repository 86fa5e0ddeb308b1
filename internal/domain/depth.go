package domain

// Side identifies one side of the order book.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Bucket is a half-open notional value range [Low, High) in quote currency.
type Bucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Label string  `json:"label"`
}

// Contains reports whether the notional value falls inside the bucket.
// The lower bound is inclusive, the upper bound exclusive.
func (b Bucket) Contains(notional float64) bool {
	return notional >= b.Low && notional < b.High
}

// DefaultBuckets returns the standard five-tier table covering 100 to 10,000,000 USD.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{Low: 100, High: 1_000, Label: "100-1k"},
		{Low: 1_000, High: 10_000, Label: "1k-10k"},
		{Low: 10_000, High: 100_000, Label: "10k-100k"},
		{Low: 100_000, High: 1_000_000, Label: "100k-1M"},
		{Low: 1_000_000, High: 10_000_000, Label: "1M-10M"},
	}
}

// DefaultBucketColors returns one display colour per default bucket.
func DefaultBucketColors() []string {
	return []string{"#1f77b4", "#2ca02c", "#d62728", "#9467bd", "#8c564b"}
}

// OrderBookLevel is a single price level from one side of the book.
type OrderBookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Notional returns the level value in quote currency.
func (l OrderBookLevel) Notional() float64 {
	return l.Price * l.Quantity
}

// OrderBook is a polled snapshot of both sides of the book, best price first.
type OrderBook struct {
	Bids []OrderBookLevel `json:"bids"`
	Asks []OrderBookLevel `json:"asks"`
}

// IsEmpty reports whether neither side holds any level.
func (ob *OrderBook) IsEmpty() bool {
	return ob == nil || (len(ob.Bids) == 0 && len(ob.Asks) == 0)
}

// SideDepth holds the aggregated notional exposure of one book side.
type SideDepth struct {
	Totals   map[string]float64 `json:"totals"`   // Bucket label -> summed notional
	Excluded float64            `json:"excluded"` // Notional of valid levels outside every bucket
	Rejected int                `json:"rejected"` // Levels dropped for malformed price or quantity
}

// Sum returns the total notional assigned to buckets.
func (s SideDepth) Sum() float64 {
	total := 0.0
	for _, v := range s.Totals {
		total += v
	}
	return total
}

// DepthProfile is the per-side, per-bucket notional exposure of one order book snapshot.
type DepthProfile struct {
	Buckets []Bucket  `json:"buckets"`
	Bids    SideDepth `json:"bids"`
	Asks    SideDepth `json:"asks"`
}

// Side returns the depth for the given side.
func (p DepthProfile) Side(side Side) SideDepth {
	if side == SideAsk {
		return p.Asks
	}
	return p.Bids
}

// Labels returns bucket labels in table order.
func (p DepthProfile) Labels() []string {
	labels := make([]string, len(p.Buckets))
	for i, b := range p.Buckets {
		labels[i] = b.Label
	}
	return labels
}

// Ordered returns the side totals in bucket table order.
func (p DepthProfile) Ordered(side Side) []float64 {
	totals := p.Side(side).Totals
	out := make([]float64, len(p.Buckets))
	for i, b := range p.Buckets {
		out[i] = totals[b.Label]
	}
	return out
}
