package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"binanceTracker/internal/domain"
	"binanceTracker/internal/ports"
)

// Presenter prints each snapshot as a plain text block. It is used when the
// terminal dashboard is disabled, e.g. when output is redirected to a file.
type Presenter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPresenter creates a presenter writing to out.
func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out}
}

// Present writes the snapshot.
func (p *Presenter) Present(_ context.Context, s *domain.MarketSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, Format(s))
}

// PresentFailure writes a one-line failure notice.
func (p *Presenter) PresentFailure(_ context.Context, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "refresh failed: %s\n", ports.Describe(err))
}

// Format renders a snapshot as text.
func Format(s *domain.MarketSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s (%s) @ %s ===\n", s.Symbol, s.Provider, s.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Price:      $%.2f\n", s.Ticker.LastPrice)
	fmt.Fprintf(&b, "24h Volume: $%.2fB\n", s.Ticker.QuoteVolume24h/1e9)

	if !s.HasDepth {
		b.WriteString("Depth:      no order book data\n")
	} else {
		b.WriteString("Depth ($M)       bids        asks\n")
		bids := s.Depth.Ordered(domain.SideBid)
		asks := s.Depth.Ordered(domain.SideAsk)
		for i, label := range s.Depth.Labels() {
			fmt.Fprintf(&b, "  %-10s %10.3f  %10.3f\n", label, bids[i]/1e6, asks[i]/1e6)
		}
		if s.Depth.Bids.Excluded > 0 || s.Depth.Asks.Excluded > 0 {
			fmt.Fprintf(&b, "  %-10s %10.3f  %10.3f\n", "other", s.Depth.Bids.Excluded/1e6, s.Depth.Asks.Excluded/1e6)
		}
	}

	if !s.HasHistory {
		b.WriteString("History:    no price history available\n")
	} else {
		first, last := s.Candles[0], s.Candles[len(s.Candles)-1]
		fmt.Fprintf(&b, "History:    %d candles, %s to %s, close $%.2f -> $%.2f\n",
			len(s.Candles), first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"), first.Close, last.Close)
	}
	return b.String()
}
