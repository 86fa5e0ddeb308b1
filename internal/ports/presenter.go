package ports

import (
	"context"

	"binanceTracker/internal/domain"
)

// SnapshotPresenter consumes the result of every poll cycle.
type SnapshotPresenter interface {
	// Present delivers a freshly built snapshot. The snapshot must be treated as read-only.
	Present(ctx context.Context, snapshot *domain.MarketSnapshot)
	// PresentFailure delivers a failed cycle. Use Describe(err) for the user-facing reason.
	PresentFailure(ctx context.Context, err error)
}

// Refresher triggers an out-of-schedule poll cycle.
type Refresher interface {
	RequestRefresh()
}
