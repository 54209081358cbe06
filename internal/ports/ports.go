package ports

import (
	"context"
	"errors"

	"NewsRadar/internal/domain"
)

// ErrRateLimited signals upstream throttling. The orchestrator ends the
// cycle quietly and lets the next scheduled invocation retry.
var ErrRateLimited = errors.New("upstream rate limited")

// ErrMalformedResponse signals that the classification oracle returned
// output that cannot be parsed as a verdict list. Cycle-fatal.
var ErrMalformedResponse = errors.New("malformed oracle response")

// Fetcher pulls raw candidate items from an external source for the
// current window. An empty result is a valid, non-error outcome.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.CandidateItem, error)
}

// Scorer filters and enriches candidates through the classification
// oracle, returning accepted items sorted high-before-medium.
type Scorer interface {
	Score(ctx context.Context, items []domain.CandidateItem) ([]domain.ScoredItem, error)
}

// Store is the day-partitioned state backend. All operations apply to the
// current UTC day unless a day argument says otherwise, and every write is
// individually idempotent.
type Store interface {
	IsKnown(ctx context.Context, id string) (bool, error)
	MarkKnown(ctx context.Context, ids []string) error

	// SaveItem upserts the item record and marks it known. It reports
	// true iff the item has not yet been published today, i.e. it is safe
	// to start publishing now.
	SaveItem(ctx context.Context, item domain.ScoredItem) (bool, error)

	// SaveThreadHandle attaches a publisher-issued handle, last-write-wins.
	SaveThreadHandle(ctx context.Context, id, handle string) error

	// PublishToStream appends the item to the shared stream exactly once
	// per id per day; repeat calls are no-ops.
	PublishToStream(ctx context.Context, item domain.ScoredItem) error

	// ThreadHandles enumerates the non-empty thread handles recorded for
	// the given day partition.
	ThreadHandles(ctx context.Context, day string) ([]string, error)

	// DeleteDay removes every key associated with the day partition and
	// returns how many keys were deleted.
	DeleteDay(ctx context.Context, day string) (int, error)
}

// Publisher renders an accepted item into a forum thread. CreateThread
// returns the durable handle needed to delete the thread later; an
// unconfigured publisher returns an empty handle and no error.
type Publisher interface {
	CreateThread(ctx context.Context, item domain.ScoredItem) (string, error)
	DeleteThread(ctx context.Context, handle string) error
}
