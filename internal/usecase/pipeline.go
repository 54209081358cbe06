package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"NewsRadar/internal/domain"
	"NewsRadar/internal/ports"
)

// PipelineDeps wires all driven adapters into one orchestration pipeline.
// The social and repository pipelines are the same state machine; they
// differ only in the injected fetcher/scorer/store and in MinEngagement
// (zero disables the gate, since every engagement value passes at zero).
type PipelineDeps struct {
	Name          string
	Fetcher       ports.Fetcher
	Scorer        ports.Scorer
	Store         ports.Store
	Publisher     ports.Publisher
	TopN          int
	MinEngagement int
	Logger        *slog.Logger
}

// Pipeline implements the fetch -> dedup -> gate -> score -> select ->
// store+publish cycle.
type Pipeline struct {
	name          string
	fetcher       ports.Fetcher
	scorer        ports.Scorer
	store         ports.Store
	publisher     ports.Publisher
	topN          int
	minEngagement int
	logger        *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		name:          deps.Name,
		fetcher:       deps.Fetcher,
		scorer:        deps.Scorer,
		store:         deps.Store,
		publisher:     deps.Publisher,
		topN:          deps.TopN,
		minEngagement: deps.MinEngagement,
		logger:        logger,
	}
}

// Run executes one cycle. Fetch and score failures end the cycle cleanly
// (the scheduler's next invocation is the retry mechanism); only store
// failures, which undermine dedup correctness, surface as errors.
func (p *Pipeline) Run(ctx context.Context) error {
	logger := p.logger.With("pipeline", p.name, "cycle", uuid.NewString())

	// 1. Fetch.
	raw, err := p.fetcher.Fetch(ctx)
	switch {
	case errors.Is(err, ports.ErrRateLimited):
		logger.Warn("rate limited, will retry next cycle")
		return nil
	case err != nil:
		logger.Error("fetch failed", "error", err)
		return nil
	case len(raw) == 0:
		logger.Info("nothing fetched, skipping cycle")
		return nil
	}

	// 2. Dedup. Every fetched id is marked known immediately so an item is
	// never reconsidered, even if scoring fails later.
	fresh, err := p.dedup(ctx, raw)
	if err != nil {
		return err
	}
	if len(fresh) == 0 {
		logger.Info("all fetched items already known", "fetched", len(raw))
		return nil
	}
	logger.Info("dedup complete", "fetched", len(raw), "new", len(fresh))

	// 3. Engagement gate, before the oracle to bound call volume.
	engaged := p.gate(fresh)
	if len(engaged) == 0 {
		logger.Info("all new items below engagement threshold",
			"new", len(fresh), "min", p.minEngagement)
		return nil
	}

	// 4. Score.
	scored, err := p.scorer.Score(ctx, engaged)
	if err != nil {
		logger.Error("scoring failed, skipping cycle", "error", err)
		return nil
	}
	if len(scored) == 0 {
		logger.Info("no items passed the relevance filter")
		return nil
	}

	// 5. Select top N of the priority-sorted list.
	top := scored
	if p.topN > 0 && len(top) > p.topN {
		top = top[:p.topN]
	}

	// 6. Store and publish, each item isolated.
	published := 0
	for _, item := range top {
		if p.publishOne(ctx, logger, item) {
			published++
		}
	}

	logger.Info("cycle complete", "published", published)
	return nil
}

func (p *Pipeline) dedup(ctx context.Context, raw []domain.CandidateItem) ([]domain.CandidateItem, error) {
	var fresh []domain.CandidateItem
	ids := make([]string, len(raw))
	for i, item := range raw {
		ids[i] = item.ID
		known, err := p.store.IsKnown(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("dedup %s: %w", item.ID, err)
		}
		if !known {
			fresh = append(fresh, item)
		}
	}
	if err := p.store.MarkKnown(ctx, ids); err != nil {
		return nil, fmt.Errorf("mark known: %w", err)
	}
	return fresh, nil
}

func (p *Pipeline) gate(items []domain.CandidateItem) []domain.CandidateItem {
	if p.minEngagement <= 0 {
		return items
	}
	var engaged []domain.CandidateItem
	for _, item := range items {
		if item.Engagement() >= p.minEngagement {
			engaged = append(engaged, item)
		}
	}
	return engaged
}

// publishOne runs the store+publish sequence for a single item. A failure
// here never propagates past this item.
func (p *Pipeline) publishOne(ctx context.Context, logger *slog.Logger, item domain.ScoredItem) bool {
	safe, err := p.store.SaveItem(ctx, item)
	if err != nil {
		logger.Error("save failed", "id", item.ID, "error", err)
		return false
	}
	if !safe {
		logger.Info("skipped, already published", "id", item.ID)
		return false
	}

	handle, err := p.publisher.CreateThread(ctx, item)
	if err != nil {
		logger.Error("publish failed, skipping item", "id", item.ID, "error", err)
		return false
	}
	if handle != "" {
		if err := p.store.SaveThreadHandle(ctx, item.ID, handle); err != nil {
			logger.Error("save thread handle failed", "id", item.ID, "error", err)
			return false
		}
	}

	if err := p.store.PublishToStream(ctx, item); err != nil {
		logger.Error("stream publish failed", "id", item.ID, "error", err)
		return false
	}

	logger.Info("published",
		"id", item.ID,
		"title", item.ShortTitle,
		"url", item.URL,
		"priority", item.Priority,
		"summary", item.Summary,
	)
	return true
}
