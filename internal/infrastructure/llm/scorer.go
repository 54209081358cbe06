package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tmc/langchaingo/llms"

	"NewsRadar/internal/domain"
	"NewsRadar/internal/ports"
)

// contentLimit caps how much of each item's text goes to the oracle.
const contentLimit = 500

// Scorer is a transport + enrichment + reorder layer around the external
// classification oracle. It performs no judgment of its own; the rubric
// does all the filtering.
type Scorer struct {
	model     llms.Model
	modelName string
	rubric    string
	logger    *slog.Logger
}

var _ ports.Scorer = (*Scorer)(nil)

// NewScorer binds an oracle model and a fixed system rubric. The same
// implementation serves both pipelines; only the rubric differs.
func NewScorer(model llms.Model, modelName, rubric string, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		model:     model,
		modelName: modelName,
		rubric:    rubric,
		logger:    logger,
	}
}

// verdict is one element of the oracle's JSON array response.
type verdict struct {
	Index    int      `json:"index"`
	Pass     bool     `json:"pass"`
	Priority string   `json:"priority"`
	Tags     []string `json:"tags"`
	Title    string   `json:"title"`
	Reason   string   `json:"reason"`
	TLDR     string   `json:"tldr"`
	Tips     string   `json:"tips"`
}

// Score sends the candidates to the oracle and returns the accepted items
// sorted high-before-medium, preserving the oracle's relative order among
// equal priorities. Empty input short-circuits without an oracle call.
func (s *Scorer) Score(ctx context.Context, items []domain.CandidateItem) ([]domain.ScoredItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, s.rubric),
		llms.TextParts(llms.ChatMessageTypeHuman, renderItems(items)),
	}

	opts := []llms.CallOption{llms.WithJSONMode()}
	if s.modelName != "" {
		opts = append(opts, llms.WithModel(s.modelName))
	}

	resp, err := s.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("oracle call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("oracle returned no choices: %w", ports.ErrMalformedResponse)
	}

	verdicts, err := parseVerdicts(resp.Choices[0].Content)
	if err != nil {
		return nil, err
	}

	scored := s.enrich(items, verdicts)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Priority.Rank() < scored[j].Priority.Rank()
	})

	priorities := make([]string, len(scored))
	for i, item := range scored {
		priorities[i] = string(item.Priority)
	}
	s.logger.Info("scored items", "submitted", len(items), "passed", len(scored), "priorities", priorities)

	return scored, nil
}

// renderItems serializes candidates as an indexed, newline-delimited list.
func renderItems(items []domain.CandidateItem) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "[%d] (id:%s) %s\n", i, item.ID, truncate(item.Content, contentLimit))
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// parseVerdicts decodes the oracle output, running it through jsonrepair
// when a straight unmarshal fails. Output that survives neither path is a
// malformed response, which is cycle-fatal for the caller.
func parseVerdicts(raw string) ([]verdict, error) {
	cleaned := stripFences(raw)

	var verdicts []verdict
	if err := json.Unmarshal([]byte(cleaned), &verdicts); err == nil {
		return verdicts, nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return nil, fmt.Errorf("repair oracle output: %v: %w", err, ports.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(repaired), &verdicts); err != nil {
		return nil, fmt.Errorf("decode oracle output: %v: %w", err, ports.ErrMalformedResponse)
	}
	return verdicts, nil
}

// stripFences removes a markdown code fence wrapper if the oracle added one.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// enrich joins verdicts back to their submitted items. Verdicts with an
// index outside the submitted range, a duplicate index, pass=false, or an
// unknown priority are discarded so the oracle can never invent or
// duplicate items.
func (s *Scorer) enrich(items []domain.CandidateItem, verdicts []verdict) []domain.ScoredItem {
	used := make(map[int]bool, len(verdicts))
	var scored []domain.ScoredItem

	for _, v := range verdicts {
		if v.Index < 0 || v.Index >= len(items) {
			s.logger.Warn("discarding verdict with out-of-range index", "index", v.Index)
			continue
		}
		if used[v.Index] {
			s.logger.Warn("discarding duplicate verdict", "index", v.Index)
			continue
		}
		if !v.Pass {
			continue
		}
		priority := domain.Priority(v.Priority)
		if !priority.Valid() {
			s.logger.Warn("discarding verdict with unknown priority", "index", v.Index, "priority", v.Priority)
			continue
		}
		used[v.Index] = true

		tags := v.Tags
		if tags == nil {
			tags = []string{}
		}

		scored = append(scored, domain.ScoredItem{
			CandidateItem: items[v.Index],
			Priority:      priority,
			Tags:          tags,
			ShortTitle:    truncate(v.Title, 100),
			Reason:        v.Reason,
			Summary:       v.TLDR,
			Tips:          v.Tips,
		})
	}
	return scored
}
