package domain

import (
	"fmt"
	"time"
)

// SourceKind classifies where a candidate item came from.
type SourceKind string

const (
	KindSocialPost  SourceKind = "social_post"
	KindRepoRelease SourceKind = "repo_release"
	KindRepoPull    SourceKind = "repo_pull_request"
	KindRepoIssue   SourceKind = "repo_issue"
)

// CandidateItem is a raw unit fetched from a source. Fetchers create these
// once per cycle and never mutate them afterwards.
type CandidateItem struct {
	ID        string
	Kind      SourceKind
	Content   string
	URL       string
	CreatedAt time.Time

	// Social engagement counters, consulted only by the engagement gate.
	Likes    int
	Retweets int
	Quotes   int

	// Repository metadata, passed through as scorer context.
	Repo      string
	Author    string
	Labels    []string
	Reactions int
	Comments  int
}

// NewCandidateItem validates the one field everything downstream keys on.
func NewCandidateItem(id string, kind SourceKind) (CandidateItem, error) {
	if id == "" {
		return CandidateItem{}, fmt.Errorf("candidate item requires a non-empty id")
	}
	return CandidateItem{ID: id, Kind: kind}, nil
}

// Engagement sums like/retweet/quote counters for the social gate.
func (c CandidateItem) Engagement() int {
	return c.Likes + c.Retweets + c.Quotes
}

// Priority ranks accepted items. Low or failing items are dropped by the
// scorer, never represented here.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Rank returns a sortable weight, high before medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	}
	return 2
}

// Valid reports whether the priority is one the pipeline accepts.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium
}

// ScoredItem is a CandidateItem enriched by the relevance scorer. Optional
// fields default to their zero values rather than being absent.
type ScoredItem struct {
	CandidateItem

	Priority   Priority
	Tags       []string
	ShortTitle string
	Reason     string
	Summary    string
	Tips       string
}

// DayPartition formats a timestamp as the UTC calendar-day string that
// scopes all dedup and publish state.
func DayPartition(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// StreamEntry is the record appended to the shared publication stream.
type StreamEntry struct {
	ItemID      string
	URL         string
	ShortTitle  string
	Source      string
	PublishedAt time.Time
}
