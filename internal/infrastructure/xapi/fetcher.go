package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsRadar/internal/config"
	"NewsRadar/internal/domain"
	"NewsRadar/internal/ports"
)

const (
	defaultSearchURL = "https://api.x.com/2/tweets/search/recent"

	// maxQueryLen is the upstream limit on a rendered search query.
	maxQueryLen = 512

	// trailingFilter is appended to every account-batch query; its length
	// is reserved when partitioning the allow-list into batches.
	trailingFilter = " lang:en -is:retweet"

	joiner = " OR "
)

// Fetcher pulls recent posts from the social search API inside a
// [now-maxAge, now-minAge] window.
type Fetcher struct {
	client     *http.Client
	searchURL  string
	bearer     string
	query      string
	accounts   []string
	maxResults int
	minAge     time.Duration
	maxAge     time.Duration
	logger     *slog.Logger

	now func() time.Time
}

var _ ports.Fetcher = (*Fetcher)(nil)

// NewFetcher wires the social fetch configuration; a nil client gets a
// sane default timeout.
func NewFetcher(cfg config.SocialConfig, client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:     client,
		searchURL:  defaultSearchURL,
		bearer:     cfg.BearerToken,
		query:      cfg.SearchQuery,
		accounts:   cfg.Accounts,
		maxResults: cfg.MaxResults,
		minAge:     time.Duration(cfg.MinAgeMinutes) * time.Minute,
		maxAge:     time.Duration(cfg.MaxAgeMinutes) * time.Minute,
		logger:     logger,
		now:        time.Now,
	}
}

type searchResponse struct {
	Data []rawPost `json:"data"`
}

type rawPost struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
		QuoteCount   int `json:"quote_count"`
	} `json:"public_metrics"`
}

// Fetch returns candidate posts for the current window. An inverted or
// empty window short-circuits to an empty result without any HTTP call.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.CandidateItem, error) {
	now := f.now().UTC()
	start := now.Add(-f.maxAge)
	end := now.Add(-f.minAge)

	if !end.After(start) {
		f.logger.Info("fetch window empty, skipping", "start", start, "end", end)
		return nil, nil
	}

	queries := f.buildQueries()

	byID := make(map[string]struct{})
	var items []domain.CandidateItem
	for _, q := range queries {
		posts, err := f.search(ctx, q, start, end)
		if err != nil {
			return nil, err
		}
		for _, post := range posts {
			if _, ok := byID[post.ID]; ok {
				continue
			}
			byID[post.ID] = struct{}{}
			items = append(items, normalize(post))
		}
	}

	f.logger.Info("fetched posts", "count", len(items), "queries", len(queries))
	return items, nil
}

// buildQueries renders either the free-text keyword query or, when an
// account allow-list is configured, one query per batch of accounts whose
// rendered form stays under the length budget.
func (f *Fetcher) buildQueries() []string {
	if len(f.accounts) == 0 {
		return []string{f.query}
	}

	// "(" + terms + ")" + trailing filter must fit the budget.
	budget := maxQueryLen - len(trailingFilter) - 2

	var queries []string
	var batch []string
	batchLen := 0
	for _, account := range f.accounts {
		term := "from:" + account
		added := len(term)
		if len(batch) > 0 {
			added += len(joiner)
		}
		if len(batch) > 0 && batchLen+added > budget {
			queries = append(queries, renderBatch(batch))
			batch = nil
			batchLen = 0
			added = len(term)
		}
		batch = append(batch, term)
		batchLen += added
	}
	if len(batch) > 0 {
		queries = append(queries, renderBatch(batch))
	}
	return queries
}

func renderBatch(terms []string) string {
	return "(" + strings.Join(terms, joiner) + ")" + trailingFilter
}

func (f *Fetcher) search(ctx context.Context, query string, start, end time.Time) ([]rawPost, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("start_time", start.Format(time.RFC3339))
	params.Set("end_time", end.Format(time.RFC3339))
	params.Set("max_results", strconv.Itoa(f.maxResults))
	params.Set("tweet.fields", "created_at,public_metrics,author_id")
	params.Set("sort_order", "relevancy")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.bearer)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if rateLimited(resp) {
		return nil, fmt.Errorf("search: %w", ports.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %s", resp.Status)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.Data, nil
}

// rateLimited recognizes both a plain 429 and the 403-with-exhausted-quota
// variant some deployments return.
func rateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden &&
		resp.Header.Get("x-rate-limit-remaining") == "0"
}

func normalize(post rawPost) domain.CandidateItem {
	createdAt, _ := time.Parse(time.RFC3339, post.CreatedAt)
	return domain.CandidateItem{
		ID:        post.ID,
		Kind:      domain.KindSocialPost,
		Content:   post.Text,
		URL:       "https://x.com/i/status/" + post.ID,
		CreatedAt: createdAt,
		Likes:     post.PublicMetrics.LikeCount,
		Retweets:  post.PublicMetrics.RetweetCount,
		Quotes:    post.PublicMetrics.QuoteCount,
	}
}
