package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"NewsRadar/internal/config"
	"NewsRadar/internal/domain"
	"NewsRadar/internal/ports"
)

const (
	defaultAPIBase = "https://api.github.com"

	// safetyMargin widens the since-cutoff so scheduler jitter cannot open
	// a coverage gap between consecutive cycles.
	safetyMargin = 5 * time.Minute

	bodyLimit = 2000
)

// Fetcher pulls releases, merged pull requests, and notable issues from a
// set of configured repositories. Each per-repo per-kind fetch is isolated:
// one failing kind is logged and skipped without aborting the others.
type Fetcher struct {
	client        *http.Client
	apiBase       string
	token         string
	repos         []string
	checkInterval time.Duration
	limiter       *rate.Limiter
	logger        *slog.Logger

	now func() time.Time
}

var _ ports.Fetcher = (*Fetcher)(nil)

// NewFetcher wires the repository fetch configuration. Requests are paced
// to stay friendly with the unauthenticated API quota.
func NewFetcher(cfg config.GitHubConfig, client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:        client,
		apiBase:       defaultAPIBase,
		token:         cfg.Token,
		repos:         cfg.Repos,
		checkInterval: time.Duration(cfg.CheckInterval) * time.Minute,
		limiter:       rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
		logger:        logger,
		now:           time.Now,
	}
}

type rawItem struct {
	ID          int64    `json:"id"`
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Name        string   `json:"name"`
	Body        string   `json:"body"`
	HTMLURL     string   `json:"html_url"`
	CreatedAt   string   `json:"created_at"`
	PublishedAt string   `json:"published_at"`
	MergedAt    string   `json:"merged_at"`
	User        *actor   `json:"user"`
	Author      *actor   `json:"author"`
	Labels      []label  `json:"labels"`
	Reactions   *summary `json:"reactions"`
	Comments    int      `json:"comments"`

	// Present on issues that are really pull requests.
	PullRequest json.RawMessage `json:"pull_request"`
}

type actor struct {
	Login string `json:"login"`
}

type label struct {
	Name string `json:"name"`
}

type summary struct {
	TotalCount int `json:"total_count"`
}

// Fetch walks every configured repository and kind since the floating
// cutoff, normalizing survivors into the common candidate shape.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.CandidateItem, error) {
	since := f.now().UTC().Add(-f.checkInterval - safetyMargin)

	kinds := []struct {
		label string
		fn    func(context.Context, string, time.Time) ([]domain.CandidateItem, error)
	}{
		{"releases", f.fetchReleases},
		{"merged PRs", f.fetchMergedPulls},
		{"issues", f.fetchIssues},
	}

	var all []domain.CandidateItem
	for _, repo := range f.repos {
		for _, kind := range kinds {
			items, err := kind.fn(ctx, repo, since)
			if err != nil {
				level := slog.LevelError
				if errors.Is(err, ports.ErrRateLimited) {
					level = slog.LevelWarn
				}
				f.logger.Log(ctx, level, "fetch kind failed, skipping",
					"repo", repo, "kind", kind.label, "error", err)
				continue
			}
			all = append(all, items...)
			f.logger.Info("fetched kind", "repo", repo, "kind", kind.label, "count", len(items))
		}
	}

	f.logger.Info("total repository items fetched", "count", len(all))
	return all, nil
}

func (f *Fetcher) fetchReleases(ctx context.Context, repo string, since time.Time) ([]domain.CandidateItem, error) {
	var releases []rawItem
	if err := f.get(ctx, fmt.Sprintf("/repos/%s/releases", repo), url.Values{"per_page": {"10"}}, &releases); err != nil {
		return nil, err
	}

	var items []domain.CandidateItem
	for _, release := range releases {
		published, err := time.Parse(time.RFC3339, release.PublishedAt)
		if err != nil {
			continue
		}
		if published.After(since) {
			items = append(items, normalize(repo, domain.KindRepoRelease, release))
		}
	}
	return items, nil
}

func (f *Fetcher) fetchMergedPulls(ctx context.Context, repo string, since time.Time) ([]domain.CandidateItem, error) {
	var pulls []rawItem
	params := url.Values{
		"state":     {"closed"},
		"sort":      {"updated"},
		"direction": {"desc"},
		"per_page":  {"30"},
	}
	if err := f.get(ctx, fmt.Sprintf("/repos/%s/pulls", repo), params, &pulls); err != nil {
		return nil, err
	}

	var items []domain.CandidateItem
	for _, pull := range pulls {
		merged, err := time.Parse(time.RFC3339, pull.MergedAt)
		if err != nil {
			// Closed but never merged.
			continue
		}
		if merged.After(since) {
			items = append(items, normalize(repo, domain.KindRepoPull, pull))
		}
	}
	return items, nil
}

func (f *Fetcher) fetchIssues(ctx context.Context, repo string, since time.Time) ([]domain.CandidateItem, error) {
	var issues []rawItem
	params := url.Values{
		"sort":      {"updated"},
		"direction": {"desc"},
		"since":     {since.Format(time.RFC3339)},
		"per_page":  {"30"},
	}
	if err := f.get(ctx, fmt.Sprintf("/repos/%s/issues", repo), params, &issues); err != nil {
		return nil, err
	}

	var items []domain.CandidateItem
	for _, issue := range issues {
		// The issues endpoint also returns pull requests.
		if issue.PullRequest != nil {
			continue
		}
		items = append(items, normalize(repo, domain.KindRepoIssue, issue))
	}
	return items, nil
}

func (f *Fetcher) get(ctx context.Context, path string, params url.Values, v any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiBase+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s returned %s: %w", path, resp.Status, ports.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s returned %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// normalize flattens a raw API item into the common candidate shape. The id
// is synthesized so releases, PRs, and issues from different repos can
// never collide.
func normalize(repo string, kind domain.SourceKind, raw rawItem) domain.CandidateItem {
	title := raw.Title
	if title == "" {
		title = raw.Name
	}

	body := raw.Body
	if len(body) > bodyLimit {
		body = body[:bodyLimit]
	}

	author := ""
	if raw.Author != nil {
		author = raw.Author.Login
	} else if raw.User != nil {
		author = raw.User.Login
	}

	labels := make([]string, 0, len(raw.Labels))
	for _, l := range raw.Labels {
		labels = append(labels, l.Name)
	}

	reactions := 0
	if raw.Reactions != nil {
		reactions = raw.Reactions.TotalCount
	}

	createdAt, _ := time.Parse(time.RFC3339, raw.CreatedAt)

	return domain.CandidateItem{
		ID:        fmt.Sprintf("gh:%s:%s:%d", repo, shortKind(kind), raw.ID),
		Kind:      kind,
		Content:   fmt.Sprintf("[%s] %s\n%s", shortKind(kind), title, body),
		URL:       raw.HTMLURL,
		CreatedAt: createdAt,
		Repo:      repo,
		Author:    author,
		Labels:    labels,
		Reactions: reactions,
		Comments:  raw.Comments,
	}
}

func shortKind(kind domain.SourceKind) string {
	switch kind {
	case domain.KindRepoRelease:
		return "release"
	case domain.KindRepoPull:
		return "pr"
	case domain.KindRepoIssue:
		return "issue"
	}
	return strings.TrimPrefix(string(kind), "repo_")
}
