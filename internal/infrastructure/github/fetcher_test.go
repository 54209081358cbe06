package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsRadar/internal/config"
	"NewsRadar/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2026, time.August, 28, 15, 0, 0, 0, time.UTC)
}

func newTestFetcher(t *testing.T, handler http.Handler, repos ...string) *Fetcher {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	if len(repos) == 0 {
		repos = []string{"acme/widget"}
	}
	f := NewFetcher(config.GitHubConfig{
		Repos:         repos,
		CheckInterval: 30,
	}, server.Client(), nil)
	f.apiBase = server.URL
	f.now = fixedNow
	return f
}

func TestFetchNormalizesAllKinds(t *testing.T) {
	t.Parallel()

	handler := http.NewServeMux()
	handler.HandleFunc("/repos/acme/widget/releases", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "10", r.URL.Query().Get("per_page"))
		fmt.Fprint(w, `[
			{"id":11,"name":"v1.2.0","body":"notes","html_url":"https://gh/acme/widget/r/11",
			 "published_at":"2026-08-28T14:45:00Z","author":{"login":"rel-bot"}},
			{"id":12,"name":"v1.1.0","published_at":"2026-08-28T10:00:00Z"}
		]`)
	})
	handler.HandleFunc("/repos/acme/widget/pulls", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "closed", r.URL.Query().Get("state"))
		fmt.Fprint(w, `[
			{"id":21,"number":7,"title":"Add flux capacitor","body":"big","html_url":"https://gh/acme/widget/p/7",
			 "merged_at":"2026-08-28T14:50:00Z","user":{"login":"dev"}},
			{"id":22,"number":8,"title":"Closed unmerged","merged_at":null},
			{"id":23,"number":9,"title":"Old merge","merged_at":"2026-08-28T10:00:00Z"}
		]`)
	})
	handler.HandleFunc("/repos/acme/widget/issues", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.URL.Query().Get("since"))
		fmt.Fprint(w, `[
			{"id":31,"number":40,"title":"Crash on start","body":"trace","html_url":"https://gh/acme/widget/i/40",
			 "created_at":"2026-08-28T14:40:00Z","user":{"login":"reporter"},
			 "labels":[{"name":"bug"}],"reactions":{"total_count":5},"comments":2},
			{"id":32,"number":41,"title":"Actually a PR","pull_request":{"url":"x"}}
		]`)
	})

	f := newTestFetcher(t, handler)
	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	byID := map[string]domain.CandidateItem{}
	for _, item := range items {
		byID[item.ID] = item
	}

	release := byID["gh:acme/widget:release:11"]
	require.Equal(t, domain.KindRepoRelease, release.Kind)
	require.Equal(t, "rel-bot", release.Author)
	require.True(t, strings.HasPrefix(release.Content, "[release] v1.2.0"))

	pull := byID["gh:acme/widget:pr:21"]
	require.Equal(t, domain.KindRepoPull, pull.Kind)

	issue := byID["gh:acme/widget:issue:31"]
	require.Equal(t, []string{"bug"}, issue.Labels)
	require.Equal(t, 5, issue.Reactions)
	require.Equal(t, 2, issue.Comments)
}

func TestFetchIssuesExcludesPullRequests(t *testing.T) {
	t.Parallel()

	handler := http.NewServeMux()
	handler.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `[]`) })
	handler.HandleFunc("/repos/acme/widget/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":1,"title":"real issue"},
			{"id":2,"title":"pr in disguise","pull_request":{}}
		]`)
	})

	f := newTestFetcher(t, handler)
	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "gh:acme/widget:issue:1", items[0].ID)
}

func TestFetchIsolatesKindFailures(t *testing.T) {
	t.Parallel()

	handler := http.NewServeMux()
	handler.HandleFunc("/repos/acme/widget/releases", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden) // rate limited
	})
	handler.HandleFunc("/repos/acme/widget/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	handler.HandleFunc("/repos/acme/widget/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":5,"title":"survivor"}]`)
	})

	f := newTestFetcher(t, handler)
	items, err := f.Fetch(context.Background())
	require.NoError(t, err, "per-kind failures must not abort the fetch")
	require.Len(t, items, 1)
	require.Equal(t, "gh:acme/widget:issue:5", items[0].ID)
}

func TestFetchCoversAllRepos(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = true
		fmt.Fprint(w, `[]`)
	})

	f := newTestFetcher(t, handler, "acme/widget", "acme/gadget")
	_, err := f.Fetch(context.Background())
	require.NoError(t, err)

	for _, path := range []string{
		"/repos/acme/widget/releases", "/repos/acme/widget/pulls", "/repos/acme/widget/issues",
		"/repos/acme/gadget/releases", "/repos/acme/gadget/pulls", "/repos/acme/gadget/issues",
	} {
		require.True(t, seen[path], "expected request to %s", path)
	}
}

func TestBodyTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", bodyLimit+500)
	item := normalize("acme/widget", domain.KindRepoIssue, rawItem{ID: 1, Title: "t", Body: long})
	require.LessOrEqual(t, len(item.Content), bodyLimit+len("[issue] t\n"))
}
