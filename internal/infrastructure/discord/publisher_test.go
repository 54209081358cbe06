package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"NewsRadar/internal/config"
	"NewsRadar/internal/domain"
)

func newTestPublisher(t *testing.T, handler http.Handler) *Publisher {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewPublisher(config.DiscordConfig{
		BotToken:  "bot-token",
		ChannelID: "chan-1",
	}, server.Client(), nil)
	p.apiBase = server.URL
	return p
}

func sampleItem() domain.ScoredItem {
	return domain.ScoredItem{
		CandidateItem: domain.CandidateItem{
			ID:   "gh:acme/widget:release:11",
			Kind: domain.KindRepoRelease,
			URL:  "https://gh/acme/widget/r/11",
			Repo: "acme/widget",
		},
		Priority:   domain.PriorityHigh,
		Tags:       []string{"release"},
		ShortTitle: "Widget v1.2.0 ships plugins",
		Reason:     "New plugin surface.",
		Summary:    "Adds a plugin API.",
		Tips:       "upgrade with widget up | enable plugins in config",
	}
}

func TestCreateThread(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotPayload map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		fmt.Fprint(w, `{"id":"thread-77"}`)
	})

	p := newTestPublisher(t, handler)
	handle, err := p.CreateThread(context.Background(), sampleItem())
	require.NoError(t, err)
	require.Equal(t, "thread-77", handle)
	require.Equal(t, "/channels/chan-1/threads", gotPath)
	require.Equal(t, "Bot bot-token", gotAuth)

	name := gotPayload["name"].(string)
	require.Contains(t, name, "Widget v1.2.0 ships plugins")

	content := gotPayload["message"].(map[string]any)["content"].(string)
	require.Contains(t, content, "acme/widget")
	require.Contains(t, content, "• upgrade with widget up")
	require.Contains(t, content, "https://gh/acme/widget/r/11")
}

func TestCreateThreadTruncatesTitle(t *testing.T) {
	t.Parallel()

	var gotName string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotName = payload.Name
		fmt.Fprint(w, `{"id":"t"}`)
	})

	item := sampleItem()
	item.ShortTitle = strings.Repeat("long title ", 30)

	p := newTestPublisher(t, handler)
	_, err := p.CreateThread(context.Background(), item)
	require.NoError(t, err)
	require.LessOrEqual(t, len([]rune(gotName)), titleLimit)
}

func TestCreateThreadUnconfigured(t *testing.T) {
	t.Parallel()

	p := NewPublisher(config.DiscordConfig{}, nil, nil)
	handle, err := p.CreateThread(context.Background(), sampleItem())
	require.NoError(t, err)
	require.Empty(t, handle)
}

func TestCreateThreadAPIError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Missing Permissions"}`, http.StatusForbidden)
	})

	p := newTestPublisher(t, handler)
	_, err := p.CreateThread(context.Background(), sampleItem())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Missing Permissions")
}

func TestDeleteThread(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		fmt.Fprint(w, `{}`)
	})

	p := newTestPublisher(t, handler)
	require.NoError(t, p.DeleteThread(context.Background(), "thread-9"))
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/channels/thread-9", gotPath)

	// Empty handle is a no-op.
	require.NoError(t, p.DeleteThread(context.Background(), ""))
}

func TestRenderBodySocial(t *testing.T) {
	t.Parallel()

	item := domain.ScoredItem{
		CandidateItem: domain.CandidateItem{
			ID:   "123",
			Kind: domain.KindSocialPost,
			URL:  "https://x.com/i/status/123",
		},
		Priority:   domain.PriorityMedium,
		Tags:       []string{"agents", "tools"},
		ShortTitle: "Agents do a thing",
		Reason:     "Relevant to workflows.",
		Summary:    "Short recap.",
	}

	body := renderBody(item)
	require.Contains(t, body, "**Agents do a thing**")
	require.Contains(t, body, "> Relevant to workflows.")
	require.Contains(t, body, "Tags: `agents, tools`")
	require.Contains(t, body, "Priority: **medium**")
	require.True(t, strings.HasSuffix(body, "https://x.com/i/status/123"))
}
