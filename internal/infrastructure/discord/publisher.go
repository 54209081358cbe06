package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"NewsRadar/internal/config"
	"NewsRadar/internal/domain"
	"NewsRadar/internal/ports"
)

const (
	defaultAPIBase = "https://discord.com/api/v10"

	// titleLimit is the messaging API's cap on thread names.
	titleLimit = 100
)

// Publisher creates and deletes forum threads for accepted items. An
// unconfigured publisher (missing token or channel) is a silent no-op so
// the pipeline can run without a chat integration.
type Publisher struct {
	client    *http.Client
	apiBase   string
	botToken  string
	channelID string
	logger    *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher wires the Discord credentials.
func NewPublisher(cfg config.DiscordConfig, client *http.Client, logger *slog.Logger) *Publisher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:    client,
		apiBase:   defaultAPIBase,
		botToken:  cfg.BotToken,
		channelID: cfg.ChannelID,
		logger:    logger,
	}
}

func (p *Publisher) configured() bool {
	return p.botToken != "" && p.channelID != ""
}

// CreateThread renders the item into a forum thread and returns the thread
// handle needed to delete it later.
func (p *Publisher) CreateThread(ctx context.Context, item domain.ScoredItem) (string, error) {
	if !p.configured() {
		return "", nil
	}

	title := truncateTitle(threadTitle(item))
	payload, err := json.Marshal(map[string]any{
		"name":    title,
		"message": map[string]string{"content": renderBody(item)},
	})
	if err != nil {
		return "", fmt.Errorf("marshal thread payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/threads", p.apiBase, p.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+p.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("create thread: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode thread response: %w", err)
	}

	p.logger.Info("created thread", "thread", created.ID, "title", title)
	return created.ID, nil
}

// DeleteThread removes a thread by its handle. Empty handles and an
// unconfigured publisher are no-ops.
func (p *Publisher) DeleteThread(ctx context.Context, handle string) error {
	if p.botToken == "" || handle == "" {
		return nil
	}

	endpoint := fmt.Sprintf("%s/channels/%s", p.apiBase, handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+p.botToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("delete thread %s: %s", handle, resp.Status)
	}

	p.logger.Info("deleted thread", "thread", handle)
	return nil
}

var kindEmoji = map[domain.SourceKind]string{
	domain.KindRepoRelease: "\U0001f680",
	domain.KindRepoPull:    "\U0001f500",
	domain.KindRepoIssue:   "\U0001f41b",
	domain.KindSocialPost:  "\U0001f4f0",
}

var priorityBadge = map[domain.Priority]string{
	domain.PriorityHigh:   "\U0001f525 High",
	domain.PriorityMedium: "⚡ Medium",
}

func threadTitle(item domain.ScoredItem) string {
	title := item.ShortTitle
	if title == "" {
		title = "News"
	}
	if item.Kind == domain.KindSocialPost {
		return title
	}
	return kindEmoji[item.Kind] + " " + title
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= titleLimit {
		return title
	}
	return string(runes[:titleLimit])
}

// renderBody builds the thread message. Repository items get the richer
// layout with repo badge and usage tips; social posts stay minimal.
func renderBody(item domain.ScoredItem) string {
	var lines []string

	switch item.Kind {
	case domain.KindSocialPost:
		lines = append(lines, "**"+threadTitle(item)+"**", "")
		if item.Summary != "" {
			lines = append(lines, item.Summary, "")
		}
		if item.Reason != "" {
			lines = append(lines, "> "+item.Reason, "")
		}
		if len(item.Tags) > 0 {
			lines = append(lines, "Tags: `"+strings.Join(item.Tags, ", ")+"`")
		}
		lines = append(lines, "Priority: **"+string(item.Priority)+"**")
	default:
		badge := priorityBadge[item.Priority]
		lines = append(lines,
			kindEmoji[item.Kind]+"  **"+item.ShortTitle+"**",
			fmt.Sprintf("\U0001f4e6 `%s` • %s", item.Repo, badge),
			strings.Repeat("─", 30),
		)
		if item.Summary != "" {
			lines = append(lines, "", "**What Changed**", item.Summary)
		}
		if item.Tips != "" {
			lines = append(lines, "", "**Tips & How to Use**")
			for _, tip := range strings.Split(item.Tips, "|") {
				if tip = strings.TrimSpace(tip); tip != "" {
					lines = append(lines, "• "+tip)
				}
			}
		}
		if item.Reason != "" {
			lines = append(lines, "", "> "+item.Reason)
		}
		if len(item.Tags) > 0 {
			tagged := make([]string, len(item.Tags))
			for i, tag := range item.Tags {
				tagged[i] = "`" + tag + "`"
			}
			lines = append(lines, "", strings.Join(tagged, "  "))
		}
	}

	if item.URL != "" {
		lines = append(lines, "", item.URL)
	}
	return strings.Join(lines, "\n")
}
