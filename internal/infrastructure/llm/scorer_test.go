package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"NewsRadar/internal/domain"
	"NewsRadar/internal/ports"
)

// fakeModel replays a canned oracle response and records the prompt.
type fakeModel struct {
	response string
	err      error

	gotMessages []llms.MessageContent
	calls       int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.gotMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.response, f.err
}

func candidates(ids ...string) []domain.CandidateItem {
	items := make([]domain.CandidateItem, len(ids))
	for i, id := range ids {
		items[i] = domain.CandidateItem{ID: id, Kind: domain.KindSocialPost, Content: "content " + id}
	}
	return items
}

func TestScoreEmptyInputSkipsOracle(t *testing.T) {
	t.Parallel()

	model := &fakeModel{response: "[]"}
	scorer := NewScorer(model, "test-model", "rubric", nil)

	scored, err := scorer.Score(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, scored)
	require.Zero(t, model.calls, "empty input must not call the oracle")
}

func TestScoreEnrichesAndSortsByPriority(t *testing.T) {
	t.Parallel()

	model := &fakeModel{response: `[
		{"index":2,"pass":true,"priority":"medium","tags":["t1"],"title":"C item","reason":"r-c","tldr":"s-c"},
		{"index":0,"pass":true,"priority":"high","title":"A item","reason":"r-a","tldr":"s-a","tips":"one|two"},
		{"index":1,"pass":true,"priority":"medium","title":"B item"}
	]`}
	scorer := NewScorer(model, "test-model", "rubric", nil)

	scored, err := scorer.Score(context.Background(), candidates("a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, scored, 3)

	// High first, then mediums in oracle order.
	require.Equal(t, "a", scored[0].ID)
	require.Equal(t, domain.PriorityHigh, scored[0].Priority)
	require.Equal(t, "one|two", scored[0].Tips)
	require.Equal(t, "c", scored[1].ID)
	require.Equal(t, "b", scored[2].ID)

	// Absent tags default to an empty set, not nil.
	require.NotNil(t, scored[2].Tags)
}

func TestScoreDiscardsInvalidVerdicts(t *testing.T) {
	t.Parallel()

	model := &fakeModel{response: `[
		{"index":5,"pass":true,"priority":"high","title":"out of range"},
		{"index":-1,"pass":true,"priority":"high","title":"negative"},
		{"index":0,"pass":true,"priority":"high","title":"good"},
		{"index":0,"pass":true,"priority":"medium","title":"duplicate"},
		{"index":1,"pass":false,"priority":"high","title":"failed gate"},
		{"index":2,"pass":true,"priority":"low","title":"bad priority"}
	]`}
	scorer := NewScorer(model, "test-model", "rubric", nil)

	scored, err := scorer.Score(context.Background(), candidates("a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, scored, 1)
	require.Equal(t, "a", scored[0].ID)
	require.Equal(t, "good", scored[0].ShortTitle)
}

func TestScoreRepairsDirtyJSON(t *testing.T) {
	t.Parallel()

	// Fenced output plus a trailing comma.
	model := &fakeModel{response: "```json\n" +
		`[{"index":0,"pass":true,"priority":"high","title":"fixed",},]` +
		"\n```"}
	scorer := NewScorer(model, "test-model", "rubric", nil)

	scored, err := scorer.Score(context.Background(), candidates("a"))
	require.NoError(t, err)
	require.Len(t, scored, 1)
	require.Equal(t, "fixed", scored[0].ShortTitle)
}

func TestScoreMalformedResponse(t *testing.T) {
	t.Parallel()

	model := &fakeModel{response: `the model refuses to emit JSON today`}
	scorer := NewScorer(model, "test-model", "rubric", nil)

	_, err := scorer.Score(context.Background(), candidates("a"))
	require.ErrorIs(t, err, ports.ErrMalformedResponse)
}

func TestScorePromptShape(t *testing.T) {
	t.Parallel()

	model := &fakeModel{response: "[]"}
	scorer := NewScorer(model, "test-model", "the rubric text", nil)

	_, err := scorer.Score(context.Background(), candidates("id-1", "id-2"))
	require.NoError(t, err)
	require.Len(t, model.gotMessages, 2)
	require.Equal(t, llms.ChatMessageTypeSystem, model.gotMessages[0].Role)
	require.Equal(t, llms.ChatMessageTypeHuman, model.gotMessages[1].Role)

	human := model.gotMessages[1].Parts[0].(llms.TextContent).Text
	require.Contains(t, human, "[0] (id:id-1) content id-1")
	require.Contains(t, human, "[1] (id:id-2) content id-2")
}

func TestTruncateRespectsRunes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "héllo", truncate("héllo", 10))
	require.Equal(t, "hél", truncate("héllo", 3))
}
