package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// NewGeminiModel builds the production oracle client. Tests substitute a
// fake llms.Model instead.
func NewGeminiModel(ctx context.Context, apiKey string) (llms.Model, error) {
	model, err := googleai.New(ctx, googleai.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini model: %w", err)
	}
	return model, nil
}
