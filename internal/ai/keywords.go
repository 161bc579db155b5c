// Package ai turns free-text item descriptions into search keywords.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rentalshop/internal/config"
	"rentalshop/internal/textutil"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const extractPrompt = `You extract search keywords for a Vietnamese formal-wear rental shop.
Given a customer's description of what they want to rent, answer with 2-5
short Vietnamese keywords matching product names, categories or tags.
Answer with the keywords only, separated by spaces, nothing else.
Known categories: %s.`

// Extractor asks a language model for the keywords hiding in a rambling
// customer description ("toi can do cho dam cuoi mau do" -> "đầm cưới đỏ").
type Extractor struct {
	client  *openai.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewExtractor creates an extractor. Returns nil when no API key is
// configured; callers treat a nil extractor as "fall back to token
// extraction".
func NewExtractor(cfg *config.Config, logger zerolog.Logger) *Extractor {
	if cfg.OpenAIKey == "" {
		logger.Info().Msg("OpenAI key not configured, AI search uses token extraction only")
		return nil
	}
	return &Extractor{
		client:  openai.NewClient(cfg.OpenAIKey),
		timeout: time.Duration(cfg.OpenAITimeout) * time.Second,
		logger:  logger,
	}
}

// ExtractKeywords returns a short keyword query for the description.
func (e *Extractor) ExtractKeywords(ctx context.Context, description string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(extractPrompt, strings.Join(textutil.KnownCategories(), ", ")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: description,
			},
		},
		MaxTokens:   50,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("keyword extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("keyword extraction returned no choices")
	}

	keywords := strings.TrimSpace(resp.Choices[0].Message.Content)
	if keywords == "" {
		return "", fmt.Errorf("keyword extraction returned empty text")
	}
	e.logger.Debug().Str("keywords", keywords).Msg("Extracted search keywords")
	return keywords, nil
}

// FallbackKeywords strips stopwords from the description without a model
// call. Used when the extractor is unavailable or errors out.
func FallbackKeywords(description string) string {
	tokens := textutil.ExtractMeaningfulTokens(description)
	if len(tokens) == 0 {
		return strings.TrimSpace(description)
	}
	return strings.Join(tokens, " ")
}
