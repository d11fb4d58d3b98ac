// Package openrouter implements the LLM completion collaborator on top of
// OpenRouter's OpenAI-compatible API. It also handles OCR of photographed
// assignments through a vision-capable model.
package openrouter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ndrwnv/zubrilabot/internal/config"
	"github.com/ndrwnv/zubrilabot/internal/memory"
)

// Client defines the LLM operations used throughout the application.
type Client interface {
	// Complete generates an answer for the prompt, feeding in the user's
	// recent exchanges as conversation context.
	Complete(ctx context.Context, prompt string, history []memory.Exchange) (string, error)

	// ExtractImageText performs OCR on a photographed assignment. An empty
	// result means the image was unreadable; that is a valid outcome, not
	// an error.
	ExtractImageText(ctx context.Context, imageData []byte) (string, error)
}

type apiClient struct {
	api    *openai.Client
	cfg    config.OpenRouterConfig
	logger *slog.Logger
}

// NewClient creates an OpenRouter-backed Client.
func NewClient(cfg config.OpenRouterConfig, logger *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	log := logger.With("component", "openrouter_client")
	log.Info("OpenRouter client initialized", "model", cfg.Model, "ocr_model", cfg.OCRModel)

	return &apiClient{
		api:    openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: log,
	}, nil
}

// Complete sends the system prompt, up to the configured number of prior
// exchanges, and the user prompt to the chat model.
func (c *apiClient) Complete(ctx context.Context, prompt string, history []memory.Exchange) (string, error) {
	c.logger.DebugContext(ctx, "Generating completion", "history_pairs", len(history))

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    BuildMessages(SystemPrompt, history, prompt),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	resp, err := c.createWithRetries(ctx, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Completion request failed", "error", err)
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("completion returned empty content")
	}
	return text, nil
}

// ExtractImageText asks the vision model to transcribe the image. The image
// travels inline as a base64 data URL.
func (c *apiClient) ExtractImageText(ctx context.Context, imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("image data is required for OCR")
	}
	c.logger.DebugContext(ctx, "Extracting text from image", "image_size", len(imageData))

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)

	req := openai.ChatCompletionRequest{
		Model:     c.cfg.OCRModel,
		MaxTokens: 1000,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: OCRPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	}

	resp, err := c.createWithRetries(ctx, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "OCR request failed", "error", err)
		return "", fmt.Errorf("ocr request failed: %w", err)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// createWithRetries issues the chat completion, retrying rate-limit and
// server-side failures a bounded number of times.
func (c *apiClient) createWithRetries(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse
	var err error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		resp, err = c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				err = fmt.Errorf("response contained no choices")
			} else {
				return resp, nil
			}
		}

		if !isRetriable(err) || attempt == c.cfg.MaxRetries {
			return openai.ChatCompletionResponse{}, err
		}

		c.logger.WarnContext(ctx, "Retriable API failure, backing off",
			"attempt", attempt+1, "max_retries", c.cfg.MaxRetries, "error", err)

		select {
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		case <-time.After(c.cfg.RetryDelay):
		}
	}

	return openai.ChatCompletionResponse{}, err
}

func isRetriable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable:
			return true
		}
		return false
	}
	// Empty-choices responses are treated as transient upstream hiccups.
	return err != nil && strings.Contains(err.Error(), "no choices")
}

// BuildMessages assembles the chat payload: system prompt, prior exchanges
// as alternating user/assistant messages in chronological order, then the
// current prompt.
func BuildMessages(systemPrompt string, history []memory.Exchange, prompt string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2*len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, ex := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: ex.Prompt},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: ex.Response},
		)
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
	return messages
}
