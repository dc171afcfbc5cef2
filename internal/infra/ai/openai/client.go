package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/sashabaranov/go-openai"
)

const (
	maxTokens    = 2048
	DefaultModel = "gpt-4o"

	// chat completions reject image payloads above 20MB
	maxImageBytes = 20 << 20
)

// Client implements analysis.Backend over the chat completions API.
type Client struct {
	*openai.Client
	Model string

	artifacts analysis.ArtifactReader
}

// NewClient builds a client. baseURL is optional and points at an
// OpenAI-compatible endpoint (".../v1"). With artifacts set, images are
// sent inline as data URLs; without it the stored URL is passed and must be
// reachable by the provider.
func NewClient(apiKey, model, baseURL string, artifacts analysis.ArtifactReader, httpClient *http.Client) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, artifacts: artifacts}
}

// Complete sends the instructions and returns the raw assistant text.
// Only image artifacts can be attached to a chat completion. Any other
// artifact (PDF) fails with ErrBackendStatus before a request is made, so
// the record gets a processing error instead of an answer written without
// the document.
func (c *Client) Complete(ctx context.Context, in analysis.Instructions, artifact *analysis.ArtifactRef) (string, error) {
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	user, err := c.userMessage(ctx, in.User, artifact)
	if err != nil {
		return "", err
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: in.System},
			user,
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", analysis.ErrBackendStatus)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) userMessage(ctx context.Context, text string, artifact *analysis.ArtifactRef) (openai.ChatCompletionMessage, error) {
	if artifact == nil || (artifact.Key == "" && artifact.URL == "") {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}, nil
	}
	if !strings.HasPrefix(artifact.MediaType, "image/") {
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: unsupported artifact type %q for chat completions", analysis.ErrBackendStatus, artifact.MediaType)
	}

	imageURL := artifact.URL
	if c.artifacts != nil && artifact.Key != "" {
		var err error
		if imageURL, err = c.dataURL(ctx, artifact); err != nil {
			return openai.ChatCompletionMessage{}, err
		}
	}
	if imageURL == "" {
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: artifact %s has no readable location", analysis.ErrBackendUnavailable, artifact.Key)
	}
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: text},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    imageURL,
				Detail: openai.ImageURLDetailHigh,
			}},
		},
	}, nil
}

// dataURL reads the image and encodes it as data:<type>;base64,...
func (c *Client) dataURL(ctx context.Context, artifact *analysis.ArtifactRef) (string, error) {
	rc, err := c.artifacts.Open(ctx, artifact.Key)
	if err != nil {
		return "", fmt.Errorf("%w: open artifact: %w", analysis.ErrBackendUnavailable, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read artifact: %w", analysis.ErrBackendUnavailable, err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("%w: artifact %s exceeds %d bytes", analysis.ErrBackendStatus, artifact.Key, maxImageBytes)
	}
	return "data:" + artifact.MediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify wraps provider errors with the analysis sentinels.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		// transport errors (timeouts, refused connections) are classified upstream
		return fmt.Errorf("chat completion: %w", err)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", analysis.ErrQuotaExceeded, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", analysis.ErrBackendAuth, err)
	case status >= 400:
		return fmt.Errorf("%w: %w", analysis.ErrBackendStatus, err)
	default:
		return fmt.Errorf("chat completion: %w", err)
	}
}
