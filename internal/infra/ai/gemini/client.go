package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"

	// inline request payloads are capped by the API at 20MB
	maxInlineBytes = 20 << 20
)

// Client is a single-attempt Gemini generateContent client. It implements
// analysis.Backend and sends artifacts inline.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	artifacts  analysis.ArtifactReader
}

// NewClient creates a client. artifacts may be nil, in which case only the
// prompt text is sent.
func NewClient(apiKey, model, baseURL string, artifacts analysis.ArtifactReader, httpClient *http.Client) *Client {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		artifacts:  artifacts,
	}
}

// GenerateContentRequest for the generateContent API
type GenerateContentRequest struct {
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type GenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
	MaxOutputTokens  int    `json:"maxOutputTokens,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob data is base64 on the wire; encoding/json does that for []byte.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	Error          *APIError       `json:"error,omitempty"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error %d (%s): %s", e.Code, e.Status, e.Message)
}

// Complete implements analysis.Backend.
func (c *Client) Complete(ctx context.Context, in analysis.Instructions, artifact *analysis.ArtifactRef) (string, error) {
	parts := []Part{{Text: in.User}}
	if artifact != nil && artifact.Key != "" && c.artifacts != nil {
		blob, err := c.inline(ctx, artifact)
		if err != nil {
			return "", err
		}
		parts = append(parts, Part{InlineData: blob})
	}

	req := &GenerateContentRequest{
		SystemInstruction: &Content{Parts: []Part{{Text: in.System}}},
		Contents:          []Content{{Role: "user", Parts: parts}},
		GenerationConfig:  &GenerationConfig{ResponseMimeType: "application/json", MaxOutputTokens: 2048},
	}
	resp, err := c.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text()
}

func (c *Client) inline(ctx context.Context, artifact *analysis.ArtifactRef) (*Blob, error) {
	rc, err := c.artifacts.Open(ctx, artifact.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: open artifact: %w", analysis.ErrBackendUnavailable, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxInlineBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact: %w", analysis.ErrBackendUnavailable, err)
	}
	if len(data) > maxInlineBytes {
		return nil, fmt.Errorf("%w: artifact exceeds inline limit", analysis.ErrBackendStatus)
	}
	mediaType := artifact.MediaType
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return &Blob{MimeType: mediaType, Data: data}, nil
}

// GenerateContent calls the Gemini generateContent API once.
func (c *Client) GenerateContent(ctx context.Context, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result GenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("%w: unmarshal response: %w", analysis.ErrBackendStatus, err)
	}
	if result.Error != nil || resp.StatusCode >= 300 {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		return nil, classify(resp.StatusCode, apiErr)
	}
	return &result, nil
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateContentResponse) Text() (string, error) {
	if len(r.Candidates) == 0 {
		if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", analysis.ErrBackendStatus, r.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: no candidates", analysis.ErrBackendStatus)
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func classify(status int, apiErr *APIError) error {
	if status < 300 && apiErr.Code != 0 {
		status = apiErr.Code
	}
	switch {
	case status == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("%w: %w", analysis.ErrQuotaExceeded, apiErr)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", analysis.ErrBackendAuth, apiErr)
	case status == http.StatusGatewayTimeout || apiErr.Status == "DEADLINE_EXCEEDED":
		return fmt.Errorf("%w: %w", analysis.ErrBackendTimeout, apiErr)
	default:
		return fmt.Errorf("%w: %w", analysis.ErrBackendStatus, apiErr)
	}
}
