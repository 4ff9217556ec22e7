package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlens/ledgerlens/internal/fault"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
}

// OpenRouterClient implements Client against the OpenRouter chat API.
// One attempt per call: classification happens here, retry policy in the
// pipeline.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic/claude-3.5-sonnet"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string { return OpenRouterName }

// Complete sends a text-only prompt.
func (c *OpenRouterClient) Complete(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	return c.doComplete(ctx, prompt, nil, opts)
}

// CompleteVision sends a prompt with PNG images attached as data URLs.
func (c *OpenRouterClient) CompleteVision(ctx context.Context, prompt string, images [][]byte, opts Options) (*Completion, error) {
	return c.doComplete(ctx, prompt, images, opts)
}

func (c *OpenRouterClient) doComplete(ctx context.Context, prompt string, images [][]byte, opts Options) (*Completion, error) {
	model := opts.Model
	if model == "" {
		model = c.defaultModel
	}

	msg := orMessage{Role: "user"}
	if len(images) > 0 {
		content := []orContent{{Type: "text", Text: prompt}}
		for _, img := range images {
			content = append(content, orContent{
				Type: "image_url",
				ImageURL: &orImageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
				},
			})
		}
		msg.Content = content
	} else {
		msg.Content = prompt
	}

	orReq := orRequest{
		Model:       model,
		Messages:    []orMessage{msg},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	orResp, err := c.doRequest(ctx, "/chat/completions", &orReq)
	if err != nil {
		return nil, err
	}

	if len(orResp.Choices) == 0 {
		return nil, fault.New(fault.KindTransport, "openrouter: no choices in response (model=%s)", model)
	}

	text := ""
	switch v := orResp.Choices[0].Message.Content.(type) {
	case string:
		text = v
	case nil:
	default:
		b, merr := json.Marshal(v)
		if merr != nil {
			return nil, fault.Wrap(fault.KindTransport, merr, "openrouter: unreadable message content")
		}
		text = string(b)
	}

	return &Completion{
		Text:             text,
		PromptTokens:     orResp.Usage.PromptTokens,
		CompletionTokens: orResp.Usage.CompletionTokens,
		Model:            orResp.Model,
		RequestID:        uuid.New().String(),
	}, nil
}

// doRequest performs a single HTTP round trip and classifies failures.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, body *orRequest) (*orResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "ledgerlens")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fault.Wrap(fault.KindCancelled, ctx.Err(), "openrouter: request cancelled")
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fault.Wrap(fault.KindTransport, err, "openrouter: request timed out")
		}
		return nil, fault.Wrap(fault.KindTransport, err, "openrouter: request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "openrouter: read response")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fault.New(fault.KindUpstreamQuota, "openrouter: rate limited (status 429)")
	case resp.StatusCode != http.StatusOK:
		// Error bodies can carry the API key prompt back; log status only.
		return nil, fault.New(fault.KindTransport, "openrouter: status %d", resp.StatusCode)
	}

	var orResp orResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "openrouter: unmarshal response")
	}

	if orResp.Error != nil {
		code := fmt.Sprintf("%v", orResp.Error.Code)
		if code == "rate_limit_exceeded" || code == "insufficient_quota" || code == "overloaded" {
			return nil, fault.New(fault.KindUpstreamQuota, "openrouter: %s", orResp.Error.Message)
		}
		return nil, fault.New(fault.KindTransport, "openrouter: api error: %s", orResp.Error.Message)
	}

	return &orResp, nil
}

// OpenRouter API types.

type orRequest struct {
	Model       string      `json:"model"`
	Messages    []orMessage `json:"messages"`
	Temperature float64     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

type orMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []orContent
}

type orContent struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL *orImageURL `json:"image_url,omitempty"`
}

type orImageURL struct {
	URL string `json:"url"`
}

type orResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Verify interface.
var _ Client = (*OpenRouterClient)(nil)
