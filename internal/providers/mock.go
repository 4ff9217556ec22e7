package providers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is a Client for testing. Responses are served from Script
// in call order; when the script runs out the last entry repeats.
type MockClient struct {
	// Script holds the response texts, one per call.
	Script []string

	// Err, when set, is returned by every call.
	Err error

	// FailFirst makes the first N calls return Err, after which calls
	// succeed.
	FailFirst int

	// Token counts attached to each successful completion.
	PromptTokens     int
	CompletionTokens int

	Latency time.Duration

	mu      sync.Mutex
	calls   atomic.Int64
	prompts []string
	images  []int
}

// NewMockClient returns a mock with a single empty-array response.
func NewMockClient(script ...string) *MockClient {
	if len(script) == 0 {
		script = []string{"[]"}
	}
	return &MockClient{
		Script:           script,
		PromptTokens:     100,
		CompletionTokens: 50,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string { return MockClientName }

// Calls returns the number of completions requested so far.
func (c *MockClient) Calls() int { return int(c.calls.Load()) }

// Prompts returns the prompts seen, in call order.
func (c *MockClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// ImageCounts returns the number of images attached to each call, in
// call order. Text completions record zero.
func (c *MockClient) ImageCounts() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.images...)
}

// Complete serves the next scripted response.
func (c *MockClient) Complete(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	return c.serve(ctx, prompt, 0)
}

// CompleteVision serves the next scripted response.
func (c *MockClient) CompleteVision(ctx context.Context, prompt string, images [][]byte, opts Options) (*Completion, error) {
	return c.serve(ctx, prompt, len(images))
}

func (c *MockClient) serve(ctx context.Context, prompt string, imageCount int) (*Completion, error) {
	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := int(c.calls.Add(1))

	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.images = append(c.images, imageCount)
	c.mu.Unlock()

	if c.Err != nil && (c.FailFirst == 0 || n <= c.FailFirst) {
		return nil, c.Err
	}

	idx := n - 1
	if idx >= len(c.Script) {
		idx = len(c.Script) - 1
	}
	return &Completion{
		Text:             c.Script[idx],
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
		Model:            "mock-model",
		RequestID:        "mock",
	}, nil
}

// Verify interface.
var _ Client = (*MockClient)(nil)
