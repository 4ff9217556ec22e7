// Package providers contains the LLM client adapters used by the
// extraction pipeline. Adapters surface token counts from the provider
// response and classify transport errors; they never retry parse
// semantics, which belong to the pipeline.
package providers

import (
	"context"
	"time"
)

// Options tune a single completion call.
type Options struct {
	// Model overrides the client default when non-empty.
	Model string

	// MaxOutputTokens caps the completion length. Zero means provider
	// default.
	MaxOutputTokens int

	// Timeout is the per-call deadline. Zero means client default.
	Timeout time.Duration

	Temperature float64
}

// Completion is the result of one LLM call. Token counts are zero when
// the provider omits usage data.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Model            string
	RequestID        string
}

// Client is the LLM adapter interface. Implementations are safe for
// concurrent use.
type Client interface {
	// Complete sends a text-only prompt.
	Complete(ctx context.Context, prompt string, opts Options) (*Completion, error)

	// CompleteVision sends a prompt with one or more PNG images.
	CompleteVision(ctx context.Context, prompt string, images [][]byte, opts Options) (*Completion, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}
