// Package cost accumulates per-extraction token usage and converts it to
// currency totals.
package cost

import "sync"

// Pricing holds per-million token prices and the FX rate used for
// reporting.
type Pricing struct {
	InputPerM  float64 // USD per million prompt tokens
	OutputPerM float64 // USD per million completion tokens
	USDToKRW   float64
}

// Cost is the accumulated spend for one extraction.
type Cost struct {
	PromptTokens     uint64  `json:"prompt_tokens"`
	CompletionTokens uint64  `json:"completion_tokens"`
	USD              float64 `json:"usd"`
	KRW              float64 `json:"krw"`
}

// Tracker is a thread-safe per-extraction accumulator. Counters are
// monotonically non-decreasing between Reset calls; Add is invoked on
// every successful LLM response, whether or not the unit's records were
// ultimately kept.
type Tracker struct {
	mu         sync.Mutex
	prompt     uint64
	completion uint64
	pricing    Pricing
}

// NewTracker returns a zeroed tracker with the given pricing.
func NewTracker(p Pricing) *Tracker {
	return &Tracker{pricing: p}
}

// Reset zeroes the counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prompt = 0
	t.completion = 0
}

// Add records token usage from one LLM response.
func (t *Tracker) Add(promptTokens, completionTokens int) {
	if promptTokens < 0 {
		promptTokens = 0
	}
	if completionTokens < 0 {
		completionTokens = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prompt += uint64(promptTokens)
	t.completion += uint64(completionTokens)
}

// Total computes the current cost snapshot.
func (t *Tracker) Total() Cost {
	t.mu.Lock()
	defer t.mu.Unlock()

	usd := float64(t.prompt)/1e6*t.pricing.InputPerM +
		float64(t.completion)/1e6*t.pricing.OutputPerM
	return Cost{
		PromptTokens:     t.prompt,
		CompletionTokens: t.completion,
		USD:              usd,
		KRW:              usd * t.pricing.USDToKRW,
	}
}
