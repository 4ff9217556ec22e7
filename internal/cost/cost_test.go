package cost

import (
	"sync"
	"testing"
)

func TestTrackerTotal(t *testing.T) {
	tr := NewTracker(Pricing{InputPerM: 3.0, OutputPerM: 15.0, USDToKRW: 1350})
	tr.Add(1_000_000, 200_000)

	c := tr.Total()
	if c.PromptTokens != 1_000_000 || c.CompletionTokens != 200_000 {
		t.Fatalf("tokens = %d/%d", c.PromptTokens, c.CompletionTokens)
	}
	wantUSD := 3.0 + 0.2*15.0
	if c.USD != wantUSD {
		t.Errorf("USD = %v, want %v", c.USD, wantUSD)
	}
	if c.KRW != wantUSD*1350 {
		t.Errorf("KRW = %v", c.KRW)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker(Pricing{InputPerM: 1, OutputPerM: 1})
	tr.Add(10, 10)
	tr.Reset()
	if c := tr.Total(); c.PromptTokens != 0 || c.USD != 0 {
		t.Errorf("after Reset: %+v", c)
	}
}

func TestTrackerConcurrentAdd(t *testing.T) {
	tr := NewTracker(Pricing{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Add(1, 2)
			}
		}()
	}
	wg.Wait()

	c := tr.Total()
	if c.PromptTokens != 5000 || c.CompletionTokens != 10000 {
		t.Errorf("tokens = %d/%d, want 5000/10000", c.PromptTokens, c.CompletionTokens)
	}
}

func TestTrackerNegativeClamped(t *testing.T) {
	tr := NewTracker(Pricing{})
	tr.Add(-5, -5)
	if c := tr.Total(); c.PromptTokens != 0 || c.CompletionTokens != 0 {
		t.Errorf("negative input not clamped: %+v", c)
	}
}
