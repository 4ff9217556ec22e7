package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ledgerlens/ledgerlens/internal/fault"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OpenRouterClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewOpenRouterClient(OpenRouterConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		DefaultModel: "test/model",
	})
	return srv, c
}

func TestCompleteUsageExtraction(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": "test/model",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `[{"a":1}]`}},
			},
			"usage": map[string]any{
				"prompt_tokens":     123,
				"completion_tokens": 45,
				"total_tokens":      168,
			},
		})
	})

	res, err := c.Complete(context.Background(), "parse this", Options{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if res.PromptTokens != 123 || res.CompletionTokens != 45 {
		t.Errorf("usage = %d/%d, want 123/45", res.PromptTokens, res.CompletionTokens)
	}
	if res.Text != `[{"a":1}]` {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestCompleteMissingUsageReportsZero(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "[]"}},
			},
		})
	})

	res, err := c.Complete(context.Background(), "p", Options{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if res.PromptTokens != 0 || res.CompletionTokens != 0 {
		t.Errorf("usage = %d/%d, want 0/0", res.PromptTokens, res.CompletionTokens)
	}
}

func TestCompleteVisionEncodesImages(t *testing.T) {
	var gotBody map[string]any
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "[]"}}},
		})
	})

	_, err := c.CompleteVision(context.Background(), "read page", [][]byte{{0x89, 'P', 'N', 'G'}}, Options{})
	if err != nil {
		t.Fatalf("CompleteVision() error = %v", err)
	}

	msgs := gotBody["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("content parts = %d, want 2", len(content))
	}
	img := content[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(img, "data:image/png;base64,") {
		t.Errorf("image url prefix = %q", img[:30])
	}
}

func TestCompleteRateLimited(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Complete(context.Background(), "p", Options{})
	if !fault.IsKind(err, fault.KindUpstreamQuota) {
		t.Errorf("kind = %v, want upstream_quota", fault.KindOf(err))
	}
}

func TestCompleteServerError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Complete(context.Background(), "p", Options{})
	if !fault.IsKind(err, fault.KindTransport) {
		t.Errorf("kind = %v, want transport_failure", fault.KindOf(err))
	}
}

func TestCompleteAPIErrorBody(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "rate_limit_exceeded", "message": "slow down"},
		})
	})

	_, err := c.Complete(context.Background(), "p", Options{})
	if !fault.IsKind(err, fault.KindUpstreamQuota) {
		t.Errorf("kind = %v, want upstream_quota", fault.KindOf(err))
	}
}

func TestCompleteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.Complete(ctx, "p", Options{})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !fault.IsKind(err, fault.KindCancelled) {
		t.Errorf("kind = %v, want cancelled", fault.KindOf(err))
	}
}
