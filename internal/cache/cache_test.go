package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/cost"
	"github.com/ledgerlens/ledgerlens/internal/records"
	"github.com/ledgerlens/ledgerlens/internal/triage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{
		Enabled: true,
		Driver:  "sqlite",
		DSN:     filepath.Join(t.TempDir(), "cache.db"),
		TTLDays: 30,
	})
	require.NoError(t, err)
	return s
}

func sampleResult(fp string) CachedResult {
	rec := records.Record{
		Columns: []string{"거래일시", "입금"},
		Values:  map[string]any{"거래일시": "2024.03.01 10:00", "입금": float64(1500000)},
	}
	return CachedResult{
		Fingerprint: fp,
		FileName:    "statement.pdf",
		FileSize:    1234,
		Kind:        triage.KindTextPDF,
		Records:     []records.Record{rec},
		Schema:      []string{"거래일시", "입금"},
		Cost:        cost.Cost{PromptTokens: 100, CompletionTokens: 50, USD: 0.01},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleResult("abc123")))

	got, ok := s.Get(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, "statement.pdf", got.FileName)
	assert.Equal(t, triage.KindTextPDF, got.Kind)
	assert.Equal(t, []string{"거래일시", "입금"}, got.Schema)
	require.Len(t, got.Records, 1)
	assert.Equal(t, float64(1500000), got.Records[0].Get("입금"))
	assert.Equal(t, uint64(100), got.Cost.PromptTokens)
}

func TestGetMiss(t *testing.T) {
	s := openTestStore(t)
	_, ok := s.Get(context.Background(), "nope")
	assert.False(t, ok)
}

func TestPutIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleResult("dup")))
	require.NoError(t, s.Put(ctx, sampleResult("dup")))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHitCountIncrements(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, sampleResult("hits")))

	s.Get(ctx, "hits")
	s.Get(ctx, "hits")
	got, ok := s.Get(ctx, "hits")
	require.True(t, ok)
	// The third read sees the first two increments.
	assert.Equal(t, int64(2), got.HitCount)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, sampleResult("gone")))
	require.NoError(t, s.Delete(ctx, "gone"))

	_, ok := s.Get(ctx, "gone")
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, sampleResult("stale")))

	// Jump the clock past the TTL.
	s.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }

	_, ok := s.Get(ctx, "stale")
	assert.False(t, ok)

	n, err := s.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDisabledStoreNoOps(t *testing.T) {
	s, err := Open(Config{Enabled: false})
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, s.Enabled())
	require.NoError(t, s.Put(ctx, sampleResult("x")))
	_, ok := s.Get(ctx, "x")
	assert.False(t, ok)
	require.NoError(t, s.Delete(ctx, "x"))
	n, err := s.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
