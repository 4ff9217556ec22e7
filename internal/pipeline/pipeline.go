// Package pipeline coordinates the extraction flow: triage, branch
// dispatch, bounded-parallel LLM calls, schema propagation, retry and
// salvage, deduplication, caching, and cost accounting.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/cache"
	"github.com/ledgerlens/ledgerlens/internal/chunk"
	"github.com/ledgerlens/ledgerlens/internal/cost"
	"github.com/ledgerlens/ledgerlens/internal/fault"
	"github.com/ledgerlens/ledgerlens/internal/fingerprint"
	"github.com/ledgerlens/ledgerlens/internal/pdf"
	"github.com/ledgerlens/ledgerlens/internal/providers"
	"github.com/ledgerlens/ledgerlens/internal/records"
	"github.com/ledgerlens/ledgerlens/internal/rules"
	"github.com/ledgerlens/ledgerlens/internal/sheet"
	"github.com/ledgerlens/ledgerlens/internal/store"
	"github.com/ledgerlens/ledgerlens/internal/triage"
)

// Config tunes the pipeline. Zero values fall back to the documented
// defaults.
type Config struct {
	BatchConcurrency int
	ChunkTargetChars int
	CallTimeout      time.Duration
	WallClockBudget  time.Duration
	RasterScale      float64
	MaxPages         int
	MaxOutputTokens  int
	Model            string
	Pricing          cost.Pricing
	LanguageHints    []string
}

func (c *Config) fillDefaults() {
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 10
	}
	if c.ChunkTargetChars <= 0 {
		c.ChunkTargetChars = chunk.DefaultTarget
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 60 * time.Second
	}
	if c.WallClockBudget <= 0 {
		c.WallClockBudget = 5 * time.Minute
	}
	if c.RasterScale <= 0 {
		c.RasterScale = 1.5
	}
	if c.MaxPages <= 0 {
		c.MaxPages = pdf.DefaultMaxPages
	}
}

// Options are per-extraction overrides.
type Options struct {
	ForceRefresh       bool
	LanguageHints      []string
	RasterScale        float64
	MaxPages           int
	LLMMaxOutputTokens int
}

// Result is the extraction output.
type Result struct {
	Records   []records.Record `json:"records"`
	Schema    []string         `json:"schema"`
	Cost      cost.Cost        `json:"cost"`
	FromCache bool             `json:"from_cache"`
	Kind      triage.Kind      `json:"kind"`
}

// OCRClient is the optional text-OCR collaborator consulted when LLM
// vision cannot read a page. Satisfied by *ocr.Client.
type OCRClient interface {
	OCRImage(ctx context.Context, png []byte, languageHints []string) (string, error)
}

// Pipeline is the extraction coordinator. Safe for concurrent use across
// documents; per-document state lives on the stack of Extract.
type Pipeline struct {
	llm     providers.Client
	cache   *cache.Store
	rules   *rules.Registry
	objects *store.Store
	ocr     OCRClient
	cfg     Config
	log     *slog.Logger

	// Branch hooks, overridable in tests. Defaults bind the pdf and
	// triage packages.
	classify    func(ctx context.Context, data []byte, filename string) (triage.Result, error)
	extractText func(ctx context.Context, data []byte) (string, error)
	rasterize   func(ctx context.Context, data []byte, opts pdf.RasterOptions) ([]pdf.Page, error)
	parseSheet  func(data []byte) ([]records.Record, error)
}

// New creates a pipeline. cache may be a disabled store, ruleReg and
// objects may be nil.
func New(llm providers.Client, cacheStore *cache.Store, ruleReg *rules.Registry, objects *store.Store, cfg Config, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	cfg.fillDefaults()
	return &Pipeline{
		llm:         llm,
		cache:       cacheStore,
		rules:       ruleReg,
		objects:     objects,
		cfg:         cfg,
		log:         log,
		classify:    triage.Classify,
		extractText: pdf.Text,
		rasterize:   pdf.Rasterize,
		parseSheet:  sheet.Parse,
	}
}

// SetOCR attaches the optional OCR fallback. Call before Extract.
func (p *Pipeline) SetOCR(c OCRClient) { p.ocr = c }

// Extract runs the full flow for one document.
func (p *Pipeline) Extract(ctx context.Context, data []byte, filename string, opts Options) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.WallClockBudget)
	defer cancel()

	if len(data) == 0 {
		return nil, fault.New(fault.KindInputRejected, "empty document %q", filename)
	}

	fp := fingerprint.Hash(data)
	log := p.log.With("fingerprint", fp, "filename", filename)

	if opts.ForceRefresh {
		if err := p.cache.Delete(ctx, fp); err != nil {
			log.Warn("cache delete on force refresh failed", "error", err)
		}
	} else if hit, ok := p.cache.Get(ctx, fp); ok {
		log.Debug("cache hit", "records", len(hit.Records))
		return &Result{
			Records:   hit.Records,
			Schema:    hit.Schema,
			FromCache: true,
			Kind:      hit.Kind,
		}, nil
	}

	tri, err := p.classify(ctx, data, filename)
	if err != nil {
		return nil, err
	}
	log.Info("document classified",
		"kind", tri.Kind.String(),
		"pages", tri.PageCount,
		"class", tri.Class)

	tracker := cost.NewTracker(p.cfg.Pricing)
	broker := records.NewBroker()

	var recs []records.Record
	switch tri.Kind {
	case triage.KindSpreadsheet:
		recs, err = p.runSpreadsheet(data, broker)
	case triage.KindTextPDF:
		recs, err = p.runTextPDF(ctx, data, broker, tracker, opts)
	case triage.KindImagePDF:
		recs, err = p.runImagePDF(ctx, data, broker, tracker, opts, log)
	case triage.KindImage:
		recs, err = p.runImage(ctx, data, broker, tracker, opts)
	default:
		return nil, fault.New(fault.KindInputRejected, "unsupported document kind")
	}
	if err != nil {
		return nil, err
	}

	recs = records.Dedup(recs)
	if len(recs) == 0 {
		return nil, fault.New(fault.KindExtractionEmpty, "no records extracted from %q", filename)
	}

	res := &Result{
		Records: recs,
		Schema:  broker.Columns(),
		Cost:    tracker.Total(),
		Kind:    tri.Kind,
	}

	if err := p.cache.Put(ctx, cache.CachedResult{
		Fingerprint: fp,
		FileName:    filename,
		FileSize:    int64(len(data)),
		Kind:        tri.Kind,
		Records:     res.Records,
		Schema:      res.Schema,
		Cost:        res.Cost,
	}); err != nil {
		log.Warn("cache write failed", "error", err)
	}

	log.Info("extraction complete",
		"records", len(res.Records),
		"columns", len(res.Schema),
		"usd", res.Cost.USD)
	return res, nil
}

// ExtractFromStore downloads the blob at key, extracts it, and deletes
// the storage object on completion regardless of outcome.
func (p *Pipeline) ExtractFromStore(ctx context.Context, key, filename string, opts Options) (*Result, error) {
	if p.objects == nil {
		return nil, fault.New(fault.KindInputRejected, "object store not configured")
	}
	data, err := p.objects.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Cleanup must survive a cancelled extraction context.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.objects.Delete(cleanupCtx, key)
	}()

	return p.Extract(ctx, data, filename, opts)
}
