package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerlens/ledgerlens/internal/chunk"
	"github.com/ledgerlens/ledgerlens/internal/cost"
	"github.com/ledgerlens/ledgerlens/internal/fault"
	"github.com/ledgerlens/ledgerlens/internal/jsonarr"
	"github.com/ledgerlens/ledgerlens/internal/pdf"
	"github.com/ledgerlens/ledgerlens/internal/providers"
	"github.com/ledgerlens/ledgerlens/internal/records"
	"github.com/ledgerlens/ledgerlens/internal/rules"
)

// unit is one LLM work item: a text chunk or a set of page images.
type unit struct {
	index  int
	text   string
	images [][]byte
}

func (p *Pipeline) runSpreadsheet(data []byte, broker *records.Broker) ([]records.Record, error) {
	recs, err := p.parseSheet(data)
	if err != nil {
		return nil, err
	}
	return broker.Declare(recs)
}

func (p *Pipeline) runTextPDF(ctx context.Context, data []byte, broker *records.Broker, tracker *cost.Tracker, opts Options) ([]records.Record, error) {
	text, err := p.extractText(ctx, data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fault.New(fault.KindExtractionEmpty, "text layer empty")
	}

	// A recognized issuer layout parses deterministically, skipping the
	// LLM entirely.
	if p.rules != nil {
		if rule := p.rules.Detect(text); rule != nil {
			if rr := rules.Parse(text, rule); len(rr) > 0 {
				scratch := records.NewBroker()
				if out, err := scratch.Declare(rr); err == nil && len(out) > 0 {
					p.log.Info("issuer rule matched", "issuer", rule.Issuer, "records", len(out))
					return broker.Declare(rr)
				}
			}
		}
	}

	merged := chunk.MergeLines(text)
	chunks := chunk.Split(merged, p.cfg.ChunkTargetChars)
	if len(chunks) == 0 {
		return nil, fault.New(fault.KindExtractionEmpty, "text layer empty after merge")
	}

	out, err := p.parseUnit(ctx, unit{index: 0, text: chunks[0].Text}, broker, tracker, opts, true)
	if err != nil {
		return nil, err
	}

	rest := make([]unit, 0, len(chunks)-1)
	for _, c := range chunks[1:] {
		rest = append(rest, unit{index: c.Index, text: c.Text})
	}
	more, err := p.runUnits(ctx, rest, broker, tracker, opts)
	if err != nil {
		return nil, err
	}
	return append(out, more...), nil
}

func (p *Pipeline) runImagePDF(ctx context.Context, data []byte, broker *records.Broker, tracker *cost.Tracker, opts Options, log *slog.Logger) ([]records.Record, error) {
	scale := opts.RasterScale
	if scale <= 0 {
		scale = p.cfg.RasterScale
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = p.cfg.MaxPages
	}

	pages, err := p.rasterize(ctx, data, pdf.RasterOptions{
		Scale:    scale,
		MaxPages: maxPages,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fault.New(fault.KindExtractionEmpty, "no pages rendered")
	}

	out, err := p.parseUnit(ctx, unit{index: 0, images: [][]byte{pages[0].PNG}}, broker, tracker, opts, true)
	if err != nil {
		return nil, err
	}

	rest := make([]unit, 0, len(pages)-1)
	for _, pg := range pages[1:] {
		rest = append(rest, unit{index: pg.Index, images: [][]byte{pg.PNG}})
	}
	more, err := p.runUnits(ctx, rest, broker, tracker, opts)
	if err != nil {
		return nil, err
	}
	return append(out, more...), nil
}

func (p *Pipeline) runImage(ctx context.Context, data []byte, broker *records.Broker, tracker *cost.Tracker, opts Options) ([]records.Record, error) {
	return p.parseUnit(ctx, unit{index: 0, images: [][]byte{data}}, broker, tracker, opts, true)
}

// runUnits executes units in bounded batches with an await between
// batches, so schema additions from one batch reach the prompts of the
// next. Only the LLM calls run in parallel: each batch's records fold
// through the broker in unit order after the batch completes, so the
// schema (and results) come out the same on every run.
func (p *Pipeline) runUnits(ctx context.Context, units []unit, broker *records.Broker, tracker *cost.Tracker, opts Options) ([]records.Record, error) {
	if len(units) == 0 {
		return nil, nil
	}

	results := make([][]records.Record, len(units))
	for start := 0; start < len(units); start += p.cfg.BatchConcurrency {
		end := min(start+p.cfg.BatchConcurrency, len(units))

		raw := make([][]records.Record, end-start)
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				recs, err := p.fetchUnit(gctx, units[i], broker, tracker, opts)
				if err != nil {
					return err
				}
				raw[i-start] = recs
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for i := start; i < end; i++ {
			if len(raw[i-start]) == 0 {
				continue
			}
			results[i] = broker.Normalize(raw[i-start])
		}
	}

	var out []records.Record
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// parseUnit fetches one unit and folds its records through the broker
// immediately. Used for serial units; batched units fold in runUnits.
func (p *Pipeline) parseUnit(ctx context.Context, u unit, broker *records.Broker, tracker *cost.Tracker, opts Options, declare bool) ([]records.Record, error) {
	recs, err := p.fetchUnit(ctx, u, broker, tracker, opts)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	if declare {
		return broker.Declare(recs)
	}
	return broker.Normalize(recs), nil
}

// fetchUnit runs the LLM call for a unit and salvages the response into
// raw records, without touching the broker. A response with no opening
// bracket and no salvageable objects is retried exactly once; a unit
// that still yields nothing contributes zero records without failing
// the document. Transport errors always propagate.
func (p *Pipeline) fetchUnit(ctx context.Context, u unit, broker *records.Broker, tracker *cost.Tracker, opts Options) ([]records.Record, error) {
	prompt := buildPrompt(broker.Columns(), broker.Samples(), u.text, len(u.images) > 0)

	comp, err := p.callLLM(ctx, prompt, u.images, opts)
	if err != nil {
		return nil, err
	}
	tracker.Add(comp.PromptTokens, comp.CompletionTokens)

	objs := jsonarr.ParseArray(comp.Text)
	if len(objs) == 0 && !strings.Contains(comp.Text, "[") {
		p.log.Debug("response had no array, retrying unit once",
			"unit", u.index, "request_id", comp.RequestID)
		comp, err = p.callLLM(ctx, prompt, u.images, opts)
		if err != nil {
			return nil, err
		}
		tracker.Add(comp.PromptTokens, comp.CompletionTokens)
		objs = jsonarr.ParseArray(comp.Text)
	}

	recs := objectsToRecords(objs)
	if len(recs) == 0 && len(u.images) > 0 && p.ocr != nil {
		recs, err = p.ocrFallback(ctx, u, broker, tracker, opts)
		if err != nil {
			return nil, err
		}
	}
	if len(recs) == 0 {
		p.log.Debug("unit yielded no records",
			"unit", u.index, "request_id", comp.RequestID)
	}
	return recs, nil
}

// ocrFallback runs when LLM vision cannot read a page: the page goes
// through the OCR collaborator and its text through one text-mode call.
func (p *Pipeline) ocrFallback(ctx context.Context, u unit, broker *records.Broker, tracker *cost.Tracker, opts Options) ([]records.Record, error) {
	hints := opts.LanguageHints
	if len(hints) == 0 {
		hints = p.cfg.LanguageHints
	}

	text, err := p.ocr.OCRImage(ctx, u.images[0], hints)
	if err != nil {
		p.log.Warn("ocr fallback failed", "unit", u.index, "error", err)
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	p.log.Debug("ocr fallback produced text", "unit", u.index, "chars", len(text))

	prompt := buildPrompt(broker.Columns(), broker.Samples(), chunk.MergeLines(text), false)
	comp, err := p.callLLM(ctx, prompt, nil, opts)
	if err != nil {
		return nil, err
	}
	tracker.Add(comp.PromptTokens, comp.CompletionTokens)
	return objectsToRecords(jsonarr.ParseArray(comp.Text)), nil
}

func (p *Pipeline) callLLM(ctx context.Context, prompt string, images [][]byte, opts Options) (*providers.Completion, error) {
	maxTokens := opts.LLMMaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxOutputTokens
	}
	po := providers.Options{
		Model:           p.cfg.Model,
		MaxOutputTokens: maxTokens,
		Timeout:         p.cfg.CallTimeout,
	}
	if len(images) > 0 {
		return p.llm.CompleteVision(ctx, prompt, images, po)
	}
	return p.llm.Complete(ctx, prompt, po)
}

func objectsToRecords(objs []jsonarr.Object) []records.Record {
	recs := make([]records.Record, 0, len(objs))
	for _, o := range objs {
		if len(o.Keys) == 0 {
			continue
		}
		recs = append(recs, records.Record{Columns: o.Keys, Values: o.Fields})
	}
	return recs
}
