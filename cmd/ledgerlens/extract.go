package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/cache"
	"github.com/ledgerlens/ledgerlens/internal/cost"
	"github.com/ledgerlens/ledgerlens/internal/ocr"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
	"github.com/ledgerlens/ledgerlens/internal/providers"
	"github.com/ledgerlens/ledgerlens/internal/rules"
	"github.com/ledgerlens/ledgerlens/internal/store"
)

var (
	forceRefresh bool
	storeKey     string
	rasterScale  float64
	maxPages     int
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract transaction records from a bank statement",
	Long: `Extract parses a bank statement file and prints the records, schema,
and token cost as JSON. Results are cached by content fingerprint; a
repeat run on the same bytes is served from the cache at zero cost.

With --store-key the document is downloaded from the configured object
store bucket instead of the local path, and the storage object is
deleted once the extraction finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := newLogger()

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		mgr.Watch()

		cacheStore, err := cache.Open(cache.Config{
			Enabled: cfg.Cache.Enabled,
			Driver:  cfg.Cache.Driver,
			DSN:     cfg.Cache.DSN,
			TTLDays: cfg.Cache.TTLDays,
			Logger:  log,
		})
		if err != nil {
			// An unreachable cache degrades to uncached extraction.
			log.Warn("cache unavailable, proceeding without", "error", err)
			cacheStore, _ = cache.Open(cache.Config{Enabled: false, Logger: log})
		}

		llm := providers.NewOpenRouterClient(providers.OpenRouterConfig{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			DefaultModel: cfg.LLM.Model,
			Timeout:      cfg.Pipeline.CallTimeout,
		})

		var ruleReg *rules.Registry
		if cfg.Pipeline.RulesEnabled {
			ruleReg = rules.NewRegistry()
		}

		var objects *store.Store
		if storeKey != "" {
			if cfg.Store.Bucket == "" {
				return fmt.Errorf("--store-key requires store.bucket in config")
			}
			objects, err = store.New(ctx, cfg.Store.Bucket, log)
			if err != nil {
				return err
			}
			defer objects.Close()
		}

		p := pipeline.New(llm, cacheStore, ruleReg, objects, pipeline.Config{
			BatchConcurrency: cfg.Pipeline.BatchConcurrency,
			ChunkTargetChars: cfg.Pipeline.ChunkTargetChars,
			CallTimeout:      cfg.Pipeline.CallTimeout,
			WallClockBudget:  cfg.Pipeline.WallClockBudget,
			RasterScale:      cfg.PDF.RasterScale,
			MaxPages:         cfg.PDF.MaxPages,
			MaxOutputTokens:  cfg.LLM.MaxOutputTokens,
			Model:            cfg.LLM.Model,
			Pricing: cost.Pricing{
				InputPerM:  cfg.LLM.PriceInputPerM,
				OutputPerM: cfg.LLM.PriceOutputPerM,
				USDToKRW:   cfg.FX.USDToKRW,
			},
			LanguageHints: cfg.OCR.LanguageHints,
		}, log)

		if cfg.OCR.Enabled {
			ocrClient, err := ocr.New(ctx, log)
			if err != nil {
				log.Warn("ocr client unavailable, vision-only extraction", "error", err)
			} else {
				defer ocrClient.Close()
				p.SetOCR(ocrClient)
			}
		}

		opts := pipeline.Options{
			ForceRefresh: forceRefresh,
			RasterScale:  rasterScale,
			MaxPages:     maxPages,
		}

		var res *pipeline.Result
		if storeKey != "" {
			res, err = p.ExtractFromStore(ctx, storeKey, args[0], opts)
		} else {
			var data []byte
			data, err = os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err = p.Extract(ctx, data, filepath.Base(args[0]), opts)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	},
}

func init() {
	extractCmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "bypass the cache and re-parse")
	extractCmd.Flags().StringVar(&storeKey, "store-key", "", "download the document from the object store at this key")
	extractCmd.Flags().Float64Var(&rasterScale, "raster-scale", 0, "override the PDF raster scale")
	extractCmd.Flags().IntVar(&maxPages, "max-pages", 0, "override the rasterized page cap")
}
