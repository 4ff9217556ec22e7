// Package config loads and hot-reloads the service configuration via
// viper. Values come from defaults, an optional YAML config file, and
// LEDGERLENS_-prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full configuration tree.
type Config struct {
	Cache    CacheConfig    `mapstructure:"cache"`
	LLM      LLMConfig      `mapstructure:"llm"`
	FX       FXConfig       `mapstructure:"fx"`
	PDF      PDFConfig      `mapstructure:"pdf"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Store    StoreConfig    `mapstructure:"store"`
}

// CacheConfig controls the parse cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTLDays int    `mapstructure:"ttl_days"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// LLMConfig controls the LLM client and its pricing.
type LLMConfig struct {
	Model           string  `mapstructure:"model"`
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	PriceInputPerM  float64 `mapstructure:"price_input_per_m"`
	PriceOutputPerM float64 `mapstructure:"price_output_per_m"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

// FXConfig holds reporting exchange rates.
type FXConfig struct {
	USDToKRW float64 `mapstructure:"usd_to_krw"`
}

// PDFConfig controls rasterization.
type PDFConfig struct {
	MaxPages    int     `mapstructure:"max_pages"`
	RasterScale float64 `mapstructure:"raster_scale"`
}

// PipelineConfig controls orchestration.
type PipelineConfig struct {
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	ChunkTargetChars int           `mapstructure:"chunk_target_chars"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	WallClockBudget  time.Duration `mapstructure:"wall_clock_budget"`
	RulesEnabled     bool          `mapstructure:"rules_enabled"`
}

// OCRConfig controls the optional vision-OCR collaborator.
type OCRConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	LanguageHints []string `mapstructure:"language_hints"`
}

// StoreConfig controls the object-store ingest path.
type StoreConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Enabled: true,
			TTLDays: 30,
			Driver:  "sqlite",
			DSN:     "ledgerlens.db",
		},
		LLM: LLMConfig{
			Model:           "anthropic/claude-3.5-sonnet",
			PriceInputPerM:  3.0,
			PriceOutputPerM: 15.0,
			MaxOutputTokens: 4096,
		},
		FX:  FXConfig{USDToKRW: 1350},
		PDF: PDFConfig{MaxPages: 50, RasterScale: 1.5},
		Pipeline: PipelineConfig{
			BatchConcurrency: 10,
			ChunkTargetChars: 2000,
			CallTimeout:      60 * time.Second,
			WallClockBudget:  5 * time.Minute,
			RulesEnabled:     true,
		},
		OCR: OCRConfig{LanguageHints: []string{"ko", "en"}},
	}
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a manager and loads the initial config. cfgFile may
// be empty, in which case config.yaml is searched in the working
// directory and $HOME/.ledgerlens.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

func (m *Manager) initViper(cfgFile string) error {
	setDefaults(m.v, Default())

	m.v.SetEnvPrefix("LEDGERLENS")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	if cfgFile != "" {
		m.v.SetConfigFile(cfgFile)
	} else {
		m.v.SetConfigName("config")
		m.v.SetConfigType("yaml")
		m.v.AddConfigPath(".")
		m.v.AddConfigPath("$HOME/.ledgerlens")
	}

	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl_days", d.Cache.TTLDays)
	v.SetDefault("cache.driver", d.Cache.Driver)
	v.SetDefault("cache.dsn", d.Cache.DSN)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.price_input_per_m", d.LLM.PriceInputPerM)
	v.SetDefault("llm.price_output_per_m", d.LLM.PriceOutputPerM)
	v.SetDefault("llm.max_output_tokens", d.LLM.MaxOutputTokens)
	v.SetDefault("fx.usd_to_krw", d.FX.USDToKRW)
	v.SetDefault("pdf.max_pages", d.PDF.MaxPages)
	v.SetDefault("pdf.raster_scale", d.PDF.RasterScale)
	v.SetDefault("pipeline.batch_concurrency", d.Pipeline.BatchConcurrency)
	v.SetDefault("pipeline.chunk_target_chars", d.Pipeline.ChunkTargetChars)
	v.SetDefault("pipeline.call_timeout", d.Pipeline.CallTimeout)
	v.SetDefault("pipeline.wall_clock_budget", d.Pipeline.WallClockBudget)
	v.SetDefault("pipeline.rules_enabled", d.Pipeline.RulesEnabled)
	v.SetDefault("ocr.enabled", d.OCR.Enabled)
	v.SetDefault("ocr.language_hints", d.OCR.LanguageHints)
	v.SetDefault("store.bucket", d.Store.Bucket)
}

func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers a callback invoked after each successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch enables hot-reloading of the config file.
func (m *Manager) Watch() {
	m.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := m.load()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.config = cfg
		callbacks := append([]func(*Config){}, m.callbacks...)
		m.mu.Unlock()
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}
