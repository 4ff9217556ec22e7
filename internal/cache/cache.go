// Package cache is the content-addressed parse cache. Entries are keyed
// by the document fingerprint and expire after a configured TTL; a
// janitor reaps expired rows. The cache is strictly best-effort: an
// unreachable store degrades to a miss, never to a failed extraction.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ledgerlens/ledgerlens/internal/cost"
	"github.com/ledgerlens/ledgerlens/internal/fault"
	"github.com/ledgerlens/ledgerlens/internal/records"
	"github.com/ledgerlens/ledgerlens/internal/triage"
)

// DefaultTTLDays is the entry lifetime applied at Put.
const DefaultTTLDays = 30

// Config selects the backing store.
type Config struct {
	Enabled bool
	Driver  string // "sqlite" (default) or "postgres"
	DSN     string
	TTLDays int
	Logger  *slog.Logger
}

// Entry is the persisted row. Wire shape: file_hash is the primary key,
// records/schema/cost are JSON columns.
type Entry struct {
	FileHash  string         `gorm:"column:file_hash;primaryKey"`
	FileName  string         `gorm:"column:file_name"`
	FileSize  int64          `gorm:"column:file_size"`
	Kind      int            `gorm:"column:kind"`
	Records   datatypes.JSON `gorm:"column:records"`
	Schema    datatypes.JSON `gorm:"column:schema"`
	Cost      datatypes.JSON `gorm:"column:cost"`
	HitCount  int64          `gorm:"column:hit_count"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	ExpiresAt time.Time      `gorm:"column:expires_at"`
}

// TableName fixes the table name independent of gorm pluralization.
func (Entry) TableName() string { return "parse_cache" }

// CachedResult is the domain form of an entry.
type CachedResult struct {
	Fingerprint string
	FileName    string
	FileSize    int64
	Kind        triage.Kind
	Records     []records.Record
	Schema      []string
	Cost        cost.Cost
	CreatedAt   time.Time
	ExpiresAt   time.Time
	HitCount    int64
}

// Store wraps the cache database. A disabled store is valid and turns
// every operation into a no-op.
type Store struct {
	db      *gorm.DB
	ttl     time.Duration
	enabled bool
	log     *slog.Logger

	// now is swappable for TTL tests.
	now func() time.Time
}

// Open connects to the configured store and migrates the schema. A
// disabled config returns a no-op store without touching the database.
func Open(cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if !cfg.Enabled {
		return &Store{enabled: false, log: log, now: time.Now}, nil
	}

	ttlDays := cfg.TTLDays
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "ledgerlens.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}

	var db *gorm.DB
	err := retry.Do(
		func() error {
			var openErr error
			db, openErr = gorm.Open(dialector, &gorm.Config{
				Logger: gormlogger.Discard,
			})
			return openErr
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		return nil, fault.Wrap(fault.KindCacheUnavailable, err, "open cache store")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fault.Wrap(fault.KindCacheUnavailable, err, "migrate cache schema")
	}

	return &Store{
		db:      db,
		ttl:     time.Duration(ttlDays) * 24 * time.Hour,
		enabled: true,
		log:     log,
		now:     time.Now,
	}, nil
}

// Enabled reports whether the store is live.
func (s *Store) Enabled() bool { return s.enabled }

// Get returns the unexpired entry for the fingerprint, or miss. The hit
// counter is incremented best-effort; its failure is logged and ignored.
func (s *Store) Get(ctx context.Context, fp string) (*CachedResult, bool) {
	if !s.enabled {
		return nil, false
	}

	var e Entry
	err := s.db.WithContext(ctx).
		Where("file_hash = ? AND expires_at > ?", fp, s.now()).
		First(&e).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("cache read failed, treating as miss", "error", err)
		}
		return nil, false
	}

	if err := s.db.WithContext(ctx).Model(&Entry{}).
		Where("file_hash = ?", fp).
		UpdateColumn("hit_count", gorm.Expr("hit_count + 1")).Error; err != nil {
		s.log.Debug("hit count update failed", "error", err)
	}

	res, err := fromEntry(&e)
	if err != nil {
		s.log.Warn("cache entry undecodable, treating as miss", "fingerprint", fp, "error", err)
		return nil, false
	}
	return res, true
}

// Put upserts the entry and stamps expires_at = now + TTL. Idempotent
// under the same fingerprint; concurrent writers converge last-wins.
func (s *Store) Put(ctx context.Context, r CachedResult) error {
	if !s.enabled {
		return nil
	}

	e, err := toEntry(&r)
	if err != nil {
		return err
	}
	e.CreatedAt = s.now()
	e.ExpiresAt = s.now().Add(s.ttl)

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_hash"}},
		UpdateAll: true,
	}).Create(e).Error
	if err != nil {
		return fault.Wrap(fault.KindCacheUnavailable, err, "cache put")
	}
	return nil
}

// Delete removes the entry for the fingerprint.
func (s *Store) Delete(ctx context.Context, fp string) error {
	if !s.enabled {
		return nil
	}
	err := s.db.WithContext(ctx).Where("file_hash = ?", fp).Delete(&Entry{}).Error
	if err != nil {
		return fault.Wrap(fault.KindCacheUnavailable, err, "cache delete")
	}
	return nil
}

// ReapExpired deletes rows past their expiry and returns the count.
func (s *Store) ReapExpired(ctx context.Context) (int64, error) {
	if !s.enabled {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&Entry{})
	if res.Error != nil {
		return 0, fault.Wrap(fault.KindCacheUnavailable, res.Error, "cache reap")
	}
	return res.RowsAffected, nil
}

// Count returns the number of live entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if !s.enabled {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Where("expires_at > ?", s.now()).Count(&n).Error
	if err != nil {
		return 0, fault.Wrap(fault.KindCacheUnavailable, err, "cache count")
	}
	return n, nil
}

// StartJanitor reaps expired entries on the given interval until the
// context is cancelled.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if !s.enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.ReapExpired(ctx); err != nil {
					s.log.Warn("cache janitor failed", "error", err)
				} else if n > 0 {
					s.log.Info("cache janitor reaped entries", "count", n)
				}
			}
		}
	}()
}

func toEntry(r *CachedResult) (*Entry, error) {
	recs, err := json.Marshal(r.Records)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	schema, err := json.Marshal(r.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	c, err := json.Marshal(r.Cost)
	if err != nil {
		return nil, fmt.Errorf("marshal cost: %w", err)
	}
	return &Entry{
		FileHash: r.Fingerprint,
		FileName: r.FileName,
		FileSize: r.FileSize,
		Kind:     int(r.Kind),
		Records:  recs,
		Schema:   schema,
		Cost:     c,
		HitCount: r.HitCount,
	}, nil
}

func fromEntry(e *Entry) (*CachedResult, error) {
	r := &CachedResult{
		Fingerprint: e.FileHash,
		FileName:    e.FileName,
		FileSize:    e.FileSize,
		Kind:        triage.Kind(e.Kind),
		CreatedAt:   e.CreatedAt,
		ExpiresAt:   e.ExpiresAt,
		HitCount:    e.HitCount,
	}
	if err := json.Unmarshal(e.Records, &r.Records); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	if err := json.Unmarshal(e.Schema, &r.Schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	if err := json.Unmarshal(e.Cost, &r.Cost); err != nil {
		return nil, fmt.Errorf("unmarshal cost: %w", err)
	}
	return r, nil
}
