package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/tokvault-go/internal/core/domain"
	"github.com/yndnr/tokvault-go/internal/storage/codec"
	"github.com/yndnr/tokvault-go/internal/telemetry/metric"
)

// DefaultNamespace prefixes every key the store writes.
const DefaultNamespace = "tokvault"

const (
	recordSegment = ":rec:"
	saltSegment   = ":salt"
)

// Stats describes the records currently held by a store.
type Stats struct {
	Count           int   `json:"count" yaml:"count"`
	TotalBytes      int64 `json:"totalBytes" yaml:"totalBytes"`
	EncryptedCount  int   `json:"encryptedCount" yaml:"encryptedCount"`
	CompressedCount int   `json:"compressedCount" yaml:"compressedCount"`
	ExpiredCount    int   `json:"expiredCount" yaml:"expiredCount"`

	// ExpiredRemoved is the number of expired records this store has
	// removed since it was opened, on read or by sweep.
	ExpiredRemoved int64 `json:"expiredRemoved" yaml:"expiredRemoved"`
}

// Store is a namespaced record store with TTL expiry over a Dict.
//
// Reads are self-healing: a tampered, expired or corrupt record is removed
// and reported absent. A record whose key is unavailable is kept and the
// read fails with domain.ErrKeyUnavailable.
type Store struct {
	dict  Dict
	codec *codec.Codec

	namespace string
	recPrefix string

	limiter *rate.Limiter
	metrics *metric.StoreMetrics
	logger  *slog.Logger

	sweeping       atomic.Bool
	expiredRemoved atomic.Int64
}

// Option configures the Store.
type Option func(*Store)

// WithNamespace sets the key namespace.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithDeleteRateLimit bounds sweep deletions per second. Zero means unlimited.
func WithDeleteRateLimit(perSec float64) Option {
	return func(s *Store) {
		if perSec > 0 {
			burst := int(perSec)
			if burst < 1 {
				burst = 1
			}
			s.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metric.StoreMetrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store over dict using c to encode records.
func NewStore(dict Dict, c *codec.Codec, opts ...Option) *Store {
	s := &Store{
		dict:      dict,
		codec:     c,
		namespace: DefaultNamespace,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.recPrefix = s.namespace + recordSegment
	return s
}

// Namespace returns the key namespace.
func (s *Store) Namespace() string {
	return s.namespace
}

// RecordKey returns the raw dictionary key for a record name.
func (s *Store) RecordKey(name string) string {
	return s.recPrefix + name
}

// SaltKey returns the raw dictionary key of the salt entry.
func (s *Store) SaltKey() string {
	return s.namespace + saltSegment
}

// Set encodes value and writes it under name, replacing any previous record.
func (s *Store) Set(ctx context.Context, name string, value any, opts codec.Options) error {
	if err := validateName(name); err != nil {
		return err
	}

	key := s.RecordKey(name)
	rec, err := s.codec.Encode(value, opts, []byte(key))
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", name, err)
	}
	raw, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", name, err)
	}

	if err := s.dict.Set(ctx, key, raw); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}

	s.metrics.ObserveSet(rec.Encrypted)
	s.logger.Debug("record stored",
		"name", name,
		"encrypted", rec.Encrypted,
		"compressed", rec.Compressed,
		"ttl", opts.TTL,
		"bytes", len(raw))
	return nil
}

// Get decodes the record stored under name into dst.
// It reports false with a nil error when the record is absent or was
// discarded as tampered, expired or corrupt.
func (s *Store) Get(ctx context.Context, name string, dst any) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}

	key := s.RecordKey(name)
	raw, err := s.dict.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			s.metrics.ObserveGet(metric.ReadMiss)
			return false, nil
		}
		s.metrics.ObserveGet(metric.ReadError)
		return false, domain.ErrStorageError.WithCause(err)
	}

	rec, err := domain.ParseRecord(raw)
	if err == nil {
		err = s.codec.Decode(rec, dst, []byte(key))
	}

	switch {
	case err == nil:
		s.metrics.ObserveGet(metric.ReadHit)
		return true, nil

	case domain.IsDiscardable(err):
		s.metrics.ObserveGet(metric.ReadDiscarded)
		s.discard(ctx, name, raw, err)
		return false, nil

	case errors.Is(err, domain.ErrKeyUnavailable):
		s.metrics.ObserveGet(metric.ReadKeyUnavailable)
		s.logger.Debug("record key unavailable", "name", name, "error", err)
		return false, err

	default:
		s.metrics.ObserveGet(metric.ReadError)
		return false, err
	}
}

// Remove deletes the record stored under name.
func (s *Store) Remove(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := s.dict.Delete(ctx, s.RecordKey(name)); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	s.metrics.ObserveDelete(metric.DeleteExplicit, 1)
	return nil
}

// Has reports whether a valid, unexpired record exists under name.
// It checks integrity and expiry only and never removes anything.
func (s *Store) Has(ctx context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}

	raw, err := s.dict.Get(ctx, s.RecordKey(name))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, domain.ErrStorageError.WithCause(err)
	}
	return s.live(raw), nil
}

// Keys returns the names of valid, unexpired records in key order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.dict.Scan(ctx, s.recPrefix, func(key string, value []byte) bool {
		if s.live(value) {
			names = append(names, strings.TrimPrefix(key, s.recPrefix))
		}
		return true
	})
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return names, nil
}

// SweepExpired removes expired and unparseable records.
//
// Candidates are chosen from record metadata without decryption. Each is
// re-checked inside an atomic conditional delete, so a record rewritten
// after the scan survives. Only one sweep runs at a time; a concurrent
// call fails with domain.ErrSweepInProgress.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return 0, domain.ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	sweepID := ulid.Make().String()
	start := time.Now()
	now := s.codec.Now()

	var candidates []string
	scanned := 0
	err := s.dict.Scan(ctx, s.recPrefix, func(key string, value []byte) bool {
		scanned++
		rec, err := domain.ParseRecord(value)
		if err != nil || rec.IsExpired(now) {
			candidates = append(candidates, key)
		}
		return true
	})
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}

	removed := 0
	for _, key := range candidates {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				s.finishSweep(sweepID, scanned, removed, start)
				return removed, err
			}
		}

		expired := false
		deleted, err := s.dict.DeleteIf(ctx, key, func(current []byte) bool {
			rec, err := domain.ParseRecord(current)
			if err != nil {
				expired = false
				return true
			}
			expired = rec.IsExpired(s.codec.Now())
			return expired
		})
		if err != nil {
			s.finishSweep(sweepID, scanned, removed, start)
			return removed, domain.ErrStorageError.WithCause(err)
		}
		if !deleted {
			continue
		}

		removed++
		if expired {
			s.expiredRemoved.Add(1)
			s.metrics.ObserveDelete(metric.DeleteExpired, 1)
		} else {
			s.metrics.ObserveDelete(metric.DeleteCorrupt, 1)
		}
	}

	s.finishSweep(sweepID, scanned, removed, start)
	return removed, nil
}

func (s *Store) finishSweep(sweepID string, scanned, removed int, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.ObserveSweep(removed, elapsed.Seconds())

	level := slog.LevelDebug
	if removed > 0 {
		level = slog.LevelInfo
	}
	s.logger.Log(context.Background(), level, "sweep completed",
		"sweep_id", sweepID,
		"scanned", scanned,
		"removed", removed,
		"elapsed", elapsed)
}

// Stats describes the stored records. It never removes anything.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.codec.Now()
	stats := &Stats{}

	err := s.dict.Scan(ctx, s.recPrefix, func(_ string, value []byte) bool {
		stats.Count++
		stats.TotalBytes += int64(len(value))

		rec, err := domain.ParseRecord(value)
		if err != nil {
			return true
		}
		if rec.Encrypted {
			stats.EncryptedCount++
		}
		if rec.Compressed {
			stats.CompressedCount++
		}
		if rec.IsExpired(now) {
			stats.ExpiredCount++
		}
		return true
	})
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	stats.ExpiredRemoved = s.expiredRemoved.Load()
	return stats, nil
}

// Clear removes every record. The salt entry is kept.
func (s *Store) Clear(ctx context.Context) (int, error) {
	n, err := s.dict.DeletePrefix(ctx, s.recPrefix)
	if err != nil {
		return n, domain.ErrStorageError.WithCause(err)
	}
	s.metrics.ObserveDelete(metric.DeleteClear, n)
	s.logger.Info("records cleared", "namespace", s.namespace, "deleted_count", n)
	return n, nil
}

// LoadSalt returns the raw salt entry, or ErrKeyNotFound.
func (s *Store) LoadSalt(ctx context.Context) ([]byte, error) {
	raw, err := s.dict.Get(ctx, s.SaltKey())
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, err
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return raw, nil
}

// SaveSalt writes the raw salt entry.
func (s *Store) SaveSalt(ctx context.Context, raw []byte) error {
	if err := s.dict.Set(ctx, s.SaltKey(), raw); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// DeleteSalt removes the salt entry.
func (s *Store) DeleteSalt(ctx context.Context) error {
	if err := s.dict.Delete(ctx, s.SaltKey()); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// discard removes a spoiled record if it still holds the bytes that were read.
func (s *Store) discard(ctx context.Context, name string, raw []byte, cause error) {
	deleted, err := s.dict.DeleteIf(ctx, s.RecordKey(name), func(current []byte) bool {
		return bytes.Equal(current, raw)
	})
	if err != nil {
		s.logger.Error("discard record failed", "name", name, "error", err)
		return
	}
	if !deleted {
		return
	}

	switch {
	case errors.Is(cause, domain.ErrExpired):
		s.expiredRemoved.Add(1)
		s.metrics.ObserveDelete(metric.DeleteExpired, 1)
		s.logger.Debug("expired record removed", "name", name)
	case errors.Is(cause, domain.ErrTampered):
		s.metrics.ObserveDelete(metric.DeleteTampered, 1)
		s.logger.Warn("tampered record removed", "name", name, "error", cause)
	default:
		s.metrics.ObserveDelete(metric.DeleteCorrupt, 1)
		s.logger.Warn("corrupt record removed", "name", name, "error", cause)
	}
}

// live reports whether raw parses, passes its checksum and is unexpired.
func (s *Store) live(raw []byte) bool {
	rec, err := domain.ParseRecord(raw)
	if err != nil {
		return false
	}
	return s.codec.Inspect(rec) == nil
}

func validateName(name string) error {
	if name == "" {
		return domain.ErrInvalidArgument.WithDetails("empty record name")
	}
	return nil
}
