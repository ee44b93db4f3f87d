package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// maxTxnRetries bounds retries of a transaction that lost a write conflict.
const maxTxnRetries = 5

// BadgerDict implements Dict using Badger v3.
type BadgerDict struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	// Metrics (internal counters)
	lastGCTime       atomic.Int64  // Unix milliseconds
	gcBytesReclaimed atomic.Uint64 // Total bytes reclaimed by GC

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsTotalSize    prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCReclaimed  prometheus.Counter

	// Shutdown
	closeOnce sync.Once
	closed    atomic.Bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// OpenBadger opens a Badger-backed dictionary.
func OpenBadger(cfg BadgerConfig, logger *slog.Logger) (*BadgerDict, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	d := &BadgerDict{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		d.wg.Add(1)
		go d.gcLoop()
	}

	logger.Info("badger dict opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"sync_writes", cfg.SyncWrites,
		"gc_interval", cfg.GCInterval)

	return d, nil
}

// Get retrieves a value by key.
func (d *BadgerDict) Get(_ context.Context, key string) ([]byte, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores a key-value pair.
func (d *BadgerDict) Set(_ context.Context, key string, value []byte) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete removes a key.
func (d *BadgerDict) Delete(_ context.Context, key string) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// DeleteIf removes key inside one transaction if pred accepts its value.
// A concurrent write to the key aborts the transaction and pred is
// re-evaluated against the new value.
func (d *BadgerDict) DeleteIf(_ context.Context, key string, pred func(current []byte) bool) (bool, error) {
	if d.closed.Load() {
		return false, ErrClosed
	}

	var deleted bool
	err := d.update(func(txn *badger.Txn) error {
		deleted = false

		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !pred(value) {
			return nil
		}

		deleted = true
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// Scan iterates over keys with a given prefix.
func (d *BadgerDict) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) bool) error {
	if d.closed.Load() {
		return ErrClosed
	}

	return d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			if !fn(string(item.Key()), value) {
				break
			}
		}

		return nil
	})
}

// DeletePrefix removes every key with the given prefix using a write batch.
func (d *BadgerDict) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if d.closed.Load() {
		return 0, ErrClosed
	}

	var keys [][]byte
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // Only need keys
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	wb := d.db.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return 0, fmt.Errorf("badger: batch delete: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("badger: flush batch: %w", err)
	}

	d.logger.Debug("deleted prefix", "prefix", prefix, "deleted_count", len(keys))
	return len(keys), nil
}

// Backup writes a full backup of the dictionary to w.
func (d *BadgerDict) Backup(_ context.Context, w io.Writer) (uint64, error) {
	if d.closed.Load() {
		return 0, ErrClosed
	}
	version, err := d.db.Backup(w, 0)
	if err != nil {
		return 0, fmt.Errorf("badger: backup: %w", err)
	}
	return version, nil
}

// Restore replaces the dictionary contents with a backup read from r.
func (d *BadgerDict) Restore(_ context.Context, r io.Reader) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if err := d.db.DropAll(); err != nil {
		return fmt.Errorf("badger: drop existing data: %w", err)
	}
	if err := d.db.Load(r, 256); err != nil {
		return fmt.Errorf("badger: load backup: %w", err)
	}
	d.logger.Info("backup restored")
	return nil
}

// GC runs value log garbage collection until nothing more can be reclaimed.
// Returns bytes reclaimed (approximate).
func (d *BadgerDict) GC(_ context.Context) (uint64, error) {
	if d.cfg.InMemory {
		return 0, nil
	}
	startTime := time.Now()

	var totalReclaimed uint64
	for {
		err := d.db.RunValueLogGC(d.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return totalReclaimed, fmt.Errorf("gc: %w", err)
		}

		// Badger doesn't report reclaimed bytes; count one value log file per cycle.
		totalReclaimed += uint64(d.db.Opts().ValueLogFileSize)
	}

	d.lastGCTime.Store(time.Now().UnixMilli())
	d.gcBytesReclaimed.Add(totalReclaimed)
	if d.metricsGCReclaimed != nil {
		d.metricsGCReclaimed.Add(float64(totalReclaimed))
	}

	d.logger.Debug("gc completed",
		"bytes_reclaimed", totalReclaimed,
		"elapsed", time.Since(startTime))

	return totalReclaimed, nil
}

// Stats returns storage statistics.
func (d *BadgerDict) Stats(_ context.Context) (*DictStats, error) {
	lsm, vlog := d.db.Size()

	return &DictStats{
		TotalSize:        uint64(lsm + vlog),
		LSMSize:          uint64(lsm),
		ValueLogSize:     uint64(vlog),
		LastGCTime:       d.lastGCTime.Load(),
		GCBytesReclaimed: d.gcBytesReclaimed.Load(),
	}, nil
}

// Close stops background loops and closes the database. Safe to call twice.
func (d *BadgerDict) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.logger.Debug("closing badger dict")
		d.closed.Store(true)
		close(d.stopCh)
		d.wg.Wait()

		if cerr := d.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
		}
	})
	return err
}

// RegisterMetrics registers Badger size gauges with registry and starts
// a loop refreshing them every interval.
// Returns the dict for method chaining.
func (d *BadgerDict) RegisterMetrics(registry prometheus.Registerer, interval time.Duration) *BadgerDict {
	d.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tokvault",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	d.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tokvault",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	d.metricsTotalSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tokvault",
		Subsystem: "badger",
		Name:      "total_size_bytes",
		Help:      "Badger total storage size in bytes (LSM + value log)",
	})

	d.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tokvault",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	d.metricsGCReclaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tokvault",
		Subsystem: "badger",
		Name:      "gc_bytes_reclaimed_total",
		Help:      "Total bytes reclaimed by Badger garbage collection",
	})

	registry.MustRegister(
		d.metricsLSMSize,
		d.metricsValueLogSize,
		d.metricsTotalSize,
		d.metricsLastGCTime,
		d.metricsGCReclaimed,
	)

	d.refreshMetrics()
	if interval > 0 {
		d.wg.Add(1)
		go d.metricsUpdateLoop(interval)
	}

	return d
}

func (d *BadgerDict) refreshMetrics() {
	stats, err := d.Stats(context.Background())
	if err != nil {
		return
	}

	d.metricsLSMSize.Set(float64(stats.LSMSize))
	d.metricsValueLogSize.Set(float64(stats.ValueLogSize))
	d.metricsTotalSize.Set(float64(stats.TotalSize))
	if stats.LastGCTime > 0 {
		d.metricsLastGCTime.Set(float64(stats.LastGCTime) / 1000.0)
	}
}

// metricsUpdateLoop periodically updates Prometheus gauges.
func (d *BadgerDict) metricsUpdateLoop(interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.refreshMetrics()
		case <-d.stopCh:
			return
		}
	}
}

// gcLoop runs periodic garbage collection.
func (d *BadgerDict) gcLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := d.GC(ctx); err != nil {
				d.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-d.stopCh:
			return
		}
	}
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (d *BadgerDict) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = d.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
