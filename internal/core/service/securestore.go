package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/yndnr/tokvault-go/internal/core/domain"
	"github.com/yndnr/tokvault-go/internal/keymgr"
	"github.com/yndnr/tokvault-go/internal/storage"
	"github.com/yndnr/tokvault-go/internal/storage/codec"
)

// RecordStore defines the storage interface used by SecureStore.
type RecordStore interface {
	Set(ctx context.Context, name string, value any, opts codec.Options) error
	Get(ctx context.Context, name string, dst any) (bool, error)
	Remove(ctx context.Context, name string) error
	Keys(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*storage.Stats, error)
	SweepExpired(ctx context.Context) (int, error)
	Clear(ctx context.Context) (int, error)

	// LoadSalt returns storage.ErrKeyNotFound when no salt is persisted.
	LoadSalt(ctx context.Context) ([]byte, error)
	SaveSalt(ctx context.Context, raw []byte) error
	DeleteSalt(ctx context.Context) error
}

// KeyManager defines the key operations used by SecureStore.
type KeyManager interface {
	Params() keymgr.KDFParams
	GenerateKey() (*keymgr.Key, error)
	DeriveKeyWithParams(passphrase, salt []byte, params keymgr.KDFParams) (*keymgr.Key, error)
	SetMasterKey(k *keymgr.Key)
	MasterKey() (*keymgr.Key, bool)
	ClearCache()
	Reset()
}

// Config holds SecureStore settings.
type Config struct {
	Policy Policy

	// SweepInterval is the period of the background expiry sweep.
	// Zero disables it.
	SweepInterval time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Policy:        DefaultPolicy(),
		SweepInterval: storage.DefaultSweepInterval,
	}
}

// KeySource tells how the master key was established.
type KeySource string

const (
	KeySourceNone       KeySource = ""
	KeySourcePassphrase KeySource = "passphrase"
	KeySourceSession    KeySource = "session"
)

// SecureStore is the named-store facade.
type SecureStore struct {
	store   RecordStore
	keys    KeyManager
	sweeper *storage.Sweeper
	policy  Policy
	clock   clock.Clock
	logger  *slog.Logger

	mu     sync.RWMutex
	source KeySource
}

// New creates a SecureStore. Initialize must be called before any
// Store or Get operation.
func New(store RecordStore, keys KeyManager, cfg *Config) *SecureStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SecureStore{
		store:   store,
		keys:    keys,
		sweeper: storage.NewSweeper(store, cfg.SweepInterval, clk, logger),
		policy:  cfg.Policy.withDefaults(),
		clock:   clk,
		logger:  logger,
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

// Initialize establishes the master key and starts the background sweeper.
//
// With a passphrase the key is derived from it and the persisted salt,
// creating the salt on first use. Without one a random session key is
// generated; data encrypted with it is unreadable after Close.
// Calling Initialize again is a no-op.
func (s *SecureStore) Initialize(ctx context.Context, passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source != KeySourceNone {
		return nil
	}

	var (
		key    *keymgr.Key
		source KeySource
		err    error
	)
	if passphrase != "" {
		key, err = s.deriveMasterKey(ctx, []byte(passphrase))
		source = KeySourcePassphrase
	} else {
		key, err = s.keys.GenerateKey()
		source = KeySourceSession
	}
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.keys.SetMasterKey(key)
	s.source = source
	s.sweeper.Start()

	s.logger.Info("secure store initialized", "key_source", string(source), "key_id", key.ID())
	return nil
}

func (s *SecureStore) deriveMasterKey(ctx context.Context, passphrase []byte) (*keymgr.Key, error) {
	raw, err := s.store.LoadSalt(ctx)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		return s.createSalt(ctx, passphrase)
	case err != nil:
		return nil, fmt.Errorf("load salt: %w", err)
	}

	entry, err := parseSaltEntry(raw)
	if err != nil {
		return nil, err
	}
	params, err := entry.params()
	if err != nil {
		return nil, fmt.Errorf("salt params: %w", err)
	}
	return s.keys.DeriveKeyWithParams(passphrase, entry.Salt, params)
}

func (s *SecureStore) createSalt(ctx context.Context, passphrase []byte) (*keymgr.Key, error) {
	salt, err := keymgr.GenerateSalt()
	if err != nil {
		return nil, err
	}
	params := s.keys.Params()

	// Derive before persisting so invalid parameters leave no salt behind.
	key, err := s.keys.DeriveKeyWithParams(passphrase, salt, params)
	if err != nil {
		return nil, err
	}

	raw, err := newSaltEntry(salt, params, s.clock.Now()).marshal()
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveSalt(ctx, raw); err != nil {
		return nil, fmt.Errorf("save salt: %w", err)
	}

	s.logger.Info("salt created", "kdf", string(params.KDF))
	return key, nil
}

// Initialized reports whether a master key is established.
func (s *SecureStore) Initialized() bool {
	return s.KeySource() != KeySourceNone
}

// KeySource returns how the master key was established.
func (s *SecureStore) KeySource() KeySource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Close stops the sweeper and drops every key. Stored data is kept.
func (s *SecureStore) Close() error {
	s.sweeper.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys.Reset()
	s.source = KeySourceNone
	return nil
}

func (s *SecureStore) requireInit() error {
	if !s.Initialized() {
		return domain.ErrNotInitialized
	}
	return nil
}

// ============================================================================
// Auth token
// ============================================================================

// StoreAuthToken stores token encrypted, expiring after expiresIn.
// Zero expiresIn applies the policy default.
func (s *SecureStore) StoreAuthToken(ctx context.Context, token string, expiresIn time.Duration) error {
	if expiresIn < 0 {
		return domain.ErrInvalidArgument.WithDetails("negative token lifetime")
	}
	return s.set(ctx, NameAuthToken, token, s.policy.authToken(expiresIn))
}

// GetAuthToken returns the stored token and whether it was present.
func (s *SecureStore) GetAuthToken(ctx context.Context) (string, bool, error) {
	var token string
	ok, err := s.get(ctx, NameAuthToken, &token)
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Logout removes the auth token and session data and clears cached keys.
// Preferences, settings and cached queries are kept.
func (s *SecureStore) Logout(ctx context.Context) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	for _, name := range []string{NameAuthToken, NameSessionData} {
		if err := s.store.Remove(ctx, name); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}
	s.keys.ClearCache()
	s.logger.Info("logged out")
	return nil
}

// ============================================================================
// Session data, preferences, settings
// ============================================================================

// StoreSessionData stores v encrypted with the session TTL.
func (s *SecureStore) StoreSessionData(ctx context.Context, v any) error {
	return s.set(ctx, NameSessionData, v, s.policy.sessionData())
}

// GetSessionData decodes the session data into dst.
func (s *SecureStore) GetSessionData(ctx context.Context, dst any) (bool, error) {
	return s.get(ctx, NameSessionData, dst)
}

// StoreUserPreferences stores v compressed, without expiry.
func (s *SecureStore) StoreUserPreferences(ctx context.Context, v any) error {
	return s.set(ctx, NameUserPreferences, v, s.policy.userPreferences())
}

// GetUserPreferences decodes the user preferences into dst.
func (s *SecureStore) GetUserPreferences(ctx context.Context, dst any) (bool, error) {
	return s.get(ctx, NameUserPreferences, dst)
}

// StoreSensitiveSettings stores v encrypted, without expiry.
func (s *SecureStore) StoreSensitiveSettings(ctx context.Context, v any) error {
	return s.set(ctx, NameSensitiveSettings, v, s.policy.sensitiveSettings())
}

// GetSensitiveSettings decodes the sensitive settings into dst.
func (s *SecureStore) GetSensitiveSettings(ctx context.Context, dst any) (bool, error) {
	return s.get(ctx, NameSensitiveSettings, dst)
}

// ============================================================================
// Cached queries
// ============================================================================

// StoreCachedQuery stores v compressed under the query ID with the cache TTL.
func (s *SecureStore) StoreCachedQuery(ctx context.Context, id string, v any) error {
	if id == "" {
		return domain.ErrInvalidArgument.WithDetails("empty query id")
	}
	return s.set(ctx, CachedQueryName(id), v, s.policy.cachedQuery())
}

// GetCachedQuery decodes the cached query result into dst.
func (s *SecureStore) GetCachedQuery(ctx context.Context, id string, dst any) (bool, error) {
	if id == "" {
		return false, domain.ErrInvalidArgument.WithDetails("empty query id")
	}
	return s.get(ctx, CachedQueryName(id), dst)
}

// ============================================================================
// Maintenance
// ============================================================================

// ClearAll removes every record and returns how many were removed.
// The salt is kept, so the same passphrase derives the same key afterwards.
func (s *SecureStore) ClearAll(ctx context.Context) (int, error) {
	if err := s.requireInit(); err != nil {
		return 0, err
	}
	n, err := s.store.Clear(ctx)
	if err != nil {
		return n, fmt.Errorf("clear all: %w", err)
	}
	return n, nil
}

// Purge removes every record and the salt, then drops every key.
// Data encrypted under the old passphrase can no longer be derived.
// The store returns to the uninitialized state.
func (s *SecureStore) Purge(ctx context.Context) (int, error) {
	s.sweeper.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Clear(ctx)
	if err != nil {
		s.resumeSweep()
		return n, fmt.Errorf("purge records: %w", err)
	}
	if err := s.store.DeleteSalt(ctx); err != nil {
		s.resumeSweep()
		return n, fmt.Errorf("purge salt: %w", err)
	}
	s.keys.Reset()
	s.source = KeySourceNone

	s.logger.Warn("secure store purged", "deleted_count", n)
	return n, nil
}

// resumeSweep restarts the sweeper after a failed wipe. Callers hold s.mu.
func (s *SecureStore) resumeSweep() {
	if s.source != KeySourceNone {
		s.sweeper.Start()
	}
}

// GetStorageStats describes the stored records.
func (s *SecureStore) GetStorageStats(ctx context.Context) (*storage.Stats, error) {
	return s.store.Stats(ctx)
}

// Keys lists the names of live records.
func (s *SecureStore) Keys(ctx context.Context) ([]string, error) {
	return s.store.Keys(ctx)
}

// SweepExpired runs an expiry sweep now.
func (s *SecureStore) SweepExpired(ctx context.Context) (int, error) {
	return s.store.SweepExpired(ctx)
}

// SweeperRunning reports whether the background sweeper is active.
func (s *SecureStore) SweeperRunning() bool {
	return s.sweeper.Running()
}

func (s *SecureStore) set(ctx context.Context, name string, v any, opts codec.Options) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if err := s.store.Set(ctx, name, v, opts); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

func (s *SecureStore) get(ctx context.Context, name string, dst any) (bool, error) {
	if err := s.requireInit(); err != nil {
		return false, err
	}
	ok, err := s.store.Get(ctx, name, dst)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", name, err)
	}
	return ok, nil
}
