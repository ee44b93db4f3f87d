package keymgr

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/yndnr/tokvault-go/internal/core/domain"
	"github.com/yndnr/tokvault-go/pkg/cmap"
)

// Manager holds the master key and the named key cache.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	master *Key

	cache  *cmap.Map[*Key]
	params KDFParams
	logger *slog.Logger
}

// New creates a Manager that derives passphrase keys with params.
func New(params KDFParams, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cache:  cmap.New[*Key](),
		params: params,
		logger: logger,
	}
}

// Params returns the KDF parameters used by DeriveKey.
func (m *Manager) Params() KDFParams {
	return m.params
}

// GenerateKey returns a random 256-bit key.
func (m *Manager) GenerateKey() (*Key, error) {
	material, err := randomMaterial()
	if err != nil {
		return nil, err
	}
	return newKey(material)
}

// DeriveKey derives a key from passphrase and salt with the manager's
// parameters. Identical inputs always yield the same key.
func (m *Manager) DeriveKey(passphrase, salt []byte) (*Key, error) {
	return m.DeriveKeyWithParams(passphrase, salt, m.params)
}

// DeriveKeyWithParams derives a key with explicit parameters, typically the
// ones persisted next to the salt.
func (m *Manager) DeriveKeyWithParams(passphrase, salt []byte, params KDFParams) (*Key, error) {
	material, err := derive(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	return newKey(material)
}

// ExportKey returns a copy of the key material.
func (m *Manager) ExportKey(k *Key) []byte {
	out := make([]byte, len(k.material))
	copy(out, k.material)
	return out
}

// ImportKey wraps raw material as a Key.
func (m *Manager) ImportKey(material []byte) (*Key, error) {
	return newKey(material)
}

// SetMasterKey replaces the active master key.
func (m *Manager) SetMasterKey(k *Key) {
	m.mu.Lock()
	m.master = k
	m.mu.Unlock()

	if k != nil {
		m.logger.Debug("master key set", "key_id", k.ID())
	}
}

// MasterKey returns the active master key.
func (m *Manager) MasterKey() (*Key, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.master, m.master != nil
}

// CacheKey registers k under id.
func (m *Manager) CacheKey(id string, k *Key) error {
	if id == "" {
		return domain.ErrInvalidArgument.WithDetails("empty key id")
	}
	if k == nil {
		return domain.ErrInvalidKey.WithDetails("nil key")
	}
	m.cache.Set(id, k)
	m.logger.Debug("key cached", "key_id", id)
	return nil
}

// CachedKey returns the key registered under id.
func (m *Manager) CachedKey(id string) (*Key, bool) {
	return m.cache.Get(id)
}

// EvictKey removes the key registered under id.
func (m *Manager) EvictKey(id string) {
	if _, ok := m.cache.Pop(id); ok {
		m.logger.Debug("key evicted", "key_id", id)
	}
}

// ClearCache removes every cached key. The master key is kept.
func (m *Manager) ClearCache() {
	if n := m.cache.Clear(); n > 0 {
		m.logger.Debug("key cache cleared", "count", n)
	}
}

// ResolveKey returns the master key if id is its ID, otherwise the cached
// key registered under id.
func (m *Manager) ResolveKey(id string) (*Key, error) {
	m.mu.RLock()
	master := m.master
	m.mu.RUnlock()

	if master != nil && id == master.ID() {
		return master, nil
	}
	if k, ok := m.cache.Get(id); ok {
		return k, nil
	}
	return nil, domain.ErrKeyUnavailable.WithDetails(fmt.Sprintf("key %q", id))
}

// DeriveSubkey derives an HKDF subkey of the master key for info and
// registers it under id.
func (m *Manager) DeriveSubkey(id, info string) (*Key, error) {
	master, ok := m.MasterKey()
	if !ok {
		return nil, domain.ErrKeyUnavailable.WithDetails("no master key")
	}
	material, err := subkeyMaterial(master.material, info)
	if err != nil {
		return nil, err
	}
	k, err := newKey(material)
	if err != nil {
		return nil, err
	}
	if err := m.CacheKey(id, k); err != nil {
		return nil, err
	}
	return k, nil
}

// Reset drops the master key and every cached key.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.master = nil
	m.mu.Unlock()
	m.cache.Clear()
	m.logger.Debug("key manager reset")
}
