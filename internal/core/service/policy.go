package service

import (
	"time"

	"github.com/yndnr/tokvault-go/internal/storage/codec"
)

// Record names managed by SecureStore.
const (
	NameAuthToken         = "auth_token"
	NameSessionData       = "session_data"
	NameUserPreferences   = "user_preferences"
	NameSensitiveSettings = "sensitive_settings"

	// CachedQueryPrefix is prepended to a query ID to form its record name.
	CachedQueryPrefix = "cached_query:"
)

// Default policy TTLs.
const (
	DefaultAuthTokenTTL   = 24 * time.Hour
	DefaultSessionTTL     = 8 * time.Hour
	DefaultCachedQueryTTL = time.Hour
)

// Policy holds the TTLs applied to each record class.
type Policy struct {
	// AuthTokenTTL applies when StoreAuthToken is given no lifetime.
	AuthTokenTTL   time.Duration
	SessionTTL     time.Duration
	CachedQueryTTL time.Duration
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		AuthTokenTTL:   DefaultAuthTokenTTL,
		SessionTTL:     DefaultSessionTTL,
		CachedQueryTTL: DefaultCachedQueryTTL,
	}
}

// withDefaults fills zero TTLs from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.AuthTokenTTL <= 0 {
		p.AuthTokenTTL = d.AuthTokenTTL
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = d.SessionTTL
	}
	if p.CachedQueryTTL <= 0 {
		p.CachedQueryTTL = d.CachedQueryTTL
	}
	return p
}

func (p Policy) authToken(lifetime time.Duration) codec.Options {
	if lifetime <= 0 {
		lifetime = p.AuthTokenTTL
	}
	return codec.Options{Encrypt: true, TTL: lifetime}
}

func (p Policy) sessionData() codec.Options {
	return codec.Options{Encrypt: true, TTL: p.SessionTTL}
}

func (p Policy) userPreferences() codec.Options {
	return codec.Options{Compress: true}
}

func (p Policy) cachedQuery() codec.Options {
	return codec.Options{Compress: true, TTL: p.CachedQueryTTL}
}

func (p Policy) sensitiveSettings() codec.Options {
	return codec.Options{Encrypt: true}
}

// CachedQueryName returns the record name of a cached query.
func CachedQueryName(id string) string {
	return CachedQueryPrefix + id
}
