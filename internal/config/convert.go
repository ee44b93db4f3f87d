package config

import (
	"github.com/yndnr/tokvault-go/internal/core/service"
	"github.com/yndnr/tokvault-go/internal/storage"
)

// BadgerConfig converts the storage section into badger settings.
func (s *StorageSection) BadgerConfig() storage.BadgerConfig {
	cfg := storage.DefaultBadgerConfig(s.DataDir)
	cfg.SyncWrites = s.SyncWrites
	if s.GCInterval > 0 {
		cfg.GCInterval = s.GCInterval
	}
	if s.GCThreshold > 0 {
		cfg.GCThreshold = s.GCThreshold
	}
	return cfg
}

// ServicePolicy converts the policy section into facade TTLs.
func (p *PolicySection) ServicePolicy() service.Policy {
	return service.Policy{
		AuthTokenTTL:   p.AuthTokenTTL,
		SessionTTL:     p.SessionTTL,
		CachedQueryTTL: p.CachedQueryTTL,
	}
}
