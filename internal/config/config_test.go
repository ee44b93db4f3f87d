package config

import (
	"strings"
	"testing"
	"time"

	"github.com/yndnr/tokvault-go/internal/core/service"
	"github.com/yndnr/tokvault-go/internal/keymgr"
	"github.com/yndnr/tokvault-go/internal/storage"
	"github.com/yndnr/tokvault-go/pkg/crypto/adaptive"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.Engine != EngineBadger {
		t.Errorf("Storage.Engine = %q, want %q", cfg.Storage.Engine, EngineBadger)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir should not be empty")
	}
	if cfg.Storage.Namespace != storage.DefaultNamespace {
		t.Errorf("Storage.Namespace = %q, want %q", cfg.Storage.Namespace, storage.DefaultNamespace)
	}
	if cfg.Crypto.Iterations != keymgr.DefaultPBKDF2Iterations {
		t.Errorf("Crypto.Iterations = %d, want %d", cfg.Crypto.Iterations, keymgr.DefaultPBKDF2Iterations)
	}
	if cfg.Sweep.Interval != storage.DefaultSweepInterval {
		t.Errorf("Sweep.Interval = %v, want %v", cfg.Sweep.Interval, storage.DefaultSweepInterval)
	}
	if cfg.Policy.AuthTokenTTL != service.DefaultAuthTokenTTL {
		t.Errorf("Policy.AuthTokenTTL = %v, want %v", cfg.Policy.AuthTokenTTL, service.DefaultAuthTokenTTL)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}

	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory engine without dir", func(c *Config) { c.Storage.Engine = EngineMemory; c.Storage.DataDir = "" }, ""},
		{"badger without dir", func(c *Config) { c.Storage.DataDir = "" }, "data_dir"},
		{"unknown engine", func(c *Config) { c.Storage.Engine = "bolt" }, "storage.engine"},
		{"namespace with colon", func(c *Config) { c.Storage.Namespace = "a:b" }, "namespace"},
		{"gc threshold", func(c *Config) { c.Storage.GCThreshold = 1 }, "gc_threshold"},
		{"auto cipher", func(c *Config) { c.Crypto.Cipher = CipherAuto }, ""},
		{"chacha cipher", func(c *Config) { c.Crypto.Cipher = string(adaptive.CipherChaCha20) }, ""},
		{"unknown cipher", func(c *Config) { c.Crypto.Cipher = "rot13" }, "crypto.cipher"},
		{"unknown kdf", func(c *Config) { c.Crypto.KDF = "scrypt" }, "crypto.kdf"},
		{"weak pbkdf2", func(c *Config) { c.Crypto.Iterations = 1000 }, "iterations"},
		{"argon2id", func(c *Config) { c.Crypto.KDF = string(keymgr.KDFArgon2id) }, ""},
		{"argon2id zero threads", func(c *Config) {
			c.Crypto.KDF = string(keymgr.KDFArgon2id)
			c.Crypto.Argon2.Threads = 0
		}, "argon2id"},
		{"sweep disabled", func(c *Config) { c.Sweep.Interval = 0 }, ""},
		{"negative sweep", func(c *Config) { c.Sweep.Interval = -time.Second }, "sweep.interval"},
		{"negative rate", func(c *Config) { c.Sweep.MaxDeletesPerSec = -1 }, "max_deletes_per_sec"},
		{"negative ttl", func(c *Config) { c.Policy.SessionTTL = -time.Hour }, "TTLs"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Verify() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Verify() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCryptoSection_CipherType(t *testing.T) {
	c := CryptoSection{Cipher: CipherAuto}
	got, err := c.CipherType()
	if err != nil {
		t.Fatalf("CipherType() error = %v", err)
	}
	if got != adaptive.Preferred() {
		t.Errorf("CipherType(auto) = %q, want %q", got, adaptive.Preferred())
	}

	c.Cipher = string(adaptive.CipherChaCha20)
	if got, _ := c.CipherType(); got != adaptive.CipherChaCha20 {
		t.Errorf("CipherType() = %q, want %q", got, adaptive.CipherChaCha20)
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Storage.DataDir = "/tmp/tv"
	cfg.Storage.GCInterval = time.Minute
	cfg.Storage.SyncWrites = false
	cfg.Policy.SessionTTL = 2 * time.Hour

	bc := cfg.Storage.BadgerConfig()
	if bc.Dir != "/tmp/tv" || bc.GCInterval != time.Minute || bc.SyncWrites {
		t.Errorf("BadgerConfig() = %+v", bc)
	}

	p := cfg.Policy.ServicePolicy()
	if p.SessionTTL != 2*time.Hour || p.AuthTokenTTL != service.DefaultAuthTokenTTL {
		t.Errorf("ServicePolicy() = %+v", p)
	}

	params, err := cfg.Crypto.KDFParams()
	if err != nil {
		t.Fatalf("KDFParams() error = %v", err)
	}
	if params != keymgr.DefaultKDFParams() {
		t.Errorf("KDFParams() = %+v, want defaults", params)
	}
}
