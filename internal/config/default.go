package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/tokvault-go/internal/core/service"
	"github.com/yndnr/tokvault-go/internal/keymgr"
	"github.com/yndnr/tokvault-go/internal/storage"
	"github.com/yndnr/tokvault-go/pkg/crypto/adaptive"
)

// Storage engines.
const (
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// CipherAuto selects the cipher preferred on this CPU.
const CipherAuto = "auto"

// Default configuration values.
const (
	DefaultEngine      = EngineBadger
	DefaultGCInterval  = 10 * time.Minute
	DefaultGCThreshold = 0.5

	DefaultMetricsInterval = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultDataDir returns the per-user data directory, falling back to
// ./tokvault-data when no home directory is known.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tokvault", "data")
	}
	return "tokvault-data"
}

// Default returns the default configuration.
func Default() *Config {
	kdf := keymgr.DefaultKDFParams()
	policy := service.DefaultPolicy()

	return &Config{
		Storage: StorageSection{
			Engine:      DefaultEngine,
			DataDir:     DefaultDataDir(),
			Namespace:   storage.DefaultNamespace,
			SyncWrites:  true,
			GCInterval:  DefaultGCInterval,
			GCThreshold: DefaultGCThreshold,
		},
		Crypto: CryptoSection{
			Cipher:     string(adaptive.CipherAESGCM),
			KDF:        string(kdf.KDF),
			Iterations: kdf.Iterations,
			Argon2: Argon2Config{
				Time:     kdf.Argon2Time,
				MemoryKB: kdf.Argon2MemoryKB,
				Threads:  kdf.Argon2Threads,
			},
		},
		Sweep: SweepSection{
			Interval: storage.DefaultSweepInterval,
		},
		Policy: PolicySection{
			AuthTokenTTL:   policy.AuthTokenTTL,
			SessionTTL:     policy.SessionTTL,
			CachedQueryTTL: policy.CachedQueryTTL,
		},
		Metrics: MetricsSection{
			Interval: DefaultMetricsInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
