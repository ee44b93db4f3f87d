package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/tokvault-go/internal/keymgr"
	"github.com/yndnr/tokvault-go/pkg/crypto/adaptive"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyCrypto(&cfg.Crypto); err != nil {
		return err
	}
	if err := verifySweep(&cfg.Sweep); err != nil {
		return err
	}
	if err := verifyPolicy(&cfg.Policy); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case EngineBadger:
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger engine")
		}
	case EngineMemory:
	default:
		return fmt.Errorf("storage.engine must be %q or %q, got %q", EngineBadger, EngineMemory, cfg.Engine)
	}

	if strings.Contains(cfg.Namespace, ":") {
		return errors.New("storage.namespace must not contain ':'")
	}
	if cfg.GCThreshold < 0 || cfg.GCThreshold >= 1 {
		return errors.New("storage.gc_threshold must be in [0, 1)")
	}
	return nil
}

func verifyCrypto(cfg *CryptoSection) error {
	if cfg.Cipher != CipherAuto {
		if _, err := adaptive.ParseCipherType(cfg.Cipher); err != nil {
			return fmt.Errorf("crypto.cipher: %w", err)
		}
	}
	params, err := cfg.KDFParams()
	if err != nil {
		return fmt.Errorf("crypto.kdf: %w", err)
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("crypto: %w", err)
	}
	return nil
}

func verifySweep(cfg *SweepSection) error {
	if cfg.Interval < 0 {
		return errors.New("sweep.interval must not be negative")
	}
	if cfg.MaxDeletesPerSec < 0 {
		return errors.New("sweep.max_deletes_per_sec must not be negative")
	}
	return nil
}

func verifyPolicy(cfg *PolicySection) error {
	if cfg.AuthTokenTTL < 0 || cfg.SessionTTL < 0 || cfg.CachedQueryTTL < 0 {
		return errors.New("policy TTLs must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Format)
	}
	return nil
}

// KDFParams converts the crypto section into key derivation parameters.
func (c *CryptoSection) KDFParams() (keymgr.KDFParams, error) {
	kdf, err := keymgr.ParseKDF(c.KDF)
	if err != nil {
		return keymgr.KDFParams{}, err
	}
	return keymgr.KDFParams{
		KDF:            kdf,
		Iterations:     c.Iterations,
		Argon2Time:     c.Argon2.Time,
		Argon2MemoryKB: c.Argon2.MemoryKB,
		Argon2Threads:  c.Argon2.Threads,
	}, nil
}

// CipherType resolves the configured cipher, honoring "auto".
func (c *CryptoSection) CipherType() (adaptive.CipherType, error) {
	if c.Cipher == CipherAuto {
		return adaptive.Preferred(), nil
	}
	return adaptive.ParseCipherType(c.Cipher)
}
