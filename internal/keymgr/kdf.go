package keymgr

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"github.com/yndnr/tokvault-go/internal/core/domain"
)

// KDF names a passphrase key-derivation function.
type KDF string

const (
	// KDFPBKDF2 is PBKDF2-HMAC-SHA-256.
	KDFPBKDF2 KDF = "pbkdf2-sha256"

	// KDFArgon2id is argon2id.
	KDFArgon2id KDF = "argon2id"
)

const (
	// SaltSize is the length of a freshly generated salt.
	SaltSize = 16

	// MinSaltSize is the shortest salt accepted for derivation.
	MinSaltSize = 16

	// MinPBKDF2Iterations is the lowest PBKDF2 iteration count accepted.
	MinPBKDF2Iterations = 100_000

	// DefaultPBKDF2Iterations is used when no iteration count is configured.
	DefaultPBKDF2Iterations = 310_000

	defaultArgon2Time     = 3
	defaultArgon2MemoryKB = 64 * 1024
	defaultArgon2Threads  = 4
)

// KDFParams are the derivation parameters persisted next to a salt.
type KDFParams struct {
	KDF        KDF
	Iterations int

	Argon2Time     uint32
	Argon2MemoryKB uint32
	Argon2Threads  uint8
}

// DefaultKDFParams returns PBKDF2 with DefaultPBKDF2Iterations.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		KDF:            KDFPBKDF2,
		Iterations:     DefaultPBKDF2Iterations,
		Argon2Time:     defaultArgon2Time,
		Argon2MemoryKB: defaultArgon2MemoryKB,
		Argon2Threads:  defaultArgon2Threads,
	}
}

// ParseKDF converts a configured KDF name. Empty selects PBKDF2.
func ParseKDF(name string) (KDF, error) {
	switch KDF(name) {
	case "", KDFPBKDF2, "pbkdf2":
		return KDFPBKDF2, nil
	case KDFArgon2id:
		return KDFArgon2id, nil
	default:
		return "", domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("unknown kdf %q", name))
	}
}

// Validate checks the parameters are strong enough to use.
func (p KDFParams) Validate() error {
	switch p.KDF {
	case KDFPBKDF2:
		if p.Iterations < MinPBKDF2Iterations {
			return domain.ErrInvalidArgument.WithDetails(
				fmt.Sprintf("pbkdf2 iterations %d below minimum %d", p.Iterations, MinPBKDF2Iterations))
		}
	case KDFArgon2id:
		if p.Argon2Time == 0 || p.Argon2MemoryKB == 0 || p.Argon2Threads == 0 {
			return domain.ErrInvalidArgument.WithDetails("argon2id time, memory and threads must be positive")
		}
	default:
		return domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("unknown kdf %q", p.KDF))
	}
	return nil
}

// GenerateSalt returns SaltSize random bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, domain.ErrKeyDerivation.WithCause(fmt.Errorf("generate salt: %w", err))
	}
	return salt, nil
}

// derive runs the configured KDF and returns KeySize bytes.
func derive(passphrase, salt []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("empty passphrase")
	}
	if len(salt) < MinSaltSize {
		return nil, domain.ErrInvalidArgument.WithDetails(
			fmt.Sprintf("salt must be at least %d bytes", MinSaltSize))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.KDF {
	case KDFArgon2id:
		return argon2.IDKey(passphrase, salt, p.Argon2Time, p.Argon2MemoryKB, p.Argon2Threads, KeySize), nil
	default:
		return pbkdf2.Key(passphrase, salt, p.Iterations, KeySize, sha256.New), nil
	}
}
