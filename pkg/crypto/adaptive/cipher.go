package adaptive

import (
	"errors"
	"fmt"
	"runtime"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// KeySize is the key size shared by both supported algorithms.
const KeySize = 32

// Errors returned by cipher operations.
var (
	ErrInvalidNonce = errors.New("adaptive: invalid nonce size")
	ErrOpenFailed   = errors.New("adaptive: message authentication failed")
)

// Cipher provides authenticated encryption with caller-managed nonces.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// NewNonce returns a fresh random nonce of NonceSize bytes.
	NewNonce() ([]byte, error)

	// Seal encrypts and authenticates plaintext and additional data.
	Seal(nonce, plaintext, additionalData []byte) ([]byte, error)

	// Open authenticates and decrypts ciphertext.
	// Any authentication failure is reported as ErrOpenFailed.
	Open(nonce, ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// ParseCipherType validates a configured algorithm name.
// An empty name selects the hardware-preferred default.
func ParseCipherType(name string) (CipherType, error) {
	switch CipherType(name) {
	case "":
		return Preferred(), nil
	case CipherAESGCM, CipherChaCha20:
		return CipherType(name), nil
	default:
		return "", fmt.Errorf("adaptive: unknown cipher type: %s", name)
	}
}

// Preferred returns the algorithm best suited to the current architecture.
func Preferred() CipherType {
	if hasAESNI() {
		return CipherAESGCM
	}
	return CipherChaCha20
}

// New creates a cipher of the preferred type for this platform.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, Preferred())
}

// NewWithType creates a cipher of the given type over a KeySize key.
func NewWithType(key []byte, t CipherType) (Cipher, error) {
	ctor, ok := constructors[t]
	if !ok {
		return nil, fmt.Errorf("adaptive: unknown cipher type: %s", t)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("adaptive: %s key must be %d bytes, got %d", t, KeySize, len(key))
	}
	aead, err := ctor(key)
	if err != nil {
		return nil, fmt.Errorf("adaptive: %s: %w", t, err)
	}
	return &aeadCipher{typ: t, aead: aead}, nil
}

// hasAESNI reports whether Go's crypto/aes uses hardware acceleration here.
func hasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}
