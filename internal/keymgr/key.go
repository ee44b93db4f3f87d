package keymgr

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/tokvault-go/internal/core/domain"
	"github.com/yndnr/tokvault-go/pkg/crypto/adaptive"
)

// KeySize is the size of key material in bytes.
const KeySize = adaptive.KeySize

// KeyIDPrefix prefixes every fingerprint ID.
const KeyIDPrefix = "k_"

const fingerprintInfo = "tokvault key fingerprint v1"

// Key is an opaque symmetric key handle.
//
// The ID is a fingerprint of the material, so the same material always
// carries the same ID.
type Key struct {
	id       string
	material []byte
}

func newKey(material []byte) (*Key, error) {
	if len(material) != KeySize {
		return nil, domain.ErrInvalidKey.WithDetails(
			fmt.Sprintf("expected %d bytes, got %d", KeySize, len(material)))
	}
	id, err := fingerprint(material)
	if err != nil {
		return nil, err
	}
	m := make([]byte, KeySize)
	copy(m, material)
	return &Key{id: id, material: m}, nil
}

// ID returns the key's fingerprint ID.
func (k *Key) ID() string {
	return k.id
}

// Equal reports whether k and other hold the same material.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.material, other.material) == 1
}

// Cipher builds an AEAD of the given type over the key.
func (k *Key) Cipher(t adaptive.CipherType) (adaptive.Cipher, error) {
	return adaptive.NewWithType(k.material, t)
}

// String does not reveal key material.
func (k *Key) String() string {
	return "Key(" + k.id + ")"
}

func fingerprint(material []byte) (string, error) {
	r := hkdf.New(sha256.New, material, nil, []byte(fingerprintInfo))
	sum := make([]byte, 8)
	if _, err := io.ReadFull(r, sum); err != nil {
		return "", domain.ErrKeyDerivation.WithCause(err)
	}
	return KeyIDPrefix + hex.EncodeToString(sum), nil
}

func randomMaterial() ([]byte, error) {
	b := make([]byte, KeySize)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("keymgr: read random: %w", err)
	}
	return b, nil
}

func subkeyMaterial(parent []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, parent, nil, []byte(info))
	b := make([]byte, KeySize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, domain.ErrKeyDerivation.WithCause(err)
	}
	return b, nil
}
