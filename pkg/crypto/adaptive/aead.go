package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var constructors = map[CipherType]func(key []byte) (cipher.AEAD, error){
	CipherAESGCM: func(key []byte) (cipher.AEAD, error) {
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	},
	CipherChaCha20: chacha20poly1305.New,
}

// aeadCipher adapts a cipher.AEAD to Cipher with a detached nonce.
type aeadCipher struct {
	typ  CipherType
	aead cipher.AEAD
}

func (c *aeadCipher) Type() CipherType {
	return c.typ
}

func (c *aeadCipher) NonceSize() int {
	return c.aead.NonceSize()
}

func (c *aeadCipher) Overhead() int {
	return c.aead.Overhead()
}

func (c *aeadCipher) NewNonce() ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("adaptive: generate nonce: %w", err)
	}
	return nonce, nil
}

func (c *aeadCipher) Seal(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrInvalidNonce
	}
	return c.aead.Seal(nil, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrInvalidNonce
	}
	if len(ciphertext) < c.aead.Overhead() {
		return nil, ErrOpenFailed
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
