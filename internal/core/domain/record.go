package domain

import (
	"encoding/json"
	"time"
)

// Record is the unit of persistence stored under a name in one logical store.
//
// Byte fields are base64 in the JSON form. Data is the final payload exactly
// as written: plaintext JSON, or its zstd form, or the AEAD ciphertext.
type Record struct {
	// Data is the stored payload.
	Data []byte `json:"data"`

	// Encrypted reports whether Data is ciphertext.
	Encrypted bool `json:"encrypted"`

	// Compressed reports whether the plaintext was zstd-compressed before sealing.
	Compressed bool `json:"compressed"`

	// Timestamp is the creation time (Unix milliseconds).
	Timestamp int64 `json:"timestamp"`

	// TTL is the lifetime in milliseconds. Zero means the record never expires.
	TTL int64 `json:"ttl,omitempty"`

	// IV is the nonce used to seal Data. Present iff Encrypted.
	IV []byte `json:"iv,omitempty"`

	// KeyID identifies the key that sealed Data. Present iff Encrypted.
	KeyID string `json:"keyId,omitempty"`

	// Alg names the cipher that sealed Data. Present iff Encrypted.
	Alg string `json:"alg,omitempty"`

	// Checksum is the base64 SHA-256 digest of Data.
	Checksum string `json:"checksum"`
}

// ParseRecord decodes the JSON form of a record.
// Malformed or structurally inconsistent input yields ErrCorrupt.
func ParseRecord(raw []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, ErrCorrupt.WithCause(err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Marshal encodes the record to its JSON form.
func (r *Record) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, ErrSerialization.WithCause(err)
	}
	return data, nil
}

// Validate checks the structural invariants of the record.
func (r *Record) Validate() error {
	if r.TTL < 0 {
		return ErrCorrupt.WithDetails("negative ttl")
	}
	if r.Checksum == "" {
		return ErrCorrupt.WithDetails("missing checksum")
	}
	if r.Encrypted && (len(r.IV) == 0 || r.KeyID == "") {
		return ErrCorrupt.WithDetails("encrypted record without iv or key id")
	}
	return nil
}

// CreatedAt returns the creation time.
func (r *Record) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// HasTTL reports whether the record expires.
func (r *Record) HasTTL() bool {
	return r.TTL > 0
}

// ExpiresAt returns the expiry time, or the zero time if the record never expires.
func (r *Record) ExpiresAt() time.Time {
	if !r.HasTTL() {
		return time.Time{}
	}
	return time.UnixMilli(r.Timestamp + r.TTL)
}

// IsExpired reports whether more than TTL has elapsed since creation at now.
func (r *Record) IsExpired(now time.Time) bool {
	if !r.HasTTL() {
		return false
	}
	return now.UnixMilli()-r.Timestamp > r.TTL
}

// Size returns the payload size in bytes.
func (r *Record) Size() int {
	return len(r.Data)
}
