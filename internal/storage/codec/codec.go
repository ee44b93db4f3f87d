// Package codec converts values to tamper-evident stored records and back.
//
// Encoding pipeline: JSON, then optional zstd, then optional AEAD seal,
// then a SHA-256 checksum over the final payload. Decoding verifies in
// the order checksum, expiry, key resolution, authentication,
// decompression, deserialization.
package codec

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/klauspost/compress/zstd"

	"github.com/yndnr/tokvault-go/internal/core/domain"
	"github.com/yndnr/tokvault-go/internal/keymgr"
	"github.com/yndnr/tokvault-go/pkg/checksum"
	"github.com/yndnr/tokvault-go/pkg/crypto/adaptive"
)

// maxDecodedSize caps decompressed payloads.
const maxDecodedSize = 64 << 20

// Options controls how a single value is encoded.
type Options struct {
	// Encrypt seals the payload with the resolved key.
	Encrypt bool

	// Compress applies zstd before sealing.
	Compress bool

	// TTL is the record lifetime. Zero means no expiry; negative is invalid.
	TTL time.Duration

	// KeyID selects a cached key. Empty selects the master key.
	KeyID string
}

// Keyring resolves keys for sealing and opening records.
type Keyring interface {
	MasterKey() (*keymgr.Key, bool)
	ResolveKey(id string) (*keymgr.Key, error)
}

// Codec encodes and decodes records. It is safe for concurrent use.
type Codec struct {
	keys   Keyring
	cipher adaptive.CipherType
	clock  clock.Clock

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a Codec sealing new records with cipherType.
func New(keys Keyring, cipherType adaptive.CipherType, clk clock.Clock) (*Codec, error) {
	if clk == nil {
		clk = clock.New()
	}
	if cipherType == "" {
		cipherType = adaptive.Preferred()
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, domain.ErrCompression.WithCause(err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		enc.Close()
		return nil, domain.ErrCompression.WithCause(err)
	}

	return &Codec{
		keys:   keys,
		cipher: cipherType,
		clock:  clk,
		enc:    enc,
		dec:    dec,
	}, nil
}

// Close releases the zstd encoder and decoder.
func (c *Codec) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

// Encode serializes value into a new record. aad binds the ciphertext to
// the record's storage name.
func (c *Codec) Encode(value any, opts Options, aad []byte) (*domain.Record, error) {
	if opts.TTL < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("negative ttl %s", opts.TTL))
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return nil, domain.ErrSerialization.WithCause(err)
	}

	rec := &domain.Record{
		Timestamp: c.clock.Now().UnixMilli(),
		TTL:       ttlMillis(opts.TTL),
	}

	if opts.Compress {
		payload = c.enc.EncodeAll(payload, make([]byte, 0, len(payload)))
		rec.Compressed = true
	}

	if opts.Encrypt {
		keyID, key, err := c.sealingKey(opts.KeyID)
		if err != nil {
			return nil, err
		}
		cph, err := key.Cipher(c.cipher)
		if err != nil {
			return nil, domain.ErrEncryption.WithCause(err)
		}
		nonce, err := cph.NewNonce()
		if err != nil {
			return nil, domain.ErrEncryption.WithCause(err)
		}
		rec.Alg = string(cph.Type())
		sealed, err := cph.Seal(nonce, payload, boundAAD(aad, rec))
		if err != nil {
			return nil, domain.ErrEncryption.WithCause(err)
		}

		payload = sealed
		rec.Encrypted = true
		rec.IV = nonce
		rec.KeyID = keyID
	}

	rec.Data = payload
	rec.Checksum = checksum.Sum(payload)
	return rec, nil
}

// Decode verifies rec and deserializes its payload into dst.
func (c *Codec) Decode(rec *domain.Record, dst any, aad []byte) error {
	if dst == nil {
		return domain.ErrInvalidArgument.WithDetails("nil destination")
	}
	if err := c.Inspect(rec); err != nil {
		return err
	}

	payload := rec.Data
	if rec.Encrypted {
		key, err := c.keys.ResolveKey(rec.KeyID)
		if err != nil {
			return err
		}
		alg, err := adaptive.ParseCipherType(rec.Alg)
		if err != nil {
			return domain.ErrCorrupt.WithCause(err)
		}
		cph, err := key.Cipher(alg)
		if err != nil {
			return domain.ErrCorrupt.WithCause(err)
		}
		payload, err = cph.Open(rec.IV, payload, boundAAD(aad, rec))
		if err != nil {
			return domain.ErrTampered.WithCause(err)
		}
	}

	if rec.Compressed {
		var err error
		payload, err = c.dec.DecodeAll(payload, nil)
		if err != nil {
			return domain.ErrCorrupt.WithCause(err)
		}
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var targetErr *json.InvalidUnmarshalError
		if errors.As(err, &typeErr) || errors.As(err, &targetErr) {
			return domain.ErrInvalidArgument.WithDetails("destination does not match stored value").WithCause(err)
		}
		return domain.ErrCorrupt.WithCause(err)
	}
	return nil
}

// boundAAD extends the caller's associated data with the record metadata
// that governs expiry and decryption, so editing it fails authentication.
func boundAAD(aad []byte, rec *domain.Record) []byte {
	out := make([]byte, 0, len(aad)+17+len(rec.Alg))
	out = append(out, aad...)
	out = append(out, 0)
	out = binary.BigEndian.AppendUint64(out, uint64(rec.Timestamp))
	out = binary.BigEndian.AppendUint64(out, uint64(rec.TTL))
	out = append(out, rec.Alg...)
	return out
}

// Inspect checks integrity and expiry without opening the payload.
func (c *Codec) Inspect(rec *domain.Record) error {
	if !checksum.Verify(rec.Data, rec.Checksum) {
		return domain.ErrTampered.WithDetails("checksum mismatch")
	}
	if rec.IsExpired(c.clock.Now()) {
		return domain.ErrExpired
	}
	return nil
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time {
	return c.clock.Now()
}

func (c *Codec) sealingKey(id string) (string, *keymgr.Key, error) {
	if id == "" {
		master, ok := c.keys.MasterKey()
		if !ok {
			return "", nil, domain.ErrKeyUnavailable.WithDetails("no master key")
		}
		return master.ID(), master, nil
	}
	key, err := c.keys.ResolveKey(id)
	if err != nil {
		return "", nil, err
	}
	return id, key, nil
}

// ttlMillis rounds positive sub-millisecond TTLs up so they still expire.
func ttlMillis(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	ms := ttl.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	return ms
}
