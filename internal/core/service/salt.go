package service

import (
	"encoding/json"
	"time"

	"github.com/yndnr/tokvault-go/internal/core/domain"
	"github.com/yndnr/tokvault-go/internal/keymgr"
)

// saltEntry is the persisted, unencrypted salt record.
//
// The KDF parameters are stored with the salt so that changing the
// configured parameters never changes the key derived for existing data.
type saltEntry struct {
	Salt           []byte `json:"salt"`
	KDF            string `json:"kdf"`
	Iterations     int    `json:"iterations"`
	Argon2Time     uint32 `json:"argon2Time,omitempty"`
	Argon2MemoryKB uint32 `json:"argon2MemoryKB,omitempty"`
	Argon2Threads  uint8  `json:"argon2Threads,omitempty"`
	CreatedAt      int64  `json:"createdAt"`
}

func newSaltEntry(salt []byte, p keymgr.KDFParams, now time.Time) *saltEntry {
	e := &saltEntry{
		Salt:       salt,
		KDF:        string(p.KDF),
		Iterations: p.Iterations,
		CreatedAt:  now.UnixMilli(),
	}
	if p.KDF == keymgr.KDFArgon2id {
		e.Iterations = 0
		e.Argon2Time = p.Argon2Time
		e.Argon2MemoryKB = p.Argon2MemoryKB
		e.Argon2Threads = p.Argon2Threads
	}
	return e
}

func parseSaltEntry(raw []byte) (*saltEntry, error) {
	var e saltEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, domain.ErrCorrupt.WithDetails("salt entry").WithCause(err)
	}
	if len(e.Salt) < keymgr.MinSaltSize {
		return nil, domain.ErrCorrupt.WithDetails("salt entry: salt too short")
	}
	return &e, nil
}

// params returns the KDF parameters recorded with the salt.
func (e *saltEntry) params() (keymgr.KDFParams, error) {
	kdf, err := keymgr.ParseKDF(e.KDF)
	if err != nil {
		return keymgr.KDFParams{}, err
	}
	p := keymgr.KDFParams{
		KDF:            kdf,
		Iterations:     e.Iterations,
		Argon2Time:     e.Argon2Time,
		Argon2MemoryKB: e.Argon2MemoryKB,
		Argon2Threads:  e.Argon2Threads,
	}
	if err := p.Validate(); err != nil {
		return keymgr.KDFParams{}, err
	}
	return p, nil
}

func (e *saltEntry) marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, domain.ErrSerialization.WithCause(err)
	}
	return data, nil
}
