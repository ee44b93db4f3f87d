package config

import "time"

// Config is the root configuration for tokvault.
type Config struct {
	Storage StorageSection `koanf:"storage" json:"storage" yaml:"storage"`
	Crypto  CryptoSection  `koanf:"crypto" json:"crypto" yaml:"crypto"`
	Sweep   SweepSection   `koanf:"sweep" json:"sweep" yaml:"sweep"`
	Policy  PolicySection  `koanf:"policy" json:"policy" yaml:"policy"`
	Metrics MetricsSection `koanf:"metrics" json:"metrics" yaml:"metrics"`
	Log     LogSection     `koanf:"log" json:"log" yaml:"log"`
}

// StorageSection configures the raw dictionary.
type StorageSection struct {
	// Engine is "badger" (persistent) or "memory".
	Engine    string `koanf:"engine" json:"engine" yaml:"engine"`
	DataDir   string `koanf:"data_dir" json:"data_dir" yaml:"data_dir"`
	Namespace string `koanf:"namespace" json:"namespace" yaml:"namespace"`

	SyncWrites  bool          `koanf:"sync_writes" json:"sync_writes" yaml:"sync_writes"`
	GCInterval  time.Duration `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold" json:"gc_threshold" yaml:"gc_threshold"`
}

// CryptoSection configures encryption and key derivation.
type CryptoSection struct {
	// Cipher is "aes-gcm", "chacha20-poly1305" or "auto".
	Cipher string `koanf:"cipher" json:"cipher" yaml:"cipher"`

	// KDF is "pbkdf2-sha256" or "argon2id". It only affects new salts.
	KDF        string       `koanf:"kdf" json:"kdf" yaml:"kdf"`
	Iterations int          `koanf:"iterations" json:"iterations" yaml:"iterations"`
	Argon2     Argon2Config `koanf:"argon2" json:"argon2" yaml:"argon2"`
}

// Argon2Config holds argon2id parameters.
type Argon2Config struct {
	Time     uint32 `koanf:"time" json:"time" yaml:"time"`
	MemoryKB uint32 `koanf:"memory_kb" json:"memory_kb" yaml:"memory_kb"`
	Threads  uint8  `koanf:"threads" json:"threads" yaml:"threads"`
}

// SweepSection configures the background expiry sweep.
type SweepSection struct {
	// Interval between sweeps. Zero disables the background sweeper.
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`

	// MaxDeletesPerSec bounds sweep deletions. Zero means unlimited.
	MaxDeletesPerSec float64 `koanf:"max_deletes_per_sec" json:"max_deletes_per_sec" yaml:"max_deletes_per_sec"`
}

// PolicySection overrides the TTLs of the named records.
type PolicySection struct {
	AuthTokenTTL   time.Duration `koanf:"auth_token_ttl" json:"auth_token_ttl" yaml:"auth_token_ttl"`
	SessionTTL     time.Duration `koanf:"session_ttl" json:"session_ttl" yaml:"session_ttl"`
	CachedQueryTTL time.Duration `koanf:"cached_query_ttl" json:"cached_query_ttl" yaml:"cached_query_ttl"`
}

// MetricsSection configures the Prometheus endpoint served by "run".
type MetricsSection struct {
	// Addr is the listen address of /metrics. Empty disables it.
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`

	// Interval is how often badger sizes are sampled.
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
