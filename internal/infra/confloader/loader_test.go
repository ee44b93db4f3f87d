package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Storage struct {
		Engine  string `koanf:"engine"`
		DataDir string `koanf:"data_dir"`
	} `koanf:"storage"`
	Sweep struct {
		Interval time.Duration `koanf:"interval"`
	} `koanf:"sweep"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func defaults() *testConfig {
	var c testConfig
	c.Storage.Engine = "badger"
	c.Storage.DataDir = "/default"
	c.Sweep.Interval = 5 * time.Minute
	c.Log.Level = "info"
	return &c
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokvault.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))

	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.FilePath() != "/path/to/config.yaml" {
		t.Errorf("FilePath() = %q", l.FilePath())
	}
	if NewLoader().envPrefix != DefaultEnvPrefix {
		t.Errorf("default envPrefix should be %q", DefaultEnvPrefix)
	}
}

func TestLoader_KeepsDefaults(t *testing.T) {
	path := writeFile(t, "log:\n  level: debug\n")

	cfg := defaults()
	l := NewLoader(WithConfigFile(path), WithEnvPrefix("TVTEST_KEEP_"))
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Storage.DataDir != "/default" {
		t.Errorf("Storage.DataDir = %q, want the default", cfg.Storage.DataDir)
	}
	if cfg.Sweep.Interval != 5*time.Minute {
		t.Errorf("Sweep.Interval = %v, want the default", cfg.Sweep.Interval)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true")
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeFile(t, `
storage:
  engine: memory
  data_dir: /from/file
sweep:
  interval: 1m
log:
  level: warn
`)
	t.Setenv("TVTEST_STORAGE__DATA_DIR", "/from/env")
	t.Setenv("TVTEST_SWEEP__INTERVAL", "30s")
	t.Setenv("TVTEST_PASSPHRASE", "must-not-load")

	cfg := defaults()
	l := NewLoader(
		WithConfigFile(path),
		WithEnvPrefix("TVTEST_"),
		WithOverrides(map[string]any{"log.level": "error"}),
	)
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.Engine != "memory" {
		t.Errorf("Storage.Engine = %q, want memory from file", cfg.Storage.Engine)
	}
	if cfg.Storage.DataDir != "/from/env" {
		t.Errorf("Storage.DataDir = %q, want env to override file", cfg.Storage.DataDir)
	}
	if cfg.Sweep.Interval != 30*time.Second {
		t.Errorf("Sweep.Interval = %v, want 30s", cfg.Sweep.Interval)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want override", cfg.Log.Level)
	}

	for _, k := range l.Keys() {
		if k == "passphrase" {
			t.Error("variables without a section separator should be ignored")
		}
	}
}

func TestLoader_Reload(t *testing.T) {
	path := writeFile(t, "log:\n  level: debug\n")
	l := NewLoader(WithConfigFile(path), WithEnvPrefix("TVTEST_RELOAD_"))

	cfg := defaults()
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg = defaults()
	if err := l.Reload(cfg); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level after Reload = %q, want warn", cfg.Log.Level)
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile("/nonexistent/tokvault.yaml"); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}

	path := writeFile(t, "storage: [unclosed\n")
	if err := l.LoadFile(path); err == nil {
		t.Error("LoadFile() should fail for invalid YAML")
	}

	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") error = %v, want nil", err)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TOKVAULT_STORAGE__DATA_DIR", "storage.data_dir"},
		{"TOKVAULT_CRYPTO__ARGON2__MEMORY_KB", "crypto.argon2.memory_kb"},
		{"TOKVAULT_LOG__LEVEL", "log.level"},
		{"TOKVAULT_PASSPHRASE", ""},
	}

	for _, tt := range tests {
		if got := envKey(DefaultEnvPrefix, tt.in); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapProvider(t *testing.T) {
	p := mapProvider{"storage.engine": "memory", "log": map[string]any{"level": "debug"}}

	if _, err := p.ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v, want ErrReadBytesNotSupported", err)
	}

	m, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	storage, ok := m["storage"].(map[string]any)
	if !ok || storage["engine"] != "memory" {
		t.Errorf("Read() = %v, want nested storage.engine", m)
	}
}
