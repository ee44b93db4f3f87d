package output

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"
)

type stats struct {
	Count      int           `json:"count" yaml:"count"`
	TotalBytes int64         `json:"totalBytes" yaml:"totalBytes"`
	Interval   time.Duration `json:"interval" yaml:"interval"`
	Hidden     string        `json:"hidden" table:"-" yaml:"-"`
	internal   int
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v, want %q (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("expected JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML).(*YAMLFormatter); !ok {
		t.Error("expected YAMLFormatter")
	}
	if _, ok := NewFormatter("other").(*TableFormatter); !ok {
		t.Error("expected TableFormatter by default")
	}
}

func TestTableFormatter(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		contains []string
		absent   []string
	}{
		{
			name:     "struct",
			data:     &stats{Count: 3, TotalBytes: 1024, Interval: 5 * time.Minute, Hidden: "x"},
			contains: []string{"FIELD", "count", "3", "totalBytes", "1024", "5m0s"},
			absent:   []string{"hidden", "internal"},
		},
		{
			name:     "map sorted",
			data:     map[string]any{"theme": "dark", "fontSize": 14.0, "tags": []string{"a"}},
			contains: []string{"KEY", "fontSize", "14", `["a"]`},
		},
		{
			name:     "string slice",
			data:     []string{"auth_token", "user_preferences"},
			contains: []string{"VALUE", "auth_token", "user_preferences"},
		},
		{
			name:     "plain string",
			data:     "tok-123",
			contains: []string{"tok-123"},
			absent:   []string{"VALUE"},
		},
		{
			name:     "slice of maps falls back to JSON",
			data:     []map[string]int{{"a": 1}},
			contains: []string{`"a": 1`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&TableFormatter{}).Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			out := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestTableFormatter_MapOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{NoHeaders: true}).Format(&buf, map[string]int{"b": 2, "a": 1, "c": 3}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "a") || !strings.HasPrefix(lines[2], "c") {
		t.Errorf("rows not sorted: %q", lines)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, stats{Count: 2}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"count": 2`) {
		t.Errorf("Format() = %s", buf.String())
	}

	buf.Reset()
	if err := (&JSONFormatter{Compact: true}).Format(&buf, "https://x.test/?a=1&b=<2>"); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got, want := buf.String(), "\"https://x.test/?a=1&b=<2>\"\n"; got != want {
		t.Errorf("compact Format() = %q, want %q", got, want)
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, stats{Count: 2, Hidden: "x"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "count: 2") {
		t.Errorf("Format() = %q, want count: 2", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("Format() = %q, yaml:\"-\" field should be skipped", out)
	}
}

func TestProgressBar(t *testing.T) {
	var screen bytes.Buffer
	bar := NewProgressBar(&screen, "backup", 10)

	var sink bytes.Buffer
	w := bar.Writer(&sink)
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if bar.Current() != 5 {
		t.Errorf("Current() = %d, want 5", bar.Current())
	}
	if !strings.Contains(screen.String(), " 50%") {
		t.Errorf("render = %q, want 50%%", screen.String())
	}

	r := bar.Reader(strings.NewReader("abc"))
	if _, err := io.ReadAll(r); err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if bar.Current() != 8 {
		t.Errorf("Current() = %d, want 8", bar.Current())
	}

	bar.Finish()
	if !strings.Contains(screen.String(), "100%") {
		t.Errorf("Finish() render = %q, want 100%%", screen.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSpinner(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "deriving key")
	s.Start()
	s.Success("key derived")
	s.Stop()

	if !strings.Contains(buf.String(), "✓ key derived") {
		t.Errorf("output = %q", buf.String())
	}
}
