package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRecord_IsExpired(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		ttl     time.Duration
		elapsed time.Duration
		want    bool
	}{
		{"no ttl", 0, 365 * 24 * time.Hour, false},
		{"within ttl", 100 * time.Millisecond, 50 * time.Millisecond, false},
		{"exactly at ttl", 100 * time.Millisecond, 100 * time.Millisecond, false},
		{"past ttl", 100 * time.Millisecond, 150 * time.Millisecond, true},
		{"hour token after 3601s", time.Hour, 3601 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{Timestamp: created.UnixMilli(), TTL: tt.ttl.Milliseconds()}
			if got := r.IsExpired(created.Add(tt.elapsed)); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_ExpiresAt(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)

	r := &Record{Timestamp: created.UnixMilli()}
	if !r.ExpiresAt().IsZero() {
		t.Errorf("ExpiresAt() = %v, want zero time", r.ExpiresAt())
	}

	r.TTL = (8 * time.Hour).Milliseconds()
	if want := created.Add(8 * time.Hour); !r.ExpiresAt().Equal(want) {
		t.Errorf("ExpiresAt() = %v, want %v", r.ExpiresAt(), want)
	}
	if !r.CreatedAt().Equal(created) {
		t.Errorf("CreatedAt() = %v, want %v", r.CreatedAt(), created)
	}
}

func TestRecord_MarshalShape(t *testing.T) {
	r := &Record{
		Data:      []byte("hello"),
		Timestamp: 1,
		Checksum:  "c",
	}
	data, err := r.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	s := string(data)
	for _, want := range []string{`"data":"aGVsbG8="`, `"encrypted":false`, `"compressed":false`, `"timestamp":1`, `"checksum":"c"`} {
		if !strings.Contains(s, want) {
			t.Errorf("Marshal() = %s, missing %s", s, want)
		}
	}
	for _, absent := range []string{`"ttl"`, `"iv"`, `"keyId"`, `"alg"`} {
		if strings.Contains(s, absent) {
			t.Errorf("Marshal() = %s, should omit %s", s, absent)
		}
	}
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", `{"data":"aGk=","encrypted":false,"compressed":false,"timestamp":5,"checksum":"x"}`, false},
		{"encrypted", `{"data":"aGk=","encrypted":true,"compressed":false,"timestamp":5,"iv":"AAEC","keyId":"k_1","alg":"aes-gcm","checksum":"x"}`, false},
		{"not json", `not json`, true},
		{"bad base64", `{"data":"!!!","checksum":"x"}`, true},
		{"missing checksum", `{"data":"aGk=","timestamp":5}`, true},
		{"negative ttl", `{"data":"aGk=","timestamp":5,"ttl":-1,"checksum":"x"}`, true},
		{"encrypted without iv", `{"data":"aGk=","encrypted":true,"keyId":"k_1","checksum":"x"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseRecord([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrCorrupt) {
					t.Errorf("ParseRecord() error = %v, want ErrCorrupt", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRecord() error = %v", err)
			}
			if string(rec.Data) != "hi" {
				t.Errorf("Data = %q, want %q", rec.Data, "hi")
			}
		})
	}
}
