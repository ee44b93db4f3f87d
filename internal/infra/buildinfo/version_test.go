package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
	if info.Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestFillFromBuildInfo(t *testing.T) {
	tests := []struct {
		name       string
		in         Info
		bi         debug.BuildInfo
		wantVer    string
		wantCommit string
		wantTime   string
	}{
		{
			name: "fills defaults",
			in:   Info{Version: "dev", Commit: "unknown", BuildTime: "unknown"},
			bi: debug.BuildInfo{
				Main: debug.Module{Version: "v1.2.3"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
				},
			},
			wantVer:    "v1.2.3",
			wantCommit: "0123456789ab",
			wantTime:   "2026-01-02T03:04:05Z",
		},
		{
			name: "ldflags win",
			in:   Info{Version: "v9.0.0", Commit: "abc", BuildTime: "today"},
			bi: debug.BuildInfo{
				Main:     debug.Module{Version: "v1.2.3"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
			},
			wantVer:    "v9.0.0",
			wantCommit: "abc",
			wantTime:   "today",
		},
		{
			name:       "devel module",
			in:         Info{Version: "dev", Commit: "unknown", BuildTime: "unknown"},
			bi:         debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantVer:    "dev",
			wantCommit: "unknown",
			wantTime:   "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.in
			fillFromBuildInfo(&info, &tt.bi)
			if info.Version != tt.wantVer || info.Commit != tt.wantCommit || info.BuildTime != tt.wantTime {
				t.Errorf("got %+v, want version=%s commit=%s time=%s", info, tt.wantVer, tt.wantCommit, tt.wantTime)
			}
		})
	}
}

func TestInfo_String(t *testing.T) {
	s := Info{Version: "v1.0.0", Commit: "abc", BuildTime: "now", GoVersion: "go1.24", Platform: "linux/amd64"}.String()
	for _, part := range []string{"tokvault", "v1.0.0", "abc", "go1.24", "linux/amd64"} {
		if !strings.Contains(s, part) {
			t.Errorf("String() = %q, missing %q", s, part)
		}
	}
}
