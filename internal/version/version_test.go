package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" || info.Commit == "" {
		t.Fatalf("Get() = %+v, want populated version and commit", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v0.3.0", Commit: "abc1234", Dirty: true, GoVersion: "go1.24.10", Platform: "linux/amd64"}
	want := "v0.3.0 (abc1234-dirty, go1.24.10 linux/amd64)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(Full(), Version) {
		t.Errorf("Full() = %q does not start with %q", Full(), Version)
	}
}
