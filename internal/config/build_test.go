package config

import (
	"encoding/json"
	"testing"
)

// Without -ldflags the /version endpoint and `dailypostctl version` report
// the development placeholders.
func TestNewBuildInfo_DevPlaceholders(t *testing.T) {
	got := NewBuildInfo()
	want := BuildInfo{Version: "dev", Commit: "none", BuildTime: "unknown"}
	if got != want {
		t.Errorf("NewBuildInfo() = %+v, want %+v", got, want)
	}
}

func TestNewBuildInfo_InjectedValues(t *testing.T) {
	oldVersion, oldCommit, oldBuildTime := version, commit, buildTime
	t.Cleanup(func() { version, commit, buildTime = oldVersion, oldCommit, oldBuildTime })

	version, commit, buildTime = "1.4.0", "a1b2c3d", "2026-06-01T12:00:00Z"

	data, err := json.Marshal(NewBuildInfo())
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	const want = `{"version":"1.4.0","commit":"a1b2c3d","build_time":"2026-06-01T12:00:00Z"}`
	if string(data) != want {
		t.Errorf("version payload = %s, want %s", data, want)
	}
}
