// SPDX-License-Identifier: MIT
package build

import "testing"

func resetFlags(t *testing.T) {
	t.Helper()
	saved := info
	t.Cleanup(func() {
		info = saved
		buildName, buildTime, buildCommit, buildVersion = "", "", "", ""
	})
}

func TestInitializeDevelopment(t *testing.T) {
	resetFlags(t)
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := Get(); got.Name != "voicepiano" || got.Version != "dev" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestInitializeRelease(t *testing.T) {
	resetFlags(t)
	buildName, buildTime, buildCommit, buildVersion = "vp", "2026-01-01T00:00:00Z", "abc123", "1.2.3"

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	got := Get()
	if got.Name != "vp" || got.Commit != "abc123" {
		t.Errorf("Get() = %+v", got)
	}
	if want := "1.2.3 (commit abc123, built 2026-01-01T00:00:00Z)"; got.String() != want {
		t.Errorf("String() = %q, want %q", got.String(), want)
	}
}

func TestInitializeIncompleteRelease(t *testing.T) {
	resetFlags(t)
	buildVersion = "1.0.0"

	if err := Initialize(); err == nil {
		t.Error("release build without commit/time should fail")
	}
}
