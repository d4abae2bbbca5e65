package version

import "testing"

func TestString(t *testing.T) {
	defer func(v, sha, bt string) { Version, GitSHA, BuildTime = v, sha, bt }(Version, GitSHA, BuildTime)

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2026-10-18"
	if got, want := String(), "topmass 1.2.0 (abc123, built 2026-10-18)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
