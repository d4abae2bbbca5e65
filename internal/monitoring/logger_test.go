package monitoring

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/topmass/internal/timeutil"
)

func captureLogf(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := captureLogf(t)

	Logf("scan %d", 1)
	if len(*lines) != 1 || (*lines)[0] != "scan 1" {
		t.Fatalf("custom logger got %q", *lines)
	}

	SetLogger(nil)
	Logf("muted")
	if len(*lines) != 1 {
		t.Errorf("nil logger should mute output, got %q", *lines)
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		verbosity int
		wantInfo  bool
		wantDebug bool
	}{
		{0, false, false},
		{1, true, false},
		{2, true, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("v%d", tt.verbosity), func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(&buf, tt.verbosity)
			l.Info("info line")
			l.Debug("debug line")
			l.Warn("warn line")
			out := buf.String()
			if got := strings.Contains(out, "info line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if !strings.Contains(out, "warn line") {
				t.Error("warnings should always be logged")
			}
		})
	}
}

func TestSlogLogf(t *testing.T) {
	var buf bytes.Buffer
	logf := SlogLogf(NewLogger(&buf, 2))
	logf("cycle %d done\n", 3)
	if !strings.Contains(buf.String(), "cycle 3 done") {
		t.Errorf("slog output missing message: %q", buf.String())
	}
}

func TestRateLimiter(t *testing.T) {
	lines := captureLogf(t)
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	r := NewRateLimiter(clock, 2, time.Minute)

	for i := 0; i < 5; i++ {
		r.Logf("newton", "singular %d", i)
	}
	if len(*lines) != 2 {
		t.Fatalf("expected 2 messages within burst, got %d", len(*lines))
	}
	if got := r.Suppressed("newton"); got != 3 {
		t.Errorf("Suppressed = %d, want 3", got)
	}

	r.Logf("other", "independent key")
	if len(*lines) != 3 {
		t.Fatalf("keys should be limited independently, got %d lines", len(*lines))
	}

	clock.Advance(time.Minute)
	r.Logf("newton", "singular again")
	want := []string{"newton: suppressed 3 messages", "singular again"}
	got := (*lines)[3:]
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("after window got %q, want %q", got, want)
	}
}

func TestRateLimiterNil(t *testing.T) {
	var r *RateLimiter
	r.Logf("k", "no panic")
}
