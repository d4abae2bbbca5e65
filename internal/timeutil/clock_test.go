package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	if d := clock.Since(past); d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Advance(time.Hour)
	if want := start.Add(time.Hour); !clock.Now().Equal(want) {
		t.Errorf("got %v, want %v", clock.Now(), want)
	}

	later := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Errorf("got %v, want %v", clock.Now(), later)
	}
	if d := clock.Since(later.Add(-5 * time.Minute)); d != 5*time.Minute {
		t.Errorf("Since got %v, want 5m", d)
	}
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name    string
		limit   time.Duration
		advance time.Duration
		want    bool
	}{
		{"unlimited", 0, 24 * time.Hour, false},
		{"within", time.Minute, 59 * time.Second, false},
		{"at limit", time.Minute, time.Minute, true},
		{"past limit", time.Minute, 2 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewMockClock(time.Unix(1000, 0))
			b := NewBudget(clock, tt.limit)
			clock.Advance(tt.advance)
			if got := b.Exceeded(); got != tt.want {
				t.Errorf("Exceeded() = %v, want %v", got, tt.want)
			}
			if b.Elapsed() != tt.advance {
				t.Errorf("Elapsed() = %v, want %v", b.Elapsed(), tt.advance)
			}
		})
	}
}

func TestNewBudgetDefaultsToRealClock(t *testing.T) {
	b := NewBudget(nil, time.Hour)
	if b.Exceeded() {
		t.Error("fresh one-hour budget should not be exceeded")
	}
}
