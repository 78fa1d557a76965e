package watch

import (
	"testing"
	"time"
)

func TestBackoff_DeterministicLadder(t *testing.T) {
	b := Backoff{Min: 1 * time.Second, Max: 30 * time.Second}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for attempt, expected := range want {
		if got := b.Next(attempt); got != expected {
			t.Errorf("Next(%d) = %v, want %v", attempt, got, expected)
		}
	}
}

func TestBackoff_NegativeAttemptUsesMin(t *testing.T) {
	b := Backoff{Min: 500 * time.Millisecond, Max: 10 * time.Second}
	if got := b.Next(-3); got != 500*time.Millisecond {
		t.Errorf("Next(-3) = %v, want %v", got, 500*time.Millisecond)
	}
}

func TestBackoff_LargeAttemptCapsAtMax(t *testing.T) {
	b := Backoff{Min: 1 * time.Second, Max: 30 * time.Second}

	// Attempt counts far beyond the doubling range must not overflow.
	for _, attempt := range []int{40, 63, 64, 1000} {
		if got := b.Next(attempt); got != 30*time.Second {
			t.Errorf("Next(%d) = %v, want %v", attempt, got, 30*time.Second)
		}
	}
}

func TestBackoff_JitterStaysInBounds(t *testing.T) {
	b := Backoff{Min: 1 * time.Second, Max: 30 * time.Second, Jitter: 0.5}

	// Jitter spreads the delay by at most half the jitter fraction in
	// either direction.
	base := 4 * time.Second
	lo := time.Duration(float64(base) * 0.75)
	hi := time.Duration(float64(base) * 1.25)

	for i := 0; i < 200; i++ {
		got := b.Next(2)
		if got < lo || got > hi {
			t.Fatalf("Next(2) = %v, want within [%v, %v]", got, lo, hi)
		}
	}
}

func TestBackoff_JitterNeverNegative(t *testing.T) {
	b := Backoff{Min: 1 * time.Nanosecond, Max: 2 * time.Nanosecond, Jitter: 1}

	for i := 0; i < 200; i++ {
		if got := b.Next(0); got < 0 {
			t.Fatalf("Next(0) = %v, want non-negative", got)
		}
	}
}

func TestDefaultBackoff(t *testing.T) {
	b := DefaultBackoff()
	if b.Min != 1*time.Second {
		t.Errorf("Min = %v, want 1s", b.Min)
	}
	if b.Max != 30*time.Second {
		t.Errorf("Max = %v, want 30s", b.Max)
	}
	if b.Jitter != 0.2 {
		t.Errorf("Jitter = %v, want 0.2", b.Jitter)
	}
}
