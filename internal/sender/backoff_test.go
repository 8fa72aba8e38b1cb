package sender

import (
	"testing"
	"time"
)

func TestBackoff_DoublesToCap(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 250*time.Millisecond)

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		250 * time.Millisecond,
		250 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next %d = %v, want %v", i, got, w)
		}
	}
	if b.Attempts() != len(want) {
		t.Errorf("Attempts = %d, want %d", b.Attempts(), len(want))
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := newBackoff(time.Second, time.Minute)
	b.Next()
	b.Next()

	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("Attempts after Reset = %d, want 0", b.Attempts())
	}
	if got := b.Next(); got != time.Second {
		t.Errorf("Next after Reset = %v, want 1s", got)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := newBackoff(0, 0)
	if b.Current() != DefaultBackoffInitial {
		t.Errorf("Current = %v, want %v", b.Current(), DefaultBackoffInitial)
	}
	for i := 0; i < 20; i++ {
		if d := b.Next(); d > DefaultBackoffMax {
			t.Fatalf("Next %d = %v, exceeds cap %v", i, d, DefaultBackoffMax)
		}
	}
}
