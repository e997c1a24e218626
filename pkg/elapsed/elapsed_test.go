package elapsed

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestCounter(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewWithClock(clk.now)

	if c.String() != "00:00" {
		t.Errorf("stopped counter should read 00:00, got %s", c.String())
	}

	c.Start()
	clk.advance(75*time.Second + 400*time.Millisecond)
	if got := c.String(); got != "01:15" {
		t.Errorf("expected 01:15, got %s", got)
	}

	t.Run("Start while running keeps origin", func(t *testing.T) {
		c.Start()
		if got := c.Elapsed(); got != 75*time.Second {
			t.Errorf("expected 75s, got %v", got)
		}
	})

	t.Run("Reset returns to zero", func(t *testing.T) {
		c.Reset()
		if c.Running() {
			t.Error("expected counter stopped after Reset")
		}
		if got := c.String(); got != "00:00" {
			t.Errorf("expected 00:00 after reset, got %s", got)
		}
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{9 * time.Second, "00:09"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := Format(tt.d); got != tt.want {
			t.Errorf("Format(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}
