package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/example/gym-scheduler/internal/logger"
)

func TestWaitUntilOpenAlreadyPast(t *testing.T) {
	now := time.Date(2024, 6, 3, 8, 0, 1, 0, time.UTC)
	wt := &Waiter{
		Now: func() time.Time { return now },
		Log: logger.Nop(),
		Sleep: func(context.Context, time.Duration) error {
			t.Fatal("slept although the window was already open")
			return nil
		},
	}
	if err := wt.WaitUntilOpen(context.Background(), Window{Hour: 8, Minute: 0}); err != nil {
		t.Fatalf("WaitUntilOpen: %v", err)
	}
}

func TestWaitUntilOpenSleepsRemainder(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"one minute before", time.Date(2024, 6, 3, 7, 59, 0, 0, time.UTC), time.Minute},
		{"just under the wire", time.Date(2024, 6, 3, 7, 59, 59, 0, time.UTC), time.Second},
		{"hours early", time.Date(2024, 6, 3, 5, 30, 0, 0, time.UTC), 2*time.Hour + 30*time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slept time.Duration
			wt := &Waiter{
				Now: func() time.Time { return tt.now },
				Log: logger.Nop(),
				Sleep: func(_ context.Context, d time.Duration) error {
					slept = d
					return nil
				},
			}
			if err := wt.WaitUntilOpen(context.Background(), Window{Hour: 8, Minute: 0}); err != nil {
				t.Fatalf("WaitUntilOpen: %v", err)
			}
			if slept != tt.want {
				t.Errorf("slept %s, want %s", slept, tt.want)
			}
		})
	}
}

func TestWaitUntilOpenCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	now := time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)
	wt := &Waiter{Now: func() time.Time { return now }, Log: logger.Nop()}

	if err := wt.WaitUntilOpen(ctx, Window{Hour: 8, Minute: 0}); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
