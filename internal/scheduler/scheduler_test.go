package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"@hourly", false},
		{"@daily", false},
		{"@weekly", false},
		{"@monthly", false},
		{"@every 1h", false},
		{"@every 30m", false},
		{"@every 7d", false},
		{" @every 15m ", false},
		{"@every 10s", true},
		{"@every soon", true},
		{"@yearly", true},
		{"0 * * * *", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Parse(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestNext(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC) // a Monday
	tests := []struct {
		expr string
		want time.Time
	}{
		{"@hourly", time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)},
		{"@daily", time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)},
		{"@weekly", time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)},
		{"@monthly", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"@every 30m", time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)},
		{"@every 2d", time.Date(2024, 1, 17, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := Parse(tt.expr)
			if err != nil {
				t.Fatal(err)
			}
			if got := s.Next(base); !got.Equal(tt.want) {
				t.Errorf("Next = %s, want %s", got, tt.want)
			}
		})
	}

	s, _ := Parse("@monthly")
	if got := s.Next(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)); !got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("December rollover: got %s", got)
	}
}

func TestRefresherRunsOnSchedule(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	s, _ := Parse("@every 1h")

	var runs atomic.Int32
	ran := make(chan struct{}, 4)
	r := NewRefresher(s, func(ctx context.Context) error {
		runs.Add(1)
		ran <- struct{}{}
		if runs.Load() == 1 {
			return errors.New("upstream down")
		}
		return nil
	}, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		if err := clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("waiting for timer: %v", err)
		}
		if runs.Load() != int32(i) {
			t.Fatalf("job ran before its time: %d runs", runs.Load())
		}
		clock.Advance(time.Hour)
		select {
		case <-ran:
		case <-ctx.Done():
			t.Fatal("job did not run")
		}
	}

	// A failed run does not stop the schedule, and Stop ends Start.
	r.Stop()
	r.Stop()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Start did not return after Stop")
	}
	if runs.Load() != 2 {
		t.Errorf("expected 2 runs, got %d", runs.Load())
	}
}
