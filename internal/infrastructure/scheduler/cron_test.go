package scheduler

import (
	"context"
	"testing"
	"time"

	"nudge/internal/logging"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Validate("0 18 * * 6"); err != nil {
		t.Fatalf("expected valid spec: %v", err)
	}
	if err := Validate("every saturday"); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestNextSaturdayEvening(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC) // Wednesday
	next, err := Next("0 18 * * 6", from)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	want := time.Date(2026, time.October, 17, 18, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %s, got %s", want, next)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("61 * * * *", time.UTC, logging.Discard())
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestStartRunsAndStops(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("@every 10ms", time.UTC, logging.Discard())
	fired := make(chan time.Time, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, func(at time.Time) {
		select {
		case fired <- at:
		default:
		}
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	// a second Start is a no-op
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("second start: %v", err)
	}

	select {
	case at := <-fired:
		if at.Location() != time.UTC {
			t.Fatalf("expected trigger in UTC, got %s", at.Location())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("job never fired")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
