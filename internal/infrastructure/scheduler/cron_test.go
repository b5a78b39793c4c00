package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNewCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	if _, err := NewCronScheduler("not a cron", nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNextHonoursLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	s, err := NewCronScheduler("0 6 * * 1", loc)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	// Sunday 2024-03-03 12:00 UTC; next Monday 06:00 at UTC+3 is 03:00 UTC.
	from := time.Date(2024, time.March, 3, 12, 0, 0, 0, time.UTC)
	next := s.Next(from)
	want := time.Date(2024, time.March, 4, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next.UTC())
	}
}

func TestStartFiresAndStops(t *testing.T) {
	t.Parallel()

	// seven fields: every second
	s, err := NewCronScheduler("* * * * * * *", nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	fired := make(chan time.Time, 4)
	job := func(at time.Time) {
		select {
		case fired <- at:
		default:
		}
	}
	if err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("second start: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestStartRejectsNilJob(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("0 6 * * 1", nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if err := s.Start(context.Background(), nil); err == nil {
		t.Fatal("expected nil job to be rejected")
	}
}
