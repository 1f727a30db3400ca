package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAddCronRejectsBadSpec(t *testing.T) {
	t.Parallel()
	s := New(Config{}, zerolog.Nop())
	if err := s.AddCron("job", "not a cron spec", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for bad spec")
	}
	if err := s.AddCron("", "* * * * *", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestAddCronAcceptsDescriptors(t *testing.T) {
	t.Parallel()
	s := New(Config{}, zerolog.Nop())
	for _, spec := range []string{"* * * * *", "0 12 * * *", "@hourly", "@daily"} {
		if err := s.AddCron("job-"+spec, spec, func(context.Context) error { return nil }); err != nil {
			t.Fatalf("AddCron(%q): %v", spec, err)
		}
	}
}

func TestStartRejectsBadTimezone(t *testing.T) {
	t.Parallel()
	s := New(Config{Timezone: "Mars/Olympus"}, zerolog.Nop())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for bad timezone")
	}
}

func TestFireSkipsOverlappingTicks(t *testing.T) {
	t.Parallel()
	s := New(Config{}, zerolog.Nop())

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	d := &jobDef{
		name: "slow",
		job: func(context.Context) error {
			calls.Add(1)
			close(started)
			<-release
			return nil
		},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.fire(d)
	}()
	<-started

	// Second tick lands while the first is still running: must be skipped.
	s.fire(d)
	if got := calls.Load(); got != 1 {
		t.Fatalf("job ran %d times, want 1", got)
	}

	close(release)
	wg.Wait()

	// After the first fire completes the job may run again.
	started = make(chan struct{})
	release = make(chan struct{})
	d.job = func(context.Context) error {
		calls.Add(1)
		return nil
	}
	s.fire(d)
	if got := calls.Load(); got != 2 {
		t.Fatalf("job ran %d times after release, want 2", got)
	}
}

func TestFireRecoversPanic(t *testing.T) {
	t.Parallel()
	s := New(Config{}, zerolog.Nop())
	d := &jobDef{name: "bad", job: func(context.Context) error { panic("boom") }}
	s.fire(d) // must not crash the test binary
	if d.running.Load() {
		t.Fatal("running flag leaked after panic")
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	t.Parallel()
	s := New(Config{Timezone: "UTC"}, zerolog.Nop())
	fired := make(chan struct{}, 1)
	if err := s.AddCron("tick", "* * * * *", func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start must be a no-op, got %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	s.Stop(stopCtx)
	s.Stop(stopCtx) // idempotent
}

func TestFireReportsJobError(t *testing.T) {
	t.Parallel()
	s := New(Config{}, zerolog.Nop())
	d := &jobDef{name: "failing", job: func(context.Context) error { return errors.New("nope") }}
	s.fire(d)
	if d.running.Load() {
		t.Fatal("running flag leaked after error")
	}
}
