package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunSyncRecordsOutcome(t *testing.T) {
	s := New(nil)
	fail := true
	s.Register(Job{Name: "sweep", Interval: time.Hour, Fn: func(context.Context) error {
		if fail {
			return errors.New("bucket unreachable")
		}
		return nil
	}})

	res, err := s.RunSync(context.Background(), "sweep")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusReject || res.Message != "bucket unreachable" {
		t.Fatalf("unexpected result %+v", res)
	}

	fail = false
	res, _ = s.RunSync(context.Background(), "sweep")
	if res.Status != StatusFulfill || res.Message != "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestUnknownJob(t *testing.T) {
	s := New(nil)
	if err := s.Run(context.Background(), "nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if _, err := s.GetTask("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestStartRunsOnInterval(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	s.Register(Job{Name: "tick", Interval: 10 * time.Millisecond, Fn: func(context.Context) error {
		calls.Add(1)
		return nil
	}})
	s.Register(Job{Name: "alpha", Interval: time.Hour, Fn: func(context.Context) error { return nil }})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Fatalf("job ran %d times", calls.Load())
	}

	items := s.List()
	if len(items) != 2 || items[0].Name != "alpha" || items[1].Name != "tick" {
		t.Fatalf("list should be sorted by name: %+v", items)
	}
}
