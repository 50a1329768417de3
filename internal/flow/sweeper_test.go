package flow

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeAbandonStore struct {
	swept   int64
	err     error
	cutoffs []time.Time
}

func (f *fakeAbandonStore) SweepAbandoned(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.swept, f.err
}

func TestSweepOnce(t *testing.T) {
	store := &fakeAbandonStore{swept: 2}
	s := NewSweeper(store, 30*time.Minute, time.Minute, nil, nil)

	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("swept = %d, want 2", n)
	}
	if len(store.cutoffs) != 1 {
		t.Fatalf("store called %d times", len(store.cutoffs))
	}
	// Cutoff sits one timeout behind now.
	gap := time.Since(store.cutoffs[0])
	if gap < 29*time.Minute || gap > 31*time.Minute {
		t.Fatalf("cutoff gap = %v, want ~30m", gap)
	}
}

func TestSweepOnceError(t *testing.T) {
	store := &fakeAbandonStore{err: errors.New("connection refused")}
	s := NewSweeper(store, 0, 0, nil, nil)

	if _, err := s.SweepOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &fakeAbandonStore{}
	s := NewSweeper(store, time.Minute, 10*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop on cancel")
	}
	if len(store.cutoffs) == 0 {
		t.Fatal("sweep never ran")
	}
}
