package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ayusman/rpscam/internal/detector"
	"github.com/ayusman/rpscam/internal/gesture"
)

// scriptedSource replays a fixed sequence of results, then repeats the last one.
type scriptedSource struct {
	mu    sync.Mutex
	steps []scriptStep
	calls int
}

type scriptStep struct {
	hands []detector.HandLandmarks
	err   error
}

func (s *scriptedSource) NextHands(ctx context.Context) ([]detector.HandLandmarks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i].hands, s.steps[i].err
}

func runLoop(t *testing.T, loop *Loop) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitObservation(t *testing.T, ch <-chan Observation) Observation {
	t.Helper()
	select {
	case obs := <-ch:
		return obs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for observation")
		return Observation{}
	}
}

func TestLoop_FeedsTracker(t *testing.T) {
	clock := clockwork.NewRealClock()
	tracker := NewTracker(clock, 0)
	tracker.Begin()

	src := &scriptedSource{steps: []scriptStep{{hands: hands(detector.PaperLandmarks())}}}
	loop := NewLoop(src, tracker, clock, LoopConfig{Interval: time.Millisecond})

	frames := make(chan Observation, 64)
	loop.OnFrame(func(obs Observation) {
		select {
		case frames <- obs:
		default:
		}
	})
	runLoop(t, loop)

	obs := waitObservation(t, frames)
	if obs.Gesture != gesture.Paper {
		t.Errorf("expected paper, got %s", obs.Gesture)
	}
	if got := tracker.Lock(); got != gesture.Paper {
		t.Errorf("tracker locked %s, want paper", got)
	}
}

func TestLoop_RecoversFromErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock, 0)

	src := &scriptedSource{steps: []scriptStep{
		{err: errors.New("camera hiccup")},
		{err: detector.ErrIncompleteHand},
		{hands: hands(detector.RockLandmarks())},
	}}
	loop := NewLoop(src, tracker, clock, LoopConfig{
		Interval:     time.Second,
		RetryInitial: 10 * time.Millisecond,
		RetryMax:     50 * time.Millisecond,
	})

	frames := make(chan Observation, 1)
	loop.OnFrame(func(obs Observation) {
		select {
		case frames <- obs:
		default:
		}
	})
	_, done := runLoop(t, loop)

	// Two failures, each followed by a backoff timer.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		if err := clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("waiting for backoff %d: %v", i+1, err)
		}
		clock.Advance(time.Second)
	}

	obs := waitObservation(t, frames)
	if obs.Gesture != gesture.Rock {
		t.Errorf("expected rock after recovery, got %s", obs.Gesture)
	}

	select {
	case err := <-done:
		t.Fatalf("loop exited early: %v", err)
	default:
	}
}

func TestLoop_DetectTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock, 0)

	deadlines := make(chan error, 4)
	src := HandSourceFunc(func(ctx context.Context) ([]detector.HandLandmarks, error) {
		<-ctx.Done()
		deadlines <- ctx.Err()
		return nil, ctx.Err()
	})

	loop := NewLoop(src, tracker, clock, LoopConfig{
		DetectTimeout: 2 * time.Second,
		RetryInitial:  time.Second,
		RetryMax:      time.Second,
	})
	cancel, done := runLoop(t, loop)

	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("waiting for detect deadline: %v", err)
	}

	clock.Advance(time.Second)
	select {
	case err := <-deadlines:
		t.Fatalf("detection gave up early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Second)
	select {
	case err := <-deadlines:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("detection deadline never fired")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &scriptedSource{steps: []scriptStep{{}}}
	loop := NewLoop(src, NewTracker(clock, 0), clock, DefaultLoopConfig())

	cancel, done := runLoop(t, loop)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
