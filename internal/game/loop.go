package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"github.com/ayusman/rpscam/internal/detector"
)

// Detection loop defaults.
const (
	// DefaultFrameInterval paces detection at roughly display refresh rate.
	DefaultFrameInterval = 33 * time.Millisecond
	// DefaultDetectTimeout bounds a single detection call.
	DefaultDetectTimeout = 2 * time.Second
	// DefaultRetryMax caps the wait between failed detections.
	DefaultRetryMax = 10 * time.Second
)

// HandSource produces the hands visible in the next frame.
type HandSource interface {
	NextHands(ctx context.Context) ([]detector.HandLandmarks, error)
}

// HandSourceFunc adapts a function to the HandSource interface.
type HandSourceFunc func(ctx context.Context) ([]detector.HandLandmarks, error)

// NextHands calls f.
func (f HandSourceFunc) NextHands(ctx context.Context) ([]detector.HandLandmarks, error) {
	return f(ctx)
}

// LoopConfig controls detection pacing and failure handling.
type LoopConfig struct {
	// Interval is the pause after each successful frame. Zero runs back to back.
	Interval time.Duration
	// DetectTimeout bounds each NextHands call. Zero disables the bound.
	DetectTimeout time.Duration
	// RetryInitial and RetryMax shape the backoff after a failed frame.
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// DefaultLoopConfig returns the standard pacing.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		Interval:      DefaultFrameInterval,
		DetectTimeout: DefaultDetectTimeout,
		RetryInitial:  backoff.DefaultInitialInterval,
		RetryMax:      DefaultRetryMax,
	}
}

// Loop is the continuous detection activity. Each cycle asks the source
// for hands, classifies them into the Tracker and notifies listeners.
// Failures are logged and retried; they never end the loop.
type Loop struct {
	source  HandSource
	tracker *Tracker
	clock   clockwork.Clock
	config  LoopConfig

	mu        sync.RWMutex
	listeners []func(Observation)
}

// NewLoop creates a detection loop feeding tracker.
func NewLoop(source HandSource, tracker *Tracker, clock clockwork.Clock, config LoopConfig) *Loop {
	if config.RetryInitial <= 0 {
		config.RetryInitial = backoff.DefaultInitialInterval
	}
	if config.RetryMax < config.RetryInitial {
		config.RetryMax = config.RetryInitial
	}
	return &Loop{
		source:  source,
		tracker: tracker,
		clock:   clock,
		config:  config,
	}
}

// OnFrame registers fn to receive every observation.
func (l *Loop) OnFrame(fn func(Observation)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Run polls the source until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = l.config.RetryInitial
	retry.MaxInterval = l.config.RetryMax

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hands, err := l.detect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay := retry.NextBackOff()
			log.Printf("Error detecting hands (retrying in %s): %v", delay, err)
			if err := l.sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}
		retry.Reset()

		obs := l.tracker.Observe(hands)
		l.publish(obs)

		if l.config.Interval > 0 {
			if err := l.sleep(ctx, l.config.Interval); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) detect(ctx context.Context) ([]detector.HandLandmarks, error) {
	if l.config.DetectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = clockwork.WithTimeout(ctx, l.clock, l.config.DetectTimeout)
		defer cancel()
	}
	return l.source.NextHands(ctx)
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) error {
	timer := l.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func (l *Loop) publish(obs Observation) {
	l.mu.RLock()
	listeners := l.listeners
	l.mu.RUnlock()

	for _, fn := range listeners {
		fn(obs)
	}
}
