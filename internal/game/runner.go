package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Runner drives a Referee on a clock: a ticker for the countdown and a
// timer for the pause before the next round. It is the only scheduler of
// round transitions.
type Runner struct {
	referee      *Referee
	clock        clockwork.Clock
	tickPeriod   time.Duration
	restartDelay time.Duration

	mu        sync.RWMutex
	listeners []func(Event)
}

// NewRunner creates a Runner. Non-positive periods fall back to the defaults.
func NewRunner(referee *Referee, clock clockwork.Clock, tickPeriod, restartDelay time.Duration) *Runner {
	if tickPeriod <= 0 {
		tickPeriod = DefaultTickPeriod
	}
	if restartDelay <= 0 {
		restartDelay = DefaultRestartDelay
	}
	return &Runner{
		referee:      referee,
		clock:        clock,
		tickPeriod:   tickPeriod,
		restartDelay: restartDelay,
	}
}

// OnEvent registers fn to receive every referee event. Listeners run on
// the runner goroutine and must not block.
func (r *Runner) OnEvent(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Run plays rounds back to back until ctx is done. An unfinished
// countdown is aborted on the way out.
func (r *Runner) Run(ctx context.Context) error {
	defer r.referee.Abort()

	for {
		ev, err := r.referee.Start()
		if err != nil {
			return err
		}
		r.publish(ev)

		if err := r.countdown(ctx); err != nil {
			return err
		}

		if err := r.pause(ctx); err != nil {
			return err
		}
	}
}

func (r *Runner) countdown(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			ev, err := r.referee.Tick()
			if err != nil {
				return err
			}
			r.publish(ev)

			if ev.Type == EventResolved {
				log.Printf("Round %d: %s vs %s, %s", ev.Round.Number, ev.Round.Player, ev.Round.Opponent, ev.Round.Message)
				return nil
			}
		}
	}
}

func (r *Runner) pause(ctx context.Context) error {
	timer := r.clock.NewTimer(r.restartDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func (r *Runner) publish(ev Event) {
	r.mu.RLock()
	listeners := r.listeners
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
