// Package app wires the camera, detector and game loops into one running game.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/rpscam/internal/capture"
	"github.com/ayusman/rpscam/internal/detector"
	"github.com/ayusman/rpscam/internal/game"
	"github.com/ayusman/rpscam/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	// Store records resolved rounds. Optional.
	Store *store.Store
	// Source is the camera. Nil runs in remote mode, where hands arrive
	// through Observe.
	Source capture.Source
	// Detector finds hands in camera frames. Nil tries MediaPipe and falls
	// back to the mock detector.
	Detector detector.Detector
	// Chooser picks the opponent's move. Nil uses a RandomChooser seeded
	// with Seed.
	Chooser game.Chooser
	Seed    uint64
	// Clock drives every timer. Nil uses the real clock.
	Clock clockwork.Clock
	Game  game.Config
	Loop  game.LoopConfig
}

// starter is implemented by detectors whose first answer is slow, such as
// MediaPipe loading its model.
type starter interface {
	Start(ctx context.Context) error
}

// App is the running game: a round runner, and in camera mode a detection
// loop, sharing one tracker.
type App struct {
	config   Config
	tracker  *game.Tracker
	referee  *game.Referee
	runner   *game.Runner
	pipeline *Pipeline
	loop     *game.Loop

	mu        sync.RWMutex
	listeners []func(game.Observation)
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Chooser == nil {
		config.Chooser = game.NewRandomChooser(config.Seed)
	}
	if config.Game == (game.Config{}) {
		config.Game = game.DefaultConfig()
	}
	if config.Loop == (game.LoopConfig{}) {
		config.Loop = game.DefaultLoopConfig()
	}

	a := &App{config: config}
	a.tracker = game.NewTracker(config.Clock, config.Game.HoldFor)
	a.referee = game.NewReferee(config.Game.StartCount, a.tracker, config.Chooser, config.Clock)
	a.runner = game.NewRunner(a.referee, config.Clock, config.Game.TickPeriod, config.Game.RestartDelay)
	a.runner.OnEvent(a.record)

	if config.Source != nil {
		if config.Detector == nil {
			config.Detector = defaultDetector()
			a.config.Detector = config.Detector
		}
		a.pipeline = NewPipeline(config.Source, config.Detector)
		a.loop = game.NewLoop(a.pipeline, a.tracker, config.Clock, config.Loop)
		a.loop.OnFrame(a.publishFrame)
	}

	return a
}

// defaultDetector tries MediaPipe first and falls back to the mock detector.
func defaultDetector() detector.Detector {
	mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
	if err != nil {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Println("Using MediaPipe hand detection")
	return mp
}

// OnEvent registers fn for every referee transition. Register before Run.
func (a *App) OnEvent(fn func(game.Event)) {
	a.runner.OnEvent(fn)
}

// OnFrame registers fn for every classified detection result, from the
// camera loop or from Observe. Register before Run.
func (a *App) OnFrame(fn func(game.Observation)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Observe feeds externally detected hands, as sent by the browser in
// remote mode.
func (a *App) Observe(hands []detector.HandLandmarks) game.Observation {
	obs := a.tracker.Observe(hands)
	a.publishFrame(obs)
	return obs
}

// Current returns the latest classified detection result.
func (a *App) Current() game.Observation {
	return a.tracker.Current()
}

// Snapshot returns the current round.
func (a *App) Snapshot() game.Round {
	return a.referee.Snapshot()
}

// Stats returns the session score, or zeros without a store.
func (a *App) Stats() (store.Stats, error) {
	if a.config.Store == nil {
		return store.Stats{}, nil
	}
	return a.config.Store.Rounds().Stats()
}

// Pipeline returns the camera pipeline, or nil in remote mode.
func (a *App) Pipeline() *Pipeline {
	return a.pipeline
}

// Remote reports whether hands come from Observe rather than a camera.
func (a *App) Remote() bool {
	return a.loop == nil
}

// Run plays rounds until ctx is cancelled. In camera mode it opens the
// camera and runs the detection loop alongside the rounds.
func (a *App) Run(ctx context.Context) error {
	if a.pipeline != nil {
		if err := a.config.Source.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
		defer a.closeCamera()

		if err := a.startDetector(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("Hand detector not ready (%v), retrying from the detection loop", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runner.Run(ctx)
	})
	if a.loop != nil {
		g.Go(func() error {
			return a.loop.Run(ctx)
		})
	}

	log.Println("Game started")
	err := g.Wait()
	log.Println("Game stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startDetector waits for the detector to come up before any round starts.
func (a *App) startDetector(ctx context.Context) error {
	s, ok := a.config.Detector.(starter)
	if !ok {
		return nil
	}
	log.Println("Starting hand detector")
	return s.Start(ctx)
}

func (a *App) closeCamera() {
	if err := a.config.Source.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if err := a.config.Detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}
	a.pipeline.Close()
}

// record stores resolved rounds.
func (a *App) record(ev game.Event) {
	if ev.Type != game.EventResolved || a.config.Store == nil {
		return
	}
	if err := a.config.Store.Rounds().Create(ev.Round); err != nil {
		log.Printf("Failed to record round %d: %v", ev.Round.Number, err)
	}
}

func (a *App) publishFrame(obs game.Observation) {
	a.mu.RLock()
	listeners := a.listeners
	a.mu.RUnlock()

	for _, fn := range listeners {
		fn(obs)
	}
}
