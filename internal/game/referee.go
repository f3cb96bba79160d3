package game

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ayusman/rpscam/internal/gesture"
)

// Round timing defaults.
const (
	// DefaultStartCount is the countdown value a round starts from.
	DefaultStartCount = 3
	// DefaultTickPeriod is the time between countdown steps.
	DefaultTickPeriod = 2000 * time.Millisecond
	// DefaultRestartDelay is the pause between a result and the next round.
	DefaultRestartDelay = 3000 * time.Millisecond
	// DefaultHoldFor is how old a gesture may be when the round locks it.
	DefaultHoldFor = 500 * time.Millisecond
)

// GoSignal is displayed when the countdown reaches zero.
const GoSignal = "GO!"

var (
	// ErrRoundInProgress is returned by Start while a countdown is running.
	ErrRoundInProgress = errors.New("round in progress")
	// ErrNotCounting is returned by Tick when no countdown is running.
	ErrNotCounting = errors.New("no countdown running")
)

// Phase is the referee's state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseCounting Phase = "counting"
	PhaseResolved Phase = "resolved"
)

// Config holds round timing.
type Config struct {
	StartCount   int
	TickPeriod   time.Duration
	RestartDelay time.Duration
	HoldFor      time.Duration
}

// DefaultConfig returns the standard three-count round.
func DefaultConfig() Config {
	return Config{
		StartCount:   DefaultStartCount,
		TickPeriod:   DefaultTickPeriod,
		RestartDelay: DefaultRestartDelay,
		HoldFor:      DefaultHoldFor,
	}
}

// Round is a snapshot of the current or last round.
type Round struct {
	ID         string          `json:"id,omitempty"`
	Number     int             `json:"number"`
	Phase      Phase           `json:"phase"`
	Countdown  int             `json:"countdown"`
	Display    string          `json:"display"`
	Player     gesture.Gesture `json:"player,omitempty"`
	Opponent   gesture.Gesture `json:"opponent,omitempty"`
	Outcome    Outcome         `json:"outcome,omitempty"`
	Message    string          `json:"message,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	ResolvedAt time.Time       `json:"resolved_at"`
}

// Summary is the one-line text shown to the player: the countdown while
// counting, the result once resolved.
func (r Round) Summary() string {
	switch r.Phase {
	case PhaseCounting:
		return r.Display
	case PhaseResolved:
		return fmt.Sprintf("%s: %s vs %s", r.Message, r.Player, r.Opponent)
	default:
		return ""
	}
}

// EventType identifies a referee transition.
type EventType string

const (
	EventStarted   EventType = "started"
	EventCountdown EventType = "countdown"
	EventResolved  EventType = "resolved"
)

// Event is published on every referee transition.
type Event struct {
	Type  EventType `json:"type"`
	Round Round     `json:"round"`
}

// Sampler supplies the player's gesture. Begin opens a round; Lock is
// called exactly once when the countdown reaches zero.
type Sampler interface {
	Begin()
	Lock() gesture.Gesture
}

// Referee is the round state machine. It has no timers of its own: a
// Runner, or a test, drives it by calling Start and Tick.
type Referee struct {
	startCount int
	sampler    Sampler
	chooser    Chooser
	clock      clockwork.Clock

	mu     sync.Mutex
	round  Round
	number int
}

// NewReferee creates a Referee in the idle phase.
func NewReferee(startCount int, sampler Sampler, chooser Chooser, clock clockwork.Clock) *Referee {
	if startCount < 1 {
		startCount = DefaultStartCount
	}
	return &Referee{
		startCount: startCount,
		sampler:    sampler,
		chooser:    chooser,
		clock:      clock,
		round:      Round{Phase: PhaseIdle},
	}
}

// Start begins a countdown from idle or resolved.
func (r *Referee) Start() (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.round.Phase == PhaseCounting {
		return Event{}, ErrRoundInProgress
	}

	r.number++
	r.round = Round{
		ID:        uuid.NewString(),
		Number:    r.number,
		Phase:     PhaseCounting,
		Countdown: r.startCount,
		Display:   strconv.Itoa(r.startCount),
		StartedAt: r.clock.Now(),
	}
	r.sampler.Begin()

	return Event{Type: EventStarted, Round: r.round}, nil
}

// Tick advances the countdown by one step. The step that reaches zero
// locks the player's gesture, draws the opponent's move and resolves the
// round.
func (r *Referee) Tick() (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.round.Phase != PhaseCounting {
		return Event{}, ErrNotCounting
	}

	r.round.Countdown--
	if r.round.Countdown > 0 {
		r.round.Display = strconv.Itoa(r.round.Countdown)
		return Event{Type: EventCountdown, Round: r.round}, nil
	}

	r.round.Display = GoSignal
	r.round.Player = r.sampler.Lock()
	r.round.Opponent = r.chooser.Choose()
	r.round.Outcome = Decide(r.round.Player, r.round.Opponent)
	r.round.Message = r.round.Outcome.Message()
	r.round.Phase = PhaseResolved
	r.round.ResolvedAt = r.clock.Now()

	return Event{Type: EventResolved, Round: r.round}, nil
}

// Abort drops an unfinished countdown and returns to idle. A resolved
// round is left as it is.
func (r *Referee) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.round.Phase == PhaseCounting {
		r.round.Phase = PhaseIdle
		r.round.Display = ""
	}
}

// Snapshot returns a copy of the current round.
func (r *Referee) Snapshot() Round {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}
