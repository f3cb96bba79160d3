package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ayusman/rpscam/internal/detector"
	"github.com/ayusman/rpscam/internal/gesture"
)

// Observation is the classification of one detection cycle.
type Observation struct {
	Gesture gesture.Gesture         `json:"gesture"`
	Hand    *detector.HandLandmarks `json:"hand,omitempty"`
	At      time.Time               `json:"at"`
}

// Tracker is the cell shared between the detection loop, which writes the
// latest gesture every frame, and the referee, which reads it once per round.
//
// Gestures are only recorded for the round while it is counting. At lock
// time a recording older than the hold window counts as no hand at all.
type Tracker struct {
	clock clockwork.Clock
	hold  time.Duration

	mu      sync.Mutex
	active  bool
	seen    bool
	gesture gesture.Gesture
	at      time.Time
	current Observation
}

// NewTracker creates a Tracker. A hold of zero accepts a recording of any
// age as long as it was made during the current round.
func NewTracker(clock clockwork.Clock, hold time.Duration) *Tracker {
	return &Tracker{
		clock:   clock,
		hold:    hold,
		gesture: gesture.Unknown,
		current: Observation{Gesture: gesture.Unknown},
	}
}

// Observe classifies the primary hand of one detection result. Frames
// without a hand update the display state but leave the round's recording
// untouched.
func (t *Tracker) Observe(hands []detector.HandLandmarks) Observation {
	obs := Observation{Gesture: gesture.Unknown, At: t.clock.Now()}
	if hand, ok := detector.Primary(hands); ok {
		obs.Hand = &hand
		obs.Gesture = gesture.ClassifyHand(&hand)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = obs
	if obs.Hand != nil && t.active {
		t.seen = true
		t.gesture = obs.Gesture
		t.at = obs.At
	}

	return obs
}

// Current returns the most recent observation, whether or not a round is running.
func (t *Tracker) Current() Observation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Begin opens sampling for a new round and forgets earlier recordings.
func (t *Tracker) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = true
	t.seen = false
	t.gesture = gesture.Unknown
	t.at = time.Time{}
}

// Lock closes sampling and returns the gesture to play. It is Unknown when
// no hand was seen this round or the last sighting is older than the hold
// window.
func (t *Tracker) Lock() gesture.Gesture {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = false
	if !t.seen {
		return gesture.Unknown
	}
	if t.hold > 0 && t.clock.Since(t.at) > t.hold {
		return gesture.Unknown
	}
	return t.gesture
}
