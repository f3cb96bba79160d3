package game

import (
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/ayusman/rpscam/internal/detector"
	"github.com/ayusman/rpscam/internal/gesture"
)

// countingSampler records how often the referee reads the player's move.
type countingSampler struct {
	move   gesture.Gesture
	begins int
	locks  int
}

func (s *countingSampler) Begin() { s.begins++ }

func (s *countingSampler) Lock() gesture.Gesture {
	s.locks++
	return s.move
}

func fixed(g gesture.Gesture) Chooser {
	return ChooserFunc(func() gesture.Gesture { return g })
}

func TestReferee_InitialState(t *testing.T) {
	ref := NewReferee(3, &countingSampler{}, fixed(gesture.Rock), clockwork.NewFakeClock())

	round := ref.Snapshot()
	if round.Phase != PhaseIdle {
		t.Errorf("expected idle, got %s", round.Phase)
	}

	if _, err := ref.Tick(); !errors.Is(err, ErrNotCounting) {
		t.Errorf("expected ErrNotCounting from idle, got %v", err)
	}
}

func TestReferee_Countdown(t *testing.T) {
	sampler := &countingSampler{move: gesture.Rock}
	ref := NewReferee(3, sampler, fixed(gesture.Scissors), clockwork.NewFakeClock())

	ev, err := ref.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ev.Type != EventStarted || ev.Round.Countdown != 3 || ev.Round.Display != "3" {
		t.Fatalf("unexpected start event %+v", ev)
	}
	if ev.Round.ID == "" || ev.Round.Number != 1 {
		t.Errorf("expected round 1 with an id, got %+v", ev.Round)
	}
	if sampler.begins != 1 {
		t.Errorf("expected sampler opened once, got %d", sampler.begins)
	}

	wantDisplay := []string{"2", "1", GoSignal}
	wantType := []EventType{EventCountdown, EventCountdown, EventResolved}
	for i := range wantDisplay {
		ev, err := ref.Tick()
		if err != nil {
			t.Fatalf("tick %d: %v", i+1, err)
		}
		if ev.Type != wantType[i] {
			t.Errorf("tick %d: type = %s, want %s", i+1, ev.Type, wantType[i])
		}
		if ev.Round.Display != wantDisplay[i] {
			t.Errorf("tick %d: display = %q, want %q", i+1, ev.Round.Display, wantDisplay[i])
		}
		if i < 2 && sampler.locks != 0 {
			t.Errorf("tick %d: gesture locked before zero", i+1)
		}
	}

	round := ref.Snapshot()
	if round.Phase != PhaseResolved || round.Countdown != 0 {
		t.Errorf("expected resolved at zero, got %s at %d", round.Phase, round.Countdown)
	}
	if round.Player != gesture.Rock || round.Opponent != gesture.Scissors {
		t.Errorf("got %s vs %s", round.Player, round.Opponent)
	}
	if round.Outcome != Win || round.Message != "YOU WIN" {
		t.Errorf("expected win, got %s %q", round.Outcome, round.Message)
	}
}

func TestReferee_LockedOnce(t *testing.T) {
	sampler := &countingSampler{move: gesture.Paper}
	ref := NewReferee(3, sampler, fixed(gesture.Rock), clockwork.NewFakeClock())

	ref.Start()
	for i := 0; i < 3; i++ {
		ref.Tick()
	}

	// The player changes hands after GO: the result must not move.
	sampler.move = gesture.Scissors
	for i := 0; i < 3; i++ {
		if _, err := ref.Tick(); !errors.Is(err, ErrNotCounting) {
			t.Errorf("expected ErrNotCounting while resolved, got %v", err)
		}
	}

	if sampler.locks != 1 {
		t.Errorf("expected exactly one lock, got %d", sampler.locks)
	}
	if got := ref.Snapshot().Player; got != gesture.Paper {
		t.Errorf("locked move changed to %s", got)
	}
}

func TestReferee_StartWhileCounting(t *testing.T) {
	ref := NewReferee(3, &countingSampler{}, fixed(gesture.Rock), clockwork.NewFakeClock())
	ref.Start()

	if _, err := ref.Start(); !errors.Is(err, ErrRoundInProgress) {
		t.Errorf("expected ErrRoundInProgress, got %v", err)
	}
}

func TestReferee_RestartClearsLock(t *testing.T) {
	sampler := &countingSampler{move: gesture.Rock}
	ref := NewReferee(3, sampler, fixed(gesture.Rock), clockwork.NewFakeClock())

	ref.Start()
	for i := 0; i < 3; i++ {
		ref.Tick()
	}

	ev, err := ref.Start()
	if err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if ev.Round.Number != 2 {
		t.Errorf("expected round 2, got %d", ev.Round.Number)
	}
	if ev.Round.Player != "" || ev.Round.Opponent != "" || ev.Round.Outcome != "" {
		t.Errorf("expected cleared moves, got %+v", ev.Round)
	}
	if ev.Round.Countdown != 3 {
		t.Errorf("expected countdown 3, got %d", ev.Round.Countdown)
	}
}

func TestReferee_Abort(t *testing.T) {
	ref := NewReferee(3, &countingSampler{}, fixed(gesture.Rock), clockwork.NewFakeClock())
	ref.Start()
	ref.Tick()
	ref.Abort()

	if got := ref.Snapshot().Phase; got != PhaseIdle {
		t.Errorf("expected idle after abort, got %s", got)
	}
	if _, err := ref.Start(); err != nil {
		t.Errorf("expected start after abort, got %v", err)
	}
}

func TestReferee_DefaultStartCount(t *testing.T) {
	ref := NewReferee(0, &countingSampler{}, fixed(gesture.Rock), clockwork.NewFakeClock())
	ev, _ := ref.Start()
	if ev.Round.Countdown != DefaultStartCount {
		t.Errorf("expected countdown %d, got %d", DefaultStartCount, ev.Round.Countdown)
	}
}

// playRound runs one full round with the tracker seeing the given hands
// while counting.
func playRound(t *testing.T, seen []detector.HandLandmarks, opponent gesture.Gesture) Round {
	t.Helper()

	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock, DefaultHoldFor)
	ref := NewReferee(3, tracker, fixed(opponent), clock)

	if _, err := ref.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		tracker.Observe(seen)
		if _, err := ref.Tick(); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}
	return ref.Snapshot()
}

func TestScenario_ScissorsBeatsPaper(t *testing.T) {
	round := playRound(t, hands(detector.ScissorsLandmarks()), gesture.Paper)

	if round.Player != gesture.Scissors {
		t.Fatalf("expected scissors, got %s", round.Player)
	}
	if round.Message != "YOU WIN" {
		t.Errorf("expected YOU WIN, got %q", round.Message)
	}
}

func TestScenario_RockDraw(t *testing.T) {
	round := playRound(t, hands(detector.RockLandmarks()), gesture.Rock)

	if round.Player != gesture.Rock {
		t.Fatalf("expected rock, got %s", round.Player)
	}
	if round.Message != "IT'S A DRAW" {
		t.Errorf("expected IT'S A DRAW, got %q", round.Message)
	}
}

func TestScenario_NoHandNeverWins(t *testing.T) {
	for _, opp := range gesture.Moves {
		round := playRound(t, nil, opp)

		if round.Player != gesture.Unknown {
			t.Errorf("vs %s: expected unknown, got %s", opp, round.Player)
		}
		if round.Message == "YOU WIN" {
			t.Errorf("vs %s: no hand must never win", opp)
		}
	}
}

func TestRound_Summary(t *testing.T) {
	tests := []struct {
		name  string
		round Round
		want  string
	}{
		{"idle", Round{Phase: PhaseIdle}, ""},
		{"counting", Round{Phase: PhaseCounting, Display: "2"}, "2"},
		{
			"resolved",
			Round{Phase: PhaseResolved, Message: "YOU WIN", Player: gesture.Rock, Opponent: gesture.Scissors},
			"YOU WIN: rock vs scissors",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.round.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}
