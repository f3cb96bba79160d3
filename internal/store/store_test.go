package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/rpscam/internal/game"
	"github.com/ayusman/rpscam/internal/gesture"
)

// newTestStore creates a Store backed by a temporary database file.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func resolved(number int, player, opponent gesture.Gesture) game.Round {
	outcome := game.Decide(player, opponent)
	started := baseTime.Add(time.Duration(number) * 10 * time.Second)
	return game.Round{
		ID:         fmt.Sprintf("round-%d", number),
		Number:     number,
		Phase:      game.PhaseResolved,
		Display:    game.GoSignal,
		Player:     player,
		Opponent:   opponent,
		Outcome:    outcome,
		Message:    outcome.Message(),
		StartedAt:  started,
		ResolvedAt: started.Add(6 * time.Second),
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var name string
	err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='rounds'").Scan(&name)
	if err != nil {
		t.Errorf("rounds table should exist after migrations: %v", err)
	}

	err = s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_rounds_number'").Scan(&name)
	if err != nil {
		t.Errorf("rounds index should exist after migrations: %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_HistoryDoesNotSurviveRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Rounds().Create(resolved(1, gesture.Rock, gesture.Scissors)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	stats, err := s.Rounds().Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Played != 0 {
		t.Errorf("expected empty history after reopen, got %d rounds", stats.Played)
	}
}

func TestRoundRepository_CreateAndGet(t *testing.T) {
	repo := newTestStore(t).Rounds()

	want := resolved(1, gesture.Scissors, gesture.Paper)
	if err := repo.Create(want); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(want.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Number != 1 || got.Player != gesture.Scissors || got.Opponent != gesture.Paper {
		t.Errorf("unexpected round %+v", got)
	}
	if got.Outcome != game.Win || got.Message != "YOU WIN" {
		t.Errorf("expected a win, got %s %q", got.Outcome, got.Message)
	}
	if got.Phase != game.PhaseResolved {
		t.Errorf("expected resolved phase, got %s", got.Phase)
	}
	if !got.StartedAt.Equal(want.StartedAt) || !got.ResolvedAt.Equal(want.ResolvedAt) {
		t.Errorf("times changed: got %v/%v, want %v/%v", got.StartedAt, got.ResolvedAt, want.StartedAt, want.ResolvedAt)
	}
}

func TestRoundRepository_GetByID_NotFound(t *testing.T) {
	repo := newTestStore(t).Rounds()

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRoundRepository_CreateRejectsUnresolved(t *testing.T) {
	repo := newTestStore(t).Rounds()

	round := game.Round{ID: "x", Number: 1, Phase: game.PhaseCounting, Countdown: 2}
	if err := repo.Create(round); !errors.Is(err, ErrUnresolved) {
		t.Errorf("expected ErrUnresolved, got %v", err)
	}
}

func TestRoundRepository_List(t *testing.T) {
	repo := newTestStore(t).Rounds()

	for i, pair := range [][2]gesture.Gesture{
		{gesture.Rock, gesture.Scissors},
		{gesture.Paper, gesture.Scissors},
		{gesture.Rock, gesture.Rock},
	} {
		if err := repo.Create(resolved(i+1, pair[0], pair[1])); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		rounds, err := repo.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(rounds) != 3 {
			t.Fatalf("expected 3 rounds, got %d", len(rounds))
		}
		for i, want := range []int{3, 2, 1} {
			if rounds[i].Number != want {
				t.Errorf("rounds[%d].Number = %d, want %d", i, rounds[i].Number, want)
			}
		}
	})

	t.Run("limit", func(t *testing.T) {
		rounds, err := repo.List(2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(rounds) != 2 {
			t.Errorf("expected 2 rounds, got %d", len(rounds))
		}
	})
}

func TestRoundRepository_Stats(t *testing.T) {
	repo := newTestStore(t).Rounds()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}

	rounds := []game.Round{
		resolved(1, gesture.Rock, gesture.Scissors),
		resolved(2, gesture.Rock, gesture.Paper),
		resolved(3, gesture.Unknown, gesture.Rock),
		resolved(4, gesture.Paper, gesture.Paper),
		resolved(5, gesture.Scissors, gesture.Paper),
	}
	for _, r := range rounds {
		if err := repo.Create(r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := Stats{Played: 5, Wins: 2, Losses: 2, Draws: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}
