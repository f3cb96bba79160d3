package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ayusman/rpscam/internal/game"
	"github.com/ayusman/rpscam/internal/gesture"
)

// ErrUnresolved is returned when recording a round that has no result yet.
var ErrUnresolved = errors.New("round is not resolved")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// Stats summarises the rounds played in this session.
type Stats struct {
	Played int `json:"played"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// RoundRepository records resolved rounds.
type RoundRepository struct {
	db *sql.DB
}

// Rounds returns the round repository for this store.
func (s *Store) Rounds() *RoundRepository {
	return &RoundRepository{db: s.db}
}

// Create records a resolved round.
func (r *RoundRepository) Create(round game.Round) error {
	if round.Phase != game.PhaseResolved {
		return ErrUnresolved
	}

	_, err := r.db.Exec(
		`INSERT INTO rounds (id, number, player, opponent, outcome, message, started_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.Number, string(round.Player), string(round.Opponent),
		string(round.Outcome), round.Message, round.StartedAt, round.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert round %d: %w", round.Number, err)
	}

	return nil
}

// GetByID retrieves a round by its ID.
func (r *RoundRepository) GetByID(id string) (game.Round, error) {
	row := r.db.QueryRow(
		`SELECT id, number, player, opponent, outcome, message, started_at, resolved_at
		 FROM rounds WHERE id = ?`,
		id,
	)

	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Round{}, ErrNotFound
		}
		return game.Round{}, err
	}

	return round, nil
}

// List returns up to limit rounds, most recent first.
func (r *RoundRepository) List(limit int) ([]game.Round, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(
		`SELECT id, number, player, opponent, outcome, message, started_at, resolved_at
		 FROM rounds ORDER BY number DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := []game.Round{}
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}

	return rounds, rows.Err()
}

// Stats counts the session's results.
func (r *RoundRepository) Stats() (Stats, error) {
	var s Stats
	err := r.db.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'win' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'lose' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'draw' THEN 1 ELSE 0 END), 0)
		 FROM rounds`,
	).Scan(&s.Played, &s.Wins, &s.Losses, &s.Draws)
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}

// Clear removes every recorded round.
func (r *RoundRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM rounds`)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRound(row scanner) (game.Round, error) {
	var (
		round                     game.Round
		player, opponent, outcome string
	)
	err := row.Scan(&round.ID, &round.Number, &player, &opponent, &outcome,
		&round.Message, &round.StartedAt, &round.ResolvedAt)
	if err != nil {
		return game.Round{}, err
	}

	round.Phase = game.PhaseResolved
	round.Countdown = 0
	round.Display = game.GoSignal
	round.Player = gesture.Gesture(player)
	round.Opponent = gesture.Gesture(opponent)
	round.Outcome = game.Outcome(outcome)

	return round, nil
}
