// Package game referees timed rock-paper-scissors rounds against a random opponent.
package game

import "github.com/ayusman/rpscam/internal/gesture"

// Outcome is the result of a round from the player's point of view.
type Outcome string

const (
	Win  Outcome = "win"
	Lose Outcome = "lose"
	Draw Outcome = "draw"
)

// Message returns the text shown to the player.
func (o Outcome) Message() string {
	switch o {
	case Win:
		return "YOU WIN"
	case Lose:
		return "YOU LOSE"
	case Draw:
		return "IT'S A DRAW"
	default:
		return ""
	}
}

// Decide computes the outcome for the player. A player move that is not
// playable (no hand, or an unrecognised shape) always loses.
func Decide(player, opponent gesture.Gesture) Outcome {
	switch {
	case !player.Playable():
		return Lose
	case !opponent.Playable():
		return Win
	case player == opponent:
		return Draw
	case player.Beats(opponent):
		return Win
	default:
		return Lose
	}
}
