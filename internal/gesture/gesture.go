// Package gesture classifies hand landmarks into rock-paper-scissors moves.
package gesture

// Gesture is a hand shape recognised from one frame of landmarks.
type Gesture string

const (
	Rock     Gesture = "rock"
	Paper    Gesture = "paper"
	Scissors Gesture = "scissors"
	Unknown  Gesture = "unknown"
)

// Moves lists the playable gestures.
var Moves = [3]Gesture{Rock, Paper, Scissors}

// beats maps each playable gesture to the one it defeats.
var beats = map[Gesture]Gesture{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// Playable reports whether g is one of rock, paper or scissors.
func (g Gesture) Playable() bool {
	_, ok := beats[g]
	return ok
}

// Beats reports whether g defeats other. Unknown beats nothing and nothing
// beats Unknown.
func (g Gesture) Beats(other Gesture) bool {
	victim, ok := beats[g]
	return ok && victim == other
}

// Parse returns the gesture named s, or Unknown.
func Parse(s string) Gesture {
	g := Gesture(s)
	if g.Playable() {
		return g
	}
	return Unknown
}

func (g Gesture) String() string {
	return string(g)
}
