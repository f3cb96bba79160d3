package game

import (
	"math/rand/v2"
	"sync"

	"github.com/ayusman/rpscam/internal/gesture"
)

// Chooser picks the opponent's move for a round.
type Chooser interface {
	Choose() gesture.Gesture
}

// ChooserFunc adapts a function to the Chooser interface.
type ChooserFunc func() gesture.Gesture

// Choose calls f.
func (f ChooserFunc) Choose() gesture.Gesture {
	return f()
}

// RandomChooser draws uniformly from rock, paper and scissors.
type RandomChooser struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomChooser returns a chooser seeded with seed. A zero seed draws a
// random one.
func NewRandomChooser(seed uint64) *RandomChooser {
	var src *rand.PCG
	if seed == 0 {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	} else {
		src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
	return &RandomChooser{rng: rand.New(src)}
}

// Choose returns one of gesture.Moves with equal probability.
func (c *RandomChooser) Choose() gesture.Gesture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gesture.Moves[c.rng.IntN(len(gesture.Moves))]
}
