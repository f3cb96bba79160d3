package game

import (
	"testing"

	"github.com/ayusman/rpscam/internal/gesture"
)

// chiSquareCritical is the 0.999 quantile of chi-square with 2 degrees of freedom.
const chiSquareCritical = 13.816

func TestRandomChooser_Uniform(t *testing.T) {
	const samples = 3000

	for _, seed := range []uint64{1, 42, 2024} {
		c := NewRandomChooser(seed)
		counts := make(map[gesture.Gesture]int)
		for i := 0; i < samples; i++ {
			counts[c.Choose()]++
		}

		if len(counts) != len(gesture.Moves) {
			t.Fatalf("seed %d: expected %d distinct moves, got %v", seed, len(gesture.Moves), counts)
		}

		expected := float64(samples) / float64(len(gesture.Moves))
		var chi2 float64
		for _, m := range gesture.Moves {
			d := float64(counts[m]) - expected
			chi2 += d * d / expected
		}

		if chi2 > chiSquareCritical {
			t.Errorf("seed %d: chi-square %.2f exceeds %.2f (counts %v)", seed, chi2, chiSquareCritical, counts)
		}
	}
}

func TestRandomChooser_OnlyPlayableMoves(t *testing.T) {
	c := NewRandomChooser(0)
	for i := 0; i < 500; i++ {
		if m := c.Choose(); !m.Playable() {
			t.Fatalf("chose non-playable move %q", m)
		}
	}
}

func TestRandomChooser_SeedIsReproducible(t *testing.T) {
	a := NewRandomChooser(7)
	b := NewRandomChooser(7)
	for i := 0; i < 100; i++ {
		if x, y := a.Choose(), b.Choose(); x != y {
			t.Fatalf("draw %d differs: %s vs %s", i, x, y)
		}
	}
}

func TestChooserFunc(t *testing.T) {
	var c Chooser = ChooserFunc(func() gesture.Gesture { return gesture.Paper })
	if got := c.Choose(); got != gesture.Paper {
		t.Errorf("Choose() = %s, want paper", got)
	}
}
