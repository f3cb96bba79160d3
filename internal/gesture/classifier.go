package gesture

import "github.com/ayusman/rpscam/internal/detector"

// Fingers records which of the four non-thumb fingers are held up.
type Fingers struct {
	Index  bool
	Middle bool
	Ring   bool
	Pinky  bool
}

// ExtendedFingers compares each fingertip with its PIP joint. A finger is
// extended when the tip is strictly higher on screen (smaller Y). This
// assumes a roughly upright hand. The thumb is not evaluated, so a thumbs
// up reads as a fist.
func ExtendedFingers(hand *detector.HandLandmarks) Fingers {
	p := &hand.Points
	return Fingers{
		Index:  p[detector.IndexTip].Y < p[detector.IndexPIP].Y,
		Middle: p[detector.MiddleTip].Y < p[detector.MiddlePIP].Y,
		Ring:   p[detector.RingTip].Y < p[detector.RingPIP].Y,
		Pinky:  p[detector.PinkyTip].Y < p[detector.PinkyPIP].Y,
	}
}

// Classify maps finger extension to a gesture. Rules are checked in order
// and the first match wins.
func Classify(f Fingers) Gesture {
	switch {
	case !f.Index && !f.Middle && !f.Ring && !f.Pinky:
		return Rock
	case f.Index && f.Middle && f.Ring && f.Pinky:
		return Paper
	case f.Index && f.Middle && !f.Ring && !f.Pinky:
		return Scissors
	default:
		return Unknown
	}
}

// ClassifyHand classifies a single detected hand.
func ClassifyHand(hand *detector.HandLandmarks) Gesture {
	return Classify(ExtendedFingers(hand))
}
