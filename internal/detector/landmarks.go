// Package detector provides hand detection interfaces and types for gesture recognition.
package detector

import (
	"errors"
	"fmt"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrIncompleteHand is returned when a detector reports a hand with fewer
// than NumLandmarks points.
var ErrIncompleteHand = errors.New("incomplete hand landmarks")

// FingerChains lists the landmark indices of each finger from the wrist to
// the tip, in drawing order.
var FingerChains = [5][5]int{
	{Wrist, ThumbCMC, ThumbMCP, ThumbIP, ThumbTip},
	{Wrist, IndexMCP, IndexPIP, IndexDIP, IndexTip},
	{Wrist, MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
	{Wrist, RingMCP, RingPIP, RingDIP, RingTip},
	{Wrist, PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
}

// Point3D represents a 3D point in space with x, y, z coordinates.
// Y grows downwards, with the origin at the top of the frame.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FromPoints builds a HandLandmarks from an ordered point sequence.
// Extra points are ignored; fewer than NumLandmarks is a contract violation
// by the detector and yields ErrIncompleteHand.
func FromPoints(points []Point3D) (HandLandmarks, error) {
	var h HandLandmarks
	if len(points) < NumLandmarks {
		return h, fmt.Errorf("%w: got %d points, want %d", ErrIncompleteHand, len(points), NumLandmarks)
	}
	copy(h.Points[:], points[:NumLandmarks])
	return h, nil
}

// Primary returns the highest scoring hand, or false if there is none.
func Primary(hands []HandLandmarks) (HandLandmarks, bool) {
	if len(hands) == 0 {
		return HandLandmarks{}, false
	}
	best := 0
	for i := 1; i < len(hands); i++ {
		if hands[i].Score > hands[best].Score {
			best = i
		}
	}
	return hands[best], true
}
