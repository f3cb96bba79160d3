package detector

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected. Implementations
	// must give up when ctx is done.
	Detect(ctx context.Context, frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ModelComplexity selects the MediaPipe model: 0 is "lite", 1 is "full".
	ModelComplexity int

	// StartTimeout bounds how long a fresh detector may take to answer its
	// first frame.
	StartTimeout time.Duration
}

// DefaultConfig returns a Config suited to a single player.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		ModelComplexity: 0,
		StartTimeout:    DefaultStartTimeout,
	}
}
