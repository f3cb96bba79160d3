package app

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/rpscam/internal/capture"
	"github.com/ayusman/rpscam/internal/detector"
)

// Pipeline turns camera frames into hand landmarks for the detection loop
// and keeps the newest frame for the video stream.
type Pipeline struct {
	source   capture.Source
	detector detector.Detector

	mu       sync.Mutex
	latest   gocv.Mat
	hasFrame bool
}

// NewPipeline creates a Pipeline reading from source.
func NewPipeline(source capture.Source, d detector.Detector) *Pipeline {
	return &Pipeline{source: source, detector: d}
}

// NextHands reads one frame and runs hand detection on it.
func (p *Pipeline) NextHands(ctx context.Context) ([]detector.HandLandmarks, error) {
	frame, err := p.source.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	hands, err := p.detector.Detect(ctx, frame)
	p.keep(frame)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	return hands, nil
}

// LatestFrame returns a copy of the newest frame. The caller must close it.
func (p *Pipeline) LatestFrame() (gocv.Mat, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasFrame {
		return gocv.Mat{}, false
	}
	return p.latest.Clone(), true
}

// Close releases the retained frame.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasFrame {
		p.latest.Close()
		p.hasFrame = false
	}
}

// keep takes ownership of frame, replacing the previous one.
func (p *Pipeline) keep(frame *gocv.Mat) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasFrame {
		p.latest.Close()
	}
	p.latest = *frame
	p.hasFrame = true
}
