package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrEndOfPlayback is returned by a non-looping Playback once every frame
// has been read.
var ErrEndOfPlayback = errors.New("no more frames")

// Playback replays a fixed set of frames as a Source. It stands in for a
// camera in tests and headless runs.
type Playback struct {
	frames  []gocv.Mat
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
	reads   int
}

// NewPlayback creates a Playback over frames. The frames stay owned by the
// caller; each read returns a clone.
func NewPlayback(frames []gocv.Mat, loop bool) *Playback {
	return &Playback{
		frames: frames,
		loop:   loop,
	}
}

// BlankFrames allocates n black BGR frames of the given size.
func BlankFrames(n, width, height int) []gocv.Mat {
	frames := make([]gocv.Mat, n)
	for i := range frames {
		frames[i] = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	}
	return frames
}

// CloseFrames releases frames allocated by BlankFrames.
func CloseFrames(frames []gocv.Mat) {
	for i := range frames {
		frames[i].Close()
	}
}

func (p *Playback) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	p.index = 0
	return nil
}

func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return nil
}

func (p *Playback) ReadFrame() (*gocv.Mat, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil, ErrCameraNotOpen
	}
	if len(p.frames) == 0 {
		return nil, errors.New("no frames available")
	}

	if p.index >= len(p.frames) {
		if !p.loop {
			return nil, ErrEndOfPlayback
		}
		p.index = 0
	}

	frame := p.frames[p.index].Clone()
	p.index++
	p.reads++

	return &frame, nil
}

func (p *Playback) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Reads returns how many frames have been handed out.
func (p *Playback) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}
