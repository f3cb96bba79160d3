package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/rpscam/internal/overlay"
)

// streamInterval paces the MJPEG stream at about 15 FPS.
const streamInterval = 66 * time.Millisecond

// FrameSource provides the most recent camera frame.
type FrameSource interface {
	// LatestFrame returns a copy of the newest frame, which the caller
	// must close, or false if none has been captured yet.
	LatestFrame() (gocv.Mat, bool)
}

// StreamHandler serves MJPEG frames with the hand overlay and round caption.
type StreamHandler struct {
	frames FrameSource
	game   Game
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(frames FrameSource, g Game) *StreamHandler {
	return &StreamHandler{frames: frames, game: g}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		buf, ok := h.render()
		if !ok {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		_, err := w.Write(buf.GetBytes())
		buf.Close()
		if err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// render draws the overlay on the latest frame and encodes it as JPEG.
func (h *StreamHandler) render() (*gocv.NativeByteBuffer, bool) {
	frame, ok := h.frames.LatestFrame()
	if !ok {
		return nil, false
	}
	defer frame.Close()

	obs := h.game.Current()
	overlay.Draw(&frame, obs.Hand, h.game.Snapshot().Summary())

	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return nil, false
	}
	return buf, true
}
