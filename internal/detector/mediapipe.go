package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// idleShutdown is how long the Python process may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// DefaultStartTimeout bounds the first answer from a fresh service, which
// includes importing MediaPipe and loading the model.
const DefaultStartTimeout = time.Minute

// warmFrameSize is the side of the blank frame Start sends.
const warmFrameSize = 64

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Frames are sent as a 4-byte big-endian length followed by JPEG bytes; the
// service answers each frame with one JSON line.
//
// A fresh process is not held to the caller's deadline until it has
// answered once: its first reply is bounded by Config.StartTimeout instead.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	newCommand func() *exec.Cmd
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	warm       bool
	idleTimer  *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started by Start or lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := findMediaPipeScript()
	if scriptPath == "" {
		return nil, fmt.Errorf("mediapipe_service.py not found")
	}

	d := &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}
	d.newCommand = d.pythonCommand
	return d, nil
}

// Start launches the service and waits for it to answer a blank frame, so
// the first real detection does not pay for loading the model. It returns
// at once if the service is already answering.
func (d *MediaPipeDetector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.warm {
		return nil
	}
	if err := d.ensureStarted(); err != nil {
		return err
	}

	blank := gocv.NewMatWithSize(warmFrameSize, warmFrameSize, gocv.MatTypeCV8UC3)
	defer blank.Close()
	data, err := encodeFrame(blank)
	if err != nil {
		return err
	}

	startCtx, cancel := d.startContext(ctx)
	defer cancel()
	if _, err := d.exchange(startCtx, data); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}
	d.warm = true
	d.resetIdleTimer()

	return nil
}

// Detect analyzes a frame and returns detected hand landmarks.
// If ctx ends before the service answers, the process is killed since the
// stream can no longer be trusted; the next call starts a fresh one.
func (d *MediaPipeDetector) Detect(ctx context.Context, frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	data, err := encodeFrame(*frame)
	if err != nil {
		return nil, err
	}

	if !d.warm {
		var cancel context.CancelFunc
		ctx, cancel = d.startContext(ctx)
		defer cancel()
	}

	line, err := d.exchange(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	d.warm = true

	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := make([]HandLandmarks, 0, len(response.Hands))
	for _, h := range response.Hands {
		lm, err := h.toHandLandmarks()
		if err != nil {
			return nil, err
		}
		result = append(result, lm)
	}

	d.resetIdleTimer()

	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// startContext replaces ctx's deadline with the start timeout. Cancelling
// ctx still ends the wait.
func (d *MediaPipeDetector) startContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := d.config.StartTimeout
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}
	startCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	stop := context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.Canceled) {
			cancel()
		}
	})
	return startCtx, func() {
		stop()
		cancel()
	}
}

// exchange sends one frame and waits for its reply. A failed or abandoned
// exchange leaves the stream out of step, so the process is stopped.
func (d *MediaPipeDetector) exchange(ctx context.Context, data []byte) (string, error) {
	type reply struct {
		line string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		line, err := d.roundTrip(data)
		done <- reply{line: line, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			d.kill()
			d.shutdown()
			return "", r.err
		}
		return r.line, nil
	case <-ctx.Done():
		d.kill()
		<-done
		d.shutdown()
		return "", ctx.Err()
	}
}

func (d *MediaPipeDetector) roundTrip(data []byte) (string, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return "", fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return "", fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

func encodeFrame(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

func (d *MediaPipeDetector) args() []string {
	return []string{
		d.scriptPath,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
		"--model-complexity", strconv.Itoa(d.config.ModelComplexity),
	}
}

func (d *MediaPipeDetector) pythonCommand() *exec.Cmd {
	// Use virtual environment Python if available
	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}
	return exec.Command(pythonPath, d.args()...)
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = d.newCommand()
	d.warm = false

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeDetector) kill() {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.warm = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".rpscam/scripts/mediapipe_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".rpscam/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
// Coordinates are normalized to [0, 1] of the frame size.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toHandLandmarks() (HandLandmarks, error) {
	lm, err := FromPoints(h.Points)
	if err != nil {
		return HandLandmarks{}, fmt.Errorf("mediapipe: %w", err)
	}
	lm.Handedness = h.Handedness
	lm.Score = h.Score
	return lm, nil
}
