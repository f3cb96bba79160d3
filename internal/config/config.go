// Package config loads runtime settings from the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ayusman/rpscam/internal/game"
)

// Hand sources.
const (
	// SourceCamera reads the local webcam and runs the detector in-process.
	SourceCamera = "camera"
	// SourceRemote takes landmarks from the browser over /api/landmarks.
	SourceRemote = "remote"
)

// DataDirName is the per-user directory for the database and helper files.
const DataDirName = ".rpscam"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds rpscam configuration.
type Config struct {
	Addr   string `env:"RPSCAM_ADDR" envDefault:"localhost:8080"`
	DBPath string `env:"RPSCAM_DB_PATH"`
	WebDir string `env:"RPSCAM_WEB_DIR"`

	Source   string `env:"RPSCAM_SOURCE" envDefault:"camera"`
	CameraID int    `env:"RPSCAM_CAMERA_ID" envDefault:"0"`
	Mirror   bool   `env:"RPSCAM_MIRROR" envDefault:"true"`

	StartCount    int           `env:"RPSCAM_START_COUNT" envDefault:"3"`
	TickPeriod    time.Duration `env:"RPSCAM_TICK_PERIOD" envDefault:"2s"`
	RestartDelay  time.Duration `env:"RPSCAM_RESTART_DELAY" envDefault:"3s"`
	HoldFor       time.Duration `env:"RPSCAM_HOLD_FOR" envDefault:"500ms"`
	FrameInterval time.Duration `env:"RPSCAM_FRAME_INTERVAL" envDefault:"33ms"`
	DetectTimeout time.Duration `env:"RPSCAM_DETECT_TIMEOUT" envDefault:"2s"`

	// Seed fixes the opponent's move sequence; zero picks a random seed.
	Seed uint64 `env:"RPSCAM_SEED" envDefault:"0"`

	Tray bool `env:"RPSCAM_TRAY" envDefault:"false"`
	Open bool `env:"RPSCAM_OPEN" envDefault:"false"`
}

// ParseConfig parses environment and flags into a validated Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (default ~/.rpscam/rpscam.db)")
	fs.StringVar(&cfg.WebDir, "web", cfg.WebDir, "Static web directory (default: search web/, ../web, ~/.rpscam/web, else the bundled page)")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "Hand source: camera or remote")
	fs.IntVar(&cfg.CameraID, "camera", cfg.CameraID, "Camera device ID")
	fs.BoolVar(&cfg.Mirror, "mirror", cfg.Mirror, "Mirror camera frames")
	fs.IntVar(&cfg.StartCount, "count", cfg.StartCount, "Countdown start value")
	fs.DurationVar(&cfg.TickPeriod, "tick", cfg.TickPeriod, "Time between countdown steps")
	fs.DurationVar(&cfg.RestartDelay, "restart", cfg.RestartDelay, "Pause between a result and the next round")
	fs.DurationVar(&cfg.HoldFor, "hold", cfg.HoldFor, "Maximum age of the gesture locked at zero (0 = any age)")
	fs.DurationVar(&cfg.FrameInterval, "frame-interval", cfg.FrameInterval, "Delay between detection cycles")
	fs.DurationVar(&cfg.DetectTimeout, "detect-timeout", cfg.DetectTimeout, "Timeout for one detection call")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Opponent RNG seed (0 = random)")
	fs.BoolVar(&cfg.Tray, "tray", cfg.Tray, "Show the system tray icon")
	fs.BoolVar(&cfg.Open, "open", cfg.Open, "Open the game in the browser on start")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr is required", ErrInvalid)
	case c.Source != SourceCamera && c.Source != SourceRemote:
		return fmt.Errorf("%w: source %q, want %q or %q", ErrInvalid, c.Source, SourceCamera, SourceRemote)
	case c.StartCount < 1:
		return fmt.Errorf("%w: count must be at least 1, got %d", ErrInvalid, c.StartCount)
	case c.TickPeriod <= 0:
		return fmt.Errorf("%w: tick period must be positive, got %s", ErrInvalid, c.TickPeriod)
	case c.RestartDelay <= 0:
		return fmt.Errorf("%w: restart delay must be positive, got %s", ErrInvalid, c.RestartDelay)
	case c.HoldFor < 0:
		return fmt.Errorf("%w: hold must not be negative, got %s", ErrInvalid, c.HoldFor)
	case c.FrameInterval <= 0:
		return fmt.Errorf("%w: frame interval must be positive, got %s", ErrInvalid, c.FrameInterval)
	case c.DetectTimeout <= 0:
		return fmt.Errorf("%w: detect timeout must be positive, got %s", ErrInvalid, c.DetectTimeout)
	}
	return nil
}

// Game returns the round timing.
func (c Config) Game() game.Config {
	return game.Config{
		StartCount:   c.StartCount,
		TickPeriod:   c.TickPeriod,
		RestartDelay: c.RestartDelay,
		HoldFor:      c.HoldFor,
	}
}

// Loop returns the detection loop settings.
func (c Config) Loop() game.LoopConfig {
	loop := game.DefaultLoopConfig()
	loop.Interval = c.FrameInterval
	loop.DetectTimeout = c.DetectTimeout
	return loop
}

// DataDir returns ~/.rpscam, creating it if needed.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	dir := filepath.Join(home, DataDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// ResolveDBPath fills DBPath with the default location when unset.
func (c *Config) ResolveDBPath() error {
	if c.DBPath != "" {
		return nil
	}
	dir, err := DataDir()
	if err != nil {
		return err
	}
	c.DBPath = filepath.Join(dir, "rpscam.db")
	return nil
}

// ResolveWebDir fills WebDir by searching the usual locations when unset.
// It checks "web", "../web", "../../web" and ~/.rpscam/web, and leaves
// WebDir empty if none exists, in which case the bundled page is served.
func (c *Config) ResolveWebDir() {
	if c.WebDir != "" {
		return
	}

	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			c.WebDir = p
			return
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	homeWebDir := filepath.Join(home, DataDirName, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		c.WebDir = homeWebDir
	}
}
