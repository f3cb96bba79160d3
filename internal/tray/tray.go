// Package tray provides a system tray status menu for the game.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/rpscam/internal/game"
	"github.com/ayusman/rpscam/internal/store"
)

// Tray shows the live round and the session score in the system tray.
type Tray struct {
	onOpen func()
	onQuit func()
	mu     sync.RWMutex

	// Menu items stored for later updates
	menuRound  *systray.MenuItem
	menuResult *systray.MenuItem
	menuScore  *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnOpen sets the callback function to be called when "Open Game" is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, unblocking Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("RPS")
	systray.SetTooltip("Rock Paper Scissors")

	t.mu.Lock()
	t.menuRound = systray.AddMenuItem(RoundTitle(game.Round{}), "Current round")
	t.menuRound.Disable()
	t.menuResult = systray.AddMenuItem(ResultTitle(game.Round{}), "Last result")
	t.menuResult.Disable()
	t.menuScore = systray.AddMenuItem(ScoreTitle(store.Stats{}), "Session score")
	t.menuScore.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Game...", "Open the game in the browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit the game")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRound updates the round and result lines.
func (t *Tray) SetRound(r game.Round) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuRound != nil {
		t.menuRound.SetTitle(RoundTitle(r))
	}
	if t.menuResult != nil && r.Phase == game.PhaseResolved {
		t.menuResult.SetTitle(ResultTitle(r))
	}
}

// SetScore updates the score line.
func (t *Tray) SetScore(s store.Stats) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuScore != nil {
		t.menuScore.SetTitle(ScoreTitle(s))
	}
}

// RoundTitle formats the round line.
func RoundTitle(r game.Round) string {
	switch r.Phase {
	case game.PhaseCounting:
		return fmt.Sprintf("Round %d: %s", r.Number, r.Display)
	case game.PhaseResolved:
		return fmt.Sprintf("Round %d: done", r.Number)
	default:
		return "Round: waiting"
	}
}

// ResultTitle formats the last result line.
func ResultTitle(r game.Round) string {
	if r.Phase != game.PhaseResolved {
		return "Last: none"
	}
	return "Last: " + r.Summary()
}

// ScoreTitle formats the session score as wins, losses and draws.
func ScoreTitle(s store.Stats) string {
	return fmt.Sprintf("W %d / L %d / D %d", s.Wins, s.Losses, s.Draws)
}
