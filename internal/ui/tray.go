// Package ui renders the system tray: agent status, plan count, and a
// quit action.
package ui

import (
	"fmt"
	"log/slog"

	"github.com/getlantern/systray"
)

// TrayConfig wires the tray's callbacks.
type TrayConfig struct {
	// OnQuit is called when the user picks Quit from the menu.
	OnQuit func()
	Logger *slog.Logger
}

// Tray is the system tray controller. Updates may arrive from any
// goroutine; systray serializes them internally.
type Tray struct {
	cfg TrayConfig

	statusItem *systray.MenuItem
	plansItem  *systray.MenuItem
	quitItem   *systray.MenuItem
}

// NewTray creates a tray controller. Run must be called from the main
// goroutine.
func NewTray(cfg TrayConfig) *Tray {
	return &Tray{cfg: cfg}
}

// Run starts the tray event loop and blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop, unblocking Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Framecast")
	systray.SetTooltip("Framecast Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent state")
	t.statusItem.Disable()
	t.plansItem = systray.AddMenuItem("Plans: 0", "Stored plans")
	t.plansItem.Disable()
	systray.AddSeparator()
	t.quitItem = systray.AddMenuItem("Quit", "Stop the agent")

	go func() {
		<-t.quitItem.ClickedCh
		if t.cfg.Logger != nil {
			t.cfg.Logger.Info("quit requested from tray")
		}
		if t.cfg.OnQuit != nil {
			t.cfg.OnQuit()
		}
		systray.Quit()
	}()
}

func (t *Tray) onExit() {
	if t.cfg.Logger != nil {
		t.cfg.Logger.Info("tray exited")
	}
}

// SetIdle shows the idle state.
func (t *Tray) SetIdle() {
	if t.statusItem == nil {
		return
	}
	t.statusItem.SetTitle("Status: Idle")
}

// SetExporting shows export progress as a percentage.
func (t *Tray) SetExporting(pct int) {
	if t.statusItem == nil {
		return
	}
	t.statusItem.SetTitle(fmt.Sprintf("Status: Exporting %d%%", pct))
}

// SetFailed shows the failed state.
func (t *Tray) SetFailed() {
	if t.statusItem == nil {
		return
	}
	t.statusItem.SetTitle("Status: Export failed")
}

// SetPlansCount shows the number of stored plans.
func (t *Tray) SetPlansCount(n int) {
	if t.plansItem == nil {
		return
	}
	t.plansItem.SetTitle(fmt.Sprintf("Plans: %d", n))
}
