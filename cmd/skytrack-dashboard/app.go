package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

const (
	updateInterval = 2 * time.Second
	historyLines   = 14
)

// skyRow is one body of the sky table with its latest observation.
type skyRow struct {
	body bodies.Body
	kind string
	obs  tracking.Observation
}

// App is the dashboard: a sky table of planets and catalog objects next to
// the tracker status, the exchange history and an event log.
type App struct {
	tviewApp *tview.Application
	cfg      *config.Config
	tracker  *tracking.Service

	sky        *tview.Table
	status     *tview.TextView
	history    *tview.TextView
	logs       *LogManager
	rootLayout *tview.Flex

	mu          sync.RWMutex
	rows        []skyRow
	shown       []int // indices into rows, in table order
	selected    int   // index into shown
	visibleOnly bool

	lastStatus tracking.Status
	lastLimit  string

	updateTimer *time.Ticker
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewApp creates the dashboard for the Sun, every planet of cat and up to
// objects of its brightest fixed bodies.
func NewApp(cfg *config.Config, tracker *tracking.Service, cat *catalog.Catalog, objects int) *App {
	a := &App{
		cfg:      cfg,
		tracker:  tracker,
		stopChan: make(chan struct{}),
	}

	a.rows = append(a.rows, skyRow{body: bodies.Sun{}, kind: "Sun"})
	for _, p := range cat.Planets() {
		a.rows = append(a.rows, skyRow{body: p, kind: "Planet"})
	}
	if objects > 0 {
		for _, obj := range cat.Search(catalog.Filter{Limit: objects}) {
			a.rows = append(a.rows, skyRow{body: obj, kind: obj.Classification.String()})
		}
	}

	a.setupUI()
	a.observe()
	a.render()
	return a
}

func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.sky = tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)
	a.sky.SetBorder(true).SetTitle(" Sky ")

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.status.SetBorder(true).SetTitle(" Mount ")

	a.history = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.history.SetBorder(true).SetTitle(" Exchanges ")

	a.logs = NewLogManager(100)

	help := tview.NewTextView().
		SetDynamicColors(true).
		SetText("[white]↑/↓ j/k[-] select  [white]ENTER[-] track  [white]a[-] abort  [white]c[-] configure  [white]v[-] visible only  [white]q[-] quit")

	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.status, 0, 4, false).
		AddItem(a.history, 0, 3, false).
		AddItem(a.logs.View(), 0, 3, false)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.sky, 0, 6, true).
		AddItem(sidebar, 0, 4, false)

	a.rootLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(help, 1, 0, false)

	a.tviewApp.SetRoot(a.rootLayout, true)
	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// observe recomputes the position of every body.
func (a *App) observe() {
	obs := make([]tracking.Observation, len(a.rows))
	for i, row := range a.rows {
		obs[i] = a.tracker.Observe(row.body)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.rows {
		a.rows[i].obs = obs[i]
	}
}

// render redraws every panel. It runs on the UI goroutine.
func (a *App) render() {
	a.renderSky()
	a.renderStatus()
	a.renderHistory()
}

func (a *App) renderSky() {
	a.mu.Lock()
	defer a.mu.Unlock()

	var current string
	if a.selected < len(a.shown) {
		current = a.rows[a.shown[a.selected]].body.DisplayName()
	}

	a.shown = a.shown[:0]
	for i, row := range a.rows {
		if a.visibleOnly && !row.obs.Visible() {
			continue
		}
		a.shown = append(a.shown, i)
	}

	// Keep the same body selected when the filter changes the rows
	a.selected = 0
	for n, i := range a.shown {
		if a.rows[i].body.DisplayName() == current {
			a.selected = n
			break
		}
	}

	a.sky.Clear()
	for col, title := range []string{"Name", "Type", "Alt", "Az", "Limits"} {
		a.sky.SetCell(0, col, tview.NewTableCell(title).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}

	target := ""
	if h := a.tracker.Handle(); h != nil && h.InProgress() {
		target = h.Target()
	}

	for n, i := range a.shown {
		row := a.rows[i]
		color := tcell.ColorWhite
		if !row.obs.Visible() {
			color = tcell.ColorGray
		}
		name := row.body.DisplayName()
		if name == target {
			name = "» " + name
			color = tcell.ColorGreen
		}

		cells := []string{
			name,
			row.kind,
			fmt.Sprintf("%6.1f°", row.obs.Horizontal.Altitude),
			fmt.Sprintf("%6.1f°", row.obs.Horizontal.Azimuth),
			row.obs.LimitEvent,
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text).SetTextColor(color)
			if n == a.selected {
				cell.SetBackgroundColor(tcell.ColorDarkBlue)
			}
			a.sky.SetCell(n+1, col, cell)
		}
	}
	a.sky.SetTitle(fmt.Sprintf(" Sky (%d) ", len(a.shown)))
}

// statusText formats the tracker snapshot for the mount panel.
func (a *App) statusText() string {
	snap := a.tracker.Snapshot()

	var b strings.Builder
	if snap.Connected {
		fmt.Fprintf(&b, "[yellow]LINK:[-] [green]%s[-]\n", a.tracker.PortName())
	} else {
		b.WriteString("[yellow]LINK:[-] [red]Not Connected[-]\n")
	}
	fmt.Fprintf(&b, "[gray]Status:[-] [white]%s[-]\n", snap.Status)
	if snap.Kind != "" {
		fmt.Fprintf(&b, "[gray]Job:[-]    [white]%s %s[-]\n", snap.Kind, tview.Escape(snap.Target))
		fmt.Fprintf(&b, "[gray]Begin:[-]  [white]%s[-]\n", snap.Begin)
	}
	fmt.Fprintf(&b, "[gray]Mount:[-]  [white]Alt %6.2f°  Az %6.2f°[-]\n", snap.Altitude, snap.Azimuth)
	if snap.Status.InProgress() {
		fmt.Fprintf(&b, "[gray]Target:[-] [white]Alt %6.2f°  Az %6.2f°[-]\n", snap.TargetAltitude, snap.TargetAzimuth)
		fmt.Fprintf(&b, "[gray]Progress:[-] [white]%.0f%%  %d frames[-]\n", snap.Progress*100, snap.Frames)
	}
	limitColor := "white"
	if snap.LimitEvent != tracking.WithinLimits.String() {
		limitColor = "yellow"
	}
	fmt.Fprintf(&b, "[gray]Limits:[-] [%s]%s[-]\n", limitColor, snap.LimitEvent)
	if snap.Error != "" {
		fmt.Fprintf(&b, "[gray]Error:[-]  [red]%s[-]\n", tview.Escape(snap.Error))
	}

	obs := a.cfg.Observer
	b.WriteString("\n")
	fmt.Fprintf(&b, "[yellow]OBSERVER:[-] [white]%s[-]\n", tview.Escape(obs.Name))
	fmt.Fprintf(&b, "[gray]Pos:[-]  [white]%.4f°, %.4f°[-]\n", obs.Latitude, obs.Longitude)
	fmt.Fprintf(&b, "[gray]Time:[-] [white]%s UTC[-]\n", time.Now().UTC().Format("15:04:05"))
	return b.String()
}

func (a *App) renderStatus() {
	a.status.SetText(a.statusText())
	a.logTransitions()
}

// logTransitions reports job and limit changes since the last render.
func (a *App) logTransitions() {
	snap := a.tracker.Snapshot()
	if snap.Status != a.lastStatus {
		switch snap.Status {
		case tracking.StatusFailure:
			a.logs.Error("%s %s failed: %s", snap.Kind, snap.Target, snap.Error)
		case tracking.StatusAborted:
			a.logs.Info("%s %s: aborted", snap.Kind, snap.Target)
		case tracking.StatusIdle:
			if a.lastStatus.InProgress() {
				a.logs.Info("%s %s: finished", snap.Kind, snap.Target)
			}
		}
		a.lastStatus = snap.Status
	}
	if snap.Status.InProgress() && snap.LimitEvent != a.lastLimit {
		if snap.LimitEvent != tracking.WithinLimits.String() {
			a.logs.Warn("%s: %s", snap.Target, snap.LimitEvent)
		}
	}
	a.lastLimit = snap.LimitEvent
}

// historyText formats the most recent exchanges, newest last.
func (a *App) historyText() string {
	entries := a.tracker.History()
	if len(entries) > historyLines {
		entries = entries[len(entries)-historyLines:]
	}

	var b strings.Builder
	for _, e := range entries {
		arrow, color := "→", "white"
		if e.Direction == tracking.Ingoing {
			arrow, color = "←", "gray"
		}
		payload := hex.EncodeToString(e.Payload)
		if len(payload) > 24 {
			payload = payload[:24] + "…"
		}
		fmt.Fprintf(&b, "[gray]%s[-] [%s]%s %-10s %3d %s[-]\n",
			e.Time.Format("15:04:05"), color, arrow, e.Command, e.Size, payload)
	}
	if b.Len() == 0 {
		return "[gray]No exchanges yet[-]"
	}
	return b.String()
}

func (a *App) renderHistory() {
	a.history.SetText(a.historyText())
}

// selectedRow returns the highlighted row.
func (a *App) selectedRow() (skyRow, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.selected >= len(a.shown) {
		return skyRow{}, false
	}
	return a.rows[a.shown[a.selected]], true
}

// handleKeyboard handles keyboard input
func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	key := event.Key()
	r := event.Rune()

	switch {
	case key == tcell.KeyEscape || key == tcell.KeyCtrlC || r == 'q':
		a.Stop()
		return nil
	case key == tcell.KeyUp || r == 'k':
		a.move(-1)
		return nil
	case key == tcell.KeyDown || r == 'j':
		a.move(1)
		return nil
	case key == tcell.KeyEnter:
		a.startTracking()
		return nil
	case r == 'a':
		a.abort()
		return nil
	case r == 'c':
		a.configure()
		return nil
	case r == 'v':
		a.mu.Lock()
		a.visibleOnly = !a.visibleOnly
		a.mu.Unlock()
		a.renderSky()
		return nil
	}

	return event
}

func (a *App) move(delta int) {
	a.mu.Lock()
	if n := len(a.shown); n > 0 {
		a.selected = (a.selected + delta + n) % n
	}
	a.mu.Unlock()
	a.renderSky()
}

// startTracking follows the selected body for the default duration.
func (a *App) startTracking() {
	row, ok := a.selectedRow()
	if !ok {
		a.logs.Warn("Nothing selected")
		return
	}
	if _, isSun := row.body.(bodies.Sun); isSun {
		a.logs.Error("Refusing to point the mount at the Sun")
		return
	}
	if !row.obs.Visible() {
		a.logs.Warn("%s: %s", row.body.DisplayName(), row.obs.Advice)
	}

	if _, err := a.tracker.SubmitBody(row.body, a.cfg.Tracker.DefaultDuration()); err != nil {
		a.logs.Error("Cannot track %s: %v", row.body.DisplayName(), err)
		return
	}
	a.logs.Info("Tracking %s for %s", row.body.DisplayName(), a.cfg.Tracker.DefaultDuration())
	a.render()
}

func (a *App) abort() {
	if !a.tracker.Abort() {
		a.logs.Warn("Nothing to abort (slews run to completion)")
		return
	}
	a.logs.Info("Abort requested")
}

// configure sends the driver configuration without blocking the UI.
func (a *App) configure() {
	a.logs.Info("Configuring driver...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := a.tracker.UpdateConfig(ctx)
		a.tviewApp.QueueUpdateDraw(func() {
			if err != nil {
				a.logs.Error("Configure failed: %v", err)
				return
			}
			a.logs.Info("Driver configured")
		})
	}()
}

// Run starts the application
func (a *App) Run() error {
	a.updateTimer = time.NewTicker(updateInterval)
	go a.updateLoop()

	a.logs.Info("Dashboard started")
	return a.tviewApp.Run()
}

// updateLoop refreshes the observations and the panels.
func (a *App) updateLoop() {
	fast := time.NewTicker(250 * time.Millisecond)
	defer fast.Stop()

	for {
		select {
		case <-a.updateTimer.C:
			a.observe()
			a.tviewApp.QueueUpdateDraw(a.render)
		case <-fast.C:
			a.tviewApp.QueueUpdateDraw(func() {
				a.renderStatus()
				a.renderHistory()
			})
		case <-a.stopChan:
			return
		}
	}
}

// Stop stops the application
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		if a.updateTimer != nil {
			a.updateTimer.Stop()
		}
		close(a.stopChan)
		a.tviewApp.Stop()
	})
}
