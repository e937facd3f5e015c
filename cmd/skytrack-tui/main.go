// Command skytrack-tui is a terminal console for steering the mount by
// hand and following planets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
	"github.com/unklstewy/skytrack/pkg/serial"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

// Terminals report key presses but not releases, so a direction stays set
// until no repeat arrived for steerHold.
const steerHold = 500 * time.Millisecond

const (
	tickInterval    = 50 * time.Millisecond
	refreshInterval = 2 * time.Second
)

type model struct {
	cfg     *config.Config
	tracker *tracking.Service
	memory  *tracking.SteeringMemory
	cat     *catalog.Catalog

	// pressed holds the last press of each held steering direction
	pressed map[string]time.Time

	planets     []tracking.Observation
	selected    int
	lastRefresh time.Time

	zoom    float64
	message string
	err     error
}

type tickMsg time.Time

type configuredMsg struct{ err error }

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func newModel(cfg *config.Config, tracker *tracking.Service, cat *catalog.Catalog) model {
	m := model{
		cfg:     cfg,
		tracker: tracker,
		memory:  &tracking.SteeringMemory{},
		cat:     cat,
		pressed: map[string]time.Time{},
		zoom:    1.0,
	}
	m.refreshPlanets(time.Now())
	return m
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m *model) refreshPlanets(now time.Time) {
	planets := m.cat.Planets()
	m.planets = make([]tracking.Observation, 0, len(planets))
	for _, p := range planets {
		m.planets = append(m.planets, m.tracker.Observe(p))
	}
	m.lastRefresh = now
}

// steer sets a direction and starts a steering job when none is running.
func (m *model) steer(direction string, now time.Time) {
	switch direction {
	case "up":
		m.memory.Up.Store(true)
	case "down":
		m.memory.Down.Store(true)
	case "left":
		m.memory.Left.Store(true)
	case "right":
		m.memory.Right.Store(true)
	}
	m.pressed[direction] = now

	if h := m.tracker.Handle(); h != nil && h.InProgress() {
		if h.Kind() != tracking.JobSteering {
			m.err = fmt.Errorf("cannot steer: %w", tracking.ErrBusy)
		}
		return
	}
	if _, err := m.tracker.SubmitSteering(m.memory); err != nil {
		m.err = err
		return
	}
	m.message = "Manual steering"
}

// releaseStale clears directions whose key has not repeated recently.
func (m *model) releaseStale(now time.Time) {
	for direction, at := range m.pressed {
		if now.Sub(at) < steerHold {
			continue
		}
		switch direction {
		case "up":
			m.memory.Up.Store(false)
		case "down":
			m.memory.Down.Store(false)
		case "left":
			m.memory.Left.Store(false)
		case "right":
			m.memory.Right.Store(false)
		}
		delete(m.pressed, direction)
	}
}

func (m model) configure() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return configuredMsg{err: m.tracker.UpdateConfig(ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		now := time.Now()
		m.err = nil

		switch msg.String() {
		case "ctrl+c", "q":
			m.tracker.Abort()
			return m, tea.Quit
		case "up", "k":
			m.steer("up", now)
		case "down", "j":
			m.steer("down", now)
		case "left", "h":
			m.steer("left", now)
		case "right", "l":
			m.steer("right", now)
		case " ":
			m.memory.Release()
			m.pressed = map[string]time.Time{}
		case "a":
			if m.tracker.Abort() {
				m.message = "Aborted"
			} else {
				m.err = errors.New("nothing to abort (slews run to completion)")
			}
		case "tab", "n":
			if len(m.planets) > 0 {
				m.selected = (m.selected + 1) % len(m.planets)
			}
		case "enter", "t":
			if m.selected < len(m.planets) {
				name := m.planets[m.selected].Name
				planet, _ := m.cat.Planet(name)
				if _, err := m.tracker.SubmitPlanet(planet, m.cfg.Tracker.DefaultDuration()); err != nil {
					m.err = err
				} else {
					m.message = "Tracking " + name
				}
			}
		case "c":
			m.message = "Configuring driver..."
			return m, m.configure()
		case "+", "=":
			if m.zoom < 4.0 {
				m.zoom *= 1.5
			}
		case "-", "_":
			if m.zoom > 1.0 {
				m.zoom /= 1.5
			}
		case "0":
			m.zoom = 1.0
		}

	case configuredMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("configure failed: %w", msg.err)
		} else {
			m.message = "Driver configured"
		}

	case tickMsg:
		now := time.Time(msg)
		m.releaseStale(now)
		if now.Sub(m.lastRefresh) >= refreshInterval {
			m.refreshPlanets(now)
		}
		return m, tick()
	}

	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	s.WriteString(titleStyle.Render("SKYTRACK STEERING CONSOLE"))
	s.WriteString("\n\n")

	skyLines := strings.Split(m.renderSky(), "\n")
	infoLines := strings.Split(m.renderInfo(), "\n")
	for i := 0; i < len(skyLines) || i < len(infoLines); i++ {
		if i < len(skyLines) {
			s.WriteString(skyLines[i])
		} else {
			s.WriteString(strings.Repeat(" ", skyWidth))
		}
		s.WriteString("  ")
		if i < len(infoLines) {
			s.WriteString(infoLines[i])
		}
		s.WriteString("\n")
	}

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		s.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n")
	} else if m.message != "" {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.message))
		s.WriteString("\n")
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	s.WriteString(helpStyle.Render("←↑↓→/hjkl: Steer  SPACE: Release  TAB: Select  ENTER: Track  A: Abort  C: Configure  +/-: Zoom  Q: Quit"))
	s.WriteString("\n")

	return s.String()
}

func (m model) renderInfo() string {
	var info strings.Builder
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)

	snap := m.tracker.Snapshot()
	link := "disconnected"
	if snap.Connected {
		link = m.tracker.PortName()
	}

	row := func(name, v string) {
		info.WriteString(label.Render(fmt.Sprintf("%-9s", name)))
		info.WriteString(value.Render(v))
		info.WriteString("\n")
	}
	row("Link", link)
	row("Status", snap.Status.String())
	if snap.Kind != "" {
		row("Job", fmt.Sprintf("%s %s", snap.Kind, snap.Target))
	}
	row("Mount", fmt.Sprintf("Alt %6.2f° Az %6.2f°", snap.Altitude, snap.Azimuth))
	if snap.Status.InProgress() {
		row("Target", fmt.Sprintf("Alt %6.2f° Az %6.2f°", snap.TargetAltitude, snap.TargetAzimuth))
		row("Progress", fmt.Sprintf("%.0f%%  %d frames", snap.Progress*100, snap.Frames))
	}
	row("Limits", snap.LimitEvent)
	row("Steer", m.steeringIndicator())
	if snap.Error != "" {
		row("Error", snap.Error)
	}

	info.WriteString("\n")
	info.WriteString(label.Render("Planets"))
	info.WriteString("\n")
	for i, p := range m.planets {
		marker := "  "
		if i == m.selected {
			marker = "▸ "
		}
		line := fmt.Sprintf("%s%-8s Alt %6.1f° Az %6.1f°", marker, p.Name, p.Horizontal.Altitude, p.Horizontal.Azimuth)
		if !p.Visible() {
			line = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(line)
		}
		info.WriteString(line)
		info.WriteString("\n")
	}

	return info.String()
}

func (m model) steeringIndicator() string {
	var dirs []string
	if m.memory.Up.Load() {
		dirs = append(dirs, "↑")
	}
	if m.memory.Down.Load() {
		dirs = append(dirs, "↓")
	}
	if m.memory.Left.Load() {
		dirs = append(dirs, "←")
	}
	if m.memory.Right.Load() {
		dirs = append(dirs, "→")
	}
	if len(dirs) == 0 {
		return "-"
	}
	return strings.Join(dirs, " ")
}

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	simulate := flag.Bool("simulate", false, "Use the built-in controller simulator")
	port := flag.String("port", "", "Serial port of the mount controller (overrides serial.port)")
	logPath := flag.String("log", "skytrack-tui.log", "Log file (the terminal belongs to the UI)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *simulate {
		cfg.Serial.Port = serial.SimulatorPortName
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logFile, err := tea.LogToFile(*logPath, "skytrack")
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()

	cat, err := catalog.Load("", "", cfg.Catalog.PlanetsPath)
	if err != nil {
		log.Printf("Failed to load planets, using built-in elements: %v", err)
		cat = catalog.New(catalog.DefaultPlanets(), []bodies.FixedBody{})
	}

	var link serial.Port = serial.NewDevice()
	if cfg.Serial.Port == serial.SimulatorPortName {
		link = serial.NewSimulator(serial.SimulatorOptions{})
	}
	tracker := tracking.NewService(link, cfg.TrackingConfig(), nil)
	defer tracker.Close()

	if err := tracker.Connect(cfg.Serial.Port, cfg.Serial.BaudRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(cfg, tracker, cat), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
