package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// Sky viewport dimensions
const (
	skyWidth  = 72
	skyHeight = 20
)

// altAzToScreen maps a horizontal position to viewport cells. Azimuth runs
// left to right from north, altitude bottom to top from the horizon; zoom
// narrows the altitude range shown.
func (m model) altAzToScreen(altitude, azimuth float64) (int, int) {
	azimuth = coordinates.NormalizeAzimuth(azimuth)
	x := int((azimuth / 360.0) * float64(skyWidth-2))

	altRange := 90.0 / m.zoom
	normalizedAlt := altitude / altRange
	y := skyHeight - 2 - int(normalizedAlt*float64(skyHeight-2))

	return x, y
}

func (m model) plot(grid [][]rune, altitude, azimuth float64, symbol rune) {
	x, y := m.altAzToScreen(altitude, azimuth)
	if x >= 0 && x < skyWidth-2 && y >= 0 && y < skyHeight-1 {
		grid[y][x] = symbol
	}
}

func (m model) renderSky() string {
	var sky strings.Builder

	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sky.WriteString(borderStyle.Render("┌" + strings.Repeat("─", skyWidth-2) + "┐"))
	sky.WriteString("\n")

	grid := make([][]rune, skyHeight)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", skyWidth-2))
	}

	// Horizon and minimum altitude
	for x := 0; x < skyWidth-2; x++ {
		grid[skyHeight-2][x] = '·'
	}
	if minAlt := m.cfg.Limits.MinAltitude; minAlt > 0 {
		_, y := m.altAzToScreen(minAlt, 0)
		if y >= 0 && y < skyHeight-2 {
			for x := 0; x < skyWidth-2; x += 2 {
				grid[y][x] = '-'
			}
		}
	}

	grid[skyHeight-1][0] = 'N'
	grid[skyHeight-1][(skyWidth-2)/4] = 'E'
	grid[skyHeight-1][(skyWidth-2)/2] = 'S'
	grid[skyHeight-1][(skyWidth-2)*3/4] = 'W'

	for i, p := range m.planets {
		if p.Horizontal.Altitude < 0 {
			continue
		}
		symbol := '○'
		if i == m.selected {
			symbol = '●'
		}
		m.plot(grid, p.Horizontal.Altitude, p.Horizontal.Azimuth, symbol)
	}

	snap := m.tracker.Snapshot()
	if snap.Status.InProgress() {
		m.plot(grid, snap.TargetAltitude, snap.TargetAzimuth, '×')
	}
	m.plot(grid, snap.Altitude, snap.Azimuth, '+')

	for y := 0; y < skyHeight; y++ {
		sky.WriteString(borderStyle.Render("│"))
		for _, char := range grid[y] {
			switch char {
			case '+':
				sky.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true).Render(string(char)))
			case '×':
				sky.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(string(char)))
			case '●':
				sky.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render(string(char)))
			case '○':
				sky.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Render(string(char)))
			case 'N', 'E', 'S', 'W':
				sky.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(string(char)))
			case '·', '-':
				sky.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(string(char)))
			default:
				sky.WriteRune(char)
			}
		}
		sky.WriteString(borderStyle.Render("│"))
		sky.WriteString("\n")
	}

	sky.WriteString(borderStyle.Render("└" + strings.Repeat("─", skyWidth-2) + "┘"))

	return sky.String()
}
