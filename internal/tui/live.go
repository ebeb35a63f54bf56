package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/sim"
	"github.com/san-kum/dpdsim/internal/viz"
)

const (
	historyLen  = 120
	framePeriod = 33 * time.Millisecond
	maxSpeed    = 256
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(framePeriod, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Monitor is a bubbletea model that advances a simulator a few steps per
// frame and draws the bead configuration with running observables.
type Monitor struct {
	sim    *sim.Simulator
	title  string
	target int64
	types  []string

	speed   int
	paused  bool
	done    bool
	stopped bool
	err     error

	camera *viz.Camera
	theme  viz.Theme
	energy []float64
	temp   []float64
	last   sim.Sample
	fps    float64
	stamp  time.Time
	width  int
	height int
}

// NewMonitor returns a monitor that runs s until it reaches step target.
// types names the bead types in index order for the legend.
func NewMonitor(s *sim.Simulator, title string, target int64, types []string) *Monitor {
	return &Monitor{
		sim:    s,
		title:  title,
		target: target,
		types:  types,
		speed:  1,
		camera: viz.NewCamera(),
		theme:  viz.CurrentTheme,
		last:   s.Sample(),
		width:  100,
		height: 32,
	}
}

func (m *Monitor) Init() tea.Cmd { return tick() }

// Err returns the error that ended the run, if any.
func (m *Monitor) Err() error { return m.err }

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.paused && !m.done {
			m.advance(time.Time(msg))
		}
		return m, tick()
	}
	return m, nil
}

func (m *Monitor) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "p":
		m.paused = !m.paused
	case "+", "=":
		m.speed = min(m.speed*2, maxSpeed)
	case "-", "_":
		m.speed = max(m.speed/2, 1)
	case "left", "h":
		m.camera.RotateY(-0.1)
	case "right", "l":
		m.camera.RotateY(0.1)
	case "up", "k":
		m.camera.RotateX(-0.1)
	case "down", "j":
		m.camera.RotateX(0.1)
	case "z":
		m.camera.ZoomIn()
	case "x":
		m.camera.ZoomOut()
	case "t":
		m.sim.Control().ToggleThermostat()
	case "n":
		if m.paused && !m.done {
			m.step(1)
		}
	}
	return m, nil
}

func (m *Monitor) advance(now time.Time) {
	if !m.stamp.IsZero() {
		if dt := now.Sub(m.stamp).Seconds(); dt > 0 {
			m.fps = 1 / dt
		}
	}
	m.stamp = now
	m.step(int64(m.speed))
}

func (m *Monitor) step(n int64) {
	if m.target > 0 {
		n = min(n, m.target-m.sim.CurrentStep())
	}
	if n <= 0 {
		m.done = true
		return
	}
	res, err := m.sim.Run(context.Background(), n)
	if err != nil {
		m.err = err
		m.done = true
	}
	if res != nil && res.Stopped {
		m.stopped = true
		m.done = true
	}
	m.last = m.sim.Sample()
	m.energy = push(m.energy, m.last.Total())
	m.temp = push(m.temp, m.last.Temperature)
	if m.target > 0 && m.sim.CurrentStep() >= m.target {
		m.done = true
	}
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyLen {
		h = h[len(h)-historyLen:]
	}
	return h
}

func (m *Monitor) status() string {
	var se *dynamo.SimulationError
	switch {
	case m.err != nil && errors.As(m.err, &se):
		return viz.StatusStopped.Render("failed")
	case m.err != nil:
		return viz.StatusStopped.Render("error")
	case m.stopped:
		return viz.StatusStopped.Render("stopped")
	case m.done:
		return viz.StatusStopped.Render("done")
	case m.paused:
		return viz.StatusPaused.Render("paused")
	}
	return viz.StatusRunning.Render("running")
}

func (m *Monitor) View() string {
	cw := max(m.width-34, 30)
	ch := max(m.height-8, 10)
	canvas := viz.NewCanvas(cw, ch)
	view := m.sim.View()
	viz.RenderBeads(canvas, m.camera, view.Box(), m.sim.Snapshot())

	var b strings.Builder
	step := m.sim.CurrentStep()
	fmt.Fprintf(&b, " %s  %s  step %d", viz.Title.Render(m.title), m.status(), step)
	if m.target > 0 {
		fmt.Fprintf(&b, "/%d  %s", m.target, viz.ProgressBar(float64(step)/float64(m.target), 20))
	}
	fmt.Fprintf(&b, "  x%d  %.0ffps\n\n", m.speed, m.fps)

	thermo := "on"
	if !m.sim.Thermostat() {
		thermo = "off"
	}
	side := viz.Summary("observables", []viz.Field{
		{Label: "time", Value: m.last.Time},
		{Label: "temperature", Value: m.last.Temperature},
		{Label: "kinetic", Value: m.last.Kinetic},
		{Label: "pair", Value: m.last.PairEnergy},
		{Label: "bond", Value: m.last.BondEnergy},
		{Label: "bend", Value: m.last.BendEnergy},
		{Label: "total", Value: m.last.Total()},
		{Label: "max speed", Value: m.last.MaxSpeed},
	})
	var legend strings.Builder
	fmt.Fprintf(&legend, "\n thermostat %s\n beads %d  bonds %d\n", thermo, view.NumBeads(), view.NumBonds())
	for i, name := range m.types {
		legend.WriteString(" " + m.theme.Paint(i, "⣿") + " " + name + "\n")
	}
	fmt.Fprintf(&legend, "\n E %s\n T %s\n", viz.Sparkline(m.energy, 24), viz.Sparkline(m.temp, 24))

	b.WriteString(joinColumns(canvas.Render(m.theme.Paint), side+legend.String(), cw))
	if m.err != nil {
		b.WriteString("\n " + viz.StatusStopped.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + viz.KeyHint.Render(" space pause  n step  ±speed  arrows rotate  z/x zoom  t thermostat  q quit") + "\n")
	return b.String()
}

// joinColumns places right beside left, padding missing left rows to width.
func joinColumns(left, right string, width int) string {
	l := strings.Split(strings.TrimSuffix(left, "\n"), "\n")
	r := strings.Split(strings.TrimSuffix(right, "\n"), "\n")
	var b strings.Builder
	for i := 0; i < max(len(l), len(r)); i++ {
		if i < len(l) {
			b.WriteString(l[i])
		} else {
			b.WriteString(strings.Repeat(" ", width))
		}
		b.WriteString("  ")
		if i < len(r) {
			b.WriteString(r[i])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RunLive runs the monitor full screen until the user quits.
func RunLive(m *Monitor) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return m.Err()
}
