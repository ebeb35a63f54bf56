package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/forces"
	"github.com/san-kum/dpdsim/internal/sim"
)

func newSim(t *testing.T) *sim.Simulator {
	t.Helper()
	box, err := dynamo.NewBox(r3.Vec{X: 4, Y: 4, Z: 4}, dynamo.AllPeriodic)
	if err != nil {
		t.Fatal(err)
	}
	st := &dynamo.State{
		Box:       box,
		BeadTypes: []dynamo.BeadType{{Name: "W", Mass: 1, Radius: 0.5}},
	}
	for i := 0; i < 27; i++ {
		pos := r3.Vec{X: float64(i%3) + 0.5, Y: float64(i/3%3) + 0.5, Z: float64(i/9) + 0.5}
		st.Beads = append(st.Beads, dynamo.NewBead(i, 0, pos, r3.Vec{}))
	}
	tab := forces.NewPairTable(1)
	if err := tab.Set(0, 0, forces.PairParams{Conservative: 25, Dissipative: 4.5}); err != nil {
		t.Fatal(err)
	}
	s, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.02, Temperature: 1, Seed: 3, Table: tab})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMonitorAdvancesToTarget(t *testing.T) {
	s := newSim(t)
	m := NewMonitor(s, "test", 5, []string{"W"})
	m.Update(key("+"))
	m.Update(key("+"))
	if m.speed != 4 {
		t.Fatalf("speed = %d", m.speed)
	}

	for i := 0; i < 4; i++ {
		m.Update(tickMsg(time.Now()))
	}
	if got := s.CurrentStep(); got != 5 {
		t.Errorf("step = %d, want 5", got)
	}
	if !m.done {
		t.Error("monitor not done at target")
	}
	if len(m.energy) != 2 {
		t.Errorf("history = %d, want 2", len(m.energy))
	}
}

func TestMonitorPause(t *testing.T) {
	s := newSim(t)
	m := NewMonitor(s, "test", 0, nil)
	m.Update(key(" "))
	m.Update(tickMsg(time.Now()))
	if s.CurrentStep() != 0 {
		t.Errorf("paused monitor stepped to %d", s.CurrentStep())
	}
	m.Update(key("n"))
	if s.CurrentStep() != 1 {
		t.Errorf("single step reached %d", s.CurrentStep())
	}
}

func TestMonitorThermostatToggle(t *testing.T) {
	s := newSim(t)
	m := NewMonitor(s, "test", 0, nil)
	m.Update(key("t"))
	m.Update(tickMsg(time.Now()))
	if s.Thermostat() {
		t.Error("thermostat still on after toggle")
	}
}

func TestMonitorView(t *testing.T) {
	s := newSim(t)
	m := NewMonitor(s, "melt", 10, []string{"W"})
	m.Update(tea.WindowSizeMsg{Width: 90, Height: 30})
	out := m.View()
	for _, want := range []string{"melt", "observables", "step 0/10", "beads 27"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
