package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/sim"
	"gonum.org/v1/gonum/floats"
)

const (
	canvasWidth     = 60
	canvasHeight    = 20
	historyCapacity = 600
	trailCapacity   = 300
	maxStepsPerTick = 64
)

// Builder creates a fresh solver for the live view. It is called again on
// reset.
type Builder func() (*dynamo.Solver, error)

// Snapshot is one recorded frame of the live view.
type Snapshot struct {
	State  sim.State
	Time   float64
	Energy float64
	Drift  float64
}

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a solver and draws it on a braille canvas.
type Model struct {
	name   string
	build  Builder
	solver *dynamo.Solver
	dt     float64
	// steps is the number of solver steps per frame.
	steps int

	canvas *Canvas
	camera *Camera
	theme  Theme
	trail  []mgl64.Vec3

	history  []Snapshot
	playHead int
	energy0  float64
	warnings int
	err      error

	running  bool
	showHelp bool
}

// NewModel builds the first solver and fits the camera to it.
func NewModel(name string, build Builder, dt float64) (Model, error) {
	m := Model{
		name:     name,
		build:    build,
		dt:       dt,
		steps:    1,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		camera:   NewCamera(),
		theme:    Themes[0],
		running:  true,
		playHead: -1,
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m Model) Init() tea.Cmd { return tick() }

// Solver returns the live solver.
func (m Model) Solver() *dynamo.Solver { return m.solver }

// Err returns the error that stopped the simulation, if any.
func (m Model) Err() error { return m.err }

func (m Model) History() []Snapshot { return m.history }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.playHead != -1 {
				m.resume()
			}
			m.running = !m.running && m.err == nil
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "left", "h":
			m.camera.Rotate(-0.1, 0)
		case "right", "l":
			m.camera.Rotate(0.1, 0)
		case "up", "k":
			m.camera.Rotate(0, 0.1)
		case "down", "j":
			m.camera.Rotate(0, -0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "f":
			m.camera.Fit(SceneOf(m.solver, 0).Points())
		case ">", ".":
			m.steps = min(m.steps*2, maxStepsPerTick)
		case "<", ",":
			m.steps = max(m.steps/2, 1)
		case "t":
			m.theme = NextTheme(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
		m.draw()
	case TickMsg:
		if m.running && m.playHead == -1 {
			m.advance()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

// advance runs one frame worth of solver steps and records the result. A
// step error stops the model.
func (m *Model) advance() {
	for i := 0; i < m.steps; i++ {
		if err := m.solver.Step(m.dt); err != nil {
			m.err = err
			m.running = false
			break
		}
		m.warnings += len(m.solver.Warnings())
	}
	m.solver.UpdateViews()
	m.record()
}

func (m *Model) record() {
	bodies := m.solver.Bodies()
	snap := Snapshot{
		State:  sim.Snapshot(bodies),
		Time:   m.solver.Time(),
		Energy: sim.TotalEnergy(bodies, m.solver.Options().Gravity),
		Drift:  maxDrift(m.solver),
	}
	m.history = append(m.history, snap)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
	if n := len(bodies); n > 0 {
		m.trail = append(m.trail, bodies[n-1].Pose.Position)
		if len(m.trail) > trailCapacity {
			m.trail = m.trail[1:]
		}
	}
}

func maxDrift(s *dynamo.Solver) float64 {
	var d float64
	for j := range s.Constraints() {
		pos, _ := s.ConstraintError(j)
		d = math.Max(d, pos)
	}
	return d
}

// scrub moves the replay position through history. Moving past the newest
// frame returns to the live state.
func (m *Model) scrub(dir int) {
	if len(m.history) == 0 {
		return
	}
	if m.playHead == -1 {
		if dir > 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.resume()
		return
	}
	m.history[m.playHead].State.Restore(m.solver.Bodies())
}

// resume leaves replay and puts the newest recorded state back.
func (m *Model) resume() {
	m.playHead = -1
	if n := len(m.history); n > 0 {
		m.history[n-1].State.Restore(m.solver.Bodies())
	}
}

func (m *Model) reset() error {
	s, err := m.build()
	if err != nil {
		return err
	}
	m.solver = s
	m.history = m.history[:0]
	m.trail = m.trail[:0]
	m.playHead = -1
	m.warnings = 0
	m.err = nil
	m.running = true
	m.record()
	m.energy0 = m.history[0].Energy
	m.camera.Fit(SceneOf(s, 0).Points())
	m.draw()
	return nil
}

func (m *Model) draw() {
	m.canvas.Clear()
	RenderTrail(m.canvas, m.trail, m.camera)
	Render(m.canvas, SceneOf(m.solver, 0.1*m.camera.Extent), m.camera)
}

func (m Model) current() Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return m.history[len(m.history)-1]
}

func (m Model) status(st styles) string {
	switch {
	case m.err != nil:
		return st.err.Render("STOPPED")
	case m.playHead != -1:
		back := m.current().Time - m.history[len(m.history)-1].Time
		return st.warn.Render(fmt.Sprintf("REPLAY (%.2fs)", back))
	case m.running:
		return st.header.Render("RUNNING")
	default:
		return st.warn.Render("PAUSED")
	}
}

func (m Model) View() string {
	st := newStyles(m.theme)
	snap := m.current()

	var stats strings.Builder
	stats.WriteString(st.header.Render(strings.ToUpper(m.name)) + "  " + m.status(st) + "\n\n")
	row := func(label, value string) {
		stats.WriteString(st.label.Render(fmt.Sprintf("%-12s", label)) + st.value.Render(value) + "\n")
	}
	row("time", fmt.Sprintf("%.3f s", snap.Time))
	row("steps", fmt.Sprintf("%d (x%d)", m.solver.Steps(), m.steps))
	row("bodies", fmt.Sprintf("%d", len(m.solver.Bodies())))
	row("rows", fmt.Sprintf("%d", m.solver.NumRows()))
	row("energy", fmt.Sprintf("%.4f J", snap.Energy))
	row("ΔE", fmt.Sprintf("%+.2e", snap.Energy-m.energy0))
	row("drift", fmt.Sprintf("%.2e", snap.Drift))
	if l := m.solver.Lambda(); l != nil {
		row("|λ|", fmt.Sprintf("%.3f", floats.Norm(l, 2)))
	}
	if m.warnings > 0 {
		stats.WriteString(st.warn.Render(fmt.Sprintf("%d drift warnings", m.warnings)) + "\n")
	}
	if m.err != nil {
		stats.WriteString(st.err.Render(m.err.Error()) + "\n")
	}

	energy := make([]float64, len(m.history))
	drift := make([]float64, len(m.history))
	for i, h := range m.history {
		energy[i], drift[i] = h.Energy, h.Drift
	}
	stats.WriteString("\n" + st.label.Render("energy ") + Sparkline(energy, 30) + "\n")
	if len(drift) > 1 {
		stats.WriteString("\n" + asciigraph.Plot(drift,
			asciigraph.Height(5),
			asciigraph.Width(30),
			asciigraph.Caption("constraint drift")))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		st.canvas.Render(m.canvas.String()),
		st.panel.Render(stats.String()))

	if m.showHelp {
		return body + "\n" + m.help(st)
	}
	return body + "\n" + st.muted.Render("space pause  r reset  [ ] replay  ? help  q quit")
}

func (m Model) help(st styles) string {
	keys := [][2]string{
		{"space", "pause / resume"},
		{"r", "rebuild the scene"},
		{"[ ]", "step through recorded frames"},
		{"arrows", "rotate view"},
		{"+ -", "zoom"},
		{"f", "fit view"},
		{"< >", "steps per frame"},
		{"t", "theme (" + m.theme.Name + ")"},
		{"q", "quit"},
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(st.key.Render(fmt.Sprintf("%-8s", k[0])) + st.muted.Render(k[1]) + "\n")
	}
	return b.String()
}

// Run starts the live view in the alternate screen.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
