package viz

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/integrators"
	"github.com/san-kum/mbsim/internal/spatial"
)

func newPendulumModel(t *testing.T) Model {
	t.Helper()
	cfg := config.GetPreset("pendulum", "small")
	m, err := NewModel("pendulum", ConfigBuilder(cfg), cfg.Dt)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSceneOf(t *testing.T) {
	m := newPendulumModel(t)
	sc := SceneOf(m.Solver(), 0.1)

	if len(sc.Bodies) != 1 || len(sc.Axes) != 3 || len(sc.Anchors) != 1 || len(sc.Links) != 2 {
		t.Fatalf("scene has %d bodies, %d axes, %d anchors, %d links",
			len(sc.Bodies), len(sc.Axes), len(sc.Anchors), len(sc.Links))
	}
	if !spatial.Near(sc.Anchors[0], mgl64.Vec3{}, 1e-12) {
		t.Errorf("anchor = %v, want origin", sc.Anchors[0])
	}
	gap := sc.Links[1]
	if !spatial.Near(gap.A, gap.B, 1e-9) {
		t.Errorf("closed joint drawn with a gap: %v", gap)
	}
	if got := len(sc.Points()); got != 6 {
		t.Errorf("Points() = %d, want 6", got)
	}
	if len(SceneOf(m.Solver(), 0).Axes) != 0 {
		t.Error("zero axis length should skip axes")
	}
}

func TestRender(t *testing.T) {
	m := newPendulumModel(t)
	c := NewCanvas(20, 10)
	cam := NewCamera()
	sc := SceneOf(m.Solver(), 0)
	cam.Fit(sc.Points())
	Render(c, sc, cam)

	w, h := c.PixelSize()
	x, y, _, ok := cam.Project(sc.Bodies[0], w, h)
	if !ok || !c.IsSet(x, y) {
		t.Errorf("body at (%d, %d) not drawn", x, y)
	}
	if !strings.ContainsFunc(c.String(), func(r rune) bool { return r > blank && r <= 0x28ff }) {
		t.Error("canvas is empty")
	}
}

func TestModel_Tick(t *testing.T) {
	m := newPendulumModel(t)
	if len(m.History()) != 1 {
		t.Fatalf("history = %d frames before the first tick", len(m.History()))
	}

	m = update(m, TickMsg(time.Now()))
	if m.Solver().Steps() != 1 || len(m.History()) != 2 {
		t.Fatalf("steps = %d, history = %d after one tick", m.Solver().Steps(), len(m.History()))
	}

	m = update(m, key(">"))
	m = update(m, TickMsg(time.Now()))
	if m.Solver().Steps() != 3 {
		t.Errorf("steps = %d, want 3 with two steps per frame", m.Solver().Steps())
	}

	m = update(m, key(" "))
	m = update(m, TickMsg(time.Now()))
	if m.Solver().Steps() != 3 {
		t.Error("paused model kept stepping")
	}

	if !strings.Contains(m.View(), "PENDULUM") || !strings.Contains(m.View(), "PAUSED") {
		t.Errorf("view missing title or status:\n%s", m.View())
	}
}

func TestModel_Replay(t *testing.T) {
	m := newPendulumModel(t)
	for i := 0; i < 5; i++ {
		m = update(m, TickMsg(time.Now()))
	}
	live := m.Solver().Body(0).Pose

	m = update(m, key("["))
	m = update(m, key("["))
	first, _ := m.History()[3].State.Body(0)
	if m.Solver().Body(0).Pose != first {
		t.Errorf("replay did not restore frame 3")
	}
	if !strings.Contains(m.View(), "REPLAY") {
		t.Error("view does not show replay")
	}

	m = update(m, TickMsg(time.Now()))
	if m.Solver().Steps() != 5 {
		t.Error("solver stepped during replay")
	}

	m = update(m, key("]"))
	m = update(m, key("]"))
	if !m.Solver().Body(0).Pose.ApproxEqual(live, 1e-12) {
		t.Errorf("leaving replay did not restore the live state")
	}

	m = update(m, key(" "))
	m = update(m, TickMsg(time.Now()))
	if m.Solver().Steps() != 6 {
		t.Errorf("steps = %d after resuming, want 6", m.Solver().Steps())
	}
}

func TestModel_Reset(t *testing.T) {
	m := newPendulumModel(t)
	old := m.Solver()
	m = update(m, TickMsg(time.Now()))
	m = update(m, key("r"))
	if m.Solver() == old || m.Solver().Steps() != 0 || len(m.History()) != 1 {
		t.Error("reset did not rebuild the solver")
	}
}

func TestModel_StopsOnSolverError(t *testing.T) {
	build := func() (*dynamo.Solver, error) {
		body := dynamo.BodyDescriptor{
			Mass:    1,
			Inertia: mgl64.Ident3(),
			Pose:    spatial.Translation(mgl64.Vec3{1, 0, 0}),
		}
		ball := dynamo.ConstraintDescriptor{
			Kind:        dynamo.Spherical,
			Bodies:      []int{0},
			Attachments: []spatial.Pose{spatial.Translation(mgl64.Vec3{-1, 0, 0})},
			T:           0.05,
			Zeta:        1,
		}
		return dynamo.NewSolver([]dynamo.BodyDescriptor{body},
			[]dynamo.ConstraintDescriptor{ball, ball}, integrators.NewSemiImplicitEuler(0, 0), dynamo.DefaultOptions())
	}
	m, err := NewModel("redundant", build, 0.01)
	if err != nil {
		t.Fatal(err)
	}

	m = update(m, TickMsg(time.Now()))
	if !errors.Is(m.Err(), dynamo.ErrSingularSystem) {
		t.Fatalf("Err() = %v, want ErrSingularSystem", m.Err())
	}
	if !strings.Contains(m.View(), "STOPPED") {
		t.Error("view does not show the stop")
	}

	m = update(m, key(" "))
	if m.running {
		t.Error("stopped model resumed")
	}
}

func TestNewModel_BuildError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewModel("x", func() (*dynamo.Solver, error) { return nil, boom }, 0.01)
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want the builder error", err)
	}
}

func TestPicker(t *testing.T) {
	p := NewPicker()
	if len(p.scenes) == 0 {
		t.Fatal("no scenes")
	}
	next, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(Picker)
	if p.state != stateVariants || p.scene != config.ListScenes()[0] {
		t.Fatalf("state = %d, scene = %q", p.state, p.scene)
	}

	next, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(Picker)
	if p.err != nil || p.state != stateLive || cmd == nil {
		t.Fatalf("live view did not start: %v", p.err)
	}
	if !strings.Contains(p.View(), strings.ToUpper(p.scene)) {
		t.Error("live view missing the scene name")
	}
}
