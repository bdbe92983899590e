package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/experiment"
)

var sceneInfo = map[string]string{
	"pendulum":        "single ball joint",
	"double_pendulum": "two links, chaotic",
	"chain":           "hanging chain of links",
	"free_fall":       "unconstrained body",
	"spinner":         "torque-free rotation",
	"displaced_joint": "stabilization from an open joint",
}

// ConfigBuilder returns a Builder that sets up a fresh experiment from a copy
// of cfg on each call.
func ConfigBuilder(cfg *config.Config, opts ...experiment.Option) Builder {
	return func() (*dynamo.Solver, error) {
		e := experiment.New(cfg.Clone(), opts...)
		if err := e.Setup(nil); err != nil {
			return nil, err
		}
		return e.GetSimulator().Solver(), nil
	}
}

const (
	stateScenes = iota
	stateVariants
	stateLive
)

// Picker is a menu of preset scenes that opens the chosen one in a live view.
type Picker struct {
	state    int
	cursor   int
	scenes   []string
	variants []string
	scene    string
	theme    Theme
	live     Model
	err      error
}

func NewPicker() Picker {
	return Picker{scenes: config.ListScenes(), theme: Themes[0]}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.state == stateLive {
		live, cmd := p.live.Update(msg)
		p.live = live.(Model)
		return p, cmd
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	items := p.items()
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(items)-1 {
			p.cursor++
		}
	case "esc", "backspace":
		if p.state == stateVariants {
			p.state, p.cursor = stateScenes, 0
		}
	case "enter", " ":
		if len(items) == 0 {
			return p, nil
		}
		if p.state == stateScenes {
			p.scene = items[p.cursor]
			p.variants = config.ListPresets(p.scene)
			p.state, p.cursor = stateVariants, 0
			return p, nil
		}
		return p.start(items[p.cursor])
	}
	return p, nil
}

func (p Picker) start(variant string) (tea.Model, tea.Cmd) {
	cfg := config.GetPreset(p.scene, variant)
	if cfg == nil {
		p.err = fmt.Errorf("preset %s/%s not found", p.scene, variant)
		return p, nil
	}
	live, err := NewModel(p.scene+"/"+variant, ConfigBuilder(cfg), cfg.Dt)
	if err != nil {
		p.err = err
		return p, nil
	}
	p.live, p.state, p.err = live, stateLive, nil
	return p, live.Init()
}

func (p Picker) items() []string {
	if p.state == stateVariants {
		return p.variants
	}
	return p.scenes
}

func (p Picker) View() string {
	if p.state == stateLive {
		return p.live.View()
	}
	st := newStyles(p.theme)
	var b strings.Builder
	title, sub := "MBSIM", "multibody simulation"
	if p.state == stateVariants {
		title, sub = strings.ToUpper(p.scene), sceneInfo[p.scene]
	}
	b.WriteString("\n  " + st.header.Render(title) + "\n  " + st.muted.Render(sub) + "\n\n")
	for i, name := range p.items() {
		desc := ""
		if p.state == stateScenes {
			desc = sceneInfo[name]
		}
		line := fmt.Sprintf("%-18s %s", name, desc)
		if i == p.cursor {
			b.WriteString("  " + st.key.Render("▸ ") + st.value.Render(line) + "\n")
		} else {
			b.WriteString("    " + st.muted.Render(line) + "\n")
		}
	}
	if p.err != nil {
		b.WriteString("\n  " + st.err.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n  " + st.muted.Render("j/k navigate  enter select  esc back  q quit") + "\n")
	return b.String()
}

// RunInteractive opens the scene picker.
func RunInteractive() error {
	_, err := tea.NewProgram(NewPicker(), tea.WithAltScreen()).Run()
	return err
}
