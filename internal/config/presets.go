package config

import (
	"fmt"
	"math"
	"sort"
)

// Presets maps scene → variant → builder. Builders return fresh configs.
var Presets = map[string]map[string]func() *Config{
	"pendulum": {
		"small":      func() *Config { return pendulum(0.2) },
		"horizontal": func() *Config { return pendulum(math.Pi / 2) },
		"inverted": func() *Config {
			c := pendulum(math.Pi - 0.05)
			c.Duration = 15
			return c
		},
	},
	"double_pendulum": {
		"gentle": func() *Config { return doublePendulum(0.3, 0.3) },
		"chaos":  func() *Config { return doublePendulum(3.0, 3.0) },
	},
	"chain": {
		"short": func() *Config { return chain(4) },
		"long":  func() *Config { return chain(8) },
	},
	"free_fall": {
		"drop": func() *Config {
			c := base("free_fall")
			c.Duration = 1.4
			c.Bodies = []BodyConfig{box("box", 1, 0.2, [3]float64{0, 0, 10})}
			return c
		},
		"toss": func() *Config {
			c := base("free_fall")
			c.Duration = 2
			b := box("box", 1, 0.2, [3]float64{})
			b.Velocity = [3]float64{2, 0, 9.8}
			b.AngularVelocity = [3]float64{0.5, 4, 0}
			c.Bodies = []BodyConfig{b}
			return c
		},
	},
	"spinner": {
		"stable":       func() *Config { return spinner([3]float64{0.05, 0, 5}) },
		"intermediate": func() *Config { return spinner([3]float64{0.05, 5, 0}) },
	},
	"displaced_joint": {
		"critical":    func() *Config { return displaced(1) },
		"underdamped": func() *Config { return displaced(0.2) },
		"weld": func() *Config {
			c := displaced(1)
			c.Bodies[1].Rotation = [4]float64{0, 0, 1, 0.2}
			c.Constraints[0].Kind = "weld"
			return c
		},
	},
}

// GetPreset returns a fresh config for scene/variant, or nil.
func GetPreset(scene, variant string) *Config {
	if variants, ok := Presets[scene]; ok {
		if build, ok := variants[variant]; ok {
			return build()
		}
	}
	return nil
}

// ListPresets returns the sorted variant names of scene, or nil.
func ListPresets(scene string) []string {
	variants, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListScenes returns the sorted scene names.
func ListScenes() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func base(scene string) *Config {
	return &Config{
		Scene:      scene,
		Integrator: DefaultIntegrator,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Substeps:   DefaultSubsteps,
		Gravity:    [3]float64{0, 0, -9.8},
	}
}

// box is a uniform cube of side a.
func box(name string, mass, a float64, pos [3]float64) BodyConfig {
	i := mass * a * a / 6
	return BodyConfig{Name: name, Mass: mass, Inertia: [3]float64{i, i, i}, Position: pos}
}

// rod is a slender bar of length l along its local x axis.
func rod(name string, mass, l float64, pos [3]float64) BodyConfig {
	i := mass * l * l / 12
	return BodyConfig{Name: name, Mass: mass, Inertia: [3]float64{i / 100, i, i}, Position: pos}
}

func ball(bodies []string, anchors ...[3]float64) ConstraintConfig {
	return ConstraintConfig{Kind: "spherical", Bodies: bodies, Anchors: anchors, T: DefaultT, Zeta: DefaultZeta}
}

// pendulum is a bob on a unit rod hinged at the origin, theta from the
// downward vertical in the x-z plane.
func pendulum(theta float64) *Config {
	c := base("pendulum")
	s, co := math.Sin(theta), math.Cos(theta)
	c.Bodies = []BodyConfig{box("bob", 1, 0.1, [3]float64{s, 0, -co})}
	c.Constraints = []ConstraintConfig{ball([]string{"bob"}, [3]float64{-s, 0, co})}
	return c
}

func doublePendulum(theta1, theta2 float64) *Config {
	c := base("double_pendulum")
	c.Dt = 0.005
	c.Duration = 30
	p1 := [3]float64{math.Sin(theta1), 0, -math.Cos(theta1)}
	d2 := [3]float64{math.Sin(theta2), 0, -math.Cos(theta2)}
	p2 := [3]float64{p1[0] + d2[0], 0, p1[2] + d2[2]}
	c.Bodies = []BodyConfig{
		box("upper", 1, 0.1, p1),
		box("lower", 1, 0.1, p2),
	}
	c.Constraints = []ConstraintConfig{
		ball([]string{"upper"}, [3]float64{-p1[0], 0, -p1[2]}),
		ball([]string{"upper", "lower"}, [3]float64{}, [3]float64{-d2[0], 0, -d2[2]}),
	}
	return c
}

// chain hangs n rods of length 0.5 from the origin, starting horizontal.
func chain(n int) *Config {
	const l = 0.5
	c := base("chain")
	c.Dt = 0.005
	c.Duration = 10
	c.DriftThreshold = 1e-2
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("link%d", i)
		c.Bodies = append(c.Bodies, rod(name, 0.2, l, [3]float64{l/2 + l*float64(i), 0, 0}))
		if i == 0 {
			c.Constraints = append(c.Constraints, ball([]string{name}, [3]float64{-l / 2, 0, 0}))
			continue
		}
		prev := fmt.Sprintf("link%d", i-1)
		c.Constraints = append(c.Constraints, ball([]string{prev, name}, [3]float64{l / 2, 0, 0}, [3]float64{-l / 2, 0, 0}))
	}
	return c
}

// spinner is a free asymmetric body in zero gravity.
func spinner(omega [3]float64) *Config {
	c := base("spinner")
	c.Dt = 0.002
	c.Duration = 20
	c.Gravity = [3]float64{}
	c.Bodies = []BodyConfig{{
		Name:            "plate",
		Mass:            1,
		Inertia:         [3]float64{0.1, 0.2, 0.3},
		AngularVelocity: omega,
	}}
	return c
}

// displaced starts two free bodies with their joint 0.1 apart.
func displaced(zeta float64) *Config {
	c := base("displaced_joint")
	c.Duration = 3
	c.Gravity = [3]float64{}
	c.DriftThreshold = 1e-3
	c.Bodies = []BodyConfig{
		box("a", 1, 0.5, [3]float64{}),
		box("b", 1, 0.5, [3]float64{1.1, 0, 0}),
	}
	j := ball([]string{"a", "b"}, [3]float64{0.5, 0, 0}, [3]float64{-0.5, 0, 0})
	j.T = 0.1
	j.Zeta = zeta
	c.Constraints = []ConstraintConfig{j}
	return c
}
