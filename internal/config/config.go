package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/spatial"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 0.01
	DefaultDuration   = 10.0
	DefaultSubsteps   = dynamo.DefaultSubsteps
	DefaultT          = 0.05
	DefaultZeta       = 1.0
	DefaultIntegrator = "semi-implicit"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Config describes a scene and how to run it.
type Config struct {
	Scene          string             `yaml:"scene"`
	Integrator     string             `yaml:"integrator"`
	Dt             float64            `yaml:"dt"`
	Duration       float64            `yaml:"duration"`
	Substeps       int                `yaml:"substeps"`
	Damping        float64            `yaml:"damping"`
	Gravity        [3]float64         `yaml:"gravity,flow"`
	DriftThreshold float64            `yaml:"drift_threshold"`
	MaxCond        float64            `yaml:"max_cond,omitempty"`
	Seed           int64              `yaml:"seed"`
	Bodies         []BodyConfig       `yaml:"bodies"`
	Constraints    []ConstraintConfig `yaml:"constraints"`
}

// BodyConfig is one rigid body. Inertia holds the principal moments about the
// centre of mass; Rotation is an axis (x, y, z) and an angle in radians.
type BodyConfig struct {
	Name            string     `yaml:"name"`
	Mass            float64    `yaml:"mass"`
	Inertia         [3]float64 `yaml:"inertia,flow"`
	Position        [3]float64 `yaml:"position,flow"`
	Rotation        [4]float64 `yaml:"rotation,flow"`
	Velocity        [3]float64 `yaml:"velocity,flow"`
	AngularVelocity [3]float64 `yaml:"angular_velocity,flow"`
}

// ConstraintConfig is one joint. Bodies name one or two bodies; Anchors holds
// the matching attachment points in each body's frame. A single-body joint is
// anchored to the world at Reference, or where its anchor starts when
// Reference is unset.
type ConstraintConfig struct {
	Kind      string       `yaml:"kind"`
	Bodies    []string     `yaml:"bodies,flow"`
	Anchors   [][3]float64 `yaml:"anchors,flow"`
	Reference *[3]float64  `yaml:"reference,omitempty,flow"`
	T         float64      `yaml:"t"`
	Zeta      float64      `yaml:"zeta"`
}

func DefaultConfig() *Config {
	return pendulum(0.5)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Integrator: DefaultIntegrator,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Substeps:   DefaultSubsteps,
		Gravity:    [3]float64{0, 0, -9.8},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Bodies = append([]BodyConfig(nil), c.Bodies...)
	out.Constraints = make([]ConstraintConfig, len(c.Constraints))
	for i, cc := range c.Constraints {
		cc.Bodies = append([]string(nil), cc.Bodies...)
		cc.Anchors = append([][3]float64(nil), cc.Anchors...)
		if cc.Reference != nil {
			ref := *cc.Reference
			cc.Reference = &ref
		}
		out.Constraints[i] = cc
	}
	return &out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks run parameters and scene topology. Physical checks on mass
// and inertia are left to the solver.
func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return invalid("dt must be positive, got %g", c.Dt)
	}
	if !(c.Duration > 0) {
		return invalid("duration must be positive, got %g", c.Duration)
	}
	if c.Substeps < 0 {
		return invalid("substeps must not be negative, got %d", c.Substeps)
	}
	if c.Damping < 0 {
		return invalid("damping must not be negative, got %g", c.Damping)
	}
	if len(c.Bodies) == 0 {
		return invalid("scene %q has no bodies", c.Scene)
	}

	names := make(map[string]bool, len(c.Bodies))
	for i, b := range c.Bodies {
		if b.Name == "" {
			return invalid("body %d has no name", i)
		}
		if names[b.Name] {
			return invalid("duplicate body name %q", b.Name)
		}
		names[b.Name] = true
	}

	for i, cc := range c.Constraints {
		if _, err := dynamo.ParseJointKind(cc.Kind); err != nil {
			return invalid("constraint %d: %v", i, err)
		}
		if len(cc.Bodies) == 0 || len(cc.Bodies) > 2 {
			return invalid("constraint %d: needs 1 or 2 bodies, got %d", i, len(cc.Bodies))
		}
		if len(cc.Anchors) != len(cc.Bodies) {
			return invalid("constraint %d: %d anchors for %d bodies", i, len(cc.Anchors), len(cc.Bodies))
		}
		for _, name := range cc.Bodies {
			if !names[name] {
				return invalid("constraint %d: unknown body %q", i, name)
			}
		}
		if cc.Reference != nil && len(cc.Bodies) == 2 {
			return invalid("constraint %d: reference is only valid for a single body", i)
		}
	}
	return nil
}

// Descriptors validates c and converts it to solver descriptors, resolving
// body names to indices.
func (c *Config) Descriptors() ([]dynamo.BodyDescriptor, []dynamo.ConstraintDescriptor, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	index := make(map[string]int, len(c.Bodies))
	bodies := make([]dynamo.BodyDescriptor, len(c.Bodies))
	for i, b := range c.Bodies {
		index[b.Name] = i
		bodies[i] = dynamo.BodyDescriptor{
			Name:     b.Name,
			Mass:     b.Mass,
			Inertia:  mgl64.Diag3(b.Inertia),
			Pose:     spatial.NewPose(b.Position, rotation(b.Rotation)),
			Velocity: spatial.NewScrew(b.Velocity, b.AngularVelocity),
		}
	}

	cons := make([]dynamo.ConstraintDescriptor, len(c.Constraints))
	for i, cc := range c.Constraints {
		kind, _ := dynamo.ParseJointKind(cc.Kind)
		d := dynamo.ConstraintDescriptor{Kind: kind, T: cc.T, Zeta: cc.Zeta}
		if d.T == 0 {
			d.T = DefaultT
		}
		for k, name := range cc.Bodies {
			d.Bodies = append(d.Bodies, index[name])
			d.Attachments = append(d.Attachments, spatial.Translation(cc.Anchors[k]))
		}
		if cc.Reference != nil {
			ref := spatial.Translation(*cc.Reference)
			d.Reference = &ref
		}
		cons[i] = d
	}
	return bodies, cons, nil
}

// Options returns the solver options of c.
func (c *Config) Options() dynamo.Options {
	opts := dynamo.DefaultOptions()
	opts.Gravity = c.Gravity
	opts.DriftThreshold = c.DriftThreshold
	if c.MaxCond > 0 {
		opts.MaxCond = c.MaxCond
	}
	return opts
}

func rotation(r [4]float64) mgl64.Quat {
	axis := mgl64.Vec3{r[0], r[1], r[2]}
	if axis.Len() == 0 || r[3] == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(r[3], axis.Normalize())
}
