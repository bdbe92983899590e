package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/spatial"
)

func newBody(t *testing.T, v spatial.Screw) *dynamo.RigidBody {
	t.Helper()
	b, err := dynamo.NewRigidBody(dynamo.BodyDescriptor{
		Mass:     1,
		Inertia:  mgl64.Diag3(mgl64.Vec3{0.1, 0.1, 0.1}),
		Pose:     spatial.Identity(),
		Velocity: v,
	})
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	return b
}

func TestSemiImplicitEuler_ConstantAcceleration(t *testing.T) {
	b := newBody(t, spatial.Screw{})
	b.Acceleration = spatial.NewScrew(mgl64.Vec3{0, 0, -9.8}, mgl64.Vec3{})

	integ := NewSemiImplicitEuler(8, 0)
	dt := 0.01
	for i := 0; i < 100; i++ {
		integ.Advance([]*dynamo.RigidBody{b}, dt)
	}

	if got := b.Velocity.Linear[2]; math.Abs(got+9.8) > 1e-9 {
		t.Errorf("velocity after 1s = %f, want -9.8", got)
	}

	// semi-implicit Euler over N sub-steps gives x = ½·a·t²·(1 + 1/N_total)
	steps := 100 * 8.0
	want := -0.5 * 9.8 * (1 + 1/steps)
	if got := b.Pose.Position[2]; math.Abs(got-want) > 1e-9 {
		t.Errorf("position after 1s = %f, want %f", got, want)
	}
}

func TestExplicitEuler_LagsSemiImplicit(t *testing.T) {
	a := spatial.NewScrew(mgl64.Vec3{0, 0, -9.8}, mgl64.Vec3{})

	semi := newBody(t, spatial.Screw{})
	semi.Acceleration = a
	expl := newBody(t, spatial.Screw{})
	expl.Acceleration = a

	NewSemiImplicitEuler(4, 0).Advance([]*dynamo.RigidBody{semi}, 0.1)
	NewExplicitEuler(4, 0).Advance([]*dynamo.RigidBody{expl}, 0.1)

	if semi.Velocity != expl.Velocity {
		t.Errorf("velocities differ: %v vs %v", semi.Velocity, expl.Velocity)
	}
	if !(semi.Pose.Position[2] < expl.Pose.Position[2]) {
		t.Errorf("semi-implicit should fall further: %f vs %f", semi.Pose.Position[2], expl.Pose.Position[2])
	}
}

func TestSemiImplicitEuler_Damping(t *testing.T) {
	b := newBody(t, spatial.NewScrew(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 1}))

	NewSemiImplicitEuler(10, 0.5).Advance([]*dynamo.RigidBody{b}, 1)

	want := math.Pow(1-0.5*0.1, 10)
	if got := b.Velocity.Linear[0]; math.Abs(got-want) > 1e-12 {
		t.Errorf("damped velocity = %f, want %f", got, want)
	}
	if got := b.Velocity.Angular[2]; math.Abs(got-want) > 1e-12 {
		t.Errorf("damped angular velocity = %f, want %f", got, want)
	}
}

func TestNewSemiImplicitEuler_DefaultSubsteps(t *testing.T) {
	if got := NewSemiImplicitEuler(0, 0).Substeps; got != dynamo.DefaultSubsteps {
		t.Errorf("substeps = %d, want %d", got, dynamo.DefaultSubsteps)
	}
}

func TestStaged_ConstantAccelerationIsExact(t *testing.T) {
	tests := []struct {
		name  string
		integ dynamo.Integrator
	}{
		{"leapfrog", NewLeapfrog(4, 0)},
		{"rk4", NewRK4(4, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBody(t, spatial.NewScrew(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}))
			b.Acceleration = spatial.NewScrew(mgl64.Vec3{0, 0, -9.8}, mgl64.Vec3{})
			for i := 0; i < 100; i++ {
				tt.integ.Advance([]*dynamo.RigidBody{b}, 0.01)
			}

			want := mgl64.Vec3{1, 0, -4.9}
			if !spatial.Near(b.Pose.Position, want, 1e-9) {
				t.Errorf("position after 1s = %v, want %v", b.Pose.Position, want)
			}
			if got := b.Velocity.Linear; !spatial.Near(got, mgl64.Vec3{1, 0, -9.8}, 1e-9) {
				t.Errorf("velocity after 1s = %v", got)
			}
		})
	}
}

func TestRK4_Damping(t *testing.T) {
	b := newBody(t, spatial.NewScrew(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}))

	NewRK4(10, 0.5).Advance([]*dynamo.RigidBody{b}, 1)

	x := 0.05
	want := math.Pow(1-x+x*x/2-x*x*x/6+x*x*x*x/24, 10)
	if got := b.Velocity.Linear[0]; math.Abs(got-want) > 1e-12 {
		t.Errorf("damped velocity = %.15f, want %.15f", got, want)
	}
}

func TestStaged_EvaluationCount(t *testing.T) {
	tests := []struct {
		name  string
		integ dynamo.StagedIntegrator
		want  int
	}{
		{"leapfrog", NewLeapfrog(4, 0), 4},
		{"rk4", NewRK4(4, 0), 3*4 + 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBody(t, spatial.Screw{})
			calls := 0
			err := tt.integ.AdvanceStaged([]*dynamo.RigidBody{b}, 0.1, func() error {
				calls++
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			if calls != tt.want {
				t.Errorf("evaluations = %d, want %d", calls, tt.want)
			}
		})
	}
}

func TestStaged_StopsOnEvaluationError(t *testing.T) {
	boom := errors.New("singular")
	for _, integ := range []dynamo.StagedIntegrator{NewLeapfrog(4, 0), NewRK4(4, 0)} {
		calls := 0
		err := integ.AdvanceStaged([]*dynamo.RigidBody{newBody(t, spatial.Screw{})}, 0.1, func() error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Errorf("%T: err = %v after %d calls, want %v after 1", integ, err, calls, boom)
		}
	}
}
