package sim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/spatial"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	pose := spatial.NewPose(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(0.4, mgl64.Vec3{0, 1, 0}))
	vel := spatial.NewScrew(mgl64.Vec3{4, 5, 6}, mgl64.Vec3{7, 8, 9})
	b, err := dynamo.NewRigidBody(dynamo.BodyDescriptor{Mass: 1, Inertia: mgl64.Ident3(), Pose: pose, Velocity: vel})
	if err != nil {
		t.Fatal(err)
	}

	s := Snapshot([]*dynamo.RigidBody{b, b})
	if len(s) != 2*BodyStateDim || s.NumBodies() != 2 {
		t.Fatalf("snapshot length = %d", len(s))
	}

	gotPose, gotVel := s.Body(1)
	if !gotPose.ApproxEqual(pose, 1e-12) {
		t.Errorf("pose = %v, want %v", gotPose, pose)
	}
	if gotVel != vel {
		t.Errorf("velocity = %v, want %v", gotVel, vel)
	}

	b.Pose, b.Velocity = spatial.Identity(), spatial.Screw{}
	s.Restore([]*dynamo.RigidBody{b})
	if !b.Pose.ApproxEqual(pose, 1e-12) || b.Velocity != vel {
		t.Errorf("Restore gave %v %v", b.Pose, b.Velocity)
	}
}

func TestStatePool(t *testing.T) {
	pool := NewStatePool(2)

	s1 := pool.Get()
	if len(s1) != 2*BodyStateDim {
		t.Errorf("Pool returned wrong size: %d", len(s1))
	}

	s1[0] = 1.0
	s1[1] = 2.0
	pool.Put(s1)

	s2 := pool.Get()
	if s2[0] != 0 || s2[1] != 0 {
		t.Error("Pool did not reset state")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("DefaultConfig has invalid Dt")
	}
	if cfg.Duration <= 0 {
		t.Error("DefaultConfig has invalid Duration")
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Time: 1.5, Step: 150, Err: ErrInvalidState}
	expected := "step 150 (t=1.5000): sim: invalid state (NaN/Inf)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestTotalEnergy(t *testing.T) {
	b, _ := dynamo.NewRigidBody(dynamo.BodyDescriptor{
		Mass:     2,
		Inertia:  mgl64.Ident3(),
		Pose:     spatial.Translation(mgl64.Vec3{0, 0, 3}),
		Velocity: spatial.NewScrew(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}),
	})

	got := TotalEnergy([]*dynamo.RigidBody{b}, mgl64.Vec3{0, 0, -10})
	if math.Abs(got-61) > 1e-12 {
		t.Errorf("TotalEnergy() = %f, want 61", got)
	}
}
