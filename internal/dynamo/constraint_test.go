package dynamo

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

func testBodies(t *testing.T, poses ...spatial.Pose) []*RigidBody {
	t.Helper()
	var out []*RigidBody
	for i, p := range poses {
		b, err := newRigidBody(BodyDescriptor{Mass: 1, Inertia: mgl64.Ident3(), Pose: p}, i)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, b)
	}
	return out
}

func TestNewConstraint_Validation(t *testing.T) {
	bodies := testBodies(t, spatial.Identity(), spatial.Identity())
	at := spatial.Identity()

	tests := []struct {
		name string
		desc ConstraintDescriptor
	}{
		{"unknown kind", ConstraintDescriptor{Kind: JointKind(9), Bodies: []int{0}, Attachments: []spatial.Pose{at}, T: 1}},
		{"no bodies", ConstraintDescriptor{Kind: Spherical, T: 1}},
		{"three bodies", ConstraintDescriptor{Kind: Spherical, Bodies: []int{0, 1, 0}, Attachments: []spatial.Pose{at, at, at}, T: 1}},
		{"attachment mismatch", ConstraintDescriptor{Kind: Spherical, Bodies: []int{0, 1}, Attachments: []spatial.Pose{at}, T: 1}},
		{"same body twice", ConstraintDescriptor{Kind: Spherical, Bodies: []int{1, 1}, Attachments: []spatial.Pose{at, at}, T: 1}},
		{"body out of range", ConstraintDescriptor{Kind: Spherical, Bodies: []int{0, 2}, Attachments: []spatial.Pose{at, at}, T: 1}},
		{"negative body", ConstraintDescriptor{Kind: Spherical, Bodies: []int{-1}, Attachments: []spatial.Pose{at}, T: 1}},
		{"zero time constant", ConstraintDescriptor{Kind: Spherical, Bodies: []int{0}, Attachments: []spatial.Pose{at}}},
		{"negative damping", ConstraintDescriptor{Kind: Spherical, Bodies: []int{0}, Attachments: []spatial.Pose{at}, T: 1, Zeta: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newConstraint(tt.desc, 3, bodies)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("got %v, want ErrConfiguration", err)
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) || ce.Index != 3 {
				t.Errorf("error does not name constraint 3: %v", err)
			}
		})
	}
}

func TestConstraint_Gains(t *testing.T) {
	bodies := testBodies(t, spatial.Identity())
	c, err := newConstraint(ConstraintDescriptor{
		Kind: Spherical, Bodies: []int{0}, Attachments: []spatial.Pose{spatial.Identity()}, T: 0.1, Zeta: 1,
	}, 0, bodies)
	if err != nil {
		t.Fatal(err)
	}

	kp, kd := c.Gains()
	if math.Abs(kp+100) > 1e-9 || math.Abs(kd+20) > 1e-9 {
		t.Errorf("Gains() = %f, %f, want -100, -20", kp, kd)
	}
}

func TestConnection_Jacobian(t *testing.T) {
	bodies := testBodies(t, spatial.Identity(), spatial.Translation(mgl64.Vec3{1, 0, 0}))
	bodies[0].Velocity = spatial.NewScrew(mgl64.Vec3{}, mgl64.Vec3{0, 0, 1})

	c, err := newConstraint(ConstraintDescriptor{
		Kind:        Spherical,
		Bodies:      []int{0, 1},
		Attachments: []spatial.Pose{spatial.Translation(mgl64.Vec3{0.5, 0, 0}), spatial.Translation(mgl64.Vec3{-0.5, 0, 0})},
		T:           1,
	}, 0, bodies)
	if err != nil {
		t.Fatal(err)
	}
	c.update(bodies)

	// J = [I, −[r]×] with r = (0.5, 0, 0)
	wantA := mat.NewDense(3, 6, []float64{
		1, 0, 0, 0, 0, 0,
		0, 1, 0, 0, 0, 0.5,
		0, 0, 1, 0, -0.5, 0,
	})
	if a := c.Connections[0]; !mat.EqualApprox(a.Jacobian(), wantA, 1e-12) {
		t.Errorf("first Jacobian =\n%v\nwant\n%v", mat.Formatted(a.Jacobian()), mat.Formatted(wantA))
	}

	var wantB mat.Dense
	wantB.Scale(-1, mat.NewDense(3, 6, []float64{
		1, 0, 0, 0, 0, 0,
		0, 1, 0, 0, 0, -0.5,
		0, 0, 1, 0, 0.5, 0,
	}))
	if b := c.Connections[1]; !mat.EqualApprox(b.Jacobian(), &wantB, 1e-12) {
		t.Errorf("second Jacobian =\n%v\nwant\n%v", mat.Formatted(b.Jacobian()), mat.Formatted(&wantB))
	}

	// ω × (ω × r) for ω = ẑ, r = 0.5·x̂
	wantCoupling := mat.NewVecDense(3, []float64{-0.5, 0, 0})
	if !mat.EqualApprox(c.Connections[0].coupling, wantCoupling, 1e-12) {
		t.Errorf("coupling = %v, want %v", c.Connections[0].coupling.RawVector().Data, wantCoupling.RawVector().Data)
	}
	if c.Connections[1].coupling.Norm(2) != 0 {
		t.Errorf("non-rotating body has coupling %v", c.Connections[1].coupling.RawVector().Data)
	}

	// the attachment points coincide at x = 0.5
	if pos, _ := c.errorNorms(); pos > 1e-12 {
		t.Errorf("position error = %g, want 0", pos)
	}
}

func TestConstraint_ErrorAndBias(t *testing.T) {
	bodies := testBodies(t, spatial.Translation(mgl64.Vec3{0.2, 0, 0}))
	bodies[0].Velocity = spatial.NewScrew(mgl64.Vec3{0, 0.3, 0}, mgl64.Vec3{})
	ref := spatial.Identity()

	c, err := newConstraint(ConstraintDescriptor{
		Kind:        Spherical,
		Bodies:      []int{0},
		Attachments: []spatial.Pose{spatial.Identity()},
		Reference:   &ref,
		T:           0.1,
		Zeta:        1,
	}, 0, bodies)
	if err != nil {
		t.Fatal(err)
	}
	c.update(bodies)

	wantPos := mat.NewVecDense(3, []float64{0.2, 0, 0})
	wantVel := mat.NewVecDense(3, []float64{0, 0.3, 0})
	// −(ė·Kd) − (e·Kp) with Kp = −100, Kd = −20
	wantBias := mat.NewVecDense(3, []float64{20, 6, 0})

	if !mat.EqualApprox(c.PositionError(), wantPos, 1e-12) {
		t.Errorf("position error = %v", mat.Formatted(c.PositionError().T()))
	}
	if !mat.EqualApprox(c.VelocityError(), wantVel, 1e-12) {
		t.Errorf("velocity error = %v", mat.Formatted(c.VelocityError().T()))
	}
	if !mat.EqualApprox(c.Bias(), wantBias, 1e-9) {
		t.Errorf("bias = %v, want %v", mat.Formatted(c.Bias().T()), mat.Formatted(wantBias.T()))
	}
}

func TestConstraint_DefaultReference(t *testing.T) {
	bodies := testBodies(t, spatial.Translation(mgl64.Vec3{0, 0, -1}))

	c, err := newConstraint(ConstraintDescriptor{
		Kind:        Weld,
		Bodies:      []int{0},
		Attachments: []spatial.Pose{spatial.Translation(mgl64.Vec3{0, 0, 1})},
		T:           1,
	}, 0, bodies)
	if err != nil {
		t.Fatal(err)
	}

	if !c.Reference.ApproxEqual(spatial.Identity(), 1e-12) {
		t.Errorf("Reference = %v, want the initial attachment frame at the origin", c.Reference)
	}
	c.update(bodies)
	if pos, vel := c.errorNorms(); pos > 1e-12 || vel > 1e-12 {
		t.Errorf("errors = %g, %g, want 0", pos, vel)
	}
}

func TestConstraint_WeldRotationError(t *testing.T) {
	angle := 0.1
	bodies := testBodies(t, spatial.NewPose(mgl64.Vec3{}, mgl64.QuatRotate(angle, mgl64.Vec3{0, 1, 0})))
	ref := spatial.Identity()

	c, _ := newConstraint(ConstraintDescriptor{
		Kind: Weld, Bodies: []int{0}, Attachments: []spatial.Pose{spatial.Identity()}, Reference: &ref, T: 1,
	}, 0, bodies)
	c.update(bodies)

	if got := c.PositionError().AtVec(4); math.Abs(got-angle) > 1e-12 {
		t.Errorf("angular error about y = %f, want %f", got, angle)
	}
}
