package dynamo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

// BodyDescriptor is the setup-time description of a rigid body. Inertia is
// the body-frame tensor about the centre of mass, which is also the body's
// reference point. Velocity is expressed in the world frame at that point.
type BodyDescriptor struct {
	Name     string
	Mass     float64
	Inertia  mgl64.Mat3
	Pose     spatial.Pose
	Velocity spatial.Screw
}

// RigidBody holds the dynamic state of one body. Pose, Velocity and
// Acceleration are world-frame quantities referred to the centre of mass.
type RigidBody struct {
	Name         string
	Pose         spatial.Pose
	Velocity     spatial.Screw
	Acceleration spatial.Screw

	mass          float64
	inertia       mgl64.Mat3
	massMatrix    *mat.Dense
	invMassMatrix *mat.Dense
}

// NewRigidBody validates d and builds the body's constant reference mass
// matrix. A non-positive mass or an inertia tensor that is not symmetric
// positive definite is a configuration error.
func NewRigidBody(d BodyDescriptor) (*RigidBody, error) {
	return newRigidBody(d, -1)
}

func newRigidBody(d BodyDescriptor, index int) (*RigidBody, error) {
	if !(d.Mass > 0) || math.IsInf(d.Mass, 0) {
		return nil, configError("body", index, "mass must be positive and finite, got %g", d.Mass)
	}
	if !isSymmetric(d.Inertia) {
		return nil, configError("body", index, "inertia tensor is not symmetric")
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(symDense(d.Inertia)); !ok {
		return nil, configError("body", index, "inertia tensor is not positive definite")
	}

	m := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		m.Set(i, i, d.Mass)
		for j := 0; j < 3; j++ {
			m.Set(i+3, j+3, d.Inertia.At(i, j))
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, configError("body", index, "mass matrix is not invertible: %v", err)
	}

	return &RigidBody{
		Name:          d.Name,
		Pose:          d.Pose.Normalized(),
		Velocity:      d.Velocity,
		mass:          d.Mass,
		inertia:       d.Inertia,
		massMatrix:    m,
		invMassMatrix: &inv,
	}, nil
}

// symmetryTol is the largest accepted |I_ij − I_ji| relative to the trace.
const symmetryTol = 1e-12

func isSymmetric(m mgl64.Mat3) bool {
	tol := symmetryTol * math.Max(1, math.Abs(m.Trace()))
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if !(math.Abs(m.At(i, j)-m.At(j, i)) <= tol) {
				return false
			}
		}
	}
	return true
}

func symDense(m mgl64.Mat3) *mat.SymDense {
	s := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}
	return s
}

func (b *RigidBody) Mass() float64 { return b.mass }

// Inertia returns the body-frame inertia tensor.
func (b *RigidBody) Inertia() mgl64.Mat3 { return b.inertia }

// MassMatrix returns a copy of the constant body-frame 6×6 mass matrix:
// mass on the linear diagonal block, inertia tensor on the angular block. No
// parallel-axis term is applied; bodies are defined about their centre of
// mass.
func (b *RigidBody) MassMatrix() mat.Matrix {
	return mat.DenseCopyOf(b.massMatrix)
}

// InertiaWorld returns R·I·Rᵀ for the current orientation.
func (b *RigidBody) InertiaWorld() mgl64.Mat3 {
	r := b.Pose.RotationMatrix()
	return r.Mul3(b.inertia).Mul3(r.Transpose())
}

// InertiaForce returns the gyroscopic inertial force -ω × (I·ω), with I the
// world-frame inertia. The linear part is zero.
func (b *RigidBody) InertiaForce() spatial.Screw {
	w := b.Velocity.Angular
	return spatial.Screw{Angular: w.Cross(b.InertiaWorld().Mul3x1(w)).Mul(-1)}
}

// GravityForce returns the force screw of a uniform field g acting at the
// centre of mass.
func (b *RigidBody) GravityForce(g mgl64.Vec3) spatial.Screw {
	return spatial.Screw{Linear: g.Mul(b.mass)}
}

// KineticEnergy returns ½·m·|v|² + ½·ωᵀ·I·ω.
func (b *RigidBody) KineticEnergy() float64 {
	v, w := b.Velocity.Linear, b.Velocity.Angular
	return 0.5*b.mass*v.Dot(v) + 0.5*w.Dot(b.InertiaWorld().Mul3x1(w))
}

// Integrate applies a constant acceleration for dt: the velocity gains a·dt,
// minus damping·v·dt, and the pose is advanced with the updated velocity.
func (b *RigidBody) Integrate(accel spatial.Screw, dt, damping float64) {
	v := b.Velocity.Add(accel.Scale(dt))
	if damping != 0 {
		v = v.Sub(b.Velocity.Scale(damping * dt))
	}
	b.Velocity = v
	b.Pose = b.Pose.Integrate(v, dt)
}

// worldMass writes the world-frame mass block X·M·Xᵀ and its inverse into dst
// and dstInv, X = diag(R, R). work must be 6×6.
func (b *RigidBody) worldMass(dst, dstInv, work *mat.Dense) {
	spatial.BlockRotation(work, b.Pose.RotationMatrix())
	dst.Product(work, b.massMatrix, work.T())
	dstInv.Product(work, b.invMassMatrix, work.T())
}
