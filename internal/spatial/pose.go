package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// smallAngle is the rotation magnitude below which the first-order
// quaternion expansion is used.
const smallAngle = 1e-9

// Pose is a rigid transform. Applied to a point p it gives Rotation·p + Position.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// Identity returns the identity transform.
func Identity() Pose {
	return Pose{Rotation: mgl64.QuatIdent()}
}

func NewPose(position mgl64.Vec3, rotation mgl64.Quat) Pose {
	return Pose{Position: position, Rotation: rotation.Normalize()}
}

// Translation returns a pose with identity rotation.
func Translation(position mgl64.Vec3) Pose {
	return Pose{Position: position, Rotation: mgl64.QuatIdent()}
}

// Normalized returns p with a unit rotation. A zero quaternion, as found in a
// zero-value Pose, becomes the identity rotation.
func (p Pose) Normalized() Pose {
	return Pose{Position: p.Position, Rotation: p.Rotation.Normalize()}
}

// Mul composes p with o: the result applies o first, then p.
func (p Pose) Mul(o Pose) Pose {
	return Pose{
		Position: p.Position.Add(p.Rotation.Rotate(o.Position)),
		Rotation: p.Rotation.Mul(o.Rotation).Normalize(),
	}
}

func (p Pose) Inverse() Pose {
	inv := p.Rotation.Conjugate()
	return Pose{
		Position: inv.Rotate(p.Position).Mul(-1),
		Rotation: inv,
	}
}

// Apply transforms a point.
func (p Pose) Apply(point mgl64.Vec3) mgl64.Vec3 {
	return p.Position.Add(p.Rotation.Rotate(point))
}

// RotationMatrix returns the 3×3 rotation matrix of p.
func (p Pose) RotationMatrix() mgl64.Mat3 {
	return p.Rotation.Mat4().Mat3()
}

// Integrate advances p by a world-frame twist v, referred to p's origin, held
// constant for dt.
func (p Pose) Integrate(v Screw, dt float64) Pose {
	d := Exp(v.Scale(dt))
	return Pose{
		Position: p.Position.Add(d.Position),
		Rotation: d.Rotation.Mul(p.Rotation).Normalize(),
	}
}

func (p Pose) ApproxEqual(o Pose, eps float64) bool {
	return Near(p.Position, o.Position, eps) &&
		p.Rotation.OrientationEqualThreshold(o.Rotation, eps)
}

// Exp maps a displacement screw to a pose increment. The angular part is a
// rotation vector (axis times angle); the linear part is the translation.
func Exp(s Screw) Pose {
	return Pose{Position: s.Linear, Rotation: RotationFromVector(s.Angular)}
}

// Log is the inverse of Exp: it returns the translation of p and the rotation
// vector of its rotation, taking the shorter of the two equivalent arcs.
func Log(p Pose) Screw {
	return Screw{Linear: p.Position, Angular: RotationVector(p.Rotation)}
}

// RotationFromVector returns the unit quaternion rotating by |phi| radians
// around phi.
func RotationFromVector(phi mgl64.Vec3) mgl64.Quat {
	angle := phi.Len()
	if angle < smallAngle {
		return mgl64.Quat{W: 1, V: phi.Mul(0.5)}.Normalize()
	}
	return mgl64.QuatRotate(angle, phi.Mul(1/angle))
}

// RotationVector returns axis·angle for q, with angle in [0, π].
func RotationVector(q mgl64.Quat) mgl64.Vec3 {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	s := q.V.Len()
	if s < smallAngle {
		return q.V.Mul(2)
	}
	angle := 2 * math.Atan2(s, q.W)
	return q.V.Mul(angle / s)
}
