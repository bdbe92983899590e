package spatial

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Screw is a spatial vector. Linear holds the translational part (velocity,
// acceleration or force), Angular the rotational part (angular velocity,
// angular acceleration or torque).
type Screw struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// NewScrew builds a screw from its linear and angular parts.
func NewScrew(linear, angular mgl64.Vec3) Screw {
	return Screw{Linear: linear, Angular: angular}
}

// ScrewFromSlice reads a screw from v[0:6], linear part first.
func ScrewFromSlice(v []float64) Screw {
	if len(v) < 6 {
		panic(fmt.Sprintf("spatial: screw needs 6 components, got %d", len(v)))
	}
	return Screw{
		Linear:  mgl64.Vec3{v[0], v[1], v[2]},
		Angular: mgl64.Vec3{v[3], v[4], v[5]},
	}
}

// Slice returns the six components, linear part first.
func (s Screw) Slice() []float64 {
	return []float64{s.Linear[0], s.Linear[1], s.Linear[2], s.Angular[0], s.Angular[1], s.Angular[2]}
}

// Add returns the component-wise sum s + o.
func (s Screw) Add(o Screw) Screw {
	return Screw{s.Linear.Add(o.Linear), s.Angular.Add(o.Angular)}
}

// Sub returns the component-wise difference s − o.
func (s Screw) Sub(o Screw) Screw {
	return Screw{s.Linear.Sub(o.Linear), s.Angular.Sub(o.Angular)}
}

// Scale multiplies both parts by c.
func (s Screw) Scale(c float64) Screw {
	return Screw{s.Linear.Mul(c), s.Angular.Mul(c)}
}

func (s Screw) Neg() Screw { return s.Scale(-1) }

// Dot is the six-component inner product. For a force and a velocity it is
// the power.
func (s Screw) Dot(o Screw) float64 {
	return s.Linear.Dot(o.Linear) + s.Angular.Dot(o.Angular)
}

// Norm is the Euclidean norm over all six components.
func (s Screw) Norm() float64 {
	return math.Sqrt(s.Dot(s))
}

// Carry moves a motion screw to a point rigidly attached at offset r from the
// current reference point: the linear part becomes v + ω × r.
func (s Screw) Carry(r mgl64.Vec3) Screw {
	return Screw{
		Linear:  s.Linear.Add(s.Angular.Cross(r)),
		Angular: s.Angular,
	}
}

// Rotate re-expresses both parts in the frame rotated by q.
func (s Screw) Rotate(q mgl64.Quat) Screw {
	return Screw{q.Rotate(s.Linear), q.Rotate(s.Angular)}
}

func (s Screw) IsValid() bool {
	for _, v := range s.Slice() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ApproxEqual reports whether both parts of s and o lie within eps of each
// other in absolute distance.
func (s Screw) ApproxEqual(o Screw, eps float64) bool {
	return Near(s.Linear, o.Linear, eps) && Near(s.Angular, o.Angular, eps)
}

// Near reports whether a and b are within eps in absolute distance.
func Near(a, b mgl64.Vec3, eps float64) bool {
	return a.Sub(b).Len() <= eps
}

func (s Screw) String() string {
	return fmt.Sprintf("lin(%.4g, %.4g, %.4g) ang(%.4g, %.4g, %.4g)",
		s.Linear[0], s.Linear[1], s.Linear[2], s.Angular[0], s.Angular[1], s.Angular[2])
}
