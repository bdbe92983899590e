package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Skew returns the cross-product matrix of v, so that Skew(v)·u = v × u.
func Skew(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{0, -v[2], v[1]},
		mgl64.Vec3{v[2], 0, -v[0]},
		mgl64.Vec3{-v[1], v[0], 0},
	)
}

// Dense copies a 3×3 matrix into a gonum matrix.
func Dense(m mgl64.Mat3) *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d.Set(i, j, m.At(i, j))
		}
	}
	return d
}

// SkewDense is Skew as a gonum matrix.
func SkewDense(v mgl64.Vec3) *mat.Dense {
	return Dense(Skew(v))
}

// BlockRotation writes the 6×6 matrix diag(R, R) into dst. It rotates the
// linear and angular parts of a stacked screw together.
func BlockRotation(dst *mat.Dense, r mgl64.Mat3) {
	dst.Zero()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, r.At(i, j))
			dst.Set(i+3, j+3, r.At(i, j))
		}
	}
}

// VecDense copies a screw into a 6-element gonum vector.
func (s Screw) VecDense() *mat.VecDense {
	return mat.NewVecDense(6, s.Slice())
}

// ScrewFromVector reads a screw from v[off:off+6].
func ScrewFromVector(v mat.Vector, off int) Screw {
	var c [6]float64
	for i := range c {
		c[i] = v.AtVec(off + i)
	}
	return ScrewFromSlice(c[:])
}
