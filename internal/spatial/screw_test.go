package spatial

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestScrew_Arithmetic(t *testing.T) {
	a := NewScrew(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{4, 5, 6})
	b := NewScrew(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{2, 2, 2})

	if got := a.Add(b); got != NewScrew(mgl64.Vec3{2, 3, 4}, mgl64.Vec3{6, 7, 8}) {
		t.Errorf("Add failed: got %v", got)
	}
	if got := a.Sub(b); got != NewScrew(mgl64.Vec3{0, 1, 2}, mgl64.Vec3{2, 3, 4}) {
		t.Errorf("Sub failed: got %v", got)
	}
	if got := b.Scale(2); got != NewScrew(mgl64.Vec3{2, 2, 2}, mgl64.Vec3{4, 4, 4}) {
		t.Errorf("Scale failed: got %v", got)
	}
	if got := a.Dot(b); got != 1+2+3+8+10+12 {
		t.Errorf("Dot = %v, want 36", got)
	}
}

func TestScrew_Carry(t *testing.T) {
	tests := []struct {
		name string
		s    Screw
		r    mgl64.Vec3
		want mgl64.Vec3
	}{
		{"pure translation", NewScrew(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}), mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0}},
		{"spin about z", NewScrew(mgl64.Vec3{}, mgl64.Vec3{0, 0, 2}), mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 2, 0}},
		{"combined", NewScrew(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}), mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.s.Carry(tt.r)
			if !Near(got.Linear, tt.want, 1e-12) {
				t.Errorf("Carry linear = %v, want %v", got.Linear, tt.want)
			}
			if got.Angular != tt.s.Angular {
				t.Errorf("Carry changed angular part: %v", got.Angular)
			}
		})
	}
}

func TestScrew_SliceRoundTrip(t *testing.T) {
	s := NewScrew(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{4, 5, 6})
	if got := ScrewFromSlice(s.Slice()); got != s {
		t.Errorf("ScrewFromSlice(Slice()) = %v, want %v", got, s)
	}
	if got := ScrewFromVector(s.VecDense(), 0); got != s {
		t.Errorf("ScrewFromVector = %v, want %v", got, s)
	}
}

func TestExpLog(t *testing.T) {
	tests := []struct {
		name string
		s    Screw
	}{
		{"zero", Screw{}},
		{"translation only", NewScrew(mgl64.Vec3{0.3, -0.2, 1}, mgl64.Vec3{})},
		{"small rotation", NewScrew(mgl64.Vec3{}, mgl64.Vec3{1e-12, 0, 0})},
		{"quarter turn", NewScrew(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, math.Pi / 2})},
		{"oblique", NewScrew(mgl64.Vec3{0, 1, 2}, mgl64.Vec3{0.3, -0.4, 0.5})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Log(Exp(tt.s))
			if !got.ApproxEqual(tt.s, 1e-12) {
				t.Errorf("Log(Exp(s)) = %v, want %v", got, tt.s)
			}
		})
	}
}

func TestRotationVector_ShortArc(t *testing.T) {
	q := mgl64.QuatRotate(math.Pi/3, mgl64.Vec3{0, 1, 0}).Scale(-1)
	got := RotationVector(q)
	want := mgl64.Vec3{0, math.Pi / 3, 0}
	if !Near(got, want, 1e-12) {
		t.Errorf("RotationVector(-q) = %v, want %v", got, want)
	}
}

func TestPose_InverseAndMul(t *testing.T) {
	p := NewPose(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(0.7, mgl64.Vec3{1, 1, 0}.Normalize()))

	if got := p.Mul(p.Inverse()); !got.ApproxEqual(Identity(), 1e-12) {
		t.Errorf("p·p⁻¹ = %+v, want identity", got)
	}

	point := mgl64.Vec3{-1, 0.5, 2}
	if got := p.Inverse().Apply(p.Apply(point)); !Near(got, point, 1e-12) {
		t.Errorf("p⁻¹(p(x)) = %v, want %v", got, point)
	}

	o := Translation(mgl64.Vec3{0, 0, 1})
	if got, want := p.Mul(o).Apply(point), p.Apply(o.Apply(point)); !Near(got, want, 1e-12) {
		t.Errorf("(p·o)(x) = %v, want %v", got, want)
	}
}

func TestPose_ZeroValueNormalizes(t *testing.T) {
	var p Pose
	if got := p.Normalized().Rotation; got != mgl64.QuatIdent() {
		t.Errorf("zero pose rotation normalized to %v, want identity", got)
	}
}

func TestPose_Integrate(t *testing.T) {
	p := Identity()
	v := NewScrew(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, math.Pi})

	got := p.Integrate(v, 0.5)

	if !Near(got.Position, mgl64.Vec3{0.5, 0, 0}, 1e-12) {
		t.Errorf("position = %v, want (0.5, 0, 0)", got.Position)
	}
	rotated := got.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
	if !Near(rotated, mgl64.Vec3{0, 1, 0}, 1e-12) {
		t.Errorf("x axis rotated to %v, want (0, 1, 0)", rotated)
	}
}

func TestSkew(t *testing.T) {
	v := mgl64.Vec3{1, -2, 3}
	u := mgl64.Vec3{0.5, 4, -1}
	if got, want := Skew(v).Mul3x1(u), v.Cross(u); !Near(got, want, 1e-12) {
		t.Errorf("Skew(v)·u = %v, want %v", got, want)
	}

	d := SkewDense(v)
	if d.At(0, 1) != -3 || d.At(1, 0) != 3 || d.At(2, 0) != 2 {
		t.Errorf("SkewDense layout wrong: %v", d)
	}
}

func TestApproxEqual_AbsoluteNearZero(t *testing.T) {
	noise := mgl64.Vec3{-2.2e-16, 2.2e-16, 0}
	if !Near(noise, mgl64.Vec3{}, 1e-12) {
		t.Error("rounding noise should be near zero")
	}
	if Near(mgl64.Vec3{1e-6, 0, 0}, mgl64.Vec3{}, 1e-12) {
		t.Error("1e-6 should not be within 1e-12")
	}
	if !Translation(noise).ApproxEqual(Identity(), 1e-12) {
		t.Error("pose with rounding noise should equal identity")
	}
	if !NewScrew(noise, noise).ApproxEqual(Screw{}, 1e-12) {
		t.Error("screw with rounding noise should equal zero")
	}
}
