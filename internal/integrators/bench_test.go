package integrators

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/spatial"
)

func benchBodies(b *testing.B, n int) []*dynamo.RigidBody {
	b.Helper()
	bodies := make([]*dynamo.RigidBody, n)
	for i := range bodies {
		body, err := dynamo.NewRigidBody(dynamo.BodyDescriptor{
			Mass:     1,
			Inertia:  mgl64.Diag3(mgl64.Vec3{0.1, 0.2, 0.3}),
			Pose:     spatial.Translation(mgl64.Vec3{float64(i), 0, 0}),
			Velocity: spatial.NewScrew(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0.3, 0.1, 2}),
		})
		if err != nil {
			b.Fatal(err)
		}
		body.Acceleration = spatial.NewScrew(mgl64.Vec3{0, 0, -9.8}, mgl64.Vec3{})
		bodies[i] = body
	}
	return bodies
}

func BenchmarkSemiImplicitEuler(b *testing.B) {
	integrator := NewSemiImplicitEuler(8, 0)
	bodies := benchBodies(b, 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Advance(bodies, 0.01)
	}
}

func BenchmarkExplicitEuler(b *testing.B) {
	integrator := NewExplicitEuler(8, 0)
	bodies := benchBodies(b, 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Advance(bodies, 0.01)
	}
}

func BenchmarkLeapfrog(b *testing.B) {
	integrator := NewLeapfrog(8, 0)
	bodies := benchBodies(b, 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Advance(bodies, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4(8, 0)
	bodies := benchBodies(b, 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Advance(bodies, 0.01)
	}
}
