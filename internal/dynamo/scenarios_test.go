package dynamo_test

import (
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/integrators"
	"github.com/san-kum/mbsim/internal/spatial"
)

var _ = Describe("Solver", func() {
	var (
		bodies []dynamo.BodyDescriptor
		cons   []dynamo.ConstraintDescriptor
		opts   dynamo.Options
		solver *dynamo.Solver
	)

	build := func() {
		var err error
		solver, err = dynamo.NewSolver(bodies, cons, integrators.NewSemiImplicitEuler(8, 0), opts)
		Expect(err).NotTo(HaveOccurred())
	}

	run := func(steps int, dt float64) {
		for i := 0; i < steps; i++ {
			Expect(solver.Step(dt)).To(Succeed())
		}
	}

	BeforeEach(func() {
		opts = dynamo.DefaultOptions()
		opts.Gravity = mgl64.Vec3{}
		cons = nil
	})

	Context("with a displaced ball joint between two bodies", func() {
		const T = 0.1

		BeforeEach(func() {
			bodies = []dynamo.BodyDescriptor{
				{Mass: 1, Inertia: mgl64.Diag3(mgl64.Vec3{0.1, 0.1, 0.1}), Pose: spatial.Identity()},
				{Mass: 1, Inertia: mgl64.Diag3(mgl64.Vec3{0.1, 0.1, 0.1}), Pose: spatial.Translation(mgl64.Vec3{1.1, 0, 0})},
			}
			cons = []dynamo.ConstraintDescriptor{{
				Kind:        dynamo.Spherical,
				Bodies:      []int{0, 1},
				Attachments: []spatial.Pose{spatial.Translation(mgl64.Vec3{0.5, 0, 0}), spatial.Translation(mgl64.Vec3{-0.5, 0, 0})},
				T:           T,
				Zeta:        1,
			}}
			build()
		})

		It("decays the position error on the stabilization time scale", func() {
			solver.Assemble()
			e0, _ := solver.ConstraintError(0)
			Expect(e0).To(BeNumerically("~", 0.1, 1e-9))

			run(50, 0.01)
			solver.Assemble()
			e5, _ := solver.ConstraintError(0)
			Expect(e5).To(BeNumerically("<", 0.1*e0))

			run(150, 0.01)
			solver.Assemble()
			e20, _ := solver.ConstraintError(0)
			Expect(e20).To(BeNumerically("<", 1e-4*e0))
		})

		It("pulls both bodies together symmetrically", func() {
			run(200, 0.01)

			a, b := solver.Body(0), solver.Body(1)
			Expect(a.Pose.Position[0]).To(BeNumerically("~", 0.05, 1e-4))
			Expect(b.Pose.Position[0]).To(BeNumerically("~", 1.05, 1e-4))
			Expect(a.Pose.Position[0] + b.Pose.Position[0]).To(BeNumerically("~", 1.1, 1e-9))
		})

		It("keeps the orientation when the reaction passes through the centres of mass", func() {
			run(20, 0.01)

			for _, b := range solver.Bodies() {
				Expect(b.Pose.Rotation.OrientationEqualThreshold(mgl64.QuatIdent(), 1e-12)).To(BeTrue())
			}
		})
	})

	Context("with a redundant joint pair", func() {
		BeforeEach(func() {
			bodies = []dynamo.BodyDescriptor{
				{Mass: 2, Inertia: mgl64.Diag3(mgl64.Vec3{0.2, 0.3, 0.4}), Pose: spatial.Translation(mgl64.Vec3{0, 0, -1})},
			}
			joint := dynamo.ConstraintDescriptor{
				Kind:        dynamo.Spherical,
				Bodies:      []int{0},
				Attachments: []spatial.Pose{spatial.Translation(mgl64.Vec3{0, 0, 1})},
				T:           0.1,
				Zeta:        1,
			}
			cons = []dynamo.ConstraintDescriptor{joint, joint}
			opts.Gravity = mgl64.Vec3{0, 0, -9.8}
			build()
		})

		It("reports a singular system and leaves the bodies untouched", func() {
			before := *solver.Body(0)

			err := solver.Step(0.01)
			Expect(err).To(MatchError(dynamo.ErrSingularSystem))
			Expect(solver.Body(0).Pose).To(Equal(before.Pose))
			Expect(solver.Body(0).Velocity).To(Equal(before.Velocity))
			Expect(solver.Steps()).To(BeZero())
		})
	})

	Context("with a free asymmetric body", func() {
		BeforeEach(func() {
			bodies = []dynamo.BodyDescriptor{{
				Mass:     1,
				Inertia:  mgl64.Diag3(mgl64.Vec3{1, 2, 3}),
				Pose:     spatial.Identity(),
				Velocity: spatial.NewScrew(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 3}),
			}}
			build()
		})

		It("approximately conserves angular momentum", func() {
			momentum := func() mgl64.Vec3 {
				b := solver.Body(0)
				return b.InertiaWorld().Mul3x1(b.Velocity.Angular)
			}
			l0 := momentum()

			run(1000, 0.001)

			drift := momentum().Sub(l0).Len() / l0.Len()
			Expect(drift).To(BeNumerically("<", 1e-2))
		})
	})

	Context("with a hanging weld", func() {
		BeforeEach(func() {
			opts.Gravity = mgl64.Vec3{0, 0, -9.8}
			bodies = []dynamo.BodyDescriptor{
				{Mass: 3, Inertia: mgl64.Diag3(mgl64.Vec3{0.5, 0.5, 0.5}), Pose: spatial.Translation(mgl64.Vec3{0, 0, -1})},
			}
			cons = []dynamo.ConstraintDescriptor{{
				Kind:        dynamo.Weld,
				Bodies:      []int{0},
				Attachments: []spatial.Pose{spatial.Translation(mgl64.Vec3{0, 0, 1})},
				T:           0.05,
				Zeta:        1,
			}}
			build()
		})

		It("carries the weight in the reaction", func() {
			run(10, 0.01)

			f := solver.ReactionForces(0)
			Expect(f).To(HaveLen(1))
			Expect(f[0].Linear[2]).To(BeNumerically("~", 3*9.8, 1e-6))
			Expect(f[0].Angular.Len()).To(BeNumerically("<", 1e-6))
			Expect(solver.Body(0).Pose.Position[2]).To(BeNumerically("~", -1, 1e-9))
		})
	})
})
