// Package dynamo provides the constrained multibody dynamics core.
//
// The package solves Newton-Euler dynamics for rigid bodies joined by
// kinematic constraints:
//
//   - [RigidBody]: pose, velocity and constant body-frame mass matrix
//   - [Constraint]: a joint with one or two [Connection]s
//   - [JointKind]: the closed set of joint types (spherical, weld)
//   - [Solver]: assembles and solves the constrained system each step
//   - [Integrator]: advances bodies from the solved accelerations
//
// # Step
//
// Each call to [Solver.Step] assembles the block-diagonal mass matrix M, the
// constraint Jacobian G, the bias vector h and the force vectors S (external)
// and K (inertial), solves the Schur complement
//
//	G·M⁻¹·Gᵀ·λ = −G·M⁻¹·(S+K) − h
//
// for the constraint multipliers λ, recovers the accelerations
// a = M⁻¹·(S+K+Gᵀ·λ) and hands them to the integrator. Constraint drift is
// fed back through h with Baumgarte stabilization. A [StagedIntegrator]
// gets an [Evaluator] that repeats the solve at its intermediate states.
//
// # Example
//
//	integ := integrators.NewSemiImplicitEuler(8, 0)
//	s, err := dynamo.NewSolver(bodies, joints, integ, dynamo.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	for i := 0; i < steps; i++ {
//	    if err := s.Step(0.01); err != nil {
//	        return err
//	    }
//	    s.UpdateViews()
//	}
//
// # Thread Safety
//
// A Solver and its bodies are NOT safe for concurrent use. Independent
// simulations must each own a separate Solver.
package dynamo
