package dynamo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

// ConstraintDescriptor is the setup-time description of a joint.
//
// Bodies and Attachments run in parallel: Attachments[i] is the joint frame
// relative to Bodies[i]. With a single body the joint is anchored to the
// world at Reference; a nil Reference anchors it where the attachment frame
// starts. T is the stabilization time constant, Zeta the damping ratio.
type ConstraintDescriptor struct {
	Kind        JointKind
	Bodies      []int
	Attachments []spatial.Pose
	Reference   *spatial.Pose
	T           float64
	Zeta        float64
}

// Connection is one body's side of a constraint.
type Connection struct {
	// Body is the index of the connected body in the solver.
	Body       int
	Attachment spatial.Pose
	// Mul is +1 for the first connection and -1 for the second.
	Mul float64

	radius   mgl64.Vec3
	jacobian *mat.Dense
	coupling *mat.VecDense
}

// Radius is the world-frame offset from the body's centre of mass to the
// attachment point, as of the last update.
func (c *Connection) Radius() mgl64.Vec3 { return c.radius }

// Jacobian returns the last computed rank×6 Jacobian block.
func (c *Connection) Jacobian() mat.Matrix { return c.jacobian }

// update recomputes the Jacobian block mul·[D_lin, D_ang − D_lin·[r]×] and the
// velocity coupling term mul·D_lin·(ω × (ω × r)).
func (c *Connection) update(body *RigidBody, dirs *mat.Dense) {
	rank, _ := dirs.Dims()
	c.radius = body.Pose.Rotation.Rotate(c.Attachment.Position)

	dLin := dirs.Slice(0, rank, 0, 3)
	dAng := dirs.Slice(0, rank, 3, 6)

	var ang mat.Dense
	ang.Mul(dLin, spatial.SkewDense(c.radius))
	ang.Sub(dAng, &ang)

	jLin := c.jacobian.Slice(0, rank, 0, 3).(*mat.Dense)
	jAng := c.jacobian.Slice(0, rank, 3, 6).(*mat.Dense)
	jLin.Scale(c.Mul, dLin)
	jAng.Scale(c.Mul, &ang)

	w := body.Velocity.Angular
	centripetal := w.Cross(w.Cross(c.radius))
	c.coupling.MulVec(dLin, mat.NewVecDense(3, centripetal[:]))
	c.coupling.ScaleVec(c.Mul, c.coupling)
}

// Constraint is a joint between one body and the world, or between two
// bodies. Only its topology is persistent; everything else is recomputed from
// the bodies each step.
type Constraint struct {
	Kind        JointKind
	Connections []*Connection
	Reference   spatial.Pose

	directions *mat.Dense
	kp, kd     float64

	posErr *mat.VecDense
	velErr *mat.VecDense
	bias   *mat.VecDense
}

func newConstraint(d ConstraintDescriptor, index int, bodies []*RigidBody) (*Constraint, error) {
	if !d.Kind.Valid() {
		return nil, configError("constraint", index, "unknown joint kind %d", int(d.Kind))
	}
	n := len(d.Bodies)
	if n == 0 || n > 2 {
		return nil, configError("constraint", index, "needs 1 or 2 connections, got %d", n)
	}
	if len(d.Attachments) != n {
		return nil, configError("constraint", index, "%d attachments for %d bodies", len(d.Attachments), n)
	}
	if n == 2 && d.Bodies[0] == d.Bodies[1] {
		return nil, configError("constraint", index, "both connections on body %d", d.Bodies[0])
	}
	if !(d.T > 0) || math.IsInf(d.T, 0) {
		return nil, configError("constraint", index, "stabilization time constant must be positive, got %g", d.T)
	}
	if d.Zeta < 0 || math.IsNaN(d.Zeta) {
		return nil, configError("constraint", index, "damping ratio must be non-negative, got %g", d.Zeta)
	}

	rank := d.Kind.Rank()
	c := &Constraint{
		Kind:       d.Kind,
		directions: d.Kind.Directions(),
		kp:         -1 / (d.T * d.T),
		kd:         -2 * d.Zeta / d.T,
		posErr:     mat.NewVecDense(rank, nil),
		velErr:     mat.NewVecDense(rank, nil),
		bias:       mat.NewVecDense(rank, nil),
	}

	for i, bi := range d.Bodies {
		if bi < 0 || bi >= len(bodies) {
			return nil, configError("constraint", index, "body index %d out of range [0, %d)", bi, len(bodies))
		}
		mul := 1.0
		if i == 1 {
			mul = -1
		}
		c.Connections = append(c.Connections, &Connection{
			Body:       bi,
			Attachment: d.Attachments[i].Normalized(),
			Mul:        mul,
			jacobian:   mat.NewDense(rank, 6, nil),
			coupling:   mat.NewVecDense(rank, nil),
		})
	}

	if n == 1 {
		if d.Reference != nil {
			c.Reference = d.Reference.Normalized()
		} else {
			a := c.Connections[0]
			c.Reference = bodies[a.Body].Pose.Mul(a.Attachment)
		}
	}

	return c, nil
}

// Rank is the number of constrained directions.
func (c *Constraint) Rank() int { return c.Kind.Rank() }

// Gains returns the Baumgarte coefficients Kp = −1/T² and Kd = −2ζ/T.
func (c *Constraint) Gains() (kp, kd float64) { return c.kp, c.kd }

// PositionError returns the constrained-direction position error of the last
// update.
func (c *Constraint) PositionError() mat.Vector { return c.posErr }

// VelocityError returns the constrained-direction velocity error of the last
// update.
func (c *Constraint) VelocityError() mat.Vector { return c.velErr }

// Bias returns the Baumgarte term −(ė·Kd) − (e·Kp) of the last update.
func (c *Constraint) Bias() mat.Vector { return c.bias }

// update recomputes the connection blocks, the constraint errors and the
// stabilization bias from the current body state.
func (c *Constraint) update(bodies []*RigidBody) {
	for _, conn := range c.Connections {
		conn.update(bodies[conn.Body], c.directions)
	}

	a := c.Connections[0]
	bodyA := bodies[a.Body]
	frameA := bodyA.Pose.Mul(a.Attachment)
	velA := bodyA.Velocity.Carry(a.radius)

	frameB := c.Reference
	var velB spatial.Screw
	if len(c.Connections) == 2 {
		b := c.Connections[1]
		bodyB := bodies[b.Body]
		frameB = bodyB.Pose.Mul(b.Attachment)
		velB = bodyB.Velocity.Carry(b.radius)
	}

	e := spatial.Log(frameB.Inverse().Mul(frameA)).Rotate(frameB.Rotation)
	edot := velA.Sub(velB)

	c.posErr.MulVec(c.directions, e.VecDense())
	c.velErr.MulVec(c.directions, edot.VecDense())

	// bias = −(ė·Kd) − (e·Kp)
	c.bias.ScaleVec(-c.kd, c.velErr)
	c.bias.AddScaledVec(c.bias, -c.kp, c.posErr)
}

// errorNorms returns the Euclidean norms of the position and velocity errors.
func (c *Constraint) errorNorms() (pos, vel float64) {
	return mat.Norm(c.posErr, 2), mat.Norm(c.velErr, 2)
}
