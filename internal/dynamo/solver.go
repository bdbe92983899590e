package dynamo

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/mbsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

// Solver owns the bodies and constraints of one simulation and advances them
// one step at a time. Bodies and constraints live in dense arenas: a body's
// index is its column block in the assembled system, a constraint's index
// selects its row offset.
type Solver struct {
	bodies      []*RigidBody
	constraints []*Constraint
	rowOffset   []int
	nc          int

	integrator Integrator
	opts       Options
	logger     *slog.Logger
	views      []View

	step     int
	time     float64
	warnings []DriftWarning

	asm       Assembly
	mInv      *mat.Dense
	blocks    []*mat.Dense
	invBlocks []*mat.Dense
	work      *mat.Dense
	lambda    *mat.VecDense
	accel     *mat.VecDense
	solved    bool
	saved     []bodyState
}

type bodyState struct {
	pose     spatial.Pose
	velocity spatial.Screw
	accel    spatial.Screw
}

// NewSolver validates the descriptors and builds the body and constraint
// arenas. All configuration errors are reported here.
func NewSolver(bodies []BodyDescriptor, constraints []ConstraintDescriptor, integ Integrator, opts Options) (*Solver, error) {
	if integ == nil {
		return nil, configError("solver", -1, "integrator is required")
	}
	if len(bodies) == 0 {
		return nil, configError("solver", -1, "no bodies")
	}
	if opts.MaxCond <= 0 {
		opts.MaxCond = DefaultOptions().MaxCond
	}

	s := &Solver{
		integrator: integ,
		opts:       opts,
		logger:     opts.Logger,
	}
	if s.logger == nil {
		s.logger = discardLogger()
	}

	for i, d := range bodies {
		b, err := newRigidBody(d, i)
		if err != nil {
			return nil, err
		}
		s.bodies = append(s.bodies, b)
	}

	for i, d := range constraints {
		c, err := newConstraint(d, i, s.bodies)
		if err != nil {
			return nil, err
		}
		s.constraints = append(s.constraints, c)
		s.rowOffset = append(s.rowOffset, s.nc)
		s.nc += c.Rank()
	}

	s.allocate()
	return s, nil
}

func (s *Solver) allocate() {
	n := 6 * len(s.bodies)
	s.asm = Assembly{
		M: mat.NewDense(n, n, nil),
		S: mat.NewVecDense(n, nil),
		K: mat.NewVecDense(n, nil),
	}
	if s.nc > 0 {
		s.asm.G = mat.NewDense(s.nc, n, nil)
		s.asm.H = mat.NewVecDense(s.nc, nil)
		s.lambda = mat.NewVecDense(s.nc, nil)
	}
	s.mInv = mat.NewDense(n, n, nil)
	s.accel = mat.NewVecDense(n, nil)
	s.work = mat.NewDense(6, 6, nil)
	for range s.bodies {
		s.blocks = append(s.blocks, mat.NewDense(6, 6, nil))
		s.invBlocks = append(s.invBlocks, mat.NewDense(6, 6, nil))
	}
}

// Step advances the system by dt. On error no body is modified.
func (s *Solver) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return configError("step", s.step, "dt must be positive and finite, got %g", dt)
	}

	if err := s.evaluate(); err != nil {
		s.logger.Error("constraint solve failed", "step", s.step, "t", s.time, "err", err)
		return err
	}
	s.checkDrift()

	if staged, ok := s.integrator.(StagedIntegrator); ok {
		s.save()
		if err := staged.AdvanceStaged(s.bodies, dt, s.evaluate); err != nil {
			s.restore()
			s.logger.Error("intermediate constraint solve failed", "step", s.step, "t", s.time, "err", err)
			return err
		}
	} else {
		s.integrator.Advance(s.bodies, dt)
	}

	s.step++
	s.time += dt
	return nil
}

// evaluate assembles and solves the system at the current state and hands
// the accelerations to the bodies. Bodies are untouched on error.
func (s *Solver) evaluate() error {
	s.assemble()
	if err := s.solve(); err != nil {
		return err
	}
	for i, b := range s.bodies {
		b.Acceleration = spatial.ScrewFromVector(s.accel, 6*i)
	}
	return nil
}

func (s *Solver) save() {
	s.saved = s.saved[:0]
	for _, b := range s.bodies {
		s.saved = append(s.saved, bodyState{b.Pose, b.Velocity, b.Acceleration})
	}
}

func (s *Solver) restore() {
	for i, b := range s.bodies {
		st := s.saved[i]
		b.Pose, b.Velocity, b.Acceleration = st.pose, st.velocity, st.accel
	}
}

// assemble rebuilds M, G, h, S and K from the current body state.
func (s *Solver) assemble() {
	a := &s.asm
	a.M.Zero()
	s.mInv.Zero()

	for i, b := range s.bodies {
		b.worldMass(s.blocks[i], s.invBlocks[i], s.work)
		a.M.Slice(6*i, 6*i+6, 6*i, 6*i+6).(*mat.Dense).Copy(s.blocks[i])
		s.mInv.Slice(6*i, 6*i+6, 6*i, 6*i+6).(*mat.Dense).Copy(s.invBlocks[i])

		setScrew(a.S, 6*i, b.GravityForce(s.opts.Gravity))
		setScrew(a.K, 6*i, b.InertiaForce())
	}

	if s.nc == 0 {
		return
	}
	a.G.Zero()
	for j, c := range s.constraints {
		c.update(s.bodies)
		row, rank := s.rowOffset[j], c.Rank()

		h := a.H.SliceVec(row, row+rank).(*mat.VecDense)
		h.CopyVec(c.bias)
		for _, conn := range c.Connections {
			col := 6 * conn.Body
			a.G.Slice(row, row+rank, col, col+6).(*mat.Dense).Copy(conn.jacobian)
			h.AddVec(h, conn.coupling)
		}
	}
}

func setScrew(v *mat.VecDense, off int, sc spatial.Screw) {
	for k, x := range sc.Slice() {
		v.SetVec(off+k, x)
	}
}

// solve computes λ from (G·M⁻¹·Gᵀ)·λ = −G·M⁻¹·(S+K) − h and then the
// accelerations a = M⁻¹·(S+K+Gᵀ·λ).
func (s *Solver) solve() error {
	a := &s.asm
	var f mat.VecDense
	f.AddVec(a.S, a.K)

	s.solved = false
	if s.nc > 0 {
		var minvGt mat.Dense
		s.mulInvMass(&minvGt, mat.DenseCopyOf(a.G.T()))

		var schur mat.Dense
		schur.Mul(a.G, &minvGt)
		sym := mat.NewSymDense(s.nc, nil)
		for i := 0; i < s.nc; i++ {
			for j := i; j < s.nc; j++ {
				sym.SetSym(i, j, 0.5*(schur.At(i, j)+schur.At(j, i)))
			}
		}

		var minvF, rhs mat.VecDense
		s.mulInvMassVec(&minvF, &f)
		rhs.MulVec(a.G, &minvF)
		rhs.AddVec(&rhs, a.H)
		rhs.ScaleVec(-1, &rhs)

		var chol mat.Cholesky
		if ok := chol.Factorize(sym); !ok {
			return &SingularSystemError{Step: s.step, Time: s.time, Cond: math.Inf(1)}
		}
		if cond := chol.Cond(); !(cond <= s.opts.MaxCond) {
			return &SingularSystemError{Step: s.step, Time: s.time, Cond: cond}
		}
		if err := chol.SolveVecTo(s.lambda, &rhs); err != nil {
			return &SingularSystemError{Step: s.step, Time: s.time, Cond: chol.Cond()}
		}

		var reaction mat.VecDense
		reaction.MulVec(a.G.T(), s.lambda)
		f.AddVec(&f, &reaction)
	}

	s.mulInvMassVec(s.accel, &f)
	s.solved = true
	return nil
}

// mulInvMass sets dst = M⁻¹·src one 6-row body block at a time.
func (s *Solver) mulInvMass(dst, src *mat.Dense) {
	r, c := src.Dims()
	if dst.IsEmpty() {
		dst.ReuseAs(r, c)
	}
	var blk mat.Dense
	for i := range s.bodies {
		blk.Reset()
		blk.Mul(s.invBlocks[i], src.Slice(6*i, 6*i+6, 0, c))
		dst.Slice(6*i, 6*i+6, 0, c).(*mat.Dense).Copy(&blk)
	}
}

func (s *Solver) mulInvMassVec(dst *mat.VecDense, src *mat.VecDense) {
	if dst.IsEmpty() {
		dst.ReuseAsVec(src.Len())
	}
	var blk mat.VecDense
	for i := range s.bodies {
		blk.Reset()
		blk.MulVec(s.invBlocks[i], src.SliceVec(6*i, 6*i+6))
		dst.SliceVec(6*i, 6*i+6).(*mat.VecDense).CopyVec(&blk)
	}
}

func (s *Solver) checkDrift() {
	s.warnings = s.warnings[:0]
	if s.opts.DriftThreshold <= 0 {
		return
	}
	for j, c := range s.constraints {
		pos, vel := c.errorNorms()
		if pos <= s.opts.DriftThreshold && vel <= s.opts.DriftThreshold {
			continue
		}
		w := DriftWarning{Constraint: j, Step: s.step, Time: s.time, Position: pos, Velocity: vel}
		s.warnings = append(s.warnings, w)
		s.logger.Warn("constraint drift", "constraint", j, "step", s.step, "position", pos, "velocity", vel)
	}
}

// AddView registers a collaborator refreshed by UpdateViews.
func (s *Solver) AddView(v View) { s.views = append(s.views, v) }

// UpdateViews hands the current body state to every registered view.
func (s *Solver) UpdateViews() {
	for _, v := range s.views {
		v.OnStep(s.bodies, s.time)
	}
}

func (s *Solver) String() string {
	return fmt.Sprintf("solver(%d bodies, %d constraints, %d rows)", len(s.bodies), len(s.constraints), s.nc)
}
