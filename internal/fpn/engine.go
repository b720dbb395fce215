package fpn

import (
	"github.com/born-ml/fixpoint/internal/autodiff"
	"github.com/born-ml/fixpoint/internal/krylov"
	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/born-ml/fixpoint/internal/tensor"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"
)

// Stats are the per-batch diagnostics of a solve and, when training, of the
// adjoint linear solve.
type Stats struct {
	// Depth is the number of fixed-point iterations, in [0, MaxDepth].
	Depth int

	// Converged is false when the forward iteration hit MaxDepth.
	Converged bool

	// Residual is the last forward step size max_b ||u_b - u_prev_b||.
	Residual float64

	// CGIterations is the number of CG iterations, in [0, MaxCGIter].
	// Zero in ModeExplicit and at inference.
	CGIterations int

	// CGResiduals holds the final per-element CG residual norms.
	CGResiduals []float64

	// CGConverged is false when CG hit MaxCGIter.
	CGConverged bool

	// Matvecs counts adjoint operator applications: CG iterations × batch size.
	Matvecs int
}

// StepResult is the outcome of one training step.
type StepResult struct {
	Stats

	// Loss is the batch loss at Tu = T(u*, Qd).
	Loss float64

	// Prediction is Readout(Tu).
	Prediction *mat.Dense

	// Grads maps each parameter value to its gradient. Parameters the loss
	// does not depend on are absent.
	Grads map[*mat.Dense]*mat.Dense

	// Stages lists the tape evaluations performed, ending with StageReleased.
	Stages []Stage
}

// Inference is the outcome of Engine.Infer.
type Inference struct {
	Stats

	// U is the fixed point.
	U *mat.Dense

	// Prediction is Readout(U).
	Prediction *mat.Dense
}

// Engine trains and evaluates an operator set through its fixed point.
type Engine struct {
	ops    OperatorSet
	loss   nn.Loss
	cfg    Config
	solver *Solver
}

// NewEngine creates an Engine; zero Config fields take defaults.
func NewEngine(ops OperatorSet, loss nn.Loss, cfg Config) *Engine {
	cfg = cfg.WithDefaults()
	return &Engine{
		ops:    ops,
		loss:   loss,
		cfg:    cfg,
		solver: NewSolver(ops, cfg),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Operators returns the operator set.
func (e *Engine) Operators() OperatorSet {
	return e.ops
}

// Step computes the loss and parameter gradients for one batch.
//
// The bounded weights are projected before the forward solve. The returned
// gradients equal those of the loss differentiated through the converged
// iteration (ModeAdjoint), or through the last application only (ModeExplicit).
// Step does not modify parameters.
func (e *Engine) Step(d *mat.Dense, labels []int) (*StepResult, error) {
	sol, err := e.solver.Solve(d, true)
	if err != nil {
		return nil, err
	}

	reg := e.ops.Bounds()
	reg.RLock()
	defer reg.RUnlock()

	p := newGradientPass(e, sol.U)
	defer p.release()

	p.forward(d, labels)
	p.lossVJP()

	res := &StepResult{
		Stats: Stats{
			Depth:       sol.Depth,
			Converged:   sol.Converged,
			Residual:    sol.Residual,
			CGConverged: true,
		},
		Loss:       p.loss.At(0, 0),
		Prediction: p.pred,
	}

	seed := p.g
	if e.cfg.Mode == ModeAdjoint {
		p.residualVJP()
		p.jvp()
		var info krylov.Info
		seed, info = p.solve()
		batch, _ := d.Dims()
		res.CGIterations = info.Iterations
		res.CGResiduals = info.ResidualNorms
		res.CGConverged = info.Converged
		res.Matvecs = info.Iterations * batch
		if !info.Converged {
			klog.V(1).Infof("%s: CG stalled after %d iterations (max residual %.3e)",
				e.ops.Name(), info.Iterations, info.MaxResidual())
		}
	}
	res.Grads = p.backward(seed)

	p.release()
	res.Stages = p.sm.trace
	klog.V(2).Infof("%s: step loss=%.4e depth=%d cg=%d", e.ops.Name(), res.Loss, res.Depth, res.CGIterations)
	return res, nil
}

// Infer solves for the fixed point without projecting or recording.
func (e *Engine) Infer(d *mat.Dense) (*Inference, error) {
	sol, err := e.solver.Solve(d, false)
	if err != nil {
		return nil, err
	}
	reg := e.ops.Bounds()
	reg.RLock()
	defer reg.RUnlock()
	return &Inference{
		Stats: Stats{
			Depth:       sol.Depth,
			Converged:   sol.Converged,
			Residual:    sol.Residual,
			CGConverged: true,
		},
		U:          sol.U,
		Prediction: e.ops.Readout(autodiff.New(), sol.U),
	}, nil
}

// Evaluate is Infer plus the loss of the prediction against labels.
func (e *Engine) Evaluate(d *mat.Dense, labels []int) (float64, *Inference, error) {
	inf, err := e.Infer(d)
	if err != nil {
		return 0, nil, err
	}
	loss := e.loss.Forward(autodiff.New(), inf.Prediction, labels)
	return loss.At(0, 0), inf, nil
}

// gradientPass holds the two tapes of one training step.
//
// The model tape records Qd = Encode(d) and Tu = Apply(u*, Qd); every
// Jacobian product is evaluated against it. The head tape records the readout
// and the loss with Tu as a leaf, so that dl/dTu is a plain gradient.
type gradientPass struct {
	e     *Engine
	sm    stageMachine
	model *autodiff.Backend
	head  *autodiff.Backend

	u, qd, tu  *mat.Dense
	pred, loss *mat.Dense

	headGrads map[*mat.Dense]*mat.Dense
	g         *mat.Dense // dl/dTu, detached
	rhs       *mat.Dense // Uᵀg
	residual  krylov.Operator
}

func newGradientPass(e *Engine, uStar *mat.Dense) *gradientPass {
	return &gradientPass{
		e:     e,
		model: autodiff.New(),
		head:  autodiff.New(),
		u:     tensor.Clone(uStar),
	}
}

func (p *gradientPass) forward(d *mat.Dense, labels []int) {
	p.sm.advance(StageForward)
	ops := p.e.ops

	tape := p.model.Tape()
	tape.StartRecording()
	p.qd = ops.Encode(p.model, d)
	p.tu = ops.Apply(p.model, p.u, p.qd)
	tape.StopRecording()

	head := p.head.Tape()
	head.StartRecording()
	p.pred = ops.Readout(p.head, p.tu)
	p.loss = p.e.loss.Forward(p.head, p.pred, labels)
	head.StopRecording()
}

func (p *gradientPass) lossVJP() {
	p.sm.advance(StageLossVJP)
	p.headGrads = p.head.Backward(p.loss)
	if g, ok := p.headGrads[p.tu]; ok {
		p.g = tensor.Clone(g)
	} else {
		p.g = tensor.ZerosLike(p.tu)
	}
}

// residualVJP binds U(x) = x - Jᵀx with J = ∂Tu/∂u*.
func (p *gradientPass) residualVJP() {
	p.sm.advance(StageResidualVJP)
	tape := p.model.Tape()
	p.residual = func(x *mat.Dense) *mat.Dense {
		var y mat.Dense
		y.Sub(x, tape.VJP(p.tu, x, p.u))
		return &y
	}
}

// adjointTranspose applies Uᵀ(y) = y - J·y.
func (p *gradientPass) adjointTranspose(y *mat.Dense) *mat.Dense {
	var z mat.Dense
	z.Sub(y, p.model.Tape().JVP(p.u, y, p.tu))
	return &z
}

func (p *gradientPass) jvp() {
	p.sm.advance(StageJVP)
	p.rhs = p.adjointTranspose(p.g)
}

// solve runs CG on (UᵀU + λI) w = Uᵀg, whose solution is (I - Jᵀ)⁻¹g up to damping.
func (p *gradientPass) solve() (*mat.Dense, krylov.Info) {
	p.sm.advance(StageSolve)
	lambda := p.e.cfg.Damping
	a := func(x *mat.Dense) *mat.Dense {
		z := p.adjointTranspose(p.residual(x))
		var damped mat.Dense
		damped.Scale(lambda, x)
		z.Add(z, &damped)
		return z
	}
	return krylov.CG(a, p.rhs, krylov.Options{
		TolAbs:  p.e.cfg.CGTolAbs,
		TolRel:  p.e.cfg.CGTolRel,
		MaxIter: p.e.cfg.MaxCGIter,
	})
}

// backward seeds Tu with seed and merges parameter gradients from both tapes.
func (p *gradientPass) backward(seed *mat.Dense) map[*mat.Dense]*mat.Dense {
	p.sm.advance(StageBackward)
	modelGrads := p.model.Tape().BackwardFrom(p.tu, seed)

	grads := make(map[*mat.Dense]*mat.Dense)
	for _, param := range p.e.ops.Parameters() {
		v := param.Value()
		mg, inModel := modelGrads[v]
		hg, inHead := p.headGrads[v]
		switch {
		case inModel && inHead:
			var sum mat.Dense
			sum.Add(mg, hg)
			grads[v] = &sum
		case inModel:
			grads[v] = mg
		case inHead:
			grads[v] = hg
		}
	}
	return grads
}

// release clears both tapes. Safe to call more than once.
func (p *gradientPass) release() {
	if !p.sm.release() {
		return
	}
	p.model.Tape().Clear()
	p.head.Tape().Clear()
	p.headGrads = nil
	p.residual = nil
}
