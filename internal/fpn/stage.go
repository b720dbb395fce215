package fpn

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// Stage is one named tape evaluation of a gradient pass.
type Stage int

// Stages in execution order. ModeExplicit skips StageResidualVJP, StageJVP and
// StageSolve.
const (
	StageIdle Stage = iota
	// StageForward records Qd = Encode(d), Tu = Apply(u*, Qd) and the loss.
	StageForward
	// StageLossVJP evaluates g = dl/dTu and detaches it.
	StageLossVJP
	// StageResidualVJP builds the adjoint residual U(x) = x - Jᵀx.
	StageResidualVJP
	// StageJVP forms rhs = Uᵀg = g - J·g.
	StageJVP
	// StageSolve runs CG on A(x) = Uᵀ(U x) + λx.
	StageSolve
	// StageBackward seeds Tu with the solve result and collects parameter gradients.
	StageBackward
	// StageReleased: both tapes are cleared.
	StageReleased
)

var stageNames = [...]string{
	StageIdle:        "idle",
	StageForward:     "forward",
	StageLossVJP:     "vjp-loss",
	StageResidualVJP: "vjp-residual",
	StageJVP:         "jvp",
	StageSolve:       "solve",
	StageBackward:    "backward",
	StageReleased:    "released",
}

// String returns the stage name.
func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// transitions lists the legal successors of each stage. Release is legal from
// any stage and is not listed.
var transitions = map[Stage][]Stage{
	StageIdle:        {StageForward},
	StageForward:     {StageLossVJP},
	StageLossVJP:     {StageResidualVJP, StageBackward},
	StageResidualVJP: {StageJVP},
	StageJVP:         {StageSolve},
	StageSolve:       {StageBackward},
}

// stageMachine enforces the order of tape evaluations within one pass.
type stageMachine struct {
	current Stage
	trace   []Stage
}

// advance moves to next, panicking on an illegal transition.
func (m *stageMachine) advance(next Stage) {
	for _, s := range transitions[m.current] {
		if s == next {
			m.current = next
			m.trace = append(m.trace, next)
			return
		}
	}
	exceptions.Panicf("fpn: illegal gradient stage transition %s -> %s", m.current, next)
}

// release moves to StageReleased; it reports false if already released.
func (m *stageMachine) release() bool {
	if m.current == StageReleased {
		return false
	}
	m.current = StageReleased
	m.trace = append(m.trace, StageReleased)
	return true
}
