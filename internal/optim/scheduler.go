package optim

// StepLR multiplies the learning rate by Gamma every StepSize calls to Step.
//
//	lr_epoch = lr_0 * gamma^(epoch / step_size)
type StepLR struct {
	opt      Optimizer
	baseLR   float64
	stepSize int
	gamma    float64
	epoch    int
}

// StepLRConfig holds configuration for StepLR.
type StepLRConfig struct {
	StepSize int     // Epochs between decays (default: 10)
	Gamma    float64 // Multiplicative decay (default: 0.98)
}

// NewStepLR creates a scheduler for opt, starting from its current learning rate.
func NewStepLR(opt Optimizer, config StepLRConfig) *StepLR {
	if config.StepSize <= 0 {
		config.StepSize = 10
	}
	if config.Gamma == 0 {
		config.Gamma = 0.98
	}
	return &StepLR{
		opt:      opt,
		baseLR:   opt.GetLR(),
		stepSize: config.StepSize,
		gamma:    config.Gamma,
	}
}

// Step advances one epoch and updates the optimizer's learning rate.
func (s *StepLR) Step() {
	s.epoch++
	if s.epoch%s.stepSize == 0 {
		s.opt.SetLR(s.opt.GetLR() * s.gamma)
	}
}

// Epoch returns the number of completed Step calls.
func (s *StepLR) Epoch() int {
	return s.epoch
}

// BaseLR returns the learning rate at construction.
func (s *StepLR) BaseLR() float64 {
	return s.baseLR
}
