package proxima

import (
	"github.com/pkg/errors"

	"go.viam.com/proximity/config"
	"go.viam.com/proximity/logging"
	"go.viam.com/proximity/narrowphase"
	"go.viam.com/proximity/proximity"
)

// ModeFromConfig converts a configured query mode.
func ModeFromConfig(mode string) (proximity.QueryMode, error) {
	switch mode {
	case config.QueryModeAll:
		return proximity.AllPairs, nil
	case config.QueryModeSkipSymmetric:
		return proximity.SkipSymmetric, nil
	default:
		return proximity.QueryMode{}, errors.Errorf("unknown query mode %q", mode)
	}
}

func solverFromConfig(conf *config.QueryConfig) narrowphase.Solver {
	solver := narrowphase.DefaultSolver()
	if conf.MaxGJKIterations > 0 {
		solver.MaxIterations = conf.MaxGJKIterations
	}
	return solver
}

// CacheConfigFromConfig returns the cache settings of conf.
func CacheConfigFromConfig(conf *config.QueryConfig, skips *proximity.SkipMask, logger logging.Logger) (CacheConfig, error) {
	mode, err := ModeFromConfig(conf.QueryMode)
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{Mode: mode, Skips: skips, Solver: solverFromConfig(conf), Logger: logger}, nil
}

// ParamsFromConfig returns the refinement parameters of conf.
func ParamsFromConfig(conf *config.QueryConfig, skips *proximity.SkipMask) (Params, error) {
	if err := conf.Validate("query"); err != nil {
		return Params{}, err
	}
	mode, err := ModeFromConfig(conf.QueryMode)
	if err != nil {
		return Params{}, err
	}
	budget := NewAccuracyBudget(conf.Budget.Accuracy)
	if conf.Budget.Type == config.BudgetTime {
		budget = NewTimeBudget(conf.Budget.Duration())
	}
	return Params{
		QueryOptions: QueryOptions{
			Mode:          mode,
			Skips:         skips,
			Interpolation: conf.Interpolation,
			Cutoff:        conf.CutoffDistance,
			Parallel:      conf.Parallel,
			BroadPhase:    proximity.BVHVolume(conf.BVHVolume),
		},
		Loss:   HingeLoss{Threshold: conf.LossThreshold},
		PNorm:  conf.PNorm,
		Budget: budget,
	}, nil
}
