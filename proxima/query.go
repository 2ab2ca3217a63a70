package proxima

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/proximity/proximity"
	"go.viam.com/proximity/spatialmath"
	"go.viam.com/proximity/utils"
)

// QueryOptions selects the pairs of a cache query and how their outputs are computed.
type QueryOptions struct {
	Mode  proximity.QueryMode
	Skips *proximity.SkipMask
	// Interpolation blends the bounds: 0 trusts the lower bound, 1 the upper bound.
	Interpolation float64
	// Cutoff drops pairs whose lower bound is above it.
	Cutoff float64
	// Averages, when set, normalizes outputs by the pair's average distance.
	Averages mat.Matrix
	Parallel bool
	// BroadPhase, when set, prunes pairs whose bounding volumes are farther apart than Cutoff
	// before any cache element is read.
	BroadPhase proximity.BVHVolume
}

// Query returns the output of every selected pair whose lower bound is within the cutoff.
// Outputs keep pair order.
func (c *Cache) Query(ctx context.Context, posesA, posesB []spatialmath.Pose, opts QueryOptions) (Outputs, error) {
	pairs, err := c.selectPairs(posesA, posesB, opts)
	if err != nil {
		return nil, err
	}

	outs := make(Outputs, len(pairs))
	kept := make([]bool, len(pairs))
	approximate := func(k int) {
		p := pairs[k]
		outs[k], kept[k] = c.Approximate(p.I, p.J, posesA[p.I], posesB[p.J], opts.Interpolation, opts.Cutoff)
	}
	if opts.Parallel {
		group, ctx := errgroup.WithContext(ctx)
		group.SetLimit(utils.ParallelFactor)
		for k := range pairs {
			group.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				approximate(k)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
	} else {
		for k := range pairs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			approximate(k)
		}
	}

	res := make(Outputs, 0, len(outs))
	for k, o := range outs {
		if kept[k] {
			res = append(res, o)
		}
	}
	if opts.Averages != nil {
		res = res.Normalized(opts.Averages)
	}
	return res, nil
}

func (c *Cache) selectPairs(posesA, posesB []spatialmath.Pose, opts QueryOptions) ([]proximity.Pair, error) {
	a := proximity.Group{Shapes: c.shapesA, Poses: posesA}
	b := proximity.Group{Shapes: c.shapesB, Poses: posesB}
	if err := proximity.ValidateQuery(a, b, proximity.Options{Mode: opts.Mode, Skips: opts.Skips}); err != nil {
		return nil, err
	}
	mode := opts.Mode
	if opts.BroadPhase != "" && !math.IsInf(opts.Cutoff, 1) {
		var err error
		if mode, err = proximity.Prune(mode, a, b, opts.BroadPhase, opts.Cutoff); err != nil {
			return nil, err
		}
	}
	return proximity.VisitedPairs(a, b, proximity.Options{Mode: mode, Skips: opts.Skips}), nil
}
