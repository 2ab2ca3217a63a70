package proxima

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/proximity/logging"
	"go.viam.com/proximity/proximity"
	"go.viam.com/proximity/spatialmath"
)

// BudgetKind selects what limits the refinement loop.
type BudgetKind int

// Budget kinds.
const (
	// TimeBudget stops refining once the wall clock budget is spent.
	TimeBudget BudgetKind = iota
	// AccuracyBudget stops refining once the aggregated bounds are closer than the budget.
	AccuracyBudget
)

// Budget limits how many ground truth checks a refinement may make.
type Budget struct {
	Kind     BudgetKind
	Time     time.Duration
	Accuracy float64
}

// NewTimeBudget returns a budget of d of wall clock time.
func NewTimeBudget(d time.Duration) Budget {
	return Budget{Kind: TimeBudget, Time: d}
}

// NewAccuracyBudget returns a budget that refines until the aggregate value is known within accuracy.
func NewAccuracyBudget(accuracy float64) Budget {
	return Budget{Kind: AccuracyBudget, Accuracy: accuracy}
}

func (b Budget) exhausted(elapsed time.Duration, maxError float64) bool {
	if b.Kind == AccuracyBudget {
		return maxError < b.Accuracy
	}
	return elapsed > b.Time
}

// HingeLoss is zero for distances above Threshold and grows linearly below it.
type HingeLoss struct {
	Threshold float64
}

// Loss returns Threshold - d when d is at most Threshold, and 0 otherwise.
func (l HingeLoss) Loss(d float64) float64 {
	if d <= l.Threshold {
		return l.Threshold - d
	}
	return 0
}

// Params configures a refinement.
type Params struct {
	QueryOptions
	Loss  HingeLoss
	PNorm float64
	// Budget is ignored for intersection checks.
	Budget Budget
	// Frozen returns the cached approximation without any ground truth checks.
	Frozen bool
}

// Result is the value of a refinement and the pairs that were checked against ground truth, in order.
type Result[T any] struct {
	Value             T
	GroundTruthChecks []proximity.Pair
}

// Proxima refines cache approximations with ground truth checks until a budget runs out.
type Proxima struct {
	cache  *Cache
	clock  clock.Clock
	logger logging.Logger
}

// New returns a Proxima over cache. A nil clk uses the wall clock.
func New(cache *Cache, clk clock.Clock, logger logging.Logger) *Proxima {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = cache.logger
	}
	return &Proxima{cache: cache, clock: clk, logger: logger}
}

// Cache returns the underlying cache.
func (p *Proxima) Cache() *Cache {
	return p.cache
}

// aggregate returns the p-norm of the losses of field over outs.
func aggregate(outs Outputs, loss HingeLoss, pNorm float64, field func(Output) float64) float64 {
	sum := lo.SumBy(outs, func(o Output) float64 {
		return math.Pow(loss.Loss(field(o)), pNorm)
	})
	return math.Pow(sum, 1/pNorm)
}

func approximateOf(o Output) float64 { return o.Approximate }
func lowerOf(o Output) float64       { return o.Lower }
func upperOf(o Output) float64       { return o.Upper }

// boundsGap is how far apart the aggregates of the lower and upper bounds are.
func boundsGap(outs Outputs, loss HingeLoss, pNorm float64) float64 {
	return math.Abs(aggregate(outs, loss, pNorm, lowerOf) - aggregate(outs, loss, pNorm, upperOf))
}

// refinementOrder sorts outputs by the most their loss could change once checked, largest first.
func refinementOrder(outs Outputs, loss HingeLoss) []int {
	errs := lo.Map(outs, func(o Output, _ int) float64 {
		a := loss.Loss(o.Approximate)
		return math.Max(math.Abs(a-loss.Loss(o.Upper)), math.Abs(a-loss.Loss(o.Lower)))
	})
	order := lo.Range(len(outs))
	slices.SortStableFunc(order, func(x, y int) int {
		switch {
		case errs[x] > errs[y]:
			return -1
		case errs[x] < errs[y]:
			return 1
		default:
			return 0
		}
	})
	return order
}

// ProximityValue returns the p-norm of the loss of every selected pair's distance. Pairs are
// checked against ground truth in order of how much their loss could be off, until the budget
// runs out.
func (p *Proxima) ProximityValue(
	ctx context.Context,
	posesA, posesB []spatialmath.Pose,
	params Params,
) (Result[float64], error) {
	if params.PNorm <= 0 {
		return Result[float64]{}, errors.Errorf("p norm must be positive, got %v", params.PNorm)
	}
	start := p.clock.Now()
	outs, err := p.cache.Query(ctx, posesA, posesB, params.QueryOptions)
	if err != nil {
		return Result[float64]{}, err
	}
	if params.Frozen {
		return Result[float64]{Value: aggregate(outs, params.Loss, params.PNorm, approximateOf)}, nil
	}

	var checks []proximity.Pair
	maxError := boundsGap(outs, params.Loss, params.PNorm)
	for _, k := range refinementOrder(outs, params.Loss) {
		if params.Budget.exhausted(p.clock.Since(start), maxError) {
			p.logger.Debugw("proxima budget exhausted", "checks", len(checks), "pairs", len(outs), "max_error", maxError)
			break
		}
		if err := ctx.Err(); err != nil {
			return Result[float64]{}, err
		}
		o := &outs[k]
		if o.Exact {
			continue
		}
		d := p.cache.Refresh(o.I, o.J, posesA[o.I], posesB[o.J])
		if params.Averages != nil {
			d /= averageFor(params.Averages, o.Pair)
		}
		o.setExact(d)
		checks = append(checks, o.Pair)
		maxError = boundsGap(outs, params.Loss, params.PNorm)
	}

	value := aggregate(outs, params.Loss, params.PNorm, approximateOf)
	p.logger.Debugw("proxima proximity value", "value", value, "checks", len(checks), "pairs", len(outs))
	return Result[float64]{Value: value, GroundTruthChecks: checks}, nil
}

// Intersection reports whether any selected pair touches or overlaps. Pairs whose lower bound
// is positive are never checked, and every other pair is checked in refinement order until one
// is found in contact. A pair whose upper bound is negative is certainly overlapping and ends
// the check without any ground truth call.
func (p *Proxima) Intersection(
	ctx context.Context,
	posesA, posesB []spatialmath.Pose,
	params Params,
) (Result[bool], error) {
	opts := params.QueryOptions
	opts.Cutoff = 0
	opts.Averages = nil
	outs, err := p.cache.Query(ctx, posesA, posesB, opts)
	if err != nil {
		return Result[bool]{}, err
	}
	if _, ok := lo.Find(outs, func(o Output) bool { return o.Upper < 0 }); ok {
		return Result[bool]{Value: true}, nil
	}
	if params.Frozen {
		return Result[bool]{Value: outs.Intersecting()}, nil
	}

	// Every output left has a lower bound at or below zero, whatever its interpolated value.
	var checks []proximity.Pair
	for _, k := range refinementOrder(outs, params.Loss) {
		o := &outs[k]
		if o.Exact {
			if o.Approximate <= 0 {
				return Result[bool]{Value: true, GroundTruthChecks: checks}, nil
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result[bool]{}, err
		}
		d := p.cache.Refresh(o.I, o.J, posesA[o.I], posesB[o.J])
		checks = append(checks, o.Pair)
		if d <= 0 {
			return Result[bool]{Value: true, GroundTruthChecks: checks}, nil
		}
		o.setExact(d)
	}
	return Result[bool]{Value: false, GroundTruthChecks: checks}, nil
}
