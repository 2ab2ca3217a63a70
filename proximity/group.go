package proximity

import (
	"context"
	"math"

	"go.uber.org/atomic"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/proximity/logging"
	"go.viam.com/proximity/narrowphase"
	"go.viam.com/proximity/shape"
	"go.viam.com/proximity/spatialmath"
	"go.viam.com/proximity/utils"
)

// minAverageDistance keeps normalized distances finite for pairs that are always in contact.
const minAverageDistance = 1e-4

// Group is a set of shapes and the poses they currently sit at.
type Group struct {
	Shapes []shape.Shape
	Poses  []spatialmath.Pose
}

// NewGroup pairs shapes with poses, which must have the same length.
func NewGroup(shapes []shape.Shape, poses []spatialmath.Pose) (Group, error) {
	g := Group{Shapes: shapes, Poses: poses}
	return g, g.Validate()
}

// Validate checks that every shape has a pose.
func (g Group) Validate() error {
	if len(g.Shapes) != len(g.Poses) {
		return utils.NewLengthMismatchError("group poses", len(g.Shapes), len(g.Poses))
	}
	return nil
}

// Len returns the number of shapes.
func (g Group) Len() int {
	return len(g.Shapes)
}

// Options controls a pairwise group query.
type Options struct {
	Mode  QueryMode
	Skips *SkipMask
	// EarlyStop ends the query at the first pair found in contact.
	EarlyStop bool
	// Parallel spreads pairs over workers. Results keep pair order; early stopping is best effort.
	Parallel bool
	Solver   narrowphase.Solver
	Logger   logging.Logger
}

func (o *Options) solver() narrowphase.Solver {
	if o.Solver.MaxIterations == 0 {
		return narrowphase.DefaultSolver()
	}
	return o.Solver
}

// Result is the outcome of a query on one pair.
type Result[T any] struct {
	Pair
	Value T
}

// Intersections returns the pairs that touch or overlap.
func Intersections(ctx context.Context, a, b Group, opts Options) ([]Result[bool], error) {
	solver := opts.solver()
	return run(ctx, a, b, opts,
		func(p Pair) bool {
			return solver.Intersect(a.Shapes[p.I], a.Poses[p.I], b.Shapes[p.J], b.Poses[p.J])
		},
		func(hit bool) bool { return hit },
		func(hit bool) bool { return hit },
	)
}

// Distances returns the GJK distance of every visited pair.
func Distances(ctx context.Context, a, b Group, opts Options) ([]Result[float64], error) {
	solver := opts.solver()
	return run(ctx, a, b, opts,
		func(p Pair) float64 {
			return solver.Distance(a.Shapes[p.I], a.Poses[p.I], b.Shapes[p.J], b.Poses[p.J])
		},
		func(float64) bool { return true },
		func(d float64) bool { return d <= 0 },
	)
}

// Contacts returns the contact of every visited pair. Pairs farther apart than cutoff have a nil Value.
func Contacts(ctx context.Context, a, b Group, cutoff float64, opts Options) ([]Result[*narrowphase.Contact], error) {
	solver := opts.solver()
	return run(ctx, a, b, opts,
		func(p Pair) *narrowphase.Contact {
			c, _ := solver.FindContact(a.Shapes[p.I], a.Poses[p.I], b.Shapes[p.J], b.Poses[p.J], cutoff)
			return c
		},
		func(*narrowphase.Contact) bool { return true },
		func(c *narrowphase.Contact) bool { return c != nil && c.Distance <= 0 },
	)
}

// ClosestPoints returns the GJK result, with witness points, of every visited pair. Pairs on
// which GJK hit its iteration cap are logged as warnings.
func ClosestPoints(ctx context.Context, a, b Group, opts Options) ([]Result[narrowphase.Result], error) {
	solver := opts.solver()
	return run(ctx, a, b, opts,
		func(p Pair) narrowphase.Result {
			res := solver.ClosestPoints(a.Shapes[p.I], a.Poses[p.I], b.Shapes[p.J], b.Poses[p.J])
			if !res.Converged && opts.Logger != nil {
				opts.Logger.Warnw("GJK hit its iteration cap", "pair", p, "iterations", res.Iterations, "distance", res.Distance)
			}
			return res
		},
		func(narrowphase.Result) bool { return true },
		func(r narrowphase.Result) bool { return r.Intersecting },
	)
}

// AnyIntersecting reports whether any visited pair touches or overlaps, stopping at the first one.
func AnyIntersecting(ctx context.Context, a, b Group, opts Options) (bool, error) {
	opts.EarlyStop = true
	hits, err := Intersections(ctx, a, b, opts)
	return len(hits) > 0, err
}

// MinDistance returns the smallest result, or +Inf when there are none.
func MinDistance(results []Result[float64]) (Result[float64], bool) {
	best := Result[float64]{Value: math.Inf(1)}
	for _, r := range results {
		if r.Value < best.Value {
			best = r
		}
	}
	return best, len(results) > 0
}

// ValidateQuery checks that a and b are well formed and that the mode and skip mask of opts fit them.
func ValidateQuery(a, b Group, opts Options) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if err := opts.Mode.Validate(a.Len(), b.Len()); err != nil {
		return err
	}
	if opts.Skips != nil && opts.Skips.m != nil {
		r, c := opts.Skips.Dims()
		if r != a.Len() {
			return utils.NewLengthMismatchError("skip mask rows", a.Len(), r)
		}
		if c != b.Len() {
			return utils.NewLengthMismatchError("skip mask columns", b.Len(), c)
		}
	}
	return nil
}

// VisitedPairs returns the pairs a query with opts visits over a and b.
func VisitedPairs(a, b Group, opts Options) []Pair {
	var pairs []Pair
	for p := range opts.Mode.Pairs(a.Len(), b.Len()) {
		if !opts.Skips.Skip(p.I, p.J) {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

func run[T any](
	ctx context.Context,
	a, b Group,
	opts Options,
	query func(Pair) T,
	keep func(T) bool,
	stop func(T) bool,
) ([]Result[T], error) {
	if err := ValidateQuery(a, b, opts); err != nil {
		return nil, err
	}
	if opts.Parallel {
		return runParallel(ctx, VisitedPairs(a, b, opts), opts, query, keep, stop)
	}

	var out []Result[T]
	for p := range opts.Mode.Pairs(a.Len(), b.Len()) {
		if opts.Skips.Skip(p.I, p.J) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res := query(p)
		if keep(res) {
			out = append(out, Result[T]{p, res})
		}
		if opts.EarlyStop && stop(res) {
			if opts.Logger != nil {
				opts.Logger.Debugw("stopping group query early", "pair", p)
			}
			break
		}
	}
	return out, nil
}

func runParallel[T any](
	ctx context.Context,
	pairs []Pair,
	opts Options,
	query func(Pair) T,
	keep func(T) bool,
	stop func(T) bool,
) ([]Result[T], error) {
	values := make([]T, len(pairs))
	done := make([]bool, len(pairs))
	stopped := atomic.NewBool(false)
	err := utils.GroupWorkParallel(ctx, len(pairs), nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				if stopped.Load() {
					return
				}
				values[workNum] = query(pairs[workNum])
				done[workNum] = true
				if opts.EarlyStop && stop(values[workNum]) {
					stopped.Store(true)
				}
			}, nil
		})
	if err != nil {
		return nil, err
	}
	var out []Result[T]
	for i, p := range pairs {
		if done[i] && keep(values[i]) {
			out = append(out, Result[T]{p, values[i]})
		}
	}
	return out, nil
}

// NormalizeDistances divides each distance by the pair's average distance.
func NormalizeDistances(results []Result[float64], averages mat.Matrix) []Result[float64] {
	out := make([]Result[float64], len(results))
	for k, r := range results {
		out[k] = Result[float64]{r.Pair, r.Value / math.Max(averages.At(r.I, r.J), minAverageDistance)}
	}
	return out
}

// NormalizeContacts divides each contact distance by the pair's average distance.
func NormalizeContacts(results []Result[*narrowphase.Contact], averages mat.Matrix) []Result[*narrowphase.Contact] {
	out := make([]Result[*narrowphase.Contact], len(results))
	for k, r := range results {
		out[k] = r
		if r.Value == nil {
			continue
		}
		c := *r.Value
		c.Distance /= math.Max(averages.At(r.I, r.J), minAverageDistance)
		out[k].Value = &c
	}
	return out
}
