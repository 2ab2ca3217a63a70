package proxima

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"go.viam.com/proximity/logging"
	"go.viam.com/proximity/narrowphase"
	"go.viam.com/proximity/proximity"
	"go.viam.com/proximity/shape"
	"go.viam.com/proximity/spatialmath"
	"go.viam.com/proximity/utils"
)

// ErrSubsetMode is returned when a cache is built from an explicit pair subset.
var ErrSubsetMode = errors.New("a proxima cache must be built over all pairs or skip symmetric pairs, not a subset")

// CacheConfig controls how a cache is populated.
type CacheConfig struct {
	Mode   proximity.QueryMode
	Skips  *proximity.SkipMask
	Solver narrowphase.Solver
	Logger logging.Logger
}

type slot struct {
	mu      sync.Mutex
	element Element
}

// Cache holds one element per pair of two shape groups. Each element has its own lock so
// different pairs can be read and refreshed concurrently.
type Cache struct {
	shapesA, shapesB []shape.Shape
	// maximum distance from origin of every shape, computed once
	extentA, extentB []float64
	self             bool
	slots            []slot
	solver           narrowphase.Solver
	logger           logging.Logger
	refreshes        *atomic.Int64
}

// NewCache runs the narrow phase once for every pair cfg selects and seeds the cache with the results.
func NewCache(ctx context.Context, a, b proximity.Group, cfg CacheConfig) (*Cache, error) {
	c, err := newCache(a.Shapes, b.Shapes, false, cfg)
	if err != nil {
		return nil, err
	}
	return c, c.populate(ctx, a, b, cfg)
}

// NewSelfCache builds a cache over the pairs of a single group. (i, j) and (j, i) share an element.
func NewSelfCache(ctx context.Context, g proximity.Group, cfg CacheConfig) (*Cache, error) {
	c, err := newCache(g.Shapes, g.Shapes, true, cfg)
	if err != nil {
		return nil, err
	}
	return c, c.populate(ctx, g, g, cfg)
}

func newCache(shapesA, shapesB []shape.Shape, self bool, cfg CacheConfig) (*Cache, error) {
	if cfg.Mode.IsSubset() {
		return nil, ErrSubsetMode
	}
	extentA, err := extents(shapesA)
	if err != nil {
		return nil, err
	}
	extentB := extentA
	if !self {
		if extentB, err = extents(shapesB); err != nil {
			return nil, err
		}
	}
	size := len(shapesA) * len(shapesB)
	if self {
		size = len(shapesA) * (len(shapesA) + 1) / 2
	}
	solver := cfg.Solver
	if solver.MaxIterations == 0 {
		solver = narrowphase.DefaultSolver()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewBlankLogger("proxima")
	}
	return &Cache{
		shapesA:   shapesA,
		shapesB:   shapesB,
		extentA:   extentA,
		extentB:   extentB,
		self:      self,
		slots:     make([]slot, size),
		solver:    solver,
		logger:    logger,
		refreshes: atomic.NewInt64(0),
	}, nil
}

func extents(shapes []shape.Shape) ([]float64, error) {
	out := make([]float64, len(shapes))
	for i, s := range shapes {
		if !shape.Rigid(s) {
			return nil, errors.Errorf("shape %d (%v) does not move rigidly with its pose and cannot be cached", i, s)
		}
		out[i] = s.MaxDistanceFromOrigin(nil)
	}
	return out, nil
}

func (c *Cache) populate(ctx context.Context, a, b proximity.Group, cfg CacheConfig) error {
	if err := proximity.ValidateQuery(a, b, proximity.Options{Mode: cfg.Mode, Skips: cfg.Skips}); err != nil {
		return err
	}
	seen := make([]bool, len(c.slots))
	var pairs []proximity.Pair
	for p := range cfg.Mode.Pairs(a.Len(), b.Len()) {
		if cfg.Skips.Skip(p.I, p.J) {
			continue
		}
		k := c.index(p.I, p.J)
		if seen[k] {
			continue
		}
		seen[k] = true
		pairs = append(pairs, p)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(utils.ParallelFactor)
	for _, p := range pairs {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.refresh(p.I, p.J, a.Poses[p.I], b.Poses[p.J])
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	c.logger.Debugw("populated proxima cache", "pairs", len(pairs), "slots", len(c.slots))
	return nil
}

// Dims returns the sizes of the two groups.
func (c *Cache) Dims() (int, int) {
	return len(c.shapesA), len(c.shapesB)
}

// Shapes returns the groups the cache was built over.
func (c *Cache) Shapes() ([]shape.Shape, []shape.Shape) {
	return c.shapesA, c.shapesB
}

// index maps a pair to its slot. It panics when the pair is out of range.
func (c *Cache) index(i, j int) int {
	if i < 0 || i >= len(c.shapesA) {
		panic(utils.NewIndexOutOfRangeError("proxima group A", i, len(c.shapesA)))
	}
	if j < 0 || j >= len(c.shapesB) {
		panic(utils.NewIndexOutOfRangeError("proxima group B", j, len(c.shapesB)))
	}
	if !c.self {
		return i*len(c.shapesB) + j
	}
	lo, hi := min(i, j), max(i, j)
	return hi*(hi+1)/2 + lo
}

// canonical orders a self cache pair so that the smaller index is on side A.
func (c *Cache) canonical(i, j int, poseA, poseB spatialmath.Pose) (int, int, spatialmath.Pose, spatialmath.Pose) {
	if c.self && i > j {
		return j, i, poseB, poseA
	}
	return i, j, poseA, poseB
}

func (c *Cache) extent(i, j int) float64 {
	return math.Max(c.extentA[i], c.extentB[j])
}

// Element returns a copy of the element for (i, j). In a self cache the element of (i, j)
// with i > j is stored from the point of view of shape j.
func (c *Cache) Element(i, j int) Element {
	s := &c.slots[c.index(i, j)]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.element
}

// Refresh replaces the element of (i, j) with the exact contact at the given poses and returns its distance.
func (c *Cache) Refresh(i, j int, poseA, poseB spatialmath.Pose) float64 {
	c.index(i, j)
	return c.refresh(i, j, poseA, poseB)
}

func (c *Cache) refresh(i, j int, poseA, poseB spatialmath.Pose) float64 {
	i, j, poseA, poseB = c.canonical(i, j, poseA, poseB)
	contact, ok := c.solver.FindContact(c.shapesA[i], poseA, c.shapesB[j], poseB, math.Inf(1))
	if !ok {
		panic(fmt.Sprintf("no contact between shapes %d and %d with an unbounded cutoff", i, j))
	}
	element := newElement(contact, poseA, poseB)

	s := &c.slots[c.index(i, j)]
	s.mu.Lock()
	s.element = element
	s.mu.Unlock()
	c.refreshes.Inc()
	return element.Distance
}

// GroundTruthChecks returns how many exact narrow phase calls the cache has made.
func (c *Cache) GroundTruthChecks() int64 {
	return c.refreshes.Load()
}

// Bounds brackets the distance of (i, j) at the given poses. An element that was never
// populated is refreshed first, so its bounds are exact.
func (c *Cache) Bounds(i, j int, poseA, poseB spatialmath.Pose) (lower, upper float64, refreshed bool) {
	element := c.Element(i, j)
	ci, cj, cpA, cpB := c.canonical(i, j, poseA, poseB)
	if !element.Valid {
		d := c.refresh(ci, cj, cpA, cpB)
		return d, d, true
	}
	lower, upper = element.Bounds(cpA, cpB, c.extent(ci, cj))
	return lower, upper, false
}

// Approximate returns the output for (i, j), or false when the lower bound exceeds cutoff and
// the pair is certainly farther apart than cutoff.
func (c *Cache) Approximate(i, j int, poseA, poseB spatialmath.Pose, interpolation, cutoff float64) (Output, bool) {
	lower, upper, refreshed := c.Bounds(i, j, poseA, poseB)
	if lower > cutoff {
		return Output{}, false
	}
	return Output{
		Pair:        proximity.Pair{I: i, J: j},
		Approximate: Interpolate(lower, upper, interpolation),
		Lower:       lower,
		Upper:       upper,
		Exact:       refreshed,
	}, true
}
