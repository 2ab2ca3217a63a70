// Package narrowphase computes exact distances, intersections and contacts between
// pairs of posed convex shapes using GJK and EPA.
package narrowphase

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/proximity/shape"
	"go.viam.com/proximity/spatialmath"
)

const (
	// DefaultMaxIterations bounds the number of GJK refinement steps.
	DefaultMaxIterations = 100
	// DefaultMaxEPAIterations bounds the number of EPA polytope expansions.
	DefaultMaxEPAIterations = 128
	// DefaultTolerance is the absolute tolerance used for EPA convergence.
	DefaultTolerance = 1e-9

	// gjkRelativeEps is the relative duality gap at which GJK stops refining.
	gjkRelativeEps = 1e-12
	// gjkContactEps2 is the squared distance treated as touching.
	gjkContactEps2 = 1e-20
	// contactTolerance is the distance treated as touching.
	contactTolerance = 1e-10
)

// Solver holds the iteration caps and tolerances for the narrow phase.
// The zero value is not usable; start from DefaultSolver.
type Solver struct {
	MaxIterations    int
	MaxEPAIterations int
	Tolerance        float64
}

// DefaultSolver returns a Solver with the default caps.
func DefaultSolver() Solver {
	return Solver{
		MaxIterations:    DefaultMaxIterations,
		MaxEPAIterations: DefaultMaxEPAIterations,
		Tolerance:        DefaultTolerance,
	}
}

// Result is the outcome of a GJK distance query.
type Result struct {
	// Distance is the separation between the shapes, 0 when they touch or overlap.
	Distance float64
	// Intersecting is true when the shapes touch or overlap.
	Intersecting bool
	// PointA and PointB are the closest points on each shape, in world coordinates.
	// They are only meaningful when the shapes are separated.
	PointA, PointB r3.Vector
	Iterations     int
	// Converged is false when the iteration cap was hit; Distance is then an upper bound.
	Converged bool

	simplex []supportPoint
}

type pair struct {
	a, b   shape.Shape
	pa, pb spatialmath.Pose
}

func (p *pair) support(d r3.Vector) supportPoint {
	sa := p.a.Support(d, p.pa)
	sb := p.b.Support(d.Mul(-1), p.pb)
	return supportPoint{w: sa.Sub(sb), a: sa, b: sb}
}

func (p *pair) seed() r3.Vector {
	d := poseOrIdentity(p.pb).Point().Sub(poseOrIdentity(p.pa).Point())
	if d.Norm2() < 1e-20 {
		d = r3.Vector{X: 1}
	}
	return d
}

func poseOrIdentity(p spatialmath.Pose) spatialmath.Pose {
	if p == nil {
		return spatialmath.NewZeroPose()
	}
	return p
}

// ClosestPoints runs GJK to convergence and reports the distance and witness points.
func (s Solver) ClosestPoints(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose) Result {
	res, _ := s.gjk(&pair{a, b, poseA, poseB}, math.Inf(1))
	return res
}

// Distance returns the separation between the shapes, 0 when they touch or overlap.
func (s Solver) Distance(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose) float64 {
	if ca, ra, ok := shape.AsSphere(a, poseA); ok {
		if cb, rb, ok := shape.AsSphere(b, poseB); ok {
			return math.Max(0, cb.Sub(ca).Norm()-ra-rb)
		}
	}
	return s.ClosestPoints(a, poseA, b, poseB).Distance
}

// Collide reports whether the shapes are within buffer of each other. It stops as
// soon as a separating direction proves the distance exceeds buffer.
func (s Solver) Collide(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose, buffer float64) bool {
	res, separated := s.gjk(&pair{a, b, poseA, poseB}, buffer)
	if separated {
		return false
	}
	return res.Intersecting || res.Distance <= buffer+contactTolerance
}

// Intersect reports whether the shapes touch or overlap.
func (s Solver) Intersect(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose) bool {
	return s.Collide(a, poseA, b, poseB, 0)
}

// gjk runs the distance algorithm. When a lower bound on the distance exceeds earlyOut
// it stops and returns true.
func (s Solver) gjk(p *pair, earlyOut float64) (Result, bool) {
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	first := p.support(p.seed())
	simplex := []supportPoint{first}
	weights := []float64{1}
	v := first.w

	res := Result{}
	for res.Iterations < maxIter {
		res.Iterations++
		vv := v.Norm2()
		if vv < gjkContactEps2 {
			res.Intersecting = true
			res.Converged = true
			break
		}

		sp := p.support(v.Mul(-1))
		vw := v.Dot(sp.w)
		if vw > 0 && vw > (earlyOut+contactTolerance)*math.Sqrt(vv) {
			// v.w / |v| is a lower bound on the distance.
			res.Distance = math.Sqrt(vv)
			res.PointA, res.PointB = witnesses(simplex, weights)
			return res, true
		}
		if vv-vw <= gjkRelativeEps*vv || containsPoint(simplex, sp.w) {
			res.Converged = true
			break
		}

		candidate := append(append(make([]supportPoint, 0, len(simplex)+1), simplex...), sp)
		var (
			newV       r3.Vector
			newSimplex []supportPoint
			newWeights []float64
		)
		switch len(candidate) {
		case 2:
			newV, newSimplex, newWeights = closestOnSegment(candidate[0], candidate[1])
		case 3:
			newV, newSimplex, newWeights = closestOnTriangle(candidate[0], candidate[1], candidate[2])
		default:
			newV, newSimplex, newWeights = closestOnTetrahedron(candidate)
		}
		if len(newSimplex) == 4 {
			simplex, weights, v = newSimplex, newWeights, newV
			res.Intersecting = true
			res.Converged = true
			break
		}
		if newV.Norm2() >= vv {
			// No progress within floating point precision.
			res.Converged = true
			break
		}
		simplex, weights, v = newSimplex, newWeights, newV
	}

	res.simplex = simplex
	res.PointA, res.PointB = witnesses(simplex, weights)
	if v.Norm2() < gjkContactEps2 {
		res.Intersecting = true
	}
	if res.Intersecting {
		res.Distance = 0
	} else {
		res.Distance = v.Norm()
	}
	return res, false
}

func containsPoint(simplex []supportPoint, w r3.Vector) bool {
	for _, sp := range simplex {
		if spatialmath.R3VectorAlmostEqual(sp.w, w, contactTolerance) {
			return true
		}
	}
	return false
}

// Distance returns the GJK distance between two posed shapes using the default solver.
func Distance(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose) float64 {
	return DefaultSolver().Distance(a, poseA, b, poseB)
}

// Intersect reports whether two posed shapes touch or overlap using the default solver.
func Intersect(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose) bool {
	return DefaultSolver().Intersect(a, poseA, b, poseB)
}

// ClosestPoints runs GJK with the default solver.
func ClosestPoints(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose) Result {
	return DefaultSolver().ClosestPoints(a, poseA, b, poseB)
}
