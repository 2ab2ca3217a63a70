package narrowphase

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/proximity/shape"
	"go.viam.com/proximity/spatialmath"
	"go.viam.com/proximity/utils"
)

// Contact describes the closest approach or deepest overlap of two shapes.
type Contact struct {
	// Distance is the separation when positive and the penetration depth, negated, when overlapping.
	Distance float64
	// Normal is the unit direction from shape A toward shape B.
	Normal r3.Vector
	// PointA and PointB are the witness points on each shape in world coordinates. When the
	// shapes overlap, PointA is the point of A deepest inside B and PointA - PointB is the
	// penetration depth along Normal.
	PointA, PointB r3.Vector
}

// Penetrating reports whether the shapes overlap.
func (c *Contact) Penetrating() bool {
	return c.Distance < 0
}

// FindContact returns the contact between the shapes, or false when they are farther apart than cutoff.
func (s Solver) FindContact(
	a shape.Shape, poseA spatialmath.Pose,
	b shape.Shape, poseB spatialmath.Pose,
	cutoff float64,
) (*Contact, bool) {
	contact := s.contact(a, poseA, b, poseB, cutoff)
	if contact == nil || contact.Distance > cutoff {
		return nil, false
	}
	return contact, true
}

// SignedDistance returns the contact distance: positive separation or negative penetration depth.
func (s Solver) SignedDistance(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose) float64 {
	return s.contact(a, poseA, b, poseB, math.Inf(1)).Distance
}

func (s Solver) contact(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose, cutoff float64) *Contact {
	if ca, ra, ok := shape.AsSphere(a, poseA); ok {
		if cb, rb, ok := shape.AsSphere(b, poseB); ok {
			return sphereContact(ca, ra, cb, rb)
		}
	}

	p := &pair{a, b, poseA, poseB}
	res, separated := s.gjk(p, cutoff)
	if separated {
		return nil
	}
	if !res.Intersecting {
		normal := res.PointB.Sub(res.PointA)
		if n := normal.Norm(); n > 0 {
			normal = normal.Mul(1 / n)
		} else {
			normal = p.seed().Normalize()
		}
		return &Contact{Distance: res.Distance, Normal: normal, PointA: res.PointA, PointB: res.PointB}
	}

	pen, ok := s.epa(p, res.simplex)
	if !ok {
		// Too flat to enclose a volume: the shapes are touching.
		return &Contact{Normal: p.seed().Normalize(), PointA: res.PointA, PointB: res.PointB}
	}
	return &Contact{
		Distance: -pen.depth,
		Normal:   pen.normal,
		PointA:   pen.pointA,
		PointB:   pen.pointB,
	}
}

func sphereContact(ca r3.Vector, ra float64, cb r3.Vector, rb float64) *Contact {
	delta := cb.Sub(ca)
	dist := delta.Norm()
	normal := r3.Vector{X: 1}
	if dist > 1e-300 {
		normal = delta.Mul(1 / dist)
	}
	return &Contact{
		Distance: dist - ra - rb,
		Normal:   normal,
		PointA:   ca.Add(normal.Mul(ra)),
		PointB:   cb.Sub(normal.Mul(rb)),
	}
}

// DistanceChecked is Distance with validation of the poses and the result.
func (s Solver) DistanceChecked(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose) (float64, error) {
	for _, pose := range []spatialmath.Pose{poseA, poseB} {
		if pose == nil {
			continue
		}
		pt := pose.Point()
		q := pose.Orientation().Quaternion()
		if !utils.IsFinite(pt.X+pt.Y+pt.Z) || !utils.IsFinite(q.Real+q.Imag+q.Jmag+q.Kmag) {
			return math.NaN(), errors.Errorf("non-finite pose %v", pose)
		}
	}
	d := s.Distance(a, poseA, b, poseB)
	if !utils.IsFinite(d) {
		return d, errors.Errorf("distance between %v and %v is not finite", a, b)
	}
	return d, nil
}

// FindContact returns the contact between two posed shapes using the default solver.
func FindContact(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose, cutoff float64) (*Contact, bool) {
	return DefaultSolver().FindContact(a, poseA, b, poseB, cutoff)
}

// SignedDistance returns the signed contact distance using the default solver.
func SignedDistance(a shape.Shape, poseA spatialmath.Pose, b shape.Shape, poseB spatialmath.Pose) float64 {
	return DefaultSolver().SignedDistance(a, poseA, b, poseB)
}
