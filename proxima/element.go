// Package proxima caches exact narrow phase results for shape pairs and bounds how far the
// distance of each pair can have drifted as the shapes move, so that most pairs never need
// a fresh GJK call.
package proxima

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/proximity/narrowphase"
	"go.viam.com/proximity/spatialmath"
	"go.viam.com/proximity/utils"
)

// Element is the ground truth recorded for one pair.
type Element struct {
	PoseA, PoseB spatialmath.Pose
	// Relative is the pose of B in the frame of A at caching time.
	Relative spatialmath.Pose
	// Distance is the signed contact distance, negative when the shapes overlap.
	Distance float64
	// LocalPointA and LocalPointB are the witness points in each shape's own frame.
	LocalPointA, LocalPointB r3.Vector
	Valid                    bool
}

func newElement(c *narrowphase.Contact, poseA, poseB spatialmath.Pose) Element {
	return Element{
		PoseA:       poseA,
		PoseB:       poseB,
		Relative:    spatialmath.PoseBetween(poseA, poseB),
		Distance:    c.Distance,
		LocalPointA: spatialmath.InverseTransform(poseA, c.PointA),
		LocalPointB: spatialmath.InverseTransform(poseB, c.PointB),
		Valid:       true,
	}
}

// Drift returns the translation and rotation angle of B relative to A since the element was cached.
func (e *Element) Drift(poseA, poseB spatialmath.Pose) (float64, float64) {
	return spatialmath.PoseDelta(spatialmath.PoseBetween(e.Relative, spatialmath.PoseBetween(poseA, poseB)))
}

// Bounds brackets the signed distance of the pair at the given poses. h is the larger of the
// two shapes' maximum distances from their origins.
//
// Every point of B, seen from A, has moved by at most the drift translation plus
// sqrt(2h²(1-cos θ)) for drift angle θ, and signed distance changes no faster than the points
// do. The upper bound is also capped by the distance between the cached witness points carried
// along with their shapes, which is realized by an actual pair of points.
func (e *Element) Bounds(poseA, poseB spatialmath.Pose, h float64) (lower, upper float64) {
	translation, angle := e.Drift(poseA, poseB)
	// Equal to sqrt(2h²(1-cos θ)) but accurate for small θ.
	psi := 2 * h * math.Sin(angle/2)
	slack := translation + psi

	carried := spatialmath.Transform(poseA, e.LocalPointA).Sub(spatialmath.Transform(poseB, e.LocalPointB)).Norm()
	return e.Distance - slack, math.Min(carried, e.Distance+slack)
}

// Interpolate blends the bounds: 0 returns lower and 1 returns upper. t is clamped to [0, 1]
// so the result never leaves the bounds.
func Interpolate(lower, upper, t float64) float64 {
	t = utils.Clamp(t, 0, 1)
	return (1-t)*lower + t*upper
}
