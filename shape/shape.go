// Package shape defines the convex primitives used by the narrow phase and the
// broad phase, each described by its support function.
package shape

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/proximity/spatialmath"
)

// Kind identifies one of the closed set of primitive shapes.
type Kind string

// The known shape kinds.
const (
	KindBall           Kind = "ball"
	KindBox            Kind = "box"
	KindOBB            Kind = "obb"
	KindConvexHull     Kind = "convex_hull"
	KindBoundingSphere Kind = "bounding_sphere"

	// KindAlignedConvexHull is a convex hull whose support direction is not rotated by its pose.
	KindAlignedConvexHull Kind = "aligned_convex_hull"
)

// Shape is an immutable convex primitive.
type Shape interface {
	Kind() Kind

	// Support returns the farthest point of the shape placed at pose along dir.
	// It never panics; a zero direction returns a canonical point of the shape.
	Support(dir r3.Vector, pose spatialmath.Pose) r3.Vector

	// MaxDistanceFromOrigin returns the largest distance from the origin of any point
	// of the shape when it is placed at local. A nil local is the identity.
	MaxDistanceFromOrigin(local spatialmath.Pose) float64

	String() string
}

// Rigid reports whether the points of s move rigidly with its pose. Axis aligned
// boxes and aligned hulls ignore the rotation of their pose.
func Rigid(s Shape) bool {
	kind := s.Kind()
	return kind != KindBox && kind != KindAlignedConvexHull
}

var unitAxes = [3]r3.Vector{{X: 1}, {Y: 1}, {Z: 1}}

// AABB returns the world axis aligned box enclosing s placed at pose.
func AABB(s Shape, pose spatialmath.Pose) (r3.Vector, r3.Vector) {
	var lo, hi [3]float64
	for i, axis := range unitAxes {
		hi[i] = s.Support(axis, pose).Dot(axis)
		lo[i] = s.Support(axis.Mul(-1), pose).Dot(axis)
	}
	return r3.Vector{X: lo[0], Y: lo[1], Z: lo[2]}, r3.Vector{X: hi[0], Y: hi[1], Z: hi[2]}
}

// BoundingSphere returns a sphere enclosing s placed at pose, centered on its AABB.
func BoundingSphere(s Shape, pose spatialmath.Pose) (r3.Vector, float64) {
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	lo, hi := AABB(s, pose)
	center := lo.Add(hi).Mul(0.5)
	toCenter := spatialmath.Compose(spatialmath.NewPoseFromPoint(center.Mul(-1)), pose)
	return center, s.MaxDistanceFromOrigin(toCenter)
}

// normalizeOr returns v scaled to unit length, or fallback if v is too short to normalize.
func normalizeOr(v, fallback r3.Vector) r3.Vector {
	n := v.Norm()
	if n < 1e-300 || math.IsNaN(n) || math.IsInf(n, 0) {
		return fallback
	}
	return v.Mul(1 / n)
}

func poseOrIdentity(p spatialmath.Pose) spatialmath.Pose {
	if p == nil {
		return spatialmath.NewZeroPose()
	}
	return p
}
