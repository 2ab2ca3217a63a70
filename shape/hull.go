package shape

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"

	"go.viam.com/proximity/spatialmath"
)

// ConvexHull is the convex hull of a set of local points.
type ConvexHull struct {
	points []r3.Vector
	// rotateDir maps support directions into the hull's frame. Without it the hull keeps its
	// local axes whatever the pose rotation, like an axis aligned Box.
	rotateDir bool
}

// NewConvexHull instantiates a convex hull. The points must contain at least four that are not coplanar.
// Interior points are allowed; they never win a support query against hull vertices.
func NewConvexHull(points []r3.Vector) (*ConvexHull, error) {
	return newConvexHull(points, true)
}

// NewAlignedConvexHull instantiates a convex hull that is translated but never rotated by its pose.
func NewAlignedConvexHull(points []r3.Vector) (*ConvexHull, error) {
	return newConvexHull(points, false)
}

func newConvexHull(points []r3.Vector, rotateDir bool) (*ConvexHull, error) {
	kind := KindConvexHull
	if !rotateDir {
		kind = KindAlignedConvexHull
	}
	if len(points) < 4 {
		return nil, newTooFewPointsError(len(points))
	}
	for _, p := range points {
		if math.IsNaN(p.X+p.Y+p.Z) || math.IsInf(p.X+p.Y+p.Z, 0) {
			return nil, newBadDimensionsError(kind, fmt.Sprintf("non-finite point %v", p))
		}
	}
	if !spansVolume(points) {
		return nil, ErrDegenerateHull
	}
	return &ConvexHull{points: append([]r3.Vector(nil), points...), rotateDir: rotateDir}, nil
}

// spansVolume greedily picks the widest tetrahedron and checks that it has volume.
func spansVolume(points []r3.Vector) bool {
	p0 := points[0]
	p1 := lo.MaxBy(points, func(a, b r3.Vector) bool { return a.Sub(p0).Norm2() > b.Sub(p0).Norm2() })
	edge := p1.Sub(p0)
	scale := edge.Norm()
	if scale < 1e-12 {
		return false
	}
	p2 := lo.MaxBy(points, func(a, b r3.Vector) bool {
		return edge.Cross(a.Sub(p0)).Norm2() > edge.Cross(b.Sub(p0)).Norm2()
	})
	normal := edge.Cross(p2.Sub(p0))
	if normal.Norm() < 1e-12*scale*scale {
		return false
	}
	p3 := lo.MaxBy(points, func(a, b r3.Vector) bool {
		return math.Abs(normal.Dot(a.Sub(p0))) > math.Abs(normal.Dot(b.Sub(p0)))
	})
	return math.Abs(normal.Dot(p3.Sub(p0))) > 1e-12*scale*scale*scale
}

// Points returns a copy of the hull's local points.
func (h *ConvexHull) Points() []r3.Vector {
	return append([]r3.Vector(nil), h.points...)
}

// Kind returns KindConvexHull, or KindAlignedConvexHull for hulls that ignore pose rotation.
func (h *ConvexHull) Kind() Kind {
	if !h.rotateDir {
		return KindAlignedConvexHull
	}
	return KindConvexHull
}

// Support returns the hull point farthest along dir. The first maximal point wins ties.
func (h *ConvexHull) Support(dir r3.Vector, pose spatialmath.Pose) r3.Vector {
	pose = poseOrIdentity(pose)
	if !h.rotateDir {
		return pose.Point().Add(h.points[h.farthest(dir)])
	}
	localDir := spatialmath.RotateVector(spatialmath.OrientationInverse(pose.Orientation()), dir)
	return spatialmath.Transform(pose, h.points[h.farthest(localDir)])
}

func (h *ConvexHull) farthest(localDir r3.Vector) int {
	best := 0
	bestDot := h.points[0].Dot(localDir)
	for i := 1; i < len(h.points); i++ {
		if d := h.points[i].Dot(localDir); d > bestDot {
			best, bestDot = i, d
		}
	}
	return best
}

// MaxDistanceFromOrigin returns the distance of the farthest hull point.
func (h *ConvexHull) MaxDistanceFromOrigin(local spatialmath.Pose) float64 {
	local = poseOrIdentity(local)
	return lo.Max(lo.Map(h.points, func(p r3.Vector, _ int) float64 {
		if !h.rotateDir {
			return local.Point().Add(p).Norm()
		}
		return spatialmath.Transform(local, p).Norm()
	}))
}

func (h *ConvexHull) String() string {
	return fmt.Sprintf("Type: %s | Points: %d", h.Kind(), len(h.points))
}
