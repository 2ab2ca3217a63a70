package bvh

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/proximity/shape"
	"go.viam.com/proximity/spatialmath"
)

// Volume is a bounding volume that can be merged into enclosing parents.
type Volume[V any] interface {
	// Merge returns a volume containing both the receiver and other.
	Merge(other V) V
	// Contains reports whether other lies entirely inside the receiver.
	Contains(other V) bool
	// Overlaps reports whether the receiver and other share any point.
	Overlaps(other V) bool
	// SignedDistance is a lower bound on the distance between anything inside the two volumes.
	// It is negative when the volumes overlap.
	SignedDistance(other V) float64
	// Center is used to partition volumes while building.
	Center() r3.Vector
}

// LeafFunc computes the bounding volume of a posed shape.
type LeafFunc[V Volume[V]] func(s shape.Shape, pose spatialmath.Pose) V

// AABB is an axis aligned bounding box.
type AABB struct {
	Min, Max r3.Vector
}

// AABBOf returns the world axis aligned box of s at pose.
func AABBOf(s shape.Shape, pose spatialmath.Pose) AABB {
	lo, hi := shape.AABB(s, pose)
	return AABB{Min: lo, Max: hi}
}

// Merge takes the componentwise bounds of both boxes.
func (a AABB) Merge(other AABB) AABB {
	return AABB{
		Min: r3.Vector{X: math.Min(a.Min.X, other.Min.X), Y: math.Min(a.Min.Y, other.Min.Y), Z: math.Min(a.Min.Z, other.Min.Z)},
		Max: r3.Vector{X: math.Max(a.Max.X, other.Max.X), Y: math.Max(a.Max.Y, other.Max.Y), Z: math.Max(a.Max.Z, other.Max.Z)},
	}
}

// Contains reports whether other is inside a.
func (a AABB) Contains(other AABB) bool {
	return a.Min.X <= other.Min.X && a.Min.Y <= other.Min.Y && a.Min.Z <= other.Min.Z &&
		a.Max.X >= other.Max.X && a.Max.Y >= other.Max.Y && a.Max.Z >= other.Max.Z
}

// Overlaps reports whether the boxes intersect, touching included.
func (a AABB) Overlaps(other AABB) bool {
	return a.Min.X <= other.Max.X && a.Max.X >= other.Min.X &&
		a.Min.Y <= other.Max.Y && a.Max.Y >= other.Min.Y &&
		a.Min.Z <= other.Max.Z && a.Max.Z >= other.Min.Z
}

// SignedDistance is the euclidean gap between separated boxes, or the negated
// smallest overlap along an axis when they intersect.
func (a AABB) SignedDistance(other AABB) float64 {
	gaps := [3]float64{
		math.Max(other.Min.X-a.Max.X, a.Min.X-other.Max.X),
		math.Max(other.Min.Y-a.Max.Y, a.Min.Y-other.Max.Y),
		math.Max(other.Min.Z-a.Max.Z, a.Min.Z-other.Max.Z),
	}
	sum := 0.
	maxGap := math.Inf(-1)
	for _, g := range gaps {
		if g > 0 {
			sum += g * g
		}
		maxGap = math.Max(maxGap, g)
	}
	if maxGap > 0 {
		return math.Sqrt(sum)
	}
	return maxGap
}

// Center returns the middle of the box.
func (a AABB) Center() r3.Vector {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Sphere is a bounding sphere around Point.
type Sphere struct {
	Point  r3.Vector
	Radius float64
}

// SphereOf returns a bounding sphere of s at pose. Balls get their exact sphere.
func SphereOf(s shape.Shape, pose spatialmath.Pose) Sphere {
	if center, radius, ok := shape.AsSphere(s, pose); ok {
		return Sphere{Point: center, Radius: radius}
	}
	center, radius := shape.BoundingSphere(s, pose)
	return Sphere{Point: center, Radius: radius}
}

// Merge returns the smallest sphere enclosing both spheres.
func (s Sphere) Merge(other Sphere) Sphere {
	delta := other.Point.Sub(s.Point)
	dist := delta.Norm()
	if dist+other.Radius <= s.Radius {
		return s
	}
	if dist+s.Radius <= other.Radius {
		return other
	}
	radius := (dist + s.Radius + other.Radius) / 2
	center := s.Point.Add(delta.Mul((radius - s.Radius) / dist))
	// Pad by a relative epsilon so rounding never leaves a child poking out.
	return Sphere{Point: center, Radius: radius * (1 + 1e-12)}
}

// Contains reports whether other is inside s.
func (s Sphere) Contains(other Sphere) bool {
	return other.Point.Sub(s.Point).Norm()+other.Radius <= s.Radius*(1+1e-9)
}

// Overlaps reports whether the spheres intersect, touching included.
func (s Sphere) Overlaps(other Sphere) bool {
	return s.SignedDistance(other) <= 0
}

// SignedDistance is the gap between the sphere surfaces, negative when they overlap.
func (s Sphere) SignedDistance(other Sphere) float64 {
	return other.Point.Sub(s.Point).Norm() - s.Radius - other.Radius
}

// Center returns the sphere's center.
func (s Sphere) Center() r3.Vector {
	return s.Point
}
