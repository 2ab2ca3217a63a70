package shape

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/proximity/spatialmath"
)

// Ball is a sphere of a given radius centered on its local origin.
type Ball struct {
	radius float64
}

// NewBall instantiates a new ball. The radius must be positive.
func NewBall(radius float64) (*Ball, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, newBadDimensionsError(KindBall, fmt.Sprintf("radius %v", radius))
	}
	return &Ball{radius: radius}, nil
}

// Radius returns the radius of the ball.
func (b *Ball) Radius() float64 {
	return b.radius
}

// Kind returns KindBall.
func (b *Ball) Kind() Kind {
	return KindBall
}

// Support returns the point of the ball farthest along dir. A zero dir maps to the center.
func (b *Ball) Support(dir r3.Vector, pose spatialmath.Pose) r3.Vector {
	center := poseOrIdentity(pose).Point()
	return center.Add(normalizeOr(dir, r3.Vector{}).Mul(b.radius))
}

// MaxDistanceFromOrigin returns the distance to the far side of the ball.
func (b *Ball) MaxDistanceFromOrigin(local spatialmath.Pose) float64 {
	return poseOrIdentity(local).Point().Norm() + b.radius
}

// Sphere returns the world center and radius of the ball placed at pose.
func (b *Ball) Sphere(pose spatialmath.Pose) (r3.Vector, float64) {
	return poseOrIdentity(pose).Point(), b.radius
}

func (b *Ball) String() string {
	return fmt.Sprintf("Type: Ball | Radius: %.3f", b.radius)
}

// BoundingSphereShape is a sphere whose center is offset from its local origin.
// It summarizes a more detailed shape.
type BoundingSphereShape struct {
	center r3.Vector
	radius float64
}

// NewBoundingSphere instantiates a bounding sphere from a local center and a positive radius.
func NewBoundingSphere(center r3.Vector, radius float64) (*BoundingSphereShape, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, newBadDimensionsError(KindBoundingSphere, fmt.Sprintf("radius %v", radius))
	}
	return &BoundingSphereShape{center: center, radius: radius}, nil
}

// BoundingSphereOf returns the bounding sphere of s in its own frame.
func BoundingSphereOf(s Shape) (*BoundingSphereShape, error) {
	center, radius := BoundingSphere(s, nil)
	return NewBoundingSphere(center, math.Max(radius, 1e-12))
}

// Center returns the local center of the sphere.
func (s *BoundingSphereShape) Center() r3.Vector {
	return s.center
}

// Radius returns the radius of the sphere.
func (s *BoundingSphereShape) Radius() float64 {
	return s.radius
}

// Kind returns KindBoundingSphere.
func (s *BoundingSphereShape) Kind() Kind {
	return KindBoundingSphere
}

// Support returns the point of the sphere farthest along dir. A zero dir maps to the center.
func (s *BoundingSphereShape) Support(dir r3.Vector, pose spatialmath.Pose) r3.Vector {
	return spatialmath.Transform(pose, s.center).Add(normalizeOr(dir, r3.Vector{}).Mul(s.radius))
}

// MaxDistanceFromOrigin returns the distance to the far side of the sphere.
func (s *BoundingSphereShape) MaxDistanceFromOrigin(local spatialmath.Pose) float64 {
	return spatialmath.Transform(local, s.center).Norm() + s.radius
}

// Sphere returns the world center and radius of the sphere placed at pose.
func (s *BoundingSphereShape) Sphere(pose spatialmath.Pose) (r3.Vector, float64) {
	return spatialmath.Transform(pose, s.center), s.radius
}

func (s *BoundingSphereShape) String() string {
	return fmt.Sprintf("Type: BoundingSphere | Center: X:%.3f, Y:%.3f, Z:%.3f | Radius: %.3f",
		s.center.X, s.center.Y, s.center.Z, s.radius)
}

// Spherical is implemented by shapes that are exactly a sphere once posed.
type Spherical interface {
	Sphere(pose spatialmath.Pose) (center r3.Vector, radius float64)
}
