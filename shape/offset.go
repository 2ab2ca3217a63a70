package shape

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/proximity/spatialmath"
)

// Offset pairs a shape with an optional fixed local pose. The local pose is applied
// before the world pose handed to Support.
type Offset struct {
	shape Shape
	local spatialmath.Pose
}

// NewOffset wraps s with the given local pose. A nil local pose means none.
func NewOffset(s Shape, local spatialmath.Pose) *Offset {
	if inner, ok := s.(*Offset); ok {
		// Flatten nested offsets into a single local pose.
		return NewOffset(inner.shape, inner.worldPose(local))
	}
	return &Offset{shape: s, local: local}
}

// Shape returns the wrapped shape.
func (o *Offset) Shape() Shape {
	return o.shape
}

// Local returns the local pose, or nil when there is none.
func (o *Offset) Local() spatialmath.Pose {
	return o.local
}

func (o *Offset) worldPose(pose spatialmath.Pose) spatialmath.Pose {
	switch {
	case o.local == nil:
		return pose
	case pose == nil:
		return o.local
	default:
		return spatialmath.Compose(pose, o.local)
	}
}

// Kind returns the kind of the wrapped shape.
func (o *Offset) Kind() Kind {
	return o.shape.Kind()
}

// Support returns the wrapped shape's support at the composition of pose and the local pose.
func (o *Offset) Support(dir r3.Vector, pose spatialmath.Pose) r3.Vector {
	return o.shape.Support(dir, o.worldPose(pose))
}

// MaxDistanceFromOrigin includes the local pose.
func (o *Offset) MaxDistanceFromOrigin(local spatialmath.Pose) float64 {
	return o.shape.MaxDistanceFromOrigin(o.worldPose(local))
}

// Sphere is only meaningful when the wrapped shape is Spherical; ok is false otherwise.
func (o *Offset) Sphere(pose spatialmath.Pose) (center r3.Vector, radius float64, ok bool) {
	s, ok := o.shape.(Spherical)
	if !ok {
		return r3.Vector{}, 0, false
	}
	center, radius = s.Sphere(o.worldPose(pose))
	return center, radius, true
}

func (o *Offset) String() string {
	if o.local == nil {
		return o.shape.String()
	}
	return fmt.Sprintf("%s | Offset: %v", o.shape.String(), o.local)
}

// AsSphere returns the world sphere of s at pose when s is a ball, a bounding sphere
// or an offset wrapping one.
func AsSphere(s Shape, pose spatialmath.Pose) (r3.Vector, float64, bool) {
	switch sph := s.(type) {
	case *Offset:
		return sph.Sphere(pose)
	case Spherical:
		center, radius := sph.Sphere(pose)
		return center, radius, true
	default:
		return r3.Vector{}, 0, false
	}
}
