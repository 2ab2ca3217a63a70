package shape

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/proximity/spatialmath"
)

// Ordered list of box vertices.
var boxVertices = [8]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// Box is a rectangular prism centered on its local origin described by its half extents.
// A Box built with NewBox stays aligned with the world axes whatever the rotation of
// its pose. A Box built with NewOBB rotates with its pose.
type Box struct {
	halfSize [3]float64
	oriented bool
}

// NewBox instantiates an axis aligned box with the given full dimensions.
func NewBox(dims r3.Vector) (*Box, error) {
	return newBox(dims, false)
}

// NewOBB instantiates an oriented box with the given full dimensions.
func NewOBB(dims r3.Vector) (*Box, error) {
	return newBox(dims, true)
}

// OBBOf returns the oriented box matching the local axis aligned bounds of s, along with
// the local pose that centers it on s.
func OBBOf(s Shape) (*Offset, error) {
	lo, hi := AABB(s, nil)
	box, err := NewOBB(hi.Sub(lo))
	if err != nil {
		return nil, err
	}
	return NewOffset(box, spatialmath.NewPoseFromPoint(lo.Add(hi).Mul(0.5))), nil
}

func newBox(dims r3.Vector, oriented bool) (*Box, error) {
	kind := KindBox
	if oriented {
		kind = KindOBB
	}
	// Zero dimensions are allowed for flat bounding boxes.
	for _, d := range []float64{dims.X, dims.Y, dims.Z} {
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, newBadDimensionsError(kind, fmt.Sprintf("dims %v", dims))
		}
	}
	halfSize := dims.Mul(0.5)
	return &Box{halfSize: [3]float64{halfSize.X, halfSize.Y, halfSize.Z}, oriented: oriented}, nil
}

// HalfSize returns the half extents of the box.
func (b *Box) HalfSize() r3.Vector {
	return r3.Vector{X: b.halfSize[0], Y: b.halfSize[1], Z: b.halfSize[2]}
}

// Kind returns KindOBB for oriented boxes and KindBox otherwise.
func (b *Box) Kind() Kind {
	if b.oriented {
		return KindOBB
	}
	return KindBox
}

// Support returns the corner of the box farthest along dir. Ties resolve to the positive half extent.
func (b *Box) Support(dir r3.Vector, pose spatialmath.Pose) r3.Vector {
	pose = poseOrIdentity(pose)
	if !b.oriented {
		return pose.Point().Add(b.corner(dir))
	}
	rm := pose.Orientation().RotationMatrix()
	return rm.ToParent(b.corner(rm.ToLocal(dir))).Add(pose.Point())
}

func (b *Box) corner(localDir r3.Vector) r3.Vector {
	pick := func(d, h float64) float64 {
		if d < 0 {
			return -h
		}
		return h
	}
	return r3.Vector{
		X: pick(localDir.X, b.halfSize[0]),
		Y: pick(localDir.Y, b.halfSize[1]),
		Z: pick(localDir.Z, b.halfSize[2]),
	}
}

// vertices returns the corners of the box at the given pose.
func (b *Box) vertices(pose spatialmath.Pose) []r3.Vector {
	pose = poseOrIdentity(pose)
	verts := make([]r3.Vector, 0, len(boxVertices))
	for _, v := range boxVertices {
		local := r3.Vector{X: v.X * b.halfSize[0], Y: v.Y * b.halfSize[1], Z: v.Z * b.halfSize[2]}
		if b.oriented {
			verts = append(verts, spatialmath.Transform(pose, local))
		} else {
			verts = append(verts, pose.Point().Add(local))
		}
	}
	return verts
}

// MaxDistanceFromOrigin returns the distance of the farthest corner.
func (b *Box) MaxDistanceFromOrigin(local spatialmath.Pose) float64 {
	maxDist := 0.
	for _, v := range b.vertices(local) {
		maxDist = math.Max(maxDist, v.Norm())
	}
	return maxDist
}

func (b *Box) String() string {
	return fmt.Sprintf("Type: %s | Dims: X:%.3f, Y:%.3f, Z:%.3f",
		b.Kind(), 2*b.halfSize[0], 2*b.halfSize[1], 2*b.halfSize[2])
}
