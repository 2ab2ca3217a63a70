// Package spatialmath defines rigid transforms and the rotation helpers used by the shape and proximity packages.
package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid transform: a rotation followed by a translation.
// Transforming a point p gives Orientation * p + Point.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type quatPose struct {
	point r3.Vector
	rot   quat.Number
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return &quatPose{rot: quat.Number{Real: 1}}
}

// NewPose returns a pose at point with orientation o. A nil orientation means no rotation.
func NewPose(point r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(point)
	}
	return &quatPose{point: point, rot: NewQuaternion(o.Quaternion()).Quaternion()}
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &quatPose{point: point, rot: quat.Number{Real: 1}}
}

func (p *quatPose) Point() r3.Vector {
	return p.point
}

func (p *quatPose) Orientation() Orientation {
	q := quaternion(p.rot)
	return &q
}

func (p *quatPose) String() string {
	aa := QuatToR4AA(p.rot)
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f TH:%.4f RX:%.4f RY:%.4f RZ:%.4f}",
		p.point.X, p.point.Y, p.point.Z, aa.Theta, aa.RX, aa.RY, aa.RZ)
}

// RotateVector applies only the rotation of o to v.
func RotateVector(o Orientation, v r3.Vector) r3.Vector {
	return rotate(o.Quaternion(), v)
}

// rotate computes q v q* for unit q without building the full product.
func rotate(q quat.Number, v r3.Vector) r3.Vector {
	u := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	t := u.Cross(v).Mul(2)
	return v.Add(t.Mul(q.Real)).Add(u.Cross(t))
}

// Transform maps a point expressed in the pose's frame into its parent frame.
func Transform(p Pose, point r3.Vector) r3.Vector {
	if p == nil {
		return point
	}
	return RotateVector(p.Orientation(), point).Add(p.Point())
}

// InverseTransform maps a parent-frame point into the pose's frame.
func InverseTransform(p Pose, point r3.Vector) r3.Vector {
	if p == nil {
		return point
	}
	return rotate(quat.Conj(p.Orientation().Quaternion()), point.Sub(p.Point()))
}

// Compose returns the pose equivalent to applying b and then a, so that
// Transform(Compose(a, b), p) == Transform(a, Transform(b, p)).
func Compose(a, b Pose) Pose {
	qa := a.Orientation().Quaternion()
	qb := b.Orientation().Quaternion()
	return &quatPose{
		point: rotate(qa, b.Point()).Add(a.Point()),
		rot:   normalize(quat.Mul(qa, qb)),
	}
}

// PoseInverse returns the pose that undoes p.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.Orientation().Quaternion())
	return &quatPose{point: rotate(inv, p.Point()).Mul(-1), rot: inv}
}

// PoseBetween returns the displacement from a to b, the pose d such that Compose(a, d) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseDelta returns the translation length and rotation angle of p.
func PoseDelta(p Pose) (translation, angle float64) {
	return p.Point().Norm(), RotationAngle(p.Orientation())
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same within epsilon.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon) &&
		RotationAngle(OrientationBetween(a.Orientation(), b.Orientation())) < epsilon
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return a.Sub(b).Norm() < epsilon
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}
