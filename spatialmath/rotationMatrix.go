package spatialmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a 3x3 matrix in row order. Row i is the i-th axis of the
// rotated frame expressed in the parent frame.
type RotationMatrix struct {
	mat [9]float64
}

// QuatToRotationMatrix converts a quaternion to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	m := mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Normalize().Mat4().Mat3()
	rm := &RotationMatrix{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			// mgl64 matrices map local to parent, so its columns are our rows.
			rm.mat[3*i+j] = m.At(j, i)
		}
	}
	return rm
}

// Row returns the i-th row of the matrix.
func (rm *RotationMatrix) Row(i int) r3.Vector {
	return r3.Vector{X: rm.mat[3*i], Y: rm.mat[3*i+1], Z: rm.mat[3*i+2]}
}

// At returns the entry at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// ToLocal expresses a parent-frame vector in the rotated frame.
func (rm *RotationMatrix) ToLocal(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Row(0).Dot(v), Y: rm.Row(1).Dot(v), Z: rm.Row(2).Dot(v)}
}

// ToParent expresses a rotated-frame vector in the parent frame.
func (rm *RotationMatrix) ToParent(v r3.Vector) r3.Vector {
	return rm.Row(0).Mul(v.X).Add(rm.Row(1).Mul(v.Y)).Add(rm.Row(2).Mul(v.Z))
}
