package spatialmath

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RandomOrientation returns a uniformly distributed rotation.
func RandomOrientation(rng *rand.Rand) Orientation {
	// Shoemake's method for uniform unit quaternions.
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a, b := math.Sqrt(1-u1), math.Sqrt(u1)
	return NewQuaternion(quat.Number{
		Real: b * math.Cos(2*math.Pi*u3),
		Imag: a * math.Sin(2*math.Pi*u2),
		Jmag: a * math.Cos(2*math.Pi*u2),
		Kmag: b * math.Sin(2*math.Pi*u3),
	})
}

// RandomVector returns a vector with components uniformly drawn from [-scale, scale].
func RandomVector(rng *rand.Rand, scale float64) r3.Vector {
	return r3.Vector{
		X: (2*rng.Float64() - 1) * scale,
		Y: (2*rng.Float64() - 1) * scale,
		Z: (2*rng.Float64() - 1) * scale,
	}
}

// RandomPose returns a pose with a uniform rotation and a translation drawn from [-scale, scale] per axis.
func RandomPose(rng *rand.Rand, scale float64) Pose {
	return NewPose(RandomVector(rng, scale), RandomOrientation(rng))
}

// PerturbPose returns p moved by a random translation of at most maxTranslation per axis
// and a random rotation of at most maxAngle radians.
func PerturbPose(rng *rand.Rand, p Pose, maxTranslation, maxAngle float64) Pose {
	axis := RandomVector(rng, 1)
	if axis.Norm() == 0 {
		axis = r3.Vector{Z: 1}
	}
	delta := NewPose(RandomVector(rng, maxTranslation), &R4AA{
		Theta: rng.Float64() * maxAngle,
		RX:    axis.X,
		RY:    axis.Y,
		RZ:    axis.Z,
	})
	return Compose(p, delta)
}
