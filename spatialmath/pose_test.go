package spatialmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestRotateVector(t *testing.T) {
	quarterZ := &R4AA{Theta: math.Pi / 2, RZ: 1}
	v := RotateVector(quarterZ, r3.Vector{X: 1})
	test.That(t, R3VectorAlmostEqual(v, r3.Vector{Y: 1}, 1e-9), test.ShouldBeTrue)

	rm := quarterZ.RotationMatrix()
	test.That(t, R3VectorAlmostEqual(rm.ToParent(r3.Vector{X: 1}), r3.Vector{Y: 1}, 1e-9), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(rm.Row(0), r3.Vector{Y: 1}, 1e-9), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(rm.ToLocal(r3.Vector{Y: 1}), r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)
}

func TestRotationMatrixAgreesWithQuaternion(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		o := RandomOrientation(rng)
		v := RandomVector(rng, 3)
		rm := o.RotationMatrix()
		test.That(t, R3VectorAlmostEqual(rm.ToParent(v), RotateVector(o, v), 1e-9), test.ShouldBeTrue)
		test.That(t, R3VectorAlmostEqual(rm.ToLocal(rm.ToParent(v)), v, 1e-9), test.ShouldBeTrue)
	}
}

func TestComposeAndInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		a := RandomPose(rng, 5)
		b := RandomPose(rng, 5)
		p := RandomVector(rng, 2)

		composed := Transform(Compose(a, b), p)
		test.That(t, R3VectorAlmostEqual(composed, Transform(a, Transform(b, p)), 1e-9), test.ShouldBeTrue)
		test.That(t, PoseAlmostEqual(Compose(a, PoseInverse(a)), NewZeroPose()), test.ShouldBeTrue)
		test.That(t, R3VectorAlmostEqual(InverseTransform(a, Transform(a, p)), p, 1e-9), test.ShouldBeTrue)
		test.That(t, PoseAlmostEqual(Compose(a, PoseBetween(a, b)), b), test.ShouldBeTrue)
	}
}

func TestRotationAngleAndLog(t *testing.T) {
	for _, theta := range []float64{0, 1e-8, 0.3, math.Pi / 2, math.Pi - 1e-6} {
		o := &R4AA{Theta: theta, RX: 1, RY: 1}
		test.That(t, RotationAngle(o), test.ShouldAlmostEqual, theta, 1e-9)
		test.That(t, Log(o).Norm(), test.ShouldAlmostEqual, theta, 1e-9)
	}
	// Angles past pi wrap to the shorter rotation.
	test.That(t, RotationAngle(&R4AA{Theta: 1.5 * math.Pi, RZ: 1}), test.ShouldAlmostEqual, math.Pi/2, 1e-9)

	translation, angle := PoseDelta(NewPose(r3.Vector{X: 3, Y: 4}, &R4AA{Theta: 0.25, RZ: 1}))
	test.That(t, translation, test.ShouldAlmostEqual, 5)
	test.That(t, angle, test.ShouldAlmostEqual, 0.25)
}

func TestR4AAConversions(t *testing.T) {
	aa := &R4AA{Theta: 0.7, RX: 0, RY: 3, RZ: 4}
	back := QuatToR4AA(aa.ToQuat())
	test.That(t, back.Theta, test.ShouldAlmostEqual, 0.7)
	test.That(t, back.RY, test.ShouldAlmostEqual, 0.6)
	test.That(t, back.RZ, test.ShouldAlmostEqual, 0.8)
	test.That(t, R3ToR4(r3.Vector{}).Theta, test.ShouldEqual, 0)
	test.That(t, R3ToR4(back.ToR3()).Theta, test.ShouldAlmostEqual, 0.7)
	test.That(t, (&R4AA{Theta: 1}).ToQuat().Real, test.ShouldEqual, 1)
}

func TestPerturbPose(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := RandomPose(rng, 1)
	q := PerturbPose(rng, p, 0.1, 0.05)
	translation, angle := PoseDelta(PoseBetween(p, q))
	test.That(t, translation, test.ShouldBeLessThanOrEqualTo, 0.1*math.Sqrt(3)+1e-9)
	test.That(t, angle, test.ShouldBeLessThanOrEqualTo, 0.05+1e-9)
}
