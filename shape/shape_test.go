package shape

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/proximity/spatialmath"
)

func makeTestShapes(t *testing.T) map[string]Shape {
	t.Helper()
	ball, err := NewBall(1.5)
	test.That(t, err, test.ShouldBeNil)
	obb, err := NewOBB(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)
	hull, err := NewConvexHull([]r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 2, Y: 0, Z: 0},
		{X: 0, Y: 2, Z: 0},
		{X: 0, Y: 0, Z: 2},
		{X: 0.2, Y: 0.2, Z: 0.2},
	})
	test.That(t, err, test.ShouldBeNil)
	sphere, err := NewBoundingSphere(r3.Vector{X: 1}, 0.5)
	test.That(t, err, test.ShouldBeNil)
	return map[string]Shape{
		"ball":   ball,
		"obb":    obb,
		"hull":   hull,
		"sphere": sphere,
		"offset": NewOffset(obb, spatialmath.NewPose(r3.Vector{Y: 1}, &spatialmath.R4AA{Theta: 0.4, RX: 1})),
	}
}

// samplePoints returns points known to lie in s placed at pose.
func samplePoints(s Shape, pose spatialmath.Pose, rng *rand.Rand) []r3.Vector {
	var pts []r3.Vector
	for i := 0; i < 200; i++ {
		pts = append(pts, s.Support(spatialmath.RandomVector(rng, 1), pose))
	}
	return pts
}

func TestSupportIsExtremal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for name, s := range makeTestShapes(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				pose := spatialmath.RandomPose(rng, 4)
				pts := samplePoints(s, pose, rng)
				for j := 0; j < 20; j++ {
					dir := spatialmath.RandomVector(rng, 1)
					sup := s.Support(dir, pose)
					for _, p := range pts {
						test.That(t, sup.Dot(dir), test.ShouldBeGreaterThanOrEqualTo, p.Dot(dir)-1e-9)
					}
				}
			}
		})
	}
}

func TestSupportZeroDirection(t *testing.T) {
	pose := spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	for name, s := range makeTestShapes(t) {
		t.Run(name, func(t *testing.T) {
			p := s.Support(r3.Vector{}, pose)
			test.That(t, math.IsNaN(p.X+p.Y+p.Z), test.ShouldBeFalse)
			test.That(t, p, test.ShouldResemble, s.Support(r3.Vector{}, pose))
		})
	}
	ball, err := NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ball.Support(r3.Vector{}, pose), test.ShouldResemble, pose.Point())
}

func TestBallSupport(t *testing.T) {
	ball, err := NewBall(2)
	test.That(t, err, test.ShouldBeNil)
	pose := spatialmath.NewPose(r3.Vector{X: 1}, &spatialmath.R4AA{Theta: 1, RY: 1})
	p := ball.Support(r3.Vector{Y: 5}, pose)
	test.That(t, spatialmath.R3VectorAlmostEqual(p, r3.Vector{X: 1, Y: 2}, 1e-12), test.ShouldBeTrue)
}

func TestBoxSupport(t *testing.T) {
	aabb, err := NewBox(r3.Vector{X: 2, Y: 4, Z: 6})
	test.That(t, err, test.ShouldBeNil)
	obb, err := NewOBB(r3.Vector{X: 2, Y: 4, Z: 6})
	test.That(t, err, test.ShouldBeNil)
	quarterZ := spatialmath.NewPose(r3.Vector{X: 10}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
	dir := r3.Vector{X: 1, Y: 1, Z: 1}

	// The axis aligned box ignores the rotation.
	test.That(t, spatialmath.R3VectorAlmostEqual(aabb.Support(dir, quarterZ), r3.Vector{X: 11, Y: 2, Z: 3}, 1e-9), test.ShouldBeTrue)
	// The oriented box's local y axis now points along world -x.
	test.That(t, spatialmath.R3VectorAlmostEqual(obb.Support(dir, quarterZ), r3.Vector{X: 12, Y: 1, Z: 3}, 1e-9), test.ShouldBeTrue)

	test.That(t, Rigid(aabb), test.ShouldBeFalse)
	test.That(t, Rigid(obb), test.ShouldBeTrue)
	test.That(t, Rigid(NewOffset(aabb, nil)), test.ShouldBeFalse)
}

func TestAlignedHullSupport(t *testing.T) {
	points := []r3.Vector{{}, {X: 2}, {Y: 1}, {Z: 1}}
	hull, err := NewConvexHull(points)
	test.That(t, err, test.ShouldBeNil)
	aligned, err := NewAlignedConvexHull(points)
	test.That(t, err, test.ShouldBeNil)
	quarterZ := spatialmath.NewPose(r3.Vector{X: 10}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
	dir := r3.Vector{X: 1}

	test.That(t, spatialmath.R3VectorAlmostEqual(aligned.Support(dir, quarterZ), r3.Vector{X: 12}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(hull.Support(dir, quarterZ), r3.Vector{X: 10}, 1e-9), test.ShouldBeTrue)
	test.That(t, aligned.MaxDistanceFromOrigin(quarterZ), test.ShouldAlmostEqual, 12)

	test.That(t, aligned.Kind(), test.ShouldEqual, KindAlignedConvexHull)
	test.That(t, Rigid(aligned), test.ShouldBeFalse)
	test.That(t, Rigid(hull), test.ShouldBeTrue)
	test.That(t, aligned.String(), test.ShouldContainSubstring, string(KindAlignedConvexHull))
}

func TestHullTieBreak(t *testing.T) {
	hull, err := NewConvexHull([]r3.Vector{{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1}, {Z: 1}})
	test.That(t, err, test.ShouldBeNil)
	p := hull.Support(r3.Vector{X: 1}, nil)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: 1, Y: 1})
}

func TestConstructionErrors(t *testing.T) {
	_, err := NewBall(0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewBall(math.NaN())
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewBox(r3.Vector{X: -1})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewBox(r3.Vector{})
	test.That(t, err, test.ShouldBeNil)
	_, err = NewBoundingSphere(r3.Vector{}, -1)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewConvexHull([]r3.Vector{{}, {X: 1}, {Y: 1}})
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 4 points")
	_, err = NewConvexHull([]r3.Vector{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}, {X: 3, Y: -2}})
	test.That(t, err, test.ShouldBeError, ErrDegenerateHull)
	_, err = NewConvexHull([]r3.Vector{{}, {X: 1}, {X: 2}, {X: 3}})
	test.That(t, err, test.ShouldBeError, ErrDegenerateHull)
	_, err = NewConvexHull([]r3.Vector{{}, {X: 1}, {Y: 1}, {Z: math.Inf(1)}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMaxDistanceFromOrigin(t *testing.T) {
	ball, err := NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ball.MaxDistanceFromOrigin(nil), test.ShouldEqual, 1)
	test.That(t, ball.MaxDistanceFromOrigin(spatialmath.NewPoseFromPoint(r3.Vector{Y: 3})), test.ShouldEqual, 4)

	box, err := NewOBB(r3.Vector{X: 2, Y: 2, Z: 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, box.MaxDistanceFromOrigin(nil), test.ShouldAlmostEqual, math.Sqrt(3))
	offset := NewOffset(box, spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	test.That(t, offset.MaxDistanceFromOrigin(nil), test.ShouldAlmostEqual, math.Sqrt(6))

	// Every support point lies within the bound.
	rng := rand.New(rand.NewSource(5))
	for name, s := range makeTestShapes(t) {
		h := s.MaxDistanceFromOrigin(nil)
		for i := 0; i < 100; i++ {
			p := s.Support(spatialmath.RandomVector(rng, 1), nil)
			test.That(t, p.Norm(), test.ShouldBeLessThanOrEqualTo, h+1e-9)
		}
		test.That(t, name, test.ShouldNotBeEmpty)
	}
}

func TestOffsetAppliesLocalPoseFirst(t *testing.T) {
	ball, err := NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	local := spatialmath.NewPoseFromPoint(r3.Vector{X: 2})
	world := spatialmath.NewPose(r3.Vector{Z: 5}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
	offset := NewOffset(ball, local)

	center, radius, ok := AsSphere(offset, world)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, radius, test.ShouldEqual, 1)
	test.That(t, spatialmath.R3VectorAlmostEqual(center, r3.Vector{Y: 2, Z: 5}, 1e-9), test.ShouldBeTrue)

	nested := NewOffset(offset, spatialmath.NewPoseFromPoint(r3.Vector{Y: 1}))
	test.That(t, nested.Shape(), test.ShouldEqual, ball)
	center, _, _ = AsSphere(nested, nil)
	test.That(t, spatialmath.R3VectorAlmostEqual(center, r3.Vector{X: 2, Y: 1}, 1e-9), test.ShouldBeTrue)

	box, err := NewOBB(r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	_, _, ok = AsSphere(NewOffset(box, local), world)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestWorldBounds(t *testing.T) {
	box, err := NewOBB(r3.Vector{X: 2, Y: 2, Z: 2})
	test.That(t, err, test.ShouldBeNil)
	pose := spatialmath.NewPose(r3.Vector{X: 5}, &spatialmath.R4AA{Theta: math.Pi / 4, RZ: 1})
	lo, hi := AABB(box, pose)
	test.That(t, lo.X, test.ShouldAlmostEqual, 5-math.Sqrt2)
	test.That(t, hi.Y, test.ShouldAlmostEqual, math.Sqrt2)
	test.That(t, hi.Z, test.ShouldAlmostEqual, 1)

	center, radius := BoundingSphere(box, pose)
	test.That(t, spatialmath.R3VectorAlmostEqual(center, r3.Vector{X: 5}, 1e-9), test.ShouldBeTrue)
	test.That(t, radius, test.ShouldAlmostEqual, math.Sqrt(3))

	sphere, err := BoundingSphereOf(box)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sphere.Radius(), test.ShouldAlmostEqual, math.Sqrt(3))

	hull, err := NewConvexHull([]r3.Vector{{}, {X: 2}, {Y: 2}, {Z: 2}})
	test.That(t, err, test.ShouldBeNil)
	obb, err := OBBOf(hull)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obb.Kind(), test.ShouldEqual, KindOBB)
	test.That(t, spatialmath.R3VectorAlmostEqual(obb.Local().Point(), r3.Vector{X: 1, Y: 1, Z: 1}, 1e-9), test.ShouldBeTrue)
}

func TestConfigRoundTrip(t *testing.T) {
	configs := []*Config{
		{Type: KindBall, R: 2},
		{Type: KindBox, X: 1, Y: 2, Z: 3},
		{Type: KindOBB, X: 1, Y: 2, Z: 3, TranslationOffset: r3.Vector{X: 1}},
		{Type: KindBoundingSphere, R: 1, Center: r3.Vector{Z: 1}},
		{Type: KindConvexHull, Points: []r3.Vector{{}, {X: 1}, {Y: 1}, {Z: 1}}},
		{Type: KindAlignedConvexHull, Points: []r3.Vector{{}, {X: 1}, {Y: 1}, {Z: 1}}},
	}
	for _, config := range configs {
		t.Run(string(config.Type), func(t *testing.T) {
			s, err := config.ParseConfig()
			test.That(t, err, test.ShouldBeNil)
			test.That(t, s.Kind(), test.ShouldEqual, config.Type)
			back, err := NewConfig(s)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, back.Type, test.ShouldEqual, config.Type)
			test.That(t, back.R, test.ShouldEqual, config.R)
			test.That(t, back.X, test.ShouldEqual, config.X)
			test.That(t, back.TranslationOffset, test.ShouldResemble, config.TranslationOffset)
		})
	}

	_, err := (&Config{Type: "capsule"}).ParseConfig()
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported shape type")
	_, err = (&Config{Type: KindBall}).ParseConfig()
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot parse ball config")
}
