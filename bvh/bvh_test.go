package bvh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/proximity/narrowphase"
	"go.viam.com/proximity/shape"
	"go.viam.com/proximity/spatialmath"
)

func randomScene(t *testing.T, rng *rand.Rand, n int, spread float64) ([]shape.Shape, []spatialmath.Pose) {
	t.Helper()
	shapes := make([]shape.Shape, n)
	poses := make([]spatialmath.Pose, n)
	for i := range shapes {
		var (
			s   shape.Shape
			err error
		)
		if i%2 == 0 {
			s, err = shape.NewOBB(r3.Vector{X: 0.2 + rng.Float64(), Y: 0.2 + rng.Float64(), Z: 0.2 + rng.Float64()})
		} else {
			s, err = shape.NewBall(0.1 + 0.5*rng.Float64())
		}
		test.That(t, err, test.ShouldBeNil)
		shapes[i] = s
		poses[i] = spatialmath.RandomPose(rng, spread)
	}
	return shapes, poses
}

func collect(seq func(func(int, int) bool)) map[[2]int]bool {
	out := map[[2]int]bool{}
	for i, j := range seq {
		out[[2]int{i, j}] = true
	}
	return out
}

func TestAABB(t *testing.T) {
	a := AABB{Min: r3.Vector{}, Max: r3.Vector{X: 1, Y: 1, Z: 1}}
	b := AABB{Min: r3.Vector{X: 3, Y: 5}, Max: r3.Vector{X: 4, Y: 6, Z: 1}}

	merged := a.Merge(b)
	test.That(t, merged, test.ShouldResemble, AABB{Min: r3.Vector{}, Max: r3.Vector{X: 4, Y: 6, Z: 1}})
	test.That(t, merged.Contains(a), test.ShouldBeTrue)
	test.That(t, merged.Contains(b), test.ShouldBeTrue)
	test.That(t, a.Contains(merged), test.ShouldBeFalse)

	test.That(t, a.Overlaps(b), test.ShouldBeFalse)
	test.That(t, a.SignedDistance(b), test.ShouldAlmostEqual, math.Sqrt(4+16))
	test.That(t, b.SignedDistance(a), test.ShouldAlmostEqual, math.Sqrt(4+16))

	c := AABB{Min: r3.Vector{X: 0.75, Y: 0.5, Z: -1}, Max: r3.Vector{X: 2, Y: 2, Z: 2}}
	test.That(t, a.Overlaps(c), test.ShouldBeTrue)
	test.That(t, a.SignedDistance(c), test.ShouldAlmostEqual, -0.25)
	test.That(t, a.Center(), test.ShouldResemble, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5})
}

func TestSphere(t *testing.T) {
	a := Sphere{Point: r3.Vector{}, Radius: 1}
	b := Sphere{Point: r3.Vector{X: 4}, Radius: 1}
	merged := a.Merge(b)
	test.That(t, merged.Radius, test.ShouldAlmostEqual, 3)
	test.That(t, spatialmath.R3VectorAlmostEqual(merged.Center(), r3.Vector{X: 2}, 1e-9), test.ShouldBeTrue)
	test.That(t, merged.Contains(a), test.ShouldBeTrue)
	test.That(t, merged.Contains(b), test.ShouldBeTrue)
	test.That(t, a.SignedDistance(b), test.ShouldAlmostEqual, 2)
	test.That(t, a.Overlaps(b), test.ShouldBeFalse)

	inner := Sphere{Point: r3.Vector{X: 0.2}, Radius: 0.5}
	test.That(t, a.Merge(inner), test.ShouldResemble, a)
	test.That(t, inner.Merge(a), test.ShouldResemble, a)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		x := Sphere{Point: spatialmath.RandomVector(rng, 5), Radius: rng.Float64() * 3}
		y := Sphere{Point: spatialmath.RandomVector(rng, 5), Radius: rng.Float64() * 3}
		m := x.Merge(y)
		test.That(t, m.Contains(x), test.ShouldBeTrue)
		test.That(t, m.Contains(y), test.ShouldBeTrue)
	}
}

func TestBuildEmpty(t *testing.T) {
	tree, err := BuildAABB(nil, nil)
	test.That(t, err, test.ShouldBeNil)
	_, ok := tree.Root()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, tree.Len(), test.ShouldEqual, 0)
	test.That(t, len(collect(tree.Overlapping(tree))), test.ShouldEqual, 0)
	test.That(t, math.IsInf(tree.SignedDistance(tree), 1), test.ShouldBeTrue)

	_, err = BuildAABB([]shape.Shape{nil}, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBuildSingle(t *testing.T) {
	ball, err := shape.NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	tree, err := BuildSphere([]shape.Shape{ball}, []spatialmath.Pose{spatialmath.NewPoseFromPoint(r3.Vector{X: 2})})
	test.That(t, err, test.ShouldBeNil)
	root, ok := tree.Root()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, root, test.ShouldResemble, Sphere{Point: r3.Vector{X: 2}, Radius: 1})
	test.That(t, collect(tree.Overlapping(tree)), test.ShouldResemble, map[[2]int]bool{{0, 0}: true})
	test.That(t, func() { tree.LeafVolume(1) }, test.ShouldPanic)
}

func checkContainment[V Volume[V]](t *testing.T, tree *Tree[V]) {
	t.Helper()
	leaves := 0
	for i, n := range tree.nodes {
		if n.isLeaf() {
			leaves++
			test.That(t, n.count, test.ShouldEqual, 1)
			continue
		}
		test.That(t, n.left, test.ShouldBeGreaterThan, i)
		test.That(t, n.right, test.ShouldBeGreaterThan, i)
		test.That(t, n.volume.Contains(tree.nodes[n.left].volume), test.ShouldBeTrue)
		test.That(t, n.volume.Contains(tree.nodes[n.right].volume), test.ShouldBeTrue)
		test.That(t, n.count, test.ShouldEqual, tree.nodes[n.left].count+tree.nodes[n.right].count)
	}
	test.That(t, leaves, test.ShouldEqual, tree.Len())
}

func TestParentsContainChildren(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	shapes, poses := randomScene(t, rng, 37, 5)

	aabbTree, err := BuildAABB(shapes, poses)
	test.That(t, err, test.ShouldBeNil)
	checkContainment(t, aabbTree)

	sphereTree, err := BuildSphere(shapes, poses)
	test.That(t, err, test.ShouldBeNil)
	checkContainment(t, sphereTree)

	moved := make([]spatialmath.Pose, len(poses))
	for i, p := range poses {
		moved[i] = spatialmath.PerturbPose(rng, p, 1, 0.5)
	}
	test.That(t, aabbTree.Rebuild(moved), test.ShouldBeNil)
	checkContainment(t, aabbTree)
	test.That(t, aabbTree.LeafVolume(3), test.ShouldResemble, AABBOf(shapes[3], moved[3]))

	test.That(t, sphereTree.Rebuild(moved), test.ShouldBeNil)
	checkContainment(t, sphereTree)
	test.That(t, sphereTree.Rebuild(moved[:3]), test.ShouldNotBeNil)
}

func TestNoFalseNegatives(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	shapesA, posesA := randomScene(t, rng, 25, 3)
	shapesB, posesB := randomScene(t, rng, 30, 3)

	aabbA, err := BuildAABB(shapesA, posesA)
	test.That(t, err, test.ShouldBeNil)
	aabbB, err := BuildAABB(shapesB, posesB)
	test.That(t, err, test.ShouldBeNil)
	sphereA, err := BuildSphere(shapesA, posesA)
	test.That(t, err, test.ShouldBeNil)
	sphereB, err := BuildSphere(shapesB, posesB)
	test.That(t, err, test.ShouldBeNil)

	overlapAABB := collect(aabbA.Overlapping(aabbB))
	overlapSphere := collect(sphereA.Overlapping(sphereB))
	const threshold = 0.5
	nearAABB := collect(aabbA.WithinDistance(aabbB, threshold))
	nearSphere := collect(sphereA.WithinDistance(sphereB, threshold))

	colliding := 0
	for i := range shapesA {
		for j := range shapesB {
			key := [2]int{i, j}
			dist := narrowphase.Distance(shapesA[i], posesA[i], shapesB[j], posesB[j])
			if dist == 0 {
				colliding++
				test.That(t, overlapAABB[key], test.ShouldBeTrue)
				test.That(t, overlapSphere[key], test.ShouldBeTrue)
			}
			if dist <= threshold {
				test.That(t, nearAABB[key], test.ShouldBeTrue)
				test.That(t, nearSphere[key], test.ShouldBeTrue)
			}
			test.That(t, aabbA.LeafVolume(i).SignedDistance(aabbB.LeafVolume(j)), test.ShouldBeLessThanOrEqualTo, dist+1e-9)
			test.That(t, sphereA.LeafVolume(i).SignedDistance(sphereB.LeafVolume(j)), test.ShouldBeLessThanOrEqualTo, dist+1e-9)
		}
	}
	test.That(t, colliding, test.ShouldBeGreaterThan, 0)
	test.That(t, len(overlapAABB), test.ShouldBeLessThan, len(shapesA)*len(shapesB))
	test.That(t, aabbA.SignedDistance(aabbB), test.ShouldBeLessThanOrEqualTo, 0)
}

func TestSelfPairsAndEarlyStop(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	shapes, poses := randomScene(t, rng, 20, 2)
	tree, err := BuildAABB(shapes, poses)
	test.That(t, err, test.ShouldBeNil)

	pairs := collect(tree.Overlapping(tree))
	for i := range shapes {
		test.That(t, pairs[[2]int{i, i}], test.ShouldBeTrue)
	}
	for key := range pairs {
		test.That(t, pairs[[2]int{key[1], key[0]}], test.ShouldBeTrue)
	}

	seen := 0
	for range tree.Overlapping(tree) {
		seen++
		if seen == 3 {
			break
		}
	}
	test.That(t, seen, test.ShouldEqual, 3)
}
