// Package bvh implements a bounding volume hierarchy over posed shapes, used to
// prune the pairs handed to the narrow phase.
package bvh

import (
	"iter"
	"math"
	"slices"

	"go.viam.com/proximity/shape"
	"go.viam.com/proximity/spatialmath"
	"go.viam.com/proximity/utils"
)

const noChild = -1

type node[V Volume[V]] struct {
	volume      V
	left, right int
	// leaf is the index of the shape held by a leaf node, or noChild for internal nodes.
	leaf  int
	count int
}

func (n *node[V]) isLeaf() bool {
	return n.leaf != noChild
}

// Tree is a binary bounding volume hierarchy stored in a flat arena.
// It is a read-only index of the poses it was built with; call Rebuild when they change.
type Tree[V Volume[V]] struct {
	nodes     []node[V]
	root      int
	leafNodes []int
	shapes    []shape.Shape
	leafFn    LeafFunc[V]
}

// Build computes a leaf volume per posed shape and merges them bottom up, splitting
// at the median along the axis with the largest spread of leaf centers.
func Build[V Volume[V]](shapes []shape.Shape, poses []spatialmath.Pose, leafFn LeafFunc[V]) (*Tree[V], error) {
	t := &Tree[V]{shapes: shapes, leafFn: leafFn, root: noChild}
	if err := t.Rebuild(poses); err != nil {
		return nil, err
	}
	return t, nil
}

// BuildAABB builds a tree of axis aligned boxes.
func BuildAABB(shapes []shape.Shape, poses []spatialmath.Pose) (*Tree[AABB], error) {
	return Build(shapes, poses, AABBOf)
}

// BuildSphere builds a tree of bounding spheres.
func BuildSphere(shapes []shape.Shape, poses []spatialmath.Pose) (*Tree[Sphere], error) {
	return Build(shapes, poses, SphereOf)
}

// Len returns the number of leaves.
func (t *Tree[V]) Len() int {
	return len(t.shapes)
}

// Root returns the volume enclosing every leaf; ok is false for an empty tree.
func (t *Tree[V]) Root() (v V, ok bool) {
	if t.root == noChild {
		return v, false
	}
	return t.nodes[t.root].volume, true
}

// Rebuild recomputes every leaf volume at poses and rebuilds the topology, reusing the arena.
func (t *Tree[V]) Rebuild(poses []spatialmath.Pose) error {
	leaves, err := t.leafVolumes(poses)
	if err != nil {
		return err
	}
	t.nodes = t.nodes[:0]
	t.root = noChild
	t.leafNodes = slices.Grow(t.leafNodes[:0], len(leaves))[:len(leaves)]
	if len(leaves) == 0 {
		return nil
	}

	type task struct {
		indices []int
		// parent is the node whose child slot this task fills; noChild for the root.
		parent int
		isLeft bool
	}
	order := make([]int, len(leaves))
	for i := range order {
		order[i] = i
	}
	stack := []task{{indices: order, parent: noChild}}
	// Internal nodes get their volumes once both children exist, so record them for a reverse pass.
	var internal []int
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx := len(t.nodes)
		if len(cur.indices) == 1 {
			leaf := cur.indices[0]
			t.nodes = append(t.nodes, node[V]{volume: leaves[leaf], left: noChild, right: noChild, leaf: leaf, count: 1})
			t.leafNodes[leaf] = idx
		} else {
			t.nodes = append(t.nodes, node[V]{left: noChild, right: noChild, leaf: noChild})
			internal = append(internal, idx)
			left, right := splitMedian(cur.indices, leaves)
			stack = append(stack, task{indices: right, parent: idx}, task{indices: left, parent: idx, isLeft: true})
		}
		switch {
		case cur.parent == noChild:
			t.root = idx
		case cur.isLeft:
			t.nodes[cur.parent].left = idx
		default:
			t.nodes[cur.parent].right = idx
		}
	}
	// Children are always appended after their parent, so walking backwards merges bottom up.
	for i := len(internal) - 1; i >= 0; i-- {
		n := &t.nodes[internal[i]]
		n.volume = t.nodes[n.left].volume.Merge(t.nodes[n.right].volume)
		n.count = t.nodes[n.left].count + t.nodes[n.right].count
	}
	return nil
}

func (t *Tree[V]) leafVolumes(poses []spatialmath.Pose) ([]V, error) {
	if len(poses) != len(t.shapes) {
		return nil, utils.NewLengthMismatchError("bvh poses", len(t.shapes), len(poses))
	}
	leaves := make([]V, len(t.shapes))
	for i, s := range t.shapes {
		leaves[i] = t.leafFn(s, poses[i])
	}
	return leaves, nil
}

// splitMedian partitions indices in half along the axis with the widest spread of centers.
func splitMedian[V Volume[V]](indices []int, leaves []V) ([]int, []int) {
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, i := range indices {
		c := leaves[i].Center()
		for axis, v := range [3]float64{c.X, c.Y, c.Z} {
			lo[axis] = math.Min(lo[axis], v)
			hi[axis] = math.Max(hi[axis], v)
		}
	}
	axis := 0
	for i := 1; i < 3; i++ {
		if hi[i]-lo[i] > hi[axis]-lo[axis] {
			axis = i
		}
	}
	coord := func(i int) float64 {
		c := leaves[i].Center()
		return [3]float64{c.X, c.Y, c.Z}[axis]
	}
	sorted := slices.Clone(indices)
	slices.SortStableFunc(sorted, func(a, b int) int {
		switch ca, cb := coord(a), coord(b); {
		case ca < cb:
			return -1
		case ca > cb:
			return 1
		default:
			return a - b
		}
	})
	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

// Pairs lazily yields every leaf pair (i from t, j from other) whose ancestor volumes all
// satisfy keep. Passing the same tree twice yields ordered pairs including (i, i).
// keep must be monotone: if it rejects two volumes it must reject anything they contain.
func (t *Tree[V]) Pairs(other *Tree[V], keep func(a, b V) bool) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		if t.root == noChild || other.root == noChild {
			return
		}
		type frame struct{ a, b int }
		stack := []frame{{t.root, other.root}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			na, nb := &t.nodes[f.a], &other.nodes[f.b]
			if !keep(na.volume, nb.volume) {
				continue
			}
			switch {
			case na.isLeaf() && nb.isLeaf():
				if !yield(na.leaf, nb.leaf) {
					return
				}
			case nb.isLeaf() || (!na.isLeaf() && na.count >= nb.count):
				stack = append(stack, frame{na.right, f.b}, frame{na.left, f.b})
			default:
				stack = append(stack, frame{f.a, nb.right}, frame{f.a, nb.left})
			}
		}
	}
}

// Overlapping yields the leaf pairs whose volumes overlap.
func (t *Tree[V]) Overlapping(other *Tree[V]) iter.Seq2[int, int] {
	return t.Pairs(other, func(a, b V) bool { return a.Overlaps(b) })
}

// WithinDistance yields the leaf pairs whose volumes are closer than threshold.
func (t *Tree[V]) WithinDistance(other *Tree[V], threshold float64) iter.Seq2[int, int] {
	return t.Pairs(other, func(a, b V) bool { return a.SignedDistance(b) <= threshold })
}

// SignedDistance is the distance between the root volumes of two trees, a lower bound on
// the distance between any of their shapes. It is +Inf when either tree is empty.
func (t *Tree[V]) SignedDistance(other *Tree[V]) float64 {
	a, okA := t.Root()
	b, okB := other.Root()
	if !okA || !okB {
		return math.Inf(1)
	}
	return a.SignedDistance(b)
}

// LeafVolume returns the volume of leaf i.
func (t *Tree[V]) LeafVolume(i int) V {
	if i < 0 || i >= len(t.leafNodes) {
		panic(utils.NewIndexOutOfRangeError("bvh leaf", i, len(t.shapes)))
	}
	return t.nodes[t.leafNodes[i]].volume
}
