package proximity

import (
	"math"
	"slices"

	"github.com/pkg/errors"

	"go.viam.com/proximity/bvh"
)

// BVHVolume names the bounding volume a broad phase hierarchy is built from.
type BVHVolume string

// Supported hierarchy volumes.
const (
	VolumeAABB   BVHVolume = "aabb"
	VolumeSphere BVHVolume = "sphere"
)

// PrunedMode uses two hierarchies to select only the pairs whose bounding volumes are within
// margin of each other. With symmetric set, the trees are assumed to index the same group and
// only pairs with i < j are kept. Pairs are sorted so results are reproducible.
func PrunedMode[V bvh.Volume[V]](a, b *bvh.Tree[V], margin float64, symmetric bool) QueryMode {
	var pairs []Pair
	for i, j := range a.WithinDistance(b, margin) {
		if symmetric && i >= j {
			continue
		}
		pairs = append(pairs, Pair{i, j})
	}
	slices.SortFunc(pairs, comparePairs)
	return SubsetOf(pairs)
}

// PrunedGroupMode builds hierarchies of the given volume over both groups and returns PrunedMode over them.
func PrunedGroupMode(a, b Group, margin float64, symmetric bool, volume BVHVolume) (QueryMode, error) {
	switch volume {
	case VolumeAABB, "":
		treeA, err := bvh.BuildAABB(a.Shapes, a.Poses)
		if err != nil {
			return QueryMode{}, err
		}
		treeB, err := bvh.BuildAABB(b.Shapes, b.Poses)
		if err != nil {
			return QueryMode{}, err
		}
		return PrunedMode(treeA, treeB, margin, symmetric), nil
	case VolumeSphere:
		treeA, err := bvh.BuildSphere(a.Shapes, a.Poses)
		if err != nil {
			return QueryMode{}, err
		}
		treeB, err := bvh.BuildSphere(b.Shapes, b.Poses)
		if err != nil {
			return QueryMode{}, err
		}
		return PrunedMode(treeA, treeB, margin, symmetric), nil
	default:
		return QueryMode{}, errors.Errorf("unknown bvh volume %q", volume)
	}
}

// Prune narrows mode to the pairs whose bounding volumes are within margin. Pairs of mode keep
// their order. An infinite margin returns mode unchanged.
func Prune(mode QueryMode, a, b Group, volume BVHVolume, margin float64) (QueryMode, error) {
	if math.IsInf(margin, 1) {
		return mode, nil
	}
	if err := a.Validate(); err != nil {
		return QueryMode{}, err
	}
	if err := b.Validate(); err != nil {
		return QueryMode{}, err
	}
	near, err := PrunedGroupMode(a, b, margin, false, volume)
	if err != nil {
		return QueryMode{}, err
	}
	keep := make(map[Pair]struct{}, len(near.pairs))
	for _, p := range near.pairs {
		keep[p] = struct{}{}
	}
	var pairs []Pair
	for p := range mode.Pairs(a.Len(), b.Len()) {
		if _, ok := keep[p]; ok {
			pairs = append(pairs, p)
		}
	}
	return SubsetOf(pairs), nil
}

func comparePairs(x, y Pair) int {
	if x.I != y.I {
		return x.I - y.I
	}
	return x.J - y.J
}
