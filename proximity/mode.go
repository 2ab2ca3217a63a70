// Package proximity runs narrow phase queries over every selected pair of two shape groups.
package proximity

import (
	"fmt"
	"iter"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/proximity/utils"
)

// Pair identifies shape I of group A and shape J of group B.
type Pair struct {
	I, J int
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.I, p.J)
}

type modeKind int

const (
	allPairs modeKind = iota
	skipSymmetric
	subset
)

// QueryMode selects which pairs of two groups a query visits.
type QueryMode struct {
	kind  modeKind
	pairs []Pair
}

var (
	// AllPairs visits every (i, j).
	AllPairs = QueryMode{kind: allPairs}
	// SkipSymmetric visits (i, j) only when i < j. Use it when both groups are the same.
	SkipSymmetric = QueryMode{kind: skipSymmetric}
)

// SubsetOf visits exactly the given pairs, in order.
func SubsetOf(pairs []Pair) QueryMode {
	return QueryMode{kind: subset, pairs: append([]Pair(nil), pairs...)}
}

// IsSubset reports whether the mode holds an explicit pair list.
func (m QueryMode) IsSubset() bool {
	return m.kind == subset
}

func (m QueryMode) String() string {
	switch m.kind {
	case allPairs:
		return "all"
	case skipSymmetric:
		return "skip_symmetric"
	default:
		return fmt.Sprintf("subset(%d)", len(m.pairs))
	}
}

// Pairs yields the pairs visited over groups of sizes nA and nB.
func (m QueryMode) Pairs(nA, nB int) iter.Seq[Pair] {
	return func(yield func(Pair) bool) {
		switch m.kind {
		case subset:
			for _, p := range m.pairs {
				if !yield(p) {
					return
				}
			}
		default:
			for i := 0; i < nA; i++ {
				j := 0
				if m.kind == skipSymmetric {
					j = i + 1
				}
				for ; j < nB; j++ {
					if !yield(Pair{i, j}) {
						return
					}
				}
			}
		}
	}
}

// Validate checks that every pair of a subset addresses groups of sizes nA and nB.
func (m QueryMode) Validate(nA, nB int) error {
	for _, p := range m.pairs {
		if p.I < 0 || p.I >= nA {
			return utils.NewIndexOutOfRangeError("group A", p.I, nA)
		}
		if p.J < 0 || p.J >= nB {
			return utils.NewIndexOutOfRangeError("group B", p.J, nB)
		}
	}
	return nil
}

// SkipMask marks pairs that queries should never visit, such as shapes that are always
// in contact by construction. A nil mask skips nothing.
type SkipMask struct {
	m *mat.Dense
}

// NewSkipMask returns a mask over groups of sizes nA and nB that skips nothing.
func NewSkipMask(nA, nB int) *SkipMask {
	if nA == 0 || nB == 0 {
		return &SkipMask{}
	}
	return &SkipMask{m: mat.NewDense(nA, nB, nil)}
}

// Set marks (i, j) as skipped or not.
func (s *SkipMask) Set(i, j int, skip bool) {
	v := 0.
	if skip {
		v = 1
	}
	s.m.Set(i, j, v)
}

// SetSymmetric marks both (i, j) and (j, i).
func (s *SkipMask) SetSymmetric(i, j int, skip bool) {
	s.Set(i, j, skip)
	s.Set(j, i, skip)
}

// Skip reports whether (i, j) is skipped.
func (s *SkipMask) Skip(i, j int) bool {
	if s == nil || s.m == nil {
		return false
	}
	return s.m.At(i, j) != 0
}

// Dims returns the group sizes the mask covers.
func (s *SkipMask) Dims() (int, int) {
	if s == nil || s.m == nil {
		return 0, 0
	}
	return s.m.Dims()
}
