package narrowphase

import (
	"math"

	"github.com/golang/geo/r3"
)

type epaFace struct {
	a, b, c int
	normal  r3.Vector
	dist    float64
}

type polytope struct {
	verts    []supportPoint
	faces    []epaFace
	interior r3.Vector
}

// penetration is the EPA result: the normal points from the origin toward the
// closest boundary point of A - B, at depth along it.
type penetration struct {
	normal         r3.Vector
	depth          float64
	pointA, pointB r3.Vector
}

var searchDirections = []r3.Vector{
	{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
}

// expandSimplex grows a GJK simplex that encloses the origin into a tetrahedron.
// It returns false when the Minkowski difference is too flat to hold one.
func expandSimplex(p *pair, simplex []supportPoint) ([]supportPoint, bool) {
	const eps = 1e-10
	out := append([]supportPoint(nil), simplex...)

	if len(out) == 1 {
		for _, d := range searchDirections {
			if sp := p.support(d); sp.w.Sub(out[0].w).Norm() > eps {
				out = append(out, sp)
				break
			}
		}
	}
	if len(out) == 2 {
		line := out[1].w.Sub(out[0].w)
		axis := leastAlignedAxis(line)
		d1 := line.Cross(axis)
		d2 := line.Cross(d1)
		for _, d := range []r3.Vector{d1, d1.Mul(-1), d2, d2.Mul(-1)} {
			sp := p.support(d)
			if sp.w.Sub(out[0].w).Cross(line).Norm() > eps*line.Norm() {
				out = append(out, sp)
				break
			}
		}
	}
	if len(out) == 3 {
		n := out[1].w.Sub(out[0].w).Cross(out[2].w.Sub(out[0].w))
		var fallback *supportPoint
		for _, d := range []r3.Vector{n, n.Mul(-1)} {
			sp := p.support(d)
			if math.Abs(n.Dot(sp.w.Sub(out[0].w))) <= eps*n.Norm() {
				continue
			}
			candidate := append(append([]supportPoint(nil), out...), sp)
			if originInTetrahedron(candidate) {
				return candidate, true
			}
			if fallback == nil {
				fallback = &sp
			}
		}
		if fallback == nil {
			return out, false
		}
		out = append(out, *fallback)
	}
	return out, len(out) == 4
}

func leastAlignedAxis(v r3.Vector) r3.Vector {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax <= ay && ax <= az:
		return r3.Vector{X: 1}
	case ay <= az:
		return r3.Vector{Y: 1}
	default:
		return r3.Vector{Z: 1}
	}
}

func newPolytope(tetra []supportPoint) *polytope {
	poly := &polytope{verts: tetra}
	for _, v := range tetra {
		poly.interior = poly.interior.Add(v.w.Mul(0.25))
	}
	for _, f := range [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}} {
		poly.addFace(f[0], f[1], f[2])
	}
	return poly
}

// addFace adds the triangle with its normal oriented away from the polytope's interior.
func (poly *polytope) addFace(a, b, c int) {
	va, vb, vc := poly.verts[a].w, poly.verts[b].w, poly.verts[c].w
	n := vb.Sub(va).Cross(vc.Sub(va))
	norm := n.Norm()
	if norm < 1e-30 {
		// Sliver faces stay in the topology but are never chosen as closest.
		poly.faces = append(poly.faces, epaFace{a: a, b: b, c: c, dist: math.Inf(1)})
		return
	}
	n = n.Mul(1 / norm)
	if n.Dot(va.Sub(poly.interior)) < 0 {
		n = n.Mul(-1)
		b, c = c, b
	}
	poly.faces = append(poly.faces, epaFace{a: a, b: b, c: c, normal: n, dist: n.Dot(va)})
}

func (poly *polytope) closest() int {
	best := 0
	for i := 1; i < len(poly.faces); i++ {
		if poly.faces[i].dist < poly.faces[best].dist {
			best = i
		}
	}
	return best
}

// expand adds sp to the polytope, replacing every face it can see. It returns false
// when no face is visible.
func (poly *polytope) expand(sp supportPoint) bool {
	type edge struct{ from, to int }
	var horizon []edge
	addEdge := func(e edge) {
		for i, h := range horizon {
			if h.from == e.to && h.to == e.from {
				horizon = append(horizon[:i], horizon[i+1:]...)
				return
			}
		}
		horizon = append(horizon, e)
	}

	kept := poly.faces[:0]
	removed := 0
	for _, f := range poly.faces {
		if f.dist != math.Inf(1) && f.normal.Dot(sp.w.Sub(poly.verts[f.a].w)) > 1e-12 {
			addEdge(edge{f.a, f.b})
			addEdge(edge{f.b, f.c})
			addEdge(edge{f.c, f.a})
			removed++
			continue
		}
		kept = append(kept, f)
	}
	if removed == 0 {
		return false
	}
	poly.faces = kept
	poly.verts = append(poly.verts, sp)
	newIdx := len(poly.verts) - 1
	for _, e := range horizon {
		poly.addFace(e.from, e.to, newIdx)
	}
	return true
}

// epa computes the penetration of two overlapping shapes starting from the GJK simplex.
func (s Solver) epa(p *pair, simplex []supportPoint) (penetration, bool) {
	tetra, ok := expandSimplex(p, simplex)
	if !ok {
		return penetration{}, false
	}
	maxIter := s.MaxEPAIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxEPAIterations
	}
	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	poly := newPolytope(tetra)
	var face epaFace
	for iter := 0; iter < maxIter; iter++ {
		face = poly.faces[poly.closest()]
		if math.IsInf(face.dist, 1) {
			return penetration{}, false
		}
		sp := p.support(face.normal)
		if sp.w.Dot(face.normal)-face.dist <= tol {
			break
		}
		if !poly.expand(sp) {
			break
		}
	}
	face = poly.faces[poly.closest()]

	depth := math.Max(face.dist, 0)
	va, vb, vc := poly.verts[face.a], poly.verts[face.b], poly.verts[face.c]
	u, v, w, ok := barycentric(face.normal.Mul(face.dist), va.w, vb.w, vc.w)
	if !ok {
		u, v, w = 1, 0, 0
	}
	// Keep the witnesses inside their shapes when the projection lands on an edge.
	u, v, w = math.Max(u, 0), math.Max(v, 0), math.Max(w, 0)
	if sum := u + v + w; sum > 0 {
		u, v, w = u/sum, v/sum, w/sum
	} else {
		u = 1
	}
	pointA, pointB := witnesses([]supportPoint{va, vb, vc}, []float64{u, v, w})
	return penetration{normal: face.normal, depth: depth, pointA: pointA, pointB: pointB}, true
}
