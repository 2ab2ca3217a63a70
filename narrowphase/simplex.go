package narrowphase

import (
	"math"

	"github.com/golang/geo/r3"
)

// supportPoint is a vertex of the Minkowski difference A - B together with the
// points of A and B that produced it.
type supportPoint struct {
	w, a, b r3.Vector
}

// closestOnSegment returns the closest point on segment [p, q] to the origin,
// along with the reduced simplex and the barycentric weights of the closest point in it.
func closestOnSegment(p, q supportPoint) (r3.Vector, []supportPoint, []float64) {
	ab := q.w.Sub(p.w)
	denom := ab.Norm2()
	if denom < 1e-30 {
		return p.w, []supportPoint{p}, []float64{1}
	}
	t := p.w.Mul(-1).Dot(ab) / denom
	if t <= 0 {
		return p.w, []supportPoint{p}, []float64{1}
	}
	if t >= 1 {
		return q.w, []supportPoint{q}, []float64{1}
	}
	return p.w.Add(ab.Mul(t)), []supportPoint{p, q}, []float64{1 - t, t}
}

// closestOnTriangle returns the closest point on triangle [pa, pb, pc] to the origin,
// along with the reduced simplex and weights. Uses Ericson's Voronoi region method from
// "Real-Time Collision Detection".
func closestOnTriangle(pa, pb, pc supportPoint) (r3.Vector, []supportPoint, []float64) {
	a, b, c := pa.w, pb.w, pc.w
	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)

	d1 := ab.Dot(ao)
	d2 := ac.Dot(ao)
	if d1 <= 0 && d2 <= 0 {
		return a, []supportPoint{pa}, []float64{1}
	}

	bo := b.Mul(-1)
	d3 := ab.Dot(bo)
	d4 := ac.Dot(bo)
	if d3 >= 0 && d4 <= d3 {
		return b, []supportPoint{pb}, []float64{1}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v)), []supportPoint{pa, pb}, []float64{1 - v, v}
	}

	co := c.Mul(-1)
	d5 := ab.Dot(co)
	d6 := ac.Dot(co)
	if d6 >= 0 && d5 <= d6 {
		return c, []supportPoint{pc}, []float64{1}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w)), []supportPoint{pa, pc}, []float64{1 - w, w}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w)), []supportPoint{pb, pc}, []float64{1 - w, w}
	}

	sum := va + vb + vc
	if math.Abs(sum) < 1e-30 {
		// Collinear vertices: the closest point is on one of the edges.
		return closestOnEdges(pa, pb, pc)
	}
	denom := 1.0 / sum
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w)), []supportPoint{pa, pb, pc}, []float64{1 - v - w, v, w}
}

func closestOnEdges(pa, pb, pc supportPoint) (r3.Vector, []supportPoint, []float64) {
	bestV, bestS, bestW := closestOnSegment(pa, pb)
	for _, edge := range [][2]supportPoint{{pb, pc}, {pa, pc}} {
		v, s, w := closestOnSegment(edge[0], edge[1])
		if v.Norm2() < bestV.Norm2() {
			bestV, bestS, bestW = v, s, w
		}
	}
	return bestV, bestS, bestW
}

// tetrahedronVolume returns six times the signed volume of the tetrahedron.
func tetrahedronVolume(a, b, c, d r3.Vector) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a))
}

// originInTetrahedron checks whether the origin is inside the tetrahedron
// defined by the four given points, by verifying the origin is on the interior
// side of every face.
func originInTetrahedron(pts []supportPoint) bool {
	type face struct{ v0, v1, v2, opp int }
	faces := [4]face{
		{0, 1, 2, 3},
		{0, 1, 3, 2},
		{0, 2, 3, 1},
		{1, 2, 3, 0},
	}
	for _, f := range faces {
		p0, p1, p2 := pts[f.v0].w, pts[f.v1].w, pts[f.v2].w
		normal := p1.Sub(p0).Cross(p2.Sub(p0))
		dOrigin := normal.Dot(p0.Mul(-1))
		dOpp := normal.Dot(pts[f.opp].w.Sub(p0))
		if dOrigin*dOpp < 0 {
			return false
		}
	}
	return true
}

// closestOnTetrahedron returns the closest point on the tetrahedron to the origin.
// If the origin is inside, returns the zero vector (collision detected) and the
// origin's barycentric weights.
func closestOnTetrahedron(pts []supportPoint) (r3.Vector, []supportPoint, []float64) {
	a, b, c, d := pts[0].w, pts[1].w, pts[2].w, pts[3].w
	total := tetrahedronVolume(a, b, c, d)
	scale := math.Max(b.Sub(a).Norm2(), math.Max(c.Sub(a).Norm2(), d.Sub(a).Norm2()))
	if math.Abs(total) > 1e-12*math.Pow(scale, 1.5) && originInTetrahedron(pts) {
		var o r3.Vector
		weights := []float64{
			tetrahedronVolume(o, b, c, d) / total,
			tetrahedronVolume(a, o, c, d) / total,
			tetrahedronVolume(a, b, o, d) / total,
			tetrahedronVolume(a, b, c, o) / total,
		}
		return r3.Vector{}, pts, weights
	}

	faces := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	bestDist := math.Inf(1)
	var bestV r3.Vector
	var bestS []supportPoint
	var bestW []float64

	for _, f := range faces {
		v, s, w := closestOnTriangle(pts[f[0]], pts[f[1]], pts[f[2]])
		if dist := v.Norm2(); dist < bestDist {
			bestDist = dist
			bestV = v
			bestS = s
			bestW = w
		}
	}
	return bestV, bestS, bestW
}

// witnesses returns the points of A and B described by the weights over the simplex.
func witnesses(simplex []supportPoint, weights []float64) (r3.Vector, r3.Vector) {
	var pa, pb r3.Vector
	for i, sp := range simplex {
		pa = pa.Add(sp.a.Mul(weights[i]))
		pb = pb.Add(sp.b.Mul(weights[i]))
	}
	return pa, pb
}

// barycentric returns the weights of p projected onto triangle [a, b, c].
func barycentric(p, a, b, c r3.Vector) (float64, float64, float64, bool) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-30 {
		return 0, 0, 0, false
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	return 1 - v - w, v, w, true
}
