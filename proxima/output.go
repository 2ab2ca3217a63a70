package proxima

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/proximity/proximity"
)

// minAverageDistance keeps normalized outputs finite for pairs whose average distance is near zero.
const minAverageDistance = 1e-5

// DistanceMode says whether an output holds raw distances or distances divided by the pair's average.
type DistanceMode int

// Distance modes.
const (
	RawDistance DistanceMode = iota
	AverageDistance
)

func (m DistanceMode) String() string {
	if m == AverageDistance {
		return "average"
	}
	return "raw"
}

// Output is the approximate distance of one pair and the bounds it was blended from.
type Output struct {
	proximity.Pair
	Mode        DistanceMode
	Approximate float64
	Lower       float64
	Upper       float64
	// Exact is set once the output holds a ground truth distance.
	Exact bool
}

func (o *Output) setExact(d float64) {
	o.Approximate, o.Lower, o.Upper = d, d, d
	o.Exact = true
}

// Outputs is the result of a cache query.
type Outputs []Output

func averageFor(averages mat.Matrix, p proximity.Pair) float64 {
	return math.Max(averages.At(p.I, p.J), minAverageDistance)
}

// Normalized divides every output by its pair's average distance.
func (outs Outputs) Normalized(averages mat.Matrix) Outputs {
	res := make(Outputs, len(outs))
	for k, o := range outs {
		avg := averageFor(averages, o.Pair)
		o.Mode = AverageDistance
		o.Approximate /= avg
		o.Lower /= avg
		o.Upper /= avg
		res[k] = o
	}
	return res
}

// Intersecting reports whether any approximate distance is at or below zero.
func (outs Outputs) Intersecting() bool {
	for _, o := range outs {
		if o.Approximate <= 0 {
			return true
		}
	}
	return false
}

func (outs Outputs) String() string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"pair", "mode", "lower", "approximate", "upper", "exact"})
	for _, o := range outs {
		tw.AppendRow(table.Row{
			o.Pair.String(), o.Mode.String(),
			fmt.Sprintf("%.6f", o.Lower), fmt.Sprintf("%.6f", o.Approximate), fmt.Sprintf("%.6f", o.Upper),
			o.Exact,
		})
	}
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}
