package proximity

import (
	"context"
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/proximity/shape"
	"go.viam.com/proximity/spatialmath"
)

// DistanceStatistics summarizes the distance of every pair over many sampled configurations.
// Pairs that were never visited hold zero.
type DistanceStatistics struct {
	Minimums *mat.Dense
	Maximums *mat.Dense
	Averages *mat.Dense
	StdDevs  *mat.Dense
	Samples  int

	visited []Pair
}

// ComputeDistanceStatistics runs a distance query for each sample k, where group A sits at
// posesA[k] and group B at posesB[k], and aggregates the results per pair.
func ComputeDistanceStatistics(
	ctx context.Context,
	shapesA, shapesB []shape.Shape,
	posesA, posesB [][]spatialmath.Pose,
	opts Options,
) (*DistanceStatistics, error) {
	if len(posesA) != len(posesB) {
		return nil, errors.Errorf("got %d samples for group A but %d for group B", len(posesA), len(posesB))
	}
	if len(posesA) == 0 || len(shapesA) == 0 || len(shapesB) == 0 {
		return nil, errors.New("distance statistics need at least one sample and non-empty groups")
	}
	opts.EarlyStop = false

	samples := map[Pair][]float64{}
	var order []Pair
	for k := range posesA {
		a, err := NewGroup(shapesA, posesA[k])
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", k)
		}
		b, err := NewGroup(shapesB, posesB[k])
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", k)
		}
		results, err := Distances(ctx, a, b, opts)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			if _, ok := samples[r.Pair]; !ok {
				order = append(order, r.Pair)
			}
			samples[r.Pair] = append(samples[r.Pair], r.Value)
		}
	}

	nA, nB := len(shapesA), len(shapesB)
	out := &DistanceStatistics{
		Minimums: mat.NewDense(nA, nB, nil),
		Maximums: mat.NewDense(nA, nB, nil),
		Averages: mat.NewDense(nA, nB, nil),
		StdDevs:  mat.NewDense(nA, nB, nil),
		Samples:  len(posesA),
		visited:  order,
	}
	for _, p := range order {
		data := stats.Float64Data(samples[p])
		minimum, err := data.Min()
		if err != nil {
			return nil, err
		}
		maximum, err := data.Max()
		if err != nil {
			return nil, err
		}
		mean, err := data.Mean()
		if err != nil {
			return nil, err
		}
		std, err := data.StandardDeviation()
		if err != nil {
			return nil, err
		}
		out.Minimums.Set(p.I, p.J, minimum)
		out.Maximums.Set(p.I, p.J, maximum)
		out.Averages.Set(p.I, p.J, mean)
		out.StdDevs.Set(p.I, p.J, std)
	}
	return out, nil
}

// String renders one row per visited pair.
func (s *DistanceStatistics) String() string {
	rows := make([]table.Row, 0, len(s.visited))
	for _, p := range s.visited {
		rows = append(rows, table.Row{
			p.String(),
			formatFloat(s.Minimums.At(p.I, p.J)),
			formatFloat(s.Averages.At(p.I, p.J)),
			formatFloat(s.Maximums.At(p.I, p.J)),
			formatFloat(s.StdDevs.At(p.I, p.J)),
		})
	}
	return renderTable(table.Row{"pair", "min", "mean", "max", "std"}, rows)
}

// DistanceReport renders query results as a table.
func DistanceReport(results []Result[float64]) string {
	rows := make([]table.Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, table.Row{r.Pair.String(), formatFloat(r.Value)})
	}
	return renderTable(table.Row{"pair", "distance"}, rows)
}

func renderTable(header table.Row, rows []table.Row) string {
	tw := table.NewWriter()
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}

func formatFloat(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%.6f", v)
}
