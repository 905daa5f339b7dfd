package perf

import (
	"context"
	"math"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// buildCostMatrix returns the k x k interval merge cost matrix for the
// intervals implied by candidates, where k = len(candidates)+1.
func buildCostMatrix(ctx context.Context, signal mat.Matrix, candidates []int, allowNA bool, parallelism int) ([][]float64, error) {
	if allowNA {
		return nanTolerantCosts(ctx, signal, candidates, parallelism)
	}
	return completeCosts(signal, candidates), nil
}

// completeCosts uses prefix sums over the interval boundaries: the cost
// of merging intervals i..j is the total sum of squares in the span
// minus, for every dimension, the squared sum divided by the span length.
func completeCosts(signal mat.Matrix, candidates []int) [][]float64 {
	n, p := signal.Dims()
	bounds := boundaries(candidates, n)
	k := len(bounds) - 1

	// sums[t][d] and sumSq[t] accumulate rows [0, bounds[t]).
	sums := make([][]float64, k+1)
	sums[0] = make([]float64, p)
	sumSq := make([]float64, k+1)

	running := make([]float64, p)
	var runningSq float64
	interval := 0
	for row := 0; row < n; row++ {
		for d := 0; d < p; d++ {
			v := signal.At(row, d)
			running[d] += v
			runningSq += v * v
		}
		if row+1 == bounds[interval+1] {
			interval++
			sums[interval] = append([]float64{}, running...)
			sumSq[interval] = runningSq
		}
	}

	costs := newTriangle(k)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			length := float64(bounds[j+1] - bounds[i])
			var between float64
			for d := 0; d < p; d++ {
				total := sums[j+1][d] - sums[i][d]
				between += total * total
			}
			costs[i][j] = (sumSq[j+1] - sumSq[i]) - between/length
		}
	}

	return costs
}

// nanTolerantCosts sums the per-dimension IntervalCosts, counting
// undefined entries as zero. Dimensions are evaluated on up to
// parallelism goroutines but always summed in dimension order.
func nanTolerantCosts(ctx context.Context, signal mat.Matrix, candidates []int, parallelism int) ([][]float64, error) {
	_, p := signal.Dims()
	k := len(candidates) + 1
	costs := newTriangle(k)

	if parallelism <= 1 || p == 1 {
		for d := 0; d < p; d++ {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "cost matrix computation canceled")
			}
			addDefined(costs, IntervalCosts(mat.Col(nil, d, signal), candidates))
		}
		return costs, nil
	}

	perDim := make([][][]float64, p)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for d := 0; d < p; d++ {
		d := d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perDim[d] = IntervalCosts(mat.Col(nil, d, signal), candidates)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "cost matrix computation canceled")
	}

	for d := range perDim {
		addDefined(costs, perDim[d])
	}

	grip.Debug(message.Fields{
		"message":     "computed cost matrix in parallel",
		"dimensions":  p,
		"intervals":   k,
		"parallelism": parallelism,
	})

	return costs, nil
}

func addDefined(dst, src [][]float64) {
	for i := range src {
		for j := i; j < len(src[i]); j++ {
			if v := src[i][j]; !math.IsNaN(v) {
				dst[i][j] += v
			}
		}
	}
}
