package perf

import (
	"context"
	"math"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultWarnThreshold is the value of K * |candidates|^2 above which
// PruneByDynProg logs an expensive computation warning.
const DefaultWarnThreshold = 1e9

const dynProgAlgorithmName = "dynamic_programming_pruning"

// Options configure PruneByDynProg.
type Options struct {
	// Candidates are the positions eligible as change points. A nil
	// slice selects every interior position; an empty non-nil slice
	// selects none.
	Candidates []int
	// K is the largest number of change points to place. Zero
	// selects len(Candidates).
	K int
	// AllowNA selects the missing value tolerant cost computation.
	AllowNA bool
	// Verbose logs progress at info level.
	Verbose bool
	// Parallelism bounds the number of dimensions whose costs are
	// computed concurrently when AllowNA is set.
	Parallelism int
	// WarnThreshold overrides DefaultWarnThreshold when positive. A
	// negative value disables the warning.
	WarnThreshold float64
}

// Segmentation holds the optimal change point placements for every
// number of change points from 1 to K.
type Segmentation struct {
	// Breakpoints[k-1] holds the k optimal change points.
	Breakpoints [][]int `json:"breakpoints" yaml:"breakpoints"`
	// RSE[m] is the minimal residual squared error with m change
	// points, for m in 0..K.
	RSE []float64 `json:"rse" yaml:"rse"`
	// V is the dynamic programming table, one row per number of
	// change points and one column per interval.
	V          [][]float64   `json:"v" yaml:"v"`
	Candidates []int         `json:"candidates" yaml:"candidates"`
	Length     int           `json:"length" yaml:"length"`
	Info       AlgorithmInfo `json:"algorithm" yaml:"algorithm"`
}

// K returns the largest number of change points in the segmentation.
func (s *Segmentation) K() int { return len(s.Breakpoints) }

// BreakpointsFor returns the optimal placement of k change points. Zero
// returns an empty placement.
func (s *Segmentation) BreakpointsFor(k int) ([]int, error) {
	if k < 0 || k > s.K() {
		return nil, errors.Errorf("no segmentation with %d change points, maximum is %d", k, s.K())
	}
	if k == 0 {
		return []int{}, nil
	}
	return s.Breakpoints[k-1], nil
}

// SegmentMeans returns, for the k change point placement, the mean of
// every dimension of signal over each segment. Missing values are
// skipped; a segment with no observed value in a dimension gets NaN.
func (s *Segmentation) SegmentMeans(signal mat.Matrix, k int) ([][]float64, error) {
	bkp, err := s.BreakpointsFor(k)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	n, p := signal.Dims()
	if n != s.Length {
		return nil, errors.Wrapf(ErrInvalidInput, "signal has %d observations, segmentation was computed on %d", n, s.Length)
	}

	bounds := boundaries(bkp, n)
	means := make([][]float64, len(bounds)-1)
	for seg := range means {
		means[seg] = make([]float64, p)
		for d := 0; d < p; d++ {
			var total float64
			var count int
			for row := bounds[seg]; row < bounds[seg+1]; row++ {
				if v := signal.At(row, d); !math.IsNaN(v) {
					total += v
					count++
				}
			}
			if count == 0 {
				means[seg][d] = math.NaN()
				continue
			}
			means[seg][d] = total / float64(count)
		}
	}
	return means, nil
}

// PruneByDynProg finds, for every number of change points from 1 to K,
// the placement among the candidates that minimizes the total residual
// squared error of a piecewise constant fit of signal. signal may be a
// []float64, a [][]float64 of rows, or a mat.Matrix.
func PruneByDynProg(ctx context.Context, signal interface{}, opts Options) (*Segmentation, error) {
	startAt := time.Now()

	data, err := NewSignal(signal)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	n, p := data.Dims()

	candidates, err := validateCandidates(opts.Candidates, n)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	maxK := opts.K
	if maxK == 0 {
		maxK = len(candidates)
	}
	if maxK < 0 || maxK > len(candidates) {
		return nil, errors.Wrapf(ErrInvalidInput, "K must be in [1, %d], got %d", len(candidates), opts.K)
	}

	if err = checkValues(data, opts.AllowNA); err != nil {
		return nil, errors.WithStack(err)
	}

	threshold := opts.WarnThreshold
	if threshold == 0 {
		threshold = DefaultWarnThreshold
	}
	grip.WarningWhen(exceedsComputationBudget(maxK, len(candidates), threshold), message.Fields{
		"message":    "dynamic programming over this many candidates is expensive; consider pre-filtering candidates",
		"k":          maxK,
		"candidates": len(candidates),
		"threshold":  threshold,
	})

	costs, err := buildCostMatrix(ctx, data, candidates, opts.AllowNA, opts.Parallelism)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err = checkCosts(costs); err != nil {
		return nil, errors.WithStack(err)
	}
	grip.InfoWhen(opts.Verbose, message.Fields{
		"message":    "computed interval cost matrix",
		"allow_na":   opts.AllowNA,
		"intervals":  len(costs),
		"dimensions": p,
	})

	table, back, err := solve(ctx, costs, maxK, opts.Verbose)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	bounds := boundaries(candidates, n)
	seg := &Segmentation{
		Breakpoints: backtrack(back, bounds, maxK),
		RSE:         lastColumn(table),
		V:           table,
		Candidates:  candidates,
		Length:      n,
		Info: AlgorithmInfo{
			Name:    dynProgAlgorithmName,
			Version: 1,
			Options: []AlgorithmOption{
				{Name: "k", Value: maxK},
				{Name: "allow_na", Value: opts.AllowNA},
				{Name: "candidates", Value: len(candidates)},
			},
		},
	}

	grip.InfoWhen(opts.Verbose, message.Fields{
		"message":       "pruned candidate change points",
		"n":             n,
		"k":             maxK,
		"candidates":    len(candidates),
		"duration_secs": time.Since(startAt).Seconds(),
	})

	return seg, nil
}

func checkValues(data mat.Matrix, allowNA bool) error {
	n, p := data.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			v := data.At(i, j)
			if math.IsInf(v, 0) {
				return errors.Wrapf(ErrInvalidInput, "signal value at row %d, column %d is infinite", i, j)
			}
			if math.IsNaN(v) && !allowNA {
				return errors.Wrapf(ErrInvalidInput, "signal value at row %d, column %d is missing and missing values are not allowed", i, j)
			}
		}
	}
	return nil
}

// checkCosts rejects cost matrices with non-finite entries, which
// finite signals produce only when their squares overflow.
func checkCosts(costs [][]float64) error {
	for i := range costs {
		for j := i; j < len(costs[i]); j++ {
			if v := costs[i][j]; math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(ErrInvalidInput, "signal magnitude overflows the sum of squares of intervals %d through %d", i, j)
			}
		}
	}
	return nil
}

// solve fills the dynamic programming table. table[m][j] is the minimal
// cost of covering intervals 0..j with at most m change points and
// back[m-1][j] is the interval after which the last of those change
// points is placed. Ties resolve to the lowest interval.
func solve(ctx context.Context, costs [][]float64, maxK int, verbose bool) ([][]float64, [][]int, error) {
	k := len(costs)
	table := make([][]float64, maxK+1)
	back := make([][]int, maxK)

	table[0] = append([]float64{}, costs[0]...)
	for m := 1; m <= maxK; m++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.Wrapf(err, "canceled after %d of %d rows", m-1, maxK)
		}

		prev := table[m-1]
		row := make([]float64, k)
		ptr := make([]int, k)
		for j := 0; j < m && j < k; j++ {
			row[j] = prev[j]
			ptr[j] = -1
		}
		for j := m; j < k; j++ {
			best := math.Inf(1)
			arg := -1
			for i := m - 1; i < j; i++ {
				if v := prev[i] + costs[i+1][j]; v < best {
					best = v
					arg = i
				}
			}
			row[j] = best
			ptr[j] = arg
		}
		table[m] = row
		back[m-1] = ptr

		grip.DebugWhen(verbose, message.Fields{
			"message": "filled dynamic programming row",
			"row":     m,
			"rows":    maxK,
			"cost":    row[k-1],
		})
	}

	return table, back, nil
}

// backtrack recovers the change point positions for every number of
// change points by chaining back pointers from the last interval.
func backtrack(back [][]int, bounds []int, maxK int) [][]int {
	k := len(bounds) - 1
	out := make([][]int, maxK)
	for m := 1; m <= maxK; m++ {
		bkp := make([]int, m)
		j := k - 1
		for r := m; r >= 1; r-- {
			i := back[r-1][j]
			bkp[r-1] = bounds[i+1]
			j = i
		}
		out[m-1] = bkp
	}
	return out
}

func lastColumn(table [][]float64) []float64 {
	out := make([]float64, len(table))
	for m, row := range table {
		out[m] = row[len(row)-1]
	}
	return out
}
