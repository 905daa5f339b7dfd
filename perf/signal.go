package perf

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidInput is returned when a signal cannot be read as a
	// two dimensional numeric matrix, or when the requested number of
	// change points is not compatible with the candidate set.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCandidateRange is returned when a candidate change
	// point falls outside of [1, n].
	ErrInvalidCandidateRange = errors.New("candidate change point out of range")
)

// NewSignal coerces the supported signal shapes into an n x p dense
// matrix. A []float64 is treated as a single channel, a [][]float64 as
// a table of rows, and any mat.Matrix is copied as is.
func NewSignal(data interface{}) (*mat.Dense, error) {
	switch in := data.(type) {
	case nil:
		return nil, errors.Wrap(ErrInvalidInput, "signal is nil")
	case *mat.Dense:
		if in == nil || in.IsEmpty() {
			return nil, errors.Wrap(ErrInvalidInput, "signal has no observations")
		}
		return mat.DenseCopyOf(in), nil
	case mat.Matrix:
		r, c := in.Dims()
		if r == 0 || c == 0 {
			return nil, errors.Wrap(ErrInvalidInput, "signal has no observations")
		}
		return mat.DenseCopyOf(in), nil
	case []float64:
		if len(in) == 0 {
			return nil, errors.Wrap(ErrInvalidInput, "signal has no observations")
		}
		return mat.NewDense(len(in), 1, append([]float64{}, in...)), nil
	case [][]float64:
		if len(in) == 0 {
			return nil, errors.Wrap(ErrInvalidInput, "signal has no observations")
		}
		p := len(in[0])
		if p == 0 {
			return nil, errors.Wrap(ErrInvalidInput, "signal has no channels")
		}
		flat := make([]float64, 0, len(in)*p)
		for idx, row := range in {
			if len(row) != p {
				return nil, errors.Wrapf(ErrInvalidInput, "row %d has %d values, expected %d", idx, len(row), p)
			}
			flat = append(flat, row...)
		}
		return mat.NewDense(len(in), p, flat), nil
	default:
		return nil, errors.Wrapf(ErrInvalidInput, "cannot interpret %T as a numeric matrix", data)
	}
}

func hasMissing(signal mat.Matrix) bool {
	n, p := signal.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			if math.IsNaN(signal.At(i, j)) {
				return true
			}
		}
	}
	return false
}

// DefaultCandidates returns every interior position of a signal of
// length n, which makes the pruning exhaustive.
func DefaultCandidates(n int) []int {
	if n < 2 {
		return []int{}
	}
	out := make([]int, n-1)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// validateCandidates checks every candidate against [1, n] and returns
// a sorted, de-duplicated copy. A candidate equal to n marks the end of
// the signal and is dropped.
func validateCandidates(candidates []int, n int) ([]int, error) {
	if candidates == nil {
		return DefaultCandidates(n), nil
	}

	out := make([]int, 0, len(candidates))
	for _, c := range candidates {
		if c < 1 || c > n {
			return nil, errors.Wrapf(ErrInvalidCandidateRange, "candidate %d is not in [1, %d]", c, n)
		}
		if c == n {
			continue
		}
		out = append(out, c)
	}
	sort.Ints(out)

	uniq := out[:0]
	for _, c := range out {
		if len(uniq) > 0 && uniq[len(uniq)-1] == c {
			continue
		}
		uniq = append(uniq, c)
	}

	return uniq, nil
}

// boundaries returns 0, the candidates, and n.
func boundaries(candidates []int, n int) []int {
	bounds := make([]int, 0, len(candidates)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, candidates...)
	return append(bounds, n)
}

// exceedsComputationBudget reports whether K * |candidates|^2 is above
// threshold. A non-positive threshold disables the check.
func exceedsComputationBudget(k, numCandidates int, threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	return float64(k)*float64(numCandidates)*float64(numCandidates) > threshold
}
