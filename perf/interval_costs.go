package perf

import "math"

// IntervalCosts computes the merge costs of a single series over the
// intervals defined by candidates, which must be sorted and lie in
// [1, len(series)-1]. Entry [i][j], i <= j, is the residual squared
// error of fitting one constant to intervals i through j, using only
// the observed (non-NaN) values. When an interval union contains no
// observed value the entry is NaN; when the sum of squares overflows it
// is +Inf. Entries below the diagonal are zero.
func IntervalCosts(series []float64, candidates []int) [][]float64 {
	bounds := boundaries(candidates, len(series))
	k := len(bounds) - 1

	sum := make([]float64, k+1)
	sumSq := make([]float64, k+1)
	count := make([]int, k+1)

	interval := 0
	var s, s2 float64
	var c int
	for idx, v := range series {
		if !math.IsNaN(v) {
			s += v
			s2 += v * v
			c++
		}
		if idx+1 == bounds[interval+1] {
			interval++
			sum[interval] = s
			sumSq[interval] = s2
			count[interval] = c
		}
	}

	costs := newTriangle(k)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			obs := count[j+1] - count[i]
			if obs == 0 {
				costs[i][j] = math.NaN()
				continue
			}
			total := sum[j+1] - sum[i]
			cost := (sumSq[j+1] - sumSq[i]) - total*total/float64(obs)
			if math.IsNaN(cost) || math.IsInf(cost, 0) {
				cost = math.Inf(1)
			}
			costs[i][j] = cost
		}
	}

	return costs
}

func newTriangle(k int) [][]float64 {
	backing := make([]float64, k*k)
	out := make([][]float64, k)
	for i := range out {
		out[i] = backing[i*k : (i+1)*k : (i+1)*k]
	}
	return out
}
