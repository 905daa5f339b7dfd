package perf

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

type qhatChangePoint struct {
	Index       int
	Q           float64
	Probability float64
	qhatWindow
}

type qhatWindow struct {
	Start int
	End   int
}

type qhatDetector struct {
	rand         *rand.Rand
	pvalue       float64
	permutations int
	info         AlgorithmInfo
}

// NewQHatDetector uses the e-divisive (q^) algorithm with a permutation
// significance test to return change points for a series. The detector
// is seeded, so repeated runs over the same series agree.
func NewQHatDetector(pvalue float64, permutations int, seed int64) ChangeDetector {
	return &qhatDetector{
		rand:         rand.New(rand.NewSource(seed)),
		pvalue:       pvalue,
		permutations: permutations,
		info: AlgorithmInfo{
			Name:    "e_divisive",
			Version: 1,
			Options: []AlgorithmOption{
				{
					Name:  "p",
					Value: pvalue,
				},
				{
					Name:  "permutations",
					Value: permutations,
				},
			},
		},
	}
}

func (qhatDetector) calculateDiffs(series []float64) []float64 {
	length := len(series)
	diffs := make([]float64, length*length)
	for row := 0; row < length; row++ {
		for column := row; column < length; column++ {
			delta := math.Abs(series[row] - series[column])
			diffs[row*length+column] = delta
			diffs[column*length+row] = delta
		}
	}
	return diffs
}

func (qhatDetector) calculateQ(between, left, right float64, suffix, prefix int) float64 {
	m := float64(suffix)
	n := float64(prefix)

	betweenReg := between * (2.0 / (m * n))
	leftReg := left * (2.0 / (n * (n - 1)))
	rightReg := right * (2.0 / (m * (m - 1)))
	scale := float64(int((m * n) / (m + n)))
	return scale * (betweenReg - leftReg - rightReg)
}

// qHat returns the divergence statistic for every split of series.
// Splits closer than two observations to either end score zero.
func (d *qhatDetector) qHat(series []float64) []float64 {
	length := len(series)
	values := make([]float64, length)
	if length < 5 {
		return values
	}

	diffs := d.calculateDiffs(series)

	n := 2
	m := length - n

	var between, left, right float64
	for i := 0; i < n; i++ {
		for j := n; j < length; j++ {
			between += diffs[i*length+j]
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			left += diffs[i*length+j]
		}
	}
	for i := n; i < length; i++ {
		for j := i + 1; j < length; j++ {
			right += diffs[i*length+j]
		}
	}
	values[n] = d.calculateQ(between, left, right, m, n)

	for n = 3; n < length-2; n++ {
		m = length - n
		var rowDelta, columnDelta float64
		for j := 0; j < n-1; j++ {
			rowDelta += diffs[(n-1)*length+j]
		}
		for j := n - 1; j < length; j++ {
			columnDelta += diffs[j*length+n-1]
		}

		between = between - rowDelta + columnDelta
		left += rowDelta
		right -= columnDelta

		values[n] = d.calculateQ(between, left, right, m, n)
	}

	return values
}

// extractQ returns the first index holding the largest value.
func (qhatDetector) extractQ(values []float64) (int, float64) {
	var (
		index int
		value float64
	)
	for i, v := range values {
		if v > value {
			index = i
			value = v
		}
	}
	return index, value
}

// shuffleWindows permutes a copy of each window and reports whether any
// permuted window reaches q.
func (d *qhatDetector) shuffleWindows(series []float64, windows []qhatWindow, q float64) bool {
	series = append([]float64{}, series...)
	maxQ := -1.0
	for _, w := range windows {
		window := series[w.Start:w.End]
		d.rand.Shuffle(len(window), func(i, j int) { window[i], window[j] = window[j], window[i] })

		if _, winMaxQ := d.extractQ(d.qHat(window)); winMaxQ > maxQ {
			maxQ = winMaxQ
		}
	}
	return maxQ >= q
}

// splitWindows creates the window covering the whole series on the
// first call, and afterwards splits the window containing index.
func (qhatDetector) splitWindows(windows []qhatWindow, index, length int) []qhatWindow {
	if len(windows) == 0 {
		return append(windows, qhatWindow{Start: 0, End: length})
	}

	found := -1
	for i, current := range windows {
		if current.Start <= index && index <= current.End {
			found = i
		}
	}
	window := windows[found]
	windows[found].End = index
	windows = append(windows, qhatWindow{Start: index, End: window.End})
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start < windows[j].Start
	})
	return windows
}

// splitCandidates finds the strongest split of the whole series on the
// first call. Afterwards it replaces the candidate at index by the best
// splits of the two windows on either side of it. Candidates are kept
// ordered by increasing Q.
func (d *qhatDetector) splitCandidates(series []float64, candidates []qhatChangePoint, index int) []qhatChangePoint {
	if len(candidates) == 0 {
		winIndex, winQ := d.extractQ(d.qHat(series))
		return append(candidates, qhatChangePoint{
			Index:      winIndex,
			Q:          winQ,
			qhatWindow: qhatWindow{Start: 0, End: len(series)},
		})
	}

	found := 0
	for i, current := range candidates {
		if current.Index == index {
			found = i
		}
	}

	start := candidates[found].Start
	end := candidates[found].End

	winIndex, winQ := d.extractQ(d.qHat(series[start:index]))
	candidates[found].Index = winIndex + start
	candidates[found].Q = winQ
	candidates[found].End = index

	winIndex, winQ = d.extractQ(d.qHat(series[index:end]))
	candidates = append(candidates, qhatChangePoint{
		Index:      winIndex + index,
		Q:          winQ,
		qhatWindow: qhatWindow{Start: index, End: end},
	})

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Q < candidates[j].Q
	})
	return candidates
}

func (d *qhatDetector) Info() AlgorithmInfo { return d.info }

func (d *qhatDetector) DetectChanges(ctx context.Context, series []float64) ([]ChangePoint, error) {
	if d.pvalue <= 0 || d.pvalue >= 1 {
		return nil, errors.Errorf("p-value must be in (0, 1), got %f", d.pvalue)
	}

	length := len(series)
	var (
		found      []qhatChangePoint
		windows    []qhatWindow
		candidates []qhatChangePoint
	)

	probability := 0.0
	index := 0
	for probability <= d.pvalue {
		windows = d.splitWindows(windows, index, length)
		candidates = d.splitCandidates(series, candidates, index)

		candidate := candidates[len(candidates)-1]
		countAbove := 0.0
		for i := 0; i < d.permutations; i++ {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "e-divisive permutation test canceled")
			}
			if d.shuffleWindows(series, windows, candidate.Q) {
				countAbove++
			}
		}

		probability = (1.0 + countAbove) / float64(d.permutations+1)
		if probability <= d.pvalue {
			candidate.Probability = probability
			found = append(found, candidate)
			index = candidate.Index
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Index < found[j].Index
	})
	out := make([]ChangePoint, len(found))
	for idx := range found {
		out[idx] = ChangePoint{
			Index: found[idx].Index,
			Info:  d.info,
		}
	}
	return out, nil
}
