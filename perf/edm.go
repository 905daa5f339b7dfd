package perf

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// edmScoreFloor is the initial score of every prefix. It sits below any
// attainable statistic so that the first split of a prefix is always
// accepted.
const edmScoreFloor = -3.0

// NewEDMDetector calculates change points for a series using
// e-divisive with medians. Segments are at least minSize observations
// long. The change points are the number of observations before each
// change, so they can be used directly as pruning candidates.
func NewEDMDetector(minSize int) ChangeDetector {
	if minSize < 1 {
		minSize = 1
	}
	return &edmDetector{
		minSize: minSize,
		info: AlgorithmInfo{
			Name:    "e_divisive_with_medians",
			Version: 1,
			Options: []AlgorithmOption{
				{
					Name:  "minSize",
					Value: minSize,
				},
			},
		},
	}
}

type edmDetector struct {
	minSize int
	info    AlgorithmInfo
}

func (d *edmDetector) eDivisiveWithMedians(ctx context.Context, series []float64) ([]int, error) {
	n := len(series)
	prev := make([]int, n+1)
	score := make([]float64, n+1)
	for i := range score {
		score[i] = edmScoreFloor
	}

	right := &sortedList{}
	left := &sortedList{}
	for s := 2 * d.minSize; s < n+1; s++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "e-divisive with medians canceled at %d of %d", s, n)
		}

		right.Clear()
		left.Clear()
		left.Insert(series[prev[d.minSize-1] : d.minSize-1]...)
		right.Insert(series[d.minSize-1 : s]...)
		for t := d.minSize; t < s-d.minSize+1; t++ {
			left.Insert(series[t-1])
			right.Remove(series[t-1])

			// keep the left window aligned with the best split of
			// the prefix ending at t.
			if prev[t] > prev[t-1] {
				for i := prev[t-1]; i < prev[t]; i++ {
					left.Remove(series[i])
				}
			} else if prev[t] < prev[t-1] {
				for i := prev[t]; i < prev[t-1]; i++ {
					left.Insert(series[i])
				}
			}

			delta := left.Median() - right.Median()
			normalize := float64((t-prev[t])*(s-t)) / math.Pow(float64(s-prev[t]), 2.0)
			candidate := score[t] + normalize*delta*delta

			if candidate > score[s] {
				score[s] = candidate
				prev[s] = t
			}
		}
	}

	locations := []int{}
	for at := n; at > 0; at = prev[at] {
		if prev[at] != 0 {
			locations = append(locations, prev[at])
		}
	}
	sort.Ints(locations)

	return locations, nil
}

func (d *edmDetector) Info() AlgorithmInfo { return d.info }

func (d *edmDetector) DetectChanges(ctx context.Context, series []float64) ([]ChangePoint, error) {
	locations, err := d.eDivisiveWithMedians(ctx, series)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out := make([]ChangePoint, 0, len(locations))
	for _, idx := range locations {
		out = append(out, ChangePoint{
			Index: idx,
			Info:  d.info,
		})
	}
	return out, nil
}
