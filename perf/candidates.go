package perf

import (
	"context"
	"sort"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DetectCandidates runs detector on every dimension of signal and
// returns the sorted union of the change points in [1, n-1]. The
// detectors do not handle missing values, so signal must be complete.
func DetectCandidates(ctx context.Context, detector ChangeDetector, signal interface{}) ([]int, error) {
	data, err := NewSignal(signal)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if hasMissing(data) {
		return nil, errors.Wrap(ErrInvalidInput, "candidate detection requires a signal without missing values")
	}

	n, p := data.Dims()
	seen := map[int]struct{}{}
	for d := 0; d < p; d++ {
		changes, err := detector.DetectChanges(ctx, mat.Col(nil, d, data))
		if err != nil {
			return nil, errors.Wrapf(err, "problem detecting change points in dimension %d", d)
		}
		for _, cp := range changes {
			if cp.Index >= 1 && cp.Index <= n-1 {
				seen[cp.Index] = struct{}{}
			}
		}
		grip.Debug(message.Fields{
			"message":   "detected candidate change points",
			"dimension": d,
			"found":     len(changes),
		})
	}

	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)

	return out, nil
}
