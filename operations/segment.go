package operations

import (
	"context"
	"io"
	"os"

	"github.com/evergreen-ci/prune/perf"
	"github.com/evergreen-ci/prune/util"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

type segmentReport struct {
	perf.Segmentation `yaml:",inline"`
	Means             [][]float64 `json:"means,omitempty" yaml:"means,omitempty"`
}

type segmentOptions struct {
	path       string
	candidates []int
	minSize    int
	means      bool
	prune      perf.Options
}

// Segment returns the ./prune segment command, which computes the
// optimal change point placements for a single signal file.
func Segment() cli.Command {
	return cli.Command{
		Name:  "segment",
		Usage: "find the optimal change points among candidates for every number of change points",
		Flags: mergeFlags(addPathFlag(), addCandidateFlags(), segmentFlags(), addOutputPath()),
		Before: mergeBeforeFuncs(
			setFlagOrFirstPositional(pathFlagName),
			requireFileExists(pathFlagName),
			requireExclusiveFlags(candidatesFlag, minSizeFlag),
		),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			opts := segmentOptions{
				path:    c.String(pathFlagName),
				minSize: c.Int(minSizeFlag),
				means:   c.Bool(meansFlag),
				prune: perf.Options{
					K:             c.Int(kFlag),
					AllowNA:       c.Bool(allowNAFlag),
					Verbose:       c.Bool(verboseFlag),
					Parallelism:   c.Int(parallelismFlag),
					WarnThreshold: c.Float64(warnThresholdFlag),
				},
			}
			if c.IsSet(candidatesFlag) {
				candidates, err := parseIntList(c.String(candidatesFlag))
				if err != nil {
					return errors.Wrapf(err, "problem parsing '--%s'", candidatesFlag)
				}
				opts.candidates = candidates
			}

			report, err := segmentSignal(ctx, opts)
			if err != nil {
				return errors.WithStack(err)
			}

			return errors.WithStack(writeOutput(os.Stdout, c.String(outputFlagName), c.String(formatFlagName), report))
		},
	}
}

func segmentSignal(ctx context.Context, opts segmentOptions) (*segmentReport, error) {
	rows, err := util.ReadSignal(opts.path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	opts.prune.Candidates = opts.candidates
	if opts.minSize > 0 {
		opts.prune.Candidates, err = perf.DetectCandidates(ctx, perf.NewEDMDetector(opts.minSize), rows)
		if err != nil {
			return nil, errors.Wrap(err, "problem detecting candidates")
		}
	}

	seg, err := perf.PruneByDynProg(ctx, rows, opts.prune)
	if err != nil {
		return nil, errors.Wrapf(err, "problem segmenting '%s'", opts.path)
	}
	report := &segmentReport{Segmentation: *seg}

	if opts.means {
		signal, err := perf.NewSignal(rows)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		report.Means, err = seg.SegmentMeans(signal, seg.K())
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	grip.Info(message.Fields{
		"message":    "segmented signal",
		"path":       opts.path,
		"length":     seg.Length,
		"candidates": len(seg.Candidates),
		"k":          seg.K(),
	})

	return report, nil
}

type candidatesReport struct {
	Candidates []int              `json:"candidates" yaml:"candidates"`
	Algorithm  perf.AlgorithmInfo `json:"algorithm" yaml:"algorithm"`
}

// Candidates returns the ./prune candidates command, which proposes
// candidate change points for a signal file.
func Candidates() cli.Command {
	return cli.Command{
		Name:  "candidates",
		Usage: "propose candidate change points for a signal with a change detection algorithm",
		Flags: mergeFlags(addPathFlag(), detectorFlags(), addOutputPath()),
		Before: mergeBeforeFuncs(
			setFlagOrFirstPositional(pathFlagName),
			requireFileExists(pathFlagName),
		),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			detector, err := newDetector(c.String(algorithmFlag), c.Int(minSizeFlag),
				c.Float64(pvalueFlag), c.Int(permutationsFlag), c.Int64(seedFlag))
			if err != nil {
				return errors.WithStack(err)
			}

			report, err := detectCandidates(ctx, c.String(pathFlagName), detector)
			if err != nil {
				return errors.WithStack(err)
			}

			return errors.WithStack(writeOutput(os.Stdout, c.String(outputFlagName), c.String(formatFlagName), report))
		},
	}
}

func newDetector(algorithm string, minSize int, pvalue float64, permutations int, seed int64) (perf.ChangeDetector, error) {
	switch algorithm {
	case edmAlgorithm:
		return perf.NewEDMDetector(minSize), nil
	case eDivisiveAlgorithm:
		return perf.NewQHatDetector(pvalue, permutations, seed), nil
	default:
		return nil, errors.Errorf("unknown change detection algorithm '%s'", algorithm)
	}
}

func detectCandidates(ctx context.Context, path string, detector perf.ChangeDetector) (*candidatesReport, error) {
	rows, err := util.ReadSignal(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	candidates, err := perf.DetectCandidates(ctx, detector, rows)
	if err != nil {
		return nil, errors.Wrapf(err, "problem detecting candidates in '%s'", path)
	}

	return &candidatesReport{Candidates: candidates, Algorithm: detector.Info()}, nil
}

func writeOutput(stdout io.Writer, fn, format string, data interface{}) error {
	if fn == "" {
		return errors.WithStack(util.Print(stdout, data, format))
	}
	return errors.Wrapf(util.WriteFile(fn, data), "problem writing '%s'", fn)
}
