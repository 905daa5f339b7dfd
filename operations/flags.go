package operations

import (
	"strconv"
	"strings"

	"github.com/evergreen-ci/prune"
	"github.com/evergreen-ci/prune/perf"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

////////////////////////////////////////////////////////////////////////
//
// Flag Name Constants

const (
	configFlag     = "config"
	pathFlagName   = "path"
	outputFlagName = "output"
	formatFlagName = "format"

	numWorkersFlag  = "workers"
	parallelismFlag = "parallelism"

	candidatesFlag    = "candidates"
	minSizeFlag       = "min-size"
	kFlag             = "k"
	allowNAFlag       = "allow-na"
	verboseFlag       = "verbose"
	warnThresholdFlag = "warn-threshold"
	meansFlag         = "means"

	algorithmFlag    = "algorithm"
	pvalueFlag       = "pvalue"
	permutationsFlag = "permutations"
	seedFlag         = "seed"

	edmAlgorithm       = "edm"
	eDivisiveAlgorithm = "e-divisive"
)

////////////////////////////////////////////////////////////////////////
//
// Utility Functions

func joinFlagNames(ids ...string) string { return strings.Join(ids, ", ") }

func mergeFlags(in ...[]cli.Flag) []cli.Flag {
	out := []cli.Flag{}

	for idx := range in {
		out = append(out, in[idx]...)
	}

	return out
}

// parseIntList parses a comma or space separated list of integers.
func parseIntList(in string) ([]int, error) {
	fields := strings.FieldsFunc(in, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]int, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid integer '%s'", field)
		}
		out = append(out, v)
	}
	return out, nil
}

////////////////////////////////////////////////////////////////////////
//
// Flag Groups

func addPathFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  joinFlagNames(pathFlagName, "filename", "file", "f"),
		Usage: "path to the signal file (csv, json or yaml)",
	})
}

func addOutputPath(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  joinFlagNames(outputFlagName, "o"),
			Usage: "path to the output file, the format follows the extension; prints to standard output when empty",
		},
		cli.StringFlag{
			Name:  formatFlagName,
			Usage: "format used for standard output: 'json' or 'yaml'",
			Value: "json",
		})
}

func addCandidateFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  candidatesFlag,
			Usage: "comma separated candidate change points; defaults to every interior position",
		},
		cli.IntFlag{
			Name:  minSizeFlag,
			Usage: "detect candidates with e-divisive with medians using this minimum segment size",
		})
}

func segmentFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.IntFlag{
			Name:  kFlag,
			Usage: "maximum number of change points; defaults to the number of candidates",
		},
		cli.BoolFlag{
			Name:  allowNAFlag,
			Usage: "tolerate missing values in the signal",
		},
		cli.BoolFlag{
			Name:  verboseFlag,
			Usage: "log progress of the computation",
		},
		cli.IntFlag{
			Name:  parallelismFlag,
			Usage: "number of dimensions to compute concurrently with --allow-na",
		},
		cli.Float64Flag{
			Name:  warnThresholdFlag,
			Usage: "computation size above which a warning is logged; negative disables the warning",
			Value: perf.DefaultWarnThreshold,
		},
		cli.BoolFlag{
			Name:  meansFlag,
			Usage: "include the segment means of the largest segmentation in the output",
		})
}

func detectorFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  algorithmFlag,
			Usage: "change detection algorithm: 'edm' or 'e-divisive'",
			Value: edmAlgorithm,
		},
		cli.IntFlag{
			Name:  minSizeFlag,
			Usage: "minimum segment size for e-divisive with medians",
			Value: 30,
		},
		cli.Float64Flag{
			Name:  pvalueFlag,
			Usage: "significance level for e-divisive",
			Value: 0.05,
		},
		cli.IntFlag{
			Name:  permutationsFlag,
			Usage: "number of permutations for the e-divisive significance test",
			Value: 100,
		},
		cli.Int64Flag{
			Name:  seedFlag,
			Usage: "random seed for the e-divisive significance test",
			Value: 1,
		})
}

func baseFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.IntFlag{
			Name:  numWorkersFlag,
			Usage: "specify the number of signals segmented concurrently",
			Value: prune.DefaultWorkers,
		},
		cli.IntFlag{
			Name:  parallelismFlag,
			Usage: "number of dimensions each job computes concurrently",
		})
}

func setFlagOrFirstPositional(name string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		val := c.String(name)
		if val == "" {
			if c.NArg() != 1 {
				return errors.Errorf("must specify exactly one positional argument for '%s'", name)
			}

			val = c.Args().Get(0)
		}

		return c.Set(name, val)
	}
}
