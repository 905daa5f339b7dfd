package operations

import (
	"context"
	"strings"

	"github.com/evergreen-ci/prune"
	"github.com/evergreen-ci/prune/units"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Batch returns the ./prune batch command, which segments every signal
// described in a configuration file on a local job queue.
func Batch() cli.Command {
	return cli.Command{
		Name: "batch",
		Usage: strings.Join([]string{
			"segment every signal listed in a configuration file",
			"each result is written to the job's output path, or to <output_dir>/<name>" + prune.OutputSuffix,
		}, "\n\t"),
		Flags: baseFlags(cli.StringFlag{
			Name:  joinFlagNames(configFlag, "c"),
			Usage: "path to the batch configuration file (yaml or json)",
		}),
		Before: mergeBeforeFuncs(
			setFlagOrFirstPositional(configFlag),
			requireStringFlag(configFlag),
			requireFileExists(configFlag),
		),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			conf, err := loadBatchConfiguration(c.String(configFlag), c.Int(numWorkersFlag), c.Int(parallelismFlag),
				c.IsSet(numWorkersFlag), c.IsSet(parallelismFlag))
			if err != nil {
				return errors.WithStack(err)
			}

			grip.Infof("segmenting %d signals with %d workers", len(conf.Jobs), conf.Workers)
			return errors.Wrap(units.RunBatch(ctx, conf), "problem running batch")
		},
	}
}

// loadBatchConfiguration reads the configuration file and applies the
// command line overrides.
func loadBatchConfiguration(path string, workers, parallelism int, setWorkers, setParallelism bool) (*prune.Configuration, error) {
	conf, err := prune.LoadConfiguration(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if setWorkers {
		conf.Workers = workers
	}
	if setParallelism {
		conf.Parallelism = parallelism
	}

	return conf, errors.WithStack(conf.Validate())
}
