package units

import (
	"context"
	"time"

	"github.com/evergreen-ci/prune"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/queue"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// RunBatch segments every job in conf on a local queue with
// conf.Workers workers and waits for all of them. The returned error
// collects the failures of individual jobs.
func RunBatch(ctx context.Context, conf *prune.Configuration) error {
	if err := conf.Validate(); err != nil {
		return errors.Wrap(err, "invalid batch configuration")
	}
	if len(conf.Jobs) == 0 {
		grip.Notice("no segmentation jobs configured")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	q := queue.NewLocalLimitedSize(conf.Workers, len(conf.Jobs)+1)
	if err := q.Start(ctx); err != nil {
		return errors.Wrap(err, "starting queue")
	}

	for _, spec := range conf.Jobs {
		if err := q.Put(ctx, NewSegmentSignalJob(conf, spec)); err != nil {
			return errors.Wrapf(err, "problem queuing job '%s'", spec.Name)
		}
	}

	if !amboy.WaitInterval(ctx, q, 100*time.Millisecond) {
		return errors.Wrap(ctx.Err(), "batch did not complete")
	}

	catcher := grip.NewBasicCatcher()
	for j := range q.Results(ctx) {
		if err := j.Error(); err != nil {
			catcher.Add(errors.Wrapf(err, "job %s", j.ID()))
		}
	}

	grip.Info(message.Fields{
		"message": "segmentation batch complete",
		"jobs":    len(conf.Jobs),
		"workers": conf.Workers,
		"failed":  catcher.Len(),
	})

	return catcher.Resolve()
}
