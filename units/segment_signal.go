package units

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evergreen-ci/prune"
	"github.com/evergreen-ci/prune/perf"
	"github.com/evergreen-ci/prune/util"
	"github.com/google/uuid"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const segmentSignalJobName = "segment-signal"

type segmentSignalJob struct {
	*job.Base     `bson:"metadata" json:"metadata" yaml:"metadata"`
	Spec          prune.JobConfig `bson:"spec" json:"spec" yaml:"spec"`
	AllowNA       bool            `bson:"allow_na" json:"allow_na" yaml:"allow_na"`
	Parallelism   int             `bson:"parallelism" json:"parallelism" yaml:"parallelism"`
	WarnThreshold float64         `bson:"warn_threshold" json:"warn_threshold" yaml:"warn_threshold"`
	Verbose       bool            `bson:"verbose" json:"verbose" yaml:"verbose"`
}

func init() {
	registry.AddJobType(segmentSignalJobName, func() amboy.Job { return makeSegmentSignalJob() })
}

func makeSegmentSignalJob() *segmentSignalJob {
	j := &segmentSignalJob{
		Base: &job.Base{
			JobType: amboy.JobType{
				Name:    segmentSignalJobName,
				Version: 1,
			},
		},
	}
	j.SetDependency(dependency.NewAlways())
	return j
}

// NewSegmentSignalJob creates a job that reads the signal of spec,
// prunes its candidate change points and writes the segmentation to
// spec.Output. Options not set on spec come from conf.
func NewSegmentSignalJob(conf *prune.Configuration, spec prune.JobConfig) amboy.Job {
	j := makeSegmentSignalJob()
	j.SetID(fmt.Sprintf("%s.%s.%s", j.JobType.Name, spec.Name, uuid.New().String()))
	j.Spec = spec
	j.AllowNA = conf.AllowsNA(spec)
	j.Parallelism = conf.Parallelism
	j.WarnThreshold = conf.WarnThreshold
	j.Verbose = conf.Verbose
	return j
}

func (j *segmentSignalJob) makeMessage(msg string) message.Fields {
	return message.Fields{
		"job_id":  j.ID(),
		"message": msg,
		"name":    j.Spec.Name,
		"input":   j.Spec.Input,
	}
}

func (j *segmentSignalJob) Run(ctx context.Context) {
	defer j.MarkComplete()
	startAt := time.Now()

	rows, err := util.ReadSignal(j.Spec.Input)
	if err != nil {
		j.AddError(errors.Wrapf(err, "problem reading signal for '%s'", j.Spec.Name))
		return
	}

	candidates := j.Spec.Candidates
	if j.Spec.CandidateMinSize > 0 {
		candidates, err = perf.DetectCandidates(ctx, perf.NewEDMDetector(j.Spec.CandidateMinSize), rows)
		if err != nil {
			j.AddError(errors.Wrapf(err, "problem detecting candidates for '%s'", j.Spec.Name))
			return
		}
		grip.Debug(j.makeMessage("detected candidate change points"))
	}

	seg, err := perf.PruneByDynProg(ctx, rows, perf.Options{
		Candidates:    candidates,
		K:             j.Spec.K,
		AllowNA:       j.AllowNA,
		Verbose:       j.Verbose,
		Parallelism:   j.Parallelism,
		WarnThreshold: j.WarnThreshold,
	})
	if err != nil {
		j.AddError(errors.Wrapf(err, "problem segmenting '%s'", j.Spec.Name))
		return
	}

	if dir := filepath.Dir(j.Spec.Output); dir != "" {
		if err = os.MkdirAll(dir, 0755); err != nil {
			j.AddError(errors.Wrapf(err, "problem creating output directory for '%s'", j.Spec.Name))
			return
		}
	}
	if err = util.WriteFile(j.Spec.Output, seg); err != nil {
		j.AddError(errors.Wrapf(err, "problem writing segmentation for '%s'", j.Spec.Name))
		return
	}

	msg := j.makeMessage("segmented signal")
	msg["output"] = j.Spec.Output
	msg["k"] = seg.K()
	msg["observations"] = seg.Length
	msg["duration_secs"] = time.Since(startAt).Seconds()
	grip.Info(msg)
}
