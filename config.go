package prune

import (
	"path/filepath"
	"strings"

	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Configuration defines a batch of segmentation jobs and the defaults
// they share.
type Configuration struct {
	Workers       int         `bson:"workers" json:"workers" yaml:"workers"`
	Parallelism   int         `bson:"parallelism" json:"parallelism" yaml:"parallelism"`
	WarnThreshold float64     `bson:"warn_threshold" json:"warn_threshold" yaml:"warn_threshold"`
	AllowNA       bool        `bson:"allow_na" json:"allow_na" yaml:"allow_na"`
	Verbose       bool        `bson:"verbose" json:"verbose" yaml:"verbose"`
	OutputDir     string      `bson:"output_dir" json:"output_dir" yaml:"output_dir"`
	Jobs          []JobConfig `bson:"jobs" json:"jobs" yaml:"jobs"`
}

// JobConfig describes one signal to segment. Either Candidates or
// CandidateMinSize may be set; with neither, every position is a
// candidate.
type JobConfig struct {
	Name             string `bson:"name" json:"name" yaml:"name"`
	Input            string `bson:"input" json:"input" yaml:"input"`
	Output           string `bson:"output" json:"output" yaml:"output"`
	Candidates       []int  `bson:"candidates" json:"candidates" yaml:"candidates"`
	CandidateMinSize int    `bson:"candidate_min_size" json:"candidate_min_size" yaml:"candidate_min_size"`
	K                int    `bson:"k" json:"k" yaml:"k"`
	AllowNA          *bool  `bson:"allow_na,omitempty" json:"allow_na,omitempty" yaml:"allow_na,omitempty"`
}

// LoadConfiguration reads a YAML or JSON configuration file and
// validates it.
func LoadConfiguration(path string) (*Configuration, error) {
	conf := &Configuration{}
	if err := utility.ReadYAMLFile(path, conf); err != nil {
		return nil, errors.Wrap(err, "problem loading configuration")
	}

	if err := conf.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}

	return conf, nil
}

// Validate checks the configuration and fills in defaults.
func (c *Configuration) Validate() error {
	catcher := grip.NewBasicCatcher()

	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	catcher.NewWhen(c.Workers < 0, "must specify a valid number of workers")
	catcher.NewWhen(c.Parallelism < 0, "parallelism cannot be negative")

	outputs := map[string]string{}
	for idx := range c.Jobs {
		job := &c.Jobs[idx]
		if job.Input == "" {
			catcher.Errorf("job %d must specify an input", idx)
			continue
		}
		if job.Name == "" {
			job.Name = strings.TrimSuffix(filepath.Base(job.Input), filepath.Ext(job.Input))
		}
		if job.Output == "" {
			job.Output = filepath.Join(c.OutputDir, job.Name+OutputSuffix)
		}

		catcher.ErrorfWhen(job.K < 0, "job '%s' cannot have a negative number of change points", job.Name)
		catcher.ErrorfWhen(job.CandidateMinSize < 0, "job '%s' cannot have a negative candidate segment size", job.Name)
		catcher.ErrorfWhen(len(job.Candidates) > 0 && job.CandidateMinSize > 0,
			"job '%s' cannot specify both candidates and a candidate segment size", job.Name)

		if other, ok := outputs[job.Output]; ok {
			catcher.Errorf("jobs '%s' and '%s' write to the same output '%s'", other, job.Name, job.Output)
		}
		outputs[job.Output] = job.Name
	}

	return catcher.Resolve()
}

// AllowsNA reports whether the job uses the missing value tolerant
// cost computation, falling back to the configuration default.
func (c *Configuration) AllowsNA(job JobConfig) bool {
	if job.AllowNA != nil {
		return *job.AllowNA
	}
	return c.AllowNA
}
