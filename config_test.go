package prune

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationValidate(t *testing.T) {
	for _, test := range []struct {
		Name  string
		Conf  Configuration
		Valid bool
		Check func(*testing.T, *Configuration)
	}{
		{
			Name:  "EmptyGetsDefaults",
			Conf:  Configuration{},
			Valid: true,
			Check: func(t *testing.T, conf *Configuration) {
				assert.Equal(t, DefaultWorkers, conf.Workers)
			},
		},
		{
			Name: "JobDefaults",
			Conf: Configuration{
				OutputDir: "results",
				Jobs:      []JobConfig{{Input: "data/signal.csv"}},
			},
			Valid: true,
			Check: func(t *testing.T, conf *Configuration) {
				assert.Equal(t, "signal", conf.Jobs[0].Name)
				assert.Equal(t, filepath.Join("results", "signal"+OutputSuffix), conf.Jobs[0].Output)
			},
		},
		{
			Name: "MissingInput",
			Conf: Configuration{Jobs: []JobConfig{{Name: "foo"}}},
		},
		{
			Name: "NegativeWorkers",
			Conf: Configuration{Workers: -1},
		},
		{
			Name: "NegativeParallelism",
			Conf: Configuration{Parallelism: -2},
		},
		{
			Name: "NegativeK",
			Conf: Configuration{Jobs: []JobConfig{{Input: "a.csv", K: -1}}},
		},
		{
			Name: "CandidatesAndDetection",
			Conf: Configuration{Jobs: []JobConfig{{Input: "a.csv", Candidates: []int{1}, CandidateMinSize: 5}}},
		},
		{
			Name: "DuplicateOutputs",
			Conf: Configuration{Jobs: []JobConfig{{Input: "a/x.csv"}, {Input: "b/x.json"}}},
		},
	} {
		t.Run(test.Name, func(t *testing.T) {
			conf := test.Conf
			err := conf.Validate()
			if !test.Valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if test.Check != nil {
				test.Check(t, &conf)
			}
		})
	}
}

func TestLoadConfiguration(t *testing.T) {
	dir := t.TempDir()

	t.Run("Valid", func(t *testing.T) {
		path := filepath.Join(dir, "valid.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
workers: 3
allow_na: true
jobs:
  - name: first
    input: first.csv
    k: 4
  - input: second.json
    candidates: [10, 20, 30]
    allow_na: false
`), 0644))

		conf, err := LoadConfiguration(path)
		require.NoError(t, err)
		assert.Equal(t, 3, conf.Workers)
		require.Len(t, conf.Jobs, 2)
		assert.Equal(t, 4, conf.Jobs[0].K)
		assert.Equal(t, "second", conf.Jobs[1].Name)
		assert.Equal(t, []int{10, 20, 30}, conf.Jobs[1].Candidates)
		assert.True(t, conf.AllowsNA(conf.Jobs[0]))
		assert.False(t, conf.AllowsNA(conf.Jobs[1]))
	})
	t.Run("Invalid", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workers: -4\n"), 0644))
		_, err := LoadConfiguration(path)
		assert.Error(t, err)
	})
	t.Run("Missing", func(t *testing.T) {
		_, err := LoadConfiguration(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
