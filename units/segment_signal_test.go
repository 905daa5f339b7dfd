package units

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/evergreen-ci/prune"
	"github.com/evergreen-ci/prune/perf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSignal(t *testing.T, dir, name string, lengths []int, levels []float64) string {
	var lines []string
	lines = append(lines, "value")
	for i, length := range lengths {
		for j := 0; j < length; j++ {
			lines = append(lines, strconv.FormatFloat(levels[i], 'f', -1, 64))
		}
	}
	fn := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fn, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return fn
}

func readSegmentation(t *testing.T, fn string) *perf.Segmentation {
	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	seg := &perf.Segmentation{}
	require.NoError(t, json.Unmarshal(data, seg))
	return seg
}

func TestSegmentSignalJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("Factory", func(t *testing.T) {
		j := makeSegmentSignalJob()
		assert.Equal(t, segmentSignalJobName, j.Type().Name)
		assert.NotNil(t, j.Dependency())
	})
	t.Run("InheritsConfiguration", func(t *testing.T) {
		allow := false
		conf := &prune.Configuration{AllowNA: true, Parallelism: 3, WarnThreshold: 10, Verbose: true}
		j := NewSegmentSignalJob(conf, prune.JobConfig{Name: "a", AllowNA: &allow}).(*segmentSignalJob)
		assert.False(t, j.AllowNA)
		assert.Equal(t, 3, j.Parallelism)
		assert.Equal(t, 10.0, j.WarnThreshold)
		assert.True(t, j.Verbose)
		assert.True(t, strings.HasPrefix(j.ID(), "segment-signal.a."))
	})
	t.Run("UniqueIDs", func(t *testing.T) {
		conf := &prune.Configuration{}
		spec := prune.JobConfig{Name: "a"}
		assert.NotEqual(t, NewSegmentSignalJob(conf, spec).ID(), NewSegmentSignalJob(conf, spec).ID())
	})
	t.Run("WritesSegmentation", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSignal(t, dir, "steps.csv", []int{10, 10, 10}, []float64{0, 5, 1})
		output := filepath.Join(dir, "out", "steps.segmentation.json")

		j := NewSegmentSignalJob(&prune.Configuration{}, prune.JobConfig{
			Name:       "steps",
			Input:      input,
			Output:     output,
			Candidates: []int{5, 10, 15, 20, 25},
			K:          2,
		})
		j.Run(ctx)
		assert.True(t, j.Status().Completed)
		require.NoError(t, j.Error())

		seg := readSegmentation(t, output)
		assert.Equal(t, [][]int{{10}, {10, 20}}, seg.Breakpoints)
		assert.Equal(t, 30, seg.Length)
		assert.InDelta(t, 0, seg.RSE[2], 1e-9)
	})
	t.Run("DetectsCandidates", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSignal(t, dir, "step.csv", []int{30, 30}, []float64{0, 10})
		output := filepath.Join(dir, "step.json")

		j := NewSegmentSignalJob(&prune.Configuration{}, prune.JobConfig{
			Name:             "step",
			Input:            input,
			Output:           output,
			CandidateMinSize: 30,
		})
		j.Run(ctx)
		require.NoError(t, j.Error())

		seg := readSegmentation(t, output)
		assert.Equal(t, []int{30}, seg.Candidates)
		assert.Equal(t, [][]int{{30}}, seg.Breakpoints)
	})
	t.Run("MissingInput", func(t *testing.T) {
		dir := t.TempDir()
		j := NewSegmentSignalJob(&prune.Configuration{}, prune.JobConfig{
			Name:   "missing",
			Input:  filepath.Join(dir, "missing.csv"),
			Output: filepath.Join(dir, "missing.json"),
		})
		j.Run(ctx)
		assert.True(t, j.Status().Completed)
		assert.Error(t, j.Error())
		_, err := os.Stat(filepath.Join(dir, "missing.json"))
		assert.True(t, os.IsNotExist(err))
	})
	t.Run("InvalidK", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSignal(t, dir, "short.csv", []int{3}, []float64{1})
		j := NewSegmentSignalJob(&prune.Configuration{}, prune.JobConfig{
			Name:   "short",
			Input:  input,
			Output: filepath.Join(dir, "short.json"),
			K:      5,
		})
		j.Run(ctx)
		assert.Error(t, j.Error())
	})
}

func TestRunBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("AllJobsSucceed", func(t *testing.T) {
		dir := t.TempDir()
		conf := &prune.Configuration{
			Workers:   2,
			OutputDir: filepath.Join(dir, "results"),
		}
		for _, name := range []string{"a", "b", "c"} {
			conf.Jobs = append(conf.Jobs, prune.JobConfig{
				Input: writeSignal(t, dir, name+".csv", []int{5, 5}, []float64{0, 3}),
				K:     1,
			})
		}

		require.NoError(t, RunBatch(ctx, conf))
		for _, name := range []string{"a", "b", "c"} {
			seg := readSegmentation(t, filepath.Join(dir, "results", name+prune.OutputSuffix))
			assert.Equal(t, [][]int{{5}}, seg.Breakpoints)
		}
	})
	t.Run("CollectsFailures", func(t *testing.T) {
		dir := t.TempDir()
		conf := &prune.Configuration{
			OutputDir: dir,
			Jobs: []prune.JobConfig{
				{Input: writeSignal(t, dir, "good.csv", []int{4, 4}, []float64{1, 2})},
				{Input: filepath.Join(dir, "bad.csv")},
			},
		}

		err := RunBatch(ctx, conf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad")
		_, statErr := os.Stat(filepath.Join(dir, "good"+prune.OutputSuffix))
		assert.NoError(t, statErr)
	})
	t.Run("InvalidConfiguration", func(t *testing.T) {
		conf := &prune.Configuration{Jobs: []prune.JobConfig{{Name: "no-input"}}}
		assert.Error(t, RunBatch(ctx, conf))
	})
	t.Run("NoJobs", func(t *testing.T) {
		assert.NoError(t, RunBatch(ctx, &prune.Configuration{}))
	})
}
