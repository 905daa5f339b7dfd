package perf

import "context"

// ChangeDetector types calculate change points for a single series.
type ChangeDetector interface {
	DetectChanges(context.Context, []float64) ([]ChangePoint, error)
	Info() AlgorithmInfo
}

// ChangePoint is a position in a series: the number of observations
// that precede the change.
type ChangePoint struct {
	Index int           `json:"index" yaml:"index"`
	Info  AlgorithmInfo `json:"algorithm" yaml:"algorithm"`
}

type AlgorithmInfo struct {
	Name    string            `json:"name" yaml:"name"`
	Version int               `json:"version" yaml:"version"`
	Options []AlgorithmOption `json:"options" yaml:"options"`
}

type AlgorithmOption struct {
	Name  string      `json:"name" yaml:"name"`
	Value interface{} `json:"value" yaml:"value"`
}
