package perf

import (
	"math"
	"sort"
)

// sortedList is an ascending list of floats supporting the running
// medians used by the EDM detector.
type sortedList []float64

func (s *sortedList) Clear() { *s = (*s)[:0] }

// Insert adds values keeping the list sorted. Appending and shifting
// only the tail is faster than re-sorting for the mostly increasing
// windows EDM produces.
func (s *sortedList) Insert(values ...float64) {
	for _, v := range values {
		length := len(*s)
		*s = append(*s, v)
		if length == 0 || v >= (*s)[length-1] {
			continue
		}
		idx := sort.SearchFloat64s((*s)[:length], v)
		copy((*s)[idx+1:], (*s)[idx:length])
		(*s)[idx] = v
	}
}

// Remove deletes one occurrence of v. Values that are not present are
// ignored.
func (s *sortedList) Remove(v float64) {
	idx := sort.SearchFloat64s(*s, v)
	if idx == len(*s) || (*s)[idx] != v {
		return
	}
	*s = append((*s)[:idx], (*s)[idx+1:]...)
}

// Median of the list. An empty list has a NaN median.
func (s sortedList) Median() float64 {
	length := len(s)
	if length == 0 {
		return math.NaN()
	}
	center := length / 2
	if length%2 != 0 {
		return s[center]
	}
	return (s[center] + s[center-1]) / 2.0
}
