package perf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedList(t *testing.T) {
	t.Run("Insert", func(t *testing.T) {
		s := &sortedList{}
		s.Insert(1.0, 2.0, 3.0)
		assert.Equal(t, &sortedList{1.0, 2.0, 3.0}, s)

		s.Insert(2.0)
		assert.Equal(t, &sortedList{1.0, 2.0, 2.0, 3.0}, s)

		s.Insert(0.0)
		assert.Equal(t, &sortedList{0.0, 1.0, 2.0, 2.0, 3.0}, s)

		s.Insert(4.0, -1.0)
		assert.Equal(t, &sortedList{-1.0, 0.0, 1.0, 2.0, 2.0, 3.0, 4.0}, s)
	})
	t.Run("Remove", func(t *testing.T) {
		s := &sortedList{0.0, 1.0, 2.0, 2.0, 3.0, 4.0}
		s.Remove(0.0)
		assert.Equal(t, &sortedList{1.0, 2.0, 2.0, 3.0, 4.0}, s)

		s.Remove(2.0)
		assert.Equal(t, &sortedList{1.0, 2.0, 3.0, 4.0}, s)

		s.Remove(0.0)
		assert.Equal(t, &sortedList{1.0, 2.0, 3.0, 4.0}, s)

		s.Remove(2.5)
		assert.Equal(t, &sortedList{1.0, 2.0, 3.0, 4.0}, s)

		s.Remove(4.0)
		assert.Equal(t, &sortedList{1.0, 2.0, 3.0}, s)
	})
	t.Run("Median", func(t *testing.T) {
		assert.True(t, math.IsNaN(sortedList{}.Median()))
		assert.Equal(t, 2.0, sortedList{1.0, 2.0, 3.0}.Median())
		assert.Equal(t, 2.5, sortedList{1.0, 2.0, 3.0, 4.0}.Median())
	})
	t.Run("Clear", func(t *testing.T) {
		s := &sortedList{1.0, 2.0}
		s.Clear()
		assert.Len(t, *s, 0)
	})
}
