package perf

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const defaultSeed = 12345678

// LoadFixture decodes testdata/<name>.json into fixture, where name is
// the last element of testName.
func LoadFixture(testName string, fixture interface{}) error {
	parts := strings.Split(testName, "/")
	testName = parts[len(parts)-1]

	data, err := os.ReadFile(fmt.Sprintf("testdata/%s.json", testName))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.Wrapf(json.Unmarshal(data, fixture), "problem decoding fixture %s", testName)
}

// randomSignal returns an n x p table of standard normal values.
func randomSignal(rng *rand.Rand, n, p int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, p)
		for j := range out[i] {
			out[i][j] = rng.NormFloat64()
		}
	}
	return out
}

// segmentRSE is the residual squared error of fitting one constant per
// dimension to every segment defined by bkp, computed directly.
func segmentRSE(rows [][]float64, bkp []int) float64 {
	bounds := boundaries(bkp, len(rows))
	p := len(rows[0])
	var total float64
	for seg := 0; seg+1 < len(bounds); seg++ {
		for d := 0; d < p; d++ {
			var sum float64
			var count int
			for i := bounds[seg]; i < bounds[seg+1]; i++ {
				if v := rows[i][d]; !math.IsNaN(v) {
					sum += v
					count++
				}
			}
			if count == 0 {
				continue
			}
			mean := sum / float64(count)
			for i := bounds[seg]; i < bounds[seg+1]; i++ {
				if v := rows[i][d]; !math.IsNaN(v) {
					total += (v - mean) * (v - mean)
				}
			}
		}
	}
	return total
}

// combinations calls fn with every increasing k element subset of
// values.
func combinations(values []int, k int, fn func([]int)) {
	current := make([]int, 0, k)
	var walk func(start int)
	walk = func(start int) {
		if len(current) == k {
			fn(append([]int{}, current...))
			return
		}
		for i := start; i <= len(values)-(k-len(current)); i++ {
			current = append(current, values[i])
			walk(i + 1)
			current = current[:len(current)-1]
		}
	}
	walk(0)
}
