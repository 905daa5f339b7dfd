package util

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
)

var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"nan":  true,
	"null": true,
	".nan": true,
}

// ReadSignal loads a signal table from path. CSV files hold one
// observation per line and may start with a header; NA, NaN, null and
// empty fields are missing values. JSON and YAML files hold either a
// list of numbers (one channel) or a list of rows.
func ReadSignal(path string) ([][]float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "problem opening %s", path)
		}
		defer f.Close()

		rows, err := ParseCSVSignal(f)
		return rows, errors.Wrapf(err, "problem reading signal from %s", path)
	case ".json", ".yaml", ".yml":
		var raw []interface{}
		if err := utility.ReadYAMLFile(path, &raw); err != nil {
			return nil, errors.Wrapf(err, "problem decoding %s", path)
		}

		rows, err := ParseSignalDocument(raw)
		return rows, errors.Wrapf(err, "problem reading signal from %s", path)
	default:
		return nil, errors.Errorf("cannot read signal from '%s': unsupported file type", path)
	}
}

// ParseCSVSignal reads rows of numeric fields. The first record is
// skipped if it is not numeric.
func ParseCSVSignal(r io.Reader) ([][]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "invalid csv")
	}

	out := make([][]float64, 0, len(records))
	for idx, record := range records {
		row, err := parseFields(record)
		if err != nil {
			if idx == 0 {
				continue
			}
			return nil, errors.Wrapf(err, "line %d", idx+1)
		}
		out = append(out, row)
	}

	return out, nil
}

func parseFields(record []string) ([]float64, error) {
	row := make([]float64, len(record))
	for i, field := range record {
		field = strings.TrimSpace(field)
		if missingTokens[strings.ToLower(field)] {
			row[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d", i+1)
		}
		row[i] = v
	}
	return row, nil
}

// ParseSignalDocument converts a decoded JSON or YAML list into rows.
// Scalars become single value rows; nulls become missing values.
func ParseSignalDocument(raw []interface{}) ([][]float64, error) {
	out := make([][]float64, 0, len(raw))
	for idx, item := range raw {
		switch val := item.(type) {
		case []interface{}:
			row := make([]float64, len(val))
			for j, field := range val {
				v, err := toFloat(field)
				if err != nil {
					return nil, errors.Wrapf(err, "row %d, column %d", idx, j)
				}
				row[j] = v
			}
			out = append(out, row)
		default:
			v, err := toFloat(val)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d", idx)
			}
			out = append(out, []float64{v})
		}
	}
	return out, nil
}

func toFloat(in interface{}) (float64, error) {
	switch v := in.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		if missingTokens[strings.ToLower(strings.TrimSpace(v))] {
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, errors.WithStack(err)
	default:
		return 0, errors.Errorf("value of type %T is not numeric", in)
	}
}
