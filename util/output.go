package util

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Marshal renders data as indented JSON, or as YAML when format is
// "yaml" or "yml".
func Marshal(data interface{}, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		out, err := yaml.Marshal(data)
		return out, errors.Wrap(err, "problem rendering yaml")
	case "json", "":
		out, err := json.MarshalIndent(data, "", "   ")
		return out, errors.Wrap(err, "problem rendering json")
	default:
		return nil, errors.Errorf("unsupported output format '%s'", format)
	}
}

// WriteFile writes data to fn in the format implied by its extension,
// defaulting to JSON.
func WriteFile(fn string, data interface{}) error {
	out, err := Marshal(data, filepath.Ext(fn))
	if err != nil {
		return errors.WithStack(err)
	}

	f, err := os.Create(fn)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	if err = writeBytes(f, out); err != nil {
		return errors.Wrapf(err, "problem writing %s", fn)
	}

	return errors.WithStack(f.Sync())
}

// Print writes data to w in the given format.
func Print(w io.Writer, data interface{}, format string) error {
	out, err := Marshal(data, format)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(writeBytes(w, out))
}

func writeBytes(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return errors.WithStack(err)
	}

	_, err := io.WriteString(w, "\n")
	return errors.WithStack(err)
}
