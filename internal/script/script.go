// Package script writes generated code to uniquely named files.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrEmptyCode is returned when there is no code to write.
	ErrEmptyCode = errors.New("no code was generated")
	// ErrWrite is returned when the script could not be written to disk.
	ErrWrite = errors.New("failed to save script")
)

// FilePrefix starts the name of every file written by a Materializer.
const FilePrefix = "script-"

// Artifact is the current code of a cycle and where it lives on disk.
type Artifact struct {
	Code string
	Path string
}

// Materializer writes each version of the code to a fresh file in Dir.
// Files from earlier attempts are left in place.
type Materializer struct {
	Dir       string
	Extension string // including the dot, e.g. ".py"
}

// New creates a Materializer.
func New(dir, extension string) *Materializer {
	return &Materializer{Dir: dir, Extension: extension}
}

// Materialize writes code byte-for-byte to a new file and returns its location.
func (m *Materializer) Materialize(code string) (Artifact, error) {
	if strings.TrimSpace(code) == "" {
		return Artifact{}, ErrEmptyCode
	}

	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return Artifact{}, fmt.Errorf("%w: create %s: %v", ErrWrite, m.Dir, err)
	}

	path := filepath.Join(m.Dir, FilePrefix+uuid.NewString()+m.Extension)

	// O_EXCL guarantees an earlier attempt's file is never overwritten.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		os.Remove(path)
		return Artifact{}, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Artifact{}, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	return Artifact{Code: code, Path: path}, nil
}
