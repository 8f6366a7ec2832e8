// Package demo persists finished demos: the use case, the detailed
// description and the code that produced a clean run.
package demo

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jywlabs/demogen/internal/config"
)

var (
	// ErrNotFound is returned when no demo has the requested id.
	ErrNotFound = errors.New("demo not found")
	// ErrPersistence wraps every storage failure.
	ErrPersistence = errors.New("demo store failure")
	// ErrInvalidRecord is returned when a stored record lacks a field.
	ErrInvalidRecord = errors.New("invalid demo record")
)

// Demo is one saved demo. The JSON form is the on-disk record format.
type Demo struct {
	ID                  string `json:"id"`
	UseCase             string `json:"use_case"`
	DetailedDescription string `json:"detailed_description"`
	Code                string `json:"code"`
}

// Store saves and retrieves demos.
type Store interface {
	// Save stores a new demo under a fresh id. Identical content is saved again.
	Save(ctx context.Context, useCase, description, code string) (Demo, error)
	// List returns every stored demo. Order is backend specific.
	List(ctx context.Context) ([]Demo, error)
	// Load returns the demo with id or ErrNotFound.
	Load(ctx context.Context, id string) (Demo, error)
	// Delete removes the demo with id and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

// NewID returns a random demo id.
func NewID() string {
	return uuid.NewString()
}

// validID rejects anything that is not a UUID so ids can never name a path
// outside the store.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// checkText rejects fields that would not survive a round trip. Encoders
// replace invalid UTF-8 with U+FFFD, so the loaded demo would differ.
func checkText(d Demo) error {
	fields := []struct{ name, value string }{
		{"use_case", d.UseCase},
		{"detailed_description", d.DetailedDescription},
		{"code", d.Code},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidRecord, f.name)
		}
	}
	return nil
}

// Open returns the store selected by cfg.Driver. logger is used by the file
// backend to report skipped records.
func Open(cfg config.StoreConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", DriverFile:
		fs := NewFileStore(cfg.Dir)
		fs.Logger = logger
		return fs, nil
	case DriverSQLite, DriverLibSQL, DriverPostgres:
		return OpenSQL(cfg.Driver, dsnFor(cfg))
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", ErrPersistence, cfg.Driver)
	}
}
