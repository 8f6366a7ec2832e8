package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// DriverFile selects FileStore.
const DriverFile = "file"

// FileStore keeps one <id>.json file per demo in Dir.
// There is no locking; concurrent writers of the same directory are not supported.
type FileStore struct {
	Dir string
	// Logger receives a warning for each record List skips.
	Logger zerolog.Logger
}

// NewFileStore creates a FileStore rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir, Logger: zerolog.Nop()}
}

// rawDemo uses pointers so a missing field can be told apart from an empty one.
type rawDemo struct {
	ID                  *string `json:"id"`
	UseCase             *string `json:"use_case"`
	DetailedDescription *string `json:"detailed_description"`
	Code                *string `json:"code"`
}

func (r rawDemo) demo() (Demo, error) {
	var missing []string
	if r.ID == nil {
		missing = append(missing, "id")
	}
	if r.UseCase == nil {
		missing = append(missing, "use_case")
	}
	if r.DetailedDescription == nil {
		missing = append(missing, "detailed_description")
	}
	if r.Code == nil {
		missing = append(missing, "code")
	}
	if len(missing) > 0 {
		return Demo{}, fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}
	return Demo{
		ID:                  *r.ID,
		UseCase:             *r.UseCase,
		DetailedDescription: *r.DetailedDescription,
		Code:                *r.Code,
	}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

// Save writes a new record.
func (s *FileStore) Save(_ context.Context, useCase, description, code string) (Demo, error) {
	d := Demo{
		ID:                  NewID(),
		UseCase:             useCase,
		DetailedDescription: description,
		Code:                code,
	}
	if err := checkText(d); err != nil {
		return Demo{}, err
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return Demo{}, fmt.Errorf("%w: create %s: %v", ErrPersistence, s.Dir, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return Demo{}, fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}

	if err := os.WriteFile(s.path(d.ID), buf.Bytes(), 0644); err != nil {
		return Demo{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return d, nil
}

// List reads every record in Dir. A missing directory holds no demos.
// Records that cannot be decoded are skipped with a warning so one damaged
// file does not hide the rest; Load still reports them.
func (s *FileStore) List(_ context.Context) ([]Demo, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Demo{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	demos := make([]Demo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		d, err := s.read(filepath.Join(s.Dir, entry.Name()))
		if errors.Is(err, ErrInvalidRecord) {
			s.Logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping invalid demo record")
			continue
		}
		if err != nil {
			return nil, err
		}
		demos = append(demos, d)
	}
	return demos, nil
}

// Load reads the record with id.
func (s *FileStore) Load(_ context.Context, id string) (Demo, error) {
	if !validID(id) {
		return Demo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	d, err := s.read(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return Demo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, err
}

// Delete removes the record with id.
func (s *FileStore) Delete(_ context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	err := os.Remove(s.path(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrPersistence, err)
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(path string) (Demo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Demo{}, err
		}
		return Demo{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if !utf8.Valid(data) {
		return Demo{}, fmt.Errorf("%w: %s: not valid UTF-8", ErrInvalidRecord, filepath.Base(path))
	}

	var raw rawDemo
	if err := json.Unmarshal(data, &raw); err != nil {
		return Demo{}, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, filepath.Base(path), err)
	}
	d, err := raw.demo()
	if err != nil {
		return Demo{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return d, nil
}
