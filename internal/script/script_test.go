package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaterialize_WritesExactBytes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scripts")
	m := New(dir, ".py")

	code := "# comment\nprint('héllo')\n\n\tx = 1  \n"
	art, err := m.Materialize(code)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	if filepath.Dir(art.Path) != dir {
		t.Errorf("path %q not in %q", art.Path, dir)
	}
	if !strings.HasPrefix(filepath.Base(art.Path), "script-") || filepath.Ext(art.Path) != ".py" {
		t.Errorf("unexpected file name %q", filepath.Base(art.Path))
	}
	if art.Code != code {
		t.Error("artifact code differs from input")
	}

	data, err := os.ReadFile(art.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != code {
		t.Errorf("file content = %q, want %q", data, code)
	}
}

func TestMaterialize_NewFileEachCall(t *testing.T) {
	dir := t.TempDir()
	m := New(dir, ".sh")

	first, err := m.Materialize("echo 1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Materialize("echo 1")
	if err != nil {
		t.Fatal(err)
	}

	if first.Path == second.Path {
		t.Fatal("expected distinct paths for each call")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("got %d files, want 2 (old attempts kept)", len(entries))
	}
}

func TestMaterialize_RejectsEmptyCode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scripts")
	m := New(dir, ".py")

	for _, code := range []string{"", "   ", "\n\t"} {
		art, err := m.Materialize(code)
		if !errors.Is(err, ErrEmptyCode) {
			t.Errorf("Materialize(%q) error = %v, want ErrEmptyCode", code, err)
		}
		if art.Path != "" {
			t.Errorf("Materialize(%q) returned a location %q", code, art.Path)
		}
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory should not be created for empty code")
	}
}

func TestMaterialize_UnwritableDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	m := New(filepath.Join(blocker, "scripts"), ".py")
	_, err := m.Materialize("print(1)")
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("error = %v, want ErrWrite", err)
	}
}
