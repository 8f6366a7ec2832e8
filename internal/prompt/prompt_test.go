package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jywlabs/demogen/internal/llm"
	"github.com/jywlabs/demogen/internal/template"
)

func TestBuilderShapes(t *testing.T) {
	b := NewBuilder("Python")

	tests := []struct {
		name       string
		build      func() ([]llm.Message, error)
		wantSystem string
		wantChecks []string // Substrings that must be present in the user message
	}{
		{
			name:       "describe",
			build:      func() ([]llm.Message, error) { return b.Describe("Print the first 5 Fibonacci numbers") },
			wantSystem: b.ProductOwner,
			wantChecks: []string{"Demo description:", "Print the first 5 Fibonacci numbers"},
		},
		{
			name:       "generate",
			build:      func() ([]llm.Message, error) { return b.Generate("1. Compute fib\n2. Print 0,1,1,2,3") },
			wantSystem: b.Engineer,
			wantChecks: []string{
				"Print 0,1,1,2,3",
				"Provide only the Python code",
				"Don't return any markdown",
				"Always return the whole Python file",
			},
		},
		{
			name:       "repair",
			build:      func() ([]llm.Message, error) { return b.Repair("fib demo", "print(fib(5))", "NameError: name 'fib' is not defined") },
			wantSystem: b.Engineer,
			wantChecks: []string{
				"Detailed description:\nfib demo",
				"Current code:\nprint(fib(5))",
				"NameError: name 'fib' is not defined",
				"fix the code",
				"Always return the whole Python file",
			},
		},
		{
			name:       "edit",
			build:      func() ([]llm.Message, error) { return b.Edit("print(1)", "print 2 as well") },
			wantSystem: b.Engineer,
			wantChecks: []string{"Current code:\nprint(1)", "User request:\nprint 2 as well", "modify the code"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := tt.build()
			if err != nil {
				t.Fatalf("build error = %v", err)
			}
			if len(msgs) != 2 {
				t.Fatalf("got %d messages, want 2", len(msgs))
			}
			if msgs[0].Role != llm.RoleSystem || msgs[0].Content != tt.wantSystem {
				t.Errorf("system message = %+v", msgs[0])
			}
			if msgs[1].Role != llm.RoleUser {
				t.Errorf("second role = %q, want user", msgs[1].Role)
			}
			for _, check := range tt.wantChecks {
				if !strings.Contains(msgs[1].Content, check) {
					t.Errorf("user message missing %q:\n%s", check, msgs[1].Content)
				}
			}
		})
	}
}

func TestRepairWithoutDescription(t *testing.T) {
	b := NewBuilder("Python")
	msgs, err := b.Repair("", "x = 1", "boom")
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if strings.Contains(msgs[1].Content, "Detailed description") {
		t.Error("empty description should be omitted")
	}
}

func TestBuilderRejectsEmptyInput(t *testing.T) {
	b := NewBuilder("Python")

	calls := map[string]func() ([]llm.Message, error){
		"describe":        func() ([]llm.Message, error) { return b.Describe("  ") },
		"generate":        func() ([]llm.Message, error) { return b.Generate("") },
		"repair no code":  func() ([]llm.Message, error) { return b.Repair("d", "", "err") },
		"repair no error": func() ([]llm.Message, error) { return b.Repair("d", "code", "\n") },
		"edit no code":    func() ([]llm.Message, error) { return b.Edit("", "req") },
		"edit no request": func() ([]llm.Message, error) { return b.Edit("code", "") },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			msgs, err := call()
			if !errors.Is(err, ErrEmptyInput) {
				t.Errorf("error = %v, want ErrEmptyInput", err)
			}
			if msgs != nil {
				t.Errorf("messages = %v, want nil", msgs)
			}
		})
	}
}

func TestLanguageInRules(t *testing.T) {
	b := NewBuilder("Bash")
	msgs, _ := b.Generate("list files")
	if !strings.Contains(msgs[1].Content, "ONLY Bash code") {
		t.Errorf("rules should name the language:\n%s", msgs[1].Content)
	}
}

func TestLoadRoles(t *testing.T) {
	dir := t.TempDir()
	demogenDir := filepath.Join(dir, template.DemogenDir)
	if err := os.MkdirAll(demogenDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(demogenDir, template.ProductOwnerFile), []byte("custom owner"), 0644); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder("Python")
	if err := b.LoadRoles(dir); err != nil {
		t.Fatalf("LoadRoles() error = %v", err)
	}
	if b.ProductOwner != "custom owner" {
		t.Errorf("ProductOwner = %q, want override", b.ProductOwner)
	}
	if b.Engineer != template.DefaultSoftwareEngineer {
		t.Error("Engineer should keep the embedded default")
	}
}
