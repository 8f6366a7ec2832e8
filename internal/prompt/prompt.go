package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jywlabs/demogen/internal/llm"
	"github.com/jywlabs/demogen/internal/template"
)

// ErrEmptyInput is returned when a required prompt field is blank.
var ErrEmptyInput = errors.New("prompt input is empty")

// Builder composes the message lists for the product owner and software
// engineer roles.
type Builder struct {
	ProductOwner string // system instruction for the describe prompt
	Engineer     string // system instruction for generate, repair and edit
	Language     string // display name of the target language, e.g. "Python"
}

// NewBuilder returns a Builder using the embedded role instructions.
func NewBuilder(language string) *Builder {
	return &Builder{
		ProductOwner: template.DefaultProductOwner,
		Engineer:     template.DefaultSoftwareEngineer,
		Language:     language,
	}
}

// LoadRoles replaces the role instructions with the files in
// <dir>/.demogen/ when they exist.
func (b *Builder) LoadRoles(dir string) error {
	for file, dst := range map[string]*string{
		template.ProductOwnerFile:     &b.ProductOwner,
		template.SoftwareEngineerFile: &b.Engineer,
	} {
		data, err := os.ReadFile(filepath.Join(dir, template.DemogenDir, file))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) != "" {
			*dst = string(data)
		}
	}
	return nil
}

// Describe builds the product owner prompt for a use case.
func (b *Builder) Describe(useCase string) ([]llm.Message, error) {
	if blank(useCase) {
		return nil, fmt.Errorf("%w: use case", ErrEmptyInput)
	}
	return b.messages(b.ProductOwner, fmt.Sprintf("Demo description:\n%s", useCase)), nil
}

// Generate builds the engineer prompt that writes code from a detailed description.
func (b *Builder) Generate(description string) ([]llm.Message, error) {
	if blank(description) {
		return nil, fmt.Errorf("%w: detailed description", ErrEmptyInput)
	}
	user := fmt.Sprintf(`%s

%s`, description, b.formatRules())
	return b.messages(b.Engineer, user), nil
}

// Repair builds the engineer prompt that fixes code after a failed run.
// The description may be empty when a demo was loaded without one.
func (b *Builder) Repair(description, code, errorText string) ([]llm.Message, error) {
	if blank(code) {
		return nil, fmt.Errorf("%w: current code", ErrEmptyInput)
	}
	if blank(errorText) {
		return nil, fmt.Errorf("%w: error text", ErrEmptyInput)
	}

	var user strings.Builder
	if !blank(description) {
		fmt.Fprintf(&user, "Detailed description:\n%s\n\n", description)
	}
	fmt.Fprintf(&user, `Current code:
%s

The current code produced the following error:
%s

Please fix the code to resolve this error.

%s`, code, errorText, b.formatRules())

	return b.messages(b.Engineer, user.String()), nil
}

// Edit builds the engineer prompt for a free-form change request.
func (b *Builder) Edit(code, request string) ([]llm.Message, error) {
	if blank(code) {
		return nil, fmt.Errorf("%w: current code", ErrEmptyInput)
	}
	if blank(request) {
		return nil, fmt.Errorf("%w: edit request", ErrEmptyInput)
	}
	user := fmt.Sprintf(`Current code:
%s

User request:
%s

Please modify the code according to the user's request.

%s`, code, request, b.formatRules())
	return b.messages(b.Engineer, user), nil
}

// formatRules are the output constraints shared by every engineer prompt.
func (b *Builder) formatRules() string {
	lang := b.Language
	if lang == "" {
		lang = "Python"
	}
	return fmt.Sprintf(`- Provide only the %[1]s code with comments and without any additional text or explanations.
- Don't return any markdown. ONLY %[1]s code. Don't output code fences at the beginning and end of the code.
- Always return the whole %[1]s file.`, lang)
}

func (b *Builder) messages(system, user string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
