package runner

import (
	"fmt"
	"sort"
	"strings"
)

// Runtime describes how to run a source file of one language.
type Runtime struct {
	Name      string // registry key, e.g. "python"
	Display   string // language name used in prompts, e.g. "Python"
	Extension string // file extension including the dot
	Binary    string // interpreter or toolchain executable
	Args      []string
}

// Command returns the executable and arguments that run the file at path.
func (r Runtime) Command(path string) (string, []string) {
	args := make([]string, 0, len(r.Args)+1)
	args = append(args, r.Args...)
	args = append(args, path)
	return r.Binary, args
}

// runtimes maps language names to their runtime.
// Runtimes register themselves via Register.
var runtimes = make(map[string]Runtime)

// Register adds a runtime by name, replacing any previous registration.
func Register(rt Runtime) {
	runtimes[strings.ToLower(rt.Name)] = rt
}

// Lookup returns the runtime registered under name.
func Lookup(name string) (Runtime, error) {
	rt, ok := runtimes[strings.ToLower(name)]
	if !ok {
		return Runtime{}, fmt.Errorf("unknown language: %s (supported: %s)", name, strings.Join(Available(), ", "))
	}
	return rt, nil
}

// Available returns the registered runtime names in sorted order.
func Available() []string {
	names := make([]string, 0, len(runtimes))
	for name := range runtimes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(Runtime{Name: "python", Display: "Python", Extension: ".py", Binary: "python3", Args: []string{"-u"}})
	Register(Runtime{Name: "node", Display: "JavaScript (Node.js)", Extension: ".js", Binary: "node"})
	Register(Runtime{Name: "bash", Display: "Bash", Extension: ".sh", Binary: "bash"})
	Register(Runtime{Name: "go", Display: "Go", Extension: ".go", Binary: "go", Args: []string{"run"}})
}
