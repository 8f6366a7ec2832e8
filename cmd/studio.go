package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jywlabs/demogen/internal/cycle"
)

var studioCmd = &cobra.Command{
	Use:   "studio",
	Short: "Interactive session",
	Long: `Start an interactive session that keeps the current use case,
description, code and chat history between commands.

Commands inside the studio:
  describe <use case>  Start a cycle and write the detailed description
  generate             Write code for the current description
  run                  Run the current code with auto-repair
  cycle <use case>     describe, generate and run in one step
  edit <request>       Apply a change request to the current code
  save                 Save the current demo
  load <demo-id>       Load a saved demo into the session
  delete <demo-id>     Delete a saved demo
  list                 List saved demos
  show                 Show the session's description and code
  history              Show the edit chat history
  help                 Show this list
  quit                 Leave the studio`,
	Args: cobra.NoArgs,
	RunE: runStudio,
}

func init() {
	rootCmd.AddCommand(studioCmd)
}

const studioHelp = `Commands: describe <use case>, generate, run, cycle <use case>, edit <request>,
save, load <id>, delete <id>, list, show, history, help, quit`

func runStudio(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.display.ShowHeader("demogen studio", "Type 'help' for commands, 'quit' to leave")
	return studio(cmd, a, cmd.InOrStdin())
}

// errQuit ends the studio loop.
var errQuit = errors.New("quit")

// studio reads one command per line from in until quit or EOF. Command
// errors are shown and the session continues.
func studio(cmd *cobra.Command, a *app, in io.Reader) error {
	s := cycle.NewSession()
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "demogen> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		err := studioCommand(cmd, a, s, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			a.display.ShowError(err.Error())
		}
	}
}

func studioCommand(cmd *cobra.Command, a *app, s *cycle.Session, line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	ctx := cmd.Context()
	p := a.pipeline
	d := a.display

	switch strings.ToLower(name) {
	case "quit", "exit":
		return errQuit

	case "help":
		fmt.Fprintln(d.Writer(), studioHelp)

	case "describe", "new":
		if err := p.Start(s, arg); err != nil {
			return err
		}
		d.StartSpinner("product owner is writing the description...")
		if err := p.Describe(ctx, s); err != nil {
			return err
		}
		d.ShowProgress(s)
		d.ShowDescription(s.Description)

	case "generate":
		d.StartSpinner("software engineer is writing the code...")
		if err := p.Generate(ctx, s); err != nil {
			return err
		}
		d.ShowProgress(s)
		d.ShowCode(s.Artifact.Code, s.Artifact.Path)

	case "run":
		return runSession(cmd, a, s, false)

	case "cycle":
		return generateDemo(cmd, a, s, arg, false, false)

	case "edit":
		if arg == "" {
			return fmt.Errorf("usage: edit <request>")
		}
		return editSession(cmd, a, s, arg, false)

	case "save":
		return saveIfRequested(cmd, a, s, true)

	case "load":
		if arg == "" {
			return fmt.Errorf("usage: load <demo-id>")
		}
		dm, err := p.LoadDemo(ctx, s, arg)
		if err != nil {
			return err
		}
		d.ShowSuccess(fmt.Sprintf("Loaded demo %s", dm.ID))
		d.ShowProgress(s)
		d.ShowDescription(s.Description)
		d.ShowCode(s.Artifact.Code, s.Artifact.Path)

	case "delete":
		if arg == "" {
			return fmt.Errorf("usage: delete <demo-id>")
		}
		removed, err := p.DeleteDemo(ctx, arg)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("demo not found: %s", arg)
		}
		d.ShowSuccess(fmt.Sprintf("Demo %s deleted", arg))

	case "list":
		demos, err := a.store.List(ctx)
		if err != nil {
			return err
		}
		d.ShowDemos(demos)

	case "show":
		d.ShowProgress(s)
		if s.UseCase != "" {
			d.ShowInfo("Use case: %s\n", s.UseCase)
		}
		if s.Description != "" {
			d.ShowDescription(s.Description)
		}
		if s.HasCode() {
			d.ShowCode(s.Artifact.Code, s.Artifact.Path)
		}

	case "history":
		d.ShowChat(s.Chat)

	default:
		return fmt.Errorf("unknown command %q (type 'help')", name)
	}
	return nil
}
