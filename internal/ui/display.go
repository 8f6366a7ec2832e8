// Package ui renders cycle progress, code, run results and the demo library
// for the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jywlabs/demogen/internal/cycle"
	"github.com/jywlabs/demogen/internal/demo"
	"github.com/jywlabs/demogen/internal/repair"
)

// Spinner frames using braille characters
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress bar characters
const (
	barFilled = "█"
	barEmpty  = "░"
	barWidth  = 20
)

// Display handles terminal output with spinners and formatted status.
type Display struct {
	out      io.Writer
	animate  bool
	mu       sync.Mutex
	spinning bool
	spinStop chan struct{}
	spinDone chan struct{}
	spinMsg  string
	start    time.Time
}

// NewDisplay creates a display. Spinners are drawn only when animate is true,
// which callers set for terminals.
func NewDisplay(out io.Writer, animate bool) *Display {
	return &Display{out: out, animate: animate, start: time.Now()}
}

// Writer returns the underlying writer.
func (d *Display) Writer() io.Writer {
	return d.out
}

// StartSpinner shows msg with an animated spinner until StopSpinner.
// Without animation the message is printed once.
func (d *Display) StartSpinner(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.animate {
		fmt.Fprintf(d.out, "   %s\n", StyleMuted.Render(msg))
		return
	}
	if d.spinning {
		d.spinMsg = msg
		return
	}
	d.spinning = true
	d.spinMsg = msg
	d.spinStop = make(chan struct{})
	d.spinDone = make(chan struct{})

	started := time.Now()
	go func() {
		defer close(d.spinDone)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		frame := 0
		for {
			select {
			case <-d.spinStop:
				fmt.Fprint(d.out, "\r\033[K")
				return
			case <-ticker.C:
				d.mu.Lock()
				msg := d.spinMsg
				d.mu.Unlock()
				fmt.Fprintf(d.out, "\r\033[K   %s %s (%s)", StyleAccent.Render(spinnerFrames[frame]), msg, formatElapsed(time.Since(started)))
				frame = (frame + 1) % len(spinnerFrames)
			}
		}
	}()
}

// StopSpinner stops the spinner and clears its line.
func (d *Display) StopSpinner() {
	d.mu.Lock()
	if !d.spinning {
		d.mu.Unlock()
		return
	}
	d.spinning = false
	close(d.spinStop)
	done := d.spinDone
	d.mu.Unlock()
	<-done
}

// ShowHeader displays the command banner.
func (d *Display) ShowHeader(title, detail string) {
	fmt.Fprintf(d.out, "┌─────────────────────────────────────────────────────┐\n")
	fmt.Fprint(d.out, boxLine(title))
	if detail != "" {
		fmt.Fprint(d.out, boxLine(detail))
	}
	fmt.Fprintf(d.out, "└─────────────────────────────────────────────────────┘\n\n")
}

// ShowProgress displays the cycle progress bar.
func (d *Display) ShowProgress(s *cycle.Session) {
	d.StopSpinner()
	filled := s.Progress * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}
	bar := StyleProgressFilled.Render(strings.Repeat(barFilled, filled)) +
		StyleProgressEmpty.Render(strings.Repeat(barEmpty, barWidth-filled))
	fmt.Fprintf(d.out, "  [%s] %3d%%  %s\n", bar, s.Progress, StyleMuted.Render(string(s.Stage)))
}

// ShowDescription displays the detailed description.
func (d *Display) ShowDescription(text string) {
	d.StopSpinner()
	fmt.Fprintln(d.out, StyleTitle.Render("Detailed description"))
	fmt.Fprintln(d.out, DescriptionBox().Render(strings.TrimRight(text, "\n")))
}

// ShowCode displays source code with its file location.
func (d *Display) ShowCode(code, path string) {
	d.StopSpinner()
	title := "Generated code"
	if path != "" {
		title += " " + StyleMuted.Render(path)
	}
	fmt.Fprintln(d.out, StyleTitle.Render(title))
	fmt.Fprintln(d.out, CodeBox().Render(strings.TrimRight(code, "\n")))
}

// ShowTransition reports one repair loop step.
func (d *Display) ShowTransition(t repair.Transition) {
	switch {
	case t.State == repair.StateRunning && t.Result == nil:
		d.StopSpinner()
		fmt.Fprintf(d.out, "───────────────────────────────────────────────────────\n")
		fmt.Fprintf(d.out, "  Attempt %d/%d  %s\n", t.Attempt, t.Max, StyleMuted.Render(t.Artifact.Path))
		fmt.Fprintf(d.out, "───────────────────────────────────────────────────────\n")
		d.StartSpinner("running...")

	case t.State == repair.StateRunning && t.Result != nil:
		d.StopSpinner()
		if t.Result.Succeeded {
			fmt.Fprintf(d.out, "   %s %s\n", StyleSuccess.Render("[ok]"), formatElapsed(t.Result.Duration))
			return
		}
		fmt.Fprintf(d.out, "   %s %s %s\n", StyleError.Render("[!!]"), formatElapsed(t.Result.Duration), lastLine(t.Result.ErrorText))
		if t.Attempt < t.Max {
			d.StartSpinner("asking for a fix...")
		}

	case t.State == repair.StateGenerated && t.Attempt > 1:
		d.StopSpinner()
		fmt.Fprintf(d.out, "   %s repaired code written\n", StyleWarning.Render(">"))
	}
}

// ShowOutcome displays the result of a repair loop run.
func (d *Display) ShowOutcome(out repair.Outcome) {
	d.StopSpinner()
	fmt.Fprintln(d.out)

	switch out.State {
	case repair.StateSuccess:
		fmt.Fprintln(d.out, StyleSuccess.Render(fmt.Sprintf("[ok] Demo ran successfully (attempt %d)", out.Attempts)))
		output := strings.TrimRight(out.Output, "\n")
		if output == "" {
			output = StyleMuted.Render("(no output)")
		}
		fmt.Fprintln(d.out, OutputBox().Render(output))
	case repair.StateExhausted:
		fmt.Fprintln(d.out, StyleError.Render(fmt.Sprintf("[!!] Still failing after %d attempts", out.Attempts)))
		fmt.Fprintln(d.out, ErrorBox().Render(strings.TrimRight(out.ErrorText, "\n")))
	default:
		fmt.Fprintln(d.out, StyleError.Render("[!!] Run stopped"))
		if out.Err != nil {
			fmt.Fprintln(d.out, ErrorBox().Render(out.Err.Error()))
		}
		if out.ErrorText != "" {
			fmt.Fprintln(d.out, StyleMuted.Render(out.ErrorText))
		}
	}
}

// ShowSaved confirms a saved demo.
func (d *Display) ShowSaved(dm demo.Demo) {
	d.StopSpinner()
	fmt.Fprintf(d.out, "%s Demo saved with ID: %s\n", StyleSuccess.Render("[ok]"), dm.ID)
}

// ShowDemos lists saved demos, one per line.
func (d *Display) ShowDemos(demos []demo.Demo) {
	d.StopSpinner()
	if len(demos) == 0 {
		fmt.Fprintln(d.out, StyleMuted.Render("No saved demos found."))
		return
	}
	for _, dm := range demos {
		fmt.Fprintf(d.out, "  %s  %s\n", StyleAccent.Render(dm.ID), truncate(firstLine(dm.UseCase), 60))
	}
}

// ShowDemo displays every field of a saved demo.
func (d *Display) ShowDemo(dm demo.Demo) {
	d.StopSpinner()
	fmt.Fprintf(d.out, "%s %s\n", StyleBold.Render("ID:"), dm.ID)
	fmt.Fprintf(d.out, "%s %s\n\n", StyleBold.Render("Use case:"), dm.UseCase)
	d.ShowDescription(dm.DetailedDescription)
	d.ShowCode(dm.Code, "")
}

// ShowChat displays the edit conversation.
func (d *Display) ShowChat(entries []cycle.ChatEntry) {
	d.StopSpinner()
	if len(entries) == 0 {
		fmt.Fprintln(d.out, StyleMuted.Render("No edits yet."))
		return
	}
	for _, e := range entries {
		role := StyleInfo.Render("you")
		if e.Role == cycle.ChatAssistant {
			role = StyleAccent.Render("engineer")
		}
		fmt.Fprintf(d.out, "  %s: %s\n", role, e.Content)
	}
}

// ShowSuccess displays a success line.
func (d *Display) ShowSuccess(msg string) {
	d.StopSpinner()
	fmt.Fprintf(d.out, "%s %s\n", StyleSuccess.Render("[ok]"), msg)
}

// ShowError displays an error line.
func (d *Display) ShowError(msg string) {
	d.StopSpinner()
	fmt.Fprintf(d.out, "%s %s\n", StyleError.Render("[!!]"), msg)
}

// ShowInfo displays an info message.
func (d *Display) ShowInfo(format string, args ...interface{}) {
	d.StopSpinner()
	fmt.Fprintf(d.out, format, args...)
}

// Elapsed returns the time since the display was created.
func (d *Display) Elapsed() time.Duration {
	return time.Since(d.start).Round(time.Second)
}

// Box drawing constants
const boxWidth = 53 // Inner width between │ symbols

// boxLine creates a properly padded box line: │  content  │
func boxLine(content string) string {
	content = truncate(content, boxWidth-2)
	padding := boxWidth - 2 - utf8.RuneCountInString(content)
	if padding < 0 {
		padding = 0
	}
	return fmt.Sprintf("│  %s%s│\n", content, strings.Repeat(" ", padding))
}

// formatElapsed formats duration with fixed width (always 6 chars like " 1.04s")
func formatElapsed(d time.Duration) string {
	secs := d.Seconds()
	if secs < 10 {
		return fmt.Sprintf("%5.2fs", secs)
	} else if secs < 100 {
		return fmt.Sprintf("%5.1fs", secs)
	}
	return fmt.Sprintf("%5.0fs", secs)
}

// truncate cuts s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
