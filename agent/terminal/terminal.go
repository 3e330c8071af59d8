package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/m4xw311/scribe/agent"
	"github.com/m4xw311/scribe/errors"
	"github.com/m4xw311/scribe/parser"
)

// Terminal handles the terminal/CLI interaction mode for the agent
type Terminal struct {
	agent   *agent.Agent
	scanner *bufio.Scanner
	out     io.Writer
}

// New creates a new Terminal reading user input from in and writing to out.
func New(a *agent.Agent, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		agent:   a,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Run starts the interactive terminal session. It returns when the input
// ends, the user quits or ctx is cancelled.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	// If there's an initial prompt from the command line, use it first
	if initialPrompt != "" {
		t.processTurn(ctx, initialPrompt)
	}

	for ctx.Err() == nil {
		fmt.Fprint(t.out, "You: ")
		if !t.scanner.Scan() {
			// EOF or read error ends the session
			break
		}

		userInput := strings.TrimSpace(t.scanner.Text())
		if userInput == "" {
			continue
		}
		if strings.HasPrefix(userInput, "/") {
			if quit := t.command(userInput); quit {
				break
			}
			continue
		}
		t.processTurn(ctx, userInput)
	}

	return t.scanner.Err()
}

// command runs a slash command and reports whether the session should end.
func (t *Terminal) command(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true
	case "/reset":
		t.agent.Reset()
		fmt.Fprintln(t.out, "Conversation cleared.")
	case "/pin":
		if arg == "" {
			fmt.Fprintln(t.out, "Usage: /pin PATH")
			break
		}
		t.agent.Pin(arg)
		fmt.Fprintf(t.out, "Pinned: %s\n", parser.NormalizePath(arg))
	case "/unpin":
		if t.agent.Unpin(arg) {
			fmt.Fprintf(t.out, "Unpinned: %s\n", parser.NormalizePath(arg))
		} else {
			fmt.Fprintf(t.out, "Not pinned: %s\n", arg)
		}
	case "/pins":
		pinned := t.agent.Pinned()
		if len(pinned) == 0 {
			fmt.Fprintln(t.out, "Nothing pinned.")
		}
		for _, p := range pinned {
			fmt.Fprintf(t.out, "- %s\n", p)
		}
	default:
		fmt.Fprintf(t.out, "Unknown command: %s\n", name)
	}
	return false
}

// Interrupt cancels the request in progress and reports whether there was
// one. It is safe to call from a signal handler goroutine.
func (t *Terminal) Interrupt() bool {
	if !t.agent.Running() {
		return false
	}
	t.agent.Cancel()
	return true
}

// processTurn handles a single user input turn. Errors are printed, never
// returned, so one failed request does not end the session.
func (t *Terminal) processTurn(ctx context.Context, userInput string) {
	fmt.Fprint(t.out, "Scribe: ")
	// raw holds what was streamed since the last read round, so the cleaned
	// answer is only repeated when tags were stripped from it.
	var raw strings.Builder
	callbacks := agent.ProcessCallbacks{
		OnChunk: func(text string) {
			raw.WriteString(text)
			fmt.Fprint(t.out, text)
		},
		OnReadRequest: func(paths []string) {
			raw.Reset()
			fmt.Fprintf(t.out, "\n[reading %s]\n", strings.Join(paths, ", "))
		},
		OnAssistantMessage: func(message string) {
			fmt.Fprintln(t.out)
			if message != "" && message != strings.TrimSpace(raw.String()) {
				fmt.Fprintf(t.out, "Answer: %s\n", message)
			}
		},
		ShouldApplyAction: func(_ context.Context, action parser.Action, preview string) bool {
			fmt.Fprintf(t.out, "%s\nApply this change? (y/n): ", preview)
			if !t.scanner.Scan() {
				return false
			}
			return strings.TrimSpace(strings.ToLower(t.scanner.Text())) == "y"
		},
		OnActionResult: func(result agent.ActionResult) {
			fmt.Fprintln(t.out, result.Message)
		},
		OnWarning: func(warning string) {
			fmt.Fprintf(t.out, "Warning: %s\n", warning)
		},
	}

	_, err := t.agent.ProcessUserInput(ctx, userInput, callbacks)
	switch {
	case errors.Is(err, agent.ErrCancelled):
		fmt.Fprintln(t.out, "\n[cancelled]")
	case err != nil:
		fmt.Fprintf(t.out, "\nError: %v\n", err)
	}
}
