// Package terminal implements the interactive command-line host for the
// scribe agent.
//
// The assistant's answer is streamed to the output as it arrives. In prompt
// mode every workspace action is shown with a preview and applied only
// after the user answers "y".
//
// # Usage
//
//	term := terminal.New(ag, os.Stdin, os.Stdout)
//	err := term.Run(ctx, initialPrompt)
//
// # Commands
//
//   - /reset starts a new conversation
//   - /pin PATH sends PATH with every prompt
//   - /unpin PATH stops sending PATH
//   - /pins lists the pinned documents
//   - /quit or /exit ends the session
package terminal
