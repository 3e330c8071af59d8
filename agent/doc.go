// Package agent runs one user request against the assistant.
//
// The shared Agent type drives the read loop: it assembles a prompt, streams
// the assistant's answer, serves any <read-file/> requests by sending the
// files back in a follow-up turn, and once the answer is final hands the
// <vault-action> tags to the workspace executor. The number of assistant
// invocations per request is bounded by Config.MaxReadRounds.
//
// Hosts differ only in how they surface events, so they pass a
// ProcessCallbacks value to ProcessUserInput:
//
//	outcome, err := ag.ProcessUserInput(ctx, "tidy up my inbox", agent.ProcessCallbacks{
//	    OnChunk: func(text string) { fmt.Print(text) },
//	    ShouldApplyAction: func(ctx context.Context, a parser.Action, preview string) bool {
//	        return confirm(preview)
//	    },
//	    OnActionResult: func(r agent.ActionResult) { fmt.Println(r.Message) },
//	})
//
// # Modes
//
//   - config.ModeAuto: actions are applied in order without asking
//   - config.ModePrompt: ShouldApplyAction is asked for every action
//
// # Subpackages
//
// agent/terminal is an interactive command-line host. agent/acp serves the
// same loop over newline-delimited JSON-RPC for editor integrations.
package agent
