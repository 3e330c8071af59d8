package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m4xw311/scribe/agent/acp"
	"github.com/m4xw311/scribe/agent/terminal"
	"github.com/m4xw311/scribe/config"
	"github.com/m4xw311/scribe/errors"
	"github.com/m4xw311/scribe/mcpserver"
	"github.com/m4xw311/scribe/parser"
	"github.com/m4xw311/scribe/workspace"
)

var chatCmd = &cobra.Command{
	Use:   "chat [PROMPT...]",
	Short: "Start an interactive session (default)",
	RunE:  runChat,
}

var acpCmd = &cobra.Command{
	Use:   "acp",
	Short: "Serve the Agent Client Protocol on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runACP,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the vault tools over MCP on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

var applyCmd = &cobra.Command{
	Use:   "apply FILE",
	Short: "Apply the vault actions in a saved assistant response ('-' reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scribe is ready in %s (%s mode). Type your prompt, /quit to exit.\n", a.vaultRoot, a.cfg.Mode)
	term := terminal.New(a.newAgent(), cmd.InOrStdin(), out)
	current.setInterrupt(term.Interrupt)
	defer current.setInterrupt(nil)
	return term.Run(cmd.Context(), strings.Join(args, " "))
}

func runACP(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return acp.Run(cmd.Context(), a.newAgent, cmd.InOrStdin(), cmd.OutOrStdout(), acp.Options{
		VaultRoot: a.vaultRoot,
		Logger:    a.logger,
	})
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return mcpserver.New(a.executor, a.cfg.ReadCharLimit, version, a.logger).Run(cmd.Context())
}

func runApply(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	fromStdin := args[0] == "-"
	if fromStdin && a.cfg.Mode == config.ModePrompt {
		return errors.New("cannot confirm actions while the response is read from stdin; use --mode auto")
	}
	var data []byte
	if fromStdin {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	var confirm func(parser.Action, string) bool
	if a.cfg.Mode == config.ModePrompt {
		confirm = promptConfirm(bufio.NewScanner(cmd.InOrStdin()), cmd.OutOrStdout())
	}
	return applyResponse(cmd, a.executor, string(data), confirm)
}

// applyResponse prints the response without its tags, then applies each
// action and prints its result. A nil confirm applies everything.
func applyResponse(cmd *cobra.Command, executor *workspace.Executor, response string, confirm func(parser.Action, string) bool) error {
	out := cmd.OutOrStdout()
	text, actions := parser.ExtractActions(response)
	if text != "" {
		fmt.Fprintln(out, text)
	}
	if len(actions) == 0 {
		fmt.Fprintln(out, "No vault actions found.")
		return nil
	}

	failed := 0
	for _, action := range actions {
		if confirm != nil {
			preview, err := executor.Preview(cmd.Context(), action)
			if err != nil {
				preview = action.Label()
			}
			if !confirm(action, preview) {
				fmt.Fprintf(out, "Skipped: %s\n", action.Label())
				continue
			}
		}
		msg, ok := executor.ApplySafely(cmd.Context(), action)
		if !ok {
			failed++
		}
		fmt.Fprintln(out, msg)
	}
	if failed > 0 {
		return errors.New("%d of %d actions failed", failed, len(actions))
	}
	return nil
}

func promptConfirm(scanner *bufio.Scanner, out io.Writer) func(parser.Action, string) bool {
	return func(_ parser.Action, preview string) bool {
		fmt.Fprintf(out, "%s\nApply this change? (y/n): ", preview)
		if !scanner.Scan() {
			return false
		}
		return strings.TrimSpace(strings.ToLower(scanner.Text())) == "y"
	}
}
