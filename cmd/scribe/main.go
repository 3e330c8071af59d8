// Command scribe runs a command-line AI assistant against a notes vault.
//
// Usage:
//
//	scribe [chat] [PROMPT...]   interactive session (default)
//	scribe acp                  Agent Client Protocol server on stdio
//	scribe mcp                  MCP server exposing the vault tools on stdio
//	scribe apply FILE           apply the vault actions in a saved response
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	exeFlag     string
	modelFlag   string
	vaultFlag   string
	modeFlag    string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "scribe [PROMPT...]",
	Short:         "Work on a notes vault with a command-line AI assistant",
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	RunE:          runChat,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&exeFlag, "exe", "", "assistant executable (overrides config)")
	flags.StringVar(&modelFlag, "model", "", "model passed to the assistant with --model")
	flags.StringVar(&vaultFlag, "vault", "", "vault directory (defaults to the working directory)")
	flags.StringVar(&modeFlag, "mode", "", "action mode: 'auto' or 'prompt'")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(chatCmd, acpCmd, mcpCmd, applyCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigs {
			// Ctrl-C during a chat request only cancels that request.
			if sig == os.Interrupt && current.interrupt() {
				continue
			}
			cancel()
			current.shutdown()
			fmt.Fprintf(os.Stderr, "\nreceived %s, exiting\n", sig)
			os.Exit(130)
		}
	}()

	err := rootCmd.ExecuteContext(ctx)
	signal.Stop(sigs)
	current.shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}
