// Command ws_bridge exposes a stdio agent, by default "scribe acp", over a
// websocket so browser-hosted editors can talk to it. Each connection gets
// its own agent process. Every stdout line is sent as one text message and
// every message received is written to stdin as one line.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	addrFlag string
	pathFlag string
)

var rootCmd = &cobra.Command{
	Use:   "ws_bridge [-- COMMAND ARGS...]",
	Short: "Serve a stdio JSON-RPC agent over a websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"scribe", "acp"}
		}
		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer logger.Sync()

		mux := http.NewServeMux()
		mux.Handle(pathFlag, &bridge{command: args, logger: logger})
		logger.Info("websocket bridge listening",
			zap.String("url", fmt.Sprintf("ws://%s%s", addrFlag, pathFlag)),
			zap.Strings("command", args))
		return http.ListenAndServe(addrFlag, mux)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&addrFlag, "addr", "localhost:8080", "listen address")
	rootCmd.Flags().StringVar(&pathFlag, "path", "/ws", "websocket endpoint path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
