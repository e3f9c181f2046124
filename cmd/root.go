// Package cmd provides the CLI commands for the chat service.
//
// Commands:
//   - serve: HTTP API server with NDJSON streaming (default)
//   - migrate: apply document store migrations
//   - version: show build and configuration information
//
// All commands load configuration through internal/config, so the
// CHATBOX_* environment variables and ~/.chatinabox/config.yaml apply
// uniformly.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/api"
)

var rootCmd = &cobra.Command{
	Use:   "chatinabox",
	Short: "Chat-in-a-box - streaming chat service with agents",
	Long: `Chat-in-a-box is a self-hosted chat service backed by a local
Ollama model. It streams model output over NDJSON, keeps a bounded
per-conversation memory, retrieves document context from a pgvector
store, and dispatches specialized queries to agents.

Running chatinabox without a subcommand starts the HTTP API server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(api.DefaultAddr)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
