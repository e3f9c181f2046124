package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		printVersion(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "chat-in-a-box %s\n", AppVersion)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Ollama host: %s\n", cfg.OllamaHost)
	fmt.Fprintf(w, "  Chat model: %s\n", cfg.ModelName)
	fmt.Fprintf(w, "  Embedder model: %s\n", cfg.EmbedderModel)
	fmt.Fprintf(w, "  History window: %d turns\n", cfg.MaxHistoryTurns)
	if cfg.PostgresHost == "" {
		fmt.Fprintln(w, "  Document store: disabled")
	} else {
		fmt.Fprintf(w, "  Document store: %s:%d/%s\n",
			cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)
	}
}
