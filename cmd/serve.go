package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/api"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/app"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve [addr]",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

The address can be given as a positional argument or via --addr:

  chatinabox serve :8080
  chatinabox serve --addr 0.0.0.0:8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flagAddr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return err
		}
		addr, err := resolveServeAddr(args, flagAddr)
		if err != nil {
			return err
		}
		return runServe(addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", api.DefaultAddr, "listen address (host:port)")
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the application and serves until SIGINT or
// SIGTERM.
func runServe(addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	// The one place process-wide logger state is touched.
	slog.SetDefault(a.Logger)
	a.Logger.Info("starting chat-in-a-box", "version", AppVersion)

	srv := api.NewServer(api.ServerConfig{
		CORSOrigins:   cfg.CORSOrigins,
		TrustProxy:    cfg.TrustProxy,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		RetrievalTopK: cfg.RetrievalTopK,
	}, a.Model, a.Memory, a.Registry, a.Searcher, a.Pool, a.Logger)

	return srv.Run(ctx, addr)
}
