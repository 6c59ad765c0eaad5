// Command avis-mcp serves the therapy tools to MCP clients over stdio. It needs no
// external services: evaluations are cached in memory and feedback lives in SQLite.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/crishurazvi/avis-diabeto/internal/config"
	"github.com/crishurazvi/avis-diabeto/internal/mcp"
	"github.com/crishurazvi/avis-diabeto/internal/setup"
)

var version = "1.0.0"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "avis-mcp: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "avis-mcp",
		Short:        "Stdio MCP server for ADA/EASD 2022 therapy recommendations",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadLiteConfig()
			if cfg.Transport != "stdio" {
				return fmt.Errorf("unsupported transport %q: only stdio is available", cfg.Transport)
			}

			server, err := mcp.NewLiteServer(cfg, version)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			return server.Start(cmd.Context())
		},
	}
	root.AddCommand(setup.NewCommand())
	return root
}
