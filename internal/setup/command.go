package setup

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewCommand builds the "setup" command tree shared by avisctl and avis-mcp.
func NewCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with desktop clients",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "client config file (default: platform Claude Desktop path)")

	cmd.AddCommand(newClaudeDesktopCommand(&configPath))
	cmd.AddCommand(newStatusCommand(&configPath))
	cmd.AddCommand(newRemoveCommand(&configPath))
	return cmd
}

func newClaudeDesktopCommand(configPath *string) *cobra.Command {
	var opts Options
	var env []string

	cmd := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add or update the avis-diabeto entry in Claude Desktop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.ConfigPath = *configPath
			opts.Env = make(map[string]string, len(env))
			for _, kv := range env {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || !strings.HasPrefix(k, "AVIS_") {
					return fmt.Errorf("invalid --env %q: expected AVIS_NAME=value", kv)
				}
				opts.Env[k] = v
			}

			path, err := ConfigureClaudeDesktop(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configured %s in %s\nRestart Claude Desktop to load the server.\n", ServerName, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to the avis-mcp binary (default: auto-detect)")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "data directory for feedback and exports")
	cmd.Flags().StringArrayVar(&env, "env", nil, "extra AVIS_NAME=value passed to the server (repeatable)")
	return cmd
}

func newStatusCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current client configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := GetStatus(*configPath)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Config file: %s\n", status.ConfigPath)
			fmt.Fprintf(out, "Configured:  %t\n", status.Configured)
			if status.Configured {
				fmt.Fprintf(out, "Server:      %s\n", status.ServerPath)
				fmt.Fprintf(out, "Data dir:    %s\n", status.DataDir)
			}
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return nil
		},
	}
}

func newRemoveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the avis-diabeto entry from Claude Desktop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := RemoveFromClaudeDesktop(*configPath)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintln(cmd.OutOrStdout(), "Removed", ServerName)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), ServerName, "was not configured")
			}
			return nil
		},
	}
}
