package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/llmsresearch/paperbanana/internal/mcpserver"
)

// mcpCommand creates the mcp command serving tools over stdio.
func (c *CLI) mcpCommand() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve generation and evaluation tools over MCP stdio",
		Long: `Serve generation and evaluation tools over MCP stdio.

Speaks JSON-RPC 2.0 on stdin/stdout so MCP clients can call generate_diagram,
generate_plot, and evaluate_diagram directly. All diagnostics go to stderr;
stdout carries only protocol traffic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := c.loadSettings()
			if err != nil {
				return err
			}
			if outputDir != "" {
				settings.OutputDir = outputDir
			}

			runner, err := c.newRunner(settings, false)
			if err != nil {
				return err
			}
			j, err := c.newJudge(settings)
			if err != nil {
				return err
			}

			c.Logger.Info("mcp server listening on stdio")
			server := mcpserver.New(runner, j, c.Logger)
			return server.Serve(cmd.Context(), os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "run artifact directory (default paperbanana_runs)")

	return cmd
}
