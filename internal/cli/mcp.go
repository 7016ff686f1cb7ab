package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	scmcp "github.com/valter-silva-au/sitecheck/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the sitecheck MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sitecheck MCP server on stdio",
	Long: `Start the sitecheck MCP server on stdio transport.

The server exposes the checklist engine and stored checklists as MCP tools:
list_templates, instantiate_template, create_checklist, calculate_progress,
validate_checklist, get_checklist_progress, set_item_status, get_metrics,
get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil || Catalog == nil || IDGen == nil {
			return fmt.Errorf("checklist services not initialized")
		}

		srv := scmcp.NewServer(Manager, Catalog, IDGen, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
