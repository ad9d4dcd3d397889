package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search
platforms and read synthesized positions.

By default the server speaks JSON-RPC over stdio. Use --http to serve the
streamable HTTP transport instead.

Examples:
  plataformas mcp
  plataformas mcp --http :8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "plataformas": {
        "command": "/path/to/plataformas",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "HTTP listen address (empty = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	server, err := mcp.NewServer(&mcp.Ports{
		Retrieval:  retrievalService,
		Corpus:     corpusService,
		Categories: categoryService,
		Reports:    reportService,
	})
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		cmd.PrintErrf("MCP server listening on %s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}
	return server.Run(cmd.Context())
}
