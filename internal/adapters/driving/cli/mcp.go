package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docqa/internal/adapters/driving/watch"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	mcpHTTPAddr string
	mcpWatch    bool
	mcpTopK     int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp FILE",
	Short: "Serve a document over the Model Context Protocol",
	Long: `Index FILE and serve it to AI assistants over the Model Context Protocol.

Tools:
  ask            - Answer a question about the document, citing pages
  transcript     - List the questions answered so far
  document_info  - Describe the document and its index

Resources:
  docqa://document               - Full document text, pages separated by form feeds
  docqa://document/pages/{page}  - Text of one page
  docqa://transcript             - Transcript as JSON

By default the server communicates over stdio using JSON-RPC.
Use --http to serve streamable HTTP instead.

Examples:
  # Stdio mode (for desktop assistants)
  docqa mcp handbook.pdf

  # HTTP mode (for MCP Inspector, remote access)
  docqa mcp handbook.pdf --http :8080

Desktop assistant configuration:
  {
    "mcpServers": {
      "handbook": {
        "command": "/path/to/docqa",
        "args": ["mcp", "/path/to/handbook.pdf"]
      }
    }
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	mcpCmd.Flags().BoolVarP(&mcpWatch, "watch", "w", false, "re-index when the file changes")
	mcpCmd.Flags().IntVarP(&mcpTopK, "top-k", "k", 0, "chunks retrieved per question (default from settings)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	path := args[0]

	session, cleanup, err := openSession(ctx, path, SessionOptions{TopK: mcpTopK})
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := mcp.NewServer(&mcp.Ports{Session: session})
	if err != nil {
		return err
	}

	if mcpWatch {
		w, err := watch.New(path)
		if err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		defer w.Close()

		go func() {
			if err := reingestOnChange(ctx, w, session); err != nil && ctx.Err() == nil {
				logger.Warn("watcher stopped: %v", err)
			}
		}()
	}

	if mcpHTTPAddr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(ctx, mcpHTTPAddr)
	}
	return server.Run(ctx)
}
