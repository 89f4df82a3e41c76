package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/gh-download/ghpipe/pkg/docregen"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var mcpLog = logger.New("mcp:server")

// MCPServerHTTPTimeout bounds reading request headers on the HTTP transport.
const MCPServerHTTPTimeout = 30 * time.Second

// mcpErrorData marshals data to JSON for use in jsonrpc.Error.Data field.
// Returns nil if marshaling fails to avoid errors in error handling.
func mcpErrorData(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		mcpLog.Printf("Failed to marshal error data: %v", err)
		return nil
	}
	return data
}

// GenerateOutputSchema derives the JSON schema of a tool argument type.
func GenerateOutputSchema[T any]() (*jsonschema.Schema, error) {
	return jsonschema.For[T](nil)
}

// NewMCPServerCommand creates the mcp-server command
func NewMCPServerCommand() *cobra.Command {
	var port int
	var dir string

	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run an MCP (Model Context Protocol) server exposing ghpipe commands as tools",
		Long: `Run an MCP server that exposes ghpipe operations as MCP tools.

The server provides the following tools:
  - plan        - Show the matrix cells and the coverage gate
  - compile     - Compile the pipelines to GitHub Actions workflows
  - regen_check - Report whether the documentation is out of date

By default, the server uses stdio transport. Use the --port flag to run
an HTTP server with the streamable HTTP transport instead.

Examples:
  ghpipe mcp-server                    # Run with stdio transport (default for MCP clients)
  ghpipe mcp-server --port 8080        # Run HTTP server on port 8080
  DEBUG=mcp:* ghpipe mcp-server        # Run with verbose logging for debugging`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCPServer(cmd.Context(), port, dir)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run HTTP server on (uses stdio if not specified)")
	cmd.Flags().StringVar(&dir, "repo-dir", ".", "Repository the tools operate on")

	return cmd
}

func runMCPServer(ctx context.Context, port int, dir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	server := createMCPServer(dir)

	if port > 0 {
		return runHTTPServer(server, port)
	}

	mcpLog.Print("MCP server ready on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

type planArgs struct {
	Config string `json:"config,omitempty" jsonschema:"Pipeline configuration file relative to the repository (default .github/ghpipe.yml)"`
}

type compileArgs struct {
	Config string `json:"config,omitempty" jsonschema:"Pipeline configuration file relative to the repository (default .github/ghpipe.yml)"`
	Check  bool   `json:"check,omitempty" jsonschema:"Only report stale workflow files, do not write them"`
	NoLint bool   `json:"no_lint,omitempty" jsonschema:"Skip actionlint validation"`
}

type regenCheckArgs struct {
	File string `json:"file,omitempty" jsonschema:"Markdown file relative to the repository (default: the configured docs file)"`
}

// regenCheckResult is the regen_check tool output.
type regenCheckResult struct {
	File    string `json:"file"`
	Blocks  int    `json:"blocks"`
	Changed bool   `json:"changed"`
}

// createMCPServer creates and configures the MCP server with all tools
func createMCPServer(dir string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ghpipe",
		Version: GetVersion(),
	}, &mcp.ServerOptions{
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{
				ListChanged: false, // Tools are static, no notifications needed
			},
		},
		Logger: logger.NewSlogLoggerWithHandler(mcpLog),
	})

	planSchema, err := GenerateOutputSchema[planArgs]()
	if err != nil {
		mcpLog.Printf("Failed to generate plan tool schema: %v", err)
		return server
	}
	mcp.AddTool(server, &mcp.Tool{
		Name: "plan",
		Description: `Show what the test and documentation pipelines would do.

Returns JSON with:
- tests.cells: every platform/version cell, with uploads_coverage set on the single coverage gate cell
- tests.coverage_gate: the condition guarding the coverage upload step
- docs: the regenerated file and commit message`,
		InputSchema: planSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args planArgs) (*mcp.CallToolResult, any, error) {
		if err := ctx.Err(); err != nil {
			return nil, nil, cancelledError(err)
		}
		mcpLog.Printf("Executing plan tool: config=%s", args.Config)

		cfg, _, err := loadPipelineConfig(dir, args.Config)
		if err != nil {
			return nil, nil, toolError("failed to load configuration", err)
		}
		return jsonResult(BuildPlan(cfg))
	})

	compileSchema, err := GenerateOutputSchema[compileArgs]()
	if err != nil {
		mcpLog.Printf("Failed to generate compile tool schema: %v", err)
		return server
	}
	mcp.AddTool(server, &mcp.Tool{
		Name: "compile",
		Description: `Compile the pipelines to .github/workflows/pytest.yml and .github/workflows/update-readme.yml.

Any change to .github/ghpipe.yml must be compiled with this tool, otherwise
GitHub Actions keeps running the old workflows.

Returns JSON with files, written (files that changed), stale (with check) and
the repository secrets the workflows read.`,
		InputSchema: compileSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args compileArgs) (*mcp.CallToolResult, any, error) {
		if err := ctx.Err(); err != nil {
			return nil, nil, cancelledError(err)
		}
		mcpLog.Printf("Executing compile tool: check=%v, noLint=%v", args.Check, args.NoLint)

		result, err := RunCompile(CompileConfig{Dir: dir, ConfigPath: args.Config, Check: args.Check, NoLint: args.NoLint})
		if err != nil && result == nil {
			return nil, nil, toolError("compilation failed", err)
		}
		return jsonResult(result)
	})

	regenSchema, err := GenerateOutputSchema[regenCheckArgs]()
	if err != nil {
		mcpLog.Printf("Failed to generate regen_check tool schema: %v", err)
		return server
	}
	mcp.AddTool(server, &mcp.Tool{
		Name: "regen_check",
		Description: `Execute the runnable blocks of the documentation and report whether the
file would change. The file is never written.`,
		InputSchema: regenSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args regenCheckArgs) (*mcp.CallToolResult, any, error) {
		if err := ctx.Err(); err != nil {
			return nil, nil, cancelledError(err)
		}
		mcpLog.Printf("Executing regen_check tool: file=%s", args.File)

		file := args.File
		if file == "" {
			cfg, _, err := loadPipelineConfig(dir, "")
			if err != nil {
				return nil, nil, toolError("failed to load configuration", err)
			}
			file = cfg.Docs.File
		}
		display, err := pipeline.LoadDisplayEnv()
		if err != nil {
			return nil, nil, toolError("failed to read display settings", err)
		}
		executor := docregen.NewShellExecutor(repoDir(dir), display, false)
		result, err := docregen.RegenerateFile(ctx, filepath.Join(repoDir(dir), file), executor, true)
		if err != nil {
			return nil, nil, toolError("regeneration failed", err)
		}
		return jsonResult(regenCheckResult{File: file, Blocks: result.Blocks, Changed: result.Changed})
	})

	return server
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, toolError("failed to marshal result", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func toolError(message string, err error) error {
	return &jsonrpc.Error{
		Code:    jsonrpc.CodeInternalError,
		Message: message,
		Data:    mcpErrorData(map[string]any{"error": err.Error()}),
	}
}

func cancelledError(err error) error {
	return &jsonrpc.Error{
		Code:    jsonrpc.CodeInternalError,
		Message: "request cancelled",
		Data:    mcpErrorData(err.Error()),
	}
}

func runHTTPServer(server *mcp.Server, port int) error {
	mcpLog.Printf("Creating HTTP server on port %d", port)

	handler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		SessionTimeout: 2 * time.Hour, // Close idle sessions after 2 hours
		Logger:         logger.NewSlogLoggerWithHandler(mcpLog),
	})

	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           loggingHandler(handler),
		ReadHeaderTimeout: MCPServerHTTPTimeout,
	}

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("Starting MCP server on http://localhost%s", addr)))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		mcpLog.Printf("HTTP server failed: %v", err)
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

func loggingHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		handler.ServeHTTP(w, r)
		mcpLog.Printf("%s %q from %s in %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}
