package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dirt-rain/code-editor-agent/pkg/resolve"
	"github.com/dirt-rain/code-editor-agent/pkg/version"
	"github.com/dirt-rain/code-editor-agent/pkg/workspace"
)

// Workspace is the project the server operates on.
type Workspace interface {
	Init(ctx context.Context) (*workspace.GenerateResult, error)
	Generate(ctx context.Context, opts workspace.GenerateOpts) (*workspace.GenerateResult, error)
	Agents(ctx context.Context) ([]workspace.AgentInfo, error)
	LoadAgentOrGroup(ctx context.Context, name, filePath string) (*resolve.Result, error)
}

// Server implements the MCP server for code-editor-agent.
type Server struct {
	ws      Workspace
	server  *mcp.Server
	tracer  trace.Tracer
	address string
	// mu serializes calls that write the cache.
	mu sync.Mutex
}

// NewServer creates a new MCP server for ws. An empty address serves stdio.
func NewServer(address string, ws Workspace) *Server {
	impl := &mcp.Implementation{
		Name:    name,
		Version: version.GetVersion(),
	}

	s := &Server{
		address: address,
		ws:      ws,
		server:  mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
		tracer:  otel.Tracer("mcp"),
	}

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: toolInit,
		Description: "Initialize code-editor-agent in the project root, creating .config/code-editor-agent.jsonc, " +
			"an example rule file, the agent definition and the rule cache.",
	}, WithTracing(s.tracer, s.handleInit))

	mcp.AddTool(s.server, &mcp.Tool{
		Name: toolGenerate,
		Description: "Generate or regenerate the rule cache by scanning all configured rule files. " +
			"Run this after adding or modifying rule files.",
	}, WithTracing(s.tracer, s.handleGenerate))

	mcp.AddTool(s.server, &mcp.Tool{
		Name: toolLoad,
		Description: "Load the context rules for a specific file. Returns the Markdown bodies of the rules that apply " +
			"to the file based on pattern matching, tags, priorities and order.",
	}, WithTracing(s.tracer, s.handleLoad))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolListConfig,
		Description: "Show the configured agents with their command groups, rule file patterns and references.",
	}, WithTracing(s.tracer, s.handleListConfig))
}

func (s *Server) handleInit(ctx context.Context, _ *mcp.CallToolRequest, _ InitParams) (*mcp.CallToolResult, GenerateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.ws.Init(ctx)
	if err != nil {
		return nil, GenerateResult{}, fmt.Errorf("initialize: %w", err)
	}

	out := newGenerateResult(res)

	return textResult(fmt.Sprintf("Initialization complete!\n\n%s", out.Message)), out, nil
}

func (s *Server) handleGenerate(ctx context.Context, _ *mcp.CallToolRequest, _ GenerateParams) (*mcp.CallToolResult, GenerateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.ws.Generate(ctx, workspace.GenerateOpts{})
	if err != nil {
		return nil, GenerateResult{}, fmt.Errorf("generate cache: %w", err)
	}

	out := newGenerateResult(res)

	return textResult(fmt.Sprintf("Cache generation complete!\n\n%s", out.Message)), out, nil
}

func (s *Server) handleLoad(ctx context.Context, _ *mcp.CallToolRequest, params LoadParams) (*mcp.CallToolResult, LoadResult, error) {
	if params.FilePath == "" {
		return nil, LoadResult{}, errors.New("file_path is required")
	}

	res, err := s.ws.LoadAgentOrGroup(ctx, params.AgentName, params.FilePath)
	if err != nil {
		return nil, LoadResult{}, fmt.Errorf("load rules: %w", err)
	}

	return loadTextResult(res), newLoadResult(res), nil
}

func (s *Server) handleListConfig(ctx context.Context, _ *mcp.CallToolRequest, _ ListConfigParams) (*mcp.CallToolResult, ListConfigResult, error) {
	agents, err := s.ws.Agents(ctx)
	if err != nil {
		return nil, ListConfigResult{}, fmt.Errorf("list agents: %w", err)
	}

	out := newListConfigResult(agents)

	return textResult(out.Message), out, nil
}

// Server returns the underlying MCP server.
func (s *Server) Server() *mcp.Server {
	return s.server
}

// Serve runs the server until ctx is canceled or the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	slog.InfoContext(ctx, "starting MCP server", slog.String("address", s.address))

	if s.address == "" {
		err := s.serveStdio(ctx)
		if err != nil {
			return fmt.Errorf("serve stdio: %w", err)
		}

		return nil
	}

	err := s.serveHTTP(ctx)
	if err != nil {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}

func (s *Server) serveHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	server := &http.Server{
		Addr:    s.address,
		Handler: handler,

		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("MCP server failed: %w", err)
		}

		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	}
}

func (s *Server) serveStdio(ctx context.Context) error {
	var t mcp.Transport = &mcp.StdioTransport{}
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		t = &mcp.LoggingTransport{Transport: t, Writer: os.Stderr}
	}

	err := s.server.Run(ctx, t)
	if err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

func sizeString(n int) string {
	return humanize.Bytes(uint64(max(n, 0)))
}
