package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/yax"
	"github.com/aretw0/yax/pkg/domain"
)

// Store is the part of *yax.Store the MCP server needs.
type Store interface {
	Dispatch(ctx context.Context, typ string, payload any) (*domain.Task, error)
	Lookup(keys ...string) (any, bool)
	Modules() []domain.ModuleInfo
}

var _ Store = (*yax.Store)(nil)

// DispatchArgs are the arguments of the dispatch tool.
type DispatchArgs struct {
	Type    string `json:"type"`
	Payload string `json:"payload,omitempty"`
	NoWait  bool   `json:"no_wait,omitempty"`
}

// DispatchResult is the structured output of the dispatch tool.
type DispatchResult struct {
	Type    string `json:"type" jsonschema_description:"The dispatched namespaced type"`
	Status  string `json:"status" jsonschema_description:"done, pending or failed"`
	Result  any    `json:"result,omitempty" jsonschema_description:"Value returned by the handler"`
	Error   string `json:"error,omitempty" jsonschema_description:"Handler error message"`
	Pending bool   `json:"pending,omitempty" jsonschema_description:"True when the action is still running"`
}

// Server wraps a store and exposes it as an MCP Server.
type Server struct {
	store       Store
	logger      *slog.Logger
	waitTimeout time.Duration
	mcpServer   *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(store Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:       store,
		logger:      logger,
		waitTimeout: 30 * time.Second,
		mcpServer:   server.NewMCPServer("yax-mcp", yax.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: dispatch
	dispatchTool := mcp.NewTool("dispatch",
		mcp.WithDescription("Dispatch a namespaced action or reducer type, e.g. \"count/add\", and wait for its result."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Namespaced handler type")),
		mcp.WithString("payload", mcp.Description("JSON encoded payload (optional)")),
		mcp.WithBoolean("no_wait", mcp.Description("Return as soon as the dispatch is resolved")),
		mcp.WithOutputSchema[DispatchResult](),
	)
	s.mcpServer.AddTool(dispatchTool, mcp.NewStructuredToolHandler(s.handleDispatch))

	// TOOL: get_state
	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Read the aggregated state, or the subtree at a slash separated path."),
		mcp.WithString("path", mcp.Description("Module or key path such as \"nested/one\" (optional)")),
	), s.handleGetState)

	// TOOL: list_modules
	s.mcpServer.AddTool(mcp.NewTool("list_modules",
		mcp.WithDescription("List installed modules with their reducers, actions and children."),
	), s.handleListModules)
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest, args DispatchArgs) (DispatchResult, error) {
	if args.Type == "" {
		return DispatchResult{}, errors.New("missing type")
	}

	var payload any
	if strings.TrimSpace(args.Payload) != "" {
		if err := json.Unmarshal([]byte(args.Payload), &payload); err != nil {
			return DispatchResult{}, fmt.Errorf("payload is not valid json: %w", err)
		}
	}

	task, err := s.store.Dispatch(context.WithoutCancel(ctx), args.Type, payload)
	if err != nil {
		return DispatchResult{}, err
	}

	if args.NoWait {
		if _, _, ok := task.Result(); !ok {
			return DispatchResult{Type: args.Type, Status: "pending", Pending: true}, nil
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	defer cancel()
	value, err := task.Wait(waitCtx)
	switch {
	case err != nil && waitCtx.Err() != nil:
		return DispatchResult{Type: args.Type, Status: "pending", Pending: true, Error: err.Error()}, nil
	case err != nil:
		s.logger.Warn("MCP dispatch failed", "type", args.Type, "err", err)
		return DispatchResult{Type: args.Type, Status: "failed", Error: err.Error()}, nil
	}
	return DispatchResult{Type: args.Type, Status: "done", Result: value}, nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	state, ok := s.store.Lookup(splitPath(path)...)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no state at %q", path)), nil
	}
	jsonBytes, err := json.Marshal(state)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("state is not json encodable: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListModules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(s.store.Modules())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func splitPath(p string) []string {
	var keys []string
	for _, k := range strings.Split(p, "/") {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *Server) registerResources() {
	// EXPOSE: yax://state
	s.mcpServer.AddResource(mcp.NewResource("yax://state", "Aggregated Store State",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		state, _ := s.store.Lookup()
		jsonBytes, err := json.Marshal(state)
		if err != nil {
			return nil, fmt.Errorf("failed to encode state: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "yax://state",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: yax://modules
	s.mcpServer.AddResource(mcp.NewResource("yax://modules", "Installed Modules",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.store.Modules())
		if err != nil {
			return nil, fmt.Errorf("failed to encode modules: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "yax://modules",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
