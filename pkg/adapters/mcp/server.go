// Package mcp exposes conversations as Model Context Protocol tools, so
// an agent can drive a flow as if it were the LLM.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the flow definition.
const GraphURI = "flows://graph"

// Sessions is the conversation surface the tools operate on.
type Sessions interface {
	Start(ctx context.Context, id string, seed []domain.Message) (*domain.Snapshot, error)
	Call(ctx context.Context, id string, call domain.Call) (domain.Result, *domain.Snapshot, error)
	Observe(ctx context.Context, id string, msg domain.Message) (*domain.Snapshot, error)
	Snapshot(ctx context.Context, id string) (*domain.Snapshot, error)
	End(ctx context.Context, id string) error
}

// CallResponse is the output of call_action.
type CallResponse struct {
	Result   domain.Result    `json:"result" jsonschema_description:"Result appended to the conversation as a tool message"`
	Snapshot *domain.Snapshot `json:"snapshot" jsonschema_description:"Conversation state after the call"`
}

// EndResponse is the output of end_conversation.
type EndResponse struct {
	ConversationID string `json:"conversation_id"`
	Ended          bool   `json:"ended"`
}

type conversationArgs struct {
	ConversationID string `json:"conversation_id"`
}

type callArgs struct {
	ConversationID string `json:"conversation_id"`
	Name           string `json:"name"`
	CallID         string `json:"call_id"`
	Arguments      string `json:"arguments"`
}

type messageArgs struct {
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
}

// Server wraps conversation sessions and exposes them as an MCP Server.
type Server struct {
	sessions   Sessions
	definition domain.FlowDefinition
	seed       []domain.Message
	version    string
	logger     *slog.Logger
	mcpServer  *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithDefinition publishes the flow graph.
func WithDefinition(def domain.FlowDefinition) Option {
	return func(s *Server) {
		s.definition = def
	}
}

// WithSeed sets the context of new conversations.
func WithSeed(seed []domain.Message) Option {
	return func(s *Server) {
		s.seed = seed
	}
}

// WithVersion sets the advertised server version.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		version:  "dev",
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("flows-mcp", s.version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_conversation",
		mcp.WithDescription("Start a conversation in the initial node of the flow."),
		mcp.WithString("conversation_id", mcp.Description("ID of the conversation (generated when omitted)")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("call_action",
		mcp.WithDescription("Call one of the actions advertised by the current node, as the LLM would."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("ID of the conversation")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Action name")),
		mcp.WithString("arguments", mcp.Description("JSON object with the action arguments")),
		mcp.WithString("call_id", mcp.Description("ID of the call (generated when omitted)")),
		mcp.WithOutputSchema[CallResponse](),
	), mcp.NewTypedToolHandler(s.handleCall))

	s.mcpServer.AddTool(mcp.NewTool("add_message",
		mcp.WithDescription("Append a user or assistant message to the conversation."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("ID of the conversation")),
		mcp.WithString("role", mcp.Required(), mcp.Enum(string(domain.RoleUser), string(domain.RoleAssistant))),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message text")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleMessage))

	s.mcpServer.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Get the context, tools and current node of a conversation."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("ID of the conversation")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("end_conversation",
		mcp.WithDescription("End a conversation and release its resources."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("ID of the conversation")),
		mcp.WithOutputSchema[EndResponse](),
	), mcp.NewStructuredToolHandler(s.handleEnd))
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args conversationArgs) (*domain.Snapshot, error) {
	snap, err := s.sessions.Start(ctx, args.ConversationID, s.seed)
	if err != nil {
		return nil, fmt.Errorf("start failed: %w", err)
	}
	return snap, nil
}

// handleCall answers with the result and snapshot even when the call is
// rejected, so a client sees the error payload the engine appended.
func (s *Server) handleCall(ctx context.Context, _ mcp.CallToolRequest, args callArgs) (*mcp.CallToolResult, error) {
	call := domain.Call{ID: args.CallID, Name: args.Name}
	if args.Arguments != "" {
		if err := json.Unmarshal([]byte(args.Arguments), &call.Args); err != nil {
			call.Args = nil
			call.ArgsErr = fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}

	res, snap, err := s.sessions.Call(ctx, args.ConversationID, call)
	if err != nil {
		s.logger.WarnContext(ctx, "MCP call_action failed", "conversation_id", args.ConversationID, "action", args.Name, "error", err)
		if res == nil {
			return mcp.NewToolResultError(fmt.Sprintf("call failed: %v", err)), nil
		}
		out := mcp.NewToolResultStructured(CallResponse{Result: res, Snapshot: snap}, fmt.Sprintf("call failed: %v", err))
		out.IsError = true
		return out, nil
	}

	resp := CallResponse{Result: res, Snapshot: snap}
	text, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode call response: %w", err)
	}
	return mcp.NewToolResultStructured(resp, string(text)), nil
}

func (s *Server) handleMessage(ctx context.Context, _ mcp.CallToolRequest, args messageArgs) (*domain.Snapshot, error) {
	content := args.Content
	if domain.Role(args.Role) == domain.RoleUser {
		clean, err := runner.SanitizeInput(content)
		if err != nil {
			s.logger.WarnContext(ctx, "MCP add_message: input rejected", "error", err, "size", len(content))
			return nil, fmt.Errorf("input rejected: %w", err)
		}
		content = clean
	}

	snap, err := s.sessions.Observe(ctx, args.ConversationID, domain.Message{Role: domain.Role(args.Role), Content: content})
	if err != nil {
		return nil, fmt.Errorf("add message failed: %w", err)
	}
	return snap, nil
}

func (s *Server) handleGet(ctx context.Context, _ mcp.CallToolRequest, args conversationArgs) (*domain.Snapshot, error) {
	snap, err := s.sessions.Snapshot(ctx, args.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return snap, nil
}

func (s *Server) handleEnd(ctx context.Context, _ mcp.CallToolRequest, args conversationArgs) (EndResponse, error) {
	if err := s.sessions.End(ctx, args.ConversationID); err != nil {
		return EndResponse{}, fmt.Errorf("end failed: %w", err)
	}
	return EndResponse{ConversationID: args.ConversationID, Ended: true}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Flow Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.definition)
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
