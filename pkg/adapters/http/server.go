// Package http serves conversations over a JSON API with server-sent
// snapshot diffs.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/albertviilik/pipecat-flows/internal/presentation/graph"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/runner"
	"github.com/albertviilik/pipecat-flows/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//go:embed openapi.yaml
var rawSpec []byte

// Sessions is the conversation surface served by the API.
// *session.Manager implements it.
type Sessions interface {
	Start(ctx context.Context, id string, seed []domain.Message) (*domain.Snapshot, error)
	Call(ctx context.Context, id string, call domain.Call) (domain.Result, *domain.Snapshot, error)
	Observe(ctx context.Context, id string, msg domain.Message) (*domain.Snapshot, error)
	Snapshot(ctx context.Context, id string) (*domain.Snapshot, error)
	End(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

var _ Sessions = (*session.Manager)(nil)

// Server exposes Sessions over HTTP.
type Server struct {
	Sessions Sessions
	Streams  *StreamManager

	definition domain.FlowDefinition
	seed       []domain.Message
	name       string
	version    string
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
	router     routers.Router
}

// Option configures the Server.
type Option func(*Server)

// WithDefinition publishes the flow graph under /graph and /info.
func WithDefinition(def domain.FlowDefinition) Option {
	return func(s *Server) {
		s.definition = def
	}
}

// WithSeed sets the context of conversations started without messages.
func WithSeed(seed []domain.Message) Option {
	return func(s *Server) {
		s.seed = seed
	}
}

// WithName sets the flow name reported by /info.
func WithName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithMetrics exposes the gatherer under /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler serving sessions.
func NewHandler(sessions Sessions, opts ...Option) (http.Handler, error) {
	server := &Server{
		Sessions: sessions,
		name:     "flows",
		version:  "dev",
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams = NewStreamManager(server.logger)

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	server.router, err = legacyrouter.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi router: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(server.validateRequest)
		r.Get("/health", server.Health)
		r.Get("/info", server.Info)
		r.Get("/graph", server.Graph)
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", server.ListConversations)
			r.Post("/", server.StartConversation)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", server.GetConversation)
				r.Delete("/", server.EndConversation)
				r.Post("/messages", server.AddMessage)
				r.Post("/calls", server.CallAction)
				r.Get("/events", server.SubscribeEvents)
			})
		})
	})

	return enableCORS(otelhttp.NewHandler(r, "flows")), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validateRequest checks requests against the OpenAPI document. Routes
// the document does not describe pass through untouched.
func (s *Server) validateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, err := s.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options:    &openapi3filter.Options{AuthenticationFunc: openapi3filter.NoopAuthenticationFunc},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			s.logger.WarnContext(r.Context(), "request rejected", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusBadRequest, err, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Flows API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

type startRequest struct {
	ID       string           `json:"id"`
	Messages []domain.Message `json:"messages"`
}

type callResponse struct {
	Result   domain.Result    `json:"result"`
	Snapshot *domain.Snapshot `json:"snapshot"`
}

type errorResponse struct {
	Error  string        `json:"error"`
	Result domain.Result `json:"result,omitempty"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info handles GET /info.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         s.name,
		"version":      s.version,
		"initial_node": s.definition.Initial,
		"nodes":        len(s.definition.Nodes),
	})
}

// Graph handles GET /graph.
func (s *Server) Graph(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") != "mermaid" {
		writeJSON(w, http.StatusOK, s.definition)
		return
	}

	var overlay *graph.Overlay
	if id := r.URL.Query().Get("conversation_id"); id != "" {
		snap, err := s.Sessions.Snapshot(r.Context(), id)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		overlay = &graph.Overlay{VisitedNodes: snap.History, CurrentNode: snap.CurrentNodeID}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(s.definition, overlay))
}

// ListConversations handles GET /conversations.
func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"conversations": ids})
}

// StartConversation handles POST /conversations.
func (s *Server) StartConversation(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), nil)
		return
	}
	seed := body.Messages
	if len(seed) == 0 {
		seed = s.seed
	}

	snap, err := s.Sessions.Start(r.Context(), body.ID, seed)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.Streams.Publish(snap)
	writeJSON(w, http.StatusCreated, snap)
}

// GetConversation handles GET /conversations/{id}.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// EndConversation handles DELETE /conversations/{id}.
func (s *Server) EndConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.End(r.Context(), id); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.Streams.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// AddMessage handles POST /conversations/{id}/messages.
func (s *Server) AddMessage(w http.ResponseWriter, r *http.Request) {
	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), nil)
		return
	}
	if msg.Role == domain.RoleUser {
		clean, err := runner.SanitizeInput(msg.Content)
		if err != nil {
			s.logger.WarnContext(r.Context(), "input rejected", "error", err, "size", len(msg.Content))
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid input: %w", err), nil)
			return
		}
		msg.Content = clean
	}

	snap, err := s.Sessions.Observe(r.Context(), chi.URLParam(r, "id"), msg)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.Streams.Publish(snap)
	writeJSON(w, http.StatusOK, snap)
}

// CallAction handles POST /conversations/{id}/calls.
func (s *Server) CallAction(w http.ResponseWriter, r *http.Request) {
	var call domain.Call
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), nil)
		return
	}

	res, snap, err := s.Sessions.Call(r.Context(), chi.URLParam(r, "id"), call)
	if snap != nil {
		s.Streams.Publish(snap)
	}
	if err != nil {
		s.fail(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, callResponse{Result: res, Snapshot: snap})
}

// fail maps flow and session errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, res domain.Result) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.DebugContext(r.Context(), "request refused", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err, res)
}

func statusFor(err error) int {
	var (
		notAvailable *domain.ActionNotAvailableError
		unknown      *domain.UnknownActionError
		invalid      *domain.InvalidArgumentsError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &notAvailable), errors.Is(err, session.ErrConversationExists):
		return http.StatusConflict
	case errors.As(err, &unknown), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConversationEnded):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error, res domain.Result) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Result: res})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
