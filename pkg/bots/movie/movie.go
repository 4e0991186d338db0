// Package movie is a movie explorer bot backed by TMDB: it lists what is
// playing, shows details with cast and recommends similar movies.
package movie

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/albertviilik/pipecat-flows/pkg/adapters/tmdb"
	"github.com/albertviilik/pipecat-flows/pkg/bots"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/graph"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
)

//go:embed flow.yaml
var flowYAML []byte

// SystemPrompt is the role description the conversation is seeded with.
const SystemPrompt = "You are a friendly movie expert. Your responses will be converted to audio, " +
	"so avoid special characters. Always use the available functions to progress the conversation naturally."

// Catalog is the movie data source used by the handlers.
type Catalog interface {
	CurrentMovies(ctx context.Context) ([]tmdb.Movie, error)
	MovieDetails(ctx context.Context, movieID int) (tmdb.MovieDetails, error)
	SimilarMovies(ctx context.Context, movieID int) ([]tmdb.Movie, error)
}

// Graph parses the embedded flow.
func Graph() (*graph.Store, error) {
	return graph.Parse(flowYAML)
}

// Seed returns the initial context.
func Seed() []domain.Message {
	return []domain.Message{{Role: domain.RoleSystem, Content: SystemPrompt}}
}

// Handlers serve the node actions from a catalog.
type Handlers struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewHandlers creates handlers over catalog.
func NewHandlers(catalog Catalog, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{catalog: catalog, logger: logger}
}

// Register binds the node action handlers.
func (h *Handlers) Register(reg *registry.Registry) error {
	for name, fn := range map[string]registry.HandlerFunc{
		"get_movies":         h.getMovies,
		"get_movie_details":  h.getMovieDetails,
		"get_similar_movies": h.getSimilarMovies,
	} {
		if err := reg.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// New returns the bot; every conversation gets its own TMDB client,
// closed when the conversation ends.
func New(newClient func() *tmdb.Client, logger *slog.Logger) (*bots.Bot, error) {
	g, err := Graph()
	if err != nil {
		return nil, err
	}
	return &bots.Bot{
		Name:  "movie",
		Graph: g,
		Seed:  Seed(),
		Handlers: func(context.Context) (*registry.Registry, io.Closer, error) {
			client := newClient()
			reg := registry.NewRegistry()
			if err := NewHandlers(client, logger).Register(reg); err != nil {
				_ = client.Close()
				return nil, nil, err
			}
			return reg, client, nil
		},
	}, nil
}

func (h *Handlers) getMovies(ctx context.Context, _ domain.Call, _ domain.ConversationView) (domain.Result, error) {
	h.logger.DebugContext(ctx, "Calling TMDB API: get_movies")
	movies, err := h.catalog.CurrentMovies(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "TMDB API Error", "error", err)
		return domain.ErrorResult("Failed to fetch movies"), nil
	}
	return domain.Result{"movies": movies}, nil
}

func (h *Handlers) getMovieDetails(ctx context.Context, call domain.Call, _ domain.ConversationView) (domain.Result, error) {
	id, err := bots.IntArg(call.Args, "movie_id")
	if err != nil {
		return domain.ErrorResult(err.Error()), nil
	}
	h.logger.DebugContext(ctx, "Calling TMDB API: get_movie_details", "movie_id", id)
	details, err := h.catalog.MovieDetails(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "TMDB API Error", "error", err)
		return domain.ErrorResult(fmt.Sprintf("Failed to fetch details for movie %d", id)), nil
	}
	return domain.Result{
		"title":    details.Title,
		"runtime":  details.Runtime,
		"rating":   details.Rating,
		"overview": details.Overview,
		"genres":   details.Genres,
		"cast":     details.Cast,
	}, nil
}

func (h *Handlers) getSimilarMovies(ctx context.Context, call domain.Call, _ domain.ConversationView) (domain.Result, error) {
	id, err := bots.IntArg(call.Args, "movie_id")
	if err != nil {
		return domain.ErrorResult(err.Error()), nil
	}
	h.logger.DebugContext(ctx, "Calling TMDB API: get_similar_movies", "movie_id", id)
	similar, err := h.catalog.SimilarMovies(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "TMDB API Error", "error", err)
		return domain.ErrorResult(fmt.Sprintf("Failed to fetch similar movies for %d", id)), nil
	}
	return domain.Result{"movies": similar}, nil
}
