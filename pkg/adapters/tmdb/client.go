// Package tmdb is a small client for The Movie Database API, covering what
// the movie explorer bot needs.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the TMDB v3 API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// ErrInvalidResponse is returned when a 200 response lacks required fields.
var ErrInvalidResponse = errors.New("invalid API response format")

// APIError is returned for non-200 responses.
type APIError struct {
	StatusCode int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d for %s", e.StatusCode, e.Path)
}

// Movie is the basic information of a listed movie.
type Movie struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Overview string `json:"overview"`
}

// MovieDetails describes one movie, including its top cast.
type MovieDetails struct {
	Title    string   `json:"title"`
	Runtime  int      `json:"runtime"`
	Rating   float64  `json:"rating"`
	Overview string   `json:"overview"`
	Genres   []string `json:"genres"`
	Cast     []string `json:"cast"` // "Actor Name as Character Name"
}

// Client calls the TMDB API. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger for upstream failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(40), 20),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type movieList struct {
	Results *[]Movie `json:"results"`
}

// CurrentMovies returns the top 5 movies now playing.
func (c *Client) CurrentMovies(ctx context.Context) ([]Movie, error) {
	var list movieList
	if err := c.get(ctx, "/movie/now_playing", url.Values{"page": {"1"}}, &list); err != nil {
		return nil, err
	}
	if list.Results == nil {
		return nil, ErrInvalidResponse
	}
	return summarize(*list.Results, 5), nil
}

// SimilarMovies returns the top 3 movies similar to movieID.
func (c *Client) SimilarMovies(ctx context.Context, movieID int) ([]Movie, error) {
	var list movieList
	path := "/movie/" + strconv.Itoa(movieID) + "/similar"
	if err := c.get(ctx, path, url.Values{"page": {"1"}}, &list); err != nil {
		return nil, err
	}
	if list.Results == nil {
		return nil, ErrInvalidResponse
	}
	return summarize(*list.Results, 3), nil
}

// MovieCredits returns the top 5 cast members of movieID.
func (c *Client) MovieCredits(ctx context.Context, movieID int) ([]string, error) {
	var credits struct {
		Cast *[]struct {
			Name      string `json:"name"`
			Character string `json:"character"`
		} `json:"cast"`
	}
	if err := c.get(ctx, "/movie/"+strconv.Itoa(movieID)+"/credits", nil, &credits); err != nil {
		return nil, err
	}
	if credits.Cast == nil {
		return nil, ErrInvalidResponse
	}

	cast := *credits.Cast
	if len(cast) > 5 {
		cast = cast[:5]
	}
	out := make([]string, len(cast))
	for i, a := range cast {
		out[i] = a.Name + " as " + a.Character
	}
	return out, nil
}

// MovieDetails returns runtime, rating, genres and top cast of movieID.
func (c *Client) MovieDetails(ctx context.Context, movieID int) (MovieDetails, error) {
	var raw struct {
		Title       *string  `json:"title"`
		Runtime     *int     `json:"runtime"`
		VoteAverage *float64 `json:"vote_average"`
		Overview    *string  `json:"overview"`
		Genres      *[]struct {
			Name string `json:"name"`
		} `json:"genres"`
	}
	if err := c.get(ctx, "/movie/"+strconv.Itoa(movieID), nil, &raw); err != nil {
		return MovieDetails{}, err
	}
	if raw.Title == nil || raw.Runtime == nil || raw.VoteAverage == nil || raw.Overview == nil || raw.Genres == nil {
		return MovieDetails{}, ErrInvalidResponse
	}

	cast, err := c.MovieCredits(ctx, movieID)
	if err != nil {
		return MovieDetails{}, err
	}

	genres := make([]string, len(*raw.Genres))
	for i, g := range *raw.Genres {
		genres[i] = g.Name
	}
	return MovieDetails{
		Title:    *raw.Title,
		Runtime:  *raw.Runtime,
		Rating:   *raw.VoteAverage,
		Overview: *raw.Overview,
		Genres:   genres,
		Cast:     cast,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)
	q.Set("language", "en-US")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "TMDB API error", "path", path, "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode, Path: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// summarize keeps the first n movies with overviews cut to 100 characters.
func summarize(movies []Movie, n int) []Movie {
	if len(movies) > n {
		movies = movies[:n]
	}
	out := make([]Movie, len(movies))
	for i, m := range movies {
		m.Overview = truncate(m.Overview, 100) + "..."
		out[i] = m
	}
	return out
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
