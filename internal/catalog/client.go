// Package catalog fetches movie genres from the TMDB API and caches them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/metrics"
)

const breakerName = "tmdb-api"

// maxBodyBytes bounds a genre list response.
const maxBodyBytes = 1 << 20

// FallbackGenres is served when no API key is configured.
var FallbackGenres = map[int]string{
	28: "Action",
	35: "Comedy",
	18: "Drama",
}

// Genres maps catalog genre ids to names.
type Genres map[int]string

type genreList struct {
	Genres []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// Client talks to TMDB through a circuit breaker.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[Genres]
	log     logger.Logger
}

// ClientOptions configures a Client. An empty APIKey makes FetchGenres
// return FallbackGenres without any network call.
type ClientOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	HTTP    *http.Client
}

func NewClient(opts ClientOptions, log logger.Logger) *Client {
	httpClient := opts.HTTP
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[Genres](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    httpClient,
		cb:      cb,
		log:     log,
	}
}

// FetchGenres downloads the movie genre list.
func (c *Client) FetchGenres(ctx context.Context) (Genres, error) {
	if c.apiKey == "" {
		metrics.CatalogRequests.WithLabelValues("fallback").Inc()
		return copyGenres(FallbackGenres), nil
	}

	genres, err := c.cb.Execute(func() (Genres, error) {
		return c.fetch(ctx)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CatalogRequests.WithLabelValues("open").Inc()
		return nil, err
	case err != nil:
		metrics.CatalogRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.CatalogRequests.WithLabelValues("ok").Inc()
	return genres, nil
}

func (c *Client) fetch(ctx context.Context) (Genres, error) {
	endpoint := c.baseURL + "/genre/movie/list?api_key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build genre request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch genres: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch genres: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read genres: %w", err)
	}

	var list genreList
	if err := gojson.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}

	genres := make(Genres, len(list.Genres))
	for _, g := range list.Genres {
		genres[g.ID] = g.Name
	}
	return genres, nil
}

// GenreName maps the first id to a name, or "Unknown".
func GenreName(genres Genres, ids []int) string {
	if len(ids) == 0 {
		return "Unknown"
	}
	if name, ok := genres[ids[0]]; ok && name != "" {
		return name
	}
	return "Unknown"
}

func copyGenres(src map[int]string) Genres {
	out := make(Genres, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
