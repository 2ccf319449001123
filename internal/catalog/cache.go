package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/logger"
)

// Fetcher is implemented by Client.
type Fetcher interface {
	FetchGenres(ctx context.Context) (Genres, error)
}

// GenreCache keeps the last fetched genre table for ttl. When a refresh
// fails the previous table keeps being served; before the first success
// FallbackGenres is served. At most one fetch runs at a time and the lock
// is never held across it.
type GenreCache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	log     logger.Logger

	mu        sync.Mutex
	genres    Genres
	fetchedAt time.Time
	inflight  *fetchCall
}

type fetchCall struct {
	done chan struct{}
	err  error
}

func NewGenreCache(fetcher Fetcher, ttl time.Duration, now func() time.Time, log logger.Logger) *GenreCache {
	if now == nil {
		now = time.Now
	}
	return &GenreCache{fetcher: fetcher, ttl: ttl, now: now, log: log}
}

// Genres returns the cached table, fetching it when absent or expired.
// While another caller is fetching, an expired table is returned as is;
// with no table yet the caller waits for that fetch.
func (c *GenreCache) Genres(ctx context.Context) Genres {
	c.mu.Lock()
	if c.genres != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		genres := c.genres
		c.mu.Unlock()
		return genres
	}
	if call := c.inflight; call != nil {
		stale := c.genres
		c.mu.Unlock()
		if stale != nil {
			return stale
		}
		select {
		case <-call.done:
		case <-ctx.Done():
			return FallbackGenres
		}
		return c.current()
	}
	call := c.beginLocked()
	c.mu.Unlock()

	if err := c.fetch(ctx, call); err != nil {
		c.log.Warn("genre refresh failed, serving previous table", logger.Error(err))
	}
	return c.current()
}

// Refresh fetches the table now, regardless of its age. A fetch already in
// flight is joined rather than repeated.
func (c *GenreCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if call := c.inflight; call != nil {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := c.beginLocked()
	c.mu.Unlock()
	return c.fetch(ctx, call)
}

func (c *GenreCache) beginLocked() *fetchCall {
	call := &fetchCall{done: make(chan struct{})}
	c.inflight = call
	return call
}

func (c *GenreCache) fetch(ctx context.Context, call *fetchCall) error {
	genres, err := c.fetcher.FetchGenres(ctx)

	c.mu.Lock()
	if err == nil {
		c.genres = genres
		c.fetchedAt = c.now()
	}
	c.inflight = nil
	c.mu.Unlock()

	call.err = err
	close(call.done)
	if err != nil {
		return err
	}
	c.log.Debug("genre table refreshed", logger.Int("genres", len(genres)))
	return nil
}

func (c *GenreCache) current() Genres {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.genres == nil {
		return FallbackGenres
	}
	return c.genres
}

// GenreName resolves ids against the cached table.
func (c *GenreCache) GenreName(ctx context.Context, ids []int) string {
	return GenreName(c.Genres(ctx), ids)
}
