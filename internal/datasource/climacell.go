package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lox/climafetch/internal/cache"
	"github.com/lox/climafetch/internal/climacell"
	"github.com/lox/climafetch/internal/metrics"
)

// Fetcher performs the two timelines requests. *climacell.Client implements it.
type Fetcher interface {
	FetchCurrent(ctx context.Context) ([]byte, *climacell.FetchResult, error)
	FetchForecast(ctx context.Context, now time.Time) ([]byte, *climacell.FetchResult, error)
}

// BlobStore keeps the last good raw responses. *cache.Cache implements it.
type BlobStore interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

type Options struct {
	// Offline reads both documents from the cache and never touches the network.
	Offline bool
	// NoCache leaves the cached documents untouched after a successful fetch.
	NoCache bool
	// SkipCache opts out of the cache entirely.
	SkipCache bool
	// Location is used to compute the forecast window.
	Location *time.Location
	Now      func() time.Time
}

// ClimaCell is the WeatherDataSource for the ClimaCell v4 timelines API.
type ClimaCell struct {
	api   Fetcher
	cache BlobStore
	opts  Options
}

var _ WeatherDataSource = (*ClimaCell)(nil)

func NewClimaCell(api Fetcher, blobs BlobStore, opts Options) *ClimaCell {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &ClimaCell{api: api, cache: blobs, opts: opts}
}

func (c *ClimaCell) Name() string {
	return "climacell"
}

// Fetch returns the run's documents. Offline mode fails with ErrCacheUnavailable when
// either cached document is missing or unusable. Online mode never fails as a whole:
// each request that errors or returns no data leaves its document nil.
func (c *ClimaCell) Fetch(ctx context.Context) (Documents, error) {
	if c.opts.Offline {
		slog.Info("datasource: reading from cache (offline)")
		return c.readCache()
	}
	slog.Info("datasource: fetching from API")
	return c.readAPI(ctx), nil
}

func (c *ClimaCell) readCache() (Documents, error) {
	docs := Documents{Origin: OriginCache}
	if c.cache == nil {
		return docs, fmt.Errorf("%w: no cache configured", ErrCacheUnavailable)
	}

	var err error
	if docs.Current, err = c.readBlob(cache.Current); err != nil {
		return docs, err
	}
	if docs.Forecast, err = c.readBlob(cache.Forecast); err != nil {
		return docs, err
	}

	slog.Info("datasource: cache read successful")
	return docs, nil
}

func (c *ClimaCell) readBlob(name string) (*climacell.Document, error) {
	body, err := c.cache.Read(name)
	if err != nil {
		metrics.CacheOperations.WithLabelValues(name, "read", "error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	doc, err := climacell.Parse(body)
	if err != nil {
		metrics.CacheOperations.WithLabelValues(name, "read", "unusable").Inc()
		return nil, fmt.Errorf("%w: cache %s: %w", ErrCacheUnavailable, name, err)
	}
	metrics.CacheOperations.WithLabelValues(name, "read", "ok").Inc()
	if aged, ok := c.cache.(interface {
		Age(name string) (time.Duration, error)
	}); ok {
		if age, err := aged.Age(name); err == nil {
			slog.Info("datasource: using cached document", "document", name, "age", age.Round(time.Second))
		}
	}
	return doc, nil
}

func (c *ClimaCell) readAPI(ctx context.Context) Documents {
	docs := Documents{Origin: OriginAPI}

	body, result, err := c.api.FetchCurrent(ctx)
	docs.Results = append(docs.Results, result)
	docs.Current = c.accept(cache.Current, body, err)

	body, result, err = c.api.FetchForecast(ctx, c.opts.Now().In(c.opts.Location))
	docs.Results = append(docs.Results, result)
	docs.Forecast = c.accept(cache.Forecast, body, err)

	return docs
}

// accept parses one response and refreshes its cache blob when it carries data.
func (c *ClimaCell) accept(name string, body []byte, fetchErr error) *climacell.Document {
	if fetchErr != nil {
		slog.Warn("datasource: request failed", "document", name, "error", fetchErr)
		return nil
	}

	doc, err := climacell.Parse(body)
	if err != nil {
		slog.Warn("datasource: no valid data received", "document", name, "error", err)
		return nil
	}

	switch {
	case c.opts.NoCache || c.opts.SkipCache:
		slog.Info("datasource: skipping cache refresh", "document", name)
	case c.cache == nil:
	default:
		if err := c.cache.Write(name, body); err != nil {
			metrics.CacheOperations.WithLabelValues(name, "write", "error").Inc()
			slog.Warn("datasource: cache refresh failed", "document", name, "error", err)
		} else {
			metrics.CacheOperations.WithLabelValues(name, "write", "ok").Inc()
		}
	}
	return doc
}
