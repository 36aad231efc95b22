// Package datasource obtains the current and forecast documents for one run, either
// from the API or from the cached copies of earlier responses.
package datasource

import (
	"context"
	"errors"

	"github.com/lox/climafetch/internal/climacell"
)

// ErrCacheUnavailable means offline mode could not load a usable cached document.
var ErrCacheUnavailable = errors.New("cached documents unavailable")

// Origin says where a run's documents came from.
type Origin string

const (
	OriginCache Origin = "cache"
	OriginAPI   Origin = "api"
)

// Documents is the pair of documents a run works from. Either may be nil when its
// request failed or returned no data.
type Documents struct {
	Origin   Origin
	Current  *climacell.Document
	Forecast *climacell.Document
	Results  []*climacell.FetchResult
}

// Usable reports whether both documents carry data.
func (d Documents) Usable() bool {
	return d.Current.Usable() && d.Forecast.Usable()
}

// WeatherDataSource is implemented by each weather API backend.
type WeatherDataSource interface {
	Name() string
	Fetch(ctx context.Context) (Documents, error)
}
