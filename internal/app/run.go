// Package app runs one fetch, build, report and record cycle.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lox/climafetch/internal/climacell"
	"github.com/lox/climafetch/internal/datasource"
	"github.com/lox/climafetch/internal/metrics"
	"github.com/lox/climafetch/internal/models"
	"github.com/lox/climafetch/internal/report"
	"github.com/lox/climafetch/internal/snapshot"
)

// Outcome is the result of a run. Its value is the process exit code.
type Outcome int

const (
	Success Outcome = iota
	NoData
	Failure
)

func (o Outcome) ExitCode() int {
	return int(o)
}

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NoData:
		return "no data"
	default:
		return "failure"
	}
}

// HistoryStore is the persistence the runner needs. *store.Store implements it.
type HistoryStore interface {
	InsertHistory(row models.HistoryRow) (int64, error)
	StoreRawPayload(source, endpoint string, payload []byte) (int64, error)
	PruneRawPayloads(cutoff time.Time) (int64, error)
}

type Deps struct {
	Source   datasource.WeatherDataSource
	Builder  *snapshot.Builder
	Reporter report.Reporter

	// Store is nil when history recording is disabled.
	Store HistoryStore
	// ArchiveRaw keeps fetched response bodies in the store.
	ArchiveRaw bool
	// RawRetention prunes archived bodies older than this. Zero keeps them all.
	RawRetention time.Duration

	Now func() time.Time
}

// Run executes one cycle. Persistence failures are logged and never change the outcome.
func Run(ctx context.Context, d Deps) Outcome {
	outcome := run(ctx, d)
	metrics.LastRunOutcome.Set(float64(outcome))
	slog.Info("app: run finished", "outcome", outcome.String())
	return outcome
}

func run(ctx context.Context, d Deps) Outcome {
	docs, err := d.Source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, datasource.ErrCacheUnavailable) {
			slog.Error("app: cached data unavailable", "source", d.Source.Name(), "error", err)
		} else {
			slog.Error("app: fetch failed", "source", d.Source.Name(), "error", err)
		}
		return Failure
	}

	for _, r := range docs.Results {
		if r != nil {
			slog.Info("app: fetched", "endpoint", r.Endpoint, "status", r.HTTPStatus, "bytes", r.ResponseSize, "attempts", r.Attempts)
		}
	}
	if docs.Origin == datasource.OriginAPI {
		d.archive(docs)
	}

	if !docs.Usable() {
		slog.Warn("app: no usable data", "current", docs.Current.Usable(), "forecast", docs.Forecast.Usable())
		metrics.SnapshotsBuilt.WithLabelValues("no_data").Inc()
		return NoData
	}

	dp, daily := d.Builder.Build(docs.Current, docs.Forecast)
	if !dp.Valid {
		slog.Warn("app: snapshot invalid, current conditions missing a weather code")
		metrics.SnapshotsBuilt.WithLabelValues("invalid").Inc()
		return NoData
	}
	metrics.SnapshotsBuilt.WithLabelValues("valid").Inc()

	if err := d.Reporter.Write(dp, daily); err != nil {
		slog.Error("app: write report", "error", err)
		return Failure
	}

	d.record(dp)
	return Success
}

func (d Deps) archive(docs datasource.Documents) {
	if d.Store == nil || !d.ArchiveRaw {
		return
	}

	for _, p := range []struct {
		endpoint climacell.Endpoint
		doc      *climacell.Document
	}{
		{climacell.EndpointCurrent, docs.Current},
		{climacell.EndpointForecast, docs.Forecast},
	} {
		if p.doc == nil || len(p.doc.Raw) == 0 {
			continue
		}
		id, err := d.Store.StoreRawPayload(d.Source.Name(), string(p.endpoint), p.doc.Raw)
		if err != nil {
			slog.Warn("app: store raw payload", "endpoint", p.endpoint, "error", err)
			continue
		}
		if id == 0 {
			slog.Debug("app: raw payload unchanged", "endpoint", p.endpoint)
		}
	}

	if d.RawRetention > 0 {
		n, err := d.Store.PruneRawPayloads(d.now().Add(-d.RawRetention))
		if err != nil {
			slog.Warn("app: prune raw payloads", "error", err)
		} else if n > 0 {
			slog.Info("app: pruned raw payloads", "count", n)
		}
	}
}

func (d Deps) record(dp models.DataPoint) {
	if d.Store == nil {
		return
	}
	id, err := d.Store.InsertHistory(models.HistoryRowFromDataPoint(dp))
	if err != nil {
		metrics.HistoryWrites.WithLabelValues("error").Inc()
		slog.Warn("app: insert history", "error", err)
		return
	}
	metrics.HistoryWrites.WithLabelValues("ok").Inc()
	slog.Debug("app: history recorded", "id", id)
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
