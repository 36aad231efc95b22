package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lox/climafetch/internal/climacell"
	"github.com/lox/climafetch/internal/datasource"
	"github.com/lox/climafetch/internal/models"
	"github.com/lox/climafetch/internal/report"
	"github.com/lox/climafetch/internal/snapshot"
)

const (
	currentBody  = `{"data":{"timelines":[{"timestep":"current","intervals":[{"startTime":"2021-03-01T12:00:00Z","values":{"weatherCode":4200,"temperature":10,"windDirection":225,"precipitationType":1,"precipitationProbability":40}}]}]}}`
	noCodeBody   = `{"data":{"timelines":[{"timestep":"current","intervals":[{"startTime":"2021-03-01T12:00:00Z","values":{"temperature":10}}]}]}}`
	forecastBody = `{"data":{"timelines":[{"timestep":"1d","intervals":[
		{"startTime":"2021-03-01T06:00:00Z","values":{"weatherCode":1000,"temperatureMin":1,"temperatureMax":12,"sunriseTime":"2021-03-01T05:40:00Z","sunsetTime":"2021-03-01T17:10:00Z"}},
		{"startTime":"2021-03-02T06:00:00Z","values":{"weatherCode":1100,"temperatureMin":2,"temperatureMax":13,"sunriseTime":"2021-03-02T05:38:00Z"}},
		{"startTime":"2021-03-03T06:00:00Z","values":{"weatherCode":1001,"temperatureMin":3,"temperatureMax":14,"sunriseTime":"2021-03-03T05:36:00Z"}},
		{"startTime":"2021-03-04T06:00:00Z","values":{"weatherCode":4000,"temperatureMin":4,"temperatureMax":15,"sunriseTime":"2021-03-04T05:34:00Z"}}
	]}]}}`
)

var fixedNow = func() time.Time { return time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC) }

type fakeSource struct {
	docs datasource.Documents
	err  error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(context.Context) (datasource.Documents, error) {
	return f.docs, f.err
}

type fakeStore struct {
	rows     []models.HistoryRow
	payloads []string
	pruned   []time.Time
	fail     bool
}

func (f *fakeStore) InsertHistory(row models.HistoryRow) (int64, error) {
	if f.fail {
		return 0, errors.New("disk full")
	}
	f.rows = append(f.rows, row)
	return int64(len(f.rows)), nil
}

func (f *fakeStore) StoreRawPayload(source, endpoint string, payload []byte) (int64, error) {
	if f.fail {
		return 0, errors.New("disk full")
	}
	f.payloads = append(f.payloads, fmt.Sprintf("%s/%s", source, endpoint))
	return int64(len(f.payloads)), nil
}

func (f *fakeStore) PruneRawPayloads(cutoff time.Time) (int64, error) {
	f.pruned = append(f.pruned, cutoff)
	return 0, nil
}

func mustParse(t *testing.T, body string) *climacell.Document {
	t.Helper()
	doc, err := climacell.Parse([]byte(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func newDeps(t *testing.T, docs datasource.Documents, out *bytes.Buffer, st HistoryStore) Deps {
	t.Helper()
	b := snapshot.New(models.Units{Temperature: 'C', Speed: "km/h", Pressure: "hpa", Visibility: "km"}, time.UTC, "UTC")
	b.Now = fixedNow
	return Deps{
		Source:       &fakeSource{docs: docs},
		Builder:      b,
		Reporter:     report.Reporter{Out: out},
		Store:        st,
		ArchiveRaw:   true,
		RawRetention: 24 * time.Hour,
		Now:          fixedNow,
	}
}

func TestRun_Success(t *testing.T) {
	var out bytes.Buffer
	st := &fakeStore{}
	docs := datasource.Documents{
		Origin:   datasource.OriginAPI,
		Current:  mustParse(t, currentBody),
		Forecast: mustParse(t, forecastBody),
	}

	if got := Run(context.Background(), newDeps(t, docs, &out, st)); got != Success {
		t.Fatalf("Run = %v, want success", got)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 28 {
		t.Fatalf("report has %d lines, want 28:\n%s", len(lines), out.String())
	}
	if lines[1] != "10.0°C" || lines[5] != "Tue" {
		t.Errorf("unexpected report lines %q, %q", lines[1], lines[5])
	}

	if len(st.rows) != 1 {
		t.Fatalf("history rows = %d, want 1", len(st.rows))
	}
	row := st.rows[0]
	if row.Summary != "Light Rain" || row.WindBearing != 225 || row.PrecipType != "(Rain)" || row.Timestamp != fixedNow().Unix() {
		t.Errorf("history row = %+v", row)
	}

	if want := []string{"fake/current", "fake/forecast"}; strings.Join(st.payloads, ",") != strings.Join(want, ",") {
		t.Errorf("archived = %v, want %v", st.payloads, want)
	}
	if len(st.pruned) != 1 || !st.pruned[0].Equal(fixedNow().Add(-24*time.Hour)) {
		t.Errorf("pruned = %v", st.pruned)
	}
}

func TestRun_CacheUnavailable(t *testing.T) {
	var out bytes.Buffer
	st := &fakeStore{}
	d := newDeps(t, datasource.Documents{}, &out, st)
	d.Source = &fakeSource{err: fmt.Errorf("%w: empty", datasource.ErrCacheUnavailable)}

	if got := Run(context.Background(), d); got != Failure {
		t.Errorf("Run = %v, want failure", got)
	}
	if out.Len() != 0 || len(st.rows) != 0 {
		t.Error("failure must not report or record")
	}
}

func TestRun_NoData(t *testing.T) {
	tests := []struct {
		name string
		docs func(t *testing.T) datasource.Documents
	}{
		{"current missing", func(t *testing.T) datasource.Documents {
			return datasource.Documents{Origin: datasource.OriginAPI, Forecast: mustParse(t, forecastBody)}
		}},
		{"forecast missing", func(t *testing.T) datasource.Documents {
			return datasource.Documents{Origin: datasource.OriginAPI, Current: mustParse(t, currentBody)}
		}},
		{"no weather code", func(t *testing.T) datasource.Documents {
			return datasource.Documents{Origin: datasource.OriginCache, Current: mustParse(t, noCodeBody), Forecast: mustParse(t, forecastBody)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			st := &fakeStore{}
			if got := Run(context.Background(), newDeps(t, tt.docs(t), &out, st)); got != NoData {
				t.Errorf("Run = %v, want no data", got)
			}
			if out.Len() != 0 {
				t.Errorf("partial report written: %q", out.String())
			}
			if len(st.rows) != 0 {
				t.Error("history row recorded without a valid snapshot")
			}
		})
	}
}

func TestRun_ArchivesOnlyFetchedDocuments(t *testing.T) {
	var out bytes.Buffer
	st := &fakeStore{}
	docs := datasource.Documents{
		Origin:   datasource.OriginCache,
		Current:  mustParse(t, currentBody),
		Forecast: mustParse(t, forecastBody),
	}
	Run(context.Background(), newDeps(t, docs, &out, st))
	if len(st.payloads) != 0 {
		t.Errorf("cached documents archived: %v", st.payloads)
	}

	st = &fakeStore{}
	docs.Origin = datasource.OriginAPI
	d := newDeps(t, docs, &out, st)
	d.ArchiveRaw = false
	Run(context.Background(), d)
	if len(st.payloads) != 0 {
		t.Errorf("archived with ArchiveRaw off: %v", st.payloads)
	}
}

func TestRun_PersistenceErrorsSwallowed(t *testing.T) {
	var out bytes.Buffer
	docs := datasource.Documents{
		Origin:   datasource.OriginAPI,
		Current:  mustParse(t, currentBody),
		Forecast: mustParse(t, forecastBody),
	}
	if got := Run(context.Background(), newDeps(t, docs, &out, &fakeStore{fail: true})); got != Success {
		t.Errorf("Run = %v, want success despite store errors", got)
	}
	if out.Len() == 0 {
		t.Error("report missing")
	}
}

func TestRun_NoStore(t *testing.T) {
	var out bytes.Buffer
	docs := datasource.Documents{
		Origin:   datasource.OriginAPI,
		Current:  mustParse(t, currentBody),
		Forecast: mustParse(t, forecastBody),
	}
	if got := Run(context.Background(), newDeps(t, docs, &out, nil)); got != Success {
		t.Errorf("Run = %v, want success", got)
	}
}

func TestOutcome_ExitCode(t *testing.T) {
	for o, want := range map[Outcome]int{Success: 0, NoData: 1, Failure: 2} {
		if o.ExitCode() != want {
			t.Errorf("%v.ExitCode() = %d, want %d", o, o.ExitCode(), want)
		}
	}
}
