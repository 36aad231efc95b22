package climacell

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestCurrentURL(t *testing.T) {
	c := NewClient(Options{APIKey: "KEY", Location: "48.2082,16.3738", TimeZone: "Europe/Vienna", BaseURL: "http://example.test/v4/timelines"})

	u, err := url.Parse(c.CurrentURL())
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()

	checks := map[string]string{
		"apikey":    "KEY",
		"location":  "48.2082,16.3738",
		"timezone":  "Europe/Vienna",
		"timesteps": "current",
		"units":     "metric",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if !strings.Contains(q.Get("fields"), "precipitationIntensity") {
		t.Errorf("fields = %q, missing precipitationIntensity", q.Get("fields"))
	}
	if q.Has("startTime") {
		t.Error("current request should not carry a startTime")
	}
}

func TestForecastURL(t *testing.T) {
	c := NewClient(Options{APIKey: "KEY", Location: "here"})
	now := time.Date(2021, 2, 26, 9, 15, 0, 0, time.UTC)

	u, err := url.Parse(c.ForecastURL(now))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()

	if got := q.Get("startTime"); got != "2021-02-26T23:00:00Z" {
		t.Errorf("startTime = %q, want 2021-02-26T23:00:00Z", got)
	}
	if got := q.Get("endTime"); got != "2021-03-03T06:00:00Z" {
		t.Errorf("endTime = %q, want 2021-03-03T06:00:00Z", got)
	}
	if got := q.Get("timesteps"); got != "1d" {
		t.Errorf("timesteps = %q, want 1d", got)
	}
	if q.Has("timezone") {
		t.Error("timezone should be omitted when not configured")
	}
	if !strings.HasPrefix(u.String(), DefaultBaseURL) {
		t.Errorf("url %q does not use the default base URL", u.String())
	}
}

func TestFetchCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("timesteps") != "current" {
			t.Errorf("timesteps = %q, want current", r.URL.Query().Get("timesteps"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "KEY", Location: "here", BaseURL: srv.URL})
	body, result, err := c.FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrent: %v", err)
	}
	if string(body) != currentBody {
		t.Errorf("body = %q", body)
	}
	if result.HTTPStatus != http.StatusOK || result.ResponseSize != len(currentBody) || result.Attempts != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":401001,"message":"The entered apikey is invalid"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RetryWindow: time.Second})
	_, result, err := c.FetchCurrent(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "apikey is invalid") {
		t.Errorf("error %q should carry the API message", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if result.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("HTTPStatus = %d, want 401", result.HTTPStatus)
	}
}

func TestFetch_RateLimitedRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RetryWindow: 10 * time.Second})
	body, result, err := c.FetchForecast(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchForecast: %v", err)
	}
	if len(body) == 0 {
		t.Error("empty body")
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
}

func TestFetch_NoRetryWindow(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	if _, _, err := c.FetchCurrent(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RetryWindow: time.Second})
	_, result, err := c.FetchCurrent(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
}
