package climacell

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/lox/climafetch/internal/httputil"
	"github.com/lox/climafetch/internal/metrics"
)

const DefaultBaseURL = "https://data.climacell.co/v4/timelines"

// Endpoint names the two timelines requests made per run.
type Endpoint string

const (
	EndpointCurrent  Endpoint = "current"
	EndpointForecast Endpoint = "forecast"
)

var currentFields = []string{
	"weatherCode", "temperature", "temperatureApparent", "visibility", "windSpeed",
	"windDirection", "precipitationType", "precipitationProbability", "pressureSeaLevel",
	"windGust", "humidity", "precipitationIntensity", "dewPoint",
}

var forecastFields = []string{
	"weatherCode", "temperatureMax", "temperatureMin", "sunriseTime", "sunsetTime",
	"precipitationType", "precipitationProbability",
}

// forecastDays bounds the daily request window; the report only uses days 1-3.
const forecastDays = 5

type Options struct {
	APIKey   string
	Location string
	TimeZone string

	BaseURL    string
	HTTPClient *http.Client

	// RetryWindow bounds retries of rate limited and 5xx responses. Zero disables retries.
	RetryWindow time.Duration
	// RequestsPerSecond paces requests. Zero means unlimited.
	RequestsPerSecond float64
}

type Client struct {
	apiKey      string
	location    string
	timeZone    string
	baseURL     string
	client      *http.Client
	retryWindow time.Duration
	limiter     *rate.Limiter
}

// FetchResult describes one HTTP exchange for logging and payload archiving.
type FetchResult struct {
	Endpoint     Endpoint
	URL          string
	HTTPStatus   int
	ResponseSize int
	Attempts     int
}

func NewClient(opts Options) *Client {
	c := &Client{
		apiKey:      opts.APIKey,
		location:    opts.Location,
		timeZone:    opts.TimeZone,
		baseURL:     opts.BaseURL,
		client:      opts.HTTPClient,
		retryWindow: opts.RetryWindow,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.client == nil {
		c.client = httputil.NewClient(httputil.DefaultTimeout)
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("location", c.location)
	if c.timeZone != "" {
		q.Set("timezone", c.timeZone)
	}
	q.Set("units", "metric")
	return q
}

// CurrentURL builds the request for current conditions.
func (c *Client) CurrentURL() string {
	q := c.baseQuery()
	q.Set("fields", strings.Join(currentFields, ","))
	q.Set("timesteps", "current")
	return c.baseURL + "?" + q.Encode()
}

// ForecastURL builds the daily request. The window starts tonight (23:00 UTC on now's
// date) and ends at 06:00 UTC five days later.
func (c *Client) ForecastURL(now time.Time) string {
	q := c.baseQuery()
	q.Set("fields", strings.Join(forecastFields, ","))
	q.Set("timesteps", "1d")
	q.Set("startTime", now.Format("2006-01-02")+"T23:00:00Z")
	q.Set("endTime", now.AddDate(0, 0, forecastDays).Format("2006-01-02")+"T06:00:00Z")
	return c.baseURL + "?" + q.Encode()
}

// FetchCurrent returns the raw body of the current conditions request.
func (c *Client) FetchCurrent(ctx context.Context) ([]byte, *FetchResult, error) {
	return c.fetch(ctx, EndpointCurrent, c.CurrentURL())
}

// FetchForecast returns the raw body of the daily forecast request.
func (c *Client) FetchForecast(ctx context.Context, now time.Time) ([]byte, *FetchResult, error) {
	return c.fetch(ctx, EndpointForecast, c.ForecastURL(now))
}

func (c *Client) fetch(ctx context.Context, endpoint Endpoint, reqURL string) ([]byte, *FetchResult, error) {
	result := &FetchResult{Endpoint: endpoint, URL: reqURL}

	var body []byte
	operation := func() error {
		result.Attempts++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		metrics.APILatency.WithLabelValues(string(endpoint)).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.APICallsTotal.WithLabelValues(string(endpoint), "error").Inc()
			return backoff.Permanent(fmt.Errorf("fetch %s: %w", endpoint, err))
		}
		defer resp.Body.Close()

		result.HTTPStatus = resp.StatusCode
		metrics.APICallsTotal.WithLabelValues(string(endpoint), strconv.Itoa(resp.StatusCode)).Inc()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		result.ResponseSize = len(b)

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch %s: status %d: %s", endpoint, resp.StatusCode, APIMessage(b))
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", endpoint, resp.StatusCode, APIMessage(b)))
		}

		body = b
		return nil
	}

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if c.retryWindow > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = c.retryWindow
		bo = eb
	}
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, result, err
	}

	return body, result, nil
}
