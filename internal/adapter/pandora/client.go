package pandora

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
)

const (
	endpointData    = "data"
	endpointCompare = "compare"

	// Upper bound on how much of an error body ends up in the error message.
	maxErrorBody = 4 << 10
)

// Client implements domain.MeasurementSource against the Pandora measurement API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a measurement API client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// TimeSeries fetches one site's series for a range.
func (c *Client) TimeSeries(ctx context.Context, q domain.TimeSeriesQuery) (domain.TimeSeries, error) {
	var ts domain.TimeSeries
	if err := c.get(ctx, endpointData, q.Values(), &ts); err != nil {
		return domain.TimeSeries{}, err
	}
	return ts, nil
}

// Compare fetches monthly buckets for the selected sites in one year.
func (c *Client) Compare(ctx context.Context, q domain.CompareQuery) (domain.Comparison, error) {
	var cmp domain.Comparison
	if err := c.get(ctx, endpointCompare, q.Values(), &cmp); err != nil {
		return nil, err
	}
	if cmp == nil {
		cmp = domain.Comparison{}
	}
	return cmp, nil
}

// CheckReadiness reports whether the API answers at all. Any response below
// 500 counts as reachable.
func (c *Client) CheckReadiness(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("measurement API unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("measurement API unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.observe(endpoint, "error")
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observe(endpoint, "error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("measurement API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe(endpoint, "error")
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			c.observe(endpoint, "error")
			return fmt.Errorf("%s response: %w", endpoint, err)
		}
	}

	c.observe(endpoint, "success")
	c.logger.Debug("measurement API request",
		"endpoint", endpoint,
		"query", params.Encode(),
		"duration", time.Since(start),
	)
	return nil
}

type validator interface {
	Validate() error
}

func (c *Client) observe(endpoint, outcome string) {
	c.metrics.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}
