// Package registry matches storm fixes against an external active-storm
// registry over HTTP.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/identity"
	"github.com/couchcryptid/storm-atcf-tracker/internal/observability"
)

// Client implements identity.Matcher against the registry's match endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a registry client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// MatchByPositionTime asks the registry which active storm lies at a fix.
// A 404 or an empty ID is "no match", not an error.
func (c *Client) MatchByPositionTime(ctx context.Context, q identity.Query) (domain.StormID, bool, error) {
	params := url.Values{
		"lat":  {strconv.FormatFloat(q.Lat, 'f', 2, 64)},
		"lon":  {strconv.FormatFloat(q.Lon, 'f', 2, 64)},
		"jd":   {strconv.FormatFloat(q.JulianDate, 'f', 5, 64)},
		"time": {q.Time.UTC().Format(time.RFC3339)},
	}
	fullURL := c.baseURL + "/match?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.StormID{}, false, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RegistryAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RegistryRequests.WithLabelValues("error").Inc()
		return domain.StormID{}, false, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.metrics.RegistryRequests.WithLabelValues("none").Inc()
		return domain.StormID{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.RegistryRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.StormID{}, false, fmt.Errorf("registry API error: status %d: %s", resp.StatusCode, body)
	}

	var mr matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		c.metrics.RegistryRequests.WithLabelValues("error").Inc()
		return domain.StormID{}, false, fmt.Errorf("decode response: %w", err)
	}
	if mr.ATCFID == "" {
		c.metrics.RegistryRequests.WithLabelValues("none").Inc()
		return domain.StormID{}, false, nil
	}

	id, err := domain.ParseStormID(mr.ATCFID)
	if err != nil {
		c.metrics.RegistryRequests.WithLabelValues("error").Inc()
		return domain.StormID{}, false, fmt.Errorf("registry returned %q: %w", mr.ATCFID, err)
	}
	c.metrics.RegistryRequests.WithLabelValues("match").Inc()
	c.logger.Debug("registry match", "atcf_id", mr.ATCFID, "name", mr.Name, "lat", q.Lat, "lon", q.Lon)
	return id, true, nil
}

// Registry API response types.

type matchResponse struct {
	ATCFID string `json:"atcf_id"`
	Name   string `json:"name"`
}
