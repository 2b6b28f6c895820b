// Package fred implements the FRED observations API client.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cpiview/internal/core"
	"cpiview/internal/source"
)

const observationsPath = "/fred/series/observations"

// Client talks to the FRED observations endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ source.ObservationReader = (*Client)(nil)

// New creates a FRED client. baseURL is the API root without a trailing
// slash; timeout bounds each request.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a structured error payload returned by FRED.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fred api error %d: %s", e.Code, e.Message)
}

// observationsResponse mirrors the JSON shape of the observations endpoint.
// Values arrive as strings; missing observations carry the value ".".
type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// ReadObservations implements source.ObservationReader against the live API.
// Missing observations (value ".") are skipped; the result is date-ordered.
func (c *Client) ReadObservations(ctx context.Context, seriesID string, r core.DateRange) ([]core.Observation, error) {
	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("observation_start", r.Start.Format(core.DateLayout))
	q.Set("observation_end", r.End.Format(core.DateLayout))
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+observationsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build fred request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fred fetch %s: %w", seriesID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("fred read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("fred: status %d for %s", resp.StatusCode, seriesID)
	}

	var payload observationsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("fred decode: %w", err)
	}

	obs := make([]core.Observation, 0, len(payload.Observations))
	for _, o := range payload.Observations {
		if o.Value == "." {
			continue // FRED marks missing observations this way
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		d, err := time.Parse(core.DateLayout, o.Date)
		if err != nil {
			continue
		}
		obs = append(obs, core.Observation{Date: d, Value: v})
	}

	core.SortObservations(obs)
	return obs, nil
}
