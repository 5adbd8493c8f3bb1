// Package geocode turns a postal address into coordinates using the Google
// Geocoding JSON API (or anything that answers in the same shape).
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"localevents/logger"
	"localevents/metrics"
)

// ErrUnavailable is returned for every failure: transport error, timeout,
// non-200 status, unparsable body, empty result set or a blank address.
var ErrUnavailable = errors.New("geocoding unavailable")

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder is what event creation and update depend on.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}

type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	timeout    time.Duration
	metrics    metrics.Recorder
}

func NewClient(httpClient *http.Client, endpoint, apiKey string, timeout time.Duration, rec metrics.Recorder) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if rec == nil {
		rec = metrics.Nop
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		apiKey:     apiKey,
		timeout:    timeout,
		metrics:    rec,
	}
}

type apiResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location Coordinates `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode makes a single call, bounded by the client timeout. No retries.
func (c *Client) Geocode(ctx context.Context, address string) (Coordinates, error) {
	start := time.Now()
	coords, err := c.geocode(ctx, address)
	result := "ok"
	if err != nil {
		result = "error"
		logger.Warn("geocode failed", logger.Fields{"address": address, "error": err.Error()})
	}
	c.metrics.RecordGeocode(result, time.Since(start))
	return coords, err
}

func (c *Client) geocode(ctx context.Context, address string) (Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinates{}, fmt.Errorf("%w: empty address", ErrUnavailable)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: bad endpoint: %v", ErrUnavailable, err)
	}
	q := reqURL.Query()
	q.Set("address", address)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("%w: provider returned status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Coordinates{}, fmt.Errorf("%w: decode body: %v", ErrUnavailable, err)
	}
	if out.Status != "" && out.Status != "OK" {
		return Coordinates{}, fmt.Errorf("%w: provider status %s %s", ErrUnavailable, out.Status, out.ErrorMessage)
	}
	if len(out.Results) == 0 {
		return Coordinates{}, fmt.Errorf("%w: no results for address", ErrUnavailable)
	}
	return out.Results[0].Geometry.Location, nil
}
