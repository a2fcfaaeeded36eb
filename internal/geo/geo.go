// Package geo looks up the current geolocation over HTTP.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 10 * time.Second

// Location is a latitude/longitude pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// response is the body returned by the geolocation endpoint.
type response struct {
	Location *Location `json:"location"`
}

// NetworkError reports that a geolocation lookup did not complete
// with a success status.
type NetworkError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	msg := "unable to fetch geolocation"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Locator resolves the current location.
type Locator interface {
	Locate(ctx context.Context) (Location, error)
}

// Client queries a geolocation endpoint.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a Client for the given endpoint.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Locate performs one GET against the endpoint.
// Any failure is returned as a *NetworkError.
func (c *Client) Locate(ctx context.Context) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return Location{}, &NetworkError{URL: c.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, &NetworkError{URL: c.url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Location{}, &NetworkError{URL: c.url, StatusCode: resp.StatusCode}
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, &NetworkError{URL: c.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.Location == nil {
		return Location{}, &NetworkError{URL: c.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("response has no location")}
	}

	return *body.Location, nil
}
