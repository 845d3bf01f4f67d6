package utils

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nyaruka/gocommon/httpx"
	"github.com/nyaruka/gocommon/jsonx"
)

// NewHTTPClient returns the HTTP client used by a job, a zero timeout meaning requests can block forever
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// NewJSONRequest creates a new request with the given value encoded as its JSON body
func NewJSONRequest(ctx context.Context, method, url string, v any) (*http.Request, error) {
	body, err := jsonx.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// MakeHTTPRequest makes the given request using the given client, and returns the trace. Any non-2XX
// response is returned as an error alongside the trace.
func MakeHTTPRequest(client *http.Client, req *http.Request) (*httpx.Trace, error) {
	trace, err := httpx.DoTrace(client, req, nil, nil, 0)
	if err != nil {
		return trace, fmt.Errorf("error making %s request to %s: %w", req.Method, req.URL, err)
	}

	if trace.Response != nil && trace.Response.StatusCode/100 != 2 {
		return trace, fmt.Errorf("received non 2XX status %d for %s %s", trace.Response.StatusCode, req.Method, req.URL)
	}

	return trace, nil
}
