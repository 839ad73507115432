package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/me/schedsim/pkg/model"
)

// Client talks to a schedsim API server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient returns a Client for baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		Logger:     logger.With("component", "client"),
	}
}

// envelope mirrors model.Response with the payload left raw.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

// Simulate posts a workload document and returns the stored run. params
// carries policy, script and max_ticks.
func (c *Client) Simulate(ctx context.Context, doc []byte, params url.Values) (*model.Run, error) {
	var run model.Run
	if _, err := c.call(ctx, http.MethodPost, "/api/v1/simulations/?"+params.Encode(), "application/yaml", doc, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// call sends one request and decodes the envelope's data into out.
// API errors come back as *model.APIError.
func (c *Client) call(ctx context.Context, method, path, contentType string, body []byte, out any) (*envelope, error) {
	u := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.Logger.Debug("api call", "method", method, "url", u, "status", resp.StatusCode, "bytes", len(raw), "duration", time.Since(start).String())

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w\nbody: %s", resp.StatusCode, err, raw)
	}
	if env.Status == model.EnvelopeError && env.Error != nil {
		return &env, env.Error
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &env, fmt.Errorf("decode data: %w", err)
		}
	}
	return &env, nil
}
