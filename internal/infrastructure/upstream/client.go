// Package upstream talks to the external backend service that owns all
// durable platform state. Every gateway feature is, at bottom, a reshaped
// call through this client.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// maxErrorBody bounds how much of an upstream error body is retained.
const maxErrorBody = 4 << 10

// Client is the backend HTTP client.
type Client struct {
	baseURL      *url.URL
	http         *http.Client
	streamHTTP   *http.Client
	serviceToken string
	metrics      *monitoring.Metrics
	logger       logger.Logger
}

// NewClient creates a backend client from config.
func NewClient(cfg *config.UpstreamConfig, metrics *monitoring.Metrics, log logger.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base url: %w", err)
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	streamTimeout := time.Duration(cfg.StreamTimeout) * time.Second
	return &Client{
		baseURL:      base,
		http:         &http.Client{Timeout: timeout},
		streamHTTP:   &http.Client{Timeout: streamTimeout},
		serviceToken: cfg.ServiceToken,
		metrics:      metrics,
		logger:       log.WithComponent("UpstreamClient"),
	}, nil
}

// RequestOption mutates an outgoing backend request.
type RequestOption func(*http.Request)

// WithHeader sets a header on the request.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		if value != "" {
			r.Header.Set(key, value)
		}
	}
}

// WithUser forwards the acting user's id so the backend can scope the call.
func WithUser(userID string) RequestOption {
	return WithHeader("X-Acting-User", userID)
}

// WithQuery appends query parameters.
func WithQuery(values url.Values) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, vs := range values {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Do performs a backend request and returns the raw response. The caller owns
// the response body.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, opts ...RequestOption) (*http.Response, error) {
	return c.do(ctx, c.http, method, path, body, opts...)
}

// Stream performs a backend request on the long-lived stream client with the
// SSE accept header. Used by the relay.
func (c *Client) Stream(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	opts = append(opts, WithHeader("Accept", "text/event-stream"), WithHeader("Cache-Control", "no-cache"))
	return c.do(ctx, c.streamHTTP, http.MethodGet, path, nil, opts...)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body io.Reader, opts ...RequestOption) (*http.Response, error) {
	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.ErrInternal.WithError(err)
	}

	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}
	if reqID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
		req.Header.Set(constants.HeaderRequestID, reqID)
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	c.metrics.RecordUpstream(routeLabel(method, path), time.Since(start), err)
	if err != nil {
		c.logger.Warn(ctx, "backend call failed",
			logger.String("method", method),
			logger.String("path", path),
			logger.Error(err),
		)
		return nil, errors.ErrUpstreamUnavailable.WithError(err)
	}
	return resp, nil
}

// GetJSON performs a GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}, opts ...RequestOption) error {
	return c.roundTripJSON(ctx, http.MethodGet, path, nil, out, opts...)
}

// PostJSON performs a POST with a JSON body and decodes the response into out.
// out may be nil when the response body is irrelevant.
func (c *Client) PostJSON(ctx context.Context, path string, in, out interface{}, opts ...RequestOption) error {
	body, err := encodeJSON(in)
	if err != nil {
		return err
	}
	opts = append(opts, WithHeader("Content-Type", "application/json"))
	return c.roundTripJSON(ctx, http.MethodPost, path, body, out, opts...)
}

// PutJSON performs a PUT with a JSON body.
func (c *Client) PutJSON(ctx context.Context, path string, in, out interface{}, opts ...RequestOption) error {
	body, err := encodeJSON(in)
	if err != nil {
		return err
	}
	opts = append(opts, WithHeader("Content-Type", "application/json"))
	return c.roundTripJSON(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) roundTripJSON(ctx context.Context, method, path string, body io.Reader, out interface{}, opts ...RequestOption) error {
	resp, err := c.Do(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.UpstreamStatus(resp.StatusCode, string(raw))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeEnvelope(resp.Body, out)
}

// decodeEnvelope tolerates both backend response shapes: a bare object and
// the {"success":bool,"data":...} envelope.
func decodeEnvelope(r io.Reader, out interface{}) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return errors.ErrUpstreamUnavailable.WithError(err)
	}

	var envelope struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Success != nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.ErrUpstreamUnavailable.WithError(fmt.Errorf("malformed backend payload: %w", err))
	}
	return nil
}

func encodeJSON(in interface{}) (io.Reader, error) {
	if in == nil {
		return nil, nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, errors.ErrInternal.WithError(err)
	}
	return bytes.NewReader(data), nil
}

// routeLabel produces a low-cardinality metric label by collapsing path ids.
func routeLabel(method, path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if len(p) >= 16 || strings.ContainsAny(p, "0123456789") && len(p) > 8 {
			parts[i] = ":id"
		}
	}
	return method + " /" + strings.Join(parts, "/")
}
