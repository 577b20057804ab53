// Package providerhttp is the JSON-over-HTTP plumbing shared by the badge
// provider clients. Every failure is reported as a *driven.BadgeProviderError.
package providerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

const tracerName = "github.com/ericfisherdev/badgehub/internal/adapter/driven/providerhttp"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// ErrMalformedResponse is wrapped by Check failures of 2xx responses.
var ErrMalformedResponse = errors.New("malformed response")

// NewHTTPClient returns an http.Client whose transport answers repeated GETs
// from an in-memory ETag cache. One client is meant to be shared by every
// provider client of a process.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   timeout,
	}
}

// Request describes one provider call.
type Request struct {
	Operation string   // Reported in errors, spans and metrics.
	Method    string   // HTTP method.
	Path      []string // Path segments joined onto the base URL.
	Body      any      // JSON-encoded when non-nil.

	// Check, when set, validates the decoded response. A non-nil result
	// fails the call as if the provider had answered with an error.
	Check func() error
}

// Client performs authenticated JSON requests against one provider account.
type Client struct {
	provider  string
	baseURL   *url.URL
	http      *http.Client
	authorize func(*http.Request)
	tracer    trace.Tracer
}

// New creates a Client for provider rooted at baseURL. authorize sets the
// credentials on every outgoing request.
func New(provider, baseURL string, httpClient *http.Client, authorize func(*http.Request)) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %s base URL: %w", provider, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		provider:  provider,
		baseURL:   u,
		http:      httpClient,
		authorize: authorize,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// Provider returns the provider name used in errors and metrics.
func (c *Client) Provider() string { return c.provider }

// Fail wraps err as a provider error for operation without sending anything.
func (c *Client) Fail(operation string, err error) error {
	observe(c.provider, operation, outcomeError, 0)
	return &driven.BadgeProviderError{Provider: c.provider, Operation: operation, Err: err}
}

// Do sends req and decodes a 2xx JSON response into out (when non-nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()

	endpoint := c.baseURL.JoinPath(req.Path...)

	ctx, span := c.tracer.Start(ctx, c.provider+"."+req.Operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("badge.provider", c.provider),
		attribute.String("http.method", req.Method),
		attribute.String("http.url", endpoint.String()),
	)

	status, err := c.do(ctx, req, endpoint, out)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observe(c.provider, req.Operation, outcomeError, time.Since(start))
		return &driven.BadgeProviderError{
			Provider:   c.provider,
			Operation:  req.Operation,
			StatusCode: status,
			Err:        err,
		}
	}

	observe(c.provider, req.Operation, outcomeSuccess, time.Since(start))
	return nil
}

func (c *Client) do(ctx context.Context, req Request, endpoint *url.URL, out any) (int, error) {
	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return 0, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint.String(), body)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.authorize != nil {
		c.authorize(httpReq)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, errors.New(msg)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	if req.Check != nil {
		if err := req.Check(); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}
	return resp.StatusCode, nil
}
