package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/personalcms/web/internal/apipaths"
	"github.com/personalcms/web/internal/domain"
	"github.com/personalcms/web/internal/metrics"
	"github.com/personalcms/web/internal/validation"
)

const (
	tracerName = "github.com/personalcms/web/internal/apiclient"

	// maxBodySize caps how much of a profile response is read
	maxBodySize = 1 << 20
)

// Client talks to the backend API that owns OAuth and token issuance
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	metrics    *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records profile fetches into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a backend API client rooted at baseURL
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoginURL is the full-page navigation target that starts the OAuth flow
func (c *Client) LoginURL() string {
	return c.baseURL + apipaths.AuthLogin
}

// Me fetches the profile of the user owning token.
// Any non-2xx status, transport failure or malformed body is an error.
func (c *Client) Me(ctx context.Context, token string) (user *domain.User, err error) {
	ctx, span := c.tracer.Start(ctx, "apiclient.Me",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", c.baseURL+apipaths.AuthMe)),
	)
	start := time.Now()
	defer func() {
		c.metrics.ObserveProfileFetch(time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apipaths.AuthMe, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapNetworkOperation("GET "+apipaths.AuthMe, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.WrapProfileStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, domain.WrapNetworkOperation("read profile body", err)
	}

	user, err = validation.ParseUser(body)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrProfileInvalid.Code, "profile response failed validation", err)
	}

	return user, nil
}
