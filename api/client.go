// Package api is the client of the portfolio REST service. Every operation
// classifies its outcome into a decoded record or an *errs.ApiErr; nothing is
// retried.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-dashboard-core/auth"
	"github.com/rpupo63/portfolio-dashboard-core/errs"
)

const serviceName = "portfolio service"

type Client struct {
	baseURL *url.URL
	gate    *auth.Gate
	plain   *http.Client
	bearer  *http.Client
	logger  zerolog.Logger
	metrics *Metrics
	timeout time.Duration
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *zerolog.Logger
	metrics    *Metrics
	timeout    time.Duration
}

// WithHTTPClient sets the client whose transport, timeout and redirect policy
// are used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTimeout bounds each request. Zero, the default, means no bound beyond
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// New returns a client for the service rooted at baseURL, for example
// "https://example.com/api/".
func New(baseURL string, gate *auth.Gate, opts ...Option) (*Client, error) {
	if gate == nil {
		return nil, errors.New("api: gate is required")
	}
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	o := options{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.With().Str("clientName", "portfolioClient").Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	plain, bearer := newClients(o.httpClient, gate.Session(), logger)
	return &Client{
		baseURL: u,
		gate:    gate,
		plain:   plain,
		bearer:  bearer,
		logger:  logger,
		metrics: o.metrics,
		timeout: o.timeout,
	}, nil
}

// credential says whether a request needs the bearer token.
type credential int

const (
	anonymous credential = iota
	// optional sends the token when one is present.
	optional
	required
)

type call struct {
	operation   string
	method      string
	path        []string
	query       url.Values
	body        io.Reader
	contentType string
	credential  credential
	// entity names the record in not-found errors. Empty means a 404 is
	// reported like any other failed status.
	entity string
	// exchange marks the credential exchange, whose 401 means bad
	// credentials rather than a stale token.
	exchange bool
}

func (c *Client) endpoint(segments []string, query url.Values) string {
	u := *c.baseURL
	u.Path += strings.Join(segments, "/") + "/"
	u.RawQuery = query.Encode()
	return u.String()
}

// do sends the call and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	logger := c.logger.With().Str("operation", cl.operation).Str("flow", auth.FlowID(ctx)).Logger()

	token := c.gate.CurrentToken()
	if cl.credential == required && token == "" {
		logger.Warn().Msg("no credential, request not sent")
		return c.unauthorized(ctx, errs.NewMissingTokenError())
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path, cl.query), cl.body)
	if err != nil {
		return errs.NewInternalErrorWithCause("failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}

	httpClient := c.plain
	if cl.credential == required || (cl.credential == optional && token != "") {
		httpClient = c.bearer
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.metrics.observe(cl.operation, 0, time.Since(start))
		if errors.Is(err, errs.ErrMissingToken) {
			// logged out between the check above and the round trip
			return c.unauthorized(ctx, errs.NewMissingTokenError())
		}
		return errs.NewServiceUnreachableError(serviceName, err)
	}
	defer resp.Body.Close()
	c.metrics.observe(cl.operation, resp.StatusCode, time.Since(start))

	body, err := readBody(resp)
	if err != nil {
		return errs.NewServiceUnreachableError(serviceName, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized && cl.exchange:
		return errs.NewInvalidCredentialsError(serverMessage(body))
	case resp.StatusCode == http.StatusUnauthorized:
		return c.unauthorized(ctx, errs.NewInvalidTokenError())
	case resp.StatusCode == http.StatusNotFound && cl.entity != "":
		return errs.NewNotFound(cl.entity)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := errs.NewResponseError(resp.StatusCode, cl.operation, serverMessage(body))
		logger.Error().Err(apiErr).Int("status", resp.StatusCode).Msg("request rejected")
		return apiErr
	}

	return decodeJSON(cl.operation, body, out)
}

// unauthorized raises the gate for the flow of ctx and returns err.
func (c *Client) unauthorized(ctx context.Context, err *errs.ApiErr) error {
	c.metrics.unauthorized()
	c.gate.Raise(ctx, err)
	return err
}
