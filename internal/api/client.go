// Package api is the typed client for the dashboard REST backend. Every
// call goes through an Endpoint from the endpoint table; successful writes
// invalidate the endpoint's cache tags on the attached data source.
package api

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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/datasource"
)

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

const maxBodyBytes = 8 << 20

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Token     string
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
	Logger    zerolog.Logger

	// Source receives tag invalidations after successful writes. May be nil.
	Source *datasource.Source
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to the backend.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	source  *datasource.Source
	log     zerolog.Logger
	now     func() time.Time
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, clierr.Newf(clierr.InvalidInput, "invalid API base URL %q", opts.BaseURL).
			WithDetails(map[string]any{"base_url": opts.BaseURL})
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{
		base:   base,
		token:  opts.Token,
		http:   hc,
		source: opts.Source,
		log:    opts.Logger,
		now:    time.Now,
	}
	if opts.RateLimit > 0 {
		burst := max(opts.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Source returns the attached data source, or nil.
func (c *Client) Source() *datasource.Source {
	return c.source
}

// call is one request through the endpoint table.
type call struct {
	endpoint Endpoint
	args     []string
	params   url.Values
	body     any
}

// do performs the call and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, cl call, out any) error {
	ep := cl.endpoint
	if len(cl.args) != ep.params() {
		return clierr.Newf(clierr.InternalError, "%s takes %d path arguments, got %d",
			ep.Name, ep.params(), len(cl.args))
	}
	if c.token != "" {
		if err := checkToken(c.token, c.now()); err != nil {
			return err
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: waiting for rate limiter: %w", ep.Name, err)
		}
	}

	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}
	reqID := req.Header.Get("X-Request-ID")
	path := ep.URLPath(cl.args...)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Error().Err(err).Str("endpoint", ep.Name).Str("request_id", reqID).Msg("request failed")
		return clierr.Newf(clierr.RequestFailed, "%s: %v", ep.Name, err).
			WithDetails(map[string]any{"endpoint": ep.Name, "request_id": reqID})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", ep.Name, err)
	}

	c.log.Debug().
		Str("method", ep.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", reqID).
		Dur("duration", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{
			Endpoint:  ep.Name,
			Method:    ep.Method,
			Path:      path,
			Status:    resp.StatusCode,
			Message:   errorMessage(data),
			RequestID: reqID,
		}
		c.log.Error().Str("endpoint", ep.Name).Int("status", serr.Status).
			Str("request_id", reqID).Msg(serr.Message)
		return serr
	}

	if !ep.IsQuery() && c.source != nil && len(ep.Invalidates) > 0 {
		c.source.Invalidate(ep.Invalidates...)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", ep.Name, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	ep := cl.endpoint
	u, err := url.Parse(c.base.String() + ep.URLPath(cl.args...))
	if err != nil {
		return nil, fmt.Errorf("%s: building URL: %w", ep.Name, err)
	}
	if len(cl.params) > 0 {
		u.RawQuery = cl.params.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding body: %w", ep.Name, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", ep.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// IsCanceled reports whether err comes from a cancelled or superseded call.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
