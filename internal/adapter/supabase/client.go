// Package supabase talks to the Supabase REST (PostgREST) and Auth (GoTrue)
// APIs through postgrest-go and gotrue-go. Calls run under the caller's access
// token taken from the context, so row-level security applies exactly as it
// would for the browser.
package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/postgrest-go"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

const defaultRetryDelay = 500 * time.Millisecond

// Client builds a postgrest-go or gotrue-go client per call, bound to the
// caller's token and context.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	transport  http.RoundTripper
	timeout    time.Duration
	retryDelay time.Duration
	log        *slog.Logger
}

// NewClient creates a Client for the project at baseURL.
func NewClient(baseURL, anonKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		transport:  http.DefaultTransport,
		timeout:    timeout,
		retryDelay: defaultRetryDelay,
		log:        logger.With("adapter", "supabase"),
	}
}

// WithServiceRole returns a copy that authenticates with the service-role key
// and ignores caller tokens. Only batch jobs use it.
func (c *Client) WithServiceRole(key string) *Client {
	cp := *c
	cp.serviceKey = key
	cp.log = c.log.With("role", "service")
	return &cp
}

func (c *Client) bearer(ctx context.Context, public bool) (string, error) {
	if c.serviceKey != "" {
		return c.serviceKey, nil
	}
	if token, ok := ctxutil.AccessTokenFromCtx(ctx); ok {
		return token, nil
	}
	if public {
		return c.anonKey, nil
	}
	return "", fmt.Errorf("supabase: no access token: %w", domain.ErrUnauthorized)
}

// callOpts describes one call.
type callOpts struct {
	// public calls (sign-in) do not need a caller token.
	public bool
	// idempotent calls are retried once on 5xx or network errors.
	idempotent bool
}

// call runs fn, retrying idempotent reads once. Spends are never replayed.
func (c *Client) call(ctx context.Context, op string, o callOpts, fn func(x *exchange) error) error {
	token, err := c.bearer(ctx, o.public)
	if err != nil {
		return err
	}

	c.log.DebugContext(ctx, "supabase request", slog.String("op", op))

	attempt := func() error {
		err := c.attempt(ctx, op, token, fn)
		if err == nil {
			return nil
		}
		if !o.idempotent || ctx.Err() != nil || !errors.Is(err, domain.ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), 1), ctx)
	return backoff.RetryNotify(attempt, b, func(err error, _ time.Duration) {
		c.log.WarnContext(ctx, "supabase retry", slog.String("op", op), slog.String("reason", err.Error()))
	})
}

func (c *Client) attempt(ctx context.Context, op, token string, fn func(x *exchange) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	x := &exchange{client: c, ctx: callCtx, token: token}
	err := fn(x)

	switch {
	case x.status >= http.StatusBadRequest:
		mapped := mapResponseError(x.status, x.body)
		c.logRejection(ctx, op, x.status, mapped)
		return fmt.Errorf("supabase: %s: %w", op, mapped)
	case x.err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.log.ErrorContext(ctx, "supabase request failed", slog.String("op", op), slog.String("error", x.err.Error()))
		return fmt.Errorf("supabase: %s: %w", op, errors.Join(domain.ErrUnavailable, x.err))
	case err != nil:
		return fmt.Errorf("supabase: %s: %w", op, err)
	}
	return nil
}

// exchange is the round tripper under one attempt. Both libraries build
// requests without a context and flatten error responses into strings, so
// it binds the attempt's context and keeps the raw error status and body
// for mapResponseError.
type exchange struct {
	client *Client
	ctx    context.Context
	token  string

	status int
	body   []byte
	err    error
}

// rest returns a PostgREST client that sends through x.
func (x *exchange) rest() (*postgrest.Client, error) {
	pg := postgrest.NewClient(x.client.baseURL+"/rest/v1", "", nil)
	if pg.ClientError != nil {
		return nil, pg.ClientError
	}
	pg.SetApiKey(x.client.anonKey).SetAuthToken(x.token)
	pg.Transport.Parent = x
	return pg, nil
}

// auth returns a GoTrue client that sends through x.
func (x *exchange) auth() gotrue.Client {
	return gotrue.New("", x.client.anonKey).
		WithCustomGoTrueURL(x.client.baseURL + "/auth/v1").
		WithClient(http.Client{Transport: x}).
		WithToken(x.token)
}

func (x *exchange) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(x.ctx)
	// postgrest-go appends its default Accept after a per-query one.
	if accept := out.Header.Values("Accept"); len(accept) > 1 {
		out.Header.Set("Accept", accept[0])
	}
	if id := ctxutil.RequestIDFromCtx(x.ctx); id != "" {
		out.Header.Set("X-Request-ID", id)
	}

	resp, err := x.client.transport.RoundTrip(out)
	if err != nil {
		x.err = err
		return nil, err
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		x.err = err
		return nil, err
	}
	x.status, x.body = resp.StatusCode, body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// Authorization failures are logged for diagnostics; ordinary rejections
// (insufficient points, owned items) are not.
func (c *Client) logRejection(ctx context.Context, op string, status int, err error) {
	switch {
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
		c.log.WarnContext(ctx, "supabase authorization rejected",
			slog.String("op", op), slog.Int("status", status), slog.String("error", err.Error()))
	case errors.Is(err, domain.ErrUnavailable):
		c.log.ErrorContext(ctx, "supabase upstream error",
			slog.String("op", op), slog.Int("status", status), slog.String("error", err.Error()))
	}
}
