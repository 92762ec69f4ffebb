package base

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/ratelimit"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

const maxErrorBody = 256

// Client performs rate limited, retried REST calls against the candidate
// endpoints of one provider.
type Client struct {
	opts    Options
	http    *resty.Client
	limiter ratelimit.Limiter
	logger  *logger.Logger
}

func NewClient(opts Options, l *logger.Logger) *Client {
	opts = opts.WithDefaults()

	httpClient := resty.New().
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if opts.ProxyURL != "" {
		httpClient.SetProxy(opts.ProxyURL)
	}

	limiter := ratelimit.NewUnlimited()
	if opts.RateLimit > 0 {
		limiter = ratelimit.New(opts.RateLimit)
	}

	return &Client{
		opts:    opts,
		http:    httpClient,
		limiter: limiter,
		logger: l.With(map[string]string{
			"chain":    opts.Chain,
			"provider": opts.Name,
		}),
	}
}

func (c *Client) Options() Options { return c.opts }

func (c *Client) Logger() *logger.Logger { return c.logger }

// APIKey picks a key at random from the pool.
func (c *Client) APIKey() string {
	if len(c.opts.APIKeys) == 0 {
		return ""
	}
	return c.opts.APIKeys[rand.IntN(len(c.opts.APIKeys))]
}

func (c *Client) timeoutFor(op explorer.Operation) time.Duration {
	if op == explorer.OpBlockTxs || op == explorer.OpBatchBlockTxs {
		return c.opts.BlockTimeout
	}
	return c.opts.Timeout
}

// Retry runs fn up to MaxRetries times, rotating through the base URLs. Each
// attempt gets its own timeout. Only retryable *explorer.APIError failures are
// retried; the parent context ending stops the loop.
func (c *Client) Retry(ctx context.Context, op explorer.Operation, fn func(ctx context.Context, baseURL string) error) error {
	if len(c.opts.BaseURLs) == 0 {
		return explorer.NewAPIError(c.opts.Name, op, 0, errors.New("no base url configured"))
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.limiter.Take()

		baseURL := c.opts.BaseURLs[(attempt-1)%len(c.opts.BaseURLs)]
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeoutFor(op))
		err := fn(attemptCtx, baseURL)
		cancel()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		lastErr = err
		if !isRetryable(err) {
			return err
		}
		c.logger.Error("["+string(op)+"][client.Do]", map[string]string{
			"operation": string(op),
			"endpoint":  baseURL,
			"error":     err.Error(),
			"attempt":   strconv.Itoa(attempt),
		})
		if attempt < c.opts.MaxRetries {
			if err := sleep(ctx, c.opts.RetryBackoff); err != nil {
				return err
			}
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	var apiErr *explorer.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Request describes one REST call relative to a base URL.
type Request struct {
	Operation explorer.Operation
	Method    string
	Path      string
	Query     map[string]string
	Body      any
}

// Do executes req and decodes the JSON body into out. Undecodable bodies
// yield explorer.ErrInvalidResponse.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	raw, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return explorer.InvalidResponse(c.opts.Name, req.Operation, "decode: "+err.Error())
	}
	return nil
}

// DoRaw executes req and returns the body untouched.
func (c *Client) DoRaw(ctx context.Context, req Request) ([]byte, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	var body []byte
	err := c.Retry(ctx, req.Operation, func(ctx context.Context, baseURL string) error {
		r := c.http.R().SetContext(ctx).SetQueryParams(req.Query)
		if req.Body != nil {
			r.SetBody(req.Body)
		}
		c.authorize(r)

		resp, err := r.Execute(req.Method, baseURL+req.Path)
		if err != nil {
			return explorer.NewAPIError(c.opts.Name, req.Operation, 0, err)
		}
		if resp.StatusCode() >= 400 {
			return explorer.NewAPIError(c.opts.Name, req.Operation, resp.StatusCode(), errors.New(truncate(resp.String())))
		}
		body = resp.Body()
		return nil
	})
	return body, err
}

func (c *Client) authorize(r *resty.Request) {
	key := c.APIKey()
	if key == "" {
		return
	}
	switch c.opts.Auth {
	case AuthQuery:
		r.SetQueryParam(c.opts.AuthParam, key)
	case AuthHeader:
		r.SetHeader(c.opts.AuthParam, key)
	case AuthBearer:
		r.SetAuthToken(key)
	}
}

func (c *Client) Get(ctx context.Context, op explorer.Operation, path string, query map[string]string, out any) error {
	return c.Do(ctx, Request{Operation: op, Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, op explorer.Operation, path string, body, out any) error {
	return c.Do(ctx, Request{Operation: op, Method: http.MethodPost, Path: path, Body: body}, out)
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
