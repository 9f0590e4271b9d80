package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"catalog/backend/internal/logging"
	productusecase "catalog/backend/internal/usecase/product"
)

const (
	defaultAttempts        = 3
	defaultRatePerSec      = 20
	defaultInitialInterval = time.Second
	defaultRequestTimeout  = 15 * time.Second
)

// Client posts products to the catalog API.
type Client struct {
	endpoint        string
	token           string
	httpClient      *http.Client
	limiter         *rate.Limiter
	attempts        uint64
	initialInterval time.Duration
	logger          *zap.Logger
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithToken sends an admin bearer token with every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRate limits outgoing requests to perSec. A non-positive value disables pacing.
func WithRate(perSec float64) ClientOption {
	return func(c *Client) {
		if perSec <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

// WithRetry sets the number of attempts per product and the first backoff delay.
func WithRetry(attempts int, initial time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = uint64(attempts)
		}
		if initial > 0 {
			c.initialInterval = initial
		}
	}
}

// WithClientLogger sets the logger used for retry warnings.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logging.OrNop(l) }
}

// NewClient builds a client that posts to endpoint, the full URL of the products collection.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:        endpoint,
		httpClient:      &http.Client{Timeout: defaultRequestTimeout},
		limiter:         rate.NewLimiter(rate.Limit(defaultRatePerSec), 1),
		attempts:        defaultAttempts,
		initialInterval: defaultInitialInterval,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// retryable reports whether another attempt may succeed.
func (e *StatusError) retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

// CreateProduct posts one product, retrying transport errors and retryable statuses.
func (c *Client) CreateProduct(ctx context.Context, in productusecase.CreateInput) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.attempts-1), ctx)

	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := c.post(ctx, body)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.retryable() {
			return backoff.Permanent(err)
		}
		c.logger.Warn("create product attempt failed",
			zap.String("name", in.Name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}
	return backoff.Retry(op, policy)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
}
