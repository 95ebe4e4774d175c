package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// Default configuration values.
const (
	DefaultBaseURL         = "https://tonapi.io"
	DefaultTimeout         = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 1 * time.Second
	DefaultMaxDelay        = 10 * time.Second
	DefaultBackoffMult     = 2.0
	DefaultRequestInterval = 50 * time.Millisecond
)

// ErrNotFound is returned when tonapi has no such account or transaction
var ErrNotFound = errors.New("not found")

// Client is a tonapi v2 client implementing TransactionSource
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64

	interval time.Duration
	mu       sync.Mutex
	lastCall time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithRequestInterval sets the minimum spacing between requests.
func WithRequestInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.interval = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new tonapi client. An empty baseURL uses the public endpoint.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		interval:    DefaultRequestInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statusError is a non-retryable HTTP failure
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// get performs a GET with retries and exponential backoff on transport
// errors, 429 and 5xx.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.pace(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= 500:
			lastErr = &statusError{code: resp.StatusCode, body: string(body)}
			continue
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		case resp.StatusCode != http.StatusOK:
			return &statusError{code: resp.StatusCode, body: string(body)}
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// pace waits until the request interval has passed since the previous call
func (c *Client) pace(ctx context.Context) error {
	if c.interval <= 0 {
		return nil
	}

	c.mu.Lock()
	wait := c.interval - time.Since(c.lastCall)
	if wait < 0 {
		wait = 0
	}
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

type transactionsResponse struct {
	Transactions []*types.Transaction `json:"transactions"`
}

// AccountTransactions returns up to limit transactions of account, newest
// first. A non-zero beforeLT returns only transactions with a smaller lt.
func (c *Client) AccountTransactions(ctx context.Context, account string, limit int, beforeLT uint64) ([]*types.Transaction, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if beforeLT > 0 {
		query.Set("before_lt", strconv.FormatUint(beforeLT, 10))
	}

	var resp transactionsResponse
	path := "/v2/blockchain/accounts/" + url.PathEscape(account) + "/transactions"
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("account transactions: %w", err)
	}
	return resp.Transactions, nil
}

// Transaction returns one transaction by hash
func (c *Client) Transaction(ctx context.Context, hash string) (*types.Transaction, error) {
	var tx types.Transaction
	if err := c.get(ctx, "/v2/blockchain/transactions/"+url.PathEscape(hash), nil, &tx); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", hash, err)
	}
	return &tx, nil
}
