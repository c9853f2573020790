// Package rpcfailover implements an RPC endpoint rotation / health-tracking client,
// grounded on the original source's core/network.py NetworkManager and RPCHealth: one
// client per configured endpoint, round-robin rotation on failure, a consecutive-failure
// threshold that marks an endpoint unhealthy, EMA latency tracking, and exponential
// backoff on rate-limit responses.
package rpcfailover

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"basearb/errs"
)

const (
	consecutiveFailureThreshold = 3
	emaWeight                   = 0.2
)

// endpoint tracks one RPC URL's health, mirroring core/network.py's RPCHealth.
type endpoint struct {
	url                 string
	client              *ethclient.Client
	healthy             bool
	lastSuccess         time.Time
	lastFailure         time.Time
	consecutiveFailures int
	avgLatencyMillis    float64
	totalRequests       uint64
}

func (e *endpoint) recordSuccess(latency time.Duration) {
	e.healthy = true
	e.lastSuccess = time.Now()
	e.consecutiveFailures = 0
	e.totalRequests++

	ms := float64(latency.Microseconds()) / 1000.0
	if e.avgLatencyMillis == 0 {
		e.avgLatencyMillis = ms
	} else {
		e.avgLatencyMillis = (1-emaWeight)*e.avgLatencyMillis + emaWeight*ms
	}
}

func (e *endpoint) recordFailure() {
	e.lastFailure = time.Now()
	e.consecutiveFailures++
	e.totalRequests++
	if e.consecutiveFailures >= consecutiveFailureThreshold {
		e.healthy = false
	}
}

// Client rotates across a set of RPC endpoints, retrying with exponential backoff on
// rate-limit errors and switching endpoints on connection/server errors.
type Client struct {
	mu        sync.Mutex
	endpoints []*endpoint
	current   int

	baseDelay time.Duration
	maxDelay  time.Duration
	maxRetries int

	// limiter throttles outgoing calls across every endpoint to stay under a shared
	// provider quota; nil means unthrottled (the default).
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBackoff overrides the default base/max backoff delays.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) { c.baseDelay, c.maxDelay = base, max }
}

// WithMaxRetries overrides the default retry count per logical call.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRateLimit caps outgoing calls across every endpoint to ratePerSecond, with bursts
// up to burst, so a flaky provider's own rate limit is never tripped in the first place.
func WithRateLimit(ratePerSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst) }
}

// New dials every configured endpoint eagerly, matching the teacher's single persistent
// connection style, and returns a Client that rotates among them.
func New(urls []string, opts ...Option) (*Client, error) {
	if len(urls) == 0 {
		return nil, errs.ErrMissingConfig
	}

	c := &Client{
		baseDelay:  250 * time.Millisecond,
		maxDelay:   10 * time.Second,
		maxRetries: 5,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, u := range urls {
		eth, err := ethclient.Dial(u)
		if err != nil {
			return nil, fmt.Errorf("rpcfailover: dial %s: %w", u, err)
		}
		c.endpoints = append(c.endpoints, &endpoint{url: u, client: eth, healthy: true})
	}
	return c, nil
}

// Current returns the ethclient.Client currently selected for use.
func (c *Client) Current() *ethclient.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoints[c.current].client
}

func (c *Client) switchToNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := c.current
	for i := 1; i <= len(c.endpoints); i++ {
		next := (start + i) % len(c.endpoints)
		if c.endpoints[next].healthy {
			c.current = next
			return
		}
	}
	// every endpoint is unhealthy: reset all and continue round-robin rather than wedge.
	for _, e := range c.endpoints {
		e.healthy = true
		e.consecutiveFailures = 0
	}
	c.current = (start + 1) % len(c.endpoints)
}

// Do executes op against the currently selected endpoint, rotating on failure and
// backing off exponentially on rate-limit errors, per core/network.py's
// _execute_with_retry. Returns errs.ErrAllRPCsFailed once maxRetries attempts have
// failed; a rate-limited attempt backs off and retries the same endpoint instead of
// rotating, so not every endpoint is necessarily tried.
func (c *Client) Do(ctx context.Context, operationName string, op func(ctx context.Context, eth *ethclient.Client) error) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rpcfailover: %s: rate limiter: %w", operationName, err)
			}
		}

		c.mu.Lock()
		ep := c.endpoints[c.current]
		c.mu.Unlock()

		start := time.Now()
		err := op(ctx, ep.client)
		if err == nil {
			ep.recordSuccess(time.Since(start))
			return nil
		}

		lastErr = err
		if isRateLimited(err) {
			delay := backoffDelay(c.baseDelay, c.maxDelay, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		ep.recordFailure()
		c.switchToNext()
	}
	return fmt.Errorf("rpcfailover: %s: %w: %v", operationName, errs.ErrAllRPCsFailed, lastErr)
}

func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max {
		return max
	}
	return delay
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate") || strings.Contains(msg, "too many requests")
}
