package rpcfailover

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointHealthDegradesAfterThreeFailures(t *testing.T) {
	e := &endpoint{url: "http://a", healthy: true}
	e.recordFailure()
	assert.True(t, e.healthy)
	e.recordFailure()
	assert.True(t, e.healthy)
	e.recordFailure()
	assert.False(t, e.healthy)
}

func TestEndpointHealthRecoversOnSuccess(t *testing.T) {
	e := &endpoint{url: "http://a"}
	e.recordFailure()
	e.recordFailure()
	e.recordFailure()
	assert.False(t, e.healthy)
	e.recordSuccess(10 * time.Millisecond)
	assert.True(t, e.healthy)
	assert.Equal(t, 0, e.consecutiveFailures)
}

func TestBackoffDelayCapsAtMax(t *testing.T) {
	d := backoffDelay(100*time.Millisecond, time.Second, 10)
	assert.Equal(t, time.Second, d)
}

func TestBackoffDelayGrowsExponentially(t *testing.T) {
	d0 := backoffDelay(100*time.Millisecond, 10*time.Second, 0)
	d1 := backoffDelay(100*time.Millisecond, 10*time.Second, 1)
	d2 := backoffDelay(100*time.Millisecond, 10*time.Second, 2)
	assert.Equal(t, 100*time.Millisecond, d0)
	assert.Equal(t, 200*time.Millisecond, d1)
	assert.Equal(t, 400*time.Millisecond, d2)
}

func TestIsRateLimitedDetectsVariants(t *testing.T) {
	assert.True(t, isRateLimited(errTest("429 Too Many Requests")))
	assert.True(t, isRateLimited(errTest("rate limited by provider")))
	assert.False(t, isRateLimited(errTest("connection refused")))
	assert.False(t, isRateLimited(nil))
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestNewRejectsEmptyEndpointList(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestWithRateLimitInstallsLimiterUsedByDo(t *testing.T) {
	c := &Client{
		endpoints:  []*endpoint{{url: "http://a", healthy: true}},
		baseDelay:  time.Millisecond,
		maxDelay:   time.Millisecond,
		maxRetries: 3,
	}
	WithRateLimit(1000, 1)(c)
	require.NotNil(t, c.limiter)

	calls := 0
	err := c.Do(context.Background(), "noop", func(ctx context.Context, eth *ethclient.Client) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
