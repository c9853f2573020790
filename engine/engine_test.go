package engine

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	basearb "basearb"
	"basearb/pkg/safety"
	"basearb/pkg/stateupdater"
)

var (
	borrowToken = common.HexToAddress("0x2222222222222222222222222222222222222222")
	otherToken  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fakeRegistry struct{ pools []*basearb.Pool }

func (f *fakeRegistry) Pools() []*basearb.Pool { return f.pools }

type fakeUpdater struct{ err error }

func (f *fakeUpdater) Run(ctx context.Context) (stateupdater.Result, error) {
	return stateupdater.Result{}, f.err
}

type fakeProfitScanner struct{ raws []basearb.RawOpportunity }

func (f *fakeProfitScanner) Scan(pools []*basearb.Pool) []basearb.RawOpportunity { return f.raws }

type fakeVerifier struct {
	verified basearb.VerifiedOpportunity
	err      error
}

func (f *fakeVerifier) Verify(ctx context.Context, raw basearb.RawOpportunity, costs safety.CostInputs, calldataLen int) (basearb.VerifiedOpportunity, error) {
	return f.verified, f.err
}

type fakeExecutor struct {
	attempt *basearb.SignedAttempt
	err     error
}

func (f *fakeExecutor) Execute(ctx context.Context, verified basearb.VerifiedOpportunity) (*basearb.SignedAttempt, error) {
	return f.attempt, f.err
}

type fakeRecorder struct {
	recorded []basearb.ExecutionAttempt
	count    int64
}

func (f *fakeRecorder) RecordAttempt(attempt basearb.ExecutionAttempt) error {
	f.recorded = append(f.recorded, attempt)
	return nil
}

func (f *fakeRecorder) CountAttemptsSince(since time.Time) (int64, error) { return f.count, nil }

func testRaw() basearb.RawOpportunity {
	poolLow := basearb.NewPool(common.HexToAddress("0xaaa1"), borrowToken, otherToken, 500, 18, 18)
	poolHigh := basearb.NewPool(common.HexToAddress("0xaaa2"), borrowToken, otherToken, 3000, 18, 18)
	return basearb.RawOpportunity{
		PoolLow:           poolLow,
		PoolHigh:          poolHigh,
		BorrowToken:       borrowToken,
		Direction:         basearb.ZeroForOne,
		AmountIn:          big.NewInt(1_000_000),
		NetProfitEstimate: big.NewInt(5_000),
		DirectionLabel:    "low->high",
	}
}

func TestTickExecutesConfirmedOpportunity(t *testing.T) {
	recorder := &fakeRecorder{}
	attempt := &basearb.SignedAttempt{Status: basearb.StatusConfirmed, GasUsed: 210_000, ActualProfit: big.NewInt(4_500)}

	e := New(
		DefaultConfig(),
		&fakeRegistry{pools: []*basearb.Pool{}},
		&fakeUpdater{},
		&fakeProfitScanner{raws: []basearb.RawOpportunity{testRaw()}},
		&fakeVerifier{},
		&fakeExecutor{attempt: attempt},
		recorder,
		func(ctx context.Context) (safety.CostInputs, error) { return safety.CostInputs{}, nil },
		zap.NewNop(),
		nil,
		0,
	)

	require.NoError(t, e.tick(context.Background()))
	require.Len(t, recorder.recorded, 1)
	assert.Equal(t, basearb.StatusConfirmed, recorder.recorded[0].Status)
	assert.True(t, e.breaker.Allowed(otherToken))
}

func TestTickAppliesCooldownOnExecutionFailure(t *testing.T) {
	e := New(
		DefaultConfig(),
		&fakeRegistry{},
		&fakeUpdater{},
		&fakeProfitScanner{raws: []basearb.RawOpportunity{testRaw()}},
		&fakeVerifier{err: assertErr{}},
		&fakeExecutor{},
		&fakeRecorder{},
		func(ctx context.Context) (safety.CostInputs, error) { return safety.CostInputs{}, nil },
		zap.NewNop(),
		nil,
		0,
	)

	require.NoError(t, e.tick(context.Background()))
	assert.False(t, e.breaker.Allowed(otherToken))
}

func TestTickSkipsWhenHourlyBudgetExhausted(t *testing.T) {
	recorder := &fakeRecorder{count: 100}
	e := New(
		DefaultConfig(),
		&fakeRegistry{},
		&fakeUpdater{},
		&fakeProfitScanner{raws: []basearb.RawOpportunity{testRaw()}},
		&fakeVerifier{},
		&fakeExecutor{},
		recorder,
		func(ctx context.Context) (safety.CostInputs, error) { return safety.CostInputs{}, nil },
		zap.NewNop(),
		nil,
		10,
	)

	require.NoError(t, e.tick(context.Background()))
	assert.Empty(t, recorder.recorded)
}

type assertErr struct{}

func (assertErr) Error() string { return "verification failed" }
