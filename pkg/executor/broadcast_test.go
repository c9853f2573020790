package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublic struct {
	called bool
	err    error
}

func (f *fakePublic) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.called = true
	return f.err
}

type fakePrivate struct {
	err    error
	called bool
}

func (f *fakePrivate) SendPrivateTransaction(ctx context.Context, signed *types.Transaction, maxBlockNumber uint64) error {
	f.called = true
	return f.err
}

func testTx() *types.Transaction {
	return types.NewTx(&types.LegacyTx{Nonce: 0})
}

func TestBroadcastPublicModeUsesPublicSender(t *testing.T) {
	pub := &fakePublic{}
	b := NewBroadcaster(BroadcastPublic, pub, nil, nil, nil)

	require.NoError(t, b.Send(context.Background(), testTx()))
	assert.True(t, pub.called)
}

func TestBroadcastPrivateModeFallsBackToPublicOnFailure(t *testing.T) {
	priv := &fakePrivate{err: errors.New("rejected")}
	pub := &fakePublic{}
	b := NewBroadcaster(BroadcastPrivate, pub, []PrivateSender{priv}, nil, nil)

	require.NoError(t, b.Send(context.Background(), testTx()))
	assert.True(t, priv.called)
	assert.True(t, pub.called)
}

func TestBroadcastPrivateModeSkipsPublicOnSuccess(t *testing.T) {
	priv := &fakePrivate{}
	pub := &fakePublic{}
	b := NewBroadcaster(BroadcastPrivate, pub, []PrivateSender{priv}, nil, nil)

	require.NoError(t, b.Send(context.Background(), testTx()))
	assert.True(t, priv.called)
	assert.False(t, pub.called)
}

type fakeBundleSim struct {
	coinbaseDiff int64
	reverted     bool
	err          error
}

func (f *fakeBundleSim) SimulateBundle(ctx context.Context, signed *types.Transaction) (int64, bool, error) {
	return f.coinbaseDiff, f.reverted, f.err
}

func TestBroadcastBundleModeRejectsUnprofitableSimulation(t *testing.T) {
	priv := &fakePrivate{}
	pub := &fakePublic{}
	sim := &fakeBundleSim{coinbaseDiff: -1}
	b := NewBroadcaster(BroadcastBundle, pub, []PrivateSender{priv}, sim, nil)

	err := b.Send(context.Background(), testTx())
	assert.Error(t, err)
	assert.False(t, priv.called)
}

func TestBroadcastBundleModeSendsPrivatelyWhenProfitable(t *testing.T) {
	priv := &fakePrivate{}
	pub := &fakePublic{}
	sim := &fakeBundleSim{coinbaseDiff: 1000}
	b := NewBroadcaster(BroadcastBundle, pub, []PrivateSender{priv}, sim, nil)

	require.NoError(t, b.Send(context.Background(), testTx()))
	assert.True(t, priv.called)
}
