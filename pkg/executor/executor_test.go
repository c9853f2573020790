package executor

import (
	"context"
	"math/big"
	"testing"
	"time"

	basearb "basearb"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// well-known Hardhat default-account test key; never used outside tests.
const testPrivateKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type fakeNonceSource struct{ n uint64 }

func (f *fakeNonceSource) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.n, nil
}

type fakeReceiptFetcher struct {
	confirmedHash common.Hash
	receipt       *types.Receipt
}

func (f *fakeReceiptFetcher) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if txHash == f.confirmedHash {
		return f.receipt, nil
	}
	return nil, ethereumNotFound{}
}

type ethereumNotFound struct{}

func (ethereumNotFound) Error() string { return "not found" }

func testOpportunity() basearb.VerifiedOpportunity {
	poolLow := basearb.NewPool(common.HexToAddress("0xA"), common.HexToAddress("0x1"), common.HexToAddress("0x2"), 500, 18, 6)
	poolHigh := basearb.NewPool(common.HexToAddress("0xB"), common.HexToAddress("0x1"), common.HexToAddress("0x2"), 3000, 18, 6)
	return basearb.VerifiedOpportunity{
		Raw: basearb.RawOpportunity{
			PoolLow:     poolLow,
			PoolHigh:    poolHigh,
			BorrowToken: common.HexToAddress("0x1"),
			AmountIn:    big.NewInt(1_000_000),
		},
		MinOut2: big.NewInt(990_000),
	}
}

func TestExecuteSucceedsOnFirstBroadcast(t *testing.T) {
	key, err := crypto.HexToECDSA(testPrivateKeyHex)
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	feeSrc := &fakeFeeSource{err: errNoNetwork{}} // forces fallback fees, deterministic
	nonceSrc := &fakeNonceSource{n: 7}
	agg := &fakeAggregator{startBalance: big.NewInt(100), delta: big.NewInt(100)}
	pub := &fakePublic{}
	broadcaster := NewBroadcaster(BroadcastPublic, pub, nil, nil, nil)
	receipts := &fakeReceiptFetcher{} // filled in below once the tx hash is known

	gasCache := basearb.NewGasCache(time.Minute)
	nonceCache := basearb.NewNonceCache(time.Minute)

	cfg := DefaultConfig()
	cfg.InitialWait = time.Millisecond
	cfg.SpeedupInterval = time.Millisecond

	contracts := Contracts{
		Router:  common.HexToAddress("0xDEAD"),
		Own:     common.HexToAddress("0xC"),
		ChainID: big.NewInt(8453),
	}

	exec := New(cfg, feeSrc, nonceSrc, agg, broadcaster, receipts, gasCache, nonceCache, key, from, contracts)

	verified := testOpportunity()
	plan, err := exec.buildPlan(verified)
	require.NoError(t, err)
	fees := BuildFees(context.Background(), feeSrc, gasCache, cfg)
	signed, err := exec.signTx(7, plan, fees)
	require.NoError(t, err)
	receipts.confirmedHash = signed.Hash()
	receipts.receipt = &types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: 123456}

	attempt, err := exec.Execute(context.Background(), verified)
	require.NoError(t, err)
	require.Equal(t, basearb.StatusConfirmed, attempt.Status)
	require.Equal(t, uint64(123456), attempt.GasUsed)
	require.True(t, pub.called)
}

type errNoNetwork struct{}

func (errNoNetwork) Error() string { return "no network in test" }
