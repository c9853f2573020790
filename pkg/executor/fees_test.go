package executor

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	basearb "basearb"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

type fakeFeeSource struct {
	baseFee *big.Int
	tip     *big.Int
	err     error
}

func (f *fakeFeeSource) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeFeeSource) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tip, nil
}

func TestBuildFeesScalesPriorityFeeBySniperMultiplier(t *testing.T) {
	src := &fakeFeeSource{baseFee: big.NewInt(1_000_000_000), tip: big.NewInt(100_000_000)} // 1 gwei base, 0.1 gwei tip
	cache := basearb.NewGasCache(time.Minute)
	cfg := DefaultConfig()

	fees := BuildFees(context.Background(), src, cache, cfg)

	assert.Equal(t, big.NewInt(200_000_000), fees.PriorityFee) // 2x multiplier
	assert.False(t, fees.Legacy)
}

func TestBuildFeesCapsMaxFeeAndScalesPriorityDown(t *testing.T) {
	src := &fakeFeeSource{baseFee: big.NewInt(20_000_000_000), tip: big.NewInt(1_000_000_000)} // 20 gwei base
	cache := basearb.NewGasCache(time.Minute)
	cfg := DefaultConfig()

	fees := BuildFees(context.Background(), src, cache, cfg)

	assert.Equal(t, 0, fees.MaxFeePerGas.Cmp(cfg.MaxFeeCapWei))
	assert.True(t, fees.PriorityFee.Cmp(cfg.MaxFeeCapWei) < 0)
}

func TestBuildFeesFallsBackOnNetworkFailure(t *testing.T) {
	src := &fakeFeeSource{err: errors.New("rpc down")}
	cache := basearb.NewGasCache(time.Minute)
	cfg := DefaultConfig()

	fees := BuildFees(context.Background(), src, cache, cfg)

	assert.True(t, fees.Legacy)
	assert.Equal(t, fallbackMaxFee, fees.MaxFeePerGas)
	assert.Equal(t, fallbackPriorityFee, fees.PriorityFee)
}

func TestBumpFeesIncreasesByPercent(t *testing.T) {
	fees := Fees{MaxFeePerGas: big.NewInt(1_000_000_000), PriorityFee: big.NewInt(100_000_000)}
	bumped, capped := bumpFees(fees, 15, big.NewInt(50_000_000_000))

	assert.False(t, capped)
	assert.Equal(t, big.NewInt(1_150_000_000), bumped.MaxFeePerGas)
}

func TestBumpFeesReportsCapHit(t *testing.T) {
	fees := Fees{MaxFeePerGas: big.NewInt(49_000_000_000), PriorityFee: big.NewInt(1_000_000_000)}
	_, capped := bumpFees(fees, 15, big.NewInt(50_000_000_000))

	assert.True(t, capped)
}
