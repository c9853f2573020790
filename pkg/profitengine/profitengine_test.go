package profitengine

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	basearb "basearb"
)

func poolWithPrice(t *testing.T, sqrtPriceX96 string, liquidity int64, fee uint32) *basearb.Pool {
	t.Helper()
	sqrtP, ok := new(big.Int).SetString(sqrtPriceX96, 10)
	require.True(t, ok)

	p := basearb.NewPool(
		common.HexToAddress("0xP"),
		common.HexToAddress("0x1"),
		common.HexToAddress("0x2"),
		fee, 18, 18,
	)
	p.SetState(basearb.PoolSnapshot{
		SqrtPriceX96: sqrtP,
		Tick:         0,
		Liquidity:    big.NewInt(liquidity),
		UpdatedAt:    time.Now(),
	})
	return p
}

func TestScanSkipsSinglePoolGroups(t *testing.T) {
	e := New(DefaultConfig())
	pool := poolWithPrice(t, "79228162514264337593543950336", 1_000_000_000_000, 500)
	opps := e.Scan([]*basearb.Pool{pool})
	assert.Empty(t, opps)
}

func TestScanSkipsUninitialisedPools(t *testing.T) {
	e := New(DefaultConfig())
	p1 := basearb.NewPool(common.HexToAddress("0xA"), common.HexToAddress("0x1"), common.HexToAddress("0x2"), 500, 18, 18)
	p2 := basearb.NewPool(common.HexToAddress("0xB"), common.HexToAddress("0x1"), common.HexToAddress("0x2"), 500, 18, 18)
	opps := e.Scan([]*basearb.Pool{p1, p2})
	assert.Empty(t, opps)
}

func TestScanRejectsPairBelowSpreadThreshold(t *testing.T) {
	e := New(DefaultConfig())
	// Identical price on both pools: spread is zero, must be rejected by the prefilter.
	a := poolWithPrice(t, "79228162514264337593543950336", 1_000_000_000_000_000, 500)
	b := poolWithPrice(t, "79228162514264337593543950336", 1_000_000_000_000_000, 500)
	opps := e.Scan([]*basearb.Pool{a, b})
	assert.Empty(t, opps)
}

func TestScanFindsOpportunityAcrossDivergentPools(t *testing.T) {
	cfg := DefaultConfig()
	cfg.XMin = big.NewInt(1e12)
	e := New(cfg)

	// sqrtPriceX96 corresponding to price 1.0 and to a meaningfully higher price, with
	// ample liquidity so the 10% bound doesn't starve the search.
	low := poolWithPrice(t, "79228162514264337593543950336", 1_000_000_000_000_000_000, 500)
	high := poolWithPrice(t, "85000000000000000000000000000", 1_000_000_000_000_000_000, 500)

	opps := e.Scan([]*basearb.Pool{low, high})
	require.NotEmpty(t, opps)
	assert.True(t, opps[0].NetProfitEstimate.Sign() > 0)
	for i := 1; i < len(opps); i++ {
		assert.True(t, opps[i-1].NetProfitEstimate.Cmp(opps[i].NetProfitEstimate) >= 0)
	}
}
