package poolregistry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortTokensOrdersAscending(t *testing.T) {
	low := common.HexToAddress("0x0000000000000000000000000000000000000001")
	high := common.HexToAddress("0x0000000000000000000000000000000000000002")

	t0, t1, d0, d1 := SortTokens(high, low, 18, 6)
	assert.Equal(t, low, t0)
	assert.Equal(t, high, t1)
	assert.Equal(t, uint8(6), d0)
	assert.Equal(t, uint8(18), d1)

	t0, t1, d0, d1 = SortTokens(low, high, 6, 18)
	assert.Equal(t, low, t0)
	assert.Equal(t, high, t1)
	assert.Equal(t, uint8(6), d0)
	assert.Equal(t, uint8(18), d1)
}

func TestDerivePoolAddressIsDeterministic(t *testing.T) {
	factory := common.HexToAddress("0x33128a8fC17869897dcE68Ed026d694621f6FDfD")
	initCodeHash := common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b955")
	weth := common.HexToAddress("0x4200000000000000000000000000000000000006")
	usdc := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")

	token0, token1, _, _ := SortTokens(weth, usdc, 18, 6)

	addr1, err := DerivePoolAddress(factory, initCodeHash, token0, token1, 500)
	require.NoError(t, err)
	addr2, err := DerivePoolAddress(factory, initCodeHash, token0, token1, 500)
	require.NoError(t, err)
	assert.Equal(t, addr1, addr2)

	addr3, err := DerivePoolAddress(factory, initCodeHash, token0, token1, 3000)
	require.NoError(t, err)
	assert.NotEqual(t, addr1, addr3, "different fee tiers must derive different pool addresses")
}

func TestNewRegistryStartsEmpty(t *testing.T) {
	r := New(common.Address{}, common.Hash{})
	assert.Empty(t, r.Pools())
	_, ok := r.Lookup(common.HexToAddress("0x1"))
	assert.False(t, ok)
	assert.Empty(t, r.BatchPlan())
}
