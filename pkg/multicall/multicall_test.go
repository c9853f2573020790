package multicall

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress3IsCanonical(t *testing.T) {
	// The Multicall3 address is identical across every EVM chain because it is
	// deployed via a chain-agnostic deterministic deployer.
	assert.Equal(t, common.HexToAddress(Address3), common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"))
}

func TestNewClientParsesABI(t *testing.T) {
	c, err := NewClient(nil, common.HexToAddress(Address3))
	require.NoError(t, err)
	require.NotNil(t, c)
	_, exists := c.abi.Methods["aggregate3"]
	assert.True(t, exists)
}
