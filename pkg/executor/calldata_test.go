package executor

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCalldataRoundTripsThroughABI(t *testing.T) {
	pool := common.HexToAddress("0x1")
	token := common.HexToAddress("0x2")
	amount := big.NewInt(1_000_000)
	targetToken := common.HexToAddress("0x3")
	minOut := big.NewInt(999)

	data, err := BuildCalldata(pool, token, amount, targetToken, 3000, minOut)
	require.NoError(t, err)
	require.True(t, len(data) > 4)

	method, err := executorABI.MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "startArbitrage", method.Name)

	args := make(map[string]interface{})
	require.NoError(t, method.Inputs.UnpackIntoMap(args, data[4:]))
	assert.Equal(t, pool, args["pool"])
	assert.Equal(t, token, args["token"])
	assert.Equal(t, amount, args["amount"])

	swapData := args["swapData"].([]byte)
	decoded, err := swapDataArgs.Unpack(swapData)
	require.NoError(t, err)
	assert.Equal(t, targetToken, decoded[0])
	assert.Equal(t, big.NewInt(3000), decoded[1])
	assert.Equal(t, minOut, decoded[2])
}

func TestBuildAccessListEnumeratesFiveContracts(t *testing.T) {
	list := BuildAccessList(
		common.HexToAddress("0x1"),
		common.HexToAddress("0x2"),
		common.HexToAddress("0x3"),
		common.HexToAddress("0x4"),
		common.HexToAddress("0x5"),
	)
	assert.Len(t, list, 5)
	assert.Equal(t, common.HexToAddress("0x1"), list[0].Address)
	assert.Equal(t, common.HexToAddress("0x5"), list[4].Address)
}
