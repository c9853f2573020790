package l1cost

import (
	"context"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	responses map[string]*big.Int
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	value := f.responses[string(msg.Data)]
	return uint256Outputs.Pack(value)
}

func TestFetchParamsReadsAllThreeValues(t *testing.T) {
	caller := &fakeCaller{responses: map[string]*big.Int{
		string(l1BaseFeeSelector): big.NewInt(30_000_000_000),
		string(overheadSelector):  big.NewInt(188),
		string(scalarSelector):    big.NewInt(684_000),
	}}

	l1BaseFee, overhead, scalar, err := FetchParams(context.Background(), caller)
	require.NoError(t, err)
	assert.Equal(t, uint64(30_000_000_000), l1BaseFee.Uint64())
	assert.Equal(t, uint64(188), overhead.Uint64())
	assert.Equal(t, uint64(684_000), scalar.Uint64())
}
