package l1cost

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Caller is the narrow slice of *ethclient.Client needed to read the GasPriceOracle
// predeploy, so tests can substitute a fake RPC response.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var uint256Outputs = abi.Arguments{{Type: mustUint256Type()}}

func mustUint256Type() abi.Type {
	t, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic("l1cost: invalid uint256 type: " + err.Error())
	}
	return t
}

var (
	l1BaseFeeSelector = common.FromHex("0x519b4bd3") // l1BaseFee()
	overheadSelector  = common.FromHex("0x0c18c162") // overhead()
	scalarSelector    = common.FromHex("0xf45e65d8") // scalar()
)

// FetchParams reads l1BaseFee/overhead/scalar from the GasPriceOracle predeploy in a
// single round trip per value. tokenRatio is always nil (defaults to 1 in L1Cost):
// standard OP-Stack chains, Base included, do not use a custom fee token.
func FetchParams(ctx context.Context, caller Caller) (l1BaseFee, overhead, scalar *uint256.Int, err error) {
	oracle := common.HexToAddress(GasPriceOracleAddr)

	l1BaseFee, err = callUint256(ctx, caller, oracle, l1BaseFeeSelector)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("l1cost: l1BaseFee: %w", err)
	}
	overhead, err = callUint256(ctx, caller, oracle, overheadSelector)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("l1cost: overhead: %w", err)
	}
	scalar, err = callUint256(ctx, caller, oracle, scalarSelector)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("l1cost: scalar: %w", err)
	}
	return l1BaseFee, overhead, scalar, nil
}

func callUint256(ctx context.Context, caller Caller, to common.Address, selector []byte) (*uint256.Int, error) {
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: selector}, nil)
	if err != nil {
		return nil, err
	}
	unpacked, err := uint256Outputs.Unpack(out)
	if err != nil || len(unpacked) == 0 {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	value, overflow := uint256.FromBig(unpacked[0].(*big.Int))
	if overflow {
		return nil, fmt.Errorf("value overflows uint256")
	}
	return value, nil
}
