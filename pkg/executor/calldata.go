package executor

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// executorABIJSON is the counterparty flash-executor contract's ABI fragment this engine
// calls. Ownership / access-control / withdrawal functions exist on the real contract but
// play no role in the execution path, so only startArbitrage is declared here.
const executorABIJSON = `[{
	"inputs": [
		{"name": "pool", "type": "address"},
		{"name": "token", "type": "address"},
		{"name": "amount", "type": "uint256"},
		{"name": "swapData", "type": "bytes"}
	],
	"name": "startArbitrage",
	"outputs": [],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

var executorABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(executorABIJSON))
	if err != nil {
		panic(fmt.Sprintf("executor: parse embedded abi: %v", err))
	}
	executorABI = parsed
}

var swapDataArgs = abi.Arguments{
	{Type: mustType("address")},
	{Type: mustType("uint24")},
	{Type: mustType("uint256")},
}

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("executor: abi type %q: %v", name, err))
	}
	return t
}

// CallPlan is one pre-flight plan: the target address and calldata to simulate, sign, and
// broadcast, plus the access list attached to reduce cold-SLOAD gas.
type CallPlan struct {
	To         common.Address
	Data       []byte
	AccessList types.AccessList
}

// BuildCalldata ABI-encodes startArbitrage(pool, borrowToken, amount, swapData), where
// swapData is itself the ABI encoding of (targetToken, targetFee, minAmountOut).
func BuildCalldata(pool, borrowToken common.Address, amount *big.Int, targetToken common.Address, targetFee uint32, minAmountOut *big.Int) ([]byte, error) {
	swapData, err := swapDataArgs.Pack(targetToken, big.NewInt(int64(targetFee)), minAmountOut)
	if err != nil {
		return nil, fmt.Errorf("executor: pack swapData: %w", err)
	}

	packed, err := executorABI.Pack("startArbitrage", pool, borrowToken, amount, swapData)
	if err != nil {
		return nil, fmt.Errorf("executor: pack startArbitrage: %w", err)
	}
	return packed, nil
}

// BuildAccessList enumerates the five contracts guaranteed to be touched by the
// transaction (flash pool, token0, token1, router, the own executor contract), moving
// their storage slots from cold to warm ahead of execution.
func BuildAccessList(pool, token0, token1, router, own common.Address) types.AccessList {
	addrs := []common.Address{pool, token0, token1, router, own}
	list := make(types.AccessList, 0, len(addrs))
	for _, a := range addrs {
		list = append(list, types.AccessTuple{Address: a})
	}
	return list
}
