// Package multicall wraps the Multicall3 aggregate3 entry point, the single RPC round
// trip the StateUpdater and PoolRegistry rely on. Grounded on the original source's
// core/multicall.py (same canonical address, same aggregate3 ABI shape) and on the
// pack's aerodrome client.go BatchCallContract pattern (batch-size chunking,
// success/data result shape).
package multicall

import (
	"context"
	"fmt"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Address3 is the canonical cross-chain Multicall3 deployment address.
const Address3 = "0xcA11bde05977b3631167028862bE2a173976CA11"

const aggregate3ABIJSON = `[{
	"inputs": [{
		"components": [
			{"name": "target", "type": "address"},
			{"name": "allowFailure", "type": "bool"},
			{"name": "callData", "type": "bytes"}
		],
		"name": "calls",
		"type": "tuple[]"
	}],
	"name": "aggregate3",
	"outputs": [{
		"components": [
			{"name": "success", "type": "bool"},
			{"name": "returnData", "type": "bytes"}
		],
		"name": "returnData",
		"type": "tuple[]"
	}],
	"stateMutability": "payable",
	"type": "function"
}]`

// Call is one element of an aggregate3 request.
type Call struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result is one element of an aggregate3 response.
type Result struct {
	Success    bool
	ReturnData []byte
}

// result3 mirrors the ABI's (bool,bytes)[] tuple for unpacking.
type result3 struct {
	Success    bool
	ReturnData []byte
}

// Client batches contract reads through a single Multicall3.aggregate3 call per cycle.
type Client struct {
	eth     *ethclient.Client
	address common.Address
	abi     abi.ABI
}

// NewClient constructs a multicall client against the given Multicall3 deployment.
func NewClient(eth *ethclient.Client, address common.Address) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregate3ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("multicall: parse abi: %w", err)
	}
	return &Client{eth: eth, address: address, abi: parsed}, nil
}

// Aggregate3 submits every call as a single eth_call against Multicall3.aggregate3,
// returning one Result per input Call in the same order. Individual call failures are
// reported in Result.Success, not as a Go error, when AllowFailure is set; an error is
// returned only if the aggregate call itself could not be made.
func (c *Client) Aggregate3(ctx context.Context, calls []Call) ([]Result, error) {
	type tuple struct {
		Target       common.Address
		AllowFailure bool
		CallData     []byte
	}
	tuples := make([]tuple, len(calls))
	for i, call := range calls {
		tuples[i] = tuple{Target: call.Target, AllowFailure: call.AllowFailure, CallData: call.CallData}
	}

	packed, err := c.abi.Pack("aggregate3", tuples)
	if err != nil {
		return nil, fmt.Errorf("multicall: pack aggregate3: %w", err)
	}

	msg := ethereum.CallMsg{To: &c.address, Data: packed}
	raw, err := c.eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("multicall: aggregate3 call: %w", err)
	}

	outs, err := c.abi.Unpack("aggregate3", raw)
	if err != nil {
		return nil, fmt.Errorf("multicall: unpack aggregate3: %w", err)
	}
	if len(outs) != 1 {
		return nil, fmt.Errorf("multicall: unexpected output arity %d", len(outs))
	}

	decoded, ok := abi.ConvertType(outs[0], new([]result3)).(*[]result3)
	if !ok {
		return nil, fmt.Errorf("multicall: unexpected output type %T", outs[0])
	}

	results := make([]Result, len(*decoded))
	for i, d := range *decoded {
		results[i] = Result{Success: d.Success, ReturnData: d.ReturnData}
	}
	return results, nil
}
