package executor

import (
	"context"
	"math/big"
	"strings"

	basearb "basearb"
	"basearb/pkg/multicall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Aggregator is the narrow slice of *multicall.Client the pre-flight check needs: it
// batches the pre-balance read, the arbitrage call, and the post-balance read into one
// Multicall3.aggregate3 request. Multicall3 runs its sub-calls sequentially within a
// single eth_call's EVM execution, so the post-balance read observes the arbitrage call's
// own state changes — three independent top-level eth_call round trips against the same
// block cannot do this, since eth_call is stateless between separate calls.
type Aggregator interface {
	Aggregate3(ctx context.Context, calls []multicall.Call) ([]multicall.Result, error)
}

var balanceOfArgs = abi.Arguments{{Type: mustType("address")}}
var balanceOfOutputs = abi.Arguments{{Type: mustType("uint256")}}
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)

func encodeBalanceOf(holder common.Address) ([]byte, error) {
	packedArgs, err := balanceOfArgs.Pack(holder)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, balanceOfSelector...), packedArgs...), nil
}

func decodeBalanceOf(data []byte) (*big.Int, error) {
	unpacked, err := balanceOfOutputs.Unpack(data)
	if err != nil || len(unpacked) == 0 {
		return nil, err
	}
	return unpacked[0].(*big.Int), nil
}

// Simulate performs the Executor's pre-flight check: the arbitrage call must not revert,
// and — when strict is true — the counterparty contract's balance of the borrowed token
// must strictly increase across the call. Failed simulation burns no gas and consumes no
// nonce — the single most important cost-saving check in the system. In non-strict mode
// only the revert check applies: both balanceOf reads still run in the batch, but their
// results are not compared.
func Simulate(ctx context.Context, agg Aggregator, contract, borrowToken common.Address, plan CallPlan, strict bool) basearb.SimOutcome {
	balanceOfContract, err := encodeBalanceOf(contract)
	if err != nil {
		return basearb.SimOutcome{Kind: basearb.SimCallError, Detail: "encode balanceOf", Err: err}
	}

	calls := []multicall.Call{
		{Target: borrowToken, CallData: balanceOfContract},
		{Target: plan.To, CallData: plan.Data},
		{Target: borrowToken, CallData: balanceOfContract},
	}

	results, err := agg.Aggregate3(ctx, calls)
	if err != nil {
		return basearb.SimOutcome{Kind: classifyRevert(err), Detail: err.Error(), Err: err}
	}
	if len(results) != len(calls) {
		return basearb.SimOutcome{Kind: basearb.SimCallError, Detail: "unexpected aggregate3 result arity"}
	}

	if !strict {
		return basearb.SimOutcome{Kind: basearb.SimOK}
	}

	before, err := decodeBalanceOf(results[0].ReturnData)
	if err != nil {
		return basearb.SimOutcome{Kind: basearb.SimCallError, Detail: "pre-balance decode failed", Err: err}
	}
	after, err := decodeBalanceOf(results[2].ReturnData)
	if err != nil {
		return basearb.SimOutcome{Kind: basearb.SimCallError, Detail: "post-balance decode failed", Err: err}
	}

	if after.Cmp(before) <= 0 {
		return basearb.SimOutcome{Kind: basearb.SimRevertInsufficient, Detail: "balance did not strictly increase"}
	}

	return basearb.SimOutcome{Kind: basearb.SimOK}
}

// classifyRevert inspects a simulation error's message for known revert reasons. This is
// diagnostic classification only — it never changes whether the opportunity is rejected.
func classifyRevert(err error) basearb.SimOutcomeKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no profit") || strings.Contains(msg, "noprofit"):
		return basearb.SimRevertNoProfit
	case strings.Contains(msg, "insufficient"):
		return basearb.SimRevertInsufficient
	default:
		return basearb.SimRevertOther
	}
}
