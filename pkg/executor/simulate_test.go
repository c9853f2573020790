package executor

import (
	"context"
	"errors"
	"math/big"
	"testing"

	basearb "basearb"
	"basearb/pkg/multicall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

// fakeAggregator stands in for Multicall3.aggregate3's atomic execution: the arbitrage
// call (delta) is applied to a running balance before the third sub-call reads it, the
// same way a real node's batched call would, rather than serving two independent
// stateless balance snapshots.
type fakeAggregator struct {
	startBalance *big.Int
	delta        *big.Int // added to the balance by the arbitrage sub-call; nil means no change
	arbErr       error
}

func (f *fakeAggregator) Aggregate3(ctx context.Context, calls []multicall.Call) ([]multicall.Result, error) {
	if f.arbErr != nil {
		return nil, f.arbErr
	}

	balance := new(big.Int).Set(f.startBalance)
	results := make([]multicall.Result, len(calls))
	for i := range calls {
		if i == 1 { // arbitrage call: mutates balance, returns no data
			if f.delta != nil {
				balance.Add(balance, f.delta)
			}
			results[i] = multicall.Result{Success: true}
			continue
		}
		packed, _ := balanceOfOutputs.Pack(new(big.Int).Set(balance))
		results[i] = multicall.Result{Success: true, ReturnData: packed}
	}
	return results, nil
}

func TestSimulateAcceptsStrictBalanceIncrease(t *testing.T) {
	agg := &fakeAggregator{startBalance: big.NewInt(100), delta: big.NewInt(50)}
	plan := CallPlan{To: common.HexToAddress("0xC")}

	outcome := Simulate(context.Background(), agg, common.HexToAddress("0xC"), common.HexToAddress("0xT"), plan, true)
	assert.Equal(t, basearb.SimOK, outcome.Kind)
}

func TestSimulateRejectsNonIncreasingBalance(t *testing.T) {
	agg := &fakeAggregator{startBalance: big.NewInt(100), delta: big.NewInt(0)}
	plan := CallPlan{To: common.HexToAddress("0xC")}

	outcome := Simulate(context.Background(), agg, common.HexToAddress("0xC"), common.HexToAddress("0xT"), plan, true)
	assert.Equal(t, basearb.SimRevertInsufficient, outcome.Kind)
}

func TestSimulateClassifiesRevertReasons(t *testing.T) {
	agg := &fakeAggregator{startBalance: big.NewInt(100), arbErr: errors.New("execution reverted: NoProfit")}
	plan := CallPlan{To: common.HexToAddress("0xC")}

	outcome := Simulate(context.Background(), agg, common.HexToAddress("0xC"), common.HexToAddress("0xT"), plan, true)
	assert.Equal(t, basearb.SimRevertNoProfit, outcome.Kind)
}

func TestSimulateNonStrictSkipsBalanceCheck(t *testing.T) {
	agg := &fakeAggregator{startBalance: big.NewInt(100), delta: big.NewInt(0)}
	plan := CallPlan{To: common.HexToAddress("0xC")}

	outcome := Simulate(context.Background(), agg, common.HexToAddress("0xC"), common.HexToAddress("0xT"), plan, false)
	assert.Equal(t, basearb.SimOK, outcome.Kind)
}
