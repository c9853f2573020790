// Package stateupdater implements the StateUpdater component (SPEC_FULL.md §4.2): one
// aggregate3 round trip per scan cycle that refreshes every pool's slot0/liquidity and
// writes the result back through Pool.SetState. Grounded on the original source's
// core/multicall.py batching strategy and the pack's aerodrome client.go
// BatchCallContract (one round trip per refresh, skip-cycle-on-failure semantics).
package stateupdater

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"

	basearb "basearb"
	"basearb/errs"
	"basearb/internal/ammmath"
	"basearb/pkg/multicall"
)

var (
	uint160Type, _ = abi.NewType("uint160", "", nil)
	int24Type, _   = abi.NewType("int24", "", nil)
	uint16Type, _  = abi.NewType("uint16", "", nil)
	uint8Type, _   = abi.NewType("uint8", "", nil)
	boolType, _    = abi.NewType("bool", "", nil)
	uint128Type, _ = abi.NewType("uint128", "", nil)

	slot0Outputs = abi.Arguments{
		{Type: uint160Type}, // sqrtPriceX96
		{Type: int24Type},   // tick
		{Type: uint16Type},  // observationIndex
		{Type: uint16Type},  // observationCardinality
		{Type: uint16Type},  // observationCardinalityNext
		{Type: uint8Type},   // feeProtocol
		{Type: boolType},    // unlocked
	}
	liquidityOutputs = abi.Arguments{
		{Type: uint128Type},
	}
)

// Registry is the subset of pkg/poolregistry.Registry the updater depends on.
type Registry interface {
	Pools() []*basearb.Pool
	BatchPlan() []multicall.Call
}

// Aggregator is the subset of pkg/multicall.Client the updater depends on, narrowed to
// an interface so tests can substitute a fake RPC response.
type Aggregator interface {
	Aggregate3(ctx context.Context, calls []multicall.Call) ([]multicall.Result, error)
}

// Updater refreshes every registered pool's state once per Run call.
type Updater struct {
	registry Registry
	mc       Aggregator
}

// New builds an Updater bound to a registry and a multicall aggregator.
func New(registry Registry, mc Aggregator) *Updater {
	return &Updater{registry: registry, mc: mc}
}

// Result summarizes one refresh cycle.
type Result struct {
	Updated  int
	Skipped  int
	Duration time.Duration
}

// Run executes exactly one aggregate3 round trip covering every pool's (slot0,
// liquidity) pair and writes surviving results back via Pool.SetState. Per
// SPEC_FULL.md §4.2, if the aggregate call itself fails the entire cycle is skipped —
// pools simply keep their prior snapshot rather than being partially updated.
func (u *Updater) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	pools := u.registry.Pools()
	calls := u.registry.BatchPlan()
	if len(pools)*2 != len(calls) {
		return Result{}, fmt.Errorf("stateupdater: batch plan has %d calls for %d pools", len(calls), len(pools))
	}

	results, err := u.mc.Aggregate3(ctx, calls)
	if err != nil {
		return Result{Duration: time.Since(start)}, fmt.Errorf("stateupdater: cycle skipped: %w: %w", errs.ErrAggregateCallFailed, err)
	}

	var updated, skipped int
	for i, pool := range pools {
		slot0Res := results[2*i]
		liqRes := results[2*i+1]
		if !slot0Res.Success || !liqRes.Success {
			skipped++
			continue
		}

		sqrtPriceX96, tick, err := decodeSlot0(slot0Res.ReturnData)
		if err != nil {
			skipped++
			continue
		}
		liquidity, err := decodeLiquidity(liqRes.ReturnData)
		if err != nil {
			skipped++
			continue
		}

		pool.SetState(basearb.PoolSnapshot{
			SqrtPriceX96: sqrtPriceX96,
			Tick:         tick,
			Liquidity:    liquidity,
			UpdatedAt:    start,
		})
		updated++
	}

	return Result{Updated: updated, Skipped: skipped, Duration: time.Since(start)}, nil
}

func decodeSlot0(data []byte) (sqrtPriceX96 *big.Int, tick int32, err error) {
	vals, err := slot0Outputs.Unpack(data)
	if err != nil {
		return nil, 0, fmt.Errorf("stateupdater: unpack slot0: %w", err)
	}
	if len(vals) < 2 {
		return nil, 0, fmt.Errorf("stateupdater: slot0 arity %d", len(vals))
	}
	price, ok := vals[0].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("stateupdater: slot0 sqrtPriceX96 type %T", vals[0])
	}
	tickBig, ok := vals[1].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("stateupdater: slot0 tick type %T", vals[1])
	}
	return price, int32(tickBig.Int64()), nil
}

func decodeLiquidity(data []byte) (*big.Int, error) {
	vals, err := liquidityOutputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("stateupdater: unpack liquidity: %w", err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("stateupdater: liquidity arity %d", len(vals))
	}
	liq, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("stateupdater: liquidity type %T", vals[0])
	}
	return liq, nil
}

// Price reports the current token0-per-token1 price of a pool, per SPEC_FULL.md §4.2's
// note that price derivation lives alongside the decode step. It is a thin pass-through
// to ammmath so callers need only import this package.
func Price(snapshot basearb.PoolSnapshot, dec0, dec1 uint8) float64 {
	return ammmath.PriceToken0PerToken1(snapshot.SqrtPriceX96, dec0, dec1)
}
