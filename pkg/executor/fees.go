package executor

import (
	"context"
	"fmt"
	"math/big"

	basearb "basearb"

	"github.com/ethereum/go-ethereum/core/types"
)

// FeeSource is the narrow slice of *ethclient.Client the fee builder needs.
type FeeSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

var (
	gwei = big.NewInt(1_000_000_000)

	// fallbackPriorityFee and fallbackMaxFee are the hard-coded safe defaults used when
	// the network's fee environment cannot be read.
	fallbackPriorityFee = new(big.Int).Div(gwei, big.NewInt(100)) // 0.01 gwei
	fallbackMaxFee      = new(big.Int).Mul(big.NewInt(2), gwei)   // 2 gwei
)

// Fees is a signer-ready {max_fee, priority_fee} pair, always non-legacy unless Legacy
// is set. Legacy means the gas cache held no base fee (no fetch has succeeded, which
// includes a latest block carrying none); the pair then holds the fallback defaults.
type Fees struct {
	MaxFeePerGas *big.Int
	PriorityFee  *big.Int
	Legacy       bool
}

// BuildFees derives the current aggressive fee pair: priority_fee is the network's
// suggestion scaled by SniperMultiplier (floored at MinPriorityFeeWei), max_fee is
// base_fee*2 + priority_fee, both capped at MaxFeeCapWei with priority_fee scaled down
// proportionally on cap. Refreshes cache when stale; on any network failure it falls
// back to hard-coded safe defaults rather than propagating the error into the hot path.
func BuildFees(ctx context.Context, src FeeSource, cache *basearb.GasCache, cfg Config) Fees {
	if cache.Stale() {
		if baseFee, priorityFee, err := fetchFeeEnvironment(ctx, src); err == nil {
			cache.Set(baseFee, priorityFee)
		}
	}

	baseFee, suggestedPriority := cache.Get()
	if baseFee == nil {
		return Fees{MaxFeePerGas: new(big.Int).Set(fallbackMaxFee), PriorityFee: new(big.Int).Set(fallbackPriorityFee), Legacy: true}
	}

	priorityFee := new(big.Int).Mul(suggestedPriority, big.NewInt(int64(cfg.SniperMultiplierPct)))
	priorityFee.Div(priorityFee, big.NewInt(100))
	if priorityFee.Cmp(cfg.MinPriorityFeeWei) < 0 {
		priorityFee = new(big.Int).Set(cfg.MinPriorityFeeWei)
	}

	maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFee.Add(maxFee, priorityFee)

	if maxFee.Cmp(cfg.MaxFeeCapWei) > 0 {
		// Scale priority_fee down proportionally so the cap lands on max_fee exactly.
		scaled := new(big.Int).Mul(priorityFee, cfg.MaxFeeCapWei)
		scaled.Div(scaled, maxFee)
		priorityFee = scaled
		maxFee = new(big.Int).Set(cfg.MaxFeeCapWei)
	}

	return Fees{MaxFeePerGas: maxFee, PriorityFee: priorityFee}
}

func fetchFeeEnvironment(ctx context.Context, src FeeSource) (baseFee, priorityFee *big.Int, err error) {
	header, err := src.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("executor: fetch header: %w", err)
	}
	if header.BaseFee == nil {
		return nil, nil, fmt.Errorf("executor: latest block carries no base fee")
	}
	tip, err := src.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("executor: suggest tip cap: %w", err)
	}
	return header.BaseFee, tip, nil
}

// bumpFees increases both fee fields by bumpPct (e.g. 15 for 15%). If the bumped max fee
// would exceed capWei it returns f unchanged and reports true (monitoring must stop
// replacing if so).
func bumpFees(f Fees, bumpPct int, capWei *big.Int) (Fees, bool) {
	bump := func(v *big.Int) *big.Int {
		n := new(big.Int).Mul(v, big.NewInt(int64(100+bumpPct)))
		return n.Div(n, big.NewInt(100))
	}
	bumped := Fees{MaxFeePerGas: bump(f.MaxFeePerGas), PriorityFee: bump(f.PriorityFee), Legacy: f.Legacy}
	if bumped.MaxFeePerGas.Cmp(capWei) > 0 {
		return f, true
	}
	return bumped, false
}
