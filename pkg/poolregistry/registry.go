// Package poolregistry implements the PoolRegistry component (SPEC_FULL.md §4.1):
// CREATE2 pool-address derivation and existence verification via a single batched
// slot0 read. Address derivation is grounded on the pack's
// pulkyeet-mev-searcher/internal/arbitrage/pools.go ComputePairAddress; existence
// verification follows its GetPairPools "skip pools with zero reserves" pattern,
// adapted to slot0/sqrtPriceX96 instead of Uniswap-V2 reserves.
package poolregistry

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	basearb "basearb"
	"basearb/pkg/multicall"
)

var (
	addressType, _ = abi.NewType("address", "", nil)
	uint24Type, _  = abi.NewType("uint24", "", nil)

	saltArgs = abi.Arguments{
		{Type: addressType},
		{Type: addressType},
		{Type: uint24Type},
	}
)

const (
	slot0Selector     = "0x3850c7bd" // slot0() — Algebra/V3-style accessor used across the pack
	liquiditySelector = "0x1a686502" // liquidity()
)

// PoolSpec is a configured (tokenA, tokenB, fee) candidate awaiting derivation.
type PoolSpec struct {
	TokenA, TokenB common.Address
	Fee            uint32
	DecA, DecB     uint8
}

// DerivePoolAddress computes the CREATE2 pool address for a (token0, token1, fee)
// triple given the factory address and init code hash, per SPEC_FULL.md §4.1. token0
// and token1 must already be in canonical (ascending) order.
func DerivePoolAddress(factory common.Address, initCodeHash common.Hash, token0, token1 common.Address, fee uint32) (common.Address, error) {
	packed, err := saltArgs.Pack(token0, token1, big.NewInt(int64(fee)))
	if err != nil {
		return common.Address{}, fmt.Errorf("poolregistry: pack salt: %w", err)
	}
	salt := crypto.Keccak256Hash(packed)

	data := make([]byte, 0, 1+20+32+32)
	data = append(data, 0xff)
	data = append(data, factory.Bytes()...)
	data = append(data, salt.Bytes()...)
	data = append(data, initCodeHash.Bytes()...)

	hash := crypto.Keccak256(data)
	return common.BytesToAddress(hash[12:]), nil
}

// SortTokens returns (token0, token1, dec0, dec1) with addresses in ascending
// byte-value order, the pool's canonical ordering.
func SortTokens(a, b common.Address, decA, decB uint8) (common.Address, common.Address, uint8, uint8) {
	if compareAddresses(a, b) <= 0 {
		return a, b, decA, decB
	}
	return b, a, decB, decA
}

func compareAddresses(a, b common.Address) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Registry owns every Pool descriptor for the process lifetime. All other components
// borrow Pool pointers read-only; only the StateUpdater mutates their state.
type Registry struct {
	factory      common.Address
	initCodeHash common.Hash

	pools  []*basearb.Pool
	byAddr map[common.Address]*basearb.Pool
}

// New constructs an empty registry for the given factory and init code hash.
func New(factory common.Address, initCodeHash common.Hash) *Registry {
	return &Registry{
		factory:      factory,
		initCodeHash: initCodeHash,
		byAddr:       make(map[common.Address]*basearb.Pool),
	}
}

// Discover derives candidate pool addresses for every spec, verifies existence with one
// batched slot0 call via mc, and retains survivors in insertion order. Pools whose call
// reverts or returns fewer than 64 bytes are dropped.
func (r *Registry) Discover(ctx context.Context, mc *multicall.Client, specs []PoolSpec) error {
	type candidate struct {
		addr       common.Address
		token0     common.Address
		token1     common.Address
		fee        uint32
		dec0, dec1 uint8
	}

	candidates := make([]candidate, 0, len(specs))
	calls := make([]multicall.Call, 0, len(specs))
	for _, spec := range specs {
		token0, token1, dec0, dec1 := SortTokens(spec.TokenA, spec.TokenB, spec.DecA, spec.DecB)
		addr, err := DerivePoolAddress(r.factory, r.initCodeHash, token0, token1, spec.Fee)
		if err != nil {
			return err
		}
		candidates = append(candidates, candidate{addr, token0, token1, spec.Fee, dec0, dec1})
		calls = append(calls, multicall.Call{
			Target:       addr,
			AllowFailure: true,
			CallData:     common.FromHex(slot0Selector),
		})
	}

	results, err := mc.Aggregate3(ctx, calls)
	if err != nil {
		return fmt.Errorf("poolregistry: existence check: %w", err)
	}

	for i, res := range results {
		if !res.Success || len(res.ReturnData) < 64 {
			continue
		}
		c := candidates[i]
		pool := basearb.NewPool(c.addr, c.token0, c.token1, c.fee, c.dec0, c.dec1)
		r.pools = append(r.pools, pool)
		r.byAddr[c.addr] = pool
	}

	return nil
}

// Pools returns the ordered, stable slice of surviving pool descriptors.
func (r *Registry) Pools() []*basearb.Pool {
	return r.pools
}

// Lookup finds a pool by its address.
func (r *Registry) Lookup(addr common.Address) (*basearb.Pool, bool) {
	p, ok := r.byAddr[addr]
	return p, ok
}

// BatchPlan returns the pre-built, order-stable list of (slot0, liquidity) calls the
// StateUpdater submits unchanged every scan cycle: two calls per pool, in that order.
func (r *Registry) BatchPlan() []multicall.Call {
	calls := make([]multicall.Call, 0, len(r.pools)*2)
	for _, p := range r.pools {
		calls = append(calls,
			multicall.Call{Target: p.Address, AllowFailure: true, CallData: common.FromHex(slot0Selector)},
			multicall.Call{Target: p.Address, AllowFailure: true, CallData: common.FromHex(liquiditySelector)},
		)
	}
	return calls
}
