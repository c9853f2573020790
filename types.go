// Package basearb implements an on-chain arbitrage engine for concentrated-liquidity
// pools on Base, an OP-Stack L2.
package basearb

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Token describes an ERC-20 known to the engine.
type Token struct {
	Symbol     string
	Address    common.Address
	Decimals   uint8
	MinProfit  *big.Int // optional per-token floor, smallest unit; nil means "use global floor"
	FeeTiers   []uint32 // legal values: 100, 500, 3000, 10000
}

// PoolSnapshot is the mutable state of a Pool, copied out under lock so readers
// never observe a torn mix of fields from two different StateUpdater cycles.
type PoolSnapshot struct {
	SqrtPriceX96 *big.Int // uint160
	Tick         int32
	Liquidity    *big.Int // uint128
	UpdatedAt    time.Time
}

// Uninitialised reports whether this snapshot represents an absent/uninitialised pool.
func (s PoolSnapshot) Uninitialised() bool {
	return s.SqrtPriceX96 == nil || s.SqrtPriceX96.Sign() == 0
}

// Pool is a concentrated-liquidity pool descriptor. Immutable fields are set once at
// registry construction; mutable fields are written only by the StateUpdater and read
// through Snapshot, which copies state out under a per-pool lock.
type Pool struct {
	Address  common.Address
	Token0   common.Address
	Token1   common.Address
	Fee      uint32 // 1/1,000,000 units
	Dec0     uint8
	Dec1     uint8

	mu    sync.RWMutex
	state PoolSnapshot
}

// NewPool constructs a Pool with its immutable fields set and no state yet applied.
func NewPool(address, token0, token1 common.Address, fee uint32, dec0, dec1 uint8) *Pool {
	return &Pool{Address: address, Token0: token0, Token1: token1, Fee: fee, Dec0: dec0, Dec1: dec1}
}

// Snapshot returns a copy of the pool's current mutable state.
func (p *Pool) Snapshot() PoolSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState atomically replaces the pool's mutable state. It is the sole write path and
// must only be called by the StateUpdater.
func (p *Pool) SetState(s PoolSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// PairKey canonically identifies the (token0, token1) partition a pool belongs to.
type PairKey struct {
	Token0 common.Address
	Token1 common.Address
}

// Direction indicates which token of a pool is being sold.
type Direction bool

const (
	ZeroForOne Direction = true
	OneForZero Direction = false
)

// RawOpportunity is the ProfitEngine's output: a candidate trade sized by the
// single-tick approximation, with no network verification yet performed.
type RawOpportunity struct {
	PoolLow, PoolHigh *Pool
	BorrowToken       common.Address
	Direction         Direction
	AmountIn          *big.Int
	Swap1Out          *big.Int
	Swap2Out          *big.Int
	FlashFee          *big.Int
	NetProfitEstimate *big.Int
	DirectionLabel    string
}

// VerifiedOpportunity is the SafetyLayer's output: a RawOpportunity whose amounts have
// been confirmed against the real quoter and whose slippage floors and gas-adjusted
// profit have been computed. Its existence is itself the proof that quoter verification
// happened — "quoter_verified" is a type-level property, not a boolean flag.
type VerifiedOpportunity struct {
	Raw RawOpportunity

	QuotedSwap1Out       *big.Int
	QuotedSwap2Out       *big.Int
	MinOut1              *big.Int
	MinOut2              *big.Int
	TicksCrossed1        uint32
	TicksCrossed2        uint32
	L2GasEstimate        uint64
	L1DataFee            *uint256.Int
	L2Cost               *uint256.Int
	TotalTxCost          *uint256.Int
	NetProfit            *uint256.Int
}

// SimOutcomeKind enumerates the sum-typed result of a pre-flight simulation (§9 Design
// Notes: exceptions-as-flow-control replaced by an explicit sum type).
type SimOutcomeKind int

const (
	SimOK SimOutcomeKind = iota
	SimRevertNoProfit
	SimRevertInsufficient
	SimRevertOther
	SimCallError
)

func (k SimOutcomeKind) String() string {
	switch k {
	case SimOK:
		return "ok"
	case SimRevertNoProfit:
		return "revert_no_profit"
	case SimRevertInsufficient:
		return "revert_insufficient"
	case SimRevertOther:
		return "revert_other"
	case SimCallError:
		return "call_error"
	default:
		return "unknown"
	}
}

// SimOutcome is the result of the Executor's pre-flight simulation.
type SimOutcome struct {
	Kind   SimOutcomeKind
	Detail string
	Err    error
}

// SignedAttempt is the Executor's output: a VerifiedOpportunity that has been signed
// and submitted, carrying every broadcast hash produced across stuck-tx replacements
// and full timing instrumentation.
type SignedAttempt struct {
	Verified VerifiedOpportunity

	Nonce        uint64
	MaxFeePerGas *big.Int
	PriorityFee  *big.Int
	Hashes       []common.Hash // all hashes broadcast at this nonce, in order
	Confirmed    common.Hash   // zero if never confirmed
	SpeedupCount int
	GasUsed      uint64
	ActualProfit *big.Int
	Status       AttemptStatus

	SimDuration     time.Duration
	SignDuration    time.Duration
	BroadcastDur    time.Duration
	ConfirmDuration time.Duration
	TotalDuration   time.Duration
}

// AttemptStatus is the terminal classification of an execution attempt.
type AttemptStatus string

const (
	StatusConfirmed     AttemptStatus = "confirmed"
	StatusSoftFail      AttemptStatus = "soft_fail"
	StatusReverted       AttemptStatus = "reverted"
	StatusSimRejected   AttemptStatus = "sim_rejected"
	StatusTimedOut      AttemptStatus = "timed_out"
	StatusNotBroadcast  AttemptStatus = "not_broadcast"
)

// GasCache is a single-writer/multi-reader cache of the current fee environment.
type GasCache struct {
	mu         sync.Mutex
	BaseFee    *big.Int
	PriorityFee *big.Int
	FetchedAt  time.Time
	ttl        time.Duration
}

// NewGasCache constructs an empty cache with the given TTL.
func NewGasCache(ttl time.Duration) *GasCache {
	return &GasCache{ttl: ttl}
}

// Stale reports whether the cache must be refreshed before use.
func (c *GasCache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BaseFee == nil || time.Since(c.FetchedAt) > c.ttl
}

// Set replaces the cached fee values.
func (c *GasCache) Set(baseFee, priorityFee *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BaseFee = baseFee
	c.PriorityFee = priorityFee
	c.FetchedAt = time.Now()
}

// Get returns the cached fee values.
func (c *GasCache) Get() (baseFee, priorityFee *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BaseFee, c.PriorityFee
}

// NonceCache is a per-signer cache of the next nonce to use, reset to "must re-fetch"
// on any broadcast or simulation error.
type NonceCache struct {
	mu        sync.Mutex
	next      uint64
	valid     bool
	fetchedAt time.Time
	ttl       time.Duration
}

// NewNonceCache constructs an empty cache with the given TTL.
func NewNonceCache(ttl time.Duration) *NonceCache {
	return &NonceCache{ttl: ttl}
}

// Peek returns the cached nonce and whether it is still valid and fresh.
func (c *NonceCache) Peek() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || time.Since(c.fetchedAt) > c.ttl {
		return 0, false
	}
	return c.next, true
}

// Set installs a freshly fetched nonce.
func (c *NonceCache) Set(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = n
	c.valid = true
	c.fetchedAt = time.Now()
}

// Advance optimistically increments the cached nonce after issuing a transaction.
func (c *NonceCache) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid {
		c.next++
	}
}

// Invalidate forces the next Peek to report stale, requiring a fresh fetch.
func (c *NonceCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

// L1FeeParams caches the OP-Stack GasPriceOracle / L1Block predeploy values used to
// compute the L1 data fee portion of total transaction cost.
type L1FeeParams struct {
	mu          sync.Mutex
	L1BaseFee   *big.Int
	Overhead    *big.Int
	Scalar      *big.Int
	TokenRatio  *big.Int
	FetchedAt   time.Time
	ttl         time.Duration
}

// NewL1FeeParams constructs an empty cache with the given TTL.
func NewL1FeeParams(ttl time.Duration) *L1FeeParams {
	return &L1FeeParams{ttl: ttl}
}

// Stale reports whether the cache must be refreshed before use.
func (p *L1FeeParams) Stale() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.L1BaseFee == nil || time.Since(p.FetchedAt) > p.ttl
}

// Set replaces the cached oracle values.
func (p *L1FeeParams) Set(l1BaseFee, overhead, scalar, tokenRatio *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.L1BaseFee = l1BaseFee
	p.Overhead = overhead
	p.Scalar = scalar
	p.TokenRatio = tokenRatio
	p.FetchedAt = time.Now()
}

// Get returns the cached oracle values.
func (p *L1FeeParams) Get() (l1BaseFee, overhead, scalar, tokenRatio *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.L1BaseFee, p.Overhead, p.Scalar, p.TokenRatio
}

// ExecutionAttempt is the structured row persisted for every execution attempt
// (replaces the base spec's CSV trade journal with the same facts, per SPEC_FULL.md §6).
type ExecutionAttempt struct {
	Timestamp      time.Time
	TokenSymbol    string
	BorrowAmount   *big.Int
	DirectionLabel string
	ExpectedProfit *big.Int
	TxHash         string
	Status         AttemptStatus
	GasUsed        uint64
	ActualProfit   *big.Int
	Notes          string
}
