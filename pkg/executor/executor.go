// Package executor turns a verified opportunity into a confirmed on-chain transaction:
// fee construction, nonce management, calldata/access-list construction, strict-mode
// pre-flight simulation, broadcast, and stuck-transaction replacement. Grounded on the
// teacher's blackhole.go Swap/Mint send pattern (approve-then-send, wait-for-confirmation
// via a TxListener) and original_source/core/network.py's gas-parameter construction,
// adapted from router swaps to flash-arbitrage calldata.
package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	basearb "basearb"
	"basearb/errs"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Config collects every tunable of the execution path; see DefaultConfig for the values
// named in the spec.
type Config struct {
	SniperMultiplierPct int      // priority_fee = suggested_tip * this / 100
	MinPriorityFeeWei   *big.Int // floor for priority_fee
	MaxFeeCapWei        *big.Int // cap for max_fee (priority_fee scaled down proportionally on cap)
	GasLimit            uint64

	BumpPct              int           // stuck-tx fee bump percentage
	ReplacementFeeCapWei *big.Int      // absolute cap a bumped max_fee must stay under
	InitialWait          time.Duration // wait before first receipt poll
	SpeedupInterval      time.Duration // interval between replacement attempts
	MaxSpeedupAttempts   int
	TotalWallClockCap    time.Duration

	// StrictSimulationCheck gates Simulate's post-call balance-increase check; when false,
	// only the revert check runs.
	StrictSimulationCheck bool
}

// DefaultConfig returns the spec's default execution tunables.
func DefaultConfig() Config {
	return Config{
		SniperMultiplierPct:   200, // 2.0x
		MinPriorityFeeWei:     new(big.Int).Div(gwei, big.NewInt(100)), // 0.01 gwei
		MaxFeeCapWei:          new(big.Int).Mul(big.NewInt(10), gwei),  // 10 gwei
		GasLimit:              500_000,
		BumpPct:               15,
		ReplacementFeeCapWei:  new(big.Int).Mul(big.NewInt(50), gwei), // 50 gwei
		InitialWait:           5 * time.Second,
		SpeedupInterval:       3 * time.Second,
		MaxSpeedupAttempts:    5,
		TotalWallClockCap:     120 * time.Second,
		StrictSimulationCheck: true,
	}
}

// ReceiptFetcher is the narrow slice of *ethclient.Client used to poll for confirmation.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// NonceSource is the narrow slice of *ethclient.Client used to refresh the nonce cache.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Contracts names the addresses the Executor needs beyond what an opportunity carries:
// the router and the operator's own flash-executor contract, both part of every access
// list, and the executor contract's address, which calldata is sent to.
type Contracts struct {
	Router  common.Address
	Own     common.Address
	ChainID *big.Int
}

// Executor wires fee construction, nonce management, simulation, and broadcast into a
// single Execute call per verified opportunity.
type Executor struct {
	cfg Config

	feeSrc      FeeSource
	nonceSrc    NonceSource
	agg         Aggregator
	broadcaster *Broadcaster
	receipts    ReceiptFetcher

	gasCache   *basearb.GasCache
	nonceCache *basearb.NonceCache

	signer    *ecdsa.PrivateKey
	from      common.Address
	contracts Contracts
}

// New builds an Executor. gasCache/nonceCache are owned by the caller so their TTLs can
// be shared with other components reading the same fee/nonce environment.
func New(cfg Config, feeSrc FeeSource, nonceSrc NonceSource, agg Aggregator, broadcaster *Broadcaster, receipts ReceiptFetcher, gasCache *basearb.GasCache, nonceCache *basearb.NonceCache, signer *ecdsa.PrivateKey, from common.Address, contracts Contracts) *Executor {
	return &Executor{
		cfg: cfg, feeSrc: feeSrc, nonceSrc: nonceSrc, agg: agg, broadcaster: broadcaster, receipts: receipts,
		gasCache: gasCache, nonceCache: nonceCache, signer: signer, from: from, contracts: contracts,
	}
}

// Execute simulates, signs, broadcasts, and monitors a single verified opportunity to
// confirmation (or a terminal failure), recording timing instrumentation throughout.
func (e *Executor) Execute(ctx context.Context, verified basearb.VerifiedOpportunity) (*basearb.SignedAttempt, error) {
	attempt := &basearb.SignedAttempt{Verified: verified}

	plan, err := e.buildPlan(verified)
	if err != nil {
		attempt.Status = basearb.StatusNotBroadcast
		return attempt, fmt.Errorf("executor: build plan: %w", err)
	}

	simStart := time.Now()
	outcome := Simulate(ctx, e.agg, e.contracts.Own, verified.Raw.BorrowToken, plan, e.cfg.StrictSimulationCheck)
	attempt.SimDuration = time.Since(simStart)
	if outcome.Kind != basearb.SimOK {
		attempt.Status = basearb.StatusSimRejected
		e.nonceCache.Invalidate()
		return attempt, fmt.Errorf("%w: %s (%s)", errs.ErrSimulationReverted, outcome.Detail, outcome.Kind)
	}

	nonce, err := e.nonce(ctx)
	if err != nil {
		attempt.Status = basearb.StatusNotBroadcast
		return attempt, fmt.Errorf("executor: fetch nonce: %w", err)
	}

	fees := BuildFees(ctx, e.feeSrc, e.gasCache, e.cfg)

	signStart := time.Now()
	signed, err := e.signTx(nonce, plan, fees)
	attempt.SignDuration = time.Since(signStart)
	if err != nil {
		e.nonceCache.Invalidate()
		attempt.Status = basearb.StatusNotBroadcast
		return attempt, fmt.Errorf("executor: sign tx: %w", err)
	}

	broadcastStart := time.Now()
	if err := e.broadcaster.Send(ctx, signed); err != nil {
		e.nonceCache.Invalidate()
		attempt.Status = basearb.StatusNotBroadcast
		return attempt, fmt.Errorf("executor: broadcast: %w", err)
	}
	attempt.BroadcastDur = time.Since(broadcastStart)
	e.nonceCache.Advance()

	attempt.Nonce = nonce
	attempt.MaxFeePerGas = fees.MaxFeePerGas
	attempt.PriorityFee = fees.PriorityFee
	attempt.Hashes = append(attempt.Hashes, signed.Hash())

	confirmStart := time.Now()
	receipt, confirmedHash, err := e.monitor(ctx, attempt, nonce, plan)
	attempt.ConfirmDuration = time.Since(confirmStart)
	attempt.TotalDuration = time.Since(simStart)

	if err != nil {
		attempt.Status = basearb.StatusTimedOut
		return attempt, err
	}

	attempt.Confirmed = confirmedHash
	attempt.GasUsed = receipt.GasUsed
	if receipt.Status == types.ReceiptStatusSuccessful {
		attempt.Status = basearb.StatusConfirmed
	} else {
		attempt.Status = basearb.StatusReverted
	}
	return attempt, nil
}

func (e *Executor) buildPlan(verified basearb.VerifiedOpportunity) (CallPlan, error) {
	raw := verified.Raw
	flashPool := raw.PoolLow
	targetPool := raw.PoolHigh

	var targetToken common.Address
	if targetPool.Token0 == raw.BorrowToken {
		targetToken = targetPool.Token1
	} else {
		targetToken = targetPool.Token0
	}

	minOut := verified.MinOut2
	if minOut == nil {
		minOut = big.NewInt(0)
	}

	data, err := BuildCalldata(flashPool.Address, raw.BorrowToken, raw.AmountIn, targetToken, targetPool.Fee, minOut)
	if err != nil {
		return CallPlan{}, err
	}

	accessList := BuildAccessList(flashPool.Address, flashPool.Token0, flashPool.Token1, e.contracts.Router, e.contracts.Own)
	return CallPlan{To: e.contracts.Own, Data: data, AccessList: accessList}, nil
}

func (e *Executor) nonce(ctx context.Context) (uint64, error) {
	if n, ok := e.nonceCache.Peek(); ok {
		return n, nil
	}
	n, err := e.nonceSrc.PendingNonceAt(ctx, e.from)
	if err != nil {
		return 0, err
	}
	e.nonceCache.Set(n)
	return n, nil
}

func (e *Executor) signTx(nonce uint64, plan CallPlan, fees Fees) (*types.Transaction, error) {
	var tx *types.Transaction
	if fees.Legacy {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &plan.To,
			Value:    big.NewInt(0),
			Gas:      e.cfg.GasLimit,
			GasPrice: fees.MaxFeePerGas,
			Data:     plan.Data,
		})
	} else {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:    e.contracts.ChainID,
			Nonce:      nonce,
			To:         &plan.To,
			Value:      big.NewInt(0),
			Gas:        e.cfg.GasLimit,
			GasFeeCap:  fees.MaxFeePerGas,
			GasTipCap:  fees.PriorityFee,
			Data:       plan.Data,
			AccessList: plan.AccessList,
		})
	}
	return types.SignTx(tx, types.LatestSignerForChainID(e.contracts.ChainID), e.signer)
}

// monitor implements the stuck-transaction replacement loop: wait, poll every
// previously-broadcast hash, and if none is mined, rebroadcast with bumped fees.
func (e *Executor) monitor(ctx context.Context, attempt *basearb.SignedAttempt, nonce uint64, plan CallPlan) (*types.Receipt, common.Hash, error) {
	deadline := time.Now().Add(e.cfg.TotalWallClockCap)

	select {
	case <-time.After(e.cfg.InitialWait):
	case <-ctx.Done():
		return nil, common.Hash{}, ctx.Err()
	}

	fees := Fees{MaxFeePerGas: attempt.MaxFeePerGas, PriorityFee: attempt.PriorityFee}
	bumpPct := e.cfg.BumpPct

	for attemptNum := 0; ; attemptNum++ {
		if receipt, hash, ok := e.pollHashes(ctx, attempt.Hashes); ok {
			return receipt, hash, nil
		}

		if time.Now().After(deadline) || attemptNum >= e.cfg.MaxSpeedupAttempts {
			return nil, common.Hash{}, fmt.Errorf("executor: no confirmation within %s across %d replacement(s)", e.cfg.TotalWallClockCap, len(attempt.Hashes)-1)
		}

		bumped, capped := bumpFees(fees, bumpPct, e.cfg.ReplacementFeeCapWei)
		if capped {
			return nil, common.Hash{}, fmt.Errorf("executor: replacement fee would exceed cap %s", e.cfg.ReplacementFeeCapWei)
		}

		signed, err := e.signTx(nonce, plan, bumped)
		if err == nil {
			if err := e.broadcaster.Send(ctx, signed); err != nil {
				if isNonceTooLow(err) {
					// One of the prior hashes already mined; the next pollHashes call will find it.
				} else if isReplacementUnderpriced(err) {
					bumpPct = int(float64(bumpPct) * 1.5)
					continue
				}
			} else {
				attempt.Hashes = append(attempt.Hashes, signed.Hash())
				attempt.SpeedupCount++
				fees = bumped
			}
		}

		select {
		case <-time.After(e.cfg.SpeedupInterval):
		case <-ctx.Done():
			return nil, common.Hash{}, ctx.Err()
		}
	}
}

func (e *Executor) pollHashes(ctx context.Context, hashes []common.Hash) (*types.Receipt, common.Hash, bool) {
	for _, h := range hashes {
		receipt, err := e.receipts.TransactionReceipt(ctx, h)
		if err == nil && receipt != nil {
			return receipt, h, true
		}
	}
	return nil, common.Hash{}, false
}

func isNonceTooLow(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "nonce too low")
}

func isReplacementUnderpriced(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "replacement transaction underpriced") ||
		strings.Contains(strings.ToLower(err.Error()), "replacement underpriced")
}
