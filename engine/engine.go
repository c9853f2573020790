// Package engine wires PoolRegistry, StateUpdater, ProfitEngine, SafetyLayer, and
// Executor into one scan loop, owning the per-token cooldown/circuit-breaker state, a
// report channel for observability events, and graceful shutdown. Grounded on the
// teacher's specs/001-liquidity-repositioning/contracts/strategy_api.go
// (StrategyRunner.RunStrategy1(ctx, reportChan, config), CircuitBreaker, StabilityWindow)
// adapted from the liquidity-repositioning domain to arbitrage scan/execute, and on the
// flash-loan arbitrage engine's Start/Stop lifecycle and scan-loop-over-stopChan shape.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	basearb "basearb"
	"basearb/internal/metrics"
	"basearb/pkg/safety"
	"basearb/pkg/stateupdater"
)

// Config holds the engine's tunables, sourced from configs.Config.
type Config struct {
	ScanInterval            time.Duration
	MaxConcurrentExecutions int
	ShortCooldown           time.Duration // applied after every single failure
	LongCooldown            time.Duration // applied after ConsecutiveFailureThreshold failures in a row
	ConsecutiveFailureThreshold int
	CalldataLenEstimate     int
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		ScanInterval:                time.Second,
		MaxConcurrentExecutions:     4,
		ShortCooldown:               60 * time.Second,
		LongCooldown:                3600 * time.Second,
		ConsecutiveFailureThreshold: 3,
		CalldataLenEstimate:         356, // rough estimate; the encoded startArbitrage call itself (selector, 4 head words, swapData length word, 3 swapData words) is 260 bytes
	}
}

// Registry is the subset of pkg/poolregistry.Registry the engine depends on.
type Registry interface {
	Pools() []*basearb.Pool
}

// Updater is the subset of pkg/stateupdater.Updater the engine depends on.
type Updater interface {
	Run(ctx context.Context) (stateupdater.Result, error)
}

// ProfitScanner is the subset of pkg/profitengine.Engine the engine depends on.
type ProfitScanner interface {
	Scan(pools []*basearb.Pool) []basearb.RawOpportunity
}

// Verifier is the subset of pkg/safety.Layer the engine depends on.
type Verifier interface {
	Verify(ctx context.Context, raw basearb.RawOpportunity, costs safety.CostInputs, calldataLen int) (basearb.VerifiedOpportunity, error)
}

// Executor is the subset of pkg/executor.Executor the engine depends on.
type Executor interface {
	Execute(ctx context.Context, verified basearb.VerifiedOpportunity) (*basearb.SignedAttempt, error)
}

// Recorder is the subset of internal/store.MySQLRecorder the engine depends on.
type Recorder interface {
	RecordAttempt(attempt basearb.ExecutionAttempt) error
	CountAttemptsSince(since time.Time) (int64, error)
}

// CostSource supplies the live cost-model inputs (gas cache, L1 fee params) each cycle.
type CostSource func(ctx context.Context) (safety.CostInputs, error)

// Engine owns the scan loop and every supporting component.
type Engine struct {
	cfg Config

	registry Registry
	updater  Updater
	profit   ProfitScanner
	safety   Verifier
	executor Executor
	recorder Recorder
	costs    CostSource

	breaker  *Breaker
	log      *zap.Logger
	reportCh chan<- string

	maxTxPerHour int
}

// New builds an Engine from its wired components.
func New(cfg Config, registry Registry, updater Updater, profit ProfitScanner, safetyLayer Verifier, executor Executor, recorder Recorder, costs CostSource, log *zap.Logger, reportCh chan<- string, maxTxPerHour int) *Engine {
	return &Engine{
		cfg:          cfg,
		registry:     registry,
		updater:      updater,
		profit:       profit,
		safety:       safetyLayer,
		executor:     executor,
		recorder:     recorder,
		costs:        costs,
		breaker:      NewBreaker(cfg.ConsecutiveFailureThreshold, cfg.ShortCooldown, cfg.LongCooldown),
		log:          log,
		reportCh:     reportCh,
		maxTxPerHour: maxTxPerHour,
	}
}

// Run drives the scan loop until ctx is cancelled, reporting every lifecycle and trade
// event onto reportCh as a JSON-encoded Report. It returns nil on a clean shutdown.
func (e *Engine) Run(ctx context.Context) error {
	e.emit(Report{EventType: EventStrategyStart, Message: "engine started"})
	defer e.emit(Report{EventType: EventShutdown, Message: "engine stopped"})

	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.tick(ctx); err != nil {
				e.log.Error("scan cycle failed", zap.Error(err))
				e.emit(Report{EventType: EventError, Message: "scan cycle failed", Error: err.Error()})
			}
		}
	}
}

// tick runs exactly one scan-update-profit-safety-execute cycle.
func (e *Engine) tick(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveSeconds(metrics.ScanCycleDuration)

	if _, err := e.updater.Run(ctx); err != nil {
		metrics.RecordRPC("state_update", err)
		return fmt.Errorf("engine: state update: %w", err)
	}
	metrics.RecordRPC("state_update", nil)

	pools := e.registry.Pools()
	raws := e.profit.Scan(pools)
	if len(raws) == 0 {
		return nil
	}
	metrics.OpportunitiesFound.Add(float64(len(raws)))

	if allowed, err := e.withinHourlyBudget(ctx); err != nil {
		return fmt.Errorf("engine: hourly budget check: %w", err)
	} else if !allowed {
		e.emit(Report{EventType: EventMonitoring, Message: "max tx per hour reached, skipping cycle"})
		return nil
	}

	costs, err := e.costs(ctx)
	if err != nil {
		metrics.RecordRPC("cost_inputs", err)
		return fmt.Errorf("engine: cost inputs: %w", err)
	}
	metrics.RecordRPC("cost_inputs", nil)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.MaxConcurrentExecutions)

	for _, raw := range raws {
		raw := raw
		counterparty := counterpartyToken(raw)
		if !e.breaker.Allowed(counterparty) {
			continue
		}
		group.Go(func() error {
			e.handleOpportunity(gctx, raw, costs, counterparty)
			return nil
		})
	}
	return group.Wait()
}

// handleOpportunity verifies and, if still profitable, executes a single raw
// opportunity, updating the per-token breaker and persisting the outcome.
func (e *Engine) handleOpportunity(ctx context.Context, raw basearb.RawOpportunity, costs safety.CostInputs, counterparty common.Address) {
	verified, err := e.safety.Verify(ctx, raw, costs, e.cfg.CalldataLenEstimate)
	if err != nil {
		e.recordFailure(counterparty, "verification rejected", err)
		return
	}
	metrics.OpportunitiesVerified.Inc()

	attempt, err := e.executor.Execute(ctx, verified)
	if err != nil {
		e.recordFailure(counterparty, "execution error", err)
		return
	}

	metrics.RecordExecution(string(attempt.Status))
	if attempt.MaxFeePerGas != nil {
		gasCostWei := new(big.Int).Mul(new(big.Int).SetUint64(attempt.GasUsed), attempt.MaxFeePerGas)
		costFloat, _ := new(big.Float).SetInt(gasCostWei).Float64()
		metrics.GasSpentWei.Observe(costFloat)
	}

	record := basearb.ExecutionAttempt{
		Timestamp:      time.Now(),
		TokenSymbol:    counterparty.Hex(),
		BorrowAmount:   raw.AmountIn,
		DirectionLabel: raw.DirectionLabel,
		ExpectedProfit: raw.NetProfitEstimate,
		TxHash:         attempt.Confirmed.Hex(),
		Status:         attempt.Status,
		GasUsed:        attempt.GasUsed,
		ActualProfit:   attempt.ActualProfit,
	}
	if err := e.recorder.RecordAttempt(record); err != nil {
		e.log.Error("failed to record execution attempt", zap.Error(err))
	}

	switch attempt.Status {
	case basearb.StatusConfirmed:
		e.breaker.RecordSuccess(counterparty)
		e.emit(Report{EventType: EventProfit, Message: "trade confirmed", TokenHint: counterparty.Hex(), Profit: attempt.ActualProfit})
	default:
		e.recordFailure(counterparty, fmt.Sprintf("terminal status %s", attempt.Status), nil)
	}
}

func (e *Engine) recordFailure(token common.Address, reason string, err error) {
	class := e.breaker.RecordFailure(token)
	metrics.RecordCooldown(string(class))
	msg := reason
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	e.emit(Report{EventType: EventError, Message: msg, TokenHint: token.Hex(), Error: errStr})
}

// withinHourlyBudget checks the recorder-backed MAX_TX_PER_HOUR rate limiter; a
// disabled limiter (maxTxPerHour <= 0) always allows.
func (e *Engine) withinHourlyBudget(ctx context.Context) (bool, error) {
	if e.maxTxPerHour <= 0 {
		return true, nil
	}
	count, err := e.recorder.CountAttemptsSince(time.Now().Add(-time.Hour))
	if err != nil {
		return false, err
	}
	return count < int64(e.maxTxPerHour), nil
}

// counterpartyToken identifies the non-borrowed token for per-token cooldown purposes.
func counterpartyToken(raw basearb.RawOpportunity) common.Address {
	if raw.PoolHigh.Token0 == raw.BorrowToken {
		return raw.PoolHigh.Token1
	}
	return raw.PoolHigh.Token0
}

func (e *Engine) emit(r Report) {
	if e.reportCh == nil {
		return
	}
	r.Timestamp = time.Now()
	encoded, err := json.Marshal(r)
	if err != nil {
		e.log.Error("failed to marshal report event", zap.Error(err))
		return
	}
	select {
	case e.reportCh <- string(encoded):
	default:
		e.log.Warn("report channel full, dropping event", zap.String("event_type", string(r.EventType)))
	}
}
