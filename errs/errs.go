// Package errs collects the sentinel errors shared across the engine's components, so
// callers can classify failures with errors.Is/errors.As instead of string matching.
package errs

import "errors"

var (
	// ErrPoolUninitialised is returned when a pool's sqrtPriceX96 is zero.
	ErrPoolUninitialised = errors.New("pool uninitialised: sqrtPriceX96 is zero")

	// ErrQuoteReverted is returned when the router/quoter call reverts.
	ErrQuoteReverted = errors.New("quoter call reverted")

	// ErrNonceStale is returned when the cached nonce must be re-fetched.
	ErrNonceStale = errors.New("nonce cache stale")

	// ErrAggregateCallFailed is returned when the StateUpdater's single batched RPC
	// fails outright; the caller must skip the cycle without mutating any pool state.
	ErrAggregateCallFailed = errors.New("aggregate3 call failed")

	// ErrAllRPCsFailed is returned when a single logical request has used up its retry
	// attempts across the configured RPC endpoints.
	ErrAllRPCsFailed = errors.New("all RPC endpoints failed")

	// ErrSimulationReverted is returned when the pre-flight eth_call reverts.
	ErrSimulationReverted = errors.New("pre-flight simulation reverted")

	// ErrInsufficientBalanceDelta is returned by strict-mode simulation when the
	// counterparty's post-call balance did not strictly increase.
	ErrInsufficientBalanceDelta = errors.New("strict simulation: balance did not increase")

	// ErrNoProfit is returned when an opportunity's net profit does not clear its floor.
	ErrNoProfit = errors.New("net profit below floor")

	// ErrNonceTooLow is returned by the network for a stale nonce; the caller should
	// recheck prior broadcast hashes rather than treat it as a hard failure.
	ErrNonceTooLow = errors.New("nonce too low")

	// ErrReplacementUnderpriced is returned by the network when a replacement
	// transaction's fee bump is insufficient.
	ErrReplacementUnderpriced = errors.New("replacement transaction underpriced")

	// ErrFeeCapExceeded is returned when a fee bump would exceed the configured cap.
	ErrFeeCapExceeded = errors.New("bumped fee exceeds configured cap")

	// ErrTokenCooldown is returned when an opportunity is skipped because one of its
	// tokens is in cooldown after repeated consecutive failures.
	ErrTokenCooldown = errors.New("token in cooldown")

	// ErrMissingConfig is returned at startup when a required configuration value or
	// environment variable is absent.
	ErrMissingConfig = errors.New("missing required configuration")
)
