package engine

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CooldownClass distinguishes the short per-failure cooldown from the long
// consecutive-failure cooldown, for metrics labelling.
type CooldownClass string

const (
	CooldownShort CooldownClass = "short"
	CooldownLong  CooldownClass = "long"
)

type tokenState struct {
	consecutiveFailures int
	cooldownUntil       time.Time
}

// Breaker tracks per-token (non-borrowed-leg) consecutive failures and applies
// cooldowns, adapted from the teacher's CircuitBreaker/StabilityWindow shapes
// (specs/001-liquidity-repositioning/contracts/strategy_api.go) to a per-token model:
// every failure applies a short cooldown; reaching the consecutive-failure threshold
// additionally applies a long cooldown and resets the counter. A success resets both.
type Breaker struct {
	mu    sync.Mutex
	state map[common.Address]*tokenState

	threshold     int
	shortCooldown time.Duration
	longCooldown  time.Duration
}

// NewBreaker builds a Breaker with the given consecutive-failure threshold and
// cooldown durations.
func NewBreaker(threshold int, shortCooldown, longCooldown time.Duration) *Breaker {
	return &Breaker{
		state:         make(map[common.Address]*tokenState),
		threshold:     threshold,
		shortCooldown: shortCooldown,
		longCooldown:  longCooldown,
	}
}

// Allowed reports whether opportunities involving token may currently be considered.
func (b *Breaker) Allowed(token common.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.state[token]
	if !ok {
		return true
	}
	return time.Now().After(st.cooldownUntil)
}

// RecordFailure registers one failed attempt involving token, applying the short
// cooldown always and the long cooldown once the consecutive threshold is reached. It
// returns which cooldown class was applied, for metrics.
func (b *Breaker) RecordFailure(token common.Address) CooldownClass {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[token]
	if !ok {
		st = &tokenState{}
		b.state[token] = st
	}
	st.consecutiveFailures++

	if b.threshold > 0 && st.consecutiveFailures >= b.threshold {
		st.cooldownUntil = time.Now().Add(b.longCooldown)
		st.consecutiveFailures = 0
		return CooldownLong
	}

	short := time.Now().Add(b.shortCooldown)
	if short.After(st.cooldownUntil) {
		st.cooldownUntil = short
	}
	return CooldownShort
}

// RecordSuccess resets token's failure counter and cooldown after a confirmed trade.
func (b *Breaker) RecordSuccess(token common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.state, token)
}
