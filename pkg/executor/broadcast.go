package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
)

// BroadcastMode selects how a signed transaction reaches the network.
type BroadcastMode int

const (
	// BroadcastPublic submits via standard raw-transaction broadcast to the public mempool.
	BroadcastPublic BroadcastMode = iota
	// BroadcastPrivate submits to a rotation of private builder endpoints, falling back to
	// the public mempool if every private endpoint fails.
	BroadcastPrivate
	// BroadcastBundle simulates via eth_callBundle before submitting privately; it only
	// proceeds if the simulated bundle is profitable and non-reverting.
	BroadcastBundle
)

// PrivateSender is the narrow capability a private builder endpoint exposes: submit a
// signed transaction and report whether it was accepted.
type PrivateSender interface {
	SendPrivateTransaction(ctx context.Context, signed *types.Transaction, maxBlockNumber uint64) error
}

// BundleSimulator is the narrow capability an upstream bundle simulator exposes.
type BundleSimulator interface {
	// SimulateBundle reports the bundle's simulated coinbase diff and whether any
	// transaction in it reverted.
	SimulateBundle(ctx context.Context, signed *types.Transaction) (coinbaseDiff int64, reverted bool, err error)
}

// PublicBroadcaster is the narrow slice of *ethclient.Client used for a plain broadcast.
type PublicBroadcaster interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Broadcaster submits a signed transaction using one of the three configured modes,
// rotating across private endpoints and falling back to the public mempool on total
// private failure.
type Broadcaster struct {
	mu               sync.Mutex
	mode             BroadcastMode
	public           PublicBroadcaster
	privateEndpoints []PrivateSender
	nextPrivate      int
	bundleSim        BundleSimulator
	currentBlock     func(ctx context.Context) (uint64, error)
}

// NewBroadcaster builds a Broadcaster. currentBlock supplies the block number used to
// compute a private transaction's maxBlockNumber (current+10); it may be nil when mode is
// BroadcastPublic.
func NewBroadcaster(mode BroadcastMode, public PublicBroadcaster, privateEndpoints []PrivateSender, bundleSim BundleSimulator, currentBlock func(ctx context.Context) (uint64, error)) *Broadcaster {
	return &Broadcaster{
		mode:             mode,
		public:           public,
		privateEndpoints: privateEndpoints,
		bundleSim:        bundleSim,
		currentBlock:     currentBlock,
	}
}

// Send submits signed according to the configured mode.
func (b *Broadcaster) Send(ctx context.Context, signed *types.Transaction) error {
	switch b.mode {
	case BroadcastPrivate:
		if err := b.sendPrivate(ctx, signed); err == nil {
			return nil
		}
		return b.public.SendTransaction(ctx, signed)
	case BroadcastBundle:
		coinbaseDiff, reverted, err := b.bundleSim.SimulateBundle(ctx, signed)
		if err != nil {
			return fmt.Errorf("executor: simulate bundle: %w", err)
		}
		if reverted || coinbaseDiff <= 0 {
			return fmt.Errorf("executor: bundle simulation unprofitable or reverting (coinbaseDiff=%d reverted=%v)", coinbaseDiff, reverted)
		}
		if err := b.sendPrivate(ctx, signed); err == nil {
			return nil
		}
		return b.public.SendTransaction(ctx, signed)
	default:
		return b.public.SendTransaction(ctx, signed)
	}
}

func (b *Broadcaster) sendPrivate(ctx context.Context, signed *types.Transaction) error {
	if len(b.privateEndpoints) == 0 {
		return fmt.Errorf("executor: no private endpoints configured")
	}

	maxBlock := uint64(0)
	if b.currentBlock != nil {
		if n, err := b.currentBlock(ctx); err == nil {
			maxBlock = n + 10
		}
	}

	b.mu.Lock()
	start := b.nextPrivate
	b.mu.Unlock()

	var lastErr error
	for i := 0; i < len(b.privateEndpoints); i++ {
		idx := (start + i) % len(b.privateEndpoints)
		if err := b.privateEndpoints[idx].SendPrivateTransaction(ctx, signed, maxBlock); err == nil {
			b.mu.Lock()
			b.nextPrivate = (idx + 1) % len(b.privateEndpoints)
			b.mu.Unlock()
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("executor: all private endpoints failed: %w", lastErr)
}
