// Package privaterelay implements the Executor's PrivateSender/BundleSimulator
// capabilities against a Flashbots-style private-transaction relay: eth_sendPrivateTransaction
// for private broadcast, eth_callBundle for bundle simulation. No single corpus file covers
// this JSON-RPC surface; it is built directly on go-ethereum's rpc.Client, the same
// transport the teacher already depends on for ethclient itself.
package privaterelay

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client submits private transactions and bundle simulations to one relay endpoint.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a private relay's JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("privaterelay: dial %s: %w", url, err)
	}
	return &Client{rpc: c}, nil
}

// SendPrivateTransaction submits signed to the relay outside the public mempool, valid
// through maxBlockNumber (0 means no expiry hint is sent).
func (c *Client) SendPrivateTransaction(ctx context.Context, signed *types.Transaction, maxBlockNumber uint64) error {
	raw, err := signed.MarshalBinary()
	if err != nil {
		return fmt.Errorf("privaterelay: encode tx: %w", err)
	}

	params := map[string]interface{}{"tx": fmt.Sprintf("0x%x", raw)}
	if maxBlockNumber > 0 {
		params["maxBlockNumber"] = fmt.Sprintf("0x%x", maxBlockNumber)
	}
	if err := c.rpc.CallContext(ctx, nil, "eth_sendPrivateTransaction", params); err != nil {
		return fmt.Errorf("privaterelay: eth_sendPrivateTransaction: %w", err)
	}
	return nil
}

type bundleResult struct {
	CoinbaseDiff string `json:"coinbaseDiff"`
	Results      []struct {
		Error  string `json:"error"`
		Revert string `json:"revert"`
	} `json:"results"`
}

// SimulateBundle simulates signed as a single-transaction bundle, reporting the
// coinbase diff (searcher payment to the block builder) and whether any transaction in
// the bundle reverted.
func (c *Client) SimulateBundle(ctx context.Context, signed *types.Transaction) (coinbaseDiff int64, reverted bool, err error) {
	raw, err := signed.MarshalBinary()
	if err != nil {
		return 0, false, fmt.Errorf("privaterelay: encode tx: %w", err)
	}

	var result bundleResult
	params := map[string]interface{}{"txs": []string{fmt.Sprintf("0x%x", raw)}}
	if err := c.rpc.CallContext(ctx, &result, "eth_callBundle", params); err != nil {
		return 0, false, fmt.Errorf("privaterelay: eth_callBundle: %w", err)
	}

	for _, r := range result.Results {
		if r.Error != "" || r.Revert != "" {
			reverted = true
		}
	}

	diff, ok := new(big.Int).SetString(strings.TrimPrefix(result.CoinbaseDiff, "0x"), 16)
	if !ok {
		diff = big.NewInt(0)
	}
	return diff.Int64(), reverted, nil
}

// Close releases the underlying JSON-RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}
