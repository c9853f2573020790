// Package l1cost implements the OP-Stack L1 data-fee model used by the SafetyLayer's
// cost accounting (SPEC_FULL.md §4.4). It is grounded directly on op-geth's
// core/types/rollup_cost.go: the same RollupCostData shape, the same DataGas byte
// weights, and the same L1Cost formula, reimplemented against github.com/holiman/uint256
// instead of being tied to state-database plumbing this engine doesn't have.
package l1cost

import "github.com/holiman/uint256"

const (
	// txDataZeroGas is the gas charged per zero byte of calldata (EIP-2028 unchanged
	// this byte weight from the legacy rule).
	txDataZeroGas = 4
	// txDataNonZeroGasEIP2028 is the gas charged per non-zero byte of calldata post
	// EIP-2028.
	txDataNonZeroGasEIP2028 = 16

	// L1BlockAddr and GasPriceOracleAddr are the fixed predeploy addresses on every
	// OP-Stack chain, per SPEC_FULL.md §3.
	L1BlockAddr      = "0x4200000000000000000000000000000000000015"
	GasPriceOracleAddr = "0x420000000000000000000000000000000000000F"
)

// RollupCostData is the byte-composition summary of a transaction's RLP encoding that
// the L1 data fee is computed from: how many zero bytes and how many non-zero bytes.
type RollupCostData struct {
	Zeroes uint64
	Ones   uint64
}

// NewRollupCostData scans raw transaction bytes and tallies zero vs non-zero bytes.
func NewRollupCostData(data []byte) RollupCostData {
	var r RollupCostData
	for _, b := range data {
		if b == 0 {
			r.Zeroes++
		} else {
			r.Ones++
		}
	}
	return r
}

// DataGas is the L1 calldata-publishing gas charge for this data, before overhead.
func (r RollupCostData) DataGas() uint64 {
	return r.Zeroes*txDataZeroGas + r.Ones*txDataNonZeroGasEIP2028
}

// L1Cost computes the L1 data fee in wei:
//
//	L1Cost = ((dataGas + overhead) * l1BaseFee * scalar * tokenRatio) / 1_000_000
//
// matching op-geth's L1Cost function exactly, with tokenRatio defaulting to 1 on chains
// that don't use a custom fee token.
func L1Cost(rollupDataGas uint64, l1BaseFee, overhead, scalar, tokenRatio *uint256.Int) *uint256.Int {
	if tokenRatio == nil {
		tokenRatio = uint256.NewInt(1)
	}
	gasWithOverhead := new(uint256.Int).AddUint64(overhead, rollupDataGas)
	cost := new(uint256.Int).Mul(gasWithOverhead, l1BaseFee)
	cost.Mul(cost, scalar)
	cost.Mul(cost, tokenRatio)
	return cost.Div(cost, uint256.NewInt(1_000_000))
}

// L1CostFromTxBytes is a convenience wrapper combining NewRollupCostData and L1Cost for
// a full serialised transaction.
func L1CostFromTxBytes(txBytes []byte, l1BaseFee, overhead, scalar, tokenRatio *uint256.Int) *uint256.Int {
	data := NewRollupCostData(txBytes)
	return L1Cost(data.DataGas(), l1BaseFee, overhead, scalar, tokenRatio)
}

// EstimateDataGas approximates data_gas for calldata not yet wrapped in a full
// transaction by assuming equal numbers of zero and non-zero bytes: the average of
// txDataZeroGas and txDataNonZeroGasEIP2028 is exactly 10 gas per byte.
func EstimateDataGas(calldataLen int) uint64 {
	const avgBytePerByteGas = (txDataZeroGas + txDataNonZeroGasEIP2028) / 2
	return uint64(calldataLen) * avgBytePerByteGas
}
