// Package ammmath implements the ProfitEngine's local, network-free AMM math: the
// single-tick swap approximation and the golden-section search used to size the
// optimal borrow amount. There is no corpus precedent for golden-section search in the
// retrieval pack; this package follows the textual description of the search directly,
// cross-checked against the single-tick formulas used throughout the pack's
// concentrated-liquidity code (e.g. the quoter/pool math in other example repos).
package ammmath

import (
	"math"
	"math/big"
)

// Q96 is 2^96, the fixed-point scale of sqrtPriceX96.
var Q96 = new(big.Float).SetFloat64(math.Exp2(96))

// feeDenominator is the fixed-point denominator fee tiers are expressed in (1/1,000,000).
const feeDenominator = 1_000_000

// SqrtPriceX96ToFloat normalises a raw sqrtPriceX96 integer to a plain float64,
// i.e. sqrtPriceX96 / 2^96.
func SqrtPriceX96ToFloat(sqrtPriceX96 *big.Int) float64 {
	if sqrtPriceX96 == nil {
		return 0
	}
	f := new(big.Float).SetInt(sqrtPriceX96)
	f.Quo(f, Q96)
	v, _ := f.Float64()
	return v
}

// PriceToken0PerToken1 computes price(token0->token1) = sqrtPriceX96^2 * 10^(dec0-dec1) / 2^192,
// using double-precision floats as required by the spec's StateUpdater decoding step.
func PriceToken0PerToken1(sqrtPriceX96 *big.Int, dec0, dec1 uint8) float64 {
	sqrtP := SqrtPriceX96ToFloat(sqrtPriceX96)
	price := sqrtP * sqrtP
	decAdj := math.Pow10(int(dec0) - int(dec1))
	return price * decAdj
}

// FeeAmount computes the exact integer fee charged on an input amount x at the given
// fee tier, truncating per integer division: fee_amount = x * fee / 1_000_000.
func FeeAmount(x *big.Int, fee uint32) *big.Int {
	out := new(big.Int).Mul(x, big.NewInt(int64(fee)))
	return out.Div(out, big.NewInt(feeDenominator))
}

// FeeAdjustedInput computes x' = x * (1 - fee/1e6) as a float64, used only in the
// float-normalised search phase; final accounting uses FeeAmount's exact integer form.
func FeeAdjustedInput(x float64, fee uint32) float64 {
	return x * (1 - float64(fee)/feeDenominator)
}

// SingleTickSwapOut approximates the output of swapping x (already fee-adjusted) of one
// token for the other within the current tick, per SPEC_FULL.md §4.3. sqrtP and L are
// the float-normalised current price and liquidity. Returns 0 in any degenerate case
// (L<=0, sqrtP<=0, division by zero, or a non-positive resulting price) rather than
// panicking or returning NaN/Inf.
func SingleTickSwapOut(xPrime, sqrtP, liquidity float64, zeroForOne bool) float64 {
	if liquidity <= 0 || sqrtP <= 0 || xPrime <= 0 {
		return 0
	}
	if zeroForOne {
		denom := liquidity + xPrime*sqrtP
		if denom <= 0 {
			return 0
		}
		sqrtPNew := liquidity * sqrtP / denom
		if sqrtPNew <= 0 {
			return 0
		}
		out := liquidity * (sqrtP - sqrtPNew)
		if out < 0 {
			return 0
		}
		return out
	}

	sqrtPNew := sqrtP + xPrime/liquidity
	if sqrtPNew <= 0 {
		return 0
	}
	out := liquidity * (1/sqrtP - 1/sqrtPNew)
	if out < 0 {
		return 0
	}
	return out
}

// SwapOut is SingleTickSwapOut composed with fee adjustment, taking the raw (pre-fee)
// input amount x and the pool's fee tier.
func SwapOut(x, sqrtP, liquidity float64, fee uint32, zeroForOne bool) float64 {
	return SingleTickSwapOut(FeeAdjustedInput(x, fee), sqrtP, liquidity, zeroForOne)
}

const invPhi = 0.6180339887498949 // (sqrt(5)-1)/2
const invPhi2 = 0.3819660112501051 // 1 - invPhi

// GoldenSectionResult carries the best input/value pair observed across all iterations,
// not merely the final bracket midpoint: floating-point noise can produce minor
// non-monotonicities near the optimum, and the spec requires tracking the best-seen
// point rather than trusting the final bracket alone.
type GoldenSectionResult struct {
	BestX   float64
	BestVal float64
	// PointsTracked counts the candidate points evaluated and compared against the
	// best-seen value (the two initial bracket points plus one per loop iteration) —
	// not the number of narrowing iterations itself.
	PointsTracked int
}

// GoldenSectionSearch maximises objective over [xMin, xMax] using golden-section search,
// for at most maxIter iterations or until the bracket width falls below tol. A
// pathological xMin >= xMax degenerates to evaluating the single endpoint rather than
// looping.
func GoldenSectionSearch(objective func(float64) float64, xMin, xMax float64, maxIter int, tol float64) GoldenSectionResult {
	if xMin >= xMax {
		v := objective(xMin)
		return GoldenSectionResult{BestX: xMin, BestVal: v, PointsTracked: 0}
	}

	a, b := xMin, xMax
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc := objective(c)
	fd := objective(d)

	best := GoldenSectionResult{}
	track := func(x, v float64) {
		if x < xMin || x > xMax {
			return
		}
		if best.PointsTracked == 0 || v > best.BestVal {
			best.BestX = x
			best.BestVal = v
		}
		best.PointsTracked++
	}
	track(c, fc)
	track(d, fd)

	for i := 0; i < maxIter && (b-a) > tol; i++ {
		if fc > fd {
			b = d
			d = c
			fd = fc
			c = b - invPhi*(b-a)
			fc = objective(c)
			track(c, fc)
		} else {
			a = c
			c = d
			fc = fd
			d = a + invPhi*(b-a)
			fd = objective(d)
			track(d, fd)
		}
	}

	return best
}
