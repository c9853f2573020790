// Package profitengine implements the ProfitEngine component (SPEC_FULL.md §4.3): pure,
// network-free opportunity detection and sizing over the pool snapshot. Grounded on the
// spread/fee-threshold prefilter and golden-section sizing described in SPEC_FULL.md §4.3,
// with the underlying swap math and search delegated to internal/ammmath.
package profitengine

import (
	"math/big"
	"sort"

	basearb "basearb"
	"basearb/internal/ammmath"
)

// Config bounds the search and floor-filtering behaviour.
type Config struct {
	// SpreadMultiplier is the prefilter's fee-coverage multiplier (default 1.5).
	SpreadMultiplier float64
	// XMin is the minimum borrow amount considered, in the borrowed token's smallest unit.
	XMin *big.Int
	// XMaxCap is the configured absolute ceiling on borrow amount.
	XMaxCap *big.Int
	// LiquidityFraction bounds x_max at this fraction of the lesser pool's liquidity
	// (default 0.10 — never size more than ~10% of available L).
	LiquidityFraction float64
	// MaxIterations and Tolerance bound the golden-section search (defaults 30 and 1e15,
	// i.e. 10^-3 of an 18-decimal token; Tolerance is in the borrowed token's smallest unit).
	MaxIterations int
	Tolerance     float64
	// ProfitFloor is the absolute minimum net profit (in the borrowed token's smallest
	// unit) an opportunity must clear to be emitted.
	ProfitFloor *big.Int
	// FlashFeeRate is the flash-loan fee rate, expressed as a fraction (e.g. 0.0005 for
	// 5 bps), charged on the borrowed amount.
	FlashFeeRate float64
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		SpreadMultiplier:  1.5,
		XMin:              big.NewInt(1e16), // ~0.01 of an 18-decimal token
		XMaxCap:           new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil),
		LiquidityFraction: 0.10,
		MaxIterations:     30,
		Tolerance:         1e15,
		ProfitFloor:       big.NewInt(0),
		FlashFeeRate:      0.0005,
	}
}

// pairedPool bundles a pool with its live snapshot and price, precomputed once per cycle.
type pairedPool struct {
	pool     *basearb.Pool
	snapshot basearb.PoolSnapshot
	price    float64
}

// Engine runs the pure sizing/detection pass over an externally supplied pool set.
type Engine struct {
	cfg Config
}

// New builds a ProfitEngine with the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Scan partitions pools by canonical pair, sizes every candidate pair's spread, and
// returns every opportunity clearing the profit floor sorted by descending net profit.
func (e *Engine) Scan(pools []*basearb.Pool) []basearb.RawOpportunity {
	groups := groupByPair(pools)

	var out []basearb.RawOpportunity
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				opp, ok := e.sizePair(group[i], group[j])
				if ok {
					out = append(out, opp)
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetProfitEstimate.Cmp(out[j].NetProfitEstimate) > 0
	})
	return out
}

func groupByPair(pools []*basearb.Pool) map[basearb.PairKey][]pairedPool {
	groups := make(map[basearb.PairKey][]pairedPool)
	for _, p := range pools {
		snap := p.Snapshot()
		if snap.Uninitialised() {
			continue
		}
		key := basearb.PairKey{Token0: p.Token0, Token1: p.Token1}
		groups[key] = append(groups[key], pairedPool{
			pool:     p,
			snapshot: snap,
			price:    ammmath.PriceToken0PerToken1(snap.SqrtPriceX96, p.Dec0, p.Dec1),
		})
	}
	return groups
}

// sizePair evaluates both directions (A low / B high, and vice versa) and returns the
// better of the two, if either clears the spread prefilter and the profit floor.
func (e *Engine) sizePair(a, b pairedPool) (basearb.RawOpportunity, bool) {
	priceA, priceB := a.price, b.price
	if priceA == 0 || priceB == 0 {
		return basearb.RawOpportunity{}, false
	}

	spread := absFloat(priceA-priceB) / minFloat(priceA, priceB)
	feeThreshold := e.cfg.SpreadMultiplier * float64(a.pool.Fee+b.pool.Fee) / 10000.0 / 100.0
	if spread < feeThreshold {
		return basearb.RawOpportunity{}, false
	}

	low, high := a, b
	if priceA > priceB {
		low, high = b, a
	}

	bestDir1, ok1 := e.search(low, high, true)
	bestDir2, ok2 := e.search(low, high, false)

	switch {
	case ok1 && ok2:
		if bestDir1.NetProfitEstimate.Cmp(bestDir2.NetProfitEstimate) >= 0 {
			return bestDir1, true
		}
		return bestDir2, true
	case ok1:
		return bestDir1, true
	case ok2:
		return bestDir2, true
	default:
		return basearb.RawOpportunity{}, false
	}
}

// search runs the golden-section optimisation for one direction across the (low, high)
// price pools and returns a RawOpportunity if the best-observed net profit clears the
// configured floor.
func (e *Engine) search(low, high pairedPool, zeroForOne bool) (basearb.RawOpportunity, bool) {
	xMin, xMax := e.bounds(low, high)
	if xMin >= xMax {
		return basearb.RawOpportunity{}, false
	}

	sqrtLow := ammmath.SqrtPriceX96ToFloat(low.snapshot.SqrtPriceX96)
	sqrtHigh := ammmath.SqrtPriceX96ToFloat(high.snapshot.SqrtPriceX96)
	liqLow := new(big.Float).SetInt(low.snapshot.Liquidity)
	liqLowF, _ := liqLow.Float64()
	liqHigh := new(big.Float).SetInt(high.snapshot.Liquidity)
	liqHighF, _ := liqHigh.Float64()

	flashFeeRate := e.cfg.FlashFeeRate
	objective := func(x float64) float64 {
		xPrime1 := ammmath.FeeAdjustedInput(x, low.pool.Fee)
		swap1Out := ammmath.SingleTickSwapOut(xPrime1, sqrtLow, liqLowF, zeroForOne)

		xPrime2 := ammmath.FeeAdjustedInput(swap1Out, high.pool.Fee)
		swap2Out := ammmath.SingleTickSwapOut(xPrime2, sqrtHigh, liqHighF, !zeroForOne)

		flashFee := x * flashFeeRate
		return swap2Out - x - flashFee
	}

	result := ammmath.GoldenSectionSearch(objective, xMin, xMax, e.cfg.MaxIterations, e.cfg.Tolerance)
	if result.BestVal <= 0 {
		return basearb.RawOpportunity{}, false
	}

	netProfit := floatToBigInt(result.BestVal)
	if e.cfg.ProfitFloor != nil && netProfit.Cmp(e.cfg.ProfitFloor) < 0 {
		return basearb.RawOpportunity{}, false
	}

	amountIn := floatToBigInt(result.BestX)
	xPrime1 := ammmath.FeeAdjustedInput(result.BestX, low.pool.Fee)
	swap1Out := ammmath.SingleTickSwapOut(xPrime1, sqrtLow, liqLowF, zeroForOne)
	xPrime2 := ammmath.FeeAdjustedInput(swap1Out, high.pool.Fee)
	swap2Out := ammmath.SingleTickSwapOut(xPrime2, sqrtHigh, liqHighF, !zeroForOne)

	direction := basearb.ZeroForOne
	borrowToken := low.pool.Token0
	label := "token0->token1 low, token1->token0 high"
	if !zeroForOne {
		direction = basearb.OneForZero
		borrowToken = low.pool.Token1
		label = "token1->token0 low, token0->token1 high"
	}

	return basearb.RawOpportunity{
		PoolLow:           low.pool,
		PoolHigh:          high.pool,
		BorrowToken:       borrowToken,
		Direction:         direction,
		AmountIn:          amountIn,
		Swap1Out:          floatToBigInt(swap1Out),
		Swap2Out:          floatToBigInt(swap2Out),
		FlashFee:          floatToBigInt(result.BestX * flashFeeRate),
		NetProfitEstimate: netProfit,
		DirectionLabel:    label,
	}, true
}

// floatToBigInt converts a float64 token-unit amount to its exact-integer big.Int form
// via big.Float, avoiding int64's silent overflow/wraparound above ~9.2e18 — amounts
// this engine sizes (e.g. 10% of an 18-decimal pool's liquidity) routinely exceed that.
func floatToBigInt(x float64) *big.Int {
	i, _ := new(big.Float).SetFloat64(x).Int(nil)
	return i
}

// bounds computes [x_min, x_max] per SPEC_FULL.md §4.3: the configured floor, and the
// lesser of the configured cap or 10% of the lower of the two pools' liquidity.
func (e *Engine) bounds(low, high pairedPool) (float64, float64) {
	xMinF, _ := new(big.Float).SetInt(e.cfg.XMin).Float64()
	xMaxCapF, _ := new(big.Float).SetInt(e.cfg.XMaxCap).Float64()

	liqLowF, _ := new(big.Float).SetInt(low.snapshot.Liquidity).Float64()
	liqHighF, _ := new(big.Float).SetInt(high.snapshot.Liquidity).Float64()
	liquidityBound := minFloat(liqLowF, liqHighF) * e.cfg.LiquidityFraction

	xMax := minFloat(xMaxCapF, liquidityBound)
	return xMinF, xMax
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
