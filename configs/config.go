// Package configs loads the engine's static pool/token universe from a YAML file and its
// runtime tunables and secrets from the environment, the way the teacher's
// configs/config.go loads a YAML file and original_source/core/config_loader.py layers
// environment variables (via godotenv) over a static file for secret management.
package configs

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"basearb/errs"
	"basearb/pkg/poolregistry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// TokenYAML is one entry of the static token universe.
type TokenYAML struct {
	Symbol   string   `yaml:"symbol"`
	Address  string   `yaml:"address"`
	Decimals uint8    `yaml:"decimals"`
	FeeTiers []uint32 `yaml:"feeTiers"`
}

// StaticConfig is the YAML-sourced part of the configuration: the pool/token universe and
// the contract addresses they're discovered against. None of this is secret.
type StaticConfig struct {
	V3Factory        string      `yaml:"v3Factory"`
	SwapRouter       string      `yaml:"swapRouter"`
	QuoterV2         string      `yaml:"quoterV2"`
	Multicall3       string      `yaml:"multicall3"`
	WETH             string      `yaml:"weth"`
	PoolInitCodeHash string      `yaml:"poolInitCodeHash"`
	FlashbotAddress  string      `yaml:"flashbotAddress"`
	Tokens           []TokenYAML `yaml:"tokens"`
}

// Config is the fully resolved configuration: the static YAML universe plus every
// environment-variable tunable and secret enumerated in the operating surface.
type Config struct {
	Static StaticConfig

	RPCURLs    []string // RPC_URL, comma-separated override list for failover
	ChainID    *big.Int
	PrivateKey string // decrypted by the caller before being placed here; never logged

	MinProfitETH       float64
	MinBorrowETH       float64
	MaxBorrowETH       float64
	AmountPrecisionETH float64

	MaxGasGwei float64
	GasLimit   uint64
	TxTimeout  time.Duration

	SniperModeEnabled    bool
	SniperModeMultiplier float64

	SlippageToleranceBps  uint64
	EnforceMinAmountOut   bool
	StrictSimulationCheck bool

	TxSpeedupEnabled     bool
	TxInitialWait        time.Duration
	TxSpeedupInterval    time.Duration
	TxSpeedupGasBumpPct  int
	TxMaxGasGwei         float64
	TxMaxSpeedupAttempts int
	TxTotalTimeout       time.Duration

	PrivateTxEnabled    bool
	PrivateRPCURL       string
	BundleSimulationRPC string

	ScanInterval time.Duration
	DryRun       bool
	DebugMode    bool

	MinLiquidity    *big.Int
	MinLiquidityETH float64

	MaxConsecutiveFailures int
	FailurePauseDuration   time.Duration
	MaxTxPerHour           int
	MinBalanceETH          float64

	RPCTimeout         time.Duration
	MaxRetries         int
	RPCRateLimitPerSec float64
	RPCRateLimitBurst  int

	MySQLDSN   string
	MetricsAddr string
}

// LoadConfig reads the static YAML universe from yamlPath, overlays any .env file found at
// envPath (a missing .env is not an error — it's the normal case in production, where
// secrets arrive as real environment variables), and resolves every remaining tunable from
// the process environment.
func LoadConfig(yamlPath, envPath string) (*Config, error) {
	_ = godotenv.Load(envPath)

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("configs: read %s: %w", yamlPath, err)
	}

	var static StaticConfig
	if err := yaml.Unmarshal(data, &static); err != nil {
		return nil, fmt.Errorf("configs: parse %s: %w", yamlPath, err)
	}

	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		return nil, fmt.Errorf("configs: RPC_URL: %w", errs.ErrMissingConfig)
	}
	chainIDStr := os.Getenv("CHAIN_ID")
	if chainIDStr == "" {
		return nil, fmt.Errorf("configs: CHAIN_ID: %w", errs.ErrMissingConfig)
	}
	chainID, ok := new(big.Int).SetString(chainIDStr, 10)
	if !ok {
		return nil, fmt.Errorf("configs: CHAIN_ID %q is not a valid integer", chainIDStr)
	}
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, fmt.Errorf("configs: MYSQL_DSN: %w", errs.ErrMissingConfig)
	}

	cfg := &Config{
		Static:  static,
		RPCURLs: splitCSV(rpcURL),
		ChainID: chainID,

		MinProfitETH:       getFloat("MIN_PROFIT_ETH", 0.001),
		MinBorrowETH:       getFloat("MIN_BORROW_ETH", 0.01),
		MaxBorrowETH:       getFloat("MAX_BORROW_ETH", 50),
		AmountPrecisionETH: getFloat("AMOUNT_PRECISION_ETH", 0.0001),

		MaxGasGwei: getFloat("MAX_GAS_GWEI", 10),
		GasLimit:   getUint("GAS_LIMIT", 500_000),
		TxTimeout:  getDuration("TX_TIMEOUT", 30*time.Second),

		SniperModeEnabled:    getBool("SNIPER_MODE_ENABLED", true),
		SniperModeMultiplier: getFloat("SNIPER_MODE_MULTIPLIER", 2.0),

		SlippageToleranceBps:  getUint("SLIPPAGE_TOLERANCE_BPS", 50),
		EnforceMinAmountOut:   getBool("ENFORCE_MIN_AMOUNT_OUT", true),
		StrictSimulationCheck: getBool("STRICT_SIMULATION_CHECK", true),

		TxSpeedupEnabled:     getBool("TX_SPEEDUP_ENABLED", true),
		TxInitialWait:        getDuration("TX_INITIAL_WAIT", 5*time.Second),
		TxSpeedupInterval:    getDuration("TX_SPEEDUP_INTERVAL", 3*time.Second),
		TxSpeedupGasBumpPct:  int(getUint("TX_SPEEDUP_GAS_BUMP_PCT", 15)),
		TxMaxGasGwei:         getFloat("TX_MAX_GAS_GWEI", 50),
		TxMaxSpeedupAttempts: int(getUint("TX_MAX_SPEEDUP_ATTEMPTS", 5)),
		TxTotalTimeout:       getDuration("TX_TOTAL_TIMEOUT", 120*time.Second),

		PrivateTxEnabled:    getBool("PRIVATE_TX_ENABLED", false),
		PrivateRPCURL:       os.Getenv("PRIVATE_RPC_URL"),
		BundleSimulationRPC: os.Getenv("BUNDLE_SIMULATION_RPC"),

		ScanInterval: getDuration("SCAN_INTERVAL", time.Second),
		DryRun:       getBool("DRY_RUN", false),
		DebugMode:    getBool("DEBUG_MODE", false),

		MinLiquidity:    getBigInt("MIN_LIQUIDITY", big.NewInt(0)),
		MinLiquidityETH: getFloat("MIN_LIQUIDITY_ETH", 0.1),

		MaxConsecutiveFailures: int(getUint("MAX_CONSECUTIVE_FAILURES", 5)),
		FailurePauseDuration:   getDuration("FAILURE_PAUSE_DURATION", 10*time.Minute),
		MaxTxPerHour:           int(getUint("MAX_TX_PER_HOUR", 60)),
		MinBalanceETH:          getFloat("MIN_BALANCE_ETH", 0.05),

		RPCTimeout:         getDuration("RPC_TIMEOUT", 10*time.Second),
		MaxRetries:         int(getUint("MAX_RETRIES", 5)),
		RPCRateLimitPerSec: getFloat("RPC_RATE_LIMIT_PER_SEC", 20),
		RPCRateLimitBurst:  int(getUint("RPC_RATE_LIMIT_BURST", 5)),

		MySQLDSN:    mysqlDSN,
		MetricsAddr: getString("METRICS_ADDR", ":9090"),
	}

	return cfg, nil
}

// PoolSpecs converts the static token universe into every (tokenA, tokenB, fee) candidate
// the PoolRegistry should attempt to derive and discover, pairing every token against the
// configured WETH address across each token's declared fee tiers.
func (c *Config) PoolSpecs() []poolregistry.PoolSpec {
	weth := common.HexToAddress(c.Static.WETH)
	var specs []poolregistry.PoolSpec
	for _, tok := range c.Static.Tokens {
		addr := common.HexToAddress(tok.Address)
		for _, fee := range tok.FeeTiers {
			specs = append(specs, poolregistry.PoolSpec{
				TokenA: addr, TokenB: weth, Fee: fee,
				DecA: tok.Decimals, DecB: 18,
			})
		}
	}
	return specs
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getUint(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getBigInt(key string, def *big.Int) *big.Int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return def
	}
	return n
}
