// Command basearb runs the flash-arbitrage engine end to end: it discovers the
// configured pool universe, scans every tick for a profitable cycle, re-verifies each
// candidate against live cost inputs, and executes the survivors. Wiring mirrors the
// teacher's cmd/main.go shape (decrypt signer -> load config -> dial RPC -> build engine
// -> run), adapted from the teacher's single-strategy Blackhole wiring to this engine's
// component graph.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	basearb "basearb"
	"basearb/configs"
	"basearb/engine"
	"basearb/internal/l1cost"
	"basearb/internal/metrics"
	"basearb/internal/store"
	"basearb/internal/util"
	"basearb/pkg/executor"
	"basearb/pkg/multicall"
	"basearb/pkg/poolregistry"
	"basearb/pkg/privaterelay"
	"basearb/pkg/profitengine"
	"basearb/pkg/rpcfailover"
	"basearb/pkg/safety"
	"basearb/pkg/stateupdater"
)

const (
	exitOK             = 0
	exitInitFailure    = 1
	exitRuntimeFailure = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	log, err := buildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "basearb: build logger: %v\n", err)
		return exitInitFailure
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return exitInitFailure
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng, metricsSrv, reportCh, err := buildEngine(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build engine", zap.Error(err))
		return exitInitFailure
	}

	if metricsSrv != nil {
		go func() {
			if err := metricsSrv.Start(); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer metricsSrv.Stop(context.Background())
	}

	go func() {
		for msg := range reportCh {
			log.Info("engine report", zap.String("event", msg))
		}
	}()

	if err := eng.Run(ctx); err != nil {
		log.Error("engine exited with error", zap.Error(err))
		return exitRuntimeFailure
	}
	return exitOK
}

func buildLogger() (*zap.Logger, error) {
	if os.Getenv("DEBUG_MODE") == "true" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig() (*configs.Config, error) {
	encryptedPK := os.Getenv("ENC_PK")
	if encryptedPK == "" {
		return nil, fmt.Errorf("basearb: ENC_PK not set")
	}
	key := os.Getenv("KEY")
	if key == "" {
		return nil, fmt.Errorf("basearb: KEY not set")
	}
	plainPK, err := util.Decrypt([]byte(key), encryptedPK)
	if err != nil {
		return nil, fmt.Errorf("basearb: decrypt private key: %w", err)
	}

	cfg, err := configs.LoadConfig("configs/config.yml", ".env")
	if err != nil {
		return nil, fmt.Errorf("basearb: load config: %w", err)
	}
	cfg.PrivateKey = plainPK
	return cfg, nil
}

// buildEngine wires every component graph node together. It dials the RPC endpoints and
// the MySQL store itself, so both must be reachable when it runs.
func buildEngine(ctx context.Context, cfg *configs.Config, log *zap.Logger) (*engine.Engine, *metrics.Server, chan string, error) {
	signer, err := crypto.ToECDSA(util.Hex2Bytes(cfg.PrivateKey))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("basearb: parse private key: %w", err)
	}
	from := crypto.PubkeyToAddress(signer.PublicKey)

	rpcClient, err := rpcfailover.New(cfg.RPCURLs,
		rpcfailover.WithMaxRetries(cfg.MaxRetries),
		rpcfailover.WithRateLimit(cfg.RPCRateLimitPerSec, cfg.RPCRateLimitBurst),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("basearb: dial RPC endpoints: %w", err)
	}
	eth := rpcClient.Current()

	mc, err := multicall.NewClient(eth, common.HexToAddress(cfg.Static.Multicall3))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("basearb: build multicall client: %w", err)
	}

	registry := poolregistry.New(common.HexToAddress(cfg.Static.V3Factory), common.HexToHash(cfg.Static.PoolInitCodeHash))
	if err := registry.Discover(ctx, mc, cfg.PoolSpecs()); err != nil {
		return nil, nil, nil, fmt.Errorf("basearb: discover pools: %w", err)
	}

	updater := stateupdater.New(registry, mc)

	profitCfg := profitengine.DefaultConfig()
	profitCfg.ProfitFloor = ethToWei(cfg.MinProfitETH)
	profitCfg.XMin = ethToWei(cfg.MinBorrowETH)
	profitCfg.XMaxCap = ethToWei(cfg.MaxBorrowETH)
	profitEngine := profitengine.New(profitCfg)

	safetyCfg := safety.DefaultConfig(common.HexToAddress(cfg.Static.QuoterV2))
	safetyCfg.SlippageBps = cfg.SlippageToleranceBps
	safetyLayer := safety.New(safetyCfg, mc)

	broadcaster, err := buildBroadcaster(ctx, cfg, eth)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("basearb: build broadcaster: %w", err)
	}

	execCfg := executor.DefaultConfig()
	execCfg.GasLimit = cfg.GasLimit
	execCfg.SniperMultiplierPct = int(cfg.SniperModeMultiplier * 100)
	execCfg.MaxFeeCapWei = gweiToWei(cfg.MaxGasGwei)
	execCfg.ReplacementFeeCapWei = gweiToWei(cfg.TxMaxGasGwei)
	execCfg.BumpPct = cfg.TxSpeedupGasBumpPct
	execCfg.InitialWait = cfg.TxInitialWait
	execCfg.SpeedupInterval = cfg.TxSpeedupInterval
	execCfg.MaxSpeedupAttempts = cfg.TxMaxSpeedupAttempts
	execCfg.TotalWallClockCap = cfg.TxTotalTimeout
	execCfg.StrictSimulationCheck = cfg.StrictSimulationCheck

	gasCache := basearb.NewGasCache(1 * time.Second)
	nonceCache := basearb.NewNonceCache(2 * time.Second)

	executorInstance := executor.New(
		execCfg, eth, eth, mc, broadcaster, eth, gasCache, nonceCache, signer, from,
		executor.Contracts{
			Router:  common.HexToAddress(cfg.Static.SwapRouter),
			Own:     common.HexToAddress(cfg.Static.FlashbotAddress),
			ChainID: cfg.ChainID,
		},
	)

	recorder, err := store.NewMySQLRecorder(cfg.MySQLDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("basearb: connect execution-attempt store: %w", err)
	}

	l1Params := basearb.NewL1FeeParams(2 * time.Second)
	costSource := buildCostSource(eth, l1Params)

	engineCfg := engine.DefaultConfig()
	engineCfg.ScanInterval = cfg.ScanInterval
	engineCfg.ConsecutiveFailureThreshold = cfg.MaxConsecutiveFailures
	engineCfg.LongCooldown = cfg.FailurePauseDuration

	reportCh := make(chan string, 64)
	eng := engine.New(engineCfg, registry, updater, profitEngine, safetyLayer, executorInstance, recorder, costSource, log, reportCh, cfg.MaxTxPerHour)

	return eng, metrics.NewServer(cfg.MetricsAddr), reportCh, nil
}

func buildBroadcaster(ctx context.Context, cfg *configs.Config, eth *ethclient.Client) (*executor.Broadcaster, error) {
	currentBlock := func(ctx context.Context) (uint64, error) { return eth.BlockNumber(ctx) }

	if !cfg.PrivateTxEnabled {
		return executor.NewBroadcaster(executor.BroadcastPublic, eth, nil, nil, currentBlock), nil
	}

	privateClient, err := privaterelay.Dial(ctx, cfg.PrivateRPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial private relay: %w", err)
	}

	if cfg.BundleSimulationRPC == "" {
		return executor.NewBroadcaster(executor.BroadcastPrivate, eth, []executor.PrivateSender{privateClient}, nil, currentBlock), nil
	}

	bundleClient, err := privaterelay.Dial(ctx, cfg.BundleSimulationRPC)
	if err != nil {
		return nil, fmt.Errorf("dial bundle simulator: %w", err)
	}
	return executor.NewBroadcaster(executor.BroadcastBundle, eth, []executor.PrivateSender{privateClient}, bundleClient, currentBlock), nil
}

func buildCostSource(eth *ethclient.Client, cache *basearb.L1FeeParams) engine.CostSource {
	return func(ctx context.Context) (safety.CostInputs, error) {
		if cache.Stale() {
			l1BaseFee, overhead, scalar, err := l1cost.FetchParams(ctx, eth)
			if err != nil {
				return safety.CostInputs{}, fmt.Errorf("fetch L1 cost params: %w", err)
			}
			cache.Set(l1BaseFee.ToBig(), overhead.ToBig(), scalar.ToBig(), nil)
		}

		l1BaseFeeBig, overheadBig, scalarBig, tokenRatioBig := cache.Get()
		l2GasPrice, err := eth.SuggestGasPrice(ctx)
		if err != nil {
			return safety.CostInputs{}, fmt.Errorf("suggest L2 gas price: %w", err)
		}

		inputs := safety.CostInputs{
			L2GasPrice: bigToUint256(l2GasPrice),
			L1BaseFee:  bigToUint256(l1BaseFeeBig),
			L1Overhead: bigToUint256(overheadBig),
			L1Scalar:   bigToUint256(scalarBig),
		}
		if tokenRatioBig != nil {
			inputs.TokenRatio = bigToUint256(tokenRatioBig)
		}
		return inputs, nil
	}
}

func bigToUint256(v *big.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	out, _ := uint256.FromBig(v)
	return out
}

func ethToWei(eth float64) *big.Int {
	wei := new(big.Float).Mul(big.NewFloat(eth), big.NewFloat(1e18))
	out, _ := wei.Int(nil)
	return out
}

func gweiToWei(gwei float64) *big.Int {
	wei := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(1e9))
	out, _ := wei.Int(nil)
	return out
}
