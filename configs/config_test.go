package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
v3Factory: "0xFACT"
swapRouter: "0xR"
quoterV2: "0xQ"
multicall3: "0xcA11bde05977b3631167028862bE2a173976CA11"
weth: "0xWETH"
poolInitCodeHash: "0xHASH"
flashbotAddress: "0xFB"
tokens:
  - symbol: USDC
    address: "0xUSDC"
    decimals: 6
    feeTiers: [500, 3000]
`

func writeTestYAML(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o644))
	return path
}

func TestLoadConfigResolvesStaticAndEnv(t *testing.T) {
	t.Setenv("RPC_URL", "https://a.example,https://b.example")
	t.Setenv("CHAIN_ID", "8453")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(127.0.0.1:3306)/db")
	t.Setenv("MIN_PROFIT_ETH", "0.005")

	cfg, err := LoadConfig(writeTestYAML(t), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.RPCURLs)
	assert.Equal(t, "8453", cfg.ChainID.String())
	assert.Equal(t, 0.005, cfg.MinProfitETH)
	assert.Equal(t, "0xFACT", cfg.Static.V3Factory)
}

func TestLoadConfigRejectsMissingRPCURL(t *testing.T) {
	t.Setenv("RPC_URL", "")
	t.Setenv("CHAIN_ID", "8453")
	t.Setenv("MYSQL_DSN", "dsn")

	_, err := LoadConfig(writeTestYAML(t), filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestPoolSpecsPairsEveryTokenAgainstWETH(t *testing.T) {
	t.Setenv("RPC_URL", "https://a.example")
	t.Setenv("CHAIN_ID", "8453")
	t.Setenv("MYSQL_DSN", "dsn")

	cfg, err := LoadConfig(writeTestYAML(t), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	specs := cfg.PoolSpecs()
	assert.Len(t, specs, 2) // one token, two fee tiers
	assert.Equal(t, uint32(500), specs[0].Fee)
}
