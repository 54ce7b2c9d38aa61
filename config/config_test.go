package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"jarvault/native/jar"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.NotEmpty(t, cfg.DataDir)
	require.Equal(t, 600, cfg.RateLimitPerMinute)
	require.FileExists(t, path)

	// A second load round-trips the written file.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, again.RPCAddress)
}

func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "RPCAddress = \":9999\"\nDataDir = \"/tmp/jars\"\nRateLimitPerMinute = 42\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.RPCAddress)
	require.Equal(t, "/tmp/jars", cfg.DataDir)
	require.Equal(t, 42, cfg.RateLimitPerMinute)
	require.Equal(t, uint64(1), cfg.ScorePointBps)
}

func TestTokenFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "RPCAddress = \":9999\"\nDataDir = \"/tmp/jars\"\nRPCAuthToken = \"from-file\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv(rpcTokenEnv, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.RPCAuthToken)
}

func TestValidateRejectsBadContract(t *testing.T) {
	err := Validate(&Config{RPCAddress: ":1", DataDir: "/tmp", ContractAddress: "not-bech32"})
	require.Error(t, err)
}

func TestGenesisBuildProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	body := `
products:
  - id: fixed-90
    enabled: true
    capMin: "1000"
    capMax: "1000000000"
    terms:
      kind: fixed
      lockupDays: 90
      apyBps: 1200
      fallbackBps: 300
    withdrawalFee:
      kind: percent
      rateBps: 100
  - id: flex
    enabled: true
    capMin: "1"
    capMax: "500000"
    terms:
      kind: flexible
      apyBps: 700
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	genesis, err := LoadGenesis(path)
	require.NoError(t, err)
	products, err := genesis.BuildProducts()
	require.NoError(t, err)
	require.Len(t, products, 2)

	fixed := products[0]
	require.Equal(t, jar.ProductID("fixed-90"), fixed.ID)
	require.True(t, fixed.Enabled)
	require.Equal(t, "1000", fixed.Cap.Min.String())
	terms := fixed.Terms.(jar.FixedTerms)
	require.Equal(t, 90*jar.MsInDay, terms.LockupTerm)
	require.NotNil(t, terms.Apy.Fallback)
	require.Equal(t, jar.FeePercent, fixed.WithdrawalFee.Kind)
	// 100 bps of 10,000 units is 100.
	require.Equal(t, "100", fixed.WithdrawalFee.Rate.Mul(big.NewInt(10_000)).String())

	flex := products[1]
	require.IsType(t, jar.FlexibleTerms{}, flex.Terms)
}

func TestGenesisRejectsUnknownKinds(t *testing.T) {
	genesis := &Genesis{Products: []GenesisProduct{{
		ID:     "x",
		CapMin: "1",
		CapMax: "2",
		Terms:  GenesisTerms{Kind: "mystery"},
	}}}
	_, err := genesis.BuildProducts()
	require.Error(t, err)

	genesis = &Genesis{Products: []GenesisProduct{{
		ID:     "x",
		CapMin: "oops",
		CapMax: "2",
		Terms:  GenesisTerms{Kind: "flexible"},
	}}}
	_, err = genesis.BuildProducts()
	require.Error(t, err)
}
