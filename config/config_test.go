package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawstack/clawpay/types"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CLAWPAY_SOLANA_RPC_URLS", "http://localhost:8899")
	t.Setenv("CLAWPAY_SOLANA_USDC_MINT", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	t.Setenv("CLAWPAY_SOLANA_TREASURY_TOKEN_ACCOUNT", "7VHUFJHWu2CuExkJcJrzhQPJ2oygupTWkL2A2For4BmE")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Solana)
	assert.Equal(t, []string{"http://localhost:8899"}, cfg.Solana.Endpoints)
	assert.Nil(t, cfg.EVM)

	// Defaults.
	assert.Equal(t, uint32(1000), cfg.PlatformFeeBps)
	assert.Equal(t, 300*time.Second, cfg.MemoExpiry)
	assert.Equal(t, 15*time.Second, cfg.RPCTimeout)
}

func TestValidate(t *testing.T) {
	solana := &types.SolanaConfig{
		Endpoints:            []string{"http://localhost:8899"},
		USDCMint:             "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		TreasuryTokenAccount: "7VHUFJHWu2CuExkJcJrzhQPJ2oygupTWkL2A2For4BmE",
	}

	require.NoError(t, Validate(&types.Config{Solana: solana, PlatformFeeBps: 1000}))

	err := Validate(&types.Config{PlatformFeeBps: 1000})
	require.Error(t, err)

	err = Validate(&types.Config{Solana: solana, PlatformFeeBps: 10_001})
	require.Error(t, err)

	err = Validate(&types.Config{Solana: &types.SolanaConfig{Endpoints: []string{"x"}}})
	require.Error(t, err)

	err = Validate(&types.Config{EVM: &types.EVMConfig{Endpoints: []string{"x"}}})
	require.Error(t, err)
}
