// Package config loads engine configuration from the environment. The
// engine consumes but does not own this configuration; hosts that already
// have a config system can build types.Config directly instead.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/clawstack/clawpay/types"
)

type env struct {
	SolanaEndpoints      []string      `env:"CLAWPAY_SOLANA_RPC_URLS"`
	SolanaUSDCMint       string        `env:"CLAWPAY_SOLANA_USDC_MINT"`
	SolanaTreasuryTokAcc string        `env:"CLAWPAY_SOLANA_TREASURY_TOKEN_ACCOUNT"`
	EVMEndpoints         []string      `env:"CLAWPAY_EVM_RPC_URLS"`
	EVMChainID           int64         `env:"CLAWPAY_EVM_CHAIN_ID,default=8453"`
	EVMUSDCToken         string        `env:"CLAWPAY_EVM_USDC_TOKEN"`
	EVMTreasury          string        `env:"CLAWPAY_EVM_TREASURY"`
	EVMSplitFactory      string        `env:"CLAWPAY_EVM_SPLIT_FACTORY"`
	EVMFinalityDepth     uint64        `env:"CLAWPAY_EVM_FINALITY_CONFIRMATIONS,default=12"`
	PlatformFeeBps       uint32        `env:"CLAWPAY_PLATFORM_FEE_BPS,default=1000"`
	MemoExpiry           time.Duration `env:"CLAWPAY_MEMO_EXPIRY,default=300s"`
	RPCTimeout           time.Duration `env:"CLAWPAY_RPC_TIMEOUT,default=15s"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present; real environment variables win.
func Load() (*types.Config, error) {
	_ = godotenv.Load()

	var e env
	if err := envdecode.Decode(&e); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &types.Config{
		PlatformFeeBps: e.PlatformFeeBps,
		MemoExpiry:     e.MemoExpiry,
		RPCTimeout:     e.RPCTimeout,
	}
	if len(e.SolanaEndpoints) > 0 {
		cfg.Solana = &types.SolanaConfig{
			Endpoints:            e.SolanaEndpoints,
			USDCMint:             e.SolanaUSDCMint,
			TreasuryTokenAccount: e.SolanaTreasuryTokAcc,
		}
	}
	if len(e.EVMEndpoints) > 0 {
		cfg.EVM = &types.EVMConfig{
			Endpoints:             e.EVMEndpoints,
			ChainID:               e.EVMChainID,
			USDCToken:             e.EVMUSDCToken,
			Treasury:              e.EVMTreasury,
			SplitFactory:          e.EVMSplitFactory,
			FinalityConfirmations: e.EVMFinalityDepth,
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the invariants the engine assumes.
func Validate(cfg *types.Config) error {
	if cfg.Solana == nil && cfg.EVM == nil {
		return fmt.Errorf("config: at least one chain must be configured")
	}
	if cfg.PlatformFeeBps > 10_000 {
		return fmt.Errorf("config: platform fee %d bps exceeds 10000", cfg.PlatformFeeBps)
	}
	if cfg.Solana != nil {
		if cfg.Solana.USDCMint == "" || cfg.Solana.TreasuryTokenAccount == "" {
			return fmt.Errorf("config: solana requires usdc mint and treasury token account")
		}
	}
	if cfg.EVM != nil {
		if cfg.EVM.USDCToken == "" || cfg.EVM.Treasury == "" {
			return fmt.Errorf("config: evm requires usdc token and treasury")
		}
	}
	return nil
}
