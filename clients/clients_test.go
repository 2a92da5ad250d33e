package clients

import (
	"github.com/clawstack/clawpay/logger"
	"github.com/clawstack/clawpay/types"
)

func noopLog() logger.Logger { return logger.Default() }

func clientTestSolanaConfig(endpoints []string) types.SolanaConfig {
	return types.SolanaConfig{
		Endpoints:            endpoints,
		USDCMint:             "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		TreasuryTokenAccount: "7VHUFJHWu2CuExkJcJrzhQPJ2oygupTWkL2A2For4BmE",
	}
}

func clientTestEVMConfig(endpoints []string) types.EVMConfig {
	return types.EVMConfig{
		Endpoints:             endpoints,
		ChainID:               8453,
		USDCToken:             "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Treasury:              "0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326",
		FinalityConfirmations: 12,
	}
}
