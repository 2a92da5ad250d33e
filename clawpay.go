// Package clawpay verifies on-chain payments for clawstack resources and
// settles author/platform revenue splits. It supports Solana (SPL transfers
// correlated by memo) and Base (ERC-20 transfers routed through per-author
// split contracts). The HTTP layer, persistence of verified payments, and
// retry-on-failure policies live with the caller; this engine returns typed
// results and nothing else.
package clawpay

import (
	"context"
	"errors"

	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/clawstack/clawpay/clients"
	"github.com/clawstack/clawpay/logger"
	"github.com/clawstack/clawpay/metrics"
	"github.com/clawstack/clawpay/settlement"
	"github.com/clawstack/clawpay/types"
	"github.com/clawstack/clawpay/utils"
	"github.com/clawstack/clawpay/verification"
)

// Engine is the top-level entry point wiring chain backends, the
// verification pipeline, and the split settlement service.
type Engine struct {
	cfg      *types.Config
	log      logger.Logger
	metrics  metrics.Recorder
	store    settlement.Store
	failover *clients.FailoverConfig

	verifier *verification.Service
	settler  *settlement.Service
	solana   *clients.SolanaClient
	evm      *clients.EVMClient
}

// New builds an engine from configuration. At least one chain must be
// configured; the split settlement service comes up only when the EVM
// config names a split factory.
func New(cfg *types.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("clawpay: nil config")
	}
	if cfg.Solana == nil && cfg.EVM == nil {
		return nil, errors.New("clawpay: at least one chain must be configured")
	}

	e := &Engine{
		cfg:     cfg,
		log:     logger.Default(),
		metrics: metrics.Default(),
		store:   settlement.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(e)
	}

	failover := clients.DefaultFailoverConfig
	if e.failover != nil {
		failover = *e.failover
	} else if cfg.RPCTimeout > 0 {
		failover.CallTimeout = cfg.RPCTimeout
	}

	e.verifier = verification.NewService(cfg.RPCTimeout, cfg.MemoExpiry, cfg.PlatformFeeBps, e.log, e.metrics)

	if cfg.Solana != nil {
		sol, err := clients.NewSolanaClient(*cfg.Solana, failover, e.log)
		if err != nil {
			return nil, err
		}
		e.solana = sol
		e.verifier.AddBackend(sol)
	}

	if cfg.EVM != nil {
		evm, err := clients.NewEVMClient(*cfg.EVM, failover, e.log)
		if err != nil {
			return nil, err
		}
		e.evm = evm
		e.verifier.AddBackend(evm)

		if cfg.EVM.SplitFactory != "" {
			settler, err := settlement.NewService(e.store, evm, settlement.Config{
				FactoryAddress:  cfg.EVM.SplitFactory,
				PlatformAddress: cfg.EVM.Treasury,
			}, e.log)
			if err != nil {
				return nil, err
			}
			e.settler = settler
		}
	}

	return e, nil
}

// VerifyPayment validates the request at the boundary, then runs the
// verification pipeline. On success it returns the immutable verified
// payment plus the fee breakdown for settlement bookkeeping; on failure a
// typed error whose kind the caller maps to specific guidance.
func (e *Engine) VerifyPayment(ctx context.Context, req *types.VerifyPaymentRequest, rc *types.ResourceContext) (*types.VerifiedPayment, *types.SettlementBreakdown, error) {
	if err := utils.ValidateVerifyPaymentRequest(req); err != nil {
		return nil, nil, err
	}
	if rc == nil || rc.ExpectedRecipient == "" {
		return nil, nil, types.Errf(types.ErrInvalidRequest, "resource context with expected recipient is required")
	}
	return e.verifier.Verify(ctx, req, rc)
}

// SpamFeeContext resolves the resource context for a spam-fee payment:
// those always go to the platform treasury for the chain. Post payments are
// resolved by the caller against the author's split address instead.
func (e *Engine) SpamFeeContext(chain types.Chain, resourceID string, expectedAmountRaw uint64) (*types.ResourceContext, error) {
	var recipient string
	switch {
	case chain.IsSolana() && e.cfg.Solana != nil:
		recipient = e.cfg.Solana.TreasuryTokenAccount
	case chain.IsEVM() && e.cfg.EVM != nil:
		recipient = e.cfg.EVM.Treasury
	default:
		return nil, types.Errf(types.ErrUnsupportedChain, "no treasury configured for chain %q", chain)
	}
	return &types.ResourceContext{
		ResourceType:      types.ResourceSpamFee,
		ResourceID:        resourceID,
		ExpectedRecipient: recipient,
		ExpectedAmountRaw: expectedAmountRaw,
	}, nil
}

// GetOrCreateAuthorSplit returns the author's existing split address, or
// unsigned createSplit calldata when no split is deployed yet.
func (e *Engine) GetOrCreateAuthorSplit(ctx context.Context, authorID, authorAddress string) (*settlement.SplitPlan, error) {
	if e.settler == nil {
		return nil, types.Errf(types.ErrUnsupportedChain, "split settlement is not configured")
	}
	return e.settler.GetOrCreateAuthorSplit(ctx, authorID, authorAddress)
}

// VerifySplitDeployment validates a signed deployment against the expected
// split and persists the record on success.
func (e *Engine) VerifySplitDeployment(ctx context.Context, authorID, authorAddress, txHash string) (string, error) {
	if e.settler == nil {
		return "", types.Errf(types.ErrUnsupportedChain, "split settlement is not configured")
	}
	addr, err := e.settler.VerifySplitDeployment(ctx, authorID, authorAddress, txHash)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// DistributeCalldata builds the unsigned distribute call for an author's
// deployed split.
func (e *Engine) DistributeCalldata(ctx context.Context, authorID string) (*settlement.UnsignedCall, error) {
	if e.settler == nil {
		return nil, types.Errf(types.ErrUnsupportedChain, "split settlement is not configured")
	}
	return e.settler.DistributeCalldata(ctx, authorID)
}

// SubmitSigned broadcasts a caller-signed transaction and waits for its
// receipt.
func (e *Engine) SubmitSigned(ctx context.Context, rawTx string) (*ethtypes.Receipt, error) {
	if e.settler == nil {
		return nil, types.Errf(types.ErrUnsupportedChain, "split settlement is not configured")
	}
	return e.settler.SubmitSigned(ctx, rawTx)
}

// SupportedChains lists the chains this engine can verify against.
func (e *Engine) SupportedChains() []types.Chain {
	return e.verifier.SupportedChains()
}

// Close releases all chain client connections.
func (e *Engine) Close() {
	if e.solana != nil {
		e.solana.Close()
	}
	if e.evm != nil {
		e.evm.Close()
	}
}
