// Package verification implements the chain-agnostic payment verification
// pipeline.
package verification

import (
	"context"
	"strings"
	"time"

	"github.com/clawstack/clawpay/clients"
	"github.com/clawstack/clawpay/currency"
	"github.com/clawstack/clawpay/logger"
	"github.com/clawstack/clawpay/memo"
	"github.com/clawstack/clawpay/metrics"
	"github.com/clawstack/clawpay/types"
)

// Backend is what the pipeline needs from a chain: the PaymentBackend
// capability plus the expected payment currency (SPL mint or ERC-20
// contract) on that chain.
type Backend interface {
	clients.PaymentBackend
	Currency() string
}

// Service runs the verification rule set. Each call is a self-contained,
// stateless unit of work; independent verifications may run fully in
// parallel. There is no shared mutable state and no cache, the chain is the
// single source of truth.
type Service struct {
	backends   map[types.Chain]Backend
	feeBps     uint32
	memoWindow time.Duration
	timeout    time.Duration
	log        logger.Logger
	metrics    metrics.Recorder
	now        func() time.Time
}

func NewService(timeout, memoWindow time.Duration, feeBps uint32, log logger.Logger, rec metrics.Recorder) *Service {
	if timeout <= 0 {
		timeout = types.DefaultRPCTimeout
	}
	if memoWindow <= 0 {
		memoWindow = types.DefaultMemoExpiry
	}
	if feeBps == 0 {
		feeBps = types.DefaultPlatformFeeBps
	}
	return &Service{
		backends:   make(map[types.Chain]Backend),
		feeBps:     feeBps,
		memoWindow: memoWindow,
		timeout:    timeout,
		log:        log,
		metrics:    rec,
		now:        time.Now,
	}
}

// AddBackend registers a chain backend. Later registrations for the same
// chain replace earlier ones.
func (s *Service) AddBackend(b Backend) {
	s.backends[b.Chain()] = b
}

// SetClock overrides the wall clock; test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SupportedChains lists chains with a registered backend.
func (s *Service) SupportedChains() []types.Chain {
	out := make([]types.Chain, 0, len(s.backends))
	for chain := range s.backends {
		out = append(out, chain)
	}
	return out
}

// Verify applies the rule set as a strict, ordered, fail-fast pipeline:
// existence, on-chain success, currency match, recipient, amount, memo
// (Solana only), finality. Each stage either passes its result on or raises
// a single typed error, so the failure reason is always attributable to
// exactly one root cause. There is no partial credit: VerifiedPayment is
// constructed only after every stage passes.
func (s *Service) Verify(ctx context.Context, req *types.VerifyPaymentRequest, rc *types.ResourceContext) (*types.VerifiedPayment, *types.SettlementBreakdown, error) {
	backend, ok := s.backends[req.Chain]
	if !ok {
		return nil, nil, types.Errf(types.ErrUnsupportedChain, "no backend configured for chain %q", req.Chain)
	}

	start := s.now()
	verified, breakdown, err := s.run(ctx, backend, req, rc)
	s.observe(req.Chain, start, err)
	return verified, breakdown, err
}

func (s *Service) run(ctx context.Context, backend Backend, req *types.VerifyPaymentRequest, rc *types.ResourceContext) (*types.VerifiedPayment, *types.SettlementBreakdown, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Stage 1: existence and on-chain success.
	record, err := backend.FetchPayment(ctx, req.TransactionReference)
	if err != nil {
		return nil, nil, asStatusUnknown(err, "could not fetch transaction")
	}
	if record == nil {
		return nil, nil, types.Errf(types.ErrTransactionNotFound, "transaction %s not found on %s", req.TransactionReference, req.Chain)
	}
	if record.Failed {
		return nil, nil, types.Errf(types.ErrTransactionFailed, "transaction %s failed on-chain", req.TransactionReference)
	}

	// Stage 2: currency selection.
	transfer, ok := selectTransfer(record.Transfers, backend.Currency(), rc.ExpectedRecipient, req.Chain)
	if !ok {
		return nil, nil, types.Errf(types.ErrNoMatchingTransfer, "no transfer of %s found in transaction %s", backend.Currency(), req.TransactionReference)
	}

	// Stage 3: recipient.
	if !addressesEqual(req.Chain, transfer.Destination, rc.ExpectedRecipient) {
		return nil, nil, types.Errf(types.ErrWrongRecipient, "transfer destination %s, expected %s", transfer.Destination, rc.ExpectedRecipient)
	}

	// Stage 4: amount, in integer atomic units. Overpayment passes.
	if transfer.AmountRaw < rc.ExpectedAmountRaw {
		return nil, nil, types.Errf(types.ErrInsufficientAmount, "transfer amount %d below expected %d", transfer.AmountRaw, rc.ExpectedAmountRaw)
	}

	// Stage 5 (Solana only): memo format, correlation, freshness.
	if req.Chain.IsSolana() {
		if err := s.checkMemo(record.Memo, req, rc); err != nil {
			return nil, nil, err
		}
	}

	// Stage 6: finality, queried fresh since status can have advanced after
	// the fetch above.
	status, err := backend.ConfirmationStatus(ctx, req.TransactionReference)
	if err != nil {
		return nil, nil, asStatusUnknown(err, "could not query confirmation status")
	}
	if status == types.StatusUnknown {
		return nil, nil, types.Errf(types.ErrStatusUnknown, "chain could not report status for %s", req.TransactionReference)
	}
	if !status.Settled() {
		return nil, nil, types.Errf(types.ErrNotConfirmed, "transaction %s is %s, need confirmed or finalized", req.TransactionReference, status)
	}

	timestamp := record.BlockTime
	if timestamp == 0 {
		timestamp = s.now().Unix()
	}

	verified := &types.VerifiedPayment{
		TransactionReference: req.TransactionReference,
		PayerAddress:         req.PayerAddress,
		RecipientAddress:     transfer.Destination,
		AmountRaw:            transfer.AmountRaw,
		CurrencyID:           transfer.Mint,
		Memo:                 record.Memo,
		ResourceID:           rc.ResourceID,
		TimestampUnix:        timestamp,
		ConfirmationStatus:   status,
	}

	platformFee, authorAmount := currency.SplitFee(transfer.AmountRaw, s.feeBps)
	breakdown := &types.SettlementBreakdown{
		PlatformFeeRaw:  platformFee,
		AuthorAmountRaw: authorAmount,
		FeeBasisPoints:  s.feeBps,
	}
	return verified, breakdown, nil
}

func (s *Service) checkMemo(raw *string, req *types.VerifyPaymentRequest, rc *types.ResourceContext) error {
	if raw == nil {
		return types.Errf(types.ErrInvalidMemo, "transaction carries no memo instruction")
	}
	parsed, err := memo.Parse(*raw)
	if err != nil {
		return err
	}
	if parsed.ResourceID != rc.ResourceID {
		return types.Errf(types.ErrInvalidMemo, "memo resource %q does not match %q", parsed.ResourceID, rc.ResourceID)
	}
	claimed := req.ClaimedTimestamp
	if claimed == 0 {
		claimed = s.now().Unix()
	}
	return parsed.CheckFreshness(claimed, int64(s.memoWindow/time.Second))
}

func (s *Service) observe(chain types.Chain, start time.Time, err error) {
	labels := map[string]string{"chain": chain.String()}
	s.metrics.ObserveLatency("verify_payment", s.now().Sub(start), labels)
	if err == nil {
		s.metrics.IncCounter("verify_success", labels)
		return
	}
	kind := types.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	s.metrics.IncCounter("verify_failure_"+string(kind), labels)
	s.log.Info("payment verification failed", map[string]any{
		"chain": chain.String(),
		"kind":  string(kind),
		"error": err.Error(),
	})
}

// selectTransfer picks the currency-matching transfer. When a composed
// transaction carries several matching transfers, the one addressed to the
// expected recipient wins; otherwise the first match proceeds and the
// recipient stage reports the mismatch.
func selectTransfer(transfers []types.TokenTransfer, currencyID, expectedRecipient string, chain types.Chain) (types.TokenTransfer, bool) {
	var first *types.TokenTransfer
	for i := range transfers {
		t := &transfers[i]
		if !addressesEqual(chain, t.Mint, currencyID) {
			continue
		}
		if addressesEqual(chain, t.Destination, expectedRecipient) {
			return *t, true
		}
		if first == nil {
			first = t
		}
	}
	if first != nil {
		return *first, true
	}
	return types.TokenTransfer{}, false
}

// addressesEqual compares case-insensitively on EVM (hex checksum casing is
// presentation only) and exactly on Solana, where base58 is case-sensitive.
func addressesEqual(chain types.Chain, a, b string) bool {
	if chain.IsEVM() {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func asStatusUnknown(err error, message string) error {
	if kind := types.KindOf(err); kind != "" {
		return err
	}
	return types.Wrap(types.ErrStatusUnknown, err, message)
}
