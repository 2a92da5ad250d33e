// Package settlement computes and distributes author/platform revenue
// splits through per-author push-split contracts.
package settlement

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/clawstack/clawpay/clients"
	"github.com/clawstack/clawpay/logger"
	"github.com/clawstack/clawpay/types"
)

// The split contract works in allocation units over a fixed total; shares
// configured in basis points scale up by allocationScale.
const (
	totalAllocation = 1_000_000
	allocationScale = totalAllocation / 10_000
)

// Config fixes the platform side of every author split.
type Config struct {
	FactoryAddress   string
	PlatformAddress  string
	AuthorShareBps   uint32
	PlatformShareBps uint32
}

func (c Config) withDefaults() Config {
	if c.AuthorShareBps == 0 && c.PlatformShareBps == 0 {
		c.AuthorShareBps = 9000
		c.PlatformShareBps = 1000
	}
	return c
}

func (c Config) validate() error {
	if !common.IsHexAddress(c.FactoryAddress) {
		return fmt.Errorf("settlement: invalid factory address %q", c.FactoryAddress)
	}
	if !common.IsHexAddress(c.PlatformAddress) {
		return fmt.Errorf("settlement: invalid platform address %q", c.PlatformAddress)
	}
	if c.AuthorShareBps+c.PlatformShareBps != 10_000 {
		return fmt.Errorf("settlement: shares must sum to 10000 bps, got %d+%d", c.AuthorShareBps, c.PlatformShareBps)
	}
	return nil
}

// SplitPlan is the engine's answer to a get-or-create request. When the
// author's split already exists only SplitAddress is set; otherwise To/Data
// carry the unsigned createSplit calldata for the caller to sign. The engine
// never holds private keys.
type SplitPlan struct {
	Deployed     bool
	SplitAddress string
	To           common.Address
	Data         []byte
	Params       SplitParams
}

// UnsignedCall is calldata for the caller's wallet to sign and submit.
type UnsignedCall struct {
	To   common.Address
	Data []byte
}

// Service plans, verifies, and distributes author revenue splits.
type Service struct {
	store    Store
	evm      *clients.EVMClient
	cfg      Config
	log      logger.Logger
	factory  common.Address
	platform common.Address
	now      func() time.Time
}

func NewService(store Store, evm *clients.EVMClient, cfg Config, log logger.Logger) (*Service, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Service{
		store:    store,
		evm:      evm,
		cfg:      cfg,
		log:      log,
		factory:  common.HexToAddress(cfg.FactoryAddress),
		platform: common.HexToAddress(cfg.PlatformAddress),
		now:      time.Now,
	}, nil
}

// PlanSplit builds the canonical two-party split for an author: recipients
// sorted ascending by address, allocations aligned, fixed basis-point
// shares over the contract's total allocation.
func (s *Service) PlanSplit(authorAddress common.Address) SplitParams {
	return canonicalParams(authorAddress, s.platform, s.cfg.AuthorShareBps, s.cfg.PlatformShareBps)
}

// canonicalParams lays out the two legs in ascending address order; the
// allocation stays attached to its recipient through the sort.
func canonicalParams(author, platform common.Address, authorBps, platformBps uint32) SplitParams {
	type leg struct {
		addr       common.Address
		allocation int64
	}
	legs := []leg{
		{author, int64(authorBps) * allocationScale},
		{platform, int64(platformBps) * allocationScale},
	}
	sort.Slice(legs, func(i, j int) bool {
		return strings.ToLower(legs[i].addr.Hex()) < strings.ToLower(legs[j].addr.Hex())
	})

	params := SplitParams{
		TotalAllocation:       big.NewInt(totalAllocation),
		DistributionIncentive: 0,
	}
	for _, l := range legs {
		params.Recipients = append(params.Recipients, l.addr)
		params.Allocations = append(params.Allocations, big.NewInt(l.allocation))
	}
	return params
}

// GetOrCreateAuthorSplit is idempotent: an existing persisted record
// short-circuits redeployment. Otherwise it returns unsigned createSplit
// calldata; the author's wallet signs, and the caller then confirms the
// deployment through VerifySplitDeployment.
func (s *Service) GetOrCreateAuthorSplit(ctx context.Context, authorID, authorAddress string) (*SplitPlan, error) {
	if !common.IsHexAddress(authorAddress) {
		return nil, types.Errf(types.ErrInvalidRequest, "invalid author address %q", authorAddress)
	}

	existing, err := s.store.GetByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &SplitPlan{Deployed: true, SplitAddress: existing.SplitAddress}, nil
	}

	params := s.PlanSplit(common.HexToAddress(authorAddress))
	data, err := splitFactoryABI.Pack("createSplit", params, common.HexToAddress(authorAddress), s.platform)
	if err != nil {
		return nil, types.Wrap(types.ErrSettlementFailed, err, "encode createSplit calldata")
	}
	return &SplitPlan{To: s.factory, Data: data, Params: params}, nil
}

// VerifySplitDeployment closes the deployment loop: it re-derives the
// expected recipient/allocation arrays and compares them byte-for-byte
// against the on-chain SplitCreated event before anything is persisted, so
// an altered deployment can never be silently accepted.
func (s *Service) VerifySplitDeployment(ctx context.Context, authorID, authorAddress, txHash string) (common.Address, error) {
	if !common.IsHexAddress(authorAddress) {
		return common.Address{}, types.Errf(types.ErrInvalidRequest, "invalid author address %q", authorAddress)
	}

	receipt, err := s.evm.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return common.Address{}, types.Wrap(types.ErrStatusUnknown, err, "could not fetch deployment receipt")
	}
	if receipt == nil {
		return common.Address{}, types.Errf(types.ErrTransactionNotFound, "deployment transaction %s not found", txHash)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return common.Address{}, types.Errf(types.ErrTransactionFailed, "deployment transaction %s reverted", txHash)
	}

	splitAddr, event, err := findSplitCreated(receipt, s.factory)
	if err != nil {
		return common.Address{}, err
	}

	expected := s.PlanSplit(common.HexToAddress(authorAddress))
	if err := compareSplit(event.SplitParams, expected); err != nil {
		return common.Address{}, err
	}

	record := &types.SplitContract{
		ID:               uuid.NewString(),
		AuthorID:         authorID,
		SplitAddress:     splitAddr.Hex(),
		AuthorAddress:    common.HexToAddress(authorAddress).Hex(),
		PlatformAddress:  s.platform.Hex(),
		AuthorShareBps:   s.cfg.AuthorShareBps,
		PlatformShareBps: s.cfg.PlatformShareBps,
		ChainID:          s.evm.ChainID(),
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		return common.Address{}, err
	}

	s.log.Info("author split deployed", map[string]any{
		"author":  authorID,
		"split":   splitAddr.Hex(),
		"txHash":  txHash,
		"chainId": record.ChainID,
	})
	return splitAddr, nil
}

// DistributeCalldata builds the unsigned distribute call that pushes the
// split's accumulated balance to both parties in one transaction. The
// recipient arrays come from the addresses stored at deployment time, never
// from current configuration: an address change after deployment must not
// retroactively alter a deployed contract's behavior.
func (s *Service) DistributeCalldata(ctx context.Context, authorID string) (*UnsignedCall, error) {
	record, err := s.store.GetByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, types.Errf(types.ErrSplitNotDeployed, "author %s has no deployed split", authorID)
	}

	params := paramsFromRecord(record)
	data, err := splitWalletABI.Pack("distribute", params, common.HexToAddress(s.evm.Currency()), s.platform)
	if err != nil {
		return nil, types.Wrap(types.ErrSettlementFailed, err, "encode distribute calldata")
	}
	return &UnsignedCall{To: common.HexToAddress(record.SplitAddress), Data: data}, nil
}

// SubmitSigned broadcasts a caller-signed transaction and blocks until its
// receipt lands or ctx expires.
func (s *Service) SubmitSigned(ctx context.Context, rawTx string) (*ethtypes.Receipt, error) {
	hash, err := s.evm.BroadcastSigned(ctx, rawTx)
	if err != nil {
		if kind := types.KindOf(err); kind != "" {
			return nil, err
		}
		return nil, types.Wrap(types.ErrSettlementFailed, err, "broadcast failed")
	}
	receipt, err := s.evm.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, types.Wrap(types.ErrStatusUnknown, err, "transaction sent but receipt not observed")
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return receipt, types.Errf(types.ErrTransactionFailed, "transaction %s reverted", hash.Hex())
	}
	return receipt, nil
}

func paramsFromRecord(record *types.SplitContract) SplitParams {
	return canonicalParams(
		common.HexToAddress(record.AuthorAddress),
		common.HexToAddress(record.PlatformAddress),
		record.AuthorShareBps,
		record.PlatformShareBps,
	)
}

func findSplitCreated(receipt *ethtypes.Receipt, factory common.Address) (common.Address, *splitCreatedEvent, error) {
	for _, lg := range receipt.Logs {
		if lg.Address != factory || len(lg.Topics) < 2 || lg.Topics[0] != splitCreatedTopic {
			continue
		}
		var event splitCreatedEvent
		if err := splitFactoryABI.UnpackIntoInterface(&event, "SplitCreated", lg.Data); err != nil {
			return common.Address{}, nil, types.Wrap(types.ErrSettlementFailed, err, "decode SplitCreated event")
		}
		return common.BytesToAddress(lg.Topics[1].Bytes()), &event, nil
	}
	return common.Address{}, nil, types.Errf(types.ErrSplitNotDeployed, "no SplitCreated event from factory %s", factory.Hex())
}

// compareSplit checks the on-chain split against the expectation: array
// lengths, element-wise addresses in their strict sorted order, element-wise
// allocations, the total, and the incentive. A correct set of parties in the
// wrong order still fails, because ordering is part of the contract's
// deterministic addressing.
func compareSplit(got, want SplitParams) error {
	if len(got.Recipients) != len(want.Recipients) {
		return types.Errf(types.ErrRecipientMismatch, "split has %d recipients, expected %d", len(got.Recipients), len(want.Recipients))
	}
	for i := range want.Recipients {
		if got.Recipients[i] != want.Recipients[i] {
			return types.Errf(types.ErrRecipientMismatch, "recipient %d is %s, expected %s", i, got.Recipients[i].Hex(), want.Recipients[i].Hex())
		}
	}
	if len(got.Allocations) != len(want.Allocations) {
		return types.Errf(types.ErrAllocationMismatch, "split has %d allocations, expected %d", len(got.Allocations), len(want.Allocations))
	}
	for i := range want.Allocations {
		if got.Allocations[i] == nil || got.Allocations[i].Cmp(want.Allocations[i]) != 0 {
			return types.Errf(types.ErrAllocationMismatch, "allocation %d is %v, expected %v", i, got.Allocations[i], want.Allocations[i])
		}
	}
	if got.TotalAllocation == nil || got.TotalAllocation.Cmp(want.TotalAllocation) != 0 {
		return types.Errf(types.ErrAllocationMismatch, "total allocation %v, expected %v", got.TotalAllocation, want.TotalAllocation)
	}
	if got.DistributionIncentive != want.DistributionIncentive {
		return types.Errf(types.ErrAllocationMismatch, "distribution incentive %d, expected %d", got.DistributionIncentive, want.DistributionIncentive)
	}
	return nil
}
