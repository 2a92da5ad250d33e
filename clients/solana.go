package clients

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/clawstack/clawpay/logger"
	"github.com/clawstack/clawpay/types"
)

// SPL token program instruction tags for the two transfer shapes.
const (
	tokenOpTransfer        = 3
	tokenOpTransferChecked = 12
)

// Memo program deployments. v1 is still emitted by some older payer tooling.
var (
	memoProgramV1 = solana.MustPublicKeyFromBase58("Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo")
	memoProgramV2 = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
)

// SolanaClient is the Solana payment backend. It holds one rpc.Client per
// configured endpoint and walks them in priority order on every call.
type SolanaClient struct {
	cfg       types.SolanaConfig
	endpoints []string
	rpcs      []*rpc.Client
	failover  FailoverConfig
	log       logger.Logger
}

var _ PaymentBackend = (*SolanaClient)(nil)

func NewSolanaClient(cfg types.SolanaConfig, failover FailoverConfig, log logger.Logger) (*SolanaClient, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("solana: no rpc endpoints configured")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.USDCMint); err != nil {
		return nil, fmt.Errorf("solana: invalid usdc mint %q: %w", cfg.USDCMint, err)
	}
	rpcs := make([]*rpc.Client, len(cfg.Endpoints))
	for i, endpoint := range cfg.Endpoints {
		rpcs[i] = rpc.New(endpoint)
	}
	return &SolanaClient{
		cfg:       cfg,
		endpoints: cfg.Endpoints,
		rpcs:      rpcs,
		failover:  failover,
		log:       log,
	}, nil
}

func (c *SolanaClient) Chain() types.Chain { return types.ChainSolana }

// Currency returns the expected stablecoin mint on this chain.
func (c *SolanaClient) Currency() string { return c.cfg.USDCMint }

func (c *SolanaClient) Close() {}

// FetchPayment fetches the confirmed transaction and extracts token
// transfers (top-level and inner instructions) plus any memo string.
func (c *SolanaClient) FetchPayment(ctx context.Context, reference string) (*types.PaymentRecord, error) {
	sig, err := solana.SignatureFromBase58(reference)
	if err != nil {
		return nil, types.Errf(types.ErrInvalidRequest, "invalid solana transaction signature %q", reference)
	}

	maxVersion := uint64(0)
	var result *rpc.GetTransactionResult
	err = withFailover(ctx, c.log, c.failover, c.endpoints, func(ctx context.Context, i int) error {
		res, err := c.rpcs[i].GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if err != nil {
			if errors.Is(err, rpc.ErrNotFound) {
				result = nil
				return nil
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("solana: decode transaction %s: %w", reference, err)
	}

	record := &types.PaymentRecord{
		Reference: reference,
		Failed:    result.Meta != nil && result.Meta.Err != nil,
		Transfers: extractTokenTransfers(&tx.Message, result.Meta),
		Memo:      extractMemo(&tx.Message, result.Meta),
	}
	if result.BlockTime != nil {
		record.BlockTime = result.BlockTime.Time().Unix()
	}
	return record, nil
}

// ConfirmationStatus re-queries signature status; searchTransactionHistory
// is set so endpoints answer for signatures older than the recent-status
// cache.
func (c *SolanaClient) ConfirmationStatus(ctx context.Context, reference string) (types.ConfirmationStatus, error) {
	sig, err := solana.SignatureFromBase58(reference)
	if err != nil {
		return types.StatusUnknown, types.Errf(types.ErrInvalidRequest, "invalid solana transaction signature %q", reference)
	}

	var status types.ConfirmationStatus
	err = withFailover(ctx, c.log, c.failover, c.endpoints, func(ctx context.Context, i int) error {
		res, err := c.rpcs[i].GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return err
		}
		if len(res.Value) == 0 || res.Value[0] == nil {
			status = types.StatusUnknown
			return nil
		}
		switch res.Value[0].ConfirmationStatus {
		case rpc.ConfirmationStatusFinalized:
			status = types.StatusFinalized
		case rpc.ConfirmationStatusConfirmed:
			status = types.StatusConfirmed
		case rpc.ConfirmationStatusProcessed:
			status = types.StatusProcessed
		default:
			status = types.StatusUnknown
		}
		return nil
	})
	if err != nil {
		return types.StatusUnknown, err
	}
	return status, nil
}

// extractTokenTransfers walks every instruction in the message plus every
// inner instruction in the execution trace, keeping only token-program
// Transfer / TransferChecked instructions. Composed transactions routinely
// bury the payment transfer in an inner instruction.
func extractTokenTransfers(msg *solana.Message, meta *rpc.TransactionMeta) []types.TokenTransfer {
	var out []types.TokenTransfer
	for _, inst := range msg.Instructions {
		if t, ok := decodeTokenTransfer(msg, meta, inst); ok {
			out = append(out, t)
		}
	}
	if meta != nil {
		for _, inner := range meta.InnerInstructions {
			for _, inst := range inner.Instructions {
				if t, ok := decodeTokenTransfer(msg, meta, inst); ok {
					out = append(out, t)
				}
			}
		}
	}
	return out
}

func decodeTokenTransfer(msg *solana.Message, meta *rpc.TransactionMeta, inst solana.CompiledInstruction) (types.TokenTransfer, bool) {
	program, ok := accountAt(msg, inst.ProgramIDIndex)
	if !ok || !program.Equals(solana.TokenProgramID) {
		return types.TokenTransfer{}, false
	}
	data := []byte(inst.Data)
	if len(data) < 9 {
		return types.TokenTransfer{}, false
	}
	op := data[0]
	if op != tokenOpTransfer && op != tokenOpTransferChecked {
		return types.TokenTransfer{}, false
	}
	amount, err := bin.NewBinDecoder(data[1:]).ReadUint64(bin.LE)
	if err != nil {
		return types.TokenTransfer{}, false
	}

	switch op {
	case tokenOpTransferChecked:
		// accounts: source, mint, destination, owner
		if len(inst.Accounts) < 4 {
			return types.TokenTransfer{}, false
		}
		src, okS := accountAt(msg, inst.Accounts[0])
		mint, okM := accountAt(msg, inst.Accounts[1])
		dst, okD := accountAt(msg, inst.Accounts[2])
		if !okS || !okM || !okD {
			return types.TokenTransfer{}, false
		}
		return types.TokenTransfer{
			Source:      src.String(),
			Destination: dst.String(),
			AmountRaw:   amount,
			Mint:        mint.String(),
		}, true

	default:
		// Transfer accounts: source, destination, owner. The instruction
		// carries no mint account, so it is resolved through the token
		// balance table; a transfer whose mint cannot be resolved is
		// dropped rather than guessed.
		if len(inst.Accounts) < 3 {
			return types.TokenTransfer{}, false
		}
		src, okS := accountAt(msg, inst.Accounts[0])
		dst, okD := accountAt(msg, inst.Accounts[1])
		if !okS || !okD {
			return types.TokenTransfer{}, false
		}
		mint, ok := mintForAccountIndex(meta, inst.Accounts[1])
		if !ok {
			mint, ok = mintForAccountIndex(meta, inst.Accounts[0])
		}
		if !ok {
			return types.TokenTransfer{}, false
		}
		return types.TokenTransfer{
			Source:      src.String(),
			Destination: dst.String(),
			AmountRaw:   amount,
			Mint:        mint,
		}, true
	}
}

// extractMemo scans both instruction scopes for a memo-program instruction
// and returns its raw string content. Absence is not fatal here; the memo
// format check downstream decides that.
func extractMemo(msg *solana.Message, meta *rpc.TransactionMeta) *string {
	if m := memoFromInstructions(msg, msg.Instructions); m != nil {
		return m
	}
	if meta != nil {
		for _, inner := range meta.InnerInstructions {
			if m := memoFromInstructions(msg, inner.Instructions); m != nil {
				return m
			}
		}
	}
	return nil
}

func memoFromInstructions(msg *solana.Message, insts []solana.CompiledInstruction) *string {
	for _, inst := range insts {
		program, ok := accountAt(msg, inst.ProgramIDIndex)
		if !ok {
			continue
		}
		if program.Equals(memoProgramV2) || program.Equals(memoProgramV1) {
			s := string(inst.Data)
			return &s
		}
	}
	return nil
}

func accountAt(msg *solana.Message, index uint16) (solana.PublicKey, bool) {
	if int(index) >= len(msg.AccountKeys) {
		return solana.PublicKey{}, false
	}
	return msg.AccountKeys[index], true
}

func mintForAccountIndex(meta *rpc.TransactionMeta, index uint16) (string, bool) {
	if meta == nil {
		return "", false
	}
	for _, tb := range meta.PostTokenBalances {
		if tb.AccountIndex == index {
			return tb.Mint.String(), true
		}
	}
	for _, tb := range meta.PreTokenBalances {
		if tb.AccountIndex == index {
			return tb.Mint.String(), true
		}
	}
	return "", false
}
