package clients

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/clawstack/clawpay/logger"
	"github.com/clawstack/clawpay/types"
)

var erc20TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// EVMClient is the EVM payment backend. One ethclient per configured
// endpoint, walked in priority order.
type EVMClient struct {
	cfg       types.EVMConfig
	endpoints []string
	clients   []*ethclient.Client
	failover  FailoverConfig
	log       logger.Logger
	token     common.Address
}

var _ PaymentBackend = (*EVMClient)(nil)

func NewEVMClient(cfg types.EVMConfig, failover FailoverConfig, log logger.Logger) (*EVMClient, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("evm: no rpc endpoints configured")
	}
	if !common.IsHexAddress(cfg.USDCToken) {
		return nil, fmt.Errorf("evm: invalid usdc token address %q", cfg.USDCToken)
	}
	ethClients := make([]*ethclient.Client, len(cfg.Endpoints))
	for i, endpoint := range cfg.Endpoints {
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			return nil, fmt.Errorf("evm: dial %s: %w", endpoint, err)
		}
		ethClients[i] = client
	}
	return &EVMClient{
		cfg:       cfg,
		endpoints: cfg.Endpoints,
		clients:   ethClients,
		failover:  failover,
		log:       log,
		token:     common.HexToAddress(cfg.USDCToken),
	}, nil
}

func (c *EVMClient) Chain() types.Chain { return types.ChainBase }

func (c *EVMClient) ChainID() int64 { return c.cfg.ChainID }

// Currency returns the expected stablecoin contract on this chain.
func (c *EVMClient) Currency() string { return c.token.Hex() }

func (c *EVMClient) Close() {
	for _, client := range c.clients {
		client.Close()
	}
}

// FetchPayment fetches the receipt and extracts ERC-20 Transfer logs for the
// configured token contract. EVM payments carry no memo; correlation there
// rides on the split contract address instead.
func (c *EVMClient) FetchPayment(ctx context.Context, reference string) (*types.PaymentRecord, error) {
	hash, err := parseTxHash(reference)
	if err != nil {
		return nil, err
	}

	receipt, err := c.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, nil
	}

	var blockTime int64
	if receipt.BlockNumber != nil {
		ts, err := c.headerTime(ctx, receipt.BlockNumber)
		if err != nil {
			return nil, err
		}
		blockTime = ts
	}

	return &types.PaymentRecord{
		Reference: reference,
		Failed:    receipt.Status != ethtypes.ReceiptStatusSuccessful,
		Transfers: c.extractTransfers(receipt),
		BlockTime: blockTime,
	}, nil
}

// ConfirmationStatus derives finality from confirmation depth against a
// fresh head query: confirmed at one confirmation, finalized at the
// configured depth.
func (c *EVMClient) ConfirmationStatus(ctx context.Context, reference string) (types.ConfirmationStatus, error) {
	hash, err := parseTxHash(reference)
	if err != nil {
		return types.StatusUnknown, err
	}

	var status types.ConfirmationStatus
	err = withFailover(ctx, c.log, c.failover, c.endpoints, func(ctx context.Context, i int) error {
		receipt, err := c.clients[i].TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				status = types.StatusUnknown
				return nil
			}
			return err
		}
		head, err := c.clients[i].BlockNumber(ctx)
		if err != nil {
			return err
		}
		status = c.statusForDepth(receipt.BlockNumber, head)
		return nil
	})
	if err != nil {
		return types.StatusUnknown, err
	}
	return status, nil
}

func (c *EVMClient) statusForDepth(blockNumber *big.Int, head uint64) types.ConfirmationStatus {
	if blockNumber == nil || !blockNumber.IsUint64() || blockNumber.Uint64() > head {
		return types.StatusProcessed
	}
	confirmations := head - blockNumber.Uint64() + 1
	finality := c.cfg.FinalityConfirmations
	if finality == 0 {
		finality = 12
	}
	if confirmations >= finality {
		return types.StatusFinalized
	}
	return types.StatusConfirmed
}

// TransactionReceipt fetches a receipt across the endpoint chain, returning
// (nil, nil) when every endpoint agrees the transaction does not exist.
func (c *EVMClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	var receipt *ethtypes.Receipt
	err := withFailover(ctx, c.log, c.failover, c.endpoints, func(ctx context.Context, i int) error {
		r, err := c.clients[i].TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				receipt = nil
				return nil
			}
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// BroadcastSigned submits a caller-signed raw transaction. The engine never
// holds private keys; signing happens in the resource owner's wallet.
func (c *EVMClient) BroadcastSigned(ctx context.Context, rawTx string) (common.Hash, error) {
	raw, err := hexutil.Decode(rawTx)
	if err != nil {
		return common.Hash{}, types.Errf(types.ErrInvalidRequest, "invalid raw transaction hex: %v", err)
	}
	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, types.Errf(types.ErrInvalidRequest, "invalid raw transaction encoding: %v", err)
	}

	err = withFailover(ctx, c.log, c.failover, c.endpoints, func(ctx context.Context, i int) error {
		return c.clients[i].SendTransaction(ctx, tx)
	})
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// WaitForReceipt blocks until the transaction is mined or ctx expires.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *EVMClient) headerTime(ctx context.Context, blockNumber *big.Int) (int64, error) {
	var ts int64
	err := withFailover(ctx, c.log, c.failover, c.endpoints, func(ctx context.Context, i int) error {
		header, err := c.clients[i].HeaderByNumber(ctx, blockNumber)
		if err != nil {
			return err
		}
		ts = int64(header.Time)
		return nil
	})
	return ts, err
}

// extractTransfers keeps Transfer events emitted by the configured token
// contract. Amounts that exceed uint64 cannot be valid USDC payments and
// are dropped.
func (c *EVMClient) extractTransfers(receipt *ethtypes.Receipt) []types.TokenTransfer {
	var out []types.TokenTransfer
	for _, lg := range receipt.Logs {
		if lg.Address != c.token || len(lg.Topics) != 3 || lg.Topics[0] != erc20TransferTopic {
			continue
		}
		value := new(big.Int).SetBytes(lg.Data)
		if !value.IsUint64() {
			c.log.Warn("transfer amount exceeds uint64, skipping", map[string]any{
				"tx":    receipt.TxHash.Hex(),
				"value": value.String(),
			})
			continue
		}
		out = append(out, types.TokenTransfer{
			Source:      common.BytesToAddress(lg.Topics[1].Bytes()).Hex(),
			Destination: common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
			AmountRaw:   value.Uint64(),
			Mint:        c.token.Hex(),
		})
	}
	return out
}

func parseTxHash(reference string) (common.Hash, error) {
	s := reference
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != 64 {
		return common.Hash{}, types.Errf(types.ErrInvalidRequest, "invalid evm transaction hash %q", reference)
	}
	b, err := hexutil.Decode("0x" + s)
	if err != nil {
		return common.Hash{}, types.Errf(types.ErrInvalidRequest, "invalid evm transaction hash %q", reference)
	}
	return common.BytesToHash(b), nil
}
