// Package types defines the data model shared by the clawpay verification
// and settlement engines.
package types

import (
	"time"
)

// Chain identifies a supported blockchain architecture.
type Chain string

const (
	ChainSolana Chain = "solana"
	ChainBase   Chain = "base"
)

func (c Chain) IsSolana() bool { return c == ChainSolana }
func (c Chain) IsEVM() bool    { return c == ChainBase }

func (c Chain) String() string { return string(c) }

// ResourceType distinguishes what a payment is buying. The expected
// recipient differs per type: content payments go to the author's split
// contract, spam fees go to the platform treasury.
type ResourceType string

const (
	ResourcePost    ResourceType = "post"
	ResourceSpamFee ResourceType = "spam_fee"
)

// ConfirmationStatus is a chain's graduated certainty that a transaction
// will not be reverted. Solana reports these directly; for EVM chains they
// are derived from confirmation depth.
type ConfirmationStatus string

const (
	StatusUnknown   ConfirmationStatus = "unknown"
	StatusProcessed ConfirmationStatus = "processed"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusFinalized ConfirmationStatus = "finalized"
)

// Settled reports whether the status satisfies the verification pipeline.
// Both confirmed and finalized pass; finalized advancing from confirmed on a
// re-verification is a success either way.
func (s ConfirmationStatus) Settled() bool {
	return s == StatusConfirmed || s == StatusFinalized
}

// VerifyPaymentRequest is the caller-supplied claim that a transaction paid
// for a resource. It is transient input and never persisted as-is.
type VerifyPaymentRequest struct {
	Chain                Chain        `json:"chain" validate:"required,oneof=solana base"`
	TransactionReference string       `json:"transactionReference" validate:"required"`
	PayerAddress         string       `json:"payerAddress" validate:"required"`
	ResourceType         ResourceType `json:"resourceType" validate:"required,oneof=post spam_fee"`
	ResourceID           string       `json:"resourceId" validate:"required"`
	ExpectedAmountRaw    uint64       `json:"resourceExpectedAmountRaw" validate:"required,gt=0"`
	ClaimedTimestamp     int64        `json:"claimedTimestamp,omitempty"`
}

// ResourceContext carries the expectations the caller resolved for the
// resource being paid for. The engine compares against ExpectedRecipient
// verbatim: for post payments that is the author's split address, for spam
// fees the platform treasury. Resolving which is the caller's job.
type ResourceContext struct {
	ResourceType      ResourceType
	ResourceID        string
	ExpectedRecipient string
	ExpectedAmountRaw uint64
}

// TokenTransfer is one token movement extracted from a transaction. On
// Solana, Source and Destination are token-account addresses; on EVM they
// are wallet addresses from ERC-20 Transfer logs. Mint is the SPL mint or
// the ERC-20 contract address.
type TokenTransfer struct {
	Source      string
	Destination string
	AmountRaw   uint64
	Mint        string
}

// PaymentRecord is the structured form of an on-chain transaction as a chain
// backend hands it to the verification engine.
type PaymentRecord struct {
	Reference string
	Transfers []TokenTransfer
	Memo      *string
	Failed    bool
	BlockTime int64
}

// VerifiedPayment is a cryptographically and semantically validated payment
// event. It is only ever constructed at the end of a fully successful
// verification pipeline and is immutable afterward.
type VerifiedPayment struct {
	TransactionReference string             `json:"transactionReference"`
	PayerAddress         string             `json:"payerAddress"`
	RecipientAddress     string             `json:"recipientAddress"`
	AmountRaw            uint64             `json:"amountRaw"`
	CurrencyID           string             `json:"currencyId"`
	Memo                 *string            `json:"memo"`
	ResourceID           string             `json:"resourceId"`
	TimestampUnix        int64              `json:"timestampUnix"`
	ConfirmationStatus   ConfirmationStatus `json:"confirmationStatus"`
}

// SettlementBreakdown is the fee accounting derived from a verified payment.
// PlatformFeeRaw + AuthorAmountRaw always equals the verified AmountRaw.
type SettlementBreakdown struct {
	PlatformFeeRaw  uint64 `json:"platformFeeRaw"`
	AuthorAmountRaw uint64 `json:"authorAmountRaw"`
	FeeBasisPoints  uint32 `json:"feeBasisPoints"`
}

// SplitContract records a deployed per-author revenue split. The recipient
// addresses stored here at deployment time are authoritative for later
// distributions; they are never reconstructed from current configuration.
type SplitContract struct {
	ID               string    `db:"id"`
	AuthorID         string    `db:"author_id"`
	SplitAddress     string    `db:"split_address"`
	AuthorAddress    string    `db:"author_address"`
	PlatformAddress  string    `db:"platform_address"`
	AuthorShareBps   uint32    `db:"author_share_bps"`
	PlatformShareBps uint32    `db:"platform_share_bps"`
	ChainID          int64     `db:"chain_id"`
	CreatedAt        time.Time `db:"created_at"`
}

// SolanaConfig configures the Solana backend. Endpoints are tried in order
// (primary, fallback, public). TreasuryTokenAccount is the platform's USDC
// token account, which is what SPL transfer instructions carry as the
// destination.
type SolanaConfig struct {
	Endpoints            []string
	USDCMint             string
	TreasuryTokenAccount string
}

// EVMConfig configures the EVM backend.
type EVMConfig struct {
	Endpoints             []string
	ChainID               int64
	USDCToken             string
	Treasury              string
	SplitFactory          string
	FinalityConfirmations uint64
}

// Config is the engine-wide configuration.
type Config struct {
	Solana         *SolanaConfig
	EVM            *EVMConfig
	PlatformFeeBps uint32
	MemoExpiry     time.Duration
	RPCTimeout     time.Duration
}

const (
	DefaultPlatformFeeBps = 1000
	DefaultMemoExpiry     = 300 * time.Second
	DefaultRPCTimeout     = 15 * time.Second
)
