// Package clients provides the chain-specific backends the verification
// engine runs on: transaction fetch with endpoint fallback, transfer and
// memo extraction, and finality queries.
package clients

import (
	"context"

	"github.com/clawstack/clawpay/types"
)

// PaymentBackend is the chain capability consumed by the verification
// engine. Two implementations exist (Solana, EVM); supporting a new chain
// means adding one, the engine itself is untouched.
type PaymentBackend interface {
	Chain() types.Chain

	// FetchPayment returns the structured on-chain record for reference, or
	// (nil, nil) when the chain definitively reports no such transaction.
	// A total RPC failure surfaces as an error satisfying
	// IsAllEndpointsFailed.
	FetchPayment(ctx context.Context, reference string) (*types.PaymentRecord, error)

	// ConfirmationStatus queries finality fresh from the chain, never from a
	// cached fetch, since status can advance between calls.
	ConfirmationStatus(ctx context.Context, reference string) (types.ConfirmationStatus, error)

	Close()
}
