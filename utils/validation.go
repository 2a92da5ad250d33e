// Package utils holds the request boundary: callers validate a
// VerifyPaymentRequest here before it enters the engine, so the core only
// ever sees well-typed values.
package utils

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/go-playground/validator/v10"

	"github.com/clawstack/clawpay/types"
)

var validate = validator.New()

// ParseVerifyPaymentRequest parses and validates a request from JSON.
func ParseVerifyPaymentRequest(data []byte) (*types.VerifyPaymentRequest, error) {
	var req types.VerifyPaymentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, types.Wrap(types.ErrInvalidRequest, err, "failed to parse verify request")
	}
	if err := ValidateVerifyPaymentRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ValidateVerifyPaymentRequest applies struct-tag validation plus
// chain-specific address and reference format checks.
func ValidateVerifyPaymentRequest(req *types.VerifyPaymentRequest) error {
	if err := validate.Struct(req); err != nil {
		return types.Wrap(types.ErrInvalidRequest, err, "request validation failed")
	}
	if err := ValidateAddress(req.Chain, req.PayerAddress); err != nil {
		return err
	}
	return validateReference(req.Chain, req.TransactionReference)
}

// ValidateAddress checks the address format for the given chain.
func ValidateAddress(chain types.Chain, address string) error {
	switch {
	case chain.IsEVM():
		if !common.IsHexAddress(address) {
			return types.Errf(types.ErrInvalidRequest, "invalid evm address %q", address)
		}
	case chain.IsSolana():
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return types.Errf(types.ErrInvalidRequest, "invalid solana address %q", address)
		}
	default:
		return types.Errf(types.ErrUnsupportedChain, "unknown chain %q", chain)
	}
	return nil
}

func validateReference(chain types.Chain, reference string) error {
	switch {
	case chain.IsEVM():
		if !isTxHash(reference) {
			return types.Errf(types.ErrInvalidRequest, "invalid evm transaction hash %q", reference)
		}
	case chain.IsSolana():
		if _, err := solana.SignatureFromBase58(reference); err != nil {
			return types.Errf(types.ErrInvalidRequest, "invalid solana signature %q", reference)
		}
	}
	return nil
}

func isTxHash(s string) bool {
	if len(s) == 66 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// FormatKnownError renders a typed failure as the caller-facing error body;
// unknown errors are masked.
func FormatKnownError(err error) (string, string) {
	if kind := types.KindOf(err); kind != "" {
		return string(kind), err.Error()
	}
	return "internal", fmt.Sprintf("internal error: %v", err)
}
