// Package memo implements the clawstack payment memo wire format.
//
// The memo is an ASCII string "clawstack:<resourceId>:<unixTimestamp>"
// embedded via the Solana memo program. It is a bit-exact external contract:
// payer tooling builds the same string, so parsing is strict and never
// coerces a malformed memo into a valid one.
package memo

import (
	"strconv"
	"strings"

	"github.com/clawstack/clawpay/types"
)

// Namespace is the fixed first field of every clawstack memo.
const Namespace = "clawstack"

// PaymentMemo is a parsed, well-formed memo.
type PaymentMemo struct {
	ResourceID    string
	TimestampUnix int64
}

// Build renders the memo string for a resource at the given unix time.
func Build(resourceID string, timestampUnix int64) string {
	return Namespace + ":" + resourceID + ":" + strconv.FormatInt(timestampUnix, 10)
}

// Parse validates the three-field colon-delimited format. Any deviation
// (wrong field count, wrong namespace, empty resource id, non-numeric
// timestamp) fails with ErrInvalidMemo.
func Parse(raw string) (*PaymentMemo, error) {
	fields := strings.Split(raw, ":")
	if len(fields) != 3 {
		return nil, types.Errf(types.ErrInvalidMemo, "memo has %d fields, want 3", len(fields))
	}
	if fields[0] != Namespace {
		return nil, types.Errf(types.ErrInvalidMemo, "memo namespace %q, want %q", fields[0], Namespace)
	}
	if fields[1] == "" {
		return nil, types.Errf(types.ErrInvalidMemo, "memo resource id is empty")
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, types.Errf(types.ErrInvalidMemo, "memo timestamp %q is not numeric", fields[2])
	}
	return &PaymentMemo{ResourceID: fields[1], TimestampUnix: ts}, nil
}

// CheckFreshness fails with ErrMemoExpired when the absolute skew between
// the claimed request time and the memo timestamp exceeds the window.
// Exactly the window passes.
func (m *PaymentMemo) CheckFreshness(claimedUnix int64, windowSeconds int64) error {
	skew := claimedUnix - m.TimestampUnix
	if skew < 0 {
		skew = -skew
	}
	if skew > windowSeconds {
		return types.Errf(types.ErrMemoExpired, "memo timestamp skew %ds exceeds %ds window", skew, windowSeconds)
	}
	return nil
}
