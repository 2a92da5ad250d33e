package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawstack/clawpay/types"
)

const (
	validSolanaAddr = "9aE476sH92Vz7DMPyq5WLPkrKWivxeuTKEFKd2sZZcde"
	validSolanaSig  = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
	validEVMAddr    = "0x95222290DD7278Aa3Ddd389Cc1E1d165CC4BAfe5"
	validEVMHash    = "0x3a1b2c3d4e5f60718293a4b5c6d7e8f90123456789abcdef0123456789abcdef"
)

func validRequest(chain types.Chain) *types.VerifyPaymentRequest {
	req := &types.VerifyPaymentRequest{
		Chain:             chain,
		ResourceType:      types.ResourcePost,
		ResourceID:        "post-abc",
		ExpectedAmountRaw: 250_000,
	}
	if chain.IsSolana() {
		req.TransactionReference = validSolanaSig
		req.PayerAddress = validSolanaAddr
	} else {
		req.TransactionReference = validEVMHash
		req.PayerAddress = validEVMAddr
	}
	return req
}

func TestValidateVerifyPaymentRequest(t *testing.T) {
	require.NoError(t, ValidateVerifyPaymentRequest(validRequest(types.ChainSolana)))
	require.NoError(t, ValidateVerifyPaymentRequest(validRequest(types.ChainBase)))

	tests := []struct {
		name   string
		mutate func(*types.VerifyPaymentRequest)
	}{
		{name: "unknown chain", mutate: func(r *types.VerifyPaymentRequest) { r.Chain = "dogecoin" }},
		{name: "missing resource id", mutate: func(r *types.VerifyPaymentRequest) { r.ResourceID = "" }},
		{name: "zero amount", mutate: func(r *types.VerifyPaymentRequest) { r.ExpectedAmountRaw = 0 }},
		{name: "bad resource type", mutate: func(r *types.VerifyPaymentRequest) { r.ResourceType = "tip" }},
		{name: "bad payer address", mutate: func(r *types.VerifyPaymentRequest) { r.PayerAddress = "nope" }},
		{name: "bad reference", mutate: func(r *types.VerifyPaymentRequest) { r.TransactionReference = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(types.ChainSolana)
			tt.mutate(req)
			err := ValidateVerifyPaymentRequest(req)
			require.Error(t, err)
			assert.NotEmpty(t, types.KindOf(err))
		})
	}
}

func TestValidateAddress(t *testing.T) {
	require.NoError(t, ValidateAddress(types.ChainBase, validEVMAddr))
	require.NoError(t, ValidateAddress(types.ChainSolana, validSolanaAddr))

	err := ValidateAddress(types.ChainBase, validSolanaAddr)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.KindOf(err))

	err = ValidateAddress(types.ChainSolana, validEVMAddr)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.KindOf(err))

	err = ValidateAddress("dogecoin", validEVMAddr)
	require.Error(t, err)
	assert.Equal(t, types.ErrUnsupportedChain, types.KindOf(err))
}

func TestParseVerifyPaymentRequest(t *testing.T) {
	body := []byte(`{
		"chain": "solana",
		"transactionReference": "` + validSolanaSig + `",
		"payerAddress": "` + validSolanaAddr + `",
		"resourceType": "post",
		"resourceId": "post-abc",
		"resourceExpectedAmountRaw": 250000,
		"claimedTimestamp": 1706960100
	}`)

	req, err := ParseVerifyPaymentRequest(body)
	require.NoError(t, err)
	assert.Equal(t, types.ChainSolana, req.Chain)
	assert.Equal(t, "post-abc", req.ResourceID)
	assert.Equal(t, uint64(250_000), req.ExpectedAmountRaw)
	assert.Equal(t, int64(1706960100), req.ClaimedTimestamp)

	_, err = ParseVerifyPaymentRequest([]byte(`{not json`))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.KindOf(err))
}

func TestFormatKnownError(t *testing.T) {
	kind, msg := FormatKnownError(types.Errf(types.ErrMemoExpired, "memo timestamp skew 600s exceeds 300s window"))
	assert.Equal(t, "memo_expired", kind)
	assert.Contains(t, msg, "300s window")

	kind, msg = FormatKnownError(errors.New("pq: connection refused"))
	assert.Equal(t, "internal", kind)
	assert.Contains(t, msg, "internal error")
}
