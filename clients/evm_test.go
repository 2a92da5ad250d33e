package clients

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawstack/clawpay/types"
)

var (
	evmFrom = common.HexToAddress("0x95222290DD7278Aa3Ddd389Cc1E1d165CC4BAfe5")
	evmTo   = common.HexToAddress("0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326")
)

func newEVMTestClient(t *testing.T) *EVMClient {
	t.Helper()
	client, err := NewEVMClient(clientTestEVMConfig([]string{"http://localhost:8545"}), DefaultFailoverConfig, noopLog())
	require.NoError(t, err)
	return client
}

func transferLog(token, from, to common.Address, value *big.Int) *ethtypes.Log {
	return &ethtypes.Log{
		Address: token,
		Topics: []common.Hash{
			erc20TransferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(value.Bytes(), 32),
	}
}

func TestExtractTransfers(t *testing.T) {
	client := newEVMTestClient(t)
	token := client.token

	receipt := &ethtypes.Receipt{
		TxHash: common.HexToHash("0x01"),
		Logs: []*ethtypes.Log{
			transferLog(token, evmFrom, evmTo, big.NewInt(250_000)),
			// Transfer of some other token in the same transaction.
			transferLog(common.HexToAddress("0x4200000000000000000000000000000000000006"), evmFrom, evmTo, big.NewInt(99)),
			// Approval-shaped log on the right token: wrong topic count.
			{Address: token, Topics: []common.Hash{erc20TransferTopic}, Data: nil},
		},
	}

	transfers := client.extractTransfers(receipt)
	require.Len(t, transfers, 1)
	assert.Equal(t, evmFrom.Hex(), transfers[0].Source)
	assert.Equal(t, evmTo.Hex(), transfers[0].Destination)
	assert.Equal(t, uint64(250_000), transfers[0].AmountRaw)
	assert.Equal(t, token.Hex(), transfers[0].Mint)
}

func TestExtractTransfersSkipsOversizedAmount(t *testing.T) {
	client := newEVMTestClient(t)

	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	receipt := &ethtypes.Receipt{
		TxHash: common.HexToHash("0x01"),
		Logs:   []*ethtypes.Log{transferLog(client.token, evmFrom, evmTo, huge)},
	}
	assert.Empty(t, client.extractTransfers(receipt))
}

func TestStatusForDepth(t *testing.T) {
	client := newEVMTestClient(t)

	tests := []struct {
		name  string
		block int64
		head  uint64
		want  types.ConfirmationStatus
	}{
		{name: "one confirmation", block: 100, head: 100, want: types.StatusConfirmed},
		{name: "eleven confirmations", block: 100, head: 110, want: types.StatusConfirmed},
		{name: "exactly at finality depth", block: 100, head: 111, want: types.StatusFinalized},
		{name: "beyond finality depth", block: 100, head: 500, want: types.StatusFinalized},
		{name: "block ahead of head", block: 200, head: 100, want: types.StatusProcessed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.statusForDepth(big.NewInt(tt.block), tt.head)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, types.StatusProcessed, client.statusForDepth(nil, 100))
}

func TestStatusForDepthDefaultFinality(t *testing.T) {
	cfg := clientTestEVMConfig([]string{"http://localhost:8545"})
	cfg.FinalityConfirmations = 0
	client, err := NewEVMClient(cfg, DefaultFailoverConfig, noopLog())
	require.NoError(t, err)

	assert.Equal(t, types.StatusConfirmed, client.statusForDepth(big.NewInt(100), 110))
	assert.Equal(t, types.StatusFinalized, client.statusForDepth(big.NewInt(100), 111))
}

func TestParseTxHash(t *testing.T) {
	want := common.HexToHash("0x3a1b2c3d4e5f60718293a4b5c6d7e8f90123456789abcdef0123456789abcdef")

	got, err := parseTxHash("0x3a1b2c3d4e5f60718293a4b5c6d7e8f90123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = parseTxHash("3a1b2c3d4e5f60718293a4b5c6d7e8f90123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Uppercase prefix passes boundary validation, so it must parse here too.
	got, err = parseTxHash("0X3a1b2c3d4e5f60718293a4b5c6d7e8f90123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, bad := range []string{"", "0x1234", "zz1b2c3d4e5f60718293a4b5c6d7e8f90123456789abcdef0123456789abcdef"} {
		_, err := parseTxHash(bad)
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidRequest, types.KindOf(err))
	}
}

func TestNewEVMClientValidation(t *testing.T) {
	_, err := NewEVMClient(clientTestEVMConfig(nil), DefaultFailoverConfig, noopLog())
	require.Error(t, err)

	cfg := clientTestEVMConfig([]string{"http://localhost:8545"})
	cfg.USDCToken = "not-an-address"
	_, err = NewEVMClient(cfg, DefaultFailoverConfig, noopLog())
	require.Error(t, err)

	client := newEVMTestClient(t)
	assert.Equal(t, int64(8453), client.ChainID())
	assert.Equal(t, types.ChainBase, client.Chain())
}
