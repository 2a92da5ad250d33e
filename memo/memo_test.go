package memo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawstack/clawpay/types"
)

func TestBuild(t *testing.T) {
	assert.Equal(t, "clawstack:post-abc:1706960000", Build("post-abc", 1706960000))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *PaymentMemo
	}{
		{name: "valid", raw: "clawstack:post-abc:1706960000", want: &PaymentMemo{ResourceID: "post-abc", TimestampUnix: 1706960000}},
		{name: "uuid resource id", raw: "clawstack:7f9c0a6e-9e3b-4c21-8f4a-2d1e5b6a7c8d:1", want: &PaymentMemo{ResourceID: "7f9c0a6e-9e3b-4c21-8f4a-2d1e5b6a7c8d", TimestampUnix: 1}},
		{name: "too few fields", raw: "clawstack:post-abc"},
		{name: "too many fields", raw: "clawstack:post:abc:1706960000"},
		{name: "wrong namespace", raw: "claw:post-abc:1706960000"},
		{name: "empty resource id", raw: "clawstack::1706960000"},
		{name: "non-numeric timestamp", raw: "clawstack:post-abc:yesterday"},
		{name: "empty string", raw: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.want == nil {
				require.Error(t, err)
				assert.Equal(t, types.ErrInvalidMemo, types.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckFreshness(t *testing.T) {
	m := &PaymentMemo{ResourceID: "post-abc", TimestampUnix: 1706960000}

	require.NoError(t, m.CheckFreshness(1706960000, 300))
	require.NoError(t, m.CheckFreshness(1706960100, 300))
	// Skew exactly at the window still passes.
	require.NoError(t, m.CheckFreshness(1706960300, 300))
	// Clock drift in the other direction is tolerated the same way.
	require.NoError(t, m.CheckFreshness(1706959700, 300))

	err := m.CheckFreshness(1706960301, 300)
	require.Error(t, err)
	assert.Equal(t, types.ErrMemoExpired, types.KindOf(err))

	err = m.CheckFreshness(1706959699, 300)
	require.Error(t, err)
	assert.Equal(t, types.ErrMemoExpired, types.KindOf(err))
}
