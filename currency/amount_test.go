package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayToAtomic(t *testing.T) {
	tests := []struct {
		name    string
		display string
		want    uint64
		wantErr bool
	}{
		{name: "quarter dollar", display: "0.25", want: 250_000},
		{name: "whole dollar", display: "1", want: 1_000_000},
		{name: "full precision", display: "12.345678", want: 12_345_678},
		{name: "half atomic unit rounds up", display: "0.0000005", want: 1},
		{name: "tenth atomic unit rounds down", display: "0.0000001", want: 0},
		{name: "zero", display: "0", want: 0},
		{name: "negative rejected", display: "-1.50", wantErr: true},
		{name: "not a number", display: "abc", wantErr: true},
		{name: "overflow rejected", display: "99999999999999999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DisplayToAtomic(tt.display)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAtomicToDisplay(t *testing.T) {
	assert.Equal(t, "0.250000", AtomicToDisplay(250_000))
	assert.Equal(t, "1.000000", AtomicToDisplay(1_000_000))
	assert.Equal(t, "0.000001", AtomicToDisplay(1))
	assert.Equal(t, "0.000000", AtomicToDisplay(0))
	assert.Equal(t, "12.345678", AtomicToDisplay(12_345_678))
}

func TestDisplayAtomicRoundTrip(t *testing.T) {
	for _, raw := range []uint64{0, 1, 999_999, 1_000_000, 250_000, 123_456_789} {
		back, err := DisplayToAtomic(AtomicToDisplay(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, back)
	}
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name         string
		raw          uint64
		feeBps       uint32
		wantPlatform uint64
		wantAuthor   uint64
	}{
		{name: "ten percent of a dollar", raw: 1_000_000, feeBps: 1000, wantPlatform: 100_000, wantAuthor: 900_000},
		{name: "fee floors", raw: 999, feeBps: 1000, wantPlatform: 99, wantAuthor: 900},
		{name: "tiny amount all to author", raw: 9, feeBps: 1000, wantPlatform: 0, wantAuthor: 9},
		{name: "zero fee", raw: 500_000, feeBps: 0, wantPlatform: 0, wantAuthor: 500_000},
		{name: "full fee", raw: 500_000, feeBps: 10_000, wantPlatform: 500_000, wantAuthor: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform, author := SplitFee(tt.raw, tt.feeBps)
			assert.Equal(t, tt.wantPlatform, platform)
			assert.Equal(t, tt.wantAuthor, author)
			assert.Equal(t, tt.raw, platform+author, "parts must sum to the original amount")
		})
	}
}

func TestSplitFeeNoOverflow(t *testing.T) {
	raw := uint64(1<<63 + 12345)
	platform, author := SplitFee(raw, 1000)
	assert.Equal(t, raw, platform+author)
	assert.Equal(t, raw/10, platform)
}
