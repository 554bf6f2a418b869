package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Network
		wantErr bool
	}{
		{"bnb", BNB, false},
		{"BSC", BNB, false},
		{" binance ", BNB, false},
		{"solana", Solana, false},
		{"SOL", Solana, false},
		{"ethereum", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownNetwork, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNativeSymbol(t *testing.T) {
	assert.Equal(t, "BNB", BNB.NativeSymbol())
	assert.Equal(t, "SOL", Solana.NativeSymbol())
}

func TestValidateAddress_BNB(t *testing.T) {
	require.NoError(t, ValidateAddress(BNB, "0xdAC17F958D2ee523a2206206994597C13D831ec7"))

	for _, bad := range []string{
		"",
		"dAC17F958D2ee523a2206206994597C13D831ec7",    // missing 0x
		"0xdAC17F958D2ee523a2206206994597C13D831e",    // too short
		"0xZZC17F958D2ee523a2206206994597C13D831ec7",  // non-hex
		"0xdAC17F958D2ee523a2206206994597C13D831ec7a", // too long
	} {
		assert.ErrorIs(t, ValidateAddress(BNB, bad), ErrInvalidAddress, "address %q", bad)
	}
}

func TestValidateAddress_Solana(t *testing.T) {
	// wSOL mint: canonical 32-byte base58 address.
	require.NoError(t, ValidateAddress(Solana, "So11111111111111111111111111111111111111112"))

	for _, bad := range []string{
		"",
		"0xdAC17F958D2ee523a2206206994597C13D831ec7", // hex, not base58 (contains 0, x, l)
		"abc",      // decodes too short
		"O0Il+/==", // invalid base58 alphabet
	} {
		assert.ErrorIs(t, ValidateAddress(Solana, bad), ErrInvalidAddress, "address %q", bad)
	}
}

func TestExplorerTxURL(t *testing.T) {
	e := DefaultExplorers()
	assert.Equal(t, "https://bscscan.com/tx/0xabc", e.TxURL(BNB, "0xabc"))
	assert.Equal(t, "https://solscan.io/tx/5sig", e.TxURL(Solana, "5sig"))

	custom := ExplorerBases{BNB: "https://testnet.bscscan.com/tx/"}
	assert.Equal(t, "https://testnet.bscscan.com/tx/0xdef", custom.TxURL(BNB, "0xdef"))
}
