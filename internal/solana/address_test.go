package solana

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{"system program", SystemProgramID, true},
		{"token program", TokenProgramID, true},
		{"empty", "", false},
		{"not base58", "0OIl", false},
		{"too short", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidAddress(tt.address))
		})
	}
}

func TestIsOnCurve(t *testing.T) {
	// Ed25519 base point encoding is on the curve.
	basePoint := make([]byte, 32)
	basePoint[0] = 0x58
	for i := 1; i < 32; i++ {
		basePoint[i] = 0x66
	}
	assert.True(t, IsOnCurve(base58.Encode(basePoint)))

	// Roughly half of all y coordinates have no matching x.
	var offCurve []byte
	for y := byte(2); y < 255; y++ {
		candidate := make([]byte, 32)
		candidate[0] = y
		if _, err := new(edwards25519.Point).SetBytes(candidate); err != nil {
			offCurve = candidate
			break
		}
	}
	require.NotNil(t, offCurve)
	assert.False(t, IsOnCurve(base58.Encode(offCurve)))

	assert.False(t, IsOnCurve("not-an-address"))
}

func TestParseTokenAccount(t *testing.T) {
	mint := make([]byte, 32)
	mint[0] = 1
	owner := make([]byte, 32)
	owner[0] = 2

	data := make([]byte, TokenAccountSize)
	copy(data[0:32], mint)
	copy(data[32:64], owner)
	binary.LittleEndian.PutUint64(data[64:72], 123456789)

	acct, err := ParseTokenAccount(base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(mint), acct.Mint)
	assert.Equal(t, base58.Encode(owner), acct.Owner)
	assert.Equal(t, uint64(123456789), acct.Amount)

	_, err = ParseTokenAccount(base64.StdEncoding.EncodeToString(data[:40]))
	assert.Error(t, err)

	_, err = ParseTokenAccount("!!!")
	assert.Error(t, err)
}

func TestParseMintDecimals(t *testing.T) {
	data := make([]byte, MintAccountSize)
	data[44] = 6

	dec, err := ParseMintDecimals(base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)
	assert.Equal(t, uint8(6), dec)

	_, err = ParseMintDecimals(base64.StdEncoding.EncodeToString(data[:10]))
	assert.Error(t, err)
}
