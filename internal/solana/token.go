package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// SPL token account and mint layout sizes.
const (
	TokenAccountSize = 165
	MintAccountSize  = 82
)

// TokenAccount is the decoded prefix of an SPL token account.
type TokenAccount struct {
	Mint   string
	Owner  string
	Amount uint64
}

// ParseTokenAccount parses base64 SPL token account data.
// Token account layout: mint(32) | owner(32) | amount(8) | ...
func ParseTokenAccount(data string) (*TokenAccount, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode token account data: %w", err)
	}
	if len(decoded) < 72 {
		return nil, fmt.Errorf("token account data too short: %d", len(decoded))
	}
	return &TokenAccount{
		Mint:   base58.Encode(decoded[0:32]),
		Owner:  base58.Encode(decoded[32:64]),
		Amount: binary.LittleEndian.Uint64(decoded[64:72]),
	}, nil
}

// ParseMintDecimals parses base64 SPL mint data and returns its decimals.
// Mint layout: mint_authority(36) | supply(8) | decimals(1) | ...
func ParseMintDecimals(data string) (uint8, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < 45 {
		return 0, fmt.Errorf("mint data too short: %d", len(decoded))
	}
	return decoded[44], nil
}
