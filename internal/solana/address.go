package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	SystemProgramID    = "11111111111111111111111111111111"
)

// DecodeAddress decodes a base58 public key and checks its length.
func DecodeAddress(address string) ([]byte, error) {
	b, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", address, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("address %q: expected 32 bytes, got %d", address, len(b))
	}
	return b, nil
}

// ValidAddress reports whether address is a well-formed public key.
func ValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// IsOnCurve reports whether the address is a point on the ed25519 curve.
// Program-derived addresses are off-curve and have no private key.
func IsOnCurve(address string) bool {
	b, err := DecodeAddress(address)
	if err != nil {
		return false
	}
	return isOnCurve(b)
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
