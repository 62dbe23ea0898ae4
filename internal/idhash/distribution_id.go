// Package idhash derives deterministic identifiers from domain inputs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeDistributionID computes a deterministic distribution id using SHA256.
// Formula: SHA256("distribution"|source_tx_signature)
// Returns hex-encoded hash (64 characters). A fee transaction can only ever map
// to one id, so storage uniqueness on id doubles as replay protection.
func ComputeDistributionID(sourceTxSignature string) string {
	data := fmt.Sprintf("distribution|%s", sourceTxSignature)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
