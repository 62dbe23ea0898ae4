package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"holder-rewards/internal/domain"
)

// ComputeLedgerDigest hashes the ordered entry ranges a draw was run against.
// Formula: SHA256(address|start|end\n ...) over ranges in the given order.
// Recorded on each DrawResult so a draw can be re-verified against the ledger.
func ComputeLedgerDigest(ranges []domain.EntryRange) string {
	h := sha256.New()
	buf := make([]byte, 0, 96)
	for _, r := range ranges {
		buf = buf[:0]
		buf = append(buf, r.Address...)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, r.Start, 10)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, r.End, 10)
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
