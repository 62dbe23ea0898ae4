// Package reporting renders audit exports of the ledger, draws and distributions.
package reporting

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"io"
	"strconv"
	"time"

	"holder-rewards/internal/domain"
)

var ledgerHeader = []string{
	"address", "raw_balance", "decimals", "unit_price_usd", "usd_value", "tier",
	"multiplier", "membership_baseline", "base_entries", "final_entries", "draw_entries",
	"is_eligible", "excluded", "exclusion_reason", "excluded_by", "snapshot_at",
}

// WriteLedgerCSV writes the annotated ledger as CSV, in the given order, and
// returns the hex SHA-256 of the bytes written.
func WriteLedgerCSV(w io.Writer, ledger []*domain.HolderRecord) (string, error) {
	h := sha256.New()
	writer := csv.NewWriter(io.MultiWriter(w, h))

	if err := writer.Write(ledgerHeader); err != nil {
		return "", err
	}
	for _, r := range ledger {
		if r == nil {
			continue
		}
		record := []string{
			r.Address,
			strconv.FormatUint(r.RawBalance, 10),
			strconv.Itoa(int(r.Decimals)),
			r.UnitPriceUSD.String(),
			r.USDValue.String(),
			string(r.Tier),
			strconv.FormatInt(r.Multiplier, 10),
			strconv.FormatInt(r.MembershipBaseline, 10),
			strconv.FormatInt(r.BaseEntries, 10),
			strconv.FormatInt(r.FinalEntries, 10),
			strconv.FormatInt(r.DrawEntries(), 10),
			strconv.FormatBool(r.IsEligible),
			strconv.FormatBool(r.Excluded),
			r.ExclusionReason,
			r.ExcludedBy,
			r.SnapshotAt.UTC().Format(time.RFC3339Nano),
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
