package exports

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"claimchain/indexer"
)

var claimsHeader = []string{"height", "tx_hash", "user", "destination", "mint", "amount", "scaled", "refund_to", "indexed_at"}

// ClaimsCSV builds a CSV export for the supplied claims and returns the
// serialised data alongside its checksum.
func ClaimsCSV(claims []indexer.ClaimRecord) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if err := writer.Write(claimsHeader); err != nil {
		return nil, "", err
	}
	for _, claim := range claims {
		record := []string{
			strconv.FormatUint(claim.Height, 10),
			claim.TxHash,
			claim.Claimant,
			claim.Destination,
			claim.Mint,
			strconv.FormatUint(claim.Amount, 10),
			scaledOrZero(claim.Scaled),
			claim.RefundTo,
			claim.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	return data, Checksum(data), nil
}

func scaledOrZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
