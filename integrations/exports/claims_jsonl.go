package exports

import (
	"bytes"
	"encoding/json"
	"time"

	"claimchain/indexer"
)

type claimLine struct {
	Height      uint64 `json:"height"`
	TxHash      string `json:"txHash"`
	User        string `json:"user"`
	Destination string `json:"destination"`
	Mint        string `json:"mint"`
	Amount      uint64 `json:"amount"`
	Scaled      string `json:"scaled"`
	RefundTo    string `json:"refundTo"`
	IndexedAt   string `json:"indexedAt"`
}

// ClaimsJSONL builds a JSON Lines export for the supplied claims and returns
// the serialised payload alongside its checksum.
func ClaimsJSONL(claims []indexer.ClaimRecord) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, claim := range claims {
		line := claimLine{
			Height:      claim.Height,
			TxHash:      claim.TxHash,
			User:        claim.Claimant,
			Destination: claim.Destination,
			Mint:        claim.Mint,
			Amount:      claim.Amount,
			Scaled:      scaledOrZero(claim.Scaled),
			RefundTo:    claim.RefundTo,
			IndexedAt:   claim.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := encoder.Encode(line); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	return data, Checksum(data), nil
}
