package exports

import (
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"claimchain/indexer"
)

type parquetClaim struct {
	Height      int64  `parquet:"name=height, type=INT64"`
	TxHash      string `parquet:"name=tx_hash, type=UTF8, encoding=PLAIN_DICTIONARY"`
	User        string `parquet:"name=user, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Destination string `parquet:"name=destination, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Mint        string `parquet:"name=mint, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Amount      int64  `parquet:"name=amount, type=INT64"`
	Scaled      string `parquet:"name=scaled, type=UTF8, encoding=PLAIN_DICTIONARY"`
	RefundTo    string `parquet:"name=refund_to, type=UTF8, encoding=PLAIN_DICTIONARY"`
	IndexedAt   string `parquet:"name=indexed_at, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

// WriteClaimsParquet writes claims to a Snappy-compressed Parquet file at
// path and returns the checksum of the written file. Amounts are stored as
// INT64; values above math.MaxInt64 are rejected.
func WriteClaimsParquet(path string, claims []indexer.ClaimRecord) (string, error) {
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("exports: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetClaim), 1)
	if err != nil {
		file.Close()
		return "", fmt.Errorf("exports: parquet schema: %w", err)
	}
	pw.RowGroupSize = 16 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, claim := range claims {
		if claim.Amount > 1<<63-1 || claim.Height > 1<<63-1 {
			pw.WriteStop()
			file.Close()
			return "", fmt.Errorf("exports: claim %s exceeds int64 range", claim.TxHash)
		}
		row := &parquetClaim{
			Height:      int64(claim.Height),
			TxHash:      claim.TxHash,
			User:        claim.Claimant,
			Destination: claim.Destination,
			Mint:        claim.Mint,
			Amount:      int64(claim.Amount),
			Scaled:      scaledOrZero(claim.Scaled),
			RefundTo:    claim.RefundTo,
			IndexedAt:   claim.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return "", fmt.Errorf("exports: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return "", fmt.Errorf("exports: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("exports: close parquet file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("exports: read parquet file: %w", err)
	}
	return Checksum(data), nil
}
