package exports

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Checksum returns the hex-encoded BLAKE3-256 digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
