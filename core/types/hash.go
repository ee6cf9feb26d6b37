package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTxHash is returned for malformed transaction hash references.
var ErrInvalidTxHash = errors.New("tx: invalid hash")

// ParseTxHash decodes a 32-byte transaction hash written as hex, with or
// without a 0x prefix.
func ParseTxHash(ref string) ([]byte, error) {
	s := strings.TrimSpace(ref)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*32 {
		return nil, fmt.Errorf("%w: want 64 hex characters, got %d", ErrInvalidTxHash, len(s))
	}
	hash, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTxHash, err)
	}
	return hash, nil
}
