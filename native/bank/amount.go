package bank

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// ErrAmountOverflow reports that a scaled amount does not fit a 64-bit token
// quantity.
var ErrAmountOverflow = errors.New("bank: scaled amount overflows")

var ten = uint256.NewInt(10)

// ScaleAmount converts a whole-token quantity into base units by multiplying
// it with 10^decimals. Results larger than a uint64 are rejected.
func ScaleAmount(amount uint64, decimals uint8) (*big.Int, error) {
	scaled := uint256.NewInt(amount)
	for i := uint8(0); i < decimals; i++ {
		if _, overflow := scaled.MulOverflow(scaled, ten); overflow {
			return nil, ErrAmountOverflow
		}
	}
	if !scaled.IsUint64() {
		return nil, ErrAmountOverflow
	}
	return scaled.ToBig(), nil
}
