package tx

import (
	"errors"
	"fmt"
	"math/big"

	"claimchain/core/types"
)

var (
	ErrInvalidChainID   = errors.New("tx: invalid chain id")
	ErrUnsupportedType  = errors.New("tx: unsupported transaction type")
	ErrUnexpectedCosign = errors.New("tx: co-signature only allowed on claim_token")
)

// Check performs the stateless validation shared by the RPC front door and
// the node: chain id, type, signatures and payload shape. It returns the
// recovered sender.
func Check(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx: nil transaction")
	}
	if !types.IsValidChainID(tx.ChainID, chainID) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidChainID, tx.ChainID)
	}
	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, tx.Type)
	}
	sender, err := tx.From()
	if err != nil {
		return nil, err
	}
	hasCosign := tx.AuthorityR != nil || tx.AuthorityS != nil || tx.AuthorityV != nil
	if tx.Type == types.TxTypeClaimToken {
		if _, err := tx.Authority(); err != nil {
			return nil, err
		}
	} else if hasCosign {
		return nil, ErrUnexpectedCosign
	}
	if err := decodePayload(tx); err != nil {
		return nil, err
	}
	return sender, nil
}

func decodePayload(tx *types.Transaction) error {
	switch tx.Type {
	case types.TxTypeInitToken:
		return tx.DecodePayload(new(types.InitTokenPayload))
	case types.TxTypeInitialize:
		return tx.DecodePayload(new(types.InitializePayload))
	case types.TxTypeSetEnabled:
		return tx.DecodePayload(new(types.SetEnabledPayload))
	case types.TxTypeUpdateUserAmount:
		return tx.DecodePayload(new(types.UpdateUserAmountPayload))
	case types.TxTypeClaimToken:
		if len(tx.Data) == 0 {
			return nil
		}
		return tx.DecodePayload(new(types.ClaimTokenPayload))
	case types.TxTypeTransfer:
		return tx.DecodePayload(new(types.TransferPayload))
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, tx.Type)
}
