package events

import (
	"math/big"
	"strconv"

	"claimchain/core/types"
)

const (
	TypeTokenMetadataRegistered = "token.metadata.registered"
	TypeTokenMinted             = "token.minted"
	TypeMintAuthorityRevoked    = "token.mint_authority.revoked"
	TypeTokenTransferred        = "token.transferred"
)

type TokenMetadataRegistered struct {
	Symbol        string
	Name          string
	URI           string
	Decimals      uint8
	MintAuthority [20]byte
}

func (TokenMetadataRegistered) EventType() string { return TypeTokenMetadataRegistered }

func (e TokenMetadataRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenMetadataRegistered,
		Attributes: map[string]string{
			"symbol":        normalizeAsset(e.Symbol),
			"name":          e.Name,
			"uri":           e.URI,
			"decimals":      strconv.Itoa(int(e.Decimals)),
			"mintAuthority": formatAddr(e.MintAuthority),
		},
	}
}

type TokenMinted struct {
	Symbol string
	To     [20]byte
	Amount *big.Int
}

func (TokenMinted) EventType() string { return TypeTokenMinted }

func (e TokenMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenMinted,
		Attributes: map[string]string{
			"symbol": normalizeAsset(e.Symbol),
			"to":     formatAddr(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}

type MintAuthorityRevoked struct {
	Symbol   string
	Previous [20]byte
}

func (MintAuthorityRevoked) EventType() string { return TypeMintAuthorityRevoked }

func (e MintAuthorityRevoked) Event() *types.Event {
	return &types.Event{
		Type: TypeMintAuthorityRevoked,
		Attributes: map[string]string{
			"symbol":   normalizeAsset(e.Symbol),
			"previous": formatAddr(e.Previous),
		},
	}
}

type TokenTransferred struct {
	Symbol string
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (TokenTransferred) EventType() string { return TypeTokenTransferred }

func (e TokenTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenTransferred,
		Attributes: map[string]string{
			"symbol": normalizeAsset(e.Symbol),
			"from":   formatAddr(e.From),
			"to":     formatAddr(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}
