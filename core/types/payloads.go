package types

// InitTokenPayload is carried by TxTypeInitToken.
type InitTokenPayload struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	URI         string `json:"uri"`
	TotalSupply uint64 `json:"totalSupply"`
	// Destination optionally overrides the account receiving the minted
	// supply. Empty means the claim reserve.
	Destination string `json:"destination,omitempty"`
}

// InitializePayload is carried by TxTypeInitialize.
type InitializePayload struct {
	Mint string `json:"mint"`
}

// SetEnabledPayload is carried by TxTypeSetEnabled.
type SetEnabledPayload struct {
	Enabled bool `json:"enabled"`
}

// UpdateUserAmountPayload is carried by TxTypeUpdateUserAmount.
type UpdateUserAmountPayload struct {
	User   string `json:"user"`
	Amount uint64 `json:"amount"`
}

// ClaimTokenPayload is carried by TxTypeClaimToken. Mint is optional; when set
// it must match the program's canonical mint.
type ClaimTokenPayload struct {
	Mint string `json:"mint,omitempty"`
}

// TransferPayload is carried by TxTypeTransfer. Amount is expressed in base
// units as a decimal string.
type TransferPayload struct {
	To     string `json:"to"`
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}
