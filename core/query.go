package core

import (
	"fmt"
	"math/big"

	"claimchain/core/state"
	"claimchain/native/claim"
	"claimchain/native/issuance"
	"claimchain/storage/trie"
)

// view opens a read-only manager at the committed root. Each query gets its
// own trie so readers never touch the writer's trie.
func (n *Node) view() (*state.Manager, error) {
	n.stateMu.RLock()
	root := n.state.CurrentRoot()
	n.stateMu.RUnlock()
	tr, err := trie.NewTrie(n.db, root.Bytes())
	if err != nil {
		return nil, fmt.Errorf("node: open view: %w", err)
	}
	return state.NewManager(tr), nil
}

// ClaimGlobal returns the claim configuration, or nil before initialization.
func (n *Node) ClaimGlobal() (*state.ClaimGlobal, error) {
	manager, err := n.view()
	if err != nil {
		return nil, err
	}
	cfg, ok, err := manager.ClaimGlobal()
	if err != nil || !ok {
		return nil, err
	}
	return cfg, nil
}

// ClaimEntitlement returns the entitlement record of user.
func (n *Node) ClaimEntitlement(user [20]byte) (*state.ClaimEntitlement, bool, error) {
	manager, err := n.view()
	if err != nil {
		return nil, false, err
	}
	return manager.ClaimEntitlement(user)
}

// Balance returns the base-unit balance of addr for symbol.
func (n *Node) Balance(addr [20]byte, symbol string) (*big.Int, error) {
	manager, err := n.view()
	if err != nil {
		return nil, err
	}
	return manager.Balance(addr[:], symbol)
}

// Token returns token metadata and its total supply. Unknown tokens return a
// nil metadata.
func (n *Node) Token(symbol string) (*state.TokenMetadata, *big.Int, error) {
	manager, err := n.view()
	if err != nil {
		return nil, nil, err
	}
	meta, err := manager.Token(symbol)
	if err != nil || meta == nil {
		return nil, nil, err
	}
	supply, err := manager.TokenSupply(meta.Symbol)
	if err != nil {
		return nil, nil, err
	}
	return meta, supply, nil
}

// Nonce returns the next nonce addr must use.
func (n *Node) Nonce(addr [20]byte) (uint64, error) {
	manager, err := n.view()
	if err != nil {
		return 0, err
	}
	return manager.Nonce(addr[:])
}

// Issuance returns the issuance record once the token exists.
func (n *Node) Issuance() (*issuance.Record, bool, error) {
	manager, err := n.view()
	if err != nil {
		return nil, false, err
	}
	engine := issuance.NewEngine()
	engine.SetState(manager)
	return engine.Issued()
}

// ReserveInfo describes the account claims are paid from.
type ReserveInfo struct {
	Address [20]byte
	Symbol  string
	Balance *big.Int
}

// Reserve returns the program signer's balance of the configured mint. Before
// initialization the symbol is empty and the balance zero.
func (n *Node) Reserve() (*ReserveInfo, error) {
	manager, err := n.view()
	if err != nil {
		return nil, err
	}
	info := &ReserveInfo{Address: claim.ProgramSigner(), Balance: big.NewInt(0)}
	cfg, ok, err := manager.ClaimGlobal()
	if err != nil {
		return nil, err
	}
	if !ok || cfg.Mint == "" {
		return info, nil
	}
	info.Symbol = cfg.Mint
	bal, err := manager.Balance(info.Address[:], cfg.Mint)
	if err != nil {
		return nil, err
	}
	info.Balance = bal
	return info, nil
}
