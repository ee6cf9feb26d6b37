package state

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// TokenMetadata describes a registered token. An empty MintAuthority means no
// further supply can ever be minted.
type TokenMetadata struct {
	Symbol        string
	Name          string
	URI           string
	Decimals      uint8
	MintAuthority []byte
}

var tokenIndexKey = ethcrypto.Keccak256([]byte("token-index"))

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// BalanceAccountID returns the identifier of the balance slot owned by addr
// for the provided token.
func BalanceAccountID(addr []byte, symbol string) common.Hash {
	return common.BytesToHash(namespacedKey(nsBalance, []byte(normalizeSymbol(symbol)), addr))
}

// RegisterToken stores the metadata for a token and records it in the token
// index. Registering the same symbol twice fails.
func (m *Manager) RegisterToken(symbol, name, uri string, decimals uint8) error {
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("token %s: name must not be empty", sym)
	}
	exists, err := m.get(namespacedKey(nsToken, []byte(sym)), nil)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("token %s already registered", sym)
	}

	index, err := m.TokenList()
	if err != nil {
		return err
	}
	index = append(index, sym)
	sort.Strings(index)
	if err := m.put(tokenIndexKey, index); err != nil {
		return err
	}
	return m.put(namespacedKey(nsToken, []byte(sym)), &TokenMetadata{
		Symbol:   sym,
		Name:     name,
		URI:      strings.TrimSpace(uri),
		Decimals: decimals,
	})
}

// SetTokenMintAuthority replaces the mint authority. A nil authority revokes
// minting permanently.
func (m *Manager) SetTokenMintAuthority(symbol string, authority []byte) error {
	meta, err := m.Token(symbol)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("token %s not registered", normalizeSymbol(symbol))
	}
	meta.MintAuthority = nil
	if len(authority) > 0 {
		meta.MintAuthority = append([]byte(nil), authority...)
	}
	return m.put(namespacedKey(nsToken, []byte(meta.Symbol)), meta)
}

// Token retrieves metadata for a registered token. Unknown tokens return nil.
func (m *Manager) Token(symbol string) (*TokenMetadata, error) {
	meta := new(TokenMetadata)
	ok, err := m.get(namespacedKey(nsToken, []byte(normalizeSymbol(symbol))), meta)
	if err != nil || !ok {
		return nil, err
	}
	return meta, nil
}

// TokenList returns all registered token symbols in sorted order.
func (m *Manager) TokenList() ([]string, error) {
	list := []string{}
	if _, err := m.get(tokenIndexKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// TokenExists reports whether symbol is registered.
func (m *Manager) TokenExists(symbol string) bool {
	meta, err := m.Token(symbol)
	return err == nil && meta != nil
}

// SetBalance stores the balance of addr in a registered token.
func (m *Manager) SetBalance(addr []byte, symbol string, amount *big.Int) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if amount == nil {
		amount = new(big.Int)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	if !m.TokenExists(sym) {
		return fmt.Errorf("token %s not registered", sym)
	}
	return m.put(namespacedKey(nsBalance, []byte(sym), addr), amount)
}

// Balance returns the balance of addr. Missing balances are zero.
func (m *Manager) Balance(addr []byte, symbol string) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := m.get(namespacedKey(nsBalance, []byte(normalizeSymbol(symbol)), addr), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// TokenSupply returns the circulating supply of symbol. Unminted tokens report
// zero.
func (m *Manager) TokenSupply(symbol string) (*big.Int, error) {
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return nil, fmt.Errorf("token symbol required")
	}
	total := new(big.Int)
	if _, err := m.get(namespacedKey(nsSupply, []byte(sym)), total); err != nil {
		return nil, err
	}
	return total, nil
}

// AdjustTokenSupply adds delta (which may be negative) to the supply of symbol
// and returns the new total. The supply never drops below zero.
func (m *Manager) AdjustTokenSupply(symbol string, delta *big.Int) (*big.Int, error) {
	total, err := m.TokenSupply(symbol)
	if err != nil {
		return nil, err
	}
	if delta != nil {
		total.Add(total, delta)
	}
	if total.Sign() < 0 {
		return nil, fmt.Errorf("token %s supply underflow", normalizeSymbol(symbol))
	}
	if err := m.put(namespacedKey(nsSupply, []byte(normalizeSymbol(symbol))), total); err != nil {
		return nil, err
	}
	return total, nil
}
