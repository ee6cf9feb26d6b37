package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"claimchain/storage/trie"
)

// Manager provides typed access to the ledger state stored in the trie. Every
// record is RLP encoded under a keccak256-hashed key.
type Manager struct {
	trie *trie.Trie
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

// Trie exposes the trie backing the manager.
func (m *Manager) Trie() *trie.Trie {
	return m.trie
}

// Root returns the hash of the trie including uncommitted writes.
func (m *Manager) Root() common.Hash {
	return m.trie.Hash()
}

const (
	nsToken   = "token"
	nsSupply  = "supply"
	nsBalance = "balance"
	nsNonce   = "nonce"
)

// namespacedKey hashes "<ns>:<part>:<part>..." into a trie key.
func namespacedKey(ns string, parts ...[]byte) []byte {
	size := len(ns)
	for _, p := range parts {
		size += 1 + len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, ns...)
	for _, p := range parts {
		buf = append(buf, ':')
		buf = append(buf, p...)
	}
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	data, err := m.trie.Get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.trie.Update(key, encoded)
}

// Nonce returns the next expected transaction nonce for addr.
func (m *Manager) Nonce(addr []byte) (uint64, error) {
	var nonce uint64
	if _, err := m.get(namespacedKey(nsNonce, addr), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// SetNonce overwrites the stored nonce for addr.
func (m *Manager) SetNonce(addr []byte, nonce uint64) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	return m.put(namespacedKey(nsNonce, addr), nonce)
}

// KVPut stores value under keccak256(key). Program records use this so their
// location can be derived from the seed alone.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.put(ethcrypto.Keccak256(key), value)
}

// KVGet decodes the value stored under keccak256(key) into out. The boolean
// reports whether the key existed; a nil out only checks presence.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	return m.get(ethcrypto.Keccak256(key), out)
}

// KVDelete removes the value stored under keccak256(key).
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.trie.Delete(ethcrypto.Keccak256(key))
}
