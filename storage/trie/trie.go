package trie

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"

	"claimchain/storage"
)

// Trie is a reusable Merkle-Patricia trie over a storage.Database. Callers
// pass keccak256-hashed keys. It is not safe for concurrent use.
type Trie struct {
	db   *triedb.Database
	trie *gethtrie.Trie
	root common.Hash
}

// NewTrie opens the trie at root. A nil or empty root is the empty trie.
func NewTrie(store storage.Database, root []byte) (*Trie, error) {
	t := &Trie{db: store.TrieDB()}
	rootHash := gethtypes.EmptyRootHash
	if len(root) > 0 {
		rootHash = common.BytesToHash(root)
	}
	if err := t.open(rootHash); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trie) open(root common.Hash) error {
	tr, err := gethtrie.New(gethtrie.TrieID(root), t.db)
	if err != nil {
		return err
	}
	t.trie = tr
	t.root = root
	return nil
}

// Get returns the value stored under key, or nil when absent.
func (t *Trie) Get(key []byte) ([]byte, error) { return t.trie.Get(key) }

// Update writes value under key.
func (t *Trie) Update(key, value []byte) error { return t.trie.Update(key, value) }

// Delete removes key. Missing keys are ignored.
func (t *Trie) Delete(key []byte) error { return t.trie.Delete(key) }

// Hash returns the root including uncommitted writes.
func (t *Trie) Hash() common.Hash { return t.trie.Hash() }

// Root returns the last committed root.
func (t *Trie) Root() common.Hash { return t.root }

// Reset drops pending writes and reopens the trie at root.
func (t *Trie) Reset(root common.Hash) error { return t.open(root) }

// Copy returns an independent working copy over the same node database.
func (t *Trie) Copy() (*Trie, error) {
	return &Trie{db: t.db, trie: t.trie.Copy(), root: t.root}, nil
}

// Commit flushes pending writes to disk on top of parent and reopens the trie
// at the resulting root.
func (t *Trie) Commit(parent common.Hash, height uint64) (common.Hash, error) {
	root, nodes := t.trie.Commit(false)
	if nodes != nil {
		set := trienode.NewMergedNodeSet()
		if err := set.Merge(nodes); err != nil {
			return common.Hash{}, err
		}
		if err := t.db.Update(root, parent, height, set, nil); err != nil {
			return common.Hash{}, err
		}
		if err := t.db.Commit(root, false); err != nil {
			return common.Hash{}, err
		}
	}
	if err := t.open(root); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}
