package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"claimchain/core/types"
	"claimchain/storage"
)

var (
	headKey       = []byte("claimchain/head")
	receiptPrefix = []byte("claimchain/receipt/")
)

// Head identifies the latest committed state.
type Head struct {
	Height uint64      `json:"height"`
	Root   common.Hash `json:"root"`
}

// Receipt records a committed transaction and the events it produced.
type Receipt struct {
	TxHash string        `json:"txHash"`
	Type   string        `json:"type"`
	Sender string        `json:"sender"`
	Height uint64        `json:"height"`
	Root   common.Hash   `json:"root"`
	Events []types.Event `json:"events"`
}

// Blockchain tracks the committed head and transaction receipts. Every
// committed transaction advances the height by one.
type Blockchain struct {
	db   storage.Database
	mu   sync.RWMutex
	head Head
}

// NewBlockchain loads the persisted head, starting from the empty state when
// none exists.
func NewBlockchain(db storage.Database) (*Blockchain, error) {
	bc := &Blockchain{db: db}
	has, err := db.Has(headKey)
	if err != nil {
		return nil, err
	}
	if !has {
		return bc, nil
	}
	raw, err := db.Get(headKey)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &bc.head); err != nil {
		return nil, fmt.Errorf("decode head: %w", err)
	}
	return bc, nil
}

// Head returns the latest committed head.
func (bc *Blockchain) Head() Head {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.head
}

// GetHeight returns the number of committed transactions.
func (bc *Blockchain) GetHeight() uint64 {
	return bc.Head().Height
}

// Append persists the receipt and advances the head to root. The receipt's
// height must be the next height.
func (bc *Blockchain) Append(root common.Hash, receipt *Receipt) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	next := Head{Height: bc.head.Height + 1, Root: root}
	if receipt != nil {
		if receipt.Height != next.Height {
			return fmt.Errorf("receipt height %d does not follow head %d", receipt.Height, bc.head.Height)
		}
		hash, err := hex.DecodeString(receipt.TxHash)
		if err != nil {
			return fmt.Errorf("receipt tx hash: %w", err)
		}
		encoded, err := json.Marshal(receipt)
		if err != nil {
			return err
		}
		if err := bc.db.Put(receiptKey(hash), encoded); err != nil {
			return err
		}
	}
	encoded, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := bc.db.Put(headKey, encoded); err != nil {
		return err
	}
	bc.head = next
	return nil
}

// Receipt looks up the receipt of a committed transaction.
func (bc *Blockchain) Receipt(hash []byte) (*Receipt, bool, error) {
	key := receiptKey(hash)
	has, err := bc.db.Has(key)
	if err != nil || !has {
		return nil, false, err
	}
	raw, err := bc.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	receipt := new(Receipt)
	if err := json.Unmarshal(raw, receipt); err != nil {
		return nil, false, fmt.Errorf("decode receipt: %w", err)
	}
	return receipt, true, nil
}

func receiptKey(hash []byte) []byte {
	key := make([]byte, len(receiptPrefix)+len(hash))
	copy(key, receiptPrefix)
	copy(key[len(receiptPrefix):], hash)
	return key
}
