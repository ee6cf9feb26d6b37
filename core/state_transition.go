package core

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"claimchain/core/events"
	"claimchain/core/state"
	"claimchain/core/types"
	"claimchain/crypto"
	"claimchain/native/bank"
	"claimchain/native/claim"
	"claimchain/native/issuance"
	"claimchain/storage/trie"
)

var (
	// ErrNonceMismatch is returned when a transaction does not carry the
	// sender's next nonce.
	ErrNonceMismatch = errors.New("nonce mismatch")
	// ErrInvalidPayload wraps payload fields that fail validation.
	ErrInvalidPayload = errors.New("invalid payload")
)

// StateProcessor applies transactions to a state trie. Copies share the trie
// database but not pending writes, which makes a copy the unit of work for a
// single transaction.
type StateProcessor struct {
	Trie          *trie.Trie
	committedRoot common.Hash
	decimals      uint8
}

// NewStateProcessor wraps tr. decimals is the precision used when issuing the
// program token.
func NewStateProcessor(tr *trie.Trie, decimals uint8) *StateProcessor {
	return &StateProcessor{
		Trie:          tr,
		committedRoot: tr.Root(),
		decimals:      decimals,
	}
}

// CurrentRoot returns the last committed state root.
func (sp *StateProcessor) CurrentRoot() common.Hash {
	return sp.committedRoot
}

// PendingRoot returns the root of the trie including in-memory mutations.
func (sp *StateProcessor) PendingRoot() common.Hash {
	return sp.Trie.Hash()
}

// ResetToRoot discards any in-memory changes and reloads the trie at the
// provided root hash.
func (sp *StateProcessor) ResetToRoot(root common.Hash) error {
	if err := sp.Trie.Reset(root); err != nil {
		return err
	}
	sp.committedRoot = root
	return nil
}

// Commit persists the current trie contents and returns the resulting state
// root.
func (sp *StateProcessor) Commit(height uint64) (common.Hash, error) {
	newRoot, err := sp.Trie.Commit(sp.committedRoot, height)
	if err != nil {
		return common.Hash{}, err
	}
	sp.committedRoot = newRoot
	return newRoot, nil
}

// Copy returns a clone of the state processor that can be used for
// speculative execution without mutating the canonical state.
func (sp *StateProcessor) Copy() (*StateProcessor, error) {
	trieCopy, err := sp.Trie.Copy()
	if err != nil {
		return nil, err
	}
	return &StateProcessor{
		Trie:          trieCopy,
		committedRoot: sp.committedRoot,
		decimals:      sp.decimals,
	}, nil
}

// ApplyTransaction validates the sender nonce, executes tx and bumps the
// nonce. Events are delivered to emitter as they occur; callers that need
// commit-time delivery pass a buffer. On error the processor holds partial
// writes and must be discarded.
func (sp *StateProcessor) ApplyTransaction(tx *types.Transaction, emitter events.Emitter) error {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	from, err := tx.From()
	if err != nil {
		return err
	}
	var sender [20]byte
	copy(sender[:], from)

	manager := state.NewManager(sp.Trie)
	expected, err := manager.Nonce(sender[:])
	if err != nil {
		return err
	}
	if tx.Nonce != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, expected, tx.Nonce)
	}

	if err := sp.dispatch(manager, tx, sender, emitter); err != nil {
		return err
	}
	return manager.SetNonce(sender[:], expected+1)
}

func (sp *StateProcessor) dispatch(manager *state.Manager, tx *types.Transaction, sender [20]byte, emitter events.Emitter) error {
	ledger := bank.NewLedger()
	ledger.SetState(manager)
	ledger.SetEmitter(emitter)

	claimEngine := claim.NewEngine()
	claimEngine.SetState(manager)
	claimEngine.SetTransfer(ledger)
	claimEngine.SetEmitter(emitter)

	switch tx.Type {
	case types.TxTypeInitToken:
		var payload types.InitTokenPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		destination := claim.ProgramSigner()
		if strings.TrimSpace(payload.Destination) != "" {
			addr, err := decodeAddress("destination", payload.Destination)
			if err != nil {
				return err
			}
			destination = addr
		}
		engine := issuance.NewEngine()
		engine.SetState(manager)
		engine.SetLedger(ledger)
		engine.SetEmitter(emitter)
		engine.SetDecimals(sp.decimals)
		return engine.InitToken(sender, issuance.Params{
			Name:        payload.Name,
			Symbol:      payload.Symbol,
			URI:         payload.URI,
			TotalSupply: payload.TotalSupply,
			Destination: destination,
		})
	case types.TxTypeInitialize:
		var payload types.InitializePayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		return claimEngine.Initialize(sender, payload.Mint)
	case types.TxTypeSetEnabled:
		var payload types.SetEnabledPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		return claimEngine.SetEnabled(sender, payload.Enabled)
	case types.TxTypeUpdateUserAmount:
		var payload types.UpdateUserAmountPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		user, err := decodeAddress("user", payload.User)
		if err != nil {
			return err
		}
		return claimEngine.UpdateUserAmount(sender, user, payload.Amount)
	case types.TxTypeClaimToken:
		var payload types.ClaimTokenPayload
		if len(tx.Data) > 0 {
			if err := tx.DecodePayload(&payload); err != nil {
				return err
			}
		}
		cosigner, err := tx.Authority()
		if err != nil {
			return err
		}
		var authority [20]byte
		copy(authority[:], cosigner)
		return claimEngine.ClaimToken(sender, authority, payload.Mint)
	case types.TxTypeTransfer:
		var payload types.TransferPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		to, err := decodeAddress("to", payload.To)
		if err != nil {
			return err
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(payload.Amount), 10)
		if !ok {
			return fmt.Errorf("%w: amount %q", ErrInvalidPayload, payload.Amount)
		}
		return ledger.Transfer(sender, sender, to, payload.Symbol, amount)
	}
	return fmt.Errorf("unknown transaction type: %s", tx.Type)
}

func decodeAddress(field, value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
	}
	return addr.Array(), nil
}
