package types

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeInitToken        TxType = 0x01 // One-time token issuance
	TxTypeInitialize       TxType = 0x02 // Create the claim program's global config
	TxTypeSetEnabled       TxType = 0x03 // Authority toggles claiming
	TxTypeUpdateUserAmount TxType = 0x04 // Authority upserts a user's entitlement
	TxTypeClaimToken       TxType = 0x05 // User withdraws the entitlement (authority co-signs)
	TxTypeTransfer         TxType = 0x06 // Plain token transfer between holders
)

// String returns the wire name used by the CLI and RPC.
func (t TxType) String() string {
	switch t {
	case TxTypeInitToken:
		return "init_token"
	case TxTypeInitialize:
		return "initialize"
	case TxTypeSetEnabled:
		return "set_enabled"
	case TxTypeUpdateUserAmount:
		return "update_user_amount"
	case TxTypeClaimToken:
		return "claim_token"
	case TxTypeTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Valid reports whether the type is one the ledger knows how to apply.
func (t TxType) Valid() bool {
	return t >= TxTypeInitToken && t <= TxTypeTransfer
}

var (
	// ErrMissingSignature is returned when a signature component is absent.
	ErrMissingSignature = errors.New("tx: missing signature")
	// ErrMissingAuthoritySignature is returned when a co-signature is required
	// but absent.
	ErrMissingAuthoritySignature = errors.New("tx: missing authority co-signature")
)

// Transaction is a signed request to mutate ledger state. The sender signature
// identifies the caller; claim transactions additionally carry the program
// authority's co-signature over the same hash.
type Transaction struct {
	ChainID *big.Int        `json:"chainId"`
	Type    TxType          `json:"type"`
	Nonce   uint64          `json:"nonce"`
	Data    json.RawMessage `json:"data,omitempty"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	AuthorityR *big.Int `json:"authorityR,omitempty"`
	AuthorityS *big.Int `json:"authorityS,omitempty"`
	AuthorityV *big.Int `json:"authorityV,omitempty"`

	from      []byte
	authority []byte
}

// NewTransaction encodes payload as the transaction data. The result is
// unsigned.
func NewTransaction(chainID *big.Int, txType TxType, nonce uint64, payload interface{}) (*Transaction, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("tx: unsupported type %s", txType)
	}
	tx := &Transaction{Type: txType, Nonce: nonce}
	if chainID != nil {
		tx.ChainID = new(big.Int).Set(chainID)
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("tx: encode payload: %w", err)
		}
		tx.Data = data
	}
	return tx, nil
}

// Hash covers every field except the signatures so the sender and the
// co-signer sign the same digest.
func (tx *Transaction) Hash() ([]byte, error) {
	txData := struct {
		ChainID *big.Int
		Type    TxType
		Nonce   uint64
		Data    []byte
	}{tx.ChainID, tx.Type, tx.Nonce, compactJSON(tx.Data)}

	b, err := json.Marshal(txData)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(b)
	return hash[:], nil
}

// Sign attaches the sender signature.
func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	r, s, v, err := tx.signHash(privKey)
	if err != nil {
		return err
	}
	tx.R, tx.S, tx.V = r, s, v
	tx.from = nil
	return nil
}

// CoSign attaches the authority co-signature.
func (tx *Transaction) CoSign(privKey *ecdsa.PrivateKey) error {
	r, s, v, err := tx.signHash(privKey)
	if err != nil {
		return err
	}
	tx.AuthorityR, tx.AuthorityS, tx.AuthorityV = r, s, v
	tx.authority = nil
	return nil
}

func (tx *Transaction) signHash(privKey *ecdsa.PrivateKey) (*big.Int, *big.Int, *big.Int, error) {
	hash, err := tx.Hash()
	if err != nil {
		return nil, nil, nil, err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return nil, nil, nil, err
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	v := new(big.Int).SetBytes([]byte{sig[64] + 27})
	return r, s, v, nil
}

// From recovers the sender address from the signature.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	addr, err := tx.recover(tx.R, tx.S, tx.V)
	if err != nil {
		if errors.Is(err, ErrMissingSignature) {
			return nil, err
		}
		return nil, fmt.Errorf("tx: recover sender: %w", err)
	}
	tx.from = addr
	return tx.from, nil
}

// Authority recovers the co-signer address. It returns
// ErrMissingAuthoritySignature when the transaction carries no co-signature.
func (tx *Transaction) Authority() ([]byte, error) {
	if tx.authority != nil {
		return tx.authority, nil
	}
	if tx.AuthorityR == nil || tx.AuthorityS == nil || tx.AuthorityV == nil {
		return nil, ErrMissingAuthoritySignature
	}
	addr, err := tx.recover(tx.AuthorityR, tx.AuthorityS, tx.AuthorityV)
	if err != nil {
		return nil, fmt.Errorf("tx: recover authority: %w", err)
	}
	tx.authority = addr
	return tx.authority, nil
}

func (tx *Transaction) recover(r, s, v *big.Int) ([]byte, error) {
	if r == nil || s == nil || v == nil {
		return nil, ErrMissingSignature
	}
	if r.BitLen() > 256 || s.BitLen() > 256 {
		return nil, fmt.Errorf("signature component out of range")
	}
	if !v.IsUint64() || v.Uint64() < 27 || v.Uint64() > 28 {
		return nil, fmt.Errorf("invalid recovery id %s", v)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	sig[64] = byte(v.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	return crypto.PubkeyToAddress(*pubKey).Bytes(), nil
}

// DecodePayload unmarshals the transaction data into out, rejecting unknown
// fields.
func (tx *Transaction) DecodePayload(out interface{}) error {
	if len(bytes.TrimSpace(tx.Data)) == 0 {
		return fmt.Errorf("tx: %s payload required", tx.Type)
	}
	dec := json.NewDecoder(bytes.NewReader(tx.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("tx: decode %s payload: %w", tx.Type, err)
	}
	return nil
}

func compactJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	buf := &bytes.Buffer{}
	if err := json.Compact(buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
