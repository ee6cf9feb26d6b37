package types

import (
	"bytes"
	"strings"
	"encoding/json"
	"errors"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestTransactionSignAndRecover(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx, err := NewTransaction(ClaimChainID(), TxTypeSetEnabled, 3, SetEnabledPayload{Enabled: true})
	if err != nil {
		t.Fatalf("new tx: %v", err)
	}
	if err := tx.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	from, err := tx.From()
	if err != nil {
		t.Fatalf("from: %v", err)
	}
	if !bytes.Equal(from, ethcrypto.PubkeyToAddress(key.PublicKey).Bytes()) {
		t.Fatalf("recovered wrong sender")
	}
	if _, err := tx.Authority(); !errors.Is(err, ErrMissingAuthoritySignature) {
		t.Fatalf("expected missing authority signature, got %v", err)
	}
}

func TestTransactionCoSignSurvivesJSON(t *testing.T) {
	user, _ := ethcrypto.GenerateKey()
	authority, _ := ethcrypto.GenerateKey()
	tx, err := NewTransaction(ClaimChainID(), TxTypeClaimToken, 0, ClaimTokenPayload{Mint: "DAWG"})
	if err != nil {
		t.Fatalf("new tx: %v", err)
	}
	if err := tx.Sign(user); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := tx.CoSign(authority); err != nil {
		t.Fatalf("cosign: %v", err)
	}

	raw, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Transaction
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	from, err := decoded.From()
	if err != nil {
		t.Fatalf("from: %v", err)
	}
	co, err := decoded.Authority()
	if err != nil {
		t.Fatalf("authority: %v", err)
	}
	if !bytes.Equal(from, ethcrypto.PubkeyToAddress(user.PublicKey).Bytes()) {
		t.Fatalf("sender mismatch")
	}
	if !bytes.Equal(co, ethcrypto.PubkeyToAddress(authority.PublicKey).Bytes()) {
		t.Fatalf("authority mismatch")
	}
	var payload ClaimTokenPayload
	if err := decoded.DecodePayload(&payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Mint != "DAWG" {
		t.Fatalf("unexpected mint %q", payload.Mint)
	}
}

func TestTransactionTamperChangesSender(t *testing.T) {
	key, _ := ethcrypto.GenerateKey()
	tx, _ := NewTransaction(ClaimChainID(), TxTypeUpdateUserAmount, 1, UpdateUserAmountPayload{User: "a", Amount: 5})
	if err := tx.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	original, _ := tx.From()

	tampered := *tx
	tampered.from = nil
	tampered.Data = json.RawMessage(`{"user":"a","amount":500}`)
	recovered, err := tampered.From()
	if err == nil && bytes.Equal(recovered, original) {
		t.Fatalf("tampered payload recovered the original sender")
	}
}

func TestDecodePayloadRejectsUnknownFields(t *testing.T) {
	tx := &Transaction{Type: TxTypeSetEnabled, Data: json.RawMessage(`{"enabled":true,"extra":1}`)}
	var payload SetEnabledPayload
	if err := tx.DecodePayload(&payload); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestUnsignedTransactionHasNoSender(t *testing.T) {
	tx, _ := NewTransaction(ClaimChainID(), TxTypeInitialize, 0, InitializePayload{Mint: "DAWG"})
	if _, err := tx.From(); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestParseTxHash(t *testing.T) {
	hash, err := ParseTxHash("0x" + strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(hash) != 32 || hash[0] != 0xab || hash[31] != 0xab {
		t.Fatalf("unexpected hash %x", hash)
	}
	for _, bad := range []string{"", "abcd", strings.Repeat("zz", 32)} {
		if _, err := ParseTxHash(bad); !errors.Is(err, ErrInvalidTxHash) {
			t.Fatalf("%q: expected ErrInvalidTxHash, got %v", bad, err)
		}
	}
}
