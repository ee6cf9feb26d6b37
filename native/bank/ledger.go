package bank

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"claimchain/core/events"
	"claimchain/core/state"
)

var (
	ErrNilState          = errors.New("bank: state not configured")
	ErrUnknownToken      = errors.New("bank: token not registered")
	ErrInvalidAmount     = errors.New("bank: amount must be positive")
	ErrInsufficientFunds = errors.New("bank: insufficient balance")
	ErrMintAuthority     = errors.New("bank: signer is not the mint authority")
	ErrMintAuthorityGone = errors.New("bank: mint authority revoked")
	ErrNotAccountOwner   = errors.New("bank: signer does not own source account")
)

type ledgerState interface {
	Token(symbol string) (*state.TokenMetadata, error)
	Balance(addr []byte, symbol string) (*big.Int, error)
	SetBalance(addr []byte, symbol string, amount *big.Int) error
	AdjustTokenSupply(symbol string, delta *big.Int) (*big.Int, error)
	SetTokenMintAuthority(symbol string, authority []byte) error
}

// Ledger moves fungible token balances and enforces mint authority rules.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger constructs a ledger with a discarding emitter.
func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(st ledgerState) { l.state = st }

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) emit(evt events.Event) {
	if l == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(evt)
}

func (l *Ledger) token(symbol string) (*state.TokenMetadata, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	meta, err := l.state.Token(symbol)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	return meta, nil
}

// Transfer moves amount of symbol from one account to another. The authority
// must own the source account.
func (l *Ledger) Transfer(authority, from, to [20]byte, symbol string, amount *big.Int) error {
	meta, err := l.token(symbol)
	if err != nil {
		return err
	}
	if authority != from {
		return ErrNotAccountOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBal, err := l.state.Balance(from[:], meta.Symbol)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, fromBal, amount)
	}
	if from != to {
		toBal, err := l.state.Balance(to[:], meta.Symbol)
		if err != nil {
			return err
		}
		if err := l.state.SetBalance(from[:], meta.Symbol, new(big.Int).Sub(fromBal, amount)); err != nil {
			return err
		}
		if err := l.state.SetBalance(to[:], meta.Symbol, new(big.Int).Add(toBal, amount)); err != nil {
			return err
		}
	}
	l.emit(events.TokenTransferred{
		Symbol: meta.Symbol,
		From:   from,
		To:     to,
		Amount: new(big.Int).Set(amount),
	})
	return nil
}

// MintTo creates amount new units of symbol in the destination account. The
// caller must hold the token's mint authority.
func (l *Ledger) MintTo(authority [20]byte, symbol string, to [20]byte, amount *big.Int) error {
	meta, err := l.token(symbol)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if len(meta.MintAuthority) == 0 {
		return ErrMintAuthorityGone
	}
	if !bytes.Equal(meta.MintAuthority, authority[:]) {
		return ErrMintAuthority
	}
	bal, err := l.state.Balance(to[:], meta.Symbol)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(to[:], meta.Symbol, new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	if _, err := l.state.AdjustTokenSupply(meta.Symbol, amount); err != nil {
		return err
	}
	l.emit(events.TokenMinted{Symbol: meta.Symbol, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// RevokeMintAuthority permanently removes the ability to mint symbol.
func (l *Ledger) RevokeMintAuthority(authority [20]byte, symbol string) error {
	meta, err := l.token(symbol)
	if err != nil {
		return err
	}
	if len(meta.MintAuthority) == 0 {
		return ErrMintAuthorityGone
	}
	if !bytes.Equal(meta.MintAuthority, authority[:]) {
		return ErrMintAuthority
	}
	if err := l.state.SetTokenMintAuthority(meta.Symbol, nil); err != nil {
		return err
	}
	l.emit(events.MintAuthorityRevoked{Symbol: meta.Symbol, Previous: authority})
	return nil
}
