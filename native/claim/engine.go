package claim

import (
	"fmt"
	"math/big"

	"claimchain/core/events"
	"claimchain/core/state"
	"claimchain/native/bank"
)

type engineState interface {
	ClaimGlobal() (*state.ClaimGlobal, bool, error)
	PutClaimGlobal(cfg *state.ClaimGlobal) error
	ClaimEntitlement(user [20]byte) (*state.ClaimEntitlement, bool, error)
	PutClaimEntitlement(user [20]byte, rec *state.ClaimEntitlement) error
	DeleteClaimEntitlement(user [20]byte) error
	Token(symbol string) (*state.TokenMetadata, error)
}

type transferer interface {
	Transfer(authority, from, to [20]byte, symbol string, amount *big.Int) error
}

// Engine applies the claim program's operations.
type Engine struct {
	state    engineState
	transfer transferer
	emitter  events.Emitter
}

// NewEngine constructs a claim engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(st engineState) { e.state = st }

// SetTransfer configures the token movement capability used for payouts.
func (e *Engine) SetTransfer(t transferer) { e.transfer = t }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) global() (*state.ClaimGlobal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.ClaimGlobal()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return cfg, nil
}

// Initialize creates the configuration record with signer as the authority.
// Claiming starts disabled. mint must name a registered token.
func (e *Engine) Initialize(signer [20]byte, mint string) error {
	cfg, err := e.global()
	if err != nil {
		return err
	}
	if err := checkNotAlreadyInitialized(cfg); err != nil {
		return err
	}
	normalized := normalizeMint(mint)
	if normalized == "" {
		return ErrInvalidMintKey
	}
	meta, err := e.state.Token(normalized)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrInvalidMintKey
	}
	next := &state.ClaimGlobal{
		Initialized: true,
		Authority:   signer,
		IsEnabled:   false,
		Mint:        meta.Symbol,
	}
	if err := e.state.PutClaimGlobal(next); err != nil {
		return err
	}
	e.emit(events.ClaimInitialized{Authority: signer, Mint: meta.Symbol})
	return nil
}

// SetEnabled toggles whether claims are accepted.
func (e *Engine) SetEnabled(signer [20]byte, enabled bool) error {
	cfg, err := e.global()
	if err != nil {
		return err
	}
	if err := checkInitialized(cfg); err != nil {
		return err
	}
	if err := checkAuthority(cfg, signer); err != nil {
		return err
	}
	cfg.IsEnabled = enabled
	if err := e.state.PutClaimGlobal(cfg); err != nil {
		return err
	}
	e.emit(events.ClaimEnabledSet{Authority: signer, Enabled: enabled})
	return nil
}

// UpdateUserAmount sets user's entitlement to amount, replacing any previous
// value.
func (e *Engine) UpdateUserAmount(signer, user [20]byte, amount uint64) error {
	cfg, err := e.global()
	if err != nil {
		return err
	}
	if err := checkInitialized(cfg); err != nil {
		return err
	}
	if err := checkAuthority(cfg, signer); err != nil {
		return err
	}
	_, existed, err := e.state.ClaimEntitlement(user)
	if err != nil {
		return err
	}
	if err := e.state.PutClaimEntitlement(user, &state.ClaimEntitlement{Owner: user, Amount: amount}); err != nil {
		return err
	}
	e.emit(events.EntitlementUpdated{Authority: signer, User: user, Amount: amount, Created: !existed})
	return nil
}

// ClaimToken pays caller's entitlement out of the reserve and removes the
// record. authority is the co-signer of the claim and must be the configured
// authority. mint may be empty. The record is deleted before the transfer is
// issued, so callers must discard all writes when an error is returned.
func (e *Engine) ClaimToken(caller, authority [20]byte, mint string) error {
	cfg, err := e.global()
	if err != nil {
		return err
	}
	if err := checkInitialized(cfg); err != nil {
		return err
	}
	if err := checkEnabled(cfg); err != nil {
		return err
	}
	if err := checkAuthority(cfg, authority); err != nil {
		return err
	}
	if err := checkMint(cfg, mint); err != nil {
		return err
	}
	rec, _, err := e.state.ClaimEntitlement(caller)
	if err != nil {
		return err
	}
	if err := checkRecordOwner(rec, caller); err != nil {
		return err
	}
	if err := checkSufficientAmount(rec); err != nil {
		return err
	}
	if e.transfer == nil {
		return errNilTransfer
	}
	meta, err := e.state.Token(cfg.Mint)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrInvalidMintKey
	}

	amount := rec.Amount
	scaled, err := bank.ScaleAmount(amount, meta.Decimals)
	if err != nil {
		return err
	}
	if err := e.state.DeleteClaimEntitlement(caller); err != nil {
		return fmt.Errorf("claim: delete entitlement: %w", err)
	}
	signer := ProgramSigner()
	if err := e.transfer.Transfer(signer, signer, caller, meta.Symbol, scaled); err != nil {
		return fmt.Errorf("claim: payout: %w", err)
	}
	e.emit(events.TokenClaimed{
		Destination: state.BalanceAccountID(caller[:], meta.Symbol).Hex(),
		Caller:      caller,
		Mint:        meta.Symbol,
		Amount:      amount,
		Scaled:      scaled,
		RefundTo:    cfg.Authority,
	})
	return nil
}

// Global returns the configuration record, or nil before initialization.
func (e *Engine) Global() (*state.ClaimGlobal, error) {
	return e.global()
}

// Entitlement returns user's record. The boolean reports whether it exists.
func (e *Engine) Entitlement(user [20]byte) (*state.ClaimEntitlement, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	return e.state.ClaimEntitlement(user)
}
