package issuance

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"claimchain/core/events"
	"claimchain/native/bank"
)

// DefaultDecimals is the precision of the issued token unless configured
// otherwise.
const DefaultDecimals uint8 = 5

// MintSeed derives the mint address and the issuance record key.
var MintSeed = []byte("mint")

var (
	ErrAlreadyIssued = errors.New("issuance: token already issued")
	ErrInvalidParams = errors.New("issuance: invalid token parameters")

	errNilState  = errors.New("issuance engine: state not configured")
	errNilLedger = errors.New("issuance engine: ledger not configured")
)

// Record is persisted once the token has been issued.
type Record struct {
	Symbol      string
	Payer       [20]byte
	Destination [20]byte
	TotalSupply uint64
}

// Params describes the token created by InitToken.
type Params struct {
	Name        string
	Symbol      string
	URI         string
	TotalSupply uint64
	Destination [20]byte
}

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	RegisterToken(symbol, name, uri string, decimals uint8) error
	SetTokenMintAuthority(symbol string, authority []byte) error
}

type minter interface {
	MintTo(authority [20]byte, symbol string, to [20]byte, amount *big.Int) error
	RevokeMintAuthority(authority [20]byte, symbol string) error
}

// Engine creates the program token exactly once.
type Engine struct {
	state    engineState
	ledger   minter
	emitter  events.Emitter
	decimals uint8
}

// NewEngine constructs an issuance engine using DefaultDecimals.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}, decimals: DefaultDecimals}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(st engineState) { e.state = st }

// SetLedger configures the mint capability.
func (e *Engine) SetLedger(l minter) { e.ledger = l }

// SetDecimals overrides the token precision.
func (e *Engine) SetDecimals(decimals uint8) { e.decimals = decimals }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// MintAddress is the mint authority used while the supply is created.
func MintAddress() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256(MintSeed)[12:])
	return addr
}

// Issued returns the issuance record when the token exists.
func (e *Engine) Issued() (*Record, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	rec := new(Record)
	ok, err := e.state.KVGet(MintSeed, rec)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return rec, true, nil
}

// InitToken registers the token metadata, mints the full supply into
// params.Destination and revokes the mint authority. Callers must discard all
// writes when an error is returned.
func (e *Engine) InitToken(payer [20]byte, params Params) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	symbol := strings.ToUpper(strings.TrimSpace(params.Symbol))
	name := strings.TrimSpace(params.Name)
	if symbol == "" || name == "" {
		return fmt.Errorf("%w: name and symbol required", ErrInvalidParams)
	}
	if _, issued, err := e.Issued(); err != nil {
		return err
	} else if issued {
		return ErrAlreadyIssued
	}
	supply, err := bank.ScaleAmount(params.TotalSupply, e.decimals)
	if err != nil {
		return err
	}

	mint := MintAddress()
	if err := e.state.RegisterToken(symbol, name, params.URI, e.decimals); err != nil {
		return err
	}
	if err := e.state.SetTokenMintAuthority(symbol, mint[:]); err != nil {
		return err
	}
	e.emitter.Emit(events.TokenMetadataRegistered{
		Symbol:        symbol,
		Name:          name,
		URI:           strings.TrimSpace(params.URI),
		Decimals:      e.decimals,
		MintAuthority: mint,
	})
	if supply.Sign() > 0 {
		if err := e.ledger.MintTo(mint, symbol, params.Destination, supply); err != nil {
			return err
		}
	}
	if err := e.ledger.RevokeMintAuthority(mint, symbol); err != nil {
		return err
	}
	return e.state.KVPut(MintSeed, &Record{
		Symbol:      symbol,
		Payer:       payer,
		Destination: params.Destination,
		TotalSupply: params.TotalSupply,
	})
}
