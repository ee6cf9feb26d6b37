package claim

import (
	"errors"
	"math/big"
	"testing"

	"claimchain/core/events"
	"claimchain/core/state"
)

type mockState struct {
	global  *state.ClaimGlobal
	records map[[20]byte]*state.ClaimEntitlement
	tokens  map[string]*state.TokenMetadata
}

func newMockState() *mockState {
	return &mockState{
		records: make(map[[20]byte]*state.ClaimEntitlement),
		tokens: map[string]*state.TokenMetadata{
			"DAWG": {Symbol: "DAWG", Name: "Dawg", Decimals: 5},
		},
	}
}

func (m *mockState) ClaimGlobal() (*state.ClaimGlobal, bool, error) {
	if m.global == nil {
		return nil, false, nil
	}
	clone := *m.global
	return &clone, true, nil
}

func (m *mockState) PutClaimGlobal(cfg *state.ClaimGlobal) error {
	clone := *cfg
	m.global = &clone
	return nil
}

func (m *mockState) ClaimEntitlement(user [20]byte) (*state.ClaimEntitlement, bool, error) {
	rec, ok := m.records[user]
	if !ok {
		return nil, false, nil
	}
	clone := *rec
	return &clone, true, nil
}

func (m *mockState) PutClaimEntitlement(user [20]byte, rec *state.ClaimEntitlement) error {
	clone := *rec
	m.records[user] = &clone
	return nil
}

func (m *mockState) DeleteClaimEntitlement(user [20]byte) error {
	delete(m.records, user)
	return nil
}

func (m *mockState) Token(symbol string) (*state.TokenMetadata, error) {
	meta, ok := m.tokens[symbol]
	if !ok {
		return nil, nil
	}
	clone := *meta
	return &clone, nil
}

type mockTransfer struct {
	balances map[[20]byte]*big.Int
	fail     error
	calls    int
}

func (m *mockTransfer) balance(addr [20]byte) *big.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (m *mockTransfer) Transfer(authority, from, to [20]byte, symbol string, amount *big.Int) error {
	m.calls++
	if m.fail != nil {
		return m.fail
	}
	if authority != from {
		return errors.New("not owner")
	}
	if m.balance(from).Cmp(amount) < 0 {
		return errors.New("insufficient")
	}
	m.balances[from] = new(big.Int).Sub(m.balance(from), amount)
	m.balances[to] = new(big.Int).Add(m.balance(to), amount)
	return nil
}

type recorder struct{ events []events.Event }

func (r *recorder) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recorder) types() []string {
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.EventType())
	}
	return out
}

type fixture struct {
	engine    *Engine
	state     *mockState
	transfer  *mockTransfer
	events    *recorder
	authority [20]byte
	user      [20]byte
}

func newFixture(t *testing.T, reserve int64) *fixture {
	t.Helper()
	f := &fixture{
		state:    newMockState(),
		transfer: &mockTransfer{balances: map[[20]byte]*big.Int{ProgramSigner(): big.NewInt(reserve)}},
		events:   &recorder{},
	}
	f.authority[0] = 0xa1
	f.user[0] = 0xb2
	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetTransfer(f.transfer)
	f.engine.SetEmitter(f.events)
	return f
}

func (f *fixture) initialize(t *testing.T) {
	t.Helper()
	if err := f.engine.Initialize(f.authority, "dawg"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func (f *fixture) enable(t *testing.T) {
	t.Helper()
	if err := f.engine.SetEnabled(f.authority, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
}

func TestInitializeOnlyOnce(t *testing.T) {
	f := newFixture(t, 0)
	f.initialize(t)

	var other [20]byte
	other[0] = 0x77
	if err := f.engine.Initialize(other, "DAWG"); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	cfg, err := f.engine.Global()
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if cfg.Authority != f.authority {
		t.Fatalf("authority changed after second initialize")
	}
	if cfg.IsEnabled {
		t.Fatalf("claiming must start disabled")
	}
	if cfg.Mint != "DAWG" {
		t.Fatalf("unexpected mint %q", cfg.Mint)
	}
}

func TestInitializeRejectsUnknownMint(t *testing.T) {
	f := newFixture(t, 0)
	if err := f.engine.Initialize(f.authority, "NOPE"); !errors.Is(err, ErrInvalidMintKey) {
		t.Fatalf("expected ErrInvalidMintKey, got %v", err)
	}
	if err := f.engine.Initialize(f.authority, " "); !errors.Is(err, ErrInvalidMintKey) {
		t.Fatalf("expected ErrInvalidMintKey for empty mint, got %v", err)
	}
	if f.state.global != nil {
		t.Fatalf("failed initialize must not write state")
	}
}

func TestSetEnabledRequiresInitializedAuthority(t *testing.T) {
	f := newFixture(t, 0)
	if err := f.engine.SetEnabled(f.authority, true); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	f.initialize(t)
	if err := f.engine.SetEnabled(f.user, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	f.enable(t)
	f.enable(t)
	if !f.state.global.IsEnabled {
		t.Fatalf("expected enabled")
	}
	if err := f.engine.SetEnabled(f.authority, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if f.state.global.IsEnabled {
		t.Fatalf("expected disabled")
	}
}

func TestUpdateUserAmountOverwritesAndIsIdempotent(t *testing.T) {
	f := newFixture(t, 0)
	if err := f.engine.UpdateUserAmount(f.authority, f.user, 1); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	f.initialize(t)
	if err := f.engine.UpdateUserAmount(f.user, f.user, 1); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := f.engine.UpdateUserAmount(f.authority, f.user, 100); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if rec := f.state.records[f.user]; rec.Amount != 100 || rec.Owner != f.user {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := f.engine.UpdateUserAmount(f.authority, f.user, 50); err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec := f.state.records[f.user]; rec.Amount != 50 {
		t.Fatalf("expected overwrite to 50, got %d", rec.Amount)
	}
	if len(f.state.records) != 1 {
		t.Fatalf("expected a single record, got %d", len(f.state.records))
	}

	created := f.events.events[1].(events.EntitlementUpdated)
	updated := f.events.events[2].(events.EntitlementUpdated)
	if !created.Created || updated.Created {
		t.Fatalf("unexpected created flags: %v %v", created.Created, updated.Created)
	}
}

func TestClaimTokenScenario(t *testing.T) {
	f := newFixture(t, 1_000_000)
	f.initialize(t)
	if err := f.engine.UpdateUserAmount(f.authority, f.user, 3); err != nil {
		t.Fatalf("update: %v", err)
	}
	f.enable(t)

	if err := f.engine.ClaimToken(f.user, f.authority, ""); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.transfer.balance(f.user); got.Cmp(big.NewInt(300_000)) != 0 {
		t.Fatalf("expected 300000 base units, got %s", got)
	}
	if got := f.transfer.balance(ProgramSigner()); got.Cmp(big.NewInt(700_000)) != 0 {
		t.Fatalf("expected reserve 700000, got %s", got)
	}
	if _, ok := f.state.records[f.user]; ok {
		t.Fatalf("record must be removed after claim")
	}

	last := f.events.events[len(f.events.events)-1].(events.TokenClaimed)
	if last.Amount != 3 || last.Caller != f.user || last.RefundTo != f.authority {
		t.Fatalf("unexpected claim event %+v", last)
	}
	if last.Scaled.Cmp(big.NewInt(300_000)) != 0 {
		t.Fatalf("unexpected scaled amount %s", last.Scaled)
	}

	if err := f.engine.ClaimToken(f.user, f.authority, ""); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("second claim must fail with ErrNotAuthorized, got %v", err)
	}
	if f.transfer.calls != 1 {
		t.Fatalf("expected a single transfer, got %d", f.transfer.calls)
	}
}

func TestClaimTokenUsesLatestAmount(t *testing.T) {
	f := newFixture(t, 1_000_000)
	f.initialize(t)
	f.enable(t)
	if err := f.engine.UpdateUserAmount(f.authority, f.user, 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := f.engine.UpdateUserAmount(f.authority, f.user, 2); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := f.engine.ClaimToken(f.user, f.authority, "DAWG"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.transfer.balance(f.user); got.Cmp(big.NewInt(200_000)) != 0 {
		t.Fatalf("expected 200000 base units, got %s", got)
	}
}

func TestClaimTokenPreconditionOrder(t *testing.T) {
	var stranger [20]byte
	stranger[0] = 0xcc

	f := newFixture(t, 1_000_000)
	if err := f.engine.ClaimToken(f.user, f.authority, ""); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	f.initialize(t)
	if err := f.engine.UpdateUserAmount(f.authority, f.user, 4); err != nil {
		t.Fatalf("update: %v", err)
	}
	// Disabled wins over a wrong co-signer.
	if err := f.engine.ClaimToken(f.user, stranger, ""); !errors.Is(err, ErrNotEnabled) {
		t.Fatalf("expected ErrNotEnabled, got %v", err)
	}
	f.enable(t)
	if err := f.engine.ClaimToken(f.user, stranger, "OTHER"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := f.engine.ClaimToken(f.user, f.authority, "OTHER"); !errors.Is(err, ErrInvalidMintKey) {
		t.Fatalf("expected ErrInvalidMintKey, got %v", err)
	}
	if err := f.engine.ClaimToken(stranger, f.authority, ""); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for missing record, got %v", err)
	}
	if f.transfer.calls != 0 {
		t.Fatalf("failed preconditions must not transfer")
	}
	if _, ok := f.state.records[f.user]; !ok {
		t.Fatalf("failed preconditions must not delete the record")
	}
}

func TestClaimTokenZeroAmount(t *testing.T) {
	f := newFixture(t, 1_000_000)
	f.initialize(t)
	f.enable(t)
	if err := f.engine.UpdateUserAmount(f.authority, f.user, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := f.engine.ClaimToken(f.user, f.authority, ""); !errors.Is(err, ErrNotSufficientAmount) {
		t.Fatalf("expected ErrNotSufficientAmount, got %v", err)
	}
	if _, ok := f.state.records[f.user]; !ok {
		t.Fatalf("zero-amount record must survive a rejected claim")
	}
}

func TestClaimTokenTransferFailureSurfaces(t *testing.T) {
	f := newFixture(t, 1_000_000)
	f.initialize(t)
	f.enable(t)
	if err := f.engine.UpdateUserAmount(f.authority, f.user, 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	boom := errors.New("boom")
	f.transfer.fail = boom
	before := len(f.events.events)
	if err := f.engine.ClaimToken(f.user, f.authority, ""); !errors.Is(err, boom) {
		t.Fatalf("expected transfer error, got %v", err)
	}
	if len(f.events.events) != before {
		t.Fatalf("failed claim must not emit events")
	}
}

func TestDerivedKeysAreStable(t *testing.T) {
	var a, b [20]byte
	b[19] = 1
	if EntitlementKey(a) == EntitlementKey(b) {
		t.Fatalf("distinct users must have distinct keys")
	}
	if EntitlementKey(a) != EntitlementKey(a) {
		t.Fatalf("derivation must be deterministic")
	}
	if GlobalKey() == EntitlementKey(a) {
		t.Fatalf("global key must not collide with entitlement keys")
	}
	signer := ProgramSigner()
	if signer == ([20]byte{}) {
		t.Fatalf("program signer must not be zero")
	}
}
