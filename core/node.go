package core

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"claimchain/core/events"
	txcheck "claimchain/core/tx"
	"claimchain/core/types"
	"claimchain/crypto"
	"claimchain/native/issuance"
	"claimchain/observability"
	telemetry "claimchain/observability/otel"
	"claimchain/storage"
	"claimchain/storage/trie"
)

// Config carries the ledger parameters fixed at start-up.
type Config struct {
	ChainID  *big.Int
	Decimals uint8
}

// Node is the central controller: it serialises transactions, commits each
// one atomically and publishes the resulting events.
type Node struct {
	db      storage.Database
	chain   *Blockchain
	chainID *big.Int

	stateMu sync.RWMutex
	state   *StateProcessor

	emitter events.Emitter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewNode opens the ledger stored in db at its last committed head.
func NewNode(db storage.Database, cfg Config) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	chain, err := NewBlockchain(db)
	if err != nil {
		return nil, err
	}
	var root []byte
	if head := chain.Head(); head.Height > 0 {
		root = head.Root.Bytes()
	}
	stateTrie, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("node: open state at %x: %w", root, err)
	}
	chainID := cfg.ChainID
	if chainID == nil {
		chainID = types.ClaimChainID()
	}
	decimals := cfg.Decimals
	if decimals == 0 {
		decimals = issuance.DefaultDecimals
	}
	return &Node{
		db:      db,
		chain:   chain,
		chainID: new(big.Int).Set(chainID),
		state:   NewStateProcessor(stateTrie, decimals),
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		tracer:  telemetry.Tracer(),
	}, nil
}

// SetEmitter configures where committed events are delivered.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if emitter == nil {
		n.emitter = events.NoopEmitter{}
		return
	}
	n.emitter = emitter
}

// SetLogger overrides the node logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.logger = logger
}

func (n *Node) log() *slog.Logger {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.logger
}

// ChainID returns the chain identifier transactions must carry.
func (n *Node) ChainID() *big.Int { return new(big.Int).Set(n.chainID) }

// Head returns the last committed head.
func (n *Node) Head() Head { return n.chain.Head() }

// GetHeight returns the number of committed transactions.
func (n *Node) GetHeight() uint64 { return n.chain.GetHeight() }

// SubmitTransaction applies tx as a single unit of work. The transaction runs
// against a copy of the committed state; the copy becomes canonical only when
// every step succeeds. Events are published after the commit.
func (n *Node) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("node: nil transaction")
	}
	_, span := n.tracer.Start(ctx, "core.SubmitTransaction",
		trace.WithAttributes(attribute.String("tx.type", tx.Type.String())))
	defer span.End()

	start := time.Now()
	receipt, err := n.submit(tx)
	observability.Ledger().RecordTransaction(tx.Type.String(), ErrorReason(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorReason(err))
		n.log().Debug("transaction rejected",
			slog.String("type", tx.Type.String()),
			slog.String("reason", ErrorReason(err)),
			slog.String("error", err.Error()))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("tx.hash", receipt.TxHash),
		attribute.Int64("ledger.height", int64(receipt.Height)),
	)
	n.log().Info("transaction committed",
		slog.String("type", receipt.Type),
		slog.String("txHash", receipt.TxHash),
		slog.Uint64("height", receipt.Height),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

func (n *Node) submit(tx *types.Transaction) (*Receipt, error) {
	sender, err := txcheck.Check(tx, n.chainID)
	if err != nil {
		return nil, err
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	txHash := hex.EncodeToString(hash)

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	working, err := n.state.Copy()
	if err != nil {
		return nil, fmt.Errorf("node: copy state: %w", err)
	}
	buffer := &events.Buffer{}
	if err := working.ApplyTransaction(tx, buffer); err != nil {
		return nil, err
	}

	height := n.chain.GetHeight() + 1
	root, err := working.Commit(height)
	if err != nil {
		return nil, fmt.Errorf("node: commit state: %w", err)
	}

	pending := buffer.Drain()
	rendered := make([]types.Event, 0, len(pending))
	for _, evt := range pending {
		out := events.Render(evt)
		if out == nil {
			continue
		}
		out.Height = height
		out.TxHash = txHash
		rendered = append(rendered, *out)
	}
	var senderAddr [20]byte
	copy(senderAddr[:], sender)
	receipt := &Receipt{
		TxHash: txHash,
		Type:   tx.Type.String(),
		Sender: crypto.FromArray(senderAddr).String(),
		Height: height,
		Root:   root,
		Events: rendered,
	}
	if err := n.chain.Append(root, receipt); err != nil {
		return nil, fmt.Errorf("node: persist head: %w", err)
	}
	n.state = working
	observability.Ledger().SetHeight(height)

	for i := range rendered {
		evt := rendered[i]
		n.emitter.Emit(events.Stamped{Rendered: &evt})
		recordEventMetrics(&evt)
	}
	return receipt, nil
}

func recordEventMetrics(evt *types.Event) {
	metrics := observability.Events()
	metrics.RecordEvent(evt.Type)
	if evt.Type != events.TypeTokenClaimed {
		return
	}
	amount, err := strconv.ParseUint(evt.Attributes["amount"], 10, 64)
	if err != nil {
		return
	}
	metrics.RecordClaim(evt.Attributes["mint"], amount)
}

// StateRoot returns the committed state root.
func (n *Node) StateRoot() common.Hash {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.state.CurrentRoot()
}

// Receipt looks up a committed transaction by hash.
func (n *Node) Receipt(hash []byte) (*Receipt, bool, error) {
	return n.chain.Receipt(hash)
}
