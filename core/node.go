package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"refchain/core/events"
	nhbstate "refchain/core/state"
	"refchain/core/types"
	"refchain/native/common"
	"refchain/native/referral"
	"refchain/observability"
	"refchain/observability/logging"
	telemetry "refchain/observability/otel"
	"refchain/storage"
)

var (
	// ErrChainIDMismatch indicates the transaction targets another network.
	ErrChainIDMismatch = errors.New("node: chain id mismatch")
	// ErrNonceMismatch indicates the transaction nonce is not the sender's next nonce.
	ErrNonceMismatch = errors.New("node: nonce mismatch")
	// ErrUnknownTxType indicates the transaction type has no handler.
	ErrUnknownTxType = errors.New("node: unknown transaction type")
	// ErrInvalidSignature indicates the sender could not be recovered.
	ErrInvalidSignature = errors.New("node: invalid signature")
	// ErrInvalidPayload indicates the transaction data could not be decoded.
	ErrInvalidPayload = errors.New("node: invalid payload")
)

// NodeConfig carries the settings the node needs at construction.
type NodeConfig struct {
	ChainID       string
	ServiceDomain string
	Logger        *slog.Logger
	Pauses        common.PauseView
	// Now overrides the wall clock; used by tests.
	Now func() int64
}

// Node applies signed transactions to the referral state, commits them and
// publishes the resulting events. Submissions are serialised; a transaction
// either commits every write it made or none of them.
type Node struct {
	mu        sync.RWMutex
	db        storage.Database
	state     *nhbstate.Manager
	referral  *referral.Engine
	pending   *events.Buffer
	publisher *events.Fanout
	chainID   string
	nowFn     func() int64
	logger    *slog.Logger
}

// NewNode wires the state manager and referral engine on top of db.
func NewNode(db storage.Database, cfg NodeConfig) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	chainID := strings.TrimSpace(cfg.ChainID)
	if chainID == "" {
		return nil, fmt.Errorf("node: chain id required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = func() int64 { return time.Now().Unix() }
	}

	manager := nhbstate.NewManager(db)
	pending := &events.Buffer{}
	engine := referral.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(pending)
	engine.SetNowFunc(nowFn)
	engine.SetPauses(cfg.Pauses)
	if domain := strings.TrimSpace(cfg.ServiceDomain); domain != "" {
		if err := engine.SetServiceDomain(domain); err != nil {
			return nil, err
		}
	}

	return &Node{
		db:        db,
		state:     manager,
		referral:  engine,
		pending:   pending,
		publisher: events.NewFanout(),
		chainID:   chainID,
		nowFn:     nowFn,
		logger:    logger.With(slog.String("component", "node")),
	}, nil
}

// ChainID returns the network identifier transactions must carry.
func (n *Node) ChainID() string { return n.chainID }

// Subscribe registers an emitter that receives every committed event.
func (n *Node) Subscribe(emitter events.Emitter) {
	n.publisher.Add(emitter)
}

// SubmitTransaction verifies, applies and commits tx. Events raised while
// applying are published only after the commit succeeds.
func (n *Node) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("node: transaction required")
	}
	ctx, span := telemetry.Tracer().Start(ctx, "node.SubmitTransaction",
		trace.WithAttributes(attribute.String("tx.type", tx.Type.String())))
	defer span.End()

	start := time.Now()
	receipt, err := n.submit(ctx, tx)
	reason := ""
	if err != nil {
		reason = failureReason(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
	}
	observability.Referral().ObserveTx(tx.Type.String(), time.Since(start), reason)
	return receipt, err
}

func (n *Node) submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx.ChainID != n.chainID {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrChainIDMismatch, tx.ChainID, n.chainID)
	}
	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
	}
	fromBytes, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var from [20]byte
	copy(from[:], fromBytes)
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	log := n.logger.With(
		logging.MaskField("txhash", "0x"+hex.EncodeToString(hash)),
		logging.MaskField("type", tx.Type.String()),
		logging.MaskField("from", addressString(from)),
	)

	n.mu.Lock()
	defer n.mu.Unlock()

	expected, err := n.state.Nonce(from)
	if err != nil {
		return nil, err
	}
	if tx.Nonce != expected {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNonceMismatch, tx.Nonce, expected)
	}

	trace.SpanFromContext(ctx).AddEvent("apply")
	if err := n.applyTransaction(from, tx); err != nil {
		n.rollback()
		log.Warn("transaction rejected",
			slog.String("error", err.Error()),
			slog.Int("code", referral.CodeOf(err)),
			slog.String("kind", string(referral.KindOf(err))))
		return nil, err
	}
	if err := n.state.SetNonce(from, expected+1); err != nil {
		n.rollback()
		return nil, err
	}
	if err := n.state.Commit(); err != nil {
		n.rollback()
		log.Error("commit failed", slog.String("error", err.Error()))
		return nil, err
	}

	committed := n.pending.Drain()
	receipt := &types.Receipt{
		TxHash:  hash,
		Type:    tx.Type,
		From:    from,
		Events:  make([]*types.Event, 0, len(committed)),
		Applied: n.nowFn(),
	}
	for _, evt := range committed {
		if payload := evt.Event(); payload != nil {
			receipt.Events = append(receipt.Events, payload)
		}
		n.publisher.Emit(evt)
	}
	log.Info("transaction applied", slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

func (n *Node) rollback() {
	n.state.Discard()
	n.pending.Reset()
}

func failureReason(err error) string {
	if kind := referral.KindOf(err); kind != "" {
		return string(kind)
	}
	switch {
	case errors.Is(err, ErrNonceMismatch):
		return "nonce"
	case errors.Is(err, ErrChainIDMismatch):
		return "chain_id"
	case errors.Is(err, ErrInvalidSignature):
		return "signature"
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrUnknownTxType):
		return "payload"
	case errors.Is(err, common.ErrModulePaused):
		return "paused"
	default:
		return "internal"
	}
}
