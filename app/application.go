package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stratadb/stratadb/crypto"
	"github.com/stratadb/stratadb/logger"
	"github.com/stratadb/stratadb/storage"
	"github.com/stratadb/stratadb/types"
)

const AppName = "stratadb"

// AppVersion is the protocol version of the state transition function.
// Bump when a change makes old and new nodes compute different roots.
const AppVersion uint64 = 1

// Version is the build version, overridden via ldflags.
var Version = "0.4.0-dev"

type (
	// Store is the authenticated store surface the state machine drives.
	// Single logical writer, the commit path owns it exclusively.
	Store interface {
		GetLastBlockState() storage.BlockState
		BeginBlock(height, blockTime uint64)
		ApplyMutation(submitter types.Address, txID types.TxID, m *types.Mutation) (gasUsed, bytesWritten uint64, err error)
		ApplyQuerySession(client, node types.Address, txID types.TxID, info *types.QuerySessionInfo) error
		ApplyDatabase(sender types.Address, nonce uint64, txID types.TxID, dm *types.DatabaseMutation) error
		Commit() ([]byte, error)
		RootHash() []byte
	}

	Observability interface {
		Meter(name string, options ...metric.MeterOption) metric.Meter
		Tracer(name string, options ...trace.TracerOption) trace.Tracer
		Logger() *slog.Logger
	}

	/*
		Application is the deterministic state transition function driven by
		the consensus engine: informational handshake, per block begin, per
		transaction admission check, per transaction staging and end of
		block atomic commit. Admission checks may run concurrently with the
		staging/commit cycle; staging and commit calls of a block arrive
		sequentially from a single execution thread.
	*/
	Application struct {
		store    Store
		counters *Counters

		mutations pendingQueue[pendingMutation]
		sessions  pendingQueue[pendingQuerySession]
		databases pendingQueue[pendingDatabase]

		log    *slog.Logger
		tracer trace.Tracer
	}
)

func New(store Store, counters *Counters, obs Observability) *Application {
	return &Application{
		store:    store,
		counters: counters,
		log:      obs.Logger(),
		tracer:   obs.Tracer("app"),
	}
}

// Info reports the last committed height and root hash without mutating state.
func (a *Application) Info() ResponseInfo {
	state := a.store.GetLastBlockState()
	return ResponseInfo{
		AppName:          AppName,
		Version:          Version,
		AppVersion:       AppVersion,
		LastBlockHeight:  state.BlockHeight,
		LastBlockAppHash: state.RootHash,
	}
}

// BeginBlock opens the next block. Must precede all staging calls of the
// block; the consensus engine enforces the call order.
func (a *Application) BeginBlock(header BlockHeader) {
	a.store.BeginBlock(header.Height, header.Time)
}

/*
CheckTx is the admission check of the candidate transaction pool. Purely
advisory: it mutates no queue and no counter, may run any number of times
and concurrently with staging, including for transactions never delivered.
*/
func (a *Application) CheckTx(rawTx []byte) ResponseCheckTx {
	if err := a.admit(rawTx); err != nil {
		a.log.Debug("rejecting transaction", logger.Error(err), logger.TxID(types.NewTxID(rawTx)))
		return ResponseCheckTx{Code: CodeRejected, Log: logBadRequest}
	}
	return ResponseCheckTx{Code: CodeOK, GasWanted: 1}
}

func (a *Application) admit(rawTx []byte) error {
	req, err := types.ParseWriteRequest(rawTx)
	if err != nil {
		return err
	}
	if _, err := crypto.Verify(req.Payload, req.Signature); err != nil {
		return fmt.Errorf("recovering submitter of %s payload: %w", req.PayloadType, err)
	}

	switch req.PayloadType {
	case types.KvMutationPayload:
		m, err := types.ParseMutation(req.Payload)
		if err != nil {
			return err
		}
		if !storage.IsValidMutation(m) {
			return fmt.Errorf("invalid mutation")
		}
	case types.DatabaseMutationPayload:
		dm, err := types.ParseDatabaseMutation(req.Payload)
		if err != nil {
			return err
		}
		if dm.Meta == nil {
			return fmt.Errorf("database mutation carries no broadcast meta")
		}
	case types.QuerySessionPayload:
		qs, err := types.ParseQuerySession(req.Payload)
		if err != nil {
			return err
		}
		if _, err := crypto.VerifyQuerySession(qs); err != nil {
			return fmt.Errorf("verifying session proof: %w", err)
		}
	default:
		return fmt.Errorf("unsupported payload type %s", req.PayloadType)
	}
	return nil
}

/*
DeliverTx stages a transaction consensus has included in the current block.
The signature is re-verified and the payload re-decoded (the admission check
may have run on a different node or against a different pool state) before
the pending record is appended to its kind's queue. A rejected transaction
contributes nothing to state and nothing to the block's hash.
*/
func (a *Application) DeliverTx(rawTx []byte) ResponseDeliverTx {
	txID := types.NewTxID(rawTx)
	req, err := types.ParseWriteRequest(rawTx)
	if err != nil {
		return a.rejectDeliver(txID, err)
	}
	submitter, err := crypto.Verify(req.Payload, req.Signature)
	if err != nil {
		return a.rejectDeliver(txID, fmt.Errorf("recovering submitter: %w", err))
	}

	switch req.PayloadType {
	case types.KvMutationPayload:
		m, err := types.ParseMutation(req.Payload)
		if err != nil {
			return a.rejectDeliver(txID, err)
		}
		a.mutations.push(pendingMutation{submitter: submitter, txID: txID, mutation: m})
		return stagedResponse(infoDeliverMutation, EventTypeDeliver, submitter)
	case types.DatabaseMutationPayload:
		dm, err := types.ParseDatabaseMutation(req.Payload)
		if err != nil {
			return a.rejectDeliver(txID, err)
		}
		if dm.Meta == nil {
			// the nonce of the meta seeds the database address derivation,
			// without it the record could not be applied at commit
			return a.rejectDeliver(txID, fmt.Errorf("database mutation carries no broadcast meta"))
		}
		a.databases.push(pendingDatabase{sender: submitter, nonce: dm.Meta.Nonce, txID: txID, mutation: dm})
		return stagedResponse(infoApplyDatabase, EventTypeApply, submitter)
	case types.QuerySessionPayload:
		qs, err := types.ParseQuerySession(req.Payload)
		if err != nil {
			return a.rejectDeliver(txID, err)
		}
		client, err := crypto.VerifyQuerySession(qs)
		if err != nil {
			return a.rejectDeliver(txID, fmt.Errorf("verifying session proof: %w", err))
		}
		a.sessions.push(pendingQuerySession{client: client, node: submitter, txID: txID, info: qs.NodeSessionInfo})
		return stagedResponse(infoDeliverQuerySession, EventTypeDeliver, submitter)
	default:
		return a.rejectDeliver(txID, fmt.Errorf("unsupported payload type %s", req.PayloadType))
	}
}

func (a *Application) rejectDeliver(txID types.TxID, err error) ResponseDeliverTx {
	a.log.Warn("rejecting delivered transaction", logger.Error(err), logger.TxID(txID))
	return ResponseDeliverTx{Code: CodeRejected, Log: err.Error()}
}

func stagedResponse(info, eventType string, submitter types.Address) ResponseDeliverTx {
	return ResponseDeliverTx{
		Code: CodeOK,
		Info: info,
		Events: []Event{{
			Type:       eventType,
			Attributes: []EventAttribute{{Key: "sender", Value: submitter.String()}},
		}},
	}
}

/*
Commit atomically drains the staging queues and applies their contents to
the store: mutations first, then query sessions, then database mutations,
each in FIFO order. Cross kind order is fixed rather than arrival
preserving - the kinds operate on disjoint sub-state, any total order every
replica reproduces is sufficient.

An apply failure is a broken invariant (an admitted transaction must always
apply) and is returned as an error. The error is fatal: the caller must not
issue further calls, the harness decides between crashing and a halted read
only mode. An empty block skips the store commit and returns the existing
root hash unchanged.
*/
func (a *Application) Commit(ctx context.Context) (ResponseCommit, error) {
	ctx, span := a.tracer.Start(ctx, "app.commit")
	defer span.End()

	mutations := a.mutations.drain()
	sessions := a.sessions.drain()
	databases := a.databases.drain()

	if len(mutations) == 0 && len(sessions) == 0 && len(databases) == 0 {
		return ResponseCommit{AppHash: a.store.RootHash(), RetainHeight: 0}, nil
	}

	for _, r := range mutations {
		_, bytesWritten, err := a.store.ApplyMutation(r.submitter, r.txID, r.mutation)
		if err != nil {
			return ResponseCommit{}, fmt.Errorf("applying mutation %s: %w", r.txID, err)
		}
		a.counters.AddMutation(bytesWritten)
	}
	for _, r := range sessions {
		if err := a.store.ApplyQuerySession(r.client, r.node, r.txID, r.info); err != nil {
			return ResponseCommit{}, fmt.Errorf("applying query session %s: %w", r.txID, err)
		}
		a.counters.AddQuerySession()
	}
	for _, r := range databases {
		if err := a.store.ApplyDatabase(r.sender, r.nonce, r.txID, r.mutation); err != nil {
			return ResponseCommit{}, fmt.Errorf("applying database mutation %s: %w", r.txID, err)
		}
	}

	root, err := a.store.Commit()
	if err != nil {
		return ResponseCommit{}, fmt.Errorf("committing store: %w", err)
	}
	a.log.DebugContext(ctx, fmt.Sprintf("committed %d mutations, %d sessions, %d database mutations", len(mutations), len(sessions), len(databases)))
	return ResponseCommit{AppHash: root, RetainHeight: 0}, nil
}

// Query is deferred to the read layer, the core serves no historical reads.
func (a *Application) Query() ResponseQuery {
	return ResponseQuery{Code: CodeOK}
}
