// Package txn implements the transaction manager: single-writer
// orchestration of mutation -> rules -> deferred constraints ->
// journal append+fsync -> commit or rollback.
//
// The manager is in one of three states. Idle means no transaction; a
// mutating statement executed while Idle is auto-begun and
// auto-committed. Active means a BEGIN is open: mutations apply to the
// store (read-your-writes), journal entries accumulate unsynced, and
// each mutation drives the rule engine to quiescence. A failed
// mutation statement has zero effect and leaves the transaction
// Active; a failed rule chain or deferred constraint check rolls the
// whole transaction back, restoring the snapshot taken at BEGIN.
package txn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/audit"
	"github.com/orneryd/hyperdb/pkg/constraint"
	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/journal"
	"github.com/orneryd/hyperdb/pkg/mutation"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/query"
	"github.com/orneryd/hyperdb/pkg/registry"
	"github.com/orneryd/hyperdb/pkg/rule"
)

// State is the manager's transaction state.
type State uint8

const (
	StateIdle State = iota
	StateActive
	StateAborted
)

// ExecResult is what one executed statement reports back: the
// statement's own outcome, the rule productions it triggered, and any
// warning-severity violations (immediate ones always; deferred ones
// when the statement was auto-committed).
type ExecResult struct {
	Outcome  mutation.Outcome
	Firings  []rule.Firing
	Warnings []constraint.Violation
}

// CommitResult carries the warnings that ride along on a successful
// commit acknowledgement.
type CommitResult struct {
	Warnings []constraint.Violation
}

// Manager owns the engine's write path. All methods are serialized by
// an engine-wide lock; readers may Query concurrently against the
// store, which always reflects either the committed state (Idle) or
// the open transaction's read-your-writes view (Active).
type Manager struct {
	mu sync.Mutex

	reg     *registry.Registry
	store   *graphstore.Store
	exec    *mutation.Executor
	queries *query.Executor
	checker *constraint.Checker
	wal     journal.Journal

	auditLog *audit.Logger // nil disables
	metrics  *Metrics      // nil disables
	tracer   trace.Tracer

	// SessionID is the client-facing opaque handle for this manager's
	// session, distinct from the internal monotonic transaction ids.
	SessionID string

	// hasImmediate caches whether the registry declares any immediate
	// pattern constraint, so statements skip the pre-statement snapshot
	// when there is nothing to check.
	hasImmediate bool

	state     State
	failed    bool
	nextTxnID uint64
	txnID     uint64
	snapshot  *graphstore.Store
	rules     *rule.Session
	env       patternir.Bindings
	mutations int
	span      trace.Span
}

// Option configures a Manager.
type Option func(*Manager)

// WithAudit attaches an audit logger.
func WithAudit(l *audit.Logger) Option {
	return func(m *Manager) { m.auditLog = l }
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// New builds a Manager over a registry, store, and journal.
func New(reg *registry.Registry, store *graphstore.Store, wal journal.Journal, opts ...Option) *Manager {
	m := &Manager{
		reg:       reg,
		store:     store,
		exec:      mutation.New(reg, store),
		queries:   query.New(reg, store),
		checker:   constraint.NewChecker(reg),
		wal:       wal,
		tracer:    otel.Tracer("hyperdb/txn"),
		SessionID: uuid.NewString(),
		env:       patternir.NewBindings(),

		hasImmediate: len(reg.ImmediateConstraints()) > 0,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current transaction state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Begin opens a transaction: Idle -> Active. The store is snapshotted
// for rollback and a Begin entry is appended to the journal.
func (m *Manager) Begin(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return ErrEngineFailed
	}
	if m.state == StateActive {
		return ErrAlreadyActive
	}
	return m.beginLocked(ctx)
}

func (m *Manager) beginLocked(ctx context.Context) error {
	m.nextTxnID++
	m.txnID = m.nextTxnID
	if _, err := m.wal.Append(journal.Entry{Kind: journal.KindBegin, Txn: m.txnID}); err != nil {
		return err
	}
	m.snapshot = m.store.Clone()
	m.rules = rule.NewSession(m.reg, m.exec)
	m.env = patternir.NewBindings()
	m.mutations = 0
	m.state = StateActive
	_, m.span = m.tracer.Start(ctx, "transaction",
		trace.WithAttributes(attribute.Int64("txn.id", int64(m.txnID))))
	if m.auditLog != nil {
		m.auditLog.LogBegin(m.SessionID, m.txnID)
	}
	return nil
}

// Execute runs one statement. While Idle the statement is auto-begun
// and auto-committed (a mutation error then auto-rolls-back); while
// Active it joins the open transaction, where a mutation error or an
// immediate-constraint violation by the statement itself leaves the
// transaction intact, while a cancelled context, a journal append
// failure, or a rule-chain error (including a constraint violation by
// a production) forces a rollback.
func (m *Manager) Execute(ctx context.Context, stmt astir.Statement) (*ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return nil, ErrEngineFailed
	}

	if m.state == StateActive {
		return m.executeLocked(ctx, stmt)
	}

	if err := m.beginLocked(ctx); err != nil {
		return nil, err
	}
	result, err := m.executeLocked(ctx, stmt)
	if err != nil {
		if m.state == StateActive {
			m.rollbackLocked("auto-begun statement failed: " + err.Error())
		}
		return nil, err
	}
	commit, err := m.commitLocked()
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, commit.Warnings...)
	return result, nil
}

// executeLocked runs a statement inside the open transaction:
// cancellation check, the mutation itself, immediate pattern
// constraints, journaling, then the rule engine to quiescence with its
// own journaling and its own immediate check.
func (m *Manager) executeLocked(ctx context.Context, stmt astir.Statement) (*ExecResult, error) {
	if err := ctx.Err(); err != nil {
		m.rollbackLocked("cancelled")
		return nil, ErrCancelled
	}

	// Immediate pattern constraints evaluate post-mutation state, so a
	// violation is unwound through a pre-statement snapshot; nothing
	// has been journaled at that point and the transaction stays
	// Active, the same zero-effect contract as any mutation error.
	var preStmt *graphstore.Store
	if m.hasImmediate {
		preStmt = m.store.Clone()
	}

	outcome, env, err := m.exec.Execute(stmt, m.env)
	if err != nil {
		// The failed mutation had zero effect; the transaction stays
		// Active with its buffer intact.
		return nil, err
	}

	var warnings []constraint.Violation
	if m.hasImmediate {
		violations, err := m.immediateViolationsFor(outcome)
		if err != nil {
			m.store.ReplaceWith(preStmt)
			return nil, err
		}
		if violations.HasErrors() {
			m.store.ReplaceWith(preStmt)
			if m.metrics != nil {
				m.metrics.ConstraintViolations.WithLabelValues("error").Add(float64(len(violations.Errors())))
			}
			return nil, &ViolationError{Violations: violations}
		}
		warnings = violations.Warnings()
	}

	m.env = env
	if err := m.journalOutcome(outcome); err != nil {
		m.rollbackLocked("journal append failed: " + err.Error())
		return nil, err
	}
	m.mutations++

	firings, err := m.rules.Run(rule.EventsFromOutcome(m.exec, outcome))
	if err != nil {
		if m.auditLog != nil {
			m.auditLog.LogRuleAbort(m.SessionID, m.txnID, err.Error())
		}
		m.rollbackLocked("rule engine: " + err.Error())
		return nil, err
	}
	for _, f := range firings {
		if err := m.journalOutcome(f.Outcome); err != nil {
			m.rollbackLocked("journal append failed: " + err.Error())
			return nil, err
		}
		m.mutations++
	}
	if m.hasImmediate && len(firings) > 0 {
		// Production effects cannot be unwound statement-by-statement;
		// a violation here aborts the whole transaction, like any rule
		// error.
		var violations constraint.Violations
		for _, f := range firings {
			fv, err := m.immediateViolationsFor(f.Outcome)
			if err != nil {
				m.rollbackLocked("constraint check failed: " + err.Error())
				return nil, err
			}
			violations.Merge(fv)
		}
		if violations.HasErrors() {
			verr := &ViolationError{Violations: violations}
			m.rollbackLocked(verr.Error())
			return nil, verr
		}
		warnings = append(warnings, violations.Warnings()...)
	}
	if m.metrics != nil {
		m.metrics.RuleFirings.Add(float64(len(firings)))
	}
	return &ExecResult{Outcome: outcome, Firings: firings, Warnings: warnings}, nil
}

// immediateViolationsFor scopes the immediate check to the types one
// outcome touched: the spawned node's type, the linked edge's type, or
// each updated entity's type. Deletions fall back to the full
// immediate set, since the affected entities no longer resolve.
func (m *Manager) immediateViolationsFor(outcome mutation.Outcome) (constraint.Violations, error) {
	var typeIDs []hvalue.TypeId
	var edgeTypeIDs []hvalue.EdgeTypeId
	switch outcome.Kind {
	case mutation.OutcomeCreated:
		if nid, ok := outcome.CreatedEntity.AsNode(); ok {
			if node, err := m.store.GetNode(nid); err == nil {
				typeIDs = append(typeIDs, node.TypeID)
			}
		}
	case mutation.OutcomeLinked:
		if outcome.LinkedCount > 0 {
			if edge, err := m.store.GetEdge(outcome.LinkedEdge); err == nil {
				edgeTypeIDs = append(edgeTypeIDs, edge.TypeID)
			}
		}
	case mutation.OutcomeUpdated:
		for _, entity := range outcome.UpdatedEntities {
			if nid, ok := entity.AsNode(); ok {
				if node, err := m.store.GetNode(nid); err == nil {
					typeIDs = append(typeIDs, node.TypeID)
				}
			} else if eid, ok := entity.AsEdge(); ok {
				if edge, err := m.store.GetEdge(eid); err == nil {
					edgeTypeIDs = append(edgeTypeIDs, edge.TypeID)
				}
			}
		}
	case mutation.OutcomeDeleted:
		return m.checker.CheckImmediateAll(m.store)
	default:
		return constraint.Violations{}, nil
	}
	return m.checker.CheckImmediate(m.store, typeIDs, edgeTypeIDs)
}

// Query plans and runs a read statement against the current view.
func (m *Manager) Query(q *query.Query) (*query.Result, error) {
	return m.queries.Run(q)
}

// Commit closes the open transaction: deferred constraints, then
// journal Commit + fsync, then the buffer becomes the committed state.
// Error-severity violations force the rollback path and are returned
// as a *ViolationError.
func (m *Manager) Commit(ctx context.Context) (*CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return nil, ErrEngineFailed
	}
	if m.state != StateActive {
		return nil, ErrNoActiveTransaction
	}
	return m.commitLocked()
}

func (m *Manager) commitLocked() (*CommitResult, error) {
	violations, err := m.checker.CheckDeferred(m.store)
	if err != nil {
		m.rollbackLocked("constraint check failed: " + err.Error())
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.ConstraintViolations.WithLabelValues("error").Add(float64(len(violations.Errors())))
		m.metrics.ConstraintViolations.WithLabelValues("warning").Add(float64(len(violations.Warnings())))
	}
	if violations.HasErrors() {
		verr := &ViolationError{Violations: violations}
		m.rollbackLocked(verr.Error())
		return nil, verr
	}

	if _, err := m.wal.Append(journal.Entry{Kind: journal.KindCommit, Txn: m.txnID}); err != nil {
		m.rollbackLocked("journal append failed: " + err.Error())
		return nil, err
	}
	start := time.Now()
	if err := m.wal.Sync(); err != nil {
		// A failed fsync is fatal: restore the committed state and
		// refuse further transactions until the engine is reopened.
		m.store.ReplaceWith(m.snapshot)
		m.finishLocked(StateIdle)
		m.failed = true
		if m.auditLog != nil {
			m.auditLog.LogRollback(m.SessionID, m.txnID, "fsync failed: "+err.Error())
		}
		return nil, ErrEngineFailed
	}
	if m.metrics != nil {
		m.metrics.SyncLatency.Observe(time.Since(start).Seconds())
		m.metrics.Commits.Inc()
	}
	if m.auditLog != nil {
		m.auditLog.LogCommit(m.SessionID, m.txnID, m.mutations, len(violations.Warnings()))
	}
	m.finishLocked(StateIdle)
	return &CommitResult{Warnings: violations.Warnings()}, nil
}

// Rollback discards the open transaction, restoring the snapshot taken
// at BEGIN.
func (m *Manager) Rollback(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		return ErrNoActiveTransaction
	}
	m.rollbackLocked("requested")
	return nil
}

func (m *Manager) rollbackLocked(reason string) {
	m.store.ReplaceWith(m.snapshot)
	m.wal.Append(journal.Entry{Kind: journal.KindAbort, Txn: m.txnID})
	m.wal.Sync()
	if m.metrics != nil {
		m.metrics.Rollbacks.Inc()
	}
	if m.auditLog != nil {
		m.auditLog.LogRollback(m.SessionID, m.txnID, reason)
	}
	m.finishLocked(StateIdle)
}

func (m *Manager) finishLocked(next State) {
	if m.span != nil {
		m.span.End()
		m.span = nil
	}
	m.snapshot = nil
	m.rules = nil
	m.env = patternir.NewBindings()
	m.mutations = 0
	m.state = next
}

// Savepoint is not supported: it always returns the stable error
// ErrSavepointNotSupported. The statement surface (astir) has no
// savepoint statement.
func (m *Manager) Savepoint(name string) error {
	return ErrSavepointNotSupported
}

// journalOutcome appends the WAL entries one mutation outcome implies.
// For a KILL, edge removals are journaled before node removals so
// replay never deletes a node that still has incident edges.
func (m *Manager) journalOutcome(outcome mutation.Outcome) error {
	switch outcome.Kind {
	case mutation.OutcomeCreated:
		nid, ok := outcome.CreatedEntity.AsNode()
		if !ok {
			return nil
		}
		node, err := m.store.GetNode(nid)
		if err != nil {
			return err
		}
		entry := journal.Entry{
			Kind:     journal.KindSpawnNode,
			Txn:      m.txnID,
			Node:     nid,
			NodeType: node.TypeID,
			Attrs:    attrsMap(node.Attributes.Names(), node.Attributes),
		}
		_, err = m.wal.Append(entry)
		return err

	case mutation.OutcomeLinked:
		if outcome.LinkedCount == 0 {
			return nil
		}
		edge, err := m.store.GetEdge(outcome.LinkedEdge)
		if err != nil {
			return err
		}
		entry := journal.Entry{
			Kind:     journal.KindLinkEdge,
			Txn:      m.txnID,
			Edge:     edge.ID,
			EdgeType: edge.TypeID,
			Targets:  edge.Targets,
			Attrs:    attrsMap(edge.Attributes.Names(), edge.Attributes),
		}
		_, err = m.wal.Append(entry)
		return err

	case mutation.OutcomeDeleted:
		for _, eid := range outcome.DeletedEdgesDirect {
			if _, err := m.wal.Append(journal.Entry{Kind: journal.KindUnlinkEdge, Txn: m.txnID, Edge: eid}); err != nil {
				return err
			}
		}
		for _, eid := range outcome.DeletedEdgesCascade {
			if _, err := m.wal.Append(journal.Entry{Kind: journal.KindUnlinkEdge, Txn: m.txnID, Edge: eid}); err != nil {
				return err
			}
		}
		for _, nid := range outcome.DeletedNodes {
			if _, err := m.wal.Append(journal.Entry{Kind: journal.KindKillNode, Txn: m.txnID, Node: nid}); err != nil {
				return err
			}
		}
		return nil

	case mutation.OutcomeUpdated:
		for _, w := range outcome.Writes {
			entry := journal.Entry{
				Kind:   journal.KindSetAttr,
				Txn:    m.txnID,
				Entity: w.Entity,
				Attr:   w.Attr,
				Old:    w.Old,
				HadOld: w.HadOld,
				New:    w.Value,
			}
			if _, err := m.wal.Append(entry); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

func attrsMap(names []string, attrs hvalue.Attributes) map[string]hvalue.Value {
	out := make(map[string]hvalue.Value, len(names))
	for _, name := range names {
		if v, ok := attrs.Get(name); ok {
			out[name] = v
		}
	}
	return out
}
