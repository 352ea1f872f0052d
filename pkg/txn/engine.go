package txn

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/orneryd/hyperdb/pkg/audit"
	"github.com/orneryd/hyperdb/pkg/config"
	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/journal"
	"github.com/orneryd/hyperdb/pkg/mutation"
	"github.com/orneryd/hyperdb/pkg/registry"
)

// Engine bundles a recovered store with its manager and the resources
// that need closing on shutdown.
type Engine struct {
	Manager  *Manager
	Store    *graphstore.Store
	Recovery journal.RecoveryStats

	wal      journal.Journal
	auditLog *audit.Logger
}

// Open builds an engine from a compiled registry and a validated
// config: it opens the configured journal backend, replays committed
// transactions into a fresh store, and wires audit and metrics per the
// config. The registry's unique-attribute indexes are registered
// before replay so recovered state is indexed from the start.
func Open(cfg *config.Config, reg *registry.Registry) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := graphstore.New()
	// Registering indexes is a side effect of building an executor; the
	// manager builds its own over the same store later.
	mutation.New(reg, store)

	var wal journal.Journal
	var err error
	switch cfg.Journal.Backend {
	case "badger":
		wal, err = journal.OpenBadger(cfg.Journal.Dir)
	default:
		wal, err = journal.OpenFile(cfg.Journal.Dir)
	}
	if err != nil {
		return nil, err
	}

	stats, err := journal.Recover(wal, store)
	if err != nil {
		wal.Close()
		return nil, fmt.Errorf("txn: %w", err)
	}

	var opts []Option
	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		auditLog, err = audit.NewLogger(audit.Config{Dir: cfg.Audit.Dir, MaxFileSize: cfg.Audit.MaxFileSize})
		if err != nil {
			wal.Close()
			return nil, err
		}
		auditLog.LogRecovery(stats.Replayed, stats.Discarded)
		opts = append(opts, WithAudit(auditLog))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, WithMetrics(NewMetrics(prometheus.DefaultRegisterer)))
	}

	return &Engine{
		Manager:  New(reg, store, wal, opts...),
		Store:    store,
		Recovery: stats,
		wal:      wal,
		auditLog: auditLog,
	}, nil
}

// Close releases the journal and audit log.
func (e *Engine) Close() error {
	var first error
	if e.auditLog != nil {
		if err := e.auditLog.Close(); err != nil {
			first = err
		}
	}
	if err := e.wal.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
