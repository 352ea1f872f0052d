package mutation

import (
	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

// Executor is the single entry point for SPAWN/LINK/KILL/UNLINK/SET
// statements. It consults Registry for schema and Store for state; it
// does not itself write to a WAL — callers (the transaction manager)
// are responsible for journaling the outcome.
type Executor struct {
	Reg   *registry.Registry
	Store *graphstore.Store
}

// New builds an Executor and registers a graphstore index for every
// attribute the registry declares unique, across each type's full
// attribute set (inherited included), so uniqueness checks have an
// index to consult from the first SPAWN.
func New(reg *registry.Registry, store *graphstore.Store) *Executor {
	for _, id := range reg.AllTypeIDs() {
		for name, attr := range reg.GetAllTypeAttrs(id) {
			if attr.Unique {
				store.EnsureIndex(id, name, true)
			}
		}
	}
	return &Executor{Reg: reg, Store: store}
}

// Execute dispatches one statement to its entry point, returning the
// outcome and the (possibly extended) binding environment. An empty
// statement yields an empty outcome.
func (ex *Executor) Execute(stmt astir.Statement, env patternir.Bindings) (Outcome, patternir.Bindings, error) {
	switch {
	case stmt.Spawn != nil:
		return ex.Spawn(stmt.Spawn, env)
	case stmt.Link != nil:
		return ex.Link(stmt.Link, env)
	case stmt.Kill != nil:
		out, err := ex.Kill(stmt.Kill, env)
		return out, env, err
	case stmt.Unlink != nil:
		out, err := ex.Unlink(stmt.Unlink, env)
		return out, env, err
	case stmt.Set != nil:
		out, err := ex.Set(stmt.Set, env)
		return out, env, err
	default:
		return Outcome{Kind: OutcomeEmpty}, env, nil
	}
}
