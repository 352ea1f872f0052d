package mutation

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/pattern"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

// Link creates an edge. Target count must match the declared parameter
// list exactly; node targets must be of the declared parameter type (a
// subtype is accepted); edge-valued targets are accepted at any
// position, which is what makes higher-order edges expressible without
// separate syntax. On a symmetric edge type, an equivalent existing
// edge (same target multiset) makes LINK an idempotent no-op.
func (ex *Executor) Link(stmt *astir.Link, env patternir.Bindings) (Outcome, patternir.Bindings, error) {
	etd, ok := ex.Reg.GetEdgeTypeByName(stmt.TypeName)
	if !ok {
		return Outcome{}, env, fmt.Errorf("%w: %s", ErrUnknownEdgeType, stmt.TypeName)
	}
	if len(stmt.Targets) != len(etd.Params) {
		return Outcome{}, env, fmt.Errorf("%w: %s expects %d targets, got %d",
			ErrInvalidArity, stmt.TypeName, len(etd.Params), len(stmt.Targets))
	}

	targets := make([]hvalue.EntityId, len(stmt.Targets))
	for i, t := range stmt.Targets {
		entity, err := ex.resolveEntity(t, env)
		if err != nil {
			return Outcome{}, env, err
		}
		if nid, isNode := entity.AsNode(); isNode {
			n, err := ex.Store.GetNode(nid)
			if err != nil {
				return Outcome{}, env, err
			}
			if !ex.Reg.IsSubtype(n.TypeID, etd.Params[i].TypeID) {
				return Outcome{}, env, fmt.Errorf("%w: position %d expects %s",
					ErrTargetTypeMismatch, i, etd.Params[i].TypeName)
			}
		}
		targets[i] = entity
	}

	if etd.Symmetric {
		if existing, found := ex.Store.FindEquivalent(etd.ID, targets); found {
			out := env
			if stmt.Alias != "" {
				out = env.Extend(stmt.Alias, patternir.EdgeBinding(existing))
			}
			return Outcome{Kind: OutcomeLinked, LinkedCount: 0, LinkedEdge: existing}, out, nil
		}
	}

	attrs := hvalue.NewAttributes()
	for _, assign := range stmt.Attrs {
		def, declared := etd.Attributes[assign.Attr]
		if !declared {
			return Outcome{}, env, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, stmt.TypeName, assign.Attr)
		}
		v, err := pattern.Eval(assign.Expr, env, ex.Store)
		if err != nil {
			return Outcome{}, env, err
		}
		if err := validateAttribute(assign.Attr, def, v); err != nil {
			return Outcome{}, env, err
		}
		attrs.Set(assign.Attr, v)
	}
	if err := checkRequiredAttributes(etd.Attributes, attrs); err != nil {
		return Outcome{}, env, err
	}
	applyDefaults(etd.Attributes, &attrs)

	for pos := range etd.Params {
		bound, has := etd.CardinalityAt(pos)
		if !has || bound.Hi < 0 {
			continue
		}
		count := ex.Store.EdgeCountWithEntityAtPosition(etd.ID, pos, targets[pos])
		if count+1 > bound.Hi {
			return Outcome{}, env, fmt.Errorf("%w: %s position %d at most %d",
				ErrCardinalityExceeded, stmt.TypeName, pos, bound.Hi)
		}
	}

	if etd.Acyclic {
		if err := ex.checkAcyclic(etd, targets); err != nil {
			return Outcome{}, env, err
		}
	}

	id := ex.Store.NextEdgeID()
	edge := hvalue.NewEdge(id, etd.ID, targets)
	edge.Attributes = attrs
	if err := ex.Store.CreateEdge(edge); err != nil {
		return Outcome{}, env, err
	}

	out := env
	if stmt.Alias != "" {
		out = env.Extend(stmt.Alias, patternir.EdgeBinding(id))
	}
	return Outcome{Kind: OutcomeLinked, LinkedCount: 1, LinkedEdge: id}, out, nil
}

// checkAcyclic rejects an edge whose insertion would create a cycle in
// its edge type's induced graph. Direction runs position 0 -> every
// later position; a symmetric acyclic type is treated as undirected, so
// the new edge violates if its endpoints are already connected at all.
// Self-loops violate either way.
func (ex *Executor) checkAcyclic(etd *registry.EdgeTypeDef, targets []hvalue.EntityId) error {
	src := targets[0]
	for _, dst := range targets[1:] {
		if src.Equal(dst) {
			return fmt.Errorf("%w: %s self-loop", ErrAcyclicViolation, etd.Name)
		}
		if ex.reachable(etd, dst, src) {
			return fmt.Errorf("%w: %s", ErrAcyclicViolation, etd.Name)
		}
	}
	return nil
}

// reachable reports whether to can be reached from from along existing
// edges of etd. Directed types follow position 0 -> later positions;
// symmetric types follow edges in both directions.
func (ex *Executor) reachable(etd *registry.EdgeTypeDef, from, to hvalue.EntityId) bool {
	visited := map[string]bool{from.String(): true}
	queue := []hvalue.EntityId{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range ex.neighbors(etd, cur) {
			if next.Equal(to) {
				return true
			}
			if visited[next.String()] {
				continue
			}
			visited[next.String()] = true
			queue = append(queue, next)
		}
	}
	return false
}

func (ex *Executor) neighbors(etd *registry.EdgeTypeDef, from hvalue.EntityId) []hvalue.EntityId {
	var out []hvalue.EntityId
	for _, eid := range ex.Store.EdgesOfType(etd.ID) {
		e, err := ex.Store.GetEdge(eid)
		if err != nil {
			continue
		}
		if etd.Symmetric {
			if !e.Involves(from) {
				continue
			}
			for _, t := range e.Targets {
				if !t.Equal(from) {
					out = append(out, t)
				}
			}
			continue
		}
		if src, ok := e.Target(0); ok && src.Equal(from) {
			out = append(out, e.Targets[1:]...)
		}
	}
	return out
}
