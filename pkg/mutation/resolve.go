package mutation

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// resolveEntity turns a TargetRef into a live EntityId: a variable ref
// is looked up in env (and must hold a node or edge binding), a literal
// ref is used as-is. Liveness is checked either way.
func (ex *Executor) resolveEntity(t astir.TargetRef, env patternir.Bindings) (hvalue.EntityId, error) {
	var entity hvalue.EntityId
	if t.IsVar {
		b, ok := env.Get(t.Var)
		if !ok {
			return hvalue.EntityId{}, fmt.Errorf("%w: %s", ErrUnresolvedTarget, t.Var)
		}
		entity, ok = b.AsEntity()
		if !ok {
			return hvalue.EntityId{}, fmt.Errorf("%w: %s holds a plain value", ErrUnresolvedTarget, t.Var)
		}
	} else {
		entity = t.Entity
	}
	if nid, ok := entity.AsNode(); ok {
		if !ex.Store.NodeExists(nid) {
			return hvalue.EntityId{}, fmt.Errorf("%w: %s", ErrNodeNotFound, nid)
		}
		return entity, nil
	}
	eid, _ := entity.AsEdge()
	if !ex.Store.EdgeExists(eid) {
		return hvalue.EntityId{}, fmt.Errorf("%w: %s", ErrEdgeNotFound, eid)
	}
	return entity, nil
}

// resolveNode is resolveEntity narrowed to node targets, as KILL needs.
func (ex *Executor) resolveNode(t astir.TargetRef, env patternir.Bindings) (hvalue.NodeId, error) {
	entity, err := ex.resolveEntity(t, env)
	if err != nil {
		return 0, err
	}
	nid, ok := entity.AsNode()
	if !ok {
		return 0, fmt.Errorf("%w: target is an edge", ErrNodeNotFound)
	}
	return nid, nil
}

// resolveEdge is resolveEntity narrowed to edge targets, as UNLINK needs.
func (ex *Executor) resolveEdge(t astir.TargetRef, env patternir.Bindings) (hvalue.EdgeId, error) {
	entity, err := ex.resolveEntity(t, env)
	if err != nil {
		return 0, err
	}
	eid, ok := entity.AsEdge()
	if !ok {
		return 0, fmt.Errorf("%w: target is a node", ErrEdgeNotFound)
	}
	return eid, nil
}
