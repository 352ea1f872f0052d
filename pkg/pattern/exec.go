package pattern

import (
	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// Execute runs a compiled pattern's ops left-to-right as nested-loop
// joins over store, starting from a single empty Bindings, and returns
// every resulting binding stream entry. Ordering between sibling
// matches is unspecified.
func Execute(compiled *patternir.CompiledPattern, store *graphstore.Store) ([]patternir.Bindings, error) {
	return executeOps(compiled.Ops, []patternir.Bindings{patternir.NewBindings()}, store)
}

// executeOps runs ops starting from a given seed stream, used by
// NotExistsOp to correlate a subpattern against the outer binding.
func executeOps(ops []patternir.Op, seed []patternir.Bindings, store *graphstore.Store) ([]patternir.Bindings, error) {
	stream := seed
	for _, op := range ops {
		next, err := applyOp(op, stream, store)
		if err != nil {
			return nil, err
		}
		stream = next
		if len(stream) == 0 {
			return stream, nil
		}
	}
	return stream, nil
}

func applyOp(op patternir.Op, stream []patternir.Bindings, store *graphstore.Store) ([]patternir.Bindings, error) {
	switch o := op.(type) {
	case patternir.ScanNodesOp:
		var out []patternir.Bindings
		for _, b := range stream {
			for _, nid := range store.NodesOfType(o.TypeID) {
				out = append(out, b.Extend(o.Var, patternir.NodeBinding(nid)))
			}
		}
		return out, nil

	case patternir.ScanNodesByAttrOp:
		var out []patternir.Bindings
		for _, b := range stream {
			ids, ok := store.NodesByAttrEq(o.TypeID, o.Attr, o.Value)
			if !ok {
				// No index registered; fall back to a full type scan with
				// an inline equality check.
				for _, nid := range store.NodesOfType(o.TypeID) {
					n, err := store.GetNode(nid)
					if err != nil {
						continue
					}
					if v, has := n.GetAttr(o.Attr); has && hvalue.Equal(v, o.Value) {
						out = append(out, b.Extend(o.Var, patternir.NodeBinding(nid)))
					}
				}
				continue
			}
			for _, nid := range ids {
				out = append(out, b.Extend(o.Var, patternir.NodeBinding(nid)))
			}
		}
		return out, nil

	case patternir.ScanNodesByRangeOp:
		var out []patternir.Bindings
		for _, b := range stream {
			ids, ok := store.NodesByAttrRange(o.TypeID, o.Attr, o.Lo, o.Hi)
			if !ok {
				for _, nid := range store.NodesOfType(o.TypeID) {
					n, err := store.GetNode(nid)
					if err != nil {
						continue
					}
					v, has := n.GetAttr(o.Attr)
					if !has {
						continue
					}
					if inRange(v, o.Lo, o.Hi) {
						out = append(out, b.Extend(o.Var, patternir.NodeBinding(nid)))
					}
				}
				continue
			}
			for _, nid := range ids {
				out = append(out, b.Extend(o.Var, patternir.NodeBinding(nid)))
			}
		}
		return out, nil

	case patternir.ScanEdgesOp:
		var out []patternir.Bindings
		for _, b := range stream {
			for _, eid := range store.EdgesOfType(o.EdgeType) {
				out = append(out, b.Extend(o.Var, patternir.EdgeBinding(eid)))
			}
		}
		return out, nil

	case patternir.FollowEdgeOp:
		var out []patternir.Bindings
		for _, b := range stream {
			for _, eid := range store.EdgesOfType(o.EdgeType) {
				e, err := store.GetEdge(eid)
				if err != nil {
					continue
				}
				nb, ok := matchAndExtend(b, o.PositionVars, e)
				if !ok {
					continue
				}
				if o.EdgeVar != "" {
					nb = nb.Extend(o.EdgeVar, patternir.EdgeBinding(eid))
				}
				out = append(out, nb)
			}
		}
		return out, nil

	case patternir.CheckEdgeOp:
		var out []patternir.Bindings
		for _, b := range stream {
			for _, eid := range store.EdgesOfType(o.EdgeType) {
				e, err := store.GetEdge(eid)
				if err != nil {
					continue
				}
				if _, ok := matchAndExtend(b, o.PositionVars, e); ok {
					out = append(out, b)
					break
				}
			}
		}
		return out, nil

	case patternir.FilterOp:
		var out []patternir.Bindings
		for _, b := range stream {
			v, err := Eval(o.Condition, b, store)
			if err != nil {
				return nil, err
			}
			truthy, ok := v.Bool()
			if !ok {
				return nil, ErrNotBoolean
			}
			if truthy {
				out = append(out, b)
			}
		}
		return out, nil

	case patternir.NotExistsOp:
		var out []patternir.Bindings
		for _, b := range stream {
			sub, err := executeOps(o.Subpattern.Ops, []patternir.Bindings{b}, store)
			if err != nil {
				return nil, err
			}
			if len(sub) == 0 {
				out = append(out, b)
			}
		}
		return out, nil

	case patternir.TransitiveFollowOp:
		var out []patternir.Bindings
		for _, b := range stream {
			fromBinding, ok := b.Get(o.FromVar)
			if !ok {
				return nil, ErrUnboundVariable
			}
			startNode, ok := fromBinding.AsNode()
			if !ok {
				continue
			}
			for _, nid := range transitiveClosure(store, o.EdgeType, startNode, o.Kind) {
				out = append(out, b.Extend(o.ToVar, patternir.NodeBinding(nid)))
			}
		}
		return out, nil

	default:
		return nil, ErrUnknownFunction
	}
}

func inRange(v, lo, hi hvalue.Value) bool {
	if !lo.IsNull() {
		if cmp, ok := hvalue.Compare(v, lo); !ok || cmp < 0 {
			return false
		}
	}
	if !hi.IsNull() {
		if cmp, ok := hvalue.Compare(v, hi); !ok || cmp > 0 {
			return false
		}
	}
	return true
}

// matchAndExtend checks an edge's targets against positionVars given
// the current binding b: a wildcard position matches anything and
// introduces no binding; a bound variable must equal the target at
// that position; an unbound variable is bound to the target. It
// returns the extended Bindings and true on a full match.
func matchAndExtend(b patternir.Bindings, positionVars []string, e hvalue.Edge) (patternir.Bindings, bool) {
	if len(positionVars) != e.Arity() {
		return b, false
	}
	nb := b
	for pos, varName := range positionVars {
		target, _ := e.Target(pos)
		if varName == patternir.WildcardVar {
			continue
		}
		if existing, bound := nb.Get(varName); bound {
			entity, isEntity := existing.AsEntity()
			if !isEntity || !entity.Equal(target) {
				return b, false
			}
			continue
		}
		if nid, ok := target.AsNode(); ok {
			nb = nb.Extend(varName, patternir.NodeBinding(nid))
		} else if eid, ok := target.AsEdge(); ok {
			nb = nb.Extend(varName, patternir.EdgeBinding(eid))
		}
	}
	return nb, true
}
