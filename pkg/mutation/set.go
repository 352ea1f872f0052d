package mutation

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/pattern"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// Set applies a batch of attribute assignments to one or more nodes or
// edges. Every assignment across every target is validated before any
// is applied, so a failing assignment leaves the whole statement with
// zero effect. Each applied assignment bumps the entity's version,
// including a set to the current value.
func (ex *Executor) Set(stmt *astir.Set, env patternir.Bindings) (Outcome, error) {
	var writes []AttrWrite

	for _, target := range stmt.Targets {
		entity, err := ex.resolveEntity(target.Target, env)
		if err != nil {
			return Outcome{}, err
		}

		if nid, isNode := entity.AsNode(); isNode {
			node, err := ex.Store.GetNode(nid)
			if err != nil {
				return Outcome{}, err
			}
			defs := ex.Reg.GetAllTypeAttrs(node.TypeID)
			for _, assign := range target.Attrs {
				def, declared := defs[assign.Attr]
				if !declared {
					return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownAttribute, assign.Attr)
				}
				if def.Readonly {
					return Outcome{}, fmt.Errorf("%w: %s", ErrReadonlyAttribute, assign.Attr)
				}
				v, err := pattern.Eval(assign.Expr, env, ex.Store)
				if err != nil {
					return Outcome{}, err
				}
				if err := validateAttribute(assign.Attr, def, v); err != nil {
					return Outcome{}, err
				}
				if def.Unique {
					if err := ex.checkUniqueAcrossDescendants(node.TypeID, assign.Attr, v, nid, true); err != nil {
						return Outcome{}, err
					}
				}
				old, had := node.GetAttr(assign.Attr)
				writes = append(writes, AttrWrite{
					Entity: entity, Attr: assign.Attr, Old: old, HadOld: had, Value: v,
				})
			}
			continue
		}

		eid, _ := entity.AsEdge()
		edge, err := ex.Store.GetEdge(eid)
		if err != nil {
			return Outcome{}, err
		}
		etd := ex.Reg.GetEdgeType(edge.TypeID)
		for _, assign := range target.Attrs {
			def, declared := etd.Attributes[assign.Attr]
			if !declared {
				return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownAttribute, assign.Attr)
			}
			if def.Readonly {
				return Outcome{}, fmt.Errorf("%w: %s", ErrReadonlyAttribute, assign.Attr)
			}
			v, err := pattern.Eval(assign.Expr, env, ex.Store)
			if err != nil {
				return Outcome{}, err
			}
			if err := validateAttribute(assign.Attr, def, v); err != nil {
				return Outcome{}, err
			}
			old, had := edge.GetAttr(assign.Attr)
			writes = append(writes, AttrWrite{
				Entity: entity, Attr: assign.Attr, Old: old, HadOld: had, Value: v,
			})
		}
	}

	outcome := Outcome{Kind: OutcomeUpdated}
	seen := map[string]bool{}
	for _, w := range writes {
		if nid, isNode := w.Entity.AsNode(); isNode {
			if _, err := ex.Store.SetNodeAttr(nid, w.Attr, w.Value); err != nil {
				return Outcome{}, err
			}
		} else {
			eid, _ := w.Entity.AsEdge()
			if _, err := ex.Store.SetEdgeAttr(eid, w.Attr, w.Value); err != nil {
				return Outcome{}, err
			}
		}
		if !seen[w.Entity.String()] {
			seen[w.Entity.String()] = true
			outcome.UpdatedEntities = append(outcome.UpdatedEntities, w.Entity)
		}
	}
	outcome.Writes = writes
	return outcome, nil
}
