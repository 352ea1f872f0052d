package mutation

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/pattern"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// Spawn creates a node. It validates every assignment (required-null,
// type compatibility, range, in that order), checks required attributes
// are present, applies defaults, and enforces uniqueness against the
// attribute index scoped to the type and its descendants, before
// allocating an id and inserting. Nothing is written on any failure.
//
// The returned Bindings is env extended with stmt.Var bound to the new
// node, so later statements in the same script or production can
// reference it.
func (ex *Executor) Spawn(stmt *astir.Spawn, env patternir.Bindings) (Outcome, patternir.Bindings, error) {
	td, ok := ex.Reg.GetTypeByName(stmt.TypeName)
	if !ok {
		return Outcome{}, env, fmt.Errorf("%w: %s", ErrUnknownType, stmt.TypeName)
	}
	if td.IsAbstract {
		return Outcome{}, env, fmt.Errorf("%w: %s", ErrAbstractType, stmt.TypeName)
	}

	defs := ex.Reg.GetAllTypeAttrs(td.ID)
	attrs := hvalue.NewAttributes()
	for _, assign := range stmt.Attrs {
		def, declared := defs[assign.Attr]
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

	if err := checkRequiredAttributes(defs, attrs); err != nil {
		return Outcome{}, env, err
	}
	applyDefaults(defs, &attrs)

	for name, def := range defs {
		if !def.Unique {
			continue
		}
		if v, has := attrs.Get(name); has {
			if err := ex.checkUniqueAcrossDescendants(td.ID, name, v, 0, false); err != nil {
				return Outcome{}, env, err
			}
		}
	}

	id := ex.Store.NextNodeID()
	node := hvalue.NewNode(id, td.ID)
	node.Attributes = attrs
	if err := ex.Store.CreateNode(node); err != nil {
		return Outcome{}, env, err
	}

	entity := hvalue.NewNodeEntity(id)
	out := env
	if stmt.Var != "" {
		out = env.Extend(stmt.Var, patternir.NodeBinding(id))
	}
	return Outcome{Kind: OutcomeCreated, CreatedEntity: entity}, out, nil
}
