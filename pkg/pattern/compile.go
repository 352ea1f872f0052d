package pattern

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

type bindState struct {
	bound map[string]bool
	order []string
}

func newBindState() *bindState {
	return &bindState{bound: make(map[string]bool)}
}

func (s *bindState) clone() *bindState {
	cp := newBindState()
	for k := range s.bound {
		cp.bound[k] = true
	}
	cp.order = append(cp.order, s.order...)
	return cp
}

func (s *bindState) mark(name string) {
	if name == "" || name == patternir.WildcardVar {
		return
	}
	if !s.bound[name] {
		s.bound[name] = true
		s.order = append(s.order, name)
	}
}

func (s *bindState) isBound(name string) bool {
	return name == patternir.WildcardVar || s.bound[name]
}

// Compile translates a sequence of pattern elements into a
// CompiledPattern, resolving type/edge-type names against reg and
// validating that every variable an edge pattern or filter references
// is bound by the time it is used.
func Compile(elements []Element, reg *registry.Registry) (*patternir.CompiledPattern, error) {
	state := newBindState()
	ops, err := compileInto(elements, reg, state)
	if err != nil {
		return nil, err
	}
	return &patternir.CompiledPattern{Ops: ops, OutputVars: append([]string(nil), state.order...)}, nil
}

func compileInto(elements []Element, reg *registry.Registry, state *bindState) ([]patternir.Op, error) {
	var ops []patternir.Op
	for _, el := range elements {
		switch e := el.(type) {
		case NodeElement:
			td, ok := reg.GetTypeByName(e.TypeName)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownType, e.TypeName)
			}
			ops = append(ops, patternir.ScanNodesOp{Var: e.Var, TypeID: td.ID})
			state.mark(e.Var)

		case EdgeElement:
			etd, ok := reg.GetEdgeTypeByName(e.EdgeTypeName)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownEdgeType, e.EdgeTypeName)
			}
			if !e.Transitive && len(e.Targets) != len(etd.Params) {
				return nil, fmt.Errorf("%w: %s expects %d targets, got %d", ErrWrongArity, e.EdgeTypeName, len(etd.Params), len(e.Targets))
			}
			if e.Transitive {
				if len(e.Targets) != 2 {
					return nil, fmt.Errorf("%w: transitive %s expects 2 targets, got %d", ErrWrongArity, e.EdgeTypeName, len(e.Targets))
				}
				from, to := e.Targets[0], e.Targets[1]
				if !state.isBound(from) {
					return nil, fmt.Errorf("%w: %s", ErrUnboundVariable, from)
				}
				ops = append(ops, patternir.TransitiveFollowOp{EdgeType: etd.ID, FromVar: from, ToVar: to, Kind: e.Kind})
				state.mark(to)
				continue
			}

			anchored := e.EdgeVar != "" && state.isBound(e.EdgeVar)
			allBound := true
			for _, v := range e.Targets {
				if state.isBound(v) {
					anchored = true
				} else {
					allBound = false
				}
			}
			if !anchored {
				return nil, fmt.Errorf("%w: edge pattern %s has no already-bound target to join from", ErrUnboundVariable, e.EdgeTypeName)
			}
			if allBound {
				ops = append(ops, patternir.CheckEdgeOp{EdgeType: etd.ID, PositionVars: append([]string(nil), e.Targets...)})
			} else {
				ops = append(ops, patternir.FollowEdgeOp{EdgeType: etd.ID, PositionVars: append([]string(nil), e.Targets...), EdgeVar: e.EdgeVar})
				for _, v := range e.Targets {
					state.mark(v)
				}
				state.mark(e.EdgeVar)
			}

		case NotExistsElement:
			subState := state.clone()
			subOps, err := compileInto(e.Subpattern, reg, subState)
			if err != nil {
				return nil, err
			}
			ops = append(ops, patternir.NotExistsOp{Subpattern: &patternir.CompiledPattern{
				Ops:        subOps,
				OutputVars: append([]string(nil), subState.order...),
			}})

		case FilterElement:
			for _, v := range exprVars(e.Condition) {
				if !state.isBound(v) {
					return nil, fmt.Errorf("%w: %s", ErrUnboundVariable, v)
				}
			}
			ops = append(ops, patternir.FilterOp{Condition: e.Condition})

		default:
			return nil, fmt.Errorf("pattern: unknown element type %T", el)
		}
	}
	return ops, nil
}

// exprVars returns every variable name referenced by expr (via VarRef
// or AttrAccess), used to validate bound-ness at compile time.
func exprVars(expr patternir.Expr) []string {
	var out []string
	var walk func(e patternir.Expr)
	walk = func(e patternir.Expr) {
		switch v := e.(type) {
		case patternir.VarRef:
			out = append(out, v.Name)
		case patternir.AttrAccess:
			out = append(out, v.Var)
		case patternir.Binary:
			walk(v.Left)
			walk(v.Right)
		case patternir.Unary:
			walk(v.Operand)
		case patternir.FuncCall:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(expr)
	return out
}
