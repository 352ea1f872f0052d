package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// Eval evaluates a scalar expression against bindings + store. Division
// by zero, unbound variables, and missing/extra function parameters are
// errors, per the evaluator's contract. Aggregate functions
// (count/sum/avg/min/max) are not handled here — they require a group
// of bindings, not a single one, and are evaluated by this package's
// Aggregate instead.
func Eval(expr patternir.Expr, b patternir.Bindings, store *graphstore.Store) (hvalue.Value, error) {
	switch e := expr.(type) {
	case patternir.Literal:
		return e.Value, nil

	case patternir.VarRef:
		binding, ok := b.Get(e.Name)
		if !ok {
			return hvalue.Null, fmt.Errorf("%w: %s", ErrUnboundVariable, e.Name)
		}
		if v, ok := binding.AsValue(); ok {
			return v, nil
		}
		if nid, ok := binding.AsNode(); ok {
			return hvalue.NewNodeRef(nid), nil
		}
		eid, _ := binding.AsEdge()
		return hvalue.NewEdgeRef(eid), nil

	case patternir.AttrAccess:
		binding, ok := b.Get(e.Var)
		if !ok {
			return hvalue.Null, fmt.Errorf("%w: %s", ErrUnboundVariable, e.Var)
		}
		if nid, ok := binding.AsNode(); ok {
			n, err := store.GetNode(nid)
			if err != nil {
				return hvalue.Null, err
			}
			v, ok := n.GetAttr(e.Attr)
			if !ok {
				return hvalue.Null, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, e.Var, e.Attr)
			}
			return v, nil
		}
		if eid, ok := binding.AsEdge(); ok {
			ed, err := store.GetEdge(eid)
			if err != nil {
				return hvalue.Null, err
			}
			v, ok := ed.GetAttr(e.Attr)
			if !ok {
				return hvalue.Null, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, e.Var, e.Attr)
			}
			return v, nil
		}
		return hvalue.Null, fmt.Errorf("%w: %s", ErrNotEntity, e.Var)

	case patternir.Unary:
		v, err := Eval(e.Operand, b, store)
		if err != nil {
			return hvalue.Null, err
		}
		switch e.Op {
		case patternir.OpNeg:
			f, ok := v.AsFloat64()
			if !ok {
				return hvalue.Null, fmt.Errorf("%w: negate non-numeric", ErrBadArgument)
			}
			if v.Kind() == hvalue.KindInt {
				return hvalue.NewInt(-int64(f)), nil
			}
			return hvalue.NewFloat(-f), nil
		case patternir.OpNot:
			bv, ok := v.Bool()
			if !ok {
				return hvalue.Null, ErrNotBoolean
			}
			return hvalue.NewBool(!bv), nil
		}
		return hvalue.Null, ErrUnknownFunction

	case patternir.Binary:
		return evalBinary(e, b, store)

	case patternir.FuncCall:
		return evalScalarFunc(e, b, store)

	default:
		return hvalue.Null, fmt.Errorf("pattern: unknown expression node %T", expr)
	}
}

func evalBinary(e patternir.Binary, b patternir.Bindings, store *graphstore.Store) (hvalue.Value, error) {
	// Short-circuit boolean connectives evaluate the right side lazily.
	if e.Op == patternir.OpAnd || e.Op == patternir.OpOr {
		lv, err := Eval(e.Left, b, store)
		if err != nil {
			return hvalue.Null, err
		}
		lb, ok := lv.Bool()
		if !ok {
			return hvalue.Null, ErrNotBoolean
		}
		if e.Op == patternir.OpAnd && !lb {
			return hvalue.NewBool(false), nil
		}
		if e.Op == patternir.OpOr && lb {
			return hvalue.NewBool(true), nil
		}
		rv, err := Eval(e.Right, b, store)
		if err != nil {
			return hvalue.Null, err
		}
		rb, ok := rv.Bool()
		if !ok {
			return hvalue.Null, ErrNotBoolean
		}
		return hvalue.NewBool(rb), nil
	}

	lv, err := Eval(e.Left, b, store)
	if err != nil {
		return hvalue.Null, err
	}
	rv, err := Eval(e.Right, b, store)
	if err != nil {
		return hvalue.Null, err
	}

	switch e.Op {
	case patternir.OpConcat:
		ls, lok := lv.String()
		rs, rok := rv.String()
		if !lok || !rok {
			return hvalue.Null, fmt.Errorf("%w: concat requires strings", ErrBadArgument)
		}
		return hvalue.NewString(ls + rs), nil

	case patternir.OpEq:
		return hvalue.NewBool(hvalue.Equal(lv, rv)), nil
	case patternir.OpNeq:
		return hvalue.NewBool(!hvalue.Equal(lv, rv)), nil

	case patternir.OpLt, patternir.OpLte, patternir.OpGt, patternir.OpGte:
		cmp, ok := hvalue.Compare(lv, rv)
		if !ok {
			return hvalue.Null, ErrNotComparable
		}
		switch e.Op {
		case patternir.OpLt:
			return hvalue.NewBool(cmp < 0), nil
		case patternir.OpLte:
			return hvalue.NewBool(cmp <= 0), nil
		case patternir.OpGt:
			return hvalue.NewBool(cmp > 0), nil
		default:
			return hvalue.NewBool(cmp >= 0), nil
		}

	case patternir.OpAdd, patternir.OpSub, patternir.OpMul, patternir.OpDiv:
		return evalArith(e.Op, lv, rv)

	default:
		return hvalue.Null, ErrUnknownFunction
	}
}

func evalArith(op patternir.BinaryOperator, lv, rv hvalue.Value) (hvalue.Value, error) {
	lf, lok := lv.AsFloat64()
	rf, rok := rv.AsFloat64()
	if !lok || !rok {
		return hvalue.Null, fmt.Errorf("%w: arithmetic requires numeric operands", ErrBadArgument)
	}
	bothInt := lv.Kind() == hvalue.KindInt && rv.Kind() == hvalue.KindInt
	if op == patternir.OpDiv && rf == 0 {
		return hvalue.Null, ErrDivideByZero
	}
	var result float64
	switch op {
	case patternir.OpAdd:
		result = lf + rf
	case patternir.OpSub:
		result = lf - rf
	case patternir.OpMul:
		result = lf * rf
	case patternir.OpDiv:
		result = lf / rf
	}
	if bothInt && op != patternir.OpDiv {
		return hvalue.NewInt(int64(result)), nil
	}
	return hvalue.NewFloat(result), nil
}

func evalScalarFunc(e patternir.FuncCall, b patternir.Bindings, store *graphstore.Store) (hvalue.Value, error) {
	switch e.Name {
	case "now":
		if len(e.Args) != 0 {
			return hvalue.Null, fmt.Errorf("%w: now() takes no arguments", ErrBadArgument)
		}
		return hvalue.NewTimestampFromTime(time.Now()), nil

	case "length":
		if len(e.Args) != 1 {
			return hvalue.Null, fmt.Errorf("%w: length(string) takes 1 argument", ErrBadArgument)
		}
		v, err := Eval(e.Args[0], b, store)
		if err != nil {
			return hvalue.Null, err
		}
		s, ok := v.String()
		if !ok {
			return hvalue.Null, fmt.Errorf("%w: length expects a string", ErrBadArgument)
		}
		return hvalue.NewInt(int64(len(s))), nil

	case "contains":
		if len(e.Args) != 2 {
			return hvalue.Null, fmt.Errorf("%w: contains(string, substring) takes 2 arguments", ErrBadArgument)
		}
		sv, err := Eval(e.Args[0], b, store)
		if err != nil {
			return hvalue.Null, err
		}
		subv, err := Eval(e.Args[1], b, store)
		if err != nil {
			return hvalue.Null, err
		}
		s, ok1 := sv.String()
		sub, ok2 := subv.String()
		if !ok1 || !ok2 {
			return hvalue.Null, fmt.Errorf("%w: contains expects strings", ErrBadArgument)
		}
		return hvalue.NewBool(strings.Contains(s, sub)), nil

	case "count", "sum", "avg", "min", "max":
		return hvalue.Null, fmt.Errorf("%w: %s requires a group of bindings, use pattern.Aggregate", ErrBadArgument, e.Name)

	default:
		return hvalue.Null, fmt.Errorf("%w: %s", ErrUnknownFunction, e.Name)
	}
}
