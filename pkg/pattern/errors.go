// Package pattern compiles pattern elements into patternir.CompiledPattern
// and executes compiled patterns as nested-loop joins against a
// graphstore.Store, plus evaluates the expression AST against Bindings.
package pattern

import "errors"

var (
	ErrUnboundVariable  = errors.New("pattern: variable referenced before it is bound")
	ErrUnknownType      = errors.New("pattern: unknown type in scan")
	ErrUnknownEdgeType  = errors.New("pattern: unknown edge type")
	ErrWrongArity       = errors.New("pattern: edge pattern target count does not match edge type arity")
	ErrNotEntity        = errors.New("pattern: attribute access on a non-entity binding")
	ErrUnknownAttribute = errors.New("pattern: attribute not present")
	ErrDivideByZero     = errors.New("pattern: division by zero")
	ErrUnknownFunction  = errors.New("pattern: unknown function")
	ErrBadArgument      = errors.New("pattern: wrong argument count or type for function")
	ErrNotBoolean       = errors.New("pattern: expression did not evaluate to a boolean")
	ErrNotComparable    = errors.New("pattern: values are not comparable")
)
