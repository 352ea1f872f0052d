package registry

import "errors"

// Build-time schema errors. These are fatal to compilation: a Registry
// is never returned alongside a non-nil error.
var (
	ErrDuplicateType      = errors.New("registry: duplicate type name")
	ErrDuplicateEdgeType  = errors.New("registry: duplicate edge type name")
	ErrUnknownType        = errors.New("registry: unknown type")
	ErrUnknownEdgeType    = errors.New("registry: unknown edge type")
	ErrUnknownParent      = errors.New("registry: unknown parent type")
	ErrInheritanceCycle   = errors.New("registry: inheritance cycle")
	ErrUnknownAttrType    = errors.New("registry: unknown attribute value kind")
	ErrUnknownConstraint  = errors.New("registry: unknown constraint target type")
	ErrDuplicateAttribute = errors.New("registry: duplicate attribute name")
	ErrDuplicateConstr    = errors.New("registry: duplicate constraint name")
	ErrDuplicateRule      = errors.New("registry: duplicate rule name")
)

// BuildError wraps a sentinel build error with the offending name, so
// callers get a precise message without string-parsing it back apart.
type BuildError struct {
	Err  error
	Name string
	// Cycle, when non-empty, lists the type names participating in an
	// inheritance cycle, in walk order, for ErrInheritanceCycle.
	Cycle []string
}

func (e *BuildError) Error() string {
	if len(e.Cycle) > 0 {
		msg := e.Err.Error() + ": "
		for i, n := range e.Cycle {
			if i > 0 {
				msg += " -> "
			}
			msg += n
		}
		return msg
	}
	return e.Err.Error() + ": " + e.Name
}

func (e *BuildError) Unwrap() error { return e.Err }
