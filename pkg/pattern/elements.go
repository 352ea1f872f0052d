package pattern

import "github.com/orneryd/hyperdb/pkg/patternir"

// Element is one piece of an uncompiled pattern, the shape a DSL
// front-end (outside this engine's core scope) hands to Compile. It
// mirrors the grammar summarized in the DSL surface: node patterns,
// edge patterns (optionally transitive), NOT EXISTS, and filters.
type Element interface {
	isElement()
}

// NodeElement is `v: TypeName` or `_: TypeName`.
type NodeElement struct {
	Var      string
	TypeName string
}

func (NodeElement) isElement() {}

// EdgeElement is `edge_type(v1, v2, ...)`, optionally transitive via
// `edge_type+(...)` / `edge_type*(...)`, and optionally bound to an
// alias via `AS edge_var`.
type EdgeElement struct {
	EdgeTypeName string
	Targets      []string // variable names, or patternir.WildcardVar for `_`
	EdgeVar      string
	Transitive   bool
	Kind         patternir.TransitiveKind
}

func (EdgeElement) isElement() {}

// NotExistsElement is `NOT EXISTS { subpattern }`.
type NotExistsElement struct {
	Subpattern []Element
}

func (NotExistsElement) isElement() {}

// FilterElement is a standalone `WHERE expr`-style boolean filter
// positioned within the pattern body.
type FilterElement struct {
	Condition patternir.Expr
}

func (FilterElement) isElement() {}
