package patternir

import "github.com/orneryd/hyperdb/pkg/hvalue"

// WildcardVar is the variable name used for a wildcard target (`_`),
// which matches any entity and introduces no binding.
const WildcardVar = "_"

// TransitiveKind selects whether a TransitiveFollowOp is `+` (exclude
// the start entity) or `*` (include it).
type TransitiveKind uint8

const (
	TransitivePlus TransitiveKind = iota
	TransitiveStar
)

// Op is one step of a compiled pattern, executed as a nested-loop join
// stage over a stream of Bindings.
type Op interface {
	isOp()
}

// ScanNodesOp iterates every live node of TypeID, binding each to Var.
// Inclusive (subtype-inclusive scanning) is a documented extension
// point: the DSL compiler in this engine never sets it true, since
// `MATCH v: T` is exact-type match only.
type ScanNodesOp struct {
	Var       string
	TypeID    hvalue.TypeId
	Inclusive bool
}

func (ScanNodesOp) isOp() {}

// ScanNodesByAttrOp iterates nodes of TypeID whose Attr equals Value,
// through the store's attribute index. The planner rewrites a
// ScanNodesOp followed by an equality filter on a literal into this op
// when an index is registered for (TypeID, Attr).
type ScanNodesByAttrOp struct {
	Var    string
	TypeID hvalue.TypeId
	Attr   string
	Value  hvalue.Value
}

func (ScanNodesByAttrOp) isOp() {}

// ScanNodesByRangeOp iterates nodes of TypeID whose Attr lies in
// [Lo, Hi] through the store's range index. A Null bound is open.
type ScanNodesByRangeOp struct {
	Var    string
	TypeID hvalue.TypeId
	Attr   string
	Lo     hvalue.Value
	Hi     hvalue.Value
}

func (ScanNodesByRangeOp) isOp() {}

// ScanEdgesOp iterates every live edge of EdgeType, binding each to
// Var. This is how a pattern scans edges as first-class entities, which
// a higher-order edge pattern then targets the same way it would a
// node.
type ScanEdgesOp struct {
	Var      string
	EdgeType hvalue.EdgeTypeId
}

func (ScanEdgesOp) isOp() {}

// FollowEdgeOp joins along an edge type where at least one target
// position is already bound. PositionVars holds one entry per declared
// parameter position; WildcardVar ("_") marks a position that matches
// anything without binding. EdgeVar, if non-empty, binds the edge
// itself.
type FollowEdgeOp struct {
	EdgeType     hvalue.EdgeTypeId
	PositionVars []string
	EdgeVar      string
}

func (FollowEdgeOp) isOp() {}

// CheckEdgeOp is an existence check: every target position is already
// bound, so the op filters the input stream without adding bindings.
type CheckEdgeOp struct {
	EdgeType     hvalue.EdgeTypeId
	PositionVars []string
}

func (CheckEdgeOp) isOp() {}

// FilterOp keeps only bindings for which Condition evaluates truthy.
type FilterOp struct {
	Condition Expr
}

func (FilterOp) isOp() {}

// NotExistsOp is a semi-anti-join: bindings for which Subpattern
// produces at least one match are dropped.
type NotExistsOp struct {
	Subpattern *CompiledPattern
}

func (NotExistsOp) isOp() {}

// TransitiveFollowOp computes the transitive (`+`) or reflexive-
// transitive (`*`) closure of EdgeType starting at FromVar, binding
// every reachable node to ToVar; edge-valued targets are not followed.
// Traversal is cycle-safe BFS.
type TransitiveFollowOp struct {
	EdgeType hvalue.EdgeTypeId
	FromVar  string
	ToVar    string
	Kind     TransitiveKind
}

func (TransitiveFollowOp) isOp() {}

// CompiledPattern is an ordered list of ops plus the variables a match
// exposes to its caller (RETURN clause, constraint template, rule
// production bindings).
type CompiledPattern struct {
	Ops        []Op
	OutputVars []string
}

// Binds reports whether name appears in OutputVars.
func (p *CompiledPattern) Binds(name string) bool {
	for _, v := range p.OutputVars {
		if v == name {
			return true
		}
	}
	return false
}
