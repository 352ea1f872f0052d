package registry

import (
	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// AttributeDef declares one attribute on a Type or EdgeType.
type AttributeDef struct {
	Name     string
	Kind     hvalue.Kind
	Required bool
	Default  *hvalue.Value
	Min      *hvalue.Value
	Max      *hvalue.Value
	Unique   bool
	Readonly bool
}

// TypeDef describes one node type. Attributes holds only this type's
// own declarations; Registry.GetAllTypeAttrs walks the parent chain to merge
// inherited attributes, own-shadows-inherited by name.
type TypeDef struct {
	ID         hvalue.TypeId
	Name       string
	Parent     hvalue.TypeId
	HasParent  bool
	IsAbstract bool
	Attributes map[string]AttributeDef
}

// OnKillAction selects what happens to an edge incident on a node being
// KILLed, resolved per target position.
type OnKillAction uint8

const (
	OnKillDelete OnKillAction = iota
	OnKillCascade
	OnKillRestrict
	OnKillSetNull
)

// CardinalityBound bounds how many live edges of a type may have a
// given entity at a given position. Hi of -1 means unbounded.
type CardinalityBound struct {
	Lo int
	Hi int
}

// ParamDef is one declared parameter (target position) of an edge type.
type ParamDef struct {
	Name     string
	TypeName string
	TypeID   hvalue.TypeId
}

// EdgeTypeDef describes one edge type.
type EdgeTypeDef struct {
	ID          hvalue.EdgeTypeId
	Name        string
	Params      []ParamDef
	Attributes  map[string]AttributeDef
	Cardinality map[int]CardinalityBound
	Symmetric   bool
	Acyclic     bool
	OnKill      map[int]OnKillAction
}

// AllPositions is the OnKill map key meaning "this action applies at
// every target position" (an ontology that declares a single action).
const AllPositions = -1

// OnKillAt resolves the on-kill action for a target position: an exact
// per-position entry wins, then an AllPositions entry, then the default
// of Delete.
func (e *EdgeTypeDef) OnKillAt(position int) OnKillAction {
	if a, ok := e.OnKill[position]; ok {
		return a
	}
	if a, ok := e.OnKill[AllPositions]; ok {
		return a
	}
	return OnKillDelete
}

// CardinalityAt returns the declared bound for a position and whether
// one exists, consulting an AllPositions entry as the fallback.
func (e *EdgeTypeDef) CardinalityAt(position int) (CardinalityBound, bool) {
	if b, ok := e.Cardinality[position]; ok {
		return b, true
	}
	b, ok := e.Cardinality[AllPositions]
	return b, ok
}

// Severity classifies a Constraint or reported Violation.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Timing selects when a Constraint is checked.
type Timing uint8

const (
	TimingImmediate Timing = iota
	TimingDeferred
)

// ConstraintTargetKind selects whether a Constraint's target names a
// node type or an edge type.
type ConstraintTargetKind uint8

const (
	ConstraintTargetNode ConstraintTargetKind = iota
	ConstraintTargetEdge
)

// ConstraintDef is a compiled constraint: any non-empty match of
// Pattern signals a violation, rendered via MessageTemplate.
type ConstraintDef struct {
	Name            string
	Severity        Severity
	Timing          Timing
	TargetKind      ConstraintTargetKind
	TargetTypeID    hvalue.TypeId
	TargetEdgeID    hvalue.EdgeTypeId
	Pattern         *patternir.CompiledPattern
	MessageTemplate string
}

// RuleDef is a pattern-triggered production: when Trigger matches (and,
// if set, Where evaluates truthy over the match), Productions run in
// order as further mutations.
type RuleDef struct {
	Name        string
	Trigger     *patternir.CompiledPattern
	Where       patternir.Expr
	Productions []astir.Statement
	Priority    int
	MaxFires    int // 0 means unbounded
}
