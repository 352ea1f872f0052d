package mutation

import "github.com/orneryd/hyperdb/pkg/hvalue"

// OutcomeKind classifies what a mutation statement did.
type OutcomeKind uint8

const (
	OutcomeEmpty OutcomeKind = iota
	OutcomeCreated
	OutcomeLinked
	OutcomeDeleted
	OutcomeUpdated
)

// Outcome is the result of one SPAWN/LINK/KILL/UNLINK/SET statement. It
// distinguishes, for KILL, which edges were removed directly versus by
// cascade, matching mew's CreatedEntity/DeletedEntities/UpdatedEntities
// result shapes rather than a bare count.
type Outcome struct {
	Kind OutcomeKind

	CreatedEntity hvalue.EntityId

	// LinkedCount is 0 when LINK on a symmetric edge type found an
	// existing equivalent edge (idempotent no-op) and 1 when a new edge
	// was created.
	LinkedCount int
	LinkedEdge  hvalue.EdgeId

	DeletedNodes        []hvalue.NodeId
	DeletedEdgesDirect  []hvalue.EdgeId
	DeletedEdgesCascade []hvalue.EdgeId

	UpdatedEntities []hvalue.EntityId

	// Writes holds SET's applied assignments with their prior values, in
	// application order, which is what the transaction manager journals.
	Writes []AttrWrite
}

// AttrWrite is one applied attribute assignment: the entity, the
// attribute, the value before (if any), and the value after.
type AttrWrite struct {
	Entity hvalue.EntityId
	Attr   string
	Old    hvalue.Value
	HadOld bool
	Value  hvalue.Value
}
