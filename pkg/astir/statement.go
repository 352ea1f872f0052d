// Package astir holds the statement-level intermediate representation
// consumed by the mutation executor: SPAWN/LINK/KILL/UNLINK/SET
// fragments. It exists as its own package (rather than living in
// mutation) so the registry can store a rule's ordered productions —
// themselves statements — without importing the executor that runs
// them.
package astir

import (
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// TargetRef names how a mutation statement refers to an entity: either
// a variable already bound in the enclosing match/production, or a
// literal identifier.
type TargetRef struct {
	Var    string
	Entity hvalue.EntityId
	IsVar  bool
}

// VarTarget builds a TargetRef from a bound variable name.
func VarTarget(name string) TargetRef { return TargetRef{Var: name, IsVar: true} }

// EntityTarget builds a TargetRef from a literal entity id.
func EntityTarget(id hvalue.EntityId) TargetRef { return TargetRef{Entity: id} }

// Assignment is one `attr: expr` pair in a SPAWN/LINK body or a SET
// clause's left-hand side paired with its right-hand expression.
type Assignment struct {
	Attr string
	Expr patternir.Expr
}

// CascadeMode selects KILL's cascade behavior. CascadeDefault preserves
// mew's `cascade.unwrap_or(true)`: cascading unless NO CASCADE is given.
type CascadeMode uint8

const (
	CascadeDefault CascadeMode = iota
	CascadeOn
	CascadeOff
)

// Spawn creates a node of TypeName bound to Var.
type Spawn struct {
	Var      string
	TypeName string
	Attrs    []Assignment
}

// Link creates an edge of TypeName over ordered Targets, optionally
// bound to Alias.
type Link struct {
	Alias    string
	TypeName string
	Targets  []TargetRef
	Attrs    []Assignment
}

// Kill deletes the node referenced by Target.
type Kill struct {
	Target  TargetRef
	Cascade CascadeMode
}

// Unlink deletes the edge referenced by Target.
type Unlink struct {
	Target TargetRef
}

// SetTarget applies a batch of attribute assignments to Target (a node
// or edge), each naming its own attribute.
type SetTarget struct {
	Target TargetRef
	Attrs  []Assignment
}

// Set applies one or more SetTarget batches in a single statement.
type Set struct {
	Targets []SetTarget
}

// Statement is the sum of mutation statement kinds a production (or a
// parsed DSL statement) can be. Exactly one field is non-nil.
type Statement struct {
	Spawn  *Spawn
	Link   *Link
	Kill   *Kill
	Unlink *Unlink
	Set    *Set
}
