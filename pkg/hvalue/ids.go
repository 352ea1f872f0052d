// Package hvalue provides the core identifier and value types shared by
// every layer of the hypergraph engine: typed identifiers, the tagged
// Value sum, and the Attributes map nodes and edges carry.
//
// All identifiers are integers tagged by role so that a NodeId can
// never be silently passed where an EdgeId is expected: NodeId and
// EdgeId are 64-bit, TypeId and EdgeTypeId are 32-bit. They are opaque
// to callers outside this package. NodeId and EdgeId are assigned by
// monotonic counters in graphstore.
package hvalue

import "fmt"

// NodeId uniquely identifies a node within a graph store.
type NodeId uint64

// String renders a NodeId the way the original ontology tooling does,
// e.g. "n42".
func (id NodeId) String() string {
	return fmt.Sprintf("n%d", uint64(id))
}

// EdgeId uniquely identifies an edge (hyperedge) within a graph store.
type EdgeId uint64

// String renders an EdgeId as e.g. "e7".
func (id EdgeId) String() string {
	return fmt.Sprintf("e%d", uint64(id))
}

// TypeId identifies a compiled node type in the registry.
type TypeId uint32

// String renders a TypeId as e.g. "t3".
func (id TypeId) String() string {
	return fmt.Sprintf("t%d", uint32(id))
}

// EdgeTypeId identifies a compiled edge type in the registry.
type EdgeTypeId uint32

// String renders an EdgeTypeId as e.g. "et5".
func (id EdgeTypeId) String() string {
	return fmt.Sprintf("et%d", uint32(id))
}

// EntityKind distinguishes the two cases an EntityId can hold.
type EntityKind uint8

const (
	// EntityKindNode marks an EntityId that wraps a NodeId.
	EntityKindNode EntityKind = iota
	// EntityKindEdge marks an EntityId that wraps an EdgeId.
	EntityKindEdge
)

// EntityId is a tagged sum of NodeId and EdgeId, used anywhere either may
// appear — most notably as an edge target, which is what makes
// higher-order edges (edges that target other edges) possible.
type EntityId struct {
	kind EntityKind
	node NodeId
	edge EdgeId
}

// NewNodeEntity wraps a NodeId as an EntityId.
func NewNodeEntity(id NodeId) EntityId {
	return EntityId{kind: EntityKindNode, node: id}
}

// NewEdgeEntity wraps an EdgeId as an EntityId.
func NewEdgeEntity(id EdgeId) EntityId {
	return EntityId{kind: EntityKindEdge, edge: id}
}

// IsNode reports whether this EntityId wraps a NodeId.
func (e EntityId) IsNode() bool { return e.kind == EntityKindNode }

// IsEdge reports whether this EntityId wraps an EdgeId.
func (e EntityId) IsEdge() bool { return e.kind == EntityKindEdge }

// AsNode returns the wrapped NodeId and true, or zero and false if this
// EntityId wraps an edge.
func (e EntityId) AsNode() (NodeId, bool) {
	if e.kind != EntityKindNode {
		return 0, false
	}
	return e.node, true
}

// AsEdge returns the wrapped EdgeId and true, or zero and false if this
// EntityId wraps a node.
func (e EntityId) AsEdge() (EdgeId, bool) {
	if e.kind != EntityKindEdge {
		return 0, false
	}
	return e.edge, true
}

// String renders the wrapped identifier.
func (e EntityId) String() string {
	if e.kind == EntityKindNode {
		return e.node.String()
	}
	return e.edge.String()
}

// Equal reports whether two EntityId values refer to the same entity.
func (e EntityId) Equal(other EntityId) bool {
	if e.kind != other.kind {
		return false
	}
	if e.kind == EntityKindNode {
		return e.node == other.node
	}
	return e.edge == other.edge
}
