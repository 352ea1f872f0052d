package hvalue

// Node is a single vertex in the hypergraph: an identity, a declared
// type, and a bag of attributes. Version increments on every attribute
// mutation so callers can detect a stale read without a full
// equality check.
type Node struct {
	ID         NodeId
	TypeID     TypeId
	Version    uint64
	Attributes Attributes
}

// NewNode constructs a Node with an empty attribute set at version 0.
func NewNode(id NodeId, typeID TypeId) Node {
	return Node{ID: id, TypeID: typeID, Attributes: NewAttributes()}
}

// GetAttr reads an attribute by name.
func (n Node) GetAttr(name string) (Value, bool) {
	return n.Attributes.Get(name)
}

// SetAttr assigns an attribute and bumps Version. Validation of the
// assignment (required/type/range/unique) is the mutation executor's
// responsibility, not the entity's.
func (n *Node) SetAttr(name string, value Value) {
	n.Attributes.Set(name, value)
	n.Version++
}

// RemoveAttr deletes an attribute entirely and bumps Version.
func (n *Node) RemoveAttr(name string) {
	n.Attributes.Delete(name)
	n.Version++
}

// Clone returns a deep copy of n, safe to hand to a reader while n
// itself continues to be mutated under the writer's lock.
func (n Node) Clone() Node {
	return Node{ID: n.ID, TypeID: n.TypeID, Version: n.Version, Attributes: n.Attributes.Clone()}
}

// Edge is a hyperedge: an identity, a declared edge type, an ordered
// list of targets (each either a node or another edge), and a bag of
// attributes. An edge whose Targets contains at least one EdgeId is a
// higher-order edge.
type Edge struct {
	ID         EdgeId
	TypeID     EdgeTypeId
	Targets    []EntityId
	Version    uint64
	Attributes Attributes
}

// NewEdge constructs an Edge with the given ordered targets and an empty
// attribute set at version 0.
func NewEdge(id EdgeId, typeID EdgeTypeId, targets []EntityId) Edge {
	cp := make([]EntityId, len(targets))
	copy(cp, targets)
	return Edge{ID: id, TypeID: typeID, Targets: cp, Attributes: NewAttributes()}
}

// Arity returns the number of targets the edge has.
func (e Edge) Arity() int { return len(e.Targets) }

// IsHigherOrder reports whether any target of e is itself an edge.
func (e Edge) IsHigherOrder() bool {
	for _, t := range e.Targets {
		if t.IsEdge() {
			return true
		}
	}
	return false
}

// Target returns the entity at the given ordinal position and true, or
// the zero EntityId and false if position is out of range.
func (e Edge) Target(position int) (EntityId, bool) {
	if position < 0 || position >= len(e.Targets) {
		return EntityId{}, false
	}
	return e.Targets[position], true
}

// NodeTargets returns the NodeId of every target that is a node, in
// order, skipping edge-valued targets.
func (e Edge) NodeTargets() []NodeId {
	out := make([]NodeId, 0, len(e.Targets))
	for _, t := range e.Targets {
		if id, ok := t.AsNode(); ok {
			out = append(out, id)
		}
	}
	return out
}

// EdgeTargets returns the EdgeId of every target that is itself an edge,
// in order, skipping node-valued targets.
func (e Edge) EdgeTargets() []EdgeId {
	out := make([]EdgeId, 0, len(e.Targets))
	for _, t := range e.Targets {
		if id, ok := t.AsEdge(); ok {
			out = append(out, id)
		}
	}
	return out
}

// Involves reports whether entity appears anywhere in e's targets.
func (e Edge) Involves(entity EntityId) bool {
	for _, t := range e.Targets {
		if t.Equal(entity) {
			return true
		}
	}
	return false
}

// InvolvesNode reports whether id appears as a node target.
func (e Edge) InvolvesNode(id NodeId) bool {
	return e.Involves(NewNodeEntity(id))
}

// InvolvesEdge reports whether id appears as an edge target.
func (e Edge) InvolvesEdge(id EdgeId) bool {
	return e.Involves(NewEdgeEntity(id))
}

// GetAttr reads an attribute by name.
func (e Edge) GetAttr(name string) (Value, bool) {
	return e.Attributes.Get(name)
}

// SetAttr assigns an attribute and bumps Version.
func (e *Edge) SetAttr(name string, value Value) {
	e.Attributes.Set(name, value)
	e.Version++
}

// RemoveAttr deletes an attribute entirely and bumps Version.
func (e *Edge) RemoveAttr(name string) {
	e.Attributes.Delete(name)
	e.Version++
}

// Clone returns a deep copy of e, including its target list.
func (e Edge) Clone() Edge {
	targets := make([]EntityId, len(e.Targets))
	copy(targets, e.Targets)
	return Edge{ID: e.ID, TypeID: e.TypeID, Targets: targets, Version: e.Version, Attributes: e.Attributes.Clone()}
}
