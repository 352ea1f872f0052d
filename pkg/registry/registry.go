package registry

import "github.com/orneryd/hyperdb/pkg/hvalue"

// Registry is the compiled, immutable schema: node types, edge types,
// constraints, and rules, addressable by id or by name. A Registry is
// constructed once via RegistryBuilder.Build and never mutated; it is
// safe to share across goroutines without synchronization.
type Registry struct {
	typeIDs     map[string]hvalue.TypeId
	edgeTypeIDs map[string]hvalue.EdgeTypeId

	typesByID     map[hvalue.TypeId]*TypeDef
	edgeTypesByID map[hvalue.EdgeTypeId]*EdgeTypeDef

	constraintsByName     map[string]*ConstraintDef
	constraintsByType     map[hvalue.TypeId][]*ConstraintDef
	constraintsByEdgeType map[hvalue.EdgeTypeId][]*ConstraintDef

	rules []*RuleDef
}

// GetType returns the TypeDef for id, or nil if unknown.
func (r *Registry) GetType(id hvalue.TypeId) *TypeDef {
	return r.typesByID[id]
}

// GetTypeID returns the TypeId for name and true, or false if unknown.
func (r *Registry) GetTypeID(name string) (hvalue.TypeId, bool) {
	id, ok := r.typeIDs[name]
	return id, ok
}

// GetTypeByName is a convenience wrapper combining GetTypeID + GetType.
func (r *Registry) GetTypeByName(name string) (*TypeDef, bool) {
	id, ok := r.typeIDs[name]
	if !ok {
		return nil, false
	}
	return r.typesByID[id], true
}

// GetEdgeType returns the EdgeTypeDef for id, or nil if unknown.
func (r *Registry) GetEdgeType(id hvalue.EdgeTypeId) *EdgeTypeDef {
	return r.edgeTypesByID[id]
}

// GetEdgeTypeID returns the EdgeTypeId for name and true, or false if
// unknown.
func (r *Registry) GetEdgeTypeID(name string) (hvalue.EdgeTypeId, bool) {
	id, ok := r.edgeTypeIDs[name]
	return id, ok
}

// GetEdgeTypeByName is a convenience wrapper combining GetEdgeTypeID +
// GetEdgeType.
func (r *Registry) GetEdgeTypeByName(name string) (*EdgeTypeDef, bool) {
	id, ok := r.edgeTypeIDs[name]
	if !ok {
		return nil, false
	}
	return r.edgeTypesByID[id], true
}

// IsSubtype reports whether child is exactly equal to, or a transitive
// descendant of, ancestor.
func (r *Registry) IsSubtype(child, ancestor hvalue.TypeId) bool {
	cur := child
	for {
		if cur == ancestor {
			return true
		}
		td := r.typesByID[cur]
		if td == nil || !td.HasParent {
			return false
		}
		cur = td.Parent
	}
}

// GetTypeAttr walks the inheritance chain starting at id, returning the
// nearest (most-derived) declaration of name and true, or the zero
// AttributeDef and false if no type in the chain declares it.
func (r *Registry) GetTypeAttr(id hvalue.TypeId, name string) (AttributeDef, bool) {
	cur := id
	for {
		td := r.typesByID[cur]
		if td == nil {
			return AttributeDef{}, false
		}
		if a, ok := td.Attributes[name]; ok {
			return a, true
		}
		if !td.HasParent {
			return AttributeDef{}, false
		}
		cur = td.Parent
	}
}

// GetAllTypeAttrs returns every attribute visible on id: inherited attrs
// plus this type's own, with own declarations shadowing inherited ones
// by name.
func (r *Registry) GetAllTypeAttrs(id hvalue.TypeId) map[string]AttributeDef {
	chain := r.ancestorChain(id)
	out := make(map[string]AttributeDef)
	// Walk root-to-leaf so the most-derived type's declarations win.
	for i := len(chain) - 1; i >= 0; i-- {
		td := r.typesByID[chain[i]]
		if td == nil {
			continue
		}
		for name, a := range td.Attributes {
			out[name] = a
		}
	}
	return out
}

func (r *Registry) ancestorChain(id hvalue.TypeId) []hvalue.TypeId {
	var chain []hvalue.TypeId
	cur := id
	for {
		td := r.typesByID[cur]
		if td == nil {
			break
		}
		chain = append(chain, cur)
		if !td.HasParent {
			break
		}
		cur = td.Parent
	}
	return chain
}

// ConstraintsFor returns the constraints declared against a node type,
// including none for an id with no constraints.
func (r *Registry) ConstraintsFor(id hvalue.TypeId) []*ConstraintDef {
	return r.constraintsByType[id]
}

// ConstraintsForEdgeType returns the constraints declared against an
// edge type.
func (r *Registry) ConstraintsForEdgeType(id hvalue.EdgeTypeId) []*ConstraintDef {
	return r.constraintsByEdgeType[id]
}

// GetConstraint returns a constraint by name, or nil if unknown.
func (r *Registry) GetConstraint(name string) *ConstraintDef {
	return r.constraintsByName[name]
}

// DeferredConstraints returns every deferred constraint in the
// registry, which the transaction manager checks as a batch at commit.
func (r *Registry) DeferredConstraints() []*ConstraintDef {
	var out []*ConstraintDef
	for _, c := range r.constraintsByName {
		if c.Timing == TimingDeferred {
			out = append(out, c)
		}
	}
	return out
}

// ImmediateConstraints returns every immediate pattern constraint in
// the registry. A deletion cannot attribute its effect to one target
// type, so the checker falls back to this full set for KILL/UNLINK;
// everything else goes through ConstraintsFor/ConstraintsForEdgeType.
func (r *Registry) ImmediateConstraints() []*ConstraintDef {
	var out []*ConstraintDef
	for _, c := range r.constraintsByName {
		if c.Timing == TimingImmediate {
			out = append(out, c)
		}
	}
	return out
}

// AllTypeIDs returns every declared type id, in no particular order.
func (r *Registry) AllTypeIDs() []hvalue.TypeId {
	out := make([]hvalue.TypeId, 0, len(r.typesByID))
	for id := range r.typesByID {
		out = append(out, id)
	}
	return out
}

// Descendants returns every type id that is id itself or a transitive
// subtype of it, used to scope uniqueness checks across an inheritance
// chain per the data model's "scoped to this type + its descendants."
func (r *Registry) Descendants(id hvalue.TypeId) []hvalue.TypeId {
	var out []hvalue.TypeId
	for _, other := range r.AllTypeIDs() {
		if r.IsSubtype(other, id) {
			out = append(out, other)
		}
	}
	return out
}

// Rules returns every rule in the registry, in no particular order; the
// rule engine is responsible for priority/name ordering at match time.
func (r *Registry) Rules() []*RuleDef {
	return r.rules
}
