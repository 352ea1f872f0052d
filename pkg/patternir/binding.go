// Package patternir holds the intermediate representation shared by the
// pattern compiler, the pattern/query executors, the mutation executor's
// expression evaluation, and the registry's constraint/rule definitions.
// It is split out from pattern itself so that registry (which stores a
// compiled pattern on every Constraint and Rule) does not need to import
// the compiler that produces one.
package patternir

import "github.com/orneryd/hyperdb/pkg/hvalue"

// BindingKind distinguishes what a Binding holds.
type BindingKind uint8

const (
	BindingNode BindingKind = iota
	BindingEdge
	BindingValue
)

// Binding is what a pattern match assigns to a variable: a node, an
// edge, a literal/computed Value, or Null (represented as a Value
// binding holding hvalue.Null).
type Binding struct {
	kind  BindingKind
	node  hvalue.NodeId
	edge  hvalue.EdgeId
	value hvalue.Value
}

// NodeBinding wraps a NodeId.
func NodeBinding(id hvalue.NodeId) Binding { return Binding{kind: BindingNode, node: id} }

// EdgeBinding wraps an EdgeId.
func EdgeBinding(id hvalue.EdgeId) Binding { return Binding{kind: BindingEdge, edge: id} }

// ValueBinding wraps a Value (including Null).
func ValueBinding(v hvalue.Value) Binding { return Binding{kind: BindingValue, value: v} }

// NullBinding is the Null value binding.
func NullBinding() Binding { return Binding{kind: BindingValue, value: hvalue.Null} }

// Kind reports which case this Binding holds.
func (b Binding) Kind() BindingKind { return b.kind }

// AsNode returns the wrapped NodeId and true, or zero and false.
func (b Binding) AsNode() (hvalue.NodeId, bool) {
	if b.kind != BindingNode {
		return 0, false
	}
	return b.node, true
}

// AsEdge returns the wrapped EdgeId and true, or zero and false.
func (b Binding) AsEdge() (hvalue.EdgeId, bool) {
	if b.kind != BindingEdge {
		return 0, false
	}
	return b.edge, true
}

// AsValue returns the wrapped Value and true, or Null and false.
func (b Binding) AsValue() (hvalue.Value, bool) {
	if b.kind != BindingValue {
		return hvalue.Null, false
	}
	return b.value, true
}

// AsEntity returns the Node or Edge wrapped by b as an EntityId, or
// false if b holds a plain Value.
func (b Binding) AsEntity() (hvalue.EntityId, bool) {
	switch b.kind {
	case BindingNode:
		return hvalue.NewNodeEntity(b.node), true
	case BindingEdge:
		return hvalue.NewEdgeEntity(b.edge), true
	default:
		return hvalue.EntityId{}, false
	}
}

// Bindings is an immutable-by-convention name -> Binding mapping. Ops
// that extend bindings return a new Bindings via Extend rather than
// mutating the input, so that sibling branches of a join never observe
// each other's extensions.
type Bindings struct {
	values map[string]Binding
}

// NewBindings returns an empty Bindings.
func NewBindings() Bindings {
	return Bindings{values: make(map[string]Binding)}
}

// Get returns the binding for name and true, or the zero Binding and
// false if name is unbound.
func (b Bindings) Get(name string) (Binding, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (b Bindings) Has(name string) bool {
	_, ok := b.values[name]
	return ok
}

// Extend returns a new Bindings with name bound to value, leaving b
// unmodified.
func (b Bindings) Extend(name string, value Binding) Bindings {
	out := make(map[string]Binding, len(b.values)+1)
	for k, v := range b.values {
		out[k] = v
	}
	out[name] = value
	return Bindings{values: out}
}

// Names returns the bound variable names, in no particular order.
func (b Bindings) Names() []string {
	names := make([]string, 0, len(b.values))
	for n := range b.values {
		names = append(names, n)
	}
	return names
}

// Project returns a copy of b containing only the given variable names.
func (b Bindings) Project(names []string) Bindings {
	out := make(map[string]Binding, len(names))
	for _, n := range names {
		if v, ok := b.values[n]; ok {
			out[n] = v
		}
	}
	return Bindings{values: out}
}
