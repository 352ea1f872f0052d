package registry

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

type pendingType struct {
	name       string
	parent     string
	hasParent  bool
	isAbstract bool
	attrs      map[string]AttributeDef
}

type pendingEdgeType struct {
	name        string
	params      []ParamDef
	attrs       map[string]AttributeDef
	cardinality map[int]CardinalityBound
	symmetric   bool
	acyclic     bool
	onKill      map[int]OnKillAction
}

type pendingConstraint struct {
	name            string
	severity        Severity
	timing          Timing
	targetKind      ConstraintTargetKind
	targetTypeName  string
	pattern         *patternir.CompiledPattern
	messageTemplate string
}

type pendingRule struct {
	name        string
	trigger     *patternir.CompiledPattern
	where       patternir.Expr
	productions []astir.Statement
	priority    int
	maxFires    int
}

// RegistryBuilder accumulates schema declarations and compiles them
// into an immutable Registry via Build. It is not safe for concurrent
// use; build the registry once at startup from a single goroutine.
type RegistryBuilder struct {
	typeOrder   []string
	types       map[string]*pendingType
	edgeOrder   []string
	edgeTypes   map[string]*pendingEdgeType
	constraints []pendingConstraint
	rules       []pendingRule
}

// NewBuilder returns an empty RegistryBuilder.
func NewBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		types:     make(map[string]*pendingType),
		edgeTypes: make(map[string]*pendingEdgeType),
	}
}

// AddType declares a node type. parent may be "" for no parent.
func (b *RegistryBuilder) AddType(name, parent string, isAbstract bool, attrs []AttributeDef) error {
	if _, exists := b.types[name]; exists {
		return &BuildError{Err: ErrDuplicateType, Name: name}
	}
	attrMap := make(map[string]AttributeDef, len(attrs))
	for _, a := range attrs {
		if _, dup := attrMap[a.Name]; dup {
			return &BuildError{Err: ErrDuplicateAttribute, Name: fmt.Sprintf("%s.%s", name, a.Name)}
		}
		attrMap[a.Name] = a
	}
	b.types[name] = &pendingType{
		name:       name,
		parent:     parent,
		hasParent:  parent != "",
		isAbstract: isAbstract,
		attrs:      attrMap,
	}
	b.typeOrder = append(b.typeOrder, name)
	return nil
}

// AddEdgeType declares an edge type.
func (b *RegistryBuilder) AddEdgeType(name string, params []ParamDef, attrs []AttributeDef, cardinality map[int]CardinalityBound, symmetric, acyclic bool, onKill map[int]OnKillAction) error {
	if _, exists := b.edgeTypes[name]; exists {
		return &BuildError{Err: ErrDuplicateEdgeType, Name: name}
	}
	attrMap := make(map[string]AttributeDef, len(attrs))
	for _, a := range attrs {
		if _, dup := attrMap[a.Name]; dup {
			return &BuildError{Err: ErrDuplicateAttribute, Name: fmt.Sprintf("%s.%s", name, a.Name)}
		}
		attrMap[a.Name] = a
	}
	b.edgeTypes[name] = &pendingEdgeType{
		name:        name,
		params:      params,
		attrs:       attrMap,
		cardinality: cardinality,
		symmetric:   symmetric,
		acyclic:     acyclic,
		onKill:      onKill,
	}
	b.edgeOrder = append(b.edgeOrder, name)
	return nil
}

// AddConstraint declares a constraint against a node type's or an edge
// type's name, as targetKind selects.
func (b *RegistryBuilder) AddConstraint(name string, severity Severity, timing Timing, targetKind ConstraintTargetKind, targetTypeName string, pattern *patternir.CompiledPattern, messageTemplate string) error {
	for _, c := range b.constraints {
		if c.name == name {
			return &BuildError{Err: ErrDuplicateConstr, Name: name}
		}
	}
	b.constraints = append(b.constraints, pendingConstraint{
		name: name, severity: severity, timing: timing, targetKind: targetKind,
		targetTypeName: targetTypeName, pattern: pattern, messageTemplate: messageTemplate,
	})
	return nil
}

// AddRule declares a rule.
func (b *RegistryBuilder) AddRule(name string, trigger *patternir.CompiledPattern, where patternir.Expr, productions []astir.Statement, priority, maxFires int) error {
	for _, r := range b.rules {
		if r.name == name {
			return &BuildError{Err: ErrDuplicateRule, Name: name}
		}
	}
	b.rules = append(b.rules, pendingRule{
		name: name, trigger: trigger, where: where, productions: productions,
		priority: priority, maxFires: maxFires,
	})
	return nil
}

// Build validates all declarations and compiles them into an immutable
// Registry. On any error, no Registry is returned.
func (b *RegistryBuilder) Build() (*Registry, error) {
	typeIDs := make(map[string]hvalue.TypeId, len(b.typeOrder))
	for i, name := range b.typeOrder {
		typeIDs[name] = hvalue.TypeId(i + 1)
	}
	edgeTypeIDs := make(map[string]hvalue.EdgeTypeId, len(b.edgeOrder))
	for i, name := range b.edgeOrder {
		edgeTypeIDs[name] = hvalue.EdgeTypeId(i + 1)
	}

	// Resolve parent links and detect cycles.
	typesByID := make(map[hvalue.TypeId]*TypeDef, len(b.typeOrder))
	for _, name := range b.typeOrder {
		pt := b.types[name]
		td := &TypeDef{
			ID:         typeIDs[name],
			Name:       pt.name,
			IsAbstract: pt.isAbstract,
			Attributes: pt.attrs,
		}
		if pt.hasParent {
			parentID, ok := typeIDs[pt.parent]
			if !ok {
				return nil, &BuildError{Err: ErrUnknownParent, Name: fmt.Sprintf("%s -> %s", pt.name, pt.parent)}
			}
			td.Parent = parentID
			td.HasParent = true
		}
		typesByID[td.ID] = td
	}
	for _, name := range b.typeOrder {
		if cycle := detectCycle(name, typeIDs, typesByID); cycle != nil {
			return nil, &BuildError{Err: ErrInheritanceCycle, Cycle: cycle}
		}
	}

	// Resolve edge type param target types and on-kill/cardinality maps.
	edgeTypesByID := make(map[hvalue.EdgeTypeId]*EdgeTypeDef, len(b.edgeOrder))
	for _, name := range b.edgeOrder {
		pet := b.edgeTypes[name]
		params := make([]ParamDef, len(pet.params))
		for i, p := range pet.params {
			tid, ok := typeIDs[p.TypeName]
			if !ok {
				return nil, &BuildError{Err: ErrUnknownType, Name: p.TypeName}
			}
			params[i] = ParamDef{Name: p.Name, TypeName: p.TypeName, TypeID: tid}
		}
		edgeTypesByID[edgeTypeIDs[name]] = &EdgeTypeDef{
			ID:          edgeTypeIDs[name],
			Name:        pet.name,
			Params:      params,
			Attributes:  pet.attrs,
			Cardinality: pet.cardinality,
			Symmetric:   pet.symmetric,
			Acyclic:     pet.acyclic,
			OnKill:      pet.onKill,
		}
	}

	// Resolve constraint targets.
	constraintsByName := make(map[string]*ConstraintDef, len(b.constraints))
	constraintsByType := make(map[hvalue.TypeId][]*ConstraintDef)
	constraintsByEdgeType := make(map[hvalue.EdgeTypeId][]*ConstraintDef)
	for _, pc := range b.constraints {
		cd := &ConstraintDef{
			Name: pc.name, Severity: pc.severity, Timing: pc.timing,
			TargetKind: pc.targetKind, Pattern: pc.pattern, MessageTemplate: pc.messageTemplate,
		}
		switch pc.targetKind {
		case ConstraintTargetNode:
			tid, ok := typeIDs[pc.targetTypeName]
			if !ok {
				return nil, &BuildError{Err: ErrUnknownConstraint, Name: pc.targetTypeName}
			}
			cd.TargetTypeID = tid
			constraintsByType[tid] = append(constraintsByType[tid], cd)
		case ConstraintTargetEdge:
			eid, ok := edgeTypeIDs[pc.targetTypeName]
			if !ok {
				return nil, &BuildError{Err: ErrUnknownConstraint, Name: pc.targetTypeName}
			}
			cd.TargetEdgeID = eid
			constraintsByEdgeType[eid] = append(constraintsByEdgeType[eid], cd)
		}
		constraintsByName[pc.name] = cd
	}

	rules := make([]*RuleDef, 0, len(b.rules))
	for _, pr := range b.rules {
		rules = append(rules, &RuleDef{
			Name: pr.name, Trigger: pr.trigger, Where: pr.where,
			Productions: pr.productions, Priority: pr.priority, MaxFires: pr.maxFires,
		})
	}

	return &Registry{
		typeIDs:               typeIDs,
		edgeTypeIDs:            edgeTypeIDs,
		typesByID:              typesByID,
		edgeTypesByID:          edgeTypesByID,
		constraintsByName:      constraintsByName,
		constraintsByType:      constraintsByType,
		constraintsByEdgeType:  constraintsByEdgeType,
		rules:                  rules,
	}, nil
}

// detectCycle walks the parent chain starting at name, returning the
// cycle (as a list of type names) if one is found, or nil otherwise.
func detectCycle(name string, typeIDs map[string]hvalue.TypeId, typesByID map[hvalue.TypeId]*TypeDef) []string {
	seen := map[hvalue.TypeId]bool{}
	path := []string{name}
	cur := typeIDs[name]
	for {
		td := typesByID[cur]
		if !td.HasParent {
			return nil
		}
		if seen[td.Parent] {
			path = append(path, typesByID[td.Parent].Name)
			return path
		}
		seen[cur] = true
		cur = td.Parent
		path = append(path, typesByID[cur].Name)
		if len(path) > len(typeIDs)+1 {
			return path
		}
	}
}
