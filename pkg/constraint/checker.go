package constraint

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/pattern"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

// Checker evaluates deferred constraints at commit, after rule
// quiescence, against the transaction's merged view of the store.
type Checker struct {
	Reg *registry.Registry
}

// NewChecker builds a Checker over reg.
func NewChecker(reg *registry.Registry) *Checker {
	return &Checker{Reg: reg}
}

// CheckDeferred matches every deferred constraint's pattern against
// store. Each binding the pattern produces becomes one violation with
// the constraint's message template rendered against that binding.
// Constraints are checked in name order so reports are reproducible.
func (c *Checker) CheckDeferred(store *graphstore.Store) (Violations, error) {
	return c.check(store, c.Reg.DeferredConstraints())
}

// CheckImmediate matches the immediate pattern constraints declared
// against the given node and edge types, the ones a just-applied
// mutation could have tripped. The mutation executor's built-in checks
// (uniqueness, readonly, range, required, arity, type-match, acyclic,
// cardinality) run inside the mutation itself; this covers the
// declared `constraint ... immediate { pattern }` form, which needs
// post-mutation state to evaluate.
func (c *Checker) CheckImmediate(store *graphstore.Store, typeIDs []hvalue.TypeId, edgeTypeIDs []hvalue.EdgeTypeId) (Violations, error) {
	var defs []*registry.ConstraintDef
	for _, id := range typeIDs {
		defs = append(defs, c.Reg.ConstraintsFor(id)...)
	}
	for _, id := range edgeTypeIDs {
		defs = append(defs, c.Reg.ConstraintsForEdgeType(id)...)
	}
	return c.check(store, immediateOnly(defs))
}

// CheckImmediateAll matches every immediate pattern constraint, used
// after deletions, whose affected types are no longer resolvable.
func (c *Checker) CheckImmediateAll(store *graphstore.Store) (Violations, error) {
	return c.check(store, c.Reg.ImmediateConstraints())
}

func immediateOnly(defs []*registry.ConstraintDef) []*registry.ConstraintDef {
	var out []*registry.ConstraintDef
	for _, def := range defs {
		if def.Timing == registry.TimingImmediate {
			out = append(out, def)
		}
	}
	return out
}

func (c *Checker) check(store *graphstore.Store, defs []*registry.ConstraintDef) (Violations, error) {
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	var violations Violations
	seen := map[string]bool{}
	for _, def := range defs {
		if seen[def.Name] {
			continue
		}
		seen[def.Name] = true
		matches, err := pattern.Execute(def.Pattern, store)
		if err != nil {
			return Violations{}, fmt.Errorf("constraint %s: %w", def.Name, err)
		}
		for _, b := range matches {
			violations.Add(Violation{
				Constraint: def.Name,
				Severity:   def.Severity,
				Message:    renderMessage(def.MessageTemplate, b, store),
			})
		}
	}
	return violations, nil
}

// placeholderRe matches {var} and {var.attr} in a message template.
var placeholderRe = regexp.MustCompile(`\{(\w+)(?:\.(\w+))?\}`)

// renderMessage substitutes binding references into a message template:
// {v} renders the bound entity's identifier, {v.attr} renders the
// attribute's value. Unknown placeholders are left intact so a typo in
// an ontology is visible in the report rather than silently blank.
func renderMessage(template string, b patternir.Bindings, store *graphstore.Store) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		parts := placeholderRe.FindStringSubmatch(match)
		varName, attrName := parts[1], parts[2]
		binding, ok := b.Get(varName)
		if !ok {
			return match
		}
		if attrName == "" {
			if entity, ok := binding.AsEntity(); ok {
				return entity.String()
			}
			if v, ok := binding.AsValue(); ok {
				return v.GoString()
			}
			return match
		}
		v, err := pattern.Eval(patternir.AttrAccess{Var: varName, Attr: attrName}, b, store)
		if err != nil {
			return match
		}
		if s, isString := v.String(); isString {
			return s
		}
		return v.GoString()
	})
}
