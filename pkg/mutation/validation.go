package mutation

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/registry"
)

// validateAttribute enforces the three checks in order — required-null,
// type-compatibility, range — per the attribute validation ordering
// this engine preserves from the original mutation pipeline: the first
// of these that fails is the error SPAWN/SET reports, even if a later
// check would also fail.
func validateAttribute(name string, def registry.AttributeDef, value hvalue.Value) error {
	if def.Required && value.IsNull() {
		return fmt.Errorf("%w: %s", ErrRequiredNull, name)
	}
	if !hvalue.TypesCompatible(def.Kind, value.Kind()) {
		return fmt.Errorf("%w: %s expected %s, got %s", ErrInvalidAttrType, name, def.Kind, value.Kind())
	}
	if value.IsNull() {
		return nil
	}
	if def.Min != nil {
		if cmp, ok := hvalue.Compare(value, *def.Min); ok && cmp < 0 {
			return fmt.Errorf("%w: %s below minimum", ErrRangeViolation, name)
		}
	}
	if def.Max != nil {
		if cmp, ok := hvalue.Compare(value, *def.Max); ok && cmp > 0 {
			return fmt.Errorf("%w: %s above maximum", ErrRangeViolation, name)
		}
	}
	return nil
}

// checkRequiredAttributes fails if any attribute that is required and
// has no default is absent from attrs entirely (not merely Null).
func checkRequiredAttributes(defs map[string]registry.AttributeDef, attrs hvalue.Attributes) error {
	for name, def := range defs {
		if !def.Required || def.Default != nil {
			continue
		}
		if !attrs.Has(name) {
			return fmt.Errorf("%w: %s", ErrMissingRequired, name)
		}
	}
	return nil
}

// applyDefaults fills in Default for every declared attribute absent
// from attrs.
func applyDefaults(defs map[string]registry.AttributeDef, attrs *hvalue.Attributes) {
	for name, def := range defs {
		if def.Default == nil {
			continue
		}
		if !attrs.Has(name) {
			attrs.Set(name, *def.Default)
		}
	}
}

// checkUniqueAcrossDescendants enforces uniqueness scoped to typeID and
// its descendant types, per the data model's invariant 6.
func (ex *Executor) checkUniqueAcrossDescendants(typeID hvalue.TypeId, attr string, value hvalue.Value, excludeNode hvalue.NodeId, hasExclude bool) error {
	if value.IsNull() {
		return nil
	}
	for _, id := range ex.Reg.Descendants(typeID) {
		if ex.Store.HasConflictingUnique(id, attr, value, excludeNode, hasExclude) {
			return fmt.Errorf("%w: %s", ErrUniqueViolation, attr)
		}
	}
	return nil
}
