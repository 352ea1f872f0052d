// Package constraint implements the pattern constraint checker: each
// declared constraint is a compiled pattern whose non-empty match set
// signals a violation, collected into a Violations set partitioned by
// severity. Deferred constraints are checked as a batch at commit;
// immediate pattern constraints are checked synchronously after the
// mutation that could have tripped them. The built-in immediate
// validations (uniqueness, readonly, range, required, arity,
// type-match, acyclic, cardinality) are enforced inside the mutation
// executor and never reach this package.
package constraint

import "github.com/orneryd/hyperdb/pkg/registry"

// Violation is one reported constraint failure.
type Violation struct {
	Constraint string
	Severity   registry.Severity
	Message    string
}

// Violations collects the violations from one checking pass.
type Violations struct {
	items []Violation
}

// Add appends a violation.
func (v *Violations) Add(item Violation) {
	v.items = append(v.items, item)
}

// Merge appends every violation from other.
func (v *Violations) Merge(other Violations) {
	v.items = append(v.items, other.items...)
}

// All returns the collected violations in reporting order.
func (v *Violations) All() []Violation {
	return v.items
}

// IsEmpty reports whether no violation was collected.
func (v *Violations) IsEmpty() bool { return len(v.items) == 0 }

// HasErrors reports whether any violation has Error severity; a commit
// aborts iff this is true.
func (v *Violations) HasErrors() bool {
	for _, item := range v.items {
		if item.Severity == registry.SeverityError {
			return true
		}
	}
	return false
}

// HasOnlyWarnings reports whether violations exist but none is an
// error, the case where a commit proceeds and the warnings ride along
// on the acknowledgement.
func (v *Violations) HasOnlyWarnings() bool {
	return !v.IsEmpty() && !v.HasErrors()
}

// Errors returns just the Error-severity violations.
func (v *Violations) Errors() []Violation {
	var out []Violation
	for _, item := range v.items {
		if item.Severity == registry.SeverityError {
			out = append(out, item)
		}
	}
	return out
}

// Warnings returns just the Warning-severity violations.
func (v *Violations) Warnings() []Violation {
	var out []Violation
	for _, item := range v.items {
		if item.Severity == registry.SeverityWarning {
			out = append(out, item)
		}
	}
	return out
}
