package txn

import (
	"errors"
	"fmt"

	"github.com/orneryd/hyperdb/pkg/constraint"
)

var (
	ErrAlreadyActive         = errors.New("txn: transaction already active")
	ErrNoActiveTransaction   = errors.New("txn: no active transaction")
	ErrSavepointNotSupported = errors.New("txn: savepoints are not supported")
	ErrRolledBack            = errors.New("txn: transaction rolled back")
	ErrCancelled             = errors.New("txn: transaction cancelled")

	// ErrEngineFailed marks a manager whose journal fsync failed; it
	// refuses further transactions until reopened.
	ErrEngineFailed = errors.New("txn: journal failure, engine must be reopened")
)

// ViolationError carries the error-severity constraint violations that
// forced a commit onto the rollback path.
type ViolationError struct {
	Violations constraint.Violations
}

func (e *ViolationError) Error() string {
	errs := e.Violations.Errors()
	if len(errs) == 1 {
		return fmt.Sprintf("txn: constraint violation: %s", errs[0].Message)
	}
	return fmt.Sprintf("txn: %d constraint violations", len(errs))
}
