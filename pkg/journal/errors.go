package journal

import "errors"

var (
	ErrClosed        = errors.New("journal: closed")
	ErrInvalidFormat = errors.New("journal: invalid record format")
	ErrEntryNotFound = errors.New("journal: entry not found")
	ErrRecovery      = errors.New("journal: recovery failed")

	// ErrFailed marks a journal whose fsync failed; the engine refuses
	// further transactions until the journal is reopened.
	ErrFailed = errors.New("journal: sync failed, reopen required")
)
