package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound means an edit or delete referenced an anchor that was
	// never logged to its expected bucket. Callers report it; the storage
	// layer has already inserted a placeholder record by the time it is
	// returned.
	ErrRecordNotFound = errors.New("record not found in bucket")

	// ErrExportTooLarge means a zip bundle would exceed the configured
	// ceiling. Nothing has been written when it is returned.
	ErrExportTooLarge = errors.New("export exceeds size ceiling")

	// ErrBadConfirmToken means a purge was attempted with a missing, wrong
	// or expired confirmation token.
	ErrBadConfirmToken = errors.New("invalid or expired confirmation token")
)

// ConfigError reports an unusable export mode or bucket spec. It is
// non-fatal: storage falls back to single-file bucketing and keeps logging.
type ConfigError struct {
	Mode   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bad bucket configuration (mode %q): %s", e.Mode, e.Reason)
}

// CorruptRecordError reports a malformed or duplicated anchor marker in an
// archive file. The offending file is quarantined by rename; other files are
// unaffected.
type CorruptRecordError struct {
	Path   string
	Line   int
	Reason string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record in %s (line %d): %s", e.Path, e.Line, e.Reason)
}
