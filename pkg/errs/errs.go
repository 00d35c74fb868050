// Package errs defines Echo's stable error taxonomy (spec.md §7).
//
// Errors are plain sentinel values, the way the teacher's
// pkg/storage/types.go and transaction.go group errors at the top of each
// file — never panics, never exceptions-as-control-flow.
package errs

import "errors"

var (
	// ErrUnknownRule is returned by apply() for an unregistered rule name.
	ErrUnknownRule = errors.New("echo: unknown rule")
	// ErrDuplicateRuleName is returned by register_rule on a name collision.
	ErrDuplicateRuleName = errors.New("echo: duplicate rule name")
	// ErrDuplicateRuleID is returned by register_rule on a family-id collision.
	ErrDuplicateRuleID = errors.New("echo: duplicate rule id")
	// ErrTxClosed is returned for any operation on a committed/aborted/unknown tx.
	ErrTxClosed = errors.New("echo: transaction closed")
	// ErrNotFound is returned by store operations referencing a nonexistent id.
	ErrNotFound = errors.New("echo: not found")
	// ErrAlreadyExists is returned by store inserts that collide with an existing id.
	ErrAlreadyExists = errors.New("echo: already exists")
	// ErrReferentialIntegrity is returned deleting a node with incident edges,
	// or descending into an unknown instance.
	ErrReferentialIntegrity = errors.New("echo: referential integrity violation")
	// ErrOpConflict is returned when a commit's ops contradict each other —
	// indicative of a buggy rule, since correct footprints make this impossible.
	ErrOpConflict = errors.New("echo: op conflict")
	// ErrEncodeViolation is returned when canonical encoding input breaks
	// sort/dedup/size rules.
	ErrEncodeViolation = errors.New("echo: non-canonical encoding input")
)
