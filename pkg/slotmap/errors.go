package slotmap

import "errors"

// Sentinel errors returned by slotmap operations.
//
// Operations may wrap these with additional context; callers classify with
// errors.Is.
var (
	// ErrInvalidArgument indicates malformed input: an empty key, a region
	// too small to hold a single slot, or an out-of-range index.
	ErrInvalidArgument = errors.New("slotmap: invalid argument")

	// ErrNoSpace indicates the slot array is exhausted.
	//
	// Put operations that fail mid-way with ErrNoSpace roll back any slots
	// they already claimed for the new value. A Put that replaces an existing
	// key removes the old entry before reinserting, so when the reinsert
	// fails the old entry is gone as well.
	ErrNoSpace = errors.New("slotmap: no space")

	// ErrNotFound indicates the key is absent, the index does not refer to
	// a live entry, or iteration reached the end of the slot array.
	ErrNotFound = errors.New("slotmap: not found")

	// ErrInternal indicates a structural invariant of the slot array was
	// found violated. The operation aborted without further mutation, but
	// the region should be considered corrupt and rebuilt.
	ErrInternal = errors.New("slotmap: internal inconsistency")
)
