// Package slotmap provides an in-place hash table over a caller-supplied
// byte region.
//
// The entire table state - header, directory, and values - lives inside one
// contiguous byte slice. The region can be a shared-memory segment, a
// memory-mapped file, or any plain buffer; slotmap never allocates backing
// storage itself. A region written by one process can be detached, persisted,
// remapped, and re-attached by another.
//
// # Basic Usage
//
//	region := make([]byte, slotmap.RequiredSize(1000))
//	tbl, err := slotmap.Create(region)
//	if err != nil {
//	    // region too small for even one slot
//	}
//
//	tbl.Put([]byte("key"), []byte("value"))
//	val, err := tbl.Get([]byte("key"))
//
//	// Re-attach later, possibly from another process:
//	tbl2, err := slotmap.Attach(region)
//
// # Slots
//
// The region holds a flat array of fixed-size slots. A slot is either the
// leading slot of an entry (key plus first value fragment), a colliding slot
// (an entry displaced from its preferred index), or an extension slot (a
// continuation fragment of a large value). Values larger than one slot's
// inline area spread across a chain of extension slots.
//
// Keys longer than [KeyMax] bytes are stored truncated together with a
// 16-byte fingerprint of the full key. Lookup of such keys compares length,
// inline prefix, and fingerprint; a false match is theoretically possible
// but requires a fingerprint collision.
//
// # Concurrency
//
// slotmap provides no internal synchronization. Callers sharing a region
// across goroutines or processes must supply their own mutual exclusion;
// unsynchronized concurrent mutation corrupts the slot array.
//
// # Errors
//
// Callers classify errors with errors.Is against the package sentinels:
// [ErrInvalidArgument], [ErrNoSpace], [ErrNotFound], [ErrInternal].
package slotmap
