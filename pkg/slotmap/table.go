package slotmap

import (
	"encoding/binary"
	"fmt"
)

// Table is a handle over a backing region. The handle itself holds no state
// beyond the region slice; it may be dropped and re-created with [Attach] at
// any time without affecting the persisted table.
//
// Table methods are not safe for concurrent use. Callers sharing the region
// provide their own mutual exclusion.
type Table struct {
	mem      []byte
	slots    slotView
	capacity int
}

// Entry is one key/value pair reported by [Table.Next].
type Entry struct {
	// Key holds at most [KeyMax] bytes. When the stored key was longer it
	// is a truncated view and cannot be used for re-lookup; remove such
	// entries with [Table.RemoveByIndex].
	Key []byte

	// Value is the fully reassembled value, owned by the caller.
	Value []byte
}

// Create initializes a fresh table in region, zeroing it. Capacity is
// derived from len(region): every full slot after the header becomes part
// of the directory. Fails with [ErrInvalidArgument] if the region cannot
// hold at least one slot.
func Create(region []byte) (*Table, error) {
	if len(region) < headerSize+slotSize {
		return nil, fmt.Errorf("region of %d bytes cannot hold one slot (need %d): %w",
			len(region), headerSize+slotSize, ErrInvalidArgument)
	}

	capacity := (len(region) - headerSize) / slotSize

	clear(region)
	binary.LittleEndian.PutUint32(region[offCapacity:], uint32(capacity))

	return newTable(region, capacity), nil
}

// Attach opens a region that already holds a table, trusting its header.
// The persisted capacity must fit inside the supplied slice.
func Attach(region []byte) (*Table, error) {
	if len(region) < headerSize {
		return nil, fmt.Errorf("region of %d bytes has no header: %w", len(region), ErrInvalidArgument)
	}

	capacity := int(binary.LittleEndian.Uint32(region[offCapacity:]))
	if capacity < 1 || RequiredSize(capacity) > len(region) {
		return nil, fmt.Errorf("header capacity %d does not fit region of %d bytes: %w",
			capacity, len(region), ErrInvalidArgument)
	}

	return newTable(region, capacity), nil
}

func newTable(region []byte, capacity int) *Table {
	return &Table{
		mem:      region,
		slots:    slotView{mem: region, capacity: capacity},
		capacity: capacity,
	}
}

// Size reports the number of live entries, the number of occupied slots
// (entries plus collision and extension slots), and the fixed capacity.
func (t *Table) Size() (entries, used, capacity int) {
	return t.entries(), t.used(), t.capacity
}

// Clear removes all entries and zeroes the slot array.
func (t *Table) Clear() {
	if t.used() == 0 {
		return
	}

	t.setUsed(0)
	t.setEntries(0)
	clear(t.mem[headerSize : headerSize+t.capacity*slotSize])
}

// Next reports the entry at or after *cursor and advances the cursor past
// it. Extension slots are skipped; each live entry is reported exactly once
// by a full traversal. Returns [ErrNotFound] when the slot array is
// exhausted.
//
// To remove the entry just reported, call RemoveByIndex(*cursor - 1) and
// then rewind the cursor by one: removal can relocate a colliding sibling
// into the freed slot, and the rewind lets the traversal pick it up.
//
// Replacing a key with Put during a traversal moves it to a new slot; the
// cursor may then skip or revisit that entry.
func (t *Table) Next(cursor *int) (Entry, error) {
	if cursor == nil || *cursor < 0 {
		return Entry{}, fmt.Errorf("cursor must be a non-negative position: %w", ErrInvalidArgument)
	}

	for i := *cursor; i < t.capacity; i++ {
		switch t.slots.role(i) {
		case slotEmpty, slotExtension:
			continue
		case slotLeading, slotColliding:
		}

		keylen := min(t.slots.keylen(i), KeyMax)
		key := make([]byte, keylen)
		copy(key, t.slots.keyField(i)[:keylen])

		*cursor = i + 1

		return Entry{Key: key, Value: t.readValue(i)}, nil
	}

	*cursor = t.capacity

	return Entry{}, fmt.Errorf("end of slot array: %w", ErrNotFound)
}

// Header accessors.

func (t *Table) used() int {
	return int(binary.LittleEndian.Uint32(t.mem[offUsed:]))
}

func (t *Table) setUsed(n int) {
	binary.LittleEndian.PutUint32(t.mem[offUsed:], uint32(n))
}

func (t *Table) entries() int {
	return int(binary.LittleEndian.Uint32(t.mem[offEntries:]))
}

func (t *Table) setEntries(n int) {
	binary.LittleEndian.PutUint32(t.mem[offEntries:], uint32(n))
}
