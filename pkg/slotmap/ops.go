package slotmap

import (
	"bytes"
	"fmt"
)

// Put inserts or replaces the entry for key. Replacing an existing key
// removes it first and reinserts, so the value chain is rebuilt from
// scratch. A nil value is stored as an empty value.
//
// Fails with [ErrNoSpace] when the slot array cannot hold the entry; a
// partially written value chain is rolled back before returning.
func (t *Table) Put(key, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("empty key: %w", ErrInvalidArgument)
	}

	if t.used() >= t.capacity {
		return fmt.Errorf("all %d slots occupied: %w", t.capacity, ErrNoSpace)
	}

	h := t.home(key)

	switch t.slots.role(h) {
	case slotEmpty:
		return t.putData(h, h, key, value, 1)

	case slotLeading:
		if idx := t.lookup(key); idx >= 0 {
			// Same key: replace by remove and reinsert.
			if err := t.RemoveByIndex(idx); err != nil {
				return err
			}

			return t.Put(key, value)
		}

		// Hash collision with a distinct entry homed here: the newcomer
		// becomes a colliding slot elsewhere.
		idx := t.slots.findFree(h + 1)
		if idx < 0 {
			return fmt.Errorf("no free slot for colliding key: %w", ErrNoSpace)
		}

		if err := t.putData(idx, h, key, value, -1); err != nil {
			return err
		}

		t.slots.setCount(h, t.slots.count(h)+1)

		return nil

	case slotColliding, slotExtension:
		// The home index is occupied by a slot that belongs elsewhere;
		// the newcomer owns this index, so evict the squatter.
		return t.evictAndPut(h, key, value)
	}

	return fmt.Errorf("slot %d has unknown role: %w", h, ErrInternal)
}

// evictAndPut relocates the colliding or extension slot currently sitting at
// home index h, repairs the relocated slot's chain, and writes the new
// leading entry at h.
func (t *Table) evictAndPut(h int, key, value []byte) error {
	idx := t.slots.findFree(h + 1)
	if idx < 0 {
		return fmt.Errorf("no free slot to relocate occupant of %d: %w", h, ErrNoSpace)
	}

	if err := t.copySlot(idx, h); err != nil {
		return err
	}

	if err := t.removeSlot(h); err != nil {
		return err
	}

	if t.slots.role(idx) == slotExtension {
		// The relocated fragment's predecessor still links to h.
		t.slots.setLink(t.slots.hash(idx), idx)
	}

	// The next fragment of the relocated slot's value chain still back-links
	// to h. Beyond that, a relocated colliding slot needs no repair: colliding
	// slots are found only by linear scan from their home index.
	if next := t.slots.link(idx); next != noLink {
		t.slots.setHash(next, idx)
	}

	return t.putData(h, h, key, value, 1)
}

// putData writes a new entry whose leading payload lands at idx with the
// given role count (1 for leading, -1 for colliding) and home index h, then
// spills the remaining value bytes into extension slots. On slot exhaustion
// mid-chain every slot already claimed is released and ErrNoSpace returned;
// counters are only committed on full success.
func (t *Table) putData(idx, h int, key, value []byte, count int) error {
	if t.slots.count(idx) != 0 {
		return fmt.Errorf("put data into occupied slot %d: %w", idx, ErrInternal)
	}

	fp := fingerprint(key)

	t.slots.clear(idx)
	t.slots.setCount(idx, count)
	t.slots.setHash(idx, h)
	t.slots.setLink(idx, noLink)
	copy(t.slots.keyField(idx), key)
	copy(t.slots.fingerprint(idx), fp[:])
	t.slots.setKeylen(idx, len(key))

	inline := min(len(value), ValMax)
	copy(t.slots.inlineValue(idx), value[:inline])
	t.slots.setSize(idx, inline)
	t.setUsed(t.used() + 1)

	remaining := value[inline:]
	cur := idx

	for len(remaining) > 0 {
		next := t.slots.findFree(cur + 1)
		if next < 0 {
			// Mid-chain exhaustion: free everything committed so far.
			if err := t.removeData(idx); err != nil {
				return err
			}

			return fmt.Errorf("no free slot to extend value: %w", ErrNoSpace)
		}

		t.slots.clear(next)
		t.slots.setCount(next, -2)
		t.slots.setHash(next, cur)
		t.slots.setLink(next, noLink)

		n := min(len(remaining), extMax)
		copy(t.slots.extValue(next), remaining[:n])
		t.slots.setSize(next, n)

		t.slots.setLink(cur, next)
		t.setUsed(t.used() + 1)

		remaining = remaining[n:]
		cur = next
	}

	t.setEntries(t.entries() + 1)

	return nil
}

// Get returns an owned copy of the value stored for key, or [ErrNotFound].
func (t *Table) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("empty key: %w", ErrInvalidArgument)
	}

	idx := t.lookup(key)
	if idx < 0 {
		return nil, fmt.Errorf("key absent: %w", ErrNotFound)
	}

	return t.readValue(idx), nil
}

// Remove deletes the entry for key, or returns [ErrNotFound].
func (t *Table) Remove(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("empty key: %w", ErrInvalidArgument)
	}

	idx := t.lookup(key)
	if idx < 0 {
		return fmt.Errorf("key absent: %w", ErrNotFound)
	}

	return t.RemoveByIndex(idx)
}

// RemoveByIndex deletes the entry whose leading or colliding slot sits at
// idx. Indices come from [Table.Next] traversals (cursor minus one).
// Removing a leading slot with collisions relocates one colliding sibling
// into the freed index so lookups by home index keep working.
func (t *Table) RemoveByIndex(idx int) error {
	if idx < 0 || idx >= t.capacity {
		return fmt.Errorf("index %d outside [0,%d): %w", idx, t.capacity, ErrInvalidArgument)
	}

	switch c := t.slots.count(idx); {
	case c == 1:
		// Solitary leading slot.
		if err := t.removeData(idx); err != nil {
			return err
		}

	case c > 1:
		if err := t.removeLeadingWithCollisions(idx, c); err != nil {
			return err
		}

	case c == -1:
		// Colliding slot: the leading slot's tally shrinks by one.
		lead := t.slots.hash(idx)
		if lead < 0 || lead >= t.capacity {
			return fmt.Errorf("colliding slot %d records home %d outside the slot array: %w",
				idx, lead, ErrInternal)
		}

		if t.slots.count(lead) <= 1 {
			return fmt.Errorf("leading slot %d tally disagrees with colliding slot %d: %w",
				lead, idx, ErrInternal)
		}

		t.slots.setCount(lead, t.slots.count(lead)-1)

		if err := t.removeData(idx); err != nil {
			return err
		}

	default:
		// Empty or extension slot: not a removable entry.
		return fmt.Errorf("index %d is not a live entry: %w", idx, ErrNotFound)
	}

	t.setEntries(t.entries() - 1)

	return nil
}

// removeLeadingWithCollisions releases the leading entry at idx and promotes
// one of its colliding siblings into the freed home index.
func (t *Table) removeLeadingWithCollisions(idx, count int) error {
	// Find a colliding slot homed at idx by linear scan.
	sibling := -1

	for j := idx + 1; ; j++ {
		if j >= t.capacity {
			j = 0
		}

		if j == idx {
			return fmt.Errorf("no colliding sibling found for leading slot %d: %w", idx, ErrInternal)
		}

		if t.slots.count(j) == -1 && t.slots.hash(j) == idx {
			sibling = j

			break
		}
	}

	if err := t.removeData(idx); err != nil {
		return err
	}

	if err := t.copySlot(idx, sibling); err != nil {
		return err
	}

	if err := t.removeSlot(sibling); err != nil {
		return err
	}

	t.slots.setCount(idx, count-1)

	// The promoted entry's first extension still back-links to the donor.
	if next := t.slots.link(idx); next != noLink {
		t.slots.setHash(next, idx)
	}

	return nil
}

// lookup returns the slot index of the leading or colliding slot holding
// key, or -1. It scans linearly from the home index, counting candidates
// whose recorded home matches, until the leading slot's tally is satisfied
// or the scan wraps.
func (t *Table) lookup(key []byte) int {
	h := t.home(key)

	tally := t.slots.count(h)
	if tally <= 0 {
		return -1
	}

	var fp [fingerprintSize]byte
	if len(key) > KeyMax {
		fp = fingerprint(key)
	}

	seen := 0

	for i := h; seen < tally; {
		if t.slots.hash(i) == h {
			if c := t.slots.count(i); c >= 1 || c == -1 {
				seen++

				if t.keyMatches(i, key, fp) {
					return i
				}
			}
		}

		i++
		if i >= t.capacity {
			i = 0
		}

		if i == h {
			break
		}
	}

	return -1
}

// keyMatches reports whether slot i holds key. Keys within KeyMax compare
// bytewise; longer keys compare length, inline prefix, and fingerprint.
// The fingerprint comparison is an accepted probabilistic tie-breaker.
func (t *Table) keyMatches(i int, key []byte, fp [fingerprintSize]byte) bool {
	if t.slots.keylen(i) != len(key) {
		return false
	}

	if len(key) <= KeyMax {
		return bytes.Equal(t.slots.keyField(i)[:len(key)], key)
	}

	return bytes.Equal(t.slots.keyField(i), key[:KeyMax]) &&
		bytes.Equal(t.slots.fingerprint(i), fp[:])
}

// readValue reassembles the value chained from slot i into an owned buffer.
func (t *Table) readValue(i int) []byte {
	total := 0

	for j := i; ; j = t.slots.link(j) {
		total += t.slots.size(j)

		if t.slots.link(j) == noLink {
			break
		}
	}

	value := make([]byte, 0, total)

	for j := i; ; j = t.slots.link(j) {
		n := t.slots.size(j)

		if t.slots.role(j) == slotExtension {
			value = append(value, t.slots.extValue(j)[:n]...)
		} else {
			value = append(value, t.slots.inlineValue(j)[:n]...)
		}

		if t.slots.link(j) == noLink {
			break
		}
	}

	return value
}
