package slotmap

import (
	"encoding/binary"
	"fmt"
)

// slotRole is the decoded role of a slot's count discriminator.
type slotRole int

const (
	slotEmpty slotRole = iota
	slotLeading
	slotColliding
	slotExtension
)

// slotView exposes typed accessors over the slot array bytes. All indices
// are in [0, capacity); callers are responsible for range checks.
type slotView struct {
	mem      []byte
	capacity int
}

func (s slotView) off(i int) int {
	return headerSize + i*slotSize
}

func (s slotView) role(i int) slotRole {
	switch c := s.count(i); {
	case c == 0:
		return slotEmpty
	case c >= 1:
		return slotLeading
	case c == -1:
		return slotColliding
	default:
		return slotExtension
	}
}

func (s slotView) count(i int) int {
	return int(int16(binary.LittleEndian.Uint16(s.mem[s.off(i)+offSlotCount:])))
}

func (s slotView) setCount(i, c int) {
	binary.LittleEndian.PutUint16(s.mem[s.off(i)+offSlotCount:], uint16(int16(c)))
}

// hash returns the home index (leading/colliding) or previous chain index
// (extension) stored in the slot.
func (s slotView) hash(i int) int {
	return int(binary.LittleEndian.Uint32(s.mem[s.off(i)+offSlotHash:]))
}

func (s slotView) setHash(i, h int) {
	binary.LittleEndian.PutUint32(s.mem[s.off(i)+offSlotHash:], uint32(h))
}

// link returns the next chain index, or noLink at the end of the chain.
func (s slotView) link(i int) int {
	return int(int32(binary.LittleEndian.Uint32(s.mem[s.off(i)+offSlotLink:])))
}

func (s slotView) setLink(i, next int) {
	binary.LittleEndian.PutUint32(s.mem[s.off(i)+offSlotLink:], uint32(int32(next)))
}

// size returns the payload bytes used in this slot.
func (s slotView) size(i int) int {
	return int(binary.LittleEndian.Uint32(s.mem[s.off(i)+offSlotSize:]))
}

func (s slotView) setSize(i, n int) {
	binary.LittleEndian.PutUint32(s.mem[s.off(i)+offSlotSize:], uint32(n))
}

// keyField returns the KeyMax inline key bytes of a pair-shape slot.
func (s slotView) keyField(i int) []byte {
	o := s.off(i) + offSlotPayload + offPairKey

	return s.mem[o : o+KeyMax]
}

func (s slotView) fingerprint(i int) []byte {
	o := s.off(i) + offSlotPayload + offPairFingerprint

	return s.mem[o : o+fingerprintSize]
}

// keylen returns the true key length, which may exceed KeyMax.
func (s slotView) keylen(i int) int {
	return int(binary.LittleEndian.Uint16(s.mem[s.off(i)+offSlotPayload+offPairKeylen:]))
}

func (s slotView) setKeylen(i, n int) {
	binary.LittleEndian.PutUint16(s.mem[s.off(i)+offSlotPayload+offPairKeylen:], uint16(n))
}

// inlineValue returns the ValMax inline value bytes of a pair-shape slot.
func (s slotView) inlineValue(i int) []byte {
	o := s.off(i) + offSlotPayload + offPairValue

	return s.mem[o : o+ValMax]
}

// extValue returns the extMax raw value bytes of an ext-shape slot.
func (s slotView) extValue(i int) []byte {
	o := s.off(i) + offSlotPayload

	return s.mem[o : o+extMax]
}

// clear zeroes all slot bytes.
func (s slotView) clear(i int) {
	o := s.off(i)
	clear(s.mem[o : o+slotSize])
}

// raw returns the full encoded slot for bytewise relocation.
func (s slotView) raw(i int) []byte {
	o := s.off(i)

	return s.mem[o : o+slotSize]
}

// findFree scans start, start+1, ... wrapping modulo capacity for the first
// empty slot. Returns -1 when no slot is free.
func (s slotView) findFree(start int) int {
	if start >= s.capacity {
		start = 0
	}

	i := start

	for {
		if s.count(i) == 0 {
			return i
		}

		i++
		if i >= s.capacity {
			i = 0
		}

		if i == start {
			return -1
		}
	}
}

// copySlot relocates src into the empty slot dst bytewise and counts dst as
// used. The caller pairs it with removeSlot on the source.
func (t *Table) copySlot(dst, src int) error {
	if t.slots.count(dst) != 0 || t.slots.count(src) == 0 {
		return fmt.Errorf("copy slot %d <- %d: occupancy precondition: %w", dst, src, ErrInternal)
	}

	copy(t.slots.raw(dst), t.slots.raw(src))
	t.setUsed(t.used() + 1)

	return nil
}

// removeSlot frees a single occupied slot. It does not follow the chain.
func (t *Table) removeSlot(i int) error {
	if t.slots.count(i) == 0 {
		return fmt.Errorf("remove slot %d: already empty: %w", i, ErrInternal)
	}

	t.slots.setCount(i, 0)
	t.setUsed(t.used() - 1)

	return nil
}

// removeData frees slot i and every extension slot reachable via link.
// It never touches the entries counter; the caller adjusts it once.
func (t *Table) removeData(i int) error {
	if t.slots.count(i) == 0 {
		return fmt.Errorf("remove data at %d: empty slot: %w", i, ErrInternal)
	}

	for {
		next := t.slots.link(i)
		if next != noLink && (next < 0 || next >= t.capacity) {
			return fmt.Errorf("slot %d links to %d outside the slot array: %w", i, next, ErrInternal)
		}

		if err := t.removeSlot(i); err != nil {
			return err
		}

		if next == noLink {
			return nil
		}

		i = next
	}
}
