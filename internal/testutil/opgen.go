// Package testutil provides a seeded operation generator and an in-memory
// reference model for exercising slotmap tables against deterministic
// random workloads.
//
// The model favors auditability over speed: it tracks only the observable
// state (key -> value plus slot accounting) and predicts the error each
// operation must produce, so a test can replay the same ops against a real
// table and compare.
package testutil

import (
	"fmt"
	"math/rand/v2"

	"github.com/calvinalkan/slotmap/pkg/slotmap"
)

// OpKind enumerates the operations a generated workload is made of.
type OpKind int

const (
	OpPut OpKind = iota
	OpGet
	OpRemove
	OpIterate
	OpClear
)

// Op is one generated operation.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

func (o Op) String() string {
	return fmt.Sprintf("{%d key=%q vlen=%d}", o.Kind, o.Key, len(o.Value))
}

// Generator produces a deterministic op stream from a seed. Keys are drawn
// from a small pool that mixes short, exactly-KeyMax, and truncated-length
// keys so lookups exercise both comparison paths.
type Generator struct {
	rng  *rand.Rand
	keys [][]byte
}

// NewGenerator seeds a generator. Equal seeds yield equal op streams.
func NewGenerator(seed uint64) *Generator {
	rng := rand.New(rand.NewPCG(seed, seed))

	keys := make([][]byte, 0, 12)

	for i := range 6 {
		keys = append(keys, fmt.Appendf(nil, "k%d", i))
	}

	for i := range 3 {
		// Exactly KeyMax bytes: inline storage with no truncation.
		keys = append(keys, fmt.Appendf(nil, "max-width-key-%02d", i))
	}

	for i := range 3 {
		keys = append(keys, fmt.Appendf(nil, "long-key-%02d-exceeding-the-inline-field", i))
	}

	return &Generator{rng: rng, keys: keys}
}

// Next returns the next operation. Mutations dominate so small tables churn
// through displacement, eviction, and rollback paths.
func (g *Generator) Next() Op {
	switch p := g.rng.IntN(100); {
	case p < 45:
		return Op{Kind: OpPut, Key: g.key(), Value: g.value()}
	case p < 65:
		return Op{Kind: OpGet, Key: g.key()}
	case p < 85:
		return Op{Kind: OpRemove, Key: g.key()}
	case p < 97:
		return Op{Kind: OpIterate}
	default:
		return Op{Kind: OpClear}
	}
}

func (g *Generator) key() []byte {
	return g.keys[g.rng.IntN(len(g.keys))]
}

func (g *Generator) value() []byte {
	// Value lengths cluster around the inline and extension boundaries.
	lengths := []int{
		0, 1, 5,
		slotmap.ValMax - 1, slotmap.ValMax, slotmap.ValMax + 1,
		slotmap.ValMax + extBytes, slotmap.ValMax + extBytes + 1,
		slotmap.ValMax + 3*extBytes,
	}

	n := lengths[g.rng.IntN(len(lengths))]
	v := make([]byte, n)

	for i := range v {
		v[i] = byte(g.rng.IntN(256))
	}

	return v
}

// extBytes mirrors the extension-slot payload width of the slot format.
const extBytes = slotmap.KeyMax + 16 + 2 + slotmap.ValMax

// Model is the observable-state reference a real table is compared against.
type Model struct {
	Capacity int
	Data     map[string][]byte
}

// NewModel returns an empty model for a table of the given capacity.
func NewModel(capacity int) *Model {
	return &Model{Capacity: capacity, Data: map[string][]byte{}}
}

// slotCost is the number of slots a value of length n occupies.
func slotCost(n int) int {
	if n <= slotmap.ValMax {
		return 1
	}

	return 1 + (n-slotmap.ValMax+extBytes-1)/extBytes
}

// Used is the number of occupied slots the model predicts.
func (m *Model) Used() int {
	used := 0
	for _, v := range m.Data {
		used += slotCost(len(v))
	}

	return used
}

// Put applies the table's insert semantics and returns the sentinel error
// the real table must produce (nil on success).
//
// A replace that runs out of slots mid-insert loses the old value too; that
// mirrors the table's remove-then-reinsert replace protocol, whose rollback
// frees the new chain but cannot resurrect the removed one.
func (m *Model) Put(key, value []byte) error {
	if len(key) == 0 {
		return slotmap.ErrInvalidArgument
	}

	if m.Used() >= m.Capacity {
		return slotmap.ErrNoSpace
	}

	k := string(key)

	if _, exists := m.Data[k]; exists {
		delete(m.Data, k)

		return m.Put(key, value)
	}

	if m.Used()+slotCost(len(value)) > m.Capacity {
		return slotmap.ErrNoSpace
	}

	m.Data[k] = append([]byte(nil), value...)

	return nil
}

// Get returns the expected value and sentinel error.
func (m *Model) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, slotmap.ErrInvalidArgument
	}

	v, ok := m.Data[string(key)]
	if !ok {
		return nil, slotmap.ErrNotFound
	}

	return v, nil
}

// Remove applies deletion and returns the expected sentinel error.
func (m *Model) Remove(key []byte) error {
	if len(key) == 0 {
		return slotmap.ErrInvalidArgument
	}

	if _, ok := m.Data[string(key)]; !ok {
		return slotmap.ErrNotFound
	}

	delete(m.Data, string(key))

	return nil
}

// Clear empties the model.
func (m *Model) Clear() {
	m.Data = map[string][]byte{}
}

// Len is the number of live entries.
func (m *Model) Len() int {
	return len(m.Data)
}
