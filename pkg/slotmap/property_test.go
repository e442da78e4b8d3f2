// Deterministic tests comparing slotmap against an in-memory reference
// model. Seeded PRNG op sequences run across several capacity profiles;
// invariants are re-verified after every mutation.
//
// Failures mean: the table returned wrong results, wrong errors, or left
// the region structurally inconsistent.

package slotmap_test

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/slotmap/internal/testutil"
	"github.com/calvinalkan/slotmap/pkg/slotmap"
)

// Profiles ordered from most constrained to least constrained.
var capacityProfiles = []int{1, 2, 4, 8, 32}

func Test_Slotmap_Matches_Model_When_Seeded_Random_Ops_Applied(t *testing.T) {
	t.Parallel()

	seedsPerProfile := 8
	if testing.Short() {
		seedsPerProfile = 2
	}

	opsPerSeed := 400

	for _, capacity := range capacityProfiles {
		for seedIndex := range seedsPerProfile {
			seed := uint64(seedIndex + 1)

			t.Run(fmt.Sprintf("capacity=%d/seed=%d", capacity, seed), func(t *testing.T) {
				t.Parallel()

				runModelComparison(t, capacity, seed, opsPerSeed)
			})
		}
	}
}

func runModelComparison(t *testing.T, capacity int, seed uint64, ops int) {
	t.Helper()

	region := make([]byte, slotmap.RequiredSize(capacity))

	tbl, err := slotmap.Create(region)
	if err != nil {
		t.Fatal(err)
	}

	model := testutil.NewModel(capacity)
	gen := testutil.NewGenerator(seed)

	for opIndex := range ops {
		op := gen.Next()

		switch op.Kind {
		case testutil.OpPut:
			wantErr := model.Put(op.Key, op.Value)

			gotErr := tbl.Put(op.Key, op.Value)
			if !sameErrorKind(gotErr, wantErr) {
				t.Fatalf("op %d %v: Put error = %v, model wants %v", opIndex, op, gotErr, wantErr)
			}

		case testutil.OpGet:
			want, wantErr := model.Get(op.Key)

			got, gotErr := tbl.Get(op.Key)
			if !sameErrorKind(gotErr, wantErr) {
				t.Fatalf("op %d %v: Get error = %v, model wants %v", opIndex, op, gotErr, wantErr)
			}

			if wantErr == nil && !bytes.Equal(got, want) {
				t.Fatalf("op %d %v: Get value diverged:\n%s", opIndex, op, cmp.Diff(want, got))
			}

		case testutil.OpRemove:
			wantErr := model.Remove(op.Key)

			gotErr := tbl.Remove(op.Key)
			if !sameErrorKind(gotErr, wantErr) {
				t.Fatalf("op %d %v: Remove error = %v, model wants %v", opIndex, op, gotErr, wantErr)
			}

		case testutil.OpIterate:
			compareTraversal(t, tbl, model, opIndex)

		case testutil.OpClear:
			tbl.Clear()
			model.Clear()
		}

		if err := tbl.CheckInvariants(); err != nil {
			t.Fatalf("op %d %v: invariants: %v", opIndex, op, err)
		}

		entries, used, _ := tbl.Size()
		if entries != model.Len() || used != model.Used() {
			t.Fatalf("op %d %v: Size() = (entries=%d, used=%d), model = (%d, %d)",
				opIndex, op, entries, used, model.Len(), model.Used())
		}
	}

	// Final cross-check: every model key retrievable, and a re-attached
	// handle over the same bytes observes identical state.
	reopened, err := slotmap.Attach(region)
	if err != nil {
		t.Fatal(err)
	}

	for key, want := range model.Data {
		got, err := reopened.Get([]byte(key))
		if err != nil {
			t.Fatalf("re-attached Get(%q): %v", key, err)
		}

		if !bytes.Equal(got, want) {
			t.Fatalf("re-attached Get(%q) diverged:\n%s", key, cmp.Diff(want, got))
		}
	}
}

// compareTraversal walks the table with Next and compares the value
// multiset against the model (keys may be reported truncated, so values
// and counts are the comparable surface).
func compareTraversal(t *testing.T, tbl *slotmap.Table, model *testutil.Model, opIndex int) {
	t.Helper()

	var gotValues []string

	cursor := 0

	for {
		entry, err := tbl.Next(&cursor)
		if errors.Is(err, slotmap.ErrNotFound) {
			break
		}

		if err != nil {
			t.Fatalf("op %d: Next: %v", opIndex, err)
		}

		gotValues = append(gotValues, string(entry.Value))
	}

	var wantValues []string
	for _, v := range model.Data {
		wantValues = append(wantValues, string(v))
	}

	slices.Sort(gotValues)
	slices.Sort(wantValues)

	if diff := cmp.Diff(wantValues, gotValues); diff != "" {
		t.Fatalf("op %d: traversal values diverged (-model +table):\n%s", opIndex, diff)
	}
}

// sameErrorKind treats two errors as equivalent when both are nil or both
// wrap the same slotmap sentinel.
func sameErrorKind(got, want error) bool {
	if want == nil {
		return got == nil
	}

	return errors.Is(got, want)
}
