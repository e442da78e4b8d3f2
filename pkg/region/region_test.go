package region_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/slotmap/pkg/region"
	"github.com/calvinalkan/slotmap/pkg/slotmap"
)

func Test_Anonymous_Returns_Zeroed_Region_Of_Requested_Size(t *testing.T) {
	t.Parallel()

	r, err := region.Anonymous(1024)
	require.NoError(t, err)

	assert.Equal(t, 1024, r.Len())

	for i, b := range r.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d is %#x, want zero", i, b)
		}
	}

	require.NoError(t, r.Close())
}

func Test_Anonymous_Rejects_Non_Positive_Size(t *testing.T) {
	t.Parallel()

	_, err := region.Anonymous(0)
	assert.ErrorIs(t, err, region.ErrInvalidSize)

	_, err = region.Anonymous(-1)
	assert.ErrorIs(t, err, region.ErrInvalidSize)
}

func Test_Map_Creates_File_Then_Reopens_Existing_Bytes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "table.region")
	size := slotmap.RequiredSize(10)

	r, err := region.Map(path, size)
	require.NoError(t, err)

	tbl, err := slotmap.Create(r.Bytes())
	require.NoError(t, err)

	require.NoError(t, tbl.Put([]byte("shared"), []byte("via-mmap")))
	require.NoError(t, r.Sync())
	require.NoError(t, r.Close())

	// Reopen with size 0: sizing comes from the existing file.
	reopened, err := region.Map(path, 0)
	require.NoError(t, err)

	defer reopened.Close()

	assert.Equal(t, size, reopened.Len())

	tbl2, err := slotmap.Attach(reopened.Bytes())
	require.NoError(t, err)

	got, err := tbl2.Get([]byte("shared"))
	require.NoError(t, err)
	assert.Equal(t, []byte("via-mmap"), got)
}

func Test_Map_Rejects_Creation_Without_Size(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.region")

	_, err := region.Map(path, 0)
	assert.ErrorIs(t, err, region.ErrInvalidSize)
}

func Test_Snapshot_Restore_Roundtrips_Region_Bytes(t *testing.T) {
	t.Parallel()

	r, err := region.Anonymous(slotmap.RequiredSize(8))
	require.NoError(t, err)

	tbl, err := slotmap.Create(r.Bytes())
	require.NoError(t, err)
	require.NoError(t, tbl.Put([]byte("snap"), []byte("shot")))

	path := filepath.Join(t.TempDir(), "table.snap")
	require.NoError(t, region.Snapshot(path, r.Bytes()))

	restored, err := region.Restore(path)
	require.NoError(t, err)
	assert.Equal(t, r.Bytes(), restored)

	tbl2, err := slotmap.Attach(restored)
	require.NoError(t, err)

	got, err := tbl2.Get([]byte("snap"))
	require.NoError(t, err)
	assert.Equal(t, []byte("shot"), got)
}

func Test_Restore_Rejects_Corrupted_And_Truncated_Snapshots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "table.snap")

	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}

	require.NoError(t, region.Snapshot(path, payload))

	// Flip one payload byte: checksum must catch it.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	raw[len(raw)-1] ^= 0xFF

	corrupt := filepath.Join(dir, "corrupt.snap")
	require.NoError(t, os.WriteFile(corrupt, raw, 0o600))

	_, err = region.Restore(corrupt)
	assert.ErrorIs(t, err, region.ErrBadSnapshot)

	// Truncate below the header.
	short := filepath.Join(dir, "short.snap")
	require.NoError(t, os.WriteFile(short, raw[:10], 0o600))

	_, err = region.Restore(short)
	assert.ErrorIs(t, err, region.ErrBadSnapshot)

	// Wrong magic.
	bad := append([]byte(nil), raw...)
	copy(bad, "NOPE")

	badPath := filepath.Join(dir, "bad-magic.snap")
	require.NoError(t, os.WriteFile(badPath, bad, 0o600))

	_, err = region.Restore(badPath)
	assert.ErrorIs(t, err, region.ErrBadSnapshot)
}

func Test_Close_Is_Idempotent(t *testing.T) {
	t.Parallel()

	r, err := region.Anonymous(64)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.ErrorIs(t, r.Sync(), region.ErrClosed)
}

func Test_Map_Region_Is_Visible_Through_Second_Mapping(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shared.region")
	size := slotmap.RequiredSize(4)

	first, err := region.Map(path, size)
	require.NoError(t, err)

	defer first.Close()

	second, err := region.Map(path, 0)
	require.NoError(t, err)

	defer second.Close()

	tbl, err := slotmap.Create(first.Bytes())
	require.NoError(t, err)
	require.NoError(t, tbl.Put([]byte("k"), []byte("cross-mapping")))

	// MAP_SHARED: the second mapping observes the first's writes.
	tbl2, err := slotmap.Attach(second.Bytes())
	require.NoError(t, err)

	got, err := tbl2.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("cross-mapping"), got)
}
