// Package region supplies backing regions for slotmap tables: plain
// in-memory buffers, file-backed shared mappings, and atomic snapshot
// files.
//
// A region is just bytes. The table core never learns where they came
// from, and a file-backed region written by one process is visible to
// every process mapping the same file.
package region

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Sentinel errors. Callers classify with errors.Is.
var (
	// ErrInvalidSize indicates a non-positive region size.
	ErrInvalidSize = errors.New("region: invalid size")

	// ErrBadSnapshot indicates a snapshot file that is truncated, has the
	// wrong magic or version, or fails its checksum.
	ErrBadSnapshot = errors.New("region: invalid snapshot")

	// ErrClosed indicates the region was already closed.
	ErrClosed = errors.New("region: closed")
)

// Region is a contiguous byte buffer suitable as a slotmap backing store.
//
// File-backed regions are shared mappings: all writes land in the page
// cache and are visible to other processes mapping the file. Close unmaps;
// it does not delete the file.
type Region struct {
	data   []byte
	file   *os.File // nil for anonymous regions
	closed bool
}

// Anonymous returns a heap-backed region of the given size.
func Anonymous(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("anonymous region of %d bytes: %w", size, ErrInvalidSize)
	}

	return &Region{data: make([]byte, size)}, nil
}

// Map opens or creates a file-backed shared region.
//
// When the file is missing or empty it is extended to size bytes (size must
// be positive) and mapped zero-filled. When the file already holds data the
// existing bytes are mapped as-is and size is ignored, so re-opening a
// previously initialized region needs no sizing information.
func Map(path string, size int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open region file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("stat region file: %w", err)
	}

	length := int(info.Size())

	if length == 0 {
		if size <= 0 {
			_ = f.Close()

			return nil, fmt.Errorf("creating %s needs a positive size, got %d: %w", path, size, ErrInvalidSize)
		}

		if err := unix.Ftruncate(int(f.Fd()), int64(size)); err != nil {
			_ = f.Close()

			return nil, fmt.Errorf("truncate region file to %d bytes: %w", size, err)
		}

		length = size
	}

	data, err := unix.Mmap(int(f.Fd()), 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &Region{data: data, file: f}, nil
}

// Bytes returns the region's backing slice. The slice is only valid until
// Close.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the region size in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Sync flushes a file-backed region's pages to the file. No-op for
// anonymous regions.
func (r *Region) Sync() error {
	if r.closed {
		return ErrClosed
	}

	if r.file == nil {
		return nil
	}

	if err := unix.Msync(r.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync: %w", err)
	}

	return nil
}

// Close unmaps a file-backed region and closes its file. Idempotent.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	if r.file == nil {
		r.data = nil

		return nil
	}

	err := unix.Munmap(r.data)
	r.data = nil

	if closeErr := r.file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("close region: %w", err)
	}

	return nil
}
