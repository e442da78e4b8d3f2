package region

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"
)

// Snapshot file format constants.
const (
	snapshotMagic      = "SMR1"
	snapshotVersion    = 1
	snapshotHeaderSize = 24
)

// Snapshot header offsets.
const (
	offMagic    = 0  // [4]byte
	offVersion  = 4  // uint32
	offLength   = 8  // uint64, payload bytes
	offChecksum = 16 // uint64, xxhash64 of payload
)

// Snapshot writes the region bytes to path atomically. The file carries a
// header with the payload length and an xxHash64 checksum, so a crashed or
// tampered snapshot is detected on restore. The write goes through a temp
// file and rename; path never holds a torn snapshot.
func Snapshot(path string, region []byte) error {
	buf := make([]byte, snapshotHeaderSize+len(region))

	copy(buf[offMagic:], snapshotMagic)
	binary.LittleEndian.PutUint32(buf[offVersion:], snapshotVersion)
	binary.LittleEndian.PutUint64(buf[offLength:], uint64(len(region)))
	binary.LittleEndian.PutUint64(buf[offChecksum:], xxhash.Sum64(region))
	copy(buf[snapshotHeaderSize:], region)

	if err := atomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}

	return nil
}

// Restore reads a snapshot file and returns the region bytes it holds.
func Restore(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	if len(buf) < snapshotHeaderSize {
		return nil, fmt.Errorf("snapshot %s is %d bytes, shorter than its header: %w",
			path, len(buf), ErrBadSnapshot)
	}

	if !bytes.Equal(buf[offMagic:offMagic+4], []byte(snapshotMagic)) {
		return nil, fmt.Errorf("snapshot %s has magic %q: %w", path, buf[offMagic:offMagic+4], ErrBadSnapshot)
	}

	if v := binary.LittleEndian.Uint32(buf[offVersion:]); v != snapshotVersion {
		return nil, fmt.Errorf("snapshot %s has version %d, expected %d: %w",
			path, v, snapshotVersion, ErrBadSnapshot)
	}

	length := binary.LittleEndian.Uint64(buf[offLength:])
	payload := buf[snapshotHeaderSize:]

	if uint64(len(payload)) != length {
		return nil, fmt.Errorf("snapshot %s payload is %d bytes, header says %d: %w",
			path, len(payload), length, ErrBadSnapshot)
	}

	if sum := xxhash.Sum64(payload); sum != binary.LittleEndian.Uint64(buf[offChecksum:]) {
		return nil, fmt.Errorf("snapshot %s checksum mismatch: %w", path, ErrBadSnapshot)
	}

	return payload, nil
}
