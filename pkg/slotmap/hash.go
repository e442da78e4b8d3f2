package slotmap

import (
	"crypto/md5" //nolint:gosec // format-mandated fingerprint, not authentication

	"github.com/spaolacci/murmur3"
)

// mix32 is the bucket-placement hash: MurmurHash3 x86 32-bit with seed 0.
// It is a fixed format parameter; regions are only portable between
// implementations that agree on it.
func mix32(key []byte) uint32 {
	return murmur3.Sum32(key)
}

// fingerprint digests the full key into the 16 bytes stored alongside
// truncated keys. Also a fixed format parameter.
func fingerprint(key []byte) [fingerprintSize]byte {
	return md5.Sum(key) //nolint:gosec
}

// home returns the slot index a key prefers: mix32(key) mod capacity.
func (t *Table) home(key []byte) int {
	return int(mix32(key) % uint32(t.capacity))
}
