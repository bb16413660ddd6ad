package persistence

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// ResourceLockKey derives the 64-bit advisory lock key serializing
// check-then-write sequences for one (tenant, resource) pair. Different pairs
// hash to independent keys, so unrelated resources never contend; an FNV
// collision across pairs costs throughput, never correctness.
func ResourceLockKey(tenantID, resourceID uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write(tenantID[:])
	_, _ = h.Write([]byte{'/'})
	_, _ = h.Write(resourceID[:])
	return int64(h.Sum64())
}
