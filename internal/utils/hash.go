package utils

import "hash/fnv"

// HashStringToUint64 returns the FNV-1a hash of s, used for deterministic
// stripe selection over string identifiers.
func HashStringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
