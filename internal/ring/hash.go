package ring

import "github.com/cespare/xxhash/v2"

// amplifyBits is how far a raw hash is shifted before it is reduced mod Range.
// The low bits of PJWHash track trailing characters too closely (keys like
// "a1234"), so they are pushed up before the modulo.
const amplifyBits = 5

// Hasher maps a key to a raw hash value.
type Hasher func(key string) uint32

// PJWHash is a 24-bit PJW string hash. Each byte is shifted in 4 bits at a
// time; whenever the top byte becomes non-zero it is cleared and folded back
// into the low byte.
func PJWHash(key string) uint32 {
	var h uint32
	for i := 0; i < len(key); i++ {
		h = h<<4 + uint32(key[i])
		if g := h & 0xff000000; g != 0 {
			h ^= g
			h ^= g >> 24
		}
	}
	return h
}

// XXHash hashes the key with xxHash64 and keeps the low 32 bits.
func XXHash(key string) uint32 {
	return uint32(xxhash.Sum64String(key))
}

// position reduces a raw hash onto the ring [0, size).
func position(h uint32, size int) int {
	return int((uint64(h) << amplifyBits) % uint64(size))
}
