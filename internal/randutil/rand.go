// Package randutil derives reproducible shuffle sources from a single seed.
package randutil

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a PCG source seeded from seed.
func New(seed int64) *mrand.Rand {
	return Stream(seed, 0)
}

// Stream returns the n-th independent source derived from seed. Tables in a
// simulation take one stream each so a run replays identically whatever the
// goroutine schedule.
func Stream(seed int64, n int) *mrand.Rand {
	u := uint64(seed) + uint64(n)*goldenRatio64*2
	return mrand.New(mrand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seed returns a fresh random seed for runs that were not given one.
func Seed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return int64(mrand.Uint64())
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}

// splitmix64 finalizer
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
