package vdl2

import (
	"fmt"
	"math"
	"math/bits"
	"runtime"
)

// Because sometimes it's really convenient to have C's ternary ?:
func IfThenElse[T any](x bool, a T, b T) T { //nolint:ireturn
	if x {
		return a
	} else {
		return b
	}
}

// Used for the network JSON feed.
const MAX_NET_CLIENTS = 8

// Reverse the order of the lowest numbits bits of v.
// VDL2 sends octets LSB first, so most multi-bit fields arrive mirrored.
func reverse(v uint32, numbits int) uint32 {
	return bits.Reverse32(v) >> (32 - numbits)
}

// Odd parity check used by ACARS.  True if the octet has an odd number of ones.
func odd_parity(b byte) bool {
	return bits.OnesCount8(b)&1 == 1
}

// Population parity of a 32 bit word.
func parity32(v uint32) uint32 {
	return uint32(bits.OnesCount32(v) & 1)
}

// Sign extend the lowest numbits bits of v.
func sign_extend(v uint32, numbits int) int {
	var shift = 32 - numbits
	return int(int32(v<<shift) >> shift)
}

func D2R(d float64) float64 {
	return d * math.Pi / 180
}

func R2D(r float64) float64 {
	return r * 180 / math.Pi
}

// Can't be "assert" because of conflicts with stretchr/testify/assert, but otherwise, it's compatible enough
func Assert(t bool) {
	if !t {
		_, file, line, _ := runtime.Caller(1)
		panic(fmt.Sprintf("Assertion failed at %s:%d", file, line))
	}
}

func popcount32(v uint32) int {
	return bits.OnesCount32(v)
}
