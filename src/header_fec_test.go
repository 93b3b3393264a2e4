package vdl2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHeaderEncodeSyndromeZero(t *testing.T) {
	for _, length := range []uint32{0, 1, 8, 1000, 0x1fff, 0x1ffff} {
		var h = header_encode(length)
		assert.Zero(t, header_syndrome(h), "length %d", length)
		assert.Zero(t, h&HDR_RESERVED_MASK)
		assert.Equal(t, length, header_length(h))
	}
}

func TestHeaderFECCleanHeader(t *testing.T) {
	var h = header_encode(1234)

	var got, nfixed, ok = header_fec_correct(h)
	require.True(t, ok)
	assert.Equal(t, h, got)
	assert.Zero(t, nfixed)
}

func TestHeaderFECSingleBitErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var length = rapid.Uint32Range(0, (1<<HDR_TRLEN)-1).Draw(t, "length")
		var bit = rapid.IntRange(0, HEADER_LEN-1).Draw(t, "bit")

		var h = header_encode(length)
		var got, nfixed, ok = header_fec_correct(h ^ (1 << bit))

		if !ok {
			t.Fatalf("single bit error at %d not corrected", bit)
		}
		if header_length(got) != length {
			t.Fatalf("length %d came back as %d", length, header_length(got))
		}
		// A flipped reserved bit is fixed by forcing, not by the syndrome.
		if bit < HDR_TRLEN+HDR_FEC_LEN && nfixed != 1 {
			t.Fatalf("expected 1 bit fixed, got %d", nfixed)
		}
	})
}

func TestHeaderFECReservedForcedToZero(t *testing.T) {
	var h = header_encode(42) | HDR_RESERVED_MASK

	var got, nfixed, ok = header_fec_correct(h)
	require.True(t, ok)
	assert.Zero(t, nfixed)
	assert.Equal(t, uint32(42), header_length(got))
}

func TestHeaderSyndromeTableCoversEverySingleBit(t *testing.T) {
	// Every data and parity bit has its own non-zero syndrome.
	var seen = map[uint32]int{}
	for bit := range HDR_TRLEN + HDR_FEC_LEN {
		var s = header_syndrome(1 << bit)
		require.NotZero(t, s, "bit %d", bit)
		_, dup := seen[s]
		require.False(t, dup, "bit %d shares syndrome with bit %d", bit, seen[s])
		seen[s] = bit
		assert.Equal(t, uint32(1)<<bit, header_syndrome_table[s])
	}
}

func TestHeaderSyndromeTableEveryEntry(t *testing.T) {
	for s := range uint32(len(header_syndrome_table)) {
		var pattern = header_syndrome_table[s]
		require.Equal(t, s, header_syndrome(pattern), "syndrome %d", s)

		for _, length := range []uint32{0, 1, 1234, 0x15555, 0x1ffff} {
			var h = header_encode(length)
			var got, nfixed, ok = header_fec_correct(h ^ pattern)
			require.True(t, ok, "syndrome %d length %d", s, length)
			assert.Equal(t, h, got, "syndrome %d length %d", s, length)

			// Reserved bit errors vanish before the syndrome is taken.
			if pattern&HDR_RESERVED_MASK == 0 {
				assert.Equal(t, popcount32(pattern), nfixed, "syndrome %d", s)
			} else {
				assert.Zero(t, nfixed, "syndrome %d", s)
			}
		}
	}

	// Six entries fix bit 0 together with one other bit.
	var doubles = 0
	for _, pattern := range header_syndrome_table {
		if popcount32(pattern) == 2 && pattern&1 != 0 {
			doubles++
		}
	}
	assert.Equal(t, 6, doubles)
}
