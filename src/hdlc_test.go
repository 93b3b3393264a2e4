package vdl2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHDLCStuffUnstuffRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var frames = rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 1, 64), 1, 4).Draw(t, "frames")

		var got, err = hdlc_unstuff_frames(hdlc_stuff_frames(frames))
		if err != nil {
			t.Fatalf("unstuff: %v", err)
		}
		if len(got) != len(frames) {
			t.Fatalf("got %d frames, want %d", len(got), len(frames))
		}
		for i := range frames {
			assert.Equal(t, frames[i], got[i])
		}
	})
}

func TestHDLCStuffInsertsZeros(t *testing.T) {
	var bits = hdlc_stuff_frames([][]byte{{0xff}})

	// Flag, eight ones with a zero after the fifth, flag.
	require.Len(t, bits, 8+9+8)
	assert.Equal(t, []byte{1, 1, 1, 1, 1, 0, 1, 1, 1}, bits[8:17])
}

func TestHDLCSevenOnes(t *testing.T) {
	var bits = hdlc_stuff_frames([][]byte{{0x12, 0x34}})
	bits = append(bits, 1, 1, 1, 1, 1, 1, 1)

	var frames, err = hdlc_unstuff_frames(bits)
	assert.ErrorIs(t, err, ErrStuffing)

	// The frame before the abort is kept.
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x12, 0x34}, frames[0])
}

func TestHDLCPartialOctet(t *testing.T) {
	var bits = hdlc_stuff_frames(nil)
	bits = append(bits, 1, 0, 1)
	bits = append(bits, hdlc_stuff_frames(nil)...)

	var frames, err = hdlc_unstuff_frames(bits)
	assert.ErrorIs(t, err, ErrStuffing)
	assert.Empty(t, frames)
}

func TestHDLCNoFlag(t *testing.T) {
	var frames, err = hdlc_unstuff_frames(octets_to_bits_lsbfirst([]byte{0x01, 0x02, 0x03}))
	require.NoError(t, err)
	assert.Empty(t, frames)
}
