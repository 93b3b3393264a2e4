package vdl2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func rs_test_block(data []byte) [RS_N]byte {
	var block [RS_N]byte
	copy(block[:RS_K], data)
	encode_rs_char(vdl2_rs, block[:RS_K], block[RS_K:])
	return block
}

func TestRSEncodeIsCodeword(t *testing.T) {
	var block = rs_test_block([]byte("The quick brown fox jumps over the lazy dog"))

	assert.True(t, rs_is_codeword(vdl2_rs, block[:]))

	block[3] ^= 0x55
	assert.False(t, rs_is_codeword(vdl2_rs, block[:]))
}

func TestRSParityLen(t *testing.T) {
	assert.Equal(t, 0, rs_parity_len(1))
	assert.Equal(t, 0, rs_parity_len(2))
	assert.Equal(t, 2, rs_parity_len(3))
	assert.Equal(t, 2, rs_parity_len(30))
	assert.Equal(t, 4, rs_parity_len(31))
	assert.Equal(t, 4, rs_parity_len(67))
	assert.Equal(t, 6, rs_parity_len(68))
	assert.Equal(t, 6, rs_parity_len(RS_K))
}

func TestRSCodecTables(t *testing.T) {
	for i := range RS_N {
		assert.Equal(t, byte(i), vdl2_rs.index_of[vdl2_rs.alpha_to[i]])
	}
	assert.Equal(t, byte(1), vdl2_rs.gf_mul(vdl2_rs.alpha_to[7], vdl2_rs.alpha_to[RS_N-7]))
	assert.Len(t, vdl2_rs.genpoly, RS_NROOTS+1)

	// AES field polynomial: irreducible, but 2 only has order 51.
	var _, err = new_rs_codec(0x11b, 120, 1, RS_NROOTS)
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = new_rs_codec(0x187, 120, 0, RS_NROOTS)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestRSVerifyClean(t *testing.T) {
	var block = rs_test_block([]byte{1, 2, 3, 4, 5})

	var n, err = rs_verify(block[:], RS_NROOTS)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRSVerifyCorrectsUpToThree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var data = rapid.SliceOfN(rapid.Byte(), 1, RS_K).Draw(t, "data")
		var nerr = rapid.IntRange(0, RS_NROOTS/2).Draw(t, "nerr")
		var positions = rapid.SliceOfNDistinct(rapid.IntRange(0, RS_N-1), nerr, nerr, rapid.ID[int]).Draw(t, "positions")

		var want = rs_test_block(data)
		var block = want
		for _, p := range positions {
			block[p] ^= 0xa5
		}

		var n, err = rs_verify(block[:], RS_NROOTS)
		if err != nil {
			t.Fatalf("rs_verify: %v", err)
		}
		if n != nerr {
			t.Fatalf("corrected %d, expected %d", n, nerr)
		}
		if block != want {
			t.Fatalf("block not restored")
		}
	})
}

func TestRSVerifyShortParity(t *testing.T) {
	// A short last block sends only some check octets.  The rest are
	// erasures and don't count as corrections.
	for _, plen := range []int{2, 4} {
		var want = rs_test_block([]byte("short block"))
		var block = want
		for i := plen; i < RS_NROOTS; i++ {
			block[RS_K+i] = 0
		}
		block[0] ^= 0xff

		var n, err = rs_verify(block[:], plen)
		require.NoError(t, err, "parity %d", plen)
		assert.Equal(t, 1, n, "parity %d", plen)
		assert.Equal(t, want[:RS_K], block[:RS_K])
	}
}

func TestRSVerifyNoParity(t *testing.T) {
	var block [RS_N]byte
	block[0] = 0x99

	var n, err = rs_verify(block[:], 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRSVerifyTooManyErrors(t *testing.T) {
	var want = rs_test_block([]byte("too many errors to fix"))
	var block = want
	for i := range 10 {
		block[i*7] ^= 0x3c
	}

	// Either the damage is detected or the block lands on some other
	// codeword.  It can never come back as the original.
	var _, err = rs_verify(block[:], RS_NROOTS)
	if err != nil {
		assert.ErrorIs(t, err, ErrRSFailed)
	} else {
		assert.NotEqual(t, want, block)
	}
}
