package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Build the bits of a VDL2 burst from AVLC frames.
 *
 * Description:	Exact inverse of the channel decoder, from the header
 *		onward.  There is no transmitter here; this is for
 *		generating test material.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math/rand/v2"
)

/*------------------------------------------------------------------
 *
 * Name:	EncodeBurst
 *
 * Inputs:	frames	- Complete AVLC frames, FCS included.
 *
 * Returns:	Scrambled header, data and check bits, one per byte.
 *
 *------------------------------------------------------------------*/

func EncodeBurst(frames [][]byte) ([]byte, error) {
	var pbits = hdlc_stuff_frames(frames)
	var datalen = len(pbits)

	if datalen >= 1<<HDR_TRLEN {
		return nil, fmt.Errorf("%w: %d bits will not fit in the header", ErrBadLength, datalen)
	}

	var payload = bits_to_octets_lsbfirst(pbits)
	var datalen_octets = len(payload)

	var full_blocks = datalen_octets / RS_K
	var last = datalen_octets % RS_K
	var num_blocks = full_blocks
	var last_parity = RS_NROOTS
	if last > 0 {
		num_blocks++
		last_parity = rs_parity_len(last)
	}

	var fec_octets = full_blocks*RS_NROOTS + IfThenElse(last > 0, last_parity, 0)
	if fec_octets == 0 {
		return nil, fmt.Errorf("%w: %d octets is too short for a burst", ErrTooShort, datalen_octets)
	}

	var blocks = make(block_matrix, num_blocks)
	for r := range blocks {
		copy(blocks[r][:RS_K], payload[r*RS_K:min((r+1)*RS_K, datalen_octets)])
		encode_rs_char(vdl2_rs, blocks[r][:RS_K], blocks[r][RS_K:])
	}

	var data, dataErr = interleave(blocks, datalen_octets, num_blocks, RS_K, 0)
	if dataErr != nil {
		return nil, dataErr
	}

	var fec_rows = IfThenElse(last_parity > 0, num_blocks, num_blocks-1)
	var fec, fecErr = interleave(blocks, fec_octets, fec_rows, RS_NROOTS, RS_K)
	if fecErr != nil {
		return nil, fecErr
	}

	var out = word_to_bits_msbfirst(header_encode(uint32(datalen)), HEADER_LEN)
	out = append(out, octets_to_bits_lsbfirst(data)...)
	out = append(out, octets_to_bits_lsbfirst(fec)...)

	var lfsr = LFSR_IV
	scramble_bits(out, &lfsr)

	return out, nil
}

// Add the FCS to a frame built without one.

func avlc_append_fcs(frame []byte) []byte {
	var fcs = avlc_fcs(frame)
	var out = make([]byte, 0, len(frame)+AVLC_FCS_LEN)
	out = append(out, frame...)
	return append(out, fcs[:]...)
}

// Flip n randomly chosen bits, for exercising the error correction.

func flip_random_bits(b []byte, n int, r *rand.Rand) {
	for range n {
		var i = r.IntN(len(b))
		b[i] ^= 1
	}
}
