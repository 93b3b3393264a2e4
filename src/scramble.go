package vdl2

/*--------------------------------------------------------------------------------
 *
 * Purpose:	Scramble / descramble the VDL2 bit stream.
 *
 * Description:	15 bit LFSR, feedback polynomial x^15 + x + 1, restarted with
 *		a fixed seed at the beginning of each burst header.  The same
 *		register continues from the header into the data.
 *
 *		Scrambling is additive so the same function works both ways.
 *
 *--------------------------------------------------------------------------------*/

const LFSR_IV uint16 = 0x6959

func scramble_bit(in byte, state *uint16) byte {
	var bit = byte((*state ^ (*state >> 14)) & 1)
	*state = (*state >> 1) | (uint16(bit) << 14)
	return (in ^ bit) & 1
}

// Scramble or descramble, in place, a slice holding one bit per byte.

func scramble_bits(b []byte, state *uint16) {
	for i := range b {
		b[i] = scramble_bit(b[i], state)
	}
}
