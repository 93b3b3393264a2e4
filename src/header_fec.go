package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Error correction for the 25 bit burst header.
 *
 * Description:	The header, most significant bit first on the air, is
 *
 *		 24  22 21             5 4     0
 *		+------+----------------+-------+
 *		| rsvd | length (LSB 1st)| parity|
 *		+------+----------------+-------+
 *
 *		Parity is a linear block code.  Each of the 5 parity
 *		check masks below gives one syndrome bit as the parity
 *		of (header & mask).  The parity columns form an identity
 *		so a transmitter computes them the same way, with the
 *		parity bits initially zero.
 *
 *		The syndrome indexes a table of the most likely error
 *		pattern.  Single bit errors anywhere, plus the double
 *		errors that remain distinguishable, are covered.
 *
 *------------------------------------------------------------------*/

const (
	HDR_RESERVED_LEN = 3
	HDR_TRLEN        = 17 // Transmission length field.
	HDR_FEC_LEN      = 5
	HEADER_LEN       = HDR_RESERVED_LEN + HDR_TRLEN + HDR_FEC_LEN

	HDR_RESERVED_MASK uint32 = 0x7 << (HDR_TRLEN + HDR_FEC_LEN)
	HDR_FEC_MASK      uint32 = (1 << HDR_FEC_LEN) - 1
)

var header_parity_check = [HDR_FEC_LEN]uint32{
	0b0000111111000011110110000,
	0b1000111000111011101101000,
	0b0110100110110111011100100,
	0b0101010101101110111100010,
	0b1011001011011101111100001,
}

var header_syndrome_table = [1 << HDR_FEC_LEN]uint32{
	0b0000000000000000000000000,
	0b0000000000000000000000001,
	0b0000000000000000000000010,
	0b0001000000000000000000000,
	0b0000000000000000000000100,
	0b0010000000000000000000000,
	0b0100000000000000000000000,
	0b0000000000000100000000000,
	0b0000000000000000000001000,
	0b1000000000000000000000000,
	0b0000000000001000000000001,
	0b0000000000001000000000000,
	0b0000000000010000000000001,
	0b0000000000010000000000000,
	0b0000000000100000000000000,
	0b0000000000000000001000000,
	0b0000000000000000000010000,
	0b0000000000000000000010001,
	0b0000000001000000000000001,
	0b0000000001000000000000000,
	0b0000000010000000000000001,
	0b0000000010000000000000000,
	0b0000000100000000000000000,
	0b0000000000000000010000000,
	0b0000001000000000000000001,
	0b0000001000000000000000000,
	0b0000010000000000000000000,
	0b0000000000000000100000000,
	0b0000100000000000000000000,
	0b0000000000000001000000000,
	0b0000000000000010000000000,
	0b0000000000000000000100000,
}

func header_syndrome(header uint32) uint32 {
	var syndrome uint32
	for i, mask := range header_parity_check {
		syndrome |= parity32(header&mask) << (HDR_FEC_LEN - 1 - i)
	}
	return syndrome
}

/*------------------------------------------------------------------
 *
 * Name:	header_fec_correct
 *
 * Purpose:	Apply the syndrome table to a received header.
 *
 * Inputs:	header	- 25 bit word as received.
 *
 * Returns:	corrected header.
 *		Number of bits flipped, 0 if the syndrome was zero.
 *		ok is false if the reserved bits are still not zero,
 *		meaning the error pattern was not one we can fix.
 *
 *------------------------------------------------------------------*/

func header_fec_correct(header uint32) (uint32, int, bool) {
	// Reserved bits are always zero.  Forcing them improves the odds.
	header &^= HDR_RESERVED_MASK

	var syndrome = header_syndrome(header)
	if syndrome == 0 {
		return header, 0, true
	}

	var pattern = header_syndrome_table[syndrome]
	header ^= pattern

	return header, popcount32(pattern), header&HDR_RESERVED_MASK == 0
}

// Build a header for a transmission length in bits.

func header_encode(length uint32) uint32 {
	Assert(length < 1<<HDR_TRLEN)

	var header = reverse(length, HDR_TRLEN) << HDR_FEC_LEN
	return header | header_syndrome(header)
}

// Extract transmission length, in bits, from a corrected header.

func header_length(header uint32) uint32 {
	return reverse((header>>HDR_FEC_LEN)&((1<<HDR_TRLEN)-1), HDR_TRLEN)
}
