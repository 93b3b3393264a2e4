package vdl2

// SPDX-FileCopyrightText: 2002 Phil Karn, KA9Q
// SPDX-FileCopyrightText: The Husky Authors

// Phil Karn's original copyright notice:
/* Test the Reed-Solomon codecs
 * for various block sizes and with random data and random error patterns
 *
 * Copyright 2002 Phil Karn, KA9Q
 * May be used under the terms of the GNU General Public License (GPL)
 *
 */

/*-------------------------------------------------------------
 *
 * Name:	encode_rs_char
 *
 * Purpose:	Compute the check symbols for one block.
 *
 * Inputs:	data	- nn-nroots data symbols.
 *
 * Outputs:	parity	- nroots check symbols, sent after the data.
 *
 * Description:	Shift register division of data(x) * x^nroots by the
 *		generator.  What is left in the register is the parity.
 *
 *--------------------------------------------------------------*/

func encode_rs_char(rs *rs_t, data []byte, parity []byte) {
	var nroots = int(rs.nroots)
	var k = int(rs.nn) - nroots

	Assert(len(data) >= k)
	Assert(len(parity) >= nroots)

	var reg = parity[:nroots]
	clear(reg)

	for _, d := range data[:k] {
		var fb = rs.index_of[d^reg[0]]

		copy(reg, reg[1:])
		reg[nroots-1] = 0

		if uint(fb) == rs.nn {
			continue
		}
		for j := range nroots {
			reg[j] ^= rs.alpha_to[modnn(rs, int(fb)+int(rs.genpoly[nroots-1-j]))]
		}
	}
}
