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

import (
	"fmt"
)

/*-------------------------------------------------------------
 *
 * Name:	decode_rs_char
 *
 * Purpose:	Berlekamp-Massey decoder with erasures.
 *
 * Inputs:	data	- nn symbols, corrected in place.
 *		eras_pos - Positions of known erasures.  On return
 *			  holds the positions that were corrected.
 *		no_eras	- Number of erasures.
 *
 * Returns:	Number of symbols corrected, including erasures,
 *		or -1 if the block could not be corrected.
 *
 *--------------------------------------------------------------*/

func decode_rs_char(rs *rs_t, data []byte, eras_pos []int, no_eras int) int {
	var nroots = int(rs.nroots)
	var nn = int(rs.nn)
	var A0 = nn
	var fcr = int(rs.fcr)
	var prim = int(rs.prim)
	var iprim = int(rs.iprim)

	Assert(len(data) >= nn)
	Assert(no_eras <= nroots && len(eras_pos) >= no_eras)

	var alpha_to = func(x int) int { return int(rs.alpha_to[x]) }
	var index_of = func(x int) int { return int(rs.index_of[x]) }
	var mod = func(x int) int { return modnn(rs, x) }

	var lambda = make([]int, nroots+1) // Err+Eras Locator poly
	var s = make([]int, nroots)        // syndrome poly
	var b = make([]int, nroots+1)
	var t = make([]int, nroots+1)
	var omega = make([]int, nroots+1)
	var root = make([]int, nroots)
	var reg = make([]int, nroots+1)
	var loc = make([]int, nroots)

	// form the syndromes; i.e., evaluate data(x) at roots of g(x)
	for i := 0; i < nroots; i++ {
		s[i] = int(data[0])
	}

	for j := 1; j < nn; j++ {
		for i := 0; i < nroots; i++ {
			if s[i] == 0 {
				s[i] = int(data[j])
			} else {
				s[i] = int(data[j]) ^ alpha_to(mod(index_of(s[i])+(fcr+i)*prim))
			}
		}
	}

	// Convert syndromes to index form, checking for nonzero condition
	var syn_error = 0
	for i := 0; i < nroots; i++ {
		syn_error |= s[i]
		s[i] = index_of(s[i])
	}

	if syn_error == 0 {
		// data[] is a codeword, nothing to correct
		return 0
	}

	lambda[0] = 1

	if no_eras > 0 {
		// Init lambda to be the erasure locator polynomial
		lambda[1] = alpha_to(mod(prim * (nn - 1 - eras_pos[0])))
		for i := 1; i < no_eras; i++ {
			var u = mod(prim * (nn - 1 - eras_pos[i]))
			for j := i + 1; j > 0; j-- {
				var tmp = index_of(lambda[j-1])
				if tmp != A0 {
					lambda[j] ^= alpha_to(mod(u + tmp))
				}
			}
		}
	}

	for i := 0; i < nroots+1; i++ {
		b[i] = index_of(lambda[i])
	}

	// Berlekamp-Massey algorithm to determine error+erasure locator polynomial
	var r = no_eras
	var el = no_eras
	for {
		r++
		if r > nroots {
			break
		}

		// Discrepancy at the r-th step in poly-form
		var discr_r = 0
		for i := 0; i < r; i++ {
			if lambda[i] != 0 && s[r-i-1] != A0 {
				discr_r ^= alpha_to(mod(index_of(lambda[i]) + s[r-i-1]))
			}
		}
		discr_r = index_of(discr_r)

		if discr_r == A0 {
			// B(x) <-- x*B(x)
			copy(b[1:], b[:nroots])
			b[0] = A0
		} else {
			// T(x) <-- lambda(x) - discr_r*x*b(x)
			t[0] = lambda[0]
			for i := 0; i < nroots; i++ {
				if b[i] != A0 {
					t[i+1] = lambda[i+1] ^ alpha_to(mod(discr_r+b[i]))
				} else {
					t[i+1] = lambda[i+1]
				}
			}

			if 2*el <= r+no_eras-1 {
				el = r + no_eras - el
				// B(x) <-- inv(discr_r) * lambda(x)
				for i := 0; i <= nroots; i++ {
					b[i] = IfThenElse(lambda[i] == 0, A0, mod(index_of(lambda[i])-discr_r+nn))
				}
			} else {
				// B(x) <-- x*B(x)
				copy(b[1:], b[:nroots])
				b[0] = A0
			}

			copy(lambda, t)
		}
	}

	// Convert lambda to index form and compute deg(lambda(x))
	var deg_lambda = 0
	for i := 0; i < nroots+1; i++ {
		lambda[i] = index_of(lambda[i])
		if lambda[i] != A0 {
			deg_lambda = i
		}
	}

	if deg_lambda == 0 {
		return -1
	}

	// Find roots of the error+erasure locator polynomial by Chien search
	copy(reg[1:], lambda[1:])
	var count = 0 // Number of roots of lambda(x)
	for i, k := 1, iprim-1; i <= nn; i, k = i+1, mod(k+iprim) {
		var q = 1 // lambda[0] is always 0
		for j := deg_lambda; j > 0; j-- {
			if reg[j] != A0 {
				reg[j] = mod(reg[j] + j)
				q ^= alpha_to(reg[j])
			}
		}
		if q != 0 {
			continue // Not a root
		}

		// store root (index-form) and error location number
		root[count] = i
		loc[count] = k

		// If we've already found max possible roots, abort the search to save time
		count++
		if count == deg_lambda {
			break
		}
	}

	if deg_lambda != count {
		// deg(lambda) unequal to number of roots => uncorrectable error detected
		return -1
	}

	// Compute err+eras evaluator poly omega(x) = s(x)*lambda(x) (modulo x**nroots). in index form.
	// Also find deg(omega).
	var deg_omega = 0
	for i := 0; i < nroots; i++ {
		var tmp = 0
		for j := min(deg_lambda, i); j >= 0; j-- {
			if s[i-j] != A0 && lambda[j] != A0 {
				tmp ^= alpha_to(mod(s[i-j] + lambda[j]))
			}
		}
		if tmp != 0 {
			deg_omega = i
		}
		omega[i] = index_of(tmp)
	}
	omega[nroots] = A0

	// Compute error values in poly-form.
	// num1 = omega(inv(X(l))), num2 = inv(X(l))**(fcr-1) and den = lambda_pr(inv(X(l)))
	for j := count - 1; j >= 0; j-- {
		var num1 = 0
		for i := deg_omega; i >= 0; i-- {
			if omega[i] != A0 {
				num1 ^= alpha_to(mod(omega[i] + i*root[j]))
			}
		}

		var num2 = alpha_to(mod(root[j]*(fcr-1) + nn))
		var den = 0

		// lambda[i+1] for i even is the formal derivative lambda_pr of lambda[i]
		for i := min(deg_lambda, nroots-1) &^ 1; i >= 0; i -= 2 {
			if lambda[i+1] != A0 {
				den ^= alpha_to(mod(lambda[i+1] + i*root[j]))
			}
		}

		if den == 0 {
			return -1
		}

		// Apply error to data
		if num1 != 0 {
			data[loc[j]] ^= byte(alpha_to(mod(index_of(num1) + index_of(num2) + nn - index_of(den))))
		}
	}

	for i := 0; i < count && i < len(eras_pos); i++ {
		eras_pos[i] = loc[i]
	}

	return count
}

// True if every syndrome of the block is zero.

func rs_is_codeword(rs *rs_t, data []byte) bool {
	var nroots = int(rs.nroots)
	for i := 0; i < nroots; i++ {
		var s = 0
		for j := 0; j < int(rs.nn); j++ {
			if s == 0 {
				s = int(data[j])
			} else {
				s = int(data[j]) ^ int(rs.alpha_to[modnn(rs, int(rs.index_of[s])+(int(rs.fcr)+i)*int(rs.prim))])
			}
		}
		if s != 0 {
			return false
		}
	}
	return true
}

/*-------------------------------------------------------------
 *
 * Name:	rs_verify
 *
 * Purpose:	Check and correct one received VDL2 block.
 *
 * Inputs:	block	 - RS_N octets.  Data in the first RS_K,
 *			   check octets in the rest.
 *		parity_len - How many check octets were actually
 *			   sent for this block.
 *
 * Returns:	Number of octets corrected, not counting the
 *		check octets that were never sent.
 *
 *--------------------------------------------------------------*/

func rs_verify(block []byte, parity_len int) (int, error) {
	Assert(len(block) == RS_N)
	Assert(parity_len >= 0 && parity_len <= RS_NROOTS)

	if parity_len == 0 {
		return 0, nil
	}

	var eras_pos [RS_NROOTS]int
	var no_eras = 0
	for i := parity_len; i < RS_NROOTS; i++ {
		block[RS_K+i] = 0
		eras_pos[no_eras] = RS_K + i
		no_eras++
	}

	var count = decode_rs_char(vdl2_rs, block, eras_pos[:], no_eras)
	if count < 0 || !rs_is_codeword(vdl2_rs, block) {
		return 0, fmt.Errorf("%w (%d check octets)", ErrRSFailed, parity_len)
	}

	return max(count-no_eras, 0), nil
}
