package vdl2

// SPDX-FileCopyrightText: 2002 Phil Karn, KA9Q
// SPDX-FileCopyrightText: The Husky Authors

// -----------------------------------------------------------------------
//
// Reed-Solomon codec for the VDL2 data blocks.
//
// VDL2 uses RS(255,249) over GF(2^8).  Each block carries up to 249 data
// octets and 6 check octets.  The last block of a burst may be shorter,
// in which case fewer check octets are sent (see rs_parity_len).
//
// The codec routines are based on work performed by Phil Karn, who
// released his code under the GPL.
//
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

const (
	RS_N      = 255
	RS_K      = 249
	RS_NROOTS = RS_N - RS_K
)

// Symbols are always 8 bits here.  Zero has no logarithm; RS_N stands in for it
// in index form.

type rs_t struct {
	nn       uint   // Symbols per block.
	alpha_to []byte // Antilog: index form to value.
	index_of []byte // Log: value to index form.
	genpoly  []byte // Generator polynomial, index form, lowest power first.
	nroots   uint   // Check symbols per block.
	fcr      byte   // First consecutive root, index form.
	prim     byte   // Step between roots, index form.
	iprim    byte   // prim-th root of 1, index form.
}

// Field polynomial x^8 + x^7 + x^2 + x + 1, first root 120.
var vdl2_rs = func() *rs_t {
	var rs, err = new_rs_codec(0x187, 120, 1, RS_NROOTS)
	if err != nil {
		panic(err)
	}
	return rs
}()

// x mod 255, without a division.
func modnn(_ *rs_t, x int) int {
	for x >= RS_N {
		x -= RS_N
		x = (x >> 8) + (x & RS_N)
	}
	return x
}

func (rs *rs_t) gf_mul(a byte, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return rs.alpha_to[modnn(rs, int(rs.index_of[a])+int(rs.index_of[b]))]
}

/*-------------------------------------------------------------
 *
 * Name:	new_rs_codec
 *
 * Purpose:	Build the field tables and generator polynomial.
 *
 * Inputs:	gfpoly	- Field generator polynomial, x^8 term included.
 *		fcr	- First consecutive root of the generator, index form.
 *		prim	- Primitive element used to step between roots.
 *		nroots	- Number of check symbols.
 *
 *--------------------------------------------------------------*/

func new_rs_codec(gfpoly int, fcr int, prim int, nroots int) (*rs_t, error) {
	if fcr < 0 || fcr > RS_N || prim <= 0 || prim > RS_N || nroots <= 0 || nroots >= RS_N {
		return nil, fmt.Errorf("%w: RS fcr %d prim %d nroots %d", ErrUnsupported, fcr, prim, nroots)
	}

	var rs = &rs_t{
		nn:       RS_N,
		alpha_to: make([]byte, RS_N+1),
		index_of: make([]byte, RS_N+1),
		genpoly:  make([]byte, nroots+1),
		nroots:   uint(nroots),
		fcr:      byte(fcr),
		prim:     byte(prim),
		iprim:    0,
	}

	rs.index_of[0] = RS_N
	var x = 1
	for power := range RS_N {
		if power > 0 && x == 1 {
			return nil, fmt.Errorf("%w: field polynomial 0x%x is not primitive", ErrUnsupported, gfpoly)
		}
		rs.alpha_to[power] = byte(x)
		rs.index_of[x] = byte(power)
		x <<= 1
		if x > RS_N {
			x ^= gfpoly
		}
	}
	if x != 1 {
		return nil, fmt.Errorf("%w: field polynomial 0x%x is not primitive", ErrUnsupported, gfpoly)
	}

	for k := 1; k <= RS_N; k++ {
		if k*prim%RS_N == 1 {
			rs.iprim = byte(k)
			break
		}
	}

	// Multiply out (x + alpha^((fcr+i)*prim)) one factor at a time.
	var g = rs.genpoly
	g[0] = 1
	for i := range nroots {
		var root = rs.alpha_to[modnn(rs, (fcr+i)*prim)]
		for j := i + 1; j > 0; j-- {
			g[j] = g[j-1] ^ rs.gf_mul(g[j], root)
		}
		g[0] = rs.gf_mul(g[0], root)
	}

	// The encoder works in index form.
	for i, c := range g {
		g[i] = rs.index_of[c]
	}

	return rs, nil
}

/*-------------------------------------------------------------
 *
 * Name:	rs_parity_len
 *
 * Purpose:	Number of check octets sent for a block.
 *
 * Inputs:	blen	- Number of data octets in the block.
 *
 * Description:	Full blocks get all 6.  A short last block gets
 *		fewer, the missing ones are treated as erasures
 *		by the receiver.
 *
 *--------------------------------------------------------------*/

func rs_parity_len(blen int) int {
	switch {
	case blen < 3:
		return 0
	case blen < 31:
		return 2
	case blen < 68:
		return 4
	default:
		return 6
	}
}
