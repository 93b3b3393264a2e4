package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Accumulate demodulated bits for one channel and hand
 *		them out in the orders the burst format needs.
 *
 * Description:	One bit per byte, values 0 and 1.  This wastes memory
 *		but makes descrambling, deinterleaving and unstuffing
 *		trivial to get right.
 *
 *------------------------------------------------------------------*/

type bitstream struct {
	buf []byte
	pos int // Next bit to be consumed.
}

func (bs *bitstream) reset() {
	bs.buf = bs.buf[:0]
	bs.pos = 0
}

func (bs *bitstream) append_bits(b []byte) {
	for _, v := range b {
		bs.buf = append(bs.buf, v&1)
	}
}

// Number of bits not yet consumed.
func (bs *bitstream) available() int {
	return len(bs.buf) - bs.pos
}

// Take the next n bits, or nil if there aren't that many.
func (bs *bitstream) take(n int) []byte {
	if n < 0 || bs.available() < n {
		return nil
	}

	var out = bs.buf[bs.pos : bs.pos+n]
	bs.pos += n

	return out
}

// First bit is the most significant.
func bits_to_word_msbfirst(b []byte) uint32 {
	Assert(len(b) <= 32)

	var w uint32
	for _, v := range b {
		w = (w << 1) | uint32(v&1)
	}

	return w
}

func word_to_bits_msbfirst(w uint32, n int) []byte {
	var out = make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte((w >> (n - 1 - i)) & 1)
	}
	return out
}

// Pack bits into octets, first bit of each group of 8 is the least significant.
// A trailing partial octet is zero filled.
func bits_to_octets_lsbfirst(b []byte) []byte {
	var out = make([]byte, (len(b)+7)/8)
	for i, v := range b {
		if v&1 != 0 {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func octets_to_bits_lsbfirst(p []byte) []byte {
	var out = make([]byte, 0, len(p)*8)
	for _, b := range p {
		for i := range 8 {
			out = append(out, (b>>i)&1)
		}
	}
	return out
}
