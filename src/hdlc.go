package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	HDLC style framing inside a VDL2 burst.
 *
 * Description:	After FEC, the burst body is a bit stream holding one
 *		or more AVLC frames separated by 0x7e flags.  Adjacent
 *		frames may share a single flag.  Within a frame a zero
 *		is inserted after every run of five ones.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
)

const HDLC_FLAG byte = 0x7e

/*------------------------------------------------------------------
 *
 * Name:	hdlc_unstuff_frames
 *
 * Purpose:	Split the bit stream at flags and remove bit stuffing.
 *
 * Inputs:	in	- One bit per byte, in transmission order.
 *			  Octets are sent least significant bit first.
 *
 * Returns:	Frames found, each including its FCS.
 *		Error if seven ones are seen, or a frame ends at a
 *		flag without being a whole number of octets.  Frames
 *		completed before the error are still returned.
 *
 *------------------------------------------------------------------*/

func hdlc_unstuff_frames(in []byte) ([][]byte, error) {
	var pat_det byte = 0 // Pattern detector.
	var oacc byte = 0    // Accumulator for a byte out.
	var olen = 0         // Number of good bits in oacc.
	var in_frame = false // A flag has been seen.

	var frames [][]byte
	var frame_buf []byte

	for i, dbit := range in {
		dbit &= 1

		pat_det >>= 1 // Shift the most recent eight bits thru the pattern detector.
		pat_det |= dbit << 7

		if pat_det == 0xfe {
			return frames, fmt.Errorf("%w: seven '1' bits in a row at bit %d", ErrStuffing, i)
		}

		if dbit != 0 {
			oacc >>= 1
			oacc |= 0x80
		} else {
			if pat_det == HDLC_FLAG {
				if in_frame && len(frame_buf) > 0 {
					if olen != 7 {
						return frames, fmt.Errorf("%w: frame ending at bit %d is not a whole number of bytes", ErrStuffing, i)
					}
					frames = append(frames, frame_buf)
				}

				in_frame = true
				frame_buf = nil
				oacc = 0
				olen = 0

				continue
			} else if (pat_det >> 2) == 0x1f {
				continue // Five '1' bits in a row, followed by '0'.  Discard the '0'.
			}

			oacc >>= 1
		}

		olen++
		if olen&8 != 0 {
			olen = 0

			if in_frame {
				frame_buf = append(frame_buf, oacc)
			}
		}
	}

	// Anything after the last flag is padding.

	return frames, nil
}

/*------------------------------------------------------------------
 *
 * Name:	hdlc_stuff_frames
 *
 * Purpose:	Inverse of hdlc_unstuff_frames, for generating bursts.
 *
 * Inputs:	frames	- Complete frames including FCS.
 *
 * Returns:	One bit per byte.  Flag, frame, flag, frame, ... flag.
 *
 *------------------------------------------------------------------*/

func hdlc_stuff_frames(frames [][]byte) []byte {
	var outBits []byte

	var add_flag = func() {
		for i := range 8 {
			outBits = append(outBits, (HDLC_FLAG>>i)&1)
		}
	}

	add_flag()

	for _, f := range frames {
		var ones = 0
		for _, b := range f {
			for i := range 8 {
				var v = (b >> i) & 1
				outBits = append(outBits, v)

				if v != 0 {
					ones++
					if ones == 5 {
						outBits = append(outBits, 0)
						ones = 0
					}
				} else {
					ones = 0
				}
			}
		}

		add_flag()
	}

	return outBits
}
