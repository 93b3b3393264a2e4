package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Map between the transmitted octet order and RS blocks.
 *
 * Description:	Octets are sent column by column.  Each column holds
 *		one octet from each block (row), so a burst of noise
 *		gets spread over several blocks.  The last row may be
 *		shorter than the others, in which case it drops out of
 *		the rotation once its columns are used up.
 *
 *		The same walk serves both directions.  Data octets use
 *		columns 0 thru RS_K-1, check octets the columns after
 *		that.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
)

type block_matrix [][RS_N]byte

func interleave_walk(length int, rows int, fillwidth int, offset int, fn func(i int, row int, col int)) error {
	if rows == 0 || fillwidth == 0 {
		return fmt.Errorf("%w: interleaver with %d rows, fill width %d", ErrBadLength, rows, fillwidth)
	}
	if length > rows*fillwidth {
		return fmt.Errorf("%w: %d octets do not fit %d rows of %d", ErrBadLength, length, rows, fillwidth)
	}
	if fillwidth+offset > RS_N {
		return fmt.Errorf("%w: fill width %d at offset %d", ErrBadLength, fillwidth, offset)
	}

	var last_row_len = length % fillwidth
	if last_row_len == 0 {
		last_row_len = fillwidth
	}
	last_row_len += offset

	var row = 0
	var col = offset
	for i := 0; i < length; i++ {
		if row == rows-1 && col >= last_row_len {
			row = 0
			col++
		}

		fn(i, row, col)

		row++
		if row == rows {
			row = 0
			col++
		}
	}

	return nil
}

func deinterleave(in []byte, rows int, out block_matrix, fillwidth int, offset int) error {
	Assert(len(out) >= rows)

	return interleave_walk(len(in), rows, fillwidth, offset, func(i int, row int, col int) {
		out[row][col] = in[i]
	})
}

func interleave(in block_matrix, length int, rows int, fillwidth int, offset int) ([]byte, error) {
	var out = make([]byte, length)

	var err = interleave_walk(length, rows, fillwidth, offset, func(i int, row int, col int) {
		out[i] = in[row][col]
	})

	return out, err
}
