package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Check sequences used on the link.
 *
 * Description:	AVLC uses the usual HDLC frame check sequence,
 *		CRC-16/CCITT with initial value 0xffff, reflected, and
 *		the ones complement sent low octet first.  Running the
 *		same CRC over the frame including its FCS leaves the
 *		fixed residue 0xf0b8 when the frame is intact.
 *
 *		ACARS block check is CRC-16/KERMIT, also sent low
 *		octet first.
 *
 *------------------------------------------------------------------*/

import (
	"github.com/sigurn/crc16"
)

const AVLC_FCS_LEN = 2

const crcGood uint16 = 0xf0b8

var fcsTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)

var acarsTable = crc16.MakeTable(crc16.CRC16_KERMIT)

// True if buf, which ends with its 2 FCS octets, has the good residue.

func avlc_fcs_ok(buf []byte) bool {
	if len(buf) < AVLC_FCS_LEN {
		return false
	}

	var crc = crc16.Init(fcsTable)
	crc = crc16.Update(crc, buf, fcsTable)

	return crc16.Complete(crc, fcsTable) == crcGood
}

// FCS octets to append to a frame, in transmission order.

func avlc_fcs(frame []byte) [AVLC_FCS_LEN]byte {
	var crc = ^crc16.Checksum(frame, fcsTable)
	return [AVLC_FCS_LEN]byte{byte(crc), byte(crc >> 8)}
}

func acars_crc(buf []byte) uint16 {
	return crc16.Checksum(buf, acarsTable)
}
