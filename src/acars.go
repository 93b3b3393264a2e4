package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	ACARS messages carried in AVLC information frames.
 *
 * Description:	After the ff ff 01 signature (the 01 is the ACARS SOH)
 *		comes a plain ACARS block:
 *
 *		mode(1) reg(7) ack(1) label(2) block id(1)
 *		[ STX  [msg no(4) flight(6)] text ]  ETX|ETB
 *		[ CRC(2) DEL ]
 *
 *		Message number and flight id are only in downlinks.
 *		Everything before the CRC uses 7 bit characters with
 *		odd parity.  The CRC is CRC-16/KERMIT over mode through
 *		ETX, sent low octet first.
 *
 *		The text itself is not interpreted here.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	ACARS_STX = 0x02
	ACARS_ETX = 0x03
	ACARS_ETB = 0x17
	ACARS_DEL = 0x7f

	ACARS_HDR_LEN    = 12 // mode through block id.
	ACARS_MSGNUM_LEN = 4
	ACARS_FLIGHT_LEN = 6
)

type ACARSMessage struct {
	Mode    byte
	Reg     string
	Ack     byte
	Label   string
	BlockID byte
	MsgNum  string // Downlink only.
	Flight  string // Downlink only.
	Text    string
	More    bool // Ended with ETB, more blocks follow.
	CRC     bool // Block check present and good.
}

func ParseACARS(buf []byte, downlink bool) (*ProtoNode, error) {
	var body = buf

	var crc_present = len(body) > 0 && body[len(body)-1] == ACARS_DEL
	if crc_present {
		if len(body) < ACARS_HDR_LEN+1+2+1 {
			return nil, fmt.Errorf("%w: ACARS block of %d octets", ErrTooShort, len(body))
		}

		var data = body[:len(body)-3]
		var want = binary.LittleEndian.Uint16(body[len(body)-3 : len(body)-1])
		if got := acars_crc(data); got != want {
			return nil, fmt.Errorf("%w: ACARS CRC %04x, expected %04x", ErrBadFCS, got, want)
		}
		body = data
	}

	if len(body) < ACARS_HDR_LEN+1 {
		return nil, fmt.Errorf("%w: ACARS block of %d octets", ErrTooShort, len(body))
	}

	// Check and strip parity.
	var plain = make([]byte, len(body))
	for i, b := range body {
		if !odd_parity(b) {
			return nil, fmt.Errorf("%w: ACARS octet %d (0x%02x)", ErrBadParity, i, b)
		}
		plain[i] = b & 0x7f
	}

	var m = &ACARSMessage{ //nolint:exhaustruct
		Mode:    plain[0],
		Reg:     string(plain[1:8]),
		Ack:     plain[8],
		Label:   string(plain[9:11]),
		BlockID: plain[11],
		CRC:     crc_present,
	}

	switch plain[len(plain)-1] {
	case ACARS_ETX:
	case ACARS_ETB:
		m.More = true
	default:
		return nil, fmt.Errorf("%w: ACARS block does not end with ETX or ETB", ErrTruncated)
	}

	var rest = plain[ACARS_HDR_LEN : len(plain)-1]

	if len(rest) > 0 {
		if rest[0] != ACARS_STX {
			return nil, fmt.Errorf("%w: ACARS text does not start with STX", ErrBadLength)
		}
		rest = rest[1:]

		if downlink && len(rest) >= ACARS_MSGNUM_LEN+ACARS_FLIGHT_LEN {
			m.MsgNum = string(rest[:ACARS_MSGNUM_LEN])
			m.Flight = string(rest[ACARS_MSGNUM_LEN : ACARS_MSGNUM_LEN+ACARS_FLIGHT_LEN])
			rest = rest[ACARS_MSGNUM_LEN+ACARS_FLIGHT_LEN:]
		}

		m.Text = string(rest)
	}

	return new_node("acars", m, nil), nil
}

// Build an ACARS block, parity and CRC included.  For tests and burst generation.

func BuildACARS(m *ACARSMessage, downlink bool) []byte {
	var sb []byte
	sb = append(sb, m.Mode)
	sb = append(sb, fmt.Sprintf("%-7.7s", m.Reg)...)
	sb = append(sb, m.Ack)
	sb = append(sb, fmt.Sprintf("%-2.2s", m.Label)...)
	sb = append(sb, m.BlockID)

	var text = m.Text
	if downlink {
		text = fmt.Sprintf("%-4.4s%-6.6s", m.MsgNum, m.Flight) + text
	}
	if text != "" {
		sb = append(sb, ACARS_STX)
		sb = append(sb, text...)
	}
	sb = append(sb, IfThenElse[byte](m.More, ACARS_ETB, ACARS_ETX))

	for i, b := range sb {
		b &= 0x7f
		if !odd_parity(b) {
			b |= 0x80
		}
		sb[i] = b
	}

	var out = append([]byte{}, acars_signature...)
	out = append(out, sb...)
	out = binary.LittleEndian.AppendUint16(out, acars_crc(sb))
	return append(out, ACARS_DEL)
}

func (m *ACARSMessage) FormatText(w *TextWriter, indent int) {
	w.Line(indent, "ACARS:")
	indent++

	if m.Flight != "" {
		w.Line(indent, "Reg: %s Flight: %s", m.Reg, m.Flight)
	} else {
		w.Line(indent, "Reg: %s", m.Reg)
	}

	var ack = IfThenElse(m.Ack == 0x15, "!", string(m.Ack))
	w.Line(indent, "Mode: %c Label: %s Blk id: %c More: %d Ack: %s", m.Mode, m.Label, m.BlockID, IfThenElse(m.More, 1, 0), ack)

	if m.MsgNum != "" {
		w.Line(indent, "Msg num: %s", m.MsgNum)
	}

	if m.Text != "" {
		w.Line(indent, "Message:")
		for _, line := range strings.Split(strings.TrimRight(m.Text, "\r\n"), "\n") {
			w.Line(indent+1, "%s", strings.TrimRight(line, "\r"))
		}
	}
}

func (m *ACARSMessage) FormatJSON() any {
	var j = map[string]any{
		"mode":     string(m.Mode),
		"reg":      m.Reg,
		"label":    m.Label,
		"blk_id":   string(m.BlockID),
		"ack":      IfThenElse(m.Ack == 0x15, "!", string(m.Ack)),
		"more":     m.More,
		"crc_ok":   m.CRC,
		"msg_text": m.Text,
	}
	if m.Flight != "" {
		j["flight"] = m.Flight
	}
	if m.MsgNum != "" {
		j["msg_num"] = m.MsgNum
	}
	return j
}
