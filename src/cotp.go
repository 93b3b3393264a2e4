package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	ISO 8073 connection oriented transport protocol.
 *
 * Description:	Several TPDUs may be concatenated in one network PDU.
 *		Each starts with a length indicator (header length less
 *		the LI octet itself) and a code octet.  DT, ED, CR, CC
 *		and DR run to the end of the buffer, so they can only
 *		be last, and only the last one can carry user data.
 *
 *		Fixed parts (class 2 to 4, normal format):
 *
 *		CR, CC	dst ref(2) src ref(2) class/options(1)
 *		DR	dst ref(2) src ref(2) reason(1)
 *		DC	dst ref(2) src ref(2)
 *		DT, ED	dst ref(2) EOT|TPDU-NR(1)
 *		AK, EA	dst ref(2) YR-TU-NR(1)
 *		RJ	dst ref(2) YR-TU-NR(1)
 *		ER	dst ref(2) reject cause(1)
 *
 *		A variable part of parameters may follow, up to LI.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

const (
	COTP_CR = 0xe0
	COTP_CC = 0xd0
	COTP_DR = 0x80
	COTP_DC = 0xc0
	COTP_DT = 0xf0
	COTP_ED = 0x10
	COTP_AK = 0x60
	COTP_EA = 0x20
	COTP_RJ = 0x50
	COTP_ER = 0x70
)

var cotp_tpdu_names = map[byte]string{
	COTP_CR: "Connect Request",
	COTP_CC: "Connect Confirm",
	COTP_DR: "Disconnect Request",
	COTP_DC: "Disconnect Confirm",
	COTP_DT: "Data",
	COTP_ED: "Expedited Data",
	COTP_AK: "Data Acknowledgement",
	COTP_EA: "Expedited Data Acknowledgement",
	COTP_RJ: "Reject",
	COTP_ER: "Error",
}

var cotp_dr_reasons = map[byte]string{
	0x00: "Reason not specified",
	0x01: "Congestion at TSAP",
	0x02: "Session entity not attached to TSAP",
	0x03: "Address unknown",
	0x80: "Normal disconnect initiated by session entity",
	0x81: "Remote transport entity congestion at connect time",
	0x82: "Connection negotiation failed",
	0x83: "Duplicate source reference detected",
	0x84: "Mismatched references",
	0x85: "Protocol error",
	0x87: "Reference overflow",
	0x88: "Connection request refused",
	0x8a: "Header or parameter length invalid",
}

var cotp_er_causes = map[byte]string{
	0x00: "Reason not specified",
	0x01: "Invalid parameter code",
	0x02: "Invalid TPDU type",
	0x03: "Invalid parameter value",
}

/*------------------------------------------------------------------
 *
 * Variable part parameters.  0xc1 is the calling TSAP in connection
 * set up, but the rejected TPDU in an ER, so there are two
 * dictionaries.
 *
 *------------------------------------------------------------------*/

// TPDU size is sent as log2.
func parse_cotp_tpdu_size(_ byte, buf []byte) (any, error) {
	if len(buf) != 1 || buf[0] < 7 || buf[0] > 13 {
		return nil, fmt.Errorf("%w: TPDU size", ErrBadLength)
	}
	return uint32(1) << buf[0], nil
}

// Preferred maximum TPDU size is in units of 128 octets.
func parse_cotp_pref_tpdu_size(_ byte, buf []byte) (any, error) {
	var v, err = tlv_parse_uint(0, buf)
	if err != nil {
		return nil, err
	}
	return v.(uint32) * 128, nil
}

func text_cotp_tsap(w *TextWriter, indent int, d *TagDescriptor, v any) {
	w.Line(indent, "%s: %s", d.Name, hex_string(v.([]byte)))
}

var cotp_connect_params = TagDict{
	{0xc1, &TagDescriptor{Label: "calling_tsap", Name: "Calling TSAP", Parse: tlv_parse_octets, Text: text_cotp_tsap}},
	{0xc2, &TagDescriptor{Label: "called_tsap", Name: "Called TSAP", Parse: tlv_parse_octets, Text: text_cotp_tsap}},
	{0xc0, &TagDescriptor{Label: "tpdu_size", Name: "TPDU size", Parse: parse_cotp_tpdu_size}},
	{0xf0, &TagDescriptor{Label: "pref_tpdu_size", Name: "Preferred max TPDU size", Parse: parse_cotp_pref_tpdu_size}},
	{0xc4, &TagDescriptor{Label: "version", Name: "Version", Parse: tlv_parse_uint8}},
	{0xc5, &TagDescriptor{Label: "protection", Name: "Protection parameters", Parse: tlv_parse_octets}},
	{0xc3, &TagDescriptor{Label: "checksum", Name: "Checksum", Parse: tlv_parse_uint16, Text: tlv_text_uint_hex}},
	{0xc6, &TagDescriptor{Label: "add_options", Name: "Additional option selection", Parse: tlv_parse_uint8, Text: tlv_text_uint_hex}},
	{0xc7, &TagDescriptor{Label: "alt_classes", Name: "Alternative protocol classes", Parse: tlv_parse_octets}},
	{0x85, &TagDescriptor{Label: "ack_time", Name: "Acknowledgement time (ms)", Parse: tlv_parse_uint16}},
	{0x86, &TagDescriptor{Label: "residual_error_rate", Name: "Residual error rate", Parse: tlv_parse_octets}},
	{0x87, &TagDescriptor{Label: "throughput", Name: "Throughput", Parse: tlv_parse_octets}},
	{0x88, &TagDescriptor{Label: "priority", Name: "Priority", Parse: tlv_parse_uint16}},
	{0x89, &TagDescriptor{Label: "transit_delay", Name: "Transit delay", Parse: tlv_parse_octets}},
	{0x8a, &TagDescriptor{Label: "subseq_num", Name: "Subsequence number", Parse: tlv_parse_uint16}},
	{0x8b, &TagDescriptor{Label: "reassign_time", Name: "Reassignment time (s)", Parse: tlv_parse_uint16}},
	{0x8c, &TagDescriptor{Label: "flow_ctl_confirm", Name: "Flow control confirmation", Parse: tlv_parse_octets}},
	{0xe0, &TagDescriptor{Label: "add_info", Name: "Additional information", Parse: tlv_parse_octets}},
}

var cotp_error_params = TagDict{
	{0xc1, &TagDescriptor{Label: "invalid_tpdu", Name: "Invalid TPDU", Parse: tlv_parse_octets}},
	{0xc3, &TagDescriptor{Label: "checksum", Name: "Checksum", Parse: tlv_parse_uint16, Text: tlv_text_uint_hex}},
}

type COTPTPDU struct {
	Code   byte
	Credit uint8 // CR, CC, AK, RJ.
	DstRef uint16
	SrcRef uint16 // CR, CC, DR, DC.

	Class   uint8 // CR, CC.
	Options uint8 // CR, CC.

	Reason byte // DR disconnect reason, ER reject cause.

	EOT   bool   // DT, ED.
	SeqNo uint32 // TPDU-NR for DT, ED.  YR-TU-NR for AK, EA, RJ.

	Params   []Tag
	UserData int // Octets of user data, handed to the next layer.
}

// One network PDU's worth of TPDUs.
type COTPConcatenated struct {
	TPDUs []*COTPTPDU
}

func cotp_is_final(code byte) bool {
	switch code {
	case COTP_DT, COTP_ED, COTP_CR, COTP_CC, COTP_DR:
		return true
	default:
		return false
	}
}

/*------------------------------------------------------------------
 *
 * Name:	parse_cotp_tpdu
 *
 * Returns:	The TPDU, octets consumed, and its user data (only
 *		for the kinds that carry it).
 *
 *------------------------------------------------------------------*/

func parse_cotp_tpdu(buf []byte) (*COTPTPDU, int, []byte, error) {
	if len(buf) < 2 {
		return nil, 0, nil, fmt.Errorf("%w: TPDU of %d octets", ErrTooShort, len(buf))
	}

	var li = int(buf[0])
	if li < 1 || li == 0xff || li+1 > len(buf) {
		return nil, 0, nil, fmt.Errorf("%w: TPDU length indicator %d, %d octets left", ErrBadLength, li, len(buf))
	}

	var t = &COTPTPDU{Code: buf[1] & 0xf0} //nolint:exhaustruct
	var hdr = buf[2 : li+1]

	var fixed int
	switch t.Code {
	case COTP_CR, COTP_CC, COTP_DR:
		fixed = 5
	case COTP_DC:
		fixed = 4
	case COTP_DT, COTP_ED, COTP_AK, COTP_EA, COTP_RJ, COTP_ER:
		fixed = 3
	default:
		return nil, 0, nil, fmt.Errorf("%w: TPDU code 0x%02x", ErrUnsupported, buf[1])
	}

	if len(hdr) < fixed {
		return nil, 0, nil, fmt.Errorf("%w: %s header of %d octets", ErrTooShort, cotp_tpdu_names[t.Code], len(hdr))
	}

	t.DstRef = binary.BigEndian.Uint16(hdr[0:2])

	switch t.Code {
	case COTP_CR, COTP_CC:
		t.Credit = buf[1] & 0x0f
		t.SrcRef = binary.BigEndian.Uint16(hdr[2:4])
		t.Class = hdr[4] >> 4
		t.Options = hdr[4] & 0x0f
	case COTP_DR:
		t.SrcRef = binary.BigEndian.Uint16(hdr[2:4])
		t.Reason = hdr[4]
	case COTP_DC:
		t.SrcRef = binary.BigEndian.Uint16(hdr[2:4])
	case COTP_DT, COTP_ED:
		t.EOT = hdr[2]&0x80 != 0
		t.SeqNo = uint32(hdr[2] & 0x7f)
	case COTP_AK, COTP_RJ:
		t.Credit = buf[1] & 0x0f
		t.SeqNo = uint32(hdr[2] & 0x7f)
	case COTP_EA:
		t.SeqNo = uint32(hdr[2] & 0x7f)
	case COTP_ER:
		t.Reason = hdr[2]
	}

	var vpart = hdr[fixed:]
	if len(vpart) > 0 {
		var dict = IfThenElse(t.Code == COTP_ER, cotp_error_params, cotp_connect_params)
		var params, err = ParseTags(vpart, dict, 1)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("%s variable part: %w", cotp_tpdu_names[t.Code], err)
		}
		t.Params = params
	}

	if !cotp_is_final(t.Code) {
		return t, li + 1, nil, nil
	}

	var user_data = buf[li+1:]
	t.UserData = len(user_data)
	return t, len(buf), user_data, nil
}

/*------------------------------------------------------------------
 *
 * Name:	ParseCOTP
 *
 * Purpose:	Decode all the TPDUs in a buffer.
 *
 * Returns:	One node holding the list.  Its Next is the application
 *		layer, when the last TPDU has user data.
 *
 *------------------------------------------------------------------*/

func ParseCOTP(buf []byte, downlink bool) (*ProtoNode, error) {
	var c = &COTPConcatenated{} //nolint:exhaustruct
	var user_data []byte

	for len(buf) > 0 {
		var t, n, ud, err = parse_cotp_tpdu(buf)
		if err != nil {
			return nil, fmt.Errorf("TPDU %d: %w", len(c.TPDUs)+1, err)
		}
		c.TPDUs = append(c.TPDUs, t)
		buf = buf[n:]
		user_data = ud
	}

	if len(c.TPDUs) == 0 {
		return nil, fmt.Errorf("%w: no TPDUs", ErrTooShort)
	}

	var next *ProtoNode
	if len(user_data) > 0 {
		next = decode_app(user_data, downlink)
	}

	return new_node("cotp", c, next), nil
}

/*------------------------------------------------------------------
 *
 * Rendering.
 *
 *------------------------------------------------------------------*/

func (t *COTPTPDU) Name() string {
	return cotp_tpdu_names[t.Code]
}

func lookup_reason(m map[byte]string, code byte) string {
	if s, ok := m[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown (0x%02x)", code)
}

func (t *COTPTPDU) FormatText(w *TextWriter, indent int) {
	w.Line(indent, "COTP %s:", t.Name())
	indent++

	switch t.Code {
	case COTP_CR, COTP_CC:
		w.Line(indent, "src_ref: 0x%04x dst_ref: 0x%04x credit: %d", t.SrcRef, t.DstRef, t.Credit)
		w.Line(indent, "Protocol class: %d Options: 0x%x", t.Class, t.Options)
	case COTP_DR:
		w.Line(indent, "src_ref: 0x%04x dst_ref: 0x%04x", t.SrcRef, t.DstRef)
		w.Line(indent, "Reason: %s", lookup_reason(cotp_dr_reasons, t.Reason))
	case COTP_DC:
		w.Line(indent, "src_ref: 0x%04x dst_ref: 0x%04x", t.SrcRef, t.DstRef)
	case COTP_DT, COTP_ED:
		w.Line(indent, "dst_ref: 0x%04x tpdu_seq: %d EoT: %d", t.DstRef, t.SeqNo, IfThenElse(t.EOT, 1, 0))
	case COTP_AK, COTP_RJ:
		w.Line(indent, "dst_ref: 0x%04x rseq: %d credit: %d", t.DstRef, t.SeqNo, t.Credit)
	case COTP_EA:
		w.Line(indent, "dst_ref: 0x%04x rseq: %d", t.DstRef, t.SeqNo)
	case COTP_ER:
		w.Line(indent, "dst_ref: 0x%04x", t.DstRef)
		w.Line(indent, "Reject cause: %s", lookup_reason(cotp_er_causes, t.Reason))
	}

	if len(t.Params) > 0 {
		FormatTagsText(w, indent, t.Params)
	}
}

func (t *COTPTPDU) FormatJSON() any {
	var m = map[string]any{
		"tpdu_code": t.Code,
		"tpdu_name": t.Name(),
		"dst_ref":   t.DstRef,
	}

	switch t.Code {
	case COTP_CR, COTP_CC:
		m["src_ref"] = t.SrcRef
		m["credit"] = t.Credit
		m["class"] = t.Class
		m["options"] = t.Options
	case COTP_DR:
		m["src_ref"] = t.SrcRef
		m["reason"] = t.Reason
		m["reason_descr"] = lookup_reason(cotp_dr_reasons, t.Reason)
	case COTP_DC:
		m["src_ref"] = t.SrcRef
	case COTP_DT, COTP_ED:
		m["tpdu_seq"] = t.SeqNo
		m["eot"] = t.EOT
	case COTP_AK, COTP_RJ:
		m["rseq"] = t.SeqNo
		m["credit"] = t.Credit
	case COTP_EA:
		m["rseq"] = t.SeqNo
	case COTP_ER:
		m["reject_cause"] = t.Reason
	}

	if len(t.Params) > 0 {
		m["params"] = FormatTagsJSON(t.Params)
	}
	return m
}

func (c *COTPConcatenated) FormatText(w *TextWriter, indent int) {
	for _, t := range c.TPDUs {
		t.FormatText(w, indent)
	}
}

// Always a list, even for a single TPDU.
func (c *COTPConcatenated) FormatJSON() any {
	var list = make([]any, 0, len(c.TPDUs))
	for _, t := range c.TPDUs {
		list = append(list, t.FormatJSON())
	}
	return map[string]any{"tpdus": list}
}
