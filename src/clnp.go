package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	ISO 8473 connectionless network protocol, and the
 *		LREF compressed form the ATN mobile SNDCF uses.
 *
 * Description:	Uncompressed header:
 *
 *		NLPID(1) length(1) version(1) lifetime(1)
 *		SP|MS|E/R|type(1) segment length(2) checksum(2)
 *		dst NSAP (length prefixed), src NSAP (length prefixed)
 *		[ data unit id(2) segment offset(2) total length(2) ]
 *		options, up to the header length
 *
 *		Data PDUs carry a COTP payload.  Error reports carry
 *		the header of the PDU that was discarded.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

const (
	CLNP_MIN_LEN = 9

	CLNP_DT  = 0x1c
	CLNP_ER  = 0x01
	CLNP_ERQ = 0x1e
	CLNP_ERP = 0x1f
)

var clnp_pdu_names = map[byte]string{
	CLNP_DT:  "Data",
	CLNP_ER:  "Error Report",
	CLNP_ERQ: "Echo Request",
	CLNP_ERP: "Echo Reply",
}

type CLNPHeader struct {
	Length   byte
	Version  byte
	Lifetime byte // Units of 500 ms.
	SP       bool // Segmentation permitted.
	MS       bool // More segments.
	ER       bool // Error report requested.
	Type     byte
	SegLen   uint16
	Checksum uint16

	Dst []byte
	Src []byte

	HasSegmentation bool
	DataUnitID      uint16
	SegOffset       uint16
	TotalLen        uint16

	Options []Tag
}

/*------------------------------------------------------------------
 *
 * Options.
 *
 *------------------------------------------------------------------*/

type clnp_route struct {
	Complete bool
	Offset   byte
	Addrs    [][]byte
}

func parse_clnp_route(_ byte, buf []byte) (any, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: route option of %d octets", ErrTooShort, len(buf))
	}

	var r = clnp_route{Complete: buf[0] == 0, Offset: buf[1]} //nolint:exhaustruct
	var rest = buf[2:]
	for len(rest) > 0 {
		var a, more, err = parse_lv(rest)
		if err != nil {
			return nil, err
		}
		r.Addrs = append(r.Addrs, a)
		rest = more
	}
	return r, nil
}

func text_clnp_route(w *TextWriter, indent int, d *TagDescriptor, v any) {
	var r = v.(clnp_route)
	w.Line(indent, "%s (%s):", d.Name, IfThenElse(r.Complete, "complete", "partial"))
	for _, a := range r.Addrs {
		w.Line(indent+1, "%s", format_nsap(a))
	}
}

func json_clnp_route(v any) any {
	var r = v.(clnp_route)
	var addrs = make([]string, 0, len(r.Addrs))
	for _, a := range r.Addrs {
		addrs = append(addrs, format_nsap(a))
	}
	return map[string]any{"complete": r.Complete, "offset": r.Offset, "addrs": addrs}
}

var clnp_discard_reasons = map[byte]string{
	0x00: "Reason not specified",
	0x01: "Protocol procedure error",
	0x02: "Incorrect checksum",
	0x03: "PDU discarded due to congestion",
	0x04: "Header syntax error",
	0x05: "Segmentation needed but not permitted",
	0x06: "Incomplete PDU received",
	0x07: "Duplicate option",
	0x80: "Destination address unreachable",
	0x81: "Destination address unknown",
	0x90: "Unspecified source routing error",
	0x91: "Syntax error in source routing field",
	0x92: "Unknown address in source routing field",
	0x93: "Path not acceptable",
	0xa0: "Lifetime expired while data unit in transit",
	0xa1: "Lifetime expired during reassembly",
	0xb0: "Unsupported option not specified",
	0xb1: "Unsupported protocol version",
	0xb2: "Unsupported security option",
	0xb3: "Unsupported source routing option",
	0xb4: "Unsupported recording of route option",
	0xc0: "Reassembly interference",
}

type clnp_discard struct {
	Code    byte
	Pointer byte // Offset of the octet in error.
}

func (d clnp_discard) String() string {
	var name, ok = clnp_discard_reasons[d.Code]
	if !ok {
		name = "unknown"
	}
	return fmt.Sprintf("%s (0x%02x), error at octet %d", name, d.Code, d.Pointer)
}

func parse_clnp_discard(_ byte, buf []byte) (any, error) {
	if len(buf) != 2 {
		return nil, fmt.Errorf("%w: reason for discard of %d octets", ErrBadLength, len(buf))
	}
	return clnp_discard{Code: buf[0], Pointer: buf[1]}, nil
}

func parse_clnp_priority(_ byte, buf []byte) (any, error) {
	if len(buf) != 1 || buf[0] > 14 {
		return nil, fmt.Errorf("%w: priority", ErrBadLength)
	}
	return uint32(buf[0]), nil
}

var clnp_options = TagDict{
	{0xcc, &TagDescriptor{Label: "padding", Name: "Padding", Parse: tlv_parse_octets,
		Text: func(w *TextWriter, indent int, d *TagDescriptor, v any) {
			w.Line(indent, "%s: %d octets", d.Name, len(v.([]byte)))
		}}},
	{0xc5, &TagDescriptor{Label: "security", Name: "Security", Parse: parse_security_label_tag,
		Text: text_security_label, JSON: json_security_label}},
	{0xc8, &TagDescriptor{Label: "source_route", Name: "Source routing", Parse: parse_clnp_route,
		Text: text_clnp_route, JSON: json_clnp_route}},
	{0xcb, &TagDescriptor{Label: "record_route", Name: "Recording of route", Parse: parse_clnp_route,
		Text: text_clnp_route, JSON: json_clnp_route}},
	{0xc3, &TagDescriptor{Label: "qos", Name: "QoS maintenance", Parse: tlv_parse_octets}},
	{0xcd, &TagDescriptor{Label: "priority", Name: "Priority", Parse: parse_clnp_priority}},
	{0xc1, &TagDescriptor{Label: "discard_reason", Name: "Reason for discard", Parse: parse_clnp_discard,
		JSON: func(v any) any {
			var d = v.(clnp_discard)
			return map[string]any{"code": d.Code, "pointer": d.Pointer, "reason": d.String()}
		}}},
}

/*------------------------------------------------------------------
 *
 * Name:	ParseCLNP
 *
 * Purpose:	Decode an uncompressed CLNP PDU and whatever it carries.
 *
 *------------------------------------------------------------------*/

func ParseCLNP(buf []byte, downlink bool) (*ProtoNode, error) {
	if len(buf) < CLNP_MIN_LEN {
		return nil, fmt.Errorf("%w: CLNP PDU of %d octets", ErrTooShort, len(buf))
	}
	if buf[0] != NLPID_CLNP {
		return nil, fmt.Errorf("%w: NLPID 0x%02x is not CLNP", ErrUnsupported, buf[0])
	}

	var h = &CLNPHeader{ //nolint:exhaustruct
		Length:   buf[1],
		Version:  buf[2],
		Lifetime: buf[3],
		SP:       buf[4]&0x80 != 0,
		MS:       buf[4]&0x40 != 0,
		ER:       buf[4]&0x20 != 0,
		Type:     buf[4] & 0x1f,
		SegLen:   binary.BigEndian.Uint16(buf[5:7]),
		Checksum: binary.BigEndian.Uint16(buf[7:9]),
	}

	var hlen = int(h.Length)
	if hlen < CLNP_MIN_LEN || hlen > len(buf) {
		return nil, fmt.Errorf("%w: CLNP header length %d, PDU length %d", ErrBadLength, hlen, len(buf))
	}

	var hdr = buf[CLNP_MIN_LEN:hlen]
	var err error

	if h.Dst, hdr, err = parse_lv(hdr); err != nil {
		return nil, fmt.Errorf("CLNP destination address: %w", err)
	}
	if h.Src, hdr, err = parse_lv(hdr); err != nil {
		return nil, fmt.Errorf("CLNP source address: %w", err)
	}

	if h.SP {
		if len(hdr) < 6 {
			return nil, fmt.Errorf("%w: CLNP segmentation part", ErrTruncated)
		}
		h.HasSegmentation = true
		h.DataUnitID = binary.BigEndian.Uint16(hdr[0:2])
		h.SegOffset = binary.BigEndian.Uint16(hdr[2:4])
		h.TotalLen = binary.BigEndian.Uint16(hdr[4:6])
		hdr = hdr[6:]
	}

	if len(hdr) > 0 {
		if h.Options, err = ParseTags(hdr, clnp_options, 1); err != nil {
			return nil, fmt.Errorf("CLNP options: %w", err)
		}
	}

	var payload = buf[hlen:]
	var next *ProtoNode

	switch h.Type {
	case CLNP_DT:
		if h.SP && (h.MS || h.SegOffset != 0) {
			next = raw_node(payload, "Fragmented CLNP PDU, not reassembled")
		} else {
			next = parse_or_raw("COTP TPDU", payload, func(b []byte) (*ProtoNode, error) {
				return ParseCOTP(b, downlink)
			})
		}
	case CLNP_ER, CLNP_ERQ, CLNP_ERP:
		next = parse_or_raw("CLNP PDU", payload, func(b []byte) (*ProtoNode, error) {
			return ParseCLNP(b, downlink)
		})
	default:
		if len(payload) > 0 {
			next = raw_node(payload, "")
		}
	}

	return new_node("clnp", h, next), nil
}

func (h *CLNPHeader) TypeName() string {
	if n, ok := clnp_pdu_names[h.Type]; ok {
		return n
	}
	return fmt.Sprintf("unknown (0x%02x)", h.Type)
}

func (h *CLNPHeader) FormatText(w *TextWriter, indent int) {
	w.Line(indent, "CLNP %s:", h.TypeName())
	indent++

	w.Line(indent, "Src NSAP: %s", format_nsap(h.Src))
	w.Line(indent, "Dst NSAP: %s", format_nsap(h.Dst))
	w.Line(indent, "Lifetime: %.1f sec", float64(h.Lifetime)*0.5)
	w.Line(indent, "Flags: SP: %d MS: %d E/R: %d", IfThenElse(h.SP, 1, 0), IfThenElse(h.MS, 1, 0), IfThenElse(h.ER, 1, 0))
	w.Line(indent, "Segment length: %d", h.SegLen)
	w.Line(indent, "Checksum: 0x%04x", h.Checksum)

	if h.HasSegmentation {
		w.Line(indent, "PDU Id: 0x%04x Segment offset: %d Total length: %d", h.DataUnitID, h.SegOffset, h.TotalLen)
	}

	if len(h.Options) > 0 {
		w.Line(indent, "Options:")
		FormatTagsText(w, indent+1, h.Options)
	}
}

func (h *CLNPHeader) FormatJSON() any {
	var m = map[string]any{
		"pdu_type":      h.Type,
		"pdu_type_name": h.TypeName(),
		"src":           format_nsap(h.Src),
		"dst":           format_nsap(h.Dst),
		"lifetime":      float64(h.Lifetime) * 0.5,
		"sp":            h.SP,
		"ms":            h.MS,
		"er":            h.ER,
		"seg_len":       h.SegLen,
		"cksum":         h.Checksum,
	}
	if h.HasSegmentation {
		m["pdu_id"] = h.DataUnitID
		m["seg_offset"] = h.SegOffset
		m["total_pdu_len"] = h.TotalLen
	}
	if len(h.Options) > 0 {
		m["options"] = FormatTagsJSON(h.Options)
	}
	return m
}

/*------------------------------------------------------------------
 *
 * LREF compressed header.
 *
 *	octet 0:  type (3 bits) | EX (1 bit) | priority (4 bits)
 *	LREF:     1 or 2 octets.  Bit 7 of the first set means a
 *		  second octet follows, giving a 15 bit LREF.
 *	extension octet, if EX:
 *		  SP | E/R | lifetime (6 bits, units of 500 ms)
 *	PDU id (2), if SP
 *
 *	Type 0 is data, carrying COTP.  Type 1 is an error report,
 *	with the discard reason in the next octet.
 *
 *------------------------------------------------------------------*/

const (
	CLNP_COMPRESSED_DT = 0
	CLNP_COMPRESSED_ER = 1
)

type CLNPCompressedHeader struct {
	Type     byte
	Priority byte
	LREF     uint16

	HasExtension bool
	SP           bool
	ER           bool
	Lifetime     byte

	HasPDUID bool
	PDUID    uint16

	HasDiscard bool
	Discard    clnp_discard
}

func ParseCompressedCLNP(buf []byte, downlink bool) (*ProtoNode, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: compressed CLNP header of %d octets", ErrTooShort, len(buf))
	}

	var h = &CLNPCompressedHeader{ //nolint:exhaustruct
		Type:         buf[0] >> 5,
		HasExtension: buf[0]&0x10 != 0,
		Priority:     buf[0] & 0x0f,
	}
	var rest = buf[1:]

	if rest[0]&0x80 != 0 {
		if len(rest) < 2 {
			return nil, fmt.Errorf("%w: two octet LREF", ErrTruncated)
		}
		h.LREF = uint16(rest[0]&0x7f)<<8 | uint16(rest[1])
		rest = rest[2:]
	} else {
		h.LREF = uint16(rest[0])
		rest = rest[1:]
	}

	if h.HasExtension {
		if len(rest) < 1 {
			return nil, fmt.Errorf("%w: compressed CLNP extension octet", ErrTruncated)
		}
		h.SP = rest[0]&0x80 != 0
		h.ER = rest[0]&0x40 != 0
		h.Lifetime = rest[0] & 0x3f
		rest = rest[1:]

		if h.SP {
			if len(rest) < 2 {
				return nil, fmt.Errorf("%w: compressed CLNP PDU id", ErrTruncated)
			}
			h.HasPDUID = true
			h.PDUID = binary.BigEndian.Uint16(rest[0:2])
			rest = rest[2:]
		}
	}

	var next *ProtoNode

	switch h.Type {
	case CLNP_COMPRESSED_DT:
		next = parse_or_raw("COTP TPDU", rest, func(b []byte) (*ProtoNode, error) {
			return ParseCOTP(b, downlink)
		})
	case CLNP_COMPRESSED_ER:
		if len(rest) < 1 {
			return nil, fmt.Errorf("%w: compressed error report without reason", ErrTruncated)
		}
		h.HasDiscard = true
		h.Discard = clnp_discard{Code: rest[0]} //nolint:exhaustruct
		if len(rest) > 1 {
			next = raw_node(rest[1:], "")
		}
	default:
		return nil, fmt.Errorf("%w: compressed CLNP type %d", ErrUnsupported, h.Type)
	}

	return new_node("clnp", h, next), nil
}

func (h *CLNPCompressedHeader) FormatText(w *TextWriter, indent int) {
	w.Line(indent, "CLNP %s (compressed header):", IfThenElse(h.Type == CLNP_COMPRESSED_DT, "Data", "Error Report"))
	indent++

	w.Line(indent, "LREF: 0x%x Prio: %d", h.LREF, h.Priority)
	if h.HasExtension {
		w.Line(indent, "Lifetime: %.1f sec SP: %d E/R: %d", float64(h.Lifetime)*0.5, IfThenElse(h.SP, 1, 0), IfThenElse(h.ER, 1, 0))
	}
	if h.HasPDUID {
		w.Line(indent, "PDU Id: 0x%04x", h.PDUID)
	}
	if h.HasDiscard {
		w.Line(indent, "Reason for discard: %s", clnp_discard_reasons[h.Discard.Code])
	}
}

func (h *CLNPCompressedHeader) FormatJSON() any {
	var m = map[string]any{
		"compressed": true,
		"pdu_type":   h.Type,
		"lref":       h.LREF,
		"prio":       h.Priority,
	}
	if h.HasExtension {
		m["lifetime"] = float64(h.Lifetime) * 0.5
		m["sp"] = h.SP
		m["er"] = h.ER
	}
	if h.HasPDUID {
		m["pdu_id"] = h.PDUID
	}
	if h.HasDiscard {
		m["discard_reason"] = h.Discard.Code
	}
	return m
}
