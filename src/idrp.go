package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	ISO 10747 inter-domain routing protocol.
 *
 * Description:	Fixed 30 octet header:
 *
 *		NLPID(1) PDU length(2) type(1) sequence(4)
 *		acknowledgement(4) credit offered(1)
 *		credit available(1) validation pattern(16)
 *
 *		All integers big endian.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

const (
	IDRP_HDR_LEN        = 30
	IDRP_VALIDATION_LEN = 16

	IDRP_OPEN        = 1
	IDRP_UPDATE      = 2
	IDRP_ERROR       = 3
	IDRP_KEEPALIVE   = 4
	IDRP_CEASE       = 5
	IDRP_RIB_REFRESH = 6
)

var idrp_pdu_names = map[byte]string{
	IDRP_OPEN:        "OPEN",
	IDRP_UPDATE:      "UPDATE",
	IDRP_ERROR:       "ERROR",
	IDRP_KEEPALIVE:   "KEEPALIVE",
	IDRP_CEASE:       "CEASE",
	IDRP_RIB_REFRESH: "RIB REFRESH",
}

var idrp_error_codes = map[byte]string{
	1: "OPEN PDU error",
	2: "UPDATE PDU error",
	3: "Hold timer expired",
	4: "FSM error",
	5: "RIB REFRESH PDU error",
}

var idrp_rib_refresh_ops = map[byte]string{
	1: "Request",
	2: "Start",
	3: "End",
}

/*------------------------------------------------------------------
 *
 * Path attributes.
 *
 *------------------------------------------------------------------*/

const (
	IDRP_ATTR_ROUTE_SEPARATOR = 1
	IDRP_ATTR_EXT_INFO        = 2
	IDRP_ATTR_RD_PATH         = 3
	IDRP_ATTR_NEXT_HOP        = 4
	IDRP_ATTR_SECURITY        = 14
)

type idrp_route_separator struct {
	ID        uint32
	LocalPref uint8
}

func parse_idrp_route_separator(_ byte, buf []byte) (any, error) {
	if len(buf) != 5 {
		return nil, fmt.Errorf("%w: route separator of %d octets", ErrBadLength, len(buf))
	}
	return idrp_route_separator{ID: binary.BigEndian.Uint32(buf[0:4]), LocalPref: buf[4]}, nil
}

func text_idrp_route_separator(w *TextWriter, indent int, d *TagDescriptor, v any) {
	var r = v.(idrp_route_separator)
	w.Line(indent, "%s: id: %d localpref: %d", d.Name, r.ID, r.LocalPref)
}

var idrp_rd_segment_types = map[byte]string{
	1: "RD_SET",
	2: "RD_SEQ",
	3: "ENTRY_SEQ",
	4: "ENTRY_SET",
}

type idrp_rd_segment struct {
	Type byte
	RDIs [][]byte
}

// Segments: type(1) length(2) then length prefixed RDIs.

func parse_idrp_rd_path(_ byte, buf []byte) (any, error) {
	var segs []idrp_rd_segment

	for len(buf) > 0 {
		if len(buf) < 3 {
			return nil, fmt.Errorf("%w: RD path segment header", ErrTruncated)
		}
		var seg = idrp_rd_segment{Type: buf[0]} //nolint:exhaustruct
		var slen = int(binary.BigEndian.Uint16(buf[1:3]))
		buf = buf[3:]
		if slen > len(buf) {
			return nil, fmt.Errorf("%w: RD path segment of %d octets, %d left", ErrTruncated, slen, len(buf))
		}

		var body = buf[:slen]
		buf = buf[slen:]
		for len(body) > 0 {
			var rdi, rest, err = parse_lv(body)
			if err != nil {
				return nil, fmt.Errorf("RD path segment: %w", err)
			}
			seg.RDIs = append(seg.RDIs, rdi)
			body = rest
		}
		segs = append(segs, seg)
	}

	return segs, nil
}

func text_idrp_rd_path(w *TextWriter, indent int, d *TagDescriptor, v any) {
	w.Line(indent, "%s:", d.Name)
	for _, seg := range v.([]idrp_rd_segment) {
		w.Line(indent+1, "%s:", lookup_reason(idrp_rd_segment_types, seg.Type))
		for _, rdi := range seg.RDIs {
			w.Line(indent+2, "%s", format_nsap(rdi))
		}
	}
}

func json_idrp_rd_path(v any) any {
	var out []any
	for _, seg := range v.([]idrp_rd_segment) {
		var rdis = make([]string, 0, len(seg.RDIs))
		for _, rdi := range seg.RDIs {
			rdis = append(rdis, format_nsap(rdi))
		}
		out = append(out, map[string]any{"type": lookup_reason(idrp_rd_segment_types, seg.Type), "rdis": rdis})
	}
	return out
}

// Next hop: IDRP server allowed flag, then length prefixed NET and SNPA.

type idrp_next_hop struct {
	ServerAllowed bool
	NET           []byte
	SNPAs         [][]byte
}

func parse_idrp_next_hop(_ byte, buf []byte) (any, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("%w: empty next hop", ErrTooShort)
	}

	var nh = idrp_next_hop{ServerAllowed: buf[0] != 0} //nolint:exhaustruct
	var net, rest, err = parse_lv(buf[1:])
	if err != nil {
		return nil, err
	}
	nh.NET = net

	if len(rest) > 0 {
		var count = int(rest[0])
		rest = rest[1:]
		for range count {
			var snpa []byte
			if snpa, rest, err = parse_lv(rest); err != nil {
				return nil, err
			}
			nh.SNPAs = append(nh.SNPAs, snpa)
		}
	}

	return nh, nil
}

func text_idrp_next_hop(w *TextWriter, indent int, d *TagDescriptor, v any) {
	var nh = v.(idrp_next_hop)
	w.Line(indent, "%s: %s", d.Name, format_nsap(nh.NET))
	for _, snpa := range nh.SNPAs {
		w.Line(indent+1, "SNPA: %s", hex_string(snpa))
	}
}

func parse_idrp_security(_ byte, buf []byte) (any, error) {
	var l = &SecurityLabel{Format: SEC_FORMAT_GLOBAL} //nolint:exhaustruct
	if err := l.parse_global(buf); err != nil {
		return nil, err
	}
	return l, nil
}

var idrp_path_attrs = TagDict{
	{IDRP_ATTR_ROUTE_SEPARATOR, &TagDescriptor{Label: "route_separator", Name: "Route separator", Parse: parse_idrp_route_separator, Text: text_idrp_route_separator}},
	{IDRP_ATTR_EXT_INFO, &TagDescriptor{Label: "ext_info", Name: "Externally learned info", Parse: tlv_parse_flag, Text: tlv_text_flag}},
	{IDRP_ATTR_RD_PATH, &TagDescriptor{Label: "rd_path", Name: "RD path", Parse: parse_idrp_rd_path, Text: text_idrp_rd_path, JSON: json_idrp_rd_path}},
	{IDRP_ATTR_NEXT_HOP, &TagDescriptor{Label: "next_hop", Name: "Next hop", Parse: parse_idrp_next_hop, Text: text_idrp_next_hop,
		JSON: func(v any) any {
			var nh = v.(idrp_next_hop)
			return map[string]any{"idrp_server_allowed": nh.ServerAllowed, "net": format_nsap(nh.NET)}
		}}},
	{5, &TagDescriptor{Label: "dist_list_incl", Name: "Distribution list include", Parse: tlv_parse_octets}},
	{6, &TagDescriptor{Label: "dist_list_excl", Name: "Distribution list exclude", Parse: tlv_parse_octets}},
	{7, &TagDescriptor{Label: "multi_exit_disc", Name: "Multi-exit discriminator", Parse: tlv_parse_uint8}},
	{8, &TagDescriptor{Label: "transit_delay", Name: "Transit delay", Parse: tlv_parse_uint16}},
	{9, &TagDescriptor{Label: "residual_error", Name: "Residual error", Parse: tlv_parse_uint}},
	{10, &TagDescriptor{Label: "expense", Name: "Expense", Parse: tlv_parse_uint16}},
	{11, &TagDescriptor{Label: "local_qos", Name: "Locally defined QoS", Parse: tlv_parse_octets}},
	{12, &TagDescriptor{Label: "hierarchical_rec", Name: "Hierarchical recording", Parse: tlv_parse_uint8}},
	{13, &TagDescriptor{Label: "rd_hop_count", Name: "RD hop count", Parse: tlv_parse_uint8}},
	{IDRP_ATTR_SECURITY, &TagDescriptor{Label: "security", Name: "Security", Parse: parse_idrp_security, Text: text_security_label, JSON: json_security_label}},
	{15, &TagDescriptor{Label: "capacity", Name: "Capacity", Parse: tlv_parse_uint8}},
	{16, &TagDescriptor{Label: "priority", Name: "Priority", Parse: tlv_parse_uint8}},
}

/*------------------------------------------------------------------
 *
 * RIB attribute sets, in OPEN and RIB REFRESH.
 *
 *	count of RIB-Atts (1)
 *	each RIB-Att: count of attributes (1), then that many
 *	path attributes in the same TLV form as UPDATE.
 *
 *------------------------------------------------------------------*/

type idrp_rib_att []Tag

func parse_idrp_rib_atts(buf []byte) ([]idrp_rib_att, []byte, error) {
	if len(buf) < 1 {
		return nil, nil, fmt.Errorf("%w: RIB-AttsSet count", ErrTruncated)
	}

	var count = int(buf[0])
	buf = buf[1:]

	var atts = make([]idrp_rib_att, 0, count)
	for range count {
		if len(buf) < 1 {
			return nil, nil, fmt.Errorf("%w: RIB-Att attribute count", ErrTruncated)
		}
		var n = int(buf[0])
		buf = buf[1:]

		var att idrp_rib_att
		for range n {
			var t, rest, err = parse_one_tag(buf, idrp_path_attrs, 2)
			if err != nil {
				return nil, nil, fmt.Errorf("RIB-Att: %w", err)
			}
			att = append(att, t)
			buf = rest
		}
		atts = append(atts, att)
	}

	return atts, buf, nil
}

/*------------------------------------------------------------------
 *
 * NLRI, at the end of UPDATE:
 *
 *	proto type(1) proto length(1) proto(n)
 *	address info length(2), then prefixes of
 *	prefix length in bits(1), ceil(bits/8) octets.
 *
 *------------------------------------------------------------------*/

type IDRPNLRI struct {
	ProtoType byte
	Proto     []byte
	Prefixes  []IDRPPrefix
}

type IDRPPrefix struct {
	Bits   int
	Prefix []byte
}

func parse_idrp_nlri(buf []byte) ([]IDRPNLRI, error) {
	var out []IDRPNLRI

	for len(buf) > 0 {
		if len(buf) < 2 {
			return nil, fmt.Errorf("%w: NLRI header", ErrTruncated)
		}
		var n = IDRPNLRI{ProtoType: buf[0]} //nolint:exhaustruct
		var plen = int(buf[1])
		buf = buf[2:]
		if len(buf) < plen+2 {
			return nil, fmt.Errorf("%w: NLRI protocol", ErrTruncated)
		}
		n.Proto = buf[:plen]
		buf = buf[plen:]

		var alen = int(binary.BigEndian.Uint16(buf[0:2]))
		buf = buf[2:]
		if len(buf) < alen {
			return nil, fmt.Errorf("%w: NLRI address info of %d octets, %d left", ErrTruncated, alen, len(buf))
		}

		var addrs = buf[:alen]
		buf = buf[alen:]
		for len(addrs) > 0 {
			var bits = int(addrs[0])
			var octets = (bits + 7) / 8
			if len(addrs) < 1+octets {
				return nil, fmt.Errorf("%w: NLRI prefix of %d bits", ErrTruncated, bits)
			}
			n.Prefixes = append(n.Prefixes, IDRPPrefix{Bits: bits, Prefix: addrs[1 : 1+octets]})
			addrs = addrs[1+octets:]
		}

		out = append(out, n)
	}

	return out, nil
}

/*------------------------------------------------------------------
 *
 * PDUs.
 *
 *------------------------------------------------------------------*/

type IDRPPDU struct {
	Length      uint16
	Type        byte
	Seq         uint32
	Ack         uint32
	CreditOffr  uint8
	CreditAvail uint8
	Validation  []byte

	// OPEN
	Version    uint8
	HoldTime   uint16
	MaxPDUSize uint16
	SourceRDI  []byte
	RIBAtts    []idrp_rib_att
	Confeds    [][]byte
	AuthCode   uint8
	AuthData   []byte

	// UPDATE
	Withdrawn []uint32
	PathAttrs []Tag
	NLRI      []IDRPNLRI

	// ERROR
	ErrCode    byte
	ErrSubcode byte
	ErrData    []byte

	// RIB REFRESH
	Opcode byte
}

/*------------------------------------------------------------------
 *
 * Name:	ParseIDRP
 *
 *------------------------------------------------------------------*/

func ParseIDRP(buf []byte) (*ProtoNode, error) {
	if len(buf) < IDRP_HDR_LEN {
		return nil, fmt.Errorf("%w: IDRP PDU of %d octets", ErrTooShort, len(buf))
	}
	if buf[0] != NLPID_IDRP {
		return nil, fmt.Errorf("%w: NLPID 0x%02x is not IDRP", ErrUnsupported, buf[0])
	}

	var p = &IDRPPDU{ //nolint:exhaustruct
		Length:      binary.BigEndian.Uint16(buf[1:3]),
		Type:        buf[3],
		Seq:         binary.BigEndian.Uint32(buf[4:8]),
		Ack:         binary.BigEndian.Uint32(buf[8:12]),
		CreditOffr:  buf[12],
		CreditAvail: buf[13],
		Validation:  buf[14:IDRP_HDR_LEN],
	}

	var plen = int(p.Length)
	if plen < IDRP_HDR_LEN || plen > len(buf) {
		return nil, fmt.Errorf("%w: IDRP PDU length %d, buffer %d", ErrBadLength, plen, len(buf))
	}

	var body = buf[IDRP_HDR_LEN:plen]
	var err error

	switch p.Type {
	case IDRP_OPEN:
		err = p.parse_open(body)
	case IDRP_UPDATE:
		err = p.parse_update(body)
	case IDRP_ERROR:
		if len(body) < 2 {
			err = fmt.Errorf("%w: ERROR PDU of %d octets", ErrTooShort, len(body))
		} else {
			p.ErrCode = body[0]
			p.ErrSubcode = body[1]
			p.ErrData = body[2:]
		}
	case IDRP_KEEPALIVE, IDRP_CEASE:
	case IDRP_RIB_REFRESH:
		if len(body) < 1 {
			err = fmt.Errorf("%w: RIB REFRESH without opcode", ErrTooShort)
		} else {
			p.Opcode = body[0]
			if len(body) > 1 {
				p.RIBAtts, _, err = parse_idrp_rib_atts(body[1:])
			}
		}
	default:
		err = fmt.Errorf("%w: IDRP PDU type %d", ErrUnsupported, p.Type)
	}

	if err != nil {
		return nil, err
	}

	var next *ProtoNode
	if len(buf) > plen {
		next = raw_node(buf[plen:], "")
	}

	return new_node("idrp", p, next), nil
}

func (p *IDRPPDU) parse_open(buf []byte) error {
	if len(buf) < 5 {
		return fmt.Errorf("%w: OPEN PDU of %d octets", ErrTooShort, len(buf))
	}

	p.Version = buf[0]
	p.HoldTime = binary.BigEndian.Uint16(buf[1:3])
	p.MaxPDUSize = binary.BigEndian.Uint16(buf[3:5])

	var rest []byte
	var err error
	if p.SourceRDI, rest, err = parse_lv(buf[5:]); err != nil {
		return fmt.Errorf("OPEN source RDI: %w", err)
	}

	if p.RIBAtts, rest, err = parse_idrp_rib_atts(rest); err != nil {
		return fmt.Errorf("OPEN: %w", err)
	}

	if len(rest) < 1 {
		return fmt.Errorf("%w: OPEN confederations", ErrTruncated)
	}
	var nconf = int(rest[0])
	rest = rest[1:]
	for range nconf {
		var rdi []byte
		if rdi, rest, err = parse_lv(rest); err != nil {
			return fmt.Errorf("OPEN confederation: %w", err)
		}
		p.Confeds = append(p.Confeds, rdi)
	}

	if len(rest) < 1 {
		return fmt.Errorf("%w: OPEN authentication code", ErrTruncated)
	}
	p.AuthCode = rest[0]
	p.AuthData = rest[1:]

	return nil
}

func (p *IDRPPDU) parse_update(buf []byte) error {
	if len(buf) < 2 {
		return fmt.Errorf("%w: UPDATE PDU of %d octets", ErrTooShort, len(buf))
	}

	var nwithdrawn = int(binary.BigEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < 4*nwithdrawn {
		return fmt.Errorf("%w: %d withdrawn routes", ErrTruncated, nwithdrawn)
	}
	for i := range nwithdrawn {
		p.Withdrawn = append(p.Withdrawn, binary.BigEndian.Uint32(buf[4*i:4*i+4]))
	}
	buf = buf[4*nwithdrawn:]

	if len(buf) < 2 {
		return fmt.Errorf("%w: UPDATE path attributes length", ErrTruncated)
	}
	var alen = int(binary.BigEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < alen {
		return fmt.Errorf("%w: path attributes of %d octets, %d left", ErrTruncated, alen, len(buf))
	}

	var err error
	if p.PathAttrs, err = ParseTags(buf[:alen], idrp_path_attrs, 2); err != nil {
		return fmt.Errorf("UPDATE path attributes: %w", err)
	}

	if p.NLRI, err = parse_idrp_nlri(buf[alen:]); err != nil {
		return fmt.Errorf("UPDATE: %w", err)
	}

	return nil
}

/*------------------------------------------------------------------
 *
 * Rendering.
 *
 *------------------------------------------------------------------*/

func (p *IDRPPDU) TypeName() string {
	return lookup_reason(idrp_pdu_names, p.Type)
}

func format_rib_atts(w *TextWriter, indent int, atts []idrp_rib_att) {
	for i, att := range atts {
		w.Line(indent, "RIB attribute set %d:", i+1)
		FormatTagsText(w, indent+1, att)
	}
}

func (p *IDRPPDU) FormatText(w *TextWriter, indent int) {
	w.Line(indent, "IDRP %s: seq: %d ack: %d credit_offered: %d credit_avail: %d", p.TypeName(), p.Seq, p.Ack, p.CreditOffr, p.CreditAvail)
	indent++

	switch p.Type {
	case IDRP_OPEN:
		w.Line(indent, "Hold Time: %d seconds", p.HoldTime)
		w.Line(indent, "Max. PDU size: %d octets", p.MaxPDUSize)
		w.Line(indent, "Source RDI: %s", format_nsap(p.SourceRDI))
		format_rib_atts(w, indent, p.RIBAtts)
		for _, c := range p.Confeds {
			w.Line(indent, "Confederation: %s", format_nsap(c))
		}
		w.Line(indent, "Auth. mechanism: %d", p.AuthCode)
		if len(p.AuthData) > 0 {
			w.Line(indent, "Auth. data: %s", hex_string(p.AuthData))
		}

	case IDRP_UPDATE:
		for _, r := range p.Withdrawn {
			w.Line(indent, "Withdrawn route: %d", r)
		}
		if len(p.PathAttrs) > 0 {
			w.Line(indent, "Path attributes:")
			FormatTagsText(w, indent+1, p.PathAttrs)
		}
		for _, n := range p.NLRI {
			w.Line(indent, "NLRI: proto type: %d proto: %s", n.ProtoType, hex_string(n.Proto))
			for _, pfx := range n.Prefixes {
				w.Line(indent+1, "%s/%d", hex_string(pfx.Prefix), pfx.Bits)
			}
		}

	case IDRP_ERROR:
		w.Line(indent, "Code: %d (%s)", p.ErrCode, lookup_reason(idrp_error_codes, p.ErrCode))
		w.Line(indent, "Subcode: %d", p.ErrSubcode)
		if len(p.ErrData) > 0 {
			w.Line(indent, "Data: %s", hex_string(p.ErrData))
		}

	case IDRP_RIB_REFRESH:
		w.Line(indent, "Opcode: %s", lookup_reason(idrp_rib_refresh_ops, p.Opcode))
		format_rib_atts(w, indent, p.RIBAtts)
	}
}

func rib_atts_json(atts []idrp_rib_att) []any {
	var out = make([]any, 0, len(atts))
	for _, att := range atts {
		out = append(out, FormatTagsJSON(att))
	}
	return out
}

func (p *IDRPPDU) FormatJSON() any {
	var m = map[string]any{
		"pdu_type":       p.Type,
		"pdu_type_name":  p.TypeName(),
		"seq":            p.Seq,
		"ack":            p.Ack,
		"credit_offered": p.CreditOffr,
		"credit_avail":   p.CreditAvail,
		"validation":     hex_string(p.Validation),
	}

	switch p.Type {
	case IDRP_OPEN:
		m["version"] = p.Version
		m["hold_time"] = p.HoldTime
		m["max_pdu_size"] = p.MaxPDUSize
		m["src_rdi"] = format_nsap(p.SourceRDI)
		m["rib_atts"] = rib_atts_json(p.RIBAtts)
		var confeds = make([]string, 0, len(p.Confeds))
		for _, c := range p.Confeds {
			confeds = append(confeds, format_nsap(c))
		}
		m["confederations"] = confeds
		m["auth_mech"] = p.AuthCode
		if len(p.AuthData) > 0 {
			m["auth_data"] = hex_string(p.AuthData)
		}

	case IDRP_UPDATE:
		m["withdrawn_routes"] = p.Withdrawn
		m["path_attributes"] = FormatTagsJSON(p.PathAttrs)
		var nlri = make([]any, 0, len(p.NLRI))
		for _, n := range p.NLRI {
			var pfx = make([]string, 0, len(n.Prefixes))
			for _, x := range n.Prefixes {
				pfx = append(pfx, fmt.Sprintf("%s/%d", hex_string(x.Prefix), x.Bits))
			}
			nlri = append(nlri, map[string]any{"proto_type": n.ProtoType, "proto": hex_string(n.Proto), "prefixes": pfx})
		}
		m["nlri"] = nlri

	case IDRP_ERROR:
		m["err_code"] = p.ErrCode
		m["err_descr"] = lookup_reason(idrp_error_codes, p.ErrCode)
		m["err_subcode"] = p.ErrSubcode
		if len(p.ErrData) > 0 {
			m["err_data"] = hex_string(p.ErrData)
		}

	case IDRP_RIB_REFRESH:
		m["opcode"] = p.Opcode
		m["rib_atts"] = rib_atts_json(p.RIBAtts)
	}

	return m
}
