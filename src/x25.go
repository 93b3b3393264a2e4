package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	X.25 packet layer, as used on the air/ground subnetwork.
 *
 * Description:	Every packet starts with a 3 octet header:
 *
 *		GFI (4 bits) + logical channel group (4 bits)
 *		logical channel number
 *		packet type
 *
 *		Data packets carry an ISO 8473 network layer PDU, or
 *		its LREF compressed form.  The first octet, the network
 *		layer protocol id, tells which.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strings"
)

const X25_MIN_LEN = 3

// Packet types.  Data and the flow control packets are matched on
// the relevant bits only.

const (
	X25_DATA             = 0x00
	X25_RR               = 0x01
	X25_RNR              = 0x05
	X25_REJ              = 0x09
	X25_CALL_REQUEST     = 0x0b
	X25_CALL_ACCEPTED    = 0x0f
	X25_CLEAR_REQUEST    = 0x13
	X25_CLEAR_CONFIRM    = 0x17
	X25_RESET_REQUEST    = 0x1b
	X25_RESET_CONFIRM    = 0x1f
	X25_DIAG             = 0xf1
	X25_RESTART_REQUEST  = 0xfb
	X25_RESTART_CONFIRM  = 0xff
	X25_SNDCF_ID         = 0xc1
	X25_SNDCF_VERSION    = 1
	X25_MAX_ADDR_DIGITS  = 15
	X25_FACILITY_MARKER  = 0x00
	X25_COMPRESSION_LREF = 0x80
	X25_COMPRESSION_ACA  = 0x40
	X25_COMPRESSION_DEFL = 0x20
)

// Network layer protocol ids.

const (
	NLPID_CLNP = 0x81
	NLPID_ESIS = 0x82
	NLPID_IDRP = 0x85
)

var x25_pkt_names = map[byte]string{
	X25_DATA:            "Data",
	X25_RR:              "Receive Ready",
	X25_RNR:             "Receive not Ready",
	X25_REJ:             "Reject",
	X25_CALL_REQUEST:    "Call Request",
	X25_CALL_ACCEPTED:   "Call Accepted",
	X25_CLEAR_REQUEST:   "Clear Request",
	X25_CLEAR_CONFIRM:   "Clear Confirm",
	X25_RESET_REQUEST:   "Reset Request",
	X25_RESET_CONFIRM:   "Reset Confirm",
	X25_DIAG:            "Diagnostics",
	X25_RESTART_REQUEST: "Restart Request",
	X25_RESTART_CONFIRM: "Restart Confirm",
}

type X25Packet struct {
	GFI       byte
	ChanGroup uint8
	ChanNum   uint8
	Type      byte // Normalized, see x25_packet_type.
	RawType   byte

	// Data, RR, RNR, REJ
	Q, D    bool
	More    bool
	SendSeq uint8
	RecvSeq uint8

	// Call Request, Call Accepted
	HasAddrs    bool
	CalledAddr  string
	CallingAddr string
	Facilities  []Tag

	HasCompression bool
	Compression    byte
	SNDCFParam     byte

	// Clear, Reset, Restart, Diagnostics
	HasCause bool
	Cause    byte
	HasDiag  bool
	Diag     byte

	// Anything after what we understand, for call and clearing packets.
	Extra []byte
}

func x25_packet_type(t byte) byte {
	switch {
	case t&1 == 0:
		return X25_DATA
	case t&0x1f == X25_RR, t&0x1f == X25_RNR, t&0x1f == X25_REJ:
		return t & 0x1f
	default:
		return t
	}
}

func (p *X25Packet) TypeName() string {
	if n, ok := x25_pkt_names[p.Type]; ok {
		return n
	}
	return fmt.Sprintf("unknown (0x%02x)", p.RawType)
}

// Logical channel identifier.
func (p *X25Packet) LCI() uint16 {
	return uint16(p.ChanGroup)<<8 | uint16(p.ChanNum)
}

/*------------------------------------------------------------------
 *
 * Name:	ParseX25
 *
 * Inputs:	buf	 - AVLC information field.
 *		downlink - Direction, passed up to the application layer.
 *
 *------------------------------------------------------------------*/

func ParseX25(buf []byte, downlink bool) (*ProtoNode, error) {
	if len(buf) < X25_MIN_LEN {
		return nil, fmt.Errorf("%w: X.25 packet of %d octets", ErrTooShort, len(buf))
	}

	var p = &X25Packet{ //nolint:exhaustruct
		GFI:       buf[0] >> 4,
		ChanGroup: buf[0] & 0x0f,
		ChanNum:   buf[1],
		RawType:   buf[2],
		Type:      x25_packet_type(buf[2]),
	}

	if p.GFI&3 != 1 {
		return nil, fmt.Errorf("%w: X.25 GFI 0x%x, only modulo 8 is supported", ErrUnsupported, p.GFI)
	}

	p.Q = p.GFI&8 != 0
	p.D = p.GFI&4 != 0

	var rest = buf[X25_MIN_LEN:]
	var next *ProtoNode

	switch p.Type {
	case X25_DATA:
		p.More = (p.RawType>>4)&1 != 0
		p.SendSeq = (p.RawType >> 1) & 7
		p.RecvSeq = (p.RawType >> 5) & 7
		next = parse_x25_user_data(rest, downlink)

	case X25_RR, X25_RNR, X25_REJ:
		p.RecvSeq = (p.RawType >> 5) & 7

	case X25_CALL_REQUEST, X25_CALL_ACCEPTED:
		if err := p.parse_call(rest); err != nil {
			return nil, err
		}

	case X25_CLEAR_REQUEST, X25_RESET_REQUEST, X25_RESTART_REQUEST, X25_DIAG:
		if len(rest) < 1 {
			return nil, fmt.Errorf("%w: %s without cause", ErrTooShort, p.TypeName())
		}
		p.HasCause = true
		p.Cause = rest[0]
		if len(rest) > 1 {
			p.HasDiag = true
			p.Diag = rest[1]
		}
		if len(rest) > 2 {
			p.Extra = rest[2:]
		}

	case X25_CLEAR_CONFIRM, X25_RESET_CONFIRM, X25_RESTART_CONFIRM:
		p.Extra = rest

	default:
		return nil, fmt.Errorf("%w: X.25 packet type 0x%02x", ErrUnsupported, p.RawType)
	}

	return new_node("x25", p, next), nil
}

func parse_x25_user_data(buf []byte, downlink bool) *ProtoNode {
	if len(buf) == 0 {
		return nil
	}

	switch buf[0] {
	case NLPID_CLNP:
		return parse_or_raw("CLNP PDU", buf, func(b []byte) (*ProtoNode, error) {
			return ParseCLNP(b, downlink)
		})
	case NLPID_ESIS:
		return parse_or_raw("ES-IS PDU", buf, ParseESIS)
	case NLPID_IDRP:
		return parse_or_raw("IDRP PDU", buf, ParseIDRP)
	default:
		return parse_or_raw("compressed CLNP PDU", buf, func(b []byte) (*ProtoNode, error) {
			return ParseCompressedCLNP(b, downlink)
		})
	}
}

/*------------------------------------------------------------------
 *
 * Call set up.
 *
 *	address lengths: calling (4 bits) + called (4 bits)
 *	addresses: BCD digits, called first, padded to whole octets
 *	facilities length, facilities
 *	call user data
 *
 *	Call Accepted may stop after the header.
 *
 *------------------------------------------------------------------*/

func (p *X25Packet) parse_call(buf []byte) error {
	if len(buf) == 0 {
		if p.Type == X25_CALL_ACCEPTED {
			return nil
		}
		return fmt.Errorf("%w: call request without addresses", ErrTooShort)
	}

	var calling_len = int(buf[0] >> 4)
	var called_len = int(buf[0] & 0x0f)
	var addr_octets = (calling_len + called_len + 1) / 2
	buf = buf[1:]

	if len(buf) < addr_octets {
		return fmt.Errorf("%w: X.25 addresses need %d octets, %d left", ErrTruncated, addr_octets, len(buf))
	}

	var digits = bcd_digits(buf[:addr_octets], calling_len+called_len)
	p.CalledAddr = digits[:called_len]
	p.CallingAddr = digits[called_len:]
	p.HasAddrs = true
	buf = buf[addr_octets:]

	if len(buf) == 0 {
		return nil
	}

	var fac_len = int(buf[0])
	buf = buf[1:]
	if len(buf) < fac_len {
		return fmt.Errorf("%w: X.25 facilities need %d octets, %d left", ErrTruncated, fac_len, len(buf))
	}

	var facilities, err = parse_x25_facilities(buf[:fac_len])
	if err != nil {
		return err
	}
	p.Facilities = facilities
	buf = buf[fac_len:]

	if len(buf) == 0 {
		return nil
	}

	return p.parse_call_user_data(buf)
}

// Call user data is the SNDCF compression negotiation.

func (p *X25Packet) parse_call_user_data(buf []byte) error {
	if p.Type == X25_CALL_ACCEPTED {
		p.HasCompression = true
		p.Compression = buf[0]
		p.Extra = buf[1:]
		return nil
	}

	if buf[0] != X25_SNDCF_ID {
		return fmt.Errorf("%w: call user data 0x%02x is not ATN SNDCF", ErrUnsupported, buf[0])
	}
	if len(buf) < 4 {
		return fmt.Errorf("%w: SNDCF call user data of %d octets", ErrTooShort, len(buf))
	}
	if buf[1] != X25_SNDCF_VERSION {
		return fmt.Errorf("%w: SNDCF version %d", ErrUnsupported, buf[1])
	}

	p.SNDCFParam = buf[2]
	p.HasCompression = true
	p.Compression = buf[3]
	p.Extra = buf[4:]

	return nil
}

func bcd_digits(buf []byte, n int) string {
	var sb strings.Builder
	for i := range n {
		var b = buf[i/2]
		var d = IfThenElse(i%2 == 0, b>>4, b&0x0f)
		sb.WriteByte("0123456789ABCDEF"[d])
	}
	return sb.String()
}

func encode_bcd(digits string) []byte {
	var out = make([]byte, (len(digits)+1)/2)
	for i := range len(digits) {
		var d = digits[i] - '0'
		if i%2 == 0 {
			out[i/2] |= d << 4
		} else {
			out[i/2] |= d
		}
	}
	return out
}

func compression_names(c byte) string {
	var names []string
	if c&X25_COMPRESSION_LREF != 0 {
		names = append(names, "LREF")
	}
	if c&X25_COMPRESSION_ACA != 0 {
		names = append(names, "ACA")
	}
	if c&X25_COMPRESSION_DEFL != 0 {
		names = append(names, "DEFLATE")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, " ")
}

/*------------------------------------------------------------------
 *
 * Facilities.
 *
 *	The two high bits of the code give the parameter length:
 *	class A 1, B 2, C 3, and class D has an explicit length
 *	octet.  Code 0 is a marker separating groups.
 *
 *------------------------------------------------------------------*/

var x25_facility_dict = TagDict{
	{0x00, &TagDescriptor{Label: "marker", Name: "Marker", Parse: tlv_parse_uint8, Text: tlv_text_uint_hex}},
	{0x01, &TagDescriptor{Label: "fast_sel_rev_chg", Name: "Fast Select / Reverse Charging", Parse: tlv_parse_uint8, Text: tlv_text_uint_hex}},
	{0x02, &TagDescriptor{Label: "throughput_class", Name: "Throughput class", Parse: tlv_parse_uint8, Text: tlv_text_uint_hex}},
	{0x03, &TagDescriptor{Label: "cug_select", Name: "Closed User Group selection", Parse: tlv_parse_uint8}},
	{0x04, &TagDescriptor{Label: "charging_info_req", Name: "Charging information request", Parse: tlv_parse_uint8}},
	{0x08, &TagDescriptor{Label: "called_addr_mod", Name: "Called line address modified", Parse: tlv_parse_uint8, Text: tlv_text_uint_hex}},
	{0x09, &TagDescriptor{Label: "cug_outgoing", Name: "Closed User Group with outgoing access", Parse: tlv_parse_uint8}},
	{0x0a, &TagDescriptor{Label: "max_delay", Name: "Maximum delay", Parse: tlv_parse_uint8}},
	{0x41, &TagDescriptor{Label: "bilateral_cug", Name: "Bilateral Closed User Group", Parse: tlv_parse_uint16}},
	{0x42, &TagDescriptor{Label: "pkt_size", Name: "Packet size", Parse: parse_x25_size_pair, Text: text_x25_size_pair}},
	{0x43, &TagDescriptor{Label: "win_size", Name: "Window size", Parse: parse_x25_win_pair, Text: text_x25_size_pair}},
	{0x44, &TagDescriptor{Label: "rpoa_selection", Name: "RPOA selection", Parse: tlv_parse_uint16}},
	{0x49, &TagDescriptor{Label: "transit_delay", Name: "Transit delay", Parse: tlv_parse_uint16}},
	{0xc1, &TagDescriptor{Label: "charging_call_duration", Name: "Charging (call duration)", Parse: tlv_parse_octets}},
	{0xc2, &TagDescriptor{Label: "charging_seg_count", Name: "Charging (segment count)", Parse: tlv_parse_octets}},
	{0xc3, &TagDescriptor{Label: "call_redirection", Name: "Call redirection notification", Parse: tlv_parse_octets}},
	{0xc4, &TagDescriptor{Label: "rpoa_extended", Name: "RPOA selection (extended)", Parse: tlv_parse_octets}},
	{0xc5, &TagDescriptor{Label: "charging_monetary", Name: "Charging (monetary unit)", Parse: tlv_parse_octets}},
	{0xc6, &TagDescriptor{Label: "nui", Name: "NUI selection", Parse: tlv_parse_octets}},
	{0xc9, &TagDescriptor{Label: "called_addr_ext", Name: "Called address extension", Parse: tlv_parse_octets}},
	{0xca, &TagDescriptor{Label: "qos_min_throughput", Name: "Minimum throughput class", Parse: tlv_parse_octets}},
	{0xcb, &TagDescriptor{Label: "calling_addr_ext", Name: "Calling address extension", Parse: tlv_parse_octets}},
	{0xd2, &TagDescriptor{Label: "priority", Name: "Priority", Parse: tlv_parse_octets}},
	{0xd3, &TagDescriptor{Label: "protection", Name: "Protection", Parse: tlv_parse_octets}},
}

type x25_size_pair struct {
	FromCalled  uint32
	FromCalling uint32
}

// Packet sizes are sent as log2.
func parse_x25_size_pair(_ byte, buf []byte) (any, error) {
	if len(buf) != 2 || buf[0] > 12 || buf[1] > 12 {
		return nil, fmt.Errorf("%w: packet size facility", ErrBadLength)
	}
	return x25_size_pair{FromCalled: 1 << buf[0], FromCalling: 1 << buf[1]}, nil
}

func parse_x25_win_pair(_ byte, buf []byte) (any, error) {
	if len(buf) != 2 {
		return nil, fmt.Errorf("%w: window size facility", ErrBadLength)
	}
	return x25_size_pair{FromCalled: uint32(buf[0]), FromCalling: uint32(buf[1])}, nil
}

func text_x25_size_pair(w *TextWriter, indent int, d *TagDescriptor, v any) {
	var p = v.(x25_size_pair)
	w.Line(indent, "%s: from called DTE: %d, from calling DTE: %d", d.Name, p.FromCalled, p.FromCalling)
}

func x25_facility_len(code byte, buf []byte) (hdr int, vlen int, err error) {
	switch code >> 6 {
	case 0:
		return 1, 1, nil
	case 1:
		return 1, 2, nil
	case 2:
		return 1, 3, nil
	default:
		if len(buf) < 1 {
			return 0, 0, fmt.Errorf("%w: class D facility 0x%02x without length", ErrTruncated, code)
		}
		return 2, int(buf[0]), nil
	}
}

// Same contract as ParseTags, with lengths implied by the code class.

func parse_x25_facilities(buf []byte) ([]Tag, error) {
	var tags []Tag

	for len(buf) > 0 {
		var code = buf[0]
		var hdr, vlen, err = x25_facility_len(code, buf[1:])
		if err != nil {
			return nil, err
		}
		if len(buf) < hdr+vlen {
			return nil, fmt.Errorf("%w: facility 0x%02x needs %d octets, %d left", ErrTruncated, code, vlen, len(buf)-hdr)
		}

		var value = buf[hdr : hdr+vlen]
		buf = buf[hdr+vlen:]

		var t = Tag{Code: code, Desc: x25_facility_dict.Lookup(code), Raw: value} //nolint:exhaustruct
		if t.Desc != nil && t.Desc.Parse != nil {
			var v, perr = t.Desc.Parse(code, value)
			if perr != nil {
				t.Unparseable = true
			} else {
				t.Value = v
			}
		}

		tags = append(tags, t)
	}

	return tags, nil
}

func encode_x25_facility(code byte, value []byte) []byte {
	var out = []byte{code}
	if code>>6 == 3 {
		out = append(out, byte(len(value)))
	}
	return append(out, value...)
}

/*------------------------------------------------------------------
 *
 * Rendering.
 *
 *------------------------------------------------------------------*/

func (p *X25Packet) FormatText(w *TextWriter, indent int) {
	w.Line(indent, "X.25 %s: grp: %d chan: %d", p.TypeName(), p.ChanGroup, p.ChanNum)
	indent++

	switch p.Type {
	case X25_DATA:
		w.Line(indent, "sseq: %d rseq: %d more: %d", p.SendSeq, p.RecvSeq, IfThenElse(p.More, 1, 0))
	case X25_RR, X25_RNR, X25_REJ:
		w.Line(indent, "rseq: %d", p.RecvSeq)
	}

	if p.HasAddrs {
		w.Line(indent, "Called address: %s", p.CalledAddr)
		w.Line(indent, "Calling address: %s", p.CallingAddr)
	}

	if len(p.Facilities) > 0 {
		w.Line(indent, "Facilities:")
		FormatTagsText(w, indent+1, p.Facilities)
	}

	if p.HasCompression {
		w.Line(indent, "Compression support: %s", compression_names(p.Compression))
	}

	if p.HasCause {
		w.Line(indent, "Cause: 0x%02x", p.Cause)
	}
	if p.HasDiag {
		w.Line(indent, "Diagnostic code: 0x%02x", p.Diag)
	}

	if len(p.Extra) > 0 {
		w.Line(indent, "Unparsed data (%d bytes):", len(p.Extra))
		w.Hex(indent+1, p.Extra)
	}
}

func (p *X25Packet) FormatJSON() any {
	var m = map[string]any{
		"pkt_type":      p.RawType,
		"pkt_type_name": p.TypeName(),
		"chan_group":    p.ChanGroup,
		"chan_num":      p.ChanNum,
	}

	switch p.Type {
	case X25_DATA:
		m["sseq"] = p.SendSeq
		m["rseq"] = p.RecvSeq
		m["more"] = p.More
	case X25_RR, X25_RNR, X25_REJ:
		m["rseq"] = p.RecvSeq
	}

	if p.HasAddrs {
		m["called_addr"] = p.CalledAddr
		m["calling_addr"] = p.CallingAddr
	}
	if len(p.Facilities) > 0 {
		m["facilities"] = FormatTagsJSON(p.Facilities)
	}
	if p.HasCompression {
		m["compression_support"] = compression_names(p.Compression)
	}
	if p.HasCause {
		m["cause"] = p.Cause
	}
	if p.HasDiag {
		m["diag_code"] = p.Diag
	}
	if len(p.Extra) > 0 {
		m["unparsed"] = hex_string(p.Extra)
	}

	return m
}
