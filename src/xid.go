package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:   	Decode the info field of AVLC XID frames.
 *
 * Description:	XID frames set up, hand off and refuse links, and
 *		ground stations broadcast them (GSIF) to advertise
 *		themselves.
 *
 *		format identifier (0x82)
 *		groups of: group id(1) group length(2) parameters
 *
 *		Each parameter is id(1) length(1) value.  Group 0x80
 *		holds the public ISO 8885 parameters, 0xf0 the private
 *		VDL2 ones.
 *
 *		What kind of XID it is depends on the C/R bit of the
 *		destination address, the P/F bit, and the H bit of the
 *		connection management parameter.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

const FI_Format_Indicator = 0x82
const GI_Public = 0x80
const GI_Private = 0xf0

const PI_Connection_Management = 0x01
const PI_LCR_Cause = 0x06
const PV_Connection_Management_H = 0x01
const PV_Connection_Management_RST = 0x02

/*------------------------------------------------------------------
 *
 * XID types.
 *
 *------------------------------------------------------------------*/

type XIDType struct {
	Name        string
	Description string
}

// Indexed by C/R << 2 | P/F << 1 | H.

var xid_types = [8]XIDType{
	{"GSIF", "Ground Station Information Frame"},
	{"XID_CMD_LCR", "Link Connection Refused"},
	{"XID_CMD_LE", "Link Establishment"},
	{"XID_CMD_HO", "Handoff Request"},
	{"XID_RSP_LPM", "Link Parameter Modification"},
	{"XID_RSP_LCR", "Link Connection Refused"},
	{"XID_RSP_LE", "Link Establishment Response"},
	{"XID_RSP_HO", "Handoff Response"},
}

func xid_type(response bool, pf bool, h bool) XIDType {
	var i = IfThenElse(response, 4, 0) | IfThenElse(pf, 2, 0) | IfThenElse(h, 1, 0)
	return xid_types[i]
}

/*------------------------------------------------------------------
 *
 * Parameter values.
 *
 *------------------------------------------------------------------*/

// Ground station addresses, 4 octets each, as in the AVLC header.

func parse_xid_gs_list(_ byte, buf []byte) (any, error) {
	if len(buf)%AVLC_ADDR_LEN != 0 {
		return nil, fmt.Errorf("%w: %d octets is not a list of addresses", ErrBadLength, len(buf))
	}

	var out []AVLCAddr
	for i := 0; i < len(buf); i += AVLC_ADDR_LEN {
		var a, _ = parse_avlc_addr(buf[i : i+AVLC_ADDR_LEN])
		out = append(out, a)
	}
	return out, nil
}

func text_xid_gs_list(w *TextWriter, indent int, d *TagDescriptor, v any) {
	w.Line(indent, "%s:", d.Name)
	for _, a := range v.([]AVLCAddr) {
		w.Line(indent+1, "%s", a)
	}
}

func json_xid_gs_list(v any) any {
	var out = []string{}
	for _, a := range v.([]AVLCAddr) {
		out = append(out, a.String())
	}
	return out
}

type xid_location struct {
	GeoPoint

	HasAlt bool
	Alt    int // Feet.
}

func parse_xid_location(_ byte, buf []byte) (any, error) {
	if len(buf) != LOCATION_LEN && len(buf) != LOCATION_LEN+1 {
		return nil, fmt.Errorf("%w: location of %d octets", ErrBadLength, len(buf))
	}

	var p, err = parse_vdl2_location(buf)
	if err != nil {
		return nil, err
	}

	var loc = xid_location{GeoPoint: p} //nolint:exhaustruct
	if len(buf) > LOCATION_LEN {
		loc.HasAlt = true
		loc.Alt = int(buf[LOCATION_LEN]) * 1000
	}
	return loc, nil
}

func text_xid_location(w *TextWriter, indent int, d *TagDescriptor, v any) {
	var loc = v.(xid_location)
	if loc.HasAlt {
		w.Line(indent, "%s: %s Alt: %d ft", d.Name, describe_location(loc.GeoPoint), loc.Alt)
	} else {
		w.Line(indent, "%s: %s", d.Name, describe_location(loc.GeoPoint))
	}
}

func json_xid_location(v any) any {
	var loc = v.(xid_location)
	var m = location_json(loc.GeoPoint)
	if loc.HasAlt {
		m["alt"] = loc.Alt
	}
	return m
}

var modulation_names = []string{"", "VDL-M1", "VDL-M2", "VDL-M3"}

func modulations(bits uint32) []string {
	var out = []string{}
	for i, n := range modulation_names {
		if n != "" && bits&(1<<i) != 0 {
			out = append(out, n)
		}
	}
	return out
}

func parse_xid_modulation(_ byte, buf []byte) (any, error) {
	if len(buf) != 1 {
		return nil, fmt.Errorf("%w: modulation support of %d octets", ErrBadLength, len(buf))
	}
	return modulations(uint32(buf[0])), nil
}

/*
 * Frequencies are 2 octets, each sent least significant bit first.
 * Once the octets are turned round, modulation support is in the top
 * 4 bits, then the frequency in 25 kHz steps above 100 MHz.
 */

type xid_frequency struct {
	MHz         float64
	Modulations []string
}

func (f xid_frequency) String() string {
	return fmt.Sprintf("%.3f MHz %v", f.MHz, f.Modulations)
}

func decode_xid_frequency(buf []byte) xid_frequency {
	var v = reverse(uint32(buf[0]), 8)<<8 | reverse(uint32(buf[1]), 8)
	return xid_frequency{
		MHz:         100 + float64(v&0x0fff)*0.025,
		Modulations: modulations(uint32(v >> 12)),
	}
}

func parse_xid_autotune(_ byte, buf []byte) (any, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: autotune of %d octets", ErrTooShort, len(buf))
	}
	return decode_xid_frequency(buf), nil
}

func parse_xid_freq_list(_ byte, buf []byte) (any, error) {
	if len(buf)%2 != 0 {
		return nil, fmt.Errorf("%w: frequency list of %d octets", ErrBadLength, len(buf))
	}
	var out []xid_frequency
	for i := 0; i < len(buf); i += 2 {
		out = append(out, decode_xid_frequency(buf[i:i+2]))
	}
	return out, nil
}

func json_xid_frequency(v any) any {
	var f = v.(xid_frequency)
	return map[string]any{"freq_mhz": f.MHz, "modulation_support": f.Modulations}
}

func json_xid_freq_list(v any) any {
	var out = []any{}
	for _, f := range v.([]xid_frequency) {
		out = append(out, json_xid_frequency(f))
	}
	return out
}

var lcr_causes = map[byte]string{
	0x00: "Bad local parameter",
	0x01: "Out of link layer resources",
	0x02: "Out of packet layer resources",
	0x03: "Terrestrial network not available",
	0x04: "Terrestrial network congestion",
	0x05: "Cannot support autotune",
	0x06: "Station cannot support initiating handoff",
	0x7f: "Other unspecified local reason",
	0x80: "Bad global parameter",
	0x81: "Protocol violation",
	0x82: "Ground system out of resources",
	0xff: "Other unspecified system reason",
}

type xid_lcr_cause struct {
	Cause    byte
	HasDelay bool
	Delay    uint16 // Seconds.
	Extra    []byte
}

func parse_xid_lcr_cause(_ byte, buf []byte) (any, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("%w: empty LCR cause", ErrTooShort)
	}
	var c = xid_lcr_cause{Cause: buf[0]} //nolint:exhaustruct
	if len(buf) >= 3 {
		c.HasDelay = true
		c.Delay = binary.BigEndian.Uint16(buf[1:3])
		c.Extra = buf[3:]
	}
	return c, nil
}

func text_xid_lcr_cause(w *TextWriter, indent int, d *TagDescriptor, v any) {
	var c = v.(xid_lcr_cause)
	w.Line(indent, "%s: 0x%02x (%s)", d.Name, c.Cause, lookup_reason(lcr_causes, c.Cause))
	if c.HasDelay {
		w.Line(indent+1, "Delay: %d sec", c.Delay)
	}
	if len(c.Extra) > 0 {
		w.Line(indent+1, "Additional data: %s", hex_string(c.Extra))
	}
}

func json_xid_lcr_cause(v any) any {
	var c = v.(xid_lcr_cause)
	var m = map[string]any{"cause_code": c.Cause, "cause_descr": lookup_reason(lcr_causes, c.Cause)}
	if c.HasDelay {
		m["delay"] = c.Delay
	}
	return m
}

func text_xid_conn_mgmt(w *TextWriter, indent int, d *TagDescriptor, v any) {
	var cm = v.(uint32)
	w.Line(indent, "%s: %02x", d.Name, cm)
	w.Line(indent+1, "HO: %d RST: %d", cm&PV_Connection_Management_H, (cm&PV_Connection_Management_RST)>>1)
}

/*------------------------------------------------------------------
 *
 * Dictionaries.
 *
 *------------------------------------------------------------------*/

var xid_public_params = TagDict{
	{0x01, &TagDescriptor{Label: "param_set_id", Name: "Parameter set ID", Parse: tlv_parse_string}},
	{0x02, &TagDescriptor{Label: "proc_classes", Name: "Procedure classes", Parse: tlv_parse_uint, Text: tlv_text_uint_hex}},
	{0x03, &TagDescriptor{Label: "hdlc_options", Name: "HDLC options", Parse: tlv_parse_uint, Text: tlv_text_uint_hex}},
	{0x05, &TagDescriptor{Label: "n1_downlink", Name: "N1-downlink", Parse: tlv_parse_uint}},
	{0x06, &TagDescriptor{Label: "n1_uplink", Name: "N1-uplink", Parse: tlv_parse_uint}},
	{0x07, &TagDescriptor{Label: "k_downlink", Name: "k-downlink", Parse: tlv_parse_uint}},
	{0x08, &TagDescriptor{Label: "k_uplink", Name: "k-uplink", Parse: tlv_parse_uint}},
	{0x09, &TagDescriptor{Label: "t1_downlink", Name: "Timer T1_downlink", Parse: tlv_parse_uint}},
	{0x0a, &TagDescriptor{Label: "n2", Name: "Counter N2", Parse: tlv_parse_uint}},
	{0x0b, &TagDescriptor{Label: "t2", Name: "Timer T2", Parse: tlv_parse_uint}},
}

var xid_private_params = TagDict{
	{0x00, &TagDescriptor{Label: "param_set_id", Name: "Parameter set ID", Parse: tlv_parse_string}},
	{PI_Connection_Management, &TagDescriptor{Label: "conn_mgmt", Name: "Connection management", Parse: tlv_parse_uint8, Text: text_xid_conn_mgmt}},
	{0x02, &TagDescriptor{Label: "sqp", Name: "Signal quality parameter", Parse: tlv_parse_uint8}},
	{0x03, &TagDescriptor{Label: "xid_seq", Name: "XID sequencing", Parse: tlv_parse_uint8, Text: tlv_text_uint_hex}},
	{0x04, &TagDescriptor{Label: "avlc_options", Name: "AVLC specific options", Parse: tlv_parse_uint8, Text: tlv_text_uint_hex}},
	{0x05, &TagDescriptor{Label: "expedited_sn_conn", Name: "Expedited SN connection", Parse: tlv_parse_octets}},
	{PI_LCR_Cause, &TagDescriptor{Label: "lcr_cause", Name: "LCR cause", Parse: parse_xid_lcr_cause, Text: text_xid_lcr_cause, JSON: json_xid_lcr_cause}},
	{0x81, &TagDescriptor{Label: "modulation_support", Name: "Modulation support", Parse: parse_xid_modulation}},
	{0x82, &TagDescriptor{Label: "alt_gs", Name: "Acceptable alternate ground stations", Parse: parse_xid_gs_list, Text: text_xid_gs_list, JSON: json_xid_gs_list}},
	{0x83, &TagDescriptor{Label: "dst_airport", Name: "Destination airport", Parse: tlv_parse_string}},
	{0x84, &TagDescriptor{Label: "ac_location", Name: "Aircraft location", Parse: parse_xid_location, Text: text_xid_location, JSON: json_xid_location}},
	{0xc0, &TagDescriptor{Label: "autotune", Name: "Autotune frequency", Parse: parse_xid_autotune, JSON: json_xid_frequency}},
	{0xc1, &TagDescriptor{Label: "replacement_gs", Name: "Replacement ground stations", Parse: parse_xid_gs_list, Text: text_xid_gs_list, JSON: json_xid_gs_list}},
	{0xc2, &TagDescriptor{Label: "freq_support", Name: "Frequency support", Parse: parse_xid_freq_list, JSON: json_xid_freq_list}},
	{0xc3, &TagDescriptor{Label: "timer_tg1", Name: "Timer TG1", Parse: tlv_parse_uint}},
	{0xc4, &TagDescriptor{Label: "timer_tg2", Name: "Timer TG2", Parse: tlv_parse_uint}},
	{0xc5, &TagDescriptor{Label: "timer_tg3", Name: "Timer TG3", Parse: tlv_parse_uint}},
	{0xc6, &TagDescriptor{Label: "timer_tg4", Name: "Timer TG4", Parse: tlv_parse_uint}},
	{0xc7, &TagDescriptor{Label: "timer_tg5", Name: "Timer TG5", Parse: tlv_parse_uint}},
	{0xc8, &TagDescriptor{Label: "timer_t4", Name: "Timer T4", Parse: tlv_parse_uint}},
	{0xc9, &TagDescriptor{Label: "counter_nd4", Name: "Counter ND4", Parse: tlv_parse_uint}},
	{0xcb, &TagDescriptor{Label: "gs_location", Name: "Ground station location", Parse: parse_xid_location, Text: text_xid_location, JSON: json_xid_location}},
}

/*-------------------------------------------------------------------
 *
 * Name:        ParseXID
 *
 * Inputs:	buf	 - Information field of the XID frame.
 *		response - C/R bit of the destination address.
 *		pf	 - Poll / final bit.
 *
 *--------------------------------------------------------------------*/

type XIDGroup struct {
	ID     byte
	Params []Tag // nil for groups we don't know.
	Raw    []byte
}

type XIDFrame struct {
	Type   XIDType
	Groups []XIDGroup
}

func ParseXID(buf []byte, response bool, pf bool) (*ProtoNode, error) {
	if len(buf) < 3 {
		return nil, fmt.Errorf("%w: XID of %d octets", ErrTooShort, len(buf))
	}
	if buf[0] != FI_Format_Indicator {
		return nil, fmt.Errorf("%w: XID format identifier 0x%02x", ErrUnsupported, buf[0])
	}

	var x = &XIDFrame{} //nolint:exhaustruct
	var rest = buf[1:]

	for len(rest) > 0 {
		if len(rest) < 3 {
			return nil, fmt.Errorf("%w: XID group header", ErrTruncated)
		}

		var g = XIDGroup{ID: rest[0]} //nolint:exhaustruct
		var glen = int(binary.BigEndian.Uint16(rest[1:3]))
		rest = rest[3:]
		if glen > len(rest) {
			return nil, fmt.Errorf("%w: XID group 0x%02x of %d octets, %d left", ErrTruncated, g.ID, glen, len(rest))
		}
		g.Raw = rest[:glen]
		rest = rest[glen:]

		var dict TagDict
		switch g.ID {
		case GI_Public:
			dict = xid_public_params
		case GI_Private:
			dict = xid_private_params
		}

		if dict != nil {
			var params, err = ParseTags(g.Raw, dict, 1)
			if err != nil {
				return nil, fmt.Errorf("XID group 0x%02x: %w", g.ID, err)
			}
			g.Params = params
		}

		x.Groups = append(x.Groups, g)
	}

	var h = false
	if cm := x.find_param(GI_Private, PI_Connection_Management); cm != nil && cm.Value != nil {
		h = cm.Value.(uint32)&PV_Connection_Management_H != 0
	}
	x.Type = xid_type(response, pf, h)

	return new_node("xid", x, nil), nil
}

func (x *XIDFrame) find_param(gid byte, code byte) *Tag {
	for i := range x.Groups {
		if x.Groups[i].ID == gid {
			if t := find_tag(x.Groups[i].Params, code); t != nil {
				return t
			}
		}
	}
	return nil
}

// Build an XID information field.  For tests and burst generation.

func BuildXID(public []Tag, private []Tag) []byte {
	var out = []byte{FI_Format_Indicator}
	for _, g := range []struct {
		id   byte
		tags []Tag
	}{{GI_Public, public}, {GI_Private, private}} {
		if len(g.tags) == 0 {
			continue
		}
		var body = EncodeTags(g.tags, 1)
		out = append(out, g.id)
		out = binary.BigEndian.AppendUint16(out, uint16(len(body)))
		out = append(out, body...)
	}
	return out
}

func (x *XIDFrame) FormatText(w *TextWriter, indent int) {
	w.Line(indent, "XID: %s: %s", x.Type.Name, x.Type.Description)
	indent++

	for _, g := range x.Groups {
		switch {
		case g.ID == GI_Public:
			w.Line(indent, "Public Parameters:")
			FormatTagsText(w, indent+1, g.Params)
		case g.ID == GI_Private:
			w.Line(indent, "VDL2 Parameters:")
			FormatTagsText(w, indent+1, g.Params)
		default:
			w.Line(indent, "Unknown group 0x%02x (%d bytes):", g.ID, len(g.Raw))
			w.Hex(indent+1, g.Raw)
		}
	}
}

func (x *XIDFrame) FormatJSON() any {
	var m = map[string]any{
		"type":       x.Type.Name,
		"type_descr": x.Type.Description,
	}

	for _, g := range x.Groups {
		switch g.ID {
		case GI_Public:
			m["pub_params"] = FormatTagsJSON(g.Params)
		case GI_Private:
			m["vdl_params"] = FormatTagsJSON(g.Params)
		default:
			m[fmt.Sprintf("group_%02x", g.ID)] = hex_string(g.Raw)
		}
	}

	return m
}
