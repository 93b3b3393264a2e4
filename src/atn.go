package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Bits of the Aeronautical Telecommunication Network
 *		shared by CLNP, ES-IS and IDRP.
 *
 *		- NSAP addresses.
 *		- The ATN security label, carried in the CLNP and ES-IS
 *		  security option and the IDRP security path attribute.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	ATN_NSAP_LEN = 20
	ATN_AFI      = 0x47

	SEC_FORMAT_GLOBAL = 0xc0 // Globally unique security label.
)

/*------------------------------------------------------------------
 *
 * ATN NSAP address layout:
 *
 *	AFI(1) IDI(2) VER(1) ADM(3) RDF(1) ARS(3) LOC(2) SYS(6) SEL(1)
 *
 *------------------------------------------------------------------*/

var atn_nsap_groups = []int{1, 2, 1, 3, 1, 3, 2, 6, 1}

func format_nsap(b []byte) string {
	if len(b) != ATN_NSAP_LEN || b[0] != ATN_AFI {
		return hex.EncodeToString(b)
	}

	var parts = make([]string, 0, len(atn_nsap_groups))
	var pos = 0
	for _, n := range atn_nsap_groups {
		parts = append(parts, hex.EncodeToString(b[pos:pos+n]))
		pos += n
	}
	return strings.Join(parts, " ")
}

// One length octet, then that many octets.  Addresses in CLNP and
// ES-IS headers are like this, as are parts of the security label.

func parse_lv(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 1 {
		return nil, nil, fmt.Errorf("%w: missing length octet", ErrTruncated)
	}
	var n = int(buf[0])
	if len(buf) < 1+n {
		return nil, nil, fmt.Errorf("%w: field of %d octets, %d left", ErrTruncated, n, len(buf)-1)
	}
	return buf[1 : 1+n], buf[1+n:], nil
}

/*------------------------------------------------------------------
 *
 * Security label.
 *
 *	format (0xc0)
 *	registration id length, registration id
 *	security information length, security information
 *
 *	The security information is a sequence of tag sets, each
 *	a set name length, set name, set length and set value.  ATN
 *	uses one tag set, whose value is itself a TLV list.
 *
 *------------------------------------------------------------------*/

var atn_traffic_categories = [8]string{
	"ATN Operational Communications",
	"ATN Administrative Communications",
	"General Communications",
	"ATN System Management Communications",
	"reserved", "reserved", "reserved", "reserved",
}

var atn_operational_policies = map[byte]string{
	0x00: "Air Traffic Service Communications, no traffic type policy preference",
	0x01: "Air Traffic Service Communications, traffic type policy preference",
	0x08: "Aeronautical Operational Control, no traffic type policy preference",
	0x09: "Aeronautical Operational Control, Gatelink only",
	0x0a: "Aeronautical Operational Control, VHF only",
	0x0b: "Aeronautical Operational Control, Satellite only",
	0x0c: "Aeronautical Operational Control, HF only",
	0x0d: "Aeronautical Operational Control, Mode S only",
}

type atn_traffic_type struct {
	Category byte
	Policy   byte
}

func (t atn_traffic_type) String() string {
	var s = atn_traffic_categories[t.Category]
	if t.Category == 0 {
		if p, ok := atn_operational_policies[t.Policy]; ok {
			return s + ", " + p
		}
	}
	return fmt.Sprintf("%s, policy 0x%02x", s, t.Policy)
}

func parse_atn_traffic_type(_ byte, buf []byte) (any, error) {
	if len(buf) != 1 {
		return nil, fmt.Errorf("%w: traffic type of %d octets", ErrBadLength, len(buf))
	}
	return atn_traffic_type{Category: buf[0] >> 5, Policy: buf[0] & 0x1f}, nil
}

// One bit per class, A in the most significant bit.

func parse_atsc_class(_ byte, buf []byte) (any, error) {
	if len(buf) != 1 {
		return nil, fmt.Errorf("%w: ATSC class of %d octets", ErrBadLength, len(buf))
	}

	var classes []string
	for i := range 8 {
		if buf[0]&(0x80>>i) != 0 {
			classes = append(classes, string(rune('A'+i)))
		}
	}
	if len(classes) == 0 {
		return "none", nil
	}
	return strings.Join(classes, " "), nil
}

var atn_security_tags = TagDict{
	{0x0f, &TagDescriptor{Label: "traffic_type", Name: "Traffic type and routing policy", Parse: parse_atn_traffic_type,
		JSON: func(v any) any { return fmt.Sprint(v) }}},
	{0x03, &TagDescriptor{Label: "atsc_class", Name: "ATSC class", Parse: parse_atsc_class}},
}

type SecurityLabel struct {
	Format  byte
	RegID   []byte
	TagSets []SecurityTagSet
	Raw     []byte // Anything not in the global format.
}

type SecurityTagSet struct {
	Name []byte
	Tags []Tag
}

func ParseSecurityLabel(buf []byte) (*SecurityLabel, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("%w: empty security label", ErrTooShort)
	}

	var l = &SecurityLabel{Format: buf[0]} //nolint:exhaustruct
	if l.Format != SEC_FORMAT_GLOBAL {
		l.Raw = buf[1:]
		return l, nil
	}

	if err := l.parse_global(buf[1:]); err != nil {
		return nil, err
	}

	return l, nil
}

// Registration id and security information, both length prefixed.
// The security information is optional.

func (l *SecurityLabel) parse_global(buf []byte) error {
	var reg, rest, err = parse_lv(buf)
	if err != nil {
		return fmt.Errorf("security registration id: %w", err)
	}
	l.RegID = reg

	if len(rest) == 0 {
		return nil
	}

	var info []byte
	info, rest, err = parse_lv(rest)
	if err != nil {
		return fmt.Errorf("security information: %w", err)
	}
	if len(rest) > 0 {
		l.Raw = rest
	}

	for len(info) > 0 {
		var name, value []byte
		name, info, err = parse_lv(info)
		if err != nil {
			return fmt.Errorf("tag set name: %w", err)
		}
		value, info, err = parse_lv(info)
		if err != nil {
			return fmt.Errorf("tag set: %w", err)
		}

		var tags, tagErr = ParseTags(value, atn_security_tags, 1)
		if tagErr != nil {
			return tagErr
		}
		l.TagSets = append(l.TagSets, SecurityTagSet{Name: name, Tags: tags})
	}

	return nil
}

// For use as a TagDescriptor Parse.
func parse_security_label_tag(_ byte, buf []byte) (any, error) {
	return ParseSecurityLabel(buf)
}

func (l *SecurityLabel) FormatText(w *TextWriter, indent int) {
	if l.Format != SEC_FORMAT_GLOBAL {
		w.Line(indent, "Security format: 0x%02x", l.Format)
		w.Hex(indent+1, l.Raw)
		return
	}

	w.Line(indent, "Security registration ID: %s", hex_string(l.RegID))
	for _, ts := range l.TagSets {
		w.Line(indent, "Tag set %s:", hex_string(ts.Name))
		FormatTagsText(w, indent+1, ts.Tags)
	}
	if len(l.Raw) > 0 {
		w.Line(indent, "Unparsed data: %s", hex_string(l.Raw))
	}
}

func (l *SecurityLabel) FormatJSON() any {
	var m = map[string]any{"format": l.Format}
	if l.RegID != nil {
		m["sec_reg_id"] = hex_string(l.RegID)
	}

	var sets = make([]any, 0, len(l.TagSets))
	for _, ts := range l.TagSets {
		sets = append(sets, map[string]any{
			"name": hex_string(ts.Name),
			"tags": FormatTagsJSON(ts.Tags),
		})
	}
	if len(sets) > 0 {
		m["tag_sets"] = sets
	}
	if len(l.Raw) > 0 {
		m["unparsed"] = hex_string(l.Raw)
	}
	return m
}

func text_security_label(w *TextWriter, indent int, d *TagDescriptor, v any) {
	w.Line(indent, "%s:", d.Name)
	v.(*SecurityLabel).FormatText(w, indent+1)
}

func json_security_label(v any) any {
	return v.(*SecurityLabel).FormatJSON()
}
