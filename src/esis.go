package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	ISO 9542 end system to intermediate system routing
 *		exchange.
 *
 * Description:	NLPID(1) length(1) version(1) reserved(1) type(1)
 *		holding time(2) checksum(2), then per type:
 *
 *		ESH - number of source addresses, NSAPs
 *		ISH - network entity title
 *		RD  - destination NSAP, subnetwork address, [BSNPA]
 *
 *		and options up to the header length.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

const (
	ESIS_HDR_LEN = 9

	ESIS_ESH = 0x02
	ESIS_ISH = 0x04
	ESIS_RD  = 0x06
)

var esis_pdu_names = map[byte]string{
	ESIS_ESH: "End System Hello",
	ESIS_ISH: "Intermediate System Hello",
	ESIS_RD:  "Redirect",
}

var esis_options = TagDict{
	{0xc6, &TagDescriptor{Label: "es_conf_timer", Name: "ES configuration timer", Parse: tlv_parse_uint16}},
	{0xc5, &TagDescriptor{Label: "security", Name: "Security", Parse: parse_security_label_tag,
		Text: text_security_label, JSON: json_security_label}},
	{0xcd, &TagDescriptor{Label: "priority", Name: "Priority", Parse: parse_clnp_priority}},
}

type ESISPDU struct {
	Length      byte
	Version     byte
	Type        byte
	HoldingTime uint16 // Seconds.
	Checksum    uint16

	Addrs      [][]byte // ESH source addresses, ISH NET, RD destination.
	SubnetAddr []byte   // RD only.
	Options    []Tag
}

func ParseESIS(buf []byte) (*ProtoNode, error) {
	if len(buf) < ESIS_HDR_LEN {
		return nil, fmt.Errorf("%w: ES-IS PDU of %d octets", ErrTooShort, len(buf))
	}
	if buf[0] != NLPID_ESIS {
		return nil, fmt.Errorf("%w: NLPID 0x%02x is not ES-IS", ErrUnsupported, buf[0])
	}

	var p = &ESISPDU{ //nolint:exhaustruct
		Length:      buf[1],
		Version:     buf[2],
		Type:        buf[4] & 0x1f,
		HoldingTime: binary.BigEndian.Uint16(buf[5:7]),
		Checksum:    binary.BigEndian.Uint16(buf[7:9]),
	}

	var hlen = int(p.Length)
	if hlen < ESIS_HDR_LEN || hlen > len(buf) {
		return nil, fmt.Errorf("%w: ES-IS header length %d, PDU length %d", ErrBadLength, hlen, len(buf))
	}

	var rest = buf[ESIS_HDR_LEN:hlen]
	var addr []byte
	var err error

	switch p.Type {
	case ESIS_ESH:
		if len(rest) < 1 {
			return nil, fmt.Errorf("%w: ESH without address count", ErrTruncated)
		}
		var count = int(rest[0])
		rest = rest[1:]
		for range count {
			if addr, rest, err = parse_lv(rest); err != nil {
				return nil, fmt.Errorf("ESH source address: %w", err)
			}
			p.Addrs = append(p.Addrs, addr)
		}

	case ESIS_ISH:
		if addr, rest, err = parse_lv(rest); err != nil {
			return nil, fmt.Errorf("ISH network entity title: %w", err)
		}
		p.Addrs = append(p.Addrs, addr)

	case ESIS_RD:
		if addr, rest, err = parse_lv(rest); err != nil {
			return nil, fmt.Errorf("RD destination address: %w", err)
		}
		p.Addrs = append(p.Addrs, addr)
		if p.SubnetAddr, rest, err = parse_lv(rest); err != nil {
			return nil, fmt.Errorf("RD subnetwork address: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: ES-IS PDU type 0x%02x", ErrUnsupported, p.Type)
	}

	if len(rest) > 0 {
		if p.Options, err = ParseTags(rest, esis_options, 1); err != nil {
			return nil, fmt.Errorf("ES-IS options: %w", err)
		}
	}

	var next *ProtoNode
	if len(buf) > hlen {
		next = raw_node(buf[hlen:], "")
	}

	return new_node("esis", p, next), nil
}

func (p *ESISPDU) TypeName() string {
	if n, ok := esis_pdu_names[p.Type]; ok {
		return n
	}
	return fmt.Sprintf("unknown (0x%02x)", p.Type)
}

func (p *ESISPDU) addr_label() string {
	switch p.Type {
	case ESIS_ESH:
		return "Source address"
	case ESIS_ISH:
		return "Network Entity Title"
	default:
		return "Destination address"
	}
}

func (p *ESISPDU) FormatText(w *TextWriter, indent int) {
	w.Line(indent, "ES-IS %s: Hold Time: %d sec", p.TypeName(), p.HoldingTime)
	indent++

	for _, a := range p.Addrs {
		w.Line(indent, "%s: %s", p.addr_label(), format_nsap(a))
	}
	if p.Type == ESIS_RD {
		w.Line(indent, "Subnetwork address: %s", hex_string(p.SubnetAddr))
	}

	if len(p.Options) > 0 {
		w.Line(indent, "Options:")
		FormatTagsText(w, indent+1, p.Options)
	}
}

func (p *ESISPDU) FormatJSON() any {
	var addrs = make([]string, 0, len(p.Addrs))
	for _, a := range p.Addrs {
		addrs = append(addrs, format_nsap(a))
	}

	var m = map[string]any{
		"pdu_type":      p.Type,
		"pdu_type_name": p.TypeName(),
		"hold_time":     p.HoldingTime,
		"cksum":         p.Checksum,
		"addrs":         addrs,
	}
	if p.Type == ESIS_RD {
		m["subnet_addr"] = hex_string(p.SubnetAddr)
	}
	if len(p.Options) > 0 {
		m["options"] = FormatTagsJSON(p.Options)
	}
	return m
}
