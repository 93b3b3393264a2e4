package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Generic type-length-value list parser.
 *
 * Description:	Used with a different dictionary for XID parameters,
 *		COTP variable parts, IDRP path attributes and RIB
 *		attribute sets, ATN security tag sets and X.25
 *		facilities.
 *
 *		Each element is a one octet type code, a 1 or 2 octet
 *		big endian length, then that many octets of value.
 *
 *		- A length running past the end of the buffer spoils
 *		  the whole list.
 *		- A registered type whose parser rejects the value
 *		  becomes an "unparseable" tag holding the raw octets.
 *		- An unregistered type becomes an "unknown" tag
 *		  holding the raw octets.
 *
 *		Either way the cursor moves on by the declared length,
 *		however much of it the parser actually looked at.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

type TagDescriptor struct {
	Label string // Short name, used as the JSON key.
	Name  string // Human readable description.

	// Turn the value octets into something printable.
	// nil means keep the raw octets.
	Parse func(code byte, buf []byte) (any, error)

	// Optional.  Default prints "Name: value" on one line.
	Text func(w *TextWriter, indent int, d *TagDescriptor, v any)

	// Optional.  Default uses the parsed value as is.
	JSON func(v any) any
}

type TagDictEntry struct {
	Code byte
	Desc *TagDescriptor
}

// Searched in order, first match wins.
type TagDict []TagDictEntry

func (d TagDict) Lookup(code byte) *TagDescriptor {
	for i := range d {
		if d[i].Code == code {
			return d[i].Desc
		}
	}
	return nil
}

type Tag struct {
	Code        byte
	Desc        *TagDescriptor // nil for unknown codes.
	Value       any
	Raw         []byte
	Unparseable bool // Registered code, but Parse rejected the value.
}

/*------------------------------------------------------------------
 *
 * Name:	ParseTags
 *
 * Inputs:	buf	 - Sequence of TLVs.
 *		dict	 - Known type codes.
 *		lenWidth - Octets in each length field, 1 or 2.
 *
 * Returns:	Tags in wire order.
 *
 *------------------------------------------------------------------*/

func ParseTags(buf []byte, dict TagDict, lenWidth int) ([]Tag, error) {
	var tags []Tag

	for len(buf) > 0 {
		var t, rest, err = parse_one_tag(buf, dict, lenWidth)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
		buf = rest
	}

	return tags, nil
}

// Take one element from the front of buf.  Also for lists whose
// element count is given up front rather than by total length.

func parse_one_tag(buf []byte, dict TagDict, lenWidth int) (Tag, []byte, error) {
	Assert(lenWidth == 1 || lenWidth == 2)

	if len(buf) < 1+lenWidth {
		return Tag{}, nil, fmt.Errorf("%w: %d octets left, need %d for tag header", ErrTruncated, len(buf), 1+lenWidth) //nolint:exhaustruct
	}

	var code = buf[0]
	var tlen int
	if lenWidth == 1 {
		tlen = int(buf[1])
	} else {
		tlen = int(binary.BigEndian.Uint16(buf[1:3]))
	}
	buf = buf[1+lenWidth:]

	if tlen > len(buf) {
		return Tag{}, nil, fmt.Errorf("%w: tag 0x%02x length %d, %d octets left", ErrTruncated, code, tlen, len(buf)) //nolint:exhaustruct
	}

	var value = buf[:tlen]

	var t = Tag{Code: code, Desc: dict.Lookup(code), Raw: value} //nolint:exhaustruct

	if t.Desc != nil && t.Desc.Parse != nil {
		var v, err = t.Desc.Parse(code, value)
		if err != nil {
			logger.Debug("Tag value rejected", "tag", t.Desc.Label, "code", code, "err", err)
			t.Unparseable = true
		} else {
			t.Value = v
		}
	} else if t.Desc != nil {
		t.Value = value
	}

	return t, buf[tlen:], nil
}

// Encode a list of (code, value) pairs.  Used to build test material.

func EncodeTags(tags []Tag, lenWidth int) []byte {
	var out []byte
	for _, t := range tags {
		out = append(out, t.Code)
		if lenWidth == 1 {
			out = append(out, byte(len(t.Raw)))
		} else {
			out = binary.BigEndian.AppendUint16(out, uint16(len(t.Raw)))
		}
		out = append(out, t.Raw...)
	}
	return out
}

func find_tag(tags []Tag, code byte) *Tag {
	for i := range tags {
		if tags[i].Code == code {
			return &tags[i]
		}
	}
	return nil
}

func FormatTagsText(w *TextWriter, indent int, tags []Tag) {
	for i := range tags {
		var t = &tags[i]

		switch {
		case t.Desc == nil:
			w.Line(indent, "-- Unknown tag 0x%02x (%d bytes):", t.Code, len(t.Raw))
			w.Hex(indent+1, t.Raw)
		case t.Unparseable:
			w.Line(indent, "-- Unparseable %s (%d bytes):", t.Desc.Name, len(t.Raw))
			w.Hex(indent+1, t.Raw)
		case t.Desc.Text != nil:
			t.Desc.Text(w, indent, t.Desc, t.Value)
		default:
			if b, ok := t.Value.([]byte); ok {
				w.Line(indent, "%s: %s", t.Desc.Name, hex_string(b))
			} else {
				w.Line(indent, "%s: %v", t.Desc.Name, t.Value)
			}
		}
	}
}

func FormatTagsJSON(tags []Tag) []any {
	var out = make([]any, 0, len(tags))

	for i := range tags {
		var t = &tags[i]

		switch {
		case t.Desc == nil:
			out = append(out, map[string]any{"unknown_tag": t.Code, "data": hex_string(t.Raw)})
		case t.Unparseable:
			out = append(out, map[string]any{"unparseable_tag": t.Desc.Label, "data": hex_string(t.Raw)})
		default:
			var v = t.Value
			if t.Desc.JSON != nil {
				v = t.Desc.JSON(v)
			} else if b, ok := v.([]byte); ok {
				v = hex_string(b)
			}
			out = append(out, map[string]any{t.Desc.Label: v})
		}
	}

	return out
}

/*------------------------------------------------------------------
 *
 * Common value parsers.
 *
 *------------------------------------------------------------------*/

// Big endian unsigned, 1 to 4 octets.

func tlv_parse_uint(_ byte, buf []byte) (any, error) {
	if len(buf) < 1 || len(buf) > 4 {
		return nil, fmt.Errorf("%w: %d octets for an integer", ErrBadLength, len(buf))
	}

	var v uint32
	for _, b := range buf {
		v = (v << 8) | uint32(b)
	}
	return v, nil
}

func tlv_parse_uint8(_ byte, buf []byte) (any, error) {
	if len(buf) != 1 {
		return nil, fmt.Errorf("%w: expected 1 octet, got %d", ErrBadLength, len(buf))
	}
	return uint32(buf[0]), nil
}

func tlv_parse_uint16(_ byte, buf []byte) (any, error) {
	if len(buf) != 2 {
		return nil, fmt.Errorf("%w: expected 2 octets, got %d", ErrBadLength, len(buf))
	}
	return uint32(binary.BigEndian.Uint16(buf)), nil
}

func tlv_parse_octets(_ byte, buf []byte) (any, error) {
	return buf, nil
}

func tlv_parse_string(_ byte, buf []byte) (any, error) {
	return string(buf), nil
}

// Value must be empty.
func tlv_parse_flag(_ byte, buf []byte) (any, error) {
	if len(buf) != 0 {
		return nil, fmt.Errorf("%w: expected no value, got %d octets", ErrBadLength, len(buf))
	}
	return true, nil
}

func tlv_text_uint_hex(w *TextWriter, indent int, d *TagDescriptor, v any) {
	w.Line(indent, "%s: 0x%x", d.Name, v)
}

func tlv_text_flag(w *TextWriter, indent int, d *TagDescriptor, _ any) {
	w.Line(indent, "%s", d.Name)
}
