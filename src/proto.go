package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Result of dissecting a frame.
 *
 * Description:	Each protocol layer is one ProtoNode.  A node's Next
 *		is the layer it encapsulates, so a frame decodes to a
 *		chain like avlc -> x25 -> clnp -> cotp -> icao.
 *
 *		Several PDUs of the same protocol carried together
 *		(concatenated COTP TPDUs, say) are a list inside one
 *		node's Data, not separate nodes.
 *
 *		Nodes hold no external resources.  Dropping the
 *		reference to the head frees the whole chain.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strings"
)

// Capabilities every layer's data provides.

type Formatter interface {
	FormatText(w *TextWriter, indent int)
	FormatJSON() any
}

type ProtoNode struct {
	Name string // Protocol name, also the JSON key.
	Data Formatter
	Next *ProtoNode
}

func new_node(name string, data Formatter, next *ProtoNode) *ProtoNode {
	return &ProtoNode{Name: name, Data: data, Next: next}
}

// Render this node and everything it encapsulates, each layer
// indented one step further.

func (n *ProtoNode) FormatText(w *TextWriter, indent int) {
	for node := n; node != nil; node = node.Next {
		if node.Data != nil {
			node.Data.FormatText(w, indent)
		}
		indent++
	}
}

// Nested JSON, each layer's object holding the next one under its name.
// A layer whose value isn't an object is wrapped as {"value": v} so the
// layers under it still have somewhere to go.  If a layer already uses
// the next layer's name for a field of its own, the next layer goes under
// name + "_pdu" instead.

func (n *ProtoNode) FormatJSON() map[string]any {
	var top = map[string]any{}
	var parent = top

	for node := n; node != nil; node = node.Next {
		var m = map[string]any{}
		if node.Data != nil {
			switch v := node.Data.FormatJSON().(type) {
			case map[string]any:
				if v != nil {
					m = v
				}
			case nil:
			default:
				m["value"] = v
			}
		}

		var key = node.Name
		if _, taken := parent[key]; taken {
			key += "_pdu"
		}
		parent[key] = m
		parent = m
	}

	return top
}

// Find the first node for the named protocol, nil if there isn't one.

func (n *ProtoNode) Find(name string) *ProtoNode {
	for node := n; node != nil; node = node.Next {
		if node.Name == name {
			return node
		}
	}
	return nil
}

/*------------------------------------------------------------------
 *
 * Raw bytes, for layers we can't or don't decode.
 *
 *------------------------------------------------------------------*/

const PROTO_RAW = "raw"

type RawData struct {
	Reason string // Why it wasn't decoded.  Empty for plain payload.
	Data   []byte
}

func raw_node(buf []byte, reason string) *ProtoNode {
	return new_node(PROTO_RAW, &RawData{Reason: reason, Data: buf}, nil)
}

func (r *RawData) FormatText(w *TextWriter, indent int) {
	if r.Reason != "" {
		w.Line(indent, "-- %s", r.Reason)
	}
	if len(r.Data) > 0 {
		w.Line(indent, "Data (%d bytes):", len(r.Data))
		w.Hex(indent+1, r.Data)
	}
}

func (r *RawData) FormatJSON() any {
	var m = map[string]any{"data": hex_string(r.Data)}
	if r.Reason != "" {
		m["err"] = r.Reason
	}
	return m
}

// True if the node is a raw fallback.

func is_raw(n *ProtoNode) bool {
	return n != nil && n.Name == PROTO_RAW
}

/*------------------------------------------------------------------
 *
 * Name:	parse_or_raw
 *
 * Purpose:	Run a dissector, degrading to raw bytes on failure.
 *
 * Description:	Dissection is best effort.  A layer that can't be
 *		parsed is kept, as a hex dump, rather than losing
 *		the frame.
 *
 *------------------------------------------------------------------*/

func parse_or_raw(what string, buf []byte, parse func([]byte) (*ProtoNode, error)) *ProtoNode {
	if len(buf) == 0 {
		return nil
	}

	var node, err = parse(buf)
	if err != nil {
		logger.Debug("Unparseable "+what, "err", err, "len", len(buf))
		return raw_node(buf, fmt.Sprintf("Unparseable %s: %s", what, err))
	}

	return node
}

/*------------------------------------------------------------------
 *
 * Text output with indentation.
 *
 *------------------------------------------------------------------*/

const INDENT_WIDTH = 1

type TextWriter struct {
	sb strings.Builder
}

func (w *TextWriter) Line(indent int, format string, args ...any) {
	w.sb.WriteString(strings.Repeat(" ", indent*INDENT_WIDTH))
	fmt.Fprintf(&w.sb, format, args...)
	w.sb.WriteByte('\n')
}

func (w *TextWriter) Hex(indent int, data []byte) {
	w.sb.WriteString(hex_dump(data, indent*INDENT_WIDTH))
}

func (w *TextWriter) String() string {
	return w.sb.String()
}

func (w *TextWriter) Reset() {
	w.sb.Reset()
}
