package vdl2

import (
	"fmt"
	"strings"
)

// Classic 16 bytes per line hex and ASCII dump.
// Each line is prefixed with indent spaces.

func hex_dump(p []byte, indent int) string {
	var sb strings.Builder
	var offset = 0
	var pad = strings.Repeat(" ", indent)

	for len(p) > 0 {
		var n = min(len(p), 16)

		fmt.Fprintf(&sb, "%s%04x: ", pad, offset)

		for i := 0; i < n; i++ {
			fmt.Fprintf(&sb, "%02x ", p[i])
		}

		for i := n; i < 16; i++ {
			sb.WriteString("   ")
		}

		sb.WriteString(" |")

		for i := 0; i < n; i++ {
			if p[i] >= 0x20 && p[i] <= 0x7E {
				sb.WriteByte(p[i])
			} else {
				sb.WriteByte('.')
			}
		}

		sb.WriteString("|\n")

		p = p[n:]
		offset += n
	}

	return sb.String()
}

// Debug helper.  Only does work when the dump would actually be shown.
func debug_hex_dump(msg string, p []byte) {
	if debug_level < 2 {
		return
	}

	logger.Debug(msg, "len", len(p))
	logger.Print("\n" + hex_dump(p, 2))
}

// Compact single line form, as used in JSON output.
func hex_string(p []byte) string {
	var sb strings.Builder
	for i, b := range p {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}
