package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Aviation VHF Link Control frames.
 *
 * Description:	An AVLC frame is HDLC with 4 octet addresses:
 *
 *		+------+------+------+---------+-----+
 *		| dst  | src  | ctrl | payload | FCS |
 *		|  4   |  4   |  1   |   n     |  2  |
 *		+------+------+------+---------+-----+
 *
 *		Each address octet carries 7 bits of address in its upper
 *		bits, with the extension bit in bit 0.  The 28 address bits
 *		arrive least significant first, so they need reversing.
 *		After that the station id is the top 24 bits, then 3 bits
 *		of type, and the status bit last.
 *
 *------------------------------------------------------------------*/

import (
	"bytes"
	"fmt"
)

const (
	AVLC_ADDR_LEN = 4
	AVLC_HDR_LEN  = 2*AVLC_ADDR_LEN + 1
	AVLC_MIN_LEN  = AVLC_HDR_LEN + AVLC_FCS_LEN
)

var acars_signature = []byte{0xff, 0xff, 0x01}

/*------------------------------------------------------------------
 *
 * Addresses
 *
 *------------------------------------------------------------------*/

const (
	ADDRTYPE_AIRCRAFT         = 1
	ADDRTYPE_GS_ADM           = 4 // Ground station, ICAO administered.
	ADDRTYPE_GS_DEL           = 5 // Ground station, delegated.
	ADDRTYPE_ALL_STATIONS     = 7
	AVLC_ALL_STATIONS_ADDRESS = 0xffffff
)

type AVLCAddr struct {
	Addr   uint32 // 24 bit station address.
	Type   uint8  // 3 bits.
	Status uint8  // Air/ground in source, command/response in destination.
}

func (a AVLCAddr) TypeName() string {
	switch a.Type {
	case ADDRTYPE_AIRCRAFT:
		return "Aircraft"
	case ADDRTYPE_GS_ADM, ADDRTYPE_GS_DEL:
		return "Ground station"
	case ADDRTYPE_ALL_STATIONS:
		return "All stations"
	default:
		return "reserved"
	}
}

func (a AVLCAddr) String() string {
	return fmt.Sprintf("%06X", a.Addr)
}

func (a AVLCAddr) IsAircraft() bool {
	return a.Type == ADDRTYPE_AIRCRAFT
}

func (a AVLCAddr) IsGroundStation() bool {
	return a.Type == ADDRTYPE_GS_ADM || a.Type == ADDRTYPE_GS_DEL
}

func parse_avlc_addr(buf []byte) (AVLCAddr, error) {
	if len(buf) < AVLC_ADDR_LEN {
		return AVLCAddr{}, fmt.Errorf("%w: address needs %d octets, got %d", ErrTooShort, AVLC_ADDR_LEN, len(buf))
	}

	var raw = uint32(buf[0]>>1) | uint32(buf[1]>>1)<<7 | uint32(buf[2]>>1)<<14 | uint32(buf[3]>>1)<<21
	var val = reverse(raw, 28)

	return AVLCAddr{
		Addr:   (val >> 4) & 0xffffff,
		Type:   uint8((val >> 1) & 7),
		Status: uint8(val & 1),
	}, nil
}

// Inverse of parse_avlc_addr.  last sets the extension bit, which marks
// the final octet of the address field.

func encode_avlc_addr(a AVLCAddr, last bool) [AVLC_ADDR_LEN]byte {
	var val = (a.Addr&0xffffff)<<4 | uint32(a.Type&7)<<1 | uint32(a.Status&1)
	var raw = reverse(val, 28)

	var out [AVLC_ADDR_LEN]byte
	for i := range out {
		out[i] = byte((raw>>(7*i))&0x7f) << 1
	}
	if last {
		out[AVLC_ADDR_LEN-1] |= 1
	}
	return out
}

/*------------------------------------------------------------------
 *
 * Control field
 *
 *------------------------------------------------------------------*/

type FrameKind int

const (
	IFrame FrameKind = iota
	SFrame
	UFrame
)

const (
	S_RR   = 0
	S_RNR  = 1
	S_REJ  = 2
	S_SREJ = 3
)

const (
	U_UI   = 0x03
	U_DM   = 0x0f
	U_DISC = 0x43
	U_FRMR = 0x87
	U_XID  = 0xaf
	U_TEST = 0xe3
)

type AVLCControl struct {
	Raw     byte
	Kind    FrameKind
	SendSeq uint8 // I frames.
	RecvSeq uint8 // I and S frames.
	PF      bool  // Poll / final.
	SFunc   uint8 // S frames.
	UFunc   uint8 // U frames, with the P/F bit removed.
}

func parse_avlc_control(c byte) AVLCControl {
	var ctl = AVLCControl{Raw: c, PF: (c>>4)&1 != 0} //nolint:exhaustruct

	switch {
	case c&1 == 0:
		ctl.Kind = IFrame
		ctl.SendSeq = (c >> 1) & 7
		ctl.RecvSeq = (c >> 5) & 7
	case c&3 == 1:
		ctl.Kind = SFrame
		ctl.SFunc = (c >> 2) & 3
		ctl.RecvSeq = (c >> 5) & 7
	default:
		ctl.Kind = UFrame
		ctl.UFunc = c & 0xef
	}

	return ctl
}

var s_func_names = [4]string{"Receive Ready", "Receive not Ready", "Reject", "Selective Reject"}

func u_func_name(f uint8) string {
	switch f {
	case U_UI:
		return "UI"
	case U_DM:
		return "DM"
	case U_DISC:
		return "DISC"
	case U_FRMR:
		return "FRMR"
	case U_XID:
		return "XID"
	case U_TEST:
		return "TEST"
	default:
		return fmt.Sprintf("unknown (0x%02x)", f)
	}
}

func (c AVLCControl) String() string {
	switch c.Kind {
	case IFrame:
		return fmt.Sprintf("I sseq: %d rseq: %d poll: %d", c.SendSeq, c.RecvSeq, IfThenElse(c.PF, 1, 0))
	case SFrame:
		return fmt.Sprintf("S (%s) rseq: %d P/F: %d", s_func_names[c.SFunc], c.RecvSeq, IfThenElse(c.PF, 1, 0))
	default:
		return fmt.Sprintf("U (%s) P/F: %d", u_func_name(c.UFunc), IfThenElse(c.PF, 1, 0))
	}
}

/*------------------------------------------------------------------
 *
 * Frames
 *
 *------------------------------------------------------------------*/

type PayloadProtocol int

const (
	ProtoUnknown PayloadProtocol = iota
	ProtoACARS
	ProtoX25
	ProtoXID
)

func (p PayloadProtocol) String() string {
	switch p {
	case ProtoACARS:
		return "ACARS"
	case ProtoX25:
		return "X.25"
	case ProtoXID:
		return "XID"
	default:
		return "unknown"
	}
}

type AVLCFrame struct {
	Meta *QueuedFrame

	Src      AVLCAddr
	Dst      AVLCAddr
	Control  AVLCControl
	Protocol PayloadProtocol
	Payload  *ProtoNode // nil when the frame carries no information field.
}

// Aircraft to ground.
func (f *AVLCFrame) Downlink() bool {
	return f.Src.IsAircraft()
}

func (f *AVLCFrame) Node() *ProtoNode {
	return new_node("avlc", f, f.Payload)
}

/*------------------------------------------------------------------
 *
 * Name:	ParseAVLC
 *
 * Purpose:	Check and decode one frame taken from the queue.
 *
 * Returns:	The frame, or an error if it is too short or the FCS
 *		is wrong.  Trouble in the payload is never an error;
 *		that part degrades to raw octets.
 *
 *------------------------------------------------------------------*/

func ParseAVLC(q *QueuedFrame, stats *Statistics) (*AVLCFrame, error) {
	var buf = q.Data

	if len(buf) < AVLC_MIN_LEN {
		stats.Inc(q.Freq, STAT_AVLC_TOO_SHORT)
		return nil, fmt.Errorf("%w: %d octets, minimum is %d", ErrTooShort, len(buf), AVLC_MIN_LEN)
	}

	if !avlc_fcs_ok(buf) {
		stats.Inc(q.Freq, STAT_AVLC_FCS_BAD)
		return nil, ErrBadFCS
	}

	buf = buf[:len(buf)-AVLC_FCS_LEN]

	var f = &AVLCFrame{Meta: q} //nolint:exhaustruct

	f.Dst, _ = parse_avlc_addr(buf[0:AVLC_ADDR_LEN])
	f.Src, _ = parse_avlc_addr(buf[AVLC_ADDR_LEN : 2*AVLC_ADDR_LEN])
	f.Control = parse_avlc_control(buf[2*AVLC_ADDR_LEN])

	var payload = buf[AVLC_HDR_LEN:]
	var downlink = f.Downlink()

	switch {
	case f.Control.Kind == IFrame && bytes.HasPrefix(payload, acars_signature):
		f.Protocol = ProtoACARS
		f.Payload = parse_or_raw("ACARS message", payload[len(acars_signature):], func(b []byte) (*ProtoNode, error) {
			return ParseACARS(b, downlink)
		})
	case f.Control.Kind == IFrame:
		f.Protocol = ProtoX25
		f.Payload = parse_or_raw("X.25 packet", payload, func(b []byte) (*ProtoNode, error) {
			return ParseX25(b, downlink)
		})
	case f.Control.Kind == UFrame && f.Control.UFunc == U_XID:
		f.Protocol = ProtoXID
		f.Payload = parse_or_raw("XID frame", payload, func(b []byte) (*ProtoNode, error) {
			return ParseXID(b, f.Dst.Status != 0, f.Control.PF)
		})
	default:
		f.Protocol = ProtoUnknown
		if len(payload) > 0 {
			f.Payload = raw_node(payload, "")
		}
	}

	if is_raw(f.Payload) {
		stats.Inc(q.Freq, STAT_PAYLOAD_RAW)
	}

	stats.Inc(q.Freq, STAT_AVLC_OK)

	return f, nil
}

func (f *AVLCFrame) FormatText(w *TextWriter, indent int) {
	var src_status = IfThenElse(f.Src.IsAircraft(),
		IfThenElse(f.Src.Status != 0, "On ground", "Airborne"), "")
	var cr = IfThenElse(f.Dst.Status != 0, "Response", "Command")

	if src_status != "" {
		w.Line(indent, "%s (%s, %s) -> %s (%s): %s", f.Src, f.Src.TypeName(), src_status, f.Dst, f.Dst.TypeName(), cr)
	} else {
		w.Line(indent, "%s (%s) -> %s (%s): %s", f.Src, f.Src.TypeName(), f.Dst, f.Dst.TypeName(), cr)
	}

	w.Line(indent, "AVLC type: %s", f.Control)
}

func addr_json(a AVLCAddr) map[string]any {
	var m = map[string]any{
		"addr": a.String(),
		"type": a.TypeName(),
	}
	if a.IsAircraft() {
		m["status"] = IfThenElse(a.Status != 0, "On ground", "Airborne")
	}
	return m
}

func (f *AVLCFrame) FormatJSON() any {
	var m = map[string]any{
		"src":   addr_json(f.Src),
		"dst":   addr_json(f.Dst),
		"cr":    IfThenElse(f.Dst.Status != 0, "Response", "Command"),
		"dir":   IfThenElse(f.Downlink(), "downlink", "uplink"),
		"proto": f.Protocol.String(),
	}

	switch f.Control.Kind {
	case IFrame:
		m["frame_type"] = "I"
		m["sseq"] = f.Control.SendSeq
		m["rseq"] = f.Control.RecvSeq
		m["poll"] = f.Control.PF
	case SFrame:
		m["frame_type"] = "S"
		m["cmd"] = s_func_names[f.Control.SFunc]
		m["rseq"] = f.Control.RecvSeq
		m["pf"] = f.Control.PF
	default:
		m["frame_type"] = "U"
		m["cmd"] = u_func_name(f.Control.UFunc)
		m["pf"] = f.Control.PF
	}

	return m
}

// Build a frame, FCS included.  For tests and burst generation.

func BuildAVLCFrame(src AVLCAddr, dst AVLCAddr, control byte, payload []byte) []byte {
	var d = encode_avlc_addr(dst, false)
	var s = encode_avlc_addr(src, true)

	var frame = make([]byte, 0, AVLC_HDR_LEN+len(payload)+AVLC_FCS_LEN)
	frame = append(frame, d[:]...)
	frame = append(frame, s[:]...)
	frame = append(frame, control)
	frame = append(frame, payload...)

	return avlc_append_fcs(frame)
}
