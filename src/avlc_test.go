package vdl2

import (
	"encoding/hex"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Downlink ACARS from .SP-LWA (4CA9B1) to ground station 10A1B2, FCS included.
const testACARSFrameHex = "10146c1464546c4920ffff0132aed3d0ad4c57c115c831b502cdb031c14c4fb03132b3c8454c4c4f833c5e7f3a1c"

var (
	testAircraft = AVLCAddr{Addr: 0x4CA9B1, Type: ADDRTYPE_AIRCRAFT, Status: 0}
	testGround   = AVLCAddr{Addr: 0x10A1B2, Type: ADDRTYPE_GS_ADM, Status: 0}
)

var testACARS = ACARSMessage{ //nolint:exhaustruct
	Mode:    '2',
	Reg:     ".SP-LWA",
	Ack:     0x15,
	Label:   "H1",
	BlockID: '5',
	MsgNum:  "M01A",
	Flight:  "LO0123",
	Text:    "HELLO",
}

func testFrameBytes(t testing.TB) []byte {
	t.Helper()

	var b, err = hex.DecodeString(testACARSFrameHex)
	require.NoError(t, err)
	return b
}

func testQueued(data []byte) *QueuedFrame {
	return &QueuedFrame{ //nolint:exhaustruct
		Freq:      testFreq,
		Timestamp: testBurstInfo.Timestamp,
		Signal:    -10,
		Noise:     -40,
		BurstBits: 1234,
		Index:     0,
		Data:      data,
	}
}

func parseTestFrame(t testing.TB, data []byte) *AVLCFrame {
	t.Helper()

	var f, err = ParseAVLC(testQueued(data), nil)
	require.NoError(t, err)
	return f
}

func TestBuildMatchesKnownFrame(t *testing.T) {
	var m = testACARS
	var frame = BuildAVLCFrame(testAircraft, testGround, 0x20, BuildACARS(&m, true))
	assert.Equal(t, testACARSFrameHex, hex.EncodeToString(frame))
}

func TestParseAVLCACARS(t *testing.T) {
	var stats = NewStatistics(prometheus.NewRegistry())
	var f, err = ParseAVLC(testQueued(testFrameBytes(t)), stats)
	require.NoError(t, err)

	assert.Equal(t, testAircraft, f.Src)
	assert.Equal(t, testGround, f.Dst)
	assert.True(t, f.Downlink())
	assert.Equal(t, IFrame, f.Control.Kind)
	assert.Equal(t, uint8(0), f.Control.SendSeq)
	assert.Equal(t, uint8(1), f.Control.RecvSeq)
	assert.Equal(t, ProtoACARS, f.Protocol)

	require.NotNil(t, f.Payload)
	var m = f.Payload.Data.(*ACARSMessage)
	assert.Equal(t, ".SP-LWA", m.Reg)
	assert.Equal(t, "H1", m.Label)
	assert.Equal(t, "M01A", m.MsgNum)
	assert.Equal(t, "LO0123", m.Flight)
	assert.Equal(t, "HELLO", m.Text)
	assert.True(t, m.CRC)
	assert.False(t, m.More)

	assert.InDelta(t, 1, stats.Count(testFreq, STAT_AVLC_OK), 0)
	assert.InDelta(t, 0, stats.Count(testFreq, STAT_PAYLOAD_RAW), 0)

	var w TextWriter
	f.Node().FormatText(&w, 0)
	assert.Equal(t, "4CA9B1 (Aircraft, Airborne) -> 10A1B2 (Ground station): Command\n"+
		"AVLC type: I sseq: 0 rseq: 1 poll: 0\n"+
		" ACARS:\n"+
		"  Reg: .SP-LWA Flight: LO0123\n"+
		"  Mode: 2 Label: H1 Blk id: 5 More: 0 Ack: !\n"+
		"  Msg num: M01A\n"+
		"  Message:\n"+
		"   HELLO\n", w.String())
}

func TestParseAVLCBadFCS(t *testing.T) {
	var stats = NewStatistics(prometheus.NewRegistry())
	var data = testFrameBytes(t)
	data[12] ^= 0x01

	var _, err = ParseAVLC(testQueued(data), stats)
	require.ErrorIs(t, err, ErrBadFCS)
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_AVLC_FCS_BAD), 0)
	assert.InDelta(t, 0, stats.Count(testFreq, STAT_AVLC_OK), 0)
}

func TestParseAVLCTooShort(t *testing.T) {
	var stats = NewStatistics(prometheus.NewRegistry())
	var _, err = ParseAVLC(testQueued(make([]byte, AVLC_MIN_LEN-1)), stats)
	require.ErrorIs(t, err, ErrTooShort)
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_AVLC_TOO_SHORT), 0)
}

func TestParseAVLCCorruptACARSIsRaw(t *testing.T) {
	var stats = NewStatistics(prometheus.NewRegistry())

	// Good FCS around an ACARS block with a broken CRC.
	var m = testACARS
	var payload = BuildACARS(&m, true)
	payload[len(payload)-2] ^= 0xff
	var frame = BuildAVLCFrame(testAircraft, testGround, 0x20, payload)

	var f, err = ParseAVLC(testQueued(frame), stats)
	require.NoError(t, err)
	assert.Equal(t, ProtoACARS, f.Protocol)
	require.True(t, is_raw(f.Payload))
	assert.Contains(t, f.Payload.Data.(*RawData).Reason, "Unparseable ACARS message")
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_PAYLOAD_RAW), 0)
}

func TestParseAVLCX25(t *testing.T) {
	var pkt = append([]byte{0x10, 0x01, 0x00}, buildCLNP(CLNP_DT, nil, testCOTPData("X"))...)
	var frame = BuildAVLCFrame(testGround, testAircraft, 0x22, pkt)

	var f = parseTestFrame(t, frame)
	assert.False(t, f.Downlink())
	assert.Equal(t, ProtoX25, f.Protocol)
	assert.Equal(t, "x25", f.Payload.Name)
	assert.NotNil(t, f.Payload.Find("cotp"))
}

func TestParseAVLCXID(t *testing.T) {
	var info = BuildXID(nil, []Tag{{Code: PI_Connection_Management, Raw: []byte{0x00}}}) //nolint:exhaustruct
	var all = AVLCAddr{Addr: AVLC_ALL_STATIONS_ADDRESS, Type: ADDRTYPE_ALL_STATIONS, Status: 0}
	var frame = BuildAVLCFrame(testGround, all, U_XID, info)

	var f = parseTestFrame(t, frame)
	assert.Equal(t, UFrame, f.Control.Kind)
	assert.Equal(t, byte(U_XID), f.Control.UFunc)
	assert.Equal(t, ProtoXID, f.Protocol)
	assert.Equal(t, "GSIF", f.Payload.Data.(*XIDFrame).Type.Name)

	var j = f.Node().FormatJSON()["avlc"].(map[string]any)
	assert.Equal(t, "U", j["frame_type"])
	assert.Equal(t, "XID", j["cmd"])
	assert.Contains(t, j, "xid")
}

func TestParseAVLCSupervisory(t *testing.T) {
	// RR, rseq 5, poll/final set.
	var frame = BuildAVLCFrame(testGround, testAircraft, 5<<5|0x10|0x01, nil)

	var f = parseTestFrame(t, frame)
	assert.Equal(t, SFrame, f.Control.Kind)
	assert.Equal(t, uint8(S_RR), f.Control.SFunc)
	assert.Equal(t, uint8(5), f.Control.RecvSeq)
	assert.True(t, f.Control.PF)
	assert.Nil(t, f.Payload)
	assert.Equal(t, ProtoUnknown, f.Protocol)
	assert.Equal(t, "S (Receive Ready) rseq: 5 P/F: 1", f.Control.String())
}

func TestParseAVLCUnknownUFrameKeepsPayload(t *testing.T) {
	var frame = BuildAVLCFrame(testGround, testAircraft, U_TEST, []byte{0x01, 0x02})

	var f = parseTestFrame(t, frame)
	require.True(t, is_raw(f.Payload))
	assert.Equal(t, []byte{0x01, 0x02}, f.Payload.Data.(*RawData).Data)
}

func TestAVLCAddressRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var a = AVLCAddr{
			Addr:   rapid.Uint32Range(0, 0xffffff).Draw(t, "addr"),
			Type:   rapid.Uint8Range(0, 7).Draw(t, "type"),
			Status: rapid.Uint8Range(0, 1).Draw(t, "status"),
		}
		var last = rapid.Bool().Draw(t, "last")

		var enc = encode_avlc_addr(a, last)
		if (enc[AVLC_ADDR_LEN-1]&1 != 0) != last {
			t.Fatalf("extension bit")
		}
		for i := range AVLC_ADDR_LEN - 1 {
			if enc[i]&1 != 0 {
				t.Fatalf("extension bit set in octet %d", i)
			}
		}

		var got, err = parse_avlc_addr(enc[:])
		if err != nil || got != a {
			t.Fatalf("got %+v, want %+v (%v)", got, a, err)
		}
	})
}

func TestAVLCAddressWireLayout(t *testing.T) {
	var cases = []struct {
		wire []byte
		want AVLCAddr
	}{
		{[]byte{0x64, 0x54, 0x6c, 0x48}, AVLCAddr{Addr: 0x4CA9B1, Type: ADDRTYPE_AIRCRAFT, Status: 0}},
		{[]byte{0x64, 0x54, 0x6c, 0xc8}, AVLCAddr{Addr: 0x4CA9B1, Type: ADDRTYPE_AIRCRAFT, Status: 1}},
		{[]byte{0x10, 0x14, 0x6c, 0x15}, AVLCAddr{Addr: 0x10A1B2, Type: ADDRTYPE_GS_ADM, Status: 0}},
		{[]byte{0x10, 0x14, 0x6c, 0xd5}, AVLCAddr{Addr: 0x10A1B2, Type: ADDRTYPE_GS_DEL, Status: 1}},
		{[]byte{0xfe, 0xfe, 0xfe, 0x7e}, AVLCAddr{Addr: AVLC_ALL_STATIONS_ADDRESS, Type: ADDRTYPE_ALL_STATIONS, Status: 0}},
	}

	for _, c := range cases {
		var got, err = parse_avlc_addr(c.wire)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "% x", c.wire)

		var enc = encode_avlc_addr(c.want, c.wire[AVLC_ADDR_LEN-1]&1 != 0)
		assert.Equal(t, c.wire, enc[:])
	}
}

func TestAVLCControlKinds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var c = rapid.Byte().Draw(t, "control")
		var ctl = parse_avlc_control(c)

		switch {
		case c&1 == 0:
			if ctl.Kind != IFrame {
				t.Fatalf("0x%02x not an I frame", c)
			}
		case c&3 == 1:
			if ctl.Kind != SFrame {
				t.Fatalf("0x%02x not an S frame", c)
			}
		default:
			if ctl.Kind != UFrame || ctl.UFunc&0x10 != 0 {
				t.Fatalf("0x%02x not a U frame", c)
			}
		}
		if ctl.PF != (c&0x10 != 0) {
			t.Fatalf("0x%02x P/F", c)
		}
	})
}
