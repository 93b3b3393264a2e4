package vdl2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNSAP(sys byte) []byte {
	var a = []byte{ATN_AFI, 0x00, 0x27, 0x81, 0x41, 0x4f, 0x43, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01}
	a = append(a, 0x00, 0x00, 0x00, 0x00, 0x00, sys)
	return append(a, 0x01)
}

// COTP DT with EOT set, dst ref 1.
func testCOTPData(userData string) []byte {
	return append([]byte{0x04, COTP_DT, 0x00, 0x01, 0x80}, userData...)
}

func buildCLNP(flags byte, extra []byte, payload []byte) []byte {
	var dst = testNSAP(0x01)
	var src = testNSAP(0x02)
	var hlen = CLNP_MIN_LEN + 1 + len(dst) + 1 + len(src) + len(extra)

	var out = []byte{NLPID_CLNP, byte(hlen), 0x01, 0x20, flags, 0x00, byte(hlen + len(payload)), 0x00, 0x00}
	out = append(out, byte(len(dst)))
	out = append(out, dst...)
	out = append(out, byte(len(src)))
	out = append(out, src...)
	out = append(out, extra...)
	return append(out, payload...)
}

func TestCLNPDataCarriesCOTP(t *testing.T) {
	var pdu = buildCLNP(CLNP_DT, nil, testCOTPData("ABC"))

	var n, err = ParseCLNP(pdu, true)
	require.NoError(t, err)
	require.Equal(t, "clnp", n.Name)

	var h = n.Data.(*CLNPHeader)
	assert.Equal(t, byte(CLNP_DT), h.Type)
	assert.Equal(t, "Data", h.TypeName())
	assert.Equal(t, testNSAP(0x01), h.Dst)
	assert.Equal(t, testNSAP(0x02), h.Src)
	assert.False(t, h.HasSegmentation)

	var cotp = n.Find("cotp")
	require.NotNil(t, cotp)
	var app = n.Find("icao_apdu")
	require.NotNil(t, app)
	assert.Equal(t, []byte("ABC"), app.Data.(*RawData).Data)

	var w TextWriter
	n.FormatText(&w, 0)
	assert.Contains(t, w.String(), "CLNP Data:")
	assert.Contains(t, w.String(), "Src NSAP: 47 0027 81 414f43 01 000001 0001 000000000002 01")
	assert.Contains(t, w.String(), "Lifetime: 16.0 sec")
}

func TestCLNPOptions(t *testing.T) {
	var opts = []byte{0xcd, 0x01, 0x05, 0xee, 0x02, 0xaa, 0xbb, 0xcd, 0x01, 0x20}
	var n, err = ParseCLNP(buildCLNP(CLNP_DT, opts, testCOTPData("")), false)
	require.NoError(t, err)

	var h = n.Data.(*CLNPHeader)
	require.Len(t, h.Options, 3)
	assert.Equal(t, uint32(5), h.Options[0].Value)
	assert.Nil(t, h.Options[1].Desc)
	assert.True(t, h.Options[2].Unparseable)

	var j = n.FormatJSON()["clnp"].(map[string]any)
	assert.Len(t, j["options"], 3)
}

func TestCLNPFragmentIsRaw(t *testing.T) {
	var seg = []byte{0x12, 0x34, 0x00, 0x00, 0x01, 0x00}
	var n, err = ParseCLNP(buildCLNP(0x80|0x40|CLNP_DT, seg, testCOTPData("ABC")), true)
	require.NoError(t, err)

	var h = n.Data.(*CLNPHeader)
	assert.True(t, h.HasSegmentation)
	assert.Equal(t, uint16(0x1234), h.DataUnitID)
	assert.Equal(t, uint16(0x100), h.TotalLen)

	require.True(t, is_raw(n.Next))
	assert.Contains(t, n.Next.Data.(*RawData).Reason, "Fragmented")
}

func TestCLNPSegmentationPermittedWhole(t *testing.T) {
	var seg = []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x40}
	var n, err = ParseCLNP(buildCLNP(0x80|CLNP_DT, seg, testCOTPData("X")), true)
	require.NoError(t, err)
	assert.NotNil(t, n.Find("cotp"))
}

func TestCLNPErrorReport(t *testing.T) {
	var discarded = buildCLNP(CLNP_DT, nil, nil)
	var opts = []byte{0xc1, 0x02, 0x81, 0x0a}
	var n, err = ParseCLNP(buildCLNP(CLNP_ER, opts, discarded), false)
	require.NoError(t, err)

	var h = n.Data.(*CLNPHeader)
	assert.Equal(t, "Error Report", h.TypeName())
	assert.Equal(t, clnp_discard{Code: 0x81, Pointer: 0x0a}, h.Options[0].Value)

	require.NotNil(t, n.Next)
	assert.Equal(t, "clnp", n.Next.Name)
	assert.Nil(t, n.Next.Next)

	var w TextWriter
	n.FormatText(&w, 0)
	assert.Contains(t, w.String(), "Destination address unknown")
}

func TestCLNPBadPDUs(t *testing.T) {
	var _, err = ParseCLNP([]byte{0x81, 0x09}, false)
	require.ErrorIs(t, err, ErrTooShort)

	var pdu = buildCLNP(CLNP_DT, nil, nil)
	pdu[0] = NLPID_ESIS
	_, err = ParseCLNP(pdu, false)
	require.ErrorIs(t, err, ErrUnsupported)

	pdu = buildCLNP(CLNP_DT, nil, nil)
	pdu[1] = byte(len(pdu) + 1)
	_, err = ParseCLNP(pdu, false)
	require.ErrorIs(t, err, ErrBadLength)

	pdu = buildCLNP(CLNP_DT, nil, nil)
	pdu[CLNP_MIN_LEN] = 60
	_, err = ParseCLNP(pdu, false)
	require.ErrorIs(t, err, ErrTruncated)

	// SP set but no room for the segmentation part.
	_, err = ParseCLNP(buildCLNP(0x80|CLNP_DT, nil, nil), false)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCLNPBadCOTPDegradesToRaw(t *testing.T) {
	var n, err = ParseCLNP(buildCLNP(CLNP_DT, nil, []byte{0x04, 0x90, 0x00, 0x00, 0x00}), false)
	require.NoError(t, err)
	require.True(t, is_raw(n.Next))
	assert.Contains(t, n.Next.Data.(*RawData).Reason, "Unparseable COTP TPDU")
}

func TestCompressedCLNPData(t *testing.T) {
	var pdu = []byte{
		CLNP_COMPRESSED_DT<<5 | 0x10 | 0x03, // EX, priority 3
		0x81, 0x23,                          // two octet LREF
		0x80 | 0x0a,                         // SP, lifetime 5 s
		0x12, 0x34,                          // PDU id
	}
	pdu = append(pdu, testCOTPData("HI")...)

	var n, err = ParseCompressedCLNP(pdu, true)
	require.NoError(t, err)

	var h = n.Data.(*CLNPCompressedHeader)
	assert.Equal(t, uint16(0x0123), h.LREF)
	assert.Equal(t, byte(3), h.Priority)
	assert.True(t, h.HasExtension)
	assert.True(t, h.SP)
	assert.False(t, h.ER)
	assert.Equal(t, byte(0x0a), h.Lifetime)
	assert.True(t, h.HasPDUID)
	assert.Equal(t, uint16(0x1234), h.PDUID)

	var app = n.Find("icao_apdu")
	require.NotNil(t, app)
	assert.Equal(t, []byte("HI"), app.Data.(*RawData).Data)

	var w TextWriter
	n.FormatText(&w, 0)
	assert.Contains(t, w.String(), "CLNP Data (compressed header):")
	assert.Contains(t, w.String(), "LREF: 0x123 Prio: 3")
	assert.Contains(t, w.String(), "Lifetime: 5.0 sec SP: 1 E/R: 0")
}

func TestCompressedCLNPShortLREF(t *testing.T) {
	var n, err = ParseCompressedCLNP(append([]byte{0x00, 0x05}, testCOTPData("")...), false)
	require.NoError(t, err)

	var h = n.Data.(*CLNPCompressedHeader)
	assert.Equal(t, uint16(5), h.LREF)
	assert.False(t, h.HasExtension)
	assert.NotNil(t, n.Find("cotp"))
	assert.Nil(t, n.Find("icao_apdu"))
}

func TestCompressedCLNPErrorReport(t *testing.T) {
	var n, err = ParseCompressedCLNP([]byte{CLNP_COMPRESSED_ER << 5, 0x05, 0x81, 0xde, 0xad}, false)
	require.NoError(t, err)

	var h = n.Data.(*CLNPCompressedHeader)
	assert.True(t, h.HasDiscard)
	assert.Equal(t, byte(0x81), h.Discard.Code)
	require.True(t, is_raw(n.Next))
	assert.Equal(t, []byte{0xde, 0xad}, n.Next.Data.(*RawData).Data)

	var j = n.FormatJSON()["clnp"].(map[string]any)
	assert.Equal(t, true, j["compressed"])
	assert.Equal(t, byte(0x81), j["discard_reason"])
}

func TestCompressedCLNPBad(t *testing.T) {
	for name, pdu := range map[string][]byte{
		"too short":        {0x00},
		"long LREF cut":    {0x00, 0x80},
		"no extension":     {0x10, 0x05},
		"no PDU id":        {0x10, 0x05, 0x80, 0x01},
		"ER no reason":     {CLNP_COMPRESSED_ER << 5, 0x05},
		"unsupported type": {0x40, 0x05, 0x00},
	} {
		t.Run(name, func(t *testing.T) {
			var _, err = ParseCompressedCLNP(pdu, false)
			assert.Error(t, err)
		})
	}
}
