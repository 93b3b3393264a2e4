package vdl2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCOTPConcatenated(t *testing.T) {
	// AK with credit 2, then a DT carrying user data.
	var buf = []byte{0x04, COTP_AK | 0x02, 0x00, 0x07, 0x05}
	buf = append(buf, testCOTPData("CPDLC")...)

	var n, err = ParseCOTP(buf, true)
	require.NoError(t, err)

	var c = n.Data.(*COTPConcatenated)
	require.Len(t, c.TPDUs, 2)

	assert.Equal(t, byte(COTP_AK), c.TPDUs[0].Code)
	assert.Equal(t, uint8(2), c.TPDUs[0].Credit)
	assert.Equal(t, uint16(7), c.TPDUs[0].DstRef)
	assert.Equal(t, uint32(5), c.TPDUs[0].SeqNo)

	assert.Equal(t, byte(COTP_DT), c.TPDUs[1].Code)
	assert.True(t, c.TPDUs[1].EOT)
	assert.Equal(t, 5, c.TPDUs[1].UserData)

	require.NotNil(t, n.Next)
	assert.Equal(t, "icao_apdu", n.Next.Name)

	var tpdus = n.FormatJSON()["cotp"].(map[string]any)["tpdus"].([]any)
	assert.Len(t, tpdus, 2)

	var w TextWriter
	n.FormatText(&w, 0)
	assert.Contains(t, w.String(), "COTP Data Acknowledgement:")
	assert.Contains(t, w.String(), "COTP Data:")
}

func TestCOTPNoUserData(t *testing.T) {
	var n, err = ParseCOTP(testCOTPData(""), false)
	require.NoError(t, err)
	assert.Nil(t, n.Next)

	// Non-final kinds never hand anything up.
	n, err = ParseCOTP([]byte{0x04, COTP_EA, 0x00, 0x01, 0x03}, false)
	require.NoError(t, err)
	assert.Nil(t, n.Next)
}

func TestCOTPConnectRequest(t *testing.T) {
	var params = []byte{0xc0, 0x01, 0x0a, 0xc1, 0x02, 'a', 'b', 0xc0, 0x01, 0x20}
	var buf = []byte{byte(1 + 5 + len(params)), COTP_CR | 0x03, 0x00, 0x00, 0x12, 0x34, 0x20}
	buf = append(buf, params...)

	var n, err = ParseCOTP(buf, false)
	require.NoError(t, err)

	var tp = n.Data.(*COTPConcatenated).TPDUs[0]
	assert.Equal(t, "Connect Request", tp.Name())
	assert.Equal(t, uint16(0x1234), tp.SrcRef)
	assert.Equal(t, uint8(2), tp.Class)
	assert.Equal(t, uint8(3), tp.Credit)

	require.Len(t, tp.Params, 3)
	assert.Equal(t, uint32(1024), tp.Params[0].Value)
	assert.Equal(t, []byte("ab"), tp.Params[1].Value)
	assert.True(t, tp.Params[2].Unparseable)

	var w TextWriter
	n.FormatText(&w, 0)
	assert.Contains(t, w.String(), "Protocol class: 2")
	assert.Contains(t, w.String(), "Calling TSAP: 61 62")
}

func TestCOTPDisconnect(t *testing.T) {
	var n, err = ParseCOTP([]byte{0x06, COTP_DR, 0x00, 0x01, 0x00, 0x02, 0x80}, false)
	require.NoError(t, err)

	var tp = n.Data.(*COTPConcatenated).TPDUs[0]
	assert.Equal(t, byte(0x80), tp.Reason)

	var w TextWriter
	n.FormatText(&w, 0)
	assert.Contains(t, w.String(), "Normal disconnect initiated by session entity")
}

func TestCOTPErrorTPDU(t *testing.T) {
	var n, err = ParseCOTP([]byte{0x08, COTP_ER, 0x00, 0x01, 0x02, 0xc1, 0x02, 0xde, 0xad}, false)
	require.NoError(t, err)

	var tp = n.Data.(*COTPConcatenated).TPDUs[0]
	assert.Equal(t, byte(0x02), tp.Reason)
	require.Len(t, tp.Params, 1)
	assert.Equal(t, "invalid_tpdu", tp.Params[0].Desc.Label)
}

func TestCOTPBadListFailsWhole(t *testing.T) {
	for name, buf := range map[string][]byte{
		"unknown code":      {0x04, COTP_AK, 0x00, 0x07, 0x05, 0x04, 0x90, 0x00, 0x00, 0x00},
		"length past end":   {0x09, COTP_DT, 0x00, 0x01},
		"short fixed part":  {0x02, COTP_DT, 0x00},
		"one octet":         {0x04},
		"truncated param":   {0x06, COTP_DC, 0x00, 0x01, 0x00, 0x02, 0xc0},
		"reserved LI value": {0xff, COTP_DT},
		"zero LI":           {0x00, COTP_DT},
		"zero LI in list":   {0x04, COTP_AK, 0x00, 0x07, 0x05, 0x00, COTP_DT},
	} {
		t.Run(name, func(t *testing.T) {
			var _, err = ParseCOTP(buf, false)
			assert.Error(t, err)
		})
	}
}

func TestCOTPZeroLengthIndicator(t *testing.T) {
	var _, err = ParseCOTP([]byte{0x00, COTP_DT}, true)
	require.ErrorIs(t, err, ErrBadLength)

	// Compressed CLNP data, then a TPDU with LI 0, inside an X.25 DATA
	// packet with a good FCS.  The COTP layer degrades to raw.
	var frame = BuildAVLCFrame(testAircraft, testGround, 0x00, []byte{0x10, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00})
	var f = parseTestFrame(t, frame)
	var clnp = f.Payload.Find("clnp")
	require.NotNil(t, clnp)
	require.True(t, is_raw(clnp.Next))
	assert.Contains(t, clnp.Next.Data.(*RawData).Reason, "COTP")
}
