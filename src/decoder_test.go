package vdl2

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testFreq = 136975000

// Takes rapid.TB so property checks can use it too.
func newTestDecoder(t rapid.TB) (*ChannelDecoder, *FrameQueue, *Statistics) {
	t.Helper()

	var stats = NewStatistics(prometheus.NewRegistry())
	var q = NewFrameQueue(stats)
	return NewChannelDecoder(testFreq, q, stats), q, stats
}

func drainQueue(q *FrameQueue) []*QueuedFrame {
	var out []*QueuedFrame
	for q.Len() > 0 {
		var f, _ = q.Pop(context.Background())
		out = append(out, f)
	}
	return out
}

var testBurstInfo = BurstInfo{Timestamp: time.Unix(1700000000, 0), Signal: -10, Noise: -40}

func TestDecoderRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var n = rapid.IntRange(1, 3).Draw(t, "nframes")
		var frames [][]byte
		for i := range n {
			var body = rapid.SliceOfN(rapid.Byte(), AVLC_HDR_LEN, 400).Draw(t, "frame"+string(rune('0'+i)))
			frames = append(frames, avlc_append_fcs(body))
		}

		var bits, err = EncodeBurst(frames)
		if err != nil {
			t.Fatalf("EncodeBurst: %v", err)
		}

		var d, q, stats = newTestDecoder(t)
		d.DecodeBurst(testBurstInfo, bits)

		if d.Phase() != Idle {
			t.Fatalf("decoder left in %s", d.Phase())
		}

		var got = drainQueue(q)
		if len(got) != n {
			t.Fatalf("got %d frames, want %d", len(got), n)
		}
		for i, f := range got {
			if string(f.Data) != string(frames[i]) {
				t.Fatalf("frame %d differs", i)
			}
			if f.Index != i || f.Freq != testFreq || f.HeaderCorrected != 0 || f.FECCorrected != 0 {
				t.Fatalf("bad metadata %+v", f)
			}
			if !avlc_fcs_ok(f.Data) {
				t.Fatalf("frame %d FCS", i)
			}
		}
		if stats.Count(testFreq, STAT_FRAMES_QUEUED) != float64(n) {
			t.Fatalf("frames_queued counter")
		}
	})
}

func TestDecoderCorrectsErrors(t *testing.T) {
	var frame = avlc_append_fcs([]byte("a frame long enough to get six check octets in its only block, which means up to three octet errors are fixable"))
	var bits, err = EncodeBurst([][]byte{frame})
	require.NoError(t, err)

	// One flipped header bit and one flipped data bit.
	bits[3] ^= 1
	bits[HEADER_LEN+40] ^= 1

	var d, q, stats = newTestDecoder(t)
	d.DecodeBurst(testBurstInfo, bits)

	var got = drainQueue(q)
	require.Len(t, got, 1)
	assert.Equal(t, frame, got[0].Data)
	assert.Equal(t, 1, got[0].HeaderCorrected)
	assert.Equal(t, 1, got[0].FECCorrected)
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_HEADER_CORRECTED), 0)
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_RS_CORRECTED), 0)
}

func TestDecoderRandomBitErrors(t *testing.T) {
	var r = rand.New(rand.NewPCG(1, 2)) //nolint:gosec
	var frame = avlc_append_fcs(make([]byte, 600))

	var clean, err = EncodeBurst([][]byte{frame})
	require.NoError(t, err)

	for range 20 {
		var bits = append([]byte(nil), clean...)
		// Three bit errors can damage at most three octets.
		flip_random_bits(bits[HEADER_LEN:], 3, r)

		var d, q, _ = newTestDecoder(t)
		d.DecodeBurst(testBurstInfo, bits)

		var got = drainQueue(q)
		require.Len(t, got, 1)
		assert.Equal(t, frame, got[0].Data)
	}
}

func TestDecoderPhases(t *testing.T) {
	var bits, err = EncodeBurst([][]byte{avlc_append_fcs([]byte("phases of the decoder"))})
	require.NoError(t, err)

	var d, q, _ = newTestDecoder(t)
	assert.Equal(t, Idle, d.Phase())
	assert.Zero(t, d.RequestedBits())

	// Bits while Idle are ignored.
	d.PushBits(bits)
	assert.False(t, d.Ready())

	d.StartBurst(testBurstInfo)
	assert.Equal(t, ReadingHeader, d.Phase())
	assert.Equal(t, HEADER_LEN, d.RequestedBits())

	d.PushBits(bits[:HEADER_LEN])
	require.True(t, d.Ready())
	d.Step()
	assert.Equal(t, ReadingData, d.Phase())
	assert.Equal(t, len(bits)-HEADER_LEN, d.RequestedBits())
	assert.False(t, d.Ready())

	d.PushBits(bits[HEADER_LEN:])
	require.True(t, d.Ready())
	d.Step()
	assert.Equal(t, Idle, d.Phase())
	assert.Equal(t, 1, q.Len())

	// Step while Idle does nothing.
	d.Step()
	assert.Equal(t, Idle, d.Phase())
}

func TestDecoderLengthLimits(t *testing.T) {
	var bits, err = EncodeBurst([][]byte{avlc_append_fcs(make([]byte, 100))})
	require.NoError(t, err)

	var d, q, stats = newTestDecoder(t)
	d.SetLimits(64, 32)
	d.DecodeBurst(testBurstInfo, bits)

	assert.Zero(t, q.Len())
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_HEADER_TOO_LONG), 0)
	assert.Equal(t, Idle, d.Phase())
}

func TestDecoderCorrectedHeaderTighterLimit(t *testing.T) {
	var bits, err = EncodeBurst([][]byte{avlc_append_fcs(make([]byte, 100))})
	require.NoError(t, err)
	var datalen = int(header_length(bits_to_word_msbfirst(descramble_copy(bits[:HEADER_LEN]))))

	var d, q, stats = newTestDecoder(t)
	d.SetLimits(datalen, datalen-1)

	bits[5] ^= 1
	d.DecodeBurst(testBurstInfo, bits)

	assert.Zero(t, q.Len())
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_HEADER_TOO_LONG), 0)
}

func descramble_copy(b []byte) []byte {
	var out = append([]byte(nil), b...)
	var lfsr = LFSR_IV
	scramble_bits(out, &lfsr)
	return out
}

func TestDecoderTruncated(t *testing.T) {
	var bits, err = EncodeBurst([][]byte{avlc_append_fcs(make([]byte, 50))})
	require.NoError(t, err)

	var d, q, stats = newTestDecoder(t)

	d.DecodeBurst(testBurstInfo, bits[:HEADER_LEN-1])
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_HEADER_TRUNCATED), 0)

	d.DecodeBurst(testBurstInfo, bits[:len(bits)-1])
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_DATA_TRUNCATED), 0)

	assert.Zero(t, q.Len())
	assert.Equal(t, Idle, d.Phase())
}

func TestDecoderStartBurstAbandonsPrevious(t *testing.T) {
	var bits, err = EncodeBurst([][]byte{avlc_append_fcs([]byte("first burst, never finished"))})
	require.NoError(t, err)

	var d, q, stats = newTestDecoder(t)
	d.StartBurst(testBurstInfo)
	d.PushBits(bits[:HEADER_LEN])
	d.Step()
	require.Equal(t, ReadingData, d.Phase())

	d.DecodeBurst(testBurstInfo, bits)

	assert.Equal(t, 1, q.Len())
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_BAD_STEP), 0)
	assert.InDelta(t, 2, stats.Count(testFreq, STAT_BURSTS), 0)
}

func TestDecoderGarbage(t *testing.T) {
	var r = rand.New(rand.NewPCG(3, 4)) //nolint:gosec

	// Whatever random bits do, the decoder ends Idle and never panics.
	for range 200 {
		var bits = make([]byte, 25+r.IntN(4000))
		for i := range bits {
			bits[i] = byte(r.IntN(2))
		}

		var d, _, _ = newTestDecoder(t)
		d.DecodeBurst(testBurstInfo, bits)
		assert.Equal(t, Idle, d.Phase())
	}
}
