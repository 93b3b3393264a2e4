package vdl2

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFreq2 = 136725000

// One burst line per frame list.
func testBurstLines(t testing.TB, freq uint32, bursts ...[][]byte) string {
	t.Helper()

	var sb strings.Builder
	for _, frames := range bursts {
		var bits, err = EncodeBurst(frames)
		require.NoError(t, err)
		require.NoError(t, WriteBurst(&sb, &Burst{Freq: freq, Info: testBurstInfo, Bits: bits}))
	}
	return sb.String()
}

func newTestReceiver(t testing.TB) (*Receiver, *Statistics, *bytes.Buffer) {
	t.Helper()

	var stats = NewStatistics(prometheus.NewRegistry())
	var buf bytes.Buffer
	var o, err = NewOutput(FORMAT_JSON, "", nil, NewWriterSink(&buf))
	require.NoError(t, err)

	return NewReceiver(stats, Outputs{o}), stats, &buf
}

func TestReceiverRun(t *testing.T) {
	var m = testACARS
	var acars = BuildAVLCFrame(testAircraft, testGround, 0x20, BuildACARS(&m, true))
	var rr = BuildAVLCFrame(testGround, testAircraft, 0x21, nil)

	var input = "# two channels\n\n" +
		testBurstLines(t, testFreq, [][]byte{acars, rr}, [][]byte{acars}) +
		"this is not a burst\n" +
		testBurstLines(t, testFreq2, [][]byte{rr})

	var rx, stats, buf = newTestReceiver(t)
	require.NoError(t, rx.Run(context.Background(), strings.NewReader(input)))

	var perFreq = map[float64]int{}
	var dec = json.NewDecoder(buf)
	for dec.More() {
		var msg map[string]any
		require.NoError(t, dec.Decode(&msg))
		var v = msg["vdl2"].(map[string]any)
		perFreq[v["freq"].(float64)]++
	}

	assert.Equal(t, map[float64]int{testFreq: 3, testFreq2: 1}, perFreq)

	assert.InDelta(t, 2, stats.Count(testFreq, STAT_BURSTS), 0)
	assert.InDelta(t, 3, stats.Count(testFreq, STAT_AVLC_OK), 0)
	assert.InDelta(t, 1, stats.Count(testFreq2, STAT_AVLC_OK), 0)
}

func TestReceiverDropsBadFrames(t *testing.T) {
	var bad = BuildAVLCFrame(testGround, testAircraft, 0x21, nil)
	bad[len(bad)-1] ^= 0xff

	var rx, stats, buf = newTestReceiver(t)
	require.NoError(t, rx.Run(context.Background(), strings.NewReader(testBurstLines(t, testFreq, [][]byte{bad}))))

	assert.Zero(t, buf.Len())
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_AVLC_FCS_BAD), 0)
}

func TestReceiverFrameLimits(t *testing.T) {
	var big = BuildAVLCFrame(testGround, testAircraft, 0x20, make([]byte, 300))

	var rx, stats, buf = newTestReceiver(t)
	rx.MaxFrameLength = 100
	require.NoError(t, rx.Run(context.Background(), strings.NewReader(testBurstLines(t, testFreq, [][]byte{big}))))

	assert.Zero(t, buf.Len())
	assert.InDelta(t, 1, stats.Count(testFreq, STAT_HEADER_TOO_LONG), 0)
}

func TestReceiverCancel(t *testing.T) {
	var pr, pw = io.Pipe()
	defer pr.Close()

	var rx, _, _ = newTestReceiver(t)
	var ctx, cancel = context.WithCancel(context.Background())

	var done = make(chan error, 1)
	go func() { done <- rx.Run(ctx, pr) }()

	var rr = BuildAVLCFrame(testGround, testAircraft, 0x21, nil)
	var _, err = io.WriteString(pw, testBurstLines(t, testFreq, [][]byte{rr}))
	require.NoError(t, err)

	cancel()
	// The reader only notices once its input ends.
	require.NoError(t, pw.Close())

	select {
	case err = <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
