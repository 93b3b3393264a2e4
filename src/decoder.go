package vdl2

/********************************************************************************
 *
 * Purpose:     Recover AVLC frames from the demodulated bits of a VDL2 burst.
 *
 * Description:	A burst, after the training sequence and sync word, is
 *
 *			header (25 bits)
 *			data octets, interleaved over RS blocks
 *			check octets, interleaved the same way
 *
 *		all scrambled by one LFSR started at the header.
 *
 *		The decoder for each channel goes Idle -> ReadingHeader ->
 *		ReadingData -> Idle.  StartBurst is the only way out of Idle.
 *		Each Step advances exactly one phase, and any problem
 *		goes straight back to Idle after bumping a counter.
 *		Nothing a burst contains can affect the next burst.
 *
 *******************************************************************************/

import (
	"time"
)

type DecoderPhase int

const (
	Idle DecoderPhase = iota
	ReadingHeader
	ReadingData
)

func (p DecoderPhase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case ReadingHeader:
		return "ReadingHeader"
	case ReadingData:
		return "ReadingData"
	default:
		return "?"
	}
}

// Longest believable transmission length, in bits.  Locking on to noise
// can produce any header at all, and we don't want to spend a long time
// collecting garbage.  A header that needed correcting is even less
// trustworthy so gets a tighter limit.

const (
	MAX_FRAME_LENGTH           = 0x3fff
	MAX_FRAME_LENGTH_CORRECTED = 0x1fff
)

type BurstInfo struct {
	Timestamp time.Time
	Signal    float64 // dBFS
	Noise     float64 // dBFS
}

type ChannelDecoder struct {
	Freq uint32 // Hz

	phase     DecoderPhase
	lfsr      uint16    // Scrambler state, carried from header to data.
	bs        bitstream // Raw bits for the current burst.
	requested int       // Bits needed before the next Step can do anything useful.
	info      BurstInfo

	// Derived from the header, valid in ReadingData.

	datalen          int // Transmission length, bits.
	datalen_octets   int
	num_blocks       int // RS blocks.
	last_block_len   int // Data octets in the last block.
	last_parity      int // Check octets sent for the last block.
	fec_octets       int // All check octets.
	header_corrected int

	max_frame_length           int
	max_frame_length_corrected int

	queue *FrameQueue
	stats *Statistics
}

func NewChannelDecoder(freq uint32, queue *FrameQueue, stats *Statistics) *ChannelDecoder {
	return &ChannelDecoder{ //nolint:exhaustruct
		Freq:                       freq,
		phase:                      Idle,
		max_frame_length:           MAX_FRAME_LENGTH,
		max_frame_length_corrected: MAX_FRAME_LENGTH_CORRECTED,
		queue:                      queue,
		stats:                      stats,
	}
}

// Override the transmission length limits.  Zero keeps the default.

func (d *ChannelDecoder) SetLimits(max_len int, max_len_corrected int) {
	if max_len > 0 {
		d.max_frame_length = max_len
	}
	if max_len_corrected > 0 {
		d.max_frame_length_corrected = max_len_corrected
	}
}

func (d *ChannelDecoder) Phase() DecoderPhase {
	return d.phase
}

// Bits the current phase needs, 0 when Idle.
func (d *ChannelDecoder) RequestedBits() int {
	return d.requested
}

// True when enough bits have been collected for Step.
func (d *ChannelDecoder) Ready() bool {
	return d.phase != Idle && d.bs.available() >= d.requested
}

/*-------------------------------------------------------------------
 *
 * Name:        StartBurst
 *
 * Purpose:     Demodulator found a sync word.  Header bits follow.
 *
 * Description:	If a previous burst was still in progress it is
 *		abandoned.
 *
 *--------------------------------------------------------------------*/

func (d *ChannelDecoder) StartBurst(info BurstInfo) {
	if d.phase != Idle {
		logger.Debug("Abandoning burst in progress", "freq", d.Freq, "phase", d.phase)
		d.abort(STAT_BAD_STEP)
	}

	d.bs.reset()
	d.lfsr = LFSR_IV
	d.info = info
	d.requested = HEADER_LEN
	d.phase = ReadingHeader

	d.stats.Inc(d.Freq, STAT_BURSTS)
}

// Demodulated bits, one per byte.

func (d *ChannelDecoder) PushBits(b []byte) {
	if d.phase == Idle {
		return
	}
	d.bs.append_bits(b)
}

func (d *ChannelDecoder) abort(stat string) {
	if stat != "" {
		d.stats.Inc(d.Freq, stat)
	}

	d.phase = Idle
	d.requested = 0
	d.bs.reset()
}

/*-------------------------------------------------------------------
 *
 * Name:        Step
 *
 * Purpose:     Advance exactly one phase.
 *
 *--------------------------------------------------------------------*/

func (d *ChannelDecoder) Step() {
	switch d.phase {
	case Idle:
		// Nothing to do.
	case ReadingHeader:
		d.read_header()
	case ReadingData:
		d.read_data()
	}
}

// Convenience for callers that have the whole burst already.

func (d *ChannelDecoder) DecodeBurst(info BurstInfo, b []byte) {
	d.StartBurst(info)
	d.PushBits(b)

	for d.phase != Idle {
		d.Step()
	}
}

func (d *ChannelDecoder) read_header() {
	var hbits = d.bs.take(HEADER_LEN)
	if hbits == nil {
		logger.Debug("Burst header truncated", "freq", d.Freq, "bits", d.bs.available())
		d.abort(STAT_HEADER_TRUNCATED)
		return
	}

	scramble_bits(hbits, &d.lfsr)

	var header, nfixed, ok = header_fec_correct(bits_to_word_msbfirst(hbits))
	if !ok {
		logger.Debug("Header FEC failed", "freq", d.Freq)
		d.abort(STAT_HEADER_FEC_FAILED)
		return
	}

	d.datalen = int(header_length(header))
	d.header_corrected = nfixed

	var limit = IfThenElse(nfixed > 0, d.max_frame_length_corrected, d.max_frame_length)
	if d.datalen > limit {
		logger.Debug("Transmission length too large", "freq", d.Freq, "length", d.datalen, "limit", limit, "corrected", nfixed)
		d.abort(STAT_HEADER_TOO_LONG)
		return
	}

	if nfixed > 0 {
		d.stats.Inc(d.Freq, STAT_HEADER_CORRECTED)
	}

	d.datalen_octets = (d.datalen + 7) / 8

	var full_blocks = d.datalen_octets / RS_K
	var last = d.datalen_octets % RS_K

	if last > 0 {
		d.num_blocks = full_blocks + 1
		d.last_block_len = last
		d.last_parity = rs_parity_len(last)
	} else {
		d.num_blocks = full_blocks
		d.last_block_len = RS_K
		d.last_parity = RS_NROOTS
	}

	d.fec_octets = full_blocks*RS_NROOTS + IfThenElse(last > 0, d.last_parity, 0)

	if d.fec_octets == 0 {
		logger.Debug("Burst unreasonably short", "freq", d.Freq, "length", d.datalen)
		d.abort(STAT_BURST_TOO_SHORT)
		return
	}

	d.requested = 8 * (d.datalen_octets + d.fec_octets)
	d.phase = ReadingData
}

func (d *ChannelDecoder) read_data() {
	var dbits = d.bs.take(d.requested)
	if dbits == nil {
		logger.Debug("Burst data truncated", "freq", d.Freq, "need", d.requested, "have", d.bs.available())
		d.abort(STAT_DATA_TRUNCATED)
		return
	}

	scramble_bits(dbits, &d.lfsr)

	var octets = bits_to_octets_lsbfirst(dbits)
	var data = octets[:d.datalen_octets]
	var fec = octets[d.datalen_octets:]

	var blocks = make(block_matrix, d.num_blocks)

	if err := deinterleave(data, d.num_blocks, blocks, RS_K, 0); err != nil {
		logger.Debug("Deinterleaving data failed", "freq", d.Freq, "err", err)
		d.abort(STAT_DEINTERLEAVE_ERROR)
		return
	}

	var fec_rows = IfThenElse(d.last_parity > 0, d.num_blocks, d.num_blocks-1)
	if err := deinterleave(fec, fec_rows, blocks, RS_NROOTS, RS_K); err != nil {
		logger.Debug("Deinterleaving FEC failed", "freq", d.Freq, "err", err)
		d.abort(STAT_DEINTERLEAVE_ERROR)
		return
	}

	var corrected = 0
	for r := range blocks {
		var plen = IfThenElse(r == d.num_blocks-1, d.last_parity, RS_NROOTS)

		var n, err = rs_verify(blocks[r][:], plen)
		if err != nil {
			logger.Debug("FEC failed", "freq", d.Freq, "block", r, "of", d.num_blocks, "err", err)
			d.abort(STAT_RS_FAILED)
			return
		}
		corrected += n
	}

	d.stats.Add(d.Freq, STAT_RS_CORRECTED, corrected)

	var payload = make([]byte, 0, d.datalen_octets)
	for r := range blocks {
		var blen = IfThenElse(r == d.num_blocks-1, d.last_block_len, RS_K)
		payload = append(payload, blocks[r][:blen]...)
	}

	var pbits = octets_to_bits_lsbfirst(payload)[:d.datalen]

	var frames, stuffErr = hdlc_unstuff_frames(pbits)
	if stuffErr != nil {
		logger.Debug("Frame extraction stopped", "freq", d.Freq, "err", stuffErr, "good", len(frames))
		d.stats.Inc(d.Freq, STAT_STUFFING_ERROR)
	}

	if len(frames) == 0 {
		d.stats.Inc(d.Freq, STAT_NO_FRAMES)
	}

	for i, f := range frames {
		debug_hex_dump("Extracted frame", f)

		d.queue.Push(&QueuedFrame{ //nolint:exhaustruct
			Freq:            d.Freq,
			Timestamp:       d.info.Timestamp,
			Signal:          d.info.Signal,
			Noise:           d.info.Noise,
			BurstBits:       d.datalen,
			HeaderCorrected: d.header_corrected,
			FECCorrected:    corrected,
			Index:           i,
			Data:            f,
		})

		d.stats.Inc(d.Freq, STAT_FRAMES_QUEUED)
	}

	d.abort("")
}
