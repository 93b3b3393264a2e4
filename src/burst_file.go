package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Read and write demodulated bursts as text.
 *
 * Description:	One burst per line:
 *
 *			freq_hz signal_dbfs noise_dbfs nbits hex
 *
 *		The bits start at the burst header, in the order they
 *		were received, packed most significant bit first into
 *		the hex octets.  Blank lines and lines starting with #
 *		are ignored.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type Burst struct {
	Freq uint32
	Info BurstInfo
	Bits []byte // One bit per byte.
}

func pack_bits_msbfirst(b []byte) []byte {
	var out = make([]byte, (len(b)+7)/8)
	for i, v := range b {
		if v&1 != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

func unpack_bits_msbfirst(p []byte, n int) []byte {
	var out = make([]byte, n)
	for i := range out {
		out[i] = (p[i/8] >> (7 - i%8)) & 1
	}
	return out
}

func WriteBurst(w io.Writer, b *Burst) error {
	var _, err = fmt.Fprintf(w, "%d %.1f %.1f %d %s\n", b.Freq, b.Info.Signal, b.Info.Noise, len(b.Bits), hex.EncodeToString(pack_bits_msbfirst(b.Bits)))
	return err
}

func parse_burst_line(line string) (*Burst, error) {
	var fields = strings.Fields(line)
	if len(fields) != 5 {
		return nil, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	var freq, freqErr = strconv.ParseUint(fields[0], 10, 32)
	if freqErr != nil {
		return nil, fmt.Errorf("frequency: %w", freqErr)
	}

	var signal, sigErr = strconv.ParseFloat(fields[1], 64)
	if sigErr != nil {
		return nil, fmt.Errorf("signal level: %w", sigErr)
	}

	var noise, noiseErr = strconv.ParseFloat(fields[2], 64)
	if noiseErr != nil {
		return nil, fmt.Errorf("noise level: %w", noiseErr)
	}

	var nbits, nbitsErr = strconv.Atoi(fields[3])
	if nbitsErr != nil || nbits < 0 {
		return nil, fmt.Errorf("bit count %q", fields[3])
	}

	var packed, hexErr = hex.DecodeString(fields[4])
	if hexErr != nil {
		return nil, fmt.Errorf("bits: %w", hexErr)
	}

	if len(packed)*8 < nbits {
		return nil, fmt.Errorf("%w: %d bits declared, %d supplied", ErrTruncated, nbits, len(packed)*8)
	}

	return &Burst{
		Freq: uint32(freq),
		Info: BurstInfo{Timestamp: time.Now(), Signal: signal, Noise: noise},
		Bits: unpack_bits_msbfirst(packed, nbits),
	}, nil
}

/*------------------------------------------------------------------
 *
 * Name:	ReadBursts
 *
 * Purpose:	Parse a burst file, calling fn for each good line.
 *
 * Description:	Bad lines are logged and skipped.  Errors from fn
 *		or from reading stop the scan.
 *
 *------------------------------------------------------------------*/

func ReadBursts(r io.Reader, fn func(*Burst) error) error {
	var scanner = bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lineno = 0
	for scanner.Scan() {
		lineno++

		var line = strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var b, err = parse_burst_line(line)
		if err != nil {
			logger.Error("Skipping bad burst line", "line", lineno, "err", err)
			continue
		}

		if err := fn(b); err != nil {
			return err
		}
	}

	return scanner.Err()
}
