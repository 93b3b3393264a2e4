package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:   	Generate a burst file for testing the decoder.
 *
 * Inputs:	Hexadecimal AVLC frames, from the command line or stdin.
 *		Each line, or each argument, is one burst.  Several
 *		frames in one burst are separated by commas.
 *
 *		The FCS is calculated and appended unless --has-fcs
 *		says it is already there.
 *
 * Outputs:	Burst file, as read by husky.
 *
 * Description:	./husky-genburst -o test.txt 01...  02...,03...
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type genburst_options struct {
	freq    uint32
	signal  float64
	noise   float64
	has_fcs bool
	errors  int
	rnd     *rand.Rand
	repeat  int
}

func GenBurstMain() {
	var outputFile = pflag.StringP("output", "o", "", "Write bursts to this file rather than stdout.")
	var freq = pflag.Uint32P("freq", "F", 136975000, "Frequency in Hz.")
	var signal = pflag.Float64P("signal", "S", -10.0, "Signal level, dBFS.")
	var noise = pflag.Float64P("noise", "N", -40.0, "Noise level, dBFS.")
	var hasFCS = pflag.BoolP("has-fcs", "x", false, "Frames already end with the FCS.")
	var bitErrors = pflag.IntP("errors", "e", 0, "Flip this many random bits in each burst, after the header.")
	var seed = pflag.Uint64P("seed", "r", 0, "Random seed for --errors.  0 for time of day.")
	var repeat = pflag.IntP("repeat", "n", 1, "Write each burst this many times.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s generates VDL Mode 2 bursts from hexadecimal AVLC frames.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... [FRAME[,FRAME]...]...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "With no frames on the command line, read them from stdin, one burst per line.\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if *repeat < 1 || *bitErrors < 0 {
		pflag.Usage()
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano()) //nolint:gosec
	}

	var opts = &genburst_options{
		freq:    *freq,
		signal:  *signal,
		noise:   *noise,
		has_fcs: *hasFCS,
		errors:  *bitErrors,
		rnd:     rand.New(rand.NewPCG(*seed, *seed)), //nolint:gosec
		repeat:  *repeat,
	}

	var w io.Writer = os.Stdout
	if *outputFile != "" {
		var f, err = os.Create(*outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	var bw = bufio.NewWriter(w)
	defer bw.Flush()

	var lines = pflag.Args()
	var failed = false

	var gen = func(line string) {
		if err := gen_burst_line(bw, line, opts); err != nil {
			fmt.Fprintf(os.Stderr, "%q: %s\n", line, err)
			failed = true
		}
	}

	if len(lines) > 0 {
		for _, line := range lines {
			gen(line)
		}
	} else {
		var scanner = bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			var line = strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			gen(line)
		}
	}

	if failed {
		bw.Flush()
		os.Exit(1)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        gen_burst_line
 *
 * Purpose:     Turn one line of hex frames into one burst line.
 *
 * Inputs:	line	- Frames in hex, separated by commas.  Spaces
 *			  inside a frame are ignored.
 *
 *--------------------------------------------------------------------*/

func gen_burst_line(w io.Writer, line string, opts *genburst_options) error {
	var frames [][]byte
	for _, part := range strings.Split(line, ",") {
		var frame, err = hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(part), " ", ""))
		if err != nil {
			return fmt.Errorf("bad hex: %w", err)
		}
		if !opts.has_fcs {
			frame = avlc_append_fcs(frame)
		}
		frames = append(frames, frame)
	}

	var bits, err = EncodeBurst(frames)
	if err != nil {
		return err
	}

	for range opts.repeat {
		var b = &Burst{
			Freq: opts.freq,
			Info: BurstInfo{Timestamp: time.Now(), Signal: opts.signal, Noise: opts.noise},
			Bits: bits,
		}

		if opts.errors > 0 {
			b.Bits = append([]byte(nil), bits...)
			flip_random_bits(b.Bits[HEADER_LEN:], opts.errors, opts.rnd)
		}

		if err := WriteBurst(w, b); err != nil {
			return err
		}
	}

	return nil
}
