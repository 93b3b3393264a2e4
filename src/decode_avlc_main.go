package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for standalone application to parse and
 *		explain AVLC frames.
 *
 * Inputs:	Hexadecimal AVLC frames, one per line, on stdin or as
 *		arguments.  Spaces between octets are allowed, e.g.
 *
 *		02 00 00 00 03 00 00 00 01 ...
 *
 *		Frames are expected to end with the FCS.  --no-fcs
 *		calculates and appends one first.
 *
 * Outputs:	stdout
 *
 * Description:	./decode_avlc < frames.txt
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

func DecodeAVLCMain() {
	var format = pflag.StringP("format", "f", "text", "Output format: text or json.")
	var noFCS = pflag.BoolP("no-fcs", "x", false, "Frames don't include the FCS; add one.")
	var freq = pflag.Uint32P("freq", "F", 0, "Frequency in Hz to report.")
	var verbose = pflag.CountP("verbose", "v", "Explain why frames were rejected.  Repeat for hex dumps.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s parses and explains AVLC frames.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... [FRAME]...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "With no frames on the command line, read them from stdin, one per line.\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	var f, formatErr = ParseOutputFormat(*format)
	if formatErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", formatErr)
		pflag.Usage()
		os.Exit(1)
	}

	log_init(1 + *verbose)

	var opts = DecodeAVLCOptions{Format: f, AddFCS: *noFCS, Freq: *freq}

	if len(pflag.Args()) > 0 {
		for _, line := range pflag.Args() {
			DecodeAVLCLine(line, opts)
		}
		return
	}

	var scanner = bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var line = scanner.Text()
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			/* comment or blank line */
			fmt.Printf("%s\n", line)
			continue
		}

		DecodeAVLCLine(line, opts)
	}
}

type DecodeAVLCOptions struct {
	Format OutputFormat
	AddFCS bool
	Freq   uint32
}

func DecodeAVLCLine(line string, opts DecodeAVLCOptions) {
	// Documented input format is "DE AD BE EF"
	// Go's hex.DecodeString will decode "DEADBEEF"
	// So, let's just strip spaces and use that!

	var spacelessLine = strings.ReplaceAll(strings.TrimSpace(line), " ", "")
	var data, err = hex.DecodeString(spacelessLine)
	if err != nil {
		fmt.Printf("ERROR: not hexadecimal: %s\n", err)
		return
	}

	if opts.AddFCS {
		data = avlc_append_fcs(data)
	}

	var q = &QueuedFrame{ //nolint:exhaustruct
		Freq:      opts.Freq,
		Timestamp: time.Now(),
		Data:      data,
	}

	var frame, parseErr = ParseAVLC(q, nil)
	if parseErr != nil {
		fmt.Printf("ERROR: %s\n", parseErr)
		return
	}

	var out, outErr = NewOutput(opts.Format, "", nil, NewWriterSink(os.Stdout))
	if outErr != nil {
		fmt.Printf("ERROR: %s\n", outErr)
		return
	}

	if err := out.Write(frame); err != nil {
		fmt.Printf("ERROR: %s\n", err)
	}
}
