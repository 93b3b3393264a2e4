package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the VDL Mode 2 decoder.
 *
 * Inputs:	Burst files, or stdin.  One burst per line, as
 *		written by husky-genburst or a demodulator.
 *
 * Outputs:	Decoded frames to each configured output.
 *
 * Description:	./husky -f json -p 5555 bursts.txt
 *
 *		Options on the command line override the config file.
 *		Giving any of --format, --output or --port replaces
 *		the outputs of the config file with a single one.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

func HuskyMain() {
	var configFile = pflag.StringP("config", "c", "", "Configuration file name.  Default is husky.yaml in the usual places.")
	var format = pflag.StringP("format", "f", "", "Output format: text or json.")
	var outputFile = pflag.StringP("output", "o", "", "Append output to this file rather than stdout.")
	var port = pflag.IntP("port", "p", 0, "Serve output to TCP clients on this port rather than stdout.")
	var dnsSD = pflag.String("dns-sd", "", "Announce the TCP port with DNS-SD under this name.  \"default\" for \"Husky on <hostname>\".")
	var timestamp = pflag.StringP("timestamp", "T", "", "strftime format for timestamps.")
	var stationName = pflag.StringP("station-name", "n", "", "Name of this receiving station, included in JSON output.")
	var lat = pflag.Float64("lat", 0, "Latitude of this receiving station, decimal degrees.")
	var lon = pflag.Float64("lon", 0, "Longitude of this receiving station, decimal degrees.")
	var metrics = pflag.StringP("metrics", "m", "", "Serve Prometheus metrics on this address, e.g. :9110.")
	var noEmpty = pflag.Bool("no-empty", false, "Don't print frames with no payload.")
	var stations = pflag.StringSliceP("station", "s", nil, "Only print frames to or from these stations, 6 hex digits.  Repeatable.")
	var acarsOnly = pflag.Bool("acars-only", false, "Only print frames carrying ACARS.")
	var verbose = pflag.CountP("verbose", "v", "Increase diagnostic output.  Repeat for more.")
	var quiet = pflag.BoolP("quiet", "q", false, "Only report errors.")
	var version = pflag.BoolP("version", "V", false, "Print version and exit.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s decodes VDL Mode 2 bursts and prints the AVLC frames they carry.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... [BURST FILE]...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "With no burst file, or when the file is -, read standard input.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ husky-genburst -o test.txt 0103...\n")
		fmt.Fprintf(os.Stderr, "$ husky test.txt\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if *version {
		printVersion(*verbose > 0)
		os.Exit(0)
	}

	var cfg, cfgErr = LoadConfig(*configFile)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", cfgErr)
		os.Exit(1)
	}

	if pflag.CommandLine.Changed("lat") != pflag.CommandLine.Changed("lon") {
		fmt.Fprintf(os.Stderr, "--lat and --lon go together.\n")
		pflag.Usage()
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("lat") {
		cfg.Station.Lat = lat
		cfg.Station.Lon = lon
	}
	if *stationName != "" {
		cfg.Station.Name = *stationName
	}
	if *timestamp != "" {
		cfg.TimestampFormat = *timestamp
	}
	if *metrics != "" {
		cfg.Metrics.Listen = *metrics
	}
	if *noEmpty {
		cfg.Filter.NoEmpty = true
	}
	if *acarsOnly {
		cfg.Filter.ACARSOnly = true
	}
	if len(*stations) > 0 {
		cfg.Filter.Stations = *stations
	}
	switch {
	case *quiet:
		cfg.LogLevel = 0
	case *verbose > 0:
		cfg.LogLevel = 1 + *verbose
	}

	if *format != "" || *outputFile != "" || *port != 0 {
		var o = OutputConfig{Format: IfThenElse(*format != "", *format, "text"), Sink: "stdout"} //nolint:exhaustruct
		switch {
		case *port != 0:
			o.Sink = "tcp"
			o.Port = *port
			o.DNSSD = *dnsSD
		case *outputFile != "":
			o.Sink = "file"
			o.Path = *outputFile
		}
		cfg.Outputs = []OutputConfig{o}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	log_init(cfg.LogLevel)

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RunHusky(ctx, cfg, pflag.Args()); err != nil {
		logger.Error("Failed", "err", err)
		stop()
		os.Exit(1)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        RunHusky
 *
 * Purpose:     Set everything up from a Config and decode the files.
 *
 * Inputs:	files	- Burst files.  Empty or "-" means stdin.
 *
 *--------------------------------------------------------------------*/

func RunHusky(ctx context.Context, cfg *Config, files []string) error {
	SetStationLocation(cfg.StationLocation())

	var reg = prometheus.NewRegistry()
	var stats = NewStatistics(reg)

	var ctx2, cancel = context.WithCancel(ctx)
	defer cancel()

	var outputs, outErr = build_outputs(ctx2, cfg)
	if outErr != nil {
		return outErr
	}
	defer outputs.Close()

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := serve_metrics(ctx2, cfg.Metrics.Listen, reg); err != nil {
				logger.Error("Metrics server failed", "err", err)
			}
		}()
	}

	var rx = NewReceiver(stats, outputs)
	rx.MaxFrameLength = cfg.Decoder.MaxFrameLength
	rx.MaxFrameLengthCorrected = cfg.Decoder.MaxFrameLengthCorrected

	if len(files) == 0 {
		files = []string{"-"}
	}

	for _, name := range files {
		if err := run_file(ctx2, rx, name); err != nil {
			return err
		}
		if ctx2.Err() != nil {
			break
		}
	}

	return nil
}

func run_file(ctx context.Context, rx *Receiver, name string) error {
	var f = os.Stdin
	if name != "-" {
		var opened, err = os.Open(name) //nolint:gosec
		if err != nil {
			return fmt.Errorf("opening burst file: %w", err)
		}
		defer opened.Close()
		f = opened
	}

	// A read blocked on a pipe only returns once the file is closed.
	var stopClose = context.AfterFunc(ctx, func() { _ = f.Close() })
	defer stopClose()

	logger.Info("Decoding", "file", name)

	var err = rx.Run(ctx, f)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// With no outputs configured, text to stdout.

func build_outputs(ctx context.Context, cfg *Config) (Outputs, error) {
	var configs = cfg.Outputs
	if len(configs) == 0 {
		configs = []OutputConfig{{Format: "text", Sink: "stdout"}} //nolint:exhaustruct
	}

	var filter, filterErr = NewFilter(cfg.Filter)
	if filterErr != nil {
		return nil, filterErr
	}

	var outputs Outputs
	for _, oc := range configs {
		var o, err = build_output(ctx, cfg, oc, filter)
		if err != nil {
			outputs.Close()
			return nil, err
		}
		outputs = append(outputs, o)
	}

	return outputs, nil
}

func build_output(ctx context.Context, cfg *Config, oc OutputConfig, filter *Filter) (*Output, error) {
	var format, formatErr = ParseOutputFormat(oc.Format)
	if formatErr != nil {
		return nil, formatErr
	}

	var sink Sink
	switch oc.Sink {
	case "file":
		var s, err = NewFileSink(oc.Path)
		if err != nil {
			return nil, err
		}
		sink = s
	case "tcp":
		var s, err = NewTCPSink(fmt.Sprintf(":%d", oc.Port))
		if err != nil {
			return nil, err
		}
		if oc.DNSSD != "" {
			var name = IfThenElse(oc.DNSSD == "default", "", oc.DNSSD)
			if err := dns_sd_announce(ctx, name, s.Port(), oc.Format); err != nil {
				logger.Warn("Not announcing", "err", err)
			}
		}
		sink = s
	default:
		sink = NewWriterSink(os.Stdout)
	}

	var o, err = NewOutput(format, cfg.TimestampFormat, filter, sink)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}
	o.StationName = cfg.Station.Name

	return o, nil
}
