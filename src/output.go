package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Print decoded frames.
 *
 * Description:	Each Output is one format (text or JSON), one filter
 *		and one sink.  A frame can go to several Outputs.
 *
 *		Text is a header line for the burst, then the
 *		protocol chain, one level of indentation per layer.
 *		JSON is one object per line.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

type OutputFormat int

const (
	FORMAT_TEXT OutputFormat = iota
	FORMAT_JSON
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "text":
		return FORMAT_TEXT, nil
	case "json":
		return FORMAT_JSON, nil
	default:
		return 0, fmt.Errorf("%w: output format %q", ErrUnsupported, s)
	}
}

/*------------------------------------------------------------------
 *
 * Filters.
 *
 *------------------------------------------------------------------*/

type Filter struct {
	NoEmpty   bool            // Drop frames with no payload.
	Stations  map[uint32]bool // If not empty, source or destination must be one of these.
	ACARSOnly bool
}

func NewFilter(fc FilterConfig) (*Filter, error) {
	var ids, err = fc.StationIDs()
	if err != nil {
		return nil, err
	}

	var f = &Filter{NoEmpty: fc.NoEmpty, ACARSOnly: fc.ACARSOnly, Stations: map[uint32]bool{}}
	for _, id := range ids {
		f.Stations[id] = true
	}
	return f, nil
}

func (f *Filter) Accept(fr *AVLCFrame) bool {
	if f == nil {
		return true
	}
	if f.NoEmpty && fr.Payload == nil {
		return false
	}
	if f.ACARSOnly && fr.Protocol != ProtoACARS {
		return false
	}
	if len(f.Stations) > 0 && !f.Stations[fr.Src.Addr] && !f.Stations[fr.Dst.Addr] {
		return false
	}
	return true
}

/*------------------------------------------------------------------
 *
 * Sinks.
 *
 *------------------------------------------------------------------*/

type Sink interface {
	WriteMessage(msg []byte) error
	Close() error
}

// Anything with a Write method.  Messages are written whole.

type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer // nil if we don't own w.
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w} //nolint:exhaustruct
}

func NewFileSink(path string) (*WriterSink, error) {
	var f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("opening output file: %w", err)
	}
	return &WriterSink{w: f, closer: f}, nil //nolint:exhaustruct
}

func (s *WriterSink) WriteMessage(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var _, err = s.w.Write(msg)
	return err
}

func (s *WriterSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

/*------------------------------------------------------------------
 *
 * Output.
 *
 *------------------------------------------------------------------*/

type Output struct {
	Format OutputFormat
	Filter *Filter
	Sink   Sink

	// Station name, included in JSON when set.
	StationName string

	timestamp *strftime.Strftime
}

func NewOutput(format OutputFormat, timestamp_format string, filter *Filter, sink Sink) (*Output, error) {
	if timestamp_format == "" {
		timestamp_format = DEFAULT_TIMESTAMP_FORMAT
	}

	var ts, err = strftime.New(timestamp_format)
	if err != nil {
		return nil, fmt.Errorf("timestamp format %q: %w", timestamp_format, err)
	}

	return &Output{ //nolint:exhaustruct
		Format:    format,
		Filter:    filter,
		Sink:      sink,
		timestamp: ts,
	}, nil
}

/*------------------------------------------------------------------
 *
 * Name:	Write
 *
 * Purpose:	Render a frame and hand it to the sink, unless the
 *		filter rejects it.
 *
 *------------------------------------------------------------------*/

func (o *Output) Write(f *AVLCFrame) error {
	if !o.Filter.Accept(f) {
		return nil
	}

	var msg, err = o.Render(f)
	if err != nil {
		return err
	}

	return o.Sink.WriteMessage(msg)
}

func (o *Output) Render(f *AVLCFrame) ([]byte, error) {
	switch o.Format {
	case FORMAT_JSON:
		var b, err = json.Marshal(o.frame_json(f))
		if err != nil {
			return nil, fmt.Errorf("encoding JSON: %w", err)
		}
		return append(b, '\n'), nil
	default:
		return []byte(o.frame_text(f)), nil
	}
}

func (o *Output) frame_text(f *AVLCFrame) string {
	var w TextWriter
	var m = f.Meta

	w.Line(0, "[%s] [%.3f] [%.1f/%.1f dBFS] [%.1f dB] [%d bits, hdr fix %d, FEC fix %d, frame %d]",
		o.timestamp.FormatString(m.Timestamp),
		float64(m.Freq)/1e6,
		m.Signal, m.Noise, m.Signal-m.Noise,
		m.BurstBits, m.HeaderCorrected, m.FECCorrected, m.Index+1)

	f.Node().FormatText(&w, 0)
	w.Line(0, "")

	return w.String()
}

func (o *Output) frame_json(f *AVLCFrame) map[string]any {
	var m = f.Meta
	var ts = m.Timestamp.UTC()

	var vdl2 = map[string]any{
		"app": map[string]any{
			"name": "husky",
			"ver":  version_string(),
		},
		"t": map[string]any{
			"sec":  ts.Unix(),
			"usec": ts.Nanosecond() / int(time.Microsecond),
		},
		"freq":             m.Freq,
		"sig_level":        m.Signal,
		"noise_level":      m.Noise,
		"burst_len_bits":   m.BurstBits,
		"hdr_bits_fixed":   m.HeaderCorrected,
		"octets_corrected": m.FECCorrected,
		"idx":              m.Index,
	}
	if o.StationName != "" {
		vdl2["station"] = o.StationName
	}

	for k, v := range f.Node().FormatJSON() {
		vdl2[k] = v
	}

	return map[string]any{"vdl2": vdl2}
}

/*------------------------------------------------------------------
 *
 * Several outputs together.
 *
 *------------------------------------------------------------------*/

type Outputs []*Output

// Errors from one output don't stop the others.
func (outs Outputs) Write(f *AVLCFrame) {
	for _, o := range outs {
		if err := o.Write(f); err != nil {
			logger.Error("Output failed", "err", err)
		}
	}
}

func (outs Outputs) Close() {
	for _, o := range outs {
		if err := o.Sink.Close(); err != nil {
			logger.Warn("Closing output", "err", err)
		}
	}
}
