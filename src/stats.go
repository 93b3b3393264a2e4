package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Named counters for every place a burst or frame can
 *		succeed or be dropped.
 *
 * Description:	Counters are labelled with the channel frequency so
 *		a bad channel stands out.  They can be exposed on an
 *		HTTP /metrics endpoint for Prometheus.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const (
	metricsNamespace = "husky"
	metricsSubsystem = "vdl2"

	labelName = "name"
	labelFreq = "freq"
)

// Counter names.

const (
	STAT_BURSTS             = "bursts"
	STAT_HEADER_FEC_FAILED  = "header_fec_failed"
	STAT_HEADER_CORRECTED   = "header_corrected"
	STAT_HEADER_TOO_LONG    = "header_too_long"
	STAT_HEADER_TRUNCATED   = "header_truncated"
	STAT_BURST_TOO_SHORT    = "burst_too_short"
	STAT_DATA_TRUNCATED     = "data_truncated"
	STAT_DEINTERLEAVE_ERROR = "deinterleave_error"
	STAT_RS_FAILED          = "rs_failed"
	STAT_RS_CORRECTED       = "rs_corrected_octets"
	STAT_STUFFING_ERROR     = "stuffing_error"
	STAT_NO_FRAMES          = "no_frames"
	STAT_FRAMES_QUEUED      = "frames_queued"
	STAT_BAD_STEP           = "bad_step"

	STAT_AVLC_TOO_SHORT = "avlc_too_short"
	STAT_AVLC_FCS_BAD   = "avlc_fcs_bad"
	STAT_AVLC_OK        = "avlc_frames_ok"
	STAT_PAYLOAD_RAW    = "payload_unparsed"
)

type Statistics struct {
	Counters *prometheus.CounterVec

	QueueLength prometheus.Gauge
}

func NewStatistics(reg prometheus.Registerer) *Statistics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var s = &Statistics{
		Counters: prometheus.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "events_total",
			Help:      "Decoder and parser events, by name and channel frequency.",
		}, []string{labelName, labelFreq}),

		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{ //nolint:exhaustruct
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "frame_queue_length",
			Help:      "Frames waiting to be parsed.",
		}),
	}

	reg.MustRegister(s.Counters, s.QueueLength)

	return s
}

func freq_label(freq uint32) string {
	return strconv.FormatUint(uint64(freq), 10)
}

// All methods accept a nil receiver so tests and tools can skip statistics.

func (s *Statistics) Inc(freq uint32, name string) {
	s.Add(freq, name, 1)
}

func (s *Statistics) Add(freq uint32, name string, n int) {
	if s == nil || n <= 0 {
		return
	}

	s.Counters.WithLabelValues(name, freq_label(freq)).Add(float64(n))
}

// Current value of a counter.
func (s *Statistics) Count(freq uint32, name string) float64 {
	if s == nil {
		return 0
	}

	var m dto.Metric
	if err := s.Counters.WithLabelValues(name, freq_label(freq)).Write(&m); err != nil {
		return 0
	}

	return m.GetCounter().GetValue()
}

func (s *Statistics) set_queue_length(n int) {
	if s == nil {
		return
	}

	s.QueueLength.Set(float64(n))
}

/*------------------------------------------------------------------
 *
 * Name:	serve_metrics
 *
 * Purpose:	Expose the registry on http://addr/metrics until ctx
 *		is cancelled.
 *
 *------------------------------------------------------------------*/

func serve_metrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})) //nolint:exhaustruct

	var srv = &http.Server{ //nolint:exhaustruct
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var lc net.ListenConfig
	var ln, listenErr = lc.Listen(ctx, "tcp", addr)
	if listenErr != nil {
		return listenErr
	}

	logger.Info("Serving metrics", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		var shutdownCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx) //nolint:contextcheck
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
