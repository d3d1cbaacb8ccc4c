// Package metrics publishes the engine's observable state as Prometheus
// gauges and histograms, scraped over HTTP. Nothing in this package is
// called from the audio thread: Recorder.Observe runs on the Engine's
// metrics goroutine, which every 100ms republishes the values the most
// recent Process call stashed in atomics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private Prometheus registry and the gauges/histograms
// the engine publishes after each block.
type Recorder struct {
	registry *prometheus.Registry

	inputPeak  prometheus.Gauge
	outputPeak prometheus.Gauge

	activeChannels prometheus.Gauge

	processingDuration prometheus.Histogram

	uiQueueDropped   prometheus.Gauge
	midiQueueDropped prometheus.Gauge

	server *http.Server
}

// New constructs a Recorder and registers its collectors on a fresh
// registry (never the global DefaultRegisterer, so tests can build more
// than one Recorder without a "duplicate metrics collector" panic).
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.inputPeak = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "loopengine",
		Subsystem: "audio",
		Name:      "input_peak",
		Help:      "Most recent block's input peak amplitude (linear, 0..1+).",
	})
	r.outputPeak = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "loopengine",
		Subsystem: "audio",
		Name:      "output_peak",
		Help:      "Most recent block's output peak amplitude (linear, 0..1+).",
	})
	r.activeChannels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "loopengine",
		Subsystem: "mixer",
		Name:      "active_channels",
		Help:      "Number of SAMPLE channels currently PLAY, WAIT or ENDING.",
	})
	r.processingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "loopengine",
		Subsystem: "mixer",
		Name:      "process_duration_seconds",
		Help:      "Wall-clock time spent in Mixer.Process per audio block.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
	})
	r.uiQueueDropped = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "loopengine",
		Subsystem: "eventqueue",
		Name:      "ui_dropped_total",
		Help:      "Cumulative UI events dropped due to queue overflow.",
	})
	r.midiQueueDropped = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "loopengine",
		Subsystem: "eventqueue",
		Name:      "midi_dropped_total",
		Help:      "Cumulative MIDI events dropped due to queue overflow.",
	})

	r.registry.MustRegister(
		r.inputPeak,
		r.outputPeak,
		r.activeChannels,
		r.processingDuration,
		r.uiQueueDropped,
		r.midiQueueDropped,
	)
	return r
}

// BlockStats is what the Engine's metrics goroutine hands to Observe on
// each tick: the stats of the most recent block, gathered after
// Mixer.Process returned.
type BlockStats struct {
	InputPeak       float32
	OutputPeak      float32
	ActiveChannels  int
	ProcessDuration time.Duration
	UIDropped       uint64
	MidiDropped     uint64
}

// Observe publishes one block's worth of stats. Called from the Engine's
// single metrics goroutine; never called concurrently with itself.
func (r *Recorder) Observe(s BlockStats) {
	r.inputPeak.Set(float64(s.InputPeak))
	r.outputPeak.Set(float64(s.OutputPeak))
	r.activeChannels.Set(float64(s.ActiveChannels))
	r.processingDuration.Observe(s.ProcessDuration.Seconds())
	r.uiQueueDropped.Set(float64(s.UIDropped))
	r.midiQueueDropped.Set(float64(s.MidiDropped))
}

// Serve starts the scrape HTTP endpoint at addr in a new goroutine. It
// never blocks the caller; Shutdown stops it. Only ever called from the
// UI thread at startup.
func (r *Recorder) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	r.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "err", err)
		}
	}()
}

// Shutdown stops the scrape endpoint, waiting up to the given context's
// deadline for in-flight scrapes to finish.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
