// Package metrics exposes Prometheus instrumentation for the speech
// pipeline. Collectors are registered on the default registry at init.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Utterance outcomes.
const (
	OutcomeFinished    = "finished"
	OutcomeInterrupted = "interrupted"
	OutcomeFailed      = "failed"
)

var (
	utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ottospeak_utterances_total",
		Help: "Utterances completed, by outcome",
	}, []string{"outcome"})

	voiceResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ottospeak_voice_resolutions_total",
		Help: "Voice resolutions, by status",
	}, []string{"status"})

	voiceResolutionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ottospeak_voice_resolution_seconds",
		Help:    "Time from first use until the voice was resolved or rejected",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	queueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ottospeak_queue_length",
		Help: "Utterances waiting in the engine queue",
	})

	synthRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ottospeak_synthesis_requests_total",
		Help: "Synthesis requests sent to the TTS backend",
	}, []string{"status"})

	synthLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ottospeak_synthesis_latency_seconds",
		Help:    "TTS backend latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ottospeak_audio_cache_lookups_total",
		Help: "Audio cache lookups, by result",
	}, []string{"result"})
)

// RecordUtterance counts a finished utterance with one of the Outcome*
// values.
func RecordUtterance(outcome string) {
	utterances.WithLabelValues(outcome).Inc()
}

// ObserveVoiceResolution records how long resolution took and whether it
// succeeded.
func ObserveVoiceResolution(d time.Duration, err error) {
	voiceResolutionLatency.Observe(d.Seconds())
	voiceResolutions.WithLabelValues(status(err == nil)).Inc()
}

// SetQueueLength publishes the current engine queue length.
func SetQueueLength(n int) {
	queueLength.Set(float64(n))
}

// ObserveSynthesis records one backend synthesis call.
func ObserveSynthesis(d time.Duration, success bool) {
	synthLatency.Observe(d.Seconds())
	synthRequests.WithLabelValues(status(success)).Inc()
}

// RecordCacheLookup counts an audio cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
